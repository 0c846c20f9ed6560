package reporting

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage/memory"
)

const testRunID = "run-1"

var (
	rcptA = domain.MustParseAddress("0x00000000000000000000000000000000000000d1")
	rcptB = domain.MustParseAddress("0x00000000000000000000000000000000000000d2")
	payee = domain.MustParseAddress("0x00000000000000000000000000000000000000f2")
)

func setupTestData(t *testing.T) (*memory.TransferRecordStore, *memory.WithdrawalRecordStore, *memory.FeeRevenueStore) {
	ctx := context.Background()

	transferStore := memory.NewTransferRecordStore()
	withdrawalStore := memory.NewWithdrawalRecordStore()
	feeRevenueStore := memory.NewFeeRevenueStore()

	// One mint, one buy with payouts, one plain transfer
	transfers := []*domain.TransferRecord{
		{
			RecordID: "t1", RunID: testRunID, Seq: 1, Class: domain.ClassMint,
			Amount: "500000000000000000000", NetAmount: "500000000000000000000",
			FeeAmount: "0", BurnAmount: "0", Timestamp: 1_000_000,
		},
		{
			RecordID: "t2", RunID: testRunID, Seq: 2, Class: domain.ClassBuy,
			Amount: "1000000000000000000000", NetAmount: "940000000000000000000",
			FeeAmount: "60000000000000000000", BurnAmount: "3000000000000000000", FeeBps: 600,
			Payouts: []domain.FeePayout{
				{Recipient: rcptA, Amount: "45000000000000000000"},
				{Recipient: rcptB, Amount: "12000000000000000000"},
			},
			Timestamp: 1_060_000,
		},
		{
			RecordID: "t3", RunID: testRunID, Seq: 3, Class: domain.ClassTransfer,
			Amount: "10000000000000000000", NetAmount: "10000000000000000000",
			FeeAmount: "0", BurnAmount: "0", Timestamp: 1_120_000,
		},
	}
	if err := transferStore.InsertBulk(ctx, transfers); err != nil {
		t.Fatalf("InsertBulk transfers failed: %v", err)
	}

	withdrawals := []*domain.WithdrawalRecord{
		{
			RecordID: "w1", RunID: testRunID, Seq: 1, Kind: domain.WithdrawSwap,
			TokenIn: "0x00000000000000000000000000000000000000e1", TokenOut: "0x00000000000000000000000000000000000000e3",
			AmountIn: "100000000000000000000", AmountOut: "99400000000000000000",
			Recipient: payee, SlippageBps: 100, Timestamp: 1_120_000,
		},
	}
	if err := withdrawalStore.InsertBulk(ctx, withdrawals); err != nil {
		t.Fatalf("InsertBulk withdrawals failed: %v", err)
	}

	revenue := []*domain.FeeRevenuePoint{
		{RunID: testRunID, BucketMs: 1_020_000, TransferCount: 1, Volume: 1000, FeesCollected: 60, FeesBurned: 3, FeesDistributed: 57},
	}
	if err := feeRevenueStore.InsertBulk(ctx, revenue); err != nil {
		t.Fatalf("InsertBulk revenue failed: %v", err)
	}

	return transferStore, withdrawalStore, feeRevenueStore
}

func testGenerator(t *testing.T) *Generator {
	transferStore, withdrawalStore, feeRevenueStore := setupTestData(t)
	return NewGenerator(transferStore, withdrawalStore, feeRevenueStore).
		WithClock(func() time.Time { return time.Unix(1_700_000_000, 0).UTC() })
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGenerate_TransferSummary(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), testRunID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	s := report.TransferSummary
	if s.TotalTransfers != 3 {
		t.Errorf("expected 3 transfers, got %d", s.TotalTransfers)
	}
	if s.FeeBearing != 1 {
		t.Errorf("expected 1 fee-bearing transfer, got %d", s.FeeBearing)
	}
	if !closeTo(s.Volume, 1510) {
		t.Errorf("expected volume 1510, got %f", s.Volume)
	}
	if !closeTo(s.FeesCollected, 60) {
		t.Errorf("expected 60 fees collected, got %f", s.FeesCollected)
	}
	if !closeTo(s.FeesBurned, 3) {
		t.Errorf("expected 3 fees burned, got %f", s.FeesBurned)
	}
	if !closeTo(s.FeesDistributed, 57) {
		t.Errorf("expected 57 fees distributed, got %f", s.FeesDistributed)
	}
	if s.FirstMs != 1_000_000 || s.LastMs != 1_120_000 {
		t.Errorf("unexpected time range: %d..%d", s.FirstMs, s.LastMs)
	}
}

func TestGenerate_ClassBreakdown(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), testRunID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.ClassBreakdown) != 3 {
		t.Fatalf("expected 3 class rows, got %d", len(report.ClassBreakdown))
	}
	// Sorted by class name: BUY, MINT, TRANSFER
	if report.ClassBreakdown[0].Class != domain.ClassBuy {
		t.Errorf("expected BUY first, got %s", report.ClassBreakdown[0].Class)
	}
	if report.ClassBreakdown[0].Count != 1 || !closeTo(report.ClassBreakdown[0].Fees, 60) {
		t.Errorf("unexpected BUY row: %+v", report.ClassBreakdown[0])
	}
	if report.ClassBreakdown[1].Class != domain.ClassMint {
		t.Errorf("expected MINT second, got %s", report.ClassBreakdown[1].Class)
	}
	if report.ClassBreakdown[2].Class != domain.ClassTransfer {
		t.Errorf("expected TRANSFER third, got %s", report.ClassBreakdown[2].Class)
	}
}

func TestGenerate_FeeRecipients(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), testRunID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.FeeRecipients) != 2 {
		t.Fatalf("expected 2 recipient rows, got %d", len(report.FeeRecipients))
	}
	if report.FeeRecipients[0].Recipient != rcptA.Hex() || !closeTo(report.FeeRecipients[0].Received, 45) {
		t.Errorf("unexpected first recipient row: %+v", report.FeeRecipients[0])
	}
	if report.FeeRecipients[1].Recipient != rcptB.Hex() || !closeTo(report.FeeRecipients[1].Received, 12) {
		t.Errorf("unexpected second recipient row: %+v", report.FeeRecipients[1])
	}
}

func TestGenerate_WithdrawalsAndRevenue(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), testRunID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.Withdrawals) != 1 {
		t.Fatalf("expected 1 withdrawal row, got %d", len(report.Withdrawals))
	}
	w := report.Withdrawals[0]
	if w.Kind != domain.WithdrawSwap || !closeTo(w.AmountIn, 100) || !closeTo(w.AmountOut, 99.4) {
		t.Errorf("unexpected withdrawal row: %+v", w)
	}
	if w.Recipient != payee.Hex() {
		t.Errorf("unexpected recipient: %s", w.Recipient)
	}

	if len(report.Revenue) != 1 {
		t.Fatalf("expected 1 revenue row, got %d", len(report.Revenue))
	}
	if report.Revenue[0].BucketMs != 1_020_000 || !closeTo(report.Revenue[0].FeesCollected, 60) {
		t.Errorf("unexpected revenue row: %+v", report.Revenue[0])
	}
}

func TestGenerate_EmptyRun(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.TransferSummary.TotalTransfers != 0 || len(report.Withdrawals) != 0 || len(report.Revenue) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRenderMarkdown(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), testRunID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Run Report",
		"Run: " + testRunID,
		"## Transfer Summary",
		"| Total Transfers | 3 |",
		"## Transfers by Class",
		"| BUY | 1 |",
		"## Fee Recipients",
		rcptA.Hex(),
		"## Treasury Withdrawals",
		"| SWAP |",
		"## Fee Revenue Timeseries",
		"| 1020000 | 1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"No transfers recorded.",
		"No fee payouts recorded.",
		"No withdrawals recorded.",
		"No fee revenue recorded.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	report, err := testGenerator(t).Generate(context.Background(), testRunID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderCSV(report.Revenue)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if lines[0] != "bucket_ms,transfer_count,volume,fees_collected,fees_burned,fees_distributed" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1020000,1,1000.000000,60.000000,") {
		t.Errorf("unexpected row: %s", lines[1])
	}

	wcsv := RenderWithdrawalsCSV(report.Withdrawals)
	wlines := strings.Split(strings.TrimSpace(wcsv), "\n")
	if len(wlines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(wlines))
	}
	if !strings.Contains(wlines[1], "w1,SWAP,") {
		t.Errorf("unexpected withdrawal row: %s", wlines[1])
	}
}

package reporting

import (
	"context"
	"sort"
	"time"

	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/storage"
)

// Generator produces run reports from stored records.
type Generator struct {
	transferStore   storage.TransferRecordStore
	withdrawalStore storage.WithdrawalRecordStore
	feeRevenueStore storage.FeeRevenueStore
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	transferStore storage.TransferRecordStore,
	withdrawalStore storage.WithdrawalRecordStore,
	feeRevenueStore storage.FeeRevenueStore,
) *Generator {
	return &Generator{
		transferStore:   transferStore,
		withdrawalStore: withdrawalStore,
		feeRevenueStore: feeRevenueStore,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for one run.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	transfers, err := g.transferStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	withdrawals, err := g.withdrawalStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	revenue, err := g.feeRevenueStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:     g.now(),
		RunID:           runID,
		TransferSummary: summarizeTransfers(transfers),
		ClassBreakdown:  breakdownByClass(transfers),
		FeeRecipients:   aggregateRecipients(transfers),
		Withdrawals:     withdrawalRows(withdrawals),
		Revenue:         revenueRows(revenue),
	}, nil
}

// summarizeTransfers computes run-wide totals.
func summarizeTransfers(transfers []*domain.TransferRecord) TransferSummary {
	var s TransferSummary
	s.TotalTransfers = len(transfers)

	for i, t := range transfers {
		if i == 0 || t.Timestamp < s.FirstMs {
			s.FirstMs = t.Timestamp
		}
		if t.Timestamp > s.LastMs {
			s.LastMs = t.Timestamp
		}

		s.Volume += amountFloat(t.Amount)
		if t.Class == domain.ClassBuy || t.Class == domain.ClassSell {
			s.FeeBearing++
		}
		s.FeesCollected += amountFloat(t.FeeAmount)
		s.FeesBurned += amountFloat(t.BurnAmount)
		for _, p := range t.Payouts {
			s.FeesDistributed += amountFloat(p.Amount)
		}
	}
	return s
}

// breakdownByClass groups transfers per class, sorted by class name.
func breakdownByClass(transfers []*domain.TransferRecord) []ClassRow {
	groups := make(map[domain.TransferClass]*ClassRow)
	for _, t := range transfers {
		row, ok := groups[t.Class]
		if !ok {
			row = &ClassRow{Class: t.Class}
			groups[t.Class] = row
		}
		row.Count++
		row.Volume += amountFloat(t.Amount)
		row.Fees += amountFloat(t.FeeAmount)
	}

	rows := make([]ClassRow, 0, len(groups))
	for _, row := range groups {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Class < rows[j].Class
	})
	return rows
}

// aggregateRecipients sums payouts per fee recipient, sorted by address.
func aggregateRecipients(transfers []*domain.TransferRecord) []RecipientRow {
	totals := make(map[string]float64)
	for _, t := range transfers {
		for _, p := range t.Payouts {
			totals[p.Recipient.Hex()] += amountFloat(p.Amount)
		}
	}

	rows := make([]RecipientRow, 0, len(totals))
	for recipient, received := range totals {
		rows = append(rows, RecipientRow{Recipient: recipient, Received: received})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Recipient < rows[j].Recipient
	})
	return rows
}

func withdrawalRows(withdrawals []*domain.WithdrawalRecord) []WithdrawalRow {
	rows := make([]WithdrawalRow, len(withdrawals))
	for i, w := range withdrawals {
		rows[i] = WithdrawalRow{
			RecordID:    w.RecordID,
			Kind:        w.Kind,
			TokenIn:     w.TokenIn,
			TokenOut:    w.TokenOut,
			AmountIn:    amountFloat(w.AmountIn),
			AmountOut:   amountFloat(w.AmountOut),
			Recipient:   w.Recipient.Hex(),
			SlippageBps: w.SlippageBps,
			Timestamp:   w.Timestamp,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp < rows[j].Timestamp
	})
	return rows
}

func revenueRows(points []*domain.FeeRevenuePoint) []RevenueRow {
	rows := make([]RevenueRow, len(points))
	for i, p := range points {
		rows[i] = RevenueRow{
			BucketMs:        p.BucketMs,
			TransferCount:   p.TransferCount,
			Volume:          p.Volume,
			FeesCollected:   p.FeesCollected,
			FeesBurned:      p.FeesBurned,
			FeesDistributed: p.FeesDistributed,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].BucketMs < rows[j].BucketMs
	})
	return rows
}

func amountFloat(raw string) float64 {
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		return 0
	}
	return domain.AmountToFloat(amount)
}

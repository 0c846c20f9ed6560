package reporting

import (
	"time"

	"govtoken-lab/internal/domain"
)

// Report summarizes one scenario run from its persisted records.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string

	// Totals across every transfer in the run
	TransferSummary TransferSummary

	// Per-class breakdown (sorted by class)
	ClassBreakdown []ClassRow

	// Fee payouts aggregated per recipient (sorted by address)
	FeeRecipients []RecipientRow

	// Treasury withdrawals (sorted by seq)
	Withdrawals []WithdrawalRow

	// Fee revenue timeseries (sorted by bucket start)
	Revenue []RevenueRow
}

// TransferSummary contains run-wide transfer totals in whole tokens.
type TransferSummary struct {
	TotalTransfers  int
	FeeBearing      int // BUY and SELL transfers
	Volume          float64
	FeesCollected   float64
	FeesBurned      float64
	FeesDistributed float64
	FirstMs         int64 // Unix ms
	LastMs          int64 // Unix ms
}

// ClassRow represents one transfer class in the breakdown table.
type ClassRow struct {
	Class  domain.TransferClass
	Count  int
	Volume float64
	Fees   float64
}

// RecipientRow is one fee recipient's aggregated payout.
type RecipientRow struct {
	Recipient string // hex address
	Received  float64
}

// WithdrawalRow represents one treasury withdrawal.
type WithdrawalRow struct {
	RecordID    string
	Kind        domain.WithdrawalKind
	TokenIn     string
	TokenOut    string
	AmountIn    float64
	AmountOut   float64
	Recipient   string
	SlippageBps uint64
	Timestamp   int64
}

// RevenueRow is one bucket of the fee revenue timeseries.
type RevenueRow struct {
	BucketMs        int64
	TransferCount   int64
	Volume          float64
	FeesCollected   float64
	FeesBurned      float64
	FeesDistributed float64
}

package domain

// TransferClass classifies a ledger movement for fee purposes.
type TransferClass string

// Transfer class constants
const (
	ClassBuy      TransferClass = "BUY"      // source is a registered LP pair
	ClassSell     TransferClass = "SELL"     // destination is a registered LP pair
	ClassTransfer TransferClass = "TRANSFER" // plain wallet-to-wallet move
	ClassMint     TransferClass = "MINT"     // source is the null account
	ClassBurn     TransferClass = "BURN"     // destination is the null account
)

// FeePayout is one recipient's share of a collected fee.
type FeePayout struct {
	Recipient Address `json:"recipient"`
	Amount    string  `json:"amount"` // raw units, base-10
}

// TransferRecord is the persisted outcome of one token transfer after the
// fee engine ran. Amounts are raw-unit base-10 strings so 256-bit values
// survive storage round trips exactly.
type TransferRecord struct {
	RecordID    string        // deterministic hash
	RunID       string        // scenario run this record belongs to
	Seq         uint64        // per-run sequence number
	Class       TransferClass // BUY | SELL | TRANSFER | MINT | BURN
	From        Address
	To          Address
	Contributor Address // fee payer for BUY/SELL, zero otherwise

	Amount     string // gross amount requested
	NetAmount  string // what the destination actually received
	FeeAmount  string // total fee taken
	BurnAmount string // fee share burned (includes rounding residual)
	FeeBps     uint64 // effective rate applied, 0 for fee-free moves

	Payouts []FeePayout // per-recipient distributions, in config order

	Timestamp int64 // ms since epoch (simulated clock)
}

// WithdrawalKind classifies a treasury withdrawal.
type WithdrawalKind string

// Withdrawal kind constants
const (
	WithdrawSwap    WithdrawalKind = "SWAP"    // AMM swap path
	WithdrawDirect  WithdrawalKind = "DIRECT"  // base token moved as-is
	WithdrawRecover WithdrawalKind = "RECOVER" // arbitrary token recovery
)

// WithdrawalRecord is the persisted outcome of one treasury withdrawal.
type WithdrawalRecord struct {
	RecordID    string
	RunID       string // scenario run this record belongs to
	Seq         uint64
	Kind        WithdrawalKind
	TokenIn     string // token moved out of the treasury (hex address)
	TokenOut    string // token the recipient received (hex address)
	AmountIn    string // raw units, base-10
	AmountOut   string // raw units, base-10
	Recipient   Address
	SlippageBps uint64 // 0 for DIRECT and RECOVER
	Timestamp   int64  // ms since epoch (simulated clock)
}

// FeeRevenuePoint is one time bucket of aggregated fee revenue, in
// whole-token units. Exact per-transfer amounts live in TransferRecord;
// these points exist for reporting and charts.
type FeeRevenuePoint struct {
	RunID           string  // scenario run this bucket belongs to
	BucketMs        int64   // bucket start, ms since epoch
	TransferCount   int64   // fee-bearing transfers in the bucket
	Volume          float64 // gross transfer volume
	FeesCollected   float64 // total fees taken
	FeesBurned      float64 // fee share burned
	FeesDistributed float64 // fee share paid to recipients
}

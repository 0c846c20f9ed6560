package domain

// Basis-point bounds enforced at configuration time.
const (
	// BpsDenominator is the basis-point scale: 10000 bps = 100%.
	BpsDenominator = 10000

	// MaxFeeBps caps buy and sell fee rates at 7.5%.
	MaxFeeBps = 750

	// MaxFeeRecipients caps the fee recipient list length.
	MaxFeeRecipients = 5

	// MaxExemptBatch caps accounts per exemption update call.
	MaxExemptBatch = 20

	// MaxSlippageBps caps treasury swap slippage tolerance at 10%.
	MaxSlippageBps = 1000
)

// FeeSplit pairs a fee recipient with its basis-point share of the fee.
type FeeSplit struct {
	Recipient Address `json:"recipient"`
	Bps       uint64  `json:"bps"`
}

// FeeConfig holds the transfer-fee parameters of the token. Bounds are
// enforced when the config is mutated, never on the transfer path.
type FeeConfig struct {
	BuyFeeBps  uint64     `json:"buy_fee_bps"`
	SellFeeBps uint64     `json:"sell_fee_bps"`
	Splits     []FeeSplit `json:"splits"`
}

// BurnSplitBps is the derived share of every fee that is burned:
// whatever the recipient splits leave unallocated. With no recipients
// the whole fee burns.
func (c FeeConfig) BurnSplitBps() uint64 {
	if len(c.Splits) == 0 {
		return BpsDenominator
	}
	var sum uint64
	for _, s := range c.Splits {
		sum += s.Bps
	}
	return BpsDenominator - sum
}

// Clone returns a deep copy so callers cannot mutate shared config state.
func (c FeeConfig) Clone() FeeConfig {
	out := c
	out.Splits = make([]FeeSplit, len(c.Splits))
	copy(out.Splits, c.Splits)
	return out
}

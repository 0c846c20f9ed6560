// Package feeengine implements the transfer-fee calculation engine: it
// classifies a ledger movement as buy, sell, or plain transfer and computes
// the exact fee split across recipients, burn, and destination. Everything
// here is a pure function of the inputs and the current configuration; the
// token facade applies the resulting plan to the ledger.
package feeengine

import (
	"github.com/holiman/uint256"

	"govtoken-lab/internal/domain"
)

// ConfigView exposes the fee configuration the engine classifies against.
// The token facade owns the backing state.
type ConfigView interface {
	FeeConfig() domain.FeeConfig
	IsLPPair(a domain.Address) bool
	IsFeeExempt(a domain.Address) bool
}

// Payout is one recipient's computed share of a fee.
type Payout struct {
	Recipient domain.Address
	Amount    *uint256.Int
}

// Breakdown is the full fee plan for one transfer. For fee-free movements
// NetAmount equals Amount and FeeAmount, BurnAmount, and Payouts are empty.
type Breakdown struct {
	Class       domain.TransferClass
	Contributor domain.Address // fee payer for BUY/SELL, zero otherwise
	FeeBps      uint64         // effective rate applied

	Amount     *uint256.Int
	NetAmount  *uint256.Int
	FeeAmount  *uint256.Int
	BurnAmount *uint256.Int
	Payouts    []Payout
}

// Engine computes fee breakdowns against a config view.
type Engine struct {
	view ConfigView
}

// New creates an engine over the given config view.
func New(view ConfigView) *Engine {
	return &Engine{view: view}
}

// Classify determines the transaction type of a transfer and, for buys and
// sells, who contributes the fee. Mint, burn, and zero-amount movements are
// resolved before any LP lookup.
func (e *Engine) Classify(from, to domain.Address, amount *uint256.Int) (domain.TransferClass, domain.Address) {
	switch {
	case from.IsZero():
		return domain.ClassMint, domain.ZeroAddress
	case to.IsZero():
		return domain.ClassBurn, domain.ZeroAddress
	case amount.IsZero():
		return domain.ClassTransfer, domain.ZeroAddress
	case e.view.IsLPPair(from):
		return domain.ClassBuy, to
	case e.view.IsLPPair(to):
		return domain.ClassSell, from
	default:
		return domain.ClassTransfer, domain.ZeroAddress
	}
}

// ComputeTransferFee builds the fee plan for a transfer. Deterministic and
// side-effect-free: repeated calls under a fixed configuration yield
// identical breakdowns.
//
// Invariant for fee-bearing results:
//
//	FeeAmount = floor(Amount*FeeBps/10000)
//	NetAmount = Amount - FeeAmount
//	BurnAmount + sum(Payouts) = FeeAmount exactly
//
// Integer-division residue always flows to burn.
func (e *Engine) ComputeTransferFee(from, to domain.Address, amount *uint256.Int) Breakdown {
	class, contributor := e.Classify(from, to, amount)

	bd := Breakdown{
		Class:      class,
		Amount:     new(uint256.Int).Set(amount),
		NetAmount:  new(uint256.Int).Set(amount),
		FeeAmount:  uint256.NewInt(0),
		BurnAmount: uint256.NewInt(0),
	}
	if class != domain.ClassBuy && class != domain.ClassSell {
		return bd
	}

	cfg := e.view.FeeConfig()
	rate := cfg.BuyFeeBps
	if class == domain.ClassSell {
		rate = cfg.SellFeeBps
	}
	if rate == 0 || e.view.IsFeeExempt(contributor) {
		// Exempt contributor or zero rate: treated as a plain transfer.
		bd.Class = domain.ClassTransfer
		return bd
	}

	bd.Contributor = contributor
	bd.FeeBps = rate
	bd.FeeAmount = Portion(amount, rate)
	bd.NetAmount.Sub(amount, bd.FeeAmount)

	distributed := uint256.NewInt(0)
	for _, split := range cfg.Splits {
		share := Portion(bd.FeeAmount, split.Bps)
		distributed.Add(distributed, share)
		bd.Payouts = append(bd.Payouts, Payout{Recipient: split.Recipient, Amount: share})
	}
	// Burn takes the explicit burn split plus all rounding residue.
	bd.BurnAmount = new(uint256.Int).Sub(bd.FeeAmount, distributed)

	return bd
}

// Portion computes floor(amount * bps / 10000) with a 512-bit intermediate,
// so no input can overflow.
func Portion(amount *uint256.Int, bps uint64) *uint256.Int {
	res, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(bps), uint256.NewInt(domain.BpsDenominator))
	return res
}

// Package token implements the fee-on-transfer governance token facade:
// the public transfer/mint/burn surface, the administrative configuration
// operations with their validation, and the application of fee breakdowns
// to the underlying ledger.
package token

import (
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"govtoken-lab/internal/access"
	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/feeengine"
	"govtoken-lab/internal/idhash"
	"govtoken-lab/internal/ledger"
	"govtoken-lab/internal/observability"
)

// Options configures a Token.
type Options struct {
	Ledger *ledger.Ledger
	Roles  *access.Roles
	Gate   *access.Gate
	Sink   domain.EventSink     // nil means discard
	Now    func() int64         // ms clock; nil means wall clock
	Fee    domain.FeeConfig     // initial config, assumed pre-validated
}

// Token is the governance token. It owns the fee configuration, the LP
// pair set, and the exemption set, and applies the fee engine's plan to
// the ledger on every transfer.
type Token struct {
	ledger *ledger.Ledger
	engine *feeengine.Engine
	roles  *access.Roles
	gate   *access.Gate
	sink   domain.EventSink
	now    func() int64

	mu      sync.RWMutex
	cfg     domain.FeeConfig
	lpPairs map[domain.Address]struct{}
	exempt  map[domain.Address]struct{}
	seq     uint64
}

// New creates a token. The initial fee config is installed as-is; runtime
// mutations go through the validating setters.
func New(opts Options) *Token {
	t := &Token{
		ledger:  opts.Ledger,
		roles:   opts.Roles,
		gate:    opts.Gate,
		sink:    opts.Sink,
		now:     opts.Now,
		cfg:     opts.Fee.Clone(),
		lpPairs: make(map[domain.Address]struct{}),
		exempt:  make(map[domain.Address]struct{}),
	}
	if t.sink == nil {
		t.sink = domain.NopSink{}
	}
	if t.now == nil {
		t.now = func() int64 { return time.Now().UnixMilli() }
	}
	t.engine = feeengine.New(t)
	return t
}

// FeeConfig implements feeengine.ConfigView.
func (t *Token) FeeConfig() domain.FeeConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg.Clone()
}

// IsLPPair implements feeengine.ConfigView.
func (t *Token) IsLPPair(a domain.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.lpPairs[a]
	return ok
}

// IsFeeExempt implements feeengine.ConfigView.
func (t *Token) IsFeeExempt(a domain.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.exempt[a]
	return ok
}

// BurnSplitBps returns the derived burn share of the current config.
func (t *Token) BurnSplitBps() uint64 {
	return t.FeeConfig().BurnSplitBps()
}

// BalanceOf returns the account balance.
func (t *Token) BalanceOf(a domain.Address) *uint256.Int {
	return t.ledger.BalanceOf(a)
}

// TotalSupply returns the current supply.
func (t *Token) TotalSupply() *uint256.Int {
	return t.ledger.TotalSupply()
}

// DelegateOf returns the recorded delegation target, if any.
func (t *Token) DelegateOf(a domain.Address) (domain.Address, bool) {
	return t.ledger.DelegateOf(a)
}

// ComputeTransferFee exposes the engine's pure fee plan for a prospective
// transfer. No state is touched.
func (t *Token) ComputeTransferFee(from, to domain.Address, amount *uint256.Int) feeengine.Breakdown {
	return t.engine.ComputeTransferFee(from, to, amount)
}

// Transfer moves amount from one holder to another, taking the configured
// fee when the movement touches a registered LP pair. The fee plan applies
// in a fixed order: recipient payouts, then the burn, then the net move.
// Either the whole sequence applies or none of it does.
func (t *Token) Transfer(from, to domain.Address, amount *uint256.Int) (*domain.TransferRecord, error) {
	if err := t.gate.RequireActive(); err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("transfer: %w", ErrZeroAddress)
	}

	bd := t.engine.ComputeTransferFee(from, to, amount)

	// One upfront balance check keeps the distribution sequence atomic:
	// every ledger primitive below draws from the same source.
	if t.ledger.BalanceOf(from).Lt(amount) {
		return nil, fmt.Errorf("transfer from %s: %w", from, ledger.ErrInsufficientBalance)
	}

	at := t.now()
	for _, p := range bd.Payouts {
		if p.Amount.IsZero() {
			continue
		}
		if err := t.ledger.Move(from, p.Recipient, p.Amount); err != nil {
			return nil, err
		}
		t.sink.Emit(domain.Event{Type: domain.EventFeeDistributed, At: at, Data: map[string]string{
			"from":      from.Hex(),
			"recipient": p.Recipient.Hex(),
			"amount":    domain.FormatAmount(p.Amount),
		}})
	}
	if !bd.BurnAmount.IsZero() {
		if err := t.ledger.Burn(from, bd.BurnAmount); err != nil {
			return nil, err
		}
		t.sink.Emit(domain.Event{Type: domain.EventBurn, At: at, Data: map[string]string{
			"from":   from.Hex(),
			"amount": domain.FormatAmount(bd.BurnAmount),
		}})
	}
	if err := t.ledger.Move(from, to, bd.NetAmount); err != nil {
		return nil, err
	}
	t.sink.Emit(domain.Event{Type: domain.EventTransfer, At: at, Data: map[string]string{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"amount": domain.FormatAmount(bd.NetAmount),
	}})

	t.autoDelegate(to, at)

	rec := t.record(bd, from, to, at)
	observability.RecordTransfer(string(rec.Class), domain.AmountToFloat(bd.Amount),
		domain.AmountToFloat(bd.FeeAmount), domain.AmountToFloat(bd.BurnAmount))
	return rec, nil
}

// Mint creates supply. Admin only. No fee logic applies.
func (t *Token) Mint(auth access.Auth, to domain.Address, amount *uint256.Int) (*domain.TransferRecord, error) {
	if err := t.gate.RequireActive(); err != nil {
		return nil, err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return nil, err
	}
	if err := t.ledger.Mint(to, amount); err != nil {
		return nil, err
	}

	at := t.now()
	t.sink.Emit(domain.Event{Type: domain.EventTransfer, At: at, Data: map[string]string{
		"from":   domain.ZeroAddress.Hex(),
		"to":     to.Hex(),
		"amount": domain.FormatAmount(amount),
	}})
	t.autoDelegate(to, at)

	bd := feeengine.Breakdown{
		Class:      domain.ClassMint,
		Amount:     new(uint256.Int).Set(amount),
		NetAmount:  new(uint256.Int).Set(amount),
		FeeAmount:  uint256.NewInt(0),
		BurnAmount: uint256.NewInt(0),
	}
	rec := t.record(bd, domain.ZeroAddress, to, at)
	observability.RecordTransfer(string(rec.Class), domain.AmountToFloat(amount), 0, 0)
	return rec, nil
}

// Burn destroys supply from the caller's own balance. No fee logic applies.
func (t *Token) Burn(from domain.Address, amount *uint256.Int) (*domain.TransferRecord, error) {
	if err := t.gate.RequireActive(); err != nil {
		return nil, err
	}
	if err := t.ledger.Burn(from, amount); err != nil {
		return nil, err
	}

	at := t.now()
	t.sink.Emit(domain.Event{Type: domain.EventBurn, At: at, Data: map[string]string{
		"from":   from.Hex(),
		"amount": domain.FormatAmount(amount),
	}})

	bd := feeengine.Breakdown{
		Class:      domain.ClassBurn,
		Amount:     new(uint256.Int).Set(amount),
		NetAmount:  new(uint256.Int).Set(amount),
		FeeAmount:  uint256.NewInt(0),
		BurnAmount: uint256.NewInt(0),
	}
	rec := t.record(bd, from, domain.ZeroAddress, at)
	observability.RecordTransfer(string(rec.Class), domain.AmountToFloat(amount), 0, 0)
	return rec, nil
}

// autoDelegate gives a first-touch destination voting weight over itself.
// LP pairs do not vote and are never delegated.
func (t *Token) autoDelegate(to domain.Address, at int64) {
	if t.IsLPPair(to) {
		return
	}
	if _, ok := t.ledger.DelegateOf(to); ok {
		return
	}
	t.ledger.SetDelegate(to, to)
	t.sink.Emit(domain.Event{Type: domain.EventDelegate, At: at, Data: map[string]string{
		"account":  to.Hex(),
		"delegate": to.Hex(),
	}})
}

// record builds the persisted form of a completed transfer.
func (t *Token) record(bd feeengine.Breakdown, from, to domain.Address, at int64) *domain.TransferRecord {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	rec := &domain.TransferRecord{
		Seq:         seq,
		Class:       bd.Class,
		From:        from,
		To:          to,
		Contributor: bd.Contributor,
		Amount:      domain.FormatAmount(bd.Amount),
		NetAmount:   domain.FormatAmount(bd.NetAmount),
		FeeAmount:   domain.FormatAmount(bd.FeeAmount),
		BurnAmount:  domain.FormatAmount(bd.BurnAmount),
		FeeBps:      bd.FeeBps,
		Timestamp:   at,
	}
	for _, p := range bd.Payouts {
		rec.Payouts = append(rec.Payouts, domain.FeePayout{
			Recipient: p.Recipient,
			Amount:    domain.FormatAmount(p.Amount),
		})
	}
	rec.RecordID = idhash.ComputeTransferID(seq, string(rec.Class), from.Hex(), to.Hex(), rec.Amount, at)
	return rec
}

// Package treasury implements the swap-and-withdraw engine: it liquidates
// the treasury's base-token holdings through an AMM router under a slippage
// bound, with a direct-withdraw escape hatch and an admin-only recovery
// path for arbitrary tokens. Withdrawals are serialized by a re-entrancy
// guard; a failure at any stage leaves all state untouched.
package treasury

import (
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"govtoken-lab/internal/access"
	"govtoken-lab/internal/amm"
	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/feeengine"
	"govtoken-lab/internal/idhash"
	"govtoken-lab/internal/observability"
)

// Options configures a Treasury.
type Options struct {
	Account domain.Address // the treasury's own bank account
	Bank    *amm.Bank
	Router  amm.Router
	Roles   *access.Roles
	Gate    *access.Gate
	Config  domain.TreasuryConfig
	Sink    domain.EventSink // nil means discard
	NowMs   func() int64     // ms clock; nil means wall clock
}

// Treasury holds accumulated tokens and converts them for the configured
// recipient on demand.
type Treasury struct {
	account domain.Address
	bank    *amm.Bank
	router  amm.Router
	roles   *access.Roles
	gate    *access.Gate
	sink    domain.EventSink
	nowMs   func() int64

	mu      sync.Mutex
	cfg     domain.TreasuryConfig
	entered bool
	seq     uint64
}

// New creates a treasury. The initial config is installed as-is; runtime
// mutations go through the validating setters.
func New(opts Options) *Treasury {
	t := &Treasury{
		account: opts.Account,
		bank:    opts.Bank,
		router:  opts.Router,
		roles:   opts.Roles,
		gate:    opts.Gate,
		cfg:     opts.Config,
		sink:    opts.Sink,
		nowMs:   opts.NowMs,
	}
	if t.sink == nil {
		t.sink = domain.NopSink{}
	}
	if t.nowMs == nil {
		t.nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	return t
}

// Config returns the current configuration.
func (t *Treasury) Config() domain.TreasuryConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// currentRouter returns the router under the lock; SetRouter may replace it.
func (t *Treasury) currentRouter() amm.Router {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.router
}

// Account returns the treasury's own bank account.
func (t *Treasury) Account() domain.Address {
	return t.account
}

// enter takes the re-entrancy guard for the duration of one withdrawal.
func (t *Treasury) enter() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entered {
		return ErrReentrantCall
	}
	t.entered = true
	return nil
}

func (t *Treasury) exit() {
	t.mu.Lock()
	t.entered = false
	t.mu.Unlock()
}

// WithdrawWithSwap swaps amount of the base token into the output token
// via the router and sends proceeds to the configured recipient. The
// received amount is measured as the recipient's balance delta so output
// tokens that levy their own transfer fee report honestly.
func (t *Treasury) WithdrawWithSwap(auth access.Auth, amount *uint256.Int, slippageBps uint64, deadlineOffsetSec int64) (*domain.WithdrawalRecord, error) {
	if err := t.gate.RequireActive(); err != nil {
		return nil, err
	}
	if err := t.roles.Require(auth, access.RoleExecutor); err != nil {
		return nil, err
	}
	if err := t.enter(); err != nil {
		return nil, err
	}
	defer t.exit()

	cfg := t.Config()
	router := t.currentRouter()

	// Validating
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidWithdrawalAmount
	}
	if slippageBps > domain.MaxSlippageBps {
		return nil, fmt.Errorf("%d bps: %w", slippageBps, ErrInvalidSlippageTolerance)
	}
	if router == nil || cfg.BaseToken.IsZero() || cfg.OutputToken.IsZero() || cfg.Recipient.IsZero() {
		return nil, ErrNotConfigured
	}
	if cfg.BaseToken == cfg.OutputToken {
		return nil, ErrSameToken
	}
	if t.bank.BalanceOf(cfg.BaseToken, t.account).Lt(amount) {
		observability.RecordWithdrawal(string(domain.WithdrawSwap), "failed", 0)
		return nil, fmt.Errorf("withdraw %s: %w", domain.FormatAmount(amount), ErrInsufficientBalance)
	}

	// PathBuilding: route through wrapped native unless one side is it.
	wrapped := router.WrappedNative()
	var path []domain.Address
	if cfg.BaseToken == wrapped || cfg.OutputToken == wrapped {
		path = []domain.Address{cfg.BaseToken, cfg.OutputToken}
	} else {
		path = []domain.Address{cfg.BaseToken, wrapped, cfg.OutputToken}
	}

	// PriceQuoting
	amounts, err := router.GetAmountsOut(amount, path)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if len(amounts) != len(path) {
		return nil, fmt.Errorf("%d hops quoted for %d-token path: %w", len(amounts), len(path), ErrPathMismatch)
	}
	expectedOut := amounts[len(amounts)-1]
	minOut := feeengine.Portion(expectedOut, domain.BpsDenominator-slippageBps)

	// Approving: reset to zero first for tokens that demand it.
	routerAccount := router.Account()
	if t.bank.Allowance(cfg.BaseToken, t.account, routerAccount).Lt(amount) {
		if err := t.bank.Approve(cfg.BaseToken, t.account, routerAccount, uint256.NewInt(0)); err != nil {
			return nil, err
		}
		if err := t.bank.Approve(cfg.BaseToken, t.account, routerAccount, amount); err != nil {
			return nil, err
		}
	}

	// Swapping: proceeds go straight to the recipient; the received
	// amount is the recipient's balance delta.
	before := t.bank.BalanceOf(cfg.OutputToken, cfg.Recipient)
	deadline := t.nowMs()/1000 + deadlineOffsetSec
	if err := router.SwapExactTokensIn(t.account, amount, minOut, path, cfg.Recipient, deadline); err != nil {
		observability.RecordWithdrawal(string(domain.WithdrawSwap), "failed", 0)
		return nil, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}
	amountOut := new(uint256.Int).Sub(t.bank.BalanceOf(cfg.OutputToken, cfg.Recipient), before)

	rec := t.record(domain.WithdrawSwap, cfg.BaseToken, cfg.OutputToken, amount, amountOut, cfg.Recipient, slippageBps)
	observability.RecordWithdrawal(string(domain.WithdrawSwap), "success", domain.AmountToFloat(amount))
	observability.RecordSwapSlippage(slippageBps)
	return rec, nil
}

// WithdrawDirect moves the base token to the recipient without touching
// the router. Operational escape hatch when the AMM path is unavailable.
func (t *Treasury) WithdrawDirect(auth access.Auth, amount *uint256.Int) (*domain.WithdrawalRecord, error) {
	if err := t.gate.RequireActive(); err != nil {
		return nil, err
	}
	if err := t.roles.Require(auth, access.RoleExecutor); err != nil {
		return nil, err
	}
	if err := t.enter(); err != nil {
		return nil, err
	}
	defer t.exit()

	cfg := t.Config()
	return t.moveOut(domain.WithdrawDirect, cfg.BaseToken, amount, cfg.Recipient)
}

// RecoverToken moves any token the treasury holds to the recipient,
// bypassing the base/output restrictions. Admin only; for assets sent here
// by accident.
func (t *Treasury) RecoverToken(auth access.Auth, token domain.Address, amount *uint256.Int) (*domain.WithdrawalRecord, error) {
	if err := t.gate.RequireActive(); err != nil {
		return nil, err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return nil, err
	}
	if err := t.enter(); err != nil {
		return nil, err
	}
	defer t.exit()

	return t.moveOut(domain.WithdrawRecover, token, amount, t.Config().Recipient)
}

// moveOut is the shared non-swap withdrawal path.
func (t *Treasury) moveOut(kind domain.WithdrawalKind, token domain.Address, amount *uint256.Int, to domain.Address) (*domain.WithdrawalRecord, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidWithdrawalAmount
	}
	if t.bank.BalanceOf(token, t.account).Lt(amount) {
		observability.RecordWithdrawal(string(kind), "failed", 0)
		return nil, fmt.Errorf("withdraw %s: %w", domain.FormatAmount(amount), ErrInsufficientBalance)
	}
	received, err := t.bank.Transfer(token, t.account, to, amount)
	if err != nil {
		observability.RecordWithdrawal(string(kind), "failed", 0)
		return nil, err
	}

	rec := t.record(kind, token, token, amount, received, to, 0)
	observability.RecordWithdrawal(string(kind), "success", domain.AmountToFloat(amount))
	return rec, nil
}

// record builds the persisted form of a completed withdrawal and emits it.
func (t *Treasury) record(kind domain.WithdrawalKind, tokenIn, tokenOut domain.Address, amountIn, amountOut *uint256.Int, recipient domain.Address, slippageBps uint64) *domain.WithdrawalRecord {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	at := t.nowMs()
	rec := &domain.WithdrawalRecord{
		Seq:         seq,
		Kind:        kind,
		TokenIn:     tokenIn.Hex(),
		TokenOut:    tokenOut.Hex(),
		AmountIn:    domain.FormatAmount(amountIn),
		AmountOut:   domain.FormatAmount(amountOut),
		Recipient:   recipient,
		SlippageBps: slippageBps,
		Timestamp:   at,
	}
	rec.RecordID = idhash.ComputeWithdrawalID(seq, string(kind), rec.TokenIn, rec.AmountIn, recipient.Hex(), at)

	t.sink.Emit(domain.Event{Type: domain.EventWithdrawal, At: at, Data: map[string]string{
		"kind":       string(kind),
		"token_in":   rec.TokenIn,
		"token_out":  rec.TokenOut,
		"amount_in":  rec.AmountIn,
		"amount_out": rec.AmountOut,
		"recipient":  recipient.Hex(),
	}})
	return rec
}

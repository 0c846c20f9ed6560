package treasury

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govtoken-lab/internal/access"
	"govtoken-lab/internal/amm"
	"govtoken-lab/internal/domain"
)

var (
	treasuryAcct = domain.MustParseAddress("0x0000000000000000000000000000000000007777")
	recipient    = domain.MustParseAddress("0x0000000000000000000000000000000000008888")
	executor     = domain.MustParseAddress("0x0000000000000000000000000000000000009999")
	admin        = domain.MustParseAddress("0x000000000000000000000000000000000000aaaa")
	outsider     = domain.MustParseAddress("0x000000000000000000000000000000000000bbbb")

	baseToken   = domain.MustParseAddress("0x0000000000000000000000000000000000000b01")
	outputToken = domain.MustParseAddress("0x0000000000000000000000000000000000000c02")
	otherToken  = domain.MustParseAddress("0x0000000000000000000000000000000000000d03")
	wnative     = domain.MustParseAddress("0x0000000000000000000000000000000000000e0e")
	routerAddr  = domain.MustParseAddress("0x0000000000000000000000000000000000000f0f")
)

// world bundles a fully wired treasury for tests.
type world struct {
	bank     *amm.Bank
	router   *amm.SimRouter
	roles    *access.Roles
	gate     *access.Gate
	treasury *Treasury
}

func newWorld(t *testing.T) *world {
	t.Helper()

	bank := amm.NewBank()
	router := amm.NewSimRouter(routerAddr, bank, wnative, func() int64 { return 1_000 })

	reserve := domain.MustParseAmount("1000000000000000000000000")
	require.NoError(t, router.AddPair(baseToken, wnative, reserve, reserve, 30))
	require.NoError(t, router.AddPair(wnative, outputToken, reserve, reserve, 30))

	bank.Register(otherToken)

	roles := access.NewRoles()
	roles.Grant(access.RoleExecutor, executor)
	roles.Grant(access.RoleAdmin, admin)
	gate := access.NewGate()

	tr := New(Options{
		Account: treasuryAcct,
		Bank:    bank,
		Router:  router,
		Roles:   roles,
		Gate:    gate,
		Config: domain.TreasuryConfig{
			Recipient:   recipient,
			BaseToken:   baseToken,
			OutputToken: outputToken,
		},
		NowMs: func() int64 { return 1_000_000 },
	})

	// Fund the treasury with base tokens.
	require.NoError(t, bank.Mint(baseToken, treasuryAcct, domain.MustParseAmount("1000000000000000000000")))

	return &world{bank: bank, router: router, roles: roles, gate: gate, treasury: tr}
}

func executorAuth() access.Auth { return access.Auth{Caller: executor} }
func adminAuth() access.Auth    { return access.Auth{Caller: admin} }

func TestWithdrawWithSwap_Success(t *testing.T) {
	w := newWorld(t)
	amount := domain.MustParseAmount("1000000000000000000") // 1 token

	rec, err := w.treasury.WithdrawWithSwap(executorAuth(), amount, 100, 300)
	require.NoError(t, err)

	assert.Equal(t, domain.WithdrawSwap, rec.Kind)
	assert.Equal(t, baseToken.Hex(), rec.TokenIn)
	assert.Equal(t, outputToken.Hex(), rec.TokenOut)
	assert.Equal(t, recipient, rec.Recipient)
	assert.Equal(t, uint64(100), rec.SlippageBps)

	// The recipient's delta is the recorded amount out.
	got := w.bank.BalanceOf(outputToken, recipient)
	assert.Equal(t, got.Dec(), rec.AmountOut)
	assert.False(t, got.IsZero())

	// Base tokens left the treasury.
	left := w.bank.BalanceOf(baseToken, treasuryAcct)
	assert.Equal(t, domain.MustParseAmount("999000000000000000000").Dec(), left.Dec())
}

func TestWithdrawWithSwap_TwoHopWhenBaseIsWrapped(t *testing.T) {
	w := newWorld(t)

	// Reconfigure the pair to wnative -> output, which has a direct pool.
	require.NoError(t, w.bank.Mint(wnative, treasuryAcct, domain.MustParseAmount("5000000000000000000")))
	require.NoError(t, w.treasury.SetBaseToken(adminAuth(), wnative))

	rec, err := w.treasury.WithdrawWithSwap(executorAuth(), domain.MustParseAmount("1000000000000000000"), 50, 300)
	require.NoError(t, err)
	assert.Equal(t, wnative.Hex(), rec.TokenIn)
	assert.False(t, w.bank.BalanceOf(outputToken, recipient).IsZero())
}

func TestWithdrawWithSwap_SlippageToleranceBound(t *testing.T) {
	w := newWorld(t)

	_, err := w.treasury.WithdrawWithSwap(executorAuth(), domain.NewAmount(1), 1001, 300)
	require.ErrorIs(t, err, ErrInvalidSlippageTolerance)

	// No state change.
	assert.True(t, w.bank.BalanceOf(outputToken, recipient).IsZero())
	assert.Equal(t, domain.MustParseAmount("1000000000000000000000").Dec(),
		w.bank.BalanceOf(baseToken, treasuryAcct).Dec())
}

func TestWithdrawWithSwap_ZeroAmount(t *testing.T) {
	w := newWorld(t)

	_, err := w.treasury.WithdrawWithSwap(executorAuth(), uint256.NewInt(0), 100, 300)
	require.ErrorIs(t, err, ErrInvalidWithdrawalAmount)
}

// quietRouter fails the test if the treasury touches the router at all.
type quietRouter struct {
	t *testing.T
}

func (q *quietRouter) Account() domain.Address       { return routerAddr }
func (q *quietRouter) WrappedNative() domain.Address { return wnative }
func (q *quietRouter) GetAmountsOut(*uint256.Int, []domain.Address) ([]*uint256.Int, error) {
	q.t.Fatal("router quoted before balance check")
	return nil, nil
}
func (q *quietRouter) SwapExactTokensIn(domain.Address, *uint256.Int, *uint256.Int, []domain.Address, domain.Address, int64) error {
	q.t.Fatal("router swapped before balance check")
	return nil
}

func TestWithdrawWithSwap_InsufficientBalanceBeforeRouter(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.treasury.SetRouter(adminAuth(), &quietRouter{t: t}))

	tooMuch := domain.MustParseAmount("1000000000000000000001")
	_, err := w.treasury.WithdrawWithSwap(executorAuth(), tooMuch, 100, 300)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

// shortQuoteRouter returns a quote with the wrong hop count.
type shortQuoteRouter struct{}

func (shortQuoteRouter) Account() domain.Address       { return routerAddr }
func (shortQuoteRouter) WrappedNative() domain.Address { return wnative }
func (shortQuoteRouter) GetAmountsOut(in *uint256.Int, path []domain.Address) ([]*uint256.Int, error) {
	return []*uint256.Int{new(uint256.Int).Set(in)}, nil
}
func (shortQuoteRouter) SwapExactTokensIn(domain.Address, *uint256.Int, *uint256.Int, []domain.Address, domain.Address, int64) error {
	return nil
}

func TestWithdrawWithSwap_PathMismatch(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.treasury.SetRouter(adminAuth(), shortQuoteRouter{}))

	_, err := w.treasury.WithdrawWithSwap(executorAuth(), domain.NewAmount(1000), 100, 300)
	require.ErrorIs(t, err, ErrPathMismatch)
	assert.True(t, w.bank.BalanceOf(outputToken, recipient).IsZero())
}

// failingRouter quotes fine but reverts every swap.
type failingRouter struct {
	inner amm.Router
}

func (f failingRouter) Account() domain.Address       { return f.inner.Account() }
func (f failingRouter) WrappedNative() domain.Address { return f.inner.WrappedNative() }
func (f failingRouter) GetAmountsOut(in *uint256.Int, path []domain.Address) ([]*uint256.Int, error) {
	return f.inner.GetAmountsOut(in, path)
}
func (f failingRouter) SwapExactTokensIn(domain.Address, *uint256.Int, *uint256.Int, []domain.Address, domain.Address, int64) error {
	return errors.New("pool borked")
}

func TestWithdrawWithSwap_SwapFailureIsAtomic(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.treasury.SetRouter(adminAuth(), failingRouter{inner: w.router}))

	before := w.bank.BalanceOf(baseToken, treasuryAcct)
	_, err := w.treasury.WithdrawWithSwap(executorAuth(), domain.MustParseAmount("1000000000000000000"), 100, 300)
	require.ErrorIs(t, err, ErrSwapFailed)

	assert.Equal(t, before.Dec(), w.bank.BalanceOf(baseToken, treasuryAcct).Dec())
	assert.True(t, w.bank.BalanceOf(outputToken, recipient).IsZero())
}

// reentrantRouter calls back into the treasury mid-swap.
type reentrantRouter struct {
	inner    amm.Router
	treasury *Treasury
	caught   error
}

func (r *reentrantRouter) Account() domain.Address       { return r.inner.Account() }
func (r *reentrantRouter) WrappedNative() domain.Address { return r.inner.WrappedNative() }
func (r *reentrantRouter) GetAmountsOut(in *uint256.Int, path []domain.Address) ([]*uint256.Int, error) {
	return r.inner.GetAmountsOut(in, path)
}
func (r *reentrantRouter) SwapExactTokensIn(owner domain.Address, in, minOut *uint256.Int, path []domain.Address, to domain.Address, deadline int64) error {
	_, r.caught = r.treasury.WithdrawDirect(executorAuth(), domain.NewAmount(1))
	return r.inner.SwapExactTokensIn(owner, in, minOut, path, to, deadline)
}

func TestWithdrawWithSwap_ReentrancyGuard(t *testing.T) {
	w := newWorld(t)
	rr := &reentrantRouter{inner: w.router, treasury: w.treasury}
	require.NoError(t, w.treasury.SetRouter(adminAuth(), rr))

	_, err := w.treasury.WithdrawWithSwap(executorAuth(), domain.MustParseAmount("1000000000000000000"), 100, 300)
	require.NoError(t, err, "outer withdrawal should complete")
	require.ErrorIs(t, rr.caught, ErrReentrantCall, "nested withdrawal must be rejected")
}

func TestWithdrawWithSwap_ApproveConsumedBySwap(t *testing.T) {
	w := newWorld(t)
	amount := domain.MustParseAmount("1000000000000000000")

	_, err := w.treasury.WithdrawWithSwap(executorAuth(), amount, 100, 300)
	require.NoError(t, err)

	// The approval was raised to exactly the amount and fully consumed.
	assert.True(t, w.bank.Allowance(baseToken, treasuryAcct, routerAddr).IsZero())
}

func TestWithdrawWithSwap_AuthAndPause(t *testing.T) {
	w := newWorld(t)
	amount := domain.NewAmount(1000)

	_, err := w.treasury.WithdrawWithSwap(access.Auth{Caller: outsider}, amount, 100, 300)
	require.ErrorIs(t, err, access.ErrUnauthorized)

	w.gate.Pause()
	_, err = w.treasury.WithdrawWithSwap(executorAuth(), amount, 100, 300)
	require.ErrorIs(t, err, access.ErrPaused)
}

func TestWithdrawDirect(t *testing.T) {
	w := newWorld(t)
	amount := domain.MustParseAmount("250000000000000000000")

	rec, err := w.treasury.WithdrawDirect(executorAuth(), amount)
	require.NoError(t, err)

	assert.Equal(t, domain.WithdrawDirect, rec.Kind)
	assert.Equal(t, amount.Dec(), rec.AmountOut)
	assert.Equal(t, amount.Dec(), w.bank.BalanceOf(baseToken, recipient).Dec())
}

func TestWithdrawDirect_Validation(t *testing.T) {
	w := newWorld(t)

	_, err := w.treasury.WithdrawDirect(executorAuth(), uint256.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidWithdrawalAmount)

	_, err = w.treasury.WithdrawDirect(executorAuth(), domain.MustParseAmount("1000000000000000000001"))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRecoverToken(t *testing.T) {
	w := newWorld(t)
	require.NoError(t, w.bank.Mint(otherToken, treasuryAcct, domain.NewAmount(777)))

	// Executor alone may not recover.
	_, err := w.treasury.RecoverToken(executorAuth(), otherToken, domain.NewAmount(777))
	require.ErrorIs(t, err, access.ErrUnauthorized)

	rec, err := w.treasury.RecoverToken(adminAuth(), otherToken, domain.NewAmount(777))
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawRecover, rec.Kind)
	assert.Equal(t, uint64(777), w.bank.BalanceOf(otherToken, recipient).Uint64())
}

func TestSetRecipientGrantsRoles(t *testing.T) {
	w := newWorld(t)
	next := domain.MustParseAddress("0x000000000000000000000000000000000000cccc")

	require.NoError(t, w.treasury.SetRecipient(adminAuth(), next))

	assert.Equal(t, next, w.treasury.Config().Recipient)
	assert.True(t, w.roles.Has(access.RoleExecutor, next))
	assert.True(t, w.roles.Has(access.RoleAdmin, next))
}

func TestSetTokens_Validation(t *testing.T) {
	w := newWorld(t)

	unregistered := domain.MustParseAddress("0x0000000000000000000000000000000000001234")
	err := w.treasury.SetBaseToken(adminAuth(), unregistered)
	require.ErrorIs(t, err, ErrNotToken)

	err = w.treasury.SetBaseToken(adminAuth(), outputToken)
	require.ErrorIs(t, err, ErrSameToken)

	err = w.treasury.SetOutputToken(adminAuth(), baseToken)
	require.ErrorIs(t, err, ErrSameToken)

	err = w.treasury.SetBaseToken(adminAuth(), domain.ZeroAddress)
	require.ErrorIs(t, err, ErrZeroAddress)
}

// Swap output measured as recipient delta under a fee-on-transfer output
// token: recorded amount out reflects the net credit.
func TestWithdrawWithSwap_FeeOnTransferOutputToken(t *testing.T) {
	w := newWorld(t)
	w.bank.SetTransferFee(outputToken, 100) // 1%

	rec, err := w.treasury.WithdrawWithSwap(executorAuth(), domain.MustParseAmount("1000000000000000000"), 200, 300)
	require.NoError(t, err)

	delta := w.bank.BalanceOf(outputToken, recipient)
	assert.Equal(t, delta.Dec(), rec.AmountOut)
}

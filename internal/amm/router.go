package amm

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"govtoken-lab/internal/domain"
)

// Router errors
var (
	// ErrExpired is returned when the swap deadline has passed.
	ErrExpired = errors.New("swap deadline expired")

	// ErrNoPair is returned when a path hop has no registered pool.
	ErrNoPair = errors.New("no pair for path hop")

	// ErrBadPath is returned for paths shorter than two hops.
	ErrBadPath = errors.New("path needs at least two tokens")

	// ErrInsufficientLiquidity is returned when a hop would drain a reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrSlippage is returned when the recipient would receive less than minOut.
	ErrSlippage = errors.New("insufficient output amount")
)

// Router is the AMM collaborator surface the treasury programs against.
type Router interface {
	// Account returns the bank account the router spends approvals from.
	Account() domain.Address

	// WrappedNative returns the router's native-wrapped-asset token, the
	// intermediate hop for pairs without a direct pool.
	WrappedNative() domain.Address

	// GetAmountsOut quotes the expected amount at every path position for
	// an exact input. The result has one entry per path token, the first
	// being amountIn itself.
	GetAmountsOut(amountIn *uint256.Int, path []domain.Address) ([]*uint256.Int, error)

	// SwapExactTokensIn pulls amountIn of path[0] from the owner (using a
	// prior approval), walks the path, and sends the output of the final
	// hop to the recipient. Tolerates fee-on-transfer tokens on both ends:
	// minOut is checked against what the recipient would actually receive.
	SwapExactTokensIn(owner domain.Address, amountIn, minOut *uint256.Int, path []domain.Address, to domain.Address, deadline int64) error
}

type pairKey struct {
	lo, hi domain.Address
}

func keyFor(a, b domain.Address) pairKey {
	if bytes.Compare(a[:], b[:]) < 0 {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// pair is one constant-product pool. Reserves are pricing state; custody
// of the underlying tokens sits in the router's bank account.
type pair struct {
	tokenA   domain.Address
	tokenB   domain.Address
	reserveA *uint256.Int
	reserveB *uint256.Int
	feeBps   uint64
}

func (p *pair) reserves(tokenIn domain.Address) (rIn, rOut *uint256.Int) {
	if tokenIn == p.tokenA {
		return p.reserveA, p.reserveB
	}
	return p.reserveB, p.reserveA
}

// SimRouter is an x*y=k router over a token bank.
type SimRouter struct {
	addr    domain.Address
	bank    *Bank
	wrapped domain.Address
	nowSec  func() int64

	mu    sync.Mutex
	pairs map[pairKey]*pair
}

var _ Router = (*SimRouter)(nil)

// NewSimRouter creates a router with no pools. nowSec may be nil for the
// wall clock.
func NewSimRouter(addr domain.Address, bank *Bank, wrappedNative domain.Address, nowSec func() int64) *SimRouter {
	if nowSec == nil {
		nowSec = func() int64 { return time.Now().Unix() }
	}
	return &SimRouter{
		addr:    addr,
		bank:    bank,
		wrapped: wrappedNative,
		nowSec:  nowSec,
		pairs:   make(map[pairKey]*pair),
	}
}

// Account implements Router.
func (r *SimRouter) Account() domain.Address {
	return r.addr
}

// WrappedNative implements Router.
func (r *SimRouter) WrappedNative() domain.Address {
	return r.wrapped
}

// AddPair seeds a pool. The bank mints the reserves into the router's
// custody so every later swap is balance-backed.
func (r *SimRouter) AddPair(tokenA, tokenB domain.Address, reserveA, reserveB *uint256.Int, feeBps uint64) error {
	if tokenA == tokenB {
		return fmt.Errorf("add pair: identical tokens %s", tokenA)
	}
	r.bank.Register(tokenA)
	r.bank.Register(tokenB)
	if err := r.bank.Mint(tokenA, r.addr, reserveA); err != nil {
		return err
	}
	if err := r.bank.Mint(tokenB, r.addr, reserveB); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[keyFor(tokenA, tokenB)] = &pair{
		tokenA:   tokenA,
		tokenB:   tokenB,
		reserveA: new(uint256.Int).Set(reserveA),
		reserveB: new(uint256.Int).Set(reserveB),
		feeBps:   feeBps,
	}
	return nil
}

// GetAmountsOut implements Router.
func (r *SimRouter) GetAmountsOut(amountIn *uint256.Int, path []domain.Address) ([]*uint256.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quote(amountIn, path)
}

// quote assumes the lock is held. Reserves are not mutated.
func (r *SimRouter) quote(amountIn *uint256.Int, path []domain.Address) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrBadPath
	}
	amounts := make([]*uint256.Int, 0, len(path))
	amounts = append(amounts, new(uint256.Int).Set(amountIn))

	in := amountIn
	for i := 0; i+1 < len(path); i++ {
		p, ok := r.pairs[keyFor(path[i], path[i+1])]
		if !ok {
			return nil, fmt.Errorf("%s->%s: %w", path[i], path[i+1], ErrNoPair)
		}
		rIn, rOut := p.reserves(path[i])
		out, err := amountOut(in, rIn, rOut, p.feeBps)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, out)
		in = out
	}
	return amounts, nil
}

// SwapExactTokensIn implements Router. The walk is computed dry first and
// applied only once every hop is known to succeed, so a failed swap leaves
// reserves and balances untouched.
func (r *SimRouter) SwapExactTokensIn(owner domain.Address, amountIn, minOut *uint256.Int, path []domain.Address, to domain.Address, deadline int64) error {
	if r.nowSec() > deadline {
		return ErrExpired
	}
	if len(path) < 2 {
		return ErrBadPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The first hop prices what the router actually receives, which for a
	// fee-on-transfer input token is less than amountIn.
	received := afterTokenFee(r.bank, path[0], amountIn)
	amounts, err := r.quote(received, path)
	if err != nil {
		return err
	}
	finalOut := amounts[len(amounts)-1]

	// minOut compares against the recipient's credit, net of any output
	// token transfer fee.
	if afterTokenFee(r.bank, path[len(path)-1], finalOut).Lt(minOut) {
		return fmt.Errorf("swap: %w", ErrSlippage)
	}

	// Pull the input leg.
	if _, err := r.bank.TransferFrom(path[0], r.addr, owner, r.addr, amountIn); err != nil {
		return err
	}

	// Commit reserve movements hop by hop.
	in := received
	for i := 0; i+1 < len(path); i++ {
		p := r.pairs[keyFor(path[i], path[i+1])]
		rIn, rOut := p.reserves(path[i])
		rIn.Add(rIn, in)
		rOut.Sub(rOut, amounts[i+1])
		in = amounts[i+1]
	}

	// Deliver the output leg straight to the recipient.
	if _, err := r.bank.Transfer(path[len(path)-1], r.addr, to, finalOut); err != nil {
		return err
	}
	return nil
}

// amountOut prices one constant-product hop:
// out = in*(10000-fee)*rOut / (rIn*10000 + in*(10000-fee)).
func amountOut(in, rIn, rOut *uint256.Int, feeBps uint64) (*uint256.Int, error) {
	if rIn.IsZero() || rOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	inWithFee, overflow := new(uint256.Int).MulOverflow(in, uint256.NewInt(domain.BpsDenominator-feeBps))
	if overflow {
		return nil, fmt.Errorf("amount in overflows: %w", ErrInsufficientLiquidity)
	}
	den, overflow := new(uint256.Int).MulOverflow(rIn, uint256.NewInt(domain.BpsDenominator))
	if overflow {
		return nil, fmt.Errorf("reserve overflows: %w", ErrInsufficientLiquidity)
	}
	den.Add(den, inWithFee)
	out, _ := new(uint256.Int).MulDivOverflow(inWithFee, rOut, den)
	if !out.Lt(rOut) {
		return nil, ErrInsufficientLiquidity
	}
	return out, nil
}

// afterTokenFee previews what a bank transfer of amount would credit.
func afterTokenFee(b *Bank, token domain.Address, amount *uint256.Int) *uint256.Int {
	b.mu.RLock()
	bps := b.transferFee[token]
	b.mu.RUnlock()
	if bps == 0 {
		return new(uint256.Int).Set(amount)
	}
	fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(bps), uint256.NewInt(domain.BpsDenominator))
	return new(uint256.Int).Sub(amount, fee)
}

package amm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"govtoken-lab/internal/domain"
)

var (
	routerAddr = domain.MustParseAddress("0x0000000000000000000000000000000000000f0f")
	wnative    = domain.MustParseAddress("0x0000000000000000000000000000000000000e0e")
)

func fixedClock(sec int64) func() int64 {
	return func() int64 { return sec }
}

// newRouterWorld builds a bank and router with base/wnative and
// wnative/out pools at 1:1 price and 30 bps LP fee.
func newRouterWorld(t *testing.T) (*Bank, *SimRouter) {
	t.Helper()
	bank := NewBank()
	r := NewSimRouter(routerAddr, bank, wnative, fixedClock(1_000))

	reserve := domain.MustParseAmount("1000000000000000000000000") // 1e24
	if err := r.AddPair(tokenBase, wnative, reserve, reserve, 30); err != nil {
		t.Fatalf("add base/wnative: %v", err)
	}
	if err := r.AddPair(wnative, tokenOut, reserve, reserve, 30); err != nil {
		t.Fatalf("add wnative/out: %v", err)
	}
	return bank, r
}

func TestGetAmountsOut_LengthMatchesPath(t *testing.T) {
	_, r := newRouterWorld(t)

	path := []domain.Address{tokenBase, wnative, tokenOut}
	amounts, err := r.GetAmountsOut(domain.NewAmount(1_000_000), path)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(amounts) != len(path) {
		t.Fatalf("amounts len = %d, want %d", len(amounts), len(path))
	}
	if amounts[0].Uint64() != 1_000_000 {
		t.Errorf("amounts[0] = %d, want input", amounts[0].Uint64())
	}
	// Two 30 bps hops at 1:1 depth: output below input, above 99% of it.
	if amounts[2].Uint64() >= 1_000_000 || amounts[2].Uint64() < 990_000 {
		t.Errorf("amounts[2] = %d, outside expected band", amounts[2].Uint64())
	}
}

func TestGetAmountsOut_NoPair(t *testing.T) {
	_, r := newRouterWorld(t)

	other := domain.MustParseAddress("0x0000000000000000000000000000000000009999")
	_, err := r.GetAmountsOut(domain.NewAmount(1), []domain.Address{tokenBase, other})
	if !errors.Is(err, ErrNoPair) {
		t.Errorf("expected ErrNoPair, got %v", err)
	}
}

func TestSwapDeliversToRecipient(t *testing.T) {
	bank, r := newRouterWorld(t)

	in := domain.NewAmount(1_000_000)
	_ = bank.Mint(tokenBase, owner, in)
	_ = bank.Approve(tokenBase, owner, routerAddr, in)

	path := []domain.Address{tokenBase, wnative, tokenOut}
	amounts, err := r.GetAmountsOut(in, path)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	want := amounts[len(amounts)-1]

	if err := r.SwapExactTokensIn(owner, in, want, path, receiver, 2_000); err != nil {
		t.Fatalf("swap: %v", err)
	}

	if got := bank.BalanceOf(tokenOut, receiver); !got.Eq(want) {
		t.Errorf("receiver got %s, want %s", got, want)
	}
	if got := bank.BalanceOf(tokenBase, owner).Uint64(); got != 0 {
		t.Errorf("owner base balance = %d, want 0", got)
	}
}

func TestSwapExpiredDeadline(t *testing.T) {
	bank, r := newRouterWorld(t)
	_ = bank.Mint(tokenBase, owner, domain.NewAmount(100))
	_ = bank.Approve(tokenBase, owner, routerAddr, domain.NewAmount(100))

	err := r.SwapExactTokensIn(owner, domain.NewAmount(100), uint256.NewInt(0),
		[]domain.Address{tokenBase, wnative}, receiver, 999) // clock is at 1000
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestSwapSlippageGuard(t *testing.T) {
	bank, r := newRouterWorld(t)

	in := domain.NewAmount(1_000_000)
	_ = bank.Mint(tokenBase, owner, in)
	_ = bank.Approve(tokenBase, owner, routerAddr, in)

	path := []domain.Address{tokenBase, wnative, tokenOut}
	amounts, _ := r.GetAmountsOut(in, path)
	tooMuch := new(uint256.Int).AddUint64(amounts[len(amounts)-1], 1)

	err := r.SwapExactTokensIn(owner, in, tooMuch, path, receiver, 2_000)
	if !errors.Is(err, ErrSlippage) {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}
	// Nothing moved
	if got := bank.BalanceOf(tokenBase, owner); !got.Eq(in) {
		t.Errorf("failed swap moved input: %s", got)
	}
	if got := bank.BalanceOf(tokenOut, receiver).Uint64(); got != 0 {
		t.Errorf("failed swap credited output: %d", got)
	}
}

// A fee-on-transfer output token: minOut must compare against the
// recipient's actual credit, not the pool output.
func TestSwapFeeOnTransferOutput(t *testing.T) {
	bank, r := newRouterWorld(t)
	bank.SetTransferFee(tokenOut, 100) // 1%

	in := domain.NewAmount(1_000_000)
	_ = bank.Mint(tokenBase, owner, in)
	_ = bank.Approve(tokenBase, owner, routerAddr, in)

	path := []domain.Address{tokenBase, wnative, tokenOut}
	amounts, _ := r.GetAmountsOut(in, path)
	poolOut := amounts[len(amounts)-1]

	// Asking for the full pool output must fail: the token fee eats 1%.
	if err := r.SwapExactTokensIn(owner, in, poolOut, path, receiver, 2_000); !errors.Is(err, ErrSlippage) {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}

	// With a tolerant minOut the swap goes through and the recipient's
	// delta is the net amount.
	minOut := uint256.NewInt(0)
	if err := r.SwapExactTokensIn(owner, in, minOut, path, receiver, 2_000); err != nil {
		t.Fatalf("swap: %v", err)
	}
	got := bank.BalanceOf(tokenOut, receiver)
	if got.Eq(poolOut) || !got.Lt(poolOut) {
		t.Errorf("receiver credit %s should be below pool output %s", got, poolOut)
	}
}

func TestQuoteDoesNotMutateReserves(t *testing.T) {
	_, r := newRouterWorld(t)
	path := []domain.Address{tokenBase, wnative}

	first, err := r.GetAmountsOut(domain.NewAmount(500_000), path)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	second, err := r.GetAmountsOut(domain.NewAmount(500_000), path)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !first[1].Eq(second[1]) {
		t.Errorf("repeated quote differs: %s vs %s", first[1], second[1])
	}
}

// Package amm provides the treasury's market collaborators: a multi-token
// bank (ERC20-style balances and allowances for every token the treasury
// touches) and a constant-product router simulator behind the Router
// interface the swap engine programs against.
package amm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"govtoken-lab/internal/domain"
)

// Bank errors
var (
	// ErrUnknownToken is returned for operations on unregistered tokens.
	ErrUnknownToken = errors.New("unknown token")

	// ErrInsufficientFunds is returned when a transfer exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient token balance")

	// ErrInsufficientAllowance is returned when a pull exceeds the approval.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

type allowanceKey struct {
	token   domain.Address
	owner   domain.Address
	spender domain.Address
}

// Bank tracks balances and allowances for many tokens at once. Tokens may
// carry their own fee-on-transfer rate, which the bank deducts on every
// move; the deducted share is simply destroyed, which is what makes the
// treasury's balance-delta measurement observable in tests.
type Bank struct {
	mu          sync.RWMutex
	registered  map[domain.Address]struct{}
	balances    map[domain.Address]map[domain.Address]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
	transferFee map[domain.Address]uint64 // bps deducted on every move
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{
		registered:  make(map[domain.Address]struct{}),
		balances:    make(map[domain.Address]map[domain.Address]*uint256.Int),
		allowances:  make(map[allowanceKey]*uint256.Int),
		transferFee: make(map[domain.Address]uint64),
	}
}

// Register makes a token known to the bank. Idempotent.
func (b *Bank) Register(token domain.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.registered[token]; ok {
		return
	}
	b.registered[token] = struct{}{}
	b.balances[token] = make(map[domain.Address]*uint256.Int)
}

// IsRegistered reports whether the token is known. The treasury uses this
// as its ERC20-likeness probe when configuring the swap pair.
func (b *Bank) IsRegistered(token domain.Address) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.registered[token]
	return ok
}

// SetTransferFee gives a token fee-on-transfer behavior of its own.
func (b *Bank) SetTransferFee(token domain.Address, bps uint64) {
	b.mu.Lock()
	b.transferFee[token] = bps
	b.mu.Unlock()
}

// Mint credits an account out of thin air. Genesis and pool seeding only.
func (b *Bank) Mint(token, to domain.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bals, ok := b.balances[token]
	if !ok {
		return fmt.Errorf("mint %s: %w", token, ErrUnknownToken)
	}
	credit(bals, to, amount)
	return nil
}

// BalanceOf returns a copy of the holder's balance. Zero for unknown tokens.
func (b *Bank) BalanceOf(token, holder domain.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if bal, ok := b.balances[token][holder]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// Transfer moves amount from one holder to another, deducting the token's
// own transfer fee from what the destination receives. Returns the amount
// actually credited.
func (b *Bank) Transfer(token, from, to domain.Address, amount *uint256.Int) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(token, from, to, amount)
}

// Approve sets the spender's allowance over the owner's balance.
func (b *Bank) Approve(token, owner, spender domain.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.registered[token]; !ok {
		return fmt.Errorf("approve %s: %w", token, ErrUnknownToken)
	}
	b.allowances[allowanceKey{token, owner, spender}] = new(uint256.Int).Set(amount)
	return nil
}

// Allowance returns a copy of the spender's remaining allowance.
func (b *Bank) Allowance(token, owner, spender domain.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if a, ok := b.allowances[allowanceKey{token, owner, spender}]; ok {
		return new(uint256.Int).Set(a)
	}
	return uint256.NewInt(0)
}

// TransferFrom moves owner's tokens on the strength of spender's allowance.
// Returns the amount actually credited to the destination.
func (b *Bank) TransferFrom(token, spender, owner, to domain.Address, amount *uint256.Int) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := allowanceKey{token, owner, spender}
	allowed, ok := b.allowances[key]
	if !ok || allowed.Lt(amount) {
		return nil, fmt.Errorf("transferFrom %s by %s: %w", owner, spender, ErrInsufficientAllowance)
	}
	received, err := b.move(token, owner, to, amount)
	if err != nil {
		return nil, err
	}
	allowed.Sub(allowed, amount)
	return received, nil
}

// move assumes the lock is held.
func (b *Bank) move(token, from, to domain.Address, amount *uint256.Int) (*uint256.Int, error) {
	bals, ok := b.balances[token]
	if !ok {
		return nil, fmt.Errorf("transfer %s: %w", token, ErrUnknownToken)
	}
	src, ok := bals[from]
	if !ok || src.Lt(amount) {
		return nil, fmt.Errorf("transfer %s from %s: %w", token, from, ErrInsufficientFunds)
	}
	src.Sub(src, amount)

	net := new(uint256.Int).Set(amount)
	if bps := b.transferFee[token]; bps > 0 {
		fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(bps), uint256.NewInt(domain.BpsDenominator))
		net.Sub(net, fee) // deducted share is destroyed
	}
	credit(bals, to, net)
	return net, nil
}

func credit(bals map[domain.Address]*uint256.Int, to domain.Address, amount *uint256.Int) {
	if bal, ok := bals[to]; ok {
		bal.Add(bal, amount)
		return
	}
	bals[to] = new(uint256.Int).Set(amount)
}

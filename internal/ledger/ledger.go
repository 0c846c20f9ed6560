// Package ledger holds the governance token's account storage: balances,
// total supply, and per-account delegation targets. All movements here are
// privileged primitives; fee logic lives one layer up and never recurses
// back into itself through these calls.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"govtoken-lab/internal/domain"
)

// Ledger errors
var (
	// ErrInsufficientBalance is returned when a move or burn exceeds the
	// source balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrZeroAddress is returned for mint/move endpoints that must not be
	// the null account.
	ErrZeroAddress = errors.New("zero address")
)

// Ledger is the account store. Safe for concurrent reads; mutations are
// serialized, matching the host model where one call runs at a time.
type Ledger struct {
	mu          sync.RWMutex
	balances    map[domain.Address]*uint256.Int
	totalSupply *uint256.Int
	delegates   map[domain.Address]domain.Address
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances:    make(map[domain.Address]*uint256.Int),
		totalSupply: uint256.NewInt(0),
		delegates:   make(map[domain.Address]domain.Address),
	}
}

// BalanceOf returns a copy of the account balance.
func (l *Ledger) BalanceOf(account domain.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[account]; ok {
		return new(uint256.Int).Set(b)
	}
	return uint256.NewInt(0)
}

// TotalSupply returns a copy of the total supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.totalSupply)
}

// Mint credits the account and grows the supply.
func (l *Ledger) Mint(to domain.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return fmt.Errorf("mint: %w", ErrZeroAddress)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
	l.totalSupply.Add(l.totalSupply, amount)
	return nil
}

// Burn debits the account and shrinks the supply.
func (l *Ledger) Burn(from domain.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(from, amount); err != nil {
		return fmt.Errorf("burn from %s: %w", from, err)
	}
	l.totalSupply.Sub(l.totalSupply, amount)
	return nil
}

// Move transfers between accounts without any fee interception.
func (l *Ledger) Move(from, to domain.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(from, amount); err != nil {
		return fmt.Errorf("move from %s: %w", from, err)
	}
	l.credit(to, amount)
	return nil
}

// DelegateOf returns the delegation target and whether one is recorded.
func (l *Ledger) DelegateOf(account domain.Address) (domain.Address, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.delegates[account]
	return d, ok
}

// SetDelegate records the delegation target for an account.
func (l *Ledger) SetDelegate(account, target domain.Address) {
	l.mu.Lock()
	l.delegates[account] = target
	l.mu.Unlock()
}

// credit assumes the lock is held.
func (l *Ledger) credit(to domain.Address, amount *uint256.Int) {
	if b, ok := l.balances[to]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[to] = new(uint256.Int).Set(amount)
}

// debit assumes the lock is held.
func (l *Ledger) debit(from domain.Address, amount *uint256.Int) error {
	b, ok := l.balances[from]
	if !ok || b.Lt(amount) {
		return ErrInsufficientBalance
	}
	b.Sub(b, amount)
	return nil
}

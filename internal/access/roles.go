// Package access provides the role registry and pause gate checked at the
// boundary of every mutating token and treasury operation.
package access

import (
	"errors"
	"fmt"
	"sync"

	"govtoken-lab/internal/domain"
)

// Role names an administrative capability.
type Role string

// Role constants
const (
	RoleAdmin      Role = "ADMIN"       // LP pairs, exemptions, treasury config, pause
	RoleFeeManager Role = "FEE_MANAGER" // fee rates and recipient splits
	RoleExecutor   Role = "EXECUTOR"    // treasury withdrawals
)

// ErrUnauthorized is returned when the caller lacks the required role.
var ErrUnauthorized = errors.New("unauthorized")

// Auth is the authorization context of one call: who invoked it. It is
// checked first in every mutating operation, before any business logic.
type Auth struct {
	Caller domain.Address
}

// Roles is a concurrency-safe role registry.
type Roles struct {
	mu   sync.RWMutex
	held map[Role]map[domain.Address]struct{}
}

// NewRoles creates an empty registry.
func NewRoles() *Roles {
	return &Roles{held: make(map[Role]map[domain.Address]struct{})}
}

// Grant gives account the role. Idempotent.
func (r *Roles) Grant(role Role, account domain.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.held[role]
	if !ok {
		m = make(map[domain.Address]struct{})
		r.held[role] = m
	}
	m[account] = struct{}{}
}

// Revoke removes the role from account. Idempotent.
func (r *Roles) Revoke(role Role, account domain.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held[role], account)
}

// Has reports whether account holds the role.
func (r *Roles) Has(role Role, account domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.held[role][account]
	return ok
}

// Require returns ErrUnauthorized unless the auth caller holds the role.
func (r *Roles) Require(auth Auth, role Role) error {
	if !r.Has(role, auth.Caller) {
		return fmt.Errorf("%w: %s requires role %s", ErrUnauthorized, auth.Caller, role)
	}
	return nil
}

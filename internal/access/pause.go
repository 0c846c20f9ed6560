package access

import (
	"errors"
	"sync"
)

// ErrPaused is returned by every mutating entry point while the gate is set.
var ErrPaused = errors.New("paused")

// Gate is the process-wide pause flag shared by token and treasury.
// View paths never consult it.
type Gate struct {
	mu     sync.RWMutex
	paused bool
}

// NewGate creates an unpaused gate.
func NewGate() *Gate {
	return &Gate{}
}

// Pause sets the flag. Idempotent.
func (g *Gate) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

// Unpause clears the flag. Idempotent.
func (g *Gate) Unpause() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
}

// Paused reports the flag.
func (g *Gate) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

// RequireActive returns ErrPaused while the gate is set.
func (g *Gate) RequireActive() error {
	if g.Paused() {
		return ErrPaused
	}
	return nil
}

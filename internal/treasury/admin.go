package treasury

import (
	"fmt"

	"govtoken-lab/internal/access"
	"govtoken-lab/internal/amm"
	"govtoken-lab/internal/domain"
)

// SetRecipient changes the payout target and grants it executor and admin
// privileges, so the party receiving funds can always also move them.
func (t *Treasury) SetRecipient(auth access.Auth, recipient domain.Address) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	if recipient.IsZero() {
		return fmt.Errorf("recipient: %w", ErrZeroAddress)
	}

	t.mu.Lock()
	t.cfg.Recipient = recipient
	t.mu.Unlock()

	t.roles.Grant(access.RoleExecutor, recipient)
	t.roles.Grant(access.RoleAdmin, recipient)

	t.emitConfigChange("recipient", recipient.Hex())
	return nil
}

// SetBaseToken changes the token the treasury accumulates and sells.
func (t *Treasury) SetBaseToken(auth access.Auth, token domain.Address) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	if err := t.validateTokenAgainst(token, t.Config().OutputToken); err != nil {
		return err
	}

	t.mu.Lock()
	t.cfg.BaseToken = token
	t.mu.Unlock()

	t.emitConfigChange("base_token", token.Hex())
	return nil
}

// SetOutputToken changes the token the recipient receives from swaps.
func (t *Treasury) SetOutputToken(auth access.Auth, token domain.Address) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	if err := t.validateTokenAgainst(token, t.Config().BaseToken); err != nil {
		return err
	}

	t.mu.Lock()
	t.cfg.OutputToken = token
	t.mu.Unlock()

	t.emitConfigChange("output_token", token.Hex())
	return nil
}

// SetRouter swaps out the AMM router collaborator.
func (t *Treasury) SetRouter(auth access.Auth, router amm.Router) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	if router == nil {
		return fmt.Errorf("router: %w", ErrZeroAddress)
	}

	t.mu.Lock()
	t.router = router
	t.mu.Unlock()

	t.emitConfigChange("router", router.Account().Hex())
	return nil
}

// validateTokenAgainst runs the shared checks for base/output changes:
// non-null, ERC20-like per the bank probe, and distinct from the pair's
// other side.
func (t *Treasury) validateTokenAgainst(token, other domain.Address) error {
	if token.IsZero() {
		return fmt.Errorf("token: %w", ErrZeroAddress)
	}
	if !t.bank.IsRegistered(token) {
		return fmt.Errorf("%s: %w", token, ErrNotToken)
	}
	if token == other {
		return fmt.Errorf("%s: %w", token, ErrSameToken)
	}
	return nil
}

func (t *Treasury) emitConfigChange(key, value string) {
	t.sink.Emit(domain.Event{Type: domain.EventConfigChange, At: t.nowMs(), Data: map[string]string{
		"key":   key,
		"value": value,
	}})
}

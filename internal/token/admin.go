package token

import (
	"fmt"

	"govtoken-lab/internal/access"
	"govtoken-lab/internal/domain"
)

// SetBuyFee sets the buy-side rate. Fee-manager role; rejects rates above
// 750 bps before any state change.
func (t *Token) SetBuyFee(auth access.Auth, bps uint64) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleFeeManager); err != nil {
		return err
	}
	if bps > domain.MaxFeeBps {
		return fmt.Errorf("buy fee %d bps: %w", bps, ErrFeeTooHigh)
	}

	t.mu.Lock()
	t.cfg.BuyFeeBps = bps
	t.mu.Unlock()

	t.emitConfigChange("buy_fee_bps", fmt.Sprintf("%d", bps))
	return nil
}

// SetSellFee sets the sell-side rate. Fee-manager role; same bound.
func (t *Token) SetSellFee(auth access.Auth, bps uint64) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleFeeManager); err != nil {
		return err
	}
	if bps > domain.MaxFeeBps {
		return fmt.Errorf("sell fee %d bps: %w", bps, ErrFeeTooHigh)
	}

	t.mu.Lock()
	t.cfg.SellFeeBps = bps
	t.mu.Unlock()

	t.emitConfigChange("sell_fee_bps", fmt.Sprintf("%d", bps))
	return nil
}

// SetFeeRecipients replaces recipients and splits as one paired operation.
// Fee-manager role. Validation mirrors the documented bounds exactly; the
// config is untouched unless every check passes.
func (t *Token) SetFeeRecipients(auth access.Auth, recipients []domain.Address, splitsBps []uint64) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleFeeManager); err != nil {
		return err
	}

	if len(recipients) > domain.MaxFeeRecipients {
		return fmt.Errorf("%d recipients: %w", len(recipients), ErrTooManyRecipients)
	}
	if len(recipients) != len(splitsBps) {
		return fmt.Errorf("%d recipients vs %d splits: %w", len(recipients), len(splitsBps), ErrLengthMismatch)
	}
	var sum uint64
	for i, r := range recipients {
		if r.IsZero() {
			return fmt.Errorf("recipient %d: %w", i, ErrZeroAddress)
		}
		if splitsBps[i] == 0 {
			return fmt.Errorf("split %d: %w", i, ErrZeroSplit)
		}
		if splitsBps[i] > domain.BpsDenominator {
			return fmt.Errorf("split %d is %d bps: %w", i, splitsBps[i], ErrSplitTooLarge)
		}
		sum += splitsBps[i]
	}
	if sum > domain.BpsDenominator {
		return fmt.Errorf("splits sum to %d bps: %w", sum, ErrSplitSumTooLarge)
	}

	splits := make([]domain.FeeSplit, len(recipients))
	for i := range recipients {
		splits[i] = domain.FeeSplit{Recipient: recipients[i], Bps: splitsBps[i]}
	}

	t.mu.Lock()
	t.cfg.Splits = splits
	t.mu.Unlock()

	t.emitConfigChange("fee_recipients", fmt.Sprintf("%d recipients, %d bps distributed", len(splits), sum))
	return nil
}

// SetLPPair flags or unflags an account as a liquidity pool. Admin role;
// rejects the null account; setting the same flag twice is a no-op.
func (t *Token) SetLPPair(auth access.Auth, pair domain.Address, flag bool) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	if pair.IsZero() {
		return fmt.Errorf("lp pair: %w", ErrZeroAddress)
	}

	t.mu.Lock()
	if flag {
		t.lpPairs[pair] = struct{}{}
	} else {
		delete(t.lpPairs, pair)
	}
	t.mu.Unlock()

	t.emitConfigChange("lp_pair", fmt.Sprintf("%s=%v", pair, flag))
	return nil
}

// SetFeeExempt applies one exemption flag to a batch of 1..20 accounts.
// Admin role.
func (t *Token) SetFeeExempt(auth access.Auth, accounts []domain.Address, flag bool) error {
	if err := t.gate.RequireActive(); err != nil {
		return err
	}
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	if len(accounts) == 0 || len(accounts) > domain.MaxExemptBatch {
		return fmt.Errorf("%d accounts: %w", len(accounts), ErrBatchSize)
	}

	t.mu.Lock()
	for _, a := range accounts {
		if flag {
			t.exempt[a] = struct{}{}
		} else {
			delete(t.exempt, a)
		}
	}
	t.mu.Unlock()

	t.emitConfigChange("fee_exempt", fmt.Sprintf("%d accounts=%v", len(accounts), flag))
	return nil
}

// Pause sets the shared gate. Admin role. Not itself pause-gated, or the
// gate could never be cleared.
func (t *Token) Pause(auth access.Auth) error {
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	t.gate.Pause()
	t.sink.Emit(domain.Event{Type: domain.EventPause, At: t.now(), Data: map[string]string{"paused": "true"}})
	return nil
}

// Unpause clears the shared gate. Admin role.
func (t *Token) Unpause(auth access.Auth) error {
	if err := t.roles.Require(auth, access.RoleAdmin); err != nil {
		return err
	}
	t.gate.Unpause()
	t.sink.Emit(domain.Event{Type: domain.EventPause, At: t.now(), Data: map[string]string{"paused": "false"}})
	return nil
}

func (t *Token) emitConfigChange(key, value string) {
	t.sink.Emit(domain.Event{Type: domain.EventConfigChange, At: t.now(), Data: map[string]string{
		"key":   key,
		"value": value,
	}})
}

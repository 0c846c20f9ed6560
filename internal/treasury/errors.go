package treasury

import "errors"

// Withdrawal and configuration errors
var (
	// ErrInvalidWithdrawalAmount is returned for zero-amount withdrawals.
	ErrInvalidWithdrawalAmount = errors.New("invalid withdrawal amount")

	// ErrInvalidSlippageTolerance is returned for tolerances above 1000 bps.
	ErrInvalidSlippageTolerance = errors.New("invalid slippage tolerance")

	// ErrInsufficientBalance is returned when the treasury holds less than
	// the requested amount. Checked before any router interaction.
	ErrInsufficientBalance = errors.New("insufficient treasury balance")

	// ErrPathMismatch is returned when the router quote's hop count does
	// not match the swap path. Fatal; aborts before any funds move.
	ErrPathMismatch = errors.New("router quote does not match path")

	// ErrSwapFailed wraps any router failure during the swap leg.
	ErrSwapFailed = errors.New("swap failed")

	// ErrReentrantCall is returned when a withdrawal re-enters itself.
	ErrReentrantCall = errors.New("reentrant call")

	// ErrNotConfigured is returned when the router, base token, output
	// token, or recipient resolves to null.
	ErrNotConfigured = errors.New("treasury not configured")

	// ErrSameToken is returned when base and output token are equal.
	ErrSameToken = errors.New("base and output token must differ")

	// ErrNotToken is returned when a configured address fails the
	// ERC20-likeness probe.
	ErrNotToken = errors.New("address is not a token")

	// ErrZeroAddress is returned for null configuration inputs.
	ErrZeroAddress = errors.New("zero address")
)

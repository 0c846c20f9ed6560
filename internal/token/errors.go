package token

import "errors"

// Configuration errors, rejected before any state change.
var (
	// ErrFeeTooHigh is returned when a buy or sell rate exceeds 750 bps.
	ErrFeeTooHigh = errors.New("fee rate exceeds maximum")

	// ErrTooManyRecipients is returned for recipient lists longer than 5.
	ErrTooManyRecipients = errors.New("too many fee recipients")

	// ErrLengthMismatch is returned when recipients and splits differ in length.
	ErrLengthMismatch = errors.New("recipients and splits length mismatch")

	// ErrZeroSplit is returned when any split is zero.
	ErrZeroSplit = errors.New("zero fee split")

	// ErrSplitTooLarge is returned when a single split exceeds 10000 bps.
	ErrSplitTooLarge = errors.New("fee split exceeds 10000 bps")

	// ErrSplitSumTooLarge is returned when splits sum above 10000 bps.
	ErrSplitSumTooLarge = errors.New("fee splits sum exceeds 10000 bps")

	// ErrZeroAddress is returned for null-account recipients and LP pairs.
	ErrZeroAddress = errors.New("zero address")

	// ErrBatchSize is returned for exemption batches outside 1..20 accounts.
	ErrBatchSize = errors.New("exemption batch size out of range")
)

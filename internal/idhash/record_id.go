// Package idhash computes deterministic record identifiers. IDs are the
// base58-encoded SHA256 of the record's identifying fields, so replaying
// the same scenario yields the same IDs and duplicate inserts are caught
// by the stores' unique keys.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeTransferID computes a transfer record ID.
// Formula: SHA256(seq|class|from|to|amount|timestamp_ms), base58-encoded.
func ComputeTransferID(seq uint64, class, from, to, amount string, timestampMs int64) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%s|%d", seq, class, from, to, amount, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeRunID computes a scenario run ID.
// Formula: SHA256(scenario|start_time_ms), base58-encoded.
func ComputeRunID(scenario string, startTimeMs int64) string {
	data := fmt.Sprintf("%s|%d", scenario, startTimeMs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeWithdrawalID computes a withdrawal record ID.
// Formula: SHA256(seq|kind|token_in|amount|recipient|timestamp_ms), base58-encoded.
func ComputeWithdrawalID(seq uint64, kind, tokenIn, amount, recipient string, timestampMs int64) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%s|%d", seq, kind, tokenIn, amount, recipient, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

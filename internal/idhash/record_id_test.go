package idhash

import "testing"

func TestComputeTransferID_Deterministic(t *testing.T) {
	a := ComputeTransferID(1, "BUY", "0xaa", "0xbb", "1000", 1700000000000)
	b := ComputeTransferID(1, "BUY", "0xaa", "0xbb", "1000", 1700000000000)

	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if a == "" {
		t.Error("empty ID")
	}
}

func TestComputeTransferID_DistinctInputs(t *testing.T) {
	base := ComputeTransferID(1, "BUY", "0xaa", "0xbb", "1000", 1700000000000)

	variants := []string{
		ComputeTransferID(2, "BUY", "0xaa", "0xbb", "1000", 1700000000000),
		ComputeTransferID(1, "SELL", "0xaa", "0xbb", "1000", 1700000000000),
		ComputeTransferID(1, "BUY", "0xaa", "0xbb", "1001", 1700000000000),
		ComputeTransferID(1, "BUY", "0xaa", "0xbb", "1000", 1700000000001),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base", i)
		}
	}
}

func TestComputeWithdrawalID_Deterministic(t *testing.T) {
	a := ComputeWithdrawalID(3, "SWAP", "0xaa", "500", "0xcc", 1700000000000)
	b := ComputeWithdrawalID(3, "SWAP", "0xaa", "500", "0xcc", 1700000000000)

	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if a == ComputeWithdrawalID(3, "DIRECT", "0xaa", "500", "0xcc", 1700000000000) {
		t.Error("kind not reflected in ID")
	}
}

func TestComputeRunID_Deterministic(t *testing.T) {
	a := ComputeRunID("base", 1700000000000)
	b := ComputeRunID("base", 1700000000000)

	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if a == ComputeRunID("base", 1700000000001) {
		t.Error("start time not reflected in ID")
	}
	if a == ComputeRunID("other", 1700000000000) {
		t.Error("scenario name not reflected in ID")
	}
}

package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"govtoken-lab/internal/domain"
)

// Loader errors
var (
	ErrNoName = errors.New("scenario has no name")
	ErrNoOps  = errors.New("scenario has no ops")
)

// Load reads and validates a scenario from a JSON file.
func Load(path string) (*domain.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var sc domain.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if err := Validate(&sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks the structural constraints a runnable scenario must meet.
// Semantic errors (bad amounts, missing roles) surface when ops execute.
func Validate(sc *domain.Scenario) error {
	if sc.Name == "" {
		return ErrNoName
	}
	if len(sc.Ops) == 0 {
		return ErrNoOps
	}
	for i, op := range sc.Ops {
		if op.Kind == "" {
			return fmt.Errorf("op %d: %w: empty kind", i, ErrUnknownOp)
		}
	}
	return nil
}

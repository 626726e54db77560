package generator

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"
)

// OperationType enumerates the load generator's operation mix, limited
// to the ledger's four documented endpoints (no transfer: the ledger
// has no cross-aggregate operation, per spec.md's Non-goals).
type OperationType string

const (
	OpCreate   OperationType = "create"
	OpDeposit  OperationType = "deposit"
	OpWithdraw OperationType = "withdraw"
	OpFetch    OperationType = "fetch"
)

// Scenario describes a load profile: account population, the mix of
// operations to generate, and the amount range to draw from.
type Scenario struct {
	Name             string                    `json:"name"`
	Description      string                    `json:"description"`
	Accounts         int                       `json:"accounts"`
	TargetOperations int64                     `json:"target_operations"`
	Distribution     map[OperationType]float64 `json:"distribution"`
	InitialDeposit   int64                     `json:"initial_deposit"`
	MinAmount        int64                     `json:"min_amount"`
	MaxAmount        int64                     `json:"max_amount"`
	ThinkTime        time.Duration             `json:"think_time"`
}

// Operation is one generated unit of work against the HTTP edge.
type Operation struct {
	Type      OperationType `json:"type"`
	AccountID string        `json:"account_id,omitempty"`
	Amount    int64         `json:"amount,omitempty"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if s.Accounts <= 0 {
		return fmt.Errorf("accounts must be positive")
	}

	total := 0.0
	for _, weight := range s.Distribution {
		total += weight
	}

	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("distribution weights must sum to 1.0")
	}

	return nil
}

func (s *Scenario) GenerateOperation(accountIDs []string) Operation {
	r := rand.Float64()
	cumulative := 0.0

	for opType, weight := range s.Distribution {
		cumulative += weight
		if r <= cumulative {
			return s.createOperation(opType, accountIDs)
		}
	}

	return s.createOperation(OpFetch, accountIDs)
}

func (s *Scenario) createOperation(opType OperationType, accountIDs []string) Operation {
	op := Operation{Type: opType}

	switch opType {
	case OpDeposit, OpWithdraw, OpFetch:
		op.AccountID = accountIDs[rand.Intn(len(accountIDs))]
		if opType != OpFetch {
			op.Amount = s.generateValidAmount()
		}
	}

	return op
}

// generateValidAmount draws a random minor-unit amount in
// [MinAmount, MaxAmount].
func (s *Scenario) generateValidAmount() int64 {
	min := s.MinAmount
	if min < 1 {
		min = 1
	}
	max := s.MaxAmount
	if max < min {
		max = min
	}
	return min + rand.Int63n(max-min+1)
}

func DefaultScenario() *Scenario {
	return &Scenario{
		Name:        "Default Ledger Load Test",
		Description: "Balanced mix of deposit/withdraw/fetch with realistic amounts",
		Accounts:    1000,
		Distribution: map[OperationType]float64{
			OpDeposit:  0.35,
			OpWithdraw: 0.35,
			OpFetch:    0.30,
		},
		InitialDeposit: 100000, // 1000.00 major units, in minor units
		MinAmount:      100,    // 1.00 major units
		MaxAmount:      1000,   // 10.00 major units
		ThinkTime:      10 * time.Millisecond,
	}
}

func HighConcurrencyScenario() *Scenario {
	return &Scenario{
		Name:        "High Concurrency Conflict Test",
		Description: "Heavy deposit/withdraw contention against a small account population, to exercise publish's optimistic-concurrency loss path",
		Accounts:    100,
		Distribution: map[OperationType]float64{
			OpDeposit:  0.45,
			OpWithdraw: 0.45,
			OpFetch:    0.10,
		},
		InitialDeposit: 50000,
		MinAmount:      10000,
		MaxAmount:      500000,
		ThinkTime:      1 * time.Millisecond,
	}
}

func ReadHeavyScenario() *Scenario {
	return &Scenario{
		Name:        "Read Heavy Load Test",
		Description: "Mostly fetches with occasional writes, exercising the service's warm cache",
		Accounts:    5000,
		Distribution: map[OperationType]float64{
			OpDeposit:  0.10,
			OpWithdraw: 0.10,
			OpFetch:    0.80,
		},
		InitialDeposit: 100000,
		MinAmount:      5000,
		MaxAmount:      50000,
		ThinkTime:      5 * time.Millisecond,
	}
}

// Package account implements the ledger's write-side aggregate: pure
// state plus the three operations that validate and fold events. No I/O,
// no locking — concurrency across publishers is the event log's job.
package account

import (
	"fmt"

	"ledger/internal/pkg/apperrors"
)

// EventType enumerates the event kinds the aggregate folds.
type EventType string

const (
	EventCreate   EventType = "create"
	EventDeposit  EventType = "deposit"
	EventWithdraw EventType = "withdraw"
)

// Event is one immutable entry in an account's stream. Version is the
// aggregate version *after* the event applies. Timestamp is assigned by
// the log at append time and totally orders events within the stream.
type Event struct {
	ID        string
	Version   int64
	Type      EventType
	Amount    int64
	Timestamp string
}

// Account is the aggregate: funds, plus the version/timestamp of the
// last event folded into it.
type Account struct {
	ID        string
	Version   int64
	Timestamp string
	Funds     int64
}

// New returns a fresh, never-rehydrated aggregate for id.
func New(id string) *Account {
	return &Account{ID: id}
}

// Deposit increases funds by amount. amount must be strictly positive.
func (a *Account) Deposit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive: %w", apperrors.ErrInvalidAmount)
	}
	a.Funds += amount
	return nil
}

// Withdraw decreases funds by amount. amount must be strictly positive
// and must not drive funds below zero.
func (a *Account) Withdraw(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("withdraw amount must be positive: %w", apperrors.ErrInvalidAmount)
	}
	if a.Funds-amount < 0 {
		return fmt.Errorf("withdraw of %d exceeds balance %d: %w", amount, a.Funds, apperrors.ErrInsufficientFunds)
	}
	a.Funds -= amount
	return nil
}

// Rehydrate folds events, in stream order, into the aggregate. Events
// for a different id, or already folded (same timestamp), are skipped.
// Unknown event types advance version/timestamp but contribute no funds
// change, matching create's fold.
func (a *Account) Rehydrate(events []Event) {
	for _, e := range events {
		if e.ID != a.ID || e.Timestamp == a.Timestamp {
			continue
		}
		a.Version = e.Version
		a.Timestamp = e.Timestamp
		switch e.Type {
		case EventDeposit:
			a.Funds += e.Amount
		case EventWithdraw:
			a.Funds -= e.Amount
		}
	}
}

// Snapshot is the read-side projection of an aggregate's current state,
// returned by the service's fetch operation.
type Snapshot struct {
	ID        string `json:"id"`
	Version   int64  `json:"version"`
	Timestamp string `json:"timestamp"`
	Funds     int64  `json:"funds"`
}

// ToSnapshot projects the aggregate to its wire snapshot.
func (a *Account) ToSnapshot() Snapshot {
	return Snapshot{ID: a.ID, Version: a.Version, Timestamp: a.Timestamp, Funds: a.Funds}
}

// Package handlers implements the HTTP write-side edge spec.md names out
// of scope but documents for compatibility (§6): gin handlers translating
// the four documented endpoints into Account Service calls.
package handlers

import (
	"context"

	"ledger/internal/domain/account"
	"ledger/internal/service"
)

// AccountService is the subset of service.Service the handlers depend
// on, narrowed to an interface so tests can substitute a fake.
type AccountService interface {
	Create(ctx context.Context, id string) (*service.CreateResult, error)
	Deposit(ctx context.Context, id string, amount int64) (*service.MutationResult, error)
	Withdraw(ctx context.Context, id string, amount int64) (*service.MutationResult, error)
	Fetch(ctx context.Context, id string) (*account.Snapshot, error)
}

// Package service implements the Account Service: the command handler
// that loads or rehydrates an aggregate, validates the command, appends
// an event under optimistic concurrency, and maintains a warm cache.
// Grounded on the pack's load→Handle→append command-service skeleton;
// concurrent same-id commands are arbitrated solely by the event log's
// optimistic version check, never by an in-process per-id lock.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"ledger/internal/domain/account"
	"ledger/internal/eventlog"
	"ledger/internal/pkg/apperrors"
	"ledger/internal/pkg/logging"
	"ledger/internal/pkg/telemetry"
)

// eventLog is the subset of eventlog.Client the service depends on,
// narrowed to an interface so tests can substitute a fake log without
// a live Redis connection.
type eventLog interface {
	AddID(ctx context.Context, id, namespace string) (bool, error)
	Publish(ctx context.Context, stream, id string, version int64, typ account.EventType, amount int64) (*eventlog.Published, error)
	Get(ctx context.Context, stream, id, sinceTimestamp string) ([]account.Event, error)
	Close() error
}

// Service is the Account Service (AS): a process-wide warm cache of
// aggregates plus the command handlers that mutate them through the
// event log. The cache mutex guards only the map itself; it is never
// held across a log round-trip. Which of several concurrent same-id
// commands wins is decided solely by the log's optimistic version check
// (eventlog.Client.Publish) — the service holds no per-id lock.
type Service struct {
	log    eventLog
	stream string

	cacheMu sync.RWMutex
	cache   map[string]*account.Account
}

// New wires an Account Service against an already-connected ELC.
func New(log eventLog, stream string) *Service {
	return &Service{
		log:    log,
		stream: stream,
		cache:  make(map[string]*account.Account),
	}
}

// cacheSet publishes agg as the warm cache entry for id.
func (s *Service) cacheSet(id string, agg *account.Account) {
	s.cacheMu.Lock()
	s.cache[id] = agg
	s.cacheMu.Unlock()
}

// CreateResult is returned by Create on success.
type CreateResult struct {
	ID string `json:"id"`
}

// Create registers id in the id registry and publishes the account's
// creation event.
func (s *Service) Create(ctx context.Context, id string) (*CreateResult, error) {
	added, err := s.log.AddID(ctx, id, "accountId")
	if err != nil {
		telemetry.CommandsTotal.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("create %s: %w", id, apperrors.ErrBackend)
	}
	if !added {
		telemetry.CommandsTotal.WithLabelValues("create", "conflict").Inc()
		return nil, fmt.Errorf("account %s already exists: %w", id, apperrors.ErrConflict)
	}

	published, err := s.log.Publish(ctx, s.stream, id, 0, account.EventCreate, 0)
	if err != nil {
		telemetry.CommandsTotal.WithLabelValues("create", "error").Inc()
		return nil, fmt.Errorf("create %s: %w", id, apperrors.ErrBackend)
	}
	if published == nil {
		telemetry.PublishConflictsTotal.Inc()
		telemetry.CommandsTotal.WithLabelValues("create", "conflict").Inc()
		return nil, fmt.Errorf("account %s already exists: %w", id, apperrors.ErrConflict)
	}

	s.cacheSet(id, &account.Account{ID: id, Version: published.Version, Timestamp: published.Timestamp})

	telemetry.CommandsTotal.WithLabelValues("create", "success").Inc()
	telemetry.AccountsCreatedTotal.Inc()
	logging.Info("account created", map[string]interface{}{"id": id})
	return &CreateResult{ID: id}, nil
}

// MutationResult is returned by Deposit/Withdraw on success. OperationID
// is a fresh identifier minted per successful mutation, independent of
// the account id, so a client or operator can correlate one accepted
// deposit/withdrawal across logs without reusing the (reused-across-
// mutations) account id.
type MutationResult struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	OperationID string `json:"operation_id"`
}

// Deposit loads id, applies the deposit to a private copy of the
// aggregate, and publishes the resulting event. On optimistic-
// concurrency loss the copy is simply discarded — it was never shared —
// and (nil, nil) is returned so the caller (HTTP edge) can surface a 409
// conflict.
func (s *Service) Deposit(ctx context.Context, id string, amount int64) (*MutationResult, error) {
	return s.mutate(ctx, "deposit", id, amount, account.EventDeposit,
		func(a *account.Account) error { return a.Deposit(amount) },
	)
}

// Withdraw loads id, applies the withdrawal to a private copy of the
// aggregate, and publishes the resulting event, exactly as Deposit does.
func (s *Service) Withdraw(ctx context.Context, id string, amount int64) (*MutationResult, error) {
	return s.mutate(ctx, "withdraw", id, amount, account.EventWithdraw,
		func(a *account.Account) error { return a.Withdraw(amount) },
	)
}

// mutate is the shared skeleton behind Deposit and Withdraw: load a
// private copy of the aggregate, apply exactly one mutation to that
// copy, and publish under optimistic concurrency. The log's version
// check on Publish — not an in-process lock — is the sole arbiter of
// which of several concurrent same-id mutations wins (spec.md §5): the
// losing copy was never shared, so there is nothing to roll back.
func (s *Service) mutate(ctx context.Context, command, id string, amount int64, typ account.EventType, apply func(*account.Account) error) (*MutationResult, error) {
	agg, err := s.load(ctx, id)
	if err != nil {
		telemetry.CommandsTotal.WithLabelValues(command, "error").Inc()
		return nil, err
	}

	if err := apply(agg); err != nil {
		telemetry.CommandsTotal.WithLabelValues(command, "error").Inc()
		return nil, err
	}

	published, err := s.log.Publish(ctx, s.stream, id, agg.Version, typ, amount)
	if err != nil {
		telemetry.CommandsTotal.WithLabelValues(command, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", command, id, apperrors.ErrBackend)
	}
	if published == nil {
		telemetry.PublishConflictsTotal.Inc()
		telemetry.CommandsTotal.WithLabelValues(command, "conflict").Inc()
		return nil, nil
	}

	agg.Version = published.Version
	agg.Timestamp = published.Timestamp
	s.cacheSet(id, agg)

	telemetry.CommandsTotal.WithLabelValues(command, "success").Inc()
	telemetry.AccountBalancesHistogram.Observe(float64(agg.Funds))
	return &MutationResult{ID: id, Amount: amount, OperationID: uuid.NewString()}, nil
}

// Fetch rehydrates id and projects it to a read snapshot.
func (s *Service) Fetch(ctx context.Context, id string) (*account.Snapshot, error) {
	agg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(id, agg)
	snap := agg.ToSnapshot()
	return &snap, nil
}

// load implements the cached-rehydration rule: start from a private copy
// of the cached instance if present (else a fresh aggregate), fetch only
// events strictly newer than its last-seen timestamp, and fold them in.
// A never-cached id with zero events is NotFound. The returned aggregate
// is always a copy distinct from whatever is currently in the cache map,
// so a caller that goes on to mutate it (mutate, above) never races with
// a concurrent reader of the cached entry.
func (s *Service) load(ctx context.Context, id string) (*account.Account, error) {
	s.cacheMu.RLock()
	cached, wasCached := s.cache[id]
	s.cacheMu.RUnlock()

	var agg *account.Account
	if wasCached {
		clone := *cached
		agg = &clone
	} else {
		agg = account.New(id)
	}

	events, err := s.log.Get(ctx, s.stream, id, agg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, apperrors.ErrBackend)
	}
	if !wasCached && len(events) == 0 {
		return nil, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
	}

	agg.Rehydrate(events)

	return agg, nil
}

// Close releases the ELC. The service holds no other shutdown-worthy
// resources.
func (s *Service) Close() error {
	return s.log.Close()
}

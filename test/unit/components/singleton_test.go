// Package components tests the construction-time decision recorded for
// spec.md §9's injection-over-singleton open question: internal/service
// and internal/pkg/components expose constructors (New, NewProjector),
// never a package-level GetInstance, so two constructions never
// observe each other's state.
package components

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/domain/account"
	"ledger/internal/eventlog"
	"ledger/internal/service"
)

// fakeLog is a hermetic stand-in for the Service's unexported eventLog
// dependency, letting this package construct independent Services
// without a live Redis connection.
type fakeLog struct {
	mu     sync.Mutex
	ids    map[string]bool
	events map[string][]account.Event
}

func newFakeLog() *fakeLog {
	return &fakeLog{ids: map[string]bool{}, events: map[string][]account.Event{}}
}

func (f *fakeLog) AddID(_ context.Context, id, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[id] {
		return false, nil
	}
	f.ids[id] = true
	return true, nil
}

func (f *fakeLog) Publish(_ context.Context, _, id string, version int64, typ account.EventType, amount int64) (*eventlog.Published, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts := "1-0"
	f.events[id] = append(f.events[id], account.Event{ID: id, Version: version + 1, Type: typ, Amount: amount, Timestamp: ts})
	return &eventlog.Published{Version: version + 1, Timestamp: ts}, nil
}

func (f *fakeLog) Get(_ context.Context, _, id, _ string) ([]account.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]account.Event(nil), f.events[id]...), nil
}

func (f *fakeLog) Close() error { return nil }

// TestServiceConstructionIsNotASingleton verifies two independently
// constructed Services never see each other's accounts: unlike the
// source's events.GetBroker() package-level singleton, service.New
// allocates fresh cache/lock state on every call.
func TestServiceConstructionIsNotASingleton(t *testing.T) {
	ctx := context.Background()

	svcA := service.New(newFakeLog(), "stream")
	svcB := service.New(newFakeLog(), "stream")

	_, err := svcA.Create(ctx, "acc-only-in-a")
	require.NoError(t, err)

	_, err = svcA.Fetch(ctx, "acc-only-in-a")
	require.NoError(t, err, "svcA should see the account it just created")

	_, err = svcB.Fetch(ctx, "acc-only-in-a")
	assert.Error(t, err, "svcB must not observe state created through svcA's independent backend")
}

// TestConcurrentServiceConstruction builds many Services concurrently
// and asserts each got a distinct instance, i.e. construction never
// hands back a shared global.
func TestConcurrentServiceConstruction(t *testing.T) {
	const n = 50
	services := make([]*service.Service, n)
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			services[idx] = service.New(newFakeLog(), "stream")
		}(i)
	}
	wg.Wait()

	seen := make(map[*service.Service]bool, n)
	for _, s := range services {
		require.NotNil(t, s)
		assert.False(t, seen[s], "service.New must not return a shared instance")
		seen[s] = true
	}
}

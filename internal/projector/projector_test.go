package projector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ledger/internal/domain/account"
	"ledger/internal/eventlog"
	"ledger/internal/viewstore"
)

// fakeLog is a minimal stand-in for eventlog.Client: just enough of the
// log interface for handleBatch/sweep to be driven directly, without a
// live Redis connection.
type fakeLog struct {
	mu      sync.Mutex
	acked   []string
	pending []eventlog.Delivery
}

func (f *fakeLog) Subscribe(ctx context.Context, stream, consumerName string, readInterval time.Duration, handler eventlog.BatchHandler) error {
	return nil
}

func (f *fakeLog) Ack(ctx context.Context, stream, timestamp string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, timestamp)
	return 1, nil
}

func (f *fakeLog) GetPending(ctx context.Context, stream, consumer string, maxElapsed time.Duration) ([]eventlog.Delivery, error) {
	return f.pending, nil
}

func (f *fakeLog) Close() error { return nil }

func (f *fakeLog) ackedTimestamps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.acked))
	copy(out, f.acked)
	return out
}

// fakeView is a minimal stand-in for viewstore.Store, tracking which
// timestamps have already been applied so it can reproduce the real
// store's idempotent-apply behavior (Applied=false on redelivery).
type fakeView struct {
	mu      sync.Mutex
	applied map[string]bool
	calls   []string
	err     error
}

func newFakeView() *fakeView {
	return &fakeView{applied: make(map[string]bool)}
}

func (f *fakeView) Apply(ctx context.Context, id string, delta int64, timestamp string) (viewstore.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return viewstore.ApplyResult{}, f.err
	}
	f.calls = append(f.calls, id)
	if f.applied[timestamp] {
		return viewstore.ApplyResult{Applied: false}, nil
	}
	f.applied[timestamp] = true
	return viewstore.ApplyResult{Applied: true}, nil
}

func newTestProjector(l log, v view) *Projector {
	return New(l, v, "accountStream", time.Millisecond, time.Hour)
}

func TestApplyOneAppliesDelta(t *testing.T) {
	l := &fakeLog{}
	v := newFakeView()
	p := newTestProjector(l, v)

	d := eventlog.Delivery{
		Event:   account.Event{ID: "acc-1", Type: account.EventDeposit, Amount: 500, Timestamp: "1-0"},
		EntryID: "1-0",
	}
	p.applyOne(context.Background(), d)

	assert.Equal(t, []string{"acc-1"}, v.calls)
	assert.Equal(t, []string{"1-0"}, l.ackedTimestamps())
}

// TestApplyOneIsIdempotentOnRedelivery covers the projector's core
// at-least-once guarantee: a redelivered entry (same timestamp) still
// gets acked, but the view store's own dedup (simulated here by
// fakeView) means the delta is never double-counted.
func TestApplyOneIsIdempotentOnRedelivery(t *testing.T) {
	l := &fakeLog{}
	v := newFakeView()
	p := newTestProjector(l, v)

	d := eventlog.Delivery{
		Event:   account.Event{ID: "acc-1", Type: account.EventDeposit, Amount: 500, Timestamp: "1-0"},
		EntryID: "1-0",
	}

	p.applyOne(context.Background(), d)
	p.applyOne(context.Background(), d)

	assert.Equal(t, 2, len(v.calls), "both deliveries reach the view store")
	assert.Equal(t, []string{"1-0", "1-0"}, l.ackedTimestamps(), "a harmless redelivery still acks")
}

func TestApplyOneDoesNotAckOnViewError(t *testing.T) {
	l := &fakeLog{}
	v := newFakeView()
	v.err = errors.New("mongo down")
	p := newTestProjector(l, v)

	d := eventlog.Delivery{
		Event:   account.Event{ID: "acc-1", Type: account.EventDeposit, Amount: 500, Timestamp: "1-0"},
		EntryID: "1-0",
	}
	p.applyOne(context.Background(), d)

	assert.Empty(t, l.ackedTimestamps(), "a failed view apply must not be acked, so the pending sweep can retry it")
}

func TestHandleBatchAppliesEachDeliveryIndependently(t *testing.T) {
	l := &fakeLog{}
	v := newFakeView()
	p := newTestProjector(l, v)

	batch := []eventlog.Delivery{
		{Event: account.Event{ID: "acc-1", Type: account.EventDeposit, Amount: 100, Timestamp: "1-0"}, EntryID: "1-0"},
		{Event: account.Event{ID: "acc-2", Type: account.EventWithdraw, Amount: 50, Timestamp: "2-0"}, EntryID: "2-0"},
	}
	p.handleBatch(context.Background(), batch)

	assert.ElementsMatch(t, []string{"acc-1", "acc-2"}, v.calls)
	assert.ElementsMatch(t, []string{"1-0", "2-0"}, l.ackedTimestamps())
}

func TestSweepAppliesAndAcksPendingDeliveries(t *testing.T) {
	l := &fakeLog{pending: []eventlog.Delivery{
		{Event: account.Event{ID: "acc-1", Type: account.EventDeposit, Amount: 100, Timestamp: "1-0"}, EntryID: "1-0"},
	}}
	v := newFakeView()
	p := newTestProjector(l, v)

	p.sweep(context.Background())

	assert.Equal(t, []string{"acc-1"}, v.calls)
	assert.Equal(t, []string{"1-0"}, l.ackedTimestamps())
}

func TestSweepIsANoOpWhenNothingPending(t *testing.T) {
	l := &fakeLog{}
	v := newFakeView()
	p := newTestProjector(l, v)

	p.sweep(context.Background())

	assert.Empty(t, v.calls)
	assert.Empty(t, l.ackedTimestamps())
}

func TestConsumerNameMatchesNamingRule(t *testing.T) {
	l := &fakeLog{}
	v := newFakeView()
	p := New(l, v, "accountStream", time.Second, time.Minute)

	assert.Regexp(t, `^accountProjector:.+_\d+$`, p.ConsumerName())
}

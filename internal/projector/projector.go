// Package projector implements the Account Projector: a long-running
// consumer that drains the event log via a named consumer group,
// applies events idempotently to the view store, acknowledges, and
// periodically reclaims abandoned pending entries.
package projector

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"ledger/internal/domain/account"
	"ledger/internal/eventlog"
	"ledger/internal/pkg/logging"
	"ledger/internal/pkg/telemetry"
	"ledger/internal/viewstore"
)

// log is the subset of eventlog.Client the projector depends on.
type log interface {
	Subscribe(ctx context.Context, stream, consumerName string, readInterval time.Duration, handler eventlog.BatchHandler) error
	Ack(ctx context.Context, stream, timestamp string) (int64, error)
	GetPending(ctx context.Context, stream, consumer string, maxElapsed time.Duration) ([]eventlog.Delivery, error)
	Close() error
}

// view is the subset of viewstore.Store the projector depends on.
type view interface {
	Apply(ctx context.Context, id string, delta int64, timestamp string) (viewstore.ApplyResult, error)
}

// Projector is the AP.
type Projector struct {
	log          log
	view         view
	stream       string
	consumerName string

	pendingInterval time.Duration
	readInterval    time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a projector identified by
// "accountProjector:" + host + "_" + pid, matching spec.md's naming
// rule exactly.
func New(log log, view view, stream string, readInterval, pendingInterval time.Duration) *Projector {
	host, _ := os.Hostname()
	consumerName := fmt.Sprintf("accountProjector:%s_%d", host, os.Getpid())
	return &Projector{
		log:             log,
		view:            view,
		stream:          stream,
		consumerName:    consumerName,
		readInterval:    readInterval,
		pendingInterval: pendingInterval,
	}
}

// ConsumerName exposes the generated consumer identity, mostly useful
// for logging and tests.
func (p *Projector) ConsumerName() string {
	return p.consumerName
}

// Connect subscribes to the stream under its consumer group and starts
// the pending sweep timer.
func (p *Projector) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if err := p.log.Subscribe(runCtx, p.stream, p.consumerName, p.readInterval, p.handleBatch); err != nil {
		cancel()
		return fmt.Errorf("projector: subscribe: %w", err)
	}

	p.wg.Add(1)
	go p.sweepLoop(runCtx)

	logging.Info("projector connected", map[string]interface{}{"consumer": p.consumerName, "stream": p.stream})
	return nil
}

// handleBatch is the batch handler registered with Subscribe and also
// the sweep's dispatch target, per spec.md's pending-sweep/handler
// reentrancy note: each event gets its own view-store call, so a
// concurrent sweep and live delivery never share mutable state.
func (p *Projector) handleBatch(ctx context.Context, batch []eventlog.Delivery) {
	var wg sync.WaitGroup
	wg.Add(len(batch))
	for _, d := range batch {
		d := d
		go func() {
			defer wg.Done()
			p.applyOne(ctx, d)
		}()
	}
	wg.Wait()
}

func (p *Projector) applyOne(ctx context.Context, d eventlog.Delivery) {
	delta := delta(d.Event)

	result, err := p.view.Apply(ctx, d.Event.ID, delta, d.Event.Timestamp)
	if err != nil {
		logging.Error("projector: apply failed", err, map[string]interface{}{
			"id": d.Event.ID, "timestamp": d.Event.Timestamp,
		})
		return
	}

	if !result.Applied {
		telemetry.ProjectorDuplicatesSkippedTotal.Inc()
	} else {
		telemetry.ProjectorEventsAppliedTotal.WithLabelValues(string(d.Event.Type)).Inc()
	}

	if _, err := p.log.Ack(ctx, p.stream, d.Event.Timestamp); err != nil {
		logging.Error("projector: ack failed", err, map[string]interface{}{
			"id": d.Event.ID, "timestamp": d.Event.Timestamp,
		})
	}
}

func delta(e account.Event) int64 {
	switch e.Type {
	case account.EventDeposit:
		return e.Amount
	case account.EventWithdraw:
		return -e.Amount
	default:
		return 0
	}
}

func (p *Projector) sweepLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pendingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Projector) sweep(ctx context.Context) {
	deliveries, err := p.log.GetPending(ctx, p.stream, p.consumerName, p.pendingInterval)
	if err != nil {
		logging.Error("projector: pending sweep failed", err, map[string]interface{}{"consumer": p.consumerName})
		return
	}
	if len(deliveries) == 0 {
		return
	}
	telemetry.ProjectorPendingReclaimedTotal.Add(float64(len(deliveries)))
	p.handleBatch(ctx, deliveries)
}

// Close cancels the sweep timer and closes the ELC.
func (p *Projector) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return p.log.Close()
}

// Package eventlog implements the Event Log Client: a thin, typed layer
// over a Redis Stream offering optimistic-concurrency publish, since-T
// reads for rehydration, consumer-group subscriptions and pending-entry
// reclaim. Grounded on github.com/redis/go-redis/v9's stream and
// transaction primitives.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ledger/internal/domain/account"
	"ledger/internal/pkg/logging"
)

// ErrVersionKeyMissing is returned when a non-create publish targets an
// id whose version key has disappeared from the log's key-value space.
// spec.md's "version-key bootstrap" open question resolves here: an
// absent key is only ever compatible with a create (version 0); for any
// later event type it is a hard backend error, never silently accepted.
var ErrVersionKeyMissing = errors.New("eventlog: version key missing for non-create publish")

var errOptimisticLoss = errors.New("eventlog: optimistic concurrency loss")

const versionKeyPrefix = "accountVersion:"

// BatchHandler processes one non-empty delivery of events. It returns
// nothing: acking each applied entry (via Ack, using Delivery.EntryID)
// is the handler's own job.
type BatchHandler func(ctx context.Context, batch []Delivery)

// Delivery is one event read off a consumer group, paired with the
// stream entry ID used to ack or reclaim it.
type Delivery struct {
	Event     account.Event
	EntryID   string
}

// Client wraps a Redis connection with the ELC's typed operations.
type Client struct {
	rdb *redis.Client

	mu            sync.Mutex
	subscriptions map[string]context.CancelFunc
	wg            sync.WaitGroup
}

// New wraps an existing go-redis client. The Client takes ownership of
// it: Close stops the ELC-owned poll goroutines and then closes rdb.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, subscriptions: make(map[string]context.CancelFunc)}
}

// AddID inserts id into the named set, returning true iff it was newly
// added. Used by the service's create command to enforce id uniqueness
// before the first event is appended.
func (c *Client) AddID(ctx context.Context, id, namespace string) (bool, error) {
	added, err := c.rdb.SAdd(ctx, namespace, id).Result()
	if err != nil {
		return false, fmt.Errorf("eventlog: add id: %w", err)
	}
	return added == 1, nil
}

// Publish implements the optimistic-concurrency publish protocol.
// Returns (nil, nil) if a concurrent publisher won the race for this
// version (the caller surfaces a conflict); returns a non-nil error only
// for genuine backend failures.
//
// watch+get+multi+exec run within a single connection checkout scoped to
// this call (go-redis's Watch does exactly that), resolving spec.md's
// "watch invoked outside the promise" open question.
func (c *Client) Publish(ctx context.Context, stream string, id string, version int64, typ account.EventType, amount int64) (*Published, error) {
	versionKey := versionKeyPrefix + id

	var incrCmd *redis.IntCmd
	var xaddCmd *redis.StringCmd

	txErr := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, versionKey).Result()
		absent := errors.Is(err, redis.Nil)
		if err != nil && !absent {
			return fmt.Errorf("read version key: %w", err)
		}

		if absent {
			if typ != account.EventCreate {
				return ErrVersionKeyMissing
			}
		} else {
			current, perr := strconv.ParseInt(val, 10, 64)
			if perr != nil {
				return fmt.Errorf("parse version key: %w", perr)
			}
			if current != version {
				return errOptimisticLoss
			}
		}

		payload, merr := json.Marshal(wireEvent{ID: id, Version: version + 1, Type: typ, Amount: amount})
		if merr != nil {
			return fmt.Errorf("encode event: %w", merr)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incrCmd = pipe.Incr(ctx, versionKey)
			xaddCmd = pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: stream,
				Values: map[string]interface{}{"event": payload},
			})
			return nil
		})
		return err
	}, versionKey)

	switch {
	case errors.Is(txErr, errOptimisticLoss):
		return nil, nil
	case errors.Is(txErr, redis.TxFailedErr):
		// another writer touched the watched key between GET and EXEC
		return nil, nil
	case txErr != nil:
		return nil, fmt.Errorf("eventlog: publish: %w", txErr)
	}

	return &Published{Version: incrCmd.Val(), Timestamp: xaddCmd.Val()}, nil
}

// Get reads all stream entries strictly after sinceTimestamp, decodes
// them, filters by id, and attaches the log-assigned timestamp. Used for
// rehydration.
func (c *Client) Get(ctx context.Context, stream, id, sinceTimestamp string) ([]account.Event, error) {
	start := "-"
	if sinceTimestamp != "" {
		start = "(" + sinceTimestamp
	}
	entries, err := c.rdb.XRange(ctx, stream, start, "+").Result()
	if err != nil {
		return nil, fmt.Errorf("eventlog: get: %w", err)
	}

	events := make([]account.Event, 0, len(entries))
	for _, e := range entries {
		evt, ok := decodeEntry(e)
		if !ok || evt.ID != id {
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}

func decodeEntry(e redis.XMessage) (account.Event, bool) {
	raw, ok := e.Values["event"].(string)
	if !ok {
		return account.Event{}, false
	}
	var w wireEvent
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return account.Event{}, false
	}
	return account.Event{ID: w.ID, Version: w.Version, Type: w.Type, Amount: w.Amount, Timestamp: e.ID}, true
}

func groupName(stream string) string {
	return stream + "Group"
}

// Subscribe lazily creates the stream's consumer group and polls it
// every readInterval for new entries, delivering non-empty batches to
// handler. A single subscription per (stream, group) is memoized; a
// second call for the same stream is a no-op.
func (c *Client) Subscribe(ctx context.Context, stream, consumerName string, readInterval time.Duration, handler BatchHandler) error {
	group := groupName(stream)

	c.mu.Lock()
	if _, exists := c.subscriptions[stream]; exists {
		c.mu.Unlock()
		return nil
	}
	subCtx, cancel := context.WithCancel(ctx)
	c.subscriptions[stream] = cancel
	c.mu.Unlock()

	if err := c.rdb.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil && !isBusyGroup(err) {
		return fmt.Errorf("eventlog: create consumer group: %w", err)
	}

	c.wg.Add(1)
	go c.pollLoop(subCtx, stream, group, consumerName, readInterval, handler)
	return nil
}

func (c *Client) pollLoop(ctx context.Context, stream, group, consumer string, readInterval time.Duration, handler BatchHandler) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    64,
			Block:    readInterval,
		}).Result()

		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if !errors.Is(err, redis.Nil) {
				logging.Error("eventlog: poll error", err, map[string]interface{}{"stream": stream, "consumer": consumer})
			}
			continue
		}

		for _, s := range streams {
			if len(s.Messages) == 0 {
				continue
			}
			batch := make([]Delivery, 0, len(s.Messages))
			for _, m := range s.Messages {
				if evt, ok := decodeEntry(m); ok {
					batch = append(batch, Delivery{Event: evt, EntryID: m.ID})
				}
			}
			if len(batch) > 0 {
				handler(ctx, batch)
			}
		}
	}
}

// Ack acknowledges one entry in the stream's consumer group.
func (c *Client) Ack(ctx context.Context, stream, timestamp string) (int64, error) {
	n, err := c.rdb.XAck(ctx, stream, groupName(stream), timestamp).Result()
	if err != nil {
		return 0, fmt.Errorf("eventlog: ack: %w", err)
	}
	return n, nil
}

// GetPending lists the group's pending range and claims, to consumer,
// every entry idle at least maxElapsed. Returns the claimed entries,
// decoded. A cold-start group (not yet created) returns an empty slice.
func (c *Client) GetPending(ctx context.Context, stream, consumer string, maxElapsed time.Duration) ([]Delivery, error) {
	group := groupName(stream)

	pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  1000,
	}).Result()
	if err != nil {
		if isNoGroup(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("eventlog: get pending: %w", err)
	}

	var toClaim []string
	for _, p := range pending {
		if p.Idle >= maxElapsed {
			toClaim = append(toClaim, p.ID)
		}
	}
	if len(toClaim) == 0 {
		return nil, nil
	}

	claimed, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  maxElapsed,
		Messages: toClaim,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("eventlog: claim pending: %w", err)
	}

	deliveries := make([]Delivery, 0, len(claimed))
	for _, m := range claimed {
		if evt, ok := decodeEntry(m); ok {
			deliveries = append(deliveries, Delivery{Event: evt, EntryID: m.ID})
		}
	}
	return deliveries, nil
}

// Close stops all poll goroutines and disconnects the Redis client.
func (c *Client) Close() error {
	c.mu.Lock()
	for _, cancel := range c.subscriptions {
		cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
	return c.rdb.Close()
}

func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func isNoGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOGROUP")
}

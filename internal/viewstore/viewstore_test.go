package viewstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// A single Mongo testcontainer backs every test in this file; each test
// gets its own collection so the tests stay independent without paying
// for a fresh container per test.
var (
	containerOnce sync.Once
	containerURI  string
	containerErr  error
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	containerOnce.Do(func() {
		ctx := context.Background()
		mc, err := tcmongodb.Run(ctx, "mongo:7")
		if err != nil {
			containerErr = err
			return
		}
		uri, err := mc.ConnectionString(ctx)
		if err != nil {
			containerErr = err
			return
		}
		containerURI = uri
	})
	require.NoError(t, containerErr, "failed to start mongo testcontainer")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(containerURI))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	coll := client.Database("ledger").Collection(fmt.Sprintf("accountViews_%s", t.Name()))
	return New(coll)
}

func TestApplyCreatesRecordOnFirstInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Apply(ctx, "acc-1", 500, "1-0")
	require.NoError(t, err)
	assert.True(t, res.Applied)

	rec, err := s.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), rec.Funds)
	assert.Equal(t, []string{"1-0"}, rec.Timestamps)
}

func TestApplyAccumulatesDistinctTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Apply(ctx, "acc-2", 500, "1-0")
	require.NoError(t, err)
	_, err = s.Apply(ctx, "acc-2", -200, "2-0")
	require.NoError(t, err)

	rec, err := s.Get(ctx, "acc-2")
	require.NoError(t, err)
	assert.Equal(t, int64(300), rec.Funds)
}

// TestApplyIsIdempotentForRedeliveredTimestamp covers the projector's
// at-least-once replay guarantee at the view-store layer: re-applying
// the same timestamp must be a no-op, not a double-count.
func TestApplyIsIdempotentForRedeliveredTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Apply(ctx, "acc-3", 500, "1-0")
	require.NoError(t, err)
	res, err := s.Apply(ctx, "acc-3", 500, "1-0")
	require.NoError(t, err)
	assert.False(t, res.Applied, "a redelivered timestamp must report Applied=false")

	rec, err := s.Get(ctx, "acc-3")
	require.NoError(t, err)
	assert.Equal(t, int64(500), rec.Funds, "funds must not double-count a redelivered event")
}

// TestApplyConcurrentFirstInsertsConverge drives concurrent first-ever
// Applies for the same never-before-seen id, each with a distinct
// timestamp and upsert enabled: only one insert can create the document,
// and Apply's duplicate-key retry (upsert disabled, same conditional
// filter) must absorb the rest so every caller's delta still lands.
func TestApplyConcurrentFirstInsertsConverge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	start := make(chan struct{})
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = s.Apply(ctx, "acc-concurrent", 100, fmt.Sprintf("%d-0", i))
		}()
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	rec, err := s.Get(ctx, "acc-concurrent")
	require.NoError(t, err)
	assert.Equal(t, int64(100*n), rec.Funds, "every concurrent first-insert's delta must land exactly once")
	assert.Len(t, rec.Timestamps, n)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "acc-does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

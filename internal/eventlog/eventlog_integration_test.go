package eventlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"ledger/internal/domain/account"
)

// A single Redis testcontainer backs every test in this file, mirroring
// the package-wide shared-container pattern used by the integration
// suite under test/integration/testenv.
var (
	containerOnce sync.Once
	containerAddr string
	containerErr  error
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	containerOnce.Do(func() {
		ctx := context.Background()
		rc, err := tcredis.Run(ctx, "redis:7-alpine",
			testcontainers.WithWaitStrategy(
				wait.ForLog("Ready to accept connections").WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			containerErr = err
			return
		}
		uri, err := rc.ConnectionString(ctx)
		if err != nil {
			containerErr = err
			return
		}
		opts, err := redis.ParseURL(uri)
		if err != nil {
			containerErr = err
			return
		}
		containerAddr = opts.Addr
	})
	require.NoError(t, containerErr, "failed to start redis testcontainer")

	rdb := redis.NewClient(&redis.Options{Addr: containerAddr})
	// isolate every test onto its own stream/key namespace instead of
	// flushing the shared container between tests.
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return New(rdb)
}

func TestPublishCreateThenSequentialMutationsAdvanceVersion(t *testing.T) {
	c := newTestClient(t)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	stream := "stream-" + t.Name()
	id := "acc-sequential"

	created, err := c.Publish(ctx, stream, id, 0, account.EventCreate, 0)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(1), created.Version)

	deposited, err := c.Publish(ctx, stream, id, created.Version, account.EventDeposit, 500)
	require.NoError(t, err)
	require.NotNil(t, deposited)
	assert.Equal(t, int64(2), deposited.Version)

	withdrawn, err := c.Publish(ctx, stream, id, deposited.Version, account.EventWithdraw, 200)
	require.NoError(t, err)
	require.NotNil(t, withdrawn)
	assert.Equal(t, int64(3), withdrawn.Version)
}

// TestPublishRejectsStaleVersion covers spec.md's optimistic-concurrency
// rule directly: a publish against a version that is no longer current
// loses the race and comes back (nil, nil), never an error.
func TestPublishRejectsStaleVersion(t *testing.T) {
	c := newTestClient(t)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	stream := "stream-" + t.Name()
	id := "acc-stale"

	created, err := c.Publish(ctx, stream, id, 0, account.EventCreate, 0)
	require.NoError(t, err)
	require.NotNil(t, created)

	// a second writer, still believing the version is 0 (stale).
	lost, err := c.Publish(ctx, stream, id, 0, account.EventDeposit, 100)
	require.NoError(t, err)
	assert.Nil(t, lost, "a publish against an already-superseded version must lose the race, not error")

	// the winning writer can still proceed from the current version.
	won, err := c.Publish(ctx, stream, id, created.Version, account.EventDeposit, 100)
	require.NoError(t, err)
	require.NotNil(t, won)
	assert.Equal(t, int64(2), won.Version)
}

// TestPublishConcurrentWritersExactlyOneWins fires two genuinely
// concurrent deposits against the same freshly-created account and
// asserts exactly one of them advances the version -- the other must
// come back (nil, nil).
func TestPublishConcurrentWritersExactlyOneWins(t *testing.T) {
	c := newTestClient(t)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	stream := "stream-" + t.Name()
	id := "acc-race"

	created, err := c.Publish(ctx, stream, id, 0, account.EventCreate, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Published, 2)
	errs := make([]error, 2)
	start := make(chan struct{})
	wg.Add(2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = c.Publish(ctx, stream, id, created.Version, account.EventDeposit, 100)
		}()
	}
	close(start)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	wins := 0
	for _, r := range results {
		if r != nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one of two concurrent same-version publishes should win")
}

// TestPublishNonCreateAgainstMissingVersionKeyIsHardError resolves
// spec.md's version-key-bootstrap open question: a non-create publish
// for an id that has never been created has no version key to check
// against, and that must surface as a genuine backend error rather than
// a silent conflict.
func TestPublishNonCreateAgainstMissingVersionKeyIsHardError(t *testing.T) {
	c := newTestClient(t)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	stream := "stream-" + t.Name()

	_, err := c.Publish(ctx, stream, "acc-never-created", 0, account.EventDeposit, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionKeyMissing))
}

func TestGetFiltersByIDAndSinceTimestamp(t *testing.T) {
	c := newTestClient(t)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()
	stream := "stream-" + t.Name()

	_, err := c.Publish(ctx, stream, "acc-a", 0, account.EventCreate, 0)
	require.NoError(t, err)
	_, err = c.Publish(ctx, stream, "acc-b", 0, account.EventCreate, 0)
	require.NoError(t, err)
	depositA, err := c.Publish(ctx, stream, "acc-a", 1, account.EventDeposit, 250)
	require.NoError(t, err)

	all, err := c.Get(ctx, stream, "acc-a", "")
	require.NoError(t, err)
	require.Len(t, all, 2, "acc-a's own create and deposit, never acc-b's")

	since, err := c.Get(ctx, stream, "acc-a", all[0].Timestamp)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, depositA.Timestamp, since[0].Timestamp)
}

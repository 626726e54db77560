package testenv

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// backingContainers holds the Redis and Mongo testcontainers shared
// across the package's integration tests, started once and reused the
// way the teacher's postgres_container.go shares a single Postgres
// container via testContainerOnce.
var (
	redisContainer *tcredis.RedisContainer
	mongoContainer *tcmongodb.MongoDBContainer
	redisAddr      string
	mongoURI       string
	containersOnce sync.Once
	containersErr  error
)

// setupBackingContainers starts the Redis and Mongo testcontainers the
// ledger's event log and view store need, and is idempotent across the
// package's test files via sync.Once.
func setupBackingContainers(t *testing.T) {
	containersOnce.Do(func() {
		ctx := context.Background()

		rc, err := tcredis.Run(ctx, "redis:7-alpine",
			testcontainers.WithWaitStrategy(
				wait.ForLog("Ready to accept connections").WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			containersErr = fmt.Errorf("failed to start redis testcontainer: %w", err)
			return
		}
		redisContainer = rc

		redisURI, err := rc.ConnectionString(ctx)
		if err != nil {
			containersErr = fmt.Errorf("failed to get redis connection string: %w", err)
			return
		}
		redisOpts, err := redis.ParseURL(redisURI)
		if err != nil {
			containersErr = fmt.Errorf("failed to parse redis connection string: %w", err)
			return
		}
		redisAddr = redisOpts.Addr

		mc, err := tcmongodb.Run(ctx, "mongo:7")
		if err != nil {
			containersErr = fmt.Errorf("failed to start mongo testcontainer: %w", err)
			return
		}
		mongoContainer = mc

		uri, err := mc.ConnectionString(ctx)
		if err != nil {
			containersErr = fmt.Errorf("failed to get mongo connection string: %w", err)
			return
		}
		mongoURI = uri
	})

	require.NoError(t, containersErr, "failed to initialize backing testcontainers")
}

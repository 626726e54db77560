package testenv

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ledger/internal/api/routes"
	"ledger/internal/config"
	"ledger/internal/eventlog"
	"ledger/internal/pkg/logging"
	"ledger/internal/service"
	"ledger/internal/viewstore"
)

// SetupTestRouter wires a gin.Engine against a Service backed by the
// package's shared Redis and Mongo testcontainers, the way the
// teacher's SetupTestRouter wired a router against its Postgres
// repository. Each call gets its own Service (and so its own in-process
// aggregate cache) but the same underlying backing stores, mirroring
// the teacher's "database initialized once, router built per test".
func SetupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg, _, _, svc := newTestBackend(t)
	router := gin.New()
	routes.RegisterRoutes(router, cfg, svc)
	return router
}

// newTestBackend builds the Config, Redis client, ELC and Service a
// test router or TestContainer wires together, so both share one
// Service instance rather than standing up a second one against the
// same backing stores.
func newTestBackend(t *testing.T) (*config.Config, *redis.Client, *eventlog.Client, *service.Service) {
	t.Helper()
	setupBackingContainers(t)
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Stream: config.StreamConfig{
			Name:            "accountStream",
			ReadInterval:    time.Second,
			PendingInterval: 30 * time.Second,
		},
		CORS: config.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"*"},
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "json",
		},
	}
	logging.Init(cfg)

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	log := eventlog.New(rdb)
	svc := service.New(log, cfg.Stream.Name)

	t.Cleanup(func() {
		svc.Close()
	})

	return cfg, rdb, log, svc
}

// ConnectViewStore dials the shared Mongo testcontainer and returns a
// viewstore.Store, for the handful of integration tests that assert on
// the projector's read model rather than the write-side HTTP surface.
func ConnectViewStore(t *testing.T) *viewstore.Store {
	t.Helper()
	setupBackingContainers(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to mongo testcontainer: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})

	coll := client.Database("ledger").Collection(fmt.Sprintf("accountViews_%d", time.Now().UnixNano()))
	return viewstore.New(coll)
}

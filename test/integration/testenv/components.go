package testenv

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"ledger/internal/api/routes"
	"ledger/internal/config"
	"ledger/internal/eventlog"
	"ledger/internal/service"
)

// TestContainer is a lightweight stand-in for components.Container,
// built against the package's shared Redis/Mongo testcontainers instead
// of components.New()'s live environment lookups. Every call returns a
// fresh instance — it is never a package-level singleton, matching the
// decision recorded for components.Container itself.
type TestContainer struct {
	Config  *config.Config
	Redis   *redis.Client
	Log     *eventlog.Client
	Service *service.Service
	Router  *gin.Engine
}

// NewTestContainer builds a TestContainer wired against the shared
// backing testcontainers, registering routes the same way cmd/api's
// components.Container does.
func NewTestContainer(t *testing.T) *TestContainer {
	t.Helper()
	cfg, rdb, log, svc := newTestBackend(t)

	router := gin.New()
	routes.RegisterRoutes(router, cfg, svc)

	return &TestContainer{
		Config:  cfg,
		Redis:   rdb,
		Log:     log,
		Service: svc,
		Router:  router,
	}
}

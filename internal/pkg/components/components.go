// Package components wires the ledger's independently-lifecycled
// resources (config, logger, ELC, view store, Account Service, HTTP
// router) behind a Container, adapted from the teacher's
// Container/sync.Once GetInstance() pattern. Per spec.md §9's note on
// the source's module-level projector singleton, neither Container
// below is a package-level global: callers construct and own one.
package components

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ledger/internal/api/routes"
	"ledger/internal/config"
	"ledger/internal/eventlog"
	"ledger/internal/pkg/logging"
	"ledger/internal/projector"
	"ledger/internal/service"
	"ledger/internal/viewstore"
)

// Container holds the HTTP edge's components: the Account Service over
// a live ELC, and the gin router/server built against it.
type Container struct {
	Config  *config.Config
	Redis   *redis.Client
	Log     *eventlog.Client
	Service *service.Service
	Router  *gin.Engine
	Server  *http.Server
}

// New builds the HTTP edge's container: config, logger, Redis-backed
// ELC, Account Service, and a gin server wired against it.
func New() (*Container, error) {
	c := &Container{}

	c.Config = config.Load()
	logging.Init(c.Config)
	logging.Info("config loaded", map[string]interface{}{"listenPort": c.Config.Server.Port})

	c.Redis = redis.NewClient(&redis.Options{Addr: c.Config.Redis.Addr()})
	if err := c.Redis.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("components: connect redis: %w", err)
	}
	c.Log = eventlog.New(c.Redis)

	c.Service = service.New(c.Log, c.Config.Stream.Name)

	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	c.Router = gin.Default()
	routes.RegisterRoutes(c.Router, c.Config, c.Service)

	c.Server = &http.Server{
		Addr:           c.Config.Server.Host + ":" + c.Config.Server.Port,
		Handler:        c.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logging.Info("components initialized", nil)
	return c, nil
}

// Start serves HTTP requests until an interrupt or term signal arrives,
// then shuts down gracefully.
func (c *Container) Start() error {
	logging.Info("starting HTTP server", map[string]interface{}{"address": c.Server.Addr})

	go func() {
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("server failed to start", err, nil)
			os.Exit(1)
		}
	}()

	c.waitForShutdown()
	return nil
}

func (c *Container) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		logging.Error("forced shutdown", err, nil)
	}
	logging.Info("shutdown complete", nil)
}

// Shutdown stops the HTTP server and releases the ELC.
func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("components: server shutdown: %w", err)
	}
	if err := c.Service.Close(); err != nil {
		logging.Error("failed to close event log", err, nil)
	}
	return nil
}

// ProjectorContainer holds the Account Projector's components: a
// separate Redis connection and Mongo-backed view store, independent of
// the HTTP edge's Container, matching spec.md §9's instruction to inject
// rather than globally instantiate the projector's resources.
type ProjectorContainer struct {
	Config    *config.Config
	Redis     *redis.Client
	Log       *eventlog.Client
	Mongo     *mongo.Client
	ViewStore *viewstore.Store
	Projector *projector.Projector
}

// NewProjector builds the projector process's container: config (with
// the projector's 10s read-interval override), logger, ELC, Mongo view
// store, and the Projector wired against them.
func NewProjector() (*ProjectorContainer, error) {
	pc := &ProjectorContainer{}

	pc.Config = config.LoadProjector()
	logging.Init(pc.Config)

	pc.Redis = redis.NewClient(&redis.Options{Addr: pc.Config.Redis.Addr()})
	if err := pc.Redis.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("components: connect redis: %w", err)
	}
	pc.Log = eventlog.New(pc.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(pc.Config.ViewStore.URI))
	if err != nil {
		return nil, fmt.Errorf("components: connect mongo: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("components: ping mongo: %w", err)
	}
	pc.Mongo = mongoClient

	coll := mongoClient.Database(pc.Config.ViewStore.Database).Collection(pc.Config.ViewStore.Collection)
	pc.ViewStore = viewstore.New(coll)

	pc.Projector = projector.New(pc.Log, pc.ViewStore, pc.Config.Stream.Name, pc.Config.Stream.ReadInterval, pc.Config.Stream.PendingInterval)

	logging.Info("projector components initialized", map[string]interface{}{"consumer": pc.Projector.ConsumerName()})
	return pc, nil
}

// Start connects the projector and blocks until an interrupt or term
// signal arrives, then shuts down.
func (pc *ProjectorContainer) Start(ctx context.Context) error {
	if err := pc.Projector.Connect(ctx); err != nil {
		return fmt.Errorf("components: connect projector: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down projector", nil)
	return pc.Shutdown()
}

// Shutdown releases the projector's ELC and Mongo connections.
func (pc *ProjectorContainer) Shutdown() error {
	if err := pc.Projector.Close(); err != nil {
		logging.Error("failed to close projector", err, nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pc.Mongo.Disconnect(ctx); err != nil {
		return fmt.Errorf("components: mongo disconnect: %w", err)
	}
	return nil
}

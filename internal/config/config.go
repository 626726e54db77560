// Package config loads ledger configuration from the environment,
// adapted from the teacher's getEnv/getEnvAsInt/getEnvAsBool pattern and
// generalized to the fields spec.md §6's Configuration block names.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full set of environment-derived settings for the ledger
// processes (HTTP edge, projector, CLI).
type Config struct {
	Redis     RedisConfig
	ViewStore ViewStoreConfig
	Stream    StreamConfig
	Server    ServerConfig
	CORS      CORSConfig
	Logging   LoggingConfig
}

// RedisConfig addresses the event log backend.
type RedisConfig struct {
	Host string
	Port string
}

// Addr returns the host:port dial target go-redis expects.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// ViewStoreConfig addresses the Mongo-backed read model.
type ViewStoreConfig struct {
	URI        string
	Database   string
	Collection string
}

// StreamConfig names the event stream and tunes polling cadence.
type StreamConfig struct {
	Name            string
	ReadInterval    time.Duration
	PendingInterval time.Duration
}

type ServerConfig struct {
	Port string
	Host string
}

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the API-edge configuration: readInterval defaults to
// spec.md's 30s edge-read cadence (the projector overrides this itself
// via LoadProjector).
func Load() *Config {
	return load(30 * time.Second)
}

// LoadProjector reads configuration for the projector process, which
// polls the stream every 10s per spec.md §6 rather than the edge's 30s.
func LoadProjector() *Config {
	return load(10 * time.Second)
}

func load(defaultReadInterval time.Duration) *Config {
	return &Config{
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		ViewStore: ViewStoreConfig{
			URI:        getEnv("VIEWSTORE_URI", "mongodb://localhost:27017"),
			Database:   getEnv("VIEWSTORE_DATABASE", "ledger"),
			Collection: getEnv("VIEWSTORE_COLLECTION", "accountViews"),
		},
		Stream: StreamConfig{
			Name:            getEnv("STREAM_NAME", "accountStream"),
			ReadInterval:    getEnvAsDuration("READ_INTERVAL", defaultReadInterval),
			PendingInterval: getEnvAsDuration("PENDING_INTERVAL", 30*time.Second),
		},
		Server: ServerConfig{
			Port: getEnv("LISTEN_PORT", "8444"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowHeaders:     getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Accept"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(name string, defaultVal []string) []string {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	return strings.Split(valStr, ",")
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	if seconds, err := strconv.Atoi(valStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(valStr); err == nil {
		return d
	}
	return defaultVal
}

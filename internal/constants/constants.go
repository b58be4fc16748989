package constants

import (
	"net/http"
	"time"
)

// Database Constants
const (
	// PostgreSQL defaults
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	// Connection pool settings
	DefaultPostgresMaxConnections = 25
	DefaultPostgresMaxIdleConns   = 5
	DefaultSQLiteMaxConnections   = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns     = 1

	// Default table names
	DefaultRunsTable  = "smoke_runs"
	DefaultStepsTable = "smoke_steps"

	DefaultSQLitePath = "apismoke.db"
)

// Time and Duration Constants
const (
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute

	// DefaultRequestTimeout bounds every scenario request.
	DefaultRequestTimeout = 10 * time.Second
)

// Wait Configuration Constants
const (
	DefaultWaitTimeout  = 60 * time.Second
	DefaultWaitInterval = 2 * time.Second
	DefaultWaitStatus   = http.StatusOK
	DefaultWaitMethod   = http.MethodGet
)

// Config
const (
	EnvPrefix         = "APISMOKE"
	DefaultConfigPath = "./apismoke.yaml"
	DefaultBaseURL    = "http://localhost:3000"
)

package store

import (
	"github.com/loykin/apismoke/internal/store/postgresql"
	"github.com/loykin/apismoke/internal/store/sqlite"
)

// Driver names accepted in Config.Driver.
const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver           string `mapstructure:"type"`
	TablePrefix      string `mapstructure:"table_prefix"`
	SaveResponseBody bool   `mapstructure:"save_response_body"`
	SQLite           sqlite.Config
	Postgres         postgresql.Config
}

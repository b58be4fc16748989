package sqlite

import (
	"fmt"

	"github.com/loykin/apismoke/internal/constants"
	"github.com/loykin/apismoke/internal/util"
)

// Connection pragmas, in modernc.org/sqlite's _pragma query form.
const (
	busyTimeoutMS    = 5000
	foreignKeysParam = "_pragma=foreign_keys(1)"
)

type Config struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DSN returns the modernc.org/sqlite data source for Path, defaulting to apismoke.db.
func (c Config) DSN() string {
	path := util.TrimWithDefault(c.Path, constants.DefaultSQLitePath)
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&%s", path, busyTimeoutMS, foreignKeysParam)
}

package postgresql

import (
	"fmt"
	"net/url"

	"github.com/loykin/apismoke/internal/constants"
	"github.com/loykin/apismoke/internal/util"
)

type Config struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// BuildDSN prefers an explicit DSN; otherwise it builds one from the
// components when Host is set. It returns "" when neither is configured.
func (p Config) BuildDSN() string {
	if dsn, ok := util.TrimEmptyCheck(p.DSN); ok {
		return dsn
	}
	host, ok := util.TrimEmptyCheck(p.Host)
	if !ok {
		return ""
	}
	port := p.Port
	if port == 0 {
		port = constants.DefaultPostgresPort
	}
	ssl := util.TrimWithDefault(p.SSLMode, constants.DefaultPostgresSSLMode)

	fields := util.TrimSpaceFields(p.User, p.Password, p.DBName)
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(fields[0], fields[1]),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + fields[2],
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}
	return u.String()
}

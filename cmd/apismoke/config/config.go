package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/constants"
	"github.com/loykin/apismoke/internal/httpc"
	"github.com/loykin/apismoke/internal/report"
	"github.com/loykin/apismoke/internal/scenario"
	"github.com/loykin/apismoke/internal/store"
	"github.com/loykin/apismoke/internal/store/postgresql"
	"github.com/loykin/apismoke/internal/store/sqlite"
	"github.com/loykin/apismoke/internal/util"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Keys bound to command line flags.
const (
	KeyConfig  = "config"
	KeyBaseURL = "base_url"
)

type CredentialsConfig struct {
	Username string `mapstructure:"username" yaml:"username" validate:"required"`
	Password string `mapstructure:"password" yaml:"password" validate:"required"`
}

type ProductConfig struct {
	Name        string  `mapstructure:"name" yaml:"name" validate:"required"`
	Type        string  `mapstructure:"type" yaml:"type"`
	SKU         string  `mapstructure:"sku" yaml:"sku" validate:"required"`
	UniqueSKU   bool    `mapstructure:"unique_sku" yaml:"unique_sku"`
	ImageURL    string  `mapstructure:"image_url" yaml:"image_url" validate:"omitempty,url"`
	Description string  `mapstructure:"description" yaml:"description"`
	Quantity    int     `mapstructure:"quantity" yaml:"quantity" validate:"gte=0"`
	Price       float64 `mapstructure:"price" yaml:"price" validate:"gte=0"`
}

type UpdateConfig struct {
	Quantity int `mapstructure:"quantity" yaml:"quantity" validate:"gte=0"`
}

type ListConfig struct {
	Page  int `mapstructure:"page" yaml:"page" validate:"gte=0"`
	Limit int `mapstructure:"limit" yaml:"limit" validate:"gte=0"`
}

type ClientConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	Insecure      bool          `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string        `mapstructure:"min_tls_version" yaml:"min_tls_version" validate:"omitempty,tls_version"`
	MaxTLSVersion string        `mapstructure:"max_tls_version" yaml:"max_tls_version" validate:"omitempty,tls_version"`
}

type WaitConfig struct {
	URL      string        `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	Method   string        `mapstructure:"method" yaml:"method" validate:"omitempty,oneof=GET HEAD"`
	Status   int           `mapstructure:"status" yaml:"status" validate:"omitempty,gte=100,lte=599"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=0"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=error warn warning info debug"`
	Format        string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json color colour"`
	MaskSensitive bool   `mapstructure:"mask_sensitive" yaml:"mask_sensitive"`
	Color         *bool  `mapstructure:"color" yaml:"color,omitempty"`
}

type ReportConfig struct {
	Format        string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	MaskSensitive bool   `mapstructure:"mask_sensitive" yaml:"mask_sensitive"`
	Color         *bool  `mapstructure:"color" yaml:"color,omitempty"`
}

type StoreConfig struct {
	Disabled         bool              `mapstructure:"disabled" yaml:"disabled"`
	Type             string            `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=sqlite postgres postgresql"`
	SaveResponseBody bool              `mapstructure:"save_response_body" yaml:"save_response_body"`
	TablePrefix      string            `mapstructure:"table_prefix" yaml:"table_prefix"`
	SQLite           sqlite.Config     `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres         postgresql.Config `mapstructure:"postgres" yaml:"postgres"`
}

type ConfigDoc struct {
	BaseURL     string            `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Product     ProductConfig     `mapstructure:"product" yaml:"product"`
	Update      UpdateConfig      `mapstructure:"update" yaml:"update"`
	List        ListConfig        `mapstructure:"list" yaml:"list"`
	Client      ClientConfig      `mapstructure:"client" yaml:"client"`
	Wait        WaitConfig        `mapstructure:"wait" yaml:"wait"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Report      ReportConfig      `mapstructure:"report" yaml:"report"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
}

// SetDefaults registers every leaf key with its default so that APISMOKE_*
// environment variables can override keys missing from the file.
func SetDefaults(v *viper.Viper) {
	f := scenario.DefaultFixture()
	v.SetDefault(KeyConfig, constants.DefaultConfigPath)
	v.SetDefault(KeyBaseURL, constants.DefaultBaseURL)

	v.SetDefault("credentials.username", f.Credentials.Username)
	v.SetDefault("credentials.password", f.Credentials.Password)

	v.SetDefault("product.name", f.Product.Name)
	v.SetDefault("product.type", f.Product.Type)
	v.SetDefault("product.sku", f.Product.SKU)
	v.SetDefault("product.unique_sku", false)
	v.SetDefault("product.image_url", f.Product.ImageURL)
	v.SetDefault("product.description", f.Product.Description)
	v.SetDefault("product.quantity", f.Product.Quantity)
	v.SetDefault("product.price", f.Product.Price)
	v.SetDefault("update.quantity", f.UpdateQuantity)
	v.SetDefault("list.page", 0)
	v.SetDefault("list.limit", 0)

	v.SetDefault("client.timeout", constants.DefaultRequestTimeout)
	v.SetDefault("client.insecure", false)
	v.SetDefault("client.min_tls_version", "")
	v.SetDefault("client.max_tls_version", "")

	v.SetDefault("wait.url", "")
	v.SetDefault("wait.method", constants.DefaultWaitMethod)
	v.SetDefault("wait.status", constants.DefaultWaitStatus)
	v.SetDefault("wait.timeout", constants.DefaultWaitTimeout)
	v.SetDefault("wait.interval", constants.DefaultWaitInterval)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.mask_sensitive", true)

	v.SetDefault("report.format", string(report.FormatText))
	v.SetDefault("report.mask_sensitive", true)

	v.SetDefault("store.disabled", true)
	v.SetDefault("store.type", store.DriverSqlite)
	v.SetDefault("store.save_response_body", false)
	v.SetDefault("store.table_prefix", "")
	v.SetDefault("store.sqlite.path", constants.DefaultSQLitePath)
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.host", "")
	v.SetDefault("store.postgres.port", constants.DefaultPostgresPort)
	v.SetDefault("store.postgres.user", "")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.dbname", "")
	v.SetDefault("store.postgres.sslmode", constants.DefaultPostgresSSLMode)
}

// BindEnv makes APISMOKE_<KEY> (dots become underscores) override any key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the file named by the "config" key, layers env and flags over
// it and decodes the result. A missing file is an error only when the path
// was chosen explicitly.
func Load(v *viper.Viper) (*ConfigDoc, error) {
	path := strings.TrimSpace(v.GetString(KeyConfig))
	if path != "" {
		clean := filepath.Clean(path)
		info, statErr := os.Stat(clean)
		switch {
		case statErr == nil && !info.Mode().IsRegular():
			return nil, fmt.Errorf("not a regular file: %s", clean)
		case statErr == nil:
			v.SetConfigFile(clean)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", clean, err)
			}
		case errors.Is(statErr, os.ErrNotExist) && isDefaultPath(clean):
			// running with built-in defaults
		default:
			return nil, statErr
		}
	}

	doc := &ConfigDoc{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(doc, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	doc.normalize()
	return doc, nil
}

func isDefaultPath(p string) bool {
	return p == filepath.Clean(constants.DefaultConfigPath)
}

func (c *ConfigDoc) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Wait.URL = strings.TrimSpace(c.Wait.URL)
	c.Wait.Method = strings.ToUpper(strings.TrimSpace(c.Wait.Method))
	c.Logging.Level = util.TrimAndLower(c.Logging.Level)
	c.Logging.Format = util.TrimAndLower(c.Logging.Format)
	c.Report.Format = util.TrimAndLower(c.Report.Format)
	c.Store.Type = util.TrimAndLower(c.Store.Type)
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("tls_version", func(fl validator.FieldLevel) bool {
			return parseTLSVersion(fl.Field().String()) != 0
		})
		validateInst = v
	})
	return validateInst
}

// Validate checks the document and returns every problem found, one per joined error.
func (c *ConfigDoc) Validate() error {
	var problems []error
	if err := validatorInstance().Struct(c); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			problems = append(problems, fmt.Errorf("%s failed validation for tag '%s'", yamlishFieldName(fe), fe.Tag()))
		}
	}
	if minV, maxV := parseTLSVersion(c.Client.MinTLSVersion), parseTLSVersion(c.Client.MaxTLSVersion); minV != 0 && maxV != 0 && minV > maxV {
		problems = append(problems, errors.New("client.min_tls_version is greater than client.max_tls_version"))
	}
	if !c.Store.Disabled && (c.Store.Type == store.DriverPostgres || c.Store.Type == "postgresql") && c.Store.Postgres.BuildDSN() == "" {
		problems = append(problems, errors.New("store.postgres requires dsn or host"))
	}
	return errors.Join(problems...)
}

// yamlishFieldName turns ConfigDoc.client.min_tls_version into client.min_tls_version.
func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// parseTLSVersion converts a TLS version string to the corresponding crypto/tls constant.
// Supports various formats: "1.0", "10", "tls1.0", "tls10", etc.
// Returns 0 if the version string is not recognized.
func parseTLSVersion(version string) uint16 {
	switch util.TrimAndLower(version) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	default:
		return 0
	}
}

// TLSConfig builds the client TLS settings; nil when nothing was configured.
func (c ClientConfig) TLSConfig() *tls.Config {
	minV := parseTLSVersion(c.MinTLSVersion)
	maxV := parseTLSVersion(c.MaxTLSVersion)
	if !c.Insecure && minV == 0 && maxV == 0 {
		return nil
	}
	cfg := &tls.Config{MinVersion: minV, MaxVersion: maxV}
	if c.Insecure {
		// #nosec G402 -- self-signed test deployments, only when explicitly configured
		cfg.InsecureSkipVerify = true
	}
	return cfg
}

// Httpc returns the client factory for the scenario.
func (c *ConfigDoc) Httpc() *httpc.Httpc {
	return &httpc.Httpc{
		BaseURL:   c.BaseURL,
		Timeout:   c.Client.Timeout,
		TlsConfig: c.Client.TLSConfig(),
	}
}

// Fixture converts the document into scenario payloads.
func (c *ConfigDoc) Fixture() scenario.Fixture {
	return scenario.Fixture{
		Credentials: scenario.Credentials{
			Username: c.Credentials.Username,
			Password: c.Credentials.Password,
		},
		Product: scenario.Product{
			Name:        c.Product.Name,
			Type:        c.Product.Type,
			SKU:         c.Product.SKU,
			ImageURL:    c.Product.ImageURL,
			Description: c.Product.Description,
			Quantity:    c.Product.Quantity,
			Price:       c.Product.Price,
		},
		UpdateQuantity: c.Update.Quantity,
		UniqueSKU:      c.Product.UniqueSKU,
		List:           scenario.ListOptions{Page: c.List.Page, Limit: c.List.Limit},
	}
}

// StoreConfig returns the history store settings; ok is false when disabled.
func (c *ConfigDoc) StoreConfig() (cfg store.Config, ok bool) {
	if c.Store.Disabled {
		return store.Config{}, false
	}
	return store.Config{
		Driver:           c.Store.Type,
		TablePrefix:      c.Store.TablePrefix,
		SaveResponseBody: c.Store.SaveResponseBody,
		SQLite:           c.Store.SQLite,
		Postgres:         c.Store.Postgres,
	}, true
}

// ReportOptions returns the reporter format and options for writing to a
// terminal-aware destination; useColor reflects auto-detection on that writer.
func (c *ConfigDoc) ReportOptions(useColor bool) (report.Format, report.Options, error) {
	format, err := report.ParseFormat(c.Report.Format)
	if err != nil {
		return "", report.Options{}, err
	}
	opts := report.Options{Color: useColor}
	if c.Report.Color != nil {
		opts.Color = *c.Report.Color
	}
	if c.Report.MaskSensitive {
		opts.Masker = common.NewMasker()
	}
	return format, opts, nil
}

func (c *ConfigDoc) parseLogLevel() (common.LogLevel, error) {
	level, ok := common.ParseLogLevel(c.Logging.Level)
	if !ok {
		return common.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
	return level, nil
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	var logger *common.Logger
	format := util.TrimAndLower(c.Logging.Format)

	useColor := false
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	} else if format == "color" || format == "colour" {
		useColor = true
	}

	switch format {
	case "json":
		logger = common.NewJSONLogger(level)
	case "color", "colour":
		logger = common.NewColorLogger(level)
	case "text", "":
		if useColor {
			logger = common.NewColorLogger(level)
		} else {
			logger = common.NewLogger(level)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	logger.EnableMasking(c.Logging.MaskSensitive)
	common.SetDefaultLogger(logger)
	common.EnableMasking(c.Logging.MaskSensitive)

	logger.Info("logging configured",
		"level", util.TrimWithDefault(c.Logging.Level, "info"),
		"format", format,
		"color", useColor,
		"mask_sensitive", c.Logging.MaskSensitive)
	return nil
}

// MarshalMasked renders the effective configuration as YAML with secrets hidden.
func (c *ConfigDoc) MarshalMasked() ([]byte, error) {
	cp := *c
	if cp.Credentials.Password != "" {
		cp.Credentials.Password = common.MaskedValue
	}
	if cp.Store.Postgres.Password != "" {
		cp.Store.Postgres.Password = common.MaskedValue
	}
	if u, err := url.Parse(cp.Store.Postgres.DSN); err == nil && u.User != nil {
		cp.Store.Postgres.DSN = u.Redacted()
	}
	return yaml.Marshal(&cp)
}

// Package config loads truckbook settings from flag defaults, an optional
// YAML file and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// MinTokenSecretLen is the shortest accepted HS256 signing secret.
const MinTokenSecretLen = 32

type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Password PasswordConfig `koanf:"password"`
	Token    TokenConfig    `koanf:"token"`
	Log      LogConfig      `koanf:"log"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

type HTTPConfig struct {
	Addr          string `koanf:"addr"`
	SecureCookies bool   `koanf:"secure_cookies"`
}

// MetricsConfig addresses the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite or postgres
	DSN    string `koanf:"dsn"`
}

type SessionConfig struct {
	Store           string        `koanf:"store"` // memory, database or bolt
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	BoltPath        string        `koanf:"bolt_path"`
	CookieName      string        `koanf:"cookie_name"`
}

type PasswordConfig struct {
	Scheme     string `koanf:"scheme"` // bcrypt or argon2id
	BcryptCost int    `koanf:"bcrypt_cost"`
}

// TokenConfig configures API bearer tokens. An empty Secret disables the
// JSON API.
type TokenConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// TracingConfig names the OTLP/HTTP collector. An empty Endpoint disables
// span export.
type TracingConfig struct {
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

type LogConfig struct {
	Format     string `koanf:"format"` // text or json
	Level      string `koanf:"level"`
	File       string `koanf:"file"` // empty logs to stdout
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// RegisterFlags adds one flag per key to fs. Flag defaults are the
// configuration defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http.addr", ":8080", "address the site listens on")
	fs.Bool("http.secure_cookies", false, "mark session cookies Secure (requires HTTPS)")
	fs.String("metrics.addr", "127.0.0.1:9100", "address of the metrics and health listener, empty to disable")
	fs.String("database.driver", "sqlite", "account database driver: sqlite or postgres")
	fs.String("database.dsn", "file:truckbook.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", "account database DSN")
	fs.String("session.store", "database", "session store: memory, database or bolt")
	fs.Duration("session.ttl", models.DefaultSessionTTL, "session lifetime")
	fs.Duration("session.cleanup_interval", 10*time.Minute, "how often expired sessions are purged")
	fs.String("session.bolt_path", "sessions.db", "bbolt file used when session.store is bolt")
	fs.String("session.cookie_name", "session_token", "name of the session cookie")
	fs.String("password.scheme", "bcrypt", "password hash for new secrets: bcrypt or argon2id")
	fs.Int("password.bcrypt_cost", passwd.DefaultCost, "bcrypt work factor")
	fs.String("token.secret", "", "HS256 secret for API tokens, empty disables the JSON API")
	fs.Duration("token.ttl", 15*time.Minute, "API token lifetime")
	fs.String("log.format", "text", "log format: text or json")
	fs.String("log.level", "info", "minimum log level")
	fs.String("log.file", "", "log file, rotated by size; empty logs to stdout")
	fs.Int("log.max_size_mb", 100, "rotate the log file after this many megabytes")
	fs.Int("log.max_backups", 3, "rotated log files to keep")
	fs.String("tracing.endpoint", "", "OTLP/HTTP collector URL for spans, empty disables tracing")
	fs.String("tracing.service_name", "truckbook", "service.name reported with spans")
}

// Load reads path, if set, and then the flags of fs. fs must have been
// passed to RegisterFlags. Only flags the user changed override the file.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrapf(err, "reading config file")
		}
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "reading flags")
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration with no file and no flags.
func Default() *Config {
	fs := pflag.NewFlagSet("defaults", pflag.ContinueOnError)
	RegisterFlags(fs)
	cfg, err := Load("", fs)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.HTTP.Addr == "" {
		bad("http.addr is required")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		bad("database.driver %q: want sqlite or postgres", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		bad("database.dsn is required")
	}

	switch c.Session.Store {
	case "memory", "database":
	case "bolt":
		if c.Session.BoltPath == "" {
			bad("session.bolt_path is required when session.store is bolt")
		}
	default:
		bad("session.store %q: want memory, database or bolt", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		bad("session.ttl must be positive")
	}
	if c.Session.CleanupInterval <= 0 {
		bad("session.cleanup_interval must be positive")
	}
	if c.Session.CookieName == "" {
		bad("session.cookie_name is required")
	}

	switch c.Password.Scheme {
	case "bcrypt":
		if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
			bad("password.bcrypt_cost %d: want %d-%d", c.Password.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	case "argon2id":
	default:
		bad("password.scheme %q: want bcrypt or argon2id", c.Password.Scheme)
	}

	if c.Token.Secret != "" && len(c.Token.Secret) < MinTokenSecretLen {
		bad("token.secret must be at least %d bytes", MinTokenSecretLen)
	}
	if c.Token.TTL <= 0 {
		bad("token.ttl must be positive")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		bad("log.format %q: want text or json", c.Log.Format)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		bad("log.level %q: %v", c.Log.Level, err)
	}

	if c.Tracing.Endpoint != "" {
		u, err := url.Parse(c.Tracing.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			bad("tracing.endpoint %q: want an http or https URL", c.Tracing.Endpoint)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").Wrap(errors.Join(errs...))
}

// APIEnabled reports whether bearer tokens can be issued.
func (c *Config) APIEnabled() bool {
	return c.Token.Secret != ""
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "truckbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	want := &Config{
		HTTP:    HTTPConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:truckbook.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on",
		},
		Session: SessionConfig{
			Store:           "database",
			TTL:             24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
			BoltPath:        "sessions.db",
			CookieName:      "session_token",
		},
		Password: PasswordConfig{Scheme: "bcrypt", BcryptCost: 12},
		Token:    TokenConfig{TTL: 15 * time.Minute},
		Log:      LogConfig{Format: "text", Level: "info", MaxSizeMB: 100, MaxBackups: 3},
		Tracing:  TracingConfig{ServiceName: "truckbook"},
	}

	got := Default()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Default() mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.APIEnabled())
}

func TestFileThenFlags(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":9000"
  secure_cookies: true
database:
  driver: postgres
  dsn: postgres://truckbook@localhost/truckbook
session:
  ttl: 2h
token:
  secret: 0123456789abcdef0123456789abcdef
`)

	cfg, err := Load(path, newFlags(t, "--http.addr=:9999", "--password.scheme=argon2id"))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr, "flags override the file")
	assert.True(t, cfg.HTTP.SecureCookies)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "argon2id", cfg.Password.Scheme)
	assert.Equal(t, "session_token", cfg.Session.CookieName, "unset keys keep their defaults")
	assert.True(t, cfg.APIEnabled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), newFlags(t))
	require.Error(t, err)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, `database.driver "mysql"`},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn is required"},
		{"unknown session store", func(c *Config) { c.Session.Store = "redis" }, `session.store "redis"`},
		{"bolt without path", func(c *Config) { c.Session.Store = "bolt"; c.Session.BoltPath = "" }, "session.bolt_path is required"},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }, "session.ttl must be positive"},
		{"bcrypt cost too low", func(c *Config) { c.Password.BcryptCost = 2 }, "password.bcrypt_cost 2"},
		{"unknown scheme", func(c *Config) { c.Password.Scheme = "md5" }, `password.scheme "md5"`},
		{"short secret", func(c *Config) { c.Token.Secret = "short" }, "token.secret must be at least 32 bytes"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, `log.level "loud"`},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, `log.format "xml"`},
		{"collector url", func(c *Config) { c.Tracing.Endpoint = "http://otel-collector:4318" }, ""},
		{"collector without scheme", func(c *Config) { c.Tracing.Endpoint = "otel-collector:4318" }, `tracing.endpoint "otel-collector:4318"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Addr = ""
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.addr is required")
	assert.Contains(t, err.Error(), `log.format "xml"`)
}

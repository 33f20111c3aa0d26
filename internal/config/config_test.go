package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "JWT_SECRET", "TOKEN_TTL", "BCRYPT_COST", "CONFIG_FILE"} {
		t.Setenv(key, "")
	}
	// keep a stray .env in the package dir out of the picture
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	assert.Equal(t, testSecret, cfg.JWTSecret)
}

func TestLoad_MissingSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", DriverSQLite)
	t.Setenv("DATABASE_URL", "tasks.db")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "tasks.db", cfg.DatabaseURL)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 4, cfg.BcryptCost)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
server:
  port: "7070"
store:
  driver: sqlite
  database_url: file.db
auth:
  jwt_secret: ` + testSecret + `
  token_ttl: 48h
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "6060", cfg.Port, "env wins over file")
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "file.db", cfg.DatabaseURL)
	assert.Equal(t, 48*time.Hour, cfg.TokenTTL)
}

func TestLoad_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("TOKEN_TTL", "a week")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreDriver: DriverPostgres,
			DatabaseURL: "postgres://localhost/db",
			JWTSecret:   testSecret,
			TokenTTL:    time.Hour,
			BcryptCost:  bcrypt.MinCost,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "short" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mysql" }, wantErr: true},
		{name: "empty dsn", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.TokenTTL = 0 }, wantErr: true},
		{name: "cost too high", mutate: func(c *Config) { c.BcryptCost = bcrypt.MaxCost + 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

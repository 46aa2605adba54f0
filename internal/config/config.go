// Package config loads the backoffice service configuration. Values are
// layered: built-in defaults, then an optional YAML file, then environment
// variables (highest precedence). A .env file is honored when present so
// local development matches deployment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Upload   UploadConfig   `yaml:"upload"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"BACKOFFICE_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"BACKOFFICE_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"BACKOFFICE_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"BACKOFFICE_SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"BACKOFFICE_CORS_ORIGINS"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"BACKOFFICE_RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"BACKOFFICE_RATE_LIMIT_BURST"`
}

// DatabaseConfig controls the Postgres store. An empty URL selects the
// in-memory store, which is only suitable for development and tests.
type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"BACKOFFICE_DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"BACKOFFICE_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"BACKOFFICE_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"BACKOFFICE_DB_CONN_MAX_LIFETIME"`
	Migrate         bool          `yaml:"migrate" env:"BACKOFFICE_DB_MIGRATE"`
}

// RedisConfig controls the token blacklist backend. An empty address keeps
// the blacklist in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"BACKOFFICE_REDIS_ADDR"`
	Password string `yaml:"password" env:"BACKOFFICE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"BACKOFFICE_REDIS_DB"`
}

// URL renders the config as a redis:// URL for clients that parse one.
func (r RedisConfig) URL() string {
	u := url.URL{Scheme: "redis", Host: r.Addr, Path: fmt.Sprintf("/%d", r.DB)}
	if r.Password != "" {
		u.User = url.UserPassword("", r.Password)
	}
	return u.String()
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"BACKOFFICE_JWT_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"BACKOFFICE_ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"BACKOFFICE_REFRESH_TOKEN_TTL"`
	Issuer          string        `yaml:"issuer" env:"BACKOFFICE_JWT_ISSUER"`
}

// UploadConfig controls the image upload endpoint.
type UploadConfig struct {
	Dir      string `yaml:"dir" env:"BACKOFFICE_UPLOAD_DIR"`
	MaxBytes int64  `yaml:"max_bytes" env:"BACKOFFICE_UPLOAD_MAX_BYTES"`
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"BACKOFFICE_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"BACKOFFICE_LOG_PRETTY"`
}

// DevJWTSecret is used when no secret is configured. Startup logs a warning
// when it is in effect; production deployments must set their own.
const DevJWTSecret = "backoffice-dev-secret"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":9999",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Migrate:         true,
		},
		Auth: AuthConfig{
			AccessTokenTTL:  4 * time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			Issuer:          "backoffice",
		},
		Upload: UploadConfig{
			Dir:      "uploads",
			MaxBytes: 5 << 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load assembles the configuration. path may be empty; a missing file at an
// explicitly given path is an error, a missing default file is not.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fills gaps left by partial files and rejects unusable values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":9999"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.RateLimitRPS <= 0 {
		c.Server.RateLimitRPS = 50
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 100
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database: max_idle_conns %d exceeds max_open_conns %d",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = DevJWTSecret
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 4 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "backoffice"
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 5 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

// UsingDevSecret reports whether the insecure development secret is active.
func (c *Config) UsingDevSecret() bool {
	return c.Auth.JWTSecret == DevJWTSecret
}

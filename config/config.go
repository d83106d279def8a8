package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int            `yaml:"port"`
	Debug           bool           `yaml:"debug"`
	APIPrefix       string         `yaml:"api_prefix"`
	AllowedOrigins  []string       `yaml:"allowed_origins"`
	RateLimitPerSec float64        `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int            `yaml:"rate_limit_burst"`
	CacheTTLSeconds int            `yaml:"cache_ttl_seconds"`
	Timezone        string         `yaml:"timezone"`
	Location        *time.Location `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	SlowQueryMS            int    `yaml:"slow_query_ms"`
}

// AuthConfig holds token signing and password hashing settings.
type AuthConfig struct {
	SecretKey                string         `yaml:"secret_key"`
	AccessTokenExpireMinutes int            `yaml:"access_token_expire_minutes"`
	RefreshTokenExpireDays   int            `yaml:"refresh_token_expire_days"`
	BcryptCost               int            `yaml:"bcrypt_cost"`
	BootstrapAdmin           BootstrapAdmin `yaml:"bootstrap_admin"`
}

// BootstrapAdmin describes the administrator created on first start.
type BootstrapAdmin struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenExpireDays) * 24 * time.Hour
}

// AlertsConfig holds the machine health thresholds.
type AlertsConfig struct {
	SyncDelayMinutes  int `yaml:"sync_delay_minutes"`
	OfflineGraceHours int `yaml:"offline_grace_hours"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path. A missing file is not an
// error as long as the environment supplies the required values.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		cfg.Auth.SecretKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Debug = debug
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, origin)
			}
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.APIPrefix == "" {
		cfg.Server.APIPrefix = "/v1"
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.Timezone == "" {
		cfg.Server.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		return fmt.Errorf("invalid server.timezone %q: %w", cfg.Server.Timezone, err)
	}
	cfg.Server.Location = loc

	if cfg.Database.DSN == "" {
		return errors.New("database.dsn (or DATABASE_URL) is required")
	}
	if cfg.Database.SlowQueryMS <= 0 {
		cfg.Database.SlowQueryMS = 200
	}

	if cfg.Auth.SecretKey == "" {
		return errors.New("auth.secret_key (or SECRET_KEY) is required")
	}
	if cfg.Auth.AccessTokenExpireMinutes <= 0 {
		cfg.Auth.AccessTokenExpireMinutes = 30
	}
	if cfg.Auth.RefreshTokenExpireDays <= 0 {
		cfg.Auth.RefreshTokenExpireDays = 7
	}
	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 10
	}

	if cfg.Alerts.SyncDelayMinutes <= 0 {
		cfg.Alerts.SyncDelayMinutes = 30
	}
	if cfg.Alerts.OfflineGraceHours < 0 {
		cfg.Alerts.OfflineGraceHours = 0
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	return nil
}

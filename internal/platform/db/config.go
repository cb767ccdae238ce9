package db

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "config/config.yaml"

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Path     string `yaml:"path"` // sqlite file, ":memory:" for tests
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// APIConfig points at the library backend.
type APIConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwtSecret"`
	SessionTTL    time.Duration `yaml:"sessionTTL"`
	RedisAddr     string        `yaml:"redisAddr"` // empty keeps revoked sessions in memory
	RedisPassword string        `yaml:"redisPassword"`
}

type LedgerConfig struct {
	LoanDays        int    `yaml:"loanDays"`
	FinePerDay      string `yaml:"finePerDay"`
	CurrencySymbol  string `yaml:"currencySymbol"`
	RestockOnReturn bool   `yaml:"restockOnReturn"`
}

// Fine returns FinePerDay as a decimal. Validated on load.
func (l LedgerConfig) Fine() decimal.Decimal {
	d, err := decimal.NewFromString(l.FinePerDay)
	if err != nil {
		return decimal.NewFromInt(5)
	}
	return d
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Port        string         `yaml:"port"`
	LogLevel    string         `yaml:"logLevel"`
	Timezone    string         `yaml:"timezone"`
	API         APIConfig      `yaml:"api"`
	Auth        AuthConfig     `yaml:"auth"`
	Ledger      LedgerConfig   `yaml:"ledger"`
	CORS        CORSConfig     `yaml:"cors"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
}

// LoadConfig reads the YAML file, applies LIBDESK_* environment overrides and
// defaults, then validates.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// 優先順位: 環境変数 > config.yaml > 既定値
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves Timezone. Empty means the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("LIBDESK_MODE", &cfg.Mode)
	str("LIBDESK_PORT", &cfg.Port)
	str("LIBDESK_LOG_LEVEL", &cfg.LogLevel)
	str("LIBDESK_TIMEZONE", &cfg.Timezone)
	str("LIBDESK_API_BASE_URL", &cfg.API.BaseURL)
	str("LIBDESK_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("LIBDESK_REDIS_ADDR", &cfg.Auth.RedisAddr)
	str("LIBDESK_REDIS_PASSWORD", &cfg.Auth.RedisPassword)
	str("LIBDESK_FINE_PER_DAY", &cfg.Ledger.FinePerDay)
	str("LIBDESK_DB_DRIVER", &cfg.DB.Driver)
	str("LIBDESK_DB_HOST", &cfg.DB.Host)
	str("LIBDESK_DB_USER", &cfg.DB.Username)
	str("LIBDESK_DB_PASSWORD", &cfg.DB.Password)
	str("LIBDESK_DB_NAME", &cfg.DB.DBName)
	str("LIBDESK_DB_PATH", &cfg.DB.Path)

	if v := os.Getenv("LIBDESK_DB_PORT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.DB.Port = n
		}
	}
	if v := os.Getenv("LIBDESK_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			cfg.API.Timeout = d
		}
	}
	if v := os.Getenv("LIBDESK_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			cfg.Auth.SessionTTL = d
		}
	}
	if v := os.Getenv("LIBDESK_RESTOCK_ON_RETURN"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Ledger.RestockOnReturn = b
		}
	}
	if v := os.Getenv("LIBDESK_CORS_ALLOW_ORIGINS"); v != "" {
		cfg.CORS.AllowOrigins = splitCSV(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "dev"
	}
	if cfg.Port == "" {
		cfg.Port = "8443"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 8 * time.Hour
	}
	if cfg.Ledger.LoanDays == 0 {
		cfg.Ledger.LoanDays = 14
	}
	if cfg.Ledger.FinePerDay == "" {
		cfg.Ledger.FinePerDay = "5"
	}
	if cfg.Ledger.CurrencySymbol == "" {
		cfg.Ledger.CurrencySymbol = "$"
	}
	// DB 未指定なら手元の SQLite（開発用）
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "sqlite"
	}
	if cfg.DB.Driver == "sqlite" && cfg.DB.Path == "" {
		cfg.DB.Path = "libdesk.db"
	}
	if len(cfg.CORS.AllowOrigins) == 0 {
		cfg.CORS.AllowOrigins = []string{"http://localhost:3000"}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		return fmt.Errorf("config: mode must be dev or release, got %q", cfg.Mode)
	}
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return errors.New("config: api.baseURL is required (set in config.yaml or LIBDESK_API_BASE_URL)")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwtSecret is required (set in config.yaml or LIBDESK_JWT_SECRET)")
	}
	// 本番では短い鍵を許さない
	if cfg.Mode == "release" && len(cfg.Auth.JWTSecret) < 32 {
		return errors.New("config: auth.jwtSecret must be at least 32 bytes in release mode")
	}
	if cfg.Ledger.LoanDays < 1 {
		return errors.New("config: ledger.loanDays must be >= 1")
	}
	fine, err := decimal.NewFromString(cfg.Ledger.FinePerDay)
	if err != nil {
		return fmt.Errorf("config: ledger.finePerDay: %w", err)
	}
	if fine.IsNegative() {
		return errors.New("config: ledger.finePerDay must be >= 0")
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	switch cfg.DB.Driver {
	case "sqlite":
	case "mysql":
		if cfg.DB.Host == "" || cfg.DB.DBName == "" {
			return errors.New("config: database.host and database.dbname are required for mysql")
		}
	default:
		return fmt.Errorf("config: database.driver must be mysql or sqlite, got %q", cfg.DB.Driver)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	FrontendURL    string        `yaml:"frontend_url"` // base of certificate verification links
	// TrustedProxies lists addresses or CIDRs allowed to report the client
	// address in X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// TrustedPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (s ServerConfig) TrustedPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: invalid entry %q", raw)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	Gateway        string `yaml:"gateway"` // name recorded on payments
	KeyID          string `yaml:"key_id"`
	KeySecret      string `yaml:"key_secret"` // shared HMAC secret for callback signatures
	Currency       string `yaml:"currency"`
	TaxBasisPoints int64  `yaml:"tax_basis_points"` // 1800 = 18%
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"` // lifetime of tokens minted by cmd/seed
}

type RateLimitConfig struct {
	VerifyPerMinute int `yaml:"verify_per_minute"`
}

type SchedulerConfig struct {
	ExpiryCheckCron   string        `yaml:"expiry_check_cron"`
	StalePaymentCron  string        `yaml:"stale_payment_cron"`
	PendingPaymentTTL time.Duration `yaml:"pending_payment_ttl"` // pending checkouts older than this are failed
	PoolStatsCron     string        `yaml:"pool_stats_cron"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the
// environment (a .env file next to the binary is loaded first if present),
// applies defaults and validates the minimum required settings.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse builds a Config from raw YAML plus environment overrides.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = "http://localhost:3000"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Payment.Gateway == "" {
		cfg.Payment.Gateway = "razorpay"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "INR"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "viep"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.RateLimit.VerifyPerMinute <= 0 {
		cfg.RateLimit.VerifyPerMinute = 60
	}
	if cfg.Scheduler.ExpiryCheckCron == "" {
		cfg.Scheduler.ExpiryCheckCron = "@every 1h"
	}
	if cfg.Scheduler.StalePaymentCron == "" {
		cfg.Scheduler.StalePaymentCron = "@every 15m"
	}
	if cfg.Scheduler.PendingPaymentTTL <= 0 {
		cfg.Scheduler.PendingPaymentTTL = 24 * time.Hour
	}
	if cfg.Scheduler.PoolStatsCron == "" {
		cfg.Scheduler.PoolStatsCron = "@every 30s"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Payment.KeySecret == "" {
		return nil, errors.New("payment.key_secret is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if _, err := cfg.Server.TrustedPrefixes(); err != nil {
		return nil, err
	}
	if cfg.Payment.TaxBasisPoints < 0 {
		return nil, errors.New("payment.tax_basis_points must not be negative")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv lets deployments keep secrets out of the YAML file.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GATEWAY_KEY_SECRET"); v != "" {
		cfg.Payment.KeySecret = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("FRONTEND_URL")); v != "" {
		cfg.Server.FrontendURL = v
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	PublicBaseURL   string        `yaml:"public_base_url"` // used for proof-upload and instruction pages
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
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

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type XenditConfig struct {
	SecretKey    string `yaml:"secret_key"`
	BaseURL      string `yaml:"base_url"`
	WebhookToken string `yaml:"webhook_token"`
	SuccessURL   string `yaml:"success_url"`
	FailureURL   string `yaml:"failure_url"`
	CompanyCode  string `yaml:"va_company_code"`
}

type UniqueCodeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Type    string `yaml:"type"` // add | subtract
	Min     int64  `yaml:"min"`
	Max     int64  `yaml:"max"`
}

type PaymentConfig struct {
	Xendit      XenditConfig     `yaml:"xendit"`
	ExpiryHours int              `yaml:"expiry_hours"`
	MinAmount   int64            `yaml:"min_amount"`
	MaxAmount   int64            `yaml:"max_amount"`
	UniqueCode  UniqueCodeConfig `yaml:"unique_code"`
}

func (p PaymentConfig) Expiry() time.Duration {
	return time.Duration(p.ExpiryHours) * time.Hour
}

type CheckoutConfig struct {
	Cooldown       time.Duration `yaml:"cooldown"`
	AttemptsPerMin int           `yaml:"attempts_per_minute"`
	ActivationLock time.Duration `yaml:"activation_lock_ttl"`
}

type ChannelEndpoint struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	AppID   string `yaml:"app_id"`
	Sender  string `yaml:"sender"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Token       string `yaml:"token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type NotificationConfig struct {
	Workers      int             `yaml:"workers"`
	MaxAttempts  int             `yaml:"max_attempts"`
	RetryBackoff time.Duration   `yaml:"retry_backoff"`
	BatchDelay   time.Duration   `yaml:"batch_delay"`
	Language     string          `yaml:"language"`
	Email        ChannelEndpoint `yaml:"email"`
	Push         ChannelEndpoint `yaml:"push"`
	WhatsApp     ChannelEndpoint `yaml:"whatsapp"`
	Telegram     TelegramConfig  `yaml:"telegram"`
}

type RevenueConfig struct {
	AdminPct     int64 `yaml:"admin_pct"`
	FounderPct   int64 `yaml:"founder_pct"`
	CoFounderPct int64 `yaml:"cofounder_pct"`
}

type SchedConfig struct {
	ExpirySweep    bool          `yaml:"expiry_sweep"`
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
	ExpiryBatch    int           `yaml:"expiry_batch"`
}

type Config struct {
	HTTP          HTTPConfig         `yaml:"http"`
	Log           LogConfig          `yaml:"log"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Auth          AuthConfig         `yaml:"auth"`
	Payment       PaymentConfig      `yaml:"payment"`
	Checkout      CheckoutConfig     `yaml:"checkout"`
	Notifications NotificationConfig `yaml:"notifications"`
	Revenue       RevenueConfig      `yaml:"revenue"`
	Sched         SchedConfig        `yaml:"sched"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 15 * time.Second
	}
	if c.HTTP.RateLimitRPS <= 0 {
		c.HTTP.RateLimitRPS = 20
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 40
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)

	if c.Payment.Xendit.BaseURL == "" {
		c.Payment.Xendit.BaseURL = "https://api.xendit.co"
	}
	if c.Payment.Xendit.CompanyCode == "" {
		c.Payment.Xendit.CompanyCode = "88088"
	}
	if c.Payment.ExpiryHours <= 0 {
		c.Payment.ExpiryHours = 72
	}
	if c.Payment.MinAmount <= 0 {
		c.Payment.MinAmount = 10000
	}
	if c.Payment.MaxAmount <= 0 {
		c.Payment.MaxAmount = 100000000
	}
	if c.Payment.UniqueCode.Type == "" {
		c.Payment.UniqueCode.Type = "add"
	}
	if c.Payment.UniqueCode.Min <= 0 {
		c.Payment.UniqueCode.Min = 1
	}
	if c.Payment.UniqueCode.Max <= 0 {
		c.Payment.UniqueCode.Max = 999
	}

	if c.Checkout.Cooldown <= 0 {
		c.Checkout.Cooldown = 5 * time.Minute
	}
	if c.Checkout.AttemptsPerMin <= 0 {
		c.Checkout.AttemptsPerMin = 10
	}
	if c.Checkout.ActivationLock <= 0 {
		c.Checkout.ActivationLock = 30 * time.Second
	}

	if c.Notifications.Workers <= 0 {
		c.Notifications.Workers = 4
	}
	if c.Notifications.MaxAttempts <= 0 {
		c.Notifications.MaxAttempts = 3
	}
	if c.Notifications.RetryBackoff <= 0 {
		c.Notifications.RetryBackoff = 2 * time.Second
	}
	if c.Notifications.BatchDelay <= 0 {
		c.Notifications.BatchDelay = 500 * time.Millisecond
	}
	if c.Notifications.Language == "" {
		c.Notifications.Language = "id"
	}

	if c.Revenue.AdminPct == 0 && c.Revenue.FounderPct == 0 && c.Revenue.CoFounderPct == 0 {
		c.Revenue = RevenueConfig{AdminPct: 15, FounderPct: 60, CoFounderPct: 40}
	}

	if c.Sched.ExpiryInterval <= 0 {
		c.Sched.ExpiryInterval = 10 * time.Minute
	}
	if c.Sched.ExpiryBatch <= 0 {
		c.Sched.ExpiryBatch = 200
	}
}

// Minimal validation
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Payment.Xendit.WebhookToken == "" && !c.Runtime.Dev {
		return errors.New("payment.xendit.webhook_token is required outside dev mode")
	}
	switch strings.ToLower(c.Payment.UniqueCode.Type) {
	case "add", "subtract":
	default:
		return fmt.Errorf("payment.unique_code.type must be add or subtract, got %q", c.Payment.UniqueCode.Type)
	}
	if c.Payment.UniqueCode.Min > c.Payment.UniqueCode.Max {
		return errors.New("payment.unique_code.min must not exceed max")
	}
	if c.Payment.MinAmount > c.Payment.MaxAmount {
		return errors.New("payment.min_amount must not exceed max_amount")
	}
	if c.Revenue.FounderPct+c.Revenue.CoFounderPct != 100 {
		return errors.New("revenue.founder_pct and revenue.cofounder_pct must add up to 100")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

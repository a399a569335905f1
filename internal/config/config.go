package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Staff     StaffConfig     `yaml:"staff"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Ads       AdsConfig       `yaml:"ads"`
	Funding   FundingConfig   `yaml:"funding"`
	Placement PlacementConfig `yaml:"placement"`
	Session   SessionConfig   `yaml:"session"`
	Events    EventsConfig    `yaml:"events"`
	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings. Driver "memory"
// keeps all state in process for local runs.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// JWTConfig contains API token settings
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	AccessTokenExpiry  int    `yaml:"access_token_expiry_minutes"`
	IntegrationKeyHash string `yaml:"integration_key_hash"` // bcrypt hash of the chat front-end key
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// TelegramConfig holds the bot token and the fixed destination chats.
type TelegramConfig struct {
	Token            string `yaml:"token"`
	MarketingChatID  int64  `yaml:"marketing_chat_id"`
	ExchangeChatID   int64  `yaml:"exchange_chat_id"`
	ModerationChatID int64  `yaml:"moderation_chat_id"`
}

type StaffConfig struct {
	AccountIDs []int64 `yaml:"account_ids"`
}

// PricingConfig values are decimal strings.
type PricingConfig struct {
	BatchMarkingFee  string `yaml:"batch_marking_fee"`
	SingleMarkingFee string `yaml:"single_marking_fee"`
	PinMultiplier    string `yaml:"pin_multiplier"`
}

type AdsConfig struct {
	LifetimeDays        int `yaml:"lifetime_days"`
	ExtensionWindowDays int `yaml:"extension_window_days"`
}

type FundingConfig struct {
	MinWithdrawal string `yaml:"min_withdrawal"`
}

type PlacementConfig struct {
	RepostIntervalMinutes int `yaml:"repost_interval_minutes"`
	RepostBatchSize       int `yaml:"repost_batch_size"`
	// RepostMaxFailures consecutive failed publications consume a run.
	RepostMaxFailures int `yaml:"repost_max_failures"`
}

// SessionConfig selects where staged placement carts live.
type SessionConfig struct {
	Backend    string `yaml:"backend"` // "memory" or "redis"
	TTLMinutes int    `yaml:"ttl_minutes"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
}

// EventsConfig enables RabbitMQ domain events when AMQPURL is set.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// EmailConfig enables SendGrid staff alerts when APIKey is set.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromAddress    string `yaml:"from_address"`
	FromName       string `yaml:"from_name"`
	StaffAddress   string `yaml:"staff_address"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	PublishDueReposts string `yaml:"publish_due_reposts"`
	ExpireStaleAds    string `yaml:"expire_stale_ads"`
	LiftExpiredBans   string `yaml:"lift_expired_bans"`
	SweepSessions     string `yaml:"sweep_sessions"`
}

// Load reads configuration from a YAML file. A .env file next to the working
// directory is applied to the environment first when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			fmt.Sscanf(val, "%d", dst)
		}
	}
	setInt64 := func(key string, dst *int64) {
		if val := os.Getenv(key); val != "" {
			fmt.Sscanf(val, "%d", dst)
		}
	}

	// Database
	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_HOST", &c.Database.Host)
	setInt("DB_PORT", &c.Database.Port)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Database)
	setString("DB_SSL_MODE", &c.Database.SSLMode)

	// Server
	setString("SERVER_HOST", &c.Server.Host)
	setInt("SERVER_PORT", &c.Server.Port)
	setInt("GRPC_PORT", &c.Server.GRPCPort)

	// JWT
	setString("JWT_SECRET", &c.JWT.Secret)
	setString("INTEGRATION_KEY_HASH", &c.JWT.IntegrationKeyHash)

	// Telegram
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.Token)
	setInt64("TELEGRAM_MARKETING_CHAT_ID", &c.Telegram.MarketingChatID)
	setInt64("TELEGRAM_EXCHANGE_CHAT_ID", &c.Telegram.ExchangeChatID)
	setInt64("TELEGRAM_MODERATION_CHAT_ID", &c.Telegram.ModerationChatID)

	// Staff ids arrive as a comma separated list
	if val := os.Getenv("STAFF_ACCOUNT_IDS"); val != "" {
		c.Staff.AccountIDs = parseIDList(val)
	}

	// Session / events / email
	setString("SESSION_BACKEND", &c.Session.Backend)
	setString("REDIS_ADDR", &c.Session.RedisAddr)
	setString("AMQP_URL", &c.Events.AMQPURL)
	setString("SENDGRID_API_KEY", &c.Email.SendGridAPIKey)
	setString("STAFF_EMAIL", &c.Email.StaffAddress)

	// Log
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func parseIDList(val string) []int64 {
	var ids []int64
	for _, part := range strings.Split(val, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.Port + 1
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Staff validation
	if len(c.Staff.AccountIDs) == 0 {
		return fmt.Errorf("at least one staff account id is required")
	}

	// Pricing defaults
	if c.Pricing.BatchMarkingFee == "" {
		c.Pricing.BatchMarkingFee = "350"
	}
	if c.Pricing.SingleMarkingFee == "" {
		c.Pricing.SingleMarkingFee = "50"
	}
	if c.Pricing.PinMultiplier == "" {
		c.Pricing.PinMultiplier = "1.6"
	}
	for name, val := range map[string]string{
		"batch_marking_fee":  c.Pricing.BatchMarkingFee,
		"single_marking_fee": c.Pricing.SingleMarkingFee,
		"pin_multiplier":     c.Pricing.PinMultiplier,
	} {
		d, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("invalid pricing %s %q: %w", name, val, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("pricing %s must not be negative", name)
		}
	}

	// Ads defaults
	if c.Ads.LifetimeDays == 0 {
		c.Ads.LifetimeDays = 30
	}
	if c.Ads.ExtensionWindowDays == 0 {
		c.Ads.ExtensionWindowDays = 5
	}
	if c.Ads.ExtensionWindowDays >= c.Ads.LifetimeDays {
		return fmt.Errorf("extension window (%d days) must be shorter than ad lifetime (%d days)", c.Ads.ExtensionWindowDays, c.Ads.LifetimeDays)
	}

	// Funding defaults
	if c.Funding.MinWithdrawal == "" {
		c.Funding.MinWithdrawal = "100"
	}
	if _, err := decimal.NewFromString(c.Funding.MinWithdrawal); err != nil {
		return fmt.Errorf("invalid min withdrawal %q: %w", c.Funding.MinWithdrawal, err)
	}

	// Placement defaults
	if c.Placement.RepostIntervalMinutes == 0 {
		c.Placement.RepostIntervalMinutes = 1440
	}
	if c.Placement.RepostBatchSize == 0 {
		c.Placement.RepostBatchSize = 500
	}
	if c.Placement.RepostMaxFailures == 0 {
		c.Placement.RepostMaxFailures = 5
	}
	if c.Placement.RepostIntervalMinutes < 0 {
		return fmt.Errorf("repost interval must be positive, got %d minutes", c.Placement.RepostIntervalMinutes)
	}
	if c.Placement.RepostBatchSize < 0 {
		return fmt.Errorf("repost batch size must be positive, got %d", c.Placement.RepostBatchSize)
	}
	if c.Placement.RepostMaxFailures < 0 {
		return fmt.Errorf("repost max failures must be positive, got %d", c.Placement.RepostMaxFailures)
	}

	// Session defaults
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		return fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Session.RedisAddr == "" {
		return fmt.Errorf("redis address is required for the redis session backend")
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 30
	}

	// Events defaults
	if c.Events.Exchange == "" {
		c.Events.Exchange = "marketplace.events"
	}

	// Email validation
	if c.Email.SendGridAPIKey != "" && (c.Email.FromAddress == "" || c.Email.StaffAddress == "") {
		return fmt.Errorf("email from and staff addresses are required when SendGrid is enabled")
	}

	// Scheduler defaults
	if c.Scheduler.PublishDueReposts == "" {
		c.Scheduler.PublishDueReposts = "@every 60s"
	}
	if c.Scheduler.ExpireStaleAds == "" {
		c.Scheduler.ExpireStaleAds = "0 0 * * * *" // hourly
	}
	if c.Scheduler.LiftExpiredBans == "" {
		c.Scheduler.LiftExpiredBans = "0 */10 * * * *" // every 10 minutes
	}
	if c.Scheduler.SweepSessions == "" {
		c.Scheduler.SweepSessions = "0 */5 * * * *"
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) AdLifetime() time.Duration {
	return time.Duration(c.Ads.LifetimeDays) * 24 * time.Hour
}

func (c *Config) ExtensionWindow() time.Duration {
	return time.Duration(c.Ads.ExtensionWindowDays) * 24 * time.Hour
}

func (c *Config) RepostInterval() time.Duration {
	return time.Duration(c.Placement.RepostIntervalMinutes) * time.Minute
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// Decimal values below were checked by Validate.

func (c *Config) BatchMarkingFee() decimal.Decimal {
	return decimal.RequireFromString(c.Pricing.BatchMarkingFee)
}

func (c *Config) SingleMarkingFee() decimal.Decimal {
	return decimal.RequireFromString(c.Pricing.SingleMarkingFee)
}

func (c *Config) PinMultiplier() decimal.Decimal {
	return decimal.RequireFromString(c.Pricing.PinMultiplier)
}

func (c *Config) MinWithdrawal() decimal.Decimal {
	return decimal.RequireFromString(c.Funding.MinWithdrawal)
}

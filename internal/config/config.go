package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Payment  PaymentConfig
	Checkout CheckoutConfig
	Notify   NotifyConfig
	Redis    RedisConfig
	Media    MediaConfig
	S3       S3Config
	Import   ImportConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Database        string        `env:"DB_NAME" envDefault:"shopfront"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConnections  int           `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	MinConnections  int           `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	TraceQueries    bool          `env:"DB_TRACE_QUERIES" envDefault:"false"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "console"
}

// AuthConfig holds authentication configuration. APIKey guards the admin
// surface; JWTSecret verifies bearer tokens minted by the identity provider.
type AuthConfig struct {
	APIKey    string `env:"API_KEY"`
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_JWT_ISSUER"`
}

// PaymentConfig holds payment processor webhook configuration.
type PaymentConfig struct {
	Provider           string        `env:"PAYMENT_PROVIDER" envDefault:"stripe"`
	WebhookSecret      string        `env:"PAYMENT_WEBHOOK_SECRET"`
	SignatureTolerance time.Duration `env:"PAYMENT_SIGNATURE_TOLERANCE" envDefault:"5m"`
	MaxBodyBytes       int64         `env:"PAYMENT_MAX_BODY_BYTES" envDefault:"65536"`
}

// CheckoutConfig holds pricing policy.
type CheckoutConfig struct {
	TaxRate           decimal.Decimal `env:"CHECKOUT_TAX_RATE" envDefault:"0.18"`
	ShippingFee       decimal.Decimal `env:"CHECKOUT_SHIPPING_FEE" envDefault:"0"`
	FreeShippingAbove decimal.Decimal `env:"CHECKOUT_FREE_SHIPPING_ABOVE" envDefault:"0"`
	Currency          string          `env:"CHECKOUT_CURRENCY" envDefault:"inr"`
}

// NotifyConfig holds push gateway configuration.
type NotifyConfig struct {
	GatewayURL  string        `env:"NOTIFY_GATEWAY_URL" envDefault:"https://exp.host/--/api/v2/push/send"`
	AccessToken string        `env:"NOTIFY_ACCESS_TOKEN"`
	Timeout     time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	BatchSize   int           `env:"NOTIFY_BATCH_SIZE" envDefault:"100"`
}

// RedisConfig holds the active-offer cache configuration.
type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Addr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	OfferTTL time.Duration `env:"REDIS_OFFER_TTL" envDefault:"30s"`
}

// MediaConfig holds image CDN configuration for offer banners.
type MediaConfig struct {
	CloudinaryURL string `env:"CLOUDINARY_URL"`
	Folder        string `env:"MEDIA_FOLDER" envDefault:"offers"`
}

// Enabled reports whether banner uploads are configured.
func (c MediaConfig) Enabled() bool {
	return c.CloudinaryURL != ""
}

// S3Config holds AWS S3 configuration for offer import files.
type S3Config struct {
	Enabled bool   `env:"S3_ENABLED" envDefault:"false"`
	Bucket  string `env:"S3_BUCKET"`
	Region  string `env:"S3_REGION" envDefault:"us-east-1"`
	Prefix  string `env:"S3_PREFIX" envDefault:"offers/"` // Path prefix within bucket
}

// ImportConfig lists gzipped offer definition files applied at start-up.
type ImportConfig struct {
	Files []string `env:"OFFER_IMPORT_FILES" envSeparator:","`
}

// Load loads configuration from environment variables, reading a .env file
// first when one is present.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Database.MaxConnLifetime < time.Minute {
		return fmt.Errorf("database connection lifetime too short: %s", c.Database.MaxConnLifetime)
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment webhook secret is required")
	}

	if c.Payment.SignatureTolerance <= 0 {
		return fmt.Errorf("payment signature tolerance must be positive")
	}

	if c.Checkout.TaxRate.IsNegative() || c.Checkout.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid tax rate: %s (must be in [0, 1))", c.Checkout.TaxRate)
	}

	if c.Checkout.ShippingFee.IsNegative() || c.Checkout.FreeShippingAbove.IsNegative() {
		return fmt.Errorf("shipping amounts cannot be negative")
	}

	if c.Notify.BatchSize < 1 || c.Notify.BatchSize > 100 {
		return fmt.Errorf("invalid notify batch size: %d (must be between 1 and 100)", c.Notify.BatchSize)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL URL with credentials escaped.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

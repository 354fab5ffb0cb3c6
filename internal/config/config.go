package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	LogLevel  string
	LogFormat string

	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime time.Duration

	// APIKey is compared verbatim; APIKeyHash is a bcrypt hash of the key.
	// When both are empty the API key gate is disabled.
	APIKey     string
	APIKeyHash string
	JWTSecret  string

	Stripe   StripeConfig
	SendGrid SendGridConfig
	Twilio   TwilioConfig
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	ReturnBaseURL string
}

func (c StripeConfig) Enabled() bool {
	return c.SecretKey != ""
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

func (c SendGridConfig) Enabled() bool {
	return c.APIKey != "" && c.FromEmail != ""
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// Load loads configuration from environment variables and .env files.
func Load() Config {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_NAME", "invoiceapi"),
		AppVersion:  getenv("APP_VERSION", "1.0.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		Port:            getenv("PORT", "8080"),
		ReadTimeout:     getenvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getenvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getenvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:     getenvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "postgres"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DB_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		APIKey:     strings.TrimSpace(os.Getenv("API_KEY")),
		APIKeyHash: strings.TrimSpace(os.Getenv("API_KEY_BCRYPT")),
		JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),

		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
			WebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
			Currency:      strings.ToLower(getenv("STRIPE_CURRENCY", "usd")),
			ReturnBaseURL: strings.TrimRight(getenv("PAYMENT_RETURN_BASE_URL", "https://yourapp.com/payment"), "/"),
		},
		SendGrid: SendGridConfig{
			APIKey:    strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
			FromEmail: strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL")),
			FromName:  getenv("SENDGRID_FROM_NAME", "Invoice System"),
		},
		Twilio: TwilioConfig{
			AccountSID: strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
			AuthToken:  strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
			FromNumber: strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		},
	}
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// DSN builds the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Validate reports settings that must be present in production.
func (c Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.APIKey == "" && c.APIKeyHash == "" {
		return fmt.Errorf("API_KEY or API_KEY_BCRYPT is required in production")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Stripe.Enabled() && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string, def []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppPort        = "8080"
	defaultCurrency       = "inr"
	defaultGatewayTimeout = 15 * time.Second
	defaultExchange       = "storefront.notifications"
	defaultClientOrigin   = "http://localhost:5173"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	GatewayTimeout      time.Duration
	ClientOrigin        string

	RabbitMQURL    string
	NotifyExchange string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	ContactInbox string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() *Config {
	cfg := FromEnvFile()
	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

// FromEnvFile loads .env when present and reads the environment without
// validating it. Workers that need no database start from here.
func FromEnvFile() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the configuration from the process environment without
// loading any .env file and without validating it.
func FromEnv() *Config {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    envOr("APP_PORT", defaultAppPort),
		AppEnv:     os.Getenv("APP_ENV"),
		JWTSecret:  os.Getenv("JWT_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      envOr("STRIPE_CURRENCY", defaultCurrency),
		GatewayTimeout:      durationOr("GATEWAY_TIMEOUT", defaultGatewayTimeout),
		ClientOrigin:        envOr("CLIENT_ORIGIN", defaultClientOrigin),

		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		NotifyExchange: envOr("NOTIFY_EXCHANGE", defaultExchange),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     intOr("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     envOr("MAIL_FROM", os.Getenv("SMTP_USER")),
		ContactInbox: envOr("CONTACT_INBOX", os.Getenv("SMTP_USER")),

		AdminName:     envOr("ADMIN_NAME", "Seller"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

// durationOr accepts Go duration strings ("10s") or a plain number of seconds.
func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("invalid %s=%q, using %s", key, v, fallback)
	return fallback
}

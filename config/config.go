package config

import (
	"fmt"
	"os"
	"strings"
)

// Config collects everything main wires together. All values come from the
// environment (godotenv loads a .env file first, see main).
type Config struct {
	Port string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	// Raw-body HMAC secret for webhook deliveries.
	WebhookSecret string
	// Gateway API credentials for charge retrieval.
	GatewayAPIKey  string
	GatewayAPIBase string

	// Optional: fast-path event dedup.
	RedisAddr string

	// Notifier selection: "kafka", "smtp" or "log" (default).
	Notifier     string
	KafkaBrokers []string
	KafkaTopic   string
	SMTPAddr     string
	SMTPFrom     string
	SMTPUser     string
	SMTPPassword string
}

func FromEnv() Config {
	cfg := Config{
		Port:           getenv("PORT", "8080"),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         getenv("DB_PORT", "5432"),
		WebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		GatewayAPIKey:  os.Getenv("STRIPE_SECRET_KEY"),
		GatewayAPIBase: os.Getenv("STRIPE_API_BASE"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		Notifier:       getenv("NOTIFIER", "log"),
		KafkaTopic:     os.Getenv("KAFKA_EMAIL_TOPIC"),
		SMTPAddr:       os.Getenv("SMTP_ADDR"),
		SMTPFrom:       os.Getenv("SMTP_FROM"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
	}
	if brokers := getenv("KAFKA_BROKER", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

// DSN builds the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	WhatsApp    WhatsAppConfig
	Marketplace MarketplaceConfig
	Booking     BookingConfig
	Payment     PaymentConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	CORS        CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port          string
	Environment   string // development, staging, production
	LogLevel      string // debug, info, warn, error
	PublicBaseURL string // used to build links sent to clients
	WriteTimeout  time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	Driver             string // "postgres" (lib/pq) or "pgx"
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds the shared secret used to verify staff tokens
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// WhatsAppConfig holds Twilio WhatsApp configuration
type WhatsAppConfig struct {
	Mode       string // "dev" logs messages, "production" sends them
	APIURL     string
	AccountSID string
	AuthToken  string
	FromNumber string
}

// MarketplaceConfig holds the third-party charter marketplace API configuration
type MarketplaceConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	OwnerID string
	Timeout time.Duration
	// InlineBudget bounds the forwarding call made before the intake response
	InlineBudget time.Duration
}

// BookingConfig holds booking policy. BOOKING_POLICY_FILE can override it from YAML.
type BookingConfig struct {
	PaymentWindow      time.Duration
	ReferencePrefix    string
	DefaultCountryCode string
	SweepSchedule      string
	SweepBatchSize     int
	DedupeWindow       time.Duration
	PolicyFile         string
	ConfirmationSecret string // signs QR confirmation payloads
	HookWorkers        int    // background post-commit workers
	HookQueueSize      int
}

// PaymentConfig holds payment link signing configuration
type PaymentConfig struct {
	LinkBaseURL   string
	MerchantKey   string
	MerchantToken string // SECRET - never expose to client
	Currency      string
}

// RedisConfig holds Redis configuration for the submission guard
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds booking event stream configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			Environment:   getEnv("ENVIRONMENT", "development"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			WriteTimeout:  getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Driver:             getEnv("DB_DRIVER", "postgres"),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "emptyleg-staff"),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		WhatsApp: WhatsAppConfig{
			Mode:       getEnv("WHATSAPP_MODE", "dev"),
			APIURL:     getEnv("TWILIO_API_URL", ""),
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_WHATSAPP_FROM", ""),
		},
		Marketplace: MarketplaceConfig{
			Enabled: getEnvAsBool("MARKETPLACE_FORWARDING_ENABLED", true),
			BaseURL: getEnv("MARKETPLACE_API_URL", ""),
			APIKey:  getEnv("MARKETPLACE_API_KEY", ""),
			OwnerID: getEnv("MARKETPLACE_OWNER_ID", ""),
			Timeout:      getEnvAsDuration("MARKETPLACE_TIMEOUT", 15*time.Second),
			InlineBudget: getEnvAsDuration("MARKETPLACE_INLINE_BUDGET", 4*time.Second),
		},
		Booking: BookingConfig{
			PaymentWindow:      getEnvAsDuration("BOOKING_PAYMENT_WINDOW", 3*time.Hour),
			ReferencePrefix:    getEnv("BOOKING_REFERENCE_PREFIX", "EL"),
			DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "1"),
			SweepSchedule:      getEnv("BOOKING_SWEEP_SCHEDULE", "0 */5 * * * *"),
			SweepBatchSize:     getEnvAsInt("BOOKING_SWEEP_BATCH_SIZE", 100),
			DedupeWindow:       getEnvAsDuration("QUOTE_DEDUPE_WINDOW", 30*time.Second),
			PolicyFile:         getEnv("BOOKING_POLICY_FILE", ""),
			ConfirmationSecret: getEnv("CONFIRMATION_SIGNING_SECRET", ""),
			HookWorkers:        getEnvAsInt("BOOKING_HOOK_WORKERS", 4),
			HookQueueSize:      getEnvAsInt("BOOKING_HOOK_QUEUE_SIZE", 256),
		},
		Payment: PaymentConfig{
			LinkBaseURL:   getEnv("PAYMENT_LINK_BASE_URL", ""),
			MerchantKey:   getEnv("PAYMENT_MERCHANT_KEY", ""),
			MerchantToken: getEnv("PAYMENT_MERCHANT_TOKEN", ""),
			Currency:      getEnv("PAYMENT_CURRENCY", "USD"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "booking-events"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	if config.Booking.PolicyFile != "" {
		if err := LoadBookingPolicy(config.Booking.PolicyFile, &config.Booking); err != nil {
			return nil, err
		}
	}

	if config.Payment.LinkBaseURL == "" {
		config.Payment.LinkBaseURL = config.Server.PublicBaseURL + "/pay"
	}

	if config.Booking.ConfirmationSecret == "" {
		config.Booking.ConfirmationSecret = config.JWT.Secret
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "pgx" {
		return fmt.Errorf("invalid DB_DRIVER: %s (must be 'postgres' or 'pgx')", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.PaymentWindow <= 0 {
		return fmt.Errorf("BOOKING_PAYMENT_WINDOW must be positive")
	}

	if c.Booking.SweepBatchSize <= 0 {
		return fmt.Errorf("BOOKING_SWEEP_BATCH_SIZE must be positive")
	}

	if c.WhatsApp.Mode == "production" {
		if c.WhatsApp.AccountSID == "" || c.WhatsApp.AuthToken == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required in production mode")
		}
		if c.WhatsApp.FromNumber == "" {
			return fmt.Errorf("TWILIO_WHATSAPP_FROM is required in production mode")
		}
	} else if c.WhatsApp.Mode != "dev" {
		return fmt.Errorf("invalid WHATSAPP_MODE: %s (must be 'dev' or 'production')", c.WhatsApp.Mode)
	}

	if c.Marketplace.Enabled && c.Marketplace.BaseURL != "" && c.Marketplace.APIKey == "" {
		return fmt.Errorf("MARKETPLACE_API_KEY is required when MARKETPLACE_API_URL is set")
	}

	// Forwarding runs before the intake response is written
	if c.Server.WriteTimeout > 0 && c.Marketplace.InlineBudget*2 > c.Server.WriteTimeout {
		return fmt.Errorf("MARKETPLACE_INLINE_BUDGET must be at most half of SERVER_WRITE_TIMEOUT")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("3h", "90s")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	OSM      OSMConfig
	Stripe   StripeConfig
	SMTP     SMTPConfig
	S3       S3Config
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// OSMConfig covers both Nominatim (geocoding) and Overpass (area search).
// Nominatim's usage policy requires an identifying User-Agent and contact.
type OSMConfig struct {
	UserAgent    string
	ContactEmail string
	NominatimURL string
	CacheSize    int
	CacheTTL     time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	SuccessURL    string
	CancelURL     string
	PriceBase     string
	PriceMid      string
	PriceTop      string
}

type SMTPConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	FromEmail string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "nearify"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m")),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		OSM: OSMConfig{
			UserAgent:    getEnv("OSM_USER_AGENT", "Nearify/1.0 (contact: noreplynearify@gmail.com)"),
			ContactEmail: getEnv("OSM_CONTACT_EMAIL", ""),
			NominatimURL: getEnv("OSM_NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			CacheSize:    parseInt(getEnv("OSM_CACHE_SIZE", "512"), 512),
			CacheTTL:     parseDuration(getEnv("OSM_CACHE_TTL", "10m")),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			BaseURL:       getEnv("STRIPE_BASE_URL", "https://api.stripe.com/v1"),
			SuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/?sub=success"),
			CancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/?sub=cancel"),
			PriceBase:     getEnv("STRIPE_PRICE_BASE", ""),
			PriceMid:      getEnv("STRIPE_PRICE_MID", ""),
			PriceTop:      getEnv("STRIPE_PRICE_TOP", ""),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:      getEnv("SMTP_PORT", "587"),
			User:      getEnv("SMTP_EMAIL", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("DEFAULT_FROM_EMAIL", "Nearify <noreplynearify@gmail.com>"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "nearify-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate fails fast on missing required values instead of deferring the
// failure to the first request that needs them.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		if c.Server.Environment != "development" {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		c.JWT.Secret = "dev-only-secret"
		log.Println("JWT_SECRET not set, using insecure development secret")
	}

	if c.Stripe.SecretKey != "" {
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
		}
		if c.Stripe.PriceBase == "" || c.Stripe.PriceMid == "" || c.Stripe.PriceTop == "" {
			return fmt.Errorf("STRIPE_PRICE_BASE, STRIPE_PRICE_MID and STRIPE_PRICE_TOP must all be set when payments are enabled")
		}
	}

	// The claim flow depends on mail delivery. The sender only logs codes
	// when SMTP is unset, which must never happen silently in production.
	if c.SMTP.User == "" && c.Server.Environment != "development" {
		return fmt.Errorf("SMTP_EMAIL is required outside development")
	}

	if c.OSM.UserAgent == "" {
		return fmt.Errorf("OSM_USER_AGENT must not be empty (Nominatim policy)")
	}

	return nil
}

// PaymentsEnabled reports whether a Stripe key was configured.
func (c *Config) PaymentsEnabled() bool {
	return c.Stripe.SecretKey != ""
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 15m", s)
		return 15 * time.Minute
	}
	return duration
}

func parseInt(s string, defaultValue int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for i := 0; i < len(s); {
		end := i
		for end < len(s) && s[end] != ',' {
			end++
		}
		result = append(result, s[i:end])
		i = end + 1
	}
	return result
}

package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers []string
	JWTSecret    string
	TokenTTL     time.Duration
	LogLevel     string
	OTLPEndpoint string

	AppURL           string
	MerchantCode     string
	PaymentFormURL   string
	PaymentVerifyURL string
	PaymentTimeout   time.Duration

	SearchIndexPath          string
	RejectOverlappingRentals bool
	DevToolsEnabled          bool
	CORSOrigins              []string
	AuthRateLimit            float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		PostgresDSN:  getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=bookshare sslmode=disable"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getList("KAFKA_BROKER", []string{"localhost:9092"}),
		JWTSecret:    getEnv("JWT_SECRET", "supersecret"),
		TokenTTL:     getDuration("TOKEN_TTL", 24*time.Hour),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		AppURL:           strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		MerchantCode:     getEnv("ESEWA_MERCHANT_CODE", "EPAYTEST"),
		PaymentFormURL:   getEnv("PAYMENT_FORM_URL", "https://uat.esewa.com.np/epay/main"),
		PaymentVerifyURL: getEnv("PAYMENT_VERIFY_URL", "https://uat.esewa.com.np/epay/transrec"),
		PaymentTimeout:   getDuration("PAYMENT_TIMEOUT", 10*time.Second),

		SearchIndexPath:          os.Getenv("SEARCH_INDEX_PATH"),
		RejectOverlappingRentals: getBool("REJECT_OVERLAPPING_RENTALS", false),
		DevToolsEnabled:          getBool("DEV_TOOLS_ENABLED", false),
		CORSOrigins:              getList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		AuthRateLimit:            getFloat("AUTH_RATE_LIMIT", 1),
	}

	if cfg.JWTSecret == "supersecret" {
		slog.Warn("JWT_SECRET not set, using insecure default")
	}

	slog.Info("config loaded", "http_addr", cfg.HTTPAddr, "redis_addr", cfg.RedisAddr, "kafka_brokers", cfg.KafkaBrokers, "app_url", cfg.AppURL)
	return cfg
}

func (c *Config) PaymentSuccessURL() string {
	return c.AppURL + "/payment/success"
}

func (c *Config) PaymentFailureURL() string {
	return c.AppURL + "/payment/failure"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid bool, using default", "key", key, "value", raw)
		return fallback
	}
	return b
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		slog.Warn("invalid number, using default", "key", key, "value", raw)
		return fallback
	}
	return f
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	CORSAllowedOrigins []string
	SeedSampleData     bool
	ClinicName         string

	// Per-IP limit on the /api/ai endpoints
	AIRateLimit float64
	AIRateBurst int

	// Clinic window and slot grid
	ClinicOpenHour  int
	ClinicCloseHour int
	SlotMinutes     int
	MaxSuggestions  int

	// Slot scoring
	EnableLearnedScoring bool
	MinTrainingSamples   int

	// Patient flow
	NoShowRate        float64
	PeakHourThreshold int
	BusyHourThreshold int

	// Inventory alerting
	LowStockThreshold      int
	CriticalStockThreshold int
	StockWatchInterval     time.Duration
	StockAlertRecipients   []string

	// Email delivery: "sendgrid", "ses" or "stub"
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		SeedSampleData:     getEnvAsBool("SEED_SAMPLE_DATA", false),
		ClinicName:         getEnv("CLINIC_NAME", "MediTrack"),

		AIRateLimit: getEnvAsFloat("AI_RATE_LIMIT", 5),
		AIRateBurst: getEnvAsInt("AI_RATE_BURST", 20),

		ClinicOpenHour:  getEnvAsInt("CLINIC_OPEN_HOUR", 9),
		ClinicCloseHour: getEnvAsInt("CLINIC_CLOSE_HOUR", 17),
		SlotMinutes:     getEnvAsInt("SLOT_MINUTES", 30),
		MaxSuggestions:  getEnvAsInt("MAX_SUGGESTIONS", 5),

		EnableLearnedScoring: getEnvAsBool("ENABLE_LEARNED_SCORING", true),
		MinTrainingSamples:   getEnvAsInt("MIN_TRAINING_SAMPLES", 10),

		NoShowRate:        getEnvAsFloat("NO_SHOW_RATE", 0.10),
		PeakHourThreshold: getEnvAsInt("PEAK_HOUR_THRESHOLD", 3),
		BusyHourThreshold: getEnvAsInt("BUSY_HOUR_THRESHOLD", 5),

		LowStockThreshold:      getEnvAsInt("LOW_STOCK_THRESHOLD", 10),
		CriticalStockThreshold: getEnvAsInt("CRITICAL_STOCK_THRESHOLD", 5),
		StockWatchInterval:     getEnvAsDuration("STOCK_WATCH_INTERVAL", time.Hour),
		StockAlertRecipients:   getEnvAsList("STOCK_ALERT_RECIPIENTS"),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MediTrack"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

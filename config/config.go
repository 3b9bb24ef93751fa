package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of the scraping pipeline. Values come from the
// environment (a .env file is loaded in main), with defaults matching what
// production has been running with.
type Config struct {
	// HTTP
	Host           string
	Port           string
	AllowedOrigins string

	// Scraping
	ElementTimeout   time.Duration // wait ceiling per locator resolution
	RetryAttempts    int           // per-action retry ceiling
	RetryBackoffBase time.Duration // linear backoff: attempt * base
	BrowserBin       string        // empty = auto-detect

	// Anomaly guard
	MaxDropPercent float64 // drops beyond this are quarantined

	// Publishing
	MaxWarnings      int // batch warning count that blocks publishing
	WordpressURL     string
	WordpressUser    string
	WordpressAppPass string
	DashboardURL     string

	// AI fallback
	OpenAIKey     string
	OpenAIModel   string
	OpenAITimeout time.Duration

	// Notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	ReportFrom   string
	ReportTo     string

	// Backups
	BackupDir string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		ElementTimeout:   getEnvDuration("SCRAPE_ELEMENT_TIMEOUT", 5*time.Second),
		RetryAttempts:    getEnvInt("SCRAPE_RETRY_ATTEMPTS", 3),
		RetryBackoffBase: getEnvDuration("SCRAPE_RETRY_BACKOFF", time.Second),
		BrowserBin:       getEnv("BROWSER_BIN", ""),

		MaxDropPercent: getEnvFloat("ANOMALY_MAX_DROP_PERCENT", 30.0),

		MaxWarnings:      getEnvInt("PUBLISH_MAX_WARNINGS", 15),
		WordpressURL:     getEnv("WORDPRESS_URL", ""),
		WordpressUser:    getEnv("WORDPRESS_USER", ""),
		WordpressAppPass: getEnv("WORDPRESS_APP_PASSWORD", ""),
		DashboardURL:     getEnv("DASHBOARD_URL", "http://localhost:3000/products"),

		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: getEnvDuration("OPENAI_TIMEOUT", 45*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		ReportFrom:   getEnv("REPORT_FROM", ""),
		ReportTo:     getEnv("REPORT_TO", ""),

		BackupDir: getEnv("BACKUP_DIR", "backup"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

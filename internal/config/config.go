package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Input tables.
	TemperaturesPath   string
	ContinentsPath     string
	CountriesPath      string
	CountryAliasesPath string

	// Reference years for the warming delta and the initial slider position.
	BaseYear    int
	LateYear    int
	DefaultYear int

	// Optional delta exporters; each is disabled when its setting is empty.
	KafkaBrokers      []string
	KafkaDeltaTopic   string
	PostgresDSN       string
	ExportMaxAttempts int
}

// KafkaEnabled reports whether deltas are published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// PostgresEnabled reports whether deltas are stored in Postgres.
func (c *Config) PostgresEnabled() bool { return c.PostgresDSN != "" }

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	baseYear, err := parseInt("BASE_YEAR", 1963)
	if err != nil {
		return nil, err
	}
	lateYear, err := parseInt("LATE_YEAR", 2013)
	if err != nil {
		return nil, err
	}
	defaultYear, err := parseInt("DEFAULT_YEAR", 1950)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := parseInt("EXPORT_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TemperaturesPath:   envOrDefault("TEMPERATURES_PATH", "data/global_temperatures/GlobalLandTemperaturesByCountry.csv"),
		ContinentsPath:     envOrDefault("CONTINENTS_PATH", "data/continents.csv"),
		CountriesPath:      envOrDefault("COUNTRIES_PATH", "data/countries.csv"),
		CountryAliasesPath: os.Getenv("COUNTRY_ALIASES_PATH"),

		BaseYear:    baseYear,
		LateYear:    lateYear,
		DefaultYear: defaultYear,

		KafkaBrokers:      parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaDeltaTopic:   envOrDefault("KAFKA_DELTA_TOPIC", "warming-deltas"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		ExportMaxAttempts: maxAttempts,
	}

	if cfg.BaseYear >= cfg.LateYear {
		return nil, fmt.Errorf("BASE_YEAR (%d) must be before LATE_YEAR (%d)", cfg.BaseYear, cfg.LateYear)
	}
	if cfg.ExportMaxAttempts < 1 {
		return nil, errors.New("EXPORT_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.KafkaEnabled() && cfg.KafkaDeltaTopic == "" {
		return nil, errors.New("KAFKA_DELTA_TOPIC is required when KAFKA_BROKERS is set")
	}
	for name, path := range map[string]string{
		"TEMPERATURES_PATH": cfg.TemperaturesPath,
		"CONTINENTS_PATH":   cfg.ContinentsPath,
		"COUNTRIES_PATH":    cfg.CountriesPath,
	} {
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

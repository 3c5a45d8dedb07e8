package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset sources.
	TableSource    string
	TableDelimiter rune
	GeometrySource string
	GeometryFormat string
	GeometryObject string
	SeriesSource   string

	FetchTimeout    time.Duration
	FetchMaxRetries int
	ReloadInterval  time.Duration // 0 disables scheduled reloads

	// Kafka publishing of enriched entities.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is read first; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	delimiter, err := parseDelimiter(sharedcfg.EnvOrDefault("TABLE_DELIMITER", ","))
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s", false)
	if err != nil {
		return nil, err
	}

	reloadInterval, err := parseDuration("RELOAD_INTERVAL", "0", true)
	if err != nil {
		return nil, err
	}

	maxRetries, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_MAX_RETRIES", "3"))
	if err != nil || maxRetries < 0 {
		return nil, errors.New("invalid FETCH_MAX_RETRIES")
	}

	kafkaEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid KAFKA_ENABLED")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TableSource:    os.Getenv("TABLE_SOURCE"),
		TableDelimiter: delimiter,
		GeometrySource: os.Getenv("GEOMETRY_SOURCE"),
		GeometryFormat: sharedcfg.EnvOrDefault("GEOMETRY_FORMAT", "auto"),
		GeometryObject: sharedcfg.EnvOrDefault("GEOMETRY_OBJECT", "countries"),
		SeriesSource:   os.Getenv("SERIES_SOURCE"),

		FetchTimeout:    fetchTimeout,
		FetchMaxRetries: maxRetries,
		ReloadInterval:  reloadInterval,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "enriched-regions"),
	}

	if cfg.TableSource == "" {
		return nil, errors.New("TABLE_SOURCE is required")
	}
	if cfg.GeometrySource == "" {
		return nil, errors.New("GEOMETRY_SOURCE is required")
	}
	switch cfg.GeometryFormat {
	case "auto", "topojson", "geojson":
	default:
		return nil, fmt.Errorf("invalid GEOMETRY_FORMAT %q", cfg.GeometryFormat)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseDelimiter accepts a single character, or "tab" / `\t` for tab-separated tables.
func parseDelimiter(s string) (rune, error) {
	if s == "tab" || s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) || r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("invalid TABLE_DELIMITER %q", s)
	}
	return r, nil
}

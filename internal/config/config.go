// Package config loads the sync job configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/comics-character-sync/pkg/catalog"
	"github.com/Sternrassler/comics-character-sync/pkg/logging"
	"github.com/Sternrassler/comics-character-sync/pkg/pagination"
	"github.com/Sternrassler/comics-character-sync/pkg/ratelimit"
)

// Config holds everything the job needs to start.
type Config struct {
	SecretName   string
	Region       string
	BucketName   string
	BucketPrefix string

	CatalogBaseURL string
	PageSize       int
	MaxConcurrency int
	HTTPTimeout    time.Duration

	// RedisURL enables the page cache and the daily quota when set
	RedisURL       string
	DailyCallLimit int

	// PushgatewayURL receives run metrics when set
	PushgatewayURL string

	LogLevel  logging.LogLevel
	LogPretty bool
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		SecretName:     os.Getenv("SECRET_NAME"),
		Region:         getEnv("REGION_NAME", os.Getenv("AWS_REGION")),
		BucketName:     os.Getenv("BUCKET_NAME"),
		BucketPrefix:   os.Getenv("BUCKET_PREFIX"),
		CatalogBaseURL: getEnv("CATALOG_BASE_URL", catalog.DefaultBaseURL),
		RedisURL:       os.Getenv("REDIS_URL"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:       logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
	}

	var errs []error
	var err error
	defaults := pagination.DefaultConfig()

	if cfg.PageSize, err = getEnvInt("PAGE_SIZE", defaults.PageSize); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxConcurrency, err = getEnvInt("MAX_CONCURRENCY", defaults.MaxConcurrency); err != nil {
		errs = append(errs, err)
	}
	if cfg.DailyCallLimit, err = getEnvInt("DAILY_CALL_LIMIT", ratelimit.DefaultDailyLimit); err != nil {
		errs = append(errs, err)
	}
	if cfg.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", catalog.DefaultConfig().Timeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.LogPretty, err = getEnvBool("LOG_PRETTY", false); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	var errs []error
	if c.SecretName == "" {
		errs = append(errs, errors.New("SECRET_NAME is required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("REGION_NAME or AWS_REGION is required"))
	}
	if c.BucketName == "" {
		errs = append(errs, errors.New("BUCKET_NAME is required"))
	}
	if strings.Trim(c.BucketPrefix, "/") == "" {
		errs = append(errs, errors.New("BUCKET_PREFIX is required"))
	}
	if c.PageSize < 1 || c.PageSize > catalog.MaxPageSize {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be between 1 and %d (got %d)", catalog.MaxPageSize, c.PageSize))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY must be positive (got %d)", c.MaxConcurrency))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive (got %s)", c.HTTPTimeout))
	}
	if c.DailyCallLimit < 0 {
		errs = append(errs, fmt.Errorf("DAILY_CALL_LIMIT must not be negative (got %d)", c.DailyCallLimit))
	}
	return errors.Join(errs...)
}

// Pagination returns the batch fetcher settings.
func (c Config) Pagination() pagination.Config {
	return pagination.Config{
		PageSize:       c.PageSize,
		MaxConcurrency: c.MaxConcurrency,
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Pretty = c.LogPretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

package config

import (
	"testing"
	"time"

	"github.com/Sternrassler/comics-character-sync/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"SECRET_NAME", "REGION_NAME", "AWS_REGION", "BUCKET_NAME", "BUCKET_PREFIX",
	"CATALOG_BASE_URL", "PAGE_SIZE", "MAX_CONCURRENCY", "HTTP_TIMEOUT",
	"REDIS_URL", "DAILY_CALL_LIMIT", "PUSHGATEWAY_URL", "LOG_LEVEL", "LOG_PRETTY",
}

// setEnv clears every known key and then applies env.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
}

func requiredEnv() map[string]string {
	return map[string]string{
		"SECRET_NAME":   "catalog/keys",
		"REGION_NAME":   "eu-central-1",
		"BUCKET_NAME":   "datalake",
		"BUCKET_PREFIX": "marvel/characters",
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, requiredEnv())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "catalog/keys", cfg.SecretName)
	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, "datalake", cfg.BucketName)
	assert.Equal(t, "marvel/characters", cfg.BucketPrefix)
	assert.Equal(t, "https://gateway.marvel.com", cfg.CatalogBaseURL)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 10, cfg.MaxConcurrency)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3000, cfg.DailyCallLimit)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
}

func TestLoad_Overrides(t *testing.T) {
	env := requiredEnv()
	env["CATALOG_BASE_URL"] = "http://localhost:9000"
	env["PAGE_SIZE"] = "50"
	env["MAX_CONCURRENCY"] = "4"
	env["HTTP_TIMEOUT"] = "5s"
	env["REDIS_URL"] = "redis://localhost:6379/0"
	env["DAILY_CALL_LIMIT"] = "0"
	env["PUSHGATEWAY_URL"] = "http://pushgateway:9091"
	env["LOG_LEVEL"] = "debug"
	env["LOG_PRETTY"] = "true"
	setEnv(t, env)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.CatalogBaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 0, cfg.DailyCallLimit)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)

	pg := cfg.Pagination()
	assert.Equal(t, 50, pg.PageSize)
	assert.Equal(t, 4, pg.MaxConcurrency)

	lc := cfg.Logging()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.True(t, lc.Pretty)
}

func TestLoad_RegionFallsBackToAWSRegion(t *testing.T) {
	env := requiredEnv()
	delete(env, "REGION_NAME")
	env["AWS_REGION"] = "us-east-1"
	setEnv(t, env)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "missing secret", key: "SECRET_NAME", value: "", wantErr: "SECRET_NAME is required"},
		{name: "missing bucket", key: "BUCKET_NAME", value: "", wantErr: "BUCKET_NAME is required"},
		{name: "root prefix", key: "BUCKET_PREFIX", value: "/", wantErr: "BUCKET_PREFIX is required"},
		{name: "missing region", key: "REGION_NAME", value: "", wantErr: "REGION_NAME or AWS_REGION is required"},
		{name: "page size too large", key: "PAGE_SIZE", value: "101", wantErr: "PAGE_SIZE must be between 1 and 100"},
		{name: "page size zero", key: "PAGE_SIZE", value: "0", wantErr: "PAGE_SIZE must be between 1 and 100"},
		{name: "page size not a number", key: "PAGE_SIZE", value: "many", wantErr: "PAGE_SIZE"},
		{name: "zero concurrency", key: "MAX_CONCURRENCY", value: "0", wantErr: "MAX_CONCURRENCY must be positive"},
		{name: "bad timeout", key: "HTTP_TIMEOUT", value: "soon", wantErr: "HTTP_TIMEOUT"},
		{name: "negative timeout", key: "HTTP_TIMEOUT", value: "-1s", wantErr: "HTTP_TIMEOUT must be positive"},
		{name: "negative limit", key: "DAILY_CALL_LIMIT", value: "-5", wantErr: "DAILY_CALL_LIMIT must not be negative"},
		{name: "bad bool", key: "LOG_PRETTY", value: "sometimes", wantErr: "LOG_PRETTY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := requiredEnv()
			env[tt.key] = tt.value
			setEnv(t, env)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)

	for _, want := range []string{"SECRET_NAME", "BUCKET_NAME", "BUCKET_PREFIX", "PAGE_SIZE", "MAX_CONCURRENCY", "HTTP_TIMEOUT"} {
		assert.Contains(t, err.Error(), want)
	}
}

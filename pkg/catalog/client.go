// Package catalog provides the HTTP client for the public comics catalog API
// with request signing, optional page caching and daily quota gating.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/comics-character-sync/pkg/cache"
	"github.com/Sternrassler/comics-character-sync/pkg/dataset"
	"github.com/Sternrassler/comics-character-sync/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the catalog gateway.
	DefaultBaseURL = "https://gateway.marvel.com"

	// CharactersEndpoint lists characters.
	CharactersEndpoint = "/v1/public/characters"

	// MaxPageSize is the largest limit the catalog accepts.
	MaxPageSize = 100
)

// Prometheus metrics for catalog client operations.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog requests by status",
	}, []string{"status"})

	catalogRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the catalog gateway
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Cache stores page bodies for conditional requests (optional)
	Cache *cache.Manager

	// Quota gates requests against the daily call allowance (optional)
	Quota *ratelimit.Tracker

	// Now supplies the signature timestamp (default: time.Now)
	Now func() time.Time
}

// DefaultConfig returns a default configuration without cache and quota.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "comics-character-sync/1.0",
		Timeout:   30 * time.Second,
	}
}

// Client is the catalog API client. A Client signs all of its requests with
// the signature computed when it was created.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	signature  Signature
	logger     zerolog.Logger
}

// New creates a new catalog client for one run.
func New(creds Credentials, cfg Config) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		config:    cfg,
		signature: NewSignature(creds, cfg.Now()),
		logger:    log.With().Str("component", "catalog-client").Logger(),
	}, nil
}

// Signature returns the signature used for every request of this client.
func (c *Client) Signature() Signature {
	return c.signature
}

// FetchPage fetches the characters at offset and returns them as records
// together with the total number of characters.
func (c *Client) FetchPage(ctx context.Context, offset, limit int) ([]dataset.Record, int, error) {
	page, err := c.GetCharacters(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return page.Records(), page.Total, nil
}

// GetCharacters requests one page of characters ordered by name.
func (c *Client) GetCharacters(ctx context.Context, offset, limit int) (*Page, error) {
	if limit <= 0 || limit > MaxPageSize {
		return nil, fmt.Errorf("limit must be between 1 and %d (got %d)", MaxPageSize, limit)
	}

	params := url.Values{}
	params.Set("apikey", c.signature.APIKey)
	params.Set("ts", c.signature.Timestamp)
	params.Set("hash", c.signature.Hash)
	params.Set("orderBy", "name")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+CharactersEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: offset %d: %v", ErrMalformedResponse, offset, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: offset %d: missing data", ErrMalformedResponse, offset)
	}
	// A missing results array decodes to nil, an empty one to a zero-length slice.
	if env.Data.Results == nil {
		return nil, fmt.Errorf("%w: offset %d: missing results", ErrMalformedResponse, offset)
	}
	if len(env.Data.Results) != env.Data.Count {
		return nil, fmt.Errorf("%w: offset %d: count %d but %d results",
			ErrMalformedResponse, offset, env.Data.Count, len(env.Data.Results))
	}

	c.logger.Info().
		Int("offset", offset).
		Int("count", env.Data.Count).
		Int("total", env.Data.Total).
		Msg("Characters page fetched")

	return env.Data, nil
}

// do executes a GET with quota gating and conditional caching and returns
// the body of a successful response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	startTime := time.Now()
	defer func() {
		catalogRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check daily quota
	if c.config.Quota != nil {
		if err := c.config.Quota.Acquire(ctx); err != nil {
			catalogRequestsTotal.WithLabelValues("quota_blocked").Inc()
			return nil, fmt.Errorf("quota check: %w", err)
		}
	}

	// Step 2: Check cache
	cacheKey := cache.CacheKey{
		Endpoint:    req.URL.Path,
		QueryParams: req.URL.Query(),
	}

	var cachedEntry *cache.CacheEntry
	if c.config.Cache != nil {
		entry, err := c.config.Cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", cacheKey.String()).Msg("Cache get error")
		}
		cachedEntry = entry
	}

	// Step 3: Make conditional request if cache hit
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("key", cacheKey.String()).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 4: Execute HTTP request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		catalogRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	catalogRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	// Step 5: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		if cachedEntry == nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassServer,
				Message:    "not modified without cached entry",
			}
		}
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("key", cacheKey.String()).Msg("304 Not Modified - using cache")

		newExpires := time.Now().Add(c.config.Cache.TTL())
		if err := c.config.Cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		return cachedEntry.Data, nil
	}

	// Step 6: Handle HTTP errors
	if resp.StatusCode >= 400 {
		return nil, c.errorFromResponse(resp)
	}

	// Step 7: Read body, update cache on success
	if c.config.Cache == nil || resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
		}
		return body, nil
	}

	entry, err := cache.ResponseToEntry(resp, c.config.Cache.TTL())
	if err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
	}
	if entry.ETag == "" {
		entry.ETag = bodyETag(entry.Data)
	}
	if err := c.config.Cache.Set(ctx, cacheKey, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
	}

	return entry.Data, nil
}

// errorFromResponse builds an APIError from a >= 400 response.
func (c *Client) errorFromResponse(resp *http.Response) error {
	errClass := classifyStatus(resp.StatusCode)
	catalogErrorsTotal.WithLabelValues(string(errClass)).Inc()

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: errClass,
		Message:    resp.Status,
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Code = env.codeString()
		if text := env.text(); text != "" {
			apiErr.Message = text
		}
	}

	c.logger.Warn().
		Str("endpoint", resp.Request.URL.Path).
		Int("status", resp.StatusCode).
		Str("error_class", string(errClass)).
		Str("code", apiErr.Code).
		Msg("Catalog request error")

	return apiErr
}

// bodyETag extracts the etag the catalog embeds in successful bodies.
func bodyETag(body []byte) string {
	var env struct {
		ETag string `json:"etag"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.ETag
}

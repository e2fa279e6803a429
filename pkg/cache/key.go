package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// volatileParams change on every run and never take part in a key.
var volatileParams = map[string]bool{
	"apikey": true,
	"ts":     true,
	"hash":   true,
}

// CacheKey represents a unique identifier for a cached catalog response.
type CacheKey struct {
	// Endpoint is the catalog endpoint path (e.g., "/v1/public/characters")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"offset": "100"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: catalog:endpoint:query1=val1:query2=val2
//
// Example:
//
//	catalog:v1/public/characters:limit=100:offset=200:orderBy=name
func (k CacheKey) String() string {
	parts := []string{"catalog"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			if volatileParams[key] {
				continue
			}
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

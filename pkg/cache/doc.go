// Package cache provides a Redis-backed page cache for catalog responses.
//
// The catalog answers conditional requests: a page fetched with
// If-None-Match carrying the ETag of a previous response comes back as
// 304 Not Modified when nothing changed. 304 responses carry no body, so the
// body of the last 200 response is kept here and replayed.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.CacheKey{
//		Endpoint:    "/v1/public/characters",
//		QueryParams: req.URL.Query(), // apikey, ts and hash are dropped
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch without conditional headers
//	}
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Keys
//
// The authentication parameters change on every run and are never part of
// a cache key, so a page is addressed by endpoint, ordering, limit and offset
// only.
//
// # Metrics
//
//   - catalog_cache_hits_total{layer="redis"} - Cache hits
//   - catalog_cache_misses_total - Cache misses
//   - catalog_cache_size_bytes{layer="redis"} - Bytes written to cache
//   - catalog_304_responses_total - Conditional request successes
//   - catalog_conditional_requests_total - Conditional requests sent
//   - catalog_cache_errors_total{operation} - Cache operation errors
package cache

// Package cache provides an optional Redis-backed HTTP response cache for
// PokéAPI documents.
//
// PokéAPI's fair-use policy asks consumers to cache resources locally. The
// data changes rarely, so repeated runs over the same window can be served
// almost entirely from Redis.
//
// Freshness comes from the response: Cache-Control max-age first, then the
// Expires header, then a configured fallback TTL. Entries that carry an ETag
// or Last-Modified validator are retained past their freshness so a later run
// can revalidate them with a conditional request instead of downloading the
// document again.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.KeyFromURL(req.URL)
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch from the API
//	case err == nil && !entry.IsExpired():
//		// serve entry.Data
//	case err == nil && cache.ShouldMakeConditionalRequest(entry):
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - pokeapi_cache_hits_total{layer="redis"}
//   - pokeapi_cache_misses_total
//   - pokeapi_cache_stale_total
//   - pokeapi_cache_size_bytes{layer="redis"}
//   - pokeapi_304_responses_total
//   - pokeapi_conditional_requests_total
//   - pokeapi_cache_errors_total{operation}
package cache

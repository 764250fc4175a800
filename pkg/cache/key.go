package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "pokeapi"

// Key identifies a cached API response.
type Key struct {
	// Host is the API host (e.g., "pokeapi.co")
	Host string

	// Path is the request path (e.g., "/api/v2/pokemon/25/")
	Path string

	// Query are the query parameters (e.g., {"limit": "150"})
	Query url.Values
}

// KeyFromURL builds the key for a request URL.
func KeyFromURL(u *url.URL) Key {
	if u == nil {
		return Key{}
	}
	return Key{
		Host:  strings.ToLower(u.Host),
		Path:  u.Path,
		Query: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: pokeapi:host/path:query1=val1:query2=val2
//
// Example:
//
//	pokeapi:pokeapi.co/api/v2/pokemon:limit=150:offset=0
func (k Key) String() string {
	parts := []string{KeyPrefix}

	resource := strings.Trim(k.Host+"/"+strings.Trim(k.Path, "/"), "/")
	if resource != "" {
		parts = append(parts, resource)
	}

	// Query params are sorted so the same request always maps to one key.
	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, name+"="+strings.Join(k.Query[name], ","))
		}
	}

	return strings.Join(parts, ":")
}

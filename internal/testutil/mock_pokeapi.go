// Package testutil provides testing utilities for the PokéAPI ingestion packages.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path under which the mock serves the v2 API.
const APIPrefix = "/api/v2/"

const listingPath = APIPrefix + "pokemon/"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Pokemon is a fixture served by the mock as a detail document.
type Pokemon struct {
	ID             int
	Name           string
	Height         int
	Weight         int
	BaseExperience *int
	Types          []string
	Abilities      []string
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// SamplePokemon returns the first five entries of the national dex.
func SamplePokemon() []Pokemon {
	return []Pokemon{
		{ID: 1, Name: "bulbasaur", Height: 7, Weight: 69, BaseExperience: IntPtr(64), Types: []string{"grass", "poison"}, Abilities: []string{"overgrow", "chlorophyll"}},
		{ID: 2, Name: "ivysaur", Height: 10, Weight: 130, BaseExperience: IntPtr(142), Types: []string{"grass", "poison"}, Abilities: []string{"overgrow", "chlorophyll"}},
		{ID: 3, Name: "venusaur", Height: 20, Weight: 1000, BaseExperience: IntPtr(263), Types: []string{"grass", "poison"}, Abilities: []string{"overgrow", "chlorophyll"}},
		{ID: 4, Name: "charmander", Height: 6, Weight: 85, BaseExperience: IntPtr(62), Types: []string{"fire"}, Abilities: []string{"blaze", "solar-power"}},
		{ID: 5, Name: "charmeleon", Height: 11, Weight: 190, BaseExperience: IntPtr(142), Types: []string{"fire"}, Abilities: []string{"blaze", "solar-power"}},
	}
}

// MockPokeAPI is a configurable mock PokéAPI server for testing.
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	pokemon  []Pokemon
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	listingCount      int
	detailCount       int
	detailPaths       []string
	conditionalCount  int
	lastRequestHeader http.Header
	lastListingQuery  url.Values
}

// NewMockPokeAPI creates a mock server serving the given fixtures in order.
func NewMockPokeAPI(pokemon ...Pokemon) *MockPokeAPI {
	mock := &MockPokeAPI{
		pokemon:  pokemon,
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.lastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		switch {
		case r.URL.Path == listingPath:
			mock.listingCount++
			mock.lastListingQuery = r.URL.Query()
		case strings.HasPrefix(r.URL.Path, listingPath):
			mock.detailCount++
			mock.detailPaths = append(mock.detailPaths, r.URL.Path)
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server root URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API base URL, with a trailing slash.
func (m *MockPokeAPI) BaseURL() string {
	return m.server.URL + APIPrefix
}

// ListingURL returns the absolute listing endpoint URL.
func (m *MockPokeAPI) ListingURL() string {
	return m.server.URL + listingPath
}

// DetailPath returns the path of a detail document.
func DetailPath(id int) string {
	return fmt.Sprintf("%s%d/", listingPath, id)
}

// DetailURL returns the absolute URL of a detail document.
func (m *MockPokeAPI) DetailURL(id int) string {
	return m.server.URL + DetailPath(id)
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listingCount = 0
	m.detailCount = 0
	m.detailPaths = nil
	m.conditionalCount = 0
	m.lastRequestHeader = nil
	m.lastListingQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPokeAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockPokeAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetDetailResponse overrides the detail document of one Pokémon.
func (m *MockPokeAPI) SetDetailResponse(id int, resp MockResponse) {
	m.SetResponse(DetailPath(id), resp)
}

// SetListingResponse overrides the listing endpoint.
func (m *MockPokeAPI) SetListingResponse(resp MockResponse) {
	m.SetResponse(listingPath, resp)
}

// ListingCount returns the number of listing requests served.
func (m *MockPokeAPI) ListingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listingCount
}

// DetailCount returns the number of detail requests served.
func (m *MockPokeAPI) DetailCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.detailCount
}

// DetailPaths returns the detail paths requested, in order.
func (m *MockPokeAPI) DetailPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.detailPaths))
	copy(out, m.detailPaths)
	return out
}

// ConditionalCount returns the number of conditional requests.
func (m *MockPokeAPI) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockPokeAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// LastListingQuery returns the query of the most recent listing request.
func (m *MockPokeAPI) LastListingQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastListingQuery
}

// defaultHandler serves listings and detail documents from the fixtures.
func (m *MockPokeAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.URL.Path == listingPath {
		m.writeListing(w, r)
		return
	}

	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, listingPath), "/")
	id, err := strconv.Atoi(idStr)
	if err != nil || !strings.HasPrefix(r.URL.Path, listingPath) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	m.mu.RLock()
	var found *Pokemon
	for i := range m.pokemon {
		if m.pokemon[i].ID == id {
			found = &m.pokemon[i]
			break
		}
	}
	m.mu.RUnlock()

	if found == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(m.detailDocument(*found))
}

func (m *MockPokeAPI) writeListing(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	m.mu.RLock()
	all := m.pokemon
	m.mu.RUnlock()

	results := []map[string]string{}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		results = append(results, map[string]string{
			"name": all[i].Name,
			"url":  m.DetailURL(all[i].ID),
		})
	}

	var next, previous any
	if offset+limit < len(all) {
		next = fmt.Sprintf("%s?offset=%d&limit=%d", m.ListingURL(), offset+limit, limit)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		previous = fmt.Sprintf("%s?offset=%d&limit=%d", m.ListingURL(), prev, limit)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(all),
		"next":     next,
		"previous": previous,
		"results":  results,
	})
}

func (m *MockPokeAPI) detailDocument(p Pokemon) map[string]any {
	types := make([]map[string]any, len(p.Types))
	for i, t := range p.Types {
		types[i] = map[string]any{
			"slot": i + 1,
			"type": map[string]string{"name": t, "url": m.server.URL + APIPrefix + "type/" + t + "/"},
		}
	}
	abilities := make([]map[string]any, len(p.Abilities))
	for i, a := range p.Abilities {
		abilities[i] = map[string]any{
			"slot":      i + 1,
			"is_hidden": i > 0,
			"ability":   map[string]string{"name": a, "url": m.server.URL + APIPrefix + "ability/" + a + "/"},
		}
	}

	var baseExperience any
	if p.BaseExperience != nil {
		baseExperience = *p.BaseExperience
	}

	return map[string]any{
		"id":              p.ID,
		"name":            p.Name,
		"height":          p.Height,
		"weight":          p.Weight,
		"base_experience": baseExperience,
		"types":           types,
		"abilities":       abilities,
	}
}

// NewJSONResponse creates a 200 OK response with cache headers like PokéAPI's.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":  "application/json; charset=utf-8",
			"Cache-Control": "public, max-age=86400, s-maxage=86400",
			"ETag":          `W/"test-etag-123"`,
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       "Not Found",
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Retry-After":  "30",
		},
	}
}

// NewMalformedJSONResponse creates a 200 OK response whose body is not JSON.
func NewMalformedJSONResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"id": 1, "name": `,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewSlowResponse delays a valid response past a client timeout.
func NewSlowResponse(body string, delay time.Duration) MockResponse {
	resp := NewJSONResponse(body)
	resp.Delay = delay
	return resp
}

// NewConditionalHandler creates a handler that responds with 304 for
// conditional requests matching etag.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=86400")

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

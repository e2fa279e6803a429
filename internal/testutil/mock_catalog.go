// Package testutil provides testing utilities for the character sync job.
package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockCharacter is a character served by MockCatalog.
type MockCharacter struct {
	ID     int
	Name   string
	Comics int
}

// MockResponse overrides the response for one offset.
type MockResponse struct {
	StatusCode int
	Body       string
}

// MockCatalog is a configurable mock catalog server for testing.
type MockCatalog struct {
	server *httptest.Server

	mu         sync.Mutex
	characters []MockCharacter
	total      int // reported total, -1 means len(characters)
	overrides  map[int]MockResponse
	publicKey  string
	privateKey string
	delay      time.Duration
	headerETag bool

	// Tracking
	requestCount     int
	conditionalCount int
	notModifiedCount int
	offsets          []int
	signatures       map[string]bool
	inFlight         int
	maxInFlight      int
}

// NewMockCatalog creates a mock catalog serving the given characters.
func NewMockCatalog(characters []MockCharacter) *MockCatalog {
	m := &MockCatalog{
		characters: characters,
		total:      -1,
		overrides:  make(map[int]MockResponse),
		signatures: make(map[string]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/public/characters", m.handleCharacters)
	m.server = httptest.NewServer(mux)
	return m
}

// GenerateCharacters returns n characters with sequential IDs.
func GenerateCharacters(n int) []MockCharacter {
	out := make([]MockCharacter, n)
	for i := range out {
		out[i] = MockCharacter{
			ID:     1009000 + i,
			Name:   fmt.Sprintf("Character %04d", i),
			Comics: i % 50,
		}
	}
	return out
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetCharacters replaces the served characters.
func (m *MockCatalog) SetCharacters(characters []MockCharacter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters = characters
}

// SetTotal makes the catalog report total regardless of the served characters.
func (m *MockCatalog) SetTotal(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
}

// SetCredentials enables hash verification for the given key pair.
func (m *MockCatalog) SetCredentials(publicKey, privateKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publicKey = publicKey
	m.privateKey = privateKey
}

// SetResponse overrides the response for requests at offset.
func (m *MockCatalog) SetResponse(offset int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[offset] = resp
}

// SetDelay delays every response.
func (m *MockCatalog) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHeaderETag sends the page etag as ETag header in addition to the body field.
func (m *MockCatalog) SetHeaderETag(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headerETag = enabled
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conditionalCount
}

// GetNotModifiedCount returns the number of 304 responses sent.
func (m *MockCatalog) GetNotModifiedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notModifiedCount
}

// GetOffsets returns the requested offsets in arrival order.
func (m *MockCatalog) GetOffsets() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.offsets...)
}

// GetSignatureCount returns the number of distinct ts/hash pairs seen.
func (m *MockCatalog) GetSignatureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.signatures)
}

// GetMaxInFlight returns the highest number of concurrently served requests.
func (m *MockCatalog) GetMaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

func (m *MockCatalog) handleCharacters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	m.mu.Lock()
	m.requestCount++
	m.offsets = append(m.offsets, offset)
	m.signatures[q.Get("ts")+":"+q.Get("hash")] = true
	if r.Header.Get("If-None-Match") != "" {
		m.conditionalCount++
	}
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delay
	override, hasOverride := m.overrides[offset]
	publicKey, privateKey := m.publicKey, m.privateKey
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if q.Get("apikey") == "" || q.Get("ts") == "" || q.Get("hash") == "" {
		writeJSON(w, http.StatusConflict, map[string]any{"code": "MissingParameter", "message": "You must provide a user key, timestamp and hash."})
		return
	}
	if publicKey != "" {
		sum := md5.Sum([]byte(q.Get("ts") + privateKey + publicKey))
		if q.Get("apikey") != publicKey || q.Get("hash") != hex.EncodeToString(sum[:]) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "InvalidCredentials", "message": "That hash, timestamp and key combination is invalid."})
			return
		}
	}

	if hasOverride {
		w.WriteHeader(override.StatusCode)
		w.Write([]byte(override.Body))
		return
	}

	if limit <= 0 || limit > 100 {
		writeJSON(w, http.StatusConflict, map[string]any{"code": 409, "status": "You may not request more than 100 items."})
		return
	}

	page, etag := m.page(offset, limit)

	if r.Header.Get("If-None-Match") == etag {
		m.mu.Lock()
		m.notModifiedCount++
		m.mu.Unlock()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	m.mu.Lock()
	headerETag := m.headerETag
	m.mu.Unlock()
	if headerETag {
		w.Header().Set("ETag", etag)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"code":   200,
		"status": "Ok",
		"etag":   etag,
		"data":   page,
	})
}

// page builds the data container for offset/limit and its etag.
func (m *MockCatalog) page(offset, limit int) (map[string]any, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.total
	if total < 0 {
		total = len(m.characters)
	}

	results := []map[string]any{}
	for i := offset; i < offset+limit && i < len(m.characters); i++ {
		c := m.characters[i]
		results = append(results, map[string]any{
			"id":          c.ID,
			"name":        c.Name,
			"description": "",
			"comics":      map[string]any{"available": c.Comics, "items": []any{}},
		})
	}

	page := map[string]any{
		"offset":  offset,
		"limit":   limit,
		"total":   total,
		"count":   len(results),
		"results": results,
	}

	raw, _ := json.Marshal(page)
	sum := md5.Sum(raw)
	return page, hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

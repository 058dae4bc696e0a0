package filtering

import (
	"net/url"
	"sync"

	"github.com/stacklok/catalog-browser/internal/querystring"
)

// Location is the address bar holding the view's query string
type Location interface {
	// Query returns a copy of the current query parameters
	Query() url.Values
	// ReplaceQuery replaces the current query without adding a history entry
	ReplaceQuery(query url.Values)
}

// MemoryLocation is an in-memory Location.
// It records how many times the query was replaced.
type MemoryLocation struct {
	mu           sync.Mutex
	query        url.Values
	replacements int
}

var _ Location = (*MemoryLocation)(nil)

// NewMemoryLocation creates a MemoryLocation seeded with query
func NewMemoryLocation(query url.Values) *MemoryLocation {
	return &MemoryLocation{query: cloneValues(query)}
}

// ParseLocation parses a raw query, "?query" or full URL into query parameters
func ParseLocation(raw string) url.Values {
	return querystring.ParseRawQuery(raw)
}

// Query returns a copy of the current query parameters
func (l *MemoryLocation) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneValues(l.query)
}

// ReplaceQuery replaces the current query
func (l *MemoryLocation) ReplaceQuery(query url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = cloneValues(query)
	l.replacements++
}

// RawQuery returns the encoded current query
func (l *MemoryLocation) RawQuery() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query.Encode()
}

// Replacements returns the number of ReplaceQuery calls so far
func (l *MemoryLocation) Replacements() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replacements
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

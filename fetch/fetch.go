// Package fetch resolves WSDL/XSD import and include locations, whether
// they name a local file path or a remote URL, with a simple in-memory
// cache keyed by absolute location so a document reachable via more than
// one import path is only read once and so import cycles terminate.
//
// This is the only potentially blocking step in the pipeline (§5); it is
// synchronous per location and carries no timeout of its own — callers
// that need one should pass an *http.Client with a Timeout or a
// context-aware RoundTripper.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// IOError reports a failure to fetch or read an import/include location.
type IOError struct {
	Location string
	Cause    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Location, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// Cache fetches documents by location and remembers, by absolute
// location, whether each has already been read — preventing re-fetch
// and import-cycle infinite recursion per §5.
type Cache struct {
	HTTP *http.Client

	mu   sync.Mutex
	seen map[string]bool
}

// NewCache returns a Cache using the given HTTP client for remote
// locations. A nil client uses http.DefaultClient.
func NewCache(cli *http.Client) *Cache {
	if cli == nil {
		cli = http.DefaultClient
	}
	return &Cache{HTTP: cli, seen: map[string]bool{}}
}

// Resolve returns the absolute form of location relative to base (the
// location of the document that referenced it). Absolute locations
// (those with a URL scheme, or absolute paths) are returned unchanged.
func Resolve(base, location string) string {
	if location == "" {
		return ""
	}
	if u, err := url.Parse(location); err == nil && u.IsAbs() {
		return location
	}
	if filepath.IsAbs(location) {
		return location
	}
	if base == "" {
		return location
	}
	if bu, err := url.Parse(base); err == nil && bu.IsAbs() {
		ref, err := bu.Parse(location)
		if err == nil {
			return ref.String()
		}
	}
	return filepath.Join(filepath.Dir(base), location)
}

// Open opens the document at the given absolute location, following
// any location with a URL scheme with the Cache's HTTP client and
// everything else as a local file path. The caller must Close the returned reader.
func (c *Cache) Open(location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		f, err := os.Open(location)
		if err != nil {
			return nil, &IOError{Location: location, Cause: err}
		}
		return f, nil
	}
	resp, err := c.HTTP.Get(location)
	if err != nil {
		return nil, &IOError{Location: location, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &IOError{Location: location, Cause: fmt.Errorf("http status %s", resp.Status)}
	}
	return resp.Body, nil
}

// Visit records that location has been (or is about to be) loaded and
// reports whether it had already been seen — the caller should skip
// re-loading it when Visit returns true.
func (c *Cache) Visit(location string) (alreadySeen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[location] {
		return true
	}
	c.seen[location] = true
	return false
}

// Package loader is the external-collaborator capability the Ingestion
// Coordinator calls to turn a URI into bytes (spec.md §4.6 step 1,
// SPEC_FULL.md §6). It is deliberately outside the core: internal/ingest
// only depends on its own Loader interface, and this package is one
// implementation of it, grounded on spec.md §6's file://, http(s)://, and
// data: URI forms plus the teacher's internal/indexer/discovery.go
// glob-compilation idiom for allow-listing.
package loader

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// maxHTTPBody bounds how much of a remote response this loader will buffer,
// so a misbehaving server cannot exhaust memory.
const maxHTTPBody = 64 << 20 // 64MiB

// Loader fetches document bytes from file://, http(s)://, and data: URIs,
// restricted to an allow-list of path/host glob patterns.
type Loader struct {
	allow      []glob.Glob
	httpClient *http.Client
}

// New compiles allowPatterns (matched with '/' as the glob separator,
// grounded on the teacher's discovery.NewFileDiscovery) and returns a
// ready-to-use Loader. An empty allowPatterns permits any path/host.
func New(allowPatterns []string) (*Loader, error) {
	compiled := make([]glob.Glob, 0, len(allowPatterns))
	for _, p := range allowPatterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("loader: compile allow pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return &Loader{
		allow:      compiled,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Load implements ingest.Loader: dispatch on URI scheme, per spec.md §6.
func (l *Loader) Load(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidURI, "loader: malformed uri: "+uri, err)
	}

	switch u.Scheme {
	case "", "file":
		return l.loadFile(u)
	case "http", "https":
		return l.loadHTTP(ctx, uri, u)
	case "data":
		return l.loadData(uri)
	default:
		return nil, model.NewError(model.ErrInvalidURI, "loader: unsupported scheme: "+u.Scheme, nil)
	}
}

func (l *Loader) loadFile(u *url.URL) ([]byte, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	if !l.allowed(path) {
		return nil, model.NewError(model.ErrInvalidURI, "loader: path not in allow-list: "+path, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewError(model.ErrIO, "loader: read file "+path, err)
	}
	return data, nil
}

func (l *Loader) loadHTTP(ctx context.Context, uri string, u *url.URL) ([]byte, error) {
	if !l.allowed(u.Host) && !l.allowed(uri) {
		return nil, model.NewError(model.ErrInvalidURI, "loader: host not in allow-list: "+u.Host, nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, model.NewError(model.ErrHTTP, "loader: build request for "+uri, err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, model.NewError(model.ErrHTTP, "loader: fetch "+uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewError(model.ErrHTTP, fmt.Sprintf("loader: %s returned status %d", uri, resp.StatusCode), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPBody+1))
	if err != nil {
		return nil, model.NewError(model.ErrIO, "loader: read response body for "+uri, err)
	}
	if len(data) > maxHTTPBody {
		return nil, model.NewError(model.ErrIO, "loader: response body for "+uri+" exceeds size limit", nil)
	}
	return data, nil
}

// loadData decodes a data: URI (RFC 2397): data:[<mediatype>][;base64],<data>.
func (l *Loader) loadData(uri string) ([]byte, error) {
	body := strings.TrimPrefix(uri, "data:")
	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		return nil, model.NewError(model.ErrInvalidURI, "loader: data uri missing comma separator", nil)
	}
	meta, payload := body[:comma], body[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidURI, "loader: invalid base64 data uri", err)
		}
		return decoded, nil
	}
	unescaped, err := url.QueryUnescape(payload)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidURI, "loader: invalid percent-encoded data uri", err)
	}
	return []byte(unescaped), nil
}

// allowed reports whether s matches any compiled allow pattern. An empty
// allow-list permits everything.
func (l *Loader) allowed(s string) bool {
	if len(l.allow) == 0 {
		return true
	}
	for _, g := range l.allow {
		if g.Match(s) {
			return true
		}
	}
	return false
}

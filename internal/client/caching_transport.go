package client

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds every request made by clients built here.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxCredentials is how many per-credential caches are kept before
	// the oldest is dropped.
	DefaultMaxCredentials = 8

	anonymousScope = "anonymous"
)

// Options configures the HTTP client used for calendar endpoints.
type Options struct {
	// CacheDir enables a disk cache when set, otherwise responses are cached in memory.
	CacheDir string
	Timeout  time.Duration
	// Tracing wraps the transport with otelhttp so outbound calls get client spans.
	Tracing bool
	// MaxCredentials caps the number of per-credential caches held at once.
	MaxCredentials int
}

// NewCachingHTTPClient creates an HTTP client that honours Cache-Control and ETag
// headers on calendar responses.
//
// httpcache keys entries by URL only, so every distinct Authorization header
// gets its own cache. A response cached for one token is never served to another.
func NewCachingHTTPClient(opts Options) *http.Client {
	newCache := func(string) httpcache.Cache {
		return httpcache.NewMemoryCache()
	}
	if opts.CacheDir != "" {
		newCache = func(scope string) httpcache.Cache {
			return diskcache.New(filepath.Join(opts.CacheDir, scope))
		}
	}

	limit := opts.MaxCredentials
	if limit <= 0 {
		limit = DefaultMaxCredentials
	}

	var rt http.RoundTripper = &credentialTransport{
		newCache: newCache,
		max:      limit,
		scopes:   map[string]*httpcache.Transport{},
	}
	if opts.Tracing {
		rt = otelhttp.NewTransport(rt)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
	}
}

// NewInMemoryCachingHTTPClient creates an HTTP client with in-memory caching only.
func NewInMemoryCachingHTTPClient() *http.Client {
	return NewCachingHTTPClient(Options{})
}

// IsCached reports whether a response was served from the local cache.
func IsCached(resp *http.Response) bool {
	return resp != nil && resp.Header.Get(httpcache.XFromCache) == "1"
}

// credentialTransport routes each request to an httpcache transport owned by
// the request's credential.
type credentialTransport struct {
	newCache func(scope string) httpcache.Cache
	max      int

	mu     sync.Mutex
	scopes map[string]*httpcache.Transport
	order  []string
}

func (t *credentialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.transport(credentialScope(req)).RoundTrip(req)
}

func (t *credentialTransport) transport(scope string) *httpcache.Transport {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tr, ok := t.scopes[scope]; ok {
		return tr
	}

	if len(t.order) >= t.max {
		oldest := t.order[0]
		t.order = slices.Delete(t.order, 0, 1)
		delete(t.scopes, oldest)
	}

	tr := httpcache.NewTransport(t.newCache(scope))
	// sets X-From-Cache on cached responses, see IsCached
	tr.MarkCachedResponses = true

	t.scopes[scope] = tr
	t.order = append(t.order, scope)

	return tr
}

func (t *credentialTransport) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.scopes)
}

// credentialScope names the cache for the request's Authorization header
// without keeping the credential itself.
func credentialScope(req *http.Request) string {
	auth := req.Header.Get("Authorization")
	if auth == "" {
		return anonymousScope
	}
	sum := sha256.Sum256([]byte(auth))
	return hex.EncodeToString(sum[:16])
}

// Package assetcache serves static assets with a stale-while-revalidate
// policy: cached responses are returned immediately while a rate-limited
// background fetch refreshes the entry for the next request. Entries live
// in a versioned SQLite cache fronted by an in-memory LRU; activating a new
// version purges every older one.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// CacheStatusHeader reports whether a response came from cache.
const CacheStatusHeader = "X-Asset-Cache"

// Hop-by-hop headers are stripped before storing or replaying a response.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

const maxAssetBytes = 32 << 20

// errAssetTooLarge marks an origin body over the size cap. Such responses
// are never stored: a truncated body under the origin's Content-Length would
// corrupt the cache, so the request is proxied through instead.
var errAssetTooLarge = errors.New("asset exceeds cache size cap")

// Worker is the caching proxy in front of the static-asset origin. It must
// be installed and activated before it serves cached responses; until then
// every request passes through.
type Worker struct {
	origin    *url.URL
	cacheName string
	store     *storage.Store
	hot       *cache.LRUCache[*storage.AssetEntry]
	limiter   *rate.Limiter
	metrics   MetricsCollector
	logger    *log.Logger
	httpc     *http.Client
	proxy     *httputil.ReverseProxy

	maxBytes        int64
	upstreamTimeout time.Duration

	mu     sync.RWMutex
	active bool

	revalidations sync.WaitGroup
}

// Options configures a Worker.
type Options struct {
	// Origin is the upstream serving the real assets, e.g. the Vite dev
	// server or the production static host.
	Origin string
	// CacheName is the versioned cache this worker owns, e.g. "static-v3".
	CacheName string
	Store     *storage.Store

	HotSize int
	HotTTL  time.Duration
	// RevalidateRPS caps background refresh traffic to the origin.
	RevalidateRPS   float64
	UpstreamTimeout time.Duration
	// MaxAssetBytes caps the body size of cached entries; larger assets are
	// proxied through without caching.
	MaxAssetBytes int64

	Metrics    MetricsCollector
	Logger     *log.Logger
	HTTPClient *http.Client
}

func NewWorker(opts Options) (*Worker, error) {
	origin, err := url.Parse(opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("parse asset origin: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("asset origin %q must be an absolute URL", opts.Origin)
	}
	if opts.CacheName == "" {
		return nil, errors.New("cache name is required")
	}
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NopCollector{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentAssetCache})
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: opts.UpstreamTimeout}
	}

	hotSize := opts.HotSize
	if hotSize <= 0 {
		hotSize = 256
	}
	hotTTL := opts.HotTTL
	if hotTTL <= 0 {
		hotTTL = 5 * time.Minute
	}
	rps := opts.RevalidateRPS
	if rps <= 0 {
		rps = 2
	}
	upstreamTimeout := opts.UpstreamTimeout
	if upstreamTimeout <= 0 {
		upstreamTimeout = 15 * time.Second
	}
	maxBytes := opts.MaxAssetBytes
	if maxBytes <= 0 {
		maxBytes = maxAssetBytes
	}

	return &Worker{
		origin:          origin,
		cacheName:       opts.CacheName,
		store:           opts.Store,
		hot:             cache.NewLRUCache[*storage.AssetEntry](hotSize, hotTTL),
		limiter:         rate.NewLimiter(rate.Limit(rps), 1),
		metrics:         metrics,
		logger:          logger,
		httpc:           httpc,
		proxy:           httputil.NewSingleHostReverseProxy(origin),
		maxBytes:        maxBytes,
		upstreamTimeout: upstreamTimeout,
	}, nil
}

// CacheName returns the versioned cache this worker owns.
func (w *Worker) CacheName() string {
	return w.cacheName
}

// Install prepares the current versioned cache. It must complete before
// Activate; the worker passes every request through until activated.
func (w *Worker) Install(ctx context.Context) error {
	names, err := w.store.CacheNames(ctx)
	if err != nil {
		return fmt.Errorf("install cache %s: %w", w.cacheName, err)
	}

	existing := false
	for _, name := range names {
		if name == w.cacheName {
			existing = true
			break
		}
	}
	w.logger.InfoContext(ctx, "asset cache installed",
		log.FieldCacheName, w.cacheName,
		log.FieldOperation, log.OpInstall,
		"reused", existing,
	)
	return nil
}

// Activate purges every cache whose name differs from the current version
// and starts answering requests from cache. No restart or reload is needed:
// the next request is already controlled.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.store.CacheNames(ctx)
	if err != nil {
		return fmt.Errorf("activate cache %s: %w", w.cacheName, err)
	}

	for _, name := range names {
		if name == w.cacheName {
			continue
		}
		deleted, err := w.store.DeleteCache(ctx, name)
		if err != nil {
			return fmt.Errorf("purge stale cache %s: %w", name, err)
		}
		w.logger.InfoContext(ctx, "purged stale asset cache",
			log.FieldCacheName, name,
			"entries", deleted,
		)
	}

	w.mu.Lock()
	w.active = true
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "asset cache active",
		log.FieldCacheName, w.cacheName,
		log.FieldOperation, log.OpActivate,
	)
	return nil
}

// CleanExpired drops expired entries from the in-memory front. It makes the
// Worker registrable with the cache.Manager cleanup loop.
func (w *Worker) CleanExpired() int {
	return w.hot.CleanExpired()
}

// Close waits for in-flight background revalidations to finish.
func (w *Worker) Close() {
	w.revalidations.Wait()
}

func (w *Worker) isActive() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// ServeHTTP implements the interception policy: cacheable static-asset GETs
// are answered stale-while-revalidate, everything else is proxied untouched.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if !w.isActive() || !Cacheable(r) {
		w.metrics.RecordPassthrough()
		w.proxy.ServeHTTP(rw, r)
		return
	}

	key := r.URL.RequestURI()

	if entry, ok := w.hot.Get(key); ok {
		w.metrics.RecordHit("memory")
		w.writeEntry(rw, entry, "hit")
		w.scheduleRevalidate(key)
		return
	}

	entry, ok, err := w.store.GetAsset(r.Context(), w.cacheName, key)
	if err != nil {
		w.logger.ErrorContext(r.Context(), "asset cache lookup failed",
			log.FieldURL, key,
			log.FieldError, err,
		)
	}
	if ok {
		w.hot.Set(key, entry)
		w.metrics.RecordHit("disk")
		w.writeEntry(rw, entry, "hit")
		w.scheduleRevalidate(key)
		return
	}

	w.metrics.RecordMiss()
	entry, err = w.fetch(r.Context(), key)
	if errors.Is(err, errAssetTooLarge) {
		w.logger.DebugContext(r.Context(), "asset over size cap, proxying",
			log.FieldURL, key,
		)
		w.proxy.ServeHTTP(rw, r)
		return
	}
	if err != nil {
		w.logger.ErrorContext(r.Context(), "asset fetch failed",
			log.FieldURL, key,
			log.FieldError, err,
		)
		http.Error(rw, "upstream fetch failed", http.StatusBadGateway)
		return
	}

	// Non-2xx upstream responses are relayed but never cached.
	if cacheableStatus(entry.Status) {
		w.storeEntry(r.Context(), key, entry)
	}
	w.writeEntry(rw, entry, "miss")
}

// scheduleRevalidate refreshes a cached entry in the background. The caller
// already has its response; a failed refresh only means the next request is
// served the same stale copy, so errors are logged and swallowed.
func (w *Worker) scheduleRevalidate(key string) {
	if !w.limiter.Allow() {
		w.metrics.RecordRevalidation("throttled")
		return
	}

	w.revalidations.Add(1)
	go func() {
		defer w.revalidations.Done()

		ctx, cancel := context.WithTimeout(context.Background(), w.upstreamTimeout)
		defer cancel()

		entry, err := w.fetch(ctx, key)
		if err != nil || !cacheableStatus(entry.Status) {
			w.metrics.RecordRevalidation("error")
			w.logger.DebugContext(ctx, "background revalidation failed",
				log.FieldURL, key,
				log.FieldOperation, log.OpRevalidate,
				log.FieldError, err,
			)
			return
		}

		w.storeEntry(ctx, key, entry)
		w.metrics.RecordRevalidation("ok")
	}()
}

// fetch retrieves key from the origin. Callers decide whether the resulting
// status is worth caching.
func (w *Worker) fetch(ctx context.Context, key string) (*storage.AssetEntry, error) {
	u, err := url.Parse(key)
	if err != nil {
		return nil, fmt.Errorf("parse asset key %q: %w", key, err)
	}
	target := w.origin.ResolveReference(u).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build asset request: %w", err)
	}

	start := time.Now()
	resp, err := w.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()
	w.metrics.RecordFetchLatency(time.Since(start))

	// Read one byte past the cap so truncation is detectable rather than
	// silently stored as a short body.
	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read asset body %s: %w", key, err)
	}
	if int64(len(body)) > w.maxBytes {
		return nil, fmt.Errorf("%s: %w", key, errAssetTooLarge)
	}

	header := resp.Header.Clone()
	for _, h := range hopByHopHeaders {
		header.Del(h)
	}

	return &storage.AssetEntry{
		URL:       key,
		Status:    resp.StatusCode,
		Header:    header,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func cacheableStatus(status int) bool {
	return status >= 200 && status < 300
}

func (w *Worker) storeEntry(ctx context.Context, key string, entry *storage.AssetEntry) {
	w.hot.Set(key, entry)
	if err := w.store.PutAsset(ctx, w.cacheName, entry); err != nil {
		w.logger.ErrorContext(ctx, "asset cache write failed",
			log.FieldURL, key,
			log.FieldError, err,
		)
	}
}

func (w *Worker) writeEntry(rw http.ResponseWriter, entry *storage.AssetEntry, cacheStatus string) {
	for name, values := range entry.Header {
		for _, v := range values {
			rw.Header().Add(name, v)
		}
	}
	rw.Header().Set(CacheStatusHeader, cacheStatus)
	rw.WriteHeader(entry.Status)
	_, _ = rw.Write(entry.Body)
}

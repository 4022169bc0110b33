package assetcache

import (
	"net/http"
	"path"
	"strings"
)

// Destinations the cache is willing to hold. Anything else (documents,
// API calls, websockets) goes straight to the origin.
var cacheableDestinations = map[string]bool{
	"script": true,
	"style":  true,
	"font":   true,
	"image":  true,
}

// Extension fallback for clients that do not send Sec-Fetch-Dest.
var extensionDestinations = map[string]string{
	".js":    "script",
	".mjs":   "script",
	".css":   "style",
	".woff":  "font",
	".woff2": "font",
	".ttf":   "font",
	".otf":   "font",
	".png":   "image",
	".jpg":   "image",
	".jpeg":  "image",
	".gif":   "image",
	".webp":  "image",
	".svg":   "image",
	".avif":  "image",
}

// Destination classifies a request: the Sec-Fetch-Dest header when present,
// otherwise the URL extension. Returns "" when the request is not a static
// asset.
func Destination(r *http.Request) string {
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" {
		if cacheableDestinations[dest] {
			return dest
		}
		return ""
	}
	ext := strings.ToLower(path.Ext(r.URL.Path))
	return extensionDestinations[ext]
}

// Cacheable reports whether the request should be answered from the asset
// cache. Only idempotent GETs for static assets qualify, and app icons are
// always fetched fresh so installed shortcuts pick up icon changes.
func Cacheable(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if Destination(r) == "" {
		return false
	}
	if isIconPath(r.URL.Path) {
		return false
	}
	return true
}

func isIconPath(p string) bool {
	lower := strings.ToLower(p)
	if strings.Contains(lower, "/icons/") {
		return true
	}
	base := path.Base(lower)
	return strings.HasPrefix(base, "favicon") || strings.HasPrefix(base, "apple-touch-icon")
}

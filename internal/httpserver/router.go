// Package httpserver exposes the proxy's operational surface: Prometheus
// metrics, a liveness probe, and a read-only view of the cache keys.
package httpserver

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Harbinger55555/KV-StorageSys/internal/cache"
)

const (
	metricsPath   = "/metrics"
	healthPath    = "/healthz"
	cacheKeysPath = "/debug/cache/keys"

	contentTypeText = "text/plain; charset=utf-8"
)

// NewRouter returns the handler served on the metrics port.
func NewRouter(store *cache.Store) http.Handler {
	r := chi.NewRouter()

	r.Method(http.MethodGet, metricsPath, promhttp.Handler())

	r.Get(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentTypeText)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			zap.S().Warnw("write health response", "error", err)
		}
	})

	r.Get(cacheKeysPath, func(w http.ResponseWriter, _ *http.Request) {
		handleCacheKeys(w, store)
	})

	return r
}

// handleCacheKeys renders the stored keys as a single CSV line in
// insertion order, the same shape the backend uses for DUMP listings.
func handleCacheKeys(w http.ResponseWriter, store *cache.Store) {
	keys := make([]string, 0, store.Len())
	for k := range store.Keys() {
		keys = append(keys, k)
	}

	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(strings.Join(keys, ", ") + "\n")); err != nil {
		zap.S().Warnw("write cache keys response", "error", err)
	}
}

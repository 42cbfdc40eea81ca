package handler

import (
	"net/http"
	"time"

	snapcache "github.com/reny1cao/crypto-insights/internal/cache/snapshot"
)

// MetricsSource exposes snapshot cache counters. *snapcache.CachedStore
// satisfies it.
type MetricsSource interface {
	Metrics() snapcache.MetricsSnapshot
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	started time.Time
	version string
	cache   MetricsSource
}

func NewHealthHandler(version string, cache MetricsSource) *HealthHandler {
	return &HealthHandler{started: time.Now(), version: version, cache: cache}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out := map[string]any{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.cache != nil {
		out["snapshot_cache"] = h.cache.Metrics()
	}
	writeJSON(w, http.StatusOK, out)
}

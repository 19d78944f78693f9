package zombie

// debug.go exposes a JSON snapshot of engine telemetry over HTTP: a handler
// a host process mounts under its own mux, so cmd/zombie-inspect has
// something real to poll instead of reaching into engine internals directly.
//
// © 2025 zombie-cache authors. MIT License.

import (
	"encoding/json"
	"net/http"
	"time"
)

// Snapshot is the JSON payload served by SnapshotHandler.
type Snapshot struct {
	AkashaSize       int           `json:"akasha_size"`
	EvictionHeapSize int           `json:"eviction_heap_size"`
	EvictedContexts  int           `json:"evicted_contexts"`
	UFRoots          int           `json:"uf_roots"`
	Now              time.Duration `json:"now"`
}

// SnapshotHandler returns an http.HandlerFunc that serves the engine's
// current Stats as JSON. The caller mounts it under whatever path it likes;
// the engine only supplies the handler, never a server.
func (e *Engine) SnapshotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := e.Stats()
		snap := Snapshot{
			AkashaSize:       stats.AkashaSize,
			EvictionHeapSize: stats.EvictionHeapSize,
			EvictedContexts:  stats.EvictedContexts,
			UFRoots:          stats.UFRoots,
			Now:              e.Now(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	}
}

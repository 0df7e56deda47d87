package recorder

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/market-recorder/internal/stream"
	"github.com/rickgao/market-recorder/internal/version"
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// VenueHealth is the health of one pipeline.
type VenueHealth struct {
	State        string `json:"state"`
	Frames       int64  `json:"frames"`
	Records      int64  `json:"records"`
	Malformed    int64  `json:"malformed"`
	Reconnects   int64  `json:"reconnects"`
	CoverageGaps int64  `json:"coverage_gaps"`
	SequenceGaps int64  `json:"sequence_gaps"`
	Error        string `json:"error,omitempty"`
}

// Health is the body of the /health endpoint.
type Health struct {
	Status     string                 `json:"status"`
	Instance   string                 `json:"instance"`
	RunID      string                 `json:"run_id"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Venues     map[string]VenueHealth `json:"venues"`
	Components map[string]any         `json:"components,omitempty"`
}

// Health reports pipeline states. A failed pipeline or an unreachable
// catalog is unhealthy; a pipeline that is not streaming is degraded.
func (r *Recorder) Health(ctx context.Context) Health {
	h := Health{
		Status:     StatusHealthy,
		Instance:   r.cfg.Instance.ID,
		RunID:      r.runID.String(),
		Version:    version.Version,
		Venues:     make(map[string]VenueHealth, len(r.pipelines)),
		Components: make(map[string]any),
	}
	h.Uptime = time.Since(r.started).Truncate(time.Second).String()

	for _, p := range r.pipelines {
		s := p.consumer.Stats()
		vh := VenueHealth{
			State:        s.State.String(),
			Frames:       s.Frames,
			Records:      s.Records,
			Malformed:    s.Malformed,
			Reconnects:   s.Reconnects,
			CoverageGaps: s.CoverageGaps,
			SequenceGaps: s.SequenceGaps,
		}
		if err := p.failure(); err != nil {
			vh.Error = err.Error()
			h.Status = StatusUnhealthy
		} else if s.State != stream.StateStreaming && h.Status == StatusHealthy {
			h.Status = StatusDegraded
		}
		h.Venues[p.venue] = vh
	}

	if r.db != nil {
		if err := r.db.Ping(ctx); err != nil {
			h.Status = StatusUnhealthy
			h.Components["catalog"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			h.Components["catalog"] = "connected"
		}
	}
	return h
}

// HealthHandler serves /health.
func (r *Recorder) HealthHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		health := r.Health(ctx)

		w.Header().Set("Content-Type", "application/json")
		if health.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}

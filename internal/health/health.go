// Package health serves the liveness and readiness probes of the narration
// service.
//
//   - /healthz reports liveness; a process that can answer HTTP is alive.
//   - /readyz reports readiness; it returns 200 only while every registered
//     check passes. Once the speech scheduler is stopped or a backend check
//     fails, /readyz flips to 503 so the service is taken out of rotation
//     before narration goes silent.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map with one entry per registered check.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check. Checks probe in-process state
// (scheduler, providers), so anything slower than this is itself a failure.
const checkTimeout = 2 * time.Second

// CheckFunc probes one dependency of the narration pipeline. It returns nil
// while the dependency can serve and an error describing the problem
// otherwise. It must respect context cancellation.
type CheckFunc func(ctx context.Context) error

// status is the JSON response body for both probes.
type status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints. Checks are registered
// with [Handler.Add] before the HTTP server starts; the handler is safe for
// concurrent use afterwards.
type Handler struct {
	log    *slog.Logger
	names  []string
	checks map[string]CheckFunc
}

// New creates an empty [Handler]. A nil log falls back to [slog.Default].
func New(log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:    log,
		checks: make(map[string]CheckFunc),
	}
}

// Add registers a named readiness check. Checks run sequentially in
// registration order on every /readyz request. Re-adding a name replaces the
// previous check.
func (h *Handler) Add(name string, fn CheckFunc) {
	if _, ok := h.checks[name]; !ok {
		h.names = append(h.names, name)
	}
	h.checks[name] = fn
}

// Healthz is the liveness probe. It always returns 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, status{Status: "ok"})
}

// Readyz is the readiness probe. It runs every registered check with a
// [checkTimeout] deadline and returns 503 as soon as the narration pipeline
// cannot serve.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := status{
		Status: "ok",
		Checks: make(map[string]string, len(h.names)),
	}
	code := http.StatusOK

	for _, name := range h.names {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := h.checks[name](ctx)
		cancel()

		if err != nil {
			res.Checks[name] = "fail: " + err.Error()
			res.Status = "fail"
			code = http.StatusServiceUnavailable
			h.log.Warn("readiness check failed", "check", name, "error", err)
			continue
		}
		res.Checks[name] = "ok"
	}

	writeJSON(w, code, res)
}

// Routes adds the /healthz and /readyz endpoints to mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

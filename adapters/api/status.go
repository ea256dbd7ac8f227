// Package api exposes live run status over HTTP. A RunTracker observes
// progress events through the progress port; handlers read its snapshot
// without ever feeding anything back into the control loop.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"gotemper/domain/mcmc"
	"gotemper/ports"
)

// RunStatus is the JSON snapshot served for a run.
type RunStatus struct {
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	Phase       string             `json:"phase"`
	Current     int                `json:"current"`
	Total       int                `json:"total"`
	Done        bool               `json:"done"`
	Annotations map[string]float64 `json:"annotations,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// RunTracker records progress events for one run.
type RunTracker struct {
	mu     sync.RWMutex
	status RunStatus
	result *mcmc.RunResult
}

// NewRunTracker creates a tracker for the given run identity.
func NewRunTracker(id, label string) *RunTracker {
	now := time.Now().UTC()
	return &RunTracker{status: RunStatus{
		ID:          id,
		Label:       label,
		Annotations: make(map[string]float64),
		StartedAt:   now,
		UpdatedAt:   now,
	}}
}

// SetTotal implements ports.ProgressReporter.
func (t *RunTracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Total = total
	t.status.UpdatedAt = time.Now().UTC()
}

// SetPhase implements ports.ProgressReporter.
func (t *RunTracker) SetPhase(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = phase
	t.status.UpdatedAt = time.Now().UTC()
}

// Step implements ports.ProgressReporter.
func (t *RunTracker) Step() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Current++
	t.status.UpdatedAt = time.Now().UTC()
}

// Annotate implements ports.ProgressReporter.
func (t *RunTracker) Annotate(fields map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range fields {
		t.status.Annotations[k] = v
	}
	t.status.UpdatedAt = time.Now().UTC()
}

// Finish implements ports.ProgressReporter.
func (t *RunTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Done = true
	t.status.UpdatedAt = time.Now().UTC()
}

// SetResult attaches the finished chain so the report can include it.
func (t *RunTracker) SetResult(run *mcmc.RunResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.result = run
}

// Snapshot returns a copy of the current status.
func (t *RunTracker) Snapshot() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.status
	out.Annotations = make(map[string]float64, len(t.status.Annotations))
	for k, v := range t.status.Annotations {
		out.Annotations[k] = v
	}
	return out
}

// Result returns the attached run result, or nil while still sampling.
func (t *RunTracker) Result() *mcmc.RunResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

var _ ports.ProgressReporter = (*RunTracker)(nil)

// Registry holds the trackers of all runs known to this process.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*RunTracker
}

// NewRegistry creates an empty tracker registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*RunTracker)}
}

// Register creates and stores a tracker for a run.
func (r *Registry) Register(id, label string) *RunTracker {
	tracker := NewRunTracker(id, label)
	r.mu.Lock()
	r.runs[id] = tracker
	r.mu.Unlock()
	return tracker
}

// Get returns the tracker for a run, or nil.
func (r *Registry) Get(id string) *RunTracker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs[id]
}

// NewRouter builds the status API over a registry.
func NewRouter(reg *Registry) http.Handler {
	r := chi.NewRouter()
	r.Get("/runs/{id}", handleStatus(reg))
	r.Get("/runs/{id}/report", handleReport(reg))
	return r
}

func handleStatus(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		tracker := reg.Get(chi.URLParam(req, "id"))
		if tracker == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(tracker.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// Package httpapi exposes the coordinator over a small JSON HTTP
// surface for submitting tasks and inspecting pipeline state.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/r3e-network/AutoClaude-sub004/internal/coordinator"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

// maxRequestBodyBytes caps request bodies to prevent OOM on bad input.
const maxRequestBodyBytes = 1 << 20

// Server wires the coordinator into an http.Handler.
type Server struct {
	coord *coordinator.Coordinator
	mux   *http.ServeMux
}

// NewServer creates the API server and registers all routes.
func NewServer(coord *coordinator.Coordinator) *Server {
	s := &Server{coord: coord, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /tasks", s.handleSubmit)
	s.mux.HandleFunc("GET /tasks/{id}", s.handleTaskStatus)
	s.mux.HandleFunc("GET /queue", s.handleQueue)
	s.mux.HandleFunc("GET /agents", s.handleAgents)
	s.mux.HandleFunc("GET /locks", s.handleLocks)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	}
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// submitRequest is the POST /tasks body.
type submitRequest struct {
	ID           string            `json:"id,omitempty"`
	Type         string            `json:"type"`
	File         string            `json:"file,omitempty"`
	Source       string            `json:"source,omitempty"`
	Priority     int               `json:"priority,omitempty"`
	DependsOn    []string          `json:"depends_on,omitempty"`
	TimeoutMs    int               `json:"timeout_ms,omitempty"`
	MaxRetries   int               `json:"max_retries,omitempty"`
	Capabilities []string          `json:"capabilities,omitempty"`
	Options      map[string]string `json:"options,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	caps := make([]scheduler.Capability, 0, len(req.Capabilities))
	for _, c := range req.Capabilities {
		caps = append(caps, scheduler.Capability(c))
	}
	task := &scheduler.Task{
		ID:                   req.ID,
		Type:                 scheduler.TaskType(req.Type),
		Priority:             req.Priority,
		Payload:              scheduler.Payload{File: req.File, Source: req.Source, Options: req.Options},
		RequiredCapabilities: caps,
		DependsOn:            req.DependsOn,
		Timeout:              time.Duration(req.TimeoutMs) * time.Millisecond,
		MaxRetries:           req.MaxRetries,
	}

	id, err := s.coord.Submit(task)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, coordinator.ErrNotInitialized) || errors.Is(err, coordinator.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}

// taskView is the JSON shape of a task status response.
type taskView struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Status        string   `json:"status"`
	Priority      int      `json:"priority"`
	File          string   `json:"file,omitempty"`
	AssignedAgent string   `json:"assigned_agent,omitempty"`
	RetryCount    int      `json:"retry_count"`
	Output        string   `json:"output,omitempty"`
	Error         string   `json:"error,omitempty"`
	DependsOn     []string `json:"depends_on,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	CompletedAt   string   `json:"completed_at,omitempty"`
}

func viewOf(t *scheduler.Task) taskView {
	v := taskView{
		ID:            t.ID,
		Type:          string(t.Type),
		Status:        t.Status.String(),
		Priority:      t.Priority,
		File:          t.Payload.File,
		AssignedAgent: t.AssignedAgent,
		RetryCount:    t.RetryCount,
		Output:        t.Output,
		Error:         t.Error,
		DependsOn:     t.DependsOn,
	}
	if !t.CreatedAt.IsZero() {
		v.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	if !t.CompletedAt.IsZero() {
		v.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return v
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, ok := s.coord.Status(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown task "+id)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(task))
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	queued, inFlight, completed, failed := s.coord.QueueStatus()
	writeJSON(w, http.StatusOK, map[string]int{
		"queued":    queued,
		"in_flight": inFlight,
		"completed": completed,
		"failed":    failed,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.AgentStatus())
}

func (s *Server) handleLocks(w http.ResponseWriter, r *http.Request) {
	locks := s.coord.Locks()
	type lockView struct {
		Resource string   `json:"resource"`
		Kind     string   `json:"kind"`
		Holders  []string `json:"holders"`
	}
	views := make([]lockView, 0, len(locks))
	for _, l := range locks {
		views = append(views, lockView{
			Resource: l.Resource,
			Kind:     l.Kind.String(),
			Holders:  l.Holders,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

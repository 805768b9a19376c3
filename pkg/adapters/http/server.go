package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	aramcrm "github.com/infohyun/aramcrm-sub001"
	"github.com/infohyun/aramcrm-sub001/internal/presentation/graph"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Service is the workflow application surface the handler drives.
type Service interface {
	List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error)
	Get(ctx context.Context, id string) (*domain.Workflow, error)
	Create(ctx context.Context, in workflow.CreateInput) (*domain.Workflow, error)
	Update(ctx context.Context, id string, in workflow.UpdateInput) (*domain.Workflow, error)
	Delete(ctx context.Context, id string) error
	AppendNode(ctx context.Context, id string, nodeType domain.NodeType, label string) (*domain.Workflow, domain.Node, error)
	RemoveNode(ctx context.Context, id, nodeID string) (*domain.Workflow, error)
	Chain(ctx context.Context, id string) (*workflow.ChainView, error)
	RecordRun(ctx context.Context, id string, at time.Time) (*domain.Workflow, error)
}

// Server serves the workflow REST API.
type Server struct {
	Service Service
	Streams *StreamManager

	logger         *slog.Logger
	metrics        func(http.Handler) http.Handler
	metricsHandler http.Handler
}

// Option configures the handler.
type Option func(*Server)

// WithStreams shares a StreamManager whose Hooks are registered on the service.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics instruments every route and mounts handler on /metrics.
func WithMetrics(middleware func(http.Handler) http.Handler, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = middleware
		s.metricsHandler = handler
	}
}

// NewHandler creates the HTTP handler for the workflow service.
func NewHandler(svc Service, opts ...Option) http.Handler {
	server := &Server{
		Service: svc,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager(server.logger)
	}

	r := chi.NewRouter()
	if server.metrics != nil {
		r.Use(server.metrics)
	}
	if server.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", server.metricsHandler)
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/events", server.SubscribeEvents)

	r.Route("/api/workflows", func(r chi.Router) {
		r.Get("/", server.ListWorkflows)
		r.Post("/", server.CreateWorkflow)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.GetWorkflow)
			r.Put("/", server.UpdateWorkflow)
			r.Delete("/", server.DeleteWorkflow)
			r.Post("/nodes", server.AppendNode)
			r.Delete("/nodes/{nodeId}", server.RemoveNode)
			r.Get("/chain", server.GetChain)
			r.Get("/graph", server.GetGraph)
			r.Post("/runs", server.RecordRun)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>aramcrm Workflow API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// ListWorkflows handles GET /api/workflows.
func (s *Server) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	params, err := bindListParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	opts := ports.ListOptions{Active: params.Active}
	if params.Trigger != nil && *params.Trigger != "" {
		trig, err := domain.ParseTrigger(*params.Trigger)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Trigger = trig
	}
	if params.Limit != nil {
		if *params.Limit < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be >= 0"))
			return
		}
		opts.Limit = *params.Limit
	}

	list, err := s.Service.List(r.Context(), opts)
	if err != nil {
		s.fail(w, "ListWorkflows", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"workflows": list})
}

// CreateWorkflow handles POST /api/workflows.
func (s *Server) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var body workflowRequest
	if !s.decode(w, r, &body) {
		return
	}
	in, err := body.createInput()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	wf, err := s.Service.Create(r.Context(), in)
	if err != nil {
		s.fail(w, "CreateWorkflow", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, wf)
}

// GetWorkflow handles GET /api/workflows/{id}.
func (s *Server) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	wf, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.fail(w, "GetWorkflow", err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

// UpdateWorkflow handles PUT /api/workflows/{id}. Absent fields are kept.
func (s *Server) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	var body workflowRequest
	if !s.decode(w, r, &body) {
		return
	}
	in, err := body.updateInput()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	wf, err := s.Service.Update(r.Context(), id, in)
	if err != nil {
		s.fail(w, "UpdateWorkflow", err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

// DeleteWorkflow handles DELETE /api/workflows/{id}.
func (s *Server) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.Service.Delete(r.Context(), id); err != nil {
		s.fail(w, "DeleteWorkflow", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendNode handles POST /api/workflows/{id}/nodes.
func (s *Server) AppendNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	var body appendNodeRequest
	if !s.decode(w, r, &body) {
		return
	}
	nodeType, err := domain.ParseNodeType(body.Type)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	wf, node, err := s.Service.AppendNode(r.Context(), id, nodeType, body.Label)
	if err != nil {
		s.fail(w, "AppendNode", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, appendNodeResponse{Workflow: wf, Node: node})
}

// RemoveNode handles DELETE /api/workflows/{id}/nodes/{nodeId}.
func (s *Server) RemoveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	nodeID, ok := s.pathParam(w, r, "nodeId")
	if !ok {
		return
	}
	wf, err := s.Service.RemoveNode(r.Context(), id, nodeID)
	if err != nil {
		s.fail(w, "RemoveNode", err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

// GetChain handles GET /api/workflows/{id}/chain.
func (s *Server) GetChain(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	view, err := s.Service.Chain(r.Context(), id)
	if err != nil {
		s.fail(w, "GetChain", err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// GetGraph handles GET /api/workflows/{id}/graph and returns Mermaid text.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	var selected *string
	if err := runtime.BindQueryParameter("form", true, false, "selected", r.URL.Query(), &selected); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	wf, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.fail(w, "GetGraph", err)
		return
	}
	overlay := &graph.GraphOverlay{Problems: problemNodes(wf)}
	if selected != nil {
		overlay.Selected = *selected
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(graph.GenerateMermaid(wf, overlay)))
}

// RecordRun handles POST /api/workflows/{id}/runs.
func (s *Server) RecordRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathParam(w, r, "id")
	if !ok {
		return
	}
	wf, err := s.Service.RecordRun(r.Context(), id, time.Time{})
	if err != nil {
		s.fail(w, "RecordRun", err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "aramcrm-http",
		"version":     strings.TrimSpace(aramcrm.Version),
		"api_version": apiVersion,
	})
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}
	var workflowID *string
	if err := runtime.BindQueryParameter("form", true, false, "workflow_id", r.URL.Query(), &workflowID); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	key := allWorkflows
	if workflowID != nil {
		key = *workflowID
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to workflow changes", "workflow_id", key)
	ch, cancel := s.Streams.Subscribe(key)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "workflow_id", key)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", MaxBodyBytes))
			return false
		}
		s.logger.Warn("Invalid request body", "err", err, "path", r.URL.Path)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// fail maps service errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound), errors.Is(err, domain.ErrNodeNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case workflow.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error(op+" failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

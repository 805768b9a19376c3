package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnChange(ctx, &domain.ChangeEvent{Type: domain.EventCreated})
	hooks.OnChange(ctx, &domain.ChangeEvent{Type: domain.EventNodeAppended})
	hooks.OnChange(ctx, &domain.ChangeEvent{Type: domain.EventNodeAppended})

	expected := `
# HELP aramcrm_workflow_changes_total Total number of persisted workflow mutations
# TYPE aramcrm_workflow_changes_total counter
aramcrm_workflow_changes_total{type="created"} 1
aramcrm_workflow_changes_total{type="node_appended"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), bytes.NewBufferString(expected), "aramcrm_workflow_changes_total"))
}

func TestMetrics_Middleware(t *testing.T) {
	m := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workflows/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aramcrm_http_requests_total{method="GET",route="/api/workflows/{id}",status="404"} 2`)
}

func TestAuditHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	hooks := observability.AuditHooks(logger)

	hooks.OnChange(context.Background(), &domain.ChangeEvent{
		Type:       domain.EventNodeRemoved,
		WorkflowID: "wf-1",
		NodeID:     "n2",
		Diff:       &domain.WorkflowDiff{WorkflowID: "wf-1", RemovedNodes: []string{"n2"}},
	})

	out := buf.String()
	assert.Contains(t, out, "workflow_change")
	assert.Contains(t, out, "workflow_id=wf-1")
	assert.Contains(t, out, "node_id=n2")
	assert.Contains(t, out, "nodes_removed=1")
}

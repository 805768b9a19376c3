package observability

import (
	"context"
	"log/slog"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// AuditHooks logs every change event at info level.
func AuditHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnChange: func(ctx context.Context, ev *domain.ChangeEvent) {
			attrs := []any{
				"workflow_id", ev.WorkflowID,
				"type", ev.Type,
			}
			if ev.NodeID != "" {
				attrs = append(attrs, "node_id", ev.NodeID)
			}
			if d := ev.Diff; d != nil {
				attrs = append(attrs,
					"nodes_changed", len(d.Nodes),
					"nodes_removed", len(d.RemovedNodes),
					"edges_changed", len(d.Edges),
					"edges_removed", len(d.RemovedEdges),
				)
			}
			logger.InfoContext(ctx, "workflow_change", attrs...)
		},
	}
}

package ports

import (
	"context"
	"sort"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// WorkflowStore defines the interface for persisting workflows.
type WorkflowStore interface {
	// Save creates or replaces the workflow identified by wf.ID.
	Save(ctx context.Context, wf *domain.Workflow) error

	// Load retrieves a workflow.
	// Returns domain.ErrWorkflowNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Workflow, error)

	// Delete removes a workflow. Deleting a missing workflow is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the workflows matching opts, newest first.
	List(ctx context.Context, opts ListOptions) ([]*domain.Workflow, error)
}

// ListOptions narrows a List call. Zero values mean "no filter".
type ListOptions struct {
	Trigger domain.Trigger
	Active  *bool
	Limit   int
}

// Match reports whether wf passes the filters.
func (o ListOptions) Match(wf *domain.Workflow) bool {
	if o.Trigger != "" && wf.Trigger != o.Trigger {
		return false
	}
	if o.Active != nil && wf.IsActive != *o.Active {
		return false
	}
	return true
}

// Apply filters, orders (newest first, then by id) and truncates an unordered
// result set. Stores without native querying use it to honor ListOptions.
func (o ListOptions) Apply(all []*domain.Workflow) []*domain.Workflow {
	out := make([]*domain.Workflow, 0, len(all))
	for _, wf := range all {
		if o.Match(wf) {
			out = append(out, wf)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if o.Limit > 0 && len(out) > o.Limit {
		out = out[:o.Limit]
	}
	return out
}

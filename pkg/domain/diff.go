package domain

import "reflect"

// WorkflowDiff represents the changes between two versions of a workflow.
// It is serialized to JSON for partial updates on the client.
type WorkflowDiff struct {
	// WorkflowID is always present to identify the target.
	WorkflowID string `json:"workflow_id"`

	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Trigger     *Trigger `json:"trigger,omitempty"`
	IsActive    *bool    `json:"isActive,omitempty"`
	RunCount    *int     `json:"runCount,omitempty"`

	// Nodes lists added or modified nodes; RemovedNodes their ids.
	Nodes        []Node   `json:"nodes,omitempty"`
	RemovedNodes []string `json:"removed_nodes,omitempty"`
	Edges        []Edge   `json:"edges,omitempty"`
	RemovedEdges []string `json:"removed_edges,omitempty"`
}

// Diff calculates the difference between oldWf and newWf.
// If oldWf is nil, the diff describes the entire newWf (initial load).
// It returns nil when nothing changed.
func Diff(oldWf, newWf *Workflow) *WorkflowDiff {
	if newWf == nil {
		return nil
	}
	d := &WorkflowDiff{WorkflowID: newWf.ID}

	if oldWf == nil || oldWf.Name != newWf.Name {
		d.Name = &newWf.Name
	}
	if oldWf == nil || oldWf.Description != newWf.Description {
		d.Description = &newWf.Description
	}
	if oldWf == nil || oldWf.Trigger != newWf.Trigger {
		d.Trigger = &newWf.Trigger
	}
	if oldWf == nil || oldWf.IsActive != newWf.IsActive {
		d.IsActive = &newWf.IsActive
	}
	if oldWf == nil || oldWf.RunCount != newWf.RunCount {
		d.RunCount = &newWf.RunCount
	}

	var oldNodes []Node
	var oldEdges []Edge
	if oldWf != nil {
		oldNodes, oldEdges = oldWf.Nodes, oldWf.Edges
	}
	d.Nodes, d.RemovedNodes = diffByID(oldNodes, newWf.Nodes, func(n Node) string { return n.ID })
	d.Edges, d.RemovedEdges = diffByID(oldEdges, newWf.Edges, func(e Edge) string { return e.ID })

	if d.IsEmpty() {
		return nil
	}
	return d
}

func diffByID[T any](old, cur []T, id func(T) string) (changed []T, removed []string) {
	prev := make(map[string]T, len(old))
	for _, v := range old {
		prev[id(v)] = v
	}
	seen := make(map[string]bool, len(cur))
	for _, v := range cur {
		seen[id(v)] = true
		if p, ok := prev[id(v)]; !ok || !reflect.DeepEqual(p, v) {
			changed = append(changed, v)
		}
	}
	for _, v := range old {
		if !seen[id(v)] {
			removed = append(removed, id(v))
		}
	}
	return changed, removed
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *WorkflowDiff) IsEmpty() bool {
	return d.Name == nil &&
		d.Description == nil &&
		d.Trigger == nil &&
		d.IsActive == nil &&
		d.RunCount == nil &&
		len(d.Nodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.Edges) == 0 &&
		len(d.RemovedEdges) == 0
}

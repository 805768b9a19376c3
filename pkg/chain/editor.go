package chain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// Layout defaults for appended nodes.
var (
	Origin      = domain.Position{X: 250, Y: 50}
	NodeSpacing = 120.0
)

// IDFunc produces a fresh identifier with the given prefix.
type IDFunc func(prefix string) string

// DefaultID returns prefix-<uuid>.
func DefaultID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Editor applies chain-preserving edits to a workflow.
type Editor struct {
	newID IDFunc
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithIDFunc overrides id generation, mostly for deterministic tests.
func WithIDFunc(fn IDFunc) EditorOption {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEditor creates an Editor.
func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{newID: DefaultID}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Append adds a node of the given type to the end of the chain and connects the
// current tail to it. The workflow is left untouched when validation fails.
func (e *Editor) Append(wf *domain.Workflow, nodeType domain.NodeType, label string) (domain.Node, error) {
	if !nodeType.Valid() {
		return domain.Node{}, fmt.Errorf("%w: %q", domain.ErrInvalidNodeType, nodeType)
	}
	if strings.TrimSpace(label) == "" {
		return domain.Node{}, domain.ErrEmptyLabel
	}

	node := domain.Node{
		ID:       e.newID("node"),
		Type:     nodeType,
		Label:    label,
		Position: Origin,
	}

	if len(wf.Nodes) > 0 {
		if t := Tail(wf.Nodes, wf.Edges); t >= 0 {
			tail := wf.Nodes[t]
			node.Position = domain.Position{X: tail.Position.X, Y: tail.Position.Y + NodeSpacing}
			wf.Edges = append(wf.Edges, domain.Edge{
				ID:     e.newID("edge"),
				Source: tail.ID,
				Target: node.ID,
			})
		} else {
			last := wf.Nodes[len(wf.Nodes)-1].Position
			node.Position = domain.Position{X: last.X, Y: last.Y + NodeSpacing}
		}
	}
	wf.Nodes = append(wf.Nodes, node)
	return node, nil
}

// Remove deletes a node together with every edge touching it. When the node had
// both a predecessor and a successor they are bridged with a new edge carrying
// the former incoming edge's label, so a simple path stays a simple path.
func (e *Editor) Remove(wf *domain.Workflow, nodeID string) error {
	pos := -1
	for i, n := range wf.Nodes {
		if n.ID == nodeID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: %q", domain.ErrNodeNotFound, nodeID)
	}

	var incoming, outgoing *domain.Edge
	kept := make([]domain.Edge, 0, len(wf.Edges))
	for i := range wf.Edges {
		edge := wf.Edges[i]
		// Self-loops are dropped with the node and never bridged.
		selfLoop := edge.Source == nodeID && edge.Target == nodeID
		if edge.Target == nodeID && incoming == nil && !selfLoop {
			incoming = &wf.Edges[i]
		}
		if edge.Source == nodeID && outgoing == nil && !selfLoop {
			outgoing = &wf.Edges[i]
		}
		if edge.Source != nodeID && edge.Target != nodeID {
			kept = append(kept, edge)
		}
	}

	// A bridge onto itself would only happen when removing one half of a 2-cycle.
	if incoming != nil && outgoing != nil && incoming.Source != outgoing.Target {
		kept = append(kept, domain.Edge{
			ID:     e.newID("edge"),
			Source: incoming.Source,
			Target: outgoing.Target,
			Label:  incoming.Label,
		})
	}

	wf.Edges = kept
	wf.Nodes = append(wf.Nodes[:pos:pos], wf.Nodes[pos+1:]...)
	return nil
}

package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Workflow is the aggregate persisted by the builder.
type Workflow struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Trigger     Trigger `json:"trigger" yaml:"trigger"`
	IsActive    bool    `json:"isActive" yaml:"isActive"`

	// RunCount and LastRunAt are maintained by the executor, never by the editor.
	RunCount  int        `json:"runCount" yaml:"runCount"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty" yaml:"lastRunAt,omitempty"`

	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// UnmarshalJSON decodes nodes and edges leniently: a stringified list is
// unwrapped and a malformed one becomes empty, leaving the rest of the
// document intact. Strict checking is done by DecodeNodes and DecodeEdges.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	type alias Workflow
	aux := struct {
		*alias
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}{alias: (*alias)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	w.Nodes, _ = DecodeNodes(aux.Nodes)
	w.Edges, _ = DecodeEdges(aux.Edges)
	return nil
}

// ValidateMeta checks the fields owned by the workflow itself (not its chain).
func (w *Workflow) ValidateMeta() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if !w.Trigger.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTrigger, w.Trigger)
	}
	return nil
}

// NodeByID returns the first node with the given id.
func (w *Workflow) NodeByID(id string) (Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy of the workflow so callers never share slices or
// config maps with a store.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	if w.LastRunAt != nil {
		t := *w.LastRunAt
		c.LastRunAt = &t
	}
	c.Nodes = make([]Node, len(w.Nodes))
	for i, n := range w.Nodes {
		n.Config = cloneMap(n.Config)
		c.Nodes[i] = n
	}
	c.Edges = append(make([]Edge, 0, len(w.Edges)), w.Edges...)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case map[string]any:
			out[k] = cloneMap(vv)
		case []any:
			out[k] = append([]any(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}

// DecodeNodes parses raw as a node list. It accepts a JSON array or a JSON
// string holding an array. Anything malformed yields an empty list together
// with the parse error, so callers can log and carry on.
func DecodeNodes(raw []byte) ([]Node, error) {
	return decodeList[Node](raw)
}

// DecodeEdges is the edge counterpart of DecodeNodes.
func DecodeEdges(raw []byte) ([]Edge, error) {
	return decodeList[Edge](raw)
}

func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []T{}, nil
	}
	data := []byte(trimmed)
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return []T{}, fmt.Errorf("decode list: %w", err)
		}
		return decodeList[T]([]byte(inner))
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return []T{}, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

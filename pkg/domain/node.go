package domain

import "fmt"

// NodeType is the closed set of step kinds a workflow may contain.
type NodeType string

const (
	// NodeTrigger marks the entry point of the automation.
	NodeTrigger NodeType = "trigger"
	// NodeCondition gates the rest of the chain on a predicate.
	NodeCondition NodeType = "condition"
	// NodeAction performs a side-effect (update a ticket, send an email).
	NodeAction NodeType = "action"
	// NodeNotification alerts a user or channel.
	NodeNotification NodeType = "notification"
	// NodeDelay pauses the chain for a configured duration.
	NodeDelay NodeType = "delay"
	// NodeApproval halts until a human approves.
	NodeApproval NodeType = "approval"
)

// NodeTypes lists every valid NodeType in palette order.
var NodeTypes = []NodeType{
	NodeTrigger,
	NodeCondition,
	NodeAction,
	NodeNotification,
	NodeDelay,
	NodeApproval,
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTrigger, NodeCondition, NodeAction, NodeNotification, NodeDelay, NodeApproval:
		return true
	}
	return false
}

// ParseNodeType converts s into a NodeType, failing with ErrInvalidNodeType.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidNodeType, s)
	}
	return t, nil
}

// Position is the layout coordinate of a node on the canvas.
// It has no semantic meaning.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a single step of a workflow.
type Node struct {
	ID    string   `json:"id" yaml:"id"`
	Type  NodeType `json:"type" yaml:"type"`
	Label string   `json:"label" yaml:"label"`

	// Config holds type-specific parameters. The builder does not interpret it.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`

	Position Position `json:"position" yaml:"position"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

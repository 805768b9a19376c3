package http

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

// workflowRequest is the body of create and update calls. Nodes and edges
// arrive either as arrays or as JSON-encoded strings.
type workflowRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Trigger     *string         `json:"trigger"`
	IsActive    *bool           `json:"isActive"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
}

func (b workflowRequest) createInput() (workflow.CreateInput, error) {
	in := workflow.CreateInput{Trigger: domain.TriggerManual}
	if b.Name != nil {
		in.Name = *b.Name
	}
	if b.Description != nil {
		in.Description = *b.Description
	}
	if b.Trigger != nil && *b.Trigger != "" {
		in.Trigger = domain.Trigger(*b.Trigger)
	}
	if b.IsActive != nil {
		in.IsActive = *b.IsActive
	}
	nodes, edges, err := b.graph()
	if err != nil {
		return in, err
	}
	if nodes != nil {
		in.Nodes = *nodes
	}
	if edges != nil {
		in.Edges = *edges
	}
	return in, nil
}

func (b workflowRequest) updateInput() (workflow.UpdateInput, error) {
	in := workflow.UpdateInput{
		Name:        b.Name,
		Description: b.Description,
		IsActive:    b.IsActive,
	}
	if b.Trigger != nil {
		trig := domain.Trigger(*b.Trigger)
		in.Trigger = &trig
	}
	nodes, edges, err := b.graph()
	if err != nil {
		return in, err
	}
	in.Nodes, in.Edges = nodes, edges
	return in, nil
}

// graph decodes the present node and edge lists. Absent and null fields stay
// nil so a partial update keeps the stored chain.
func (b workflowRequest) graph() (*[]domain.Node, *[]domain.Edge, error) {
	var nodes *[]domain.Node
	var edges *[]domain.Edge
	if present(b.Nodes) {
		list, err := domain.DecodeNodes(b.Nodes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: nodes: %v", chain.ErrInvalidChain, err)
		}
		nodes = &list
	}
	if present(b.Edges) {
		list, err := domain.DecodeEdges(b.Edges)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: edges: %v", chain.ErrInvalidChain, err)
		}
		edges = &list
	}
	return nodes, edges, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

type appendNodeRequest struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type appendNodeResponse struct {
	Workflow *domain.Workflow `json:"workflow"`
	Node     domain.Node      `json:"node"`
}

// problemNodes lists the nodes flagged by chain validation.
func problemNodes(wf *domain.Workflow) []string {
	return chain.ProblemNodes(chain.Validate(wf.Nodes, wf.Edges))
}

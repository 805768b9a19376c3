package dsl

import (
	"fmt"

	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

// Builder manages the chain construction.
type Builder struct {
	name        string
	description string
	trigger     domain.Trigger
	active      bool
	steps       []*StepBuilder
	editorOpts  []chain.EditorOption
}

// New creates a builder for a workflow started by trigger. The trigger node is
// added automatically.
func New(name string, trigger domain.Trigger) *Builder {
	return &Builder{name: name, trigger: trigger}
}

// Description sets the workflow description.
func (b *Builder) Description(text string) *Builder {
	b.description = text
	return b
}

// Active marks the workflow as enabled.
func (b *Builder) Active() *Builder {
	b.active = true
	return b
}

// WithIDFunc makes node and edge ids deterministic.
func (b *Builder) WithIDFunc(fn chain.IDFunc) *Builder {
	b.editorOpts = append(b.editorOpts, chain.WithIDFunc(fn))
	return b
}

// Step appends a step of any type.
func (b *Builder) Step(nodeType domain.NodeType, label string) *StepBuilder {
	sb := &StepBuilder{nodeType: nodeType, label: label}
	b.steps = append(b.steps, sb)
	return sb
}

// Condition appends a gate.
func (b *Builder) Condition(label string) *StepBuilder {
	return b.Step(domain.NodeCondition, label)
}

// Action appends a side-effect step.
func (b *Builder) Action(label string) *StepBuilder {
	return b.Step(domain.NodeAction, label)
}

// Notify appends a notification step.
func (b *Builder) Notify(label string) *StepBuilder {
	return b.Step(domain.NodeNotification, label)
}

// Delay appends a pause.
func (b *Builder) Delay(label string) *StepBuilder {
	return b.Step(domain.NodeDelay, label)
}

// Approval appends a human approval step.
func (b *Builder) Approval(label string) *StepBuilder {
	return b.Step(domain.NodeApproval, label)
}

// Build assembles the workflow. The result has no id or timestamps; those are
// assigned when it is created through the service.
func (b *Builder) Build() (*domain.Workflow, error) {
	wf := &domain.Workflow{
		Name:        b.name,
		Description: b.description,
		Trigger:     b.trigger,
		IsActive:    b.active,
		Nodes:       []domain.Node{},
		Edges:       []domain.Edge{},
	}
	if err := wf.ValidateMeta(); err != nil {
		return nil, err
	}

	ed := chain.NewEditor(b.editorOpts...)
	if _, err := ed.Append(wf, domain.NodeTrigger, b.trigger.Label()); err != nil {
		return nil, err
	}
	for i, sb := range b.steps {
		node, err := ed.Append(wf, sb.nodeType, sb.label)
		if err != nil {
			return nil, fmt.Errorf("step %d (%q): %w", i+1, sb.label, err)
		}
		last := &wf.Nodes[len(wf.Nodes)-1]
		if len(sb.config) > 0 {
			last.Config = sb.config
		}
		if sb.edgeLabel != "" {
			for j := range wf.Edges {
				if wf.Edges[j].Target == node.ID {
					wf.Edges[j].Label = sb.edgeLabel
				}
			}
		}
	}

	if err := chain.Validate(wf.Nodes, wf.Edges); err != nil {
		return nil, err
	}
	return wf, nil
}

// CreateInput builds the workflow and converts it into a service payload.
func (b *Builder) CreateInput() (workflow.CreateInput, error) {
	wf, err := b.Build()
	if err != nil {
		return workflow.CreateInput{}, err
	}
	return workflow.CreateInput{
		Name:        wf.Name,
		Description: wf.Description,
		Trigger:     wf.Trigger,
		IsActive:    wf.IsActive,
		Nodes:       wf.Nodes,
		Edges:       wf.Edges,
	}, nil
}

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	nodeType  domain.NodeType
	label     string
	config    map[string]any
	edgeLabel string
}

// Config sets a free-form configuration value on the step.
func (s *StepBuilder) Config(key string, value any) *StepBuilder {
	if s.config == nil {
		s.config = make(map[string]any)
	}
	s.config[key] = value
	return s
}

// When labels the edge leading into this step.
func (s *StepBuilder) When(label string) *StepBuilder {
	s.edgeLabel = label
	return s
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/infohyun/aramcrm-sub001/internal/logging"
	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

// Service implements the workflow use cases on top of a ports.WorkflowStore.
type Service struct {
	store  ports.WorkflowStore
	locks  *lockTable
	editor *chain.Editor
	hooks  []domain.Hooks
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	strict       bool
	maxLabelSize int
}

// Option configures the Service.
type Option func(*Service)

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithHooks registers change observers. May be given several times.
func WithHooks(hooks ...domain.Hooks) Option {
	return func(s *Service) {
		s.hooks = append(s.hooks, hooks...)
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locks.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.locks.ttl = ttl
		}
	}
}

// WithEditor replaces the chain editor (e.g. deterministic ids in tests).
func WithEditor(editor *chain.Editor) Option {
	return func(s *Service) {
		s.editor = editor
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDFunc overrides workflow id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithStrictChain toggles server-side chain validation on Create and Update.
// When off, invalid chains are stored and only logged.
func WithStrictChain(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithMaxLabelSize bounds node labels in bytes.
func WithMaxLabelSize(n int) Option {
	return func(s *Service) {
		s.maxLabelSize = n
	}
}

// NewService creates a new Service with the given persistence store.
func NewService(store ports.WorkflowStore, opts ...Option) *Service {
	s := &Service{
		store:        store,
		locks:        newLockTable(logging.NewNop()),
		editor:       chain.NewEditor(),
		logger:       logging.NewNop(),
		now:          time.Now,
		newID:        uuid.NewString,
		strict:       true,
		maxLabelSize: DefaultMaxLabelSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locks.logger = s.logger
	return s
}

// Store returns the underlying workflow store.
func (s *Service) Store() ports.WorkflowStore {
	return s.store
}

// CreateInput is the payload of Create.
type CreateInput struct {
	Name        string
	Description string
	Trigger     domain.Trigger
	IsActive    bool
	Nodes       []domain.Node
	Edges       []domain.Edge
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Trigger     *domain.Trigger
	IsActive    *bool
	Nodes       *[]domain.Node
	Edges       *[]domain.Edge
}

// ChainView is the linearized presentation of a workflow.
type ChainView struct {
	WorkflowID string        `json:"workflowId"`
	Nodes      []domain.Node `json:"nodes"`
	Edges      []domain.Edge `json:"edges"`
	Valid      bool          `json:"valid"`
	Issues     []string      `json:"issues"`
}

// List returns the workflows matching opts.
func (s *Service) List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error) {
	list, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return list, nil
}

// Get loads one workflow.
func (s *Service) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load workflow %q: %w", id, err)
	}
	return wf, nil
}

// Create validates and persists a new workflow. Without nodes, exactly one
// trigger node labelled after the trigger is seeded.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Workflow, error) {
	now := s.now().UTC()
	wf := &domain.Workflow{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Trigger:     in.Trigger,
		IsActive:    in.IsActive,
		Nodes:       nonNil(in.Nodes),
		Edges:       nonNil(in.Edges),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := wf.ValidateMeta(); err != nil {
		return nil, err
	}

	if len(wf.Nodes) == 0 && len(wf.Edges) == 0 {
		if _, err := s.editor.Append(wf, domain.NodeTrigger, wf.Trigger.Label()); err != nil {
			return nil, err
		}
	} else if err := s.checkChain(wf); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, wf); err != nil {
		return nil, fmt.Errorf("save workflow: %w", err)
	}
	s.logger.Info("Workflow created", "workflow_id", wf.ID, "trigger", wf.Trigger, "nodes", len(wf.Nodes))
	s.emit(ctx, domain.EventCreated, nil, wf, "")
	return wf, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Workflow, error) {
	return s.mutate(ctx, id, domain.EventUpdated, func(wf *domain.Workflow) (string, error) {
		if in.Name != nil {
			wf.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			wf.Description = *in.Description
		}
		if in.Trigger != nil {
			wf.Trigger = *in.Trigger
		}
		if in.IsActive != nil {
			wf.IsActive = *in.IsActive
		}
		if in.Nodes != nil {
			wf.Nodes = nonNil(*in.Nodes)
		}
		if in.Edges != nil {
			wf.Edges = nonNil(*in.Edges)
		}
		if err := wf.ValidateMeta(); err != nil {
			return "", err
		}
		if in.Nodes != nil || in.Edges != nil {
			return "", s.checkChain(wf)
		}
		return "", nil
	})
}

// Delete removes a workflow. Missing workflows fail with domain.ErrWorkflowNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.locks.withLock(ctx, id, func(ctx context.Context) error {
		old, err := s.store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("load workflow %q: %w", id, err)
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete workflow %q: %w", id, err)
		}
		s.logger.Info("Workflow deleted", "workflow_id", id)
		domain.Emit(ctx, s.hooks, &domain.ChangeEvent{
			Timestamp:  s.now().UTC(),
			Type:       domain.EventDeleted,
			WorkflowID: old.ID,
		})
		return nil
	})
}

// AppendNode adds a node at the end of the chain.
func (s *Service) AppendNode(ctx context.Context, id string, nodeType domain.NodeType, label string) (*domain.Workflow, domain.Node, error) {
	if !nodeType.Valid() {
		return nil, domain.Node{}, fmt.Errorf("%w: %q", domain.ErrInvalidNodeType, nodeType)
	}
	clean, err := SanitizeLabel(label, s.maxLabelSize)
	if err != nil {
		return nil, domain.Node{}, err
	}

	var node domain.Node
	wf, err := s.mutate(ctx, id, domain.EventNodeAppended, func(wf *domain.Workflow) (string, error) {
		var err error
		node, err = s.editor.Append(wf, nodeType, clean)
		return node.ID, err
	})
	if err != nil {
		return nil, domain.Node{}, err
	}
	return wf, node, nil
}

// RemoveNode deletes a node and bridges its neighbours.
func (s *Service) RemoveNode(ctx context.Context, id, nodeID string) (*domain.Workflow, error) {
	return s.mutate(ctx, id, domain.EventNodeRemoved, func(wf *domain.Workflow) (string, error) {
		return nodeID, s.editor.Remove(wf, nodeID)
	})
}

// Chain returns the linearized chain and any structural issues.
func (s *Service) Chain(ctx context.Context, id string) (*ChainView, error) {
	wf, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewChainView(wf), nil
}

// NewChainView linearizes wf and reports validation issues.
func NewChainView(wf *domain.Workflow) *ChainView {
	err := chain.Validate(wf.Nodes, wf.Edges)
	return &ChainView{
		WorkflowID: wf.ID,
		Nodes:      chain.Linearize(wf.Nodes, wf.Edges),
		Edges:      nonNil(wf.Edges),
		Valid:      err == nil,
		Issues:     chain.Issues(err),
	}
}

// RecordRun bumps the run counter. It is the write path for an external executor.
func (s *Service) RecordRun(ctx context.Context, id string, at time.Time) (*domain.Workflow, error) {
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	return s.mutate(ctx, id, domain.EventRunRecorded, func(wf *domain.Workflow) (string, error) {
		wf.RunCount++
		wf.LastRunAt = &at
		return "", nil
	})
}

// mutate runs a locked load-modify-save cycle and emits the change event.
func (s *Service) mutate(ctx context.Context, id string, ev domain.EventType, fn func(*domain.Workflow) (string, error)) (*domain.Workflow, error) {
	var result *domain.Workflow
	err := s.locks.withLock(ctx, id, func(ctx context.Context) error {
		old, err := s.store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("load workflow %q: %w", id, err)
		}
		wf := old.Clone()

		nodeID, err := fn(wf)
		if err != nil {
			return err
		}
		wf.UpdatedAt = s.now().UTC()

		if err := s.store.Save(ctx, wf); err != nil {
			return fmt.Errorf("save workflow %q: %w", id, err)
		}
		s.logger.Debug("Workflow mutated", "workflow_id", id, "event", ev, "node_id", nodeID)
		s.emit(ctx, ev, old, wf, nodeID)
		result = wf
		return nil
	})
	return result, err
}

func (s *Service) checkChain(wf *domain.Workflow) error {
	err := chain.Validate(wf.Nodes, wf.Edges)
	if err == nil {
		return nil
	}
	if s.strict {
		return err
	}
	s.logger.Warn("Storing workflow with invalid chain",
		"workflow_id", wf.ID,
		"issues", chain.Issues(err),
	)
	return nil
}

func (s *Service) emit(ctx context.Context, ev domain.EventType, old, cur *domain.Workflow, nodeID string) {
	if len(s.hooks) == 0 {
		return
	}
	domain.Emit(ctx, s.hooks, &domain.ChangeEvent{
		Timestamp:  s.now().UTC(),
		Type:       ev,
		WorkflowID: cur.ID,
		NodeID:     nodeID,
		Diff:       domain.Diff(old, cur),
	})
}

// IsValidation reports whether err is caused by bad input rather than the backend.
func IsValidation(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidNodeType,
		domain.ErrInvalidTrigger,
		domain.ErrEmptyLabel,
		domain.ErrEmptyName,
		chain.ErrInvalidChain,
		ErrLabelTooLarge,
		ErrInvalidUTF8,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infohyun/aramcrm-sub001/pkg/adapters/memory"
	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

type recorder struct {
	mu     sync.Mutex
	events []*domain.ChangeEvent
}

func (r *recorder) hooks() domain.Hooks {
	return domain.Hooks{OnChange: func(_ context.Context, ev *domain.ChangeEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	}}
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newService(t *testing.T, opts ...workflow.Option) (*workflow.Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]workflow.Option{workflow.WithHooks(rec.hooks())}, opts...)
	return workflow.NewService(memory.NewStore(), opts...), rec
}

func labels(nodes []domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds a single trigger node", func(t *testing.T) {
		svc, rec := newService(t)
		wf, err := svc.Create(ctx, workflow.CreateInput{Name: "  VIP escalation ", Trigger: domain.TriggerTicketCreated})
		require.NoError(t, err)

		assert.NotEmpty(t, wf.ID)
		assert.Equal(t, "VIP escalation", wf.Name)
		assert.False(t, wf.IsActive)
		assert.Zero(t, wf.RunCount)
		assert.Nil(t, wf.LastRunAt)
		require.Len(t, wf.Nodes, 1)
		assert.Equal(t, domain.NodeTrigger, wf.Nodes[0].Type)
		assert.Equal(t, "Ticket created", wf.Nodes[0].Label)
		assert.NotNil(t, wf.Edges)
		assert.Empty(t, wf.Edges)

		stored, err := svc.Get(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.Nodes, stored.Nodes)
		assert.Equal(t, []domain.EventType{domain.EventCreated}, rec.types())
	})

	t.Run("validates metadata", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Create(ctx, workflow.CreateInput{Name: " ", Trigger: domain.TriggerManual})
		assert.ErrorIs(t, err, domain.ErrEmptyName)
		assert.True(t, workflow.IsValidation(err))

		_, err = svc.Create(ctx, workflow.CreateInput{Name: "x", Trigger: "cron"})
		assert.ErrorIs(t, err, domain.ErrInvalidTrigger)
	})

	t.Run("strict mode rejects branching chains", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Create(ctx, workflow.CreateInput{
			Name:    "branchy",
			Trigger: domain.TriggerManual,
			Nodes: []domain.Node{
				{ID: "a", Type: domain.NodeTrigger, Label: "a"},
				{ID: "b", Type: domain.NodeAction, Label: "b"},
				{ID: "c", Type: domain.NodeAction, Label: "c"},
			},
			Edges: []domain.Edge{{ID: "1", Source: "a", Target: "b"}, {ID: "2", Source: "a", Target: "c"}},
		})
		assert.ErrorIs(t, err, chain.ErrBranching)
		assert.True(t, workflow.IsValidation(err))

		list, err := svc.List(ctx, ports.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("lenient mode stores invalid chains", func(t *testing.T) {
		svc, _ := newService(t, workflow.WithStrictChain(false))
		wf, err := svc.Create(ctx, workflow.CreateInput{
			Name:    "loop",
			Trigger: domain.TriggerManual,
			Nodes: []domain.Node{
				{ID: "a", Type: domain.NodeTrigger, Label: "a"},
				{ID: "b", Type: domain.NodeAction, Label: "b"},
			},
			Edges: []domain.Edge{{ID: "1", Source: "a", Target: "b"}, {ID: "2", Source: "b", Target: "a"}},
		})
		require.NoError(t, err)

		view, err := svc.Chain(ctx, wf.ID)
		require.NoError(t, err)
		assert.False(t, view.Valid)
		assert.NotEmpty(t, view.Issues)
		assert.Len(t, view.Nodes, 2)
	})
}

func TestService_ChainEdits(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	wf, err := svc.Create(ctx, workflow.CreateInput{Name: "VIP", Trigger: domain.TriggerTicketCreated})
	require.NoError(t, err)
	trigger := wf.Nodes[0]

	_, vip, err := svc.AppendNode(ctx, wf.ID, domain.NodeCondition, "VIP?")
	require.NoError(t, err)
	wf, email, err := svc.AppendNode(ctx, wf.ID, domain.NodeAction, "Send\tEmail\n")
	require.NoError(t, err)
	assert.Equal(t, "Send Email", email.Label)

	view, err := svc.Chain(ctx, wf.ID)
	require.NoError(t, err)
	assert.True(t, view.Valid)
	assert.Equal(t, []string{"Ticket created", "VIP?", "Send Email"}, labels(view.Nodes))

	wf, err = svc.RemoveNode(ctx, wf.ID, vip.ID)
	require.NoError(t, err)
	require.Len(t, wf.Edges, 1)
	assert.Equal(t, trigger.ID, wf.Edges[0].Source)
	assert.Equal(t, email.ID, wf.Edges[0].Target)

	_, err = svc.RemoveNode(ctx, wf.ID, "ghost")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, _, err = svc.AppendNode(ctx, wf.ID, domain.NodeAction, "\x1b\x07")
	assert.ErrorIs(t, err, domain.ErrEmptyLabel)

	_, _, err = svc.AppendNode(ctx, wf.ID, "webhook", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidNodeType)

	assert.Equal(t, []domain.EventType{
		domain.EventCreated,
		domain.EventNodeAppended,
		domain.EventNodeAppended,
		domain.EventNodeRemoved,
	}, rec.types())

	rec.mu.Lock()
	removed := rec.events[3]
	rec.mu.Unlock()
	assert.Equal(t, vip.ID, removed.NodeID)
	require.NotNil(t, removed.Diff)
	assert.Equal(t, []string{vip.ID}, removed.Diff.RemovedNodes)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc, _ := newService(t, workflow.WithClock(func() time.Time { return clock }))

	wf, err := svc.Create(ctx, workflow.CreateInput{Name: "a", Description: "keep", Trigger: domain.TriggerManual})
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	active := true
	name := "renamed"
	updated, err := svc.Update(ctx, wf.ID, workflow.UpdateInput{Name: &name, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "keep", updated.Description)
	assert.True(t, updated.IsActive)
	assert.Len(t, updated.Nodes, 1)
	assert.Equal(t, clock, updated.UpdatedAt)
	assert.Equal(t, wf.CreatedAt, updated.CreatedAt)

	empty := []domain.Node{}
	noEdges := []domain.Edge{}
	cleared, err := svc.Update(ctx, wf.ID, workflow.UpdateInput{Nodes: &empty, Edges: &noEdges})
	require.NoError(t, err)
	assert.Empty(t, cleared.Nodes)

	dangling := []domain.Edge{{ID: "e", Source: "x", Target: "y"}}
	_, err = svc.Update(ctx, wf.ID, workflow.UpdateInput{Edges: &dangling})
	assert.ErrorIs(t, err, chain.ErrDanglingEdge)

	blank := ""
	_, err = svc.Update(ctx, wf.ID, workflow.UpdateInput{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	_, err = svc.Update(ctx, "missing", workflow.UpdateInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestService_DeleteAndRecordRun(t *testing.T) {
	ctx := context.Background()
	svc, rec := newService(t)

	wf, err := svc.Create(ctx, workflow.CreateInput{Name: "a", Trigger: domain.TriggerSchedule})
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ran, err := svc.RecordRun(ctx, wf.ID, at)
	require.NoError(t, err)
	assert.Equal(t, 1, ran.RunCount)
	require.NotNil(t, ran.LastRunAt)
	assert.Equal(t, at, *ran.LastRunAt)

	ran, err = svc.RecordRun(ctx, wf.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, ran.RunCount)

	require.NoError(t, svc.Delete(ctx, wf.ID))
	assert.ErrorIs(t, svc.Delete(ctx, wf.ID), domain.ErrWorkflowNotFound)
	_, err = svc.Get(ctx, wf.ID)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	assert.Equal(t, []domain.EventType{
		domain.EventCreated,
		domain.EventRunRecorded,
		domain.EventRunRecorded,
		domain.EventDeleted,
	}, rec.types())
}

func TestService_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	wf, err := svc.Create(ctx, workflow.CreateInput{Name: "busy", Trigger: domain.TriggerChatStarted})
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.AppendNode(ctx, wf.ID, domain.NodeAction, fmt.Sprintf("step %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final, err := svc.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Len(t, final.Nodes, writers+1, "no lost updates")
	assert.NoError(t, chain.Validate(final.Nodes, final.Edges))
}

type countingLocker struct {
	mu       sync.Mutex
	locked   int
	unlocked int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.locked++
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.unlocked++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestService_DistributedLocker(t *testing.T) {
	ctx := context.Background()
	locker := &countingLocker{}
	svc, _ := newService(t, workflow.WithLocker(locker))

	wf, err := svc.Create(ctx, workflow.CreateInput{Name: "a", Trigger: domain.TriggerManual})
	require.NoError(t, err)
	_, _, err = svc.AppendNode(ctx, wf.ID, domain.NodeDelay, "Wait 1h")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, wf.ID))

	assert.Equal(t, 2, locker.locked)
	assert.Equal(t, 2, locker.unlocked)
}

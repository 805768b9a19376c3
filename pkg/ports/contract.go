package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// RunWorkflowStoreContract runs a suite of tests to verify that a WorkflowStore
// implementation adheres to the defined interface contract.
func RunWorkflowStoreContract(t *testing.T, store WorkflowStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405.000000")

	sample := func(id string, trigger domain.Trigger, created time.Time) *domain.Workflow {
		return &domain.Workflow{
			ID:          id,
			Name:        "Escalate " + id,
			Description: "contract",
			Trigger:     trigger,
			Nodes: []domain.Node{
				{ID: "n1", Type: domain.NodeTrigger, Label: "Ticket created", Position: domain.Position{X: 250, Y: 50}},
				{ID: "n2", Type: domain.NodeAction, Label: "Send Email", Config: map[string]any{"to": "ops@example.com"}},
			},
			Edges:     []domain.Edge{{ID: "e1", Source: "n1", Target: "n2", Label: "then"}},
			CreatedAt: created.UTC().Truncate(time.Millisecond),
			UpdatedAt: created.UTC().Truncate(time.Millisecond),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		id := prefix + "-save"
		wf := sample(id, domain.TriggerTicketCreated, time.Now())
		ran := time.Now().UTC().Truncate(time.Millisecond)
		wf.RunCount = 3
		wf.LastRunAt = &ran

		require.NoError(t, store.Save(ctx, wf), "Save should not return error")
		defer func() { _ = store.Delete(ctx, id) }()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, wf.Name, loaded.Name)
		assert.Equal(t, wf.Trigger, loaded.Trigger)
		assert.Equal(t, 3, loaded.RunCount)
		require.NotNil(t, loaded.LastRunAt)
		assert.True(t, ran.Equal(*loaded.LastRunAt))
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "Send Email", loaded.Nodes[1].Label)
		assert.Equal(t, "ops@example.com", loaded.Nodes[1].Config["to"])
		assert.Equal(t, wf.Edges, loaded.Edges)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		id := prefix + "-copy"
		require.NoError(t, store.Save(ctx, sample(id, domain.TriggerManual, time.Now())))
		defer func() { _ = store.Delete(ctx, id) }()

		first, err := store.Load(ctx, id)
		require.NoError(t, err)
		first.Nodes[0].Label = "mutated"

		second, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Ticket created", second.Nodes[0].Label)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		id := prefix + "-overwrite"
		wf := sample(id, domain.TriggerManual, time.Now())
		require.NoError(t, store.Save(ctx, wf))
		defer func() { _ = store.Delete(ctx, id) }()

		wf.Name = "Renamed"
		wf.Nodes = wf.Nodes[:1]
		wf.Edges = []domain.Edge{}
		require.NoError(t, store.Save(ctx, wf))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)
		assert.Len(t, loaded.Nodes, 1)
		assert.Empty(t, loaded.Edges)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+prefix)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		id := prefix + "-delete"
		require.NoError(t, store.Save(ctx, sample(id, domain.TriggerManual, time.Now())))

		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound, "Load after Delete should return ErrWorkflowNotFound")

		assert.NoError(t, store.Delete(ctx, id), "Delete should be idempotent")
	})

	t.Run("List", func(t *testing.T) {
		base := time.Now().Add(time.Hour)
		var created []string
		for i, trig := range []domain.Trigger{domain.TriggerChatStarted, domain.TriggerNPSSubmitted, domain.TriggerChatStarted} {
			id := fmt.Sprintf("%s-list-%d", prefix, i)
			wf := sample(id, trig, base.Add(time.Duration(i)*time.Second))
			wf.IsActive = i == 2
			require.NoError(t, store.Save(ctx, wf))
			created = append(created, id)
		}
		defer func() {
			for _, id := range created {
				_ = store.Delete(ctx, id)
			}
		}()

		all, err := store.List(ctx, ListOptions{})
		require.NoError(t, err)
		var got []string
		for _, wf := range all {
			got = append(got, wf.ID)
		}
		assert.Subset(t, got, created)

		chats, err := store.List(ctx, ListOptions{Trigger: domain.TriggerChatStarted})
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(chats), 2)
		assert.Equal(t, created[2], chats[0].ID, "newest first")

		active := true
		actives, err := store.List(ctx, ListOptions{Trigger: domain.TriggerChatStarted, Active: &active})
		require.NoError(t, err)
		require.NotEmpty(t, actives)
		for _, wf := range actives {
			assert.True(t, wf.IsActive)
		}

		one, err := store.List(ctx, ListOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, one, 1)
	})
}

package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infohyun/aramcrm-sub001/pkg/adapters/memory"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/persistence/middleware"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretWorkflow() *domain.Workflow {
	return &domain.Workflow{
		ID:      "wf-1",
		Name:    "Webhook",
		Trigger: domain.TriggerManual,
		Nodes: []domain.Node{
			{ID: "n1", Type: domain.NodeTrigger, Label: "Start"},
			{ID: "n2", Type: domain.NodeAction, Label: "Call CRM", Config: map[string]any{"api_key": "sk-live-123", "url": "https://crm"}},
		},
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	original := secretWorkflow()
	require.NoError(t, secure.Save(ctx, original))
	assert.Equal(t, "sk-live-123", original.Nodes[1].Config["api_key"], "caller copy untouched")

	stored, err := underlying.Load(ctx, "wf-1")
	require.NoError(t, err)
	assert.Nil(t, stored.Nodes[0].Config)
	assert.NotContains(t, stored.Nodes[1].Config, "api_key")
	assert.Contains(t, stored.Nodes[1].Config, middleware.EnvelopeKey)
	assert.Equal(t, "Call CRM", stored.Nodes[1].Label, "structure stays readable")

	loaded, err := secure.Load(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", loaded.Nodes[1].Config["api_key"])

	list, err := secure.List(ctx, ports.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://crm", list[0].Nodes[1].Config["url"])
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldMW, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	require.NoError(t, oldMW(underlying).Save(ctx, secretWorkflow()))

	newOnly, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})
	require.NoError(t, err)
	_, err = newOnly(underlying).Load(ctx, "wf-1")
	assert.Error(t, err)

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := rotated(underlying).Load(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-123", loaded.Nodes[1].Config["api_key"])
}

func TestEncryptionMiddleware_FailsSecure(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, secretWorkflow()))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = mw(underlying).Load(ctx, "wf-1")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)
}

func TestEncryptionMiddleware_KeyLength(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.Error(t, err)
}

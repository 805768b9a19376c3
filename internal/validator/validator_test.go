package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateWorkflow(t *testing.T) {
	// 1. Scenario A: Valid chain (trigger -> VIP? -> Send Email)
	path := write(t, "vip.yaml", `
name: VIP escalation
trigger: ticket.created
nodes:
  - {id: t, type: trigger, label: Ticket created}
  - {id: c, type: condition, label: VIP?}
  - {id: a, type: action, label: Send Email}
edges:
  - {id: e1, source: t, target: c}
  - {id: e2, source: c, target: a}
`)
	wf, err := LoadFile(path)
	require.NoError(t, err)
	assert.NoError(t, ValidateWorkflow(wf))

	// 2. Scenario B: Branch plus broken link
	path = write(t, "broken.json", `{
		"name": "broken",
		"trigger": "manual",
		"nodes": [
			{"id": "a", "type": "trigger", "label": "Start"},
			{"id": "b", "type": "action", "label": "B"},
			{"id": "c", "type": "action", "label": "C"}
		],
		"edges": [
			{"id": "1", "source": "a", "target": "b"},
			{"id": "2", "source": "a", "target": "c"},
			{"id": "3", "source": "c", "target": "ghost_node"}
		]
	}`)
	wf, err = LoadFile(path)
	require.NoError(t, err)

	err = ValidateWorkflow(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 2 errors:")
	assert.Contains(t, err.Error(), "unknown node")
	assert.Contains(t, err.Error(), "more than one outgoing edge")
}

func TestValidateWorkflow_Meta(t *testing.T) {
	path := write(t, "meta.json", `{"trigger": "moon.phase", "nodes": [], "edges": []}`)
	wf, err := LoadFile(path)
	require.NoError(t, err)

	err = ValidateWorkflow(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 1 errors:")
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadFile(write(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "parse")

	_, err = LoadFile(write(t, "bad-nodes.json", `{"name":"x","trigger":"manual","nodes":"not json"}`))
	assert.ErrorContains(t, err, "nodes")

	_, err = LoadFile(write(t, "bad-edges.json", `{"name":"x","trigger":"manual","nodes":[],"edges":{"a":1}}`))
	assert.ErrorContains(t, err, "edges")
}

func TestLoadFile_StringifiedNodes(t *testing.T) {
	path := write(t, "legacy.json", `{
		"name": "legacy",
		"trigger": "manual",
		"nodes": "[{\"id\":\"a\",\"type\":\"trigger\",\"label\":\"Start\"}]"
	}`)
	wf, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, wf.Nodes, 1)
	assert.NoError(t, ValidateWorkflow(wf))
}

package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infohyun/aramcrm-sub001/internal/logging"
	"github.com/infohyun/aramcrm-sub001/pkg/adapters/memory"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

func newTestServer(t *testing.T) (*Server, *workflow.Service) {
	t.Helper()
	svc := workflow.NewService(memory.NewStore(), workflow.WithLogger(logging.NewNop()))
	return NewServer(svc, logging.NewNop()), svc
}

func TestTools_BuildChain(t *testing.T) {
	ctx := context.Background()
	s, svc := newTestServer(t)
	wf, err := svc.Create(ctx, workflow.CreateInput{Name: "VIP", Trigger: domain.TriggerTicketCreated})
	require.NoError(t, err)

	vip, err := s.handleAppend(ctx, mcp.CallToolRequest{}, map[string]any{
		"workflow_id": wf.ID, "type": "condition", "label": "VIP?",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeCondition, vip.Node.Type)
	assert.Len(t, vip.Chain.Nodes, 2)

	_, err = s.handleAppend(ctx, mcp.CallToolRequest{}, map[string]any{
		"workflow_id": wf.ID, "type": "action", "label": "Send Email",
	})
	require.NoError(t, err)

	view, err := s.handleChain(ctx, mcp.CallToolRequest{}, map[string]any{"workflow_id": wf.ID})
	require.NoError(t, err)
	require.Len(t, view.Nodes, 3)
	assert.True(t, view.Valid)
	assert.Equal(t, "Send Email", view.Nodes[2].Label)

	view, err = s.handleRemove(ctx, mcp.CallToolRequest{}, map[string]any{"workflow_id": wf.ID, "node_id": vip.Node.ID})
	require.NoError(t, err)
	require.Len(t, view.Nodes, 2)
	require.Len(t, view.Edges, 1)
	assert.Equal(t, view.Nodes[1].ID, view.Edges[0].Target)
}

func TestTools_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	_, err := s.handleAppend(ctx, mcp.CallToolRequest{}, map[string]any{"workflow_id": "x", "type": "loop", "label": "l"})
	assert.ErrorIs(t, err, domain.ErrInvalidNodeType)

	_, err = s.handleAppend(ctx, mcp.CallToolRequest{}, map[string]any{"workflow_id": "ghost", "type": "action", "label": "l"})
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	_, err = s.handleList(ctx, mcp.CallToolRequest{}, map[string]any{"limit": map[string]any{"n": 1}})
	assert.Error(t, err)
}

func TestTools_List(t *testing.T) {
	ctx := context.Background()
	s, svc := newTestServer(t)
	_, err := svc.Create(ctx, workflow.CreateInput{Name: "a", Trigger: domain.TriggerManual, IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, workflow.CreateInput{Name: "b", Trigger: domain.TriggerChatStarted})
	require.NoError(t, err)

	resp, err := s.handleList(ctx, mcp.CallToolRequest{}, map[string]any{"active": true})
	require.NoError(t, err)
	require.Len(t, resp.Workflows, 1)
	assert.Equal(t, "a", resp.Workflows[0].Name)
	assert.Equal(t, 1, resp.Workflows[0].Steps)

	// Weakly typed: agents often send numbers as strings.
	resp, err = s.handleList(ctx, mcp.CallToolRequest{}, map[string]any{"limit": "1"})
	require.NoError(t, err)
	assert.Len(t, resp.Workflows, 1)

	_, err = s.handleList(ctx, mcp.CallToolRequest{}, map[string]any{"trigger": "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidTrigger)
}

func TestTools_Validate(t *testing.T) {
	s, _ := newTestServer(t)

	resp, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"nodes": `[{"id":"b","type":"action","label":"B"},{"id":"a","type":"trigger","label":"A"}]`,
		"edges": `[{"id":"e","source":"a","target":"b"}]`,
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Issues)
	require.Len(t, resp.Order, 2)
	assert.Equal(t, "a", resp.Order[0].ID)

	resp, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"nodes": `[{"id":"a","type":"trigger","label":"A"},{"id":"b","type":"action","label":"B"}]`,
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Issues)

	_, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, map[string]any{"nodes": "{"})
	assert.Error(t, err)
}

func TestHandleMessage_ToolsList(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	initMsg := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`
	require.NotNil(t, s.MCPServer().HandleMessage(ctx, json.RawMessage(initMsg)))

	resp := s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	var names []string
	for _, tool := range decoded.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_workflows", "get_chain", "append_node", "remove_node", "validate_workflow"}, names)
}

func TestResource_Workflows(t *testing.T) {
	s, svc := newTestServer(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, workflow.CreateInput{Name: "res", Trigger: domain.TriggerManual})
	require.NoError(t, err)

	msg := `{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"` + WorkflowsURI + `"}}`
	raw, err := json.Marshal(s.MCPServer().HandleMessage(ctx, json.RawMessage(msg)))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `\"name\":\"res\"`)
}

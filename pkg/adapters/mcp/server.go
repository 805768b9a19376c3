package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	aramcrm "github.com/infohyun/aramcrm-sub001"
	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

// WorkflowsURI is the resource listing every workflow.
const WorkflowsURI = "aramcrm://workflows"

// Service is the subset of the workflow service exposed to agents.
type Service interface {
	List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error)
	Chain(ctx context.Context, id string) (*workflow.ChainView, error)
	AppendNode(ctx context.Context, id string, nodeType domain.NodeType, label string) (*domain.Workflow, domain.Node, error)
	RemoveNode(ctx context.Context, id, nodeID string) (*domain.Workflow, error)
}

// ListResponse is the structured result of list_workflows.
type ListResponse struct {
	Workflows []WorkflowSummary `json:"workflows" jsonschema_description:"Workflows, newest first"`
}

// WorkflowSummary is a compact workflow row for agents.
type WorkflowSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Trigger  domain.Trigger `json:"trigger"`
	IsActive bool           `json:"isActive"`
	Steps    int            `json:"steps"`
	RunCount int            `json:"runCount"`
}

// AppendResponse is the structured result of append_node.
type AppendResponse struct {
	Node  domain.Node        `json:"node" jsonschema_description:"The node that was appended"`
	Chain workflow.ChainView `json:"chain" jsonschema_description:"The chain after the append"`
}

// ValidateResponse is the structured result of validate_workflow.
type ValidateResponse struct {
	Valid  bool          `json:"valid"`
	Issues []string      `json:"issues"`
	Order  []domain.Node `json:"order" jsonschema_description:"Nodes in chain order"`
}

type listArgs struct {
	Trigger string `mapstructure:"trigger"`
	Active  *bool  `mapstructure:"active"`
	Limit   int    `mapstructure:"limit"`
}

type chainArgs struct {
	WorkflowID string `mapstructure:"workflow_id"`
}

type appendArgs struct {
	WorkflowID string `mapstructure:"workflow_id"`
	Type       string `mapstructure:"type"`
	Label      string `mapstructure:"label"`
}

type removeArgs struct {
	WorkflowID string `mapstructure:"workflow_id"`
	NodeID     string `mapstructure:"node_id"`
}

type validateArgs struct {
	Nodes string `mapstructure:"nodes"`
	Edges string `mapstructure:"edges"`
}

// Server exposes the workflow service as an MCP Server.
type Server struct {
	svc       Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:       svc,
		logger:    logger,
		mcpServer: server.NewMCPServer("aramcrm-mcp", strings.TrimSpace(aramcrm.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	nodeTypes := make([]string, len(domain.NodeTypes))
	for i, t := range domain.NodeTypes {
		nodeTypes[i] = string(t)
	}

	s.mcpServer.AddTool(mcp.NewTool("list_workflows",
		mcp.WithDescription("List CRM automation workflows, newest first."),
		mcp.WithString("trigger", mcp.Description("Only workflows started by this trigger (e.g. ticket.created)")),
		mcp.WithBoolean("active", mcp.Description("Only active (true) or inactive (false) workflows")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of workflows to return")),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("get_chain",
		mcp.WithDescription("Get a workflow's steps in execution order, with any structural issues."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow ID")),
		mcp.WithOutputSchema[workflow.ChainView](),
	), mcp.NewStructuredToolHandler(s.handleChain))

	s.mcpServer.AddTool(mcp.NewTool("append_node",
		mcp.WithDescription("Append a step to the end of a workflow's chain."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow ID")),
		mcp.WithString("type", mcp.Required(), mcp.Enum(nodeTypes...), mcp.Description("Step type")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Step label shown in the editor")),
		mcp.WithOutputSchema[AppendResponse](),
	), mcp.NewStructuredToolHandler(s.handleAppend))

	s.mcpServer.AddTool(mcp.NewTool("remove_node",
		mcp.WithDescription("Remove a step; its predecessor is reconnected to its successor."),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow ID")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID to remove")),
		mcp.WithOutputSchema[workflow.ChainView](),
	), mcp.NewStructuredToolHandler(s.handleRemove))

	s.mcpServer.AddTool(mcp.NewTool("validate_workflow",
		mcp.WithDescription("Check that a nodes/edges document forms a single linear chain, without saving it."),
		mcp.WithString("nodes", mcp.Required(), mcp.Description("JSON array of nodes")),
		mcp.WithString("edges", mcp.Description("JSON array of edges")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))
}

func decodeArgs(args map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (ListResponse, error) {
	var in listArgs
	if err := decodeArgs(args, &in); err != nil {
		return ListResponse{}, err
	}
	opts := ports.ListOptions{Active: in.Active, Limit: in.Limit}
	if in.Trigger != "" {
		trig, err := domain.ParseTrigger(in.Trigger)
		if err != nil {
			return ListResponse{}, err
		}
		opts.Trigger = trig
	}

	list, err := s.svc.List(ctx, opts)
	if err != nil {
		return ListResponse{}, fmt.Errorf("list failed: %w", err)
	}
	resp := ListResponse{Workflows: make([]WorkflowSummary, 0, len(list))}
	for _, wf := range list {
		resp.Workflows = append(resp.Workflows, WorkflowSummary{
			ID:       wf.ID,
			Name:     wf.Name,
			Trigger:  wf.Trigger,
			IsActive: wf.IsActive,
			Steps:    len(wf.Nodes),
			RunCount: wf.RunCount,
		})
	}
	return resp, nil
}

func (s *Server) handleChain(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (workflow.ChainView, error) {
	var in chainArgs
	if err := decodeArgs(args, &in); err != nil {
		return workflow.ChainView{}, err
	}
	view, err := s.svc.Chain(ctx, in.WorkflowID)
	if err != nil {
		return workflow.ChainView{}, err
	}
	return *view, nil
}

func (s *Server) handleAppend(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (AppendResponse, error) {
	var in appendArgs
	if err := decodeArgs(args, &in); err != nil {
		return AppendResponse{}, err
	}
	nodeType, err := domain.ParseNodeType(in.Type)
	if err != nil {
		return AppendResponse{}, err
	}
	wf, node, err := s.svc.AppendNode(ctx, in.WorkflowID, nodeType, in.Label)
	if err != nil {
		s.logger.Warn("MCP append_node rejected", "err", err, "workflow_id", in.WorkflowID)
		return AppendResponse{}, err
	}
	return AppendResponse{Node: node, Chain: *workflow.NewChainView(wf)}, nil
}

func (s *Server) handleRemove(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (workflow.ChainView, error) {
	var in removeArgs
	if err := decodeArgs(args, &in); err != nil {
		return workflow.ChainView{}, err
	}
	wf, err := s.svc.RemoveNode(ctx, in.WorkflowID, in.NodeID)
	if err != nil {
		return workflow.ChainView{}, err
	}
	return *workflow.NewChainView(wf), nil
}

func (s *Server) handleValidate(_ context.Context, _ mcp.CallToolRequest, args map[string]any) (ValidateResponse, error) {
	var in validateArgs
	if err := decodeArgs(args, &in); err != nil {
		return ValidateResponse{}, err
	}
	nodes, nodeErr := domain.DecodeNodes([]byte(in.Nodes))
	edges, edgeErr := domain.DecodeEdges([]byte(in.Edges))
	if err := errors.Join(nodeErr, edgeErr); err != nil {
		return ValidateResponse{}, err
	}
	err := chain.Validate(nodes, edges)
	return ValidateResponse{
		Valid:  err == nil,
		Issues: chain.Issues(err),
		Order:  chain.Linearize(nodes, edges),
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorkflowsURI, "Workflows",
		mcp.WithResourceDescription("Every workflow with its nodes and edges"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.svc.List(ctx, ports.ListOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows: %w", err)
		}
		jsonBytes, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      WorkflowsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// Package automation exposes the daemon's workspace operations as an MCP
// tool server, so an LLM agent can drive window placement the same way a
// user's keybindings do, through the same IPC boundary the CLI uses.
//
// Grounded on the companion pack repo mj1618-desktop-cli's cmd/mcp_server.go
// (one tool per desktop-automation verb, a thin server wrapper struct,
// stdio/HTTP transport selection) but built on
// github.com/modelcontextprotocol/go-sdk rather than desktop-cli's
// mark3labs/mcp-go, per SPEC_FULL.md's domain-stack wiring: go-sdk is
// already required for this repo and a second MCP SDK would be redundant.
package automation

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/ipc"
)

// Server wraps an MCP server bound to the daemon's IPC client.
type Server struct {
	client *ipc.Client
	mcp    *mcp.Server
}

// New builds a Server with every tool registered, talking to the daemon
// over the same Unix socket the CLI uses.
func New() *Server {
	s := &Server{client: ipc.NewClient()}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: "tilewmd", Version: "0.1.0"}, nil)
	s.registerTools()
	return s
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

type executeActionInput struct {
	Kind string `json:"kind" jsonschema:"the action kind, e.g. focus_left, swap_master, toggle_float"`
}

type executeActionOutput struct {
	OK bool `json:"ok"`
}

type focusWorkspaceInput struct {
	Workspace int `json:"workspace" jsonschema:"workspace number, 1-9"`
}

type focusWorkspaceOutput struct {
	OK bool `json:"ok"`
}

type listWorkspacesOutput struct {
	Monitor    string                 `json:"monitor"`
	Workspaces []ipc.WorkspaceSummary `json:"workspaces"`
}

type getStatusOutput struct {
	ActiveWorkspace int   `json:"active_workspace"`
	TiledCount      int   `json:"tiled_count"`
	FloatingCount   int   `json:"floating_count"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "execute_action",
		Description: "Run one tiling-window-manager action (the same ones bound to keys) on the focused monitor, e.g. focus_left, swap_master, toggle_float, cycle_layout, close.",
	}, s.handleExecuteAction)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "focus_workspace",
		Description: "Switch the active monitor to the given workspace number (1-9).",
	}, s.handleFocusWorkspace)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_workspaces",
		Description: "List the active monitor's workspaces and how many windows each holds.",
	}, s.handleListWorkspaces)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_status",
		Description: "Report the active workspace, tiled/floating window counts, and daemon uptime.",
	}, s.handleGetStatus)
}

func (s *Server) handleExecuteAction(ctx context.Context, req *mcp.CallToolRequest, in executeActionInput) (*mcp.CallToolResult, executeActionOutput, error) {
	if err := s.client.Execute(action.Simple(action.Kind(in.Kind))); err != nil {
		return nil, executeActionOutput{}, fmt.Errorf("automation: execute_action %q: %w", in.Kind, err)
	}
	return nil, executeActionOutput{OK: true}, nil
}

func (s *Server) handleFocusWorkspace(ctx context.Context, req *mcp.CallToolRequest, in focusWorkspaceInput) (*mcp.CallToolResult, focusWorkspaceOutput, error) {
	if err := s.client.FocusWorkspace(in.Workspace); err != nil {
		return nil, focusWorkspaceOutput{}, fmt.Errorf("automation: focus_workspace %d: %w", in.Workspace, err)
	}
	return nil, focusWorkspaceOutput{OK: true}, nil
}

func (s *Server) handleListWorkspaces(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, listWorkspacesOutput, error) {
	data, err := s.client.ListWorkspaces()
	if err != nil {
		return nil, listWorkspacesOutput{}, fmt.Errorf("automation: list_workspaces: %w", err)
	}
	return nil, listWorkspacesOutput{Monitor: data.Monitor, Workspaces: data.Workspaces}, nil
}

func (s *Server) handleGetStatus(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, getStatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, getStatusOutput{}, fmt.Errorf("automation: get_status: %w", err)
	}
	return nil, getStatusOutput{
		ActiveWorkspace: status.ActiveWorkspace,
		TiledCount:      status.TiledCount,
		FloatingCount:   status.FloatingCount,
		UptimeSeconds:   status.UptimeSeconds,
	}, nil
}

package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/runtimepath"
)

// Client is a thin IPC client used by the CLI's --focus-workspace and
// --list-workspaces flags and by the automation MCP server, so neither has
// to link the compositor bridge directly (spec SUPPLEMENTED FEATURES: "CLI
// subcommands become thin IPC clients").
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient resolves the daemon's socket path and builds a Client. The
// constructor never fails; connection errors surface from sendRequest.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		socketPath = ""
	}
	return &Client{socketPath: socketPath, timeout: 5 * time.Second}
}

func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("ipc: connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ipc: marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("ipc: send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("ipc: read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("ipc: parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("ipc: daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// Execute runs an Action through the daemon's Core.Handle.
func (c *Client) Execute(a action.Action) error {
	payload, err := json.Marshal(ExecutePayload{Action: a})
	if err != nil {
		return fmt.Errorf("ipc: marshal execute payload: %w", err)
	}
	_, err = c.sendRequest(&Request{Command: CommandExecute, Payload: payload})
	return err
}

// FocusWorkspace asks the daemon to switch to workspace n.
func (c *Client) FocusWorkspace(n int) error {
	payload, err := json.Marshal(FocusWorkspacePayload{Workspace: n})
	if err != nil {
		return fmt.Errorf("ipc: marshal focus_workspace payload: %w", err)
	}
	_, err = c.sendRequest(&Request{Command: CommandFocusWorkspace, Payload: payload})
	return err
}

// ListWorkspaces retrieves the active monitor's workspace summaries.
func (c *Client) ListWorkspaces() (*WorkspacesData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListWorkspaces})
	if err != nil {
		return nil, err
	}
	var data WorkspacesData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("ipc: parse workspaces data: %w", err)
	}
	return &data, nil
}

// GetStatus retrieves the daemon's current status summary.
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}
	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("ipc: parse status data: %w", err)
	}
	return &status, nil
}

// Reload asks the daemon to re-read its config file from disk.
func (c *Client) Reload() error {
	_, err := c.sendRequest(&Request{Command: CommandReload})
	return err
}

// Ping checks whether the daemon is responding.
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}

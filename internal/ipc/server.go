package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hatchwm/tilewm/internal/action"
	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/config"
	"github.com/hatchwm/tilewm/internal/core"
	"github.com/hatchwm/tilewm/internal/runtimepath"
	"github.com/hatchwm/tilewm/internal/wmstate"
)

// Server listens on the daemon's Unix socket and dispatches IPC requests
// into the Core, the same entry point key bindings use (spec §9: "Action as
// a sum type", SUPPLEMENTED FEATURES: "daemon listens on a Unix socket").
type Server struct {
	socketPath   string
	listener     net.Listener
	core         *core.Core
	bridge       compositor.Bridge
	configPath   string
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer builds a Server bound to c and bridge. The socket path is
// resolved via runtimepath and any stale socket from a crashed prior run is
// removed before listening. configPath is re-read on every CommandReload.
func NewServer(c *core.Core, bridge compositor.Bridge, configPath string, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("ipc: resolve socket path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	os.Remove(socketPath)
	return &Server{
		socketPath: socketPath,
		core:       c,
		bridge:     bridge,
		configPath: configPath,
		logger:     logger,
		startTime:  time.Now(),
	}, nil
}

// Start opens the listening socket and begins accepting connections in the
// background.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("ipc: create socket: %w", err)
	}
	s.listener = listener
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("ipc: set socket permissions: %w", err)
	}
	s.logger.Info("ipc: listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and removes the socket file.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			return err
		}
	}
	os.Remove(s.socketPath)
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			down := s.shuttingDown
			s.shutdownMu.Unlock()
			if down {
				return
			}
			s.logger.Warn("ipc: accept failed", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("ipc: read failed", "error", err)
		return
	}
	req, err := ParseRequest(data)
	if err != nil {
		s.sendResponse(conn, NewErrorResponse(fmt.Sprintf("invalid request: %v", err)))
		return
	}
	s.sendResponse(conn, s.handleCommand(req))
}

func (s *Server) sendResponse(conn net.Conn, resp *Response) {
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("ipc: marshal response failed", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("ipc: write response failed", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandExecute:
		return s.handleExecute(req.Payload)
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListWorkspaces:
		return s.handleListWorkspaces()
	case CommandFocusWorkspace:
		return s.handleFocusWorkspace(req.Payload)
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (s *Server) handleExecute(payload json.RawMessage) *Response {
	var p ExecutePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid execute payload: %v", err))
	}
	if err := s.core.Handle(p.Action); err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleFocusWorkspace(payload json.RawMessage) *Response {
	var p FocusWorkspacePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid focus_workspace payload: %v", err))
	}
	err := s.core.Handle(action.NewSwitchWorkspace(wmstate.WorkspaceNumber(p.Workspace)))
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	store := s.core.Store()
	display, err := s.bridge.ActiveDisplay()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("resolve active display: %v", err))
	}
	ws := store.ActiveWorkspace(display.ID)
	status := StatusData{
		ActiveWorkspace: int(store.ActiveWorkspaceNumber(display.ID)),
		TiledCount:      len(ws.Tiled),
		FloatingCount:   len(ws.Floating),
		UptimeSeconds:   int64(time.Since(s.startTime).Seconds()),
		DaemonRunning:   true,
	}
	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListWorkspaces() *Response {
	store := s.core.Store()
	display, err := s.bridge.ActiveDisplay()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("resolve active display: %v", err))
	}
	active := store.ActiveWorkspaceNumber(display.ID)
	var summaries []WorkspaceSummary
	for n := wmstate.MinWorkspaceNumber; n <= wmstate.MaxWorkspaceNumber; n++ {
		num := wmstate.WorkspaceNumber(n)
		count := store.WindowCount(display.ID, num)
		if count == 0 && num != active {
			continue
		}
		summaries = append(summaries, WorkspaceSummary{
			Number:      n,
			WindowCount: count,
			Active:      num == active,
		})
	}
	resp, _ := NewOKResponse(WorkspacesData{Monitor: string(display.ID), Workspaces: summaries})
	return resp
}

func (s *Server) handleReload() *Response {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("reload config: %v", err))
	}
	for _, e := range s.core.SetConfig(cfg) {
		s.logger.Warn("ipc: reload config entry skipped", "error", e)
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

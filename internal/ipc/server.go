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

	"github.com/1broseidon/spaces/internal/animation"
	"github.com/1broseidon/spaces/internal/events"
	"github.com/1broseidon/spaces/internal/runtimepath"
)

// Daemon is the daemon state the server reads and the queue it posts to.
// Reads must be safe from any goroutine.
type Daemon interface {
	events.Sink
	Status() StatusData
	Spaces() SpacesData
	Desktops() (DesktopsData, error)
	Reload() error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	daemon       Daemon
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server on the runtime socket path.
func NewServer(d Daemon, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, d, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, d Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	// Remove a stale socket left by a crashed daemon.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		daemon:     d,
		logger:     logger.With("component", "ipc"),
		startTime:  time.Now(),
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	reader := bufio.NewReader(conn)

	// One JSON request per line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("request", "command", req.Command)

	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListSpaces:
		return ok(s.daemon.Spaces())
	case CommandDesktopInfo:
		return s.handleDesktopInfo()
	case CommandToggleFullscreen:
		return s.enqueue(events.Event{Kind: events.ToggleFullscreen})
	case CommandSwitch:
		return s.handleSwitch(req.Payload)
	case CommandExitAll:
		return s.enqueue(events.Event{Kind: events.ExitAll})
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	s.logger.Info("received RELOAD")
	if err := s.daemon.Reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	return ok(nil)
}

func (s *Server) handleGetStatus() *Response {
	status := s.daemon.Status()
	status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	status.DaemonRunning = true
	return ok(status)
}

func (s *Server) handleDesktopInfo() *Response {
	data, err := s.daemon.Desktops()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to read desktops: %v", err))
	}
	return ok(data)
}

func (s *Server) handleSwitch(payload json.RawMessage) *Response {
	var req SwitchPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid switch payload: %v", err))
	}
	dir, err := animation.ParseDirection(req.Direction)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	kind := events.SwitchLeft
	if dir == animation.Right {
		kind = events.SwitchRight
	}
	return s.enqueue(events.Event{Kind: kind})
}

// enqueue posts ev to the daemon loop. The reply only confirms the request
// was queued.
func (s *Server) enqueue(ev events.Event) *Response {
	if !s.daemon.Post(ev) {
		return NewErrorResponse(fmt.Sprintf("daemon busy: %s dropped", ev))
	}
	return ok(nil)
}

func ok(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
		s.wg.Wait()
	}
	os.Remove(s.socketPath)
}

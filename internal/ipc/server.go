package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds how long one command may wait on the daemon.
const DefaultRequestTimeout = 3 * time.Second

// Service is the daemon state the server operates on. Implementations are
// called from connection goroutines and must marshal onto the UI context
// themselves.
type Service interface {
	Status(ctx context.Context) (StatusData, error)
	Monitors(ctx context.Context) ([]MonitorInfo, error)
	Profiles(ctx context.Context) ([]ProfileInfo, error)
	ShowProfile(ctx context.Context, id string) error
	HideProfile(ctx context.Context, id string) error
	CloseProfile(ctx context.Context, id string) error
	SetFrameRate(ctx context.Context, fps int, persist bool) error
	ResolvePlacement(ctx context.Context, id string) (PlacementData, error)
	Fullscreen(ctx context.Context, id string) error
	Items(ctx context.Context, id string) ([]ItemInfo, error)
	ReorderItem(ctx context.Context, req ReorderItemPayload) error
	Reload(ctx context.Context) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	svc        Service
	logger     *slog.Logger
	timeout    time.Duration

	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server listening on socketPath.
func NewServer(socketPath string, svc Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		svc:        svc,
		logger:     logger,
		timeout:    DefaultRequestTimeout,
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a previous run.
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("another daemon is listening on %s", s.socketPath)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
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
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

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
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)

	switch req.Command {
	case CommandPing:
		return ok(nil)
	case CommandReload:
		if err := s.svc.Reload(ctx); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
		}
		return ok(nil)
	case CommandGetStatus:
		status, err := s.svc.Status(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
		}
		status.DaemonRunning = true
		return ok(status)
	case CommandGetMonitors:
		monitors, err := s.svc.Monitors(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
		}
		return ok(MonitorsData{Monitors: monitors})
	case CommandListProfiles:
		profiles, err := s.svc.Profiles(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to list profiles: %v", err))
		}
		return ok(ProfilesData{Profiles: profiles})
	case CommandShowProfile, CommandHideProfile, CommandCloseProfile, CommandFullscreen:
		return s.handleProfileAction(ctx, req)
	case CommandSetFrameRate:
		var p SetFrameRatePayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid frame rate payload: %v", err))
		}
		if p.FPS < 1 {
			return NewErrorResponse("fps must be >= 1")
		}
		if err := s.svc.SetFrameRate(ctx, p.FPS, p.Persist); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to set frame rate: %v", err))
		}
		return ok(nil)
	case CommandResolvePlacement:
		id, resp := profileID(req.Payload)
		if resp != nil {
			return resp
		}
		data, err := s.svc.ResolvePlacement(ctx, id)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to resolve placement: %v", err))
		}
		return ok(data)
	case CommandListItems:
		id, resp := profileID(req.Payload)
		if resp != nil {
			return resp
		}
		items, err := s.svc.Items(ctx, id)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to list items: %v", err))
		}
		return ok(ItemsData{ProfileID: id, Items: items})
	case CommandReorderItem:
		var p ReorderItemPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid reorder payload: %v", err))
		}
		if p.ProfileID == "" || p.ItemID == "" {
			return NewErrorResponse("profile_id and item_id are required")
		}
		switch p.Position {
		case ReorderUp, ReorderDown, ReorderTop, ReorderBottom:
		default:
			return NewErrorResponse(fmt.Sprintf("Unknown position %q", p.Position))
		}
		if err := s.svc.ReorderItem(ctx, p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to reorder item: %v", err))
		}
		return ok(nil)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleProfileAction(ctx context.Context, req *Request) *Response {
	id, resp := profileID(req.Payload)
	if resp != nil {
		return resp
	}

	var err error
	switch req.Command {
	case CommandShowProfile:
		err = s.svc.ShowProfile(ctx, id)
	case CommandHideProfile:
		err = s.svc.HideProfile(ctx, id)
	case CommandCloseProfile:
		err = s.svc.CloseProfile(ctx, id)
	case CommandFullscreen:
		err = s.svc.Fullscreen(ctx, id)
	}
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("%s %s: %v", req.Command, id, err))
	}
	return ok(nil)
}

func profileID(payload json.RawMessage) (string, *Response) {
	var p ProfilePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", NewErrorResponse(fmt.Sprintf("Invalid profile payload: %v", err))
	}
	if p.ProfileID == "" {
		return "", NewErrorResponse("profile_id is required")
	}
	return p.ProfileID, nil
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
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

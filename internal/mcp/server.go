package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/infopanel/internal/ipc"
)

const (
	ServerName    = "infopanel"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the control socket client the tools use.
type Daemon interface {
	Ping() error
	Reload() error
	GetStatus() (*ipc.StatusData, error)
	GetMonitors() (*ipc.MonitorsData, error)
	ListProfiles() (*ipc.ProfilesData, error)
	ShowProfile(id string) error
	HideProfile(id string) error
	CloseProfile(id string) error
	Fullscreen(id string) error
	SetFrameRate(fps int, persist bool) error
	ResolvePlacement(id string) (*ipc.PlacementData, error)
	ListItems(id string) (*ipc.ItemsData, error)
	ReorderItem(profileID, itemID, position string) error
}

var _ Daemon = (*ipc.Client)(nil)

// Server exposes the running daemon's profile windows as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that talks to the daemon through d.
func NewServer(d Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: d,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.daemon.Ping(); err != nil {
		s.logger.Warn("infopanel daemon not reachable yet", "error", err)
	}
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the daemon state: target frame rate, configured profile count, and for every open panel window its bounds, visibility, realized frame rate and resize state.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List the attached monitors with their device names and bounds in virtual screen coordinates.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_profiles",
		Description: "List every configured profile with its size, monitor-relative offset, target monitor name and whether its window is open.",
	}, s.handleListProfiles)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_profile",
		Description: "Open a profile's panel window, or bring it back if it is hidden. The window is placed on the monitor its profile targets.",
	}, s.handleShowProfile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "hide_profile",
		Description: "Hide a profile's panel window without releasing it.",
	}, s.handleHideProfile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_profile",
		Description: "Close a profile's panel window and release its resources.",
	}, s.handleCloseProfile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fullscreen_profile",
		Description: "Resize an open panel window to cover the monitor it is placed on. The new size is saved to the profile.",
	}, s.handleFullscreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_frame_rate",
		Description: "Change the target frame rate of every panel window. Pass persist=true to save it to the config file.",
	}, s.handleSetFrameRate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resolve_placement",
		Description: "Report which monitor a profile currently resolves to, which matching rule picked it, and the absolute window origin. found=false means the window would be hidden.",
	}, s.handleResolvePlacement)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_items",
		Description: "Return a profile's item tree in z-order. Index 0 is drawn first.",
	}, s.handleListItems)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reorder_item",
		Description: "Move an item within its sibling list: up or down by one, or to the top (index 0) or bottom. Items never leave their group.",
	}, s.handleReorderItem)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Ask the daemon to re-read its config file and apply it to every profile window.",
	}, s.handleReload)
}

package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/spaces/internal/ipc"
	"github.com/1broseidon/spaces/internal/platform"
)

const (
	ServerName    = "spaces"
	ServerVersion = "0.1.0"
)

// DaemonClient is the part of the IPC client the tools use.
type DaemonClient interface {
	ListSpaces() (*ipc.SpacesData, error)
	DesktopInfo() (*ipc.DesktopsData, error)
	ToggleFullscreen() error
	Switch(direction string) error
	ExitAll() error
}

// Server is the MCP server exposing the spaces daemon to agents.
type Server struct {
	mcpServer *mcpsdk.Server
	client    DaemonClient
	logger    *slog.Logger
}

// NewServer creates an MCP server talking to the daemon through client.
func NewServer(client DaemonClient, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		client: client,
		logger: logger.With("component", "mcp"),
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
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_spaces",
		Description: "List the windows currently shown in a fullscreen space, with the desktop each came from and the desktop created for it.",
	}, s.handleListSpaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "desktop_info",
		Description: "Describe the virtual desktops: count, current desktop, which desktops belong to fullscreen spaces and whether a left or right switch is possible.",
	}, s.handleDesktopInfo)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_fullscreen",
		Description: "Move the active window into its own fullscreen desktop, or back to where it came from when it already has one.",
	}, s.handleToggleFullscreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "switch_desktop",
		Description: "Switch to the adjacent desktop on the left or right with the sweep animation. Nothing happens at the first or last desktop.",
	}, s.handleSwitchDesktop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "exit_all_spaces",
		Description: "Return every fullscreen window to its original desktop and remove the desktops created for them.",
	}, s.handleExitAll)
}

func (s *Server) handleListSpaces(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListSpacesInput) (*mcpsdk.CallToolResult, ListSpacesOutput, error) {
	data, err := s.client.ListSpaces()
	if err != nil {
		return nil, ListSpacesOutput{}, err
	}
	out := ListSpacesOutput{Spaces: make([]SpaceInfo, 0, len(data.Spaces))}
	for _, sp := range data.Spaces {
		out.Spaces = append(out.Spaces, SpaceInfo{
			Window:          platform.WindowID(sp.Window).String(),
			Title:           sp.Title,
			OriginalDesktop: sp.OriginalDesktop,
			CreatedDesktop:  sp.CreatedDesktop,
		})
	}
	s.logger.Debug("list_spaces", "count", len(out.Spaces))
	return nil, out, nil
}

func (s *Server) handleDesktopInfo(_ context.Context, _ *mcpsdk.CallToolRequest, _ DesktopInfoInput) (*mcpsdk.CallToolResult, DesktopInfoOutput, error) {
	data, err := s.client.DesktopInfo()
	if err != nil {
		return nil, DesktopInfoOutput{}, err
	}
	out := DesktopInfoOutput{
		Count:          data.Count,
		Current:        data.Current,
		CanSwitchLeft:  data.CanSwitchLeft,
		CanSwitchRight: data.CanSwitchRight,
		Desktops:       make([]DesktopInfo, 0, len(data.Desktops)),
	}
	for _, d := range data.Desktops {
		info := DesktopInfo{Index: d.Index, Current: d.Current}
		if d.Owner != 0 {
			info.Owner = platform.WindowID(d.Owner).String()
		}
		out.Desktops = append(out.Desktops, info)
	}
	return nil, out, nil
}

func (s *Server) handleToggleFullscreen(_ context.Context, _ *mcpsdk.CallToolRequest, _ ToggleFullscreenInput) (*mcpsdk.CallToolResult, QueuedOutput, error) {
	if err := s.client.ToggleFullscreen(); err != nil {
		return nil, QueuedOutput{}, err
	}
	return nil, QueuedOutput{Queued: true, Action: "toggle_fullscreen"}, nil
}

func (s *Server) handleSwitchDesktop(_ context.Context, _ *mcpsdk.CallToolRequest, args SwitchDesktopInput) (*mcpsdk.CallToolResult, QueuedOutput, error) {
	if args.Direction != "left" && args.Direction != "right" {
		return nil, QueuedOutput{}, fmt.Errorf("direction must be left or right, got %q", args.Direction)
	}
	if err := s.client.Switch(args.Direction); err != nil {
		return nil, QueuedOutput{}, err
	}
	return nil, QueuedOutput{Queued: true, Action: "switch_" + args.Direction}, nil
}

func (s *Server) handleExitAll(_ context.Context, _ *mcpsdk.CallToolRequest, _ ExitAllInput) (*mcpsdk.CallToolResult, QueuedOutput, error) {
	if err := s.client.ExitAll(); err != nil {
		return nil, QueuedOutput{}, err
	}
	return nil, QueuedOutput{Queued: true, Action: "exit_all"}, nil
}

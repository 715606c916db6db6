package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/infopanel/internal/ipc"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{Status: *status}, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, MonitorsOutput, error) {
	data, err := s.daemon.GetMonitors()
	if err != nil {
		return nil, MonitorsOutput{}, err
	}
	return nil, MonitorsOutput{Monitors: data.Monitors}, nil
}

func (s *Server) handleListProfiles(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ProfilesOutput, error) {
	data, err := s.daemon.ListProfiles()
	if err != nil {
		return nil, ProfilesOutput{}, err
	}
	return nil, ProfilesOutput{Profiles: data.Profiles}, nil
}

func (s *Server) handleShowProfile(_ context.Context, _ *mcpsdk.CallToolRequest, args ProfileInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return s.profileAction("show", args, s.daemon.ShowProfile)
}

func (s *Server) handleHideProfile(_ context.Context, _ *mcpsdk.CallToolRequest, args ProfileInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return s.profileAction("hide", args, s.daemon.HideProfile)
}

func (s *Server) handleCloseProfile(_ context.Context, _ *mcpsdk.CallToolRequest, args ProfileInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return s.profileAction("close", args, s.daemon.CloseProfile)
}

func (s *Server) handleFullscreen(_ context.Context, _ *mcpsdk.CallToolRequest, args ProfileInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	return s.profileAction("fullscreen", args, s.daemon.Fullscreen)
}

func (s *Server) profileAction(action string, args ProfileInput, fn func(id string) error) (*mcpsdk.CallToolResult, ActionOutput, error) {
	id := strings.TrimSpace(args.ProfileID)
	if id == "" {
		return nil, ActionOutput{}, fmt.Errorf("profile_id is required")
	}
	if err := fn(id); err != nil {
		s.logger.Warn("mcp profile action failed", "action", action, "profile", id, "error", err)
		return nil, ActionOutput{}, err
	}
	s.logger.Debug("mcp profile action", "action", action, "profile", id)
	return nil, ActionOutput{ProfileID: id, OK: true}, nil
}

func (s *Server) handleSetFrameRate(_ context.Context, _ *mcpsdk.CallToolRequest, args SetFrameRateInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if args.FPS < 1 || args.FPS > 240 {
		return nil, ActionOutput{}, fmt.Errorf("fps must be between 1 and 240, got %d", args.FPS)
	}
	if err := s.daemon.SetFrameRate(args.FPS, args.Persist); err != nil {
		return nil, ActionOutput{}, err
	}
	msg := fmt.Sprintf("target frame rate set to %d", args.FPS)
	if args.Persist {
		msg += " and saved"
	}
	return nil, ActionOutput{OK: true, Message: msg}, nil
}

func (s *Server) handleResolvePlacement(_ context.Context, _ *mcpsdk.CallToolRequest, args ProfileInput) (*mcpsdk.CallToolResult, PlacementOutput, error) {
	id := strings.TrimSpace(args.ProfileID)
	if id == "" {
		return nil, PlacementOutput{}, fmt.Errorf("profile_id is required")
	}
	data, err := s.daemon.ResolvePlacement(id)
	if err != nil {
		return nil, PlacementOutput{}, err
	}
	return nil, PlacementOutput{Placement: *data}, nil
}

func (s *Server) handleListItems(_ context.Context, _ *mcpsdk.CallToolRequest, args ProfileInput) (*mcpsdk.CallToolResult, ItemsOutput, error) {
	id := strings.TrimSpace(args.ProfileID)
	if id == "" {
		return nil, ItemsOutput{}, fmt.Errorf("profile_id is required")
	}
	data, err := s.daemon.ListItems(id)
	if err != nil {
		return nil, ItemsOutput{}, err
	}
	return nil, ItemsOutput{ProfileID: data.ProfileID, Items: data.Items}, nil
}

func (s *Server) handleReorderItem(_ context.Context, _ *mcpsdk.CallToolRequest, args ReorderItemInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	position := strings.ToLower(strings.TrimSpace(args.Position))
	switch position {
	case ipc.ReorderUp, ipc.ReorderDown, ipc.ReorderTop, ipc.ReorderBottom:
	default:
		return nil, ActionOutput{}, fmt.Errorf("position must be one of up, down, top, bottom; got %q", args.Position)
	}
	if args.ProfileID == "" || args.ItemID == "" {
		return nil, ActionOutput{}, fmt.Errorf("profile_id and item_id are required")
	}
	if err := s.daemon.ReorderItem(args.ProfileID, args.ItemID, position); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{
		ProfileID: args.ProfileID,
		OK:        true,
		Message:   fmt.Sprintf("moved %s %s", args.ItemID, position),
	}, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ EmptyInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{OK: true, Message: "config reloaded"}, nil
}

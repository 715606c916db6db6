package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandPing             CommandType = "PING"
	CommandReload           CommandType = "RELOAD"
	CommandGetStatus        CommandType = "GET_STATUS"
	CommandGetMonitors      CommandType = "GET_MONITORS"
	CommandListProfiles     CommandType = "LIST_PROFILES"
	CommandShowProfile      CommandType = "SHOW_PROFILE"
	CommandHideProfile      CommandType = "HIDE_PROFILE"
	CommandCloseProfile     CommandType = "CLOSE_PROFILE"
	CommandSetFrameRate     CommandType = "SET_FRAME_RATE"
	CommandResolvePlacement CommandType = "RESOLVE_PLACEMENT"
	CommandFullscreen       CommandType = "FULLSCREEN"
	CommandListItems        CommandType = "LIST_ITEMS"
	CommandReorderItem      CommandType = "REORDER_ITEM"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	TargetFrameRate int           `json:"target_frame_rate"`
	Profiles        int           `json:"profiles"`
	UptimeSeconds   int64         `json:"uptime_seconds"`
	DaemonRunning   bool          `json:"daemon_running"`
	ConfigPath      string        `json:"config_path"`
	Windows         []SessionInfo `json:"windows"`
}

// SessionInfo is the live state of one open profile window.
type SessionInfo struct {
	ProfileID         string  `json:"profile_id"`
	Mode              string  `json:"mode"`
	X                 int     `json:"x"`
	Y                 int     `json:"y"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Visible           bool    `json:"visible"`
	HiddenByPlacement bool    `json:"hidden_by_placement"`
	TargetRate        int     `json:"target_rate"`
	RealizedFPS       float64 `json:"realized_fps"`
	Ticks             uint64  `json:"ticks"`
	SkippedTicks      uint64  `json:"skipped_ticks"`
	ResizeState       string  `json:"resize_state"`
	Dragging          bool    `json:"dragging"`
	CachedAssets      int     `json:"cached_assets"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MonitorsData represents the data returned by GET_MONITORS
type MonitorsData struct {
	Monitors []MonitorInfo `json:"monitors"`
}

// ProfileInfo summarizes a configured profile.
type ProfileInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	WindowX        int    `json:"window_x"`
	WindowY        int    `json:"window_y"`
	Target         string `json:"target"`
	StrictMatching bool   `json:"strict_matching"`
	RenderMode     string `json:"render_mode"`
	Open           bool   `json:"open"`
	Items          int    `json:"items"`
}

type ProfilesData struct {
	Profiles []ProfileInfo `json:"profiles"`
}

// ProfilePayload names the profile a command applies to.
type ProfilePayload struct {
	ProfileID string `json:"profile_id"`
}

type SetFrameRatePayload struct {
	FPS     int  `json:"fps"`
	Persist bool `json:"persist,omitempty"`
}

// PlacementData is the answer to RESOLVE_PLACEMENT.
type PlacementData struct {
	ProfileID string `json:"profile_id"`
	Found     bool   `json:"found"`
	Match     string `json:"match"`
	Monitor   string `json:"monitor,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// ItemInfo is one node of a profile's item tree.
type ItemInfo struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Kind     string     `json:"kind"`
	X        int        `json:"x"`
	Y        int        `json:"y"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Hidden   bool       `json:"hidden,omitempty"`
	Locked   bool       `json:"locked,omitempty"`
	Selected bool       `json:"selected,omitempty"`
	Children []ItemInfo `json:"children,omitempty"`
}

type ItemsData struct {
	ProfileID string     `json:"profile_id"`
	Items     []ItemInfo `json:"items"`
}

// Reorder positions accepted by REORDER_ITEM.
const (
	ReorderUp     = "up"
	ReorderDown   = "down"
	ReorderTop    = "top"
	ReorderBottom = "bottom"
)

type ReorderItemPayload struct {
	ProfileID string `json:"profile_id"`
	ItemID    string `json:"item_id"`
	Position  string `json:"position"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

package mcp

import "github.com/1broseidon/infopanel/internal/ipc"

// ProfileInput names the profile a tool acts on.
type ProfileInput struct {
	ProfileID string `json:"profile_id" jsonschema:"required,Profile id from the infopanel config (see list_profiles)"`
}

// EmptyInput is used by tools that take no arguments.
type EmptyInput struct{}

// ActionOutput is the output of tools that only change state.
type ActionOutput struct {
	ProfileID string `json:"profile_id,omitempty"`
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	Status ipc.StatusData `json:"status"`
}

// MonitorsOutput is the output for the list_monitors tool.
type MonitorsOutput struct {
	Monitors []ipc.MonitorInfo `json:"monitors"`
}

// ProfilesOutput is the output for the list_profiles tool.
type ProfilesOutput struct {
	Profiles []ipc.ProfileInfo `json:"profiles"`
}

// SetFrameRateInput is the input for the set_frame_rate tool.
type SetFrameRateInput struct {
	FPS     int  `json:"fps" jsonschema:"required,Target frames per second for every panel window (1-240)"`
	Persist bool `json:"persist,omitempty" jsonschema:"When true, also write the new rate to the config file"`
}

// PlacementOutput is the output for the resolve_placement tool.
type PlacementOutput struct {
	Placement ipc.PlacementData `json:"placement"`
}

// ItemsOutput is the output for the list_items tool.
type ItemsOutput struct {
	ProfileID string         `json:"profile_id"`
	Items     []ipc.ItemInfo `json:"items"`
}

// ReorderItemInput is the input for the reorder_item tool.
type ReorderItemInput struct {
	ProfileID string `json:"profile_id" jsonschema:"required,Profile that owns the item"`
	ItemID    string `json:"item_id" jsonschema:"required,Item to move within its sibling list"`
	Position  string `json:"position" jsonschema:"required,One of up, down, top, bottom. top is index 0, drawn first"`
}

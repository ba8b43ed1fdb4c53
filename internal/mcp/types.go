package mcp

// ListSpacesInput is the input for the list_spaces tool.
type ListSpacesInput struct{}

// SpaceInfo describes a single fullscreen space.
type SpaceInfo struct {
	Window          string `json:"window"`
	Title           string `json:"title,omitempty"`
	OriginalDesktop int    `json:"original_desktop"`
	CreatedDesktop  int    `json:"created_desktop"`
}

// ListSpacesOutput is the output for the list_spaces tool.
type ListSpacesOutput struct {
	Spaces []SpaceInfo `json:"spaces"`
}

// DesktopInfoInput is the input for the desktop_info tool.
type DesktopInfoInput struct{}

// DesktopInfo describes one virtual desktop.
type DesktopInfo struct {
	Index   int    `json:"index"`
	Current bool   `json:"current"`
	Owner   string `json:"owner,omitempty"`
}

// DesktopInfoOutput is the output for the desktop_info tool.
type DesktopInfoOutput struct {
	Count          int           `json:"count"`
	Current        int           `json:"current"`
	CanSwitchLeft  bool          `json:"can_switch_left"`
	CanSwitchRight bool          `json:"can_switch_right"`
	Desktops       []DesktopInfo `json:"desktops"`
}

// ToggleFullscreenInput is the input for the toggle_fullscreen tool.
type ToggleFullscreenInput struct{}

// SwitchDesktopInput is the input for the switch_desktop tool.
type SwitchDesktopInput struct {
	Direction string `json:"direction" jsonschema:"Direction to switch: left or right"`
}

// ExitAllInput is the input for the exit_all_spaces tool.
type ExitAllInput struct{}

// QueuedOutput reports that the daemon accepted a request. The action runs
// asynchronously on the daemon.
type QueuedOutput struct {
	Queued bool   `json:"queued"`
	Action string `json:"action"`
}

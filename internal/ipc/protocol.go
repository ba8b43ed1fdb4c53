package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload           CommandType = "RELOAD"
	CommandGetStatus        CommandType = "GET_STATUS"
	CommandListSpaces       CommandType = "LIST_SPACES"
	CommandDesktopInfo      CommandType = "DESKTOP_INFO"
	CommandToggleFullscreen CommandType = "TOGGLE_FULLSCREEN"
	CommandSwitch           CommandType = "SWITCH"
	CommandExitAll          CommandType = "EXIT_ALL"
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
	SpaceCount      int    `json:"space_count"`
	DesktopCount    int    `json:"desktop_count"`
	CurrentDesktop  int    `json:"current_desktop"`
	Display         string `json:"display,omitempty"`
	EventsProcessed uint64 `json:"events_processed"`
	QueueDepth      int    `json:"queue_depth"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	DaemonRunning   bool   `json:"daemon_running"`
}

// SpaceInfo describes one fullscreen space.
type SpaceInfo struct {
	Window          uint32 `json:"window"`
	Title           string `json:"title,omitempty"`
	OriginalDesktop int    `json:"original_desktop"`
	CreatedDesktop  int    `json:"created_desktop"`
}

// SpacesData represents the data returned by LIST_SPACES
type SpacesData struct {
	Spaces []SpaceInfo `json:"spaces"`
}

// DesktopInfo describes one virtual desktop.
type DesktopInfo struct {
	Index   int    `json:"index"`
	Current bool   `json:"current"`
	Owner   uint32 `json:"owner,omitempty"` // window owning the desktop, 0 for ordinary desktops
}

// DesktopsData represents the data returned by DESKTOP_INFO
type DesktopsData struct {
	Count          int           `json:"count"`
	Current        int           `json:"current"`
	CanSwitchLeft  bool          `json:"can_switch_left"`
	CanSwitchRight bool          `json:"can_switch_right"`
	Desktops       []DesktopInfo `json:"desktops"`
}

// SwitchPayload represents the payload for SWITCH command
type SwitchPayload struct {
	Direction string `json:"direction"` // "left" or "right"
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

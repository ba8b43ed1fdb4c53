package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

const (
	stateMaxHorz      = "_NET_WM_STATE_MAXIMIZED_HORZ"
	stateMaxVert      = "_NET_WM_STATE_MAXIMIZED_VERT"
	stateFullscreen   = "_NET_WM_STATE_FULLSCREEN"
	stateActionRemove = 0
	stateActionAdd    = 1
	stateActionToggle = 2
)

// GetActiveWindow returns the window named by _NET_ACTIVE_WINDOW.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// WindowExists reports whether the server still knows about windowID.
func (c *Connection) WindowExists(windowID xproto.Window) bool {
	if windowID == 0 {
		return false
	}
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// IsMaximized reports whether the window carries both maximized states.
func (c *Connection) IsMaximized(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}

	hasMaxH := false
	hasMaxV := false
	for _, state := range states {
		if state == stateMaxHorz {
			hasMaxH = true
		}
		if state == stateMaxVert {
			hasMaxV = true
		}
	}
	return hasMaxH && hasMaxV
}

// MaximizeWindow adds both maximized states in a single request.
func (c *Connection) MaximizeWindow(windowID xproto.Window) error {
	return ewmh.WmStateReqExtra(c.XUtil, windowID, stateActionAdd, stateMaxHorz, stateMaxVert, sourcePager)
}

// RestoreWindow removes both maximized states in a single request.
func (c *Connection) RestoreWindow(windowID xproto.Window) error {
	return ewmh.WmStateReqExtra(c.XUtil, windowID, stateActionRemove, stateMaxHorz, stateMaxVert, sourcePager)
}

// ToggleFullscreenState flips _NET_WM_STATE_FULLSCREEN on the window.
func (c *Connection) ToggleFullscreenState(windowID xproto.Window) error {
	return ewmh.WmStateReq(c.XUtil, windowID, stateActionToggle, stateFullscreen)
}

// ClientWindows returns the EWMH client list.
func (c *Connection) ClientWindows() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		// Reject desktop, dock, splash, etc.
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

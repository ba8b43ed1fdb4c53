package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil/keybind"
)

const (
	FullscreenMethodKey     = "key"
	FullscreenMethodWMState = "wm_state"
)

// FullscreenToggler flips a window in or out of application fullscreen.
type FullscreenToggler interface {
	ToggleFullscreen(win xproto.Window) error
}

// KeyFullscreenToggler presses and releases a key (F11 by default) through
// XTEST. The key goes to whatever window has focus, so win is ignored.
type KeyFullscreenToggler struct {
	conn    *Connection
	keycode xproto.Keycode
}

// NewKeyFullscreenToggler resolves key (a keybind key name such as "F11") and
// initializes the XTEST extension.
func NewKeyFullscreenToggler(conn *Connection, key string) (*KeyFullscreenToggler, error) {
	if key == "" {
		key = "F11"
	}
	if err := xtest.Init(conn.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("xtest init failed: %w", err)
	}
	codes := keybind.StrToKeycodes(conn.XUtil, key)
	if len(codes) == 0 {
		return nil, fmt.Errorf("no keycode for key %q", key)
	}
	return &KeyFullscreenToggler{conn: conn, keycode: codes[0]}, nil
}

func (t *KeyFullscreenToggler) ToggleFullscreen(xproto.Window) error {
	conn := t.conn.XUtil.Conn()
	press := xtest.FakeInputChecked(conn, xproto.KeyPress, byte(t.keycode), xproto.TimeCurrentTime, t.conn.Root, 0, 0, 0)
	if err := press.Check(); err != nil {
		return fmt.Errorf("failed to press fullscreen key: %w", err)
	}
	release := xtest.FakeInputChecked(conn, xproto.KeyRelease, byte(t.keycode), xproto.TimeCurrentTime, t.conn.Root, 0, 0, 0)
	if err := release.Check(); err != nil {
		return fmt.Errorf("failed to release fullscreen key: %w", err)
	}
	return nil
}

// WMStateFullscreenToggler asks the window manager to flip
// _NET_WM_STATE_FULLSCREEN on the window.
type WMStateFullscreenToggler struct {
	conn *Connection
}

func (t *WMStateFullscreenToggler) ToggleFullscreen(win xproto.Window) error {
	if win == 0 {
		return fmt.Errorf("no window to toggle")
	}
	return t.conn.ToggleFullscreenState(win)
}

// NewFullscreenToggler builds the toggler for method.
func NewFullscreenToggler(conn *Connection, method, key string) (FullscreenToggler, error) {
	switch method {
	case "", FullscreenMethodKey:
		return NewKeyFullscreenToggler(conn, key)
	case FullscreenMethodWMState:
		return &WMStateFullscreenToggler{conn: conn}, nil
	default:
		return nil, fmt.Errorf("unknown fullscreen method %q", method)
	}
}

package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection establishes a connection to the X11 server and initializes required extensions
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for global hotkeys and key injection)
	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops a running EventLoop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// sendRootMessage sends a 32-bit client message about window to the root
// window, the way EWMH pagers request state changes from the window manager.
// The xgbutil ewmh request helpers are avoided because some of them panic on
// this library version (uint vs int type assertion).
func (c *Connection) sendRootMessage(window xproto.Window, atomName string, data ...uint32) error {
	atom, err := c.atom(atomName)
	if err != nil {
		return err
	}

	payload := make([]uint32, 5)
	copy(payload, data)

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: window,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

func (c *Connection) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return reply.Atom, nil
}

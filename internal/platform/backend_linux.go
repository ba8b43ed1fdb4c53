//go:build linux

package platform

import (
	"fmt"
	"strings"

	"github.com/1broseidon/spaces/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops a running EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// Connection returns the X11 connection for X11-specific components
// (hotkeys, overlays).
func (b *LinuxBackend) Connection() *x11.Connection {
	if b == nil {
		return nil
	}
	return b.conn
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// ActiveDisplay returns the currently active display.
func (b *LinuxBackend) ActiveDisplay() (Display, error) {
	conn, err := b.connection()
	if err != nil {
		return Display{}, err
	}

	active, err := conn.GetActiveMonitor()
	if err != nil {
		return Display{}, err
	}

	return displayFromMonitor(*active), nil
}

func (b *LinuxBackend) DesktopCount() (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.GetDesktopCount()
}

func (b *LinuxBackend) CurrentDesktop() (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.GetCurrentDesktop()
}

func (b *LinuxBackend) SwitchTo(index int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SwitchDesktop(index)
}

// CreateDesktop grows _NET_NUMBER_OF_DESKTOPS by one, which appends.
func (b *LinuxBackend) CreateDesktop() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.AppendDesktop()
}

func (b *LinuxBackend) RemoveDesktop(index, fallback int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.RemoveDesktopAt(index, fallback)
}

func (b *LinuxBackend) MoveWindowTo(windowID WindowID, index int) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetWindowDesktop(uint32(windowID), index)
}

// WindowDesktop returns the desktop of windowID, or -1 for sticky windows.
func (b *LinuxBackend) WindowDesktop(windowID WindowID) (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.GetWindowDesktop(uint32(windowID))
}

// ActiveWindow returns the focused window, or 0 when the focus is on
// something that is not a normal application window (desktop, dock).
func (b *LinuxBackend) ActiveWindow() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}

	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	if wid == 0 || wid == conn.Root || !conn.IsNormalWindow(wid) {
		return 0, nil
	}
	return WindowID(wid), nil
}

func (b *LinuxBackend) IsValid(windowID WindowID) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	return conn.WindowExists(xproto.Window(windowID))
}

func (b *LinuxBackend) IsMaximized(windowID WindowID) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	return conn.IsMaximized(xproto.Window(windowID))
}

func (b *LinuxBackend) Maximize(windowID WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MaximizeWindow(xproto.Window(windowID))
}

func (b *LinuxBackend) Restore(windowID WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.RestoreWindow(xproto.Window(windowID))
}

func (b *LinuxBackend) ClientWindows() ([]WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	clients, err := conn.ClientWindows()
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, WindowID(c))
	}
	return ids, nil
}

// WindowTitle returns the EWMH or ICCCM title of windowID, falling back to
// its WM_CLASS.
func (b *LinuxBackend) WindowTitle(windowID WindowID) string {
	if b == nil || b.conn == nil {
		return ""
	}
	win := xproto.Window(windowID)

	if title, err := ewmh.WmNameGet(b.conn.XUtil, win); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if title, err := icccm.WmNameGet(b.conn.XUtil, win); err == nil {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	if class, err := icccm.WmClassGet(b.conn.XUtil, win); err == nil {
		return strings.TrimSpace(class.Class)
	}
	return ""
}

// NewFullscreenToggler returns the native fullscreen toggler for method
// ("key" or "wm_state").
func (b *LinuxBackend) NewFullscreenToggler(method, key string) (FullscreenToggler, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	t, err := x11.NewFullscreenToggler(conn, method, key)
	if err != nil {
		return nil, err
	}
	return linuxToggler{t: t}, nil
}

// NewWindowWatcher returns a watcher reporting destroyed windows to
// onDestroyed from the X event loop goroutine.
func (b *LinuxBackend) NewWindowWatcher(onDestroyed func(WindowID)) (*LinuxWindowWatcher, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	w := x11.NewDestroyWatcher(conn, func(win xproto.Window) {
		onDestroyed(WindowID(win))
	})
	return &LinuxWindowWatcher{w: w}, nil
}

// LinuxWindowWatcher adapts the X11 destroy watcher to WindowWatcher.
type LinuxWindowWatcher struct {
	w *x11.DestroyWatcher
}

var _ WindowWatcher = (*LinuxWindowWatcher)(nil)

func (lw *LinuxWindowWatcher) Watch(windowID WindowID) error {
	return lw.w.Watch(xproto.Window(windowID))
}

func (lw *LinuxWindowWatcher) Unwatch(windowID WindowID) {
	lw.w.Unwatch(xproto.Window(windowID))
}

// Close stops reporting and detaches every callback.
func (lw *LinuxWindowWatcher) Close() {
	lw.w.Close()
}

type linuxToggler struct {
	t x11.FullscreenToggler
}

func (l linuxToggler) ToggleNativeFullscreen(windowID WindowID) error {
	return l.t.ToggleFullscreen(xproto.Window(windowID))
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	bounds := Rect{
		X:      m.X,
		Y:      m.Y,
		Width:  m.Width,
		Height: m.Height,
	}
	return Display{
		ID:     m.ID,
		Name:   m.Name,
		Bounds: bounds,
		Usable: bounds,
	}
}

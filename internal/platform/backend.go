package platform

import "fmt"

// WindowID is a platform-neutral window identifier.
// It is only ever compared and used as a map key.
type WindowID uint32

func (w WindowID) String() string {
	return fmt.Sprintf("0x%08x", uint32(w))
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Desktops exposes the virtual-desktop primitives. Desktop indices are zero
// based. Mutating calls may be silently ineffective; callers never assume a
// nil error means the window manager applied the change.
type Desktops interface {
	DesktopCount() (int, error)
	CurrentDesktop() (int, error)
	SwitchTo(index int) error
	// CreateDesktop appends a new desktop at the end of the desktop list.
	CreateDesktop() error
	// RemoveDesktop deletes the desktop at index, moving any window still on
	// it to fallback.
	RemoveDesktop(index, fallback int) error
	MoveWindowTo(windowID WindowID, index int) error
	WindowDesktop(windowID WindowID) (int, error)
}

// Windows exposes top-level window state.
type Windows interface {
	ActiveWindow() (WindowID, error)
	IsValid(windowID WindowID) bool
	IsMaximized(windowID WindowID) bool
	Maximize(windowID WindowID) error
	Restore(windowID WindowID) error
	// ClientWindows lists the managed top-level windows.
	ClientWindows() ([]WindowID, error)
}

// FullscreenToggler flips an application in or out of its own fullscreen
// presentation.
type FullscreenToggler interface {
	ToggleNativeFullscreen(windowID WindowID) error
}

// WindowWatcher reports destruction of watched windows.
type WindowWatcher interface {
	Watch(windowID WindowID) error
	Unwatch(windowID WindowID)
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	Desktops
	Windows
	ActiveDisplay() (Display, error)
}

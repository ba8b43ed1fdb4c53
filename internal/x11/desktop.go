package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// stickyDesktop is the _NET_WM_DESKTOP value of windows shown on all desktops.
const stickyDesktop = 0xFFFFFFFF

// sourcePager marks client messages as direct user actions (EWMH source indication).
const sourcePager = 2

// GetCurrentDesktop returns the current virtual desktop number (0-indexed).
// Uses _NET_CURRENT_DESKTOP atom. Returns 0 with an error if detection fails.
func (c *Connection) GetCurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// GetWindowDesktop returns the desktop number a window is on.
// Uses _NET_WM_DESKTOP atom. Returns -1 for "sticky" windows (visible on all desktops).
// Returns 0 with an error if detection fails.
func (c *Connection) GetWindowDesktop(windowID uint32) (int, error) {
	desktop, err := ewmh.WmDesktopGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return 0, fmt.Errorf("failed to get window desktop: %w", err)
	}
	if desktop == stickyDesktop {
		return -1, nil
	}
	return int(desktop), nil
}

// GetDesktopCount returns the number of virtual desktops.
func (c *Connection) GetDesktopCount() (int, error) {
	count, err := ewmh.NumberOfDesktopsGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get desktop count: %w", err)
	}
	return int(count), nil
}

// SetWindowDesktop moves a window to the specified virtual desktop.
// Sends a _NET_WM_DESKTOP client message to the root window per EWMH spec.
func (c *Connection) SetWindowDesktop(windowID uint32, desktop int) error {
	return c.sendRootMessage(xproto.Window(windowID), "_NET_WM_DESKTOP", uint32(desktop), sourcePager)
}

// SwitchDesktop asks the window manager to show the given desktop.
func (c *Connection) SwitchDesktop(desktop int) error {
	if desktop < 0 {
		return fmt.Errorf("invalid desktop %d", desktop)
	}
	return c.sendRootMessage(c.Root, "_NET_CURRENT_DESKTOP", uint32(desktop), 0)
}

// SetDesktopCount asks the window manager to change the number of desktops.
// Growing appends desktops at the end; shrinking drops the last ones.
func (c *Connection) SetDesktopCount(count int) error {
	if count < 1 {
		return fmt.Errorf("desktop count must be >= 1, got %d", count)
	}
	return c.sendRootMessage(c.Root, "_NET_NUMBER_OF_DESKTOPS", uint32(count))
}

// AppendDesktop adds one desktop at the end of the desktop list.
func (c *Connection) AppendDesktop() error {
	count, err := c.GetDesktopCount()
	if err != nil {
		return err
	}
	return c.SetDesktopCount(count + 1)
}

// RemoveDesktopAt deletes the desktop at index. EWMH only lets a pager drop
// the last desktop, so every client above index is shifted down one desktop,
// clients on index go to fallback, desktop names are shifted, and then the
// desktop count shrinks by one. fallback is given in the numbering before the
// removal.
func (c *Connection) RemoveDesktopAt(index, fallback int) error {
	count, err := c.GetDesktopCount()
	if err != nil {
		return err
	}
	if count <= 1 {
		return fmt.Errorf("refusing to remove the only desktop")
	}
	if index < 0 || index >= count {
		return fmt.Errorf("desktop %d out of range (count %d)", index, count)
	}

	target := shiftedFallback(index, fallback, count)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return fmt.Errorf("failed to get client list: %w", err)
	}
	for _, win := range clients {
		desktop, err := ewmh.WmDesktopGet(c.XUtil, win)
		if err != nil || desktop == stickyDesktop {
			continue
		}
		switch {
		case int(desktop) == index:
			err = c.SetWindowDesktop(uint32(win), target)
		case int(desktop) > index:
			err = c.SetWindowDesktop(uint32(win), int(desktop)-1)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to relocate window 0x%x: %w", uint32(win), err)
		}
	}

	// Failures below do not stop the removal; they are returned together
	// with the outcome of the count change.
	var errs []error
	if current, err := c.GetCurrentDesktop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to read current desktop: %w", err))
	} else {
		switch {
		case current == index:
			if err := c.SwitchDesktop(target); err != nil {
				errs = append(errs, fmt.Errorf("failed to leave desktop %d: %w", index, err))
			}
		case current > index:
			if err := c.SwitchDesktop(current - 1); err != nil {
				errs = append(errs, fmt.Errorf("failed to follow current desktop %d: %w", current, err))
			}
		}
	}

	if names, err := ewmh.DesktopNamesGet(c.XUtil); err == nil && index < len(names) {
		shifted := append(append([]string{}, names[:index]...), names[index+1:]...)
		if err := ewmh.DesktopNamesSet(c.XUtil, shifted); err != nil {
			errs = append(errs, fmt.Errorf("failed to shift desktop names: %w", err))
		}
	}

	if err := c.SetDesktopCount(count - 1); err != nil {
		return errors.Join(append([]error{err}, errs...)...)
	}
	return errors.Join(errs...)
}

// shiftedFallback translates fallback into the desktop numbering that holds
// once index has been removed, clamped to the surviving range.
func shiftedFallback(index, fallback, count int) int {
	target := fallback
	if target > index {
		target--
	}
	if target < 0 {
		target = 0
	}
	if last := count - 2; target > last {
		target = last
	}
	return target
}

package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display (a RandR CRTC with outputs)
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	// Initialize RandR if not already done
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	// Get screen resources
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor

	// Query each CRTC for active monitors
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		// Get output name
		outputName := fmt.Sprintf("Monitor%d", i)
		if len(crtcInfo.Outputs) > 0 {
			outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
			if err == nil {
				outputName = string(outputInfo.Name)
			}
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}

	return monitors, nil
}

// GetActiveMonitor returns the full bounds of the monitor holding the focused
// window, falling back to the monitor under the pointer and then the first one.
// Panels and docks are not subtracted: the transition overlay covers them too.
func (c *Connection) GetActiveMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}

	if activeWin, err := ewmh.ActiveWindowGet(c.XUtil); err == nil && activeWin != 0 {
		if mon := findMonitorForWindow(c, monitors, activeWin); mon != nil {
			return mon, nil
		}
	}
	if mon := findMonitorForPointer(c, monitors); mon != nil {
		return mon, nil
	}
	return &monitors[0], nil
}

func findMonitorForWindow(c *Connection, monitors []Monitor, windowID xproto.Window) *Monitor {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return nil
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return nil
	}

	winCenterX := int(translate.DstX) + int(geom.Width)/2
	winCenterY := int(translate.DstY) + int(geom.Height)/2

	for i := range monitors {
		mon := &monitors[i]
		if winCenterX >= mon.X && winCenterX < mon.X+mon.Width &&
			winCenterY >= mon.Y && winCenterY < mon.Y+mon.Height {
			return mon
		}
	}
	return nil
}

func findMonitorForPointer(c *Connection, monitors []Monitor) *Monitor {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil
	}

	x := int(pointer.RootX)
	y := int(pointer.RootY)

	for i := range monitors {
		mon := &monitors[i]
		if x >= mon.X && x < mon.X+mon.Width && y >= mon.Y && y < mon.Y+mon.Height {
			return mon
		}
	}
	return nil
}

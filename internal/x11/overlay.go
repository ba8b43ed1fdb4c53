package x11

import (
	"fmt"

	"github.com/1broseidon/spaces/internal/animation"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// gradientStrips is the number of solid bands the gradient is painted with.
const gradientStrips = 64

// OverlayColors are the gradient end points as 0xRRGGBB. A left sweep fades
// From -> To across the screen, a right sweep the reverse.
type OverlayColors struct {
	From uint32
	To   uint32
}

// SweepOverlay is a monitor-sized override-redirect window that slides across
// the active monitor while its opacity follows the sweep envelope.
type SweepOverlay struct {
	conn    *Connection
	window  xproto.Window
	monitor Monitor
	mapped  bool
}

var _ animation.Overlay = (*SweepOverlay)(nil)

// NewOverlayFactory returns an animation.OverlayFactory that builds sweep
// overlays on conn.
func NewOverlayFactory(conn *Connection, colors OverlayColors) animation.OverlayFactory {
	return func(dir animation.Direction) (animation.Overlay, error) {
		return NewSweepOverlay(conn, dir, colors)
	}
}

// NewSweepOverlay creates the overlay window unmapped, with the gradient
// already painted as its background.
func NewSweepOverlay(conn *Connection, dir animation.Direction, colors OverlayColors) (*SweepOverlay, error) {
	mon, err := conn.GetActiveMonitor()
	if err != nil {
		return nil, fmt.Errorf("failed to locate monitor: %w", err)
	}
	if mon.Width <= 0 || mon.Height <= 0 {
		return nil, fmt.Errorf("monitor %s has empty bounds", mon.Name)
	}

	from, to := colors.From, colors.To
	if dir == animation.Right {
		from, to = to, from
	}

	pixmap, err := conn.gradientPixmap(mon.Width, mon.Height, from, to)
	if err != nil {
		return nil, err
	}
	x := conn.XUtil.Conn()
	defer xproto.FreePixmap(x, pixmap)

	wid, err := xproto.NewWindowId(x)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate overlay window: %w", err)
	}

	screen := conn.XUtil.Screen()
	err = xproto.CreateWindowChecked(
		x,
		screen.RootDepth,
		wid,
		conn.Root,
		int16(mon.X-mon.Width), int16(mon.Y),
		uint16(mon.Width), uint16(mon.Height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixmap|xproto.CwOverrideRedirect,
		// Mask bit order: back_pixmap before override_redirect.
		[]uint32{uint32(pixmap), 1},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	o := &SweepOverlay{conn: conn, window: wid, monitor: *mon}
	if err := o.setOpacity(0); err != nil {
		xproto.DestroyWindow(x, wid)
		return nil, err
	}
	return o, nil
}

// Render moves the overlay to the frame's position and applies its opacity.
func (o *SweepOverlay) Render(frame animation.Frame) error {
	if o.window == 0 {
		return fmt.Errorf("overlay already closed")
	}
	if err := o.setOpacity(frame.Alpha); err != nil {
		return err
	}

	x := o.monitor.X + int(frame.Position*float64(o.monitor.Width))
	conn := o.conn.XUtil.Conn()
	err := xproto.ConfigureWindowChecked(
		conn,
		o.window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowStackMode,
		[]uint32{
			uint32(int32(x)),
			uint32(int32(o.monitor.Y)),
			xproto.StackModeAbove,
		},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to move overlay: %w", err)
	}

	if !o.mapped {
		if err := xproto.MapWindowChecked(conn, o.window).Check(); err != nil {
			return fmt.Errorf("failed to map overlay: %w", err)
		}
		o.mapped = true
	}
	return nil
}

// Close destroys the overlay window.
func (o *SweepOverlay) Close() error {
	if o.window == 0 {
		return nil
	}
	err := xproto.DestroyWindowChecked(o.conn.XUtil.Conn(), o.window).Check()
	o.window = 0
	o.mapped = false
	return err
}

func (o *SweepOverlay) setOpacity(alpha uint8) error {
	// _NET_WM_WINDOW_OPACITY spans the full 32-bit range.
	value := uint(alpha) * 0x01010101
	if err := xprop.ChangeProp32(o.conn.XUtil, o.window, "_NET_WM_WINDOW_OPACITY", "CARDINAL", value); err != nil {
		return fmt.Errorf("failed to set overlay opacity: %w", err)
	}
	return nil
}

// gradientPixmap paints a horizontal from -> to gradient in vertical strips.
func (c *Connection) gradientPixmap(width, height int, from, to uint32) (xproto.Pixmap, error) {
	conn := c.XUtil.Conn()
	screen := c.XUtil.Screen()

	pid, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate pixmap: %w", err)
	}
	err = xproto.CreatePixmapChecked(conn, screen.RootDepth, pid, xproto.Drawable(c.Root), uint16(width), uint16(height)).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create pixmap: %w", err)
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		xproto.FreePixmap(conn, pid)
		return 0, fmt.Errorf("failed to allocate gc: %w", err)
	}
	err = xproto.CreateGCChecked(conn, gc, xproto.Drawable(pid),
		xproto.GcForeground|xproto.GcGraphicsExposures,
		[]uint32{from, 0},
	).Check()
	if err != nil {
		xproto.FreePixmap(conn, pid)
		return 0, fmt.Errorf("failed to create gc: %w", err)
	}
	defer xproto.FreeGC(conn, gc)

	for _, strip := range gradientStripsFor(width, gradientStrips, from, to) {
		xproto.ChangeGC(conn, gc, xproto.GcForeground, []uint32{strip.color})
		xproto.PolyFillRectangle(conn, xproto.Drawable(pid), gc, []xproto.Rectangle{{
			X:      int16(strip.x),
			Y:      0,
			Width:  uint16(strip.width),
			Height: uint16(height),
		}})
	}
	return pid, nil
}

type gradientStrip struct {
	x     int
	width int
	color uint32
}

// gradientStripsFor splits width into at most n bands whose colors step
// linearly from -> to.
func gradientStripsFor(width, n int, from, to uint32) []gradientStrip {
	if width <= 0 {
		return nil
	}
	if n > width {
		n = width
	}
	if n < 1 {
		n = 1
	}
	strips := make([]gradientStrip, 0, n)
	for i := 0; i < n; i++ {
		x0 := i * width / n
		x1 := (i + 1) * width / n
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		strips = append(strips, gradientStrip{x: x0, width: x1 - x0, color: lerpColor(from, to, t)})
	}
	return strips
}

func lerpColor(from, to uint32, t float64) uint32 {
	channel := func(shift uint) uint32 {
		a := float64((from >> shift) & 0xff)
		b := float64((to >> shift) & 0xff)
		return uint32(a+(b-a)*t+0.5) & 0xff
	}
	return channel(16)<<16 | channel(8)<<8 | channel(0)
}

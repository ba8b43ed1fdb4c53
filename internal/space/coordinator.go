package space

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/spaces/internal/animation"
	"github.com/1broseidon/spaces/internal/platform"
)

var (
	// ErrInvalidWindow is returned when the target window is null or gone.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrNotInSpace is returned by Exit for a window that has no space.
	ErrNotInSpace = errors.New("window is not in a fullscreen space")
	// ErrAlreadyInSpace is returned by Enter for a window that already has one.
	ErrAlreadyInSpace = errors.New("window is already in a fullscreen space")
)

// Delays are the fixed settle sleeps between window manager requests.
type Delays struct {
	Settle     time.Duration
	Fullscreen time.Duration
	Switch     time.Duration
}

// DefaultDelays returns 50ms settle, 100ms around the fullscreen toggle and
// 150ms after a desktop switch.
func DefaultDelays() Delays {
	return Delays{
		Settle:     50 * time.Millisecond,
		Fullscreen: 100 * time.Millisecond,
		Switch:     150 * time.Millisecond,
	}
}

// Animator plays a switch sweep, running action exactly once before returning.
type Animator interface {
	Play(dir animation.Direction, action func()) animation.Outcome
}

// Providers are the window-system collaborators the coordinator drives.
type Providers struct {
	Desktops   platform.Desktops
	Windows    platform.Windows
	Fullscreen platform.FullscreenToggler
	// Watcher is optional.
	Watcher platform.WindowWatcher
}

// Coordinator runs enter, exit, close reconciliation and animated switches
// against a Registry. It must be driven from a single goroutine.
type Coordinator struct {
	desktops   platform.Desktops
	windows    platform.Windows
	fullscreen platform.FullscreenToggler
	watcher    platform.WindowWatcher
	animator   Animator

	registry *Registry
	delays   Delays
	logger   *slog.Logger

	sleep func(time.Duration)
	newOp func() string
}

// NewCoordinator creates a coordinator with an empty registry. A nil animator
// switches desktops without a sweep.
func NewCoordinator(p Providers, animator Animator, delays Delays, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		desktops:   p.Desktops,
		windows:    p.Windows,
		fullscreen: p.Fullscreen,
		watcher:    p.Watcher,
		animator:   animator,
		registry:   NewRegistry(),
		delays:     delays,
		logger:     logger,
		sleep:      time.Sleep,
		newOp:      shortOpID,
	}
}

func shortOpID() string {
	return uuid.NewString()[:8]
}

// Registry returns the registry owned by the coordinator.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// SetDelays replaces the settle delays.
func (c *Coordinator) SetDelays(d Delays) {
	c.delays = d
}

// Delays returns the settle delays in effect.
func (c *Coordinator) Delays() Delays {
	return c.delays
}

func (c *Coordinator) op(name string, window platform.WindowID) *slog.Logger {
	l := c.logger.With("op", name, "op_id", c.newOp())
	if window != 0 {
		l = l.With("window", window.String())
	}
	return l
}

// Toggle enters a fullscreen space for the active window, or exits it when the
// active window already has one. An invalid active window is skipped.
func (c *Coordinator) Toggle() error {
	window, err := c.windows.ActiveWindow()
	if err != nil {
		return fmt.Errorf("failed to get active window: %w", err)
	}
	if !c.windows.IsValid(window) {
		c.logger.Debug("toggle skipped: no valid active window", "window", window.String())
		return ErrInvalidWindow
	}
	if c.registry.IsFullscreenSpace(window) {
		return c.Exit(window)
	}
	return c.Enter(window)
}

// Enter moves window onto a new desktop of its own, maximized and in native
// fullscreen. Only the initial current-desktop and desktop-count queries can
// abort it; later failures are logged and the sequence continues.
func (c *Coordinator) Enter(window platform.WindowID) error {
	if !c.windows.IsValid(window) {
		return ErrInvalidWindow
	}
	if c.registry.IsFullscreenSpace(window) {
		return ErrAlreadyInSpace
	}
	log := c.op("enter", window)

	original, err := c.desktops.CurrentDesktop()
	if err != nil {
		return fmt.Errorf("failed to read current desktop: %w", err)
	}

	if c.windows.IsMaximized(window) {
		if err := c.windows.Restore(window); err != nil {
			log.Warn("restore before enter failed", "error", err)
		}
		c.sleep(c.delays.Settle)
	}

	count, err := c.desktops.DesktopCount()
	if err != nil {
		return fmt.Errorf("failed to read desktop count: %w", err)
	}
	created := count

	if err := c.desktops.CreateDesktop(); err != nil {
		log.Warn("create desktop failed", "error", err)
	}
	c.sleep(c.delays.Settle)

	if after, err := c.desktops.DesktopCount(); err == nil && after != count+1 {
		log.Warn("desktop count did not grow by one, space index may be wrong",
			"before", count, "after", after, "created", created)
	}

	if err := c.desktops.MoveWindowTo(window, created); err != nil {
		log.Warn("move window failed", "desktop", created, "error", err)
	}
	c.sleep(c.delays.Settle)

	if err := c.desktops.SwitchTo(created); err != nil {
		log.Warn("switch desktop failed", "desktop", created, "error", err)
	}
	c.sleep(c.delays.Switch)

	if c.windows.IsValid(window) {
		if err := c.windows.Maximize(window); err != nil {
			log.Warn("maximize failed", "error", err)
		}
	}
	c.sleep(c.delays.Fullscreen)
	if err := c.fullscreen.ToggleNativeFullscreen(window); err != nil {
		log.Warn("native fullscreen toggle failed", "error", err)
	}

	c.registry.Register(window, original, created)
	if c.watcher != nil {
		if err := c.watcher.Watch(window); err != nil {
			log.Warn("watching window failed, close will be caught by reconciliation", "error", err)
		}
	}

	log.Info("entered fullscreen space", "original", original, "created", created)
	return nil
}

// Exit returns window to its original desktop and removes its space. A window
// that disappeared meanwhile is handled like a close.
func (c *Coordinator) Exit(window platform.WindowID) error {
	rec, ok := c.registry.Get(window)
	if !ok {
		return ErrNotInSpace
	}
	if !c.windows.IsValid(window) {
		return c.HandleWindowClosed(window)
	}
	log := c.op("exit", window)

	if err := c.fullscreen.ToggleNativeFullscreen(window); err != nil {
		log.Warn("native fullscreen toggle failed", "error", err)
	}
	c.sleep(c.delays.Fullscreen)

	if c.windows.IsValid(window) {
		if err := c.windows.Restore(window); err != nil {
			log.Warn("restore failed", "error", err)
		}
	} else {
		log.Debug("window gone before restore, skipping")
	}
	c.sleep(c.delays.Settle)

	if err := c.desktops.MoveWindowTo(window, rec.OriginalDesktop); err != nil {
		log.Warn("move window back failed", "desktop", rec.OriginalDesktop, "error", err)
	}
	c.sleep(c.delays.Settle)

	if err := c.desktops.SwitchTo(rec.OriginalDesktop); err != nil {
		log.Warn("switch back failed", "desktop", rec.OriginalDesktop, "error", err)
	}
	c.sleep(c.delays.Switch)

	c.removeSpaceDesktop(log, rec.CreatedDesktop)
	c.registry.Remove(window)
	if c.watcher != nil {
		c.watcher.Unwatch(window)
	}

	log.Info("exited fullscreen space", "original", rec.OriginalDesktop, "created", rec.CreatedDesktop)
	return nil
}

// HandleWindowClosed cleans up after a tracked window that was destroyed. It
// never touches the window itself. Untracked windows are ignored.
func (c *Coordinator) HandleWindowClosed(window platform.WindowID) error {
	rec, ok := c.registry.Get(window)
	if !ok {
		return nil
	}
	log := c.op("close", window)
	fallback := fallbackDesktop(rec.CreatedDesktop)

	if current, err := c.desktops.CurrentDesktop(); err != nil {
		log.Warn("failed to read current desktop", "error", err)
	} else if current == rec.CreatedDesktop {
		if err := c.desktops.SwitchTo(fallback); err != nil {
			log.Warn("switch away failed", "desktop", fallback, "error", err)
		}
		c.sleep(c.delays.Switch)
	}

	c.removeSpaceDesktop(log, rec.CreatedDesktop)
	c.registry.Remove(window)
	if c.watcher != nil {
		c.watcher.Unwatch(window)
	}

	log.Info("fullscreen space closed with its window", "created", rec.CreatedDesktop)
	return nil
}

// removeSpaceDesktop deletes created when another desktop remains and
// renumbers the registry once the removal went through.
func (c *Coordinator) removeSpaceDesktop(log *slog.Logger, created int) {
	count, err := c.desktops.DesktopCount()
	if err != nil {
		log.Warn("failed to read desktop count, keeping desktop", "desktop", created, "error", err)
		return
	}
	if count <= 1 {
		return
	}
	c.removeDesktop(log, created, count)
}

// removeDesktop removes index out of count desktops. The registry is renumbered
// whenever the desktop is really gone, even if the removal reported errors.
func (c *Coordinator) removeDesktop(log *slog.Logger, index, count int) bool {
	err := c.desktops.RemoveDesktop(index, fallbackDesktop(index))
	if err != nil {
		after, cerr := c.desktops.DesktopCount()
		if cerr != nil || after != count-1 {
			log.Warn("remove desktop failed", "desktop", index, "error", err)
			return false
		}
		log.Warn("desktop removed with errors", "desktop", index, "error", err)
	}
	c.registry.UpdateIndicesAfterDelete(index)
	return true
}

func fallbackDesktop(created int) int {
	return max(created-1, 0)
}

// CanSwitchLeft reports whether a desktop exists left of the current one.
func (c *Coordinator) CanSwitchLeft() bool {
	current, err := c.desktops.CurrentDesktop()
	return err == nil && current > 0
}

// CanSwitchRight reports whether a desktop exists right of the current one.
func (c *Coordinator) CanSwitchRight() bool {
	current, err := c.desktops.CurrentDesktop()
	if err != nil {
		return false
	}
	count, err := c.desktops.DesktopCount()
	return err == nil && current < count-1
}

// SwitchLeft shows the previous desktop behind a sweep. At the first desktop
// nothing happens and false is returned.
func (c *Coordinator) SwitchLeft() bool {
	return c.switchBy(animation.Left, -1)
}

// SwitchRight shows the next desktop behind a sweep. At the last desktop
// nothing happens and false is returned.
func (c *Coordinator) SwitchRight() bool {
	return c.switchBy(animation.Right, 1)
}

func (c *Coordinator) switchBy(dir animation.Direction, delta int) bool {
	current, err := c.desktops.CurrentDesktop()
	if err != nil {
		c.logger.Warn("switch skipped: failed to read current desktop", "direction", dir.String(), "error", err)
		return false
	}
	count, err := c.desktops.DesktopCount()
	if err != nil {
		c.logger.Warn("switch skipped: failed to read desktop count", "direction", dir.String(), "error", err)
		return false
	}
	target := current + delta
	if target < 0 || target >= count {
		c.logger.Debug("switch at boundary ignored", "direction", dir.String(), "current", current, "count", count)
		return false
	}

	doSwitch := func() {
		if err := c.desktops.SwitchTo(target); err != nil {
			c.logger.Warn("desktop switch failed", "desktop", target, "error", err)
		}
	}
	if c.animator == nil {
		doSwitch()
	} else {
		c.animator.Play(dir, doSwitch)
	}
	c.logger.Debug("switched desktop", "direction", dir.String(), "from", current, "to", target)
	return true
}

// ExitAll exits every space, highest created desktop first so that earlier
// removals never renumber a space still waiting.
func (c *Coordinator) ExitAll() int {
	records := c.registry.Records()
	n := 0
	for i := len(records) - 1; i >= 0; i-- {
		if err := c.Exit(records[i].Window); err != nil && !errors.Is(err, ErrNotInSpace) {
			c.logger.Warn("exit failed", "window", records[i].Window.String(), "error", err)
			continue
		}
		n++
	}
	return n
}

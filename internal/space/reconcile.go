package space

import (
	"sort"

	"github.com/1broseidon/spaces/internal/platform"
)

// ReconcileResult counts what a reconciliation pass changed.
type ReconcileResult struct {
	Closed    int
	Relocated int
	// Released counts spaces dropped because their window was moved onto a
	// desktop it does not have to itself.
	Released int
	Clamped  int
}

// Changed reports whether the pass touched the registry.
func (r ReconcileResult) Changed() bool {
	return r.Closed+r.Relocated+r.Released+r.Clamped > 0
}

// Reconcile brings the registry back in line with the window manager. Spaces
// whose window is gone are closed. A window found on another desktop than
// recorded keeps its space only if it is alone there; otherwise the space is
// released and no desktop is touched. Original desktops past the end are
// clamped.
func (c *Coordinator) Reconcile() ReconcileResult {
	var res ReconcileResult
	if c.registry.IsEmpty() {
		return res
	}

	clients, err := c.windows.ClientWindows()
	if err != nil {
		c.logger.Warn("reconcile skipped: failed to list client windows", "error", err)
		return res
	}
	alive := make(map[platform.WindowID]bool, len(clients))
	for _, w := range clients {
		alive[w] = true
	}

	for _, rec := range c.registry.Records() {
		if alive[rec.Window] && c.windows.IsValid(rec.Window) {
			continue
		}
		c.logger.Info("tracked window vanished", "window", rec.Window.String(), "created", rec.CreatedDesktop)
		// Earlier closes renumber later records, so only the window is reused.
		if err := c.HandleWindowClosed(rec.Window); err == nil {
			res.Closed++
		}
	}

	for _, rec := range c.registry.Records() {
		actual, err := c.desktops.WindowDesktop(rec.Window)
		if err != nil || actual < 0 || actual == rec.CreatedDesktop {
			continue
		}
		if !c.exclusiveDesktop(rec.Window, actual, clients) {
			c.release(rec.Window)
			c.logger.Info("space left by hand, desktops kept", "window", rec.Window.String(), "created", rec.CreatedDesktop, "now", actual)
			res.Released++
			continue
		}
		if c.registry.Relocate(rec.Window, actual) {
			c.logger.Info("space moved out of band", "window", rec.Window.String(), "from", rec.CreatedDesktop, "to", actual)
			res.Relocated++
		}
	}

	if count, err := c.desktops.DesktopCount(); err == nil {
		res.Clamped = c.registry.ClampOriginals(count)
	}

	if res.Changed() {
		c.logger.Debug("reconciled registry", "closed", res.Closed, "relocated", res.Relocated, "released", res.Released, "clamped", res.Clamped)
	}
	return res
}

// exclusiveDesktop reports whether window is the only client on desktop and no
// other space claims it.
func (c *Coordinator) exclusiveDesktop(window platform.WindowID, desktop int, clients []platform.WindowID) bool {
	if owner, ok := c.registry.OwnerOf(desktop); ok && owner != window {
		return false
	}
	for _, w := range clients {
		if w == window {
			continue
		}
		if d, err := c.desktops.WindowDesktop(w); err == nil && d == desktop {
			return false
		}
	}
	return true
}

// release forgets the space of window without touching any desktop.
func (c *Coordinator) release(window platform.WindowID) {
	c.registry.Remove(window)
	if c.watcher != nil {
		c.watcher.Unwatch(window)
	}
}

// Restore re-adopts records saved by a previous run. A space whose window is
// still alive is registered again on the desktop the window is actually on,
// provided the window is alone there and no adopted space claims it; otherwise
// it is skipped and its desktops are left alone. For dead windows the dedicated
// desktop is removed when it still exists and holds no window. It returns the
// number of adopted spaces.
func (c *Coordinator) Restore(records []Record) int {
	if len(records) == 0 {
		return 0
	}

	clients, err := c.windows.ClientWindows()
	if err != nil {
		c.logger.Warn("restore skipped: failed to list client windows", "error", err)
		return 0
	}
	alive := make(map[platform.WindowID]bool, len(clients))
	for _, w := range clients {
		alive[w] = true
	}

	var dead []Record
	adopted := 0
	for _, rec := range records {
		if !alive[rec.Window] || !c.windows.IsValid(rec.Window) {
			dead = append(dead, rec)
			continue
		}
		created := rec.CreatedDesktop
		if actual, err := c.desktops.WindowDesktop(rec.Window); err == nil && actual >= 0 {
			created = actual
		}
		if !c.exclusiveDesktop(rec.Window, created, clients) {
			c.logger.Info("saved space shares its desktop, not restoring", "window", rec.Window.String(), "desktop", created)
			continue
		}
		c.registry.Register(rec.Window, rec.OriginalDesktop, created)
		if c.watcher != nil {
			if err := c.watcher.Watch(rec.Window); err != nil {
				c.logger.Warn("watching restored window failed", "window", rec.Window.String(), "error", err)
			}
		}
		adopted++
		c.logger.Info("restored fullscreen space", "window", rec.Window.String(), "original", rec.OriginalDesktop, "created", created)
	}

	// Highest first so each removal leaves the lower indices intact.
	sort.Slice(dead, func(i, j int) bool { return dead[i].CreatedDesktop > dead[j].CreatedDesktop })
	for _, rec := range dead {
		c.removeOrphanDesktop(rec, clients)
	}
	return adopted
}

func (c *Coordinator) removeOrphanDesktop(rec Record, clients []platform.WindowID) {
	log := c.logger.With("window", rec.Window.String(), "created", rec.CreatedDesktop)

	count, err := c.desktops.DesktopCount()
	if err != nil || count <= 1 || rec.CreatedDesktop >= count {
		log.Debug("orphan desktop no longer present")
		return
	}
	if _, owned := c.registry.OwnerOf(rec.CreatedDesktop); owned {
		log.Debug("orphan desktop owned by a live space, keeping it")
		return
	}
	for _, w := range clients {
		if d, err := c.desktops.WindowDesktop(w); err == nil && d == rec.CreatedDesktop {
			log.Debug("orphan desktop still has windows, keeping it")
			return
		}
	}

	if current, err := c.desktops.CurrentDesktop(); err == nil && current == rec.CreatedDesktop {
		if err := c.desktops.SwitchTo(fallbackDesktop(rec.CreatedDesktop)); err != nil {
			log.Warn("switch away from orphan desktop failed", "error", err)
		}
		c.sleep(c.delays.Switch)
	}
	if c.removeDesktop(log, rec.CreatedDesktop, count) {
		log.Info("removed desktop left by a closed space")
	}
}

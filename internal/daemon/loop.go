package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/1broseidon/spaces/internal/animation"
	"github.com/1broseidon/spaces/internal/config"
	"github.com/1broseidon/spaces/internal/events"
	"github.com/1broseidon/spaces/internal/ipc"
	"github.com/1broseidon/spaces/internal/platform"
	"github.com/1broseidon/spaces/internal/space"
)

// Titler resolves a human readable title for a window.
type Titler interface {
	WindowTitle(windowID platform.WindowID) string
}

// DisplayLocator reports the display the user is working on.
type DisplayLocator interface {
	ActiveDisplay() (platform.Display, error)
}

// Options wires a Loop to its collaborators. Queue, Coordinator and Desktops
// are required.
type Options struct {
	Queue       *events.Queue
	Coordinator *space.Coordinator
	Desktops    platform.Desktops
	Titles      Titler
	Displays    DisplayLocator
	Scheduler   *animation.Scheduler
	Store       *space.Store

	RestoreOnExit bool
	// LoadConfig reads and validates the configuration for Reload.
	LoadConfig func() (*config.Config, error)
	// Rebind re-installs hotkeys after a reload. It runs on the loop goroutine.
	Rebind func(cfg *config.Config) error

	Logger *slog.Logger
}

// Snapshot is the state published after every processed event.
type Snapshot struct {
	Spaces         []ipc.SpaceInfo
	DesktopCount   int
	CurrentDesktop int
	// Display is "name WxH" of the active display, empty when unknown.
	Display   string
	Processed uint64
	UpdatedAt time.Time
}

// Loop is the single goroutine that owns the space registry. Every mutation
// arrives as an event; readers only see published snapshots.
type Loop struct {
	queue     *events.Queue
	coord     *space.Coordinator
	desktops  platform.Desktops
	titles    Titler
	displays  DisplayLocator
	scheduler *animation.Scheduler
	store     *space.Store
	logger    *slog.Logger

	loadConfig func() (*config.Config, error)
	rebind     func(cfg *config.Config) error
	reloads    chan *config.Config

	restoreOnExit bool
	processed     uint64
	persisted     []space.Record

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewLoop creates a loop; Run starts it.
func NewLoop(opts Options) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:         opts.Queue,
		coord:         opts.Coordinator,
		desktops:      opts.Desktops,
		titles:        opts.Titles,
		displays:      opts.Displays,
		scheduler:     opts.Scheduler,
		store:         opts.Store,
		logger:        logger.With("component", "loop"),
		loadConfig:    opts.LoadConfig,
		rebind:        opts.Rebind,
		reloads:       make(chan *config.Config, 1),
		restoreOnExit: opts.RestoreOnExit,
	}
}

// Run restores persisted spaces, then processes events until ctx is done or
// the queue is closed.
func (l *Loop) Run(ctx context.Context) {
	l.restore()
	l.publish()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case cfg := <-l.reloads:
			l.apply(cfg)
		case ev, ok := <-l.queue.Events():
			if !ok {
				l.shutdown()
				return
			}
			l.dispatch(ev)
			l.processed++
			l.persist()
			l.publish()
		}
	}
}

func (l *Loop) restore() {
	if l.store == nil {
		return
	}
	records, err := l.store.Load()
	if err != nil {
		l.logger.Warn("failed to load saved spaces", "path", l.store.Path(), "error", err)
		return
	}
	if len(records) == 0 {
		return
	}
	adopted := l.coord.Restore(records)
	l.logger.Info("restored saved spaces", "saved", len(records), "adopted", adopted)
	l.persist()
}

// dispatch runs one event. A panic is logged and the loop keeps going.
func (l *Loop) dispatch(ev events.Event) {
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("event handler panic recovered", "event", ev.String(), "error", err)
		}
	}()

	l.logger.Debug("event", "event", ev.String())

	switch ev.Kind {
	case events.SwitchLeft:
		l.coord.SwitchLeft()
	case events.SwitchRight:
		l.coord.SwitchRight()
	case events.ToggleFullscreen:
		if err := l.coord.Toggle(); err != nil && !errors.Is(err, space.ErrInvalidWindow) {
			l.logger.Warn("toggle failed", "error", err)
		}
	case events.WindowDestroyed:
		if err := l.coord.HandleWindowClosed(ev.Window); err != nil {
			l.logger.Warn("close handling failed", "window", ev.Window.String(), "error", err)
		}
	case events.Reconcile:
		if res := l.coord.Reconcile(); res.Changed() {
			l.logger.Info("reconciled", "closed", res.Closed, "relocated", res.Relocated, "released", res.Released, "clamped", res.Clamped)
		}
	case events.ExitAll:
		n := l.coord.ExitAll()
		l.logger.Info("exited all spaces", "count", n)
	default:
		l.logger.Warn("unknown event", "event", ev.String())
	}
}

func (l *Loop) shutdown() {
	if l.restoreOnExit && !l.coord.Registry().IsEmpty() {
		n := l.coord.ExitAll()
		l.logger.Info("exited spaces on shutdown", "count", n)
	}
	l.persist()
	l.publish()
	l.logger.Info("control loop stopped", "processed", l.processed)
}

// persist saves the registry when it differs from what was last written.
func (l *Loop) persist() {
	if l.store == nil {
		return
	}
	records := l.coord.Registry().Records()
	if l.persisted != nil && slices.Equal(records, l.persisted) {
		return
	}
	if len(records) == 0 {
		if err := l.store.Clear(); err != nil {
			l.logger.Warn("failed to clear saved spaces", "error", err)
			return
		}
	} else if err := l.store.Save(records); err != nil {
		l.logger.Warn("failed to save spaces", "path", l.store.Path(), "error", err)
		return
	}
	l.persisted = records
}

func (l *Loop) publish() {
	snap := Snapshot{
		Processed:      l.processed,
		UpdatedAt:      time.Now(),
		DesktopCount:   -1,
		CurrentDesktop: -1,
	}
	if n, err := l.desktops.DesktopCount(); err == nil {
		snap.DesktopCount = n
	}
	if cur, err := l.desktops.CurrentDesktop(); err == nil {
		snap.CurrentDesktop = cur
	}
	if l.displays != nil {
		if d, err := l.displays.ActiveDisplay(); err == nil {
			snap.Display = fmt.Sprintf("%s %dx%d", d.Name, d.Bounds.Width, d.Bounds.Height)
		}
	}
	for _, rec := range l.coord.Registry().Records() {
		info := ipc.SpaceInfo{
			Window:          uint32(rec.Window),
			OriginalDesktop: rec.OriginalDesktop,
			CreatedDesktop:  rec.CreatedDesktop,
		}
		if l.titles != nil {
			info.Title = l.titles.WindowTitle(rec.Window)
		}
		snap.Spaces = append(snap.Spaces, info)
	}

	l.mu.Lock()
	l.snapshot = snap
	l.mu.Unlock()
}

func (l *Loop) apply(cfg *config.Config) {
	l.coord.SetDelays(DelaysFromConfig(cfg))
	if l.scheduler != nil {
		l.scheduler.SetConfig(AnimationFromConfig(cfg))
	}
	l.restoreOnExit = cfg.RestoreOnExit
	if l.rebind != nil {
		if err := l.rebind(cfg); err != nil {
			l.logger.Error("failed to rebind hotkeys", "error", err)
		}
	}
	l.logger.Info("configuration applied")
}

// Snapshot returns the last published state.
func (l *Loop) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := l.snapshot
	snap.Spaces = slices.Clone(l.snapshot.Spaces)
	return snap
}

// Post forwards ev to the event queue.
func (l *Loop) Post(ev events.Event) bool {
	return l.queue.Post(ev)
}

// Status implements ipc.Daemon.
func (l *Loop) Status() ipc.StatusData {
	snap := l.Snapshot()
	return ipc.StatusData{
		SpaceCount:      len(snap.Spaces),
		DesktopCount:    snap.DesktopCount,
		CurrentDesktop:  snap.CurrentDesktop,
		Display:         snap.Display,
		EventsProcessed: snap.Processed,
		QueueDepth:      l.queue.Len(),
	}
}

// Spaces implements ipc.Daemon.
func (l *Loop) Spaces() ipc.SpacesData {
	spaces := l.Snapshot().Spaces
	if spaces == nil {
		spaces = []ipc.SpaceInfo{}
	}
	return ipc.SpacesData{Spaces: spaces}
}

// Desktops implements ipc.Daemon from the last snapshot.
func (l *Loop) Desktops() (ipc.DesktopsData, error) {
	snap := l.Snapshot()
	if snap.DesktopCount < 0 {
		return ipc.DesktopsData{}, fmt.Errorf("desktop count unavailable")
	}
	owners := make(map[int]uint32, len(snap.Spaces))
	for _, s := range snap.Spaces {
		owners[s.CreatedDesktop] = s.Window
	}
	data := ipc.DesktopsData{
		Count:          snap.DesktopCount,
		Current:        snap.CurrentDesktop,
		CanSwitchLeft:  snap.CurrentDesktop > 0,
		CanSwitchRight: snap.CurrentDesktop >= 0 && snap.CurrentDesktop < snap.DesktopCount-1,
		Desktops:       make([]ipc.DesktopInfo, 0, snap.DesktopCount),
	}
	for i := 0; i < snap.DesktopCount; i++ {
		data.Desktops = append(data.Desktops, ipc.DesktopInfo{
			Index:   i,
			Current: i == snap.CurrentDesktop,
			Owner:   owners[i],
		})
	}
	return data, nil
}

// Reload re-reads the configuration and hands it to the loop. Validation
// errors are returned to the caller and nothing changes.
func (l *Loop) Reload() error {
	if l.loadConfig == nil {
		return fmt.Errorf("reload not supported")
	}
	cfg, err := l.loadConfig()
	if err != nil {
		return err
	}
	// Newer config replaces one still waiting.
	select {
	case <-l.reloads:
	default:
	}
	select {
	case l.reloads <- cfg:
	default:
	}
	return nil
}

// DelaysFromConfig converts the delay section.
func DelaysFromConfig(cfg *config.Config) space.Delays {
	return space.Delays{
		Settle:     cfg.Delays.Settle(),
		Fullscreen: cfg.Delays.Fullscreen(),
		Switch:     cfg.Delays.Switch(),
	}
}

// AnimationFromConfig converts the animation section.
func AnimationFromConfig(cfg *config.Config) animation.Config {
	return animation.Config{
		Enabled:         cfg.Animation.Enabled,
		Duration:        cfg.Animation.Duration(),
		TriggerFraction: cfg.Animation.TriggerFraction(),
		FrameInterval:   cfg.Animation.FrameInterval(),
		MaxAlpha:        uint8(cfg.Animation.MaxAlpha),
	}
}

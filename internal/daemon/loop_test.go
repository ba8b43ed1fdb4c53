package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/spaces/internal/animation"
	"github.com/1broseidon/spaces/internal/config"
	"github.com/1broseidon/spaces/internal/events"
	"github.com/1broseidon/spaces/internal/platform"
	"github.com/1broseidon/spaces/internal/platform/platformtest"
	"github.com/1broseidon/spaces/internal/space"
)

const (
	w1 platform.WindowID = 0x1000001
	w2 platform.WindowID = 0x1000002
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	fake  *platformtest.Backend
	queue *events.Queue
	coord *space.Coordinator
	store *space.Store
	loop  *Loop
}

func newHarness(t *testing.T, fake *platformtest.Backend, mutate func(*Options)) *harness {
	t.Helper()
	logger := quietLogger()
	queue := events.NewQueue(16, logger)
	coord := space.NewCoordinator(space.Providers{
		Desktops:   fake,
		Windows:    fake,
		Fullscreen: fake,
		Watcher:    fake,
	}, nil, space.Delays{}, logger)
	store := space.NewStore(filepath.Join(t.TempDir(), "spaces-registry.json"))
	opts := Options{
		Queue:       queue,
		Coordinator: coord,
		Desktops:    fake,
		Titles:      fake,
		Displays:    fake,
		Store:       store,
		Logger:      logger,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &harness{fake: fake, queue: queue, coord: coord, store: store, loop: NewLoop(opts)}
}

// start runs the loop until the returned stop function is called.
func (h *harness) start(t *testing.T) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.loop.Run(ctx)
		close(done)
	}()
	stopped := false
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not stop")
		}
	}
	t.Cleanup(stop)
	return stop
}

func (h *harness) waitProcessed(t *testing.T, n uint64) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := h.loop.Snapshot()
		if snap.Processed >= n {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("loop processed fewer than %d events", n)
	return Snapshot{}
}

func TestLoop_TogglePublishesAndPersists(t *testing.T) {
	fake := platformtest.New(2)
	fake.AddWindow(w1, 0).Title = "video"
	fake.Active = w1
	h := newHarness(t, fake, nil)
	h.start(t)

	if !h.loop.Post(events.Event{Kind: events.ToggleFullscreen}) {
		t.Fatal("post rejected")
	}
	snap := h.waitProcessed(t, 1)

	if len(snap.Spaces) != 1 {
		t.Fatalf("expected 1 space, got %+v", snap.Spaces)
	}
	got := snap.Spaces[0]
	if got.Window != uint32(w1) || got.Title != "video" || got.OriginalDesktop != 0 || got.CreatedDesktop != 2 {
		t.Fatalf("unexpected space: %+v", got)
	}
	if snap.DesktopCount != 3 || snap.CurrentDesktop != 2 {
		t.Fatalf("snapshot desktops = %d/%d, want 3/2", snap.DesktopCount, snap.CurrentDesktop)
	}

	desktops, err := h.loop.Desktops()
	if err != nil {
		t.Fatalf("Desktops: %v", err)
	}
	if desktops.Count != 3 || desktops.Desktops[2].Owner != uint32(w1) || desktops.Desktops[0].Owner != 0 {
		t.Fatalf("unexpected desktops: %+v", desktops)
	}
	if !desktops.CanSwitchLeft || desktops.CanSwitchRight {
		t.Fatalf("unexpected switch flags: %+v", desktops)
	}

	status := h.loop.Status()
	if status.SpaceCount != 1 || status.EventsProcessed != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Display != "fake 1920x1080" {
		t.Fatalf("display = %q", status.Display)
	}

	saved, err := h.store.Load()
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	if len(saved) != 1 || saved[0].Window != w1 || saved[0].CreatedDesktop != 2 {
		t.Fatalf("unexpected saved records: %+v", saved)
	}
}

func TestLoop_WindowDestroyedClearsStore(t *testing.T) {
	fake := platformtest.New(2)
	fake.AddWindow(w1, 0)
	fake.Active = w1
	h := newHarness(t, fake, nil)
	h.start(t)

	h.loop.Post(events.Event{Kind: events.ToggleFullscreen})
	h.waitProcessed(t, 1)

	fake.DestroyWindow(w1)
	h.loop.Post(events.Event{Kind: events.WindowDestroyed, Window: w1})
	snap := h.waitProcessed(t, 2)

	if len(snap.Spaces) != 0 {
		t.Fatalf("expected no spaces, got %+v", snap.Spaces)
	}
	if snap.DesktopCount != 2 || snap.CurrentDesktop != 1 {
		t.Fatalf("snapshot desktops = %d/%d, want 2/1", snap.DesktopCount, snap.CurrentDesktop)
	}
	saved, err := h.store.Load()
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	if saved != nil {
		t.Fatalf("expected store cleared, got %+v", saved)
	}
}

func TestLoop_SwitchAndExitAll(t *testing.T) {
	fake := platformtest.New(3)
	fake.AddWindow(w1, 0)
	fake.AddWindow(w2, 1)
	h := newHarness(t, fake, nil)
	h.start(t)

	fake.Active = w1
	h.loop.Post(events.Event{Kind: events.ToggleFullscreen})
	h.waitProcessed(t, 1)

	h.loop.Post(events.Event{Kind: events.SwitchLeft})
	h.loop.Post(events.Event{Kind: events.SwitchLeft})
	snap := h.waitProcessed(t, 3)
	if snap.CurrentDesktop != 1 {
		t.Fatalf("current = %d, want 1", snap.CurrentDesktop)
	}

	h.loop.Post(events.Event{Kind: events.ExitAll})
	snap = h.waitProcessed(t, 4)
	if len(snap.Spaces) != 0 || snap.DesktopCount != 3 || snap.CurrentDesktop != 0 {
		t.Fatalf("unexpected snapshot after exit all: %+v", snap)
	}
}

func TestLoop_ReconcileEvent(t *testing.T) {
	fake := platformtest.New(2)
	fake.AddWindow(w1, 0)
	fake.Active = w1
	h := newHarness(t, fake, nil)
	h.start(t)

	h.loop.Post(events.Event{Kind: events.ToggleFullscreen})
	h.waitProcessed(t, 1)

	// Destroyed without a notification.
	fake.DestroyWindow(w1)
	h.loop.Post(events.Event{Kind: events.Reconcile})
	snap := h.waitProcessed(t, 2)
	if len(snap.Spaces) != 0 || snap.DesktopCount != 2 {
		t.Fatalf("unexpected snapshot after reconcile: %+v", snap)
	}
}

func TestLoop_RestoreOnExit(t *testing.T) {
	fake := platformtest.New(2)
	fake.AddWindow(w1, 0)
	fake.Active = w1
	h := newHarness(t, fake, func(o *Options) { o.RestoreOnExit = true })
	stop := h.start(t)

	h.loop.Post(events.Event{Kind: events.ToggleFullscreen})
	h.waitProcessed(t, 1)
	stop()

	if n, _ := fake.DesktopCount(); n != 2 {
		t.Fatalf("desktop count = %d, want 2", n)
	}
	w, _ := fake.Window(w1)
	if w.Desktop != 0 || w.Fullscreen || w.Maximized {
		t.Fatalf("window not restored: %+v", w)
	}
	if saved, _ := h.store.Load(); saved != nil {
		t.Fatalf("expected empty store, got %+v", saved)
	}
}

func TestLoop_KeepsSpacesOnExitByDefault(t *testing.T) {
	fake := platformtest.New(2)
	fake.AddWindow(w1, 0)
	fake.Active = w1
	h := newHarness(t, fake, nil)
	stop := h.start(t)

	h.loop.Post(events.Event{Kind: events.ToggleFullscreen})
	h.waitProcessed(t, 1)
	stop()

	if n, _ := fake.DesktopCount(); n != 3 {
		t.Fatalf("desktop count = %d, want 3", n)
	}
	saved, err := h.store.Load()
	if err != nil || len(saved) != 1 {
		t.Fatalf("expected saved space, got %+v, %v", saved, err)
	}
}

func TestLoop_RestoresSavedSpaces(t *testing.T) {
	fake := platformtest.New(4)
	fake.AddWindow(w1, 2)
	h := newHarness(t, fake, nil)
	saved := []space.Record{
		{Window: w1, OriginalDesktop: 0, CreatedDesktop: 2},
		{Window: w2, OriginalDesktop: 1, CreatedDesktop: 3},
	}
	if err := h.store.Save(saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	h.start(t)

	// Restore runs before the first publish.
	deadline := time.Now().Add(2 * time.Second)
	var snap Snapshot
	for time.Now().Before(deadline) {
		if snap = h.loop.Snapshot(); !snap.UpdatedAt.IsZero() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if len(snap.Spaces) != 1 || snap.Spaces[0].Window != uint32(w1) {
		t.Fatalf("expected w1 restored, got %+v", snap.Spaces)
	}
	if snap.DesktopCount != 3 {
		t.Fatalf("expected orphan desktop removed, count = %d", snap.DesktopCount)
	}
	records, err := h.store.Load()
	if err != nil || len(records) != 1 {
		t.Fatalf("expected store rewritten with one record, got %+v, %v", records, err)
	}
}

func TestLoop_ReloadAppliesConfig(t *testing.T) {
	fake := platformtest.New(2)
	rebound := make(chan *config.Config, 1)
	scheduler := animation.NewScheduler(animation.DefaultConfig(), nil, quietLogger())

	cfg := config.DefaultConfig()
	cfg.Delays.SwitchMS = 7
	cfg.Animation.DurationMS = 300
	h := newHarness(t, fake, func(o *Options) {
		o.Scheduler = scheduler
		o.LoadConfig = func() (*config.Config, error) { return cfg, nil }
		o.Rebind = func(c *config.Config) error {
			rebound <- c
			return nil
		}
	})
	h.start(t)

	if err := h.loop.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	select {
	case got := <-rebound:
		if got != cfg {
			t.Fatalf("rebound with unexpected config")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("config was not applied")
	}

	if d := h.coord.Delays(); d.Switch != 7*time.Millisecond {
		t.Fatalf("switch delay = %v, want 7ms", d.Switch)
	}
	if c := scheduler.Config(); c.Duration != 300*time.Millisecond {
		t.Fatalf("animation duration = %v, want 300ms", c.Duration)
	}
}

func TestLoop_ReloadErrorLeavesConfig(t *testing.T) {
	h := newHarness(t, platformtest.New(2), func(o *Options) {
		o.LoadConfig = func() (*config.Config, error) { return nil, errors.New("bad yaml") }
	})

	if err := h.loop.Reload(); err == nil || err.Error() != "bad yaml" {
		t.Fatalf("expected bad yaml error, got %v", err)
	}
	if len(h.loop.reloads) != 0 {
		t.Fatalf("expected nothing queued for the loop")
	}
}

func TestLoop_StopsWhenQueueCloses(t *testing.T) {
	h := newHarness(t, platformtest.New(2), nil)
	done := make(chan struct{})
	go func() {
		h.loop.Run(context.Background())
		close(done)
	}()

	h.queue.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after queue close")
	}
}

func TestConfigConversions(t *testing.T) {
	cfg := config.DefaultConfig()
	d := DelaysFromConfig(cfg)
	if d != space.DefaultDelays() {
		t.Fatalf("DelaysFromConfig = %+v, want %+v", d, space.DefaultDelays())
	}
	a := AnimationFromConfig(cfg)
	if a != animation.DefaultConfig() {
		t.Fatalf("AnimationFromConfig = %+v, want %+v", a, animation.DefaultConfig())
	}
}

func TestReconciler_PostsReconcileEvents(t *testing.T) {
	queue := events.NewQueue(4, quietLogger())
	r := NewReconciler(5*time.Millisecond, queue, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	select {
	case ev := <-queue.Events():
		if ev.Kind != events.Reconcile {
			t.Fatalf("got %s, want reconcile", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reconcile event posted")
	}
}

func TestReconciler_DefaultInterval(t *testing.T) {
	r := NewReconciler(0, events.NewQueue(1, quietLogger()), nil)
	if r.Interval() != 10*time.Second {
		t.Fatalf("interval = %v, want 10s", r.Interval())
	}
}

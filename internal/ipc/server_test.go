package ipc

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/spaces/internal/events"
)

type fakeDaemon struct {
	mu        sync.Mutex
	posted    []events.Event
	reject    bool
	reloadErr error
	reloads   int
}

func (d *fakeDaemon) Post(ev events.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reject {
		return false
	}
	d.posted = append(d.posted, ev)
	return true
}

func (d *fakeDaemon) Status() StatusData {
	return StatusData{SpaceCount: 1, DesktopCount: 4, CurrentDesktop: 2, EventsProcessed: 7}
}

func (d *fakeDaemon) Spaces() SpacesData {
	return SpacesData{Spaces: []SpaceInfo{{Window: 0x1000001, Title: "video", OriginalDesktop: 0, CreatedDesktop: 3}}}
}

func (d *fakeDaemon) Desktops() (DesktopsData, error) {
	return DesktopsData{
		Count:         2,
		Current:       1,
		CanSwitchLeft: true,
		Desktops:      []DesktopInfo{{Index: 0}, {Index: 1, Current: true, Owner: 0x1000001}},
	}, nil
}

func (d *fakeDaemon) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloads++
	return d.reloadErr
}

func (d *fakeDaemon) kinds() []events.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Kind, 0, len(d.posted))
	for _, ev := range d.posted {
		out = append(out, ev.Kind)
	}
	return out
}

func startServer(t *testing.T, d Daemon) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.sock")
	srv := NewServerAt(path, d, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientAt(path)
}

func TestServer_Queries(t *testing.T) {
	client := startServer(t, &fakeDaemon{})

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning || status.SpaceCount != 1 || status.EventsProcessed != 7 {
		t.Fatalf("unexpected status: %+v", status)
	}

	spaces, err := client.ListSpaces()
	if err != nil {
		t.Fatalf("ListSpaces: %v", err)
	}
	if len(spaces.Spaces) != 1 || spaces.Spaces[0].CreatedDesktop != 3 || spaces.Spaces[0].Title != "video" {
		t.Fatalf("unexpected spaces: %+v", spaces)
	}

	desktops, err := client.DesktopInfo()
	if err != nil {
		t.Fatalf("DesktopInfo: %v", err)
	}
	if desktops.Count != 2 || desktops.Desktops[1].Owner != 0x1000001 || desktops.CanSwitchRight {
		t.Fatalf("unexpected desktops: %+v", desktops)
	}
}

func TestServer_MutatingCommandsEnqueue(t *testing.T) {
	d := &fakeDaemon{}
	client := startServer(t, d)

	if err := client.ToggleFullscreen(); err != nil {
		t.Fatalf("ToggleFullscreen: %v", err)
	}
	if err := client.Switch("left"); err != nil {
		t.Fatalf("Switch left: %v", err)
	}
	if err := client.Switch("right"); err != nil {
		t.Fatalf("Switch right: %v", err)
	}
	if err := client.ExitAll(); err != nil {
		t.Fatalf("ExitAll: %v", err)
	}

	want := []events.Kind{events.ToggleFullscreen, events.SwitchLeft, events.SwitchRight, events.ExitAll}
	got := d.kinds()
	if len(got) != len(want) {
		t.Fatalf("posted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("posted %v, want %v", got, want)
		}
	}
}

func TestServer_SwitchRejectsBadDirection(t *testing.T) {
	d := &fakeDaemon{}
	client := startServer(t, d)

	err := client.Switch("up")
	if err == nil || !strings.Contains(err.Error(), "invalid direction") {
		t.Fatalf("expected invalid direction error, got %v", err)
	}
	if len(d.kinds()) != 0 {
		t.Fatalf("expected nothing posted, got %v", d.kinds())
	}
}

func TestServer_FullQueueIsAnError(t *testing.T) {
	client := startServer(t, &fakeDaemon{reject: true})

	err := client.ExitAll()
	if err == nil || !strings.Contains(err.Error(), "exit_all dropped") {
		t.Fatalf("expected dropped error, got %v", err)
	}
}

func TestServer_Reload(t *testing.T) {
	d := &fakeDaemon{}
	client := startServer(t, d)

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	d.mu.Lock()
	d.reloadErr = errors.New("bad yaml")
	d.mu.Unlock()
	err := client.Reload()
	if err == nil || !strings.Contains(err.Error(), "bad yaml") {
		t.Fatalf("expected reload error, got %v", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reloads != 2 {
		t.Fatalf("expected 2 reloads, got %d", d.reloads)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	client := startServer(t, &fakeDaemon{})

	_, err := client.sendRequest(&Request{Command: "NOPE"})
	if err == nil || !strings.Contains(err.Error(), "Unknown command: NOPE") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := client.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

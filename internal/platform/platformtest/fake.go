// Package platformtest provides an in-memory window system for tests.
package platformtest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/spaces/internal/platform"
)

// Window is the fake state of one top-level window.
type Window struct {
	Desktop    int
	Maximized  bool
	Fullscreen bool
	Title      string
}

// Backend is a fake platform.Backend plus FullscreenToggler and WindowWatcher.
// Desktops behave like an EWMH window manager that honors every request.
type Backend struct {
	mu sync.Mutex

	Count   int
	Current int
	Active  platform.WindowID
	Windows map[platform.WindowID]*Window
	Watched map[platform.WindowID]bool

	// Errors makes the named method ("SwitchTo", "CreateDesktop", ...) fail.
	Errors map[string]error
	// IgnoreCreate makes CreateDesktop succeed without adding a desktop.
	IgnoreCreate bool
	// RemoveDesktopPartial is returned by RemoveDesktop after the desktop has
	// been removed, like a removal whose follow-up steps failed.
	RemoveDesktopPartial error

	calls []string
}

var (
	_ platform.Backend           = (*Backend)(nil)
	_ platform.FullscreenToggler = (*Backend)(nil)
	_ platform.WindowWatcher     = (*Backend)(nil)
)

// New returns a fake with count desktops, current desktop 0 and no windows.
func New(count int) *Backend {
	return &Backend{
		Count:   count,
		Windows: make(map[platform.WindowID]*Window),
		Watched: make(map[platform.WindowID]bool),
		Errors:  make(map[string]error),
	}
}

// AddWindow places a new window on desktop.
func (b *Backend) AddWindow(id platform.WindowID, desktop int) *Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := &Window{Desktop: desktop}
	b.Windows[id] = w
	return w
}

// DestroyWindow makes id unknown, as if the application closed it.
func (b *Backend) DestroyWindow(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Windows, id)
}

// Window returns a copy of the state of id.
func (b *Backend) Window(id platform.WindowID) (Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.Windows[id]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// Calls returns the mutating calls made so far, e.g. "SwitchTo(3)".
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CountCalls returns how many recorded calls start with prefix.
func (b *Backend) CountCalls(prefix string) int {
	n := 0
	for _, c := range b.Calls() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	b.calls = nil
	b.mu.Unlock()
}

func (b *Backend) record(format string, args ...any) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

func (b *Backend) fail(method string) error {
	if err, ok := b.Errors[method]; ok && err != nil {
		return err
	}
	return nil
}

func (b *Backend) DesktopCount() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail("DesktopCount"); err != nil {
		return 0, err
	}
	return b.Count, nil
}

func (b *Backend) CurrentDesktop() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail("CurrentDesktop"); err != nil {
		return 0, err
	}
	return b.Current, nil
}

func (b *Backend) SwitchTo(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("SwitchTo(%d)", index)
	if err := b.fail("SwitchTo"); err != nil {
		return err
	}
	if index < 0 || index >= b.Count {
		return fmt.Errorf("desktop %d out of range", index)
	}
	b.Current = index
	return nil
}

func (b *Backend) CreateDesktop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("CreateDesktop()")
	if err := b.fail("CreateDesktop"); err != nil {
		return err
	}
	if !b.IgnoreCreate {
		b.Count++
	}
	return nil
}

func (b *Backend) RemoveDesktop(index, fallback int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("RemoveDesktop(%d,%d)", index, fallback)
	if err := b.fail("RemoveDesktop"); err != nil {
		return err
	}
	if b.Count <= 1 || index < 0 || index >= b.Count {
		return fmt.Errorf("cannot remove desktop %d of %d", index, b.Count)
	}

	target := fallback
	if target > index {
		target--
	}
	if target < 0 {
		target = 0
	}
	if target > b.Count-2 {
		target = b.Count - 2
	}

	for _, w := range b.Windows {
		switch {
		case w.Desktop == index:
			w.Desktop = target
		case w.Desktop > index:
			w.Desktop--
		}
	}
	switch {
	case b.Current == index:
		b.Current = target
	case b.Current > index:
		b.Current--
	}
	b.Count--
	return b.RemoveDesktopPartial
}

func (b *Backend) MoveWindowTo(id platform.WindowID, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("MoveWindowTo(%s,%d)", id, index)
	if err := b.fail("MoveWindowTo"); err != nil {
		return err
	}
	w, ok := b.Windows[id]
	if !ok {
		return fmt.Errorf("no window %s", id)
	}
	if index < 0 || index >= b.Count {
		return fmt.Errorf("desktop %d out of range", index)
	}
	w.Desktop = index
	return nil
}

func (b *Backend) WindowDesktop(id platform.WindowID) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail("WindowDesktop"); err != nil {
		return 0, err
	}
	w, ok := b.Windows[id]
	if !ok {
		return 0, fmt.Errorf("no window %s", id)
	}
	return w.Desktop, nil
}

func (b *Backend) ActiveWindow() (platform.WindowID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail("ActiveWindow"); err != nil {
		return 0, err
	}
	return b.Active, nil
}

func (b *Backend) IsValid(id platform.WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == 0 {
		return false
	}
	_, ok := b.Windows[id]
	return ok
}

func (b *Backend) IsMaximized(id platform.WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.Windows[id]
	return ok && w.Maximized
}

func (b *Backend) Maximize(id platform.WindowID) error {
	return b.setMaximized("Maximize", id, true)
}

func (b *Backend) Restore(id platform.WindowID) error {
	return b.setMaximized("Restore", id, false)
}

func (b *Backend) setMaximized(method string, id platform.WindowID, v bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("%s(%s)", method, id)
	if err := b.fail(method); err != nil {
		return err
	}
	w, ok := b.Windows[id]
	if !ok {
		return fmt.Errorf("no window %s", id)
	}
	w.Maximized = v
	return nil
}

func (b *Backend) ClientWindows() ([]platform.WindowID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail("ClientWindows"); err != nil {
		return nil, err
	}
	ids := make([]platform.WindowID, 0, len(b.Windows))
	for id := range b.Windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (b *Backend) ActiveDisplay() (platform.Display, error) {
	r := platform.Rect{Width: 1920, Height: 1080}
	return platform.Display{Name: "fake", Bounds: r, Usable: r}, nil
}

// ToggleNativeFullscreen flips the fullscreen flag of id.
func (b *Backend) ToggleNativeFullscreen(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("ToggleNativeFullscreen(%s)", id)
	if err := b.fail("ToggleNativeFullscreen"); err != nil {
		return err
	}
	if w, ok := b.Windows[id]; ok {
		w.Fullscreen = !w.Fullscreen
	}
	return nil
}

func (b *Backend) Watch(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail("Watch"); err != nil {
		return err
	}
	b.Watched[id] = true
	return nil
}

func (b *Backend) Unwatch(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Watched, id)
}

// WindowTitle returns the fake title of id.
func (b *Backend) WindowTitle(id platform.WindowID) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.Windows[id]; ok {
		return w.Title
	}
	return ""
}

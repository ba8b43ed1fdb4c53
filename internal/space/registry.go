// Package space tracks windows promoted into dedicated fullscreen desktops
// and drives the transitions in and out of them.
package space

import (
	"fmt"
	"strings"

	"github.com/1broseidon/spaces/internal/platform"
	"github.com/google/btree"
)

// Record describes one fullscreen space: the window, the desktop it came from
// and the desktop created for it.
type Record struct {
	Window          platform.WindowID `json:"window"`
	OriginalDesktop int               `json:"original_desktop"`
	CreatedDesktop  int               `json:"created_desktop"`
}

func (r Record) String() string {
	return fmt.Sprintf("window %s: original=%d created=%d", r.Window, r.OriginalDesktop, r.CreatedDesktop)
}

const btreeDegree = 8

func recordLess(a, b Record) bool {
	if a.CreatedDesktop != b.CreatedDesktop {
		return a.CreatedDesktop < b.CreatedDesktop
	}
	return a.Window < b.Window
}

// Registry maps windows to their fullscreen space. It is owned by a single
// goroutine and does no locking.
type Registry struct {
	spaces    map[platform.WindowID]Record
	byCreated *btree.BTreeG[Record]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		spaces:    make(map[platform.WindowID]Record),
		byCreated: btree.NewG(btreeDegree, recordLess),
	}
}

// Register stores the space of window, replacing any previous record.
func (r *Registry) Register(window platform.WindowID, original, created int) {
	if old, ok := r.spaces[window]; ok {
		r.byCreated.Delete(old)
	}
	rec := Record{Window: window, OriginalDesktop: original, CreatedDesktop: created}
	r.spaces[window] = rec
	r.byCreated.ReplaceOrInsert(rec)
}

// IsFullscreenSpace reports whether window is registered.
func (r *Registry) IsFullscreenSpace(window platform.WindowID) bool {
	_, ok := r.spaces[window]
	return ok
}

// Contains is an alias of IsFullscreenSpace.
func (r *Registry) Contains(window platform.WindowID) bool {
	return r.IsFullscreenSpace(window)
}

// Get returns a copy of the record of window.
func (r *Registry) Get(window platform.WindowID) (Record, bool) {
	rec, ok := r.spaces[window]
	return rec, ok
}

// Remove deletes and returns the record of window. Removing an unknown window
// reports false.
func (r *Registry) Remove(window platform.WindowID) (Record, bool) {
	rec, ok := r.spaces[window]
	if !ok {
		return Record{}, false
	}
	delete(r.spaces, window)
	r.byCreated.Delete(rec)
	return rec, true
}

// UpdateIndicesAfterDelete shifts every desktop index above deleted down by
// one. It must run exactly once per removed desktop, after the removal.
func (r *Registry) UpdateIndicesAfterDelete(deleted int) {
	if deleted < 0 {
		return
	}
	changed := false
	for w, rec := range r.spaces {
		orig := rec
		if rec.OriginalDesktop > deleted {
			rec.OriginalDesktop--
		}
		if rec.CreatedDesktop > deleted {
			rec.CreatedDesktop--
		}
		if rec != orig {
			r.spaces[w] = rec
			changed = true
		}
	}
	if changed {
		r.reindex()
	}
}

// OwnerOf returns the window whose space lives on desktop.
func (r *Registry) OwnerOf(desktop int) (platform.WindowID, bool) {
	var owner platform.WindowID
	found := false
	r.byCreated.AscendGreaterOrEqual(Record{CreatedDesktop: desktop}, func(rec Record) bool {
		if rec.CreatedDesktop == desktop {
			owner = rec.Window
			found = true
		}
		return false
	})
	return owner, found
}

// Relocate records that the space of window now lives on created. It reports
// false for unknown windows.
func (r *Registry) Relocate(window platform.WindowID, created int) bool {
	rec, ok := r.spaces[window]
	if !ok || created < 0 {
		return false
	}
	r.byCreated.Delete(rec)
	rec.CreatedDesktop = created
	r.spaces[window] = rec
	r.byCreated.ReplaceOrInsert(rec)
	return true
}

// ClampOriginals pulls original desktops that no longer exist back to the last
// desktop. It returns the number of records changed.
func (r *Registry) ClampOriginals(count int) int {
	if count < 1 {
		return 0
	}
	last := count - 1
	n := 0
	for w, rec := range r.spaces {
		if rec.OriginalDesktop > last {
			rec.OriginalDesktop = last
			r.spaces[w] = rec
			r.byCreated.ReplaceOrInsert(rec)
			n++
		}
	}
	return n
}

// Records returns all records ordered by created desktop.
func (r *Registry) Records() []Record {
	out := make([]Record, 0, r.byCreated.Len())
	r.byCreated.Ascend(func(rec Record) bool {
		out = append(out, rec)
		return true
	})
	return out
}

// Windows returns every registered window ordered by created desktop.
func (r *Registry) Windows() []platform.WindowID {
	out := make([]platform.WindowID, 0, len(r.spaces))
	for _, rec := range r.Records() {
		out = append(out, rec.Window)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.spaces)
}

func (r *Registry) IsEmpty() bool {
	return len(r.spaces) == 0
}

// Dump renders the registry for diagnostics.
func (r *Registry) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fullscreen spaces (%d):\n", r.Len())
	if r.IsEmpty() {
		b.WriteString("  (none)\n")
		return b.String()
	}
	for _, rec := range r.Records() {
		fmt.Fprintf(&b, "  %s\n", rec)
	}
	return b.String()
}

func (r *Registry) reindex() {
	r.byCreated.Clear(false)
	for _, rec := range r.spaces {
		r.byCreated.ReplaceOrInsert(rec)
	}
}

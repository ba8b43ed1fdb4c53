package hotkeys

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/1broseidon/spaces/internal/events"
	"github.com/1broseidon/spaces/internal/platform"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Bindings are keybind key sequences such as "Mod4-Left".
type Bindings struct {
	SwitchLeft       string
	SwitchRight      string
	ToggleFullscreen string
}

type binding struct {
	name     string
	sequence string
	kind     events.Kind
}

// plan pairs each configured sequence with its event. Empty sequences are
// skipped; the same sequence bound twice is an error.
func (b Bindings) plan() ([]binding, error) {
	all := []binding{
		{name: "switch_left", sequence: b.SwitchLeft, kind: events.SwitchLeft},
		{name: "switch_right", sequence: b.SwitchRight, kind: events.SwitchRight},
		{name: "toggle_fullscreen", sequence: b.ToggleFullscreen, kind: events.ToggleFullscreen},
	}

	seen := make(map[string]string)
	out := make([]binding, 0, len(all))
	for _, bd := range all {
		seq := strings.TrimSpace(bd.sequence)
		if seq == "" {
			continue
		}
		key := strings.ToLower(seq)
		if other, ok := seen[key]; ok {
			return nil, fmt.Errorf("hotkey %q bound to both %s and %s", seq, other, bd.name)
		}
		seen[key] = bd.name
		bd.sequence = seq
		out = append(out, bd)
	}
	return out, nil
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts. Key callbacks run on the X event
// loop goroutine and only post events.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger

	mu    sync.Mutex
	sink  events.Sink
	bound []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler.
func NewHandler(backend platform.Backend, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, fmt.Errorf("global hotkeys need an X11 backend")
	}
	if logger == nil {
		logger = slog.Default()
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   accessor.RootWindow(),
		logger: logger,
	}, nil
}

// Install grabs every configured sequence and posts its event into sink when
// pressed. Bindings from a previous Install are released first.
func (h *Handler) Install(b Bindings, sink events.Sink) error {
	plan, err := b.plan()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.detachLocked()
	h.sink = sink

	for _, bd := range plan {
		kind := bd.kind
		err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
			h.post(kind)
		}).Connect(h.xu, h.root, bd.sequence, true)
		if err != nil {
			h.detachLocked()
			return fmt.Errorf("failed to register %s hotkey %q: %w", bd.name, bd.sequence, err)
		}
		h.bound = append(h.bound, bd.sequence)
		h.logger.Info("hotkey registered", "action", bd.name, "keys", bd.sequence)
	}
	return nil
}

// Bound returns the sequences currently grabbed.
func (h *Handler) Bound() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bound...)
}

// Close releases every grab and stops posting.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked()
}

func (h *Handler) post(kind events.Kind) {
	h.mu.Lock()
	sink := h.sink
	h.mu.Unlock()

	if sink == nil {
		return
	}
	if !sink.Post(events.Event{Kind: kind}) {
		h.logger.Debug("hotkey event dropped", "event", kind.String())
	}
}

func (h *Handler) detachLocked() {
	if len(h.bound) > 0 {
		keybind.Detach(h.xu, h.root)
	}
	h.bound = nil
	h.sink = nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	xevent.IgnoreMods = lockCombinations(base)
}

// lockCombinations returns 0 plus the OR of every non-empty subset of base.
func lockCombinations(base []uint16) []uint16 {
	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	out := make([]uint16, 0, len(unique))
	for mask := range unique {
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}

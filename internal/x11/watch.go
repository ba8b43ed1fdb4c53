package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// DestroyWatcher reports DestroyNotify events of watched windows. The callback
// runs on the X event loop goroutine and must not block.
type DestroyWatcher struct {
	conn *Connection

	mu        sync.Mutex
	onDestroy func(xproto.Window)
	watched   map[xproto.Window]struct{}
}

// NewDestroyWatcher creates a watcher calling onDestroy until Close.
func NewDestroyWatcher(conn *Connection, onDestroy func(xproto.Window)) *DestroyWatcher {
	return &DestroyWatcher{
		conn:      conn,
		onDestroy: onDestroy,
		watched:   make(map[xproto.Window]struct{}),
	}
}

// Watch subscribes to structure events of win. Watching a window twice is a
// no-op.
func (w *DestroyWatcher) Watch(win xproto.Window) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.onDestroy == nil {
		return fmt.Errorf("destroy watcher closed")
	}
	if _, ok := w.watched[win]; ok {
		return nil
	}

	if err := xwindow.New(w.conn.XUtil, win).Listen(xproto.EventMaskStructureNotify); err != nil {
		return fmt.Errorf("failed to select structure events on 0x%x: %w", uint32(win), err)
	}

	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		w.destroyed(ev.Window)
	}).Connect(w.conn.XUtil, win)

	w.watched[win] = struct{}{}
	return nil
}

// Unwatch drops the callbacks for win. The window's event mask is left alone
// since the window may already be gone.
func (w *DestroyWatcher) Unwatch(win xproto.Window) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watched[win]; !ok {
		return
	}
	delete(w.watched, win)
	xevent.Detach(w.conn.XUtil, win)
}

// Watched returns the number of windows currently watched.
func (w *DestroyWatcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// Close detaches every callback and stops reporting.
func (w *DestroyWatcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for win := range w.watched {
		xevent.Detach(w.conn.XUtil, win)
	}
	w.watched = make(map[xproto.Window]struct{})
	w.onDestroy = nil
}

func (w *DestroyWatcher) destroyed(win xproto.Window) {
	w.mu.Lock()
	onDestroy := w.onDestroy
	_, ok := w.watched[win]
	if ok {
		delete(w.watched, win)
	}
	w.mu.Unlock()

	if !ok || onDestroy == nil {
		return
	}
	xevent.Detach(w.conn.XUtil, win)
	onDestroy(win)
}

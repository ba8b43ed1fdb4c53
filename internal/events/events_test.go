package events

import (
	"io"
	"log/slog"
	"sync"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueuePreservesOrder(t *testing.T) {
	q := NewQueue(4, quietLogger())
	want := []Event{
		{Kind: SwitchLeft},
		{Kind: ToggleFullscreen},
		{Kind: WindowDestroyed, Window: 0x2a},
	}
	for _, ev := range want {
		if !q.Post(ev) {
			t.Fatalf("Post(%v) rejected", ev)
		}
	}
	for i, w := range want {
		got := <-q.Events()
		if got != w {
			t.Fatalf("event %d = %v, want %v", i, got, w)
		}
	}
}

func TestQueueDropsWhenFullWithoutBlocking(t *testing.T) {
	q := NewQueue(1, quietLogger())
	if !q.Post(Event{Kind: SwitchRight}) {
		t.Fatal("first post should be accepted")
	}
	if q.Post(Event{Kind: SwitchRight}) {
		t.Fatal("post into a full queue should be dropped")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestQueueCloseIsIdempotentAndRejectsPosts(t *testing.T) {
	q := NewQueue(2, quietLogger())
	q.Post(Event{Kind: Reconcile})
	q.Close()
	q.Close()

	if q.Post(Event{Kind: ExitAll}) {
		t.Fatal("post after close should be rejected")
	}

	ev, ok := <-q.Events()
	if !ok || ev.Kind != Reconcile {
		t.Fatalf("expected buffered Reconcile before close, got %v ok=%v", ev, ok)
	}
	if _, ok := <-q.Events(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue(1000, quietLogger())
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				q.Post(Event{Kind: SwitchLeft})
			}
		}()
	}
	wg.Wait()
	q.Close()

	n := 0
	for range q.Events() {
		n++
	}
	if n != 500 {
		t.Fatalf("received %d events, want 500", n)
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: SwitchLeft}, "switch_left"},
		{Event{Kind: WindowDestroyed, Window: 0x1}, "window_destroyed(0x00000001)"},
		{Event{Kind: Kind(99)}, "kind(99)"},
	}
	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.ev, got, tt.want)
		}
	}
}

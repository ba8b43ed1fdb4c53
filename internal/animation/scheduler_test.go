package animation

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) sleep(d time.Duration)   { c.t = c.t.Add(d) }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingOverlay struct {
	frames    []Frame
	closed    int
	failAfter int
	onRender  func(Frame)
}

func (o *recordingOverlay) Render(f Frame) error {
	if o.failAfter > 0 && len(o.frames) >= o.failAfter {
		return errors.New("render failed")
	}
	o.frames = append(o.frames, f)
	if o.onRender != nil {
		o.onRender(f)
	}
	return nil
}

func (o *recordingOverlay) Close() error {
	o.closed++
	return nil
}

func newTestScheduler(cfg Config, factory OverlayFactory) (*Scheduler, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := NewScheduler(cfg, factory, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = clock.now
	s.sleep = clock.sleep
	return s, clock
}

func TestPlayRunsActionOnceAtTrigger(t *testing.T) {
	overlay := &recordingOverlay{}
	s, clock := newTestScheduler(DefaultConfig(), func(Direction) (Overlay, error) {
		return overlay, nil
	})

	calls := 0
	var firedAt time.Duration
	start := clock.now()
	out := s.Play(Right, func() {
		calls++
		firedAt = clock.now().Sub(start)
	})

	if calls != 1 {
		t.Fatalf("action called %d times, want 1", calls)
	}
	if firedAt < 70*time.Millisecond {
		t.Fatalf("action fired at %v, before the 35%% trigger", firedAt)
	}
	if out.Degraded {
		t.Fatal("expected animated outcome")
	}
	if overlay.closed != 1 {
		t.Fatalf("overlay closed %d times, want 1", overlay.closed)
	}
	if out.Frames != len(overlay.frames) || out.Frames < 2 {
		t.Fatalf("frames = %d (rendered %d)", out.Frames, len(overlay.frames))
	}
	last := overlay.frames[len(overlay.frames)-1]
	if last.Progress != 1 || last.Alpha != 0 {
		t.Fatalf("last frame = %+v, want progress 1 alpha 0", last)
	}
}

func TestPlayActionNeverBeforeTrigger(t *testing.T) {
	var fired bool
	var renderedBefore []float64
	overlay := &recordingOverlay{}
	overlay.onRender = func(f Frame) {
		if !fired {
			renderedBefore = append(renderedBefore, f.Progress)
		}
	}
	s, _ := newTestScheduler(DefaultConfig(), func(Direction) (Overlay, error) {
		return overlay, nil
	})

	s.Play(Left, func() { fired = true })

	if len(renderedBefore) == 0 {
		t.Fatal("expected frames rendered before the action")
	}
	for _, p := range renderedBefore {
		if p >= 0.35 {
			t.Fatalf("frame at progress %.3f rendered before the action ran", p)
		}
	}
}

func TestPlayDegradedWhenOverlayUnavailable(t *testing.T) {
	s, _ := newTestScheduler(DefaultConfig(), func(Direction) (Overlay, error) {
		return nil, errors.New("no display")
	})

	calls := 0
	out := s.Play(Left, func() { calls++ })

	if calls != 1 {
		t.Fatalf("action called %d times, want 1", calls)
	}
	if !out.Degraded || out.Frames != 0 {
		t.Fatalf("outcome = %+v, want degraded with no frames", out)
	}
}

func TestPlayImmediateWithoutAnimation(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() Config
		nilF bool
	}{
		{name: "disabled", cfg: func() Config { c := DefaultConfig(); c.Enabled = false; return c }},
		{name: "zero duration", cfg: func() Config { c := DefaultConfig(); c.Duration = 0; return c }},
		{name: "no factory", cfg: DefaultConfig, nilF: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			var factory OverlayFactory = func(Direction) (Overlay, error) {
				created = true
				return &recordingOverlay{}, nil
			}
			if tt.nilF {
				factory = nil
			}
			s, _ := newTestScheduler(tt.cfg(), factory)

			calls := 0
			out := s.Play(Right, func() { calls++ })
			if calls != 1 {
				t.Fatalf("action called %d times, want 1", calls)
			}
			if created {
				t.Fatal("overlay should not be created")
			}
			if !out.Degraded {
				t.Fatal("expected degraded outcome")
			}
		})
	}
}

func TestPlayRenderFailureRunsActionAndClosesOverlay(t *testing.T) {
	overlay := &recordingOverlay{failAfter: 1}
	s, _ := newTestScheduler(DefaultConfig(), func(Direction) (Overlay, error) {
		return overlay, nil
	})

	calls := 0
	out := s.Play(Left, func() { calls++ })

	if calls != 1 {
		t.Fatalf("action called %d times, want 1", calls)
	}
	if !out.Degraded || out.Frames != 1 {
		t.Fatalf("outcome = %+v, want degraded after one frame", out)
	}
	if overlay.closed != 1 {
		t.Fatalf("overlay closed %d times, want 1", overlay.closed)
	}
}

func TestPlaySlowFramesStillTriggerOnce(t *testing.T) {
	overlay := &recordingOverlay{}
	s, clock := newTestScheduler(DefaultConfig(), func(Direction) (Overlay, error) {
		return overlay, nil
	})
	// Every frame takes longer than the whole sweep.
	overlay.onRender = func(Frame) { clock.advance(500 * time.Millisecond) }

	calls := 0
	s.Play(Right, func() { calls++ })
	if calls != 1 {
		t.Fatalf("action called %d times, want 1", calls)
	}
}

func TestEnvelope(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		p         float64
		wantAlpha uint8
	}{
		{0, 0},
		{0.175, 110},
		{0.35, 220},
		{0.675, 110},
		{1, 0},
	}
	for _, tt := range tests {
		f := EnvelopeAt(Left, tt.p, cfg)
		if f.Alpha != tt.wantAlpha {
			t.Errorf("alpha at %.3f = %d, want %d", tt.p, f.Alpha, tt.wantAlpha)
		}
	}

	if got := EnvelopeAt(Left, 0, cfg).Position; got != -1 {
		t.Errorf("left start position = %v, want -1", got)
	}
	if got := EnvelopeAt(Left, 1, cfg).Position; got != 1 {
		t.Errorf("left end position = %v, want 1", got)
	}
	if got := EnvelopeAt(Right, 0, cfg).Position; got != 1 {
		t.Errorf("right start position = %v, want 1", got)
	}
	if got := EnvelopeAt(Right, 1, cfg).Position; got != -1 {
		t.Errorf("right end position = %v, want -1", got)
	}
	if got := EaseOutCubic(0.5); math.Abs(got-0.875) > 1e-9 {
		t.Errorf("EaseOutCubic(0.5) = %v, want 0.875", got)
	}
}

func TestProgress(t *testing.T) {
	d := 200 * time.Millisecond
	tests := []struct {
		elapsed time.Duration
		dur     time.Duration
		want    float64
	}{
		{-time.Millisecond, d, 0},
		{0, d, 0},
		{70 * time.Millisecond, d, 0.35},
		{d, d, 1},
		{time.Second, d, 1},
		{time.Second, 0, 1},
	}
	for _, tt := range tests {
		if got := Progress(tt.elapsed, tt.dur); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Progress(%v, %v) = %v, want %v", tt.elapsed, tt.dur, got, tt.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("left"); err != nil || d != Left {
		t.Fatalf("ParseDirection(left) = %v, %v", d, err)
	}
	if d, err := ParseDirection("right"); err != nil || d != Right {
		t.Fatalf("ParseDirection(right) = %v, %v", d, err)
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

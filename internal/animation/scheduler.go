package animation

import (
	"log/slog"
	"sync"
	"time"
)

// Config controls the sweep timing.
type Config struct {
	Enabled         bool
	Duration        time.Duration
	TriggerFraction float64
	FrameInterval   time.Duration
	MaxAlpha        uint8
}

// DefaultConfig returns a 200ms sweep that switches at 35%.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Duration:        200 * time.Millisecond,
		TriggerFraction: 0.35,
		FrameInterval:   16 * time.Millisecond,
		MaxAlpha:        220,
	}
}

// Overlay is a surface the scheduler paints each frame on.
type Overlay interface {
	Render(frame Frame) error
	Close() error
}

// OverlayFactory creates an overlay for one sweep.
type OverlayFactory func(dir Direction) (Overlay, error)

// Outcome describes how a Play call went.
type Outcome struct {
	Frames   int
	Degraded bool
}

// Scheduler plays sweeps synchronously. It is used from the control loop only,
// but SetConfig may be called from a reload path.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	factory OverlayFactory
	logger  *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewScheduler creates a scheduler. A nil factory makes every Play degraded.
func NewScheduler(cfg Config, factory OverlayFactory, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		factory: factory,
		logger:  logger,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// SetConfig replaces the timing used by subsequent sweeps.
func (s *Scheduler) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Config returns the timing in effect.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Play runs the sweep in dir and calls action exactly once before returning.
// On the animated path action runs at the first frame whose progress reaches
// the trigger fraction. When no overlay can be shown action runs at once.
func (s *Scheduler) Play(dir Direction, action func()) Outcome {
	cfg := s.Config()

	fired := false
	fire := func() {
		if fired {
			return
		}
		fired = true
		if action != nil {
			action()
		}
	}

	if !cfg.Enabled || cfg.Duration <= 0 || s.factory == nil {
		fire()
		return Outcome{Degraded: true}
	}

	overlay, err := s.factory(dir)
	if err != nil || overlay == nil {
		s.logger.Warn("animation unavailable, switching without sweep", "direction", dir.String(), "error", err)
		fire()
		return Outcome{Degraded: true}
	}

	interval := cfg.FrameInterval
	if interval <= 0 {
		interval = DefaultConfig().FrameInterval
	}

	out := Outcome{}
	start := s.now()
	for {
		p := Progress(s.now().Sub(start), cfg.Duration)
		if p >= cfg.TriggerFraction {
			fire()
		}

		if err := overlay.Render(EnvelopeAt(dir, p, cfg)); err != nil {
			s.logger.Warn("overlay render failed, abandoning sweep", "direction", dir.String(), "progress", p, "error", err)
			out.Degraded = true
			break
		}
		out.Frames++

		if p >= 1 {
			break
		}
		s.sleep(interval)
	}

	if err := overlay.Close(); err != nil {
		s.logger.Debug("overlay close failed", "error", err)
	}
	fire()
	return out
}

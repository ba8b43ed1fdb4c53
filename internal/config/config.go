package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HotkeyConfig holds keybind key sequences ("Mod4-Left", "Control-Mod1-f").
// An empty sequence leaves the action unbound.
type HotkeyConfig struct {
	SwitchLeft       string `yaml:"switch_left"`
	SwitchRight      string `yaml:"switch_right"`
	ToggleFullscreen string `yaml:"toggle_fullscreen"`
}

// FullscreenConfig selects how applications are told to go fullscreen.
type FullscreenConfig struct {
	// Method is "key" (inject Key through XTEST) or "wm_state"
	// (_NET_WM_STATE_FULLSCREEN request).
	Method string `yaml:"method"`
	Key    string `yaml:"key"`
}

// DelayConfig holds the settle sleeps between window manager requests.
type DelayConfig struct {
	SettleMS     int `yaml:"settle_ms"`
	FullscreenMS int `yaml:"fullscreen_ms"`
	SwitchMS     int `yaml:"switch_ms"`
}

func (d DelayConfig) Settle() time.Duration     { return ms(d.SettleMS) }
func (d DelayConfig) Fullscreen() time.Duration { return ms(d.FullscreenMS) }
func (d DelayConfig) Switch() time.Duration     { return ms(d.SwitchMS) }

// AnimationConfig controls the sweep shown on left/right switches.
type AnimationConfig struct {
	Enabled        bool   `yaml:"enabled"`
	DurationMS     int    `yaml:"duration_ms"`
	TriggerPercent int    `yaml:"trigger_percent"` // 1-99
	FrameMS        int    `yaml:"frame_ms"`
	MaxAlpha       int    `yaml:"max_alpha"` // 0-255
	ColorFrom      string `yaml:"color_from"`
	ColorTo        string `yaml:"color_to"`
}

func (a AnimationConfig) Duration() time.Duration { return ms(a.DurationMS) }
func (a AnimationConfig) FrameInterval() time.Duration {
	return ms(a.FrameMS)
}

// TriggerFraction returns TriggerPercent as a fraction of the duration.
func (a AnimationConfig) TriggerFraction() float64 {
	return float64(a.TriggerPercent) / 100
}

// Colors returns the gradient end points as 0xRRGGBB.
func (a AnimationConfig) Colors() (from, to uint32, err error) {
	if from, err = ParseColor(a.ColorFrom); err != nil {
		return 0, 0, err
	}
	if to, err = ParseColor(a.ColorTo); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

// Config is the effective daemon configuration.
type Config struct {
	Hotkeys    HotkeyConfig     `yaml:"hotkeys"`
	Fullscreen FullscreenConfig `yaml:"fullscreen"`
	Delays     DelayConfig      `yaml:"delays"`
	Animation  AnimationConfig  `yaml:"animation"`

	// Seconds between reconciliation passes; 0 disables them.
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds"`
	// Exit every space when the daemon stops instead of leaving them for the
	// next run to pick up.
	RestoreOnExit bool   `yaml:"restore_on_exit"`
	LogLevel      string `yaml:"log_level"`

	// Used when the daemon starts without DISPLAY/XAUTHORITY.
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Hotkeys: HotkeyConfig{
			SwitchLeft:       "Mod4-Left",
			SwitchRight:      "Mod4-Right",
			ToggleFullscreen: "Mod4-f",
		},
		Fullscreen: FullscreenConfig{
			Method: "key",
			Key:    "F11",
		},
		Delays: DelayConfig{
			SettleMS:     50,
			FullscreenMS: 100,
			SwitchMS:     150,
		},
		Animation: AnimationConfig{
			Enabled:        true,
			DurationMS:     200,
			TriggerPercent: 35,
			FrameMS:        16,
			MaxAlpha:       220,
			ColorFrom:      "#000000",
			ColorTo:        "#ffffff",
		},
		ReconcileIntervalSeconds: 10,
		RestoreOnExit:            false,
		LogLevel:                 "info",
	}
}

// ReconcileInterval returns the reconciliation period, 0 when disabled.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

// Validate checks every field and returns the first problem as a
// *ValidationError.
func (c *Config) Validate() error {
	switch c.Fullscreen.Method {
	case "key", "wm_state":
	default:
		return &ValidationError{Path: "fullscreen.method", Err: fmt.Errorf("fullscreen.method must be one of: key, wm_state")}
	}
	if c.Fullscreen.Method == "key" && strings.TrimSpace(c.Fullscreen.Key) == "" {
		return &ValidationError{Path: "fullscreen.key", Err: fmt.Errorf("fullscreen.key is required when method is key")}
	}

	seen := map[string]string{}
	for _, hk := range []struct{ path, value string }{
		{"hotkeys.switch_left", c.Hotkeys.SwitchLeft},
		{"hotkeys.switch_right", c.Hotkeys.SwitchRight},
		{"hotkeys.toggle_fullscreen", c.Hotkeys.ToggleFullscreen},
	} {
		key := strings.ToLower(strings.TrimSpace(hk.value))
		if key == "" {
			continue
		}
		if other, ok := seen[key]; ok {
			return &ValidationError{Path: hk.path, Err: fmt.Errorf("%q is already bound by %s", hk.value, other)}
		}
		seen[key] = hk.path
	}

	for _, d := range []struct {
		path  string
		value int
	}{
		{"delays.settle_ms", c.Delays.SettleMS},
		{"delays.fullscreen_ms", c.Delays.FullscreenMS},
		{"delays.switch_ms", c.Delays.SwitchMS},
		{"animation.duration_ms", c.Animation.DurationMS},
	} {
		if d.value < 0 {
			return &ValidationError{Path: d.path, Err: fmt.Errorf("must be >= 0")}
		}
	}
	if c.Animation.FrameMS < 1 {
		return &ValidationError{Path: "animation.frame_ms", Err: fmt.Errorf("frame_ms must be >= 1")}
	}
	if c.Animation.TriggerPercent < 1 || c.Animation.TriggerPercent > 99 {
		return &ValidationError{Path: "animation.trigger_percent", Err: fmt.Errorf("trigger_percent must be between 1 and 99")}
	}
	if c.Animation.MaxAlpha < 0 || c.Animation.MaxAlpha > 255 {
		return &ValidationError{Path: "animation.max_alpha", Err: fmt.Errorf("max_alpha must be between 0 and 255")}
	}
	if _, err := ParseColor(c.Animation.ColorFrom); err != nil {
		return &ValidationError{Path: "animation.color_from", Err: err}
	}
	if _, err := ParseColor(c.Animation.ColorTo); err != nil {
		return &ValidationError{Path: "animation.color_to", Err: err}
	}

	if c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be >= 0")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	return nil
}

// Save writes the config to the default path.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config as YAML to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ParseColor accepts "#rrggbb" or "rrggbb".
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("color %q must be #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q must be #rrggbb", s)
	}
	return uint32(v), nil
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

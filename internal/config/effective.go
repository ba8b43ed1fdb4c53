package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw over DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if h := raw.Hotkeys; h != nil {
		setString(&cfg.Hotkeys.SwitchLeft, h.SwitchLeft)
		setString(&cfg.Hotkeys.SwitchRight, h.SwitchRight)
		setString(&cfg.Hotkeys.ToggleFullscreen, h.ToggleFullscreen)
	}
	if f := raw.Fullscreen; f != nil {
		if f.Method != nil {
			cfg.Fullscreen.Method = strings.ToLower(strings.TrimSpace(*f.Method))
		}
		setString(&cfg.Fullscreen.Key, f.Key)
	}
	if d := raw.Delays; d != nil {
		setInt(&cfg.Delays.SettleMS, d.SettleMS)
		setInt(&cfg.Delays.FullscreenMS, d.FullscreenMS)
		setInt(&cfg.Delays.SwitchMS, d.SwitchMS)
	}
	if a := raw.Animation; a != nil {
		if a.Enabled != nil {
			cfg.Animation.Enabled = *a.Enabled
		}
		setInt(&cfg.Animation.DurationMS, a.DurationMS)
		setInt(&cfg.Animation.TriggerPercent, a.TriggerPercent)
		setInt(&cfg.Animation.FrameMS, a.FrameMS)
		setInt(&cfg.Animation.MaxAlpha, a.MaxAlpha)
		setString(&cfg.Animation.ColorFrom, a.ColorFrom)
		setString(&cfg.Animation.ColorTo, a.ColorTo)
	}
	setInt(&cfg.ReconcileIntervalSeconds, raw.ReconcileIntervalSeconds)
	if raw.RestoreOnExit != nil {
		cfg.RestoreOnExit = *raw.RestoreOnExit
	}
	if raw.LogLevel != nil {
		level := strings.ToLower(strings.TrimSpace(*raw.LogLevel))
		if level == "warn" {
			level = "warning"
		}
		cfg.LogLevel = level
	}
	setString(&cfg.Display, raw.Display)
	setString(&cfg.XAuthority, raw.XAuthority)

	return cfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

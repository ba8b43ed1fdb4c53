package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	hotkeys.switch_left
//	fullscreen.method
//	delays.settle_ms
//	animation.duration_ms
//	animation.color_from
//	reconcile_interval_seconds
//	restore_on_exit
//	log_level
//	display
//	xauthority
//
// A section name alone ("delays") returns the whole section.
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("unknown path: %s", path)
	}

	field := ""
	if len(parts) == 2 {
		field = parts[1]
	}
	scalar := func(v any) (any, error) {
		if field != "" {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "hotkeys":
		return pick(path, field, cfg.Hotkeys, map[string]any{
			"switch_left":       cfg.Hotkeys.SwitchLeft,
			"switch_right":      cfg.Hotkeys.SwitchRight,
			"toggle_fullscreen": cfg.Hotkeys.ToggleFullscreen,
		})
	case "fullscreen":
		return pick(path, field, cfg.Fullscreen, map[string]any{
			"method": cfg.Fullscreen.Method,
			"key":    cfg.Fullscreen.Key,
		})
	case "delays":
		return pick(path, field, cfg.Delays, map[string]any{
			"settle_ms":     cfg.Delays.SettleMS,
			"fullscreen_ms": cfg.Delays.FullscreenMS,
			"switch_ms":     cfg.Delays.SwitchMS,
		})
	case "animation":
		return pick(path, field, cfg.Animation, map[string]any{
			"enabled":         cfg.Animation.Enabled,
			"duration_ms":     cfg.Animation.DurationMS,
			"trigger_percent": cfg.Animation.TriggerPercent,
			"frame_ms":        cfg.Animation.FrameMS,
			"max_alpha":       cfg.Animation.MaxAlpha,
			"color_from":      cfg.Animation.ColorFrom,
			"color_to":        cfg.Animation.ColorTo,
		})
	case "reconcile_interval_seconds":
		return scalar(cfg.ReconcileIntervalSeconds)
	case "restore_on_exit":
		return scalar(cfg.RestoreOnExit)
	case "log_level":
		return scalar(cfg.LogLevel)
	case "display":
		return scalar(cfg.Display)
	case "xauthority":
		return scalar(cfg.XAuthority)
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}

func pick(path, field string, section any, fields map[string]any) (any, error) {
	if field == "" {
		return section, nil
	}
	v, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("unknown path: %s", path)
	}
	return v, nil
}

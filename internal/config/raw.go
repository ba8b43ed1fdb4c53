package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawHotkeys struct {
	SwitchLeft       *string `yaml:"switch_left"`
	SwitchRight      *string `yaml:"switch_right"`
	ToggleFullscreen *string `yaml:"toggle_fullscreen"`
}

type RawFullscreen struct {
	Method *string `yaml:"method"`
	Key    *string `yaml:"key"`
}

type RawDelays struct {
	SettleMS     *int `yaml:"settle_ms"`
	FullscreenMS *int `yaml:"fullscreen_ms"`
	SwitchMS     *int `yaml:"switch_ms"`
}

type RawAnimation struct {
	Enabled        *bool   `yaml:"enabled"`
	DurationMS     *int    `yaml:"duration_ms"`
	TriggerPercent *int    `yaml:"trigger_percent"`
	FrameMS        *int    `yaml:"frame_ms"`
	MaxAlpha       *int    `yaml:"max_alpha"`
	ColorFrom      *string `yaml:"color_from"`
	ColorTo        *string `yaml:"color_to"`
}

// RawConfig mirrors a config file: nil means "not set in this file".
type RawConfig struct {
	Include                  IncludeList    `yaml:"include"`
	Hotkeys                  *RawHotkeys    `yaml:"hotkeys"`
	Fullscreen               *RawFullscreen `yaml:"fullscreen"`
	Delays                   *RawDelays     `yaml:"delays"`
	Animation                *RawAnimation  `yaml:"animation"`
	ReconcileIntervalSeconds *int           `yaml:"reconcile_interval_seconds"`
	RestoreOnExit            *bool          `yaml:"restore_on_exit"`
	LogLevel                 *string        `yaml:"log_level"`
	Display                  *string        `yaml:"display"`
	XAuthority               *string        `yaml:"xauthority"`
}

// merge returns c with every field set in overlay replaced.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Hotkeys != nil {
		base := RawHotkeys{}
		if out.Hotkeys != nil {
			base = *out.Hotkeys
		}
		merged := mergeRawHotkeys(base, *overlay.Hotkeys)
		out.Hotkeys = &merged
	}
	if overlay.Fullscreen != nil {
		base := RawFullscreen{}
		if out.Fullscreen != nil {
			base = *out.Fullscreen
		}
		merged := mergeRawFullscreen(base, *overlay.Fullscreen)
		out.Fullscreen = &merged
	}
	if overlay.Delays != nil {
		base := RawDelays{}
		if out.Delays != nil {
			base = *out.Delays
		}
		merged := mergeRawDelays(base, *overlay.Delays)
		out.Delays = &merged
	}
	if overlay.Animation != nil {
		base := RawAnimation{}
		if out.Animation != nil {
			base = *out.Animation
		}
		merged := mergeRawAnimation(base, *overlay.Animation)
		out.Animation = &merged
	}
	if overlay.ReconcileIntervalSeconds != nil {
		out.ReconcileIntervalSeconds = overlay.ReconcileIntervalSeconds
	}
	if overlay.RestoreOnExit != nil {
		out.RestoreOnExit = overlay.RestoreOnExit
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}
	return out
}

func mergeRawHotkeys(base RawHotkeys, overlay RawHotkeys) RawHotkeys {
	out := base
	if overlay.SwitchLeft != nil {
		out.SwitchLeft = overlay.SwitchLeft
	}
	if overlay.SwitchRight != nil {
		out.SwitchRight = overlay.SwitchRight
	}
	if overlay.ToggleFullscreen != nil {
		out.ToggleFullscreen = overlay.ToggleFullscreen
	}
	return out
}

func mergeRawFullscreen(base RawFullscreen, overlay RawFullscreen) RawFullscreen {
	out := base
	if overlay.Method != nil {
		out.Method = overlay.Method
	}
	if overlay.Key != nil {
		out.Key = overlay.Key
	}
	return out
}

func mergeRawDelays(base RawDelays, overlay RawDelays) RawDelays {
	out := base
	if overlay.SettleMS != nil {
		out.SettleMS = overlay.SettleMS
	}
	if overlay.FullscreenMS != nil {
		out.FullscreenMS = overlay.FullscreenMS
	}
	if overlay.SwitchMS != nil {
		out.SwitchMS = overlay.SwitchMS
	}
	return out
}

func mergeRawAnimation(base RawAnimation, overlay RawAnimation) RawAnimation {
	out := base
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.DurationMS != nil {
		out.DurationMS = overlay.DurationMS
	}
	if overlay.TriggerPercent != nil {
		out.TriggerPercent = overlay.TriggerPercent
	}
	if overlay.FrameMS != nil {
		out.FrameMS = overlay.FrameMS
	}
	if overlay.MaxAlpha != nil {
		out.MaxAlpha = overlay.MaxAlpha
	}
	if overlay.ColorFrom != nil {
		out.ColorFrom = overlay.ColorFrom
	}
	if overlay.ColorTo != nil {
		out.ColorTo = overlay.ColorTo
	}
	return out
}

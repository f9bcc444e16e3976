// Package settings persists user preferences in ~/.geminidesk/settings.json.
package settings

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPreset is returned for unknown inactivity timeout presets
var ErrInvalidPreset = errors.New("invalid inactivity timeout preset")

// Preset is a named inactivity timeout
type Preset string

const (
	PresetNever Preset = "never"
	Preset5m    Preset = "5m"
	Preset10m   Preset = "10m"
	Preset15m   Preset = "15m"
	Preset30m   Preset = "30m"
	Preset1h    Preset = "1h"
)

// Presets lists every preset in menu order
var Presets = []Preset{PresetNever, Preset5m, Preset10m, Preset15m, Preset30m, Preset1h}

var presetDurations = map[Preset]time.Duration{
	Preset5m:  5 * time.Minute,
	Preset10m: 10 * time.Minute,
	Preset15m: 15 * time.Minute,
	Preset30m: 30 * time.Minute,
	Preset1h:  time.Hour,
}

var presetLabels = map[Preset]string{
	PresetNever: "Never",
	Preset5m:    "After 5 Minutes",
	Preset10m:   "After 10 Minutes",
	Preset15m:   "After 15 Minutes",
	Preset30m:   "After 30 Minutes",
	Preset1h:    "After 1 Hour",
}

// ParsePreset validates a preset name
func ParsePreset(s string) (Preset, error) {
	p := Preset(s)
	if p == PresetNever {
		return p, nil
	}
	if _, ok := presetDurations[p]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPreset, s)
}

// Duration returns the timeout, with ok=false for "never"
func (p Preset) Duration() (time.Duration, bool) {
	d, ok := presetDurations[p]
	return d, ok
}

// Label is the menu title for the preset
func (p Preset) Label() string {
	if l, ok := presetLabels[p]; ok {
		return l
	}
	return string(p)
}

// WindowState is the saved window geometry
type WindowState struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Maximized bool `json:"maximized"`
}

// Settings is the persisted preference document
type Settings struct {
	Version           int          `json:"version"`
	InactivityTimeout Preset       `json:"inactivityTimeout"`
	Hotkey            string       `json:"hotkey"`
	AlwaysOnTop       bool         `json:"alwaysOnTop"`
	Window            *WindowState `json:"window,omitempty"`
}

const currentVersion = 1

// DefaultHotkey is used when no hotkey has been saved
const DefaultHotkey = "alt+space"

// Default returns the settings of a fresh install
func Default() Settings {
	return Settings{
		Version:           currentVersion,
		InactivityTimeout: PresetNever,
		Hotkey:            DefaultHotkey,
	}
}

func (s Settings) clone() Settings {
	if s.Window != nil {
		ws := *s.Window
		s.Window = &ws
	}
	return s
}

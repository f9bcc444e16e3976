package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"geminidesk/internal/config"
	"geminidesk/internal/logging"
	"geminidesk/internal/settings"
	"geminidesk/internal/webview"

	"github.com/wailsapp/wails/v2/pkg/menu"
)

func TestControllerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Webview.HomeURL = "https://gemini.google.com/u/2/app"
	cfg.Webview.PollIntervalMs = 150
	cfg.Webview.RedispatchDelayMs = 80
	cfg.Webview.RedispatchGuardMs = 600

	got := controllerConfig(cfg)
	if got.HomeURL != "https://gemini.google.com/u/2/app" {
		t.Errorf("HomeURL = %q", got.HomeURL)
	}
	if got.PollInterval != 150*time.Millisecond {
		t.Errorf("PollInterval = %v", got.PollInterval)
	}
	if got.ReadinessTimeout != 30*time.Second {
		t.Errorf("ReadinessTimeout = %v", got.ReadinessTimeout)
	}
	if got.RedispatchDelay != 80*time.Millisecond {
		t.Errorf("RedispatchDelay = %v", got.RedispatchDelay)
	}
	if got.RedispatchGuard != 600*time.Millisecond {
		t.Errorf("RedispatchGuard = %v", got.RedispatchGuard)
	}

	if got := controllerConfig(config.Default()); got.RedispatchGuard != 250*time.Millisecond {
		t.Errorf("default RedispatchGuard = %v", got.RedispatchGuard)
	}
}

type stubRenderer struct{}

func (stubRenderer) Navigate(string) error { return nil }

func (stubRenderer) EvaluateScript(context.Context, string) (any, error) { return false, nil }

type nopInjector struct{}

func (nopInjector) PostKey(string) error { return nil }

type fixedTimeout time.Duration

func (f fixedTimeout) InactivityTimeout() (time.Duration, bool) { return time.Duration(f), true }

func TestNewControllerFollowsStartHidden(t *testing.T) {
	tests := []struct {
		hidden     bool
		wantActive bool
		wantArmed  bool
	}{
		{hidden: true, wantActive: false, wantArmed: true},
		{hidden: false, wantActive: true, wantArmed: false},
	}

	for _, tt := range tests {
		cfg := config.Default()
		cfg.Window.StartHidden = tt.hidden

		loop := webview.NewEventLoop()
		c := newController(cfg, loop, stubRenderer{}, nopInjector{}, fixedTimeout(10*time.Minute))
		s := c.Snapshot()
		c.Close()
		loop.Close()

		if s.Active != tt.wantActive {
			t.Errorf("hidden=%v: Active = %v, want %v", tt.hidden, s.Active, tt.wantActive)
		}
		if s.InactivityArmed != tt.wantArmed {
			t.Errorf("hidden=%v: InactivityArmed = %v, want %v", tt.hidden, s.InactivityArmed, tt.wantArmed)
		}
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := NewApp(config.Default(), t.TempDir())
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { a.settings.Close() })
	return a
}

func TestApplyPresetLogsRejectedPreset(t *testing.T) {
	dir := t.TempDir()
	if err := logging.Init(logging.Config{Dir: dir, MaxAge: logging.DefaultMaxAge, Level: "info", JSONOutput: true}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer logging.Close()

	a := newTestApp(t)
	a.applyPreset(settings.Preset("2h"))

	out, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(out)
	for _, want := range []string{"Failed to change inactivity timeout", `"preset":"2h"`, "invalid inactivity timeout preset"} {
		if !strings.Contains(line, want) {
			t.Errorf("log missing %s: %s", want, line)
		}
	}
	if got := a.settings.Get().InactivityTimeout; got != settings.PresetNever {
		t.Errorf("InactivityTimeout = %q, want unchanged", got)
	}
}

func TestPresetMenuItemChangesSetting(t *testing.T) {
	a := newTestApp(t)
	a.buildMenu()

	item := a.presetItems[settings.Preset15m]
	if item == nil {
		t.Fatal("no menu item for 15m preset")
	}
	item.Click(&menu.CallbackData{MenuItem: item})

	if got := a.settings.Get().InactivityTimeout; got != settings.Preset15m {
		t.Errorf("InactivityTimeout = %q, want %q", got, settings.Preset15m)
	}
	if !item.Checked || a.presetItems[settings.PresetNever].Checked {
		t.Error("menu check marks did not follow the setting")
	}
}

func TestWindowPlacement(t *testing.T) {
	tests := []struct {
		name         string
		ws           settings.WindowState
		wantPosition bool
		wantSize     bool
	}{
		{"normal", settings.WindowState{X: 100, Y: 80, Width: 1000, Height: 760}, true, true},
		{"left monitor", settings.WindowState{X: -1920, Y: 0, Width: 800, Height: 600}, true, true},
		{"far off screen", settings.WindowState{X: 20000, Y: 0, Width: 800, Height: 600}, false, true},
		{"too small", settings.WindowState{X: 0, Y: 0, Width: 100, Height: 50}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, size := windowPlacement(&tt.ws)
			if pos != tt.wantPosition || size != tt.wantSize {
				t.Errorf("windowPlacement() = %v, %v; want %v, %v", pos, size, tt.wantPosition, tt.wantSize)
			}
		})
	}
}

func TestAllowedOrigin(t *testing.T) {
	tests := []struct {
		home string
		want string
	}{
		{"https://gemini.google.com/app", "https://gemini.google.com"},
		{"http://localhost:8080/app?x=1", "http://localhost:8080"},
		{"not a url", ""},
	}
	for _, tt := range tests {
		if got := allowedOrigin(tt.home); got != tt.want {
			t.Errorf("allowedOrigin(%q) = %q, want %q", tt.home, got, tt.want)
		}
	}
}

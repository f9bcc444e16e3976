package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"geminidesk/internal/bridge"
	"geminidesk/internal/config"
	"geminidesk/internal/hotkey"
	"geminidesk/internal/keyinject"
	"geminidesk/internal/logging"
	"geminidesk/internal/settings"
	"geminidesk/internal/webview"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// App struct
type App struct {
	ctx        context.Context
	cfg        *config.Config
	settings   *settings.Manager
	loop       *webview.EventLoop
	controller *webview.Controller
	bridge     *bridge.Bridge
	hotkeys    *hotkey.Manager
	injector   *keyinject.Injector

	visible  atomic.Bool
	active   atomic.Bool
	homeOnce sync.Once

	// Menu items whose checked state follows settings
	alwaysOnTopItem *menu.MenuItem
	presetItems     map[settings.Preset]*menu.MenuItem
	mu              sync.RWMutex
}

// NewApp creates a new App
func NewApp(cfg *config.Config, dir string) (*App, error) {
	settingsMgr, err := settings.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	a := &App{
		cfg:         cfg,
		settings:    settingsMgr,
		hotkeys:     hotkey.NewManager(),
		injector:    keyinject.New(),
		presetItems: make(map[settings.Preset]*menu.MenuItem),
	}
	a.visible.Store(!cfg.Window.StartHidden)
	a.active.Store(!cfg.Window.StartHidden)
	return a, nil
}

// controllerConfig maps static config onto controller timings
func controllerConfig(cfg *config.Config) webview.Config {
	c := webview.DefaultConfig()
	c.HomeURL = cfg.Webview.HomeURL
	c.PollInterval = config.Duration(cfg.Webview.PollIntervalMs)
	c.ReadinessTimeout = config.Duration(cfg.Webview.ReadinessTimeoutMs)
	c.QueryTimeout = config.Duration(cfg.Webview.QueryTimeoutMs)
	c.RedispatchDelay = config.Duration(cfg.Webview.RedispatchDelayMs)
	c.RedispatchGuard = config.Duration(cfg.Webview.RedispatchGuardMs)
	return c
}

// newController builds the page controller. A window that starts hidden is
// in the background from launch, so the inactivity timer is armed at once.
func newController(cfg *config.Config, loop webview.Dispatcher, renderer webview.Renderer, injector webview.KeyInjector, source webview.SettingsSource) *webview.Controller {
	c := webview.NewController(controllerConfig(cfg), loop, renderer, injector, source)
	if cfg.Window.StartHidden {
		c.SetActive(false)
	}
	return c
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.settings.SetContext(ctx)

	a.loop = webview.NewEventLoop()
	a.bridge = bridge.New(bridge.Options{
		CompositionWindow: config.Duration(a.cfg.Webview.CompositionWindowMs),
		NavigationTimeout: config.Duration(a.cfg.Webview.NavigationTimeoutMs),
	})
	a.controller = newController(a.cfg, a.loop, a.bridge, a.injector, a.settings)

	a.controller.SetReadyHandler(a.onPageReady)
	a.controller.SetFailureHandler(a.onPageFailed)
	a.controller.SetResetHandler(func() {
		runtime.EventsEmit(a.ctx, "webview:reset")
	})
	a.bridge.SetRetryHandler(a.controller.Retry)
	a.bridge.Attach(bridge.NewWailsHost(ctx), &pageSink{Controller: a.controller, active: &a.active})

	a.settings.OnChange(a.onSettingsReloaded)
	if err := a.settings.Watch(); err != nil {
		logging.Warn("Settings hot reload unavailable", "error", err)
	}

	a.registerHotkey(a.settings.Get().Hotkey)

	// Restore window state after a short delay (needs window to be ready)
	const windowReadyDelay = 150 * time.Millisecond
	go func() {
		time.Sleep(windowReadyDelay)
		a.restoreWindowState()
		if a.settings.Get().AlwaysOnTop {
			runtime.WindowSetAlwaysOnTop(a.ctx, true)
		}
	}()

	logging.Info("Application started", "settings", logging.MaskPath(a.settings.Path()))
}

// domReady loads the hosted page once the splash document is up
func (a *App) domReady(ctx context.Context) {
	a.homeOnce.Do(func() {
		logging.Info("Loading home page", "url", a.cfg.Webview.HomeURL)
		a.controller.GoHome()
	})
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	// Save window state before closing
	a.saveWindowState()

	a.hotkeys.Close()
	if a.bridge != nil {
		a.bridge.Detach()
	}
	if a.controller != nil {
		a.controller.Close()
	}
	if a.loop != nil {
		a.loop.Close()
	}
	if err := a.settings.SaveSync(); err != nil {
		logging.Error("Failed to save settings", "error", err)
	}
	a.settings.Close()
	logging.Info("Application stopped")
}

func (a *App) onSecondInstanceLaunch(data options.SecondInstanceData) {
	logging.Info("Second instance launched, showing window", "args", len(data.Args))
	a.showWindow()
}

// pageSink records page focus so the hotkey can tell whether the window is in front
type pageSink struct {
	*webview.Controller
	active *atomic.Bool
}

func (s *pageSink) SetActive(active bool) {
	s.active.Store(active)
	s.Controller.SetActive(active)
}

func (a *App) onPageReady(url string) {
	if err := a.bridge.FocusInput(); err != nil {
		logging.Debug("Could not focus input", "error", err)
	}
	runtime.EventsEmit(a.ctx, "webview:ready", url)
}

func (a *App) onPageFailed(url, reason string) {
	if err := a.bridge.ShowError(reason); err != nil {
		logging.Warn("Could not show error overlay", "error", err)
	}
	runtime.EventsEmit(a.ctx, "webview:failed", map[string]string{"url": url, "reason": reason})
}

// onSettingsReloaded applies edits made to settings.json outside the app
func (a *App) onSettingsReloaded(old, updated settings.Settings) {
	if old.Hotkey != updated.Hotkey {
		a.registerHotkey(updated.Hotkey)
	}
	if old.AlwaysOnTop != updated.AlwaysOnTop {
		runtime.WindowSetAlwaysOnTop(a.ctx, updated.AlwaysOnTop)
	}
	a.syncMenu(updated)
}

func (a *App) registerHotkey(combo string) {
	if err := a.hotkeys.Register(combo, a.ToggleWindow); err != nil {
		logging.Warn("Failed to register global hotkey", "hotkey", combo, "error", err)
	}
}

func (a *App) showWindow() {
	runtime.WindowUnminimise(a.ctx)
	runtime.WindowShow(a.ctx)
	a.visible.Store(true)
	a.active.Store(true)
	a.controller.SetActive(true)
	if err := a.bridge.FocusInput(); err != nil {
		logging.Debug("Could not focus input", "error", err)
	}
}

func (a *App) hideWindow() {
	runtime.WindowHide(a.ctx)
	a.visible.Store(false)
	a.active.Store(false)
	a.controller.SetActive(false)
}

// Window position bounds for validation (supports multi-monitor setups)
const (
	minWindowX      = -5000 // Allow negative for left-side monitors
	maxWindowX      = 10000
	minWindowY      = -5000
	maxWindowY      = 10000
	minWindowWidth  = 400
	minWindowHeight = 300
)

// windowPlacement decides which saved values are safe to apply
func windowPlacement(ws *settings.WindowState) (positionValid, sizeValid bool) {
	positionValid = ws.X >= minWindowX && ws.X <= maxWindowX &&
		ws.Y >= minWindowY && ws.Y <= maxWindowY
	sizeValid = ws.Width >= minWindowWidth && ws.Height >= minWindowHeight
	return positionValid, sizeValid
}

// restoreWindowState restores the window position and size from saved settings
func (a *App) restoreWindowState() {
	ws := a.settings.WindowState()
	if ws == nil {
		logging.Debug("No window state to restore")
		return
	}

	if ws.Maximized {
		runtime.WindowMaximise(a.ctx)
		logging.Info("Window state restored (maximized)")
		return
	}

	positionValid, sizeValid := windowPlacement(ws)
	if positionValid {
		runtime.WindowSetPosition(a.ctx, ws.X, ws.Y)
	} else {
		logging.Warn("Skipping window position restore - out of bounds", "x", ws.X, "y", ws.Y)
	}
	if sizeValid {
		runtime.WindowSetSize(a.ctx, ws.Width, ws.Height)
	} else {
		logging.Warn("Skipping window size restore - invalid", "width", ws.Width, "height", ws.Height)
	}

	logging.Info("Window state restored", "x", ws.X, "y", ws.Y, "width", ws.Width, "height", ws.Height)
}

// saveWindowState saves the current window position and size
func (a *App) saveWindowState() {
	if a.ctx == nil {
		return
	}

	maximized := runtime.WindowIsMaximised(a.ctx)

	var x, y, width, height int
	existing := a.settings.WindowState()
	if maximized && existing != nil && !existing.Maximized {
		// keep the last normal geometry so un-maximizing restores it
		x, y = existing.X, existing.Y
		width, height = existing.Width, existing.Height
	} else {
		x, y = runtime.WindowGetPosition(a.ctx)
		width, height = runtime.WindowGetSize(a.ctx)
	}

	a.settings.SetWindowState(settings.WindowState{
		X:         x,
		Y:         y,
		Width:     width,
		Height:    height,
		Maximized: maximized,
	})
	logging.Info("Window state saved", "x", x, "y", y, "width", width, "height", height, "maximized", maximized)
}

// ============================================
// Bound methods
// ============================================

// GetSettings returns the current user settings
func (a *App) GetSettings() settings.Settings {
	return a.settings.Get()
}

// GetState returns the controller's current view of the page
func (a *App) GetState() webview.State {
	return a.controller.Snapshot()
}

// SetInactivityTimeout selects a reset-after-inactivity preset
func (a *App) SetInactivityTimeout(preset string) error {
	if err := a.settings.SetInactivityTimeout(preset); err != nil {
		return err
	}
	logging.Info("Inactivity timeout changed", "preset", preset)
	a.syncMenu(a.settings.Get())
	return nil
}

// applyPreset is the menu's path to SetInactivityTimeout; a menu click has
// no caller to hand the error to
func (a *App) applyPreset(preset settings.Preset) {
	if err := a.SetInactivityTimeout(string(preset)); err != nil {
		logging.Warn("Failed to change inactivity timeout", "preset", preset, "error", err)
	}
}

// SetHotkey validates and registers a new global hotkey, then saves it
func (a *App) SetHotkey(combo string) error {
	canonical, err := hotkey.Validate(combo)
	if err != nil {
		return err
	}

	previous := a.hotkeys.Current()
	if err := a.hotkeys.Register(canonical, a.ToggleWindow); err != nil {
		if previous != "" {
			a.registerHotkey(previous)
		}
		return err
	}
	return a.settings.SetHotkey(canonical)
}

// SetAlwaysOnTop pins the window above others
func (a *App) SetAlwaysOnTop(on bool) {
	runtime.WindowSetAlwaysOnTop(a.ctx, on)
	a.settings.SetAlwaysOnTop(on)
	a.syncMenu(a.settings.Get())
}

// GoHome navigates to the home page
func (a *App) GoHome() {
	a.controller.GoHome()
}

// Reload reloads the current page
func (a *App) Reload() error {
	return a.bridge.Reload()
}

// Retry repeats the last failed navigation
func (a *App) Retry() {
	a.controller.Retry()
}

// ToggleWindow hides the window when it is in front, otherwise brings it forward
func (a *App) ToggleWindow() {
	if a.visible.Load() && a.active.Load() {
		a.hideWindow()
		return
	}
	a.showWindow()
}

// LogFrontend writes a log entry from the splash page
func (a *App) LogFrontend(entry logging.LogEntry) {
	logging.LogFromFrontend(entry)
}

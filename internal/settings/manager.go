package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"geminidesk/internal/keybind"
	"geminidesk/internal/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

const (
	fileName       = "settings.json"
	saveDelay      = 500 * time.Millisecond
	reloadDebounce = 100 * time.Millisecond

	// ChangedEvent is emitted to the frontend after any change
	ChangedEvent = "settings:changed"
)

// Manager owns the settings document
type Manager struct {
	ctx      context.Context
	path     string
	settings Settings
	mu       sync.RWMutex

	// Debounced save
	saveTimer *time.Timer
	saveMu    sync.Mutex
	saveDelay time.Duration

	// lastWritten is the last content this process wrote, so the watcher
	// can ignore its own writes
	lastWritten []byte

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	onChange []func(old, updated Settings)
}

// NewManager loads dir/settings.json, creating dir if needed
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	m := &Manager{
		settings:  Default(),
		path:      filepath.Join(dir, fileName),
		saveDelay: saveDelay,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetContext sets the Wails context for event emission
func (m *Manager) SetContext(ctx context.Context) {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()
}

// Path returns the settings file location
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	s, err := decode(data)
	if err != nil {
		logging.Warn("Ignoring unreadable settings file", "path", m.path, "error", err)
		return nil
	}
	m.settings = s
	return nil
}

// decode parses a settings document and repairs invalid fields
func decode(data []byte) (Settings, error) {
	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}

	if _, err := ParsePreset(string(s.InactivityTimeout)); err != nil {
		logging.Warn("Invalid inactivity timeout in settings, using default", "value", s.InactivityTimeout)
		s.InactivityTimeout = Default().InactivityTimeout
	}
	if canonical, err := keybind.Normalize(s.Hotkey); err != nil {
		logging.Warn("Invalid hotkey in settings, using default", "value", s.Hotkey, "error", err)
		s.Hotkey = DefaultHotkey
	} else {
		s.Hotkey = canonical
	}
	s.Version = currentVersion
	return s, nil
}

func (m *Manager) saveImmediate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return err
	}
	m.lastWritten = data
	return nil
}

// Save triggers a debounced save
func (m *Manager) Save() {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(m.saveDelay, func() {
		if err := m.saveImmediate(); err != nil {
			logging.Error("Failed to save settings", "path", m.path, "error", err)
		}
	})
}

// SaveSync immediately saves settings (for shutdown)
func (m *Manager) SaveSync() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	m.saveMu.Unlock()

	return m.saveImmediate()
}

// Get returns a copy of the current settings
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.clone()
}

// InactivityTimeout returns the configured timeout, with ok=false for "never"
func (m *Manager) InactivityTimeout() (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.InactivityTimeout.Duration()
}

// SetInactivityTimeout stores a preset
func (m *Manager) SetInactivityTimeout(name string) error {
	p, err := ParsePreset(name)
	if err != nil {
		return err
	}
	m.update(func(s *Settings) { s.InactivityTimeout = p })
	return nil
}

// SetHotkey stores a hotkey in canonical form
func (m *Manager) SetHotkey(combo string) error {
	canonical, err := keybind.Normalize(combo)
	if err != nil {
		return err
	}
	m.update(func(s *Settings) { s.Hotkey = canonical })
	return nil
}

// SetAlwaysOnTop stores the always-on-top flag
func (m *Manager) SetAlwaysOnTop(on bool) {
	m.update(func(s *Settings) { s.AlwaysOnTop = on })
}

// WindowState returns a copy of the saved window geometry, or nil
func (m *Manager) WindowState() *WindowState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings.Window == nil {
		return nil
	}
	ws := *m.settings.Window
	return &ws
}

// SetWindowState stores the window geometry
func (m *Manager) SetWindowState(ws WindowState) {
	m.update(func(s *Settings) { s.Window = &ws })
}

func (m *Manager) update(fn func(*Settings)) {
	m.mu.Lock()
	fn(&m.settings)
	current := m.settings.clone()
	ctx := m.ctx
	m.mu.Unlock()

	m.Save()

	if ctx != nil {
		runtime.EventsEmit(ctx, ChangedEvent, current)
	}
}

// OnChange registers a callback for changes made to the file outside the app
func (m *Manager) OnChange(cb func(old, updated Settings)) {
	m.mu.Lock()
	m.onChange = append(m.onChange, cb)
	m.mu.Unlock()
}

// Watch starts reloading the file when another process edits it
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	m.watcher = watcher
	m.stop = make(chan struct{})
	go m.watchLoop(watcher, m.stop)
	return nil
}

func (m *Manager) watchLoop(watcher *fsnotify.Watcher, stop chan struct{}) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != fileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, m.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Settings watcher error", "error", err)
		}
	}
}

func (m *Manager) reload() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		logging.Warn("Failed to reload settings", "path", m.path, "error", err)
		return
	}

	m.mu.RLock()
	own := bytes.Equal(data, m.lastWritten)
	m.mu.RUnlock()
	if own {
		return
	}

	s, err := decode(data)
	if err != nil {
		logging.Warn("Ignoring invalid settings edit", "path", m.path, "error", err)
		return
	}

	m.mu.Lock()
	old := m.settings.clone()
	m.settings = s
	m.lastWritten = data
	callbacks := append([]func(old, updated Settings){}, m.onChange...)
	ctx := m.ctx
	m.mu.Unlock()

	logging.Info("Settings reloaded from disk", "inactivityTimeout", s.InactivityTimeout, "hotkey", s.Hotkey)
	for _, cb := range callbacks {
		cb(old, s.clone())
	}
	if ctx != nil {
		runtime.EventsEmit(ctx, ChangedEvent, s.clone())
	}
}

// Close stops the watcher and any pending save timer
func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	m.saveMu.Unlock()

	if m.watcher == nil {
		return nil
	}
	close(m.stop)
	err := m.watcher.Close()
	m.watcher = nil
	return err
}

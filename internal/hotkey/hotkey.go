// Package hotkey registers the system-wide show/hide shortcut.
package hotkey

import (
	"fmt"
	"sync"

	"geminidesk/internal/keybind"
	"geminidesk/internal/logging"

	"golang.design/x/hotkey"
)

// Registration is the subset of *hotkey.Hotkey the manager drives
type Registration interface {
	Register() error
	Unregister() error
	Keydown() <-chan hotkey.Event
}

// Manager owns at most one registered global hotkey
type Manager struct {
	mu      sync.Mutex
	current Registration
	combo   string
	done    chan struct{}

	// newRegistration is swapped in tests
	newRegistration func(mods []hotkey.Modifier, key hotkey.Key) Registration
}

// NewManager creates a manager backed by the OS hotkey service
func NewManager() *Manager {
	return &Manager{
		newRegistration: func(mods []hotkey.Modifier, key hotkey.Key) Registration {
			return hotkey.New(mods, key)
		},
	}
}

// Register replaces the current hotkey with combo. onPress runs on a
// dedicated goroutine for every key-down. On failure the previous
// hotkey is left unregistered and the error is returned.
func (m *Manager) Register(combo string, onPress func()) error {
	binding, err := keybind.Parse(combo)
	if err != nil {
		return err
	}
	mods, key, err := Convert(binding)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.unregisterLocked()

	hk := m.newRegistration(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %s: %w", binding, err)
	}

	done := make(chan struct{})
	m.current = hk
	m.combo = binding.String()
	m.done = done

	go func() {
		keydown := hk.Keydown()
		for {
			select {
			case <-done:
				return
			case _, ok := <-keydown:
				if !ok {
					return
				}
				onPress()
			}
		}
	}()

	logging.Info("Registered global hotkey", "hotkey", m.combo)
	return nil
}

// Current returns the canonical form of the registered hotkey, or ""
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.combo
}

// Unregister removes the current hotkey, if any
func (m *Manager) Unregister() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterLocked()
}

func (m *Manager) unregisterLocked() {
	if m.current == nil {
		return
	}
	close(m.done)
	if err := m.current.Unregister(); err != nil {
		logging.Warn("Failed to unregister hotkey", "hotkey", m.combo, "error", err)
	}
	m.current = nil
	m.combo = ""
	m.done = nil
}

// Close unregisters the hotkey
func (m *Manager) Close() {
	m.Unregister()
}

package settings

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetDuration(t *testing.T) {
	tests := []struct {
		preset Preset
		want   time.Duration
		ok     bool
	}{
		{PresetNever, 0, false},
		{Preset5m, 5 * time.Minute, true},
		{Preset10m, 10 * time.Minute, true},
		{Preset1h, time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			d, ok := tt.preset.Duration()
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestParsePreset(t *testing.T) {
	for _, p := range Presets {
		got, err := ParsePreset(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePreset("2h")
	assert.ErrorIs(t, err, ErrInvalidPreset)
}

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	s := m.Get()
	assert.Equal(t, PresetNever, s.InactivityTimeout)
	assert.Equal(t, DefaultHotkey, s.Hotkey)
	assert.Nil(t, m.WindowState())

	_, ok := m.InactivityTimeout()
	assert.False(t, ok)
}

func TestSettersPersistAcrossManagers(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, m.SetInactivityTimeout("15m"))
	require.NoError(t, m.SetHotkey("Command+Shift+G"))
	m.SetAlwaysOnTop(true)
	m.SetWindowState(WindowState{X: 10, Y: 20, Width: 900, Height: 700})
	require.NoError(t, m.SaveSync())
	require.NoError(t, m.Close())

	reopened, err := NewManager(dir)
	require.NoError(t, err)
	s := reopened.Get()
	assert.Equal(t, Preset15m, s.InactivityTimeout)
	assert.Equal(t, "shift+cmd+g", s.Hotkey)
	assert.True(t, s.AlwaysOnTop)
	require.NotNil(t, s.Window)
	assert.Equal(t, 900, s.Window.Width)

	d, ok := reopened.InactivityTimeout()
	assert.True(t, ok)
	assert.Equal(t, 15*time.Minute, d)
}

func TestSettersRejectInvalidValues(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, m.SetInactivityTimeout("forever"))
	assert.Error(t, m.SetHotkey("g"))
	assert.Equal(t, Default().InactivityTimeout, m.Get().InactivityTimeout)
	assert.Equal(t, DefaultHotkey, m.Get().Hotkey)
}

func TestLoadRepairsInvalidFields(t *testing.T) {
	dir := t.TempDir()
	body := `{"inactivityTimeout":"3d","hotkey":"hyper+x","alwaysOnTop":true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(body), 0644))

	m, err := NewManager(dir)
	require.NoError(t, err)
	s := m.Get()
	assert.Equal(t, PresetNever, s.InactivityTimeout)
	assert.Equal(t, DefaultHotkey, s.Hotkey)
	assert.True(t, s.AlwaysOnTop)
}

func TestLoadIgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0644))

	m, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), m.Get())
}

func TestSaveIsDebounced(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)
	m.saveDelay = 20 * time.Millisecond
	defer m.Close()

	m.SetAlwaysOnTop(true)
	m.SetAlwaysOnTop(false)
	m.SetAlwaysOnTop(true)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dir, fileName))
		return err == nil && strings.Contains(string(data), `"alwaysOnTop": true`)
	}, 2*time.Second, 10*time.Millisecond)

	reopened, err := NewManager(dir)
	require.NoError(t, err)
	assert.True(t, reopened.Get().AlwaysOnTop)
}

func TestGetReturnsCopy(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	m.SetWindowState(WindowState{Width: 800})

	s := m.Get()
	s.Window.Width = 1
	assert.Equal(t, 800, m.WindowState().Width)
	m.Close()
}

func TestWatchReloadsExternalEdit(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.SaveSync())
	require.NoError(t, m.Watch())
	defer m.Close()

	var mu sync.Mutex
	var changes [][2]Settings
	m.OnChange(func(old, updated Settings) {
		mu.Lock()
		changes = append(changes, [2]Settings{old, updated})
		mu.Unlock()
	})

	body := `{"version":1,"inactivityTimeout":"30m","hotkey":"ctrl+alt+g"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(body), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) == 1
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, PresetNever, changes[0][0].InactivityTimeout)
	assert.Equal(t, Preset30m, changes[0][1].InactivityTimeout)
	assert.Equal(t, "ctrl+alt+g", changes[0][1].Hotkey)
	mu.Unlock()

	d, ok := m.InactivityTimeout()
	assert.True(t, ok)
	assert.Equal(t, 30*time.Minute, d)
}

func TestWatchIgnoresOwnWrites(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, m.Watch())
	defer m.Close()

	called := make(chan struct{}, 1)
	m.OnChange(func(old, updated Settings) { called <- struct{}{} })

	m.SetAlwaysOnTop(true)
	require.NoError(t, m.SaveSync())

	select {
	case <-called:
		t.Fatal("OnChange fired for the app's own write")
	case <-time.After(400 * time.Millisecond):
	}
}

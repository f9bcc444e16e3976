package hotkey

import (
	"errors"
	"sync"
	"testing"
	"time"

	"geminidesk/internal/keybind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.design/x/hotkey"
)

type fakeRegistration struct {
	mu           sync.Mutex
	mods         []hotkey.Modifier
	key          hotkey.Key
	registered   bool
	unregistered bool
	registerErr  error
	keydown      chan hotkey.Event
}

func (f *fakeRegistration) Register() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = true
	return nil
}

func (f *fakeRegistration) Unregister() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered = true
	return nil
}

func (f *fakeRegistration) Keydown() <-chan hotkey.Event { return f.keydown }

func newTestManager(registerErr error) (*Manager, *[]*fakeRegistration) {
	var created []*fakeRegistration
	m := &Manager{}
	m.newRegistration = func(mods []hotkey.Modifier, key hotkey.Key) Registration {
		f := &fakeRegistration{mods: mods, key: key, registerErr: registerErr, keydown: make(chan hotkey.Event, 1)}
		created = append(created, f)
		return f
	}
	return m, &created
}

func TestRegisterDeliversKeydown(t *testing.T) {
	m, created := newTestManager(nil)
	pressed := make(chan struct{}, 1)

	require.NoError(t, m.Register("ctrl+shift+g", func() { pressed <- struct{}{} }))
	assert.Equal(t, "ctrl+shift+g", m.Current())
	require.Len(t, *created, 1)
	assert.Equal(t, hotkey.KeyG, (*created)[0].key)
	assert.Len(t, (*created)[0].mods, 2)

	(*created)[0].keydown <- hotkey.Event{}
	select {
	case <-pressed:
	case <-time.After(time.Second):
		t.Fatal("onPress was not called")
	}
	m.Close()
	assert.True(t, (*created)[0].unregistered)
	assert.Empty(t, m.Current())
}

func TestRegisterReplacesPrevious(t *testing.T) {
	m, created := newTestManager(nil)
	require.NoError(t, m.Register("ctrl+g", func() {}))
	require.NoError(t, m.Register("alt+space", func() {}))

	require.Len(t, *created, 2)
	assert.True(t, (*created)[0].unregistered)
	assert.False(t, (*created)[1].unregistered)
	assert.Equal(t, "alt+space", m.Current())
	m.Close()
}

func TestRegisterInvalidComboKeepsCurrent(t *testing.T) {
	m, created := newTestManager(nil)
	require.NoError(t, m.Register("ctrl+g", func() {}))

	err := m.Register("hyper+g", func() {})
	assert.ErrorIs(t, err, keybind.ErrInvalidHotkey)
	assert.Len(t, *created, 1)
	assert.Equal(t, "ctrl+g", m.Current())
	m.Close()
}

func TestRegisterFailure(t *testing.T) {
	m, _ := newTestManager(errors.New("already taken"))
	err := m.Register("ctrl+g", func() {})
	assert.Error(t, err)
	assert.Empty(t, m.Current())
}

func TestConvertCoversEveryParsableKey(t *testing.T) {
	for _, combo := range []string{"ctrl+a", "ctrl+9", "ctrl+space", "ctrl+enter", "ctrl+escape", "ctrl+tab", "ctrl+delete", "ctrl+up", "ctrl+f12"} {
		b, err := keybind.Parse(combo)
		require.NoError(t, err)
		_, _, err = Convert(b)
		assert.NoError(t, err, combo)
	}
}

func TestValidate(t *testing.T) {
	got, err := Validate("Option+Shift+F5")
	require.NoError(t, err)
	assert.Equal(t, "alt+shift+f5", got)

	_, err = Validate("shift")
	assert.ErrorIs(t, err, keybind.ErrInvalidHotkey)
}

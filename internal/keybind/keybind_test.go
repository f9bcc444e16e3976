package keybind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cmd+shift+g", "shift+cmd+g"},
		{"Command+Option+Space", "alt+cmd+space"},
		{" ctrl + alt + return ", "ctrl+alt+enter"},
		{"super+F12", "cmd+f12"},
		{"control+1", "ctrl+1"},
		{"win+esc", "cmd+escape"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "g", "cmd+", "hyper+g", "cmd+cmd+g", "cmd+f13", "cmd+f0", "cmd+f01", "ctrl+pageup", "cmd+gg"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrInvalidHotkey)
		})
	}
}

func TestBindingHas(t *testing.T) {
	b, err := Parse("ctrl+shift+k")
	require.NoError(t, err)
	assert.True(t, b.Has(ModCtrl))
	assert.True(t, b.Has(ModShift))
	assert.False(t, b.Has(ModCmd))
	assert.Equal(t, "k", b.Key)
}

package hotkey

import (
	"fmt"

	"geminidesk/internal/keybind"

	"golang.design/x/hotkey"
)

var keyMap = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"space":  hotkey.KeySpace,
	"enter":  hotkey.KeyReturn,
	"escape": hotkey.KeyEscape,
	"tab":    hotkey.KeyTab,
	"delete": hotkey.KeyDelete,
	"left":   hotkey.KeyLeft,
	"right":  hotkey.KeyRight,
	"up":     hotkey.KeyUp,
	"down":   hotkey.KeyDown,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// Convert maps a parsed binding onto the platform's hotkey values
func Convert(b keybind.Binding) ([]hotkey.Modifier, hotkey.Key, error) {
	key, ok := keyMap[b.Key]
	if !ok {
		return nil, 0, fmt.Errorf("%w: key %q has no platform mapping", keybind.ErrInvalidHotkey, b.Key)
	}
	mods := make([]hotkey.Modifier, 0, len(b.Modifiers))
	for _, m := range b.Modifiers {
		mod, ok := modifierMap[m]
		if !ok {
			return nil, 0, fmt.Errorf("%w: modifier %q has no platform mapping", keybind.ErrInvalidHotkey, m)
		}
		mods = append(mods, mod)
	}
	return mods, key, nil
}

// Validate checks that combo parses and maps onto this platform, and
// returns its canonical form
func Validate(combo string) (string, error) {
	b, err := keybind.Parse(combo)
	if err != nil {
		return "", err
	}
	if _, _, err := Convert(b); err != nil {
		return "", err
	}
	return b.String(), nil
}

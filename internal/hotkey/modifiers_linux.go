//go:build linux

package hotkey

import (
	"geminidesk/internal/keybind"

	"golang.design/x/hotkey"
)

// Mod1 is Alt and Mod4 is Super under X11
var modifierMap = map[keybind.Modifier]hotkey.Modifier{
	keybind.ModCtrl:  hotkey.ModCtrl,
	keybind.ModShift: hotkey.ModShift,
	keybind.ModAlt:   hotkey.Mod1,
	keybind.ModCmd:   hotkey.Mod4,
}

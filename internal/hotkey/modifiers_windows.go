//go:build windows

package hotkey

import (
	"geminidesk/internal/keybind"

	"golang.design/x/hotkey"
)

var modifierMap = map[keybind.Modifier]hotkey.Modifier{
	keybind.ModCtrl:  hotkey.ModCtrl,
	keybind.ModShift: hotkey.ModShift,
	keybind.ModAlt:   hotkey.ModAlt,
	keybind.ModCmd:   hotkey.ModWin,
}

//go:build darwin

package hotkey

import (
	"geminidesk/internal/keybind"

	"golang.design/x/hotkey"
)

var modifierMap = map[keybind.Modifier]hotkey.Modifier{
	keybind.ModCtrl:  hotkey.ModCtrl,
	keybind.ModShift: hotkey.ModShift,
	keybind.ModAlt:   hotkey.ModOption,
	keybind.ModCmd:   hotkey.ModCmd,
}

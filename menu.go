package main

import (
	goruntime "runtime"

	"geminidesk/internal/settings"

	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// buildMenu creates the application menu. The Edit menu is required for
// copy and paste shortcuts to reach the page.
func (a *App) buildMenu() *menu.Menu {
	current := a.settings.Get()
	appMenu := menu.NewMenu()

	if goruntime.GOOS == "darwin" {
		appMenu.Append(menu.AppMenu())
	}
	appMenu.Append(menu.EditMenu())

	view := appMenu.AddSubmenu("View")
	view.AddText("Reload", keys.CmdOrCtrl("r"), func(*menu.CallbackData) {
		a.Reload()
	})
	view.AddText("Go Home", keys.Combo("h", keys.CmdOrCtrlKey, keys.ShiftKey), func(*menu.CallbackData) {
		a.GoHome()
	})
	view.AddSeparator()

	a.mu.Lock()
	a.alwaysOnTopItem = view.AddCheckbox("Always on Top", current.AlwaysOnTop, nil, func(cd *menu.CallbackData) {
		a.SetAlwaysOnTop(cd.MenuItem.Checked)
	})

	reset := appMenu.AddSubmenu("Reset After Inactivity")
	for _, p := range settings.Presets {
		preset := p
		a.presetItems[preset] = reset.AddRadio(preset.Label(), current.InactivityTimeout == preset, nil, func(*menu.CallbackData) {
			a.applyPreset(preset)
		})
	}
	a.mu.Unlock()

	return appMenu
}

// syncMenu updates checked states after settings change
func (a *App) syncMenu(s settings.Settings) {
	a.mu.Lock()
	if a.alwaysOnTopItem != nil {
		a.alwaysOnTopItem.Checked = s.AlwaysOnTop
	}
	for preset, item := range a.presetItems {
		item.Checked = preset == s.InactivityTimeout
	}
	a.mu.Unlock()

	if a.ctx != nil {
		runtime.MenuUpdateApplicationMenu(a.ctx)
	}
}

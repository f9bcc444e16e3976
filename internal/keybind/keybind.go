// Package keybind parses user-facing hotkey strings such as "cmd+shift+g".
package keybind

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidHotkey is returned for strings that do not describe a usable hotkey
var ErrInvalidHotkey = errors.New("invalid hotkey")

// Modifier is a canonical modifier name
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModAlt   Modifier = "alt"
	ModShift Modifier = "shift"
	ModCmd   Modifier = "cmd"
)

var modifierOrder = map[Modifier]int{ModCtrl: 0, ModAlt: 1, ModShift: 2, ModCmd: 3}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"cmd":     ModCmd,
	"command": ModCmd,
	"super":   ModCmd,
	"meta":    ModCmd,
	"win":     ModCmd,
}

var keyAliases = map[string]string{
	"return": "enter",
	"esc":    "escape",
	"del":    "delete",
}

var namedKeys = map[string]bool{
	"space": true, "enter": true, "escape": true, "tab": true, "delete": true,
	"left": true, "right": true, "up": true, "down": true,
}

// Binding is a parsed hotkey
type Binding struct {
	Modifiers []Modifier
	Key       string
}

// Parse turns "Cmd+Shift+G" style text into a Binding. At least one
// modifier is required and modifiers may not repeat.
func Parse(s string) (Binding, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return Binding{}, fmt.Errorf("%w: %q needs a modifier and a key", ErrInvalidHotkey, s)
	}

	var b Binding
	seen := make(map[Modifier]bool)
	for _, part := range parts[:len(parts)-1] {
		mod, ok := modifierAliases[strings.TrimSpace(part)]
		if !ok {
			return Binding{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidHotkey, part)
		}
		if seen[mod] {
			return Binding{}, fmt.Errorf("%w: modifier %q repeated", ErrInvalidHotkey, mod)
		}
		seen[mod] = true
		b.Modifiers = append(b.Modifiers, mod)
	}
	sort.Slice(b.Modifiers, func(i, j int) bool {
		return modifierOrder[b.Modifiers[i]] < modifierOrder[b.Modifiers[j]]
	})

	key := strings.TrimSpace(parts[len(parts)-1])
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	if !validKey(key) {
		return Binding{}, fmt.Errorf("%w: unknown key %q", ErrInvalidHotkey, key)
	}
	b.Key = key
	return b, nil
}

func validKey(key string) bool {
	if len(key) == 1 {
		c := key[0]
		return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
	}
	if namedKeys[key] {
		return true
	}
	if strings.HasPrefix(key, "f") {
		var n int
		if _, err := fmt.Sscanf(key, "f%d", &n); err == nil && fmt.Sprintf("f%d", n) == key {
			return n >= 1 && n <= 12
		}
	}
	return false
}

// Has reports whether the binding includes mod
func (b Binding) Has(mod Modifier) bool {
	for _, m := range b.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// String returns the canonical form, e.g. "ctrl+shift+g"
func (b Binding) String() string {
	parts := make([]string, 0, len(b.Modifiers)+1)
	for _, m := range b.Modifiers {
		parts = append(parts, string(m))
	}
	return strings.Join(append(parts, b.Key), "+")
}

// Normalize parses s and returns its canonical form
func Normalize(s string) (string, error) {
	b, err := Parse(s)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

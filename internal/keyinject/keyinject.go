// Package keyinject synthesizes native key events addressed to this process,
// so the hosted page receives them as trusted input.
package keyinject

import (
	"errors"
	"fmt"

	"geminidesk/internal/logging"
)

var (
	// ErrUnsupported is returned on platforms without native injection
	ErrUnsupported = errors.New("key injection not supported on this platform")

	// ErrUnknownKey is returned for keys with no virtual key code
	ErrUnknownKey = errors.New("unknown key")
)

// virtualKeys maps DOM key names to macOS virtual key codes
var virtualKeys = map[string]uint16{
	"Enter":  36,
	"Tab":    48,
	"Escape": 53,
}

// Injector posts synthetic key presses to the current process
type Injector struct {
	post func(code uint16) error
}

// New returns an injector for the running platform
func New() *Injector {
	return &Injector{post: postKeyCode}
}

// PostKey sends a key-down and key-up for key
func (i *Injector) PostKey(key string) error {
	code, ok := virtualKeys[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if err := i.post(code); err != nil {
		return fmt.Errorf("post %s: %w", key, err)
	}
	logging.Debug("Injected key", "key", key)
	return nil
}

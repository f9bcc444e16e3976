package bridge

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// WailsHost is a Host backed by the Wails runtime
type WailsHost struct {
	ctx context.Context
}

// NewWailsHost wraps the context Wails passes to OnStartup
func NewWailsHost(ctx context.Context) *WailsHost {
	return &WailsHost{ctx: ctx}
}

// ExecJS runs js in the window's current document
func (h *WailsHost) ExecJS(js string) {
	runtime.WindowExecJS(h.ctx, js)
}

// On subscribes to an event posted by the page
func (h *WailsHost) On(event string, cb func(data ...any)) func() {
	return runtime.EventsOn(h.ctx, event, cb)
}

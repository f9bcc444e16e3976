// Package bridge connects the webview controller to the page running in
// the Wails window. Go talks to the page with WindowExecJS and the page
// agent answers with Wails events.
package bridge

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	neturl "net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"geminidesk/internal/logging"
	"geminidesk/internal/webview"

	"github.com/google/uuid"
)

//go:embed agent.js
var agentSource string

// Events posted by the page agent
const (
	EventReply      = "bridge:reply"
	EventNavigation = "bridge:navigation"
	EventLocation   = "bridge:location"
	EventFocus      = "bridge:focus"
	EventKey        = "bridge:key"
	EventRetry      = "bridge:retry"
	EventLog        = "bridge:log"
)

// NavigationTimedOut is the failure reason reported by the watchdog
const NavigationTimedOut = "navigation timed out"

// ErrNotAttached is returned when no window is attached
var ErrNotAttached = errors.New("bridge not attached to a window")

// Host is the window the page lives in
type Host interface {
	ExecJS(js string)
	On(event string, cb func(data ...any)) (cancel func())
}

// EventSink receives what the page reports
type EventSink interface {
	HandleEvent(ev webview.RendererEvent)
	SetActive(active bool)
	KeyDown(ev webview.KeyEvent)
}

// Options configures the bridge
type Options struct {
	// CompositionWindow is how long after compositionend an Enter counts as committing text
	CompositionWindow time.Duration

	// NavigationTimeout bounds a load before the watchdog reports failure
	NavigationTimeout time.Duration
}

type reply struct {
	value any
	err   error
}

// Bridge implements webview.Renderer on top of a Host
type Bridge struct {
	opts      Options
	bootstrap string

	mu       sync.Mutex
	host     Host
	sink     EventSink
	onRetry  func()
	cancels  []func()
	pending  map[string]chan reply
	watchdog *time.Timer
	navGen   uint64

	// inFlight is set from a started report until the matching finished,
	// the watchdog or Detach. target is the URL the load was started for.
	inFlight bool
	target   string
}

// New creates a detached bridge
func New(opts Options) *Bridge {
	ms := int(opts.CompositionWindow / time.Millisecond)
	return &Bridge{
		opts:      opts,
		bootstrap: strings.ReplaceAll(agentSource, "__COMPOSITION_WINDOW_MS__", strconv.Itoa(ms)),
		pending:   make(map[string]chan reply),
	}
}

// SetRetryHandler sets the callback for the error overlay's Retry button
func (b *Bridge) SetRetryHandler(fn func()) {
	b.mu.Lock()
	b.onRetry = fn
	b.mu.Unlock()
}

// Attach subscribes to the agent's events on host and forwards them to sink
func (b *Bridge) Attach(host Host, sink EventSink) {
	b.Detach()

	b.mu.Lock()
	b.host = host
	b.sink = sink
	b.mu.Unlock()

	cancels := []func(){
		host.On(EventReply, b.onReply),
		host.On(EventNavigation, b.onNavigation),
		host.On(EventLocation, b.onLocation),
		host.On(EventFocus, b.onFocus),
		host.On(EventKey, b.onKey),
		host.On(EventRetry, b.onRetryEvent),
		host.On(EventLog, b.onLog),
	}

	b.mu.Lock()
	b.cancels = cancels
	b.mu.Unlock()
}

// Detach unsubscribes from the host and fails pending queries
func (b *Bridge) Detach() {
	b.mu.Lock()
	cancels := b.cancels
	b.cancels = nil
	b.host = nil
	b.sink = nil
	b.inFlight = false
	b.stopWatchdogLocked()
	for id, ch := range b.pending {
		ch <- reply{err: ErrNotAttached}
		delete(b.pending, id)
	}
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// exec runs body after making sure the agent is installed
func (b *Bridge) exec(body string) error {
	b.mu.Lock()
	host := b.host
	b.mu.Unlock()
	if host == nil {
		return ErrNotAttached
	}
	host.ExecJS(b.bootstrap + "\n" + body)
	return nil
}

// EvaluateScript evaluates a JavaScript expression and waits for its value
func (b *Bridge) EvaluateScript(ctx context.Context, script string) (any, error) {
	id := uuid.NewString()
	ch := make(chan reply, 1)

	b.mu.Lock()
	if b.host == nil {
		b.mu.Unlock()
		return nil, ErrNotAttached
	}
	b.pending[id] = ch
	b.mu.Unlock()

	body := fmt.Sprintf("window.%s.run(%s, function () { return (%s); });", webview.AgentGlobal, jsString(id), script)
	if err := b.exec(body); err != nil {
		b.forget(id)
		return nil, err
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		b.forget(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, webview.ErrQueryTimeout
		}
		return nil, ctx.Err()
	}
}

func (b *Bridge) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Navigate starts loading url and reports NavigationStarted right away
func (b *Bridge) Navigate(url string) error {
	if err := b.exec(fmt.Sprintf("window.%s.navigate(%s);", webview.AgentGlobal, jsString(url))); err != nil {
		return err
	}
	b.started(url)
	return nil
}

// Reload reloads the current document
func (b *Bridge) Reload() error {
	if err := b.exec(fmt.Sprintf("window.%s.reload();", webview.AgentGlobal)); err != nil {
		return err
	}
	b.started("")
	return nil
}

// ShowError overlays an error message with a Retry button on the current page
func (b *Bridge) ShowError(reason string) error {
	return b.exec(fmt.Sprintf("window.%s.showError(%s);", webview.AgentGlobal, jsString(reason)))
}

// FocusInput focuses the prompt input, if there is one
func (b *Bridge) FocusInput() error {
	return b.exec(fmt.Sprintf("window.%s.focusInput();", webview.AgentGlobal))
}

func (b *Bridge) started(url string) {
	b.mu.Lock()
	sink := b.sink
	b.inFlight = true
	b.target = url
	b.armWatchdogLocked(url)
	b.mu.Unlock()

	if sink != nil {
		sink.HandleEvent(webview.NavigationStarted{URL: url})
	}
}

func (b *Bridge) armWatchdogLocked(url string) {
	b.stopWatchdogLocked()
	if b.opts.NavigationTimeout <= 0 {
		return
	}
	gen := b.navGen
	b.watchdog = time.AfterFunc(b.opts.NavigationTimeout, func() {
		b.mu.Lock()
		if gen != b.navGen {
			b.mu.Unlock()
			return
		}
		b.watchdog = nil
		b.inFlight = false
		sink := b.sink
		b.mu.Unlock()

		logging.Warn("Navigation watchdog fired", "url", url, "timeout", b.opts.NavigationTimeout)
		if sink != nil {
			sink.HandleEvent(webview.NavigationFailed{URL: url, Reason: NavigationTimedOut})
		}
	})
}

func (b *Bridge) stopWatchdogLocked() {
	b.navGen++
	if b.watchdog != nil {
		b.watchdog.Stop()
		b.watchdog = nil
	}
}

// belongsToLoadLocked reports whether a finished report can end the load in
// flight. An agent installed into the document being left (the splash page,
// or a page showing the error overlay) reports that document, which has a
// different scheme from the target or arrives with no load in flight.
func (b *Bridge) belongsToLoadLocked(url string) bool {
	if !b.inFlight {
		return false
	}
	if b.target == "" {
		return true
	}
	return sameScheme(b.target, url)
}

func sameScheme(a, b string) bool {
	ua, err := neturl.Parse(a)
	if err != nil {
		return false
	}
	ub, err := neturl.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme)
}

func (b *Bridge) currentSink() EventSink {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sink
}

// decode converts the first event argument into out
func decode(data []any, out any) error {
	if len(data) == 0 {
		return errors.New("event has no payload")
	}
	raw, err := json.Marshal(data[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (b *Bridge) onReply(data ...any) {
	var msg struct {
		ID    string `json:"id"`
		Value any    `json:"value"`
		Error string `json:"error"`
	}
	if err := decode(data, &msg); err != nil {
		logging.Warn("Malformed reply from page agent", "error", err)
		return
	}

	b.mu.Lock()
	ch, ok := b.pending[msg.ID]
	delete(b.pending, msg.ID)
	b.mu.Unlock()
	if !ok {
		// late reply for a query that already timed out
		return
	}

	r := reply{value: msg.Value}
	if msg.Error != "" {
		r = reply{err: fmt.Errorf("script error: %s", msg.Error)}
	}
	ch <- r
}

func (b *Bridge) onNavigation(data ...any) {
	var msg struct {
		Phase string `json:"phase"`
		URL   string `json:"url"`
	}
	if err := decode(data, &msg); err != nil {
		logging.Warn("Malformed navigation event from page agent", "error", err)
		return
	}

	switch msg.Phase {
	case "started":
		b.started(msg.URL)
	case "finished":
		b.mu.Lock()
		if !b.belongsToLoadLocked(msg.URL) {
			target := b.target
			b.mu.Unlock()
			logging.Debug("Dropping finished report from another document", "url", msg.URL, "target", target)
			return
		}
		b.inFlight = false
		b.stopWatchdogLocked()
		sink := b.sink
		b.mu.Unlock()
		if sink != nil {
			sink.HandleEvent(webview.NavigationFinished{URL: msg.URL})
		}
	default:
		logging.Warn("Unknown navigation phase from page agent", "phase", msg.Phase)
	}
}

func (b *Bridge) onLocation(data ...any) {
	var msg struct {
		URL string `json:"url"`
	}
	if err := decode(data, &msg); err != nil {
		return
	}
	if sink := b.currentSink(); sink != nil {
		sink.HandleEvent(webview.LocationChanged{URL: msg.URL})
	}
}

func (b *Bridge) onFocus(data ...any) {
	var msg struct {
		Active bool `json:"active"`
	}
	if err := decode(data, &msg); err != nil {
		return
	}
	if sink := b.currentSink(); sink != nil {
		sink.SetActive(msg.Active)
	}
}

func (b *Bridge) onKey(data ...any) {
	var ev webview.KeyEvent
	if err := decode(data, &ev); err != nil {
		logging.Warn("Malformed key event from page agent", "error", err)
		return
	}
	if sink := b.currentSink(); sink != nil {
		sink.KeyDown(ev)
	}
}

func (b *Bridge) onRetryEvent(...any) {
	b.mu.Lock()
	fn := b.onRetry
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (b *Bridge) onLog(data ...any) {
	var entry logging.LogEntry
	if err := decode(data, &entry); err != nil {
		return
	}
	logging.LogFromFrontend(entry)
}

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}

package webview

import (
	"context"
	"errors"
	"sync"
	"time"

	"geminidesk/internal/logging"
)

// AgentGlobal is the window property the page-side agent installs itself under
const AgentGlobal = "__geminiDesk"

// ErrQueryTimeout is returned by renderers when a script query gets no answer in time
var ErrQueryTimeout = errors.New("script query timed out")

// Renderer is the embedded web view as seen by the controller
type Renderer interface {
	// Navigate loads url as a fresh document
	Navigate(url string) error
	// EvaluateScript evaluates a JavaScript expression in the page and returns its value
	EvaluateScript(ctx context.Context, script string) (any, error)
}

// KeyInjector synthesizes trusted keyboard input at the OS level
type KeyInjector interface {
	PostKey(key string) error
}

// SettingsSource supplies the inactivity timeout; ok is false when disabled
type SettingsSource interface {
	InactivityTimeout() (timeout time.Duration, ok bool)
}

// Config holds controller timings and the canonical home URL
type Config struct {
	HomeURL          string
	PollInterval     time.Duration
	ReadinessTimeout time.Duration
	QueryTimeout     time.Duration
	RedispatchDelay  time.Duration
	RedispatchGuard  time.Duration
}

// DefaultConfig returns the default controller configuration
func DefaultConfig() Config {
	return Config{
		HomeURL:          "https://gemini.google.com/app",
		PollInterval:     200 * time.Millisecond,
		ReadinessTimeout: 30 * time.Second,
		QueryTimeout:     time.Second,
		RedispatchDelay:  50 * time.Millisecond,
		RedispatchGuard:  250 * time.Millisecond,
	}
}

// State is a point-in-time view of the controller
type State struct {
	Load               LoadState `json:"load"`
	Ready              bool      `json:"ready"`
	Polling            bool      `json:"polling"`
	Location           string    `json:"location"`
	Active             bool      `json:"active"`
	InactivityArmed    bool      `json:"inactivityArmed"`
	InactivityDeadline time.Time `json:"inactivityDeadline,omitempty"`
	Redispatches       int       `json:"redispatches"`
}

// Controller tracks page readiness, resets the page after background
// inactivity and redispatches Enter after IME composition. All fields
// below the handler block are owned by the dispatcher goroutine.
type Controller struct {
	cfg      Config
	loop     Dispatcher
	renderer Renderer
	injector KeyInjector
	settings SettingsSource

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	onReady   func(url string)
	onFailure func(url, reason string)
	onReset   func()

	load       LoadState
	ready      bool
	location   string
	lastTarget string
	active     bool

	poll       pollCycle
	inactivity inactivityTimer
	redispatch redispatchState
}

// NewController creates a controller. Nothing runs until events arrive.
func NewController(cfg Config, loop Dispatcher, renderer Renderer, injector KeyInjector, settings SettingsSource) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:      cfg,
		loop:     loop,
		renderer: renderer,
		injector: injector,
		settings: settings,
		ctx:      ctx,
		cancel:   cancel,
		load:     LoadState{Phase: PhaseIdle},
		active:   true,
	}
}

// SetReadyHandler sets the callback invoked when the page becomes ready for input
func (c *Controller) SetReadyHandler(handler func(url string)) {
	c.mu.Lock()
	c.onReady = handler
	c.mu.Unlock()
}

// SetFailureHandler sets the callback invoked when a navigation fails
func (c *Controller) SetFailureHandler(handler func(url, reason string)) {
	c.mu.Lock()
	c.onFailure = handler
	c.mu.Unlock()
}

// SetResetHandler sets the callback invoked when the inactivity monitor navigates home
func (c *Controller) SetResetHandler(handler func()) {
	c.mu.Lock()
	c.onReset = handler
	c.mu.Unlock()
}

// HandleEvent delivers a renderer event
func (c *Controller) HandleEvent(ev RendererEvent) {
	c.loop.Post(func() { c.handleEvent(ev) })
}

// SetActive reports that the application became (true) or resigned (false) foreground
func (c *Controller) SetActive(active bool) {
	c.loop.Post(func() { c.setActive(active) })
}

// KeyDown reports a key-down seen by the page
func (c *Controller) KeyDown(ev KeyEvent) {
	c.loop.Post(func() { c.keyDown(ev) })
}

// GoHome navigates to the canonical URL
func (c *Controller) GoHome() {
	c.loop.Post(func() { c.navigate(c.cfg.HomeURL) })
}

// Retry repeats the last navigation, falling back to the canonical URL
func (c *Controller) Retry() {
	c.loop.Post(func() {
		target := c.lastTarget
		if target == "" {
			target = c.cfg.HomeURL
		}
		c.navigate(target)
	})
}

// Snapshot returns the current state. It returns the zero State if the
// loop is gone before it can answer.
func (c *Controller) Snapshot() State {
	ch := make(chan State, 1)
	c.loop.Post(func() { ch <- c.snapshot() })
	select {
	case s := <-ch:
		return s
	case <-c.ctx.Done():
		return State{}
	}
}

// Close cancels outstanding queries and timers
func (c *Controller) Close() {
	c.loop.Post(func() {
		c.stopPolling()
		c.disarmInactivity()
		c.cancelRedispatch()
	})
	c.cancel()
}

func (c *Controller) snapshot() State {
	s := State{
		Load:            c.load,
		Ready:           c.ready,
		Polling:         c.poll.active,
		Location:        c.location,
		Active:          c.active,
		InactivityArmed: c.inactivity.timer != nil,
		Redispatches:    c.redispatch.count,
	}
	if s.InactivityArmed {
		s.InactivityDeadline = c.inactivity.deadline
	}
	return s
}

func (c *Controller) handleEvent(ev RendererEvent) {
	switch e := ev.(type) {
	case NavigationStarted:
		c.setLocation(e.URL)
		c.cancelRedispatch()
		c.setLoad(LoadState{Phase: PhaseLoading})
		c.setReady(false)
		c.startPolling()

	case NavigationFinished:
		c.setLocation(e.URL)
		c.setLoad(LoadState{Phase: PhaseLoaded})
		if !c.ready {
			logging.Debug("Navigation finished before input detected, forcing ready", "url", e.URL)
			c.setReady(true)
		}
		c.stopPolling()

	case NavigationFailed:
		c.setLocation(e.URL)
		c.stopPolling()
		c.setReady(false)
		c.setLoad(LoadState{Phase: PhaseFailed, Reason: e.Reason})
		logging.Warn("Navigation failed", "url", e.URL, "reason", e.Reason)

		c.mu.Lock()
		handler := c.onFailure
		c.mu.Unlock()
		if handler != nil {
			handler(e.URL, e.Reason)
		}

	case LocationChanged:
		c.setLocation(e.URL)
	}
}

func (c *Controller) setLocation(url string) {
	if url != "" {
		c.location = url
	}
}

func (c *Controller) setLoad(s LoadState) {
	if c.load != s {
		logging.Debug("Load state changed", "from", c.load.Phase, "to", s.Phase)
	}
	c.load = s
}

func (c *Controller) setReady(ready bool) {
	if c.ready == ready {
		return
	}
	c.ready = ready
	if !ready {
		return
	}

	c.mu.Lock()
	handler := c.onReady
	c.mu.Unlock()
	if handler != nil {
		handler(c.location)
	}
}

func (c *Controller) navigate(url string) {
	c.lastTarget = url
	if err := c.renderer.Navigate(url); err != nil {
		logging.Warn("Navigate failed", "url", url, "error", err)
		c.handleEvent(NavigationFailed{URL: url, Reason: err.Error()})
	}
}

// query evaluates script off the loop and delivers the result back on it
func (c *Controller) query(script string, then func(any, error)) {
	c.loop.Go(func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.cfg.QueryTimeout)
		defer cancel()
		v, err := c.renderer.EvaluateScript(ctx, script)
		c.loop.Post(func() { then(v, err) })
	})
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

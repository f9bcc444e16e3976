package webview

import (
	"context"
	"errors"
	"sort"
	"time"
)

// manualLoop is a single-goroutine Dispatcher driven by Advance
type manualLoop struct {
	now      time.Time
	seq      int
	timers   []*manualTimer
	queue    []func()
	draining bool

	holdAsync bool
	held      []func()

	failSchedule bool
}

type manualTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func newManualLoop() *manualLoop {
	return &manualLoop{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (l *manualLoop) Post(fn func()) {
	l.queue = append(l.queue, fn)
	if l.draining {
		return
	}
	l.draining = true
	for len(l.queue) > 0 {
		next := l.queue[0]
		l.queue = l.queue[1:]
		next()
	}
	l.draining = false
}

func (l *manualLoop) AfterFunc(d time.Duration, fn func()) (Timer, error) {
	if l.failSchedule {
		return nil, errors.New("scheduling refused")
	}
	l.seq++
	t := &manualTimer{at: l.now.Add(d), seq: l.seq, fn: fn}
	l.timers = append(l.timers, t)
	return t, nil
}

func (l *manualLoop) Go(fn func()) {
	if l.holdAsync {
		l.held = append(l.held, fn)
		return
	}
	fn()
}

func (l *manualLoop) Now() time.Time {
	return l.now
}

// releaseAsync runs work that was held back while holdAsync was set
func (l *manualLoop) releaseAsync() {
	held := l.held
	l.held = nil
	for _, fn := range held {
		fn()
	}
}

// Advance moves the clock forward, firing due timers in order
func (l *manualLoop) Advance(d time.Duration) {
	target := l.now.Add(d)
	for {
		due := l.due(target)
		if due == nil {
			break
		}
		l.now = due.at
		due.fired = true
		l.Post(due.fn)
	}
	l.now = target
}

func (l *manualLoop) due(target time.Time) *manualTimer {
	var live []*manualTimer
	for _, t := range l.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	return live[0]
}

// pending counts timers that are still armed
func (l *manualLoop) pending() int {
	n := 0
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakePage stands in for the hosted document and its agent
type fakePage struct {
	navigations      []string
	navigateErr      error
	queries          map[string]int
	inputPresent     bool
	compositionEnded bool
	failQueries      bool
}

func newFakePage() *fakePage {
	return &fakePage{queries: make(map[string]int)}
}

func (p *fakePage) Navigate(url string) error {
	p.navigations = append(p.navigations, url)
	return p.navigateErr
}

func (p *fakePage) EvaluateScript(ctx context.Context, script string) (any, error) {
	p.queries[script]++
	if p.failQueries {
		return nil, ErrQueryTimeout
	}
	switch script {
	case inputCheckScript:
		return p.inputPresent, nil
	case takeCompositionScript:
		ended := p.compositionEnded
		p.compositionEnded = false
		return ended, nil
	}
	return nil, errors.New("unexpected script")
}

type fakeInjector struct {
	keys []string
	err  error
}

func (i *fakeInjector) PostKey(key string) error {
	if i.err != nil {
		return i.err
	}
	i.keys = append(i.keys, key)
	return nil
}

type fakeSettings struct {
	timeout time.Duration
	enabled bool
}

func (s *fakeSettings) InactivityTimeout() (time.Duration, bool) {
	return s.timeout, s.enabled
}

type harness struct {
	loop     *manualLoop
	page     *fakePage
	injector *fakeInjector
	settings *fakeSettings
	c        *Controller
}

func newHarness() *harness {
	h := &harness{
		loop:     newManualLoop(),
		page:     newFakePage(),
		injector: &fakeInjector{},
		settings: &fakeSettings{},
	}
	h.c = NewController(DefaultConfig(), h.loop, h.page, h.injector, h.settings)
	return h
}

package webview

import (
	"net/url"
	"strings"
	"time"

	"geminidesk/internal/logging"
)

// inactivityTimer is the one-shot background reset timer. A nil timer means disarmed.
type inactivityTimer struct {
	gen      uint64
	timer    Timer
	deadline time.Time
}

func (c *Controller) setActive(active bool) {
	c.active = active
	if active {
		c.disarmInactivity()
		return
	}
	c.armInactivity()
}

// armInactivity (re)schedules the reset timer; it never stacks timers
func (c *Controller) armInactivity() {
	c.disarmInactivity()

	timeout, ok := c.settings.InactivityTimeout()
	if !ok || timeout <= 0 {
		return
	}

	gen := c.inactivity.gen
	t, err := c.loop.AfterFunc(timeout, func() { c.inactivityFired(gen) })
	if err != nil {
		logging.Warn("Could not arm inactivity timer", "error", err)
		return
	}
	c.inactivity.timer = t
	c.inactivity.deadline = c.loop.Now().Add(timeout)
	logging.Debug("Inactivity timer armed", "timeout", timeout)
}

func (c *Controller) disarmInactivity() {
	if c.inactivity.timer != nil {
		c.inactivity.timer.Stop()
		c.inactivity.timer = nil
		logging.Debug("Inactivity timer disarmed")
	}
	c.inactivity.deadline = time.Time{}
	c.inactivity.gen++
}

func (c *Controller) inactivityFired(gen uint64) {
	if gen != c.inactivity.gen || c.inactivity.timer == nil {
		return
	}
	c.inactivity.timer = nil
	c.inactivity.deadline = time.Time{}
	c.inactivity.gen++

	if IsHome(c.location, c.cfg.HomeURL) {
		logging.Debug("Inactivity timeout reached, already home", "url", c.location)
		return
	}

	logging.Info("Inactivity timeout reached, returning home", "from", c.location)
	c.navigate(c.cfg.HomeURL)

	c.mu.Lock()
	handler := c.onReset
	c.mu.Unlock()
	if handler != nil {
		handler()
	}
}

// IsHome reports whether current has the same host and path as home.
// Scheme, query and fragment are ignored, as is a trailing slash.
func IsHome(current, home string) bool {
	cu, err := url.Parse(current)
	if err != nil || cu.Host == "" {
		return false
	}
	hu, err := url.Parse(home)
	if err != nil || hu.Host == "" {
		return false
	}
	return strings.EqualFold(cu.Host, hu.Host) && cleanPath(cu.Path) == cleanPath(hu.Path)
}

func cleanPath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

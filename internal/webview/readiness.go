package webview

import (
	"time"

	"geminidesk/internal/logging"
)

// inputCheckScript asks the agent whether an editable input surface is present
const inputCheckScript = "window." + AgentGlobal + ".hasInputSurface()"

// pollCycle is one readiness polling run. gen changes on every start and
// stop so that late timer fires and query results from an old cycle are dropped.
type pollCycle struct {
	gen      uint64
	active   bool
	started  time.Time
	timer    Timer
	inFlight bool
}

// startPolling cancels any running cycle and begins a new one
func (c *Controller) startPolling() {
	c.stopPolling()
	c.poll.active = true
	c.poll.started = c.loop.Now()
	c.schedulePoll(c.poll.gen)
}

func (c *Controller) stopPolling() {
	if c.poll.timer != nil {
		c.poll.timer.Stop()
		c.poll.timer = nil
	}
	c.poll.gen++
	c.poll.active = false
	c.poll.inFlight = false
}

func (c *Controller) schedulePoll(gen uint64) {
	t, err := c.loop.AfterFunc(c.cfg.PollInterval, func() { c.pollTick(gen) })
	if err != nil {
		logging.Warn("Could not schedule readiness poll", "error", err)
		c.stopPolling()
		return
	}
	c.poll.timer = t
}

func (c *Controller) pollTick(gen uint64) {
	if gen != c.poll.gen || !c.poll.active {
		return
	}
	c.poll.timer = nil

	if c.loop.Now().Sub(c.poll.started) >= c.cfg.ReadinessTimeout {
		logging.Info("Readiness polling timed out", "url", c.location, "after", c.cfg.ReadinessTimeout)
		c.stopPolling()
		return
	}

	c.schedulePoll(gen)

	if c.poll.inFlight {
		return
	}
	c.poll.inFlight = true
	c.query(inputCheckScript, func(v any, err error) {
		c.inputCheckResult(gen, v, err)
	})
}

func (c *Controller) inputCheckResult(gen uint64, v any, err error) {
	if gen != c.poll.gen || !c.poll.active {
		return
	}
	c.poll.inFlight = false

	if err != nil {
		logging.Debug("Input check failed, treating as not ready", "error", err)
		return
	}
	if !truthy(v) {
		return
	}

	logging.Debug("Input surface detected", "url", c.location, "after", c.loop.Now().Sub(c.poll.started))
	c.setReady(true)
	c.stopPolling()
}

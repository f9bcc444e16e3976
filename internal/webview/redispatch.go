package webview

import (
	"geminidesk/internal/logging"
)

// takeCompositionScript reads and clears the agent's "composition just ended" flag
const takeCompositionScript = "window." + AgentGlobal + ".takeCompositionEnded()"

// redispatchState tracks the delayed Enter and the guard that keeps the
// synthesized key from re-entering the pipeline
type redispatchState struct {
	pending    Timer
	guard      bool
	guardGen   uint64
	guardTimer Timer
	count      int
}

func (c *Controller) keyDown(ev KeyEvent) {
	if !ev.isSubmit() {
		return
	}

	if c.redispatch.guard {
		// This is the Enter we just synthesized.
		c.lowerGuard()
		return
	}

	c.query(takeCompositionScript, func(v any, err error) {
		if err != nil {
			logging.Debug("Composition flag query failed, not redispatching", "error", err)
			return
		}
		if !truthy(v) {
			return
		}
		c.scheduleRedispatch()
	})
}

func (c *Controller) scheduleRedispatch() {
	if c.redispatch.pending != nil {
		return
	}
	t, err := c.loop.AfterFunc(c.cfg.RedispatchDelay, c.redispatchEnter)
	if err != nil {
		logging.Warn("Could not schedule Enter redispatch", "error", err)
		return
	}
	c.redispatch.pending = t
}

func (c *Controller) redispatchEnter() {
	if c.redispatch.pending == nil {
		return
	}
	c.redispatch.pending = nil

	c.raiseGuard()
	if err := c.injector.PostKey(KeyEnter); err != nil {
		logging.Warn("Enter redispatch failed", "error", err)
		c.lowerGuard()
		return
	}
	c.redispatch.count++
	logging.Debug("Redispatched Enter after IME composition")
}

func (c *Controller) raiseGuard() {
	c.lowerGuard()
	c.redispatch.guard = true
	gen := c.redispatch.guardGen
	t, err := c.loop.AfterFunc(c.cfg.RedispatchGuard, func() {
		if gen == c.redispatch.guardGen {
			c.lowerGuard()
		}
	})
	if err == nil {
		c.redispatch.guardTimer = t
	}
}

func (c *Controller) lowerGuard() {
	if c.redispatch.guardTimer != nil {
		c.redispatch.guardTimer.Stop()
		c.redispatch.guardTimer = nil
	}
	c.redispatch.guard = false
	c.redispatch.guardGen++
}

func (c *Controller) cancelRedispatch() {
	if c.redispatch.pending != nil {
		c.redispatch.pending.Stop()
		c.redispatch.pending = nil
	}
}

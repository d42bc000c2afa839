package machine

import (
	"errors"
	"time"

	"gopkg.in/tomb.v2"
)

// ErrClockRunning indicates Start was called on a running clock.
var ErrClockRunning = errors.New("clock already running")

// Clock drives a Machine in real time: one counter increment per period
// of the counter input clock.
type Clock struct {
	m      *Machine
	period time.Duration
	t      *tomb.Tomb
}

// NewClock creates a clock for m running at rate Hz.
func NewClock(m *Machine, rate uint32) *Clock {
	if rate == 0 {
		rate = 1000
	}
	return &Clock{
		m:      m,
		period: time.Second / time.Duration(rate),
	}
}

// Start launches the clock goroutine.
func (c *Clock) Start() error {
	if c.t != nil && c.t.Alive() {
		return ErrClockRunning
	}
	c.t = &tomb.Tomb{}
	c.t.Go(c.loop)
	return nil
}

func (c *Clock) loop() error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.m.Step(1)
		case <-c.t.Dying():
			return nil
		}
	}
}

// Stop halts the clock and waits for its goroutine to exit.
func (c *Clock) Stop() error {
	if c.t == nil {
		return nil
	}
	c.t.Kill(nil)
	return c.t.Wait()
}

// Running reports whether the clock goroutine is alive.
func (c *Clock) Running() bool {
	return c.t != nil && c.t.Alive()
}

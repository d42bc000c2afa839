package timer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richardwooding/armemu/internal/irq"
	"github.com/richardwooding/armemu/internal/regbank"
)

// Mode is the clock-event device state.
type Mode int

// Clock-event modes. There is no oneshot mode.
const (
	Shutdown Mode = iota // Enable register 0, no ticks
	Periodic             // Enable register 1, periodic ticks
)

func (m Mode) String() string {
	switch m {
	case Shutdown:
		return "shutdown"
	case Periodic:
		return "periodic"
	}
	return "unknown"
}

// Feature is a clock-event capability bit.
type Feature uint

// Clock-event features.
const (
	FeaturePeriodic Feature = 1 << iota
	FeatureOneshot
)

// Clock-event registration parameters.
const (
	ClockEventName   = "armemu_tick"
	ClockEventRating = 350

	// MinDelta is the smallest safe reprogramming delta in counter ticks.
	MinDelta = 3
	// MaxDelta is the largest representable delta in counter ticks.
	MaxDelta = 0xFFFFFFFF
)

// Enable register values.
const (
	enableStopped = 0
	enableRunning = 1
)

// EventHandler is the consumer's tick callback.
type EventHandler func(ce *ClockEvent)

// ClockEvent is the periodic tick generator driving the enable register.
type ClockEvent struct {
	regs   *regbank.TimerRegs
	hw     uint32
	rate   uint32
	logger *slog.Logger

	mu      sync.Mutex
	mode    Mode
	handler EventHandler

	events atomic.Uint64
}

// NewClockEvent creates a clock-event device in Shutdown mode. hw is the
// hardware interrupt line the device raises; rate is the counter clock.
func NewClockEvent(regs *regbank.TimerRegs, hw, rate uint32, logger *slog.Logger) *ClockEvent {
	if rate == 0 {
		rate = DefaultRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClockEvent{
		regs:   regs,
		hw:     hw,
		rate:   rate,
		logger: logger,
		mode:   Shutdown,
	}
}

// Name returns the device name.
func (c *ClockEvent) Name() string { return ClockEventName }

// Rating returns the device rating.
func (c *ClockEvent) Rating() int { return ClockEventRating }

// Features returns the supported features.
func (c *ClockEvent) Features() Feature { return FeaturePeriodic }

// HWIRQ returns the hardware line the device raises.
func (c *ClockEvent) HWIRQ() uint32 { return c.hw }

// Rate returns the counter clock in Hz.
func (c *ClockEvent) Rate() uint32 { return c.rate }

// MinDeltaNs returns MinDelta converted to nanoseconds.
func (c *ClockEvent) MinDeltaNs() time.Duration {
	return c.ticksToDuration(MinDelta)
}

// MaxDeltaNs returns MaxDelta converted to nanoseconds.
func (c *ClockEvent) MaxDeltaNs() time.Duration {
	return c.ticksToDuration(MaxDelta)
}

func (c *ClockEvent) ticksToDuration(ticks uint64) time.Duration {
	return time.Duration(ticks * uint64(time.Second) / uint64(c.rate)) //nolint:gosec // ticks fit in 32 bits
}

// Mode returns the current state.
func (c *ClockEvent) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetPeriodic starts periodic ticking. The counter is not touched.
func (c *ClockEvent) SetPeriodic() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.regs.WriteEnable(enableRunning)
	if c.mode != Periodic {
		c.logger.Debug("timer: set periodic", "rate", c.rate)
	}
	c.mode = Periodic
	return nil
}

// Shutdown stops ticking.
func (c *ClockEvent) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.regs.WriteEnable(enableStopped)
	c.mode = Shutdown
	return nil
}

// Resume is called when the tick resumes after suspend. The device comes
// back stopped; the consumer re-selects a mode.
func (c *ClockEvent) Resume() error {
	return c.Shutdown()
}

// SetNextEvent accepts a oneshot request and ignores it. The device only
// ticks periodically, so no event is scheduled for delta.
func (c *ClockEvent) SetNextEvent(delta uint32) error {
	c.logger.Debug("timer: next event ignored", "delta", delta)
	return nil
}

// SetEventHandler installs the consumer's tick callback.
func (c *ClockEvent) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// HandleInterrupt is the timer line's interrupt handler. It runs the
// consumer's callback synchronously.
func (c *ClockEvent) HandleInterrupt(uint32) irq.Return {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()

	c.events.Add(1)
	if h != nil {
		h(c)
	}
	return irq.Handled
}

// Events returns the number of tick interrupts handled.
func (c *ClockEvent) Events() uint64 {
	return c.events.Load()
}

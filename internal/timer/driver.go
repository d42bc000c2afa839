package timer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/richardwooding/armemu/internal/irq"
	"github.com/richardwooding/armemu/internal/regbank"
)

var (
	// ErrRegistration indicates the scheduler rejected a timer component.
	ErrRegistration = errors.New("timer registration failed")

	// ErrNoIRQ indicates the timer's interrupt line could not be resolved.
	ErrNoIRQ = errors.New("timer interrupt line not mapped")
)

// Scheduler is the consumer of the timer's clocks.
type Scheduler interface {
	RegisterSchedClock(sc *SchedClock) error
	RegisterClocksource(cs *Clocksource) error
	RegisterClockEvent(ce *ClockEvent) error
}

// Config describes the timer for Init.
type Config struct {
	Name      string
	Regs      *regbank.TimerRegs
	Framework *irq.Framework
	Domain    *irq.Domain
	HWIRQ     uint32 // Line the timer raises
	Rate      uint32 // Counter clock in Hz
	Logger    *slog.Logger
}

// Driver is an initialized timer.
type Driver struct {
	Counter     *Counter
	Clocksource *Clocksource
	SchedClock  *SchedClock
	ClockEvent  *ClockEvent

	virq uint32
}

// Virq returns the timer's virtual interrupt line.
func (d *Driver) Virq() uint32 {
	return d.virq
}

// Init brings up the timer: registers the sched clock and clocksource,
// stops the timer, requests its interrupt line and registers the
// clock-event device with sched.
func Init(cfg Config, sched Scheduler) (*Driver, error) {
	if cfg.Rate == 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Name == "" {
		cfg.Name = "armemu-timer"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	virq, ok := cfg.Domain.Find(cfg.HWIRQ)
	if !ok {
		return nil, fmt.Errorf("%w: hwirq %d", ErrNoIRQ, cfg.HWIRQ)
	}

	counter := NewCounter(cfg.Regs)
	d := &Driver{
		Counter:     counter,
		Clocksource: NewClocksource(cfg.Name, counter, cfg.Rate),
		SchedClock:  NewSchedClock(counter.Read, SchedClockBits, SchedClockRate),
		ClockEvent:  NewClockEvent(cfg.Regs, cfg.HWIRQ, cfg.Rate, logger),
		virq:        virq,
	}

	if err := sched.RegisterSchedClock(d.SchedClock); err != nil {
		return nil, fmt.Errorf("%w: sched clock: %w", ErrRegistration, err)
	}
	if err := sched.RegisterClocksource(d.Clocksource); err != nil {
		return nil, fmt.Errorf("%w: clocksource: %w", ErrRegistration, err)
	}

	// Make sure the timer is stopped before its line is unmasked
	_ = d.ClockEvent.Shutdown()

	if err := cfg.Framework.Request(virq, ClockEventName, d.ClockEvent.HandleInterrupt); err != nil {
		return nil, fmt.Errorf("request timer irq: %w", err)
	}

	if err := sched.RegisterClockEvent(d.ClockEvent); err != nil {
		_ = cfg.Framework.Free(virq)
		return nil, fmt.Errorf("%w: clock event: %w", ErrRegistration, err)
	}

	logger.Info("timer: initialized",
		"name", cfg.Name,
		"rate", cfg.Rate,
		"hwirq", cfg.HWIRQ,
		"virq", virq)
	return d, nil
}

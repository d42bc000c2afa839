// Package emulator provides the platform bring-up that ties together the
// interrupt controller, the system timer and the emulated hardware.
package emulator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/richardwooding/armemu/internal/irq"
	"github.com/richardwooding/armemu/internal/machine"
	"github.com/richardwooding/armemu/internal/memory"
	"github.com/richardwooding/armemu/internal/platform"
	"github.com/richardwooding/armemu/internal/regbank"
	"github.com/richardwooding/armemu/internal/timer"
)

var (
	// ErrFatalInit indicates platform bring-up cannot continue.
	ErrFatalInit = errors.New("fatal platform initialization failure")
)

// Callbacks is the surface exposed to the runtime using the platform.
type Callbacks struct {
	// OnTick is called for every clock-event tick with the timer's line.
	OnTick func(hw uint32)
	// OnLineFired is called when any other requested line is serviced.
	OnLineFired func(hw uint32)
}

// Option configures an Emulator.
type Option func(*options)

type options struct {
	sched  timer.Scheduler
	logger *slog.Logger
}

// WithScheduler replaces the built-in tick scheduler.
func WithScheduler(s timer.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// WithLogger sets the logger used by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Emulator is a brought-up platform instance.
type Emulator struct {
	cfg    *platform.Config
	cb     Callbacks
	logger *slog.Logger

	bus     *memory.Bus
	machine *machine.Machine

	icRegs    *regbank.IRQRegs
	timerRegs *regbank.TimerRegs

	ctrl       *irq.Controller
	fw         *irq.Framework
	domain     *irq.Domain
	dispatcher *irq.Dispatcher

	timer *timer.Driver
	clock *machine.Clock
}

// New brings up the platform described by cfg. The interrupt controller
// comes up first, fully masked, then the timer registers with the
// scheduler, then the extra lines in cfg are requested.
func New(cfg *platform.Config, cb Callbacks, opts ...Option) (*Emulator, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if cfg == nil {
		cfg = platform.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFatalInit, err)
	}

	e := &Emulator{
		cfg:    cfg,
		cb:     cb,
		logger: o.logger,
		bus:    memory.NewBus(),
	}
	if o.sched == nil {
		o.sched = &tickScheduler{e: e}
	}

	if err := e.attachDevices(); err != nil {
		return nil, err
	}
	if err := e.initIC(); err != nil {
		return nil, err
	}
	if err := e.initTimer(o.sched); err != nil {
		// Interrupts never get enabled without a working tick
		e.disableIRQ()
		return nil, err
	}
	for _, hw := range cfg.Lines {
		if err := e.RequestLine(hw); err != nil {
			e.disableIRQ()
			return nil, fmt.Errorf("request line %d: %w", hw, err)
		}
	}

	return e, nil
}

func (e *Emulator) disableIRQ() {
	if e.machine != nil {
		e.machine.SetHandleIRQ(nil)
	}
}

// attachDevices creates the register blocks this platform owns and maps
// them at the bases the description gives.
func (e *Emulator) attachDevices() error {
	for _, b := range e.cfg.Bindings {
		var dev memory.Device
		switch b.Compatible {
		case platform.CompatibleIC:
			dev = regbank.NewIRQRegs(regbank.NewBlock())
		case platform.CompatibleTimer:
			dev = regbank.NewTimerRegs(regbank.NewBlock())
		default:
			e.logger.Warn("emulator: ignoring unknown binding", "compatible", b.Compatible)
			continue
		}
		if err := e.bus.Attach(b.Compatible, b.Reg, regbank.Size, dev); err != nil {
			return fmt.Errorf("%w: %w", ErrFatalInit, err)
		}
	}
	return nil
}

// iomap resolves a binding to its mapped register block.
func (e *Emulator) iomap(compatible string) (*platform.Binding, memory.Device, error) {
	b, err := e.cfg.Lookup(compatible)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFatalInit, err)
	}
	dev, err := e.bus.Map(b.Reg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrFatalInit, compatible, err)
	}
	return b, dev, nil
}

func (e *Emulator) initIC() error {
	b, dev, err := e.iomap(platform.CompatibleIC)
	if err != nil {
		return err
	}
	regs, ok := dev.(*regbank.IRQRegs)
	if !ok {
		return fmt.Errorf("%w: %s: unable to map IC registers", ErrFatalInit, platform.CompatibleIC)
	}
	e.icRegs = regs
	e.ctrl = irq.NewController(regs)

	// Mask every line and clear every pending bit before the domain is live
	e.ctrl.Reset()

	e.fw = irq.NewFramework(e.logger)
	e.domain, err = irq.NewLinearDomain(platform.CompatibleIC, irq.DomainSize, e.fw, e.ctrl)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFatalInit, err)
	}
	e.dispatcher = irq.NewDispatcher(regs, e.domain, e.fw)

	e.logger.Info("emulator: interrupt controller up",
		"base", fmt.Sprintf("0x%08X", b.Reg),
		"lines", e.domain.Size())
	return nil
}

func (e *Emulator) initTimer(sched timer.Scheduler) error {
	b, dev, err := e.iomap(platform.CompatibleTimer)
	if err != nil {
		return err
	}
	regs, ok := dev.(*regbank.TimerRegs)
	if !ok {
		return fmt.Errorf("%w: %s: unable to map timer registers", ErrFatalInit, platform.CompatibleTimer)
	}
	e.timerRegs = regs

	hw, err := e.domain.XlateOneCell(b.Interrupts)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFatalInit, platform.CompatibleTimer, err)
	}

	// The hardware exists before software touches it; the entry hook is
	// installed once the controller is up.
	e.machine = machine.New(e.icRegs, regs, hw, e.cfg.TickPeriod)
	e.machine.SetHandleIRQ(e.dispatcher.Handle)
	e.clock = machine.NewClock(e.machine, b.ClockFrequency)

	e.timer, err = timer.Init(timer.Config{
		Name:      platform.CompatibleTimer,
		Regs:      regs,
		Framework: e.fw,
		Domain:    e.domain,
		HWIRQ:     hw,
		Rate:      b.ClockFrequency,
		Logger:    e.logger,
	}, sched)
	return err
}

// RequestLine installs the OnLineFired handler on hardware line hw.
func (e *Emulator) RequestLine(hw uint32) error {
	virq, ok := e.domain.Find(hw)
	if !ok {
		return fmt.Errorf("%w: %d", irq.ErrLineOutOfRange, hw)
	}
	return e.fw.Request(virq, fmt.Sprintf("line%d", hw), func(uint32) irq.Return {
		if e.cb.OnLineFired != nil {
			e.cb.OnLineFired(hw)
		}
		return irq.Handled
	})
}

// FreeLine removes the handler from hardware line hw and masks it.
func (e *Emulator) FreeLine(hw uint32) error {
	virq, ok := e.domain.Find(hw)
	if !ok {
		return fmt.Errorf("%w: %d", irq.ErrLineOutOfRange, hw)
	}
	return e.fw.Free(virq)
}

// Step advances the hardware n counter increments, taking interrupts as
// they become pending.
func (e *Emulator) Step(n uint32) {
	e.machine.Step(n)
}

// Raise simulates a device asserting hardware line hw and services it.
func (e *Emulator) Raise(hw uint32) {
	e.machine.Raise(hw)
	e.machine.Service()
}

// Config returns the platform description.
func (e *Emulator) Config() *platform.Config { return e.cfg }

// Bus returns the address space.
func (e *Emulator) Bus() *memory.Bus { return e.bus }

// Machine returns the hardware model.
func (e *Emulator) Machine() *machine.Machine { return e.machine }

// Controller returns the interrupt line controller.
func (e *Emulator) Controller() *irq.Controller { return e.ctrl }

// IRQRegs returns the interrupt controller registers.
func (e *Emulator) IRQRegs() *regbank.IRQRegs { return e.icRegs }

// TimerRegs returns the timer registers.
func (e *Emulator) TimerRegs() *regbank.TimerRegs { return e.timerRegs }

// Framework returns the generic interrupt framework.
func (e *Emulator) Framework() *irq.Framework { return e.fw }

// Domain returns the interrupt domain.
func (e *Emulator) Domain() *irq.Domain { return e.domain }

// Dispatcher returns the interrupt entry dispatcher.
func (e *Emulator) Dispatcher() *irq.Dispatcher { return e.dispatcher }

// Timer returns the timer driver.
func (e *Emulator) Timer() *timer.Driver { return e.timer }

// ClockEvent returns the clock-event device.
func (e *Emulator) ClockEvent() *timer.ClockEvent { return e.timer.ClockEvent }

// Counter returns the free-running counter.
func (e *Emulator) Counter() *timer.Counter { return e.timer.Counter }

// SchedClock returns the scheduler clock.
func (e *Emulator) SchedClock() *timer.SchedClock { return e.timer.SchedClock }

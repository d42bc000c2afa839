package scenario

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/richardwooding/armemu/internal/irq"
	"github.com/richardwooding/armemu/internal/machine"
	"github.com/richardwooding/armemu/internal/regbank"
	"github.com/richardwooding/armemu/internal/timer"
)

// Result represents the result of running a scenario.
type Result struct {
	Name   string
	Output string
	Steps  int // Steps executed, including a failing one
	Passed bool
	Failed bool
	Error  error
}

// bench is the hardware a scenario runs on. The dispatcher forwards into a
// recorder that never acknowledges, so lines stay pending until a step
// acks them.
type bench struct {
	ic      *regbank.IRQRegs
	tm      *regbank.TimerRegs
	ctrl    *irq.Controller
	domain  *irq.Domain
	entry   *irq.Dispatcher
	machine *machine.Machine
	ce      *timer.ClockEvent

	forwarded []uint32
}

func newBench(s *Scenario) (*bench, error) {
	logger := slog.New(slog.DiscardHandler)

	b := &bench{
		ic: regbank.NewIRQRegs(regbank.NewBlock()),
		tm: regbank.NewTimerRegs(regbank.NewBlock()),
	}
	b.ctrl = irq.NewController(b.ic)
	b.ctrl.Reset()

	domain, err := irq.NewLinearDomain("scenario", irq.DomainSize, irq.NewFramework(logger), b.ctrl)
	if err != nil {
		return nil, err
	}
	b.domain = domain
	b.entry = irq.NewDispatcher(b.ic, domain, irq.ForwarderFunc(func(virq uint32) {
		if hw, ok := domain.HWIRQ(virq); ok {
			b.forwarded = append(b.forwarded, hw)
		}
	}))

	b.machine = machine.New(b.ic, b.tm, s.TimerLine, s.TickPeriod)
	b.ce = timer.NewClockEvent(b.tm, s.TimerLine, timer.DefaultRate, logger)
	return b, nil
}

// Run executes a scenario file and returns the result.
func Run(path string) *Result {
	s, err := Load(path)
	if err != nil {
		return &Result{Name: path, Error: err}
	}
	return s.Run()
}

// RunBytes executes a scenario document and returns the result.
func RunBytes(data []byte) *Result {
	s, err := Parse(data)
	if err != nil {
		return &Result{Error: err}
	}
	return s.Run()
}

// Run executes the scenario on fresh hardware. Execution stops at the
// first failing step.
func (s *Scenario) Run() *Result {
	result := &Result{Name: s.Name}

	b, err := newBench(s)
	if err != nil {
		result.Error = fmt.Errorf("failed to set up hardware: %w", err)
		return result
	}

	var out strings.Builder
	for i := range s.Steps {
		result.Steps++
		msg, err := b.exec(&s.Steps[i])
		if err != nil {
			fmt.Fprintf(&out, "%3d  Failed: %v\n", i+1, err)
			result.Failed = true
			break
		}
		fmt.Fprintf(&out, "%3d  %s\n", i+1, msg)
	}
	if !result.Failed {
		out.WriteString("Passed\n")
		result.Passed = true
	}

	result.Output = out.String()
	return result
}

func (b *bench) exec(st *Step) (string, error) {
	switch {
	case len(st.Unmask) > 0:
		for _, hw := range st.Unmask {
			b.ctrl.Unmask(hw)
		}
		return fmt.Sprintf("unmask %v", st.Unmask), nil

	case len(st.Mask) > 0:
		for _, hw := range st.Mask {
			b.ctrl.Mask(hw)
		}
		return fmt.Sprintf("mask %v", st.Mask), nil

	case len(st.Ack) > 0:
		for _, hw := range st.Ack {
			b.ctrl.Ack(hw)
		}
		return fmt.Sprintf("ack %v", st.Ack), nil

	case len(st.Raise) > 0:
		for _, hw := range st.Raise {
			b.machine.Raise(hw)
		}
		return fmt.Sprintf("raise %v", st.Raise), nil

	case st.Dispatch != nil:
		return b.dispatch(*st.Dispatch)

	case st.Advance > 0:
		b.machine.Advance(st.Advance)
		return fmt.Sprintf("advance %d (counter %d)", st.Advance, b.tm.ReadCounter()), nil

	case st.Periodic:
		if err := b.ce.SetPeriodic(); err != nil {
			return "", err
		}
		return "periodic", nil

	case st.Shutdown:
		if err := b.ce.Shutdown(); err != nil {
			return "", err
		}
		return "shutdown", nil

	case st.Expect != nil:
		return "expect ok", b.expect(st.Expect)
	}
	return "", fmt.Errorf("%w: empty step", ErrInvalidScenario)
}

func (b *bench) dispatch(want Line) (string, error) {
	b.forwarded = b.forwarded[:0]
	b.entry.Handle()

	switch {
	case len(b.forwarded) > 1:
		return "", fmt.Errorf("dispatch forwarded %v, want a single line", b.forwarded)
	case want.None && len(b.forwarded) == 1:
		return "", fmt.Errorf("dispatch forwarded %d, want none", b.forwarded[0])
	case !want.None && len(b.forwarded) == 0:
		return "", fmt.Errorf("dispatch forwarded none, want %d", want.HW)
	case !want.None && b.forwarded[0] != want.HW:
		return "", fmt.Errorf("dispatch forwarded %d, want %d", b.forwarded[0], want.HW)
	}
	return "dispatch -> " + want.String(), nil
}

func (b *bench) expect(e *Expect) error {
	if e.Pending != nil {
		if got := b.ic.ReadPending(); got != *e.Pending {
			return fmt.Errorf("pending = 0x%08X, want 0x%08X", got, *e.Pending)
		}
	}
	if e.Mask != nil {
		if got := b.ic.ReadMask(); got != *e.Mask {
			return fmt.Errorf("mask = 0x%08X, want 0x%08X", got, *e.Mask)
		}
	}
	if e.Enable != nil {
		if got := b.tm.ReadEnable(); got != *e.Enable {
			return fmt.Errorf("enable = %d, want %d", got, *e.Enable)
		}
	}
	if e.Counter != nil {
		if got := b.tm.ReadCounter(); got != *e.Counter {
			return fmt.Errorf("counter = %d, want %d", got, *e.Counter)
		}
	}
	if e.Ticks != nil {
		if got, _ := b.machine.Stats(); got != *e.Ticks {
			return fmt.Errorf("ticks = %d, want %d", got, *e.Ticks)
		}
	}
	return nil
}

// String returns a human-readable representation of the result.
func (r *Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("ERROR: %v", r.Error)
	}

	if r.Passed {
		return "PASSED"
	}

	if r.Failed {
		return "FAILED"
	}

	return "UNKNOWN"
}

// IsSuccess returns true if the scenario passed.
func (r *Result) IsSuccess() bool {
	return r.Passed && !r.Failed && r.Error == nil
}

package emulator

import (
	"time"

	"github.com/richardwooding/armemu/internal/irq"
	"github.com/richardwooding/armemu/internal/timer"
)

// State is a point-in-time view of the platform registers and counters.
type State struct {
	Mask    uint32
	Pending uint32
	Counter uint32
	Enable  uint32

	Mode       timer.Mode
	SchedClock time.Duration
	TickPeriod uint32

	Ticks   uint64 // Timer ticks raised by the hardware
	Entries uint64 // Interrupt entries taken
	Events  uint64 // Clock-event interrupts handled

	Lines []irq.LineStats
}

// Snapshot captures the current state.
func (e *Emulator) Snapshot() State {
	ticks, entries := e.machine.Stats()
	return State{
		Mask:       e.icRegs.ReadMask(),
		Pending:    e.icRegs.ReadPending(),
		Counter:    e.timerRegs.ReadCounter(),
		Enable:     e.timerRegs.ReadEnable(),
		Mode:       e.timer.ClockEvent.Mode(),
		SchedClock: e.timer.SchedClock.Now(),
		TickPeriod: e.machine.TickPeriod(),
		Ticks:      ticks,
		Entries:    entries,
		Events:     e.timer.ClockEvent.Events(),
		Lines:      e.fw.Requested(),
	}
}

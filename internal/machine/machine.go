// Package machine models the hardware side of the emulated platform: the
// timer's counter input clock, device interrupt requests latching into the
// pending register and the CPU's interrupt input, which enters the
// installed interrupt handler while any unmasked line is pending.
package machine

import (
	"sync"

	"github.com/richardwooding/armemu/internal/regbank"
)

// DefaultTickPeriod is the number of counter increments per timer tick.
const DefaultTickPeriod = 10

// MaxEntriesPerStep bounds how often Service re-enters the interrupt
// handler before returning, so a line nobody acknowledges cannot wedge
// the machine.
const MaxEntriesPerStep = 64

// EntryHook is the top-level interrupt entry point. It reports whether it
// serviced a line.
type EntryHook func() bool

// Machine is the emulated hardware.
type Machine struct {
	mu sync.Mutex

	ic    *regbank.IRQRegs
	timer *regbank.TimerRegs

	timerLine  uint32
	tickPeriod uint32
	sinceTick  uint32

	handleIRQ EntryHook

	ticks   uint64 // Timer ticks raised
	entries uint64 // Interrupt entries taken
}

// New creates the hardware model. timerLine is the controller line the
// timer raises; tickPeriod is the number of counter increments per tick.
func New(ic *regbank.IRQRegs, timer *regbank.TimerRegs, timerLine, tickPeriod uint32) *Machine {
	if tickPeriod == 0 {
		tickPeriod = DefaultTickPeriod
	}
	return &Machine{
		ic:         ic,
		timer:      timer,
		timerLine:  timerLine,
		tickPeriod: tickPeriod,
	}
}

// SetHandleIRQ installs the interrupt entry hook. A nil hook leaves
// interrupts disabled.
func (m *Machine) SetHandleIRQ(h EntryHook) {
	m.mu.Lock()
	m.handleIRQ = h
	m.mu.Unlock()
}

// TickPeriod returns the number of counter increments per timer tick.
func (m *Machine) TickPeriod() uint32 {
	return m.tickPeriod
}

// Raise latches a device request on line hw. Lines outside the first bank
// have no pending bit and are dropped.
func (m *Machine) Raise(hw uint32) {
	if hw >= 32 {
		return
	}
	m.ic.SetPendingBits(1 << hw)
}

// Advance clocks the counter n times. Every tickPeriod increments while the
// enable register is set, the timer raises its line.
func (m *Machine) Advance(n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := uint32(0); i < n; i++ {
		m.timer.AdvanceCounter(1)

		if m.timer.ReadEnable()&1 == 0 {
			m.sinceTick = 0
			continue
		}
		m.sinceTick++
		if m.sinceTick >= m.tickPeriod {
			m.sinceTick = 0
			m.ticks++
			m.Raise(m.timerLine)
		}
	}
}

// Service takes interrupt entries while any unmasked line is pending, up to
// MaxEntriesPerStep. It returns the number of entries taken.
func (m *Machine) Service() int {
	m.mu.Lock()
	h := m.handleIRQ
	m.mu.Unlock()

	if h == nil {
		return 0
	}

	n := 0
	for n < MaxEntriesPerStep && m.ic.Active() != 0 {
		if !h() {
			break
		}
		n++
	}

	m.mu.Lock()
	m.entries += uint64(n) //nolint:gosec // n is bounded
	m.mu.Unlock()
	return n
}

// Step advances the counter n times, servicing interrupts after every
// increment, as the CPU would between instructions.
func (m *Machine) Step(n uint32) {
	for i := uint32(0); i < n; i++ {
		m.Advance(1)
		m.Service()
	}
}

// Stats returns the number of timer ticks raised and interrupt entries
// taken so far.
func (m *Machine) Stats() (ticks, entries uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks, m.entries
}

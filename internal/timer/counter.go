// Package timer implements the emulated system timer.
//
// The timer consists of:
//   - Counter: a free-running 32-bit counter (offset 0x00, read-only)
//   - Enable: the clock-event enable register (offset 0x04, 0=stopped, 1=running)
//
// Software sees the counter three ways: as a raw Counter, as a Clocksource
// for elapsed time measurement and as a SchedClock for the scheduler's
// coarse clock. The enable register is driven by the ClockEvent state
// machine, which produces the periodic tick.
package timer

import (
	"sync"
	"time"

	"github.com/richardwooding/armemu/internal/regbank"
)

// Externally observed clock constants.
const (
	SchedClockBits = 32   // Sched clock counter width
	SchedClockRate = 1000 // Sched clock units per second

	ClocksourceRating = 350 // Rating among competing clocksources
	ClocksourceBits   = 32

	// DefaultRate is the counter input clock in Hz when the platform
	// does not specify one.
	DefaultRate = 1000
)

// Counter is the read-only view of the free-running counter.
type Counter struct {
	regs *regbank.TimerRegs
}

// NewCounter creates a counter on the given timer registers.
func NewCounter(regs *regbank.TimerRegs) *Counter {
	return &Counter{regs: regs}
}

// Read returns the raw counter register.
func (c *Counter) Read() uint32 {
	return c.regs.ReadCounter()
}

// Clocksource publishes the counter for elapsed time measurement.
type Clocksource struct {
	Name   string
	Rating int
	Bits   uint
	Rate   uint32 // Hz

	counter *Counter
}

// NewClocksource creates a clocksource reading counter at rate Hz.
func NewClocksource(name string, counter *Counter, rate uint32) *Clocksource {
	if rate == 0 {
		rate = DefaultRate
	}
	return &Clocksource{
		Name:    name,
		Rating:  ClocksourceRating,
		Bits:    ClocksourceBits,
		Rate:    rate,
		counter: counter,
	}
}

// Read returns the current counter value.
func (c *Clocksource) Read() uint64 {
	return uint64(c.counter.Read())
}

// Mask returns the mask of valid counter bits.
func (c *Clocksource) Mask() uint64 {
	return 1<<c.Bits - 1
}

// Delta returns the cycles elapsed from prev to now, across at most one
// wraparound.
func (c *Clocksource) Delta(prev, now uint64) uint64 {
	return (now - prev) & c.Mask()
}

// ToDuration converts a cycle count to a duration.
func (c *Clocksource) ToDuration(cycles uint64) time.Duration {
	return time.Duration(cycles * uint64(time.Second) / uint64(c.Rate)) //nolint:gosec // cycles fit in 32 bits
}

// SchedClock is the scheduler's coarse clock. It extends the 32-bit
// counter to a monotonic duration by accumulating from an epoch that is
// moved forward on every read, so it stays correct across wraparound as
// long as it is read at least once per wrap period.
type SchedClock struct {
	mu sync.Mutex

	read       func() uint32
	bits       uint
	rate       uint32
	nsPerCycle uint64

	epochCyc uint32
	epochNs  uint64
}

// NewSchedClock creates a sched clock over read with the given width and
// rate in units per second.
func NewSchedClock(read func() uint32, bits uint, rate uint32) *SchedClock {
	if rate == 0 {
		rate = SchedClockRate
	}
	s := &SchedClock{
		read:       read,
		bits:       bits,
		rate:       rate,
		nsPerCycle: uint64(time.Second) / uint64(rate),
	}
	s.epochCyc = read()
	return s
}

// Bits returns the counter width.
func (s *SchedClock) Bits() uint {
	return s.bits
}

// Rate returns the number of counter units per second.
func (s *SchedClock) Rate() uint32 {
	return s.rate
}

func (s *SchedClock) mask() uint32 {
	if s.bits >= 32 {
		return regbank.AllOnes
	}
	return 1<<s.bits - 1
}

// Now returns the time elapsed since the clock was created.
func (s *SchedClock) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	cyc := s.read()
	delta := (cyc - s.epochCyc) & s.mask()
	s.epochNs += uint64(delta) * s.nsPerCycle
	s.epochCyc = cyc
	return time.Duration(s.epochNs) //nolint:gosec // wraps after ~292 years
}

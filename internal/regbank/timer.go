package regbank

// TimerRegs is the system timer's view of a register block.
type TimerRegs struct {
	b *Block
}

// NewTimerRegs wraps a block as timer registers.
func NewTimerRegs(b *Block) *TimerRegs {
	return &TimerRegs{b: b}
}

// ReadCounter reads the free-running counter.
func (r *TimerRegs) ReadCounter() uint32 {
	return r.b.Read32(CounterOffset)
}

// ReadEnable reads the enable register.
func (r *TimerRegs) ReadEnable() uint32 {
	return r.b.Read32(EnableOffset)
}

// WriteEnable writes the enable register.
func (r *TimerRegs) WriteEnable(v uint32) {
	r.b.Write32(EnableOffset, v)
}

// AdvanceCounter adds n to the counter and returns the new value.
// The counter wraps at 2^32. Only the emulated hardware calls this.
func (r *TimerRegs) AdvanceCounter(n uint32) uint32 {
	return r.b.update(CounterOffset, func(v uint32) uint32 { return v + n })
}

// Write32 is the software MMIO path for the timer block. The counter is
// read-only from software, so writes to it are dropped.
func (r *TimerRegs) Write32(offset, value uint32) {
	if offset == CounterOffset {
		return
	}
	r.b.Write32(offset, value)
}

// Read32 is the software MMIO read path for the timer block.
func (r *TimerRegs) Read32(offset uint32) uint32 {
	return r.b.Read32(offset)
}

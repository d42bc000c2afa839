package regbank

// IRQRegs is the interrupt controller's view of a register block.
type IRQRegs struct {
	b *Block
}

// NewIRQRegs wraps a block as interrupt controller registers.
func NewIRQRegs(b *Block) *IRQRegs {
	return &IRQRegs{b: b}
}

// ReadMask reads the interrupt mask register.
func (r *IRQRegs) ReadMask() uint32 {
	return r.b.Read32(MaskOffset)
}

// WriteMask writes the interrupt mask register.
func (r *IRQRegs) WriteMask(v uint32) {
	r.b.Write32(MaskOffset, v)
}

// ReadPending reads the interrupt pending register.
func (r *IRQRegs) ReadPending() uint32 {
	return r.b.Read32(PendingOffset)
}

// WritePending writes the interrupt pending register.
func (r *IRQRegs) WritePending(v uint32) {
	r.b.Write32(PendingOffset, v)
}

// SetMaskBits atomically performs mask |= bits.
func (r *IRQRegs) SetMaskBits(bits uint32) uint32 {
	return r.b.update(MaskOffset, func(v uint32) uint32 { return v | bits })
}

// ClearMaskBits atomically performs mask &^= bits.
func (r *IRQRegs) ClearMaskBits(bits uint32) uint32 {
	return r.b.update(MaskOffset, func(v uint32) uint32 { return v &^ bits })
}

// SetPendingBits atomically performs pending |= bits. This is the hardware
// side of the controller: devices latch their request here.
func (r *IRQRegs) SetPendingBits(bits uint32) uint32 {
	return r.b.update(PendingOffset, func(v uint32) uint32 { return v | bits })
}

// ClearPendingBits atomically performs pending &^= bits.
func (r *IRQRegs) ClearPendingBits(bits uint32) uint32 {
	return r.b.update(PendingOffset, func(v uint32) uint32 { return v &^ bits })
}

// Active returns pending &^ mask, taken as one snapshot under the block lock.
func (r *IRQRegs) Active() uint32 {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return r.b.words[1] &^ r.b.words[0]
}

// Read32 is the software MMIO read path for the controller block.
func (r *IRQRegs) Read32(offset uint32) uint32 {
	return r.b.Read32(offset)
}

// Write32 is the software MMIO write path for the controller block.
func (r *IRQRegs) Write32(offset, value uint32) {
	r.b.Write32(offset, value)
}

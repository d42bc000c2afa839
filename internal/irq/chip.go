package irq

import "github.com/richardwooding/armemu/internal/regbank"

// Chip is the per-controller line operation set plugged into the framework.
type Chip interface {
	Name() string
	Ack(hw uint32)
	Mask(hw uint32)
	Unmask(hw uint32)
}

// ChipName is the name the controller registers its lines under.
const ChipName = "armemu_irq"

// Controller performs line operations on the mask and pending registers.
// It holds no state of its own: every query goes to the registers.
type Controller struct {
	regs *regbank.IRQRegs
}

// NewController creates a line controller on the given registers.
func NewController(regs *regbank.IRQRegs) *Controller {
	return &Controller{regs: regs}
}

// Name implements Chip.
func (c *Controller) Name() string {
	return ChipName
}

// lineBit returns the register bit for a hardware line. Lines outside the
// first bank have no backing bit.
func lineBit(hw uint32) (uint32, bool) {
	if hw >= LinesPerBank {
		return 0, false
	}
	return 1 << hw, true
}

// Ack clears the line's pending bit (end of interrupt).
func (c *Controller) Ack(hw uint32) {
	if bit, ok := lineBit(hw); ok {
		c.regs.ClearPendingBits(bit)
	}
}

// Mask sets the line's mask bit.
func (c *Controller) Mask(hw uint32) {
	if bit, ok := lineBit(hw); ok {
		c.regs.SetMaskBits(bit)
	}
}

// Unmask clears the line's mask bit.
func (c *Controller) Unmask(hw uint32) {
	if bit, ok := lineBit(hw); ok {
		c.regs.ClearMaskBits(bit)
	}
}

// Reset masks every line and clears every pending bit.
// It must run before the domain goes live.
func (c *Controller) Reset() {
	c.regs.WriteMask(regbank.AllOnes)
	c.regs.WritePending(0)
}

// Masked reports whether the line is masked. Lines without a backing bit
// are always masked.
func (c *Controller) Masked(hw uint32) bool {
	bit, ok := lineBit(hw)
	if !ok {
		return true
	}
	return c.regs.ReadMask()&bit != 0
}

// Pending reports whether the line's pending bit is set.
func (c *Controller) Pending(hw uint32) bool {
	bit, ok := lineBit(hw)
	if !ok {
		return false
	}
	return c.regs.ReadPending()&bit != 0
}

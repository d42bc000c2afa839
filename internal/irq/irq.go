// Package irq implements the emulated interrupt controller: per-line
// ack/mask/unmask on the shared mask and pending registers, a linear
// interrupt domain, a small generic interrupt-handling framework and the
// top-level dispatcher invoked on every interrupt entry.
//
// Dispatch priority is strictly by hardware line number: when several
// unmasked lines are pending, the lowest numbered one is serviced first and
// only one line is serviced per entry.
package irq

import "errors"

// Controller geometry.
const (
	LinesPerBank = 32
	Banks        = 3

	// DomainSize is the number of lines the controller declares.
	// Only the first bank has backing mask and pending bits.
	DomainSize = LinesPerBank * Banks
)

// Return is a handler's verdict on an interrupt.
type Return int

// Handler results.
const (
	None    Return = iota // Interrupt was not from this device
	Handled               // Interrupt was serviced
)

func (r Return) String() string {
	if r == Handled {
		return "handled"
	}
	return "none"
}

// Handler services an interrupt on a virtual line.
type Handler func(virq uint32) Return

var (
	// ErrDomainAlloc indicates the interrupt domain could not be created.
	ErrDomainAlloc = errors.New("unable to create IRQ domain")

	// ErrNoSuchLine indicates a virtual line has no descriptor.
	ErrNoSuchLine = errors.New("no such interrupt line")

	// ErrLineBusy indicates a handler is already installed on the line.
	ErrLineBusy = errors.New("interrupt line already requested")

	// ErrLineOutOfRange indicates a hardware line outside the domain.
	ErrLineOutOfRange = errors.New("hardware line out of range")

	// ErrBadSpecifier indicates a malformed interrupt specifier.
	ErrBadSpecifier = errors.New("bad interrupt specifier")
)

package irq

import "github.com/richardwooding/armemu/internal/regbank"

// Forwarder receives the virtual line chosen by the dispatcher.
type Forwarder interface {
	HandleIRQ(virq uint32)
}

// ForwarderFunc adapts a function to the Forwarder interface.
type ForwarderFunc func(virq uint32)

// HandleIRQ implements Forwarder.
func (f ForwarderFunc) HandleIRQ(virq uint32) {
	if f != nil {
		f(virq)
	}
}

// Dispatcher is the top-level interrupt entry hook.
type Dispatcher struct {
	regs   *regbank.IRQRegs
	domain *Domain
	fwd    Forwarder
}

// NewDispatcher creates a dispatcher that forwards to fwd.
func NewDispatcher(regs *regbank.IRQRegs, domain *Domain, fwd Forwarder) *Dispatcher {
	return &Dispatcher{regs: regs, domain: domain, fwd: fwd}
}

// Handle services at most one interrupt. It takes a single snapshot of the
// unmasked pending bits, picks the lowest numbered one in the first bank
// and forwards it. It reports whether a line was forwarded.
//
// The chosen line stays pending until its handler acknowledges it, so
// simultaneously pending lines drain across successive entries.
func (d *Dispatcher) Handle() bool {
	active := d.regs.Active()
	if active == 0 {
		return false
	}

	for hw := uint32(0); hw < LinesPerBank; hw++ {
		if active&(1<<hw) == 0 {
			continue
		}
		virq, ok := d.domain.Find(hw)
		if !ok {
			return false
		}
		d.fwd.HandleIRQ(virq)
		return true
	}
	return false
}

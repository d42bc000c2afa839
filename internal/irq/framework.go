package irq

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// UnhandledLimit is the number of consecutive unhandled interrupts after
// which a line is masked.
const UnhandledLimit = 100

// descriptor is the framework's per-virtual-line state.
type descriptor struct {
	virq uint32
	hw   uint32
	chip Chip

	name    string
	handler Handler

	count        atomic.Uint64
	unhandled    atomic.Uint64
	spurious     atomic.Uint64
	unhandledRun atomic.Uint32
}

// LineStats is a snapshot of a line's counters.
type LineStats struct {
	Virq      uint32
	HW        uint32
	Name      string
	Count     uint64 // Handler invocations
	Unhandled uint64 // Handler returned None
	Spurious  uint64 // Fired with no handler installed
}

// Framework is the generic interrupt-handling layer. It owns a descriptor
// per virtual line and runs the fast-EOI flow: call the handler, then
// acknowledge the line on the chip only if the handler serviced it.
type Framework struct {
	mu     sync.RWMutex
	descs  []*descriptor // indexed by virq; virq 0 is never valid
	logger *slog.Logger
}

// NewFramework creates an empty framework.
func NewFramework(logger *slog.Logger) *Framework {
	if logger == nil {
		logger = slog.Default()
	}
	return &Framework{
		descs:  make([]*descriptor, 1),
		logger: logger,
	}
}

// alloc reserves n consecutive virtual lines and returns the first.
func (f *Framework) alloc(n uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := uint32(len(f.descs)) //nolint:gosec // bounded by domain sizes
	for i := uint32(0); i < n; i++ {
		f.descs = append(f.descs, &descriptor{virq: base + i})
	}
	return base
}

// setChip binds a virtual line to a chip and hardware line.
func (f *Framework) setChip(virq uint32, chip Chip, hw uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d := f.lookupLocked(virq)
	if d == nil {
		return fmt.Errorf("%w: %d", ErrNoSuchLine, virq)
	}
	d.chip = chip
	d.hw = hw
	return nil
}

func (f *Framework) lookupLocked(virq uint32) *descriptor {
	if virq == 0 || int(virq) >= len(f.descs) {
		return nil
	}
	return f.descs[virq]
}

// Request installs handler on a virtual line and unmasks it.
func (f *Framework) Request(virq uint32, name string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("request %q: nil handler", name)
	}

	f.mu.Lock()
	d := f.lookupLocked(virq)
	if d == nil || d.chip == nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchLine, virq)
	}
	if d.handler != nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %d (%s)", ErrLineBusy, virq, d.name)
	}
	d.name = name
	d.handler = handler
	d.unhandledRun.Store(0)
	chip, hw := d.chip, d.hw
	f.mu.Unlock()

	chip.Unmask(hw)
	f.logger.Debug("irq: requested line", "virq", virq, "hwirq", hw, "name", name, "chip", chip.Name())
	return nil
}

// Free masks a virtual line and removes its handler.
func (f *Framework) Free(virq uint32) error {
	f.mu.Lock()
	d := f.lookupLocked(virq)
	if d == nil || d.handler == nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchLine, virq)
	}
	d.handler = nil
	d.name = ""
	chip, hw := d.chip, d.hw
	f.mu.Unlock()

	chip.Mask(hw)
	return nil
}

// HandleIRQ runs the fast-EOI flow for a virtual line. It is called from
// interrupt entry and must not block.
func (f *Framework) HandleIRQ(virq uint32) {
	f.mu.RLock()
	d := f.lookupLocked(virq)
	var handler Handler
	if d != nil {
		handler = d.handler
	}
	f.mu.RUnlock()

	if d == nil || d.chip == nil {
		f.logger.Warn("irq: bad virtual line", "virq", virq)
		return
	}

	if handler == nil {
		// Nobody asked for this line. Keep it quiet.
		d.spurious.Add(1)
		d.chip.Mask(d.hw)
		return
	}

	d.count.Add(1)
	if handler(virq) == Handled {
		d.unhandledRun.Store(0)
		d.chip.Ack(d.hw)
		return
	}

	d.unhandled.Add(1)
	if d.unhandledRun.Add(1) >= UnhandledLimit {
		d.chip.Mask(d.hw)
		d.unhandledRun.Store(0)
		f.logger.Warn("irq: nobody cared, disabling line",
			"virq", virq,
			"hwirq", d.hw,
			"name", d.name,
			"unhandled", d.unhandled.Load())
	}
}

// Stats returns the counters for a virtual line.
func (f *Framework) Stats(virq uint32) (LineStats, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	d := f.lookupLocked(virq)
	if d == nil {
		return LineStats{}, false
	}
	return LineStats{
		Virq:      d.virq,
		HW:        d.hw,
		Name:      d.name,
		Count:     d.count.Load(),
		Unhandled: d.unhandled.Load(),
		Spurious:  d.spurious.Load(),
	}, true
}

// Requested returns the stats of every line with a handler installed.
func (f *Framework) Requested() []LineStats {
	f.mu.RLock()
	virqs := make([]uint32, 0, 4)
	for _, d := range f.descs {
		if d != nil && d.handler != nil {
			virqs = append(virqs, d.virq)
		}
	}
	f.mu.RUnlock()

	stats := make([]LineStats, 0, len(virqs))
	for _, v := range virqs {
		if s, ok := f.Stats(v); ok {
			stats = append(stats, s)
		}
	}
	return stats
}

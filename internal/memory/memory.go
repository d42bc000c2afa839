// Package memory implements the emulated physical address space: a set of
// MMIO windows, each backed by a device register block.
package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Device is a memory-mapped register block.
type Device interface {
	Read32(offset uint32) uint32
	Write32(offset, value uint32)
}

var (
	// ErrUnmapped indicates no window starts at the requested base.
	ErrUnmapped = errors.New("unable to map registers")

	// ErrOverlap indicates a window would overlap an existing one.
	ErrOverlap = errors.New("MMIO window overlaps existing mapping")

	// ErrBadWindow indicates an empty window or one running past the top
	// of the address space.
	ErrBadWindow = errors.New("invalid MMIO window")
)

// OpenBus is the value read from an address with nothing behind it.
const OpenBus = 0xFFFFFFFF

// Window is one MMIO mapping.
type Window struct {
	Base uint32
	Size uint32
	Name string

	dev Device
}

func (w *Window) contains(addr uint32) bool {
	return addr >= w.Base && addr-w.Base < w.Size
}

// end is one past the last address; 1<<32 for a window ending at the top.
func (w *Window) end() uint64 {
	return uint64(w.Base) + uint64(w.Size)
}

// Bus represents the emulated address space.
type Bus struct {
	mu      sync.RWMutex
	windows []*Window // sorted by base
}

// NewBus creates an empty address space.
func NewBus() *Bus {
	return &Bus{}
}

// Attach maps dev at [base, base+size).
func (b *Bus) Attach(name string, base, size uint32, dev Device) error {
	end := uint64(base) + uint64(size)
	if size == 0 || end > 1<<32 {
		return fmt.Errorf("%w: %s at 0x%08X size 0x%X", ErrBadWindow, name, base, size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range b.windows {
		if uint64(base) < w.end() && uint64(w.Base) < end {
			return fmt.Errorf("%w: %s at 0x%08X collides with %s", ErrOverlap, name, base, w.Name)
		}
	}

	b.windows = append(b.windows, &Window{Base: base, Size: size, Name: name, dev: dev})
	sort.Slice(b.windows, func(i, j int) bool { return b.windows[i].Base < b.windows[j].Base })
	return nil
}

// Map returns the device whose window starts at base.
func (b *Bus) Map(base uint32) (Device, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, w := range b.windows {
		if w.Base == base {
			return w.dev, nil
		}
	}
	return nil, fmt.Errorf("%w: 0x%08X", ErrUnmapped, base)
}

func (b *Bus) find(addr uint32) *Window {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, w := range b.windows {
		if w.contains(addr) {
			return w
		}
	}
	return nil
}

// Read32 reads a word from the address space.
func (b *Bus) Read32(addr uint32) uint32 {
	w := b.find(addr)
	if w == nil {
		return OpenBus
	}
	return w.dev.Read32(addr - w.Base)
}

// Write32 writes a word to the address space. Writes to unmapped addresses
// are dropped.
func (b *Bus) Write32(addr, value uint32) {
	if w := b.find(addr); w != nil {
		w.dev.Write32(addr-w.Base, value)
	}
}

// Windows returns the current mappings in address order.
func (b *Bus) Windows() []Window {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Window, 0, len(b.windows))
	for _, w := range b.windows {
		out = append(out, Window{Base: w.Base, Size: w.Size, Name: w.Name})
	}
	return out
}

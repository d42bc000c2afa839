package memory

import (
	"errors"
	"testing"

	"github.com/richardwooding/armemu/internal/regbank"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()

	if bus == nil {
		t.Fatal("NewBus() returned nil")
	}

	if len(bus.Windows()) != 0 {
		t.Errorf("Windows() = %v, want empty", bus.Windows())
	}
}

func TestAttachAndAccess(t *testing.T) {
	bus := NewBus()
	ic := regbank.NewIRQRegs(regbank.NewBlock())
	tm := regbank.NewTimerRegs(regbank.NewBlock())

	if err := bus.Attach("ic", 0x1000, regbank.Size, ic); err != nil {
		t.Fatalf("Attach(ic) error = %v", err)
	}
	if err := bus.Attach("timer", 0x2000, regbank.Size, tm); err != nil {
		t.Fatalf("Attach(timer) error = %v", err)
	}

	bus.Write32(0x1000, 0xFFFFFFFF)
	bus.Write32(0x1004, 0x10)
	if ic.ReadMask() != 0xFFFFFFFF || ic.ReadPending() != 0x10 {
		t.Errorf("ic mask/pending = 0x%08X/0x%08X", ic.ReadMask(), ic.ReadPending())
	}

	value := bus.Read32(0x1004)
	if value != 0x10 {
		t.Errorf("Read32(0x1004) = 0x%08X, want 0x10", value)
	}

	// Counter is read-only from the bus
	tm.AdvanceCounter(7)
	bus.Write32(0x2000, 0)
	if value := bus.Read32(0x2000); value != 7 {
		t.Errorf("counter after bus write = %d, want 7", value)
	}

	bus.Write32(0x2004, 1)
	if tm.ReadEnable() != 1 {
		t.Errorf("enable = %d, want 1", tm.ReadEnable())
	}
}

func TestUnmappedAccess(t *testing.T) {
	bus := NewBus()

	if value := bus.Read32(0x4000); value != OpenBus {
		t.Errorf("Read32(unmapped) = 0x%08X, want 0x%08X", value, uint32(OpenBus))
	}

	// Writing to unmapped memory should not crash
	bus.Write32(0x4000, 0x42)
}

func TestAttachOverlap(t *testing.T) {
	bus := NewBus()
	dev := regbank.NewIRQRegs(regbank.NewBlock())

	_ = bus.Attach("a", 0x1000, 0x08, dev)

	tests := []struct {
		name string
		base uint32
		size uint32
	}{
		{"same base", 0x1000, 0x08},
		{"inside", 0x1004, 0x04},
		{"straddles start", 0x0FFC, 0x08},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := bus.Attach("b", tt.base, tt.size, dev); !errors.Is(err, ErrOverlap) {
				t.Errorf("Attach(0x%X, 0x%X) error = %v, want ErrOverlap", tt.base, tt.size, err)
			}
		})
	}

	// Adjacent windows are fine
	if err := bus.Attach("c", 0x1008, 0x08, dev); err != nil {
		t.Errorf("Attach(adjacent) error = %v", err)
	}
}

func TestAttachBadWindow(t *testing.T) {
	bus := NewBus()
	dev := regbank.NewIRQRegs(regbank.NewBlock())

	tests := []struct {
		name string
		base uint32
		size uint32
	}{
		{"zero size", 0x3000, 0},
		{"wraps address space", 0xFFFFFFFC, 0x08},
		{"one past the top", 0x10, 0xFFFFFFF4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bus.Attach("bad", tt.base, tt.size, dev)
			if !errors.Is(err, ErrBadWindow) {
				t.Errorf("Attach(0x%X, 0x%X) error = %v, want ErrBadWindow", tt.base, tt.size, err)
			}
			if errors.Is(err, ErrOverlap) {
				t.Errorf("Attach(0x%X, 0x%X) reported an overlap", tt.base, tt.size)
			}
		})
	}
}

func TestAttachTopOfAddressSpace(t *testing.T) {
	bus := NewBus()
	ic := regbank.NewIRQRegs(regbank.NewBlock())

	if err := bus.Attach("top", 0xFFFFFFF8, regbank.Size, ic); err != nil {
		t.Fatalf("Attach(top) error = %v", err)
	}

	bus.Write32(0xFFFFFFFC, 0x20)
	if got := bus.Read32(0xFFFFFFFC); got != 0x20 {
		t.Errorf("Read32(0xFFFFFFFC) = 0x%08X, want 0x20", got)
	}
	if got := ic.ReadPending(); got != 0x20 {
		t.Errorf("pending = 0x%08X, want 0x20", got)
	}

	// The top window still collides with anything reaching into it
	if err := bus.Attach("below", 0xFFFFFFF0, 0x0C, ic); !errors.Is(err, ErrOverlap) {
		t.Errorf("Attach(into top) error = %v, want ErrOverlap", err)
	}
	if err := bus.Attach("below", 0xFFFFFFF0, 0x08, ic); err != nil {
		t.Errorf("Attach(adjacent to top) error = %v", err)
	}
}

func TestMap(t *testing.T) {
	bus := NewBus()
	dev := regbank.NewTimerRegs(regbank.NewBlock())
	_ = bus.Attach("timer", 0x2000, regbank.Size, dev)

	got, err := bus.Map(0x2000)
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if got != Device(dev) {
		t.Error("Map() returned a different device")
	}

	if _, err := bus.Map(0x2004); !errors.Is(err, ErrUnmapped) {
		t.Errorf("Map(mid-window) error = %v, want ErrUnmapped", err)
	}
}

func TestWindowsSorted(t *testing.T) {
	bus := NewBus()
	dev := regbank.NewIRQRegs(regbank.NewBlock())
	_ = bus.Attach("high", 0x3000, 8, dev)
	_ = bus.Attach("low", 0x1000, 8, dev)

	w := bus.Windows()
	if len(w) != 2 || w[0].Name != "low" || w[1].Name != "high" {
		t.Errorf("Windows() = %+v, want low then high", w)
	}
}

package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/richardwooding/armemu/internal/regbank"
)

// This file contains stress tests and boundary tests for the timer implementation.
//
// Stress tests verify the clock-event state machine under rapid mode
// changes racing with the hardware advancing the counter.
//
// Boundary tests verify correct behavior at the counter's numeric limits.

// Stress Tests - Test rapid state changes

func TestTimerStress_RapidModeChanges(t *testing.T) {
	regs := regbank.NewTimerRegs(regbank.NewBlock())
	ce := NewClockEvent(regs, 0, 1000, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			regs.AdvanceCounter(1)
		}
	}()

	for i := 0; i < 1000; i++ {
		_ = ce.SetPeriodic()
		_ = ce.Shutdown()
	}
	_ = ce.SetPeriodic()
	wg.Wait()

	if regs.ReadEnable() != 1 || ce.Mode() != Periodic {
		t.Errorf("enable=%d mode=%v, want 1/periodic", regs.ReadEnable(), ce.Mode())
	}
	// Mode changes never disturb the counter
	if regs.ReadCounter() != 10000 {
		t.Errorf("counter = %d, want 10000", regs.ReadCounter())
	}
}

func TestTimerStress_ConcurrentSchedClockReads(t *testing.T) {
	regs := regbank.NewTimerRegs(regbank.NewBlock())
	sc := NewSchedClock(NewCounter(regs).Read, SchedClockBits, SchedClockRate)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var prev time.Duration
			for i := 0; i < 2000; i++ {
				now := sc.Now()
				if now < prev {
					t.Errorf("sched clock went backwards: %v -> %v", prev, now)
					return
				}
				prev = now
			}
		}()
	}
	for i := 0; i < 2000; i++ {
		regs.AdvanceCounter(3)
	}
	wg.Wait()

	if got := sc.Now(); got != 6000*time.Millisecond {
		t.Errorf("Now() = %v, want 6s", got)
	}
}

// Boundary Tests - Test numeric overflow conditions

func TestTimerBoundary_CounterMaxValue(t *testing.T) {
	regs := regbank.NewTimerRegs(regbank.NewBlock())
	cs := NewClocksource("test", NewCounter(regs), 1000)

	regs.AdvanceCounter(0xFFFFFFFF)
	if cs.Read() != 0xFFFFFFFF {
		t.Fatalf("Read() = 0x%X, want 0xFFFFFFFF", cs.Read())
	}
	if d := cs.Delta(0, cs.Read()); d != 0xFFFFFFFF {
		t.Errorf("Delta(0, max) = 0x%X, want 0xFFFFFFFF", d)
	}
	if d := cs.Delta(cs.Read(), 0); d != 1 {
		t.Errorf("Delta(max, 0) = %d, want 1", d)
	}
}

func TestTimerBoundary_SchedClockManyWraps(t *testing.T) {
	regs := regbank.NewTimerRegs(regbank.NewBlock())
	sc := NewSchedClock(NewCounter(regs).Read, SchedClockBits, SchedClockRate)

	// Read twice per wrap period for three wraps
	const half = 0x80000000
	for i := 0; i < 6; i++ {
		regs.AdvanceCounter(half)
		sc.Now()
	}

	want := time.Duration(3) * time.Duration(1<<32) * time.Millisecond
	if got := sc.Now(); got != want {
		t.Errorf("Now() after 3 wraps = %v, want %v", got, want)
	}
}

func TestTimerBoundary_ZeroDeltaNextEvent(t *testing.T) {
	ce := NewClockEvent(regbank.NewTimerRegs(regbank.NewBlock()), 0, 0, nil)

	if ce.Rate() != DefaultRate {
		t.Errorf("Rate() with 0 = %d, want %d", ce.Rate(), DefaultRate)
	}
	if err := ce.SetNextEvent(0); err != nil {
		t.Errorf("SetNextEvent(0) error = %v", err)
	}
}

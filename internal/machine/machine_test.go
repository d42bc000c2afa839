package machine

import (
	"testing"
	"time"

	"github.com/richardwooding/armemu/internal/regbank"
)

func newTestMachine(period uint32) (*Machine, *regbank.IRQRegs, *regbank.TimerRegs) {
	ic := regbank.NewIRQRegs(regbank.NewBlock())
	tm := regbank.NewTimerRegs(regbank.NewBlock())
	ic.WriteMask(regbank.AllOnes)
	return New(ic, tm, 0, period), ic, tm
}

func TestNew(t *testing.T) {
	m, _, _ := newTestMachine(0)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.TickPeriod() != DefaultTickPeriod {
		t.Errorf("TickPeriod() = %d, want %d", m.TickPeriod(), DefaultTickPeriod)
	}
}

func TestAdvanceCounterFreeRuns(t *testing.T) {
	m, ic, tm := newTestMachine(10)

	// Timer stopped: counter still runs, no ticks
	m.Advance(100)
	if tm.ReadCounter() != 100 {
		t.Errorf("counter = %d, want 100", tm.ReadCounter())
	}
	if ic.ReadPending() != 0 {
		t.Errorf("pending = 0x%08X with timer stopped, want 0", ic.ReadPending())
	}
	if ticks, _ := m.Stats(); ticks != 0 {
		t.Errorf("ticks = %d, want 0", ticks)
	}
}

func TestAdvanceRaisesTimerLine(t *testing.T) {
	m, ic, tm := newTestMachine(10)
	tm.WriteEnable(1)

	m.Advance(9)
	if ic.ReadPending() != 0 {
		t.Fatalf("pending after 9 counts = 0x%08X, want 0", ic.ReadPending())
	}

	m.Advance(1)
	if ic.ReadPending() != 1 {
		t.Errorf("pending after 10 counts = 0x%08X, want 0x00000001", ic.ReadPending())
	}

	m.Advance(25)
	if ticks, _ := m.Stats(); ticks != 3 {
		t.Errorf("ticks after 35 counts = %d, want 3", ticks)
	}
}

func TestShutdownRestartsTickPhase(t *testing.T) {
	m, _, tm := newTestMachine(10)
	tm.WriteEnable(1)
	m.Advance(7)

	tm.WriteEnable(0)
	m.Advance(5)
	tm.WriteEnable(1)
	m.Advance(7)

	if ticks, _ := m.Stats(); ticks != 0 {
		t.Errorf("ticks = %d, want 0 (phase restarts after stop)", ticks)
	}
	if tm.ReadCounter() != 19 {
		t.Errorf("counter = %d, want 19", tm.ReadCounter())
	}
}

func TestRaise(t *testing.T) {
	m, ic, _ := newTestMachine(10)

	m.Raise(3)
	m.Raise(31)
	m.Raise(32) // no backing bit

	if got := ic.ReadPending(); got != 1<<3|1<<31 {
		t.Errorf("pending = 0x%08X, want 0x80000008", got)
	}
}

func TestServiceWithoutHook(t *testing.T) {
	m, ic, _ := newTestMachine(10)
	ic.WriteMask(0)
	m.Raise(1)

	if n := m.Service(); n != 0 {
		t.Errorf("Service() without hook = %d, want 0", n)
	}
}

func TestServiceOnlyUnmasked(t *testing.T) {
	m, ic, _ := newTestMachine(10)
	calls := 0
	m.SetHandleIRQ(func() bool {
		calls++
		ic.ClearPendingBits(ic.Active() & -ic.Active())
		return true
	})

	m.Raise(4)
	if n := m.Service(); n != 0 || calls != 0 {
		t.Errorf("Service() entered %d times for a masked line", calls)
	}

	ic.ClearMaskBits(1 << 4)
	if n := m.Service(); n != 1 {
		t.Errorf("Service() = %d, want 1", n)
	}
	if _, entries := m.Stats(); entries != 1 {
		t.Errorf("entries = %d, want 1", entries)
	}
}

func TestServiceBoundedWithoutAck(t *testing.T) {
	m, ic, _ := newTestMachine(10)
	ic.WriteMask(0)
	m.SetHandleIRQ(func() bool { return true })

	m.Raise(0)
	if n := m.Service(); n != MaxEntriesPerStep {
		t.Errorf("Service() = %d, want %d", n, MaxEntriesPerStep)
	}
}

func TestStepDeliversTicks(t *testing.T) {
	m, ic, tm := newTestMachine(5)
	ic.WriteMask(0)
	tm.WriteEnable(1)

	ticks := 0
	m.SetHandleIRQ(func() bool {
		ticks++
		ic.ClearPendingBits(1)
		return true
	})

	m.Step(50)
	if ticks != 10 {
		t.Errorf("ticks delivered = %d, want 10", ticks)
	}
	if ic.ReadPending() != 0 {
		t.Errorf("pending = 0x%08X, want 0", ic.ReadPending())
	}
}

func TestClockStartStop(t *testing.T) {
	m, _, tm := newTestMachine(10)
	c := NewClock(m, 1000)

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := c.Start(); err != ErrClockRunning {
		t.Errorf("second Start() error = %v, want ErrClockRunning", err)
	}
	if !c.Running() {
		t.Error("Running() = false after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for tm.ReadCounter() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if c.Running() {
		t.Error("Running() = true after Stop")
	}
	if tm.ReadCounter() < 5 {
		t.Errorf("counter = %d after running, want at least 5", tm.ReadCounter())
	}

	// Counter stays put once stopped
	stopped := tm.ReadCounter()
	time.Sleep(10 * time.Millisecond)
	if tm.ReadCounter() != stopped {
		t.Errorf("counter moved after Stop: %d -> %d", stopped, tm.ReadCounter())
	}
}

func TestClockStopBeforeStart(t *testing.T) {
	c := NewClock(nil, 0)
	if err := c.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}

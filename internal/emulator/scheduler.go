package emulator

import (
	"github.com/richardwooding/armemu/internal/timer"
)

// tickScheduler is the built-in consumer of the timer. It keeps the
// registered clocks, and on clock-event registration installs a handler
// forwarding every tick to Callbacks.OnTick before switching the device
// to periodic mode.
type tickScheduler struct {
	e *Emulator

	schedClock  *timer.SchedClock
	clocksource *timer.Clocksource
}

func (s *tickScheduler) RegisterSchedClock(sc *timer.SchedClock) error {
	s.schedClock = sc
	s.e.logger.Debug("emulator: sched clock registered", "bits", sc.Bits(), "rate", sc.Rate())
	return nil
}

func (s *tickScheduler) RegisterClocksource(cs *timer.Clocksource) error {
	s.clocksource = cs
	s.e.logger.Debug("emulator: clocksource registered", "name", cs.Name, "rating", cs.Rating)
	return nil
}

func (s *tickScheduler) RegisterClockEvent(ce *timer.ClockEvent) error {
	ce.SetEventHandler(func(ce *timer.ClockEvent) {
		if s.e.cb.OnTick != nil {
			s.e.cb.OnTick(ce.HWIRQ())
		}
	})
	return ce.SetPeriodic()
}

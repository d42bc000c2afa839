package emulator

import (
	"context"
	"time"
)

// Start runs the hardware in real time at the counter clock rate.
func (e *Emulator) Start() error {
	return e.clock.Start()
}

// Stop halts the real-time clock.
func (e *Emulator) Stop() error {
	return e.clock.Stop()
}

// Running reports whether the real-time clock is running.
func (e *Emulator) Running() bool {
	return e.clock.Running()
}

// RunFor runs the hardware in real time for d, or until ctx is done.
func (e *Emulator) RunFor(ctx context.Context, d time.Duration) error {
	if err := e.Start(); err != nil {
		return err
	}

	deadline := time.NewTimer(d)
	defer deadline.Stop()

	select {
	case <-deadline.C:
	case <-ctx.Done():
	}
	return e.Stop()
}

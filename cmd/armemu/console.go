package main

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/richardwooding/armemu/internal/console"
	"github.com/richardwooding/armemu/internal/emulator"
	"github.com/richardwooding/armemu/internal/platform"
)

// ConsoleCmd raises interrupt lines from the terminal while the platform
// runs in real time.
type ConsoleCmd struct{}

// Run executes the console command.
func (c *ConsoleCmd) Run(g *Globals) error {
	cfg, err := g.platform()
	if err != nil {
		return err
	}

	// Every keypad line gets a handler, except the timer's own
	timerLine := uint32(0)
	if b, err := cfg.Lookup(platform.CompatibleTimer); err == nil && len(b.Interrupts) > 0 {
		timerLine = b.Interrupts[0]
	}
	var lines []uint32
	for hw := uint32(0); hw < console.NumKeys; hw++ {
		if hw != timerLine && !slices.Contains(cfg.Lines, hw) {
			lines = append(lines, hw)
		}
	}

	fired := color.New(color.FgCyan)
	emu, err := g.emulator(emulator.Callbacks{
		OnLineFired: func(hw uint32) { fired.Printf("line %d fired\r\n", hw) },
	}, lines)
	if err != nil {
		return err
	}

	// Keys latch requests; the clock goroutine services them
	keys := console.NewKeypad(emu.Machine().Raise)
	session, err := console.Open(keys)
	if err != nil {
		return err
	}
	defer session.Close() //nolint:errcheck

	status := color.New(color.FgHiBlack)
	session.OnKey = func(hw uint32) {
		status.Printf("  %s\r\n", keyStatus(emu, hw))
	}

	if err := emu.Start(); err != nil {
		return fmt.Errorf("emulator error: %w", err)
	}
	runErr := session.Run()
	if err := emu.Stop(); err != nil {
		return fmt.Errorf("emulator error: %w", err)
	}
	return runErr
}

// keyStatus describes a line right after its key latched a request.
func keyStatus(emu *emulator.Emulator, hw uint32) string {
	state := "masked, stays pending"
	if !emu.Controller().Masked(hw) {
		state = "unmasked"
	}
	return fmt.Sprintf("line %d %s, pending 0x%08X", hw, state, emu.IRQRegs().ReadPending())
}

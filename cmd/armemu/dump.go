package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/richardwooding/armemu/internal/emulator"
)

// DumpCmd prints the platform registers after an optional number of steps.
type DumpCmd struct {
	Steps uint32   `default:"0" help:"Counter increments to run before dumping."`
	Raise []uint32 `help:"Lines to raise before dumping."`
	Lines []uint32 `help:"Extra lines to request."`
	Debug bool     `help:"Dump the full state structure."`
}

// Run executes the dump command.
func (c *DumpCmd) Run(g *Globals) error {
	emu, err := g.emulator(emulator.Callbacks{}, c.Lines)
	if err != nil {
		return err
	}

	emu.Step(c.Steps)
	for _, hw := range c.Raise {
		emu.Raise(hw)
	}

	s := emu.Snapshot()
	writeState(os.Stdout, s)

	if c.Debug {
		fmt.Println()
		spew.Fdump(os.Stdout, s)
	}
	return nil
}

var (
	labelColor = color.New(color.Bold)
	setColor   = color.New(color.FgRed, color.Bold)
	clearColor = color.New(color.FgHiBlack)
)

// writeState prints the registers, with set bits highlighted.
func writeState(w io.Writer, s emulator.State) {
	labelColor.Fprintln(w, "Interrupt controller")
	fmt.Fprintf(w, "  mask     0x%08X  %s\n", s.Mask, bits(s.Mask))
	fmt.Fprintf(w, "  pending  0x%08X  %s\n", s.Pending, bits(s.Pending))
	fmt.Fprintf(w, "  active   0x%08X  %s\n", s.Pending&^s.Mask, bits(s.Pending&^s.Mask))

	labelColor.Fprintln(w, "Timer")
	fmt.Fprintf(w, "  counter  0x%08X  (%d)\n", s.Counter, s.Counter)
	fmt.Fprintf(w, "  enable   %d  mode %s\n", s.Enable, s.Mode)
	fmt.Fprintf(w, "  sched    %s  ticks %d  events %d  entries %d\n",
		s.SchedClock, s.Ticks, s.Events, s.Entries)

	labelColor.Fprintln(w, "Lines")
	for _, l := range s.Lines {
		fmt.Fprintf(w, "  %3d  %-14s count %d", l.HW, l.Name, l.Count)
		if l.Unhandled > 0 || l.Spurious > 0 {
			color.New(color.FgYellow).Fprintf(w, "  unhandled %d spurious %d", l.Unhandled, l.Spurious)
		}
		fmt.Fprintln(w)
	}
}

// bits renders a register MSB first in groups of eight.
func bits(v uint32) string {
	var b strings.Builder
	for i := 31; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			b.WriteString(setColor.Sprint("1"))
		} else {
			b.WriteString(clearColor.Sprint("0"))
		}
		if i%8 == 0 && i != 0 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Package main provides the armemu CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/richardwooding/armemu/internal/emulator"
	"github.com/richardwooding/armemu/internal/platform"
	"github.com/richardwooding/armemu/internal/scenario"
)

var (
	// ErrTestFailed indicates a scenario failed.
	ErrTestFailed = errors.New("test failed")

	// ErrInvalidScale indicates the scale factor is out of valid range.
	ErrInvalidScale = errors.New("scale must be between 1 and 10")
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `type:"path" help:"Platform description (YAML). Defaults to the built-in board."`
	LogLevel string `enum:"debug,info,warn,error" default:"warn" help:"Log level (${enum})."`
}

func (g *Globals) logger() *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(g.LogLevel))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (g *Globals) platform() (*platform.Config, error) {
	if g.Config == "" {
		return platform.Default(), nil
	}
	return platform.Load(g.Config)
}

func (g *Globals) emulator(cb emulator.Callbacks, lines []uint32) (*emulator.Emulator, error) {
	cfg, err := g.platform()
	if err != nil {
		return nil, err
	}
	cfg.Lines = append(cfg.Lines, lines...)

	emu, err := emulator.New(cfg, cb, emulator.WithLogger(g.logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create emulator: %w", err)
	}
	return emu, nil
}

// CLI represents the command-line interface structure.
type CLI struct {
	Globals

	Run     RunCmd     `cmd:"" help:"Run the platform in real time."`
	Dump    DumpCmd    `cmd:"" help:"Print the platform registers."`
	Test    TestCmd    `cmd:"" help:"Run scenario files and report results."`
	Console ConsoleCmd `cmd:"" help:"Raise interrupt lines from the keyboard."`
	Monitor MonitorCmd `cmd:"" help:"Show the interrupt registers in a window."`
}

// RunCmd runs the platform in real time.
type RunCmd struct {
	Duration time.Duration `default:"1s" help:"How long to run."`
	Lines    []uint32      `help:"Extra lines to request."`
}

// Run executes the run command.
func (c *RunCmd) Run(g *Globals) error {
	var ticks, fired atomic.Uint64
	emu, err := g.emulator(emulator.Callbacks{
		OnTick:      func(uint32) { ticks.Add(1) },
		OnLineFired: func(uint32) { fired.Add(1) },
	}, c.Lines)
	if err != nil {
		return err
	}

	if err := emu.RunFor(context.Background(), c.Duration); err != nil {
		return fmt.Errorf("emulator error: %w", err)
	}

	s := emu.Snapshot()
	bold := color.New(color.Bold)
	bold.Printf("Ran for %s\n", c.Duration)
	fmt.Printf("  Counter:     %d\n", s.Counter)
	fmt.Printf("  Sched clock: %s\n", s.SchedClock)
	fmt.Printf("  Ticks:       %s\n", color.GreenString("%d", ticks.Load()))
	fmt.Printf("  Lines fired: %s\n", color.CyanString("%d", fired.Load()))
	return nil
}

// TestCmd runs scenario files and reports results.
type TestCmd struct {
	Files   []string `arg:"" type:"existingfile" help:"Scenario files."`
	Verbose bool     `short:"v" help:"Show detailed output."`
}

// Run executes the test command.
func (c *TestCmd) Run() error {
	failed := 0
	for _, f := range c.Files {
		result := scenario.Run(f)

		status := color.GreenString("%s", result.String())
		if !result.IsSuccess() {
			status = color.RedString("%s", result.String())
			failed++
		}
		fmt.Printf("%-40s %s\n", f, status)

		if c.Verbose || !result.IsSuccess() {
			fmt.Printf("\nOutput:\n%s\n", strings.TrimRight(result.Output, "\n"))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTestFailed, failed, len(c.Files))
	}
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("armemu"),
		kong.Description("An emulated interrupt controller and system timer."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

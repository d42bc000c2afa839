// Package platform describes the emulated board: where each device's
// registers live, which interrupt line it raises and how fast the timer
// counter runs. Descriptions are YAML documents.
package platform

import (
	"errors"
	"fmt"
	"os"

	"github.com/richardwooding/armemu/internal/irq"
	"gopkg.in/yaml.v2"
)

// Binding identifiers.
const (
	CompatibleIC    = "armemu,emulator-ic"
	CompatibleTimer = "armemu,emulator-timer"
)

// Defaults for the built-in board.
const (
	DefaultICBase     = 0x1000_0000
	DefaultTimerBase  = 0x1000_1000
	DefaultTimerLine  = 0
	DefaultClockRate  = 1000
	DefaultTickPeriod = 10
)

var (
	// ErrNoBinding indicates no device matches a compatible string.
	ErrNoBinding = errors.New("no matching binding")

	// ErrInvalidConfig indicates the platform description is unusable.
	ErrInvalidConfig = errors.New("invalid platform config")
)

// Binding ties a device to its register base and interrupt specifier.
type Binding struct {
	Compatible     string   `yaml:"compatible"`
	Reg            uint32   `yaml:"reg"`
	Interrupts     []uint32 `yaml:"interrupts,omitempty"`
	ClockFrequency uint32   `yaml:"clock-frequency,omitempty"`
}

// Config is a platform description.
type Config struct {
	Bindings   []Binding `yaml:"bindings"`
	TickPeriod uint32    `yaml:"tick_period"`
	Lines      []uint32  `yaml:"lines,omitempty"` // Extra lines to request at bring-up
}

// Default returns the built-in platform.
func Default() *Config {
	return &Config{
		Bindings: []Binding{
			{Compatible: CompatibleIC, Reg: DefaultICBase},
			{
				Compatible:     CompatibleTimer,
				Reg:            DefaultTimerBase,
				Interrupts:     []uint32{DefaultTimerLine},
				ClockFrequency: DefaultClockRate,
			},
		},
		TickPeriod: DefaultTickPeriod,
	}
}

// Load reads a platform description from a file.
func Load(path string) (*Config, error) {
	// #nosec G304 - path is provided by the user via CLI flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a platform description and fills in defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TickPeriod == 0 {
		c.TickPeriod = DefaultTickPeriod
	}
	for i := range c.Bindings {
		b := &c.Bindings[i]
		if b.Compatible == CompatibleTimer && b.ClockFrequency == 0 {
			b.ClockFrequency = DefaultClockRate
		}
	}
}

// Validate checks the description for conflicts.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Bindings))
	bases := make(map[uint32]string, len(c.Bindings))

	for _, b := range c.Bindings {
		if b.Compatible == "" {
			return fmt.Errorf("%w: binding without compatible", ErrInvalidConfig)
		}
		if seen[b.Compatible] {
			return fmt.Errorf("%w: duplicate binding %q", ErrInvalidConfig, b.Compatible)
		}
		seen[b.Compatible] = true

		if b.Reg%4 != 0 {
			return fmt.Errorf("%w: %s: reg 0x%X not word aligned", ErrInvalidConfig, b.Compatible, b.Reg)
		}
		if other, ok := bases[b.Reg]; ok && b.Reg != 0 {
			return fmt.Errorf("%w: %s and %s share reg 0x%X", ErrInvalidConfig, other, b.Compatible, b.Reg)
		}
		bases[b.Reg] = b.Compatible
	}

	timerLine, hasTimer := c.timerLine()
	if hasTimer && timerLine >= irq.LinesPerBank {
		return fmt.Errorf("%w: %s: line %d has no pending bit", ErrInvalidConfig, CompatibleTimer, timerLine)
	}

	lines := make(map[uint32]bool, len(c.Lines))
	for _, l := range c.Lines {
		if l >= irq.LinesPerBank {
			return fmt.Errorf("%w: line %d has no pending bit", ErrInvalidConfig, l)
		}
		if hasTimer && l == timerLine {
			return fmt.Errorf("%w: line %d belongs to %s", ErrInvalidConfig, l, CompatibleTimer)
		}
		if lines[l] {
			return fmt.Errorf("%w: line %d listed twice", ErrInvalidConfig, l)
		}
		lines[l] = true
	}
	return nil
}

// timerLine returns the line in the timer binding's interrupt specifier.
func (c *Config) timerLine() (uint32, bool) {
	b, err := c.Lookup(CompatibleTimer)
	if err != nil || len(b.Interrupts) == 0 {
		return 0, false
	}
	return b.Interrupts[0], true
}

// Lookup finds the binding for a compatible string.
func (c *Config) Lookup(compatible string) (*Binding, error) {
	for i := range c.Bindings {
		if c.Bindings[i].Compatible == compatible {
			return &c.Bindings[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoBinding, compatible)
}

// Marshal encodes the description as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

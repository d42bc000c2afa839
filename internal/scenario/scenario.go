// Package scenario runs scripted register-level scenarios against the
// interrupt controller and the system timer.
//
// A scenario is a YAML document holding a list of steps. Each step does
// exactly one thing: touch the controller lines, raise device requests,
// take one interrupt entry, clock the counter, change the clock-event
// mode or check register contents.
//
//	name: two lines pending
//	steps:
//	  - unmask: [3, 7]
//	  - raise: [7, 3]
//	  - dispatch: 3
//	  - ack: [3]
//	  - dispatch: 7
//	  - expect: {pending: 0x80}
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

var (
	// ErrInvalidScenario indicates a malformed scenario document.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// Line is the expected outcome of a dispatch step: a hardware line, or
// none when no line should be forwarded.
type Line struct {
	HW   uint32
	None bool
}

// UnmarshalYAML accepts a line number or the word "none".
func (l *Line) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		if v < 0 {
			return fmt.Errorf("%w: negative line %d", ErrInvalidScenario, v)
		}
		l.HW = uint32(v) //nolint:gosec // checked above
	case string:
		if v != "none" {
			return fmt.Errorf("%w: dispatch wants a line or none, got %q", ErrInvalidScenario, v)
		}
		l.None = true
	default:
		return fmt.Errorf("%w: dispatch wants a line or none, got %v", ErrInvalidScenario, raw)
	}
	return nil
}

// MarshalYAML writes the line back in the form UnmarshalYAML reads.
func (l Line) MarshalYAML() (interface{}, error) {
	if l.None {
		return "none", nil
	}
	return l.HW, nil
}

func (l Line) String() string {
	if l.None {
		return "none"
	}
	return fmt.Sprintf("%d", l.HW)
}

// Expect checks register and counter values. Unset fields are not checked.
type Expect struct {
	Pending *uint32 `yaml:"pending,omitempty"`
	Mask    *uint32 `yaml:"mask,omitempty"`
	Enable  *uint32 `yaml:"enable,omitempty"`
	Counter *uint32 `yaml:"counter,omitempty"`
	Ticks   *uint64 `yaml:"ticks,omitempty"`
}

// Step is a single scenario action.
type Step struct {
	Unmask   []uint32 `yaml:"unmask,omitempty"`
	Mask     []uint32 `yaml:"mask,omitempty"`
	Ack      []uint32 `yaml:"ack,omitempty"`
	Raise    []uint32 `yaml:"raise,omitempty"`
	Dispatch *Line    `yaml:"dispatch,omitempty"`
	Advance  uint32   `yaml:"advance,omitempty"`
	Periodic bool     `yaml:"periodic,omitempty"`
	Shutdown bool     `yaml:"shutdown,omitempty"`
	Expect   *Expect  `yaml:"expect,omitempty"`
}

// kinds counts the actions set on the step.
func (s *Step) kinds() int {
	n := 0
	for _, set := range []bool{
		len(s.Unmask) > 0,
		len(s.Mask) > 0,
		len(s.Ack) > 0,
		len(s.Raise) > 0,
		s.Dispatch != nil,
		s.Advance > 0,
		s.Periodic,
		s.Shutdown,
		s.Expect != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Scenario is a parsed scenario document.
type Scenario struct {
	Name       string `yaml:"name"`
	TimerLine  uint32 `yaml:"timer_line,omitempty"`
	TickPeriod uint32 `yaml:"tick_period,omitempty"`
	Steps      []Step `yaml:"steps"`
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.UnmarshalStrict(data, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	if s.TimerLine >= 32 {
		return nil, fmt.Errorf("%w: timer line %d has no pending bit", ErrInvalidScenario, s.TimerLine)
	}
	for i := range s.Steps {
		if n := s.Steps[i].kinds(); n != 1 {
			return nil, fmt.Errorf("%w: step %d has %d actions, want 1", ErrInvalidScenario, i+1, n)
		}
	}
	return s, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	// #nosec G304 - path is provided by the user via CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

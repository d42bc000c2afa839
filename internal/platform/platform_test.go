package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}

	ic, err := cfg.Lookup(CompatibleIC)
	if err != nil {
		t.Fatalf("Lookup(ic) error = %v", err)
	}
	if ic.Reg != DefaultICBase {
		t.Errorf("ic reg = 0x%X, want 0x%X", ic.Reg, DefaultICBase)
	}

	tm, err := cfg.Lookup(CompatibleTimer)
	if err != nil {
		t.Fatalf("Lookup(timer) error = %v", err)
	}
	if tm.ClockFrequency != 1000 {
		t.Errorf("timer clock-frequency = %d, want 1000", tm.ClockFrequency)
	}
	if len(tm.Interrupts) != 1 || tm.Interrupts[0] != 0 {
		t.Errorf("timer interrupts = %v, want [0]", tm.Interrupts)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
bindings:
  - compatible: armemu,emulator-ic
    reg: 0x20000000
  - compatible: armemu,emulator-timer
    reg: 0x20000010
    interrupts: [4]
lines: [3, 7]
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.TickPeriod != DefaultTickPeriod {
		t.Errorf("TickPeriod = %d, want default %d", cfg.TickPeriod, DefaultTickPeriod)
	}
	tm, _ := cfg.Lookup(CompatibleTimer)
	if tm.Reg != 0x20000010 || tm.Interrupts[0] != 4 {
		t.Errorf("timer binding = %+v", *tm)
	}
	if tm.ClockFrequency != DefaultClockRate {
		t.Errorf("timer clock-frequency = %d, want default", tm.ClockFrequency)
	}
	if len(cfg.Lines) != 2 || cfg.Lines[1] != 7 {
		t.Errorf("Lines = %v, want [3 7]", cfg.Lines)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "bindings: ["},
		{"unknown field", "bogus: 1\n"},
		{"duplicate", "bindings:\n  - {compatible: a, reg: 0}\n  - {compatible: a, reg: 16}\n"},
		{"shared reg", "bindings:\n  - {compatible: a, reg: 16}\n  - {compatible: b, reg: 16}\n"},
		{"unaligned", "bindings:\n  - {compatible: a, reg: 2}\n"},
		{"no compatible", "bindings:\n  - {reg: 16}\n"},
		{"line without bit", "lines: [40]\n"},
		{"timer line without bit", "bindings:\n  - compatible: armemu,emulator-timer\n    reg: 16\n    interrupts: [40]\n"},
		{"timer line listed again", "bindings:\n  - compatible: armemu,emulator-timer\n    reg: 16\n    interrupts: [2]\nlines: [1, 2]\n"},
		{"line listed twice", "lines: [5, 5]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Parse() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLookupMissing(t *testing.T) {
	cfg := &Config{}

	if _, err := cfg.Lookup(CompatibleIC); !errors.Is(err, ErrNoBinding) {
		t.Errorf("Lookup() error = %v, want ErrNoBinding", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Lines = []uint32{5}

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Bindings) != 2 || len(loaded.Lines) != 1 || loaded.Lines[0] != 5 {
		t.Errorf("Load() = %+v", loaded)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of missing file succeeded")
	}
}

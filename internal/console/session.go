package console

import (
	"errors"
	"fmt"
	"io"

	tty "github.com/mattn/go-tty"
)

// RuneReader is the input side of a terminal.
type RuneReader interface {
	ReadRune() (rune, error)
}

// Session feeds terminal keystrokes into a keypad until QuitKey or Esc.
type Session struct {
	keys *Keypad
	in   RuneReader
	out  io.Writer

	// OnKey runs after every bound key, for status output.
	OnKey func(hw uint32)

	close func() error
}

// NewSession creates a session reading from in and echoing to out.
func NewSession(keys *Keypad, in RuneReader, out io.Writer) *Session {
	return &Session{keys: keys, in: in, out: out}
}

// Open creates a session on the controlling terminal in raw mode.
func Open(keys *Keypad) (*Session, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	restore, err := t.Raw()
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	s := NewSession(keys, t, t.Output())
	s.close = func() error {
		return errors.Join(restore(), t.Close())
	}
	return s, nil
}

// Close restores the terminal.
func (s *Session) Close() error {
	if s.close == nil {
		return nil
	}
	err := s.close()
	s.close = nil
	return err
}

// Run reads keys until QuitKey or end of input.
func (s *Session) Run() error {
	fmt.Fprintf(s.out, "keys 0-9 and a-v raise lines 0-31, %c quits\r\n", QuitKey)

	for {
		r, err := s.in.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		if r == QuitKey || r == 0x1b {
			return nil
		}

		hw, ok := s.keys.Press(r)
		if !ok {
			continue
		}
		fmt.Fprintf(s.out, "raise %d\r\n", hw)
		if s.OnKey != nil {
			s.OnKey(hw)
		}
	}
}

// Package console implements keyboard input for raising interrupt lines.
package console

import "sync"

// NumKeys is the number of lines reachable from the keypad.
const NumKeys = 32

// QuitKey ends a session. It sits outside the bound range.
const QuitKey = 'x'

// Keypad maps keys to hardware lines: '0'-'9' raise lines 0-9 and
// 'a'-'v' raise lines 10-31.
type Keypad struct {
	mu sync.Mutex

	presses [NumKeys]uint64

	// Interrupt callback
	raise func(hw uint32)
}

// NewKeypad creates a keypad that raises lines through raise.
func NewKeypad(raise func(hw uint32)) *Keypad {
	return &Keypad{raise: raise}
}

// Line returns the line bound to key r.
func Line(r rune) (uint32, bool) {
	switch {
	case r >= '0' && r <= '9':
		return uint32(r - '0'), true
	case r >= 'a' && r <= 'v':
		return uint32(r-'a') + 10, true
	case r >= 'A' && r <= 'V':
		return uint32(r-'A') + 10, true
	}
	return 0, false
}

// Key returns the key bound to line hw.
func Key(hw uint32) (rune, bool) {
	switch {
	case hw < 10:
		return '0' + rune(hw), true
	case hw < NumKeys:
		return 'a' + rune(hw-10), true
	}
	return 0, false
}

// Press raises the line bound to r. It reports the line and whether r is
// bound at all.
func (k *Keypad) Press(r rune) (uint32, bool) {
	hw, ok := Line(r)
	if !ok {
		return 0, false
	}

	k.mu.Lock()
	k.presses[hw]++
	k.mu.Unlock()

	if k.raise != nil {
		k.raise(hw)
	}
	return hw, true
}

// Presses returns how often the key for line hw was pressed.
func (k *Keypad) Presses(hw uint32) uint64 {
	if hw >= NumKeys {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.presses[hw]
}

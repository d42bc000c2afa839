// Package regbank implements the register words shared by the interrupt
// controller and the system timer.
//
// Each device exposes a block of two 32-bit words:
//   - Interrupt controller: 0x00 mask (1=masked), 0x04 pending (1=pending)
//   - Timer: 0x00 free-running counter (read-only), 0x04 enable (0=stopped, 1=running)
//
// All accesses to a block are serialized by a single lock so that
// read-modify-write sequences from the line controller, the dispatcher
// snapshot and the hardware side never lose an update.
package regbank

import "sync"

// Register offsets within a block.
const (
	MaskOffset    = 0x00 // Interrupt mask
	PendingOffset = 0x04 // Interrupt pending

	CounterOffset = 0x00 // Free-running counter
	EnableOffset  = 0x04 // Timer enable

	// Size is the MMIO window size of a block in bytes.
	Size = 0x08
)

// AllOnes is the value of a fully set 32-bit register.
const AllOnes = 0xFFFFFFFF

// Block is a two-word register block.
type Block struct {
	mu    sync.Mutex
	words [2]uint32
}

// NewBlock creates a zeroed register block.
func NewBlock() *Block {
	return &Block{}
}

func index(offset uint32) (int, bool) {
	switch offset {
	case 0x00:
		return 0, true
	case 0x04:
		return 1, true
	}
	return 0, false
}

// Read32 reads the word at offset. Unknown offsets read as 0.
func (b *Block) Read32(offset uint32) uint32 {
	i, ok := index(offset)
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.words[i]
}

// Write32 writes the word at offset. Writes to unknown offsets are ignored.
func (b *Block) Write32(offset, value uint32) {
	i, ok := index(offset)
	if !ok {
		return
	}
	b.mu.Lock()
	b.words[i] = value
	b.mu.Unlock()
}

// update applies fn to the word at offset under the block lock and returns
// the new value.
func (b *Block) update(offset uint32, fn func(uint32) uint32) uint32 {
	i, _ := index(offset)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.words[i] = fn(b.words[i])
	return b.words[i]
}

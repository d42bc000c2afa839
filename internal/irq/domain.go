package irq

import "fmt"

// Domain is a fixed-size linear map from hardware lines to virtual lines.
// All mappings are created up front and never change.
type Domain struct {
	name string
	size uint32
	base uint32 // virq of hardware line 0
}

// NewLinearDomain allocates size virtual lines from fw and maps hardware
// line n to base+n, installing chip as the line's operation set.
func NewLinearDomain(name string, size uint32, fw *Framework, chip Chip) (*Domain, error) {
	if size == 0 || fw == nil || chip == nil {
		return nil, fmt.Errorf("%w: %s", ErrDomainAlloc, name)
	}

	base := fw.alloc(size)
	for hw := uint32(0); hw < size; hw++ {
		if err := fw.setChip(base+hw, chip, hw); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDomainAlloc, name, err)
		}
	}

	return &Domain{name: name, size: size, base: base}, nil
}

// Name returns the domain name.
func (d *Domain) Name() string {
	return d.name
}

// Size returns the number of hardware lines in the domain.
func (d *Domain) Size() uint32 {
	return d.size
}

// Find translates a hardware line into its virtual line.
func (d *Domain) Find(hw uint32) (uint32, bool) {
	if hw >= d.size {
		return 0, false
	}
	return d.base + hw, true
}

// HWIRQ translates a virtual line back into its hardware line.
func (d *Domain) HWIRQ(virq uint32) (uint32, bool) {
	if virq < d.base || virq-d.base >= d.size {
		return 0, false
	}
	return virq - d.base, true
}

// XlateOneCell decodes a one-cell interrupt specifier as used by the
// platform description: the single cell is the hardware line.
func (d *Domain) XlateOneCell(cells []uint32) (uint32, error) {
	if len(cells) != 1 {
		return 0, fmt.Errorf("%w: want 1 cell, got %d", ErrBadSpecifier, len(cells))
	}
	hw := cells[0]
	if hw >= d.size {
		return 0, fmt.Errorf("%w: %d (domain size %d)", ErrLineOutOfRange, hw, d.size)
	}
	return hw, nil
}

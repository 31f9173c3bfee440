package heat

import "fmt"

// Neighbour bits of a packed descriptor. They share a word with the raw cell
// flags, so they must never overlap CellFixed or CellInsulator.
const (
	ActiveAbove uint32 = 0x4
	ActiveBelow uint32 = 0x8
	ActiveLeft  uint32 = 0x10
	ActiveRight uint32 = 0x20

	ActiveMask = ActiveAbove | ActiveBelow | ActiveLeft | ActiveRight
)

func init() {
	if ActiveMask&cellImmutable != 0 {
		panic(fmt.Sprintf("heat: descriptor bits 0x%x overlap cell flags 0x%x", ActiveMask, cellImmutable))
	}
}

// DescriptorScheme decides what per-cell table is uploaded to the device and
// how a cell's active neighbours are recovered from it.
type DescriptorScheme interface {
	// Name identifies the scheme in logs and configuration.
	Name() string
	// Kernel is the device entry point that understands the table.
	Kernel() string
	// Encode builds the table uploaded once per run.
	Encode(props []uint32, width, height int) []uint32
	// Descriptor returns the packed descriptor of cell i given the table.
	Descriptor(table []uint32, width, height, i int) uint32
}

// PackedScheme precomputes neighbour insulation once per run.
type PackedScheme struct{}

func (PackedScheme) Name() string   { return "packed" }
func (PackedScheme) Kernel() string { return "step_packed" }

func (PackedScheme) Encode(props []uint32, width, height int) []uint32 {
	return Pack(props, width, height)
}

func (PackedScheme) Descriptor(table []uint32, _, _, i int) uint32 {
	return table[i]
}

// InspectScheme uploads the raw properties and re-derives neighbour
// insulation every time a cell is evaluated.
type InspectScheme struct{}

func (InspectScheme) Name() string   { return "inspect" }
func (InspectScheme) Kernel() string { return "step_inspect" }

func (InspectScheme) Encode(props []uint32, _, _ int) []uint32 {
	return append([]uint32(nil), props...)
}

func (InspectScheme) Descriptor(table []uint32, width, height, i int) uint32 {
	return describeCell(table, width, height, i)
}

// SchemeByName resolves a descriptor scheme from its configured name.
func SchemeByName(name string) (DescriptorScheme, error) {
	switch name {
	case "", "packed":
		return PackedScheme{}, nil
	case "inspect":
		return InspectScheme{}, nil
	}
	return nil, fmt.Errorf("%w: unknown descriptor scheme %q", ErrConfiguration, name)
}

// Pack converts raw property flags into packed descriptors.
func Pack(props []uint32, width, height int) []uint32 {
	packed := make([]uint32, len(props))
	for i := range packed {
		packed[i] = describeCell(props, width, height, i)
	}
	return packed
}

// describeCell computes the descriptor of cell i directly from properties.
// Neighbours outside the grid count as insulators.
func describeCell(props []uint32, width, height, i int) uint32 {
	p := props[i]
	if p&cellImmutable != 0 {
		return p
	}
	x, y := i%width, i/width
	var d uint32
	if y > 0 && props[i-width]&CellInsulator == 0 {
		d |= ActiveAbove
	}
	if y < height-1 && props[i+width]&CellInsulator == 0 {
		d |= ActiveBelow
	}
	if x > 0 && props[i-1]&CellInsulator == 0 {
		d |= ActiveLeft
	}
	if x < width-1 && props[i+1]&CellInsulator == 0 {
		d |= ActiveRight
	}
	return d
}

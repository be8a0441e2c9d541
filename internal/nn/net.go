package nn

import "fmt"

// Numeric is the element type of a Net: float32, or uint8 for quantized
// networks.
type Numeric interface {
	float32 | uint8
}

// MaxElements bounds the parameter plus register storage of one Net.
const MaxElements = 1 << 24

// Layout is the memory plan a Builder infers from a program.
type Layout struct {
	NumParameters uint32
	RegSizes      [MaxRegs]uint16
}

// Elements returns the total number of values the layout needs.
func (l Layout) Elements() uint64 {
	n := uint64(l.NumParameters)
	for _, s := range l.RegSizes {
		n += uint64(s)
	}
	return n
}

// Net owns one contiguous buffer: the parameters followed by the storage of
// every register slot, in slot order.
type Net[T Numeric] struct {
	layout Layout
	mem    []T
	// regOff[i] is where register i starts in mem.
	regOff [MaxRegs + 1]int
}

// NewNet allocates storage for l.
func NewNet[T Numeric](l Layout) (*Net[T], error) {
	total := l.Elements()
	if total > MaxElements {
		return nil, fmt.Errorf("%w: %d elements, limit %d", ErrNetTooLarge, total, MaxElements)
	}
	n := &Net[T]{layout: l, mem: make([]T, total)}
	off := int(l.NumParameters)
	for i, s := range l.RegSizes {
		n.regOff[i] = off
		off += int(s)
	}
	n.regOff[MaxRegs] = off
	return n, nil
}

func (n *Net[T]) Layout() Layout { return n.layout }

// Parameters returns the parameter region.
func (n *Net[T]) Parameters() []T {
	return n.mem[:n.layout.NumParameters:n.layout.NumParameters]
}

// Register returns the storage of register r, or nil when r has no slot.
// The slice has the capacity the builder reserved for r.
func (n *Net[T]) Register(r Reg) []T {
	if !r.Valid() {
		return nil
	}
	lo, hi := n.regOff[r], n.regOff[r+1]
	return n.mem[lo:hi:hi]
}

// Randomize fills every parameter from next.
func (n *Net[T]) Randomize(next func() T) {
	p := n.Parameters()
	for i := range p {
		p[i] = next()
	}
}

// Release drops the net's storage. The net must not be used afterwards.
func (n *Net[T]) Release() {
	n.mem = nil
	n.regOff = [MaxRegs + 1]int{}
}

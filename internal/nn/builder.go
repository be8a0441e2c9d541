package nn

import "fmt"

// Builder is the sizing pass: it walks a program without executing it and
// records the largest size ever assigned to each register and the total
// parameter count.
type Builder struct {
	layout Layout
	input  [MaxRegs]bool
	cur    Reg
}

// NewBuilder starts a layout whose register 0 is an input of inputWidth
// values.
func NewBuilder(inputWidth uint16) *Builder {
	b := &Builder{}
	b.layout.RegSizes[0] = inputWidth
	b.input[0] = true
	return b
}

// DeclareInput fixes the width of another input register. Inputs keep their
// declared width and cannot be assigned by the program.
func (b *Builder) DeclareInput(r Reg, width uint16) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %%%d", ErrRegisterRange, r)
	}
	b.layout.RegSizes[r] = width
	b.input[r] = true
	return nil
}

// Layout returns the inferred layout.
func (b *Builder) Layout() Layout { return b.layout }

// Finish allocates a Net of the inferred layout.
func Finish[T Numeric](b *Builder) (*Net[T], error) {
	return NewNet[T](b.layout)
}

// Build sizes and allocates a Net for src with a single input register of
// inputWidth values.
func Build[T Numeric](src []byte, inputWidth uint16) (*Net[T], error) {
	b := NewBuilder(inputWidth)
	if err := Exec(src, b); err != nil {
		return nil, err
	}
	return Finish[T](b)
}

func (b *Builder) BeginAssignment(dst Reg) error {
	if !dst.Valid() {
		return fmt.Errorf("%w: %%%d", ErrRegisterRange, dst)
	}
	if b.input[dst] {
		return fmt.Errorf("%w: %%%d", ErrInputAssigned, dst)
	}
	b.cur = dst
	return nil
}

func (b *Builder) Interpret(e Expr) error {
	switch e := e.(type) {
	case Linear:
		if err := b.check(e.In); err != nil {
			return err
		}
		if have := b.layout.RegSizes[e.In]; e.InFeatures > have {
			return fmt.Errorf("%w: %%%d holds %d values, Linear reads %d", ErrRegisterOverflow, e.In, have, e.InFeatures)
		}
		params := uint64(e.InFeatures)*uint64(e.OutFeatures) + uint64(e.OutFeatures)
		total := uint64(b.layout.NumParameters) + params
		if total > MaxElements {
			return fmt.Errorf("%w: %d parameters", ErrNetTooLarge, total)
		}
		b.layout.NumParameters = uint32(total)
		b.expand(uint32(e.OutFeatures))
	case MatMul:
		l, r, err := b.operands(e.Binary)
		if err != nil {
			return err
		}
		var rows uint32
		if r > 0 {
			rows = l / r
		}
		b.expand(rows)
	case Concat:
		l, r, err := b.operands(e.Binary)
		if err != nil {
			return err
		}
		return b.expandChecked(l + r)
	case CompAdd:
		return b.elementwise(e.Binary)
	case CompMul:
		return b.elementwise(e.Binary)
	case ReLU:
		return b.unary(e.Unary)
	case Sigmoid:
		return b.unary(e.Unary)
	case Tanh:
		return b.unary(e.Unary)
	default:
		return fmt.Errorf("nn: unsupported expression %T", e)
	}
	return nil
}

func (b *Builder) elementwise(e Binary) error {
	l, r, err := b.operands(e)
	if err != nil {
		return err
	}
	b.expand(min(l, r))
	return nil
}

func (b *Builder) unary(e Unary) error {
	if err := b.check(e.In); err != nil {
		return err
	}
	b.expand(uint32(b.layout.RegSizes[e.In]))
	return nil
}

func (b *Builder) operands(e Binary) (uint32, uint32, error) {
	if err := b.check(e.Left); err != nil {
		return 0, 0, err
	}
	if err := b.check(e.Right); err != nil {
		return 0, 0, err
	}
	return uint32(b.layout.RegSizes[e.Left]), uint32(b.layout.RegSizes[e.Right]), nil
}

func (b *Builder) check(r Reg) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %%%d", ErrRegisterRange, r)
	}
	return nil
}

func (b *Builder) expandChecked(size uint32) error {
	if size > 0xFFFF {
		return fmt.Errorf("%w: %%%d needs %d values", ErrRegisterOverflow, b.cur, size)
	}
	b.expand(size)
	return nil
}

// expand grows the current register to at least size.
func (b *Builder) expand(size uint32) {
	if uint32(b.layout.RegSizes[b.cur]) < size {
		b.layout.RegSizes[b.cur] = uint16(size)
	}
}

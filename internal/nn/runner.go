package nn

import "fmt"

// Runner executes a program against a Net allocated for it. Parameters are
// consumed in program order, the same order the Builder counted them in.
//
// Register sizes are tracked per run: a register read by an instruction has
// the size its most recent assignment gave it. Input registers start at
// their declared width.
type Runner[T Numeric] struct {
	net    *Net[T]
	k      Kernel[T]
	cur    Reg
	cursor int
	sizes  [MaxRegs]uint16
	// scratch holds results until the instruction has read all inputs,
	// so a destination may also be an operand.
	scratch []T
}

func NewRunner[T Numeric](net *Net[T], k Kernel[T]) *Runner[T] {
	r := &Runner[T]{net: net, k: k}
	r.sizes = net.layout.RegSizes
	var widest uint16
	for _, s := range r.sizes {
		widest = max(widest, s)
	}
	r.scratch = make([]T, widest)
	return r
}

// Reset rewinds the parameter cursor. Call it before every pass.
func (r *Runner[T]) Reset() {
	r.cur = 0
	r.cursor = 0
}

// Clear zeroes every register and restores the sizes the net was laid out
// with. Parameters are kept.
func (r *Runner[T]) Clear() {
	r.Reset()
	for reg := Reg(0); reg < MaxRegs; reg++ {
		clear(r.net.Register(reg))
	}
	r.sizes = r.net.layout.RegSizes
}

// Run resets the runner and executes src.
func (r *Runner[T]) Run(src []byte) error {
	r.Reset()
	return Exec(src, r)
}

// SetInput copies vals into register reg.
func (r *Runner[T]) SetInput(reg Reg, vals []T) error {
	dst := r.net.Register(reg)
	if dst == nil {
		return fmt.Errorf("%w: %%%d", ErrRegisterRange, reg)
	}
	if len(vals) > len(dst) {
		return fmt.Errorf("%w: %%%d holds %d values, got %d", ErrRegisterOverflow, reg, len(dst), len(vals))
	}
	copy(dst, vals)
	r.sizes[reg] = uint16(len(vals))
	return nil
}

// Output returns the current contents of reg, sized by its last
// assignment. The slice aliases the net.
func (r *Runner[T]) Output(reg Reg) []T {
	buf := r.net.Register(reg)
	if buf == nil {
		return nil
	}
	return buf[:r.sizes[reg]]
}

func (r *Runner[T]) BeginAssignment(dst Reg) error {
	if !dst.Valid() {
		return fmt.Errorf("%w: %%%d", ErrRegisterRange, dst)
	}
	r.cur = dst
	return nil
}

func (r *Runner[T]) Interpret(e Expr) error {
	switch e := e.(type) {
	case Linear:
		return r.linear(e)
	case MatMul:
		return r.matMul(e.Binary)
	case Concat:
		return r.concat(e.Binary)
	case CompAdd:
		return r.elementwise(e.Binary, r.k.Add)
	case CompMul:
		return r.elementwise(e.Binary, r.k.Mul)
	case ReLU:
		return r.unary(e.Unary, r.k.ReLU)
	case Sigmoid:
		return r.unary(e.Unary, r.k.Sigmoid)
	case Tanh:
		return r.unary(e.Unary, r.k.Tanh)
	default:
		return fmt.Errorf("nn: unsupported expression %T", e)
	}
}

func (r *Runner[T]) linear(e Linear) error {
	in, err := r.operand(e.In, int(e.InFeatures))
	if err != nil {
		return err
	}
	inF, outF := int(e.InFeatures), int(e.OutFeatures)
	params := r.net.Parameters()
	need := inF*outF + outF
	if r.cursor+need > len(params) {
		return fmt.Errorf("%w: need %d at %d of %d", ErrParametersExhausted, need, r.cursor, len(params))
	}
	weights := params[r.cursor : r.cursor+inF*outF]
	bias := params[r.cursor+inF*outF : r.cursor+need]

	out, err := r.result(outF)
	if err != nil {
		return err
	}
	for i := 0; i < outF; i++ {
		out[i] = r.k.Dot(weights[i*inF:(i+1)*inF], in, bias[i])
	}
	r.cursor += need
	return r.commit(outF)
}

func (r *Runner[T]) matMul(e Binary) error {
	left, right, err := r.operands(e)
	if err != nil {
		return err
	}
	k := len(right)
	rows := 0
	if k > 0 {
		rows = len(left) / k
	}
	out, err := r.result(rows)
	if err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		out[i] = r.k.Dot(left[i*k:(i+1)*k], right, r.k.Zero())
	}
	return r.commit(rows)
}

func (r *Runner[T]) concat(e Binary) error {
	left, right, err := r.operands(e)
	if err != nil {
		return err
	}
	n := len(left) + len(right)
	out, err := r.result(n)
	if err != nil {
		return err
	}
	copy(out, left)
	copy(out[len(left):], right)
	return r.commit(n)
}

func (r *Runner[T]) elementwise(e Binary, op func(a, b T) T) error {
	left, right, err := r.operands(e)
	if err != nil {
		return err
	}
	n := min(len(left), len(right))
	out, err := r.result(n)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		out[i] = op(left[i], right[i])
	}
	return r.commit(n)
}

func (r *Runner[T]) unary(e Unary, op func(T) T) error {
	if !e.In.Valid() {
		return fmt.Errorf("%w: %%%d", ErrRegisterRange, e.In)
	}
	in := r.Output(e.In)
	out, err := r.result(len(in))
	if err != nil {
		return err
	}
	for i, v := range in {
		out[i] = op(v)
	}
	return r.commit(len(in))
}

// operand returns the first n values of reg, failing when its last
// assignment left fewer than n.
func (r *Runner[T]) operand(reg Reg, n int) ([]T, error) {
	if !reg.Valid() {
		return nil, fmt.Errorf("%w: %%%d", ErrRegisterRange, reg)
	}
	cur := r.Output(reg)
	if n > len(cur) {
		return nil, fmt.Errorf("%w: %%%d holds %d values, read %d", ErrRegisterOverflow, reg, len(cur), n)
	}
	return cur[:n], nil
}

func (r *Runner[T]) operands(e Binary) ([]T, []T, error) {
	if !e.Left.Valid() {
		return nil, nil, fmt.Errorf("%w: %%%d", ErrRegisterRange, e.Left)
	}
	if !e.Right.Valid() {
		return nil, nil, fmt.Errorf("%w: %%%d", ErrRegisterRange, e.Right)
	}
	return r.Output(e.Left), r.Output(e.Right), nil
}

// result returns scratch space for n output values after checking the
// destination can hold them.
func (r *Runner[T]) result(n int) ([]T, error) {
	if dst := r.net.Register(r.cur); n > len(dst) {
		return nil, fmt.Errorf("%w: %%%d holds %d values, wrote %d", ErrRegisterOverflow, r.cur, len(dst), n)
	}
	if n > len(r.scratch) {
		r.scratch = make([]T, n)
	}
	return r.scratch[:n], nil
}

// commit moves n scratch values into the destination register.
func (r *Runner[T]) commit(n int) error {
	copy(r.net.Register(r.cur), r.scratch[:n])
	r.sizes[r.cur] = uint16(n)
	return nil
}

package nn

// MaxRegs is the number of register slots a Net has.
const MaxRegs = 16

// Reg is a register index as written in program text (%0 through %255).
// Only registers below MaxRegs can hold data; interpreters that touch
// memory reject the rest.
type Reg uint8

// Valid reports whether r addresses a register slot.
func (r Reg) Valid() bool { return r < MaxRegs }

// Expr is one of Linear, MatMul, Concat, CompAdd, CompMul, ReLU, Sigmoid or
// Tanh.
type Expr interface {
	expr()
}

// Linear is a fully connected layer: In holds InFeatures values and the
// result has OutFeatures values. It consumes InFeatures*OutFeatures weights
// followed by OutFeatures biases.
type Linear struct {
	InFeatures  uint16
	OutFeatures uint16
	In          Reg
}

// Binary holds the operands of a two-register operation.
type Binary struct {
	Left  Reg
	Right Reg
}

// MatMul multiplies the row-major matrix in Left by the vector in Right.
type MatMul struct{ Binary }

// Concat appends Right to Left.
type Concat struct{ Binary }

// CompAdd adds Left and Right element-wise.
type CompAdd struct{ Binary }

// CompMul multiplies Left and Right element-wise.
type CompMul struct{ Binary }

// Unary holds the operand of an activation.
type Unary struct {
	In Reg
}

type ReLU struct{ Unary }

type Sigmoid struct{ Unary }

type Tanh struct{ Unary }

func (Linear) expr()  {}
func (MatMul) expr()  {}
func (Concat) expr()  {}
func (CompAdd) expr() {}
func (CompMul) expr() {}
func (ReLU) expr()    {}
func (Sigmoid) expr() {}
func (Tanh) expr()    {}

// Interpreter consumes a program one assignment at a time. The parser calls
// BeginAssignment with the destination register, then Interpret with the
// right-hand side. A non-nil error stops the program.
type Interpreter interface {
	BeginAssignment(dst Reg) error
	Interpret(e Expr) error
}

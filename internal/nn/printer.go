package nn

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes a program back out in normalized form, one assignment
// per line.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

func (p *Printer) BeginAssignment(dst Reg) error {
	_, err := fmt.Fprintf(p.w, "%%%d = ", dst)
	return err
}

func (p *Printer) Interpret(e Expr) error {
	var err error
	switch e := e.(type) {
	case Linear:
		_, err = fmt.Fprintf(p.w, "Linear %d %d %%%d\n", e.InFeatures, e.OutFeatures, e.In)
	case MatMul:
		err = p.binary("MatMul", e.Binary)
	case Concat:
		err = p.binary("Concat", e.Binary)
	case CompAdd:
		err = p.binary("CompAdd", e.Binary)
	case CompMul:
		err = p.binary("CompMul", e.Binary)
	case ReLU:
		err = p.unary("ReLU", e.Unary)
	case Sigmoid:
		err = p.unary("Sigmoid", e.Unary)
	case Tanh:
		err = p.unary("Tanh", e.Unary)
	default:
		err = fmt.Errorf("nn: unsupported expression %T", e)
	}
	return err
}

func (p *Printer) binary(op string, e Binary) error {
	_, err := fmt.Fprintf(p.w, "%s %%%d %%%d\n", op, e.Left, e.Right)
	return err
}

func (p *Printer) unary(op string, e Unary) error {
	_, err := fmt.Fprintf(p.w, "%s %%%d\n", op, e.In)
	return err
}

// Format returns src in normalized form.
func Format(src []byte) (string, error) {
	var sb strings.Builder
	if err := Exec(src, NewPrinter(&sb)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

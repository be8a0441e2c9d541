package nn

import (
	"errors"
	"fmt"
)

// Syntax errors, wrapped in a *SyntaxError.
var (
	ErrUnexpectedToken     = errors.New("unexpected token")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrInvalidOperand      = errors.New("invalid operand")
	ErrRegisterOutOfBounds = errors.New("register out of bounds")
	ErrNumberOutOfBounds   = errors.New("number out of bounds")
)

// Errors returned by the builder and runner.
var (
	ErrRegisterRange       = errors.New("nn: register has no storage slot")
	ErrRegisterOverflow    = errors.New("nn: register overflow")
	ErrParametersExhausted = errors.New("nn: parameters exhausted")
	ErrNetTooLarge         = errors.New("nn: net too large")
	ErrInputAssigned       = errors.New("nn: assignment to input register")
)

// SyntaxError locates a parse failure in the program text.
type SyntaxError struct {
	Err    error
	Offset int
	// Line is 1-based.
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("nn: line %d offset %d: %v", e.Line, e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

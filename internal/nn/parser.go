package nn

import "bytes"

// Parser drives an Interpreter from program text.
type Parser struct {
	lex    *Lexer
	interp Interpreter

	line int
	// base offsets error positions when parsing a slice of a larger text.
	base     int
	baseLine int
}

func NewParser(lex *Lexer, interp Interpreter) *Parser {
	return &Parser{lex: lex, interp: interp, line: 1}
}

// Parse runs every assignment in the program. It stops at the first syntax
// error (a *SyntaxError) or interpreter error (returned unchanged).
func (p *Parser) Parse() error {
	for {
		tok := p.next()
		switch tok.Kind {
		case TokenNone:
			return nil
		case TokenRegister:
			if err := p.parseAssignment(tok); err != nil {
				return err
			}
		default:
			return p.syntaxError(ErrUnexpectedToken, tok)
		}
	}
}

func (p *Parser) parseAssignment(dstTok Token) error {
	dst, err := p.register(dstTok)
	if err != nil {
		return err
	}

	eq := p.next()
	if eq.Kind != TokenSymbol || p.lex.Text(eq)[0] != '=' {
		return p.syntaxError(ErrUnexpectedToken, eq)
	}

	fn := p.next()
	if fn.Kind != TokenIdentifier {
		return p.syntaxError(ErrUnexpectedToken, fn)
	}

	var e Expr
	switch string(p.lex.Text(fn)) {
	case "Linear":
		e, err = p.linear()
	case "MatMul":
		var b Binary
		b, err = p.binary()
		e = MatMul{b}
	case "Concat":
		var b Binary
		b, err = p.binary()
		e = Concat{b}
	case "CompAdd":
		var b Binary
		b, err = p.binary()
		e = CompAdd{b}
	case "CompMul":
		var b Binary
		b, err = p.binary()
		e = CompMul{b}
	case "ReLU":
		var u Unary
		u, err = p.unary()
		e = ReLU{u}
	case "Sigmoid":
		var u Unary
		u, err = p.unary()
		e = Sigmoid{u}
	case "Tanh":
		var u Unary
		u, err = p.unary()
		e = Tanh{u}
	default:
		return p.syntaxError(ErrUnknownFunction, fn)
	}
	if err != nil {
		return err
	}

	if err := p.interp.BeginAssignment(dst); err != nil {
		return err
	}
	return p.interp.Interpret(e)
}

func (p *Parser) linear() (Expr, error) {
	in, err := p.numberOperand()
	if err != nil {
		return nil, err
	}
	out, err := p.numberOperand()
	if err != nil {
		return nil, err
	}
	reg, err := p.registerOperand()
	if err != nil {
		return nil, err
	}
	return Linear{InFeatures: in, OutFeatures: out, In: reg}, nil
}

func (p *Parser) binary() (Binary, error) {
	left, err := p.registerOperand()
	if err != nil {
		return Binary{}, err
	}
	right, err := p.registerOperand()
	if err != nil {
		return Binary{}, err
	}
	return Binary{Left: left, Right: right}, nil
}

func (p *Parser) unary() (Unary, error) {
	in, err := p.registerOperand()
	if err != nil {
		return Unary{}, err
	}
	return Unary{In: in}, nil
}

func (p *Parser) registerOperand() (Reg, error) {
	tok := p.next()
	if tok.Kind != TokenRegister {
		return 0, p.syntaxError(ErrInvalidOperand, tok)
	}
	return p.register(tok)
}

func (p *Parser) numberOperand() (uint16, error) {
	tok := p.next()
	if tok.Kind != TokenNumber {
		return 0, p.syntaxError(ErrInvalidOperand, tok)
	}
	v, ok := parseDecimal(p.lex.Text(tok), 0xFFFF)
	if !ok {
		return 0, p.syntaxError(ErrNumberOutOfBounds, tok)
	}
	return uint16(v), nil
}

// register decodes a %N token.
func (p *Parser) register(tok Token) (Reg, error) {
	digits := p.lex.Text(tok)[1:]
	if len(digits) == 0 {
		return 0, p.syntaxError(ErrInvalidOperand, tok)
	}
	v, ok := parseDecimal(digits, 0xFF)
	if !ok {
		return 0, p.syntaxError(ErrRegisterOutOfBounds, tok)
	}
	return Reg(v), nil
}

// next returns the next meaningful token, counting the newlines it skips.
func (p *Parser) next() Token {
	for {
		tok := p.lex.Lex()
		switch tok.Kind {
		case TokenIgnore:
		case TokenNewline:
			p.line++
		default:
			return tok
		}
	}
}

func (p *Parser) syntaxError(err error, tok Token) error {
	return &SyntaxError{Err: err, Offset: p.base + tok.Offset, Line: p.baseLine + p.line}
}

// parseDecimal parses unsigned decimal digits, failing once the value
// exceeds max.
func parseDecimal(digits []byte, max uint32) (uint32, bool) {
	var v uint32
	for _, c := range digits {
		v = v*10 + uint32(c-'0')
		if v > max {
			return 0, false
		}
	}
	return v, true
}

// Exec runs every assignment in src through interp, in textual order.
func Exec(src []byte, interp Interpreter) error {
	return NewParser(NewLexer(src), interp).Parse()
}

// ExecReverse runs the statements of src through interp one line at a
// time, last line first. Error offsets and lines refer to src as a whole.
func ExecReverse(src []byte, interp Interpreter) error {
	var starts []int
	for off := 0; off < len(src); {
		starts = append(starts, off)
		i := bytes.IndexByte(src[off:], '\n')
		if i < 0 {
			break
		}
		off += i + 1
	}

	for i := len(starts) - 1; i >= 0; i-- {
		end := len(src)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		p := NewParser(NewLexer(src[starts[i]:end]), interp)
		p.base = starts[i]
		p.baseLine = i
		if err := p.Parse(); err != nil {
			return err
		}
	}
	return nil
}

// Package nn implements a tiny line-oriented language describing
// feed-forward networks, and the interpreters that size, allocate and run
// them.
//
// A program is a list of register assignments:
//
//	%1 = Linear 16 32 %0
//	%2 = ReLU %1
//
// The same text is first run through a Builder, which infers register sizes
// and the parameter count, and then through a Runner, which executes it
// against the allocated Net. Both consume the program through the
// Interpreter interface, so the text is never compiled to an intermediate
// form.
package nn

// TokenKind classifies a token.
type TokenKind uint8

const (
	TokenNone TokenKind = iota
	TokenRegister
	TokenIdentifier
	TokenNumber
	TokenSymbol
	TokenNewline
	TokenIgnore
)

func (k TokenKind) String() string {
	switch k {
	case TokenNone:
		return "none"
	case TokenRegister:
		return "register"
	case TokenIdentifier:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenSymbol:
		return "symbol"
	case TokenNewline:
		return "newline"
	case TokenIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// Token is a view into the lexer's source: Offset and Length bytes.
type Token struct {
	Kind   TokenKind
	Offset int
	Length int
}

// Lexer splits program text into tokens without copying it.
type Lexer struct {
	src []byte
	off int
}

func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src}
}

// Remaining returns the number of bytes not yet consumed.
func (l *Lexer) Remaining() int {
	if l.off > len(l.src) {
		return 0
	}
	return len(l.src) - l.off
}

// Text returns the source bytes covered by t.
func (l *Lexer) Text(t Token) []byte {
	return l.src[t.Offset : t.Offset+t.Length]
}

// Lex returns the next token, or a TokenNone token at the end of input.
func (l *Lexer) Lex() Token {
	if l.Remaining() == 0 {
		return Token{Kind: TokenNone, Offset: l.off}
	}

	c := l.src[l.off]
	switch {
	case c == '\n':
		return l.produce(TokenNewline, 1)
	case c == '\r':
		if l.peek(1) == '\n' {
			return l.produce(TokenNewline, 2)
		}
		return l.produce(TokenIgnore, 1)
	case c == ' ' || c == '\t':
		return l.produce(TokenIgnore, 1)
	case c == '%':
		return l.produce(TokenRegister, 1+l.run(1, isDigit))
	case isDigit(c):
		return l.produce(TokenNumber, l.run(0, isDigit))
	case isLetter(c):
		return l.produce(TokenIdentifier, l.run(0, isIdentChar))
	default:
		return l.produce(TokenSymbol, 1)
	}
}

func (l *Lexer) produce(kind TokenKind, n int) Token {
	t := Token{Kind: kind, Offset: l.off, Length: n}
	l.off += n
	return t
}

func (l *Lexer) peek(i int) byte {
	if l.off+i >= len(l.src) {
		return 0
	}
	return l.src[l.off+i]
}

// run counts the bytes matching fn, beginning start bytes past the cursor.
func (l *Lexer) run(start int, fn func(byte) bool) int {
	n := 0
	for i := l.off + start; i < len(l.src) && fn(l.src[i]); i++ {
		n++
	}
	return n
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isIdentChar(c byte) bool { return isLetter(c) || isDigit(c) || c == '_' }

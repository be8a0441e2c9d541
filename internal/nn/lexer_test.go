package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexer_SingleTokens(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		kind   TokenKind
		length int
	}{
		{"end of file", "", TokenNone, 0},
		{"symbol", "=", TokenSymbol, 1},
		{"space", " ", TokenIgnore, 1},
		{"tab", "\t", TokenIgnore, 1},
		{"lone CR", "\r", TokenIgnore, 1},
		{"LF", "\n", TokenNewline, 1},
		{"CRLF", "\r\n ", TokenNewline, 2},
		{"identifier", "Linear ", TokenIdentifier, 6},
		{"identifier with digits", "conv2d_x=", TokenIdentifier, 8},
		{"register", "%12 ", TokenRegister, 3},
		{"bare register sigil", "% ", TokenRegister, 1},
		{"number", "3141", TokenNumber, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := NewLexer([]byte(tc.src)).Lex()
			assert.Equal(t, tc.kind, tok.Kind)
			assert.Equal(t, tc.length, tok.Length)
		})
	}
}

func TestLexer_Statement(t *testing.T) {
	src := []byte("%1 = Linear 16 32 %0\n")
	l := NewLexer(src)

	var kinds []TokenKind
	var texts []string
	for l.Remaining() > 0 {
		tok := l.Lex()
		if tok.Kind == TokenIgnore {
			continue
		}
		kinds = append(kinds, tok.Kind)
		texts = append(texts, string(l.Text(tok)))
	}

	assert.Equal(t, []TokenKind{
		TokenRegister, TokenSymbol, TokenIdentifier, TokenNumber, TokenNumber, TokenRegister, TokenNewline,
	}, kinds)
	assert.Equal(t, []string{"%1", "=", "Linear", "16", "32", "%0", "\n"}, texts)
	assert.Equal(t, TokenNone, l.Lex().Kind)
}

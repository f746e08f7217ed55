package scanner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/adacomp/internal/errs"
	"github.com/skx/adacomp/internal/token"
)

func scanAll(t *testing.T, input string) ([]token.Token, *errs.Sink) {
	t.Helper()
	sink := errs.New()
	s := New(strings.NewReader(input), sink)

	var toks []token.Token
	for {
		tok := s.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks, sink
}

func TestKeywordsAndIdentifiersAreUppercased(t *testing.T) {
	toks, sink := scanAll(t, "Begin begin BEGIN myVar MyVar")
	require.Equal(t, 0, sink.Count())

	assert.Equal(t, token.BEGIN, toks[0].Type)
	assert.Equal(t, token.BEGIN, toks[1].Type)
	assert.Equal(t, token.BEGIN, toks[2].Type)

	assert.Equal(t, token.IDENT, toks[3].Type)
	assert.Equal(t, "MYVAR", toks[3].Str)
	assert.Equal(t, "MYVAR", toks[4].Str)
}

func TestIllegalUnderscore(t *testing.T) {
	_, sink := scanAll(t, "foo__bar")
	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.IllegalUnderscore, sink.Diagnostics()[0].Code)

	_, sink2 := scanAll(t, "trailing_")
	require.Equal(t, 1, sink2.Count())
	assert.Equal(t, errs.IllegalUnderscore, sink2.Diagnostics()[0].Code)
}

func TestRangeIsNeverConfusedWithReal(t *testing.T) {
	toks, sink := scanAll(t, "1..10")
	require.Equal(t, 0, sink.Count())

	require.Len(t, toks, 4) // int, range, int, eof
	assert.Equal(t, token.INTLIT, toks[0].Type)
	assert.EqualValues(t, 1, toks[0].IntVal)
	assert.Equal(t, token.RANGE, toks[1].Type)
	assert.Equal(t, token.INTLIT, toks[2].Type)
	assert.EqualValues(t, 10, toks[2].IntVal)
}

func TestRealLiteralWithExponent(t *testing.T) {
	toks, sink := scanAll(t, "1.5E+2")
	require.Equal(t, 0, sink.Count())
	require.Equal(t, token.REALLIT, toks[0].Type)
	assert.InDelta(t, 150.0, toks[0].RealVal, 0.0001)
}

func TestStringWithEmbeddedQuote(t *testing.T) {
	toks, sink := scanAll(t, `"a""b"`)
	require.Equal(t, 0, sink.Count())
	require.Equal(t, token.STRINGLIT, toks[0].Type)
	assert.Equal(t, `a"b`, toks[0].Str)
}

func TestUnterminatedStringIsStillProduced(t *testing.T) {
	toks, sink := scanAll(t, "\"oops\nafter")
	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.UnterminatedString, sink.Diagnostics()[0].Code)
	assert.Equal(t, token.STRINGLIT, toks[0].Type)
	assert.Equal(t, "oops", toks[0].Str)
}

func TestMultiCharacterOperators(t *testing.T) {
	toks, sink := scanAll(t, ":= <= <> >= ** ..")
	require.Equal(t, 0, sink.Count())

	want := []token.Type{token.ASSIGN, token.LE, token.NE, token.GE, token.POW, token.RANGE, token.EOF}
	for i, w := range want {
		assert.Equal(t, w, toks[i].Type, "token %d", i)
	}
}

func TestCommentToEndOfLine(t *testing.T) {
	toks, sink := scanAll(t, "x -- this is a comment\n:= 1")
	require.Equal(t, 0, sink.Count())

	assert.Equal(t, token.IDENT, toks[0].Type)
	assert.Equal(t, token.ASSIGN, toks[1].Type)
	assert.Equal(t, token.INTLIT, toks[2].Type)
}

func TestUnknownPunctuationIsADiagnostic(t *testing.T) {
	toks, sink := scanAll(t, "$")
	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.UnexpectedCharacter, sink.Diagnostics()[0].Code)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestTokenPositionsAreMonotonic(t *testing.T) {
	toks, _ := scanAll(t, "foo bar\nbaz\n")

	var last token.Position
	for _, tok := range toks {
		cur := tok.Pos
		if cur.Line < last.Line || (cur.Line == last.Line && cur.Col < last.Col) {
			t.Fatalf("token positions not monotonic: %v came after %v", cur, last)
		}
		last = cur
	}
}

func TestEOFIsSticky(t *testing.T) {
	s := New(strings.NewReader("x"), errs.New())
	_ = s.NextToken() // x
	a := s.NextToken()
	b := s.NextToken()
	assert.Equal(t, token.EOF, a.Type)
	assert.Equal(t, token.EOF, b.Type)
}

package symtab

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalScopeNeverPops(t *testing.T) {
	tab := New()
	require.Equal(t, 0, tab.Level())

	tab.CloseScope()
	tab.CloseScope()
	assert.Equal(t, 0, tab.Level(), "closing the outermost scope must be a no-op")
}

func TestOpenCloseNesting(t *testing.T) {
	tab := New()
	tab.OpenScope()
	tab.OpenScope()
	assert.Equal(t, 2, tab.Level())

	tab.CloseScope()
	assert.Equal(t, 1, tab.Level())
}

func TestEnterReturnsExistingRecordInTopFrame(t *testing.T) {
	tab := New()
	a := tab.Enter("X")
	a.Type = Integer

	b := tab.Enter("X")
	assert.Same(t, a, b, "re-entering the same name in the same frame must return the existing record")
	assert.Equal(t, Integer, b.Type)
}

func TestLookupLocalDoesNotSeeOuterScopes(t *testing.T) {
	tab := New()
	tab.Enter("OUTER")
	tab.OpenScope()

	_, ok := tab.LookupLocal("OUTER")
	assert.False(t, ok, "lookup_local must not see enclosing scopes")

	_, ok = tab.Lookup("OUTER")
	assert.True(t, ok, "lookup must see enclosing scopes")
}

func TestLookupFindsInnermostShadow(t *testing.T) {
	tab := New()
	outer := tab.Enter("X")
	outer.Type = Integer

	tab.OpenScope()
	inner := tab.Enter("X")
	inner.Type = Real

	found, ok := tab.Lookup("X")
	require.True(t, ok)
	assert.Equal(t, Real, found.Type, "lookup must prefer the innermost declaration")
}

func TestLookupMiss(t *testing.T) {
	tab := New()
	_, ok := tab.Lookup("NOPE")
	assert.False(t, ok)
}

func TestDumpWalksOutermostToInnermost(t *testing.T) {
	tab := New()
	g := tab.Enter("G")
	g.Type = Integer
	g.Kind = KindVariable

	tab.OpenScope()
	l := tab.Enter("L")
	l.Type = Boolean
	l.Kind = KindConstant

	var buf bytes.Buffer
	tab.Dump(&buf)

	out := buf.String()
	gIdx := indexOf(out, "Token Name: G")
	lIdx := indexOf(out, "Token Name: L")
	require.GreaterOrEqual(t, gIdx, 0)
	require.GreaterOrEqual(t, lIdx, 0)
	assert.Less(t, gIdx, lIdx, "outer scope's records must print before inner scope's")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestLoopIndexIsNotAssignable(t *testing.T) {
	assert.False(t, KindLoopIndex.Assignable())
	assert.False(t, KindConstant.Assignable())
	assert.True(t, KindVariable.Assignable())
}

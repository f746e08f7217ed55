package emitter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelPlacementAndResolution(t *testing.T) {
	e := New()

	e.EmitLCI(1)
	e.EmitJMP("end")
	e.EmitLCI(2)
	e.PlaceLabel("end")
	e.EmitHLT()

	var buf bytes.Buffer
	require.NoError(t, e.Finalize(&buf))

	out := buf.String()
	assert.Contains(t, out, "JMP")
	assert.Contains(t, out, " 4(2)") // the JMP at instruction 2 resolves "end" to instruction 4
	assert.NotContains(t, out, "end", "the label name must not leak into the resolved listing")
}

func TestUnresolvedLabelIsFatal(t *testing.T) {
	e := New()
	e.EmitJMP("nowhere")

	var buf bytes.Buffer
	err := e.Finalize(&buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestPlacingSameLabelTwicePanics(t *testing.T) {
	e := New()
	e.PlaceLabel("dup")

	assert.Panics(t, func() {
		e.PlaceLabel("dup")
	})
}

func TestPrologueReservesFixedBuiltinAddresses(t *testing.T) {
	e := New()
	e.EmitPrologue()

	for _, name := range []string{"INT2REAL", "REAL2INT", "INT2STRING", "REAL2STRING"} {
		addr, ok := e.BuiltinAddr(name)
		assert.True(t, ok, "%s must have a reserved address", name)
		assert.Greater(t, addr, 1, "builtin addresses follow the prologue jump at instruction 1")
	}

	real2intAddr, _ := e.BuiltinAddr("REAL2INT")
	int2realAddr, _ := e.BuiltinAddr("INT2REAL")
	assert.Greater(t, real2intAddr, int2realAddr, "builtins are laid down INT2REAL, REAL2INT, INT2STRING, REAL2STRING")

	var buf bytes.Buffer
	require.NoError(t, e.Finalize(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "JMP"), "instruction 1 must be the prologue jump")
}

func TestExactlyOneINCPerScope(t *testing.T) {
	e := New()
	e.EmitPrologue()
	e.EmitINC(3)

	count := 0
	for _, ins := range e.Instructions() {
		if ins.Op == INC {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one INC should be emitted for a single scope")
}

func TestWhileLoopShape(t *testing.T) {
	e := New()

	start := e.NewLabel()
	end := e.NewLabel()

	e.PlaceLabel(start)
	e.EmitLCI(1) // stand-in for the condition
	e.EmitJIF(end)
	e.EmitLCI(2) // stand-in for the body
	e.EmitJMP(start)
	e.PlaceLabel(end)

	var buf bytes.Buffer
	require.NoError(t, e.Finalize(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "JIF"))
	assert.Contains(t, lines[1], " 5(2)") // JIF (instruction 2) targets end, placed after the 4 body instructions
	assert.True(t, strings.HasPrefix(lines[3], "JMP"))
	assert.Contains(t, lines[3], " 1(4)") // JMP (instruction 4) targets start, instruction 1
}

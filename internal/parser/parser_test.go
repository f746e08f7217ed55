package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/adacomp/internal/emitter"
	"github.com/skx/adacomp/internal/errs"
)

func compile(t *testing.T, src string) (*Parser, *errs.Sink, string) {
	t.Helper()
	sink := errs.New()
	p := New(strings.NewReader(src), sink)

	var dump bytes.Buffer
	p.Parse(&dump)

	var listing bytes.Buffer
	require.NoError(t, p.Emitter().Finalize(&listing))

	return p, sink, dump.String()
}

func TestEmptyProgramRoundTrip(t *testing.T) {
	_, sink, _ := compile(t, `program P is begin end P;`)

	require.Equal(t, 0, sink.Count())
}

func TestEmptyProgramEmitsPrologueJumpAndHalt(t *testing.T) {
	p, sink, _ := compile(t, `program P is begin end P;`)
	require.Equal(t, 0, sink.Count())

	ins := p.Emitter().Instructions()
	require.NotEmpty(t, ins)
	assert.Equal(t, "JMP", ins[0].Op.String(), "instruction 1 must be the prologue's jump over the builtin block")

	var sawHlt bool
	for _, i := range ins {
		if i.Op.String() == "HLT" {
			sawHlt = true
		}
	}
	assert.True(t, sawHlt, "an empty program body must still emit HLT")
}

func TestDuplicateDeclarationReported(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
			X : INTEGER;
			X : REAL;
		begin
		end P;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.DuplicateDeclaration, sink.Diagnostics()[0].Code)
}

func TestAssignmentTypeMismatchReported(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
			S : STRING;
		begin
			S := 1;
		end P;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.TypeMismatch, sink.Diagnostics()[0].Code)
}

func TestAssignmentWideningIntegerToRealAcceptedWithoutDiagnostic(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
			R : REAL;
		begin
			R := 1;
		end P;`)

	assert.Equal(t, 0, sink.Count())
}

func TestAssignmentToConstantRejected(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
			constant C := 1;
		begin
			C := 2;
		end P;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.IdentifierNotAssignable, sink.Diagnostics()[0].Code)
}

func TestAssignmentToLoopIndexRejected(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
		begin
			for I in 1 .. 10 loop
				I := 2;
			end loop;
		end P;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.IdentifierNotAssignable, sink.Diagnostics()[0].Code)
}

func TestExitOutsideLoopReported(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
		begin
			exit;
		end P;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.ExitOutsideLoop, sink.Diagnostics()[0].Code)
}

func TestExitInsideLoopAccepted(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
		begin
			while TRUE loop
				exit when TRUE;
			end loop;
		end P;`)

	assert.Equal(t, 0, sink.Count())
}

func TestEndIdentifierMismatchReported(t *testing.T) {
	_, sink, _ := compile(t, `program P is begin end Q;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.EndIdentifierMismatch, sink.Diagnostics()[0].Code)
}

func TestRecoveryAfterMissingSemicolonSuppressesCascade(t *testing.T) {
	// A single missing ';' must produce exactly one diagnostic: once
	// recovery resynchronizes on the declaration follow set, the next
	// declaration is parsed cleanly.
	_, sink, _ := compile(t, `
		program P is
			X : INTEGER
			Y : INTEGER;
		begin
		end P;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.ExpectedSemicolon, sink.Diagnostics()[0].Code)
}

func TestReturnTypeMismatchInFunctionReported(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
			function F return INTEGER is
			begin
				return "nope";
			end F;
		begin
		end P;`)

	require.Equal(t, 1, sink.Count())
	assert.Equal(t, errs.TypeMismatch, sink.Diagnostics()[0].Code)
}

func TestReturnWideningIntegerToRealFunctionAccepted(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
			function F return REAL is
			begin
				return 1;
			end F;
		begin
		end P;`)

	assert.Equal(t, 0, sink.Count())
}

func TestScopeOpenCloseCountsMatch(t *testing.T) {
	p, sink, dump := compile(t, `
		program P is
			X : INTEGER;
			procedure Inner is
				Y : INTEGER;
			begin
			end Inner;
		begin
		end P;`)

	require.Equal(t, 0, sink.Count())
	assert.Contains(t, dump, "scope level 0")
	assert.Contains(t, dump, "scope level 1")
	assert.Equal(t, 0, p.SymbolTable().Level(), "every scope opened while parsing must have been closed")
}

func TestFunctionCallableFromOutsideItsOwnBody(t *testing.T) {
	_, sink, _ := compile(t, `
		program P is
			R : INTEGER;

			function Square (N : VALUE INTEGER) return INTEGER is
			begin
				return N * N;
			end Square;

		begin
			R := Square(3);
		end P;`)

	assert.Equal(t, 0, sink.Count())
}

func TestInitializerStoredAfterFrameReserved(t *testing.T) {
	// A var_decl's `:= expr` initializer must be stored only after the
	// enclosing scope's INC has reserved its locals; otherwise the store
	// writes into an unallocated frame.
	p, sink, _ := compile(t, `
		program P is
			X : INTEGER := 1;
		begin
		end P;`)
	require.Equal(t, 0, sink.Count())

	ins := p.Emitter().Instructions()
	incIdx, stoIdx := -1, -1
	for i, in := range ins {
		switch in.Op.String() {
		case "INC":
			if incIdx == -1 {
				incIdx = i
			}
		case "STO":
			if stoIdx == -1 {
				stoIdx = i
			}
		}
	}
	require.NotEqual(t, -1, incIdx, "expected an INC instruction")
	require.NotEqual(t, -1, stoIdx, "expected a STO instruction")
	assert.Less(t, incIdx, stoIdx, "INC must reserve the frame before any initializer STOs into it")
}

func TestForLoopBoundsStoredAfterFrameReserved(t *testing.T) {
	p, sink, _ := compile(t, `
		program P is
		begin
			for I in 1 .. 5 loop
				null;
			end loop;
		end P;`)
	require.Equal(t, 0, sink.Count())

	ins := p.Emitter().Instructions()
	var incIdx, stoIdx = -1, -1
	for i, in := range ins {
		switch in.Op.String() {
		case "INC":
			if incIdx == -1 || i > incIdx {
				// the for-loop's own INC is the last one emitted,
				// after the program's outer-scope INC.
				incIdx = i
			}
		case "STO":
			if stoIdx == -1 {
				stoIdx = i
			}
		}
	}
	require.NotEqual(t, -1, incIdx)
	require.NotEqual(t, -1, stoIdx)
	assert.Less(t, incIdx, stoIdx, "the loop's INC must reserve its frame before either bound is stored")
}

func TestReverseForLoopCountsDown(t *testing.T) {
	p, sink, _ := compile(t, `
		program P is
		begin
			for I in reverse 1 .. 5 loop
				null;
			end loop;
		end P;`)

	assert.Equal(t, 0, sink.Count())

	var testsGe, stepsDown bool
	for _, in := range p.Emitter().Instructions() {
		if in.Op == emitter.OPR && in.Arg.Int == emitter.OpGe {
			testsGe = true
		}
		if in.Op == emitter.OPR && in.Arg.Int == emitter.OpSub {
			stepsDown = true
		}
	}
	assert.True(t, testsGe, "a reverse loop must test index >= start bound")
	assert.True(t, stepsDown, "a reverse loop must step the index by -1")
}

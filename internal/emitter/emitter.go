// Package emitter produces target-machine instructions with symbolic
// labels and resolves those labels on finalization.
//
// Instructions accumulate in an ordered, 1-based sequence as the
// parser drives grammar actions; labels name a future instruction
// index and are bound exactly once, then resolved - never before -
// during Finalize.
package emitter

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// builtinNames is the fixed prologue order the four conversion
// builtins are laid down in: INT2REAL first, then REAL2INT,
// INT2STRING, REAL2STRING, exactly as specified.
var builtinNames = []string{"INT2REAL", "REAL2INT", "INT2STRING", "REAL2STRING"}

var builtinOp = map[string]int{
	"INT2REAL":    OpInt2Real,
	"REAL2INT":    OpReal2Int,
	"INT2STRING":  OpInt2String,
	"REAL2STRING": OpReal2String,
}

// Emitter accumulates instructions and resolves labels.
type Emitter struct {
	instructions []Instruction
	labels       map[string]int // label name -> 1-based instruction index
	labelSeq     int

	// builtinAddr holds the fixed entry instruction index of each
	// conversion builtin, reserved by EmitPrologue.
	builtinAddr map[string]int
}

// New returns an empty emitter.
func New() *Emitter {
	return &Emitter{labels: make(map[string]int), builtinAddr: make(map[string]int)}
}

// NewLabel returns a fresh, unique symbolic label name.
func (e *Emitter) NewLabel() string {
	e.labelSeq++
	return fmt.Sprintf("L%d", e.labelSeq)
}

// nextIndex is the 1-based index the next appended instruction will
// occupy.
func (e *Emitter) nextIndex() int {
	return len(e.instructions) + 1
}

// PlaceLabel binds name to the index of the next instruction to be
// appended. Each name may be placed at most once.
func (e *Emitter) PlaceLabel(name string) {
	if _, exists := e.labels[name]; exists {
		panic(fmt.Sprintf("emitter: label %q placed twice", name))
	}
	e.labels[name] = e.nextIndex()
}

// Emit appends an instruction and returns its 1-based index.
func (e *Emitter) Emit(op Opcode, level int, arg Operand, comment string) int {
	e.instructions = append(e.instructions, Instruction{Op: op, Level: level, Arg: arg, Comment: comment})
	return e.nextIndex() - 1
}

// BuiltinAddr returns the fixed entry instruction index of a
// conversion builtin, set up by EmitPrologue.
func (e *Emitter) BuiltinAddr(name string) (int, bool) {
	addr, ok := e.builtinAddr[name]
	return addr, ok
}

// EmitPrologue lays down a single jump into user code as instruction
// 1, followed by the fixed conversion-builtin block it jumps over (one
// load-argument / conversion-OPR / return triple per builtin, in the
// order INT2REAL, REAL2INT, INT2STRING, REAL2STRING). Must be called
// exactly once, before any other instruction is emitted.
func (e *Emitter) EmitPrologue() {
	jmpIdx := e.Emit(JMP, 0, LabelOperand(""), "prologue: jump over builtin conversion block")
	skipLabel := e.NewLabel()

	for _, name := range builtinNames {
		e.builtinAddr[name] = e.nextIndex()
		e.Emit(LDV, 0, IntOperand(1), fmt.Sprintf("%s: load argument", name))
		e.Emit(OPR, 0, IntOperand(int64(builtinOp[name])), fmt.Sprintf("%s: convert", name))
		e.Emit(RET, 0, Operand{}, fmt.Sprintf("%s: return", name))
	}

	e.PlaceLabel(skipLabel)
	e.instructions[jmpIdx-1].Arg = LabelOperand(skipLabel)
}

// EmitINC reserves local storage for the scope currently being
// entered; exactly one INC is emitted per scope frame, sized to that
// scope's local count (the teacher's generated prologue emitted two of
// these for the outermost scope - a bug this rewrite does not
// reproduce).
func (e *Emitter) EmitINC(count int) {
	e.Emit(INC, 0, IntOperand(int64(count)), "reserve locals")
}

// EmitMST reserves a new activation frame ahead of a call.
func (e *Emitter) EmitMST() {
	e.Emit(MST, 0, Operand{}, "mark stack")
}

// EmitCALAddr/EmitCALLabel call the procedure/function at a fixed
// address (a builtin) or at a label (a user routine), crossing `level`
// static levels.
func (e *Emitter) EmitCALAddr(level int, addr int, comment string) {
	e.Emit(CAL, level, IntOperand(int64(addr)), comment)
}

func (e *Emitter) EmitCALLabel(level int, label string, comment string) {
	e.Emit(CAL, level, LabelOperand(label), comment)
}

// EmitLDV/EmitLDA/EmitSTO/EmitSTI address a variable by its static
// level difference and offset within its declaring level.
func (e *Emitter) EmitLDV(level int, offset int, comment string) {
	e.Emit(LDV, level, IntOperand(int64(offset)), comment)
}

func (e *Emitter) EmitLDA(level int, offset int, comment string) {
	e.Emit(LDA, level, IntOperand(int64(offset)), comment)
}

func (e *Emitter) EmitSTO(level int, offset int, comment string) {
	e.Emit(STO, level, IntOperand(int64(offset)), comment)
}

func (e *Emitter) EmitSTI(comment string) {
	e.Emit(STI, 0, Operand{}, comment)
}

// EmitLCI/EmitLCR/EmitLCS push a literal constant.
func (e *Emitter) EmitLCI(v int64)    { e.Emit(LCI, 0, IntOperand(v), "load integer constant") }
func (e *Emitter) EmitLCR(v float64)  { e.Emit(LCR, 0, RealOperand(v), "load real constant") }
func (e *Emitter) EmitLCS(v string)   { e.Emit(LCS, 0, StringOperand(v), "load string constant") }

// EmitOPR emits one of the fixed arithmetic/comparison/logical/
// conversion operations.
func (e *Emitter) EmitOPR(code int, comment string) {
	e.Emit(OPR, 0, IntOperand(int64(code)), comment)
}

// EmitJMP/EmitJIF branch unconditionally, or on a false top-of-stack
// boolean, to a (possibly not-yet-placed) label.
func (e *Emitter) EmitJMP(label string) {
	e.Emit(JMP, 0, LabelOperand(label), "")
}

func (e *Emitter) EmitJIF(label string) {
	e.Emit(JIF, 0, LabelOperand(label), "")
}

func (e *Emitter) EmitRDI(level, offset int) { e.Emit(RDI, level, IntOperand(int64(offset)), "read integer") }
func (e *Emitter) EmitRDR(level, offset int) { e.Emit(RDR, level, IntOperand(int64(offset)), "read real") }

func (e *Emitter) EmitWRI() { e.Emit(WRI, 0, Operand{}, "write integer") }
func (e *Emitter) EmitWRR() { e.Emit(WRR, 0, Operand{}, "write real") }
func (e *Emitter) EmitWRS() { e.Emit(WRS, 0, Operand{}, "write string") }
func (e *Emitter) EmitWLN() { e.Emit(WLN, 0, Operand{}, "write newline") }

func (e *Emitter) EmitRET() { e.Emit(RET, 0, Operand{}, "return") }
func (e *Emitter) EmitHLT() { e.Emit(HLT, 0, Operand{}, "halt") }

// PatchLabel rewrites the operand of the instruction at the given
// 1-based index to target a new label - used by the parser to back
// patch a JMP/JIF emitted before its target label was known to exist
// (as opposed to the common case of emitting the branch with the
// label operand set up front and placing the label later).
func (e *Emitter) PatchLabel(index int, label string) {
	e.instructions[index-1].Arg = LabelOperand(label)
}

// Finalize resolves every label operand to its placed instruction
// index and writes the fixed-width textual instruction listing to w.
// A label referenced but never placed is a fatal internal error - by
// the time Finalize runs the parser must have balanced every label it
// allocated against a place_label call.
func (e *Emitter) Finalize(w io.Writer) error {
	for i, ins := range e.instructions {
		if ins.Arg.Kind != OperandLabel {
			continue
		}
		idx, ok := e.labels[ins.Arg.Label]
		if !ok {
			return errors.Errorf("emitter: label %q referenced by instruction %d was never placed", ins.Arg.Label, i+1)
		}
		e.instructions[i].Arg = IntOperand(int64(idx))
	}

	for i, ins := range e.instructions {
		line, err := formatInstruction(ins, i+1)
		if err != nil {
			return errors.Wrap(err, "emitter: formatting instruction")
		}
		if _, err := io.WriteString(w, line); err != nil {
			return errors.Wrap(err, "emitter: writing instruction")
		}
	}
	return nil
}

// formatInstruction renders one instruction as a fixed-width textual
// record: opcode (5 chars), first operand (6 chars), resolved second
// operand (13 chars), the 1-based index in parentheses, then a
// free-form comment.
func formatInstruction(ins Instruction, index int) (string, error) {
	var second string
	switch ins.Arg.Kind {
	case OperandNone:
		second = ""
	case OperandInt:
		second = fmt.Sprintf("%d", ins.Arg.Int)
	case OperandReal:
		second = fmt.Sprintf("%g", ins.Arg.Real)
	case OperandString:
		second = fmt.Sprintf("%q", ins.Arg.Str)
	case OperandLabel:
		return "", errors.Errorf("emitter: instruction %d still has an unresolved label operand %q", index, ins.Arg.Label)
	}

	comment := ""
	if ins.Comment != "" {
		comment = "  ; " + ins.Comment
	}

	return fmt.Sprintf("%-5s%6d%13s(%d)%s\n", ins.Op.String(), ins.Level, second, index, comment), nil
}

// Instructions returns the accumulated instruction stream, for tests
// and for the driver's instruction-count logging.
func (e *Emitter) Instructions() []Instruction {
	return e.instructions
}

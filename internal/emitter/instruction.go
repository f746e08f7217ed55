package emitter

import "fmt"

// Opcode is the tag of a target-machine instruction.
type Opcode int

const (
	JMP Opcode = iota // unconditional jump to a label
	JIF               // jump to a label if the top-of-stack boolean is false
	LDV               // load a variable's value
	LDA               // load a variable's address
	STO               // store top-of-stack into a variable
	STI               // store indirect, through an address on the stack
	LCI               // load an integer constant
	LCR               // load a real constant
	LCS               // load a string constant
	OPR               // perform operation n, from the fixed operation table
	MST               // mark stack: reserve a new activation frame before a call
	CAL               // call a procedure or function
	INC               // reserve local storage for the current scope
	RDI               // read an integer from stdin into a variable
	RDR               // read a real from stdin into a variable
	WRI               // write an integer
	WRR               // write a real
	WRS               // write a string
	WLN               // write a newline
	RET               // return from the current procedure/function
	HLT               // halt the machine
)

var opcodeNames = map[Opcode]string{
	JMP: "JMP", JIF: "JIF", LDV: "LDV", LDA: "LDA", STO: "STO", STI: "STI",
	LCI: "LCI", LCR: "LCR", LCS: "LCS", OPR: "OPR", MST: "MST", CAL: "CAL",
	INC: "INC", RDI: "RDI", RDR: "RDR", WRI: "WRI", WRR: "WRR", WRS: "WRS",
	WLN: "WLN", RET: "RET", HLT: "HLT",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return fmt.Sprintf("OP(%d)", int(op))
}

// OPR operation codes - the fixed table of arithmetic, comparison,
// logical, I/O, and conversion operations selected by an OPR
// instruction's second operand.
const (
	OpAdd = iota + 1
	OpSub
	OpMul
	OpDiv
	OpPow
	OpMod
	OpNeg
	OpNot
	OpAnd
	OpOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpOdd
	OpConcat
	OpInt2Real
	OpReal2Int
	OpInt2String
	OpReal2String
)

// OperandKind tags which field of Operand is meaningful.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandInt
	OperandReal
	OperandString
	OperandLabel // unresolved until Finalize
)

// Operand is an instruction's second operand: an integer, a string
// literal, a real literal, or an unresolved symbolic label.
type Operand struct {
	Kind  OperandKind
	Int   int64
	Real  float64
	Str   string
	Label string
}

// IntOperand, RealOperand, StringOperand, and LabelOperand build the
// corresponding Operand value.
func IntOperand(v int64) Operand    { return Operand{Kind: OperandInt, Int: v} }
func RealOperand(v float64) Operand { return Operand{Kind: OperandReal, Real: v} }
func StringOperand(v string) Operand {
	return Operand{Kind: OperandString, Str: v}
}
func LabelOperand(name string) Operand { return Operand{Kind: OperandLabel, Label: name} }

// Instruction is one emitted target-machine instruction.
type Instruction struct {
	Op      Opcode
	Level   int // first operand - typically a static level difference
	Arg     Operand
	Comment string
}

// Package symtab is the symbol table: a stack of lexical scopes, each
// an insertion-ordered map from an uppercased identifier to the record
// that describes it.
package symtab

import (
	"fmt"
	"io"

	"github.com/skx/adacomp/internal/stack"
)

// Type is the semantic type of a declared identifier.
type Type int

const (
	Unknown Type = iota
	Integer
	Real
	StringType
	Boolean
	FunctionType
	ProgramType
	Void // marks a procedure's (non-)return type; never a declarable type
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case StringType:
		return "STRING"
	case Boolean:
		return "BOOLEAN"
	case FunctionType:
		return "FUNCTION"
	case ProgramType:
		return "PROGRAM"
	case Void:
		return "VOID"
	default:
		return "UNKNOWN"
	}
}

// Kind distinguishes what sort of thing a record names - in particular
// it is what the analyzer consults to decide whether an identifier may
// appear on the left of an assignment.
type Kind int

const (
	KindUnknown Kind = iota
	KindVariable
	KindConstant
	KindLoopIndex // for-loop control variable: not assignable, distinct from KindVariable
	KindProcedure
	KindFunction
	KindProgram
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindLoopIndex:
		return "loop-index"
	case KindProcedure:
		return "procedure"
	case KindFunction:
		return "function"
	case KindProgram:
		return "program"
	default:
		return "unknown"
	}
}

// Assignable reports whether a record of this kind may appear on the
// left-hand side of an assignment.
func (k Kind) Assignable() bool {
	return k == KindVariable
}

// Record describes one declared identifier.
type Record struct {
	Name string // text as passed to Enter: the scanner's uppercased form; the original spelling is not kept
	Type Type
	Kind Kind

	Line, Col int // declaration position
	Level     int // lexical nesting level this record lives at
	Offset    int // sequential offset within its level, set by the parser
	ReturnTy  Type
	NumParams int

	// EntryLabel is the symbolic label of a user procedure/function's
	// entry point, target of a CAL instruction. Builtins are called by
	// fixed address instead and leave this empty.
	EntryLabel string
}

// scope is one insertion-ordered frame: a map plus the order its keys
// were inserted in, so Dump can walk declarations in declaration order.
type scope struct {
	order   []string
	entries map[string]*Record
}

func newScope() *scope {
	return &scope{entries: make(map[string]*Record)}
}

// Table is the stack of scopes. Index 0 (bottom of the stack) is the
// outermost, global scope; it is never popped.
type Table struct {
	scopes *stack.Stack[*scope]
}

// New returns a table with just the global scope open.
func New() *Table {
	t := &Table{scopes: stack.New[*scope]()}
	t.scopes.Push(newScope())
	return t
}

// OpenScope pushes a new, empty frame.
func (t *Table) OpenScope() {
	t.scopes.Push(newScope())
}

// CloseScope pops the top frame, discarding its records. Popping the
// outermost (global) frame is a silent no-op.
func (t *Table) CloseScope() {
	if t.scopes.Len() <= 1 {
		return
	}
	_, _ = t.scopes.Pop()
}

// Level returns the current (0-based) lexical nesting depth.
func (t *Table) Level() int {
	return t.scopes.Len() - 1
}

// Enter inserts a new record for name in the top frame and returns it.
// If a record for name already exists in the top frame, that existing
// record is returned instead - the analyzer, not the table, decides
// whether that is an error.
func (t *Table) Enter(name string) *Record {
	frames := t.scopes.All()
	top := frames[len(frames)-1]

	if r, ok := top.entries[name]; ok {
		return r
	}

	r := &Record{Name: name, Level: t.Level()}
	top.entries[name] = r
	top.order = append(top.order, name)
	return r
}

// LookupLocal searches only the top frame.
func (t *Table) LookupLocal(name string) (*Record, bool) {
	frames := t.scopes.All()
	top := frames[len(frames)-1]
	r, ok := top.entries[name]
	return r, ok
}

// Lookup searches from the innermost frame outward, returning the
// first match.
func (t *Table) Lookup(name string) (*Record, bool) {
	frames := t.scopes.All()
	for i := len(frames) - 1; i >= 0; i-- {
		if r, ok := frames[i].entries[name]; ok {
			return r, true
		}
	}
	return nil, false
}

// Dump prints every record of every open frame, from the outermost
// (level 0) to the innermost, each frame in declaration order - the
// external symbol table dump format.
func (t *Table) Dump(w io.Writer) {
	frames := t.scopes.All()
	for level, f := range frames {
		fmt.Fprintf(w, "---- scope level %d ----\n", level)
		for _, name := range f.order {
			r := f.entries[name]
			fmt.Fprintf(w, "Token Name: %s  Line No: %d  Position: %d  Type: %s  Kind: %s  Level: %d  Offset: %d  Trace?: 0  #params: %d",
				r.Name, r.Line, r.Col, r.Type, r.Kind, r.Level, r.Offset, r.NumParams)
			if r.Kind == KindFunction {
				fmt.Fprintf(w, "  Return ty: %s", r.ReturnTy)
			}
			fmt.Fprintln(w)
		}
	}
}

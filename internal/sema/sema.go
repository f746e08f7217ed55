// Package sema is the semantic analyzer: it type-checks expressions
// and assignments against the symbol table, installs the four builtin
// conversion functions, and enforces the declaration and
// assignability rules of the language.
package sema

import (
	"github.com/skx/adacomp/internal/errs"
	"github.com/skx/adacomp/internal/symtab"
	"github.com/skx/adacomp/internal/token"
)

// builtinResult gives the fixed result type of each builtin conversion
// function, consulted regardless of whatever the symbol table happens
// to hold for the name.
var builtinResult = map[string]symtab.Type{
	"INT2REAL":    symtab.Real,
	"REAL2INT":    symtab.Integer,
	"INT2STRING":  symtab.StringType,
	"REAL2STRING": symtab.StringType,
}

// Analyzer ties the symbol table to the error sink and implements the
// type-checking rules.
type Analyzer struct {
	tab  *symtab.Table
	sink *errs.Sink
}

// New returns an analyzer over tab, reporting diagnostics to sink.
func New(tab *symtab.Table, sink *errs.Sink) *Analyzer {
	return &Analyzer{tab: tab, sink: sink}
}

// InstallBuiltins enters the four conversion functions into the
// outermost scope. Must be called once, before parsing begins.
func (a *Analyzer) InstallBuiltins() {
	for name := range builtinResult {
		r := a.tab.Enter(name)
		r.Kind = symtab.KindFunction
		r.Type = symtab.FunctionType
		r.ReturnTy = builtinResult[name]
		r.NumParams = 1
	}
}

// DeclareVar enters name as a variable of typ. A redeclaration within
// the current scope is reported and otherwise ignored.
func (a *Analyzer) DeclareVar(name string, typ symtab.Type, pos token.Position) *symtab.Record {
	return a.declare(name, typ, symtab.KindVariable, pos)
}

// DeclareConst enters name as a constant of typ.
func (a *Analyzer) DeclareConst(name string, typ symtab.Type, pos token.Position) *symtab.Record {
	return a.declare(name, typ, symtab.KindConstant, pos)
}

// DeclareLoopIndex enters name as a for-loop control variable: a
// distinct, non-assignable kind (see the Open Question this resolves:
// for-loop indices must reject assignment, not merely be conventionally
// left alone).
func (a *Analyzer) DeclareLoopIndex(name string, typ symtab.Type, pos token.Position) *symtab.Record {
	return a.declare(name, typ, symtab.KindLoopIndex, pos)
}

// DeclareProcedure/DeclareFunction enter a callable; duplicate checks
// apply identically to variables and constants.
func (a *Analyzer) DeclareProcedure(name string, pos token.Position) *symtab.Record {
	return a.declare(name, symtab.Unknown, symtab.KindProcedure, pos)
}

// DeclareProgram enters the compilation unit's own name in the global
// scope. An empty name (the program name was missing) enters nothing
// and returns nil.
func (a *Analyzer) DeclareProgram(name string, pos token.Position) *symtab.Record {
	if name == "" {
		return nil
	}
	return a.declare(name, symtab.ProgramType, symtab.KindProgram, pos)
}

func (a *Analyzer) DeclareFunction(name string, returnTy symtab.Type, pos token.Position) *symtab.Record {
	r := a.declare(name, symtab.FunctionType, symtab.KindFunction, pos)
	if r != nil {
		r.ReturnTy = returnTy
	}
	return r
}

func (a *Analyzer) declare(name string, typ symtab.Type, kind symtab.Kind, pos token.Position) *symtab.Record {
	if _, exists := a.tab.LookupLocal(name); exists {
		a.sink.Report(pos, errs.DuplicateDeclaration)
		return nil
	}
	r := a.tab.Enter(name)
	r.Type = typ
	r.Kind = kind
	r.Line, r.Col = pos.Line, pos.Col
	return r
}

// LookupType returns the semantic type of name, consulting the fixed
// builtin result table first. On miss it reports not-declared and
// returns Unknown, so callers never need to special-case a failed
// lookup themselves.
func (a *Analyzer) LookupType(name string, pos token.Position) symtab.Type {
	if ty, ok := builtinResult[name]; ok {
		return ty
	}
	r, ok := a.tab.Lookup(name)
	if !ok {
		a.sink.Report(pos, errs.NotDeclared)
		return symtab.Unknown
	}
	return r.Type
}

// LookupRecord returns the record for name, reporting not-declared on
// miss (still returning nil in that case - callers that need to branch
// on kind, e.g. the parser resolving a call vs. a variable reference,
// use this instead of LookupType).
func (a *Analyzer) LookupRecord(name string, pos token.Position) *symtab.Record {
	r, ok := a.tab.Lookup(name)
	if !ok {
		a.sink.Report(pos, errs.NotDeclared)
		return nil
	}
	return r
}

// CheckAssignment validates `name := <expression of type rhs>` and
// returns whether code may safely be emitted for it (false on any
// diagnostic - not-declared, not-assignable, or type-mismatch).
func (a *Analyzer) CheckAssignment(name string, rhs symtab.Type, pos token.Position) bool {
	r, ok := a.tab.Lookup(name)
	if !ok {
		a.sink.Report(pos, errs.NotDeclared)
		return false
	}
	if !r.Kind.Assignable() {
		a.sink.Report(pos, errs.IdentifierNotAssignable)
		return false
	}

	lhs := r.Type
	switch {
	case lhs == rhs:
		return true
	case lhs == symtab.Real && rhs == symtab.Integer:
		return true // implicit widening
	case lhs == symtab.Unknown || rhs == symtab.Unknown:
		return true // avoid cascading from an earlier error
	default:
		a.sink.Report(pos, errs.TypeMismatch)
		return false
	}
}

func isNumeric(t symtab.Type) bool { return t == symtab.Integer || t == symtab.Real }

// BinaryType type-checks `left op right` and returns the result type,
// per the operator-class table: arithmetic, logical, concatenation,
// equality, and relational operators each have their own operand
// requirement and violation diagnostic. An Unknown operand on either
// side is always accepted silently, to avoid cascading an earlier
// error, and yields the operator's natural result type; for the
// arithmetic operators that is Real when the other operand is Real and
// Integer otherwise.
func (a *Analyzer) BinaryType(left symtab.Type, op token.Type, right symtab.Type, pos token.Position) symtab.Type {
	unknown := left == symtab.Unknown || right == symtab.Unknown

	switch op {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.POW:
		if unknown {
			if left == symtab.Real || right == symtab.Real {
				return symtab.Real
			}
			return symtab.Integer
		}
		if !isNumeric(left) || !isNumeric(right) {
			a.sink.Report(pos, errs.ArithmeticRequired)
			return symtab.Unknown
		}
		if left == symtab.Real || right == symtab.Real {
			return symtab.Real
		}
		return symtab.Integer

	case token.AND, token.OR:
		if unknown {
			return symtab.Boolean
		}
		if left != symtab.Boolean || right != symtab.Boolean {
			a.sink.Report(pos, errs.BooleanRequired)
			return symtab.Boolean
		}
		return symtab.Boolean

	case token.AMP:
		if unknown {
			return symtab.StringType
		}
		ok := left == symtab.StringType || right == symtab.StringType ||
			(isNumeric(left) || left == symtab.Boolean) && (isNumeric(right) || right == symtab.Boolean)
		if !ok {
			a.sink.Report(pos, errs.BothStringsRequired)
			return symtab.StringType
		}
		return symtab.StringType

	case token.EQ, token.NE:
		if unknown {
			return symtab.Boolean
		}
		same := (isNumeric(left) && isNumeric(right)) ||
			(left == symtab.StringType && right == symtab.StringType) ||
			(left == symtab.Boolean && right == symtab.Boolean)
		if !same {
			a.sink.Report(pos, errs.TypeMismatch)
		}
		return symtab.Boolean

	case token.LT, token.LE, token.GT, token.GE:
		if unknown {
			return symtab.Boolean
		}
		if !isNumeric(left) || !isNumeric(right) {
			a.sink.Report(pos, errs.TypeMismatch)
		}
		return symtab.Boolean

	default:
		return symtab.Unknown
	}
}

// UnaryType type-checks a prefix operator applied to operand.
func (a *Analyzer) UnaryType(op token.Type, operand symtab.Type, pos token.Position) symtab.Type {
	if operand == symtab.Unknown {
		switch op {
		case token.NOT:
			return symtab.Boolean
		case token.ODD:
			return symtab.Boolean
		default:
			return symtab.Unknown
		}
	}

	switch op {
	case token.NOT:
		if operand != symtab.Boolean {
			a.sink.Report(pos, errs.BooleanRequired)
		}
		return symtab.Boolean
	case token.ODD:
		if operand != symtab.Integer {
			a.sink.Report(pos, errs.ArithmeticRequired)
		}
		return symtab.Boolean
	case token.PLUS, token.MINUS:
		if !isNumeric(operand) {
			a.sink.Report(pos, errs.ArithmeticRequired)
			return symtab.Unknown
		}
		return operand
	default:
		return symtab.Unknown
	}
}

// CheckInitializer validates a declaration's initializer expression
// against the declared type, using the same equal/widen/unknown rules
// as assignment - but without the not-declared/not-assignable checks
// that only make sense for a pre-existing variable.
func (a *Analyzer) CheckInitializer(declared, rhs symtab.Type, pos token.Position) bool {
	switch {
	case declared == rhs:
		return true
	case declared == symtab.Real && rhs == symtab.Integer:
		return true
	case declared == symtab.Unknown || rhs == symtab.Unknown:
		return true
	default:
		a.sink.Report(pos, errs.TypeMismatch)
		return false
	}
}

// RequireBoolean reports boolean-required unless typ is boolean or
// unknown (an unknown type never cascades a further diagnostic).
func (a *Analyzer) RequireBoolean(typ symtab.Type, pos token.Position) {
	if typ != symtab.Boolean && typ != symtab.Unknown {
		a.sink.Report(pos, errs.BooleanRequired)
	}
}

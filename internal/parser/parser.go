// Package parser implements the single-token lookahead recursive
// descent parser that drives compilation: it owns the grammar, the
// panic-mode error-recovery discipline, and the interleaving of
// semantic-analyzer and emitter calls at each grammar action point.
package parser

import (
	"io"

	"github.com/skx/adacomp/internal/emitter"
	"github.com/skx/adacomp/internal/errs"
	"github.com/skx/adacomp/internal/scanner"
	"github.com/skx/adacomp/internal/sema"
	"github.com/skx/adacomp/internal/stack"
	"github.com/skx/adacomp/internal/symtab"
	"github.com/skx/adacomp/internal/token"
)

// Parser drives the whole compilation of a single source file.
type Parser struct {
	scan *scanner.Scanner
	sink *errs.Sink
	tab  *symtab.Table
	sema *sema.Analyzer
	em   *emitter.Emitter

	cur  token.Token
	prev token.Token

	// recovering is the single panic-mode flag: report() only records a
	// syntax diagnostic while it is false, and sets it. expect() and
	// synchronize() are the only things that clear it. Diagnostics from
	// the semantic analyzer, and those the parser sends straight to the
	// sink (not-declared, exit-outside-loop, end-identifier mismatch,
	// the for-loop bound check), are recorded whether or not it is set.
	recovering bool

	// exitLabels is the loop-exit label stack: the top is the target
	// of an EXIT statement. Pushed on entry to, popped on exit from,
	// each enclosing loop construct.
	exitLabels *stack.Stack[string]

	// offsets tracks, per open lexical level, the next free local
	// offset - the emitter-facing half of variable binding, alongside
	// the symbol table's notion of scope.
	offsets []int

	// returnTypes is the stack of enclosing return types: Void for a
	// program or procedure body, the declared return type inside a
	// function body. parseReturn consults its top to type-check a
	// RETURN expression.
	returnTypes *stack.Stack[symtab.Type]

	// dump is where every scope close writes its symbol table listing.
	// Set once by Parse and consulted by every closeScopeAndDump call,
	// not just the outermost one.
	dump io.Writer

	// pragmaHook is called for each recognized `pragma name(args);`
	// with the raw argument tokens' text. It is intentionally a no-op:
	// the language defers pragma semantics to a later phase, and the
	// scanner/parser only need to consume the construct without
	// choking on it.
	pragmaHook func(name string, args []string)
}

// New returns a parser ready to compile the program read from r.
func New(r io.Reader, sink *errs.Sink) *Parser {
	tab := symtab.New()
	an := sema.New(tab, sink)
	an.InstallBuiltins()

	p := &Parser{
		scan:        scanner.New(r, sink),
		sink:        sink,
		tab:         tab,
		sema:        an,
		em:          emitter.New(),
		exitLabels:  stack.New[string](),
		returnTypes: stack.New[symtab.Type](),
		pragmaHook:  func(string, []string) {},
	}
	p.advance()
	return p
}

// Emitter exposes the instruction stream for finalization by the
// driver once parsing completes with zero errors.
func (p *Parser) Emitter() *emitter.Emitter { return p.em }

// SymbolTable exposes the symbol table, mainly so the driver/tests can
// request a final dump.
func (p *Parser) SymbolTable() *symtab.Table { return p.tab }

// advance shifts the lookahead: prev becomes cur, and a new token is
// pulled from the scanner into cur.
func (p *Parser) advance() {
	p.prev = p.cur
	p.cur = p.scan.NextToken()
}

func (p *Parser) at(t token.Type) bool { return p.cur.Type == t }

func (p *Parser) atAny(ts ...token.Type) bool {
	for _, t := range ts {
		if p.cur.Type == t {
			return true
		}
	}
	return false
}

// report emits a diagnostic and enters recovery, unless already
// recovering, in which case it records nothing.
func (p *Parser) report(code errs.Code) {
	if p.recovering {
		return
	}
	p.sink.ReportAt(p.cur, code)
	p.recovering = true
}

// expect consumes cur if it matches sym; otherwise, when not already
// recovering, it reports code and enters recovery. When recovering it
// skips tokens until sym is found (consuming it and clearing recovery)
// or end-of-program is reached (recovery remains set).
func (p *Parser) expect(sym token.Type, code errs.Code) bool {
	if p.at(sym) {
		p.advance()
		p.recovering = false
		return true
	}

	if !p.recovering {
		p.report(code)
		return false
	}

	for !p.at(sym) && !p.at(token.EOF) {
		p.advance()
	}
	if p.at(sym) {
		p.advance()
		p.recovering = false
		return true
	}
	return false
}

// synchronize skips tokens until cur is in follow, or end-of-program.
// On reaching a follow-set token it clears recovery.
func (p *Parser) synchronize(follow map[token.Type]bool) {
	for !follow[p.cur.Type] && !p.at(token.EOF) {
		p.advance()
	}
	if follow[p.cur.Type] {
		p.recovering = false
	}
}

func followSet(ts ...token.Type) map[token.Type]bool {
	m := make(map[token.Type]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

// openScope opens a symbol-table scope and a matching local-offset
// counter; they are always opened and closed together, in strict LIFO
// order, around a program/procedure/function/for-loop/block body.
func (p *Parser) openScope() {
	p.tab.OpenScope()
	p.offsets = append(p.offsets, 0)
}

// closeScopeAndDump dumps the full, still-open symbol table (outermost
// to innermost, including the frame about to close) to the listing
// writer set by Parse, then pops it.
func (p *Parser) closeScopeAndDump() {
	if p.dump != nil {
		p.tab.Dump(p.dump)
	}
	p.tab.CloseScope()
	p.offsets = p.offsets[:len(p.offsets)-1]
}

// allocOffset assigns and returns the next free local offset at the
// current lexical level.
func (p *Parser) allocOffset() int {
	level := len(p.offsets) - 1
	off := p.offsets[level]
	p.offsets[level]++
	return off
}

// localCount returns how many locals were allocated in the scope
// currently on top - the size the matching single INC instruction
// must reserve.
func (p *Parser) localCount() int {
	return p.offsets[len(p.offsets)-1]
}

// levelDiff is the static level difference between the current lexical
// level and a declaration at declLevel.
func (p *Parser) levelDiff(declLevel int) int {
	d := p.tab.Level() - declLevel
	if d < 0 {
		return 0
	}
	return d
}

// Parse is the parser's single public entry point: it parses the
// entire compilation unit. Every scope close writes its symbol table
// listing to dump, if non-nil.
func (p *Parser) Parse(dump io.Writer) {
	p.dump = dump
	p.parseProgram()
}

var programFollow = followSet(token.EOF)

// parseProgram parses: PROGRAM id IS decls BEGIN stmts END [id] ;
func (p *Parser) parseProgram() {
	p.expect(token.PROGRAM, errs.EndOfProgramExpected)

	var name string
	namePos := p.cur.Pos
	if p.at(token.IDENT) {
		name = p.cur.Str
		p.advance()
	} else {
		p.report(errs.TypeNameExpected)
	}

	rec := p.sema.DeclareProgram(name, namePos)

	p.em.EmitPrologue()
	p.openScope()
	p.returnTypes.Push(symtab.Void)

	p.expect(token.IS, errs.ExpectedSemicolon)

	// INC must reserve the frame's locals before any declaration's
	// initializer stores into them, so it is emitted first and patched
	// with the final count once parseDecls has allocated every offset.
	incIdx := -1
	if rec != nil {
		incIdx = len(p.em.Instructions())
		p.em.EmitINC(0)
	}
	p.parseDecls()
	if incIdx >= 0 {
		p.em.Instructions()[incIdx].Arg = emitter.IntOperand(int64(p.localCount()))
	}

	p.expect(token.BEGIN, errs.ExpectedSemicolon)
	p.parseStmts(followSet(token.END))

	p.em.EmitHLT()

	p.expect(token.END, errs.ExpectedSemicolon)
	p.checkEndIdentifier(name)
	p.expect(token.SEMI, errs.ExpectedSemicolon)

	_, _ = p.returnTypes.Pop()
	p.closeScopeAndDump()

	if !p.at(token.EOF) {
		p.report(errs.EndOfProgramExpected)
		p.synchronize(programFollow)
	}
}

// checkEndIdentifier consumes an optional trailing identifier after
// END and reports a mismatch against the enclosing name.
func (p *Parser) checkEndIdentifier(name string) {
	if !p.at(token.IDENT) {
		return
	}
	if p.cur.Str != name {
		p.sink.ReportAt(p.cur, errs.EndIdentifierMismatch)
	}
	p.advance()
}

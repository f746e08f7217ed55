package parser

import (
	"github.com/skx/adacomp/internal/emitter"
	"github.com/skx/adacomp/internal/errs"
	"github.com/skx/adacomp/internal/symtab"
	"github.com/skx/adacomp/internal/token"
)

// stmtStart is the set of tokens that can begin a statement - used to
// decide when parseStmts should stop (on a follow-set token) versus
// report an unexpected token and resynchronize.
var stmtStart = followSet(
	token.IDENT, token.NULLKW, token.IF, token.WHILE, token.FOR, token.LOOP,
	token.BEGIN, token.EXIT, token.READ, token.WRITE, token.WRITELN, token.RETURN,
)

var stmtFollow = followSet(token.SEMI, token.END, token.ELSE, token.ELSIF, token.WHEN)

// parseStmts parses a (possibly empty) sequence of statements, up to
// a token in follow.
func (p *Parser) parseStmts(follow map[token.Type]bool) {
	for !follow[p.cur.Type] && !p.at(token.EOF) {
		if !stmtStart[p.cur.Type] {
			p.report(errs.ExpectedSemicolon)
			p.synchronize(mergeFollow(follow, stmtFollow))
			if follow[p.cur.Type] || p.at(token.EOF) {
				return
			}
		}
		p.parseStmt()
	}
}

func mergeFollow(a, b map[token.Type]bool) map[token.Type]bool {
	m := make(map[token.Type]bool, len(a)+len(b))
	for k := range a {
		m[k] = true
	}
	for k := range b {
		m[k] = true
	}
	return m
}

func (p *Parser) parseStmt() {
	switch p.cur.Type {
	case token.IDENT:
		p.parseAssignOrCall()
	case token.NULLKW:
		p.advance()
		p.expect(token.SEMI, errs.ExpectedSemicolon)
	case token.IF:
		p.parseIf()
	case token.WHILE:
		p.parseWhile()
	case token.FOR:
		p.parseFor()
	case token.LOOP:
		p.parseLoop()
	case token.BEGIN:
		p.parseBlock()
	case token.EXIT:
		p.parseExit()
	case token.READ:
		p.parseRead()
	case token.WRITE:
		p.parseWrite()
	case token.WRITELN:
		p.parseWriteln()
	case token.RETURN:
		p.parseReturn()
	default:
		p.report(errs.ExpectedSemicolon)
		p.synchronize(stmtFollow)
	}
}

// parseAssignOrCall parses either `id := expr ;` or a procedure/
// function call used as a statement: `id [( expr {, expr} )] ;`.
func (p *Parser) parseAssignOrCall() {
	name := p.cur.Str
	pos := p.cur.Pos
	p.advance()

	if p.at(token.ASSIGN) {
		p.advance()
		rhsTy := p.parseExpr()
		rec, ok := p.tab.Lookup(name)
		if !ok {
			p.sink.Report(pos, errs.NotDeclared)
		} else if p.sema.CheckAssignment(name, rhsTy, pos) {
			p.em.EmitSTO(p.levelDiff(rec.Level), rec.Offset, "assign "+name)
		}
		p.expect(token.SEMI, errs.ExpectedSemicolon)
		return
	}

	rec := p.sema.LookupRecord(name, pos)
	nargs := 0
	if p.at(token.LPAREN) {
		p.advance()
		if !p.at(token.RPAREN) {
			p.parseExpr()
			nargs++
			for p.at(token.COMMA) {
				p.advance()
				p.parseExpr()
				nargs++
			}
		}
		p.expect(token.RPAREN, errs.ExpectedSemicolon)
	}
	p.emitCall(rec, nargs, pos)
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

// emitCall emits the calling sequence for rec (a procedure, function,
// or builtin), given that nargs argument values have already been
// pushed by the caller.
func (p *Parser) emitCall(rec *symtab.Record, nargs int, pos token.Position) {
	if rec == nil {
		return
	}
	if rec.Kind != symtab.KindProcedure && rec.Kind != symtab.KindFunction {
		p.sink.Report(pos, errs.NotDeclared)
		return
	}

	if addr, ok := p.em.BuiltinAddr(rec.Name); ok {
		p.em.EmitCALAddr(0, addr, "call "+rec.Name)
		return
	}

	p.em.EmitMST()
	p.em.EmitCALLabel(p.levelDiff(rec.Level), rec.EntryLabel, "call "+rec.Name)
}

var ifFollow = followSet(token.ELSIF, token.ELSE, token.END)

// parseIf parses `IF expr THEN stmts { ELSIF expr THEN stmts } [ ELSE stmts ] END [IF] ;`.
func (p *Parser) parseIf() {
	p.advance() // IF

	endLabel := p.em.NewLabel()
	p.parseIfArm(endLabel)

	p.expect(token.END, errs.ExpectedSemicolon)
	if p.at(token.IF) {
		p.advance()
	}
	p.expect(token.SEMI, errs.ExpectedSemicolon)

	p.em.PlaceLabel(endLabel)
}

// parseIfArm parses one `expr THEN stmts`, any chained ELSIF arms, and
// a trailing ELSE, all sharing one end label.
func (p *Parser) parseIfArm(endLabel string) {
	condTy := p.parseExpr()
	p.sema.RequireBoolean(condTy, p.prev.Pos)

	elseLabel := p.em.NewLabel()
	p.em.EmitJIF(elseLabel)

	p.expect(token.THEN, errs.ExpectedSemicolon)
	p.parseStmts(ifFollow)

	p.em.EmitJMP(endLabel)
	p.em.PlaceLabel(elseLabel)

	if p.at(token.ELSIF) {
		p.advance()
		p.parseIfArm(endLabel)
		return
	}
	if p.at(token.ELSE) {
		p.advance()
		p.parseStmts(followSet(token.END))
	}
}

// parseWhile parses `WHILE expr LOOP stmts END [LOOP] ;`.
func (p *Parser) parseWhile() {
	p.advance() // WHILE

	start := p.em.NewLabel()
	end := p.em.NewLabel()
	p.em.PlaceLabel(start)

	condTy := p.parseExpr()
	p.sema.RequireBoolean(condTy, p.prev.Pos)
	p.em.EmitJIF(end)

	p.expect(token.LOOP, errs.ExpectedSemicolon)

	p.exitLabels.Push(end)
	p.parseStmts(followSet(token.END))
	_, _ = p.exitLabels.Pop()

	p.em.EmitJMP(start)
	p.em.PlaceLabel(end)

	p.expect(token.END, errs.ExpectedSemicolon)
	if p.at(token.LOOP) {
		p.advance()
	}
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

// parseLoop parses a bare `LOOP stmts END [LOOP] ;` - an infinite loop
// whose only exit is via EXIT.
func (p *Parser) parseLoop() {
	p.advance() // LOOP

	start := p.em.NewLabel()
	end := p.em.NewLabel()
	p.em.PlaceLabel(start)

	p.exitLabels.Push(end)
	p.parseStmts(followSet(token.END))
	_, _ = p.exitLabels.Pop()

	p.em.EmitJMP(start)
	p.em.PlaceLabel(end)

	p.expect(token.END, errs.ExpectedSemicolon)
	if p.at(token.LOOP) {
		p.advance()
	}
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

// parseFor parses `FOR id IN [REVERSE] simple_expr .. simple_expr LOOP stmts END [LOOP] ;`.
func (p *Parser) parseFor() {
	p.advance() // FOR

	idxName := ""
	idxPos := p.cur.Pos
	if p.at(token.IDENT) {
		idxName = p.cur.Str
		p.advance()
	} else {
		p.report(errs.TypeNameExpected)
	}

	p.expect(token.IN, errs.ExpectedSemicolon)

	reverse := false
	if p.at(token.REVERSE) {
		reverse = true
		p.advance()
	}

	// Evaluate both bounds before the loop's own scope is open, so a
	// bound expression can reference an outer variable shadowed by the
	// loop index itself.
	startTy := p.parseSimpleExpr()
	p.expect(token.RANGE, errs.ExpectedSemicolon)
	endTy := p.parseSimpleExpr()

	if startTy != symtab.Integer || endTy != symtab.Integer {
		if startTy != symtab.Unknown && endTy != symtab.Unknown {
			p.sink.Report(idxPos, errs.ArithmeticRequired)
		}
	}

	// Stack currently holds, top first: end-bound, start-bound.

	p.openScope()
	rec := p.sema.DeclareLoopIndex(idxName, symtab.Integer, idxPos)
	if rec != nil {
		rec.Offset = p.allocOffset()
	}
	boundOffset := p.allocOffset() // hidden: the bound the index is tested against

	// INC must reserve this scope's locals before either bound is
	// stored into them.
	p.em.EmitINC(p.localCount())

	if rec != nil {
		if reverse {
			// top-of-stack is the end bound: that is where a
			// reverse loop starts counting down from.
			p.em.EmitSTO(0, rec.Offset, "loop index starts at end bound (reverse)")
			p.em.EmitSTO(0, boundOffset, "save start bound to test against")
		} else {
			// top-of-stack is the end bound; store it as the test
			// bound, then pop the start bound into the index.
			p.em.EmitSTO(0, boundOffset, "save end bound to test against")
			p.em.EmitSTO(0, rec.Offset, "loop index starts at start bound")
		}
	}

	p.expect(token.LOOP, errs.ExpectedSemicolon)

	start := p.em.NewLabel()
	end := p.em.NewLabel()
	p.em.PlaceLabel(start)

	if rec != nil {
		p.em.EmitLDV(0, rec.Offset, "load loop index")
		p.em.EmitLDV(0, boundOffset, "load bound")
		if reverse {
			p.em.EmitOPR(emitter.OpGe, "index >= start bound?")
		} else {
			p.em.EmitOPR(emitter.OpLe, "index <= end bound?")
		}
		p.em.EmitJIF(end)
	}

	p.exitLabels.Push(end)
	p.parseStmts(followSet(token.END))
	_, _ = p.exitLabels.Pop()

	if rec != nil {
		p.em.EmitLDV(0, rec.Offset, "load loop index")
		p.em.EmitLCI(1)
		if reverse {
			p.em.EmitOPR(emitter.OpSub, "step -1")
		} else {
			p.em.EmitOPR(emitter.OpAdd, "step +1")
		}
		p.em.EmitSTO(0, rec.Offset, "store stepped loop index")
	}
	p.em.EmitJMP(start)
	p.em.PlaceLabel(end)

	p.expect(token.END, errs.ExpectedSemicolon)
	if p.at(token.LOOP) {
		p.advance()
	}
	p.expect(token.SEMI, errs.ExpectedSemicolon)

	p.closeScopeAndDump()
}

// parseBlock parses a bare `BEGIN stmts END ;` with its own scope.
func (p *Parser) parseBlock() {
	p.advance() // BEGIN

	p.openScope()
	p.em.EmitINC(0) // sized below, patched once locals are known

	idx := len(p.em.Instructions())
	p.parseStmts(followSet(token.END))
	if n := p.localCount(); n > 0 {
		p.em.Instructions()[idx-1].Arg = emitter.IntOperand(int64(n))
	}

	p.expect(token.END, errs.ExpectedSemicolon)
	p.expect(token.SEMI, errs.ExpectedSemicolon)

	p.closeScopeAndDump()
}

// parseExit parses `EXIT [ WHEN expr ] ;`.
func (p *Parser) parseExit() {
	pos := p.cur.Pos
	p.advance() // EXIT

	if p.exitLabels.Empty() {
		p.sink.Report(pos, errs.ExitOutsideLoop)
	}

	if p.at(token.WHEN) {
		p.advance()
		condTy := p.parseExpr()
		p.sema.RequireBoolean(condTy, p.prev.Pos)

		if !p.exitLabels.Empty() {
			target, _ := p.exitLabels.Top()
			// JIF jumps when false; negate so we branch out of the
			// loop exactly when the condition is true.
			p.em.EmitOPR(emitter.OpNot, "negate EXIT WHEN condition")
			p.em.EmitJIF(target)
		}
	} else if !p.exitLabels.Empty() {
		target, _ := p.exitLabels.Top()
		p.em.EmitJMP(target)
	}

	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

// parseRead parses `READ [(] id {, id} [)] ;`.
func (p *Parser) parseRead() {
	p.advance() // READ

	paren := false
	if p.at(token.LPAREN) {
		paren = true
		p.advance()
	}

	p.readOne()
	for p.at(token.COMMA) {
		p.advance()
		p.readOne()
	}

	if paren {
		p.expect(token.RPAREN, errs.ExpectedSemicolon)
	}
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

func (p *Parser) readOne() {
	pos := p.cur.Pos
	if !p.at(token.IDENT) {
		p.report(errs.TypeNameExpected)
		return
	}
	name := p.cur.Str
	p.advance()

	rec := p.sema.LookupRecord(name, pos)
	if rec == nil {
		return
	}
	if !rec.Kind.Assignable() {
		p.sink.Report(pos, errs.IdentifierNotAssignable)
		return
	}

	diff := p.levelDiff(rec.Level)
	if rec.Type == symtab.Real {
		p.em.EmitRDR(diff, rec.Offset)
	} else {
		p.em.EmitRDI(diff, rec.Offset)
	}
}

// parseWrite parses `WRITE [(] expr {, expr} [)] ;`.
func (p *Parser) parseWrite() {
	p.advance() // WRITE
	p.parseWriteArgs()
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

// parseWriteln parses `WRITELN [ [(] expr {, expr} [)] ] ;`.
func (p *Parser) parseWriteln() {
	p.advance() // WRITELN
	if p.atAny(exprStartTokens()...) || p.at(token.LPAREN) {
		p.parseWriteArgs()
	}
	p.em.EmitWLN()
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

func (p *Parser) parseWriteArgs() {
	paren := false
	if p.at(token.LPAREN) {
		paren = true
		p.advance()
	}

	p.writeOne()
	for p.at(token.COMMA) {
		p.advance()
		p.writeOne()
	}

	if paren {
		p.expect(token.RPAREN, errs.ExpectedSemicolon)
	}
}

func (p *Parser) writeOne() {
	ty := p.parseExpr()
	switch ty {
	case symtab.Integer:
		p.em.EmitWRI()
	case symtab.Real:
		p.em.EmitWRR()
	default:
		p.em.EmitWRS()
	}
}

// parseReturn parses `RETURN [ expr ] ;`, checking a present
// expression against the enclosing function's declared return type.
// Inside a program or procedure body the enclosing type is Void, and
// any returned expression is accepted without a type check: the
// grammar allows the form uniformly, and nothing reads the value.
func (p *Parser) parseReturn() {
	pos := p.cur.Pos
	p.advance() // RETURN

	expected := symtab.Void
	if top, err := p.returnTypes.Top(); err == nil {
		expected = top
	}

	if p.atAny(exprStartTokens()...) {
		ty := p.parseExpr()
		if expected != symtab.Void {
			p.sema.CheckInitializer(expected, ty, pos)
		}
	}
	p.em.EmitRET()
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

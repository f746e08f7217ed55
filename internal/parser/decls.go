package parser

import (
	"github.com/skx/adacomp/internal/emitter"
	"github.com/skx/adacomp/internal/errs"
	"github.com/skx/adacomp/internal/symtab"
	"github.com/skx/adacomp/internal/token"
)

var declStart = followSet(token.IDENT, token.CONSTANT, token.PROCEDURE, token.FUNCTION, token.PRAGMA)

// parseDecls parses `{ var_decl | const_decl | proc_decl | func_decl }`.
func (p *Parser) parseDecls() {
	for declStart[p.cur.Type] {
		switch p.cur.Type {
		case token.IDENT:
			p.parseVarDecl()
		case token.CONSTANT:
			p.parseConstDecl()
		case token.PROCEDURE:
			p.parseProcDecl()
		case token.FUNCTION:
			p.parseFuncDecl()
		case token.PRAGMA:
			p.parsePragma()
		}
	}
}

// parseIdentList parses `id {, id}` and returns the uppercased names
// with their positions.
func (p *Parser) parseIdentList() ([]string, []token.Position) {
	var names []string
	var positions []token.Position

	if p.at(token.IDENT) {
		names = append(names, p.cur.Str)
		positions = append(positions, p.cur.Pos)
		p.advance()
	} else {
		p.report(errs.TypeNameExpected)
	}

	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.IDENT) {
			names = append(names, p.cur.Str)
			positions = append(positions, p.cur.Pos)
			p.advance()
		} else {
			p.report(errs.TypeNameExpected)
			break
		}
	}
	return names, positions
}

// parseType parses one of INTEGER | REAL | STRING | BOOLEAN.
func (p *Parser) parseType() symtab.Type {
	switch p.cur.Type {
	case token.INTEGER:
		p.advance()
		return symtab.Integer
	case token.REAL:
		p.advance()
		return symtab.Real
	case token.STRINGKW:
		p.advance()
		return symtab.StringType
	case token.BOOLEAN:
		p.advance()
		return symtab.Boolean
	default:
		p.report(errs.TypeNameExpected)
		return symtab.Unknown
	}
}

var varDeclFollow = followSet(token.SEMI, token.BEGIN, token.END, token.IDENT, token.CONSTANT, token.PROCEDURE, token.FUNCTION)

// parseVarDecl parses `id {, id} : type [ := expr {, expr} ] ;`.
func (p *Parser) parseVarDecl() {
	names, positions := p.parseIdentList()
	p.expect(token.COLON, errs.ExpectedSemicolon)
	ty := p.parseType()

	var inits []symtab.Type
	if p.at(token.ASSIGN) {
		p.advance()
		inits = append(inits, p.parseExpr())
		for p.at(token.COMMA) {
			p.advance()
			inits = append(inits, p.parseExpr())
		}
	}

	for i, name := range names {
		rec := p.sema.DeclareVar(name, ty, positions[i])
		if rec == nil {
			continue
		}
		rec.Offset = p.allocOffset()

		if i < len(inits) {
			p.sema.CheckInitializer(ty, inits[i], positions[i])
			p.em.EmitSTO(0, rec.Offset, "initialize "+name)
		}
	}

	p.expect(token.SEMI, errs.ExpectedSemicolon)
	if p.recovering {
		p.synchronize(varDeclFollow)
	}
}

// parseConstDecl parses `CONSTANT id {, id} [ : type ] (:=|IS) expr {, expr} ;`.
func (p *Parser) parseConstDecl() {
	p.advance() // CONSTANT

	names, positions := p.parseIdentList()

	var declaredTy symtab.Type = symtab.Unknown
	hasDeclaredTy := false
	if p.at(token.COLON) {
		p.advance()
		declaredTy = p.parseType()
		hasDeclaredTy = true
	}

	if p.at(token.ASSIGN) || p.at(token.IS) {
		p.advance()
	} else {
		p.report(errs.ExpectedSemicolon)
	}

	var inits []symtab.Type
	inits = append(inits, p.parseExpr())
	for p.at(token.COMMA) {
		p.advance()
		inits = append(inits, p.parseExpr())
	}

	for i, name := range names {
		ty := declaredTy
		if !hasDeclaredTy && i < len(inits) {
			ty = inits[i]
		}
		rec := p.sema.DeclareConst(name, ty, positions[i])
		if rec == nil {
			continue
		}
		rec.Offset = p.allocOffset()
		if i < len(inits) {
			p.sema.CheckInitializer(ty, inits[i], positions[i])
			p.em.EmitSTO(0, rec.Offset, "initialize constant "+name)
		}
	}

	p.expect(token.SEMI, errs.ExpectedSemicolon)
	if p.recovering {
		p.synchronize(varDeclFollow)
	}
}

// parseParams parses `param { ; param }`, declaring each parameter in
// the already-open scope of the enclosing procedure/function.
func (p *Parser) parseParams() int {
	n := 0
	n += p.parseParam()
	for p.at(token.SEMI) {
		p.advance()
		n += p.parseParam()
	}
	return n
}

// parseParam parses `id {, id} : (VALUE|REF) type` and returns the
// number of parameters it declared.
func (p *Parser) parseParam() int {
	names, positions := p.parseIdentList()
	p.expect(token.COLON, errs.ExpectedSemicolon)

	if !p.at(token.VALUE) && !p.at(token.REF) {
		p.report(errs.ParameterModeExpected)
	} else {
		p.advance()
	}

	ty := p.parseType()

	for i, name := range names {
		rec := p.sema.DeclareVar(name, ty, positions[i])
		if rec != nil {
			rec.Offset = p.allocOffset()
		}
	}
	return len(names)
}

// parseProcDecl parses `PROCEDURE id [( params )] IS decls BEGIN stmts END [id] ;`.
func (p *Parser) parseProcDecl() {
	p.advance() // PROCEDURE

	namePos := p.cur.Pos
	name := ""
	if p.at(token.IDENT) {
		name = p.cur.Str
		p.advance()
	} else {
		p.report(errs.TypeNameExpected)
	}

	rec := p.sema.DeclareProcedure(name, namePos)
	entryLabel := p.em.NewLabel()
	if rec != nil {
		rec.EntryLabel = entryLabel
	}

	skip := p.em.NewLabel()
	p.em.EmitJMP(skip)
	p.em.PlaceLabel(entryLabel)

	p.openScope()
	p.returnTypes.Push(symtab.Void)

	nparams := 0
	if p.at(token.LPAREN) {
		p.advance()
		nparams = p.parseParams()
		p.expect(token.RPAREN, errs.ExpectedSemicolon)
	}
	if rec != nil {
		rec.NumParams = nparams
	}

	p.expect(token.IS, errs.ExpectedSemicolon)

	// INC must reserve the frame's locals before any declaration's
	// initializer stores into them, so it is emitted first and patched
	// with the final count once parseDecls has allocated every offset.
	incIdx := len(p.em.Instructions())
	p.em.EmitINC(0)
	p.parseDecls()
	p.em.Instructions()[incIdx].Arg = emitter.IntOperand(int64(p.localCount()))

	p.expect(token.BEGIN, errs.ExpectedSemicolon)
	p.parseStmts(followSet(token.END))
	p.em.EmitRET()

	p.expect(token.END, errs.ExpectedSemicolon)
	p.checkEndIdentifier(name)
	p.expect(token.SEMI, errs.ExpectedSemicolon)

	_, _ = p.returnTypes.Pop()
	p.closeScopeAndDump()
	p.em.PlaceLabel(skip)

	if p.recovering {
		p.synchronize(declStart)
	}
}

// parseFuncDecl parses `FUNCTION id [( params )] RETURN type IS decls BEGIN stmts END [id] ;`.
func (p *Parser) parseFuncDecl() {
	p.advance() // FUNCTION

	namePos := p.cur.Pos
	name := ""
	if p.at(token.IDENT) {
		name = p.cur.Str
		p.advance()
	} else {
		p.report(errs.TypeNameExpected)
	}

	// Declared in the enclosing scope, before openScope, so the function
	// is visible to its siblings and callers - not just to its own body
	// (the same reason parseProcDecl declares before opening its scope).
	// Its return type isn't known yet, so it's filled in below once parsed.
	rec := p.sema.DeclareFunction(name, symtab.Unknown, namePos)

	entryLabel := p.em.NewLabel()
	skip := p.em.NewLabel()
	p.em.EmitJMP(skip)
	p.em.PlaceLabel(entryLabel)
	if rec != nil {
		rec.EntryLabel = entryLabel
	}

	p.openScope()

	nparams := 0
	if p.at(token.LPAREN) {
		p.advance()
		nparams = p.parseParams()
		p.expect(token.RPAREN, errs.ExpectedSemicolon)
	}
	if rec != nil {
		rec.NumParams = nparams
	}

	p.expect(token.RETURN, errs.ExpectedSemicolon)
	returnTy := p.parseType()
	if rec != nil {
		rec.ReturnTy = returnTy
	}
	p.returnTypes.Push(returnTy)

	p.expect(token.IS, errs.ExpectedSemicolon)

	// INC must reserve the frame's locals before any declaration's
	// initializer stores into them, so it is emitted first and patched
	// with the final count once parseDecls has allocated every offset.
	incIdx := len(p.em.Instructions())
	p.em.EmitINC(0)
	p.parseDecls()
	p.em.Instructions()[incIdx].Arg = emitter.IntOperand(int64(p.localCount()))

	p.expect(token.BEGIN, errs.ExpectedSemicolon)
	p.parseStmts(followSet(token.END))
	p.em.EmitRET()

	p.expect(token.END, errs.ExpectedSemicolon)
	p.checkEndIdentifier(name)
	p.expect(token.SEMI, errs.ExpectedSemicolon)

	_, _ = p.returnTypes.Pop()
	p.closeScopeAndDump()
	p.em.PlaceLabel(skip)

	if p.recovering {
		p.synchronize(declStart)
	}
}

// parsePragma parses `PRAGMA name(args);`, consuming and discarding
// the construct per the design note that defers pragma semantics to a
// later phase: the scanner/parser only need to not choke on it.
func (p *Parser) parsePragma() {
	p.advance() // PRAGMA

	name := ""
	if p.at(token.IDENT) {
		name = p.cur.Str
		p.advance()
	}

	var args []string
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			args = append(args, p.cur.Lexeme())
			p.advance()
		}
		p.expect(token.RPAREN, errs.ExpectedSemicolon)
	}

	p.pragmaHook(name, args)
	p.expect(token.SEMI, errs.ExpectedSemicolon)
}

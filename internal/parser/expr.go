package parser

import (
	"github.com/skx/adacomp/internal/emitter"
	"github.com/skx/adacomp/internal/errs"
	"github.com/skx/adacomp/internal/symtab"
	"github.com/skx/adacomp/internal/token"
)

func exprStartTokens() []token.Type {
	return []token.Type{
		token.IDENT, token.INTLIT, token.REALLIT, token.STRINGLIT,
		token.TRUE, token.FALSE, token.LPAREN,
		token.PLUS, token.MINUS, token.NOT, token.ODD,
	}
}

var relOps = map[token.Type]bool{
	token.EQ: true, token.NE: true, token.LT: true, token.LE: true, token.GT: true, token.GE: true,
}

var oprForRelop = map[token.Type]int{
	token.EQ: emitter.OpEq, token.NE: emitter.OpNe,
	token.LT: emitter.OpLt, token.LE: emitter.OpLe,
	token.GT: emitter.OpGt, token.GE: emitter.OpGe,
}

// parseExpr parses `simple_expr [ relop simple_expr ]`.
func (p *Parser) parseExpr() symtab.Type {
	left := p.parseSimpleExpr()

	if relOps[p.cur.Type] {
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		right := p.parseSimpleExpr()

		result := p.sema.BinaryType(left, op, right, pos)
		p.em.EmitOPR(oprForRelop[op], "relational "+op.String())
		return result
	}
	return left
}

var oprForAddop = map[token.Type]int{
	token.PLUS: emitter.OpAdd, token.MINUS: emitter.OpSub,
	token.OR: emitter.OpOr, token.AMP: emitter.OpConcat,
}

// parseSimpleExpr parses `[+|-] term { (+|-|OR|&) term }`.
func (p *Parser) parseSimpleExpr() symtab.Type {
	var leading token.Type
	if p.at(token.PLUS) || p.at(token.MINUS) {
		leading = p.cur.Type
		p.advance()
	}

	ty := p.parseTerm()
	if leading == token.MINUS {
		pos := p.prev.Pos
		ty = p.sema.UnaryType(token.MINUS, ty, pos)
		p.em.EmitOPR(emitter.OpNeg, "unary minus")
	} else if leading == token.PLUS {
		pos := p.prev.Pos
		ty = p.sema.UnaryType(token.PLUS, ty, pos)
	}

	for p.at(token.PLUS) || p.at(token.MINUS) || p.at(token.OR) || p.at(token.AMP) {
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		right := p.parseTerm()
		ty = p.sema.BinaryType(ty, op, right, pos)
		p.em.EmitOPR(oprForAddop[op], "simple-expr "+op.String())
	}
	return ty
}

var oprForMulop = map[token.Type]int{
	token.STAR: emitter.OpMul, token.SLASH: emitter.OpDiv, token.AND: emitter.OpAnd,
}

// parseTerm parses `factor { (*|/|AND) factor }`.
func (p *Parser) parseTerm() symtab.Type {
	ty := p.parseFactor()

	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.AND) {
		op := p.cur.Type
		pos := p.cur.Pos
		p.advance()
		right := p.parseFactor()
		ty = p.sema.BinaryType(ty, op, right, pos)
		p.em.EmitOPR(oprForMulop[op], "term "+op.String())
	}
	return ty
}

// parseFactor parses `[+|-|NOT|ODD] primary [ ** primary ]`.
func (p *Parser) parseFactor() symtab.Type {
	var prefix token.Type
	var prefixPos token.Position
	if p.at(token.PLUS) || p.at(token.MINUS) || p.at(token.NOT) || p.at(token.ODD) {
		prefix = p.cur.Type
		prefixPos = p.cur.Pos
		p.advance()
	}

	ty := p.parsePrimary()

	if p.at(token.POW) {
		pos := p.cur.Pos
		p.advance()
		right := p.parsePrimary()
		ty = p.sema.BinaryType(ty, token.POW, right, pos)
		p.em.EmitOPR(emitter.OpPow, "exponentiation")
	}

	switch prefix {
	case token.MINUS:
		ty = p.sema.UnaryType(token.MINUS, ty, prefixPos)
		p.em.EmitOPR(emitter.OpNeg, "unary minus")
	case token.PLUS:
		ty = p.sema.UnaryType(token.PLUS, ty, prefixPos)
	case token.NOT:
		ty = p.sema.UnaryType(token.NOT, ty, prefixPos)
		p.em.EmitOPR(emitter.OpNot, "logical not")
	case token.ODD:
		ty = p.sema.UnaryType(token.ODD, ty, prefixPos)
		p.em.EmitOPR(emitter.OpOdd, "odd test")
	}
	return ty
}

// parsePrimary parses `id [ ( expr {, expr} ) ] | int | real | string | TRUE | FALSE | ( expr )`.
func (p *Parser) parsePrimary() symtab.Type {
	switch p.cur.Type {
	case token.IDENT:
		return p.parseIdentPrimary()

	case token.INTLIT:
		p.em.EmitLCI(p.cur.IntVal)
		p.advance()
		return symtab.Integer

	case token.REALLIT:
		p.em.EmitLCR(p.cur.RealVal)
		p.advance()
		return symtab.Real

	case token.STRINGLIT:
		p.em.EmitLCS(p.cur.Str)
		p.advance()
		return symtab.StringType

	case token.TRUE:
		p.em.EmitLCI(1)
		p.advance()
		return symtab.Boolean

	case token.FALSE:
		p.em.EmitLCI(0)
		p.advance()
		return symtab.Boolean

	case token.LPAREN:
		p.advance()
		ty := p.parseExpr()
		p.expect(token.RPAREN, errs.ExpectedSemicolon)
		return ty

	default:
		p.report(errs.TypeNameExpected)
		return symtab.Unknown
	}
}

// parseIdentPrimary handles a bare identifier reference or a
// function-call expression.
func (p *Parser) parseIdentPrimary() symtab.Type {
	name := p.cur.Str
	pos := p.cur.Pos
	p.advance()

	if p.at(token.LPAREN) {
		rec := p.sema.LookupRecord(name, pos)

		p.advance()
		nargs := 0
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

		p.emitCall(rec, nargs, pos)
		if rec == nil {
			return symtab.Unknown
		}
		return rec.ReturnTy
	}

	rec := p.sema.LookupRecord(name, pos)
	if rec == nil {
		return symtab.Unknown
	}
	p.em.EmitLDV(p.levelDiff(rec.Level), rec.Offset, "load "+name)
	return rec.Type
}

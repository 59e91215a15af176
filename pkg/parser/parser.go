// Package parser implements a recursive-descent parser for SysY source text,
// producing the pkg/ast tree. This front end is nominally an external
// collaborator (spec.md §1: "any LALR-style parser ... suffices") but is
// implemented here in full so the repository is runnable standalone; its
// curToken/peekToken/expect/addError shape is grounded on the teacher's
// pkg/parser/parser.go.
package parser

import (
	"fmt"
	"strconv"

	"github.com/sysy-lang/sysyc/pkg/ast"
	"github.com/sysy-lang/sysyc/pkg/lexer"
)

// Parser parses SysY source into a *ast.CompUnit.
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a Parser reading tokens from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the accumulated parse errors, if any, followed by any
// lexical errors the underlying Lexer logged (illegal characters,
// unterminated comments) — both use the same "line N, col N: msg" shape.
func (p *Parser) Errors() []string {
	if len(p.l.Errors()) == 0 {
		return p.errors
	}
	return append(append([]string{}, p.errors...), p.l.Errors()...)
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s", p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expect requires the current token to have type t, consumes it, and
// advances; otherwise it records an error and does not advance.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s %q", t, p.curToken.Type, p.curToken.Literal))
	return false
}

func (p *Parser) isTypeKeyword() bool {
	return p.curIs(lexer.TokenInt_) || p.curIs(lexer.TokenVoid)
}

func (p *Parser) parseType() ast.Type {
	switch p.curToken.Type {
	case lexer.TokenVoid:
		p.nextToken()
		return ast.TypeVoid
	default:
		p.nextToken()
		return ast.TypeInt
	}
}

// ParseProgram parses a whole compilation unit: a sequence of global const
// declarations, global variable declarations, and function definitions.
func (p *Parser) ParseProgram() *ast.CompUnit {
	cu := &ast.CompUnit{}
	for !p.curIs(lexer.TokenEOF) {
		decl := p.parseTopLevel()
		if decl == nil {
			// Avoid an infinite loop on unrecoverable input.
			if p.curIs(lexer.TokenEOF) {
				break
			}
			p.nextToken()
			continue
		}
		cu.Decls = append(cu.Decls, decl)
	}
	return cu
}

func (p *Parser) parseTopLevel() ast.Node {
	if p.curIs(lexer.TokenConst) {
		return p.parseConstDecl(true)
	}
	if !p.isTypeKeyword() {
		p.addError(fmt.Sprintf("expected declaration, got %s", p.curToken.Type))
		return nil
	}
	// int/void <ident> ( ... ) -> function; int <ident> [= expr]?, ... ; -> var decl
	retType := p.parseType()
	if !p.curIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()
	if p.curIs(lexer.TokenLParen) {
		return p.parseFuncDefTail(retType, name)
	}
	return p.parseVarDeclTail(name, true)
}

func (p *Parser) parseFuncDefTail(retType ast.Type, name string) *ast.FuncDef {
	p.expect(lexer.TokenLParen)
	var params []ast.Param
	for !p.curIs(lexer.TokenRParen) && !p.curIs(lexer.TokenEOF) {
		if len(params) > 0 {
			p.expect(lexer.TokenComma)
		}
		pt := p.parseType()
		pname := ""
		if p.curIs(lexer.TokenIdent) {
			pname = p.curToken.Literal
			p.nextToken()
		} else {
			p.addError(fmt.Sprintf("expected parameter name, got %s", p.curToken.Type))
		}
		if p.curIs(lexer.TokenLBracket) {
			// Single-level array-pointer parameter: `int a[]`. Only the
			// first (empty) bracket pair is accepted; array indexing
			// expressions are never lowered (spec.md §9 Open Question).
			p.nextToken()
			p.expect(lexer.TokenRBracket)
			pt = ast.TypeIntArray
		}
		params = append(params, ast.Param{Type: pt, Name: pname})
	}
	p.expect(lexer.TokenRParen)
	body := p.parseBlock()
	return &ast.FuncDef{RetType: retType, Name: name, Params: params, Body: body}
}

func (p *Parser) parseVarDeclTail(firstName string, isGlobal bool) *ast.VarDecl {
	decl := &ast.VarDecl{IsGlobal: isGlobal}
	name := firstName
	for {
		def := ast.VarDef{Name: name}
		if p.curIs(lexer.TokenAssign) {
			p.nextToken()
			def.Init = p.parseExpr()
			def.HasInit = true
		}
		decl.Defs = append(decl.Defs, def)
		if p.curIs(lexer.TokenComma) {
			p.nextToken()
			if !p.curIs(lexer.TokenIdent) {
				p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
				break
			}
			name = p.curToken.Literal
			p.nextToken()
			continue
		}
		break
	}
	p.expect(lexer.TokenSemicolon)
	return decl
}

func (p *Parser) parseConstDecl(isGlobal bool) *ast.ConstDecl {
	p.expect(lexer.TokenConst)
	p.parseType() // SysY consts are always int
	decl := &ast.ConstDecl{IsGlobal: isGlobal}
	for {
		if !p.curIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
			break
		}
		name := p.curToken.Literal
		p.nextToken()
		p.expect(lexer.TokenAssign)
		expr := p.parseExpr()
		decl.Defs = append(decl.Defs, ast.ConstDef{Name: name, Expr: expr})
		if p.curIs(lexer.TokenComma) {
			p.nextToken()
			continue
		}
		break
	}
	p.expect(lexer.TokenSemicolon)
	return decl
}

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{}
	p.expect(lexer.TokenLBrace)
	for !p.curIs(lexer.TokenRBrace) && !p.curIs(lexer.TokenEOF) {
		block.Items = append(block.Items, p.parseBlockItem())
	}
	p.expect(lexer.TokenRBrace)
	return block
}

func (p *Parser) parseBlockItem() ast.BlockItem {
	switch {
	case p.curIs(lexer.TokenConst):
		return p.parseConstDecl(false)
	case p.isTypeKeyword():
		t := p.parseType()
		if !p.curIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
			return &ast.ExprStmt{}
		}
		name := p.curToken.Literal
		p.nextToken()
		_ = t
		return p.parseVarDeclTail(name, false)
	default:
		return p.parseStatement()
	}
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Type {
	case lexer.TokenLBrace:
		return &ast.BlockStmt{Body: p.parseBlock()}
	case lexer.TokenIf:
		return p.parseIfStatement()
	case lexer.TokenWhile:
		return p.parseWhileStatement()
	case lexer.TokenBreak:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return &ast.BreakStmt{}
	case lexer.TokenContinue:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return &ast.ContinueStmt{}
	case lexer.TokenReturn:
		return p.parseReturnStatement()
	case lexer.TokenSemicolon:
		p.nextToken()
		return &ast.ExprStmt{}
	default:
		return p.parseAssignOrExprStatement()
	}
}

func (p *Parser) parseIfStatement() ast.Stmt {
	p.nextToken() // consume 'if'
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr()
	p.expect(lexer.TokenRParen)
	then := p.parseStatement()
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.curIs(lexer.TokenElse) {
		p.nextToken()
		stmt.Else = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Stmt {
	p.nextToken() // consume 'while'
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr()
	p.expect(lexer.TokenRParen)
	body := p.parseStatement()
	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) parseReturnStatement() ast.Stmt {
	p.nextToken() // consume 'return'
	var expr ast.Expr
	if !p.curIs(lexer.TokenSemicolon) {
		expr = p.parseExpr()
	}
	p.expect(lexer.TokenSemicolon)
	return &ast.ReturnStmt{Exp: expr}
}

// parseAssignOrExprStatement disambiguates `lval = expr;` from a bare
// expression statement by one token of lookahead: an identifier
// immediately followed by '=' starts an assignment; anything else is parsed
// as an expression.
func (p *Parser) parseAssignOrExprStatement() ast.Stmt {
	if p.curIs(lexer.TokenIdent) && p.peekIs(lexer.TokenAssign) {
		name := p.curToken.Literal
		p.nextToken() // ident
		p.nextToken() // '='
		val := p.parseExpr()
		p.expect(lexer.TokenSemicolon)
		return &ast.AssignStmt{LVal: &ast.LVal{Name: name}, Exp: val}
	}
	expr := p.parseExpr()
	p.expect(lexer.TokenSemicolon)
	return &ast.ExprStmt{Exp: expr}
}

// --- Expression grammar: LOrExp -> LAndExp -> EqExp -> RelExp -> AddExp ->
// MulExp -> UnaryExp -> PrimaryExp, the standard SysY precedence chain. ---

func (p *Parser) parseExpr() ast.Expr { return p.parseLOrExp() }

func (p *Parser) parseLOrExp() ast.Expr {
	left := p.parseLAndExp()
	for p.curIs(lexer.TokenOr) {
		p.nextToken()
		right := p.parseLAndExp()
		left = &ast.BinaryExp{Op: ast.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLAndExp() ast.Expr {
	left := p.parseEqExp()
	for p.curIs(lexer.TokenAnd) {
		p.nextToken()
		right := p.parseEqExp()
		left = &ast.BinaryExp{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEqExp() ast.Expr {
	left := p.parseRelExp()
	for p.curIs(lexer.TokenEq) || p.curIs(lexer.TokenNe) {
		op := ast.OpEq
		if p.curIs(lexer.TokenNe) {
			op = ast.OpNe
		}
		p.nextToken()
		right := p.parseRelExp()
		left = &ast.BinaryExp{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRelExp() ast.Expr {
	left := p.parseAddExp()
	for p.curIs(lexer.TokenLt) || p.curIs(lexer.TokenGt) || p.curIs(lexer.TokenLe) || p.curIs(lexer.TokenGe) {
		var op ast.BinOp
		switch p.curToken.Type {
		case lexer.TokenLt:
			op = ast.OpLt
		case lexer.TokenGt:
			op = ast.OpGt
		case lexer.TokenLe:
			op = ast.OpLe
		case lexer.TokenGe:
			op = ast.OpGe
		}
		p.nextToken()
		right := p.parseAddExp()
		left = &ast.BinaryExp{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAddExp() ast.Expr {
	left := p.parseMulExp()
	for p.curIs(lexer.TokenPlus) || p.curIs(lexer.TokenMinus) {
		op := ast.OpAdd
		if p.curIs(lexer.TokenMinus) {
			op = ast.OpSub
		}
		p.nextToken()
		right := p.parseMulExp()
		left = &ast.BinaryExp{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMulExp() ast.Expr {
	left := p.parseUnaryExp()
	for p.curIs(lexer.TokenStar) || p.curIs(lexer.TokenSlash) || p.curIs(lexer.TokenPercent) {
		var op ast.BinOp
		switch p.curToken.Type {
		case lexer.TokenStar:
			op = ast.OpMul
		case lexer.TokenSlash:
			op = ast.OpDiv
		case lexer.TokenPercent:
			op = ast.OpMod
		}
		p.nextToken()
		right := p.parseUnaryExp()
		left = &ast.BinaryExp{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnaryExp() ast.Expr {
	switch p.curToken.Type {
	case lexer.TokenPlus:
		p.nextToken()
		return &ast.UnaryExp{Op: ast.OpPos, Sub: p.parseUnaryExp()}
	case lexer.TokenMinus:
		p.nextToken()
		return &ast.UnaryExp{Op: ast.OpNeg, Sub: p.parseUnaryExp()}
	case lexer.TokenNot:
		p.nextToken()
		return &ast.UnaryExp{Op: ast.OpNot, Sub: p.parseUnaryExp()}
	case lexer.TokenIdent:
		if p.peekIs(lexer.TokenLParen) {
			return p.parseFuncCall()
		}
		return p.parsePrimaryExp()
	default:
		return p.parsePrimaryExp()
	}
}

func (p *Parser) parseFuncCall() ast.Expr {
	name := p.curToken.Literal
	p.nextToken() // ident
	p.nextToken() // '('
	call := &ast.FuncCall{Name: name}
	for !p.curIs(lexer.TokenRParen) && !p.curIs(lexer.TokenEOF) {
		if len(call.Args) > 0 {
			p.expect(lexer.TokenComma)
		}
		call.Args = append(call.Args, p.parseExpr())
	}
	p.expect(lexer.TokenRParen)
	return call
}

func (p *Parser) parsePrimaryExp() ast.Expr {
	switch p.curToken.Type {
	case lexer.TokenLParen:
		p.nextToken()
		e := p.parseExpr()
		p.expect(lexer.TokenRParen)
		return e
	case lexer.TokenInt:
		return p.parseNumber()
	case lexer.TokenIdent:
		name := p.curToken.Literal
		p.nextToken()
		return &ast.Ident{Name: name}
	default:
		p.addError(fmt.Sprintf("expected expression, got %s", p.curToken.Type))
		p.nextToken()
		return &ast.Number{Value: 0}
	}
}

func (p *Parser) parseNumber() ast.Expr {
	lit := p.curToken.Literal
	p.nextToken()
	var value int64
	var err error
	switch {
	case len(lit) > 1 && (lit[1] == 'x' || lit[1] == 'X'):
		value, err = strconv.ParseInt(lit[2:], 16, 64)
	case len(lit) > 1 && lit[0] == '0':
		value, err = strconv.ParseInt(lit, 8, 64)
	default:
		value, err = strconv.ParseInt(lit, 10, 64)
	}
	if err != nil {
		p.addError(fmt.Sprintf("invalid integer literal %q: %v", lit, err))
	}
	return &ast.Number{Value: int32(value)}
}

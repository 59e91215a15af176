// Package koopagen lowers a checked pkg/ast tree into pkg/koopa IR.
//
// Context threads all per-emission state explicitly (current function,
// current block, per-function value/label counter, break/continue target
// stacks, and the symbol table) rather than relying on package-level
// mutable state, mirroring pkg/rtlgen's CFGBuilder/RegAllocator idiom.
// Unlike the original toolchain this emitter builds a typed *koopa.Function
// directly instead of appending to a string buffer, so "is the current
// block terminated" is answered by koopa.BasicBlock.Terminated() rather
// than by inspecting the tail of emitted text.
package koopagen

import (
	"fmt"

	"github.com/sysy-lang/sysyc/pkg/ast"
	"github.com/sysy-lang/sysyc/pkg/constfold"
	"github.com/sysy-lang/sysyc/pkg/diag"
	"github.com/sysy-lang/sysyc/pkg/koopa"
	"github.com/sysy-lang/sysyc/pkg/symtab"
)

// Context carries the mutable state of one module's emission.
type Context struct {
	tab    *symtab.Table
	module *koopa.Module

	fn     *koopa.Function
	cur    *koopa.BasicBlock
	nextID int // per-function counter shared by temps and mid-function labels

	breakTargets    []string
	continueTargets []string
}

// NewContext creates an emission context with a fresh symbol table whose
// root scope is pre-populated with the library functions.
func NewContext() *Context {
	tab := symtab.New()
	tab.Enter()
	symtab.PopulateLibraryScope(tab)
	return &Context{tab: tab, module: &koopa.Module{}}
}

// EmitModule lowers a whole compilation unit, returning the built module.
// It returns an error immediately on the first semantic problem
// encountered (undefined identifier, duplicate definition, non-constant in
// a constant context, and so on) — no partial compilation, per the fatal,
// single-diagnostic error model.
func EmitModule(cu *ast.CompUnit) (*koopa.Module, error) {
	c := NewContext()
	for _, decl := range cu.Decls {
		if err := c.emitTopLevel(decl); err != nil {
			return nil, err
		}
	}
	return c.module, nil
}

func (c *Context) emitTopLevel(node ast.Node) error {
	switch d := node.(type) {
	case *ast.ConstDecl:
		return c.emitConstDecl(d)
	case *ast.VarDecl:
		return c.emitGlobalVarDecl(d)
	case *ast.FuncDef:
		return c.emitFuncDef(d)
	default:
		return diag.Newf(diag.SyntaxError, "unhandled top-level node %T", node)
	}
}

func (c *Context) emitConstDecl(d *ast.ConstDecl) error {
	for _, def := range d.Defs {
		v, err := constfold.Eval(def.Expr, c.tab)
		if err != nil {
			return diag.Wrap(diag.NonConstInConstContext, fmt.Sprintf("const %q must be a compile-time constant", def.Name), err)
		}
		if !c.tab.Add(def.Name, &symtab.Info{Kind: symtab.KindConstant, Value: v}) {
			return diag.Newf(diag.DuplicateDefinition, "duplicate definition of %q", def.Name)
		}
	}
	return nil
}

func (c *Context) emitGlobalVarDecl(d *ast.VarDecl) error {
	for _, def := range d.Defs {
		irName := "@" + def.Name
		g := &koopa.GlobalVar{Name: irName}
		if def.HasInit {
			v, err := constfold.Eval(def.Init, c.tab)
			if err != nil {
				return diag.Wrap(diag.NonConstInConstContext, fmt.Sprintf("global %q initializer must be a compile-time constant", def.Name), err)
			}
			g.HasInit = true
			g.Init = v
		}
		c.module.Globals = append(c.module.Globals, g)
		if !c.tab.Add(def.Name, &symtab.Info{Kind: symtab.KindVariable, IRName: irName, IsGlobal: true}) {
			return diag.Newf(diag.DuplicateDefinition, "duplicate definition of %q", def.Name)
		}
	}
	return nil
}

func (c *Context) emitFuncDef(d *ast.FuncDef) error {
	retType := "void"
	if d.RetType == ast.TypeInt {
		retType = "int"
	}
	paramTypes := make([]string, len(d.Params))
	for i, p := range d.Params {
		if p.Type == ast.TypeIntArray {
			paramTypes[i] = "*int"
		} else {
			paramTypes[i] = "int"
		}
	}
	if !c.tab.Add(d.Name, &symtab.Info{Kind: symtab.KindFunction, RetType: retType, ParamTypes: paramTypes}) {
		return diag.Newf(diag.DuplicateDefinition, "duplicate definition of function %q", d.Name)
	}

	c.nextID = 0
	c.fn = &koopa.Function{Name: d.Name, HasResult: d.RetType == ast.TypeInt}
	for _, p := range d.Params {
		c.fn.Params = append(c.fn.Params, koopa.Param{Name: p.Name, IsArray: p.Type == ast.TypeIntArray})
	}

	c.tab.Enter()
	defer c.tab.Leave()

	c.startBlock("%entry")
	for _, p := range d.Params {
		cellName := c.tab.UniqueName(p.Name)
		c.emit(&koopa.Alloc{Name: cellName})
		c.emit(&koopa.Store{Val: koopa.Cell{Name: "@" + p.Name}, Dst: koopa.Cell{Name: cellName}})
		c.tab.Add(p.Name, &symtab.Info{Kind: symtab.KindVariable, IRName: cellName})
	}

	if err := c.emitBlock(d.Body); err != nil {
		return err
	}

	if !c.cur.Terminated() {
		if c.fn.HasResult {
			// Falling off the end of an int function without a return is
			// undefined in SysY source but must still produce well-formed
			// IR; emit a defaulted ret so every block is terminated.
			c.emit(&koopa.Ret{Val: koopa.Integer{V: 0}})
		} else {
			c.emit(&koopa.Ret{})
		}
	}

	c.module.Functions = append(c.module.Functions, c.fn)
	c.fn = nil
	c.cur = nil
	return nil
}

// --- Block/statement emission ---

func (c *Context) emitBlock(b *ast.Block) error {
	c.tab.Enter()
	defer c.tab.Leave()

	for _, item := range b.Items {
		if c.cur.Terminated() {
			// Block-level termination short-circuit: once a return, break,
			// or continue has been emitted, remaining items produce no IR.
			break
		}
		if err := c.emitBlockItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) emitBlockItem(item ast.BlockItem) error {
	switch n := item.(type) {
	case *ast.ConstDecl:
		return c.emitConstDecl(n)
	case *ast.VarDecl:
		return c.emitLocalVarDecl(n)
	default:
		return c.emitStmt(item)
	}
}

func (c *Context) emitLocalVarDecl(d *ast.VarDecl) error {
	for _, def := range d.Defs {
		cellName := c.tab.UniqueName(def.Name)
		c.emit(&koopa.Alloc{Name: cellName})
		if def.HasInit {
			v, err := c.emitExpr(def.Init)
			if err != nil {
				return err
			}
			c.emit(&koopa.Store{Val: v, Dst: koopa.Cell{Name: cellName}})
		}
		if !c.tab.Add(def.Name, &symtab.Info{Kind: symtab.KindVariable, IRName: cellName}) {
			return diag.Newf(diag.DuplicateDefinition, "duplicate definition of %q", def.Name)
		}
	}
	return nil
}

func (c *Context) emitStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return c.emitAssign(s)
	case *ast.ExprStmt:
		if s.Exp == nil {
			return nil
		}
		_, err := c.emitExpr(s.Exp)
		return err
	case *ast.ReturnStmt:
		return c.emitReturn(s)
	case *ast.BlockStmt:
		return c.emitBlock(s.Body)
	case *ast.IfStmt:
		return c.emitIf(s)
	case *ast.WhileStmt:
		return c.emitWhile(s)
	case *ast.BreakStmt:
		return c.emitBreak()
	case *ast.ContinueStmt:
		return c.emitContinue()
	default:
		return diag.Newf(diag.SyntaxError, "unhandled statement type %T", stmt)
	}
}

func (c *Context) emitAssign(s *ast.AssignStmt) error {
	info, ok := c.tab.Lookup(s.LVal.Name)
	if !ok {
		return diag.Newf(diag.UndefinedIdentifier, "undefined identifier %q", s.LVal.Name)
	}
	if info.Kind == symtab.KindConstant {
		return diag.Newf(diag.AssignToConstant, "cannot assign to constant %q", s.LVal.Name)
	}
	if info.Kind != symtab.KindVariable {
		return diag.Newf(diag.UndefinedIdentifier, "%q is not assignable", s.LVal.Name)
	}
	v, err := c.emitExpr(s.Exp)
	if err != nil {
		return err
	}
	c.emit(&koopa.Store{Val: v, Dst: c.cellOf(info)})
	return nil
}

func (c *Context) emitReturn(s *ast.ReturnStmt) error {
	if s.Exp == nil {
		c.emit(&koopa.Ret{})
		return nil
	}
	if lit, ok := constfold.TryEval(s.Exp, c.tab); ok {
		c.emit(&koopa.Ret{Val: koopa.Integer{V: lit}})
		return nil
	}
	v, err := c.emitExpr(s.Exp)
	if err != nil {
		return err
	}
	c.emit(&koopa.Ret{Val: v})
	return nil
}

func (c *Context) emitIf(s *ast.IfStmt) error {
	thenLabel := c.mintLabel("then")
	endLabel := c.mintLabel("end")
	elseLabel := endLabel
	if s.Else != nil {
		elseLabel = c.mintLabel("else")
	}

	cond, err := c.emitExpr(s.Cond)
	if err != nil {
		return err
	}
	c.emit(&koopa.Br{Cond: cond, IfTrue: thenLabel, IfFalse: elseLabel})

	c.startBlock(thenLabel)
	if err := c.emitStmt(s.Then); err != nil {
		return err
	}
	if !c.cur.Terminated() {
		c.emit(&koopa.Jump{Target: endLabel})
	}

	if s.Else != nil {
		c.startBlock(elseLabel)
		if err := c.emitStmt(s.Else); err != nil {
			return err
		}
		if !c.cur.Terminated() {
			c.emit(&koopa.Jump{Target: endLabel})
		}
	}

	c.startBlock(endLabel)
	return nil
}

func (c *Context) emitWhile(s *ast.WhileStmt) error {
	condLabel := c.mintLabel("while_cond")
	bodyLabel := c.mintLabel("while_body")
	endLabel := c.mintLabel("while_end")

	c.emit(&koopa.Jump{Target: condLabel})

	c.startBlock(condLabel)
	cond, err := c.emitExpr(s.Cond)
	if err != nil {
		return err
	}
	c.emit(&koopa.Br{Cond: cond, IfTrue: bodyLabel, IfFalse: endLabel})

	c.breakTargets = append(c.breakTargets, endLabel)
	c.continueTargets = append(c.continueTargets, condLabel)

	c.startBlock(bodyLabel)
	if err := c.emitStmt(s.Body); err != nil {
		return err
	}
	if !c.cur.Terminated() {
		c.emit(&koopa.Jump{Target: condLabel})
	}

	c.breakTargets = c.breakTargets[:len(c.breakTargets)-1]
	c.continueTargets = c.continueTargets[:len(c.continueTargets)-1]

	c.startBlock(endLabel)
	return nil
}

func (c *Context) emitBreak() error {
	if len(c.breakTargets) == 0 {
		return diag.New(diag.BreakOutsideLoop, "break outside loop")
	}
	c.emit(&koopa.Jump{Target: c.breakTargets[len(c.breakTargets)-1]})
	return nil
}

func (c *Context) emitContinue() error {
	if len(c.continueTargets) == 0 {
		return diag.New(diag.ContinueOutsideLoop, "continue outside loop")
	}
	c.emit(&koopa.Jump{Target: c.continueTargets[len(c.continueTargets)-1]})
	return nil
}

// --- Expression emission ---

func (c *Context) emitExpr(expr ast.Expr) (koopa.Value, error) {
	if lit, ok := constfold.TryEval(expr, c.tab); ok {
		return koopa.Integer{V: lit}, nil
	}

	switch e := expr.(type) {
	case *ast.Number:
		return koopa.Integer{V: e.Value}, nil

	case *ast.Ident:
		return c.emitIdentRead(e.Name)

	case *ast.LVal:
		return c.emitIdentRead(e.Name)

	case *ast.UnaryExp:
		return c.emitUnary(e)

	case *ast.BinaryExp:
		if e.Op == ast.OpAnd {
			return c.emitShortCircuit(e, true)
		}
		if e.Op == ast.OpOr {
			return c.emitShortCircuit(e, false)
		}
		return c.emitBinary(e)

	case *ast.FuncCall:
		return c.emitCall(e)

	default:
		return nil, diag.Newf(diag.SyntaxError, "unhandled expression type %T", expr)
	}
}

func (c *Context) emitIdentRead(name string) (koopa.Value, error) {
	info, ok := c.tab.Lookup(name)
	if !ok {
		return nil, diag.Newf(diag.UndefinedIdentifier, "undefined identifier %q", name)
	}
	switch info.Kind {
	case symtab.KindConstant:
		return koopa.Integer{V: info.Value}, nil
	case symtab.KindVariable:
		id := c.freshID()
		c.emit(&koopa.Load{ResultID: id, Src: c.cellOf(info)})
		return koopa.Temp{ID: id}, nil
	default:
		return nil, diag.Newf(diag.UndefinedIdentifier, "%q is not a value", name)
	}
}

func (c *Context) cellOf(info *symtab.Info) koopa.Value {
	return koopa.Cell{Name: info.IRName}
}

func (c *Context) emitUnary(e *ast.UnaryExp) (koopa.Value, error) {
	sub, err := c.emitExpr(e.Sub)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpPos:
		return sub, nil
	case ast.OpNeg:
		return c.emitBinaryValues(koopa.Sub, koopa.Integer{V: 0}, sub), nil
	case ast.OpNot:
		return c.emitBinaryValues(koopa.Eq, sub, koopa.Integer{V: 0}), nil
	default:
		return nil, diag.Newf(diag.UnsupportedOperator, "unsupported unary operator %v", e.Op)
	}
}

var binOpTable = map[ast.BinOp]koopa.BinOp{
	ast.OpAdd: koopa.Add,
	ast.OpSub: koopa.Sub,
	ast.OpMul: koopa.Mul,
	ast.OpDiv: koopa.Div,
	ast.OpMod: koopa.Mod,
	ast.OpLt:  koopa.Lt,
	ast.OpGt:  koopa.Gt,
	ast.OpLe:  koopa.Le,
	ast.OpGe:  koopa.Ge,
	ast.OpEq:  koopa.Eq,
	ast.OpNe:  koopa.NotEq,
}

func (c *Context) emitBinary(e *ast.BinaryExp) (koopa.Value, error) {
	op, ok := binOpTable[e.Op]
	if !ok {
		return nil, diag.Newf(diag.UnsupportedOperator, "unsupported binary operator %v", e.Op)
	}
	l, err := c.emitExpr(e.Left)
	if err != nil {
		return nil, err
	}
	r, err := c.emitExpr(e.Right)
	if err != nil {
		return nil, err
	}
	return c.emitBinaryValues(op, l, r), nil
}

func (c *Context) emitBinaryValues(op koopa.BinOp, l, r koopa.Value) koopa.Value {
	id := c.freshID()
	c.emit(&koopa.Binary{ResultID: id, Op: op, Lhs: l, Rhs: r})
	return koopa.Temp{ID: id}
}

// emitShortCircuit lowers `&&` (isAnd true) and `||` (isAnd false) exactly
// per spec.md §4.3: a temp cell, a comparison of the left operand against
// zero, then a then/false (or true/false, for ||) block pair that only
// evaluates the right operand on the side where it matters.
func (c *Context) emitShortCircuit(e *ast.BinaryExp, isAnd bool) (koopa.Value, error) {
	tmp := c.tab.UniqueName("logic")
	c.emit(&koopa.Alloc{Name: tmp})

	l, err := c.emitExpr(e.Left)
	if err != nil {
		return nil, err
	}
	cmp := c.emitBinaryValues(koopa.NotEq, l, koopa.Integer{V: 0})

	var thenLabel, falseLabel, endLabel string
	if isAnd {
		thenLabel = c.mintLabel("logic_true")
		falseLabel = c.mintLabel("logic_false")
	} else {
		falseLabel = c.mintLabel("logic_false")
		thenLabel = c.mintLabel("logic_true")
	}
	endLabel = c.mintLabel("logic_end")

	if isAnd {
		c.emit(&koopa.Br{Cond: cmp, IfTrue: thenLabel, IfFalse: falseLabel})
	} else {
		c.emit(&koopa.Br{Cond: cmp, IfTrue: falseLabel, IfFalse: thenLabel})
	}

	c.startBlock(falseLabel)
	shortVal := int32(0)
	if !isAnd {
		shortVal = 1
	}
	c.emit(&koopa.Store{Val: koopa.Integer{V: shortVal}, Dst: koopa.Cell{Name: tmp}})
	c.emit(&koopa.Jump{Target: endLabel})

	c.startBlock(thenLabel)
	r, err := c.emitExpr(e.Right)
	if err != nil {
		return nil, err
	}
	rCmp := c.emitBinaryValues(koopa.NotEq, r, koopa.Integer{V: 0})
	c.emit(&koopa.Store{Val: rCmp, Dst: koopa.Cell{Name: tmp}})
	c.emit(&koopa.Jump{Target: endLabel})

	c.startBlock(endLabel)
	id := c.freshID()
	c.emit(&koopa.Load{ResultID: id, Src: koopa.Cell{Name: tmp}})
	return koopa.Temp{ID: id}, nil
}

func (c *Context) emitCall(e *ast.FuncCall) (koopa.Value, error) {
	info, ok := c.tab.Lookup(e.Name)
	if !ok {
		return nil, diag.Newf(diag.UndefinedIdentifier, "undefined function %q", e.Name)
	}
	if info.Kind != symtab.KindFunction {
		return nil, diag.Newf(diag.UndefinedIdentifier, "%q is not a function", e.Name)
	}
	if len(e.Args) != len(info.ParamTypes) {
		return nil, diag.Newf(diag.ArityMismatch, "call to %q: expected %d arguments, got %d", e.Name, len(info.ParamTypes), len(e.Args))
	}
	args := make([]koopa.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := c.emitExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	hasResult := info.RetType == "int"
	call := &koopa.Call{Fn: e.Name, Args: args, HasResult: hasResult}
	if hasResult {
		call.ResultID = c.freshID()
	}
	c.emit(call)
	if hasResult {
		return koopa.Temp{ID: call.ResultID}, nil
	}
	return nil, nil
}

// --- Low-level block/value plumbing ---

func (c *Context) freshID() int {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Context) mintLabel(base string) string {
	return fmt.Sprintf("%%%s_%d", base, c.freshID())
}

func (c *Context) startBlock(label string) {
	bb := &koopa.BasicBlock{Label: label}
	c.fn.Blocks = append(c.fn.Blocks, bb)
	c.cur = bb
}

// emit appends instr to the current block unless it is already terminated,
// matching the "remaining items produce no IR" short-circuit: once a
// terminator has been emitted, further instructions in the same block are
// silently dropped rather than producing malformed multi-terminator blocks.
func (c *Context) emit(instr koopa.Instruction) {
	if c.cur.Terminated() {
		return
	}
	c.cur.Insts = append(c.cur.Insts, instr)
}

// Package constfold implements the constant evaluator: a total recursive
// function over AST expression subtrees that either produces an int32 or
// reports that the subtree is not a compile-time constant.
//
// Grounded on original_source's constant-folding recursion inside AST.hpp's
// expression Eval() methods, adapted here into a free function switching on
// pkg/ast's tagged node types (DESIGN NOTES §9: "Passes become free
// functions, not methods").
package constfold

import (
	"errors"
	"fmt"

	"github.com/sysy-lang/sysyc/pkg/ast"
	"github.com/sysy-lang/sysyc/pkg/symtab"
)

// ErrNotConst is returned (possibly wrapped) when a subtree cannot be
// reduced to a compile-time constant.
var ErrNotConst = errors.New("constfold: not a compile-time constant")

// Eval recursively evaluates expr, resolving Ident references through tab.
// It returns ErrNotConst (wrapped with context) if expr contains a function
// call, an identifier bound to a non-constant, or an unsupported operator.
func Eval(expr ast.Expr, tab *symtab.Table) (int32, error) {
	switch e := expr.(type) {
	case *ast.Number:
		return e.Value, nil

	case *ast.Ident:
		info, ok := tab.Lookup(e.Name)
		if !ok {
			return 0, fmt.Errorf("%w: undefined identifier %q", ErrNotConst, e.Name)
		}
		if info.Kind != symtab.KindConstant {
			return 0, fmt.Errorf("%w: %q is not a constant", ErrNotConst, e.Name)
		}
		return info.Value, nil

	case *ast.UnaryExp:
		sub, err := Eval(e.Sub, tab)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.OpPos:
			return sub, nil
		case ast.OpNeg:
			return -sub, nil
		case ast.OpNot:
			return boolToI32(sub == 0), nil
		default:
			return 0, fmt.Errorf("%w: unsupported unary operator %v", ErrNotConst, e.Op)
		}

	case *ast.BinaryExp:
		return evalBinary(e, tab)

	case *ast.FuncCall:
		return 0, fmt.Errorf("%w: call to %q is not constant", ErrNotConst, e.Name)

	case *ast.LVal:
		info, ok := tab.Lookup(e.Name)
		if !ok {
			return 0, fmt.Errorf("%w: undefined identifier %q", ErrNotConst, e.Name)
		}
		if info.Kind != symtab.KindConstant {
			return 0, fmt.Errorf("%w: %q is not a constant", ErrNotConst, e.Name)
		}
		return info.Value, nil

	default:
		return 0, fmt.Errorf("%w: unhandled expression type %T", ErrNotConst, expr)
	}
}

// evalBinary implements ordinary two's-complement i32 arithmetic and C
// boolean semantics for && and ||: both operands are always evaluated (no
// short-circuiting), matching a pure total-function evaluator; short-circuit
// *control flow* is instead a property of the IR emitter, not of constant
// folding.
func evalBinary(e *ast.BinaryExp, tab *symtab.Table) (int32, error) {
	l, err := Eval(e.Left, tab)
	if err != nil {
		return 0, err
	}
	r, err := Eval(e.Right, tab)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case ast.OpAdd:
		return l + r, nil
	case ast.OpSub:
		return l - r, nil
	case ast.OpMul:
		return l * r, nil
	case ast.OpDiv:
		if r == 0 {
			return 0, fmt.Errorf("%w: division by zero in constant expression", ErrNotConst)
		}
		return l / r, nil
	case ast.OpMod:
		if r == 0 {
			return 0, fmt.Errorf("%w: modulo by zero in constant expression", ErrNotConst)
		}
		return l % r, nil
	case ast.OpLt:
		return boolToI32(l < r), nil
	case ast.OpGt:
		return boolToI32(l > r), nil
	case ast.OpLe:
		return boolToI32(l <= r), nil
	case ast.OpGe:
		return boolToI32(l >= r), nil
	case ast.OpEq:
		return boolToI32(l == r), nil
	case ast.OpNe:
		return boolToI32(l != r), nil
	case ast.OpAnd:
		return boolToI32(l != 0 && r != 0), nil
	case ast.OpOr:
		return boolToI32(l != 0 || r != 0), nil
	default:
		return 0, fmt.Errorf("%w: unsupported binary operator %v", ErrNotConst, e.Op)
	}
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// TryEval is Eval with the ErrNotConst case collapsed to (0, false), for
// call sites that only need to know whether folding succeeded (e.g. the IR
// emitter deciding whether an expression or return value can be emitted as
// a literal).
func TryEval(expr ast.Expr, tab *symtab.Table) (int32, bool) {
	v, err := Eval(expr, tab)
	if err != nil {
		return 0, false
	}
	return v, true
}

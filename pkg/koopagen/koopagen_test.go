package koopagen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sysy-lang/sysyc/pkg/diag"
	"github.com/sysy-lang/sysyc/pkg/koopa"
	"github.com/sysy-lang/sysyc/pkg/lexer"
	"github.com/sysy-lang/sysyc/pkg/parser"
)

func mustEmit(t *testing.T, src string) *koopa.Module {
	t.Helper()
	p := parser.New(lexer.New(src))
	cu := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	m, err := EmitModule(cu)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	return m
}

func printModule(m *koopa.Module) string {
	var buf bytes.Buffer
	koopa.NewPrinter(&buf).PrintModule(m)
	return buf.String()
}

func TestEmitReturnLiteral(t *testing.T) {
	out := printModule(mustEmit(t, "int main() { return 1+2*3; }"))
	if !strings.Contains(out, "ret 7") {
		t.Errorf("expected constant-folded ret 7, got:\n%s", out)
	}
}

func TestEmitVarDeclAssignReturn(t *testing.T) {
	out := printModule(mustEmit(t, "int main() { int a = 10; a = a - 3; return a; }"))
	if !strings.Contains(out, "= alloc i32") {
		t.Errorf("expected an alloc, got:\n%s", out)
	}
	if !strings.Contains(out, "store 10,") {
		t.Errorf("expected initializer store, got:\n%s", out)
	}
	if !strings.Contains(out, "sub") {
		t.Errorf("expected sub instruction, got:\n%s", out)
	}
}

func TestEmitIfElse(t *testing.T) {
	out := printModule(mustEmit(t, "int main() { int x = 0; if (1) x = 1; else x = 2; return x; }"))
	for _, want := range []string{"%then_", "%else_", "%end_", "br "} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestEmitWhileBreakContinue(t *testing.T) {
	out := printModule(mustEmit(t, `
		int main() {
			int i = 0;
			while (i < 10) {
				if (i == 5) { break; }
				i = i + 1;
			}
			return i;
		}
	`))
	for _, want := range []string{"%while_cond_", "%while_body_", "%while_end_"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestEmitShortCircuitAnd(t *testing.T) {
	out := printModule(mustEmit(t, "int main() { int a = 1; int b = 0; if (a && b) return 1; return 0; }"))
	for _, want := range []string{"%logic_true_", "%logic_false_", "%logic_end_"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestEmitShortCircuitFullyLiteralOperandsFold(t *testing.T) {
	// Both operands are constant, so constfold.TryEval resolves the whole
	// expression before emitExpr's type switch ever sees a BinaryExp: no
	// br/then_bb/false_bb/end_bb scaffold is emitted for it. This is safe
	// because a fully-literal operand can have no side effect to skip.
	out := printModule(mustEmit(t, "int main() { return 1 && 0; }"))
	if strings.Contains(out, "%logic_") {
		t.Errorf("expected no short-circuit scaffold for fully-literal operands, got:\n%s", out)
	}
	if !strings.Contains(out, "ret 0") {
		t.Errorf("expected the folded result, got:\n%s", out)
	}
}

func TestEmitShortCircuitCallOperandUsesScaffold(t *testing.T) {
	// A non-foldable (call) right-hand operand must still take the full
	// branch scaffold, since constfold.TryEval only succeeds when every leaf
	// is a literal or const-bound identifier.
	out := printModule(mustEmit(t, "int main() { int x = 0; if (0 && getint()) x = 1; return x; }"))
	for _, want := range []string{"%logic_true_", "%logic_false_", "%logic_end_", "call @getint()"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestEmitFunctionCall(t *testing.T) {
	out := printModule(mustEmit(t, "int main() { putint(5); return 0; }"))
	if !strings.Contains(out, "call @putint(5)") {
		t.Errorf("expected call, got:\n%s", out)
	}
}

func TestEmitUserFunctionCallWithResult(t *testing.T) {
	out := printModule(mustEmit(t, "int add(int a, int b) { return a + b; } int main() { return add(1, 2); }"))
	if !strings.Contains(out, "= call @add(1, 2)") {
		t.Errorf("expected result-producing call, got:\n%s", out)
	}
}

func TestEmitGlobalVar(t *testing.T) {
	out := printModule(mustEmit(t, "int g = 5; int main() { return g; }"))
	if !strings.Contains(out, "global @g = alloc i32, 5") {
		t.Errorf("expected global decl, got:\n%s", out)
	}
	if !strings.Contains(out, "load @g") {
		t.Errorf("expected load of global, got:\n%s", out)
	}
}

func TestEmitConstFoldsToLiteralNoLoad(t *testing.T) {
	out := printModule(mustEmit(t, "const int N = 5; int main() { return N; }"))
	if strings.Contains(out, "load") {
		t.Errorf("expected constant use to not emit a load, got:\n%s", out)
	}
	if !strings.Contains(out, "ret 5") {
		t.Errorf("expected ret 5, got:\n%s", out)
	}
}

func TestEmitFallsThroughAfterReturnIsDropped(t *testing.T) {
	// Everything after the return in the block must be skipped, matching
	// the block-level termination short-circuit.
	out := printModule(mustEmit(t, "int main() { return 1; int x = 2; return x; }"))
	if strings.Contains(out, "alloc") {
		t.Errorf("expected no IR emitted after the first return, got:\n%s", out)
	}
}

func TestEmitVoidFunctionGetsImplicitRet(t *testing.T) {
	out := printModule(mustEmit(t, "void f() { putint(1); }"))
	if !strings.Contains(out, "ret\n") && !strings.HasSuffix(strings.TrimSpace(out), "ret") {
		t.Errorf("expected implicit bare ret, got:\n%s", out)
	}
}

func TestEmitErrorUndefinedIdentifier(t *testing.T) {
	p := parser.New(lexer.New("int main() { return x; }"))
	cu := p.ParseProgram()
	_, err := EmitModule(cu)
	if err == nil {
		t.Fatal("expected an error for undefined identifier")
	}
	if !diag.Is(err, diag.UndefinedIdentifier) {
		t.Errorf("expected UndefinedIdentifier, got %v", err)
	}
}

func TestEmitErrorAssignToConstant(t *testing.T) {
	p := parser.New(lexer.New("const int N = 1; int main() { N = 2; return N; }"))
	cu := p.ParseProgram()
	_, err := EmitModule(cu)
	if err == nil {
		t.Fatal("expected an error assigning to a constant")
	}
	if !diag.Is(err, diag.AssignToConstant) {
		t.Errorf("expected AssignToConstant, got %v", err)
	}
}

func TestEmitErrorDuplicateDefinition(t *testing.T) {
	p := parser.New(lexer.New("int main() { int a = 1; int a = 2; return a; }"))
	cu := p.ParseProgram()
	_, err := EmitModule(cu)
	if err == nil {
		t.Fatal("expected an error for duplicate definition")
	}
	if !diag.Is(err, diag.DuplicateDefinition) {
		t.Errorf("expected DuplicateDefinition, got %v", err)
	}
}

func TestEmitErrorBreakOutsideLoop(t *testing.T) {
	p := parser.New(lexer.New("int main() { break; return 0; }"))
	cu := p.ParseProgram()
	_, err := EmitModule(cu)
	if err == nil {
		t.Fatal("expected an error for break outside loop")
	}
	if !diag.Is(err, diag.BreakOutsideLoop) {
		t.Errorf("expected BreakOutsideLoop, got %v", err)
	}
}

func TestEmitErrorArityMismatch(t *testing.T) {
	p := parser.New(lexer.New("int add(int a, int b) { return a+b; } int main() { return add(1); }"))
	cu := p.ParseProgram()
	_, err := EmitModule(cu)
	if err == nil {
		t.Fatal("expected an error for arity mismatch")
	}
	if !diag.Is(err, diag.ArityMismatch) {
		t.Errorf("expected ArityMismatch, got %v", err)
	}
}

func TestSSANamesAreUniqueWithinFunction(t *testing.T) {
	m := mustEmit(t, "int main() { int a = 1+1; int b = 2+2; int c = 3+3; return a+b+c; }")
	fn := m.Functions[0]
	seen := map[int]bool{}
	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			var id int
			switch i := inst.(type) {
			case *koopa.Load:
				id = i.ResultID
			case *koopa.Binary:
				id = i.ResultID
			default:
				continue
			}
			if seen[id] {
				t.Fatalf("duplicate SSA id %%%d within function", id)
			}
			seen[id] = true
		}
	}
}

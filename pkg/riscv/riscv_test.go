package riscv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sysy-lang/sysyc/pkg/koopa"
	"github.com/sysy-lang/sysyc/pkg/koopagen"
	"github.com/sysy-lang/sysyc/pkg/koopaparse"
	"github.com/sysy-lang/sysyc/pkg/lexer"
	"github.com/sysy-lang/sysyc/pkg/parser"
)

func compile(t *testing.T, src string) *koopaparse.RawProgram {
	t.Helper()
	p := parser.New(lexer.New(src))
	cu := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	m, err := koopagen.EmitModule(cu)
	if err != nil {
		t.Fatalf("emit error: %v", err)
	}
	var buf bytes.Buffer
	koopa.NewPrinter(&buf).PrintModule(m)
	prog, err := koopaparse.Parse(buf.String())
	if err != nil {
		t.Fatalf("koopaparse error: %v", err)
	}
	return prog
}

func generate(t *testing.T, src string) string {
	t.Helper()
	prog := compile(t, src)
	asmProg := Generate(prog)
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgram(asmProg)
	return buf.String()
}

func TestGenerateReturnLiteral(t *testing.T) {
	out := generate(t, "int main() { return 7; }")
	for _, want := range []string{".globl main", "main:", "li t0, 7", "mv a0, t0", "ret"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestGeneratePrologueAllocatesFrame(t *testing.T) {
	out := generate(t, "int main() { int a = 1; return a; }")
	if !strings.Contains(out, "addi sp, sp, -") {
		t.Errorf("expected a frame-allocating prologue, got:\n%s", out)
	}
}

func TestGenerateCallSavesAndRestoresRA(t *testing.T) {
	out := generate(t, "int main() { putint(1); return 0; }")
	if !strings.Contains(out, "sw ra,") {
		t.Errorf("expected ra saved for a function with a call, got:\n%s", out)
	}
	if !strings.Contains(out, "lw ra,") {
		t.Errorf("expected ra restored before return, got:\n%s", out)
	}
	if !strings.Contains(out, "call putint") {
		t.Errorf("expected a call instruction, got:\n%s", out)
	}
}

func TestGenerateArgumentsPlacedInARegisters(t *testing.T) {
	out := generate(t, "int add(int a, int b) { return a + b; } int main() { return add(1, 2); }")
	if !strings.Contains(out, "mv a0,") || !strings.Contains(out, "mv a1,") {
		t.Errorf("expected first two call args in a0/a1, got:\n%s", out)
	}
	if !strings.Contains(out, "call add") {
		t.Errorf("expected call to add, got:\n%s", out)
	}
}

func TestGenerateOverflowArgsSpillToOutgoingZone(t *testing.T) {
	src := `
		int nine(int a, int b, int c, int d, int e, int f, int g, int h, int i) {
			return a;
		}
		int main() {
			return nine(1, 2, 3, 4, 5, 6, 7, 8, 9);
		}
	`
	out := generate(t, src)
	mainStart := strings.Index(out, "\nmain:\n")
	if mainStart < 0 {
		t.Fatalf("expected a main function, got:\n%s", out)
	}
	spilled := false
	for _, line := range strings.Split(out[mainStart:], "\n") {
		if strings.HasPrefix(line, "  sw t") && strings.HasSuffix(line, ", 0(sp)") {
			spilled = true
		}
	}
	if !spilled {
		t.Errorf("expected the 9th argument spilled via sw to 0(sp) in main, got:\n%s", out)
	}
}

func TestGenerateBranchUsesBnezAndJump(t *testing.T) {
	out := generate(t, "int main() { int x = getint(); if (x) x = 1; else x = 2; return x; }")
	if !strings.Contains(out, "bnez ") {
		t.Errorf("expected bnez, got:\n%s", out)
	}
	if !strings.Contains(out, "j .") {
		t.Errorf("expected a jump to a translated label, got:\n%s", out)
	}
}

func TestGenerateEqualitySynthesizedFromXorSeqz(t *testing.T) {
	out := generate(t, "int main() { int a = getint(); int b = getint(); return a == b; }")
	if !strings.Contains(out, "xor ") || !strings.Contains(out, "seqz ") {
		t.Errorf("expected xor+seqz for eq, got:\n%s", out)
	}
}

func TestGenerateLessEqualSynthesizedFromSgtXori(t *testing.T) {
	out := generate(t, "int main() { int a = getint(); int b = getint(); return a <= b; }")
	if !strings.Contains(out, "sgt ") || !strings.Contains(out, "xori ") {
		t.Errorf("expected sgt+xori for le, got:\n%s", out)
	}
}

func TestGenerateGlobalLoadUsesLaThenLw(t *testing.T) {
	out := generate(t, "int g = 3; int main() { return g; }")
	if !strings.Contains(out, "la ") {
		t.Errorf("expected la for global address, got:\n%s", out)
	}
	if !strings.Contains(out, ".globl g") {
		t.Errorf("expected global data declaration, got:\n%s", out)
	}
}

func TestGenerateVoidFunctionHasBareRet(t *testing.T) {
	out := generate(t, "void f() { putint(1); } int main() { f(); return 0; }")
	if !strings.Contains(out, "call f") {
		t.Errorf("expected call f, got:\n%s", out)
	}
	fStart := strings.Index(out, "\nf:\n")
	mainStart := strings.Index(out, ".globl main")
	if fStart < 0 || mainStart < fStart {
		t.Fatalf("expected f emitted before main, got:\n%s", out)
	}
	fBody := out[fStart:mainStart]
	callAt := strings.Index(fBody, "call putint")
	if callAt < 0 {
		t.Fatalf("expected f to call putint, got:\n%s", fBody)
	}
	afterCall := fBody[callAt:]
	if !strings.Contains(afterCall, "  ret\n") || strings.Contains(afterCall, "a0") {
		t.Errorf("expected f to end in a bare ret with no return value placed in a0, got:\n%s", fBody)
	}
}

func TestGenerateLabelsStripPercent(t *testing.T) {
	out := generate(t, `
		int main() {
			int i = 0;
			while (i < 10) { i = i + 1; }
			return i;
		}
	`)
	if strings.Contains(out, "%while") {
		t.Errorf("expected koopa %% labels translated to GNU-as local labels, got:\n%s", out)
	}
	if !strings.Contains(out, ".while_cond_") {
		t.Errorf("expected a translated while_cond label, got:\n%s", out)
	}
}

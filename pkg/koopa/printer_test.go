package koopa

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintFunction_ReturnConstant(t *testing.T) {
	fn := &Function{
		Name:      "main",
		HasResult: true,
		Blocks: []*BasicBlock{
			{Label: "%entry", Insts: []Instruction{
				&Ret{Val: Integer{7}},
			}},
		},
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(fn)
	out := buf.String()

	if !strings.Contains(out, "fun @main(): i32 {") {
		t.Errorf("expected function header, got:\n%s", out)
	}
	if !strings.Contains(out, "%entry:") {
		t.Errorf("expected entry label, got:\n%s", out)
	}
	if !strings.Contains(out, "ret 7") {
		t.Errorf("expected ret 7, got:\n%s", out)
	}
}

func TestPrintFunction_AllocLoadStoreBinary(t *testing.T) {
	fn := &Function{
		Name:      "f",
		HasResult: true,
		Blocks: []*BasicBlock{
			{Label: "%entry", Insts: []Instruction{
				&Alloc{Name: "@x_1_1"},
				&Store{Val: Integer{10}, Dst: Cell{"@x_1_1"}},
				&Load{ResultID: 0, Src: Cell{"@x_1_1"}},
				&Binary{ResultID: 1, Op: Add, Lhs: Temp{0}, Rhs: Integer{1}},
				&Ret{Val: Temp{1}},
			}},
		},
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(fn)
	out := buf.String()

	for _, want := range []string{
		"@x_1_1 = alloc i32",
		"store 10, @x_1_1",
		"%0 = load @x_1_1",
		"%1 = add %0, 1",
		"ret %1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintFunction_CallVoid(t *testing.T) {
	fn := &Function{
		Name: "f",
		Blocks: []*BasicBlock{
			{Label: "%entry", Insts: []Instruction{
				&Call{Fn: "putint", Args: []Value{Integer{5}}},
				&Ret{},
			}},
		},
	}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(fn)
	out := buf.String()
	if !strings.Contains(out, "call @putint(5)") {
		t.Errorf("expected void call, got:\n%s", out)
	}
	if !strings.Contains(out, "ret\n") && !strings.HasSuffix(strings.TrimSpace(out), "ret") {
		t.Errorf("expected bare ret, got:\n%s", out)
	}
}

func TestPrintFunction_BrAndJump(t *testing.T) {
	fn := &Function{
		Name:      "f",
		HasResult: true,
		Blocks: []*BasicBlock{
			{Label: "%entry", Insts: []Instruction{
				&Br{Cond: Integer{1}, IfTrue: "%then", IfFalse: "%end"},
			}},
			{Label: "%then", Insts: []Instruction{
				&Jump{Target: "%end"},
			}},
			{Label: "%end", Insts: []Instruction{
				&Ret{Val: Integer{0}},
			}},
		},
	}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(fn)
	out := buf.String()
	if !strings.Contains(out, "br 1, %then, %end") {
		t.Errorf("expected br, got:\n%s", out)
	}
	if !strings.Contains(out, "jump %end") {
		t.Errorf("expected jump, got:\n%s", out)
	}
}

func TestPrintModule_LibraryDeclsAndGlobal(t *testing.T) {
	m := &Module{
		Globals: []*GlobalVar{
			{Name: "@g", HasInit: true, Init: 3},
			{Name: "@h"},
		},
		Functions: []*Function{
			{Name: "main", HasResult: true, Blocks: []*BasicBlock{
				{Label: "%entry", Insts: []Instruction{&Ret{Val: Integer{0}}}},
			}},
		},
	}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintModule(m)
	out := buf.String()

	for _, want := range []string{
		"decl @getint(): i32",
		"decl @putarray(i32, *i32)",
		"global @g = alloc i32, 3",
		"global @h = alloc i32, zeroinit",
		"fun @main(): i32 {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected module output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFunctionParamsWithArrayPointer(t *testing.T) {
	fn := &Function{
		Name:      "sum",
		HasResult: true,
		Params:    []Param{{Name: "a", IsArray: true}, {Name: "n"}},
		Blocks: []*BasicBlock{
			{Label: "%entry", Insts: []Instruction{&Ret{Val: Integer{0}}}},
		},
	}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(fn)
	out := buf.String()
	if !strings.Contains(out, "fun @sum(@a: *i32, @n: i32): i32 {") {
		t.Errorf("expected params with array pointer, got:\n%s", out)
	}
}

func TestBasicBlockTerminated(t *testing.T) {
	bb := &BasicBlock{Label: "%entry"}
	if bb.Terminated() {
		t.Fatal("empty block should not be terminated")
	}
	bb.Insts = append(bb.Insts, &Alloc{Name: "@x"})
	if bb.Terminated() {
		t.Fatal("block ending in Alloc should not be terminated")
	}
	bb.Insts = append(bb.Insts, &Ret{})
	if !bb.Terminated() {
		t.Fatal("block ending in Ret should be terminated")
	}
}

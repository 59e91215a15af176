package koopa

import (
	"fmt"
	"io"
)

func (v Integer) String() string { return fmt.Sprintf("%d", v.V) }
func (v Temp) String() string    { return fmt.Sprintf("%%%d", v.ID) }
func (v Cell) String() string    { return v.Name }

// libraryDecls lists the eight runtime function declarations printed
// verbatim at the head of every module (spec.md §6.2).
var libraryDecls = []string{
	"decl @getint(): i32",
	"decl @getch(): i32",
	"decl @getarray(*i32): i32",
	"decl @putint(i32)",
	"decl @putch(i32)",
	"decl @putarray(i32, *i32)",
	"decl @starttime()",
	"decl @stoptime()",
}

// Printer serializes a Module to Koopa IR text, matching spec.md §6.2's
// format. Grounded on pkg/rtl/printer.go's io.Writer-based printer shape.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintModule prints a complete module: library declarations, then globals,
// then function definitions, each section separated by a blank line.
func (p *Printer) PrintModule(m *Module) {
	for _, d := range libraryDecls {
		fmt.Fprintln(p.w, d)
	}
	fmt.Fprintln(p.w)

	for _, g := range m.Globals {
		p.printGlobal(g)
	}
	if len(m.Globals) > 0 {
		fmt.Fprintln(p.w)
	}

	for i, fn := range m.Functions {
		p.PrintFunction(fn)
		if i < len(m.Functions)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

func (p *Printer) printGlobal(g *GlobalVar) {
	if g.HasInit {
		fmt.Fprintf(p.w, "global %s = alloc i32, %d\n", g.Name, g.Init)
	} else {
		fmt.Fprintf(p.w, "global %s = alloc i32, zeroinit\n", g.Name)
	}
}

// PrintFunction prints one function definition in Koopa text form.
func (p *Printer) PrintFunction(fn *Function) {
	fmt.Fprintf(p.w, "fun @%s(", fn.Name)
	for i, param := range fn.Params {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		if param.IsArray {
			fmt.Fprintf(p.w, "@%s: *i32", param.Name)
		} else {
			fmt.Fprintf(p.w, "@%s: i32", param.Name)
		}
	}
	fmt.Fprint(p.w, ")")
	if fn.HasResult {
		fmt.Fprint(p.w, ": i32")
	}
	fmt.Fprintln(p.w, " {")

	for _, bb := range fn.Blocks {
		fmt.Fprintf(p.w, "%s:\n", bb.Label)
		for _, inst := range bb.Insts {
			fmt.Fprint(p.w, "  ")
			p.printInstruction(inst)
			fmt.Fprintln(p.w)
		}
	}
	fmt.Fprintln(p.w, "}")
}

func (p *Printer) printInstruction(instr Instruction) {
	switch i := instr.(type) {
	case *Alloc:
		fmt.Fprintf(p.w, "%s = alloc i32", i.Name)
	case *Load:
		fmt.Fprintf(p.w, "%%%d = load %s", i.ResultID, i.Src)
	case *Store:
		fmt.Fprintf(p.w, "store %s, %s", i.Val, i.Dst)
	case *Binary:
		fmt.Fprintf(p.w, "%%%d = %s %s, %s", i.ResultID, i.Op, i.Lhs, i.Rhs)
	case *Call:
		if i.HasResult {
			fmt.Fprintf(p.w, "%%%d = call @%s(", i.ResultID, i.Fn)
		} else {
			fmt.Fprintf(p.w, "call @%s(", i.Fn)
		}
		for j, a := range i.Args {
			if j > 0 {
				fmt.Fprint(p.w, ", ")
			}
			fmt.Fprint(p.w, a)
		}
		fmt.Fprint(p.w, ")")
	case *Ret:
		if i.Val != nil {
			fmt.Fprintf(p.w, "ret %s", i.Val)
		} else {
			fmt.Fprint(p.w, "ret")
		}
	case *Jump:
		fmt.Fprintf(p.w, "jump %s", i.Target)
	case *Br:
		fmt.Fprintf(p.w, "br %s, %s, %s", i.Cond, i.IfTrue, i.IfFalse)
	default:
		fmt.Fprintf(p.w, "???(%T)", instr)
	}
}

// PrintDecl prints an external function declaration in `decl @fn(...): ty`
// form. Currently unused for the fixed library set (printed verbatim via
// libraryDecls) but kept for Module.Decls produced by future front ends
// that declare additional externs.
func (p *Printer) PrintDecl(fn *Function) {
	fmt.Fprintf(p.w, "decl @%s(", fn.Name)
	for i, param := range fn.Params {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		if param.IsArray {
			fmt.Fprint(p.w, "*i32")
		} else {
			fmt.Fprint(p.w, "i32")
		}
	}
	fmt.Fprint(p.w, ")")
	if fn.HasResult {
		fmt.Fprint(p.w, ": i32")
	}
	fmt.Fprintln(p.w)
}

package riscv

import (
	"fmt"
	"io"
)

// Printer serializes a Program to GNU-as-syntax RV32 assembly text.
// Grounded on pkg/asm/printer.go's io.Writer-based section/directive
// printing idiom (.data/.text, .globl, per-instruction switch).
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints a complete program: data section (globals), then
// text section (functions).
func (p *Printer) PrintProgram(prog *Program) {
	if len(prog.Globals) > 0 {
		fmt.Fprintln(p.w, "  .data")
		for _, g := range prog.Globals {
			p.printGlobal(g)
		}
		fmt.Fprintln(p.w)
	}

	fmt.Fprintln(p.w, "  .text")
	for i, fn := range prog.Functions {
		p.PrintFunction(fn)
		if i < len(prog.Functions)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

func (p *Printer) printGlobal(g GlobalVar) {
	fmt.Fprintf(p.w, "  .globl %s\n", g.Name)
	fmt.Fprintf(p.w, "%s:\n", g.Name)
	if g.HasInit {
		fmt.Fprintf(p.w, "  .word %d\n", g.Init)
	} else {
		fmt.Fprintf(p.w, "  .zero 4\n")
	}
}

// PrintFunction prints one function's prologue-free instruction stream —
// AddiSp/Sw-ra/Lw-ra instructions are ordinary Insts entries the code
// generator already placed at entry and before every Ret, matching
// spec.md §4.7's "materialise, then epilogue, then ret" per-return rule.
func (p *Printer) PrintFunction(fn *Function) {
	fmt.Fprintf(p.w, "  .globl %s\n", fn.Name)
	fmt.Fprintf(p.w, "%s:\n", fn.Name)
	for _, inst := range fn.Insts {
		p.printInstruction(inst)
	}
}

func (p *Printer) printInstruction(inst Instruction) {
	switch i := inst.(type) {
	case Label:
		fmt.Fprintf(p.w, "%s:\n", i.Name)
	case Li:
		fmt.Fprintf(p.w, "  li %s, %d\n", i.Rd, i.Imm)
	case La:
		fmt.Fprintf(p.w, "  la %s, %s\n", i.Rd, i.Sym)
	case Lw:
		fmt.Fprintf(p.w, "  lw %s, %d(%s)\n", i.Rd, i.Offset, i.Base)
	case Sw:
		fmt.Fprintf(p.w, "  sw %s, %d(%s)\n", i.Rs, i.Offset, i.Base)
	case Mv:
		fmt.Fprintf(p.w, "  mv %s, %s\n", i.Rd, i.Rs)
	case RegOp:
		fmt.Fprintf(p.w, "  %s %s, %s, %s\n", i.Op, i.Rd, i.Rs1, i.Rs2)
	case UnaryOp:
		fmt.Fprintf(p.w, "  %s %s, %s\n", i.Op, i.Rd, i.Rs)
	case Xori:
		fmt.Fprintf(p.w, "  xori %s, %s, %d\n", i.Rd, i.Rs, i.Imm)
	case AddiSp:
		fmt.Fprintf(p.w, "  addi sp, sp, %d\n", i.Delta)
	case Bnez:
		fmt.Fprintf(p.w, "  bnez %s, %s\n", i.Rs, i.Target)
	case J:
		fmt.Fprintf(p.w, "  j %s\n", i.Target)
	case CallInst:
		fmt.Fprintf(p.w, "  call %s\n", i.Target)
	case Ret:
		fmt.Fprintln(p.w, "  ret")
	default:
		fmt.Fprintf(p.w, "  ???(%T)\n", inst)
	}
}

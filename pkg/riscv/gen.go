package riscv

import (
	"fmt"

	"github.com/sysy-lang/sysyc/pkg/koopaparse"
	"github.com/sysy-lang/sysyc/pkg/stackframe"
)

// simpleBinOp maps a koopaparse binary op mnemonic to the RV32 instruction
// (or instruction pair) that implements it, per spec.md §4.7's table.
// eq/ne/le/ge need a second instruction and are handled directly in
// genBinary rather than through this table.
var simpleBinOp = map[string]string{
	"add": "add",
	"sub": "sub",
	"mul": "mul",
	"div": "div",
	"mod": "rem",
	"lt":  "slt",
	"gt":  "sgt",
	"and": "and",
	"or":  "or",
	"xor": "xor",
	"shl": "sll",
	"shr": "srl",
	"sar": "sra",
}

// genContext threads per-function codegen state: the computed frame
// layout, each parameter's argument-register index, and a free-running
// index into TempRegs. This mirrors pkg/rtlgen.RegAllocator's
// stateful-struct-threaded-explicitly idiom, retargeted from allocating
// real pseudo-registers to picking a rotating scratch register — the
// rotation is a documented preservation of
// original_source/src/koopaIR2RISC-V.cpp's regs[(reg_cnt++)%7] global.
type genContext struct {
	layout     *stackframe.FrameLayout
	paramIndex map[*koopaparse.RawValue]int
	tempIdx    int
	insts      []Instruction
}

func (c *genContext) nextTemp() Reg {
	r := TempRegs[c.tempIdx%len(TempRegs)]
	c.tempIdx++
	return r
}

func (c *genContext) emit(inst Instruction) {
	c.insts = append(c.insts, inst)
}

// asmSymbol strips Koopa's leading sigil ('@' for named values, '%' for
// anonymous temporaries) since GNU-as symbol names don't carry one.
func asmSymbol(koopaName string) string {
	if len(koopaName) > 0 && (koopaName[0] == '@' || koopaName[0] == '%') {
		return koopaName[1:]
	}
	return koopaName
}

// Generate lowers a parsed Koopa program into RV32 assembly.
func Generate(prog *koopaparse.RawProgram) *Program {
	out := &Program{}
	for _, g := range prog.Globals {
		out.Globals = append(out.Globals, GlobalVar{Name: asmSymbol(g.Name), HasInit: g.HasInit, Init: g.Init})
	}
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, genFunction(fn))
	}
	return out
}

func genFunction(fn *koopaparse.RawFunction) *Function {
	layout := stackframe.Compute(fn)
	paramIndex := make(map[*koopaparse.RawValue]int, len(fn.Params))
	for i, p := range fn.Params {
		paramIndex[p] = i
	}
	c := &genContext{layout: layout, paramIndex: paramIndex}

	c.emit(AddiSp{Delta: -int32(layout.FrameSize)})
	if layout.NeedSaveRA {
		c.emit(Sw{Rs: RegRA, Offset: int32(layout.FrameSize) - 4, Base: RegSP})
	}

	for _, bb := range fn.Blocks {
		c.emit(Label{Name: asmLabel(bb.Label)})
		for _, inst := range bb.Insts {
			c.genInstruction(inst)
		}
	}

	return &Function{
		Name:       fn.Name,
		FrameSize:  int32(layout.FrameSize),
		NeedSaveRA: layout.NeedSaveRA,
		Insts:      c.insts,
	}
}

// asmLabel replaces Koopa's leading '%' with '.', giving a GNU-as local label.
func asmLabel(koopaLabel string) string {
	if len(koopaLabel) > 0 && koopaLabel[0] == '%' {
		return "." + koopaLabel[1:]
	}
	return koopaLabel
}

func (c *genContext) genInstruction(inst *koopaparse.RawValue) {
	switch inst.Kind {
	case koopaparse.KindAlloc, koopaparse.KindGlobalAlloc:
		// frame already reserved; nothing to emit.
	case koopaparse.KindLoad:
		c.genLoad(inst)
	case koopaparse.KindStore:
		c.genStore(inst)
	case koopaparse.KindBinary:
		c.genBinary(inst)
	case koopaparse.KindCall:
		c.genCall(inst)
	case koopaparse.KindBranch:
		c.genBranch(inst)
	case koopaparse.KindJump:
		c.emit(J{Target: asmLabel(inst.Target)})
	case koopaparse.KindReturn:
		c.genReturn(inst)
	default:
		panic(fmt.Sprintf("riscv: unhandled instruction kind %s", inst.Kind))
	}
}

// materialize loads v's value into a fresh scratch register, returning
// that register. Every operand is rematerialised on every use — no value
// survives across instructions in a register, per spec.md §4.7.
func (c *genContext) materialize(v *koopaparse.RawValue) Reg {
	switch v.Kind {
	case koopaparse.KindInteger:
		rd := c.nextTemp()
		c.emit(Li{Rd: rd, Imm: v.IntVal})
		return rd
	case koopaparse.KindGlobalAlloc:
		rd := c.nextTemp()
		c.emit(La{Rd: rd, Sym: asmSymbol(v.Name)})
		c.emit(Lw{Rd: rd, Offset: 0, Base: rd})
		return rd
	case koopaparse.KindFuncArgRef:
		return c.materializeParam(v)
	default:
		rd := c.nextTemp()
		off := int32(c.layout.StackAddr(v))
		c.emit(Lw{Rd: rd, Offset: off, Base: RegSP})
		return rd
	}
}

func (c *genContext) materializeParam(v *koopaparse.RawValue) Reg {
	idx := c.paramIndex[v]
	rd := c.nextTemp()
	if idx < len(ArgRegs) {
		c.emit(Mv{Rd: rd, Rs: ArgRegs[idx]})
		return rd
	}
	// Argument index 8+ arrived in the caller's outgoing overflow zone,
	// which sits directly above this function's own frame.
	incomingOffset := c.layout.FrameSize + int64(idx-len(ArgRegs))*4
	c.emit(Lw{Rd: rd, Offset: int32(incomingOffset), Base: RegSP})
	return rd
}

// storeTo writes rd into dst's home slot, handling both stack-resident
// cells and global destinations per spec.md §4.7's `store` row.
func (c *genContext) storeTo(rd Reg, dst *koopaparse.RawValue) {
	if dst.Kind == koopaparse.KindGlobalAlloc {
		c.emit(La{Rd: RegRA, Sym: asmSymbol(dst.Name)})
		c.emit(Sw{Rs: rd, Offset: 0, Base: RegRA})
		return
	}
	off := int32(c.layout.StackAddr(dst))
	c.emit(Sw{Rs: rd, Offset: off, Base: RegSP})
}

func (c *genContext) genLoad(inst *koopaparse.RawValue) {
	var rd Reg
	if inst.Src.Kind == koopaparse.KindGlobalAlloc {
		rd = c.nextTemp()
		c.emit(La{Rd: rd, Sym: asmSymbol(inst.Src.Name)})
		c.emit(Lw{Rd: rd, Offset: 0, Base: rd})
	} else {
		rd = c.nextTemp()
		off := int32(c.layout.StackAddr(inst.Src))
		c.emit(Lw{Rd: rd, Offset: off, Base: RegSP})
	}
	// Redundant self-store, kept for uniformity: matches
	// original_source/src/koopaIR2RISC-V.cpp's KOOPA_RVT_LOAD case,
	// which always writes the loaded value straight back to its own
	// stack slot rather than special-casing immediate consumers.
	dstOff := int32(c.layout.StackAddr(inst))
	c.emit(Sw{Rs: rd, Offset: dstOff, Base: RegSP})
}

func (c *genContext) genStore(inst *koopaparse.RawValue) {
	rd := c.materialize(inst.Val)
	c.storeTo(rd, inst.Dst)
}

func (c *genContext) genBinary(inst *koopaparse.RawValue) {
	lhs := c.materialize(inst.Lhs)
	rhs := c.materialize(inst.Rhs)
	rd := c.nextTemp()

	switch inst.Op {
	case "eq":
		c.emit(RegOp{Op: "xor", Rd: rd, Rs1: lhs, Rs2: rhs})
		c.emit(UnaryOp{Op: "seqz", Rd: rd, Rs: rd})
	case "ne":
		c.emit(RegOp{Op: "xor", Rd: rd, Rs1: lhs, Rs2: rhs})
		c.emit(UnaryOp{Op: "snez", Rd: rd, Rs: rd})
	case "le":
		c.emit(RegOp{Op: "sgt", Rd: rd, Rs1: lhs, Rs2: rhs})
		c.emit(Xori{Rd: rd, Rs: rd, Imm: 1})
	case "ge":
		c.emit(RegOp{Op: "slt", Rd: rd, Rs1: lhs, Rs2: rhs})
		c.emit(Xori{Rd: rd, Rs: rd, Imm: 1})
	default:
		op, ok := simpleBinOp[inst.Op]
		if !ok {
			panic(fmt.Sprintf("riscv: unsupported binary op %q", inst.Op))
		}
		c.emit(RegOp{Op: op, Rd: rd, Rs1: lhs, Rs2: rhs})
	}
	off := int32(c.layout.StackAddr(inst))
	c.emit(Sw{Rs: rd, Offset: off, Base: RegSP})
}

func (c *genContext) genCall(inst *koopaparse.RawValue) {
	for i, arg := range inst.Args {
		rd := c.materialize(arg)
		if i < len(ArgRegs) {
			c.emit(Mv{Rd: ArgRegs[i], Rs: rd})
		} else {
			c.emit(Sw{Rs: rd, Offset: int32((i - len(ArgRegs)) * 4), Base: RegSP})
		}
	}
	c.emit(CallInst{Target: inst.Callee})
	if inst.HasResult {
		off := int32(c.layout.StackAddr(inst))
		c.emit(Sw{Rs: RegA0, Offset: off, Base: RegSP})
	}
}

func (c *genContext) genBranch(inst *koopaparse.RawValue) {
	rd := c.materialize(inst.Cond)
	c.emit(Bnez{Rs: rd, Target: asmLabel(inst.IfTrue)})
	c.emit(J{Target: asmLabel(inst.IfFalse)})
}

func (c *genContext) genReturn(inst *koopaparse.RawValue) {
	if inst.Val != nil {
		rd := c.materialize(inst.Val)
		c.emit(Mv{Rd: RegA0, Rs: rd})
	}
	if c.layout.NeedSaveRA {
		c.emit(Lw{Rd: RegRA, Offset: int32(c.layout.FrameSize) - 4, Base: RegSP})
	}
	c.emit(AddiSp{Delta: int32(c.layout.FrameSize)})
	c.emit(Ret{})
}

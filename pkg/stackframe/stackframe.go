// Package stackframe computes a per-function activation-record layout from
// a koopaparse.RawFunction, mirroring original_source/src/koopaIR2RISC-V.cpp's
// AnalyzeStack/GetValueOffset almost line for line: a single forward pass
// over instructions in program order, assigning each value-producing
// instruction and each alloc the next 4-byte slot.
//
// The struct shape (sizes and offsets split into named sections, a
// Compute entry point, an alignUp helper) is generalized from
// pkg/stacking/layout.go's FrameLayout/ComputeLayout, retargeted from
// ARM64's FP-relative callee-save/local/outgoing sections onto RV32's
// simpler sp-relative argument-overflow/local/ra layout (spec.md §4.6).
package stackframe

import "github.com/sysy-lang/sysyc/pkg/koopaparse"

const stackAlignment = 16

// FrameLayout describes one function's concrete stack frame, in the shape
//
//	low addr              sp
//	  argument overflow zone (ArgBytes)
//	  local/SSA zone (TotalBytes)
//	  ra save (4 bytes if NeedSaveRA)
//	high addr
type FrameLayout struct {
	ArgBytes    int64 // space reserved for outgoing call arguments beyond the first 8
	TotalBytes  int64 // space for one 4-byte slot per value-producing instruction/alloc
	NeedSaveRA  bool
	FrameSize   int64 // ArgBytes + TotalBytes + (NeedSaveRA ? 4 : 0), rounded up to 16

	// ValueOffset maps a value-producing instruction (load/binary/call) to
	// its slot offset within the local/SSA zone, measured from the bottom
	// of that zone (i.e. immediately above the argument overflow zone).
	ValueOffset map[*koopaparse.RawValue]int64

	// AllocOffset maps an alloc instruction (including function
	// parameter home slots) to its slot offset, same zone and
	// measurement as ValueOffset.
	AllocOffset map[*koopaparse.RawValue]int64
}

// StackAddr returns the absolute sp-relative byte offset of a value's home
// slot: ArgBytes + offset(sp), per spec.md §4.6's look-up rule. It panics
// if v is not a stack-resident value recorded during Compute — callers
// should only invoke it for values Compute is documented to record.
func (l *FrameLayout) StackAddr(v *koopaparse.RawValue) int64 {
	if off, ok := l.AllocOffset[v]; ok {
		return l.ArgBytes + off
	}
	if off, ok := l.ValueOffset[v]; ok {
		return l.ArgBytes + off
	}
	panic("stackframe: value has no assigned stack slot")
}

// Compute analyses fn and returns its frame layout.
func Compute(fn *koopaparse.RawFunction) *FrameLayout {
	layout := &FrameLayout{
		ValueOffset: map[*koopaparse.RawValue]int64{},
		AllocOffset: map[*koopaparse.RawValue]int64{},
	}

	maxArgc := 0
	hasAnyCall := false
	walkInstructions(fn, func(v *koopaparse.RawValue) {
		if v.Kind == koopaparse.KindCall {
			hasAnyCall = true
			if len(v.Args) > maxArgc {
				maxArgc = len(v.Args)
			}
		}
	})
	overflow := maxArgc - 8
	if overflow < 0 {
		overflow = 0
	}
	layout.ArgBytes = int64(overflow) * 4
	layout.NeedSaveRA = hasAnyCall

	var offset int64
	// Parameter home-slot allocs are emitted as the first instructions of
	// %entry (pkg/koopagen.emitFuncDef stores each incoming @param into
	// its own alloc'd cell before anything else runs), so walking blocks
	// in program order naturally assigns them the lowest offsets.
	walkInstructions(fn, func(v *koopaparse.RawValue) {
		if v.Type == koopaparse.Unit {
			return
		}
		switch v.Kind {
		case koopaparse.KindAlloc:
			layout.AllocOffset[v] = offset
		case koopaparse.KindLoad, koopaparse.KindBinary, koopaparse.KindCall:
			layout.ValueOffset[v] = offset
		default:
			return
		}
		offset += 4
	})
	layout.TotalBytes = offset

	frameBody := layout.ArgBytes + layout.TotalBytes
	if layout.NeedSaveRA {
		frameBody += 4
	}
	layout.FrameSize = alignUp(frameBody, stackAlignment)
	return layout
}

func walkInstructions(fn *koopaparse.RawFunction, visit func(*koopaparse.RawValue)) {
	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			visit(inst)
		}
	}
}

func alignUp(n, align int64) int64 {
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

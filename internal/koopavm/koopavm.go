// Package koopavm is a pure-Go interpreter over pkg/koopaparse's raw-form
// IR, used only by tests to check that a program's emitted IR actually
// computes the return value the source claims it does, without needing a
// real RV32 emulator in the loop. It is never imported by cmd/sysyc.
//
// Values are tracked in a single map keyed by *koopaparse.RawValue pointer
// identity, the same contract pkg/stackframe and pkg/riscv rely on: one
// map slot serves as an instruction's result, a local alloc's storage
// cell, and an incoming parameter's binding, since all three are exactly
// the kinds of *RawValue that can appear on the producing or consuming
// end of an operand reference.
package koopavm

import "github.com/sysy-lang/sysyc/pkg/koopaparse"

// Extern is a host-provided implementation of a function the interpreted
// program calls but does not itself define (library functions such as
// getint/putint, or a test's side-effect probe).
type Extern func(args []int32) int32

// Machine interprets one koopaparse.RawProgram.
type Machine struct {
	funcs   map[string]*koopaparse.RawFunction
	globals map[string]int32
	externs map[string]Extern
}

// New builds a Machine over prog, seeding global storage from its
// initializers and registering externs as callable library functions.
func New(prog *koopaparse.RawProgram, externs map[string]Extern) *Machine {
	m := &Machine{
		funcs:   make(map[string]*koopaparse.RawFunction),
		globals: make(map[string]int32),
		externs: externs,
	}
	for _, fn := range prog.Functions {
		m.funcs[fn.Name] = fn
	}
	for _, g := range prog.Globals {
		if g.HasInit {
			m.globals[g.Name] = g.Init
		}
	}
	return m
}

// Run interprets the named function to completion and returns its
// result. hasResult is false for a void function's bare "ret".
func (m *Machine) Run(name string, args []int32) (result int32, hasResult bool, err error) {
	fn, ok := m.funcs[name]
	if !ok {
		return 0, false, &UndefinedFunctionError{Name: name}
	}
	return m.call(fn, args)
}

// UndefinedFunctionError reports a call to a name with neither a defined
// function nor a registered extern.
type UndefinedFunctionError struct{ Name string }

func (e *UndefinedFunctionError) Error() string {
	return "koopavm: no function or extern named " + e.Name
}

// DivisionByZeroError reports a div/mod by zero encountered at run time.
type DivisionByZeroError struct{ Op string }

func (e *DivisionByZeroError) Error() string {
	return "koopavm: " + e.Op + " by zero"
}

// UnterminatedBlockError reports a basic block whose instruction list ran
// out without hitting a terminator, violating the one-terminator-per-block
// invariant every accepted program must uphold.
type UnterminatedBlockError struct{ Label string }

func (e *UnterminatedBlockError) Error() string {
	return "koopavm: block " + e.Label + " has no terminator"
}

func (m *Machine) call(fn *koopaparse.RawFunction, args []int32) (int32, bool, error) {
	cells := make(map[*koopaparse.RawValue]int32, len(fn.Params))
	for i, p := range fn.Params {
		if i < len(args) {
			cells[p] = args[i]
		}
	}
	blocks := make(map[string]*koopaparse.RawBasicBlock, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		blocks[bb.Label] = bb
	}

	label := fn.Blocks[0].Label
blockLoop:
	for {
		bb, ok := blocks[label]
		if !ok {
			return 0, false, &UnterminatedBlockError{Label: label}
		}
		for _, inst := range bb.Insts {
			switch inst.Kind {
			case koopaparse.KindAlloc, koopaparse.KindGlobalAlloc:
				// Storage is created lazily: the zero value of an unset
				// cells/globals entry doubles as an uninitialized slot.
			case koopaparse.KindLoad:
				if inst.Src.Kind == koopaparse.KindGlobalAlloc {
					cells[inst] = m.globals[inst.Src.Name]
				} else {
					cells[inst] = cells[inst.Src]
				}
			case koopaparse.KindStore:
				v := m.materialize(inst.Val, cells)
				if inst.Dst.Kind == koopaparse.KindGlobalAlloc {
					m.globals[inst.Dst.Name] = v
				} else {
					cells[inst.Dst] = v
				}
			case koopaparse.KindBinary:
				lhs := m.materialize(inst.Lhs, cells)
				rhs := m.materialize(inst.Rhs, cells)
				v, err := applyOp(inst.Op, lhs, rhs)
				if err != nil {
					return 0, false, err
				}
				cells[inst] = v
			case koopaparse.KindCall:
				argVals := make([]int32, len(inst.Args))
				for i, a := range inst.Args {
					argVals[i] = m.materialize(a, cells)
				}
				result, err := m.dispatch(inst.Callee, argVals)
				if err != nil {
					return 0, false, err
				}
				if inst.HasResult {
					cells[inst] = result
				}
			case koopaparse.KindBranch:
				cond := m.materialize(inst.Cond, cells)
				if cond != 0 {
					label = inst.IfTrue
				} else {
					label = inst.IfFalse
				}
				continue blockLoop
			case koopaparse.KindJump:
				label = inst.Target
				continue blockLoop
			case koopaparse.KindReturn:
				if inst.Val == nil {
					return 0, false, nil
				}
				return m.materialize(inst.Val, cells), true, nil
			}
		}
		return 0, false, &UnterminatedBlockError{Label: bb.Label}
	}
}

func (m *Machine) dispatch(callee string, args []int32) (int32, error) {
	if fn, ok := m.funcs[callee]; ok {
		result, _, err := m.call(fn, args)
		return result, err
	}
	if ext, ok := m.externs[callee]; ok {
		return ext(args), nil
	}
	return 0, &UndefinedFunctionError{Name: callee}
}

func (m *Machine) materialize(v *koopaparse.RawValue, cells map[*koopaparse.RawValue]int32) int32 {
	switch v.Kind {
	case koopaparse.KindInteger:
		return v.IntVal
	case koopaparse.KindGlobalAlloc:
		return m.globals[v.Name]
	default:
		return cells[v]
	}
}

func applyOp(op string, a, b int32) (int32, error) {
	switch op {
	case "add":
		return a + b, nil
	case "sub":
		return a - b, nil
	case "mul":
		return a * b, nil
	case "div":
		if b == 0 {
			return 0, &DivisionByZeroError{Op: "div"}
		}
		return a / b, nil
	case "mod":
		if b == 0 {
			return 0, &DivisionByZeroError{Op: "mod"}
		}
		return a % b, nil
	case "lt":
		return boolToInt(a < b), nil
	case "gt":
		return boolToInt(a > b), nil
	case "le":
		return boolToInt(a <= b), nil
	case "ge":
		return boolToInt(a >= b), nil
	case "eq":
		return boolToInt(a == b), nil
	case "ne":
		return boolToInt(a != b), nil
	case "and":
		return a & b, nil
	case "or":
		return a | b, nil
	case "xor":
		return a ^ b, nil
	case "shl":
		return a << uint(b), nil
	case "shr":
		return int32(uint32(a) >> uint(b)), nil
	case "sar":
		return a >> uint(b), nil
	default:
		return 0, &UnsupportedOpError{Op: op}
	}
}

// UnsupportedOpError reports a binary op token this interpreter does not
// recognize.
type UnsupportedOpError struct{ Op string }

func (e *UnsupportedOpError) Error() string { return "koopavm: unsupported op " + e.Op }

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

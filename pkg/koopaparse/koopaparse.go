// Package koopaparse re-tokenizes the text a pkg/koopa.Printer emits and
// rebuilds an untyped "raw form" tree of the kind a downstream code
// generator wants to walk: every instruction exposes a Kind tag, a Type
// tag, and an optional Name, mirroring koopa_raw_value_t's kind.tag/ty.tag
// pair in original_source/src/koopaIR2RISC-V.cpp.
//
// Round-tripping through text instead of handing pkg/koopa's own AST
// straight to the backend looks redundant, but it is exactly the seam
// original_source relies on: EmitKoopa() produces text, deal_koopa()
// re-parses it for codegen. Keeping that seam means pkg/stackframe and
// pkg/riscv can key their offset maps on *RawValue identity the same way
// the original keys on koopa_raw_value_t pointers, and a hand-written
// or externally-produced .koopa file is just as valid an input as one
// this module printed itself.
//
// The scanner is a second recursive-descent pass built the same way as
// pkg/lexer+pkg/parser, retargeted at IR text instead of SysY source.
package koopaparse

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags a RawValue by the instruction (or literal) that produced it,
// mirroring koopa_raw_value_t's kind.tag enumeration.
type Kind int

const (
	KindInteger Kind = iota
	KindAlloc
	KindGlobalAlloc
	KindLoad
	KindStore
	KindBinary
	KindCall
	KindBranch
	KindJump
	KindReturn
	KindFuncArgRef // an incoming @x function parameter; also the fallback for unresolved names
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "Integer"
	case KindAlloc:
		return "Alloc"
	case KindGlobalAlloc:
		return "GlobalAlloc"
	case KindLoad:
		return "Load"
	case KindStore:
		return "Store"
	case KindBinary:
		return "Binary"
	case KindCall:
		return "Call"
	case KindBranch:
		return "Branch"
	case KindJump:
		return "Jump"
	case KindReturn:
		return "Return"
	case KindFuncArgRef:
		return "FuncArgRef"
	default:
		return "Unknown"
	}
}

// Type tags a RawValue's result type, mirroring koopa_raw_type_t's tag
// enumeration (KOOPA_RTT_UNIT / KOOPA_RTT_INT32 / KOOPA_RTT_POINTER).
type Type int

const (
	Unit Type = iota
	Int32
	Pointer
)

// RawValue is the parsed form of one operand or instruction result. Two
// RawValues are the "same" value only if they are the same pointer:
// pkg/stackframe keys its offset maps on *RawValue identity exactly as
// original_source keys on koopa_raw_value_t pointers.
type RawValue struct {
	Kind Kind
	Type Type
	Name string // "%3", "@x_1_1", "@g", "" for anonymous integers

	// Operands, populated according to Kind.
	IntVal   int32       // KindInteger, KindGlobalAlloc initializer
	HasInit  bool        // KindGlobalAlloc: false means zeroinit
	Src      *RawValue   // KindLoad
	Dst      *RawValue   // KindStore
	Val      *RawValue   // KindStore, KindReturn (nil = void ret / no store src reuse)
	Op       string      // KindBinary: "add","sub",...
	Lhs, Rhs *RawValue   // KindBinary
	Callee   string      // KindCall
	Args     []*RawValue // KindCall
	HasResult bool       // KindCall: whether the call produces a value
	Cond      *RawValue  // KindBranch
	IfTrue    string     // KindBranch, target label
	IfFalse   string     // KindBranch, target label
	Target    string     // KindJump, target label
}

func (v *RawValue) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Name != "" {
		return v.Name
	}
	return strconv.Itoa(int(v.IntVal))
}

// RawBasicBlock is a labeled straight-line run of raw instructions. Insts
// holds every instruction in program order, including those that produce
// a named/temp result.
type RawBasicBlock struct {
	Label string
	Insts []*RawValue
}

// RawFunction is one function's raw form: its incoming @params and its
// basic blocks in program order. The home-slot allocs the emitter stores
// the params into are ordinary KindAlloc instructions in the blocks.
type RawFunction struct {
	Name      string
	Params    []*RawValue // KindFuncArgRef, Type Int32, one per declared parameter
	HasResult bool
	Blocks    []*RawBasicBlock
}

// RawGlobal is one file-scope `global @name = alloc i32, ...` declaration.
type RawGlobal struct {
	Name    string
	HasInit bool
	Init    int32
}

// RawProgram is the parsed form of an entire .koopa text unit.
type RawProgram struct {
	Globals   []*RawGlobal
	Functions []*RawFunction
}

// Parse tokenizes and parses Koopa IR text, in the exact textual shape
// pkg/koopa.Printer emits (library decl lines are recognized and
// discarded — the backend needs no library signatures: each parsed call
// records in HasResult whether it produces a value).
func Parse(text string) (*RawProgram, error) {
	p := &parser{lines: splitNonEmptyLines(text)}
	return p.parseProgram()
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

type parser struct {
	lines []string
	pos   int
}

func (p *parser) peek() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	return strings.TrimSpace(p.lines[p.pos]), true
}

func (p *parser) next() (string, bool) {
	line, ok := p.peek()
	if ok {
		p.pos++
	}
	return line, ok
}

func (p *parser) parseProgram() (*RawProgram, error) {
	prog := &RawProgram{}
	// A per-program table of named values (allocs, globals) so later
	// instructions in the same function can reference earlier results by
	// name, mirroring koopa's own symbol resolution during parsing.
	globals := map[string]*RawValue{}

	for {
		line, ok := p.peek()
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(line, "decl @"):
			p.next() // library declarations carry no information we need
		case strings.HasPrefix(line, "global @"):
			p.next()
			g, gv, err := parseGlobalLine(line)
			if err != nil {
				return nil, err
			}
			prog.Globals = append(prog.Globals, g)
			globals[gv.Name] = gv
		case strings.HasPrefix(line, "fun @"):
			fn, err := p.parseFunction(globals)
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, fn)
		default:
			return nil, fmt.Errorf("koopaparse: unexpected top-level line %q", line)
		}
	}
	return prog, nil
}

func parseGlobalLine(line string) (*RawGlobal, *RawValue, error) {
	// global @name = alloc i32, <literal|zeroinit>
	rest := strings.TrimPrefix(line, "global ")
	parts := strings.SplitN(rest, "=", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("koopaparse: malformed global line %q", line)
	}
	name := strings.TrimSpace(parts[0])
	valPart := strings.TrimSpace(parts[1])
	commaIdx := strings.LastIndex(valPart, ",")
	if commaIdx < 0 {
		return nil, nil, fmt.Errorf("koopaparse: malformed global initializer %q", line)
	}
	initText := strings.TrimSpace(valPart[commaIdx+1:])
	g := &RawGlobal{Name: name}
	if initText != "zeroinit" {
		n, err := strconv.ParseInt(initText, 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("koopaparse: bad global initializer %q: %w", initText, err)
		}
		g.HasInit = true
		g.Init = int32(n)
	}
	gv := &RawValue{Kind: KindGlobalAlloc, Type: Pointer, Name: name, HasInit: g.HasInit, IntVal: g.Init}
	return g, gv, nil
}

func (p *parser) parseFunction(globals map[string]*RawValue) (*RawFunction, error) {
	header, _ := p.next()
	name, hasResult, params, err := parseFuncHeader(header)
	if err != nil {
		return nil, err
	}
	fn := &RawFunction{Name: name, HasResult: hasResult}

	// symbols visible within this function: globals plus locally produced values
	symbols := map[string]*RawValue{}
	for k, v := range globals {
		symbols[k] = v
	}

	for _, pname := range params {
		// The header only introduces the incoming argument register
		// (@a); it is not itself a stack slot, so it is tagged
		// KindFuncArgRef rather than KindAlloc — the stack analyser's
		// walk over real alloc/value instructions must not double-count
		// it. The function body's own "store @a, @a_1_1" line records
		// the actual home-slot alloc.
		ref := &RawValue{Kind: KindFuncArgRef, Type: Int32, Name: pname}
		fn.Params = append(fn.Params, ref)
		symbols[pname] = ref
	}

	for {
		line, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("koopaparse: unterminated function %q", name)
		}
		if line == "}" {
			p.next()
			break
		}
		bb, err := p.parseBlock(symbols)
		if err != nil {
			return nil, err
		}
		fn.Blocks = append(fn.Blocks, bb)
	}
	return fn, nil
}

func parseFuncHeader(line string) (name string, hasResult bool, params []string, err error) {
	// fun @name(@p0: i32, @p1: *i32): i32 {   OR   fun @name(): i32 {   OR no ": ty"
	if !strings.HasPrefix(line, "fun @") {
		return "", false, nil, fmt.Errorf("koopaparse: expected function header, got %q", line)
	}
	rest := strings.TrimPrefix(line, "fun ")
	openIdx := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if openIdx < 0 || closeIdx < 0 || closeIdx < openIdx {
		return "", false, nil, fmt.Errorf("koopaparse: malformed function header %q", line)
	}
	name = strings.TrimPrefix(strings.TrimSpace(rest[:openIdx]), "@")
	paramText := strings.TrimSpace(rest[openIdx+1 : closeIdx])
	if paramText != "" {
		for _, p := range strings.Split(paramText, ",") {
			p = strings.TrimSpace(p)
			colonIdx := strings.Index(p, ":")
			if colonIdx < 0 {
				return "", false, nil, fmt.Errorf("koopaparse: malformed parameter %q", p)
			}
			params = append(params, strings.TrimSpace(p[:colonIdx]))
		}
	}
	tail := strings.TrimSpace(rest[closeIdx+1:])
	hasResult = strings.Contains(tail, ": i32") || strings.Contains(tail, ":i32")
	return name, hasResult, params, nil
}

func (p *parser) parseBlock(symbols map[string]*RawValue) (*RawBasicBlock, error) {
	header, _ := p.next()
	label := strings.TrimSuffix(strings.TrimSpace(header), ":")
	bb := &RawBasicBlock{Label: label}
	for {
		line, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("koopaparse: unterminated block %q", label)
		}
		if line == "}" || strings.HasSuffix(line, ":") {
			break
		}
		p.next()
		inst, err := parseInstruction(line, symbols)
		if err != nil {
			return nil, err
		}
		bb.Insts = append(bb.Insts, inst)
	}
	return bb, nil
}

func parseInstruction(line string, symbols map[string]*RawValue) (*RawValue, error) {
	switch {
	case strings.Contains(line, "= alloc i32"):
		name := strings.TrimSpace(strings.SplitN(line, "=", 2)[0])
		v := &RawValue{Kind: KindAlloc, Type: Pointer, Name: name}
		symbols[name] = v
		return v, nil

	case strings.Contains(line, "= load "):
		parts := strings.SplitN(line, "= load ", 2)
		name := strings.TrimSpace(parts[0])
		src := resolveOperand(strings.TrimSpace(parts[1]), symbols)
		v := &RawValue{Kind: KindLoad, Type: Int32, Name: name, Src: src}
		symbols[name] = v
		return v, nil

	case strings.HasPrefix(line, "store "):
		body := strings.TrimPrefix(line, "store ")
		commaIdx := strings.LastIndex(body, ",")
		valText := strings.TrimSpace(body[:commaIdx])
		dstText := strings.TrimSpace(body[commaIdx+1:])
		return &RawValue{
			Kind: KindStore,
			Type: Unit,
			Val:  resolveOperand(valText, symbols),
			Dst:  resolveOperand(dstText, symbols),
		}, nil

	case strings.HasPrefix(line, "ret"):
		rest := strings.TrimSpace(strings.TrimPrefix(line, "ret"))
		v := &RawValue{Kind: KindReturn, Type: Unit}
		if rest != "" {
			v.Val = resolveOperand(rest, symbols)
		}
		return v, nil

	case strings.HasPrefix(line, "jump "):
		target := strings.TrimSpace(strings.TrimPrefix(line, "jump "))
		return &RawValue{Kind: KindJump, Type: Unit, Target: target}, nil

	case strings.HasPrefix(line, "br "):
		body := strings.TrimPrefix(line, "br ")
		fields := splitTopLevelCommas(body)
		if len(fields) != 3 {
			return nil, fmt.Errorf("koopaparse: malformed br %q", line)
		}
		return &RawValue{
			Kind:    KindBranch,
			Type:    Unit,
			Cond:    resolveOperand(strings.TrimSpace(fields[0]), symbols),
			IfTrue:  strings.TrimSpace(fields[1]),
			IfFalse: strings.TrimSpace(fields[2]),
		}, nil

	case strings.Contains(line, "call @"):
		return parseCall(line, symbols)

	case containsBinaryOp(line):
		return parseBinary(line, symbols)

	default:
		return nil, fmt.Errorf("koopaparse: unrecognized instruction %q", line)
	}
}

func parseCall(line string, symbols map[string]*RawValue) (*RawValue, error) {
	var name string
	hasResult := strings.Contains(line, "= call @")
	callText := line
	if hasResult {
		parts := strings.SplitN(line, "= call @", 2)
		name = strings.TrimSpace(parts[0])
		callText = "call @" + parts[1]
	}
	rest := strings.TrimPrefix(callText, "call @")
	openIdx := strings.Index(rest, "(")
	closeIdx := strings.LastIndex(rest, ")")
	if openIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("koopaparse: malformed call %q", line)
	}
	callee := strings.TrimSpace(rest[:openIdx])
	argText := strings.TrimSpace(rest[openIdx+1 : closeIdx])
	var args []*RawValue
	if argText != "" {
		for _, a := range splitTopLevelCommas(argText) {
			args = append(args, resolveOperand(strings.TrimSpace(a), symbols))
		}
	}
	v := &RawValue{Kind: KindCall, Callee: callee, Args: args, HasResult: hasResult}
	if hasResult {
		v.Type = Int32
		v.Name = name
		symbols[name] = v
	} else {
		v.Type = Unit
	}
	return v, nil
}

var binOpTokens = []string{" add ", " sub ", " mul ", " div ", " mod ", " lt ", " gt ", " le ", " ge ", " eq ", " ne ", " and ", " or ", " xor ", " shl ", " shr ", " sar "}

func containsBinaryOp(line string) bool {
	padded := " " + line + " "
	for _, tok := range binOpTokens {
		if strings.Contains(padded, tok) {
			return true
		}
	}
	return false
}

func parseBinary(line string, symbols map[string]*RawValue) (*RawValue, error) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("koopaparse: malformed binary instruction %q", line)
	}
	name := strings.TrimSpace(parts[0])
	rhs := strings.TrimSpace(parts[1])
	spaceIdx := strings.Index(rhs, " ")
	if spaceIdx < 0 {
		return nil, fmt.Errorf("koopaparse: malformed binary instruction %q", line)
	}
	op := rhs[:spaceIdx]
	operands := strings.TrimSpace(rhs[spaceIdx+1:])
	fields := splitTopLevelCommas(operands)
	if len(fields) != 2 {
		return nil, fmt.Errorf("koopaparse: malformed binary operands %q", line)
	}
	v := &RawValue{
		Kind: KindBinary,
		Type: Int32,
		Name: name,
		Op:   op,
		Lhs:  resolveOperand(strings.TrimSpace(fields[0]), symbols),
		Rhs:  resolveOperand(strings.TrimSpace(fields[1]), symbols),
	}
	symbols[name] = v
	return v, nil
}

func splitTopLevelCommas(s string) []string {
	return strings.Split(s, ", ")
}

// resolveOperand turns an operand token into a *RawValue: an integer
// literal becomes a fresh anonymous KindInteger value, anything else is
// looked up by name in the symbol table (falling back to a bare named
// reference if the definition hasn't been seen, e.g. a forward-referenced
// label operand embedded in an operand position never occurs in this
// grammar, but a not-yet-recorded case is treated permissively).
func resolveOperand(tok string, symbols map[string]*RawValue) *RawValue {
	if n, err := strconv.ParseInt(tok, 10, 32); err == nil {
		return &RawValue{Kind: KindInteger, Type: Int32, IntVal: int32(n)}
	}
	if v, ok := symbols[tok]; ok {
		return v
	}
	return &RawValue{Kind: KindFuncArgRef, Type: Pointer, Name: tok}
}

// Package koopa defines the Koopa IR data model: a CFG-based, SSA-style
// intermediate representation with basic blocks, per-function value
// numbering, and a small fixed instruction set. This mirrors the shape of
// pkg/rtl's typed CFG (Function/Instruction/Operation tagged interfaces),
// retargeted from RTL's infinite pseudo-registers to Koopa's named `%id`
// values and text-format basic blocks.
package koopa

// Value is anything usable as an instruction operand: an integer literal,
// an SSA temporary produced by an earlier instruction, or a named cell
// (a local `@x_<scope>_<n>` or global `@name`).
type Value interface {
	implValue()
	String() string
}

// Integer is a literal operand.
type Integer struct {
	V int32
}

func (Integer) implValue() {}

// Temp is a reference to the result of an earlier instruction, `%<id>`.
type Temp struct {
	ID int
}

func (Temp) implValue() {}

// Cell is a reference to a named storage location produced by Alloc or a
// global variable declaration, e.g. `@x_1_2` or `@g`.
type Cell struct {
	Name string
}

func (Cell) implValue() {}

// BinOp enumerates Koopa's binary opcodes (spec.md §3's IR entities list).
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Lt
	Gt
	Le
	Ge
	Eq
	NotEq
	And
	Or
	Xor
	Shl
	Shr
	Sar
)

var binOpNames = [...]string{
	"add", "sub", "mul", "div", "mod",
	"lt", "gt", "le", "ge", "eq", "ne",
	"and", "or", "xor", "shl", "shr", "sar",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "?"
}

// Instruction is any Koopa instruction, terminator or otherwise. Every
// value-producing instruction is addressable via a Temp built from its
// ResultID.
type Instruction interface {
	implInstruction()
}

// Alloc allocates a storage cell for one i32; the cell is named Name rather
// than numbered, since named cells persist across the whole function
// instead of being consumed once like SSA temporaries.
type Alloc struct {
	Name string
}

func (*Alloc) implInstruction() {}

// Load reads the i32 currently stored in Src, producing a temporary named
// ResultID.
type Load struct {
	ResultID int
	Src      Value
}

func (*Load) implInstruction() {}

// Store writes Val into Dst. Store never produces a value.
type Store struct {
	Val Value
	Dst Value
}

func (*Store) implInstruction() {}

// Binary applies Op to Lhs and Rhs, producing a temporary named ResultID.
type Binary struct {
	ResultID int
	Op       BinOp
	Lhs, Rhs Value
}

func (*Binary) implInstruction() {}

// Call invokes Fn with Args. HasResult is false for void-returning
// functions, in which case ResultID is meaningless.
type Call struct {
	ResultID  int
	HasResult bool
	Fn        string
	Args      []Value
}

func (*Call) implInstruction() {}

// Ret is the "return" terminator; Val is nil for a void return.
type Ret struct {
	Val Value
}

func (*Ret) implInstruction() {}

// Jump is the unconditional-branch terminator.
type Jump struct {
	Target string
}

func (*Jump) implInstruction() {}

// Br is the conditional-branch terminator.
type Br struct {
	Cond    Value
	IfTrue  string
	IfFalse string
}

func (*Br) implInstruction() {}

// IsTerminator reports whether instr ends a basic block.
func IsTerminator(instr Instruction) bool {
	switch instr.(type) {
	case *Ret, *Jump, *Br:
		return true
	default:
		return false
	}
}

// BasicBlock is a labeled, ordered list of instructions ending in exactly
// one terminator once well-formed.
type BasicBlock struct {
	Label string // starts with '%', e.g. "%entry"
	Insts []Instruction
}

// Terminated reports whether the block's last instruction is a terminator.
func (b *BasicBlock) Terminated() bool {
	if len(b.Insts) == 0 {
		return false
	}
	return IsTerminator(b.Insts[len(b.Insts)-1])
}

// Param is one function parameter: a name and whether it is a pointer
// (single-level array-pointer parameters, spec.md §9 Open Question).
type Param struct {
	Name    string
	IsArray bool
}

// Function is one function definition or external declaration. Blocks is
// empty for a declaration (`decl @fn(...): ty`).
type Function struct {
	Name      string
	Params    []Param
	HasResult bool
	Blocks    []*BasicBlock
}

// GlobalVar is a module-level `global @name = alloc i32, <init|zeroinit>`.
type GlobalVar struct {
	Name    string
	HasInit bool
	Init    int32
}

// Module is a whole compiled program: library declarations, globals, and
// function definitions, matching spec.md §3's Module shape.
type Module struct {
	Decls     []*Function // external declarations, HasResult set but Blocks empty
	Globals   []*GlobalVar
	Functions []*Function
}

// Package symtab implements the lexically-scoped symbol table shared by the
// constant evaluator and the IR emitter.
//
// A Table is a stack of *Scope built by Enter/Leave; each Scope carries a
// scope_id (root=0, then one more for each scope the Table enters, never
// reused after Leave) and a monotonic var counter
// used to mint globally-unique cell names, mirroring
// original_source/src/AST.hpp's SymbolTable/get_unique_name. The small,
// explicitly-threaded stateful-allocator idiom (rather than package-level
// mutable state) is grounded on pkg/rtlgen/regs.go's RegAllocator.
package symtab

import "fmt"

// Kind discriminates the three shapes a SymbolInfo can take.
type Kind int

const (
	KindConstant Kind = iota
	KindVariable
	KindFunction
)

// Info is the value stored for one symbol name. Only the fields relevant to
// Kind are meaningful; the others are zero.
type Info struct {
	Kind Kind

	// KindConstant
	Value int32

	// KindVariable
	IRName   string
	IsGlobal bool

	// KindFunction
	RetType    string
	ParamTypes []string
}

// Scope is one lexical scope: a flat name->Info map plus the bookkeeping
// needed to mint unique cell names for locals declared within it.
type Scope struct {
	id      int
	varCnt  int
	symbols map[string]*Info
}

// Table is a stack of scopes forming a chain by lexical nesting; the last
// element is the innermost, currently-active scope.
type Table struct {
	scopes []*Scope
	nextID int
}

// New returns an empty Table with no active scope. Callers must Enter a
// root scope (conventionally a pre-populated library scope) before Add or
// Lookup.
func New() *Table {
	return &Table{}
}

// Enter pushes a new, empty scope nested under the current one and returns
// it. Scope ids come from a Table-wide counter (root scope gets id 0), so
// sibling scopes get distinct ids; the id equals the parent's plus one only
// when no scope has been left since the parent was entered.
func (t *Table) Enter() *Scope {
	s := &Scope{id: t.nextID, symbols: make(map[string]*Info)}
	t.nextID++
	t.scopes = append(t.scopes, s)
	return s
}

// Leave pops the innermost scope. Calling Leave on an empty Table panics,
// since it indicates a scope-discipline bug in the caller.
func (t *Table) Leave() {
	if len(t.scopes) == 0 {
		panic("symtab: Leave called with no active scope")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Add binds name to info in the current (innermost) scope. It returns false
// without modifying the table if name already exists in that scope —
// duplicate detection is scoped, not global, so shadowing across scopes is
// always allowed.
func (t *Table) Add(name string, info *Info) bool {
	s := t.current()
	if _, exists := s.symbols[name]; exists {
		return false
	}
	s.symbols[name] = info
	return true
}

// Lookup walks outward from the innermost scope, returning the first match;
// inner scopes shadow outer ones. The second return is false if name is
// bound nowhere in the chain.
func (t *Table) Lookup(name string) (*Info, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if info, ok := t.scopes[i].symbols[name]; ok {
			return info, true
		}
	}
	return nil, false
}

// UniqueName mints a fresh IR cell name for base in the current scope:
// "@<base>_<scope_id>_<var_cnt>", then advances that scope's counter.
func (t *Table) UniqueName(base string) string {
	s := t.current()
	s.varCnt++
	return fmt.Sprintf("@%s_%d_%d", base, s.id, s.varCnt)
}

// Depth reports how many scopes are currently active, for callers that need
// to assert balanced Enter/Leave pairs (e.g. at function boundaries).
func (t *Table) Depth() int {
	return len(t.scopes)
}

func (t *Table) current() *Scope {
	if len(t.scopes) == 0 {
		panic("symtab: no active scope; call Enter first")
	}
	return t.scopes[len(t.scopes)-1]
}

// LibraryFunctions lists the SysY runtime functions pre-declared in every
// module's library scope (spec.md §4.1), with their signatures.
var LibraryFunctions = []struct {
	Name       string
	RetType    string
	ParamTypes []string
}{
	{"getint", "int", nil},
	{"getch", "int", nil},
	{"getarray", "int", []string{"*int"}},
	{"putint", "void", []string{"int"}},
	{"putch", "void", []string{"int"}},
	{"putarray", "void", []string{"int", "*int"}},
	{"starttime", "void", nil},
	{"stoptime", "void", nil},
}

// PopulateLibraryScope binds every LibraryFunctions entry as a KindFunction
// symbol in the current scope. Callers Enter the root scope, call this once,
// and never Leave it until the whole module has been processed.
func PopulateLibraryScope(t *Table) {
	for _, fn := range LibraryFunctions {
		t.Add(fn.Name, &Info{Kind: KindFunction, RetType: fn.RetType, ParamTypes: fn.ParamTypes})
	}
}

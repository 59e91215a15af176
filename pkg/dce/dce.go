// Package dce implements the dead-block eliminator: BFS reachability from
// %entry over a *koopa.Function's basic blocks, dropping unreachable blocks
// and truncating each remaining block after its first terminator.
//
// Where the original toolchain re-parses its own emitted text to rebuild a
// CFG for this pass (original_source/src/DCE.hpp's BuildCFG walking a line
// list), this package operates directly on the typed *koopa.Function the
// emitter already built — a straightforward adaptation of the same
// reachability algorithm, grounded on pkg/linearize's label-liveness
// filtering idiom (CleanupLabels/collectUsedLabels).
package dce

import "github.com/sysy-lang/sysyc/pkg/koopa"

// Run returns a new function containing only the blocks reachable from
// %entry, in their original order, each truncated after its first
// terminator. Run is idempotent: applying it to its own output yields an
// identical function.
func Run(fn *koopa.Function) *koopa.Function {
	if len(fn.Blocks) == 0 {
		return fn
	}

	byLabel := make(map[string]*koopa.BasicBlock, len(fn.Blocks))
	for _, bb := range fn.Blocks {
		byLabel[bb.Label] = bb
	}

	reachable := bfsReachable(fn.Blocks[0], byLabel)

	out := &koopa.Function{
		Name:      fn.Name,
		Params:    fn.Params,
		HasResult: fn.HasResult,
	}
	for _, bb := range fn.Blocks {
		if !reachable[bb.Label] {
			continue
		}
		out.Blocks = append(out.Blocks, truncateAfterTerminator(bb))
	}
	return out
}

func bfsReachable(entry *koopa.BasicBlock, byLabel map[string]*koopa.BasicBlock) map[string]bool {
	reachable := map[string]bool{entry.Label: true}
	queue := []*koopa.BasicBlock{entry}
	for len(queue) > 0 {
		bb := queue[0]
		queue = queue[1:]
		for _, target := range successors(bb) {
			if reachable[target] {
				continue
			}
			next, ok := byLabel[target]
			if !ok {
				continue
			}
			reachable[target] = true
			queue = append(queue, next)
		}
	}
	return reachable
}

func successors(bb *koopa.BasicBlock) []string {
	for _, inst := range bb.Insts {
		switch i := inst.(type) {
		case *koopa.Jump:
			return []string{i.Target}
		case *koopa.Br:
			return []string{i.IfTrue, i.IfFalse}
		case *koopa.Ret:
			return nil
		}
	}
	return nil
}

// truncateAfterTerminator returns a copy of bb with every instruction after
// its first terminator dropped, guarding against leaked post-return
// instructions the emitter's own termination check should already prevent.
func truncateAfterTerminator(bb *koopa.BasicBlock) *koopa.BasicBlock {
	out := &koopa.BasicBlock{Label: bb.Label}
	for _, inst := range bb.Insts {
		out.Insts = append(out.Insts, inst)
		if koopa.IsTerminator(inst) {
			break
		}
	}
	return out
}

// RunModule applies Run to every function in m, returning a new module.
// Globals and external declarations pass through unchanged.
func RunModule(m *koopa.Module) *koopa.Module {
	out := &koopa.Module{Decls: m.Decls, Globals: m.Globals}
	for _, fn := range m.Functions {
		out.Functions = append(out.Functions, Run(fn))
	}
	return out
}

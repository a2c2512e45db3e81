package cfg

import (
	"sort"

	"pythoc/report"
	"pythoc/typing"
)

// LinearState is the ownership state of one linear slot.
type LinearState int

const (
	LinearUndefined LinearState = iota
	LinearLive
	LinearConsumed
)

func (ls LinearState) Repr() string {
	switch ls {
	case LinearLive:
		return "live"
	case LinearConsumed:
		return "consumed"
	default:
		return "undefined"
	}
}

// Slot identifies one tracked ownership slot: a variable plus a field path
// into its linear-containing type.
type Slot struct {
	Var  string
	Path string
}

func (s Slot) Repr() string {
	return s.Var + s.Path
}

// Snapshot maps every tracked slot to its state at one program point.
type Snapshot map[Slot]LinearState

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for slot, state := range s {
		out[slot] = state
	}

	return out
}

// equalSnapshots reports whether two snapshots agree slot-by-slot.  Missing
// slots count as undefined.
func equalSnapshots(a, b Snapshot) bool {
	for slot, state := range a {
		if b[slot] != state {
			return false
		}
	}

	for slot, state := range b {
		if a[slot] != state {
			return false
		}
	}

	return true
}

// snapshotDiff lists the slots on which two snapshots disagree.
func snapshotDiff(a, b Snapshot) []string {
	seen := make(map[Slot]struct{})
	var diffs []string

	collect := func(s Snapshot) {
		for slot := range s {
			if _, ok := seen[slot]; ok {
				continue
			}
			seen[slot] = struct{}{}

			if a[slot] != b[slot] {
				diffs = append(diffs, slot.Repr()+": "+a[slot].Repr()+" vs "+b[slot].Repr())
			}
		}
	}

	collect(a)
	collect(b)
	sort.Strings(diffs)
	return diffs
}

// -----------------------------------------------------------------------------

// LinearChecker runs the path-sensitive ownership analysis over a function's
// CFG.  The graph must already have defers expanded onto its exit edges, so
// every deferred call is visible as an ordinary call statement.
type LinearChecker struct {
	// VarType resolves the declared type of a variable; nil results are
	// treated as non-linear.
	VarType func(name string) typing.DataType

	errors []*report.CompileError

	entry map[int]Snapshot
	exit  map[int]Snapshot
}

// Check runs the analysis over the CFG.  The initial snapshot carries the
// slots of linear-containing parameters, all Live.
func (lc *LinearChecker) Check(g *Graph, initial Snapshot) []*report.CompileError {
	lc.errors = nil
	lc.entry = map[int]Snapshot{g.EntryID: initial.clone()}
	lc.exit = make(map[int]Snapshot)

	for _, block := range g.TopologicalOrder() {
		entry, ok := lc.entry[block.ID]
		if !ok {
			entry = lc.mergeEntry(g, block.ID)
			if entry == nil {
				continue
			}

			lc.entry[block.ID] = entry
		}

		exit := lc.simulate(block, entry.clone())
		lc.exit[block.ID] = exit

		for _, e := range g.Successors(block.ID) {
			if e.Kind == EdgeLoopBack {
				lc.checkLoopInvariant(g, e, exit)
			} else if _, ok := lc.entry[e.Target]; !ok {
				// First predecessor to reach the block seeds its entry; later
				// predecessors are validated by mergeEntry and the final
				// merge sweep.
				lc.entry[e.Target] = exit.clone()
			}
		}
	}

	lc.checkMergePoints(g)
	lc.checkFunctionExit(g)

	return lc.errors
}

func (lc *LinearChecker) errorf(kind report.ErrorKind, pos *report.TextPosition, msg string, args ...interface{}) {
	lc.errors = append(lc.errors, report.Raise(kind, pos, msg, args...))
}

// mergeEntry computes a block's entry snapshot from its non-back-edge
// predecessors, requiring them to agree exactly.
func (lc *LinearChecker) mergeEntry(g *Graph, blockID int) Snapshot {
	var first Snapshot
	for _, e := range g.Predecessors(blockID) {
		if e.Kind == EdgeLoopBack {
			continue
		}

		pred, ok := lc.exit[e.Source]
		if !ok {
			continue
		}

		if first == nil {
			first = pred
		} else if !equalSnapshots(first, pred) {
			// Reported by the merge sweep; use the first state to continue.
			break
		}
	}

	if first == nil {
		return nil
	}

	return first.clone()
}

// checkMergePoints validates that every merge point's incoming states agree
// slot-by-slot.
func (lc *LinearChecker) checkMergePoints(g *Graph) {
	for id := 0; id < g.NumBlocks(); id++ {
		var preds []Snapshot
		for _, e := range g.Predecessors(id) {
			if e.Kind == EdgeLoopBack {
				continue
			}

			if snap, ok := lc.exit[e.Source]; ok {
				preds = append(preds, snap)
			}
		}

		if len(preds) <= 1 {
			continue
		}

		for _, snap := range preds[1:] {
			if !equalSnapshots(preds[0], snap) {
				diffs := snapshotDiff(preds[0], snap)
				err := report.RaiseWithWitness(report.LinearInconsistentMerge,
					blockPos(g, id), diffs,
					"linear states disagree at merge point")
				lc.errors = append(lc.errors, err)
				break
			}
		}
	}
}

// checkLoopInvariant verifies that the state flowing along a back edge equals
// the loop header's entry state: consuming a token only on the back edge is
// rejected unless the loop exits unconditionally before it.
func (lc *LinearChecker) checkLoopInvariant(g *Graph, backEdge Edge, exit Snapshot) {
	headerEntry, ok := lc.entry[backEdge.Target]
	if !ok {
		return
	}

	if !equalSnapshots(exit, headerEntry) {
		diffs := snapshotDiff(headerEntry, exit)
		err := report.RaiseWithWitness(report.LinearInconsistentMerge,
			blockPos(g, backEdge.Source), diffs,
			"loop body changes linear state")
		lc.errors = append(lc.errors, err)
	}
}

// checkFunctionExit verifies every linear slot is consumed on every path out
// of the function.
func (lc *LinearChecker) checkFunctionExit(g *Graph) {
	reachable := g.Reachable()

	var exitPoints []int
	inExitPoints := make(map[int]struct{})
	add := func(id int) {
		if _, ok := inExitPoints[id]; !ok {
			inExitPoints[id] = struct{}{}
			exitPoints = append(exitPoints, id)
		}
	}

	for _, id := range g.ReturnBlocks {
		if _, ok := reachable[id]; ok {
			add(id)
		}
	}

	for id := range reachable {
		if len(g.Successors(id)) == 0 {
			add(id)
		}
	}

	sort.Ints(exitPoints)

	for _, id := range exitPoints {
		snap, ok := lc.exit[id]
		if !ok {
			continue
		}

		var unconsumed []string
		for slot, state := range snap {
			if state == LinearLive {
				unconsumed = append(unconsumed, slot.Repr())
			}
		}

		if len(unconsumed) > 0 {
			sort.Strings(unconsumed)
			err := report.RaiseWithWitness(report.LinearExitNotConsumed,
				blockPos(g, id), unconsumed,
				"linear tokens not consumed at function exit")
			lc.errors = append(lc.errors, err)
		}
	}
}

// blockPos finds a representative position for a block, falling back to
// neighboring blocks for empty ones.
func blockPos(g *Graph, id int) *report.TextPosition {
	if block := g.Block(id); block != nil && len(block.Stmts) > 0 {
		return block.Stmts[0].Position()
	}

	for _, e := range g.Predecessors(id) {
		if pred := g.Block(e.Source); pred != nil && len(pred.Stmts) > 0 {
			return pred.Stmts[len(pred.Stmts)-1].Position()
		}
	}

	return nil
}

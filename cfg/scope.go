package cfg

import (
	"pythoc/ast"
	"pythoc/report"
)

// ScopeKind classifies the nodes of the scope tree.
type ScopeKind int

const (
	ScopeFunction ScopeKind = iota
	ScopeBlock
	ScopeLoop
	ScopeLabel
)

// DeferRecord is one registered scope-exit call.  Arguments are captured by
// value at registration; linear arguments transfer ownership only when the
// deferred call executes.
type DeferRecord struct {
	Call *ast.Call
	Pos  *report.TextPosition
}

// Scope is a node of the function's scope tree.  Every scope carries a
// possibly empty defer list, registered in encounter order and executed FIFO
// on every exit edge of the scope.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope

	// Defers is the scope's FIFO defer list.
	Defers []*DeferRecord

	// Label is the label name for ScopeLabel nodes.
	Label string

	// BeginBlock and EndBlock are the label's two jump targets: begin sits
	// outside the body (jumping to it re-enters the label), end sits inside,
	// after the scope's defers have run.
	BeginBlock, EndBlock int

	// HeadBlock and BreakBlock are the loop targets for ScopeLoop nodes.
	HeadBlock, BreakBlock int
}

// NewChild creates and attaches a child scope.
func (s *Scope) NewChild(kind ScopeKind) *Scope {
	child := &Scope{Kind: kind, Parent: s}
	s.Children = append(s.Children, child)
	return child
}

// Register appends a defer record to the scope's list.
func (s *Scope) Register(rec *DeferRecord) {
	s.Defers = append(s.Defers, rec)
}

// IsAncestorOf reports whether s is an ancestor of (or the same node as)
// other.
func (s *Scope) IsAncestorOf(other *Scope) bool {
	for node := other; node != nil; node = node.Parent {
		if node == s {
			return true
		}
	}

	return false
}

// EnclosingLoop returns the innermost enclosing loop scope, if any.
func (s *Scope) EnclosingLoop() *Scope {
	for node := s; node != nil; node = node.Parent {
		if node.Kind == ScopeLoop {
			return node
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// FindLabel resolves a label name from the given scope.  A label is visible
// from point P if it is P's own scope, an ancestor, or an uncle: a scope
// whose parent lies on P's ancestor chain.
func FindLabel(from *Scope, name string) *Scope {
	for node := from; node != nil; node = node.Parent {
		if node.Kind == ScopeLabel && node.Label == name {
			return node
		}

		// Siblings of this ancestor (uncles of the jump point).
		if node.Parent != nil {
			for _, sibling := range node.Parent.Children {
				if sibling.Kind == ScopeLabel && sibling.Label == name {
					return sibling
				}
			}
		}
	}

	return nil
}

// VisibleForGotoEnd reports whether the label may be targeted by goto_end
// from the given scope: the end target is inside the label body, so the
// label must be the jump point's own scope or an ancestor, never an uncle.
func VisibleForGotoEnd(from, label *Scope) bool {
	return label.IsAncestorOf(from)
}

// UnwoundScopes returns the scopes whose defers run when jumping from `from`
// out to (but not into) `stop`: every scope on the chain from `from` up to
// and excluding `stop`, innermost first.  A nil stop unwinds the whole chain,
// as a return does.
func UnwoundScopes(from, stop *Scope) []*Scope {
	var unwound []*Scope
	for node := from; node != nil && node != stop; node = node.Parent {
		unwound = append(unwound, node)
	}

	return unwound
}

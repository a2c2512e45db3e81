package ast

// Pattern is the interface for all match patterns.
type Pattern interface {
	Node

	patternNode()
}

// PatternBase is the base struct for all pattern nodes.
type PatternBase struct {
	NodeBase
}

func (pb *PatternBase) patternNode() {}

// MatchValue matches a literal constant or an enum variant reference.
type MatchValue struct {
	PatternBase

	Value Expr
}

// MatchAs is a capture pattern: it binds the subject (or the inner pattern's
// match) to a name.  A MatchAs with no inner pattern and no name is the
// wildcard `_`.  Bindings and wildcards are equivalent for exhaustiveness.
type MatchAs struct {
	PatternBase

	// Inner is the optional nested pattern; nil for a bare capture/wildcard.
	Inner Pattern

	// Name is the bound name; empty for the wildcard.
	Name string
}

// MatchOr is a disjunction of alternative patterns.
type MatchOr struct {
	PatternBase

	Alternatives []Pattern
}

// MatchSequence destructures arrays, tuples, and enum variant payloads
// positionally.
type MatchSequence struct {
	PatternBase

	Elems []Pattern
}

// KeywordPattern is a by-name sub-pattern of a class pattern.
type KeywordPattern struct {
	Name    string
	Pattern Pattern
}

// MatchClass destructures a struct or matches an enum variant with payload.
// Sub-patterns may be positional, by keyword, or a mix.
type MatchClass struct {
	PatternBase

	Cls        Expr
	Positional []Pattern
	Keyword    []KeywordPattern
}

// IsWildcard reports whether the pattern is an unguarded catch-all: a bare
// capture or wildcard.
func IsWildcard(p Pattern) bool {
	ma, ok := p.(*MatchAs)
	return ok && ma.Inner == nil
}

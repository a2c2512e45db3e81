package match

import (
	"fmt"

	"pythoc/typing"
)

// Kind enumerates the kinds of normalized patterns.
type Kind int

const (
	// KindWildcard covers both `_` and variable bindings: the two are
	// equivalent for exhaustiveness.
	KindWildcard Kind = iota
	KindLiteral
	KindConstructor
	KindOr
)

// Pattern is a normalized match pattern: a shared representation that
// captures pattern semantics without AST-specific detail.
type Pattern struct {
	Kind Kind

	// Value is the literal value for KindLiteral.
	Value interface{}

	// Tag and CtorName identify the constructor for KindConstructor.
	Tag      int64
	CtorName string

	// Subs are the constructor's sub-patterns.
	Subs []*Pattern

	// Alts are the alternatives of an or-pattern.
	Alts []*Pattern

	// Type is the subject component type at this pattern position.
	Type typing.DataType
}

// Wildcard creates a wildcard pattern of the given type.
func Wildcard(typ typing.DataType) *Pattern {
	return &Pattern{Kind: KindWildcard, Type: typ}
}

// Literal creates a literal pattern.
func Literal(value interface{}, typ typing.DataType) *Pattern {
	return &Pattern{Kind: KindLiteral, Value: value, Type: typ}
}

// Constructor creates a constructor pattern.
func Constructor(tag int64, name string, subs []*Pattern, typ typing.DataType) *Pattern {
	return &Pattern{Kind: KindConstructor, Tag: tag, CtorName: name, Subs: subs, Type: typ}
}

// Or creates an or-pattern over the alternatives.
func Or(alts []*Pattern, typ typing.DataType) *Pattern {
	return &Pattern{Kind: KindOr, Alts: alts, Type: typ}
}

// IsWildcard reports whether the pattern is a wildcard or binding.
func (p *Pattern) IsWildcard() bool {
	return p.Kind == KindWildcard
}

func (p *Pattern) Repr() string {
	switch p.Kind {
	case KindWildcard:
		return "_"
	case KindLiteral:
		return fmt.Sprintf("%v", p.Value)
	case KindConstructor:
		if len(p.Subs) == 0 {
			return p.CtorName
		}

		s := p.CtorName + "("
		for i, sub := range p.Subs {
			if i > 0 {
				s += ", "
			}
			s += sub.Repr()
		}

		return s + ")"
	default:
		s := ""
		for i, alt := range p.Alts {
			if i > 0 {
				s += " | "
			}
			s += alt.Repr()
		}

		return s
	}
}

// -----------------------------------------------------------------------------

// Row is one row of the pattern matrix: the patterns of one case clause, one
// per subject component.
type Row struct {
	Patterns []*Pattern

	// HasGuard marks guarded arms.  Guards are treated as potentially false,
	// so a guarded row never contributes to exhaustiveness.
	HasGuard bool

	// CaseIndex is the index of the originating case clause.
	CaseIndex int
}

// Matrix is a pattern matrix: rows are case clauses, columns are subject
// components.
type Matrix struct {
	Rows     []Row
	ColTypes []typing.DataType
}

// FirstColumnTags collects the constructor tags appearing in the first
// column, looking through or-patterns.
func (m *Matrix) FirstColumnTags() map[int64]struct{} {
	tags := make(map[int64]struct{})

	for _, row := range m.Rows {
		if len(row.Patterns) == 0 {
			continue
		}

		switch first := row.Patterns[0]; first.Kind {
		case KindConstructor:
			tags[first.Tag] = struct{}{}
		case KindOr:
			for _, alt := range first.Alts {
				if alt.Kind == KindConstructor {
					tags[alt.Tag] = struct{}{}
				}
			}
		}
	}

	return tags
}

// FirstColumnLiterals collects the literal values appearing in the first
// column, looking through or-patterns.
func (m *Matrix) FirstColumnLiterals() []interface{} {
	var lits []interface{}

	for _, row := range m.Rows {
		if len(row.Patterns) == 0 {
			continue
		}

		switch first := row.Patterns[0]; first.Kind {
		case KindLiteral:
			lits = append(lits, first.Value)
		case KindOr:
			for _, alt := range first.Alts {
				if alt.Kind == KindLiteral {
					lits = append(lits, alt.Value)
				}
			}
		}
	}

	return lits
}

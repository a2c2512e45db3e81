package typing

import (
	"sort"
	"strings"
)

// PredicateRef identifies a refinement predicate function.  Predicates are
// compared by structural identity of the reference: two refs naming the same
// compiled predicate are the same predicate.
type PredicateRef struct {
	// Name is the compiled symbol name of the predicate.
	Name string

	// Signature is the predicate's function type.  Every predicate returns
	// bool; its arity determines the shape of the refined value.
	Signature *FuncType
}

// RefinedType represents a base type narrowed by a set of runtime-checkable
// predicates and compile-time proof tags.
//
// Single-shape refined types (all predicates unary) have the same runtime
// representation as their base.  Multi-shape refined types are carried as a
// struct with one field per predicate parameter, in parameter order.  The
// fields carry no parameter names: a carrier built from a predicate signature
// or from assumed values has anonymous fields, and a declared base struct
// keeps its own field names.
type RefinedType struct {
	// Base is the underlying representation type.  For single-shape refined
	// types this is the refined value's type; for multi-shape it is the
	// carrier struct.
	Base DataType

	// Predicates is the ordered list of refinement predicates.
	Predicates []PredicateRef

	// Tags is the set of proof markers attached to the type.
	Tags map[string]struct{}
}

func (rt *RefinedType) Repr() string {
	sb := strings.Builder{}
	sb.WriteString("refined[")
	sb.WriteString(rt.Base.Repr())

	for _, pred := range rt.Predicates {
		sb.WriteString(", " + pred.Name)
	}

	for _, tag := range rt.sortedTags() {
		sb.WriteString(", \"" + tag + "\"")
	}

	sb.WriteRune(']')
	return sb.String()
}

func (rt *RefinedType) equals(other DataType) bool {
	ort, ok := other.(*RefinedType)
	if !ok || !Equals(rt.Base, ort.Base) {
		return false
	}

	if len(rt.Predicates) != len(ort.Predicates) || len(rt.Tags) != len(ort.Tags) {
		return false
	}

	for i, pred := range rt.Predicates {
		if pred.Name != ort.Predicates[i].Name {
			return false
		}
	}

	for tag := range rt.Tags {
		if _, ok := ort.Tags[tag]; !ok {
			return false
		}
	}

	return true
}

func (rt *RefinedType) sortedTags() []string {
	tags := make([]string, 0, len(rt.Tags))
	for tag := range rt.Tags {
		tags = append(tags, tag)
	}

	sort.Strings(tags)
	return tags
}

// HasPredicate reports whether the refined type carries the given predicate.
func (rt *RefinedType) HasPredicate(name string) bool {
	for _, pred := range rt.Predicates {
		if pred.Name == name {
			return true
		}
	}

	return false
}

// Shape returns the arity of the refined value: 1 for single-shape, the
// common predicate arity otherwise.
func (rt *RefinedType) Shape() int {
	if len(rt.Predicates) == 0 {
		return 1
	}

	return len(rt.Predicates[0].Signature.Params)
}

// -----------------------------------------------------------------------------

// NewRefinedType constructs a refined type from a base, predicates, and tags.
// All predicates must share one arity; for unary predicates the runtime
// representation is the base itself, otherwise the base must be the carrier
// struct whose field count matches the arity.  Returns false on an arity
// mismatch.
func NewRefinedType(base DataType, preds []PredicateRef, tags []string) (*RefinedType, bool) {
	arity := -1
	for _, pred := range preds {
		n := len(pred.Signature.Params)
		if arity == -1 {
			arity = n
		} else if arity != n {
			return nil, false
		}
	}

	if arity > 1 {
		st, ok := InnerType(base).(*StructType)
		if !ok || len(st.Fields) != arity {
			return nil, false
		}
	}

	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[tag] = struct{}{}
	}

	return &RefinedType{Base: base, Predicates: preds, Tags: tagSet}, true
}

// RefinedConvertible reports whether a value of refined type src may be
// converted to refined type dst: the destination's tag set and predicate set
// must both be subsets of the source's.
func RefinedConvertible(src, dst *RefinedType) bool {
	if !Equals(src.Base, dst.Base) {
		return false
	}

	for tag := range dst.Tags {
		if _, ok := src.Tags[tag]; !ok {
			return false
		}
	}

	for _, pred := range dst.Predicates {
		if !src.HasPredicate(pred.Name) {
			return false
		}
	}

	return true
}

// RefinedDisplayName generates the display name of a refined type from its
// base, predicate names, and tags, sanitized to identifier characters.
func RefinedDisplayName(base DataType, preds []PredicateRef, tags []string) string {
	parts := []string{sanitizeName(base.Repr())}

	for _, pred := range preds {
		parts = append(parts, sanitizeName(pred.Name))
	}

	parts = append(parts, tags...)

	return "refined_" + strings.Join(parts, "_")
}

func sanitizeName(name string) string {
	sb := strings.Builder{}
	for _, r := range name {
		if r == '[' || r == ']' || r == ',' || r == ' ' || r == '*' {
			sb.WriteRune('_')
		} else {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

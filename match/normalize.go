package match

import (
	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

// Normalizer converts AST match patterns into normalized patterns.  Enum
// variant references inside patterns are resolved through the supplied
// callback so the normalizer stays independent of the symbol registry.
type Normalizer struct {
	// ResolveVariant resolves an expression naming an enum variant (eg.
	// `Color.Red`) against the subject type, returning the variant's tag.
	ResolveVariant func(expr ast.Expr, subject typing.DataType) (int64, bool)
}

// Normalize converts one AST pattern checked against the subject type.
// Returns an error for patterns whose shape cannot apply to the subject.
func (n *Normalizer) Normalize(pat ast.Pattern, subject typing.DataType) (*Pattern, *report.CompileError) {
	switch v := pat.(type) {
	case *ast.MatchAs:
		// Bindings and wildcards are equivalent for exhaustiveness; a nested
		// pattern narrows the binding.
		if v.Inner != nil {
			return n.Normalize(v.Inner, subject)
		}

		return Wildcard(subject), nil
	case *ast.MatchValue:
		return n.normalizeValue(v, subject)
	case *ast.MatchOr:
		alts := make([]*Pattern, len(v.Alternatives))
		for i, alt := range v.Alternatives {
			norm, err := n.Normalize(alt, subject)
			if err != nil {
				return nil, err
			}

			alts[i] = norm
		}

		return Or(alts, subject), nil
	case *ast.MatchSequence:
		return n.normalizeSequence(v, subject)
	case *ast.MatchClass:
		return n.normalizeClass(v, subject)
	}

	return nil, report.Raise(report.MatchPatternTypeMismatch, pat.Position(),
		"unsupported pattern form for subject type `%s`", subject.Repr())
}

func (n *Normalizer) normalizeValue(v *ast.MatchValue, subject typing.DataType) (*Pattern, *report.CompileError) {
	// An attribute or name may reference an enum variant of the subject.
	if n.ResolveVariant != nil {
		if tag, ok := n.ResolveVariant(v.Value, subject); ok {
			et, isEnum := typing.InnerType(subject).(*typing.EnumType)
			if !isEnum {
				return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
					"variant pattern against non-enum subject `%s`", subject.Repr())
			}

			variant, _ := et.VariantByTag(tag)
			var subs []*Pattern
			if variant.Payload != nil {
				// A bare variant reference leaves its payload unconstrained.
				subs = []*Pattern{Wildcard(variant.Payload)}
			}

			return Constructor(tag, et.Name+"."+variant.Name, subs, subject), nil
		}
	}

	constant, ok := v.Value.(*ast.Constant)
	if !ok {
		return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
			"pattern value must be a literal or enum variant")
	}

	if !literalFitsType(constant.Value, subject) {
		return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
			"literal pattern `%v` does not match subject type `%s`", constant.Value, subject.Repr())
	}

	return Literal(constant.Value, subject), nil
}

func (n *Normalizer) normalizeSequence(v *ast.MatchSequence, subject typing.DataType) (*Pattern, *report.CompileError) {
	switch st := typing.InnerType(subject).(type) {
	case *typing.ArrayType:
		if st.Dims[0] != len(v.Elems) {
			return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
				"sequence pattern of length %d against array of length %d", len(v.Elems), st.Dims[0])
		}

		elemType := elemAfterFirstDim(st)
		subs := make([]*Pattern, len(v.Elems))
		for i, elem := range v.Elems {
			norm, err := n.Normalize(elem, elemType)
			if err != nil {
				return nil, err
			}

			subs[i] = norm
		}

		return Constructor(0, "array", subs, subject), nil
	case *typing.StructType:
		if len(st.Fields) != len(v.Elems) {
			return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
				"sequence pattern of length %d against struct with %d fields", len(v.Elems), len(st.Fields))
		}

		subs := make([]*Pattern, len(v.Elems))
		for i, elem := range v.Elems {
			norm, err := n.Normalize(elem, st.Fields[i].Type)
			if err != nil {
				return nil, err
			}

			subs[i] = norm
		}

		name := st.Name
		if name == "" {
			name = "struct"
		}

		return Constructor(0, name, subs, subject), nil
	}

	return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
		"sequence pattern against non-decomposable subject `%s`", subject.Repr())
}

func (n *Normalizer) normalizeClass(v *ast.MatchClass, subject typing.DataType) (*Pattern, *report.CompileError) {
	// Enum variant with payload decomposition: `case Shape.Circle(r):`.
	if n.ResolveVariant != nil {
		if tag, ok := n.ResolveVariant(v.Cls, subject); ok {
			et, isEnum := typing.InnerType(subject).(*typing.EnumType)
			if !isEnum {
				return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
					"variant pattern against non-enum subject `%s`", subject.Repr())
			}

			variant, _ := et.VariantByTag(tag)
			var subs []*Pattern

			if variant.Payload != nil {
				if len(v.Positional) != 1 {
					return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
						"variant `%s` takes exactly one payload pattern", variant.Name)
				}

				norm, err := n.Normalize(v.Positional[0], variant.Payload)
				if err != nil {
					return nil, err
				}

				subs = []*Pattern{norm}
			} else if len(v.Positional) != 0 {
				return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
					"variant `%s` has no payload", variant.Name)
			}

			return Constructor(tag, et.Name+"."+variant.Name, subs, subject), nil
		}
	}

	st, isStruct := typing.InnerType(subject).(*typing.StructType)
	if !isStruct {
		return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
			"class pattern against non-struct subject `%s`", subject.Repr())
	}

	// Positional sub-patterns fill fields in order; keyword sub-patterns fill
	// by name; unmentioned fields are wildcards.
	subs := make([]*Pattern, len(st.Fields))
	for i, f := range st.Fields {
		subs[i] = Wildcard(f.Type)
	}

	if len(v.Positional) > len(st.Fields) {
		return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
			"class pattern has %d positional patterns for %d fields", len(v.Positional), len(st.Fields))
	}

	for i, sub := range v.Positional {
		norm, err := n.Normalize(sub, st.Fields[i].Type)
		if err != nil {
			return nil, err
		}

		subs[i] = norm
	}

	for _, kw := range v.Keyword {
		index := st.FieldIndex(kw.Name)
		if index < 0 {
			return nil, report.Raise(report.MatchPatternTypeMismatch, v.Pos,
				"struct `%s` has no field `%s`", st.Repr(), kw.Name)
		}

		norm, err := n.Normalize(kw.Pattern, st.Fields[index].Type)
		if err != nil {
			return nil, err
		}

		subs[index] = norm
	}

	name := st.Name
	if name == "" {
		name = "struct"
	}

	return Constructor(0, name, subs, subject), nil
}

// literalFitsType reports whether a literal value is type-compatible with the
// subject.
func literalFitsType(value interface{}, subject typing.DataType) bool {
	switch typing.InnerType(subject).(type) {
	case *typing.IntType:
		_, ok := value.(int64)
		return ok
	case *typing.FloatType:
		_, ok := value.(float64)
		return ok
	case typing.PrimType:
		_, ok := value.(bool)
		return ok
	}

	return false
}

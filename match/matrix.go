package match

import "pythoc/typing"

// IsExhaustive checks whether the pattern matrix covers every value of its
// subject type, using the Maranget pattern-matrix formulation.  On failure it
// returns witnesses describing uncovered values.
//
// Finite column types (bool, enums, products of finite types) are checked by
// specializing against every constructor; infinite column types (integers,
// pointers, floats) require an unguarded catch-all.  Structs and arrays over
// infinite fields still specialize through their single constructor.
func IsExhaustive(m *Matrix) (bool, []string) {
	if len(m.Rows) == 0 {
		// No rows cover nothing, unless there are no columns to cover.
		if len(m.ColTypes) == 0 {
			return true, nil
		}

		return false, []string{"_"}
	}

	if len(m.Rows[0].Patterns) == 0 {
		// No columns: exhaustive iff some row is unguarded.
		for _, row := range m.Rows {
			if !row.HasGuard {
				return true, nil
			}
		}

		return false, []string{"_"}
	}

	var colType typing.DataType
	if len(m.ColTypes) > 0 {
		colType = m.ColTypes[0]
	}

	// Finite first-column types check every constructor by specialization;
	// wildcard rows survive every specialization, so a catch-all still
	// covers.
	if colType != nil && typing.IsFinite(colType) {
		return checkFinite(m, colType)
	}

	// Structs and arrays with infinite fields still have a single
	// constructor to specialize through.
	switch typing.InnerType(colType).(type) {
	case *typing.StructType, *typing.ArrayType:
		return checkFinite(m, colType)
	}

	// Infinite scalars are only covered by an unguarded catch-all, which
	// reduces the check to the remaining columns.
	for _, row := range m.Rows {
		if row.Patterns[0].IsWildcard() && !row.HasGuard {
			return IsExhaustive(specializeDefault(m))
		}
	}

	name := "unknown"
	if colType != nil {
		name = colType.Repr()
	}

	return false, []string{"_ (catch-all required for " + name + ")"}
}

func checkFinite(m *Matrix, colType typing.DataType) (bool, []string) {
	var uncovered []string

	for _, ctor := range constructors(colType) {
		specialized := specialize(m, colType, ctor)

		// No row survives this constructor: the value itself is the
		// witness.
		if len(specialized.Rows) == 0 {
			uncovered = append(uncovered, ctor.Name)
			continue
		}

		subOk, subUncovered := IsExhaustive(specialized)
		if !subOk {
			for _, u := range subUncovered {
				if u == "_" {
					uncovered = append(uncovered, ctor.Name)
				} else {
					uncovered = append(uncovered, "("+ctor.Name+", "+u+")")
				}
			}
		}
	}

	return len(uncovered) == 0, uncovered
}

// -----------------------------------------------------------------------------

// specialize filters and expands the matrix for one constructor of the first
// column: rows whose first pattern matches the constructor (or is a wildcard)
// survive with the constructor's sub-patterns prepended.
func specialize(m *Matrix, colType typing.DataType, ctor Ctor) *Matrix {
	var newRows []Row

	isBool := false
	if pt, ok := typing.InnerType(colType).(typing.PrimType); ok && pt == typing.PrimBool {
		isBool = true
	}

	appendRow := func(prefix []*Pattern, row Row) {
		patterns := make([]*Pattern, 0, len(prefix)+len(row.Patterns)-1)
		patterns = append(patterns, prefix...)
		patterns = append(patterns, row.Patterns[1:]...)
		newRows = append(newRows, Row{Patterns: patterns, HasGuard: row.HasGuard, CaseIndex: row.CaseIndex})
	}

	matchAlt := func(alt *Pattern, row Row) bool {
		switch alt.Kind {
		case KindConstructor:
			if alt.Tag == ctor.Tag {
				appendRow(alt.Subs, row)
				return true
			}
		case KindLiteral:
			if isBool && boolLiteralTag(alt.Value) == ctor.Tag {
				appendRow(nil, row)
				return true
			}
		}

		return false
	}

	for _, row := range m.Rows {
		first := row.Patterns[0]

		switch first.Kind {
		case KindConstructor, KindLiteral:
			matchAlt(first, row)
		case KindWildcard:
			wildcards := make([]*Pattern, len(ctor.SubTypes))
			for i, sub := range ctor.SubTypes {
				wildcards[i] = Wildcard(sub)
			}

			appendRow(wildcards, row)
		case KindOr:
			for _, alt := range first.Alts {
				if matchAlt(alt, row) {
					break
				}
			}
		}
	}

	newColTypes := make([]typing.DataType, 0, len(ctor.SubTypes)+len(m.ColTypes)-1)
	newColTypes = append(newColTypes, ctor.SubTypes...)
	if len(m.ColTypes) > 0 {
		newColTypes = append(newColTypes, m.ColTypes[1:]...)
	}

	return &Matrix{Rows: newRows, ColTypes: newColTypes}
}

// specializeDefault keeps only rows with a wildcard first column, dropping
// that column.
func specializeDefault(m *Matrix) *Matrix {
	var newRows []Row
	for _, row := range m.Rows {
		if row.Patterns[0].IsWildcard() {
			newRows = append(newRows, Row{
				Patterns:  row.Patterns[1:],
				HasGuard:  row.HasGuard,
				CaseIndex: row.CaseIndex,
			})
		}
	}

	var colTypes []typing.DataType
	if len(m.ColTypes) > 0 {
		colTypes = m.ColTypes[1:]
	}

	return &Matrix{Rows: newRows, ColTypes: colTypes}
}

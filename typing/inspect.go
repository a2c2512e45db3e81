package typing

import "strconv"

// FieldPath addresses a nested position inside a composite value by field
// index at each level.  The empty path addresses the value itself.
type FieldPath []int

// Equal reports whether two field paths are identical.
func (fp FieldPath) Equal(other FieldPath) bool {
	if len(fp) != len(other) {
		return false
	}

	for i, step := range fp {
		if step != other[i] {
			return false
		}
	}

	return true
}

// Child returns fp extended by one step.
func (fp FieldPath) Child(index int) FieldPath {
	child := make(FieldPath, len(fp), len(fp)+1)
	copy(child, fp)
	return append(child, index)
}

func (fp FieldPath) Repr() string {
	if len(fp) == 0 {
		return ""
	}

	s := ""
	for _, step := range fp {
		s += "." + strconv.Itoa(step)
	}

	return s
}

// -----------------------------------------------------------------------------

// ContainsLinear reports whether the type contains a linear marker anywhere.
func ContainsLinear(dt DataType) bool {
	return len(LinearPaths(dt)) > 0
}

// LinearPaths enumerates the field paths at which the given type contains a
// linear marker.  Each concrete path is an independently tracked ownership
// slot.  Refined wrappers are transparent: the tags affect identity but not
// ownership.
func LinearPaths(dt DataType) []FieldPath {
	var paths []FieldPath
	collectLinearPaths(InnerType(dt), nil, &paths, 0)
	return paths
}

const maxLinearDepth = 64

func collectLinearPaths(dt DataType, prefix FieldPath, out *[]FieldPath, depth int) {
	if depth > maxLinearDepth {
		return
	}

	switch v := InnerType(dt).(type) {
	case *LinearType:
		path := make(FieldPath, len(prefix))
		copy(path, prefix)
		*out = append(*out, path)
	case *RefinedType:
		collectLinearPaths(v.Base, prefix, out, depth+1)
	case *StructType:
		for i, f := range v.Fields {
			collectLinearPaths(f.Type, prefix.Child(i), out, depth+1)
		}
	}
}

// -----------------------------------------------------------------------------

// IsFinite reports whether the type has a finite, enumerable set of values
// for exhaustiveness purposes: bool, enums, and products of finite types.
// Integers and pointers are treated as infinite.
func IsFinite(dt DataType) bool {
	return isFinite(InnerType(dt), make(map[string]struct{}))
}

func isFinite(dt DataType, seen map[string]struct{}) bool {
	switch v := InnerType(dt).(type) {
	case PrimType:
		return v == PrimBool
	case *EnumType:
		// Enums are finite over their variants regardless of payload
		// finiteness: payload coverage is checked recursively by the pattern
		// matrix when a variant is specialized.
		return true
	case *StructType:
		// A self-referential struct is infinite.
		if v.Name != "" {
			if _, ok := seen[v.Name]; ok {
				return false
			}
			seen[v.Name] = struct{}{}
			defer delete(seen, v.Name)
		}

		for _, f := range v.Fields {
			if !isFinite(f.Type, seen) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

package typing

import (
	"fmt"
	"strings"
)

// DataType is the parent interface for all types in PythoC.
type DataType interface {
	// Repr returns a representative string of the type for purposes of error
	// reporting.
	Repr() string

	// equals is the internal, type-specific implementation of Equals.  It
	// should NEVER be called directly except by Equals.  It does not handle
	// special cases like comparisons to opaque named references.
	equals(DataType) bool
}

// -----------------------------------------------------------------------------

// PrimType represents a primitive unit type: one that carries no parameters.
// It should be one of the enumerated primitive kinds.
type PrimType int

// Enumeration of primitive unit types.
const (
	PrimBool PrimType = iota
	PrimVoid
)

func (pt PrimType) Repr() string {
	if pt == PrimBool {
		return "bool"
	}

	return "void"
}

func (pt PrimType) equals(other DataType) bool {
	if opt, ok := other.(PrimType); ok {
		return pt == opt
	}

	return false
}

// -----------------------------------------------------------------------------

// IntType represents a fixed-width integer type.
type IntType struct {
	// Signed indicates whether the integer is signed.
	Signed bool

	// Width is the bit width: one of 8, 16, 32, 64.
	Width int
}

func (it *IntType) Repr() string {
	if it.Signed {
		return fmt.Sprintf("i%d", it.Width)
	}

	return fmt.Sprintf("u%d", it.Width)
}

func (it *IntType) equals(other DataType) bool {
	if oit, ok := other.(*IntType); ok {
		return it.Signed == oit.Signed && it.Width == oit.Width
	}

	return false
}

// FloatKind enumerates the supported floating-point formats.
type FloatKind int

const (
	F16 FloatKind = iota
	BF16
	F32
	F64
	F128
)

// FloatType represents a floating-point type.
type FloatType struct {
	Kind FloatKind
}

func (ft *FloatType) Repr() string {
	switch ft.Kind {
	case F16:
		return "f16"
	case BF16:
		return "bf16"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "f128"
	}
}

func (ft *FloatType) equals(other DataType) bool {
	if oft, ok := other.(*FloatType); ok {
		return ft.Kind == oft.Kind
	}

	return false
}

// -----------------------------------------------------------------------------

// PointerType represents an explicit pointer to a value of some element type.
type PointerType struct {
	ElemType DataType
}

func (pt *PointerType) Repr() string {
	return "ptr[" + pt.ElemType.Repr() + "]"
}

func (pt *PointerType) equals(other DataType) bool {
	if opt, ok := other.(*PointerType); ok {
		return Equals(pt.ElemType, opt.ElemType)
	}

	return false
}

// -----------------------------------------------------------------------------

// ArrayType represents a fixed-size, possibly multi-dimensional array.
type ArrayType struct {
	ElemType DataType

	// Dims is the nonempty list of dimension lengths, outermost first.  Every
	// dimension must be positive.
	Dims []int
}

func (at *ArrayType) Repr() string {
	sb := strings.Builder{}
	sb.WriteString("array[")
	sb.WriteString(at.ElemType.Repr())

	for _, dim := range at.Dims {
		sb.WriteString(fmt.Sprintf(", %d", dim))
	}

	sb.WriteRune(']')
	return sb.String()
}

func (at *ArrayType) equals(other DataType) bool {
	oat, ok := other.(*ArrayType)
	if !ok || len(at.Dims) != len(oat.Dims) {
		return false
	}

	for i, dim := range at.Dims {
		if dim != oat.Dims[i] {
			return false
		}
	}

	return Equals(at.ElemType, oat.ElemType)
}

// TotalLen returns the flattened element count of the array.
func (at *ArrayType) TotalLen() int {
	n := 1
	for _, dim := range at.Dims {
		n *= dim
	}

	return n
}

// -----------------------------------------------------------------------------

// Field is one field of a struct or union.  Anonymous fields have an empty
// name and are addressed positionally.
type Field struct {
	Name string
	Type DataType
}

// StructType represents a structure type with ordered fields.  Fields may be
// named, anonymous, or a mix of both.
type StructType struct {
	// Name is the declared name of the struct; empty for anonymous structs
	// such as multi-shape refined carriers.
	Name string

	Fields []Field
}

func (st *StructType) Repr() string {
	if st.Name != "" {
		return st.Name
	}

	return "struct" + reprFields(st.Fields)
}

func (st *StructType) equals(other DataType) bool {
	ost, ok := other.(*StructType)
	if !ok {
		return false
	}

	if st.Name != "" || ost.Name != "" {
		return st.Name == ost.Name
	}

	return fieldsEqual(st.Fields, ost.Fields)
}

// FieldIndex returns the index of the named field or -1.
func (st *StructType) FieldIndex(name string) int {
	for i, f := range st.Fields {
		if f.Name != "" && f.Name == name {
			return i
		}
	}

	return -1
}

// UnionType represents an untagged union with ordered fields.  Reading a field
// other than the one last written is implementation-defined, matching the
// target backend.
type UnionType struct {
	Name   string
	Fields []Field
}

func (ut *UnionType) Repr() string {
	if ut.Name != "" {
		return ut.Name
	}

	return "union" + reprFields(ut.Fields)
}

func (ut *UnionType) equals(other DataType) bool {
	out, ok := other.(*UnionType)
	if !ok {
		return false
	}

	if ut.Name != "" || out.Name != "" {
		return ut.Name == out.Name
	}

	return fieldsEqual(ut.Fields, out.Fields)
}

func reprFields(fields []Field) string {
	sb := strings.Builder{}
	sb.WriteRune('[')

	for i, f := range fields {
		if i > 0 {
			sb.WriteString(", ")
		}

		if f.Name != "" {
			sb.WriteString(f.Name + ": ")
		}

		sb.WriteString(f.Type.Repr())
	}

	sb.WriteRune(']')
	return sb.String()
}

func fieldsEqual(lhs, rhs []Field) bool {
	if len(lhs) != len(rhs) {
		return false
	}

	for i, f := range lhs {
		if f.Name != rhs[i].Name || !Equals(f.Type, rhs[i].Type) {
			return false
		}
	}

	return true
}

// -----------------------------------------------------------------------------

// EnumVariant is one variant of a tagged enum.
type EnumVariant struct {
	Name string

	// Tag is the discriminant value of the variant.
	Tag int64

	// Payload is the payload type of the variant; nil for payload-less
	// variants.
	Payload DataType
}

// EnumType represents a tagged sum type.  Variant names and tag values are
// unique within one enum.
type EnumType struct {
	Name string

	// TagType is the integer type of the discriminant.
	TagType *IntType

	Variants []EnumVariant
}

func (et *EnumType) Repr() string {
	return et.Name
}

func (et *EnumType) equals(other DataType) bool {
	if oet, ok := other.(*EnumType); ok {
		return et.Name == oet.Name
	}

	return false
}

// Variant returns the variant with the given name, if any.
func (et *EnumType) Variant(name string) (EnumVariant, bool) {
	for _, v := range et.Variants {
		if v.Name == name {
			return v, true
		}
	}

	return EnumVariant{}, false
}

// VariantByTag returns the variant with the given tag value, if any.
func (et *EnumType) VariantByTag(tag int64) (EnumVariant, bool) {
	for _, v := range et.Variants {
		if v.Tag == tag {
			return v, true
		}
	}

	return EnumVariant{}, false
}

// Validate checks the enum's internal invariants: unique variant names and
// unique tag values.
func (et *EnumType) Validate() error {
	names := make(map[string]struct{})
	tags := make(map[int64]struct{})

	for _, v := range et.Variants {
		if _, ok := names[v.Name]; ok {
			return fmt.Errorf("enum `%s` repeats variant name `%s`", et.Name, v.Name)
		}
		names[v.Name] = struct{}{}

		if _, ok := tags[v.Tag]; ok {
			return fmt.Errorf("enum `%s` repeats tag value %d", et.Name, v.Tag)
		}
		tags[v.Tag] = struct{}{}
	}

	return nil
}

// -----------------------------------------------------------------------------

// FuncType represents a function type.
type FuncType struct {
	Params     []DataType
	ReturnType DataType

	// Variadic indicates a C-style variadic tail, used for extern functions.
	Variadic bool

	// IntrinsicName is a field that doesn't actually determine anything
	// related to the type but makes generation of target code easier: the
	// generator can quickly determine the intrinsic to generate if the
	// function is intrinsic.  If this field is empty, the function is not
	// intrinsic.
	IntrinsicName string
}

func (ft *FuncType) Repr() string {
	sb := strings.Builder{}
	sb.WriteRune('(')

	for i, param := range ft.Params {
		sb.WriteString(param.Repr())

		if i < len(ft.Params)-1 {
			sb.WriteString(", ")
		}
	}

	if ft.Variadic {
		sb.WriteString(", ...")
	}

	sb.WriteString(") -> ")
	sb.WriteString(ft.ReturnType.Repr())

	return sb.String()
}

func (ft *FuncType) equals(other DataType) bool {
	oft, ok := other.(*FuncType)
	if !ok || len(ft.Params) != len(oft.Params) || ft.Variadic != oft.Variadic {
		return false
	}

	for i, param := range ft.Params {
		if !Equals(param, oft.Params[i]) {
			return false
		}
	}

	return Equals(ft.ReturnType, oft.ReturnType)
}

// -----------------------------------------------------------------------------

// LinearType is the linear ownership marker.  It is zero-width: it erases
// entirely during code generation and exists only for the ownership checker.
type LinearType struct{}

func (lt *LinearType) Repr() string {
	return "linear"
}

func (lt *LinearType) equals(other DataType) bool {
	_, ok := other.(*LinearType)
	return ok
}

// -----------------------------------------------------------------------------

// Equals returns if two types are exactly identical.  This operation is
// commutative.
func Equals(lhs, rhs DataType) bool {
	return InnerType(lhs).equals(InnerType(rhs))
}

// InnerType extracts the inner type value of a data type.  This value can then
// be used for things like cast checking.  For example, it resolves an opaque
// named reference into the arena entry it refers to.
func InnerType(dt DataType) DataType {
	if ot, ok := dt.(*OpaqueType); ok {
		if resolved := ot.Resolve(); resolved != nil {
			return resolved
		}
	}

	return dt
}

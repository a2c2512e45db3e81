package typing

import "testing"

func i32() *IntType  { return &IntType{Signed: true, Width: 32} }
func u8() *IntType   { return &IntType{Signed: false, Width: 8} }
func lin() DataType  { return &LinearType{} }
func f64T() DataType { return &FloatType{Kind: F64} }

func TestEquals(t *testing.T) {
	tests := []struct {
		name string
		lhs  DataType
		rhs  DataType
		want bool
	}{
		{"same int", i32(), i32(), true},
		{"different width", i32(), &IntType{Signed: true, Width: 64}, false},
		{"different sign", i32(), &IntType{Signed: false, Width: 32}, false},
		{"bool vs void", PrimBool, PrimVoid, false},
		{"ptr same elem", &PointerType{ElemType: i32()}, &PointerType{ElemType: i32()}, true},
		{"ptr diff elem", &PointerType{ElemType: i32()}, &PointerType{ElemType: u8()}, false},
		{"array same", &ArrayType{ElemType: i32(), Dims: []int{5}}, &ArrayType{ElemType: i32(), Dims: []int{5}}, true},
		{"array diff dim", &ArrayType{ElemType: i32(), Dims: []int{5}}, &ArrayType{ElemType: i32(), Dims: []int{6}}, false},
		{"linear", lin(), lin(), true},
		{
			"anonymous structs by structure",
			&StructType{Fields: []Field{{Name: "x", Type: i32()}}},
			&StructType{Fields: []Field{{Name: "x", Type: i32()}}},
			true,
		},
		{
			"named structs by name",
			&StructType{Name: "A", Fields: []Field{{Type: i32()}}},
			&StructType{Name: "B", Fields: []Field{{Type: i32()}}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equals(tt.lhs, tt.rhs); got != tt.want {
				t.Errorf("Equals(%s, %s) = %v, want %v", tt.lhs.Repr(), tt.rhs.Repr(), got, tt.want)
			}
		})
	}
}

func TestEnumValidate(t *testing.T) {
	et := &EnumType{
		Name:    "Color",
		TagType: i32(),
		Variants: []EnumVariant{
			{Name: "Red", Tag: 0},
			{Name: "Green", Tag: 1},
		},
	}

	if err := et.Validate(); err != nil {
		t.Errorf("valid enum rejected: %v", err)
	}

	dupName := &EnumType{
		Name:    "Bad",
		TagType: i32(),
		Variants: []EnumVariant{
			{Name: "A", Tag: 0},
			{Name: "A", Tag: 1},
		},
	}
	if err := dupName.Validate(); err == nil {
		t.Error("duplicate variant name accepted")
	}

	dupTag := &EnumType{
		Name:    "Bad",
		TagType: i32(),
		Variants: []EnumVariant{
			{Name: "A", Tag: 0},
			{Name: "B", Tag: 0},
		},
	}
	if err := dupTag.Validate(); err == nil {
		t.Error("duplicate tag value accepted")
	}
}

func TestLinearPaths(t *testing.T) {
	// A struct with linear fields at positions 0 and 2.
	st := &StructType{Fields: []Field{
		{Name: "a", Type: lin()},
		{Name: "b", Type: i32()},
		{Name: "c", Type: &StructType{Fields: []Field{{Type: lin()}}}},
	}}

	paths := LinearPaths(st)
	if len(paths) != 2 {
		t.Fatalf("expected 2 linear paths, got %d", len(paths))
	}

	if paths[0].Repr() != ".0" || paths[1].Repr() != ".2.0" {
		t.Errorf("unexpected paths %q, %q", paths[0].Repr(), paths[1].Repr())
	}

	if ContainsLinear(i32()) {
		t.Error("i32 reported as linear")
	}

	// Refined wrappers are transparent to ownership tracking.
	rt := &RefinedType{Base: lin(), Tags: map[string]struct{}{"Owned": {}}}
	if !ContainsLinear(rt) {
		t.Error("refined linear not tracked")
	}
}

func TestIsFinite(t *testing.T) {
	boolEnum := &EnumType{Name: "Flag", TagType: i32(), Variants: []EnumVariant{
		{Name: "On", Tag: 0},
		{Name: "Off", Tag: 1},
	}}

	tests := []struct {
		name string
		typ  DataType
		want bool
	}{
		{"bool", PrimBool, true},
		{"i32", i32(), false},
		{"f64", f64T(), false},
		{"pointer", &PointerType{ElemType: i32()}, false},
		{"payloadless enum", boolEnum, true},
		{"product of bools", &StructType{Fields: []Field{{Type: PrimBool}, {Type: PrimBool}}}, true},
		{"product with int", &StructType{Fields: []Field{{Type: PrimBool}, {Type: i32()}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinite(tt.typ); got != tt.want {
				t.Errorf("IsFinite(%s) = %v, want %v", tt.typ.Repr(), got, tt.want)
			}
		})
	}
}

func TestRefinedConversion(t *testing.T) {
	isPos := PredicateRef{Name: "is_positive", Signature: &FuncType{Params: []DataType{i32()}, ReturnType: PrimBool}}
	isEven := PredicateRef{Name: "is_even", Signature: &FuncType{Params: []DataType{i32()}, ReturnType: PrimBool}}

	both, ok := NewRefinedType(i32(), []PredicateRef{isPos, isEven}, []string{"Checked"})
	if !ok {
		t.Fatal("NewRefinedType failed")
	}

	posOnly, _ := NewRefinedType(i32(), []PredicateRef{isPos}, nil)
	tagged, _ := NewRefinedType(i32(), []PredicateRef{isPos}, []string{"Checked", "Extra"})

	// Dropping predicates and tags is allowed.
	if !RefinedConvertible(both, posOnly) {
		t.Error("narrowing to a predicate subset rejected")
	}

	// Adding tags is not.
	if RefinedConvertible(both, tagged) {
		t.Error("conversion gaining tags accepted")
	}

	// Predicate sets compare by reference identity, not satisfiability.
	evenOnly, _ := NewRefinedType(i32(), []PredicateRef{isEven}, nil)
	if RefinedConvertible(posOnly, evenOnly) {
		t.Error("conversion to disjoint predicate set accepted")
	}
}

func TestRefinedArity(t *testing.T) {
	unary := PredicateRef{Name: "p1", Signature: &FuncType{Params: []DataType{i32()}, ReturnType: PrimBool}}
	binary := PredicateRef{Name: "p2", Signature: &FuncType{Params: []DataType{i32(), i32()}, ReturnType: PrimBool}}

	if _, ok := NewRefinedType(i32(), []PredicateRef{unary, binary}, nil); ok {
		t.Error("mixed-arity predicate set accepted")
	}

	carrier := &StructType{Fields: []Field{{Type: i32()}, {Type: i32()}}}
	if _, ok := NewRefinedType(carrier, []PredicateRef{binary}, nil); !ok {
		t.Error("binary predicate over matching carrier rejected")
	}
}

func TestCheckCast(t *testing.T) {
	posOnly, _ := NewRefinedType(i32(), []PredicateRef{{
		Name:      "is_positive",
		Signature: &FuncType{Params: []DataType{i32()}, ReturnType: PrimBool},
	}}, nil)

	tests := []struct {
		name string
		src  DataType
		dst  DataType
		want CastKind
	}{
		{"identity", i32(), i32(), CastIdentity},
		{"trunc", &IntType{Signed: true, Width: 64}, i32(), CastIntTrunc},
		{"extend", u8(), i32(), CastIntExt},
		{"int to float", i32(), f64T(), CastIntToFloat},
		{"float to int", f64T(), i32(), CastFloatToInt},
		{"ptr bit", &PointerType{ElemType: i32()}, &PointerType{ElemType: u8()}, CastPtrBit},
		{"forget refinement", posOnly, i32(), CastForgetRefinement},
		{"base to refined forbidden", i32(), posOnly, CastIllegal},
		{"int to struct illegal", i32(), &StructType{Fields: []Field{{Type: i32()}}}, CastIllegal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckCast(tt.src, tt.dst); got != tt.want {
				t.Errorf("CheckCast(%s, %s) = %d, want %d", tt.src.Repr(), tt.dst.Repr(), got, tt.want)
			}
		})
	}
}

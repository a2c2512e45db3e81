package match

import (
	"strings"
	"testing"

	"pythoc/typing"
)

func i32() typing.DataType {
	return &typing.IntType{Signed: true, Width: 32}
}

func shapeEnum() *typing.EnumType {
	return &typing.EnumType{
		Name:    "Shape",
		TagType: &typing.IntType{Signed: true, Width: 32},
		Variants: []typing.EnumVariant{
			{Name: "Point", Tag: 0},
			{Name: "Circle", Tag: 1, Payload: i32()},
			{Name: "Square", Tag: 2, Payload: i32()},
		},
	}
}

func row(pats ...*Pattern) Row {
	return Row{Patterns: pats}
}

func matrixOver(typ typing.DataType, rows ...Row) *Matrix {
	return &Matrix{Rows: rows, ColTypes: []typing.DataType{typ}}
}

func TestBoolExhaustiveness(t *testing.T) {
	// Both literals cover bool.
	full := matrixOver(typing.PrimBool,
		row(Literal(true, typing.PrimBool)),
		row(Literal(false, typing.PrimBool)),
	)
	if ok, _ := IsExhaustive(full); !ok {
		t.Error("True/False over bool reported non-exhaustive")
	}

	// Removing either arm leaves a witness.
	partial := matrixOver(typing.PrimBool, row(Literal(true, typing.PrimBool)))
	ok, witnesses := IsExhaustive(partial)
	if ok {
		t.Fatal("single-arm bool match reported exhaustive")
	}
	if len(witnesses) != 1 || witnesses[0] != "False" {
		t.Errorf("expected witness False, got %v", witnesses)
	}
}

func TestWildcardCoversAnything(t *testing.T) {
	m := matrixOver(i32(), row(Wildcard(i32())))
	if ok, _ := IsExhaustive(m); !ok {
		t.Error("wildcard over i32 reported non-exhaustive")
	}
}

func TestInfiniteTypeNeedsCatchAll(t *testing.T) {
	m := matrixOver(i32(),
		row(Literal(int64(0), i32())),
		row(Literal(int64(1), i32())),
	)

	ok, witnesses := IsExhaustive(m)
	if ok {
		t.Fatal("finite literal set over i32 reported exhaustive")
	}
	if len(witnesses) == 0 || !strings.Contains(witnesses[0], "catch-all") {
		t.Errorf("expected a catch-all witness, got %v", witnesses)
	}
}

func TestEnumExhaustiveness(t *testing.T) {
	et := shapeEnum()

	full := matrixOver(et,
		row(Constructor(0, "Shape.Point", nil, et)),
		row(Constructor(1, "Shape.Circle", []*Pattern{Wildcard(i32())}, et)),
		row(Constructor(2, "Shape.Square", []*Pattern{Wildcard(i32())}, et)),
	)
	if ok, witnesses := IsExhaustive(full); !ok {
		t.Errorf("all-variant match reported non-exhaustive: %v", witnesses)
	}

	missing := matrixOver(et,
		row(Constructor(0, "Shape.Point", nil, et)),
		row(Constructor(1, "Shape.Circle", []*Pattern{Wildcard(i32())}, et)),
	)
	ok, witnesses := IsExhaustive(missing)
	if ok {
		t.Fatal("missing variant reported exhaustive")
	}
	if len(witnesses) != 1 || witnesses[0] != "Shape.Square" {
		t.Errorf("expected witness Shape.Square, got %v", witnesses)
	}
}

func TestEnumPayloadSubPatterns(t *testing.T) {
	et := shapeEnum()

	// Circle's payload covered only for 0 -- the variant itself is
	// mentioned, so the witness names the uncovered payload.
	m := matrixOver(et,
		row(Constructor(0, "Shape.Point", nil, et)),
		row(Constructor(1, "Shape.Circle", []*Pattern{Literal(int64(0), i32())}, et)),
		row(Constructor(2, "Shape.Square", []*Pattern{Wildcard(i32())}, et)),
	)

	ok, witnesses := IsExhaustive(m)
	if ok {
		t.Fatal("partially covered payload reported exhaustive")
	}
	if len(witnesses) == 0 || !strings.Contains(witnesses[0], "Shape.Circle") {
		t.Errorf("witness should name the variant, got %v", witnesses)
	}
}

func TestFirstColumnSummaries(t *testing.T) {
	et := shapeEnum()

	m := matrixOver(et,
		row(Constructor(0, "Shape.Point", nil, et)),
		row(Or([]*Pattern{
			Constructor(1, "Shape.Circle", []*Pattern{Wildcard(i32())}, et),
			Constructor(2, "Shape.Square", []*Pattern{Wildcard(i32())}, et),
		}, et)),
		row(Literal(true, typing.PrimBool)),
	)

	tags := m.FirstColumnTags()
	for _, want := range []int64{0, 1, 2} {
		if _, ok := tags[want]; !ok {
			t.Errorf("tag %d missing from first-column summary", want)
		}
	}

	lits := m.FirstColumnLiterals()
	if len(lits) != 1 || lits[0] != true {
		t.Errorf("unexpected first-column literals %v", lits)
	}
}

func TestGuardsAreConservative(t *testing.T) {
	// A guarded catch-all may fail at runtime; it cannot prove
	// exhaustiveness.
	m := matrixOver(typing.PrimBool,
		Row{Patterns: []*Pattern{Wildcard(typing.PrimBool)}, HasGuard: true},
	)

	if ok, _ := IsExhaustive(m); ok {
		t.Error("guarded wildcard treated as exhaustive")
	}
}

func TestOrPatternCoverage(t *testing.T) {
	et := shapeEnum()

	m := matrixOver(et,
		row(Or([]*Pattern{
			Constructor(0, "Shape.Point", nil, et),
			Constructor(1, "Shape.Circle", []*Pattern{Wildcard(i32())}, et),
			Constructor(2, "Shape.Square", []*Pattern{Wildcard(i32())}, et),
		}, et)),
	)

	if ok, witnesses := IsExhaustive(m); !ok {
		t.Errorf("or-pattern over all variants reported non-exhaustive: %v", witnesses)
	}
}

func TestProductOfBools(t *testing.T) {
	pair := &typing.StructType{Fields: []typing.Field{
		{Type: typing.PrimBool},
		{Type: typing.PrimBool},
	}}

	// The struct constructor with wildcard fields covers everything.
	full := matrixOver(pair,
		row(Constructor(0, "pair", []*Pattern{Wildcard(typing.PrimBool), Wildcard(typing.PrimBool)}, pair)),
	)
	if ok, _ := IsExhaustive(full); !ok {
		t.Error("wildcard product reported non-exhaustive")
	}

	// Cross-field correlation: covering (T,_) and (_,F) misses (F,T).
	partial := matrixOver(pair,
		row(Constructor(0, "pair", []*Pattern{Literal(true, typing.PrimBool), Wildcard(typing.PrimBool)}, pair)),
		row(Constructor(0, "pair", []*Pattern{Wildcard(typing.PrimBool), Literal(false, typing.PrimBool)}, pair)),
	)
	if ok, _ := IsExhaustive(partial); ok {
		t.Error("correlated product gap reported exhaustive")
	}
}

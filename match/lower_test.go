package match

import (
	"testing"

	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

func litPattern(v interface{}) ast.Pattern {
	return &ast.MatchValue{Value: &ast.Constant{Value: v}}
}

func wildPattern(bind string) ast.Pattern {
	return &ast.MatchAs{Name: bind}
}

func matchStmt(cases ...ast.MatchCase) *ast.Match {
	return &ast.Match{Subject: &ast.Name{Id: "x"}, Cases: cases}
}

func TestSwitchStrategySelected(t *testing.T) {
	// Unguarded integer literals plus a catch-all lower to a switch table.
	node := matchStmt(
		ast.MatchCase{Pattern: litPattern(int64(0))},
		ast.MatchCase{Pattern: &ast.MatchOr{Alternatives: []ast.Pattern{
			litPattern(int64(1)), litPattern(int64(2)),
		}}},
		ast.MatchCase{Pattern: wildPattern("")},
	)

	lowered, err := Check(node, i32(), &Normalizer{})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if lowered.Strategy != StrategySwitch {
		t.Fatal("integer literal arms did not select the switch strategy")
	}

	if lowered.DefaultCase != 2 {
		t.Errorf("DefaultCase = %d, want 2", lowered.DefaultCase)
	}

	if len(lowered.SwitchArms) != 2 {
		t.Fatalf("expected 2 switch arms, got %d", len(lowered.SwitchArms))
	}

	if len(lowered.SwitchArms[1].Values) != 2 {
		t.Errorf("or-pattern arm covers %d values, want 2", len(lowered.SwitchArms[1].Values))
	}
}

func TestGuardForcesIfChain(t *testing.T) {
	node := matchStmt(
		ast.MatchCase{Pattern: litPattern(int64(0)), Guard: &ast.Name{Id: "cond"}},
		ast.MatchCase{Pattern: wildPattern("v")},
	)

	lowered, err := Check(node, i32(), &Normalizer{})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if lowered.Strategy != StrategyIfChain {
		t.Error("guarded arm selected the switch strategy")
	}
}

func TestBoolSubjectUsesIfChain(t *testing.T) {
	node := matchStmt(
		ast.MatchCase{Pattern: litPattern(true)},
		ast.MatchCase{Pattern: litPattern(false)},
	)

	lowered, err := Check(node, typing.PrimBool, &Normalizer{})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if lowered.Strategy != StrategyIfChain {
		t.Error("non-integral subject selected the switch strategy")
	}
}

func TestCheckReportsNonExhaustive(t *testing.T) {
	node := matchStmt(ast.MatchCase{Pattern: litPattern(true)})

	_, err := Check(node, typing.PrimBool, &Normalizer{})
	if err == nil || err.Kind != report.MatchNonExhaustive {
		t.Fatal("missing False arm not reported")
	}

	if len(err.Witness) == 0 {
		t.Error("non-exhaustive error carries no witness")
	}
}

func TestNormalizeVariantPattern(t *testing.T) {
	et := shapeEnum()

	n := &Normalizer{ResolveVariant: func(expr ast.Expr, subject typing.DataType) (int64, bool) {
		attr, ok := expr.(*ast.Attribute)
		if !ok {
			return 0, false
		}

		variant, found := et.Variant(attr.Attr)
		if !found {
			return 0, false
		}

		return variant.Tag, true
	}}

	pat := &ast.MatchClass{
		Cls:        &ast.Attribute{Value: &ast.Name{Id: "Shape"}, Attr: "Circle"},
		Positional: []ast.Pattern{wildPattern("r")},
	}

	norm, err := n.Normalize(pat, et)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if norm.Kind != KindConstructor || norm.Tag != 1 {
		t.Errorf("variant pattern normalized to kind=%d tag=%d", norm.Kind, norm.Tag)
	}

	if len(norm.Subs) != 1 || !norm.Subs[0].IsWildcard() {
		t.Error("payload sub-pattern not normalized to a wildcard binding")
	}
}

func TestNormalizeRejectsLengthMismatch(t *testing.T) {
	arr := &typing.ArrayType{ElemType: i32(), Dims: []int{3}}

	pat := &ast.MatchSequence{Elems: []ast.Pattern{wildPattern(""), wildPattern("")}}

	n := &Normalizer{}
	if _, err := n.Normalize(pat, arr); err == nil || err.Kind != report.MatchPatternTypeMismatch {
		t.Error("length-mismatched sequence pattern accepted")
	}
}

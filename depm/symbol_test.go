package depm

import (
	"testing"

	"pythoc/typing"
)

func TestMangleName(t *testing.T) {
	tests := []struct {
		name          string
		compileSuffix string
		effectSuffix  string
		want          string
	}{
		{"f", "", "", "f"},
		{"f", "v2", "", "f_v2"},
		{"f", "v2", "mock", "f_v2_mock"},
		// An effect variant of a plain function keeps the positional
		// separator for the empty compile suffix.
		{"f", "", "mock", "f__mock"},
	}

	for _, tt := range tests {
		if got := MangleName(tt.name, tt.compileSuffix, tt.effectSuffix); got != tt.want {
			t.Errorf("MangleName(%q, %q, %q) = %q, want %q",
				tt.name, tt.compileSuffix, tt.effectSuffix, got, tt.want)
		}
	}
}

func TestExternSymbolsUnmangled(t *testing.T) {
	sym := &Symbol{Name: "puts", CompileSuffix: "v2", EffectSuffix: "mock", Extern: true, ExternLib: "c"}

	if got := sym.MangledName(); got != "puts" {
		t.Errorf("extern symbol mangled to %q", got)
	}
}

func TestSymbolTableScoping(t *testing.T) {
	st := NewSymbolTable()

	global := &Symbol{Name: "x", DefKind: DKVariable, Type: &typing.IntType{Signed: true, Width: 32}}
	if err := st.Define(global); err != nil {
		t.Fatal(err)
	}

	// Redefinition in the same scope fails.
	if err := st.Define(&Symbol{Name: "x"}); err == nil {
		t.Error("same-scope redefinition accepted")
	}

	// An inner definition shadows; popping restores the outer one.
	st.PushScope()
	inner := &Symbol{Name: "x", DefKind: DKVariable, Type: &typing.LinearType{}}
	if err := st.Define(inner); err != nil {
		t.Fatalf("shadowing rejected: %v", err)
	}

	if sym, _ := st.Lookup("x"); sym != inner {
		t.Error("innermost scope did not win")
	}

	st.PopScope()

	if sym, _ := st.Lookup("x"); sym != global {
		t.Error("outer symbol lost after pop")
	}
}

func TestVariantCache(t *testing.T) {
	vc := NewVariantCache()

	key := VariantKey{Name: "f", EffectSuffix: "mock"}
	sym := &Symbol{Name: "f", EffectSuffix: "mock"}

	if !vc.Add(key, sym) {
		t.Fatal("first insert rejected")
	}

	// Re-adding the same symbol is a no-op, not a collision.
	if !vc.Add(key, sym) {
		t.Error("idempotent re-add rejected")
	}

	// A different symbol under the same triple is a collision.
	if vc.Add(key, &Symbol{Name: "f"}) {
		t.Error("colliding variant accepted")
	}

	if got, ok := vc.Get(key); !ok || got != sym {
		t.Error("cached variant lost")
	}

	if vc.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", vc.Len())
	}
}

func TestUniverseIntrinsics(t *testing.T) {
	u := NewUniverse()

	for _, name := range []string{
		IntrinsicSizeof, IntrinsicPtr, IntrinsicNullptr, IntrinsicLinear,
		IntrinsicConsume, IntrinsicMove, IntrinsicAssume, IntrinsicRefine,
		IntrinsicDefer, IntrinsicLabel, IntrinsicGoto, IntrinsicGotoBegin,
		IntrinsicGotoEnd, IntrinsicCImport,
	} {
		sym, ok := u.GetSymbol(name)
		if !ok {
			t.Errorf("intrinsic `%s` missing from universe", name)
			continue
		}

		if sym.DefKind != DKBuiltin {
			t.Errorf("intrinsic `%s` has kind %d", name, sym.DefKind)
		}
	}

	if _, ok := u.GetSymbol("no_such_intrinsic"); ok {
		t.Error("unknown name resolved in universe")
	}
}

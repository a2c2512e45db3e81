package cmd

import (
	"strings"
	"testing"

	"pythoc/ast"
	"pythoc/effects"
	"pythoc/report"
)

// --- fixtures ----------------------------------------------------------------

func name(id string) *ast.Name {
	return &ast.Name{Id: id}
}

func compiledFn(fnName string, body ...ast.Stmt) *ast.FuncDef {
	return &ast.FuncDef{
		DefBase: ast.NewDefBase(map[string]string{"compile": ""}),
		Name:    fnName,
		Body:    body,
	}
}

func readEffect(target, effect string) ast.Stmt {
	return &ast.AnnAssign{
		Target: name(target),
		Annot:  name("i32"),
		Value:  &ast.Attribute{Value: name("effect"), Attr: effect},
	}
}

func callFn(fn string) ast.Stmt {
	return &ast.ExprStmt{X: &ast.Call{Func: name(fn)}}
}

func moduleFuncNames(c *Compiler) map[string]struct{} {
	names := make(map[string]struct{})
	for _, fn := range c.gen.Module().Funcs {
		names[fn.Name()] = struct{}{}
	}

	return names
}

// -----------------------------------------------------------------------------

func TestBaseCompilation(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)
	c.Effects().SetDefault("rng", &effects.Impl{Value: int64(7)})

	c.AddUnit(&Unit{Def: compiledFn("g", readEffect("x", "rng"))})
	c.AddUnit(&Unit{Def: compiledFn("f", callFn("g"))})

	if !c.Compile() {
		t.Fatalf("base compilation failed: %v", rep.Errors())
	}

	names := moduleFuncNames(c)
	for _, want := range []string{"f", "g"} {
		if _, ok := names[want]; !ok {
			t.Errorf("base symbol %q not emitted; have %v", want, names)
		}
	}
}

func TestEffectSuffixPropagation(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)
	c.Effects().SetDefault("rng", &effects.Impl{Value: int64(7)})

	c.AddUnit(&Unit{Def: compiledFn("g", readEffect("x", "rng"))})
	c.AddUnit(&Unit{Def: compiledFn("f", callFn("g"))})

	// Compile the session inside a scoped override: f reads nothing
	// directly, but transitively depends on rng through g, so both get
	// mock variants.
	if err := c.Effects().PushOverride(map[string]*effects.Impl{
		"rng": {Value: int64(99)},
	}, "mock", nil); err != nil {
		t.Fatal(err)
	}
	defer c.Effects().PopOverride()

	if !c.Compile() {
		t.Fatalf("override compilation failed: %v", rep.Errors())
	}

	names := moduleFuncNames(c)
	for _, want := range []string{"f__mock", "g__mock"} {
		if _, ok := names[want]; !ok {
			t.Errorf("variant %q not emitted; have %v", want, names)
		}
	}
}

func TestVariantCompiledOnce(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)
	c.Effects().SetDefault("rng", &effects.Impl{Value: int64(7)})

	// Both f1 and f2 call g; g's mock variant must compile exactly once
	// even though it is scheduled three times (twice as a callee, once as
	// a unit).
	c.AddUnit(&Unit{Def: compiledFn("g", readEffect("x", "rng"))})
	c.AddUnit(&Unit{Def: compiledFn("f1", callFn("g"))})
	c.AddUnit(&Unit{Def: compiledFn("f2", callFn("g"))})

	c.Effects().PushOverride(map[string]*effects.Impl{"rng": {Value: int64(1)}}, "mock", nil)
	defer c.Effects().PopOverride()

	if !c.Compile() {
		t.Fatalf("compilation failed: %v", rep.Errors())
	}

	count := 0
	for _, fn := range c.gen.Module().Funcs {
		if fn.Name() == "g__mock" {
			count++
		}
	}

	if count != 1 {
		t.Errorf("g__mock emitted %d times, want 1", count)
	}
}

func TestUntouchedCalleeKeepsBaseVariant(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)
	c.Effects().SetDefault("rng", &effects.Impl{Value: int64(7)})

	// h reads no effects at all: under an rng override it must stay a
	// single base symbol.
	c.AddUnit(&Unit{Def: compiledFn("h", &ast.Pass{})})
	c.AddUnit(&Unit{Def: compiledFn("f", callFn("h"))})

	c.Effects().PushOverride(map[string]*effects.Impl{"rng": {Value: int64(1)}}, "mock", nil)
	defer c.Effects().PopOverride()

	if !c.Compile() {
		t.Fatalf("compilation failed: %v", rep.Errors())
	}

	names := moduleFuncNames(c)
	if _, ok := names["h"]; !ok {
		t.Error("base h not emitted")
	}

	for n := range names {
		if strings.HasPrefix(n, "h_") {
			t.Errorf("h needlessly got a variant %q", n)
		}
	}
}

func TestCompileCycleDetected(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)
	c.Effects().SetDefault("rng", &effects.Impl{Value: int64(7)})

	// A recursive effect-reading function forces its own variant while
	// that variant is still compiling.
	c.AddUnit(&Unit{Def: compiledFn("f",
		readEffect("x", "rng"),
		callFn("f"),
	)})

	c.Effects().PushOverride(map[string]*effects.Impl{"rng": {Value: int64(1)}}, "mock", nil)
	defer c.Effects().PopOverride()

	c.Compile()

	found := false
	for _, err := range rep.Errors() {
		if err.Kind == report.CompileCycle {
			found = true
		}
	}

	if !found {
		t.Error("compile cycle not reported")
	}
}

func TestDuplicateDefinitionRejected(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)

	c.AddUnit(&Unit{Def: compiledFn("f", &ast.Pass{})})
	c.AddUnit(&Unit{Def: compiledFn("f", &ast.Pass{})})

	if c.Compile() {
		t.Fatal("duplicate definition compiled")
	}

	found := false
	for _, err := range rep.Errors() {
		if err.Kind == report.VariantCollision {
			found = true
		}
	}

	if !found {
		t.Error("duplicate definition not reported as a collision")
	}
}

func TestImportInterception(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)
	c.Effects().SetDefault("rng", &effects.Impl{Value: int64(7)})

	c.AddUnit(&Unit{Def: compiledFn("g", readEffect("x", "rng"))})
	if !c.Compile() {
		t.Fatalf("compilation failed: %v", rep.Errors())
	}

	// Outside any override the base import passes through.
	base, err := c.InterceptImport("lib", "g")
	if err != nil || base.MangledName() != "g" {
		t.Fatalf("base import interception failed: %v", err)
	}

	// Inside an override the import rewraps into a compiled variant; the
	// cache makes repeated interception cheap and stable.
	c.Effects().PushOverride(map[string]*effects.Impl{"rng": {Value: int64(1)}}, "mock", nil)
	defer c.Effects().PopOverride()

	first, err := c.InterceptImport("lib", "g")
	if err != nil {
		t.Fatalf("import interception failed: %v", err)
	}

	if first.MangledName() != "g__mock" {
		t.Errorf("intercepted import mangles to %q, want g__mock", first.MangledName())
	}

	second, _ := c.InterceptImport("lib", "g")
	if first != second {
		t.Error("repeated interception produced a distinct variant")
	}
}

func TestExternDeclaredUnmangled(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	c := NewCompiler(rep)

	ext := &ast.FuncDef{
		DefBase: ast.NewDefBase(map[string]string{"compile": "", "extern": "c"}),
		Name:    "puts",
		Params:  []ast.Param{{Name: "s", Annot: &ast.Subscript{Value: name("ptr"), Indices: []ast.Expr{name("i8")}}}},
		Body:    []ast.Stmt{&ast.Pass{}},
	}

	c.AddUnit(&Unit{Def: ext})
	c.AddUnit(&Unit{Def: compiledFn("f", &ast.ExprStmt{X: &ast.Call{
		Func: name("puts"),
		Args: []ast.Expr{&ast.Constant{Value: "hi"}},
	}})})

	if !c.Compile() {
		t.Fatalf("compilation failed: %v", rep.Errors())
	}

	names := moduleFuncNames(c)
	if _, ok := names["puts"]; !ok {
		t.Errorf("extern symbol missing or mangled; have %v", names)
	}
}

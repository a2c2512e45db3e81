package cmd

import (
	"pythoc/ast"
	"pythoc/cfg"
	"pythoc/depm"
	"pythoc/report"
	"pythoc/typing"
	"pythoc/walk"
)

// Compile runs the session: type declarations first, then function symbol
// declaration, then per-unit analysis and emission in registration order with
// effect-variant fanout.  A failing unit never reaches the IR emitter; the
// driver proceeds with independent units for diagnostics.
func (c *Compiler) Compile() bool {
	// Declare all class-based type units before anything resolves
	// annotations against them.
	for _, unit := range c.units {
		if cd, ok := unit.Def.(*ast.ClassDef); ok {
			w := c.newWalker()
			for _, err := range w.WalkTypeDef(cd) {
				c.rep.ReportError(err)
			}
		}
	}

	// Declare every function symbol so bodies can refer to one another
	// regardless of order.
	for _, unit := range c.units {
		if fd, ok := unit.Def.(*ast.FuncDef); ok {
			c.declareFunction(fd, unit)
		}
	}

	if !c.rep.ShouldProceed() {
		return false
	}

	// Prepass the effect-read graph: variant scheduling needs every
	// function's read set before any unit compiles, regardless of
	// registration order.
	for _, unit := range c.units {
		if fd, ok := unit.Def.(*ast.FuncDef); ok {
			c.scanEffectReads(fd.Name, fd.Body)
		}
	}

	// Compile the marked units under the ambient effect context.
	for _, unit := range c.units {
		fd, ok := unit.Def.(*ast.FuncDef)
		if !ok {
			continue
		}

		if _, marked := fd.Annotations()["compile"]; !marked {
			continue
		}

		if fd.HasAnnotation("extern") {
			continue
		}

		c.compileFunction(fd.Name, unit.CompileSuffix, c.unitEffectSuffix(fd.Name))
	}

	return c.rep.ShouldProceed()
}

// unitEffectSuffix decides the effect suffix a top-level unit compiles
// under: the active override suffix if the unit transitively reads any
// overridden effect, or if the innermost frame is a pure variant-naming
// context with no bindings; the base (empty) suffix otherwise.
func (c *Compiler) unitEffectSuffix(name string) string {
	suffix := c.effTable.ActiveSuffix()
	if suffix == "" {
		return ""
	}

	overridden := c.effTable.OverriddenNames()
	if len(overridden) == 0 {
		return suffix
	}

	reads := c.reads.TransitiveReads(name)
	for eff := range overridden {
		if _, ok := reads[eff]; ok {
			return suffix
		}
	}

	return ""
}

func (c *Compiler) newWalker() *walk.Walker {
	return walk.NewWalker(c.symTable, c.uni, c.arena, c.effTable, c.reads, c.kernel)
}

// declareFunction resolves a function's signature and installs its symbol.
func (c *Compiler) declareFunction(fd *ast.FuncDef, unit *Unit) {
	w := c.newWalker()

	params := make([]typing.DataType, 0, len(fd.Params))
	for _, p := range fd.Params {
		pt, errs := w.ResolveAnnotation(p.Annot)
		for _, err := range errs {
			c.rep.ReportError(err)
		}
		if pt == nil {
			pt = typing.PrimVoid
		}

		params = append(params, pt)
	}

	var rtn typing.DataType = typing.PrimVoid
	if fd.Returns != nil {
		rt, errs := w.ResolveAnnotation(fd.Returns)
		for _, err := range errs {
			c.rep.ReportError(err)
		}
		if rt != nil {
			rtn = rt
		}
	}

	sym := &depm.Symbol{
		Name:          fd.Name,
		CompileSuffix: unit.CompileSuffix,
		DefPosition:   fd.Position(),
		DefKind:       depm.DKFunction,
		Type:          &typing.FuncType{Params: params, ReturnType: rtn},
		FuncAST:       fd,
		Inline:        fd.HasAnnotation("inline"),
	}

	if lib, isExtern := fd.Annotations()["extern"]; isExtern {
		sym.Extern = true
		sym.ExternLib = lib
	}

	if err := c.symTable.DefineGlobal(sym); err != nil {
		c.rep.ReportError(report.Raise(report.VariantCollision, fd.Position(), "%s", err.Error()))
	}
}

// -----------------------------------------------------------------------------

// compileFunction compiles one (name, compile_suffix, effect_suffix) variant.
// The variant cache guarantees each triple compiles at most once per session;
// re-entrant requests for an in-flight variant are compile cycles.
func (c *Compiler) compileFunction(name, compileSuffix, effectSuffix string) (*depm.Symbol, bool) {
	key := depm.VariantKey{Name: name, CompileSuffix: compileSuffix, EffectSuffix: effectSuffix}

	if sym, ok := c.cache.Get(key); ok {
		return sym, true
	}

	if _, inFlight := c.compiling[key]; inFlight {
		c.rep.ReportError(report.Raise(report.CompileCycle, nil,
			"compilation of `%s` depends on itself", depm.MangleName(name, compileSuffix, effectSuffix)))
		return nil, false
	}
	c.compiling[key] = struct{}{}
	defer delete(c.compiling, key)

	base, ok := c.symTable.Lookup(name)
	if !ok || base.DefKind != depm.DKFunction {
		c.rep.ReportError(report.Raise(report.TypeMismatch, nil, "undefined function `%s`", name))
		return nil, false
	}

	if base.Extern {
		// Extern symbols are declarations only: unmangled, no body.
		c.gen.DeclareFunc(base)
		c.cache.Add(key, base)
		return base, true
	}

	// The variant symbol shares the base definition but carries the suffix
	// components for mangling.
	sym := base
	if compileSuffix != "" || effectSuffix != "" {
		variant := *base
		variant.CompileSuffix = compileSuffix
		variant.EffectSuffix = effectSuffix
		sym = &variant
	}

	// Each variant checks a fresh clone of the body: the inline kernel
	// rewrites the AST in place, and variants must not see each other's
	// expansions.
	fnCopy := *base.FuncAST
	fnCopy.Body = ast.CloneBlock(base.FuncAST.Body)
	sym.FuncAST = &fnCopy

	w := c.newWalker()
	errs := w.WalkDef(sym.FuncAST)
	for _, err := range errs {
		c.rep.ReportError(err)
	}
	if len(errs) > 0 {
		return nil, false
	}

	sym.EffectReads = c.reads.TransitiveReads(name)

	// Control flow construction, then the ownership analysis over it.
	graph, _, cfgErrs := cfg.Build(sym.FuncAST.Body)
	for _, err := range cfgErrs {
		c.rep.ReportError(err)
	}
	if len(cfgErrs) > 0 {
		return nil, false
	}

	varTypes := w.VarTypes()
	checker := &cfg.LinearChecker{VarType: func(v string) typing.DataType {
		return varTypes[v]
	}}

	linearErrs := checker.Check(graph, w.InitialLinearState())
	for _, err := range linearErrs {
		c.rep.ReportError(err)
	}
	if len(linearErrs) > 0 {
		return nil, false
	}

	// Effect-variant fanout: a callee is redirected to its effect variant
	// iff its transitive read set intersects the active override set.
	redirects, ok := c.scheduleCalleeVariants(name, effectSuffix)
	if !ok {
		return nil, false
	}

	if !c.cache.Add(key, sym) {
		c.rep.ReportError(report.Raise(report.VariantCollision, sym.DefPosition,
			"variant `%s` emitted twice", sym.MangledName()))
		return nil, false
	}

	savedRedirects := c.redirects
	c.redirects = redirects
	c.gen.GenFuncBody(sym, varTypes, w.MatchLowering)
	c.redirects = savedRedirects

	return sym, true
}

// scheduleCalleeVariants compiles the effect variants this function's callees
// need and returns the emission-time redirection map.
func (c *Compiler) scheduleCalleeVariants(name, effectSuffix string) (map[string]*depm.Symbol, bool) {
	redirects := make(map[string]*depm.Symbol)

	if effectSuffix == "" {
		return redirects, true
	}

	overridden := c.effTable.OverriddenNames()

	for callee := range c.reads.Callees(name) {
		calleeSym, ok := c.symTable.Lookup(callee)
		if !ok || calleeSym.DefKind != depm.DKFunction || calleeSym.Extern {
			continue
		}

		calleeReads := c.reads.TransitiveReads(callee)
		intersects := false
		for eff := range overridden {
			if _, reads := calleeReads[eff]; reads {
				intersects = true
				break
			}
		}

		if !intersects {
			// The base variant serves callers under any override that the
			// callee never observes.
			continue
		}

		unit, hasUnit := c.funcUnits[callee]
		calleeCompileSuffix := ""
		if hasUnit {
			calleeCompileSuffix = unit.CompileSuffix
		}

		variant, compiled := c.compileFunction(callee, calleeCompileSuffix, effectSuffix)
		if !compiled {
			return nil, false
		}

		redirects[callee] = variant
	}

	return redirects, true
}

// compileVariant is the import-interception entry: it re-invokes compilation
// of an imported function under the current effect context.
func (c *Compiler) compileVariant(name, compileSuffix, effectSuffix string) (*depm.Symbol, error) {
	sym, ok := c.compileFunction(name, compileSuffix, effectSuffix)
	if !ok {
		return nil, report.Raise(report.CompileCycle, nil,
			"failed to compile effect variant of `%s`", name)
	}

	return sym, nil
}

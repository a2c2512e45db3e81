package cmd

import (
	"pythoc/ast"
	"pythoc/depm"
	"pythoc/effects"
	"pythoc/generate"
	"pythoc/inline"
	"pythoc/report"
	"pythoc/typing"
)

// Unit is one decorator-marked translation unit handed to the driver.
type Unit struct {
	// Def is the unit's definition: a function or a class-based type
	// declaration.
	Def ast.Def

	// CompileSuffix is the per-call annotation component for this unit's
	// symbol; it does not propagate.
	CompileSuffix string
}

// Compiler represents the state of one driver session.  The symbol registry
// and the variant cache persist for the session and are mutated only by the
// driver's main loop; analyses receive them read-mostly.
type Compiler struct {
	rep *report.Reporter

	symTable *depm.SymbolTable
	uni      *depm.Universe
	arena    *typing.Arena
	effTable *effects.Table
	reads    *effects.ReadGraph
	kernel   *inline.Kernel
	cache    *depm.VariantCache
	gen      *generate.Generator

	interceptor *effects.ImportInterceptor

	// units is the ordered list of registered translation units.
	units []*Unit

	// funcUnits indexes function units by name.
	funcUnits map[string]*Unit

	// compiling tracks in-flight compilations for cycle detection.
	compiling map[depm.VariantKey]struct{}

	// redirects maps, for the function currently being emitted, callee names
	// to their chosen variant symbols.
	redirects map[string]*depm.Symbol
}

// NewCompiler creates a new driver session.
func NewCompiler(rep *report.Reporter) *Compiler {
	c := &Compiler{
		rep:       rep,
		symTable:  depm.NewSymbolTable(),
		uni:       depm.NewUniverse(),
		arena:     typing.NewArena(),
		effTable:  effects.NewTable(),
		reads:     effects.NewReadGraph(),
		kernel:    inline.NewKernel(),
		cache:     depm.NewVariantCache(),
		gen:       generate.NewGenerator(),
		funcUnits: make(map[string]*Unit),
		compiling: make(map[depm.VariantKey]struct{}),
	}

	c.interceptor = effects.NewImportInterceptor(func(module, name, suffix string) (*depm.Symbol, error) {
		return c.compileVariant(name, "", suffix)
	})

	c.gen.EffectImpl = func(name string) (*effects.Impl, bool) {
		impl, err := c.effTable.Resolve(name, nil)
		if err != nil {
			return nil, false
		}

		return impl, true
	}

	c.gen.CalleeSymbol = c.resolveCallee
	return c
}

// Effects exposes the session effect table for pin and default installation
// performed outside any unit.
func (c *Compiler) Effects() *effects.Table {
	return c.effTable
}

// Module returns the session's IR generator, which holds the LLVM module built
// so far.
func (c *Compiler) Module() *generate.Generator {
	return c.gen
}

// AddUnit registers a translation unit with the session.
func (c *Compiler) AddUnit(unit *Unit) {
	c.units = append(c.units, unit)

	if fd, ok := unit.Def.(*ast.FuncDef); ok {
		c.funcUnits[fd.Name] = unit
	}
}

// InterceptImport resolves an imported compiled function at the module
// boundary.  Within a scoped override, the import is rewrapped into an
// effect variant keyed by (module, name, effect_suffix) and compiled on
// first use; outside any override the base symbol passes through.
func (c *Compiler) InterceptImport(module, name string) (*depm.Symbol, error) {
	variant, err := c.interceptor.Intercept(module, name, c.effTable.ActiveSuffix())
	if err != nil {
		return nil, err
	}

	if variant != nil {
		return variant, nil
	}

	if sym, ok := c.symTable.Lookup(name); ok {
		return sym, nil
	}

	return nil, report.Raise(report.TypeMismatch, nil, "undefined import `%s`", name)
}

// resolveCallee picks the concrete symbol for a callee during emission,
// honoring any variant redirects of the function being emitted.
func (c *Compiler) resolveCallee(name string) *depm.Symbol {
	if sym, ok := c.redirects[name]; ok {
		return sym
	}

	if sym, ok := c.symTable.Lookup(name); ok {
		return sym
	}

	return nil
}

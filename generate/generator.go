package generate

import (
	"pythoc/ast"
	"pythoc/depm"
	"pythoc/effects"
	"pythoc/match"
	"pythoc/report"
	"pythoc/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// LLVMIdent is the type used for LLVM identifiers.  It stores the value as
// well as whether or not the value has to be loaded explicitly to be used.
type LLVMIdent struct {
	Val     value.Value
	Mutable bool
}

// genScope is one entry of the generator's scope stack: it carries the defer
// list of the scope and, for labels and loops, the jump targets.
type genScope struct {
	labelName  string
	begin, end *ir.Block

	isLoop              bool
	loopHead, loopBreak *ir.Block
	defers              []*ast.Call
}

// Generator converts checked, transformed PythoC functions into LLVM IR.  One
// generator emits one module per driver session.
type Generator struct {
	mod *ir.Module

	// globalTypes caches emitted named type definitions.
	globalTypes map[string]types.Type

	// globalFuncs maps mangled symbol names to their declared functions.
	globalFuncs map[string]*ir.Func

	// EffectImpl resolves an effect name to its active implementation at
	// emission time; set by the driver.
	EffectImpl func(name string) (*effects.Impl, bool)

	// CalleeSymbol redirects a callee name to the concrete variant symbol
	// chosen by the driver's effect propagation.
	CalleeSymbol func(name string) *depm.Symbol

	// enclosing function state
	fn            *ir.Func
	block         *ir.Block
	localScopes   []map[string]LLVMIdent
	scopeStack    []*genScope
	varTypes      map[string]typing.DataType
	matchPlans    func(*ast.Match) (*match.Lowered, bool)
	fnLabels      map[string]labelTargets
	blockCount    int
	globalCounter int
}

// NewGenerator creates a new generator emitting into a fresh module.
func NewGenerator() *Generator {
	return &Generator{
		mod:         ir.NewModule(),
		globalTypes: make(map[string]types.Type),
		globalFuncs: make(map[string]*ir.Func),
	}
}

// Module returns the module under construction.
func (g *Generator) Module() *ir.Module {
	return g.mod
}

// -----------------------------------------------------------------------------

// DeclareFunc declares the IR function for a symbol: externs keep their
// unmangled name and compiled functions carry the full
// `{name}_{compile_suffix}_{effect_suffix}` mangling.
func (g *Generator) DeclareFunc(sym *depm.Symbol) *ir.Func {
	mangled := sym.MangledName()
	if fn, ok := g.globalFuncs[mangled]; ok {
		return fn
	}

	ft, ok := sym.Type.(*typing.FuncType)
	if !ok {
		report.ReportICE("declaring non-function symbol `%s`", sym.Name)
	}

	params := make([]*ir.Param, len(ft.Params))
	names := paramNames(sym)
	for i, pt := range ft.Params {
		name := ""
		if i < len(names) {
			name = names[i]
		}

		params[i] = ir.NewParam(name, g.convType(pt))
	}

	fn := g.mod.NewFunc(mangled, g.convType(ft.ReturnType), params...)
	if ft.Variadic {
		fn.Sig.Variadic = true
	}

	g.globalFuncs[mangled] = fn
	return fn
}

func paramNames(sym *depm.Symbol) []string {
	if sym.FuncAST == nil {
		return nil
	}

	return sym.FuncAST.ParamNames()
}

// GenFuncBody emits the body of a compiled function.  The body must already
// be transformed and checked; varTypes and matchPlans come from the walker
// that checked it.
func (g *Generator) GenFuncBody(sym *depm.Symbol, varTypes map[string]typing.DataType, matchPlans func(*ast.Match) (*match.Lowered, bool)) {
	fn := g.DeclareFunc(sym)

	g.fn = fn
	g.varTypes = varTypes
	g.matchPlans = matchPlans
	g.localScopes = nil
	g.scopeStack = []*genScope{{}}
	g.fnLabels = make(map[string]labelTargets)
	g.blockCount = 0

	g.block = fn.NewBlock("entry")
	g.pushScope()

	// Parameters spill to stack slots so the body can address them
	// uniformly.
	for _, param := range fn.Params {
		slot := g.block.NewAlloca(param.Typ)
		g.block.NewStore(param, slot)
		g.defineLocal(param.Name(), slot, true)
	}

	g.genBlockStmts(sym.FuncAST.Body)

	// Implicit return for fallthrough paths.
	if g.block.Term == nil {
		g.emitAllDefers()
		g.emitImplicitReturn(fn)
	}

	g.popScope()
}

func (g *Generator) emitImplicitReturn(fn *ir.Func) {
	if types.Equal(fn.Sig.RetType, types.Void) {
		g.block.NewRet(nil)
	} else {
		g.block.NewRet(zeroValue(fn.Sig.RetType))
	}
}

// -----------------------------------------------------------------------------

// newBlock allocates a fresh labeled block in the enclosing function.
func (g *Generator) newBlock(hint string) *ir.Block {
	g.blockCount++
	return g.fn.NewBlock("")
}

// pushScope pushes a new local scope onto the local scope stack.
func (g *Generator) pushScope() {
	g.localScopes = append(g.localScopes, make(map[string]LLVMIdent))
}

// popScope pops a local scope off of the local scope stack.
func (g *Generator) popScope() {
	g.localScopes = g.localScopes[:len(g.localScopes)-1]
}

// defineLocal defines a local variable.
func (g *Generator) defineLocal(name string, val value.Value, mutable bool) {
	g.localScopes[len(g.localScopes)-1][name] = LLVMIdent{val, mutable}
}

// lookupLocal finds a local variable, innermost scope first.
func (g *Generator) lookupLocal(name string) (LLVMIdent, bool) {
	for i := len(g.localScopes) - 1; i >= 0; i-- {
		if ident, ok := g.localScopes[i][name]; ok {
			return ident, true
		}
	}

	return LLVMIdent{}, false
}

// currentScope returns the innermost generator scope.
func (g *Generator) currentScope() *genScope {
	return g.scopeStack[len(g.scopeStack)-1]
}

// pushGenScope enters a generator scope.
func (g *Generator) pushGenScope(s *genScope) {
	g.scopeStack = append(g.scopeStack, s)
}

// popGenScope leaves the innermost generator scope.
func (g *Generator) popGenScope() {
	g.scopeStack = g.scopeStack[:len(g.scopeStack)-1]
}

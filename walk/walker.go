package walk

import (
	"pythoc/ast"
	"pythoc/cfg"
	"pythoc/depm"
	"pythoc/effects"
	"pythoc/inline"
	"pythoc/match"
	"pythoc/report"
	"pythoc/typing"
)

// Walker performs semantic analysis of one function: AST transforms
// (inlining, generator expansion, refine lowering), expression and statement
// type checking, refinement and match analysis, and effect resolution.  A
// walker is transient per function; the registry, effect table, and inline
// kernel it borrows belong to the driver session.
type Walker struct {
	SymTable *depm.SymbolTable
	Uni      *depm.Universe
	Arena    *typing.Arena
	Effects  *effects.Table
	Reads    *effects.ReadGraph
	Kernel   *inline.Kernel

	// fn is the function being walked.
	fn *ast.FuncDef

	// fnKey is the function's read-graph key.
	fnKey string

	// rtnType is the declared return type.
	rtnType typing.DataType

	// varTypes records the declared type of every variable in the function,
	// flattened across scopes for the linear checker.
	varTypes map[string]typing.DataType

	// matches records the lowering decision of every match statement.
	matches map[*ast.Match]*match.Lowered

	errors []*report.CompileError
}

// NewWalker creates a walker for one function against the session state.
func NewWalker(symTable *depm.SymbolTable, uni *depm.Universe, arena *typing.Arena, effTable *effects.Table, reads *effects.ReadGraph, kernel *inline.Kernel) *Walker {
	return &Walker{
		SymTable: symTable,
		Uni:      uni,
		Arena:    arena,
		Effects:  effTable,
		Reads:    reads,
		Kernel:   kernel,
	}
}

// WalkDef runs the full per-function pipeline: resolve the signature,
// declare parameters, transform the body, then check it.  It returns the accumulated diagnostics;
// an empty slice means the function is ready for CFG construction and the
// linear checker.
func (w *Walker) WalkDef(fn *ast.FuncDef) []*report.CompileError {
	w.fn = fn
	w.fnKey = fn.Name
	w.varTypes = make(map[string]typing.DataType)
	w.matches = make(map[*ast.Match]*match.Lowered)
	w.errors = nil

	// Resolve the signature.
	w.rtnType = typing.PrimVoid
	if fn.Returns != nil {
		if rt, ok := w.resolveTypeExpr(fn.Returns); ok {
			w.rtnType = rt
		}
	}

	w.SymTable.PushScope()
	defer w.SymTable.PopScope()

	for _, param := range fn.Params {
		if param.Annot == nil {
			continue
		}

		pt, ok := w.resolveTypeExpr(param.Annot)
		if !ok || pt == nil {
			continue
		}

		w.declareVar(param.Name, pt, fn.Position())
	}

	// Transform before checking: all substitution happens on the raw AST.
	fn.Body = w.transformBlock(fn.Body)

	w.walkBlock(fn.Body)

	return w.errors
}

// ResolveAnnotation resolves a type annotation expression outside a body
// walk, returning any diagnostics it produced.
func (w *Walker) ResolveAnnotation(expr ast.Expr) (typing.DataType, []*report.CompileError) {
	if expr == nil {
		return nil, nil
	}

	w.errors = nil
	typ, _ := w.resolveTypeExpr(expr)
	return typ, w.errors
}

// VarTypes exposes the declared variable types for the linear checker.
func (w *Walker) VarTypes() map[string]typing.DataType {
	return w.varTypes
}

// MatchLowering returns the recorded lowering decision for a match statement.
func (w *Walker) MatchLowering(node *ast.Match) (*match.Lowered, bool) {
	lowered, ok := w.matches[node]
	return lowered, ok
}

// ReturnType returns the function's resolved return type.
func (w *Walker) ReturnType() typing.DataType {
	return w.rtnType
}

// InitialLinearState builds the entry snapshot for the linear checker: every
// linear slot of a parameter starts live.
func (w *Walker) InitialLinearState() cfg.Snapshot {
	snap := make(cfg.Snapshot)

	for _, param := range w.fn.Params {
		pt, ok := w.varTypes[param.Name]
		if !ok {
			continue
		}

		for _, path := range typing.LinearPaths(pt) {
			snap[cfg.Slot{Var: param.Name, Path: path.Repr()}] = cfg.LinearLive
		}
	}

	return snap
}

// -----------------------------------------------------------------------------

func (w *Walker) errorf(kind report.ErrorKind, pos *report.TextPosition, msg string, args ...interface{}) {
	w.errors = append(w.errors, report.Raise(kind, pos, msg, args...))
}

func (w *Walker) reportError(err *report.CompileError) {
	if err != nil {
		w.errors = append(w.errors, err)
	}
}

// declareVar installs a variable in the current lexical scope and the flat
// per-function type map.
func (w *Walker) declareVar(name string, typ typing.DataType, pos *report.TextPosition) {
	sym := &depm.Symbol{
		Name:        name,
		DefPosition: pos,
		DefKind:     depm.DKVariable,
		Type:        typ,
	}

	if err := w.SymTable.Define(sym); err != nil {
		w.errorf(report.TypeMismatch, pos, "%s", err.Error())
		return
	}

	w.varTypes[name] = typ
}

// lookup resolves a name through the lexical scopes and the universe.
func (w *Walker) lookup(name string) (*depm.Symbol, bool) {
	if sym, ok := w.SymTable.Lookup(name); ok {
		return sym, true
	}

	return w.Uni.GetSymbol(name)
}

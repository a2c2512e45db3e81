package depm

import (
	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

// Symbol represents a named PythoC entity.
type Symbol struct {
	Name string

	// CompileSuffix is the per-call annotation component of the symbol name.
	// It does not propagate through the call graph.
	CompileSuffix string

	// EffectSuffix is the scoped-override component of the symbol name.  It
	// propagates to any callee that transitively reads an overridden effect.
	EffectSuffix string

	// DefPosition is the position of the identifier that defines the symbol.
	DefPosition *report.TextPosition

	// DefKind indicates what kind of entity this symbol names.  Must be one
	// of the enumerated def kinds.
	DefKind int

	// Type is the symbol's data type: the value type for variables, the
	// function type for functions and intrinsics, the declared type for type
	// definitions.
	Type typing.DataType

	// FuncAST is the definition body for functions; retained so the inline
	// kernel can expand call sites.
	FuncAST *ast.FuncDef

	// Inline indicates the function is marked for unconditional AST inlining
	// at all call sites.
	Inline bool

	// Extern indicates an external symbol declaration.  Extern symbols carry
	// their unmangled name and the library they come from.
	Extern    bool
	ExternLib string

	// EffectReads is the set of effect names this function reads, including
	// transitively through its callees.
	EffectReads map[string]struct{}

	// Constant holds the compile-time value of value effects and other
	// constants that flow into folding; nil otherwise.
	Constant interface{}
}

// Enumeration of definition kinds.
const (
	DKVariable = iota
	DKFunction
	DKType
	DKBuiltin
	DKEffectValue
)

// MangledName returns the emitted symbol name,
// `{name}_{compile_suffix}_{effect_suffix}`, assembled by MangleName: empty
// trailing components are omitted, but an empty compile suffix keeps its
// separator under an effect suffix.  Extern symbols are never mangled.
func (s *Symbol) MangledName() string {
	if s.Extern {
		return s.Name
	}

	return MangleName(s.Name, s.CompileSuffix, s.EffectSuffix)
}

// MangleName assembles a mangled symbol name from its components.  A
// trailing effect suffix keeps its positional separator even when the
// compile suffix is empty, so an effect variant of a plain function mangles
// to `name__suffix`.
func MangleName(name, compileSuffix, effectSuffix string) string {
	if effectSuffix != "" {
		return name + "_" + compileSuffix + "_" + effectSuffix
	}

	if compileSuffix != "" {
		return name + "_" + compileSuffix
	}

	return name
}

// ReadsAnyEffect reports whether the symbol's transitive effect-read set
// intersects the given override set.
func (s *Symbol) ReadsAnyEffect(overridden map[string]struct{}) bool {
	for name := range overridden {
		if _, ok := s.EffectReads[name]; ok {
			return true
		}
	}

	return false
}

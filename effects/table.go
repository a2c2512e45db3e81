package effects

import (
	"pythoc/depm"
	"pythoc/report"
)

// Impl is what an effect name resolves to: either a callable implementation
// symbol or, for value effects, a literal constant that flows into constant
// folding.
type Impl struct {
	// Symbol is the implementation symbol for callable effects.
	Symbol *depm.Symbol

	// Value is the literal constant for value effects (int/float/bool/str);
	// nil for callable effects.
	Value interface{}
}

// overrideFrame is one entry of the scoped override stack.
type overrideFrame struct {
	bindings map[string]*Impl
	suffix   string
}

// Table holds the per-session effect bindings.  Each effect name resolves
// through three layers: a direct pin, the topmost scoped override binding the
// name, and the module default, in that priority order.  The override stack is
// a per-driver resource with strict LIFO discipline.
type Table struct {
	pinned   map[string]*Impl
	defaults map[string]*Impl
	stack    []overrideFrame
}

// NewTable creates a new empty effect table.
func NewTable() *Table {
	return &Table{
		pinned:   make(map[string]*Impl),
		defaults: make(map[string]*Impl),
	}
}

// SetDefault installs the default layer for an effect name, overwriting any
// previous default.
func (t *Table) SetDefault(name string, impl *Impl) {
	t.defaults[name] = impl
}

// Pin installs an immutable direct assignment for an effect name.  Pinning an
// already pinned name fails.
func (t *Table) Pin(name string, impl *Impl, pos *report.TextPosition) *report.CompileError {
	if _, ok := t.pinned[name]; ok {
		return report.Raise(report.EffectRepin, pos, "effect `%s` is already pinned", name)
	}

	t.pinned[name] = impl
	return nil
}

// PushOverride pushes a scoped override frame.  If any binding is supplied
// the suffix is mandatory; a frame with a suffix and no bindings is allowed
// as a variant-naming context.
func (t *Table) PushOverride(bindings map[string]*Impl, suffix string, pos *report.TextPosition) *report.CompileError {
	if len(bindings) > 0 && suffix == "" {
		return report.Raise(report.EffectSuffixRequired, pos,
			"scoped effect override requires an explicit suffix")
	}

	if bindings == nil {
		bindings = make(map[string]*Impl)
	}

	t.stack = append(t.stack, overrideFrame{bindings: bindings, suffix: suffix})
	return nil
}

// PopOverride pops the topmost override frame.  An unbalanced pop is a
// programmer error.
func (t *Table) PopOverride() {
	if len(t.stack) == 0 {
		report.ReportICE("effect override stack underflow")
	}

	t.stack = t.stack[:len(t.stack)-1]
}

// OverrideDepth returns the current override stack depth.
func (t *Table) OverrideDepth() int {
	return len(t.stack)
}

// Resolve resolves `effect.name` at compile time: pin > topmost override on
// the stack binding the name > default.  An unbound name is an error.
func (t *Table) Resolve(name string, pos *report.TextPosition) (*Impl, *report.CompileError) {
	if impl, ok := t.pinned[name]; ok {
		return impl, nil
	}

	for i := len(t.stack) - 1; i >= 0; i-- {
		if impl, ok := t.stack[i].bindings[name]; ok {
			return impl, nil
		}
	}

	if impl, ok := t.defaults[name]; ok {
		return impl, nil
	}

	return nil, report.Raise(report.EffectUnbound, pos, "effect `%s` is not bound", name)
}

// ActiveSuffix returns the suffix of the innermost override frame that carries
// one, or the empty string when no frame on the stack has a suffix.
func (t *Table) ActiveSuffix() string {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.stack[i].suffix != "" {
			return t.stack[i].suffix
		}
	}

	return ""
}

// OverriddenNames returns the set of effect names bound by any frame on the
// override stack.  A callee is redirected to its effect variant iff its
// transitive effect-read set intersects this set.
func (t *Table) OverriddenNames() map[string]struct{} {
	names := make(map[string]struct{})
	for _, frame := range t.stack {
		for name := range frame.bindings {
			names[name] = struct{}{}
		}
	}

	return names
}

package effects

import "pythoc/depm"

// importKey identifies one effect variant of an imported function.
type importKey struct {
	module string
	name   string
	suffix string
}

// ImportInterceptor wraps imported compiled functions into effect variants.
// Within a scoped override, each function imported across the module boundary
// is rewrapped into a variant keyed by (module, name, effect_suffix); the
// wrapper re-invokes compilation with the current effect context.  The cache
// guarantees each suffix produces exactly one variant.
type ImportInterceptor struct {
	cache map[importKey]*depm.Symbol

	// Recompile re-invokes compilation of the named function under the
	// current effect context, returning the variant symbol.  Supplied by the
	// driver.
	Recompile func(module, name, suffix string) (*depm.Symbol, error)
}

// NewImportInterceptor creates a new interceptor backed by the given
// recompilation callback.
func NewImportInterceptor(recompile func(module, name, suffix string) (*depm.Symbol, error)) *ImportInterceptor {
	return &ImportInterceptor{
		cache:     make(map[importKey]*depm.Symbol),
		Recompile: recompile,
	}
}

// Intercept returns the effect variant of an imported function for the given
// suffix, compiling it on first use.  An empty suffix returns nil, signaling
// that the base import should be used unchanged.
func (ii *ImportInterceptor) Intercept(module, name, suffix string) (*depm.Symbol, error) {
	if suffix == "" {
		return nil, nil
	}

	key := importKey{module: module, name: name, suffix: suffix}
	if sym, ok := ii.cache[key]; ok {
		return sym, nil
	}

	sym, err := ii.Recompile(module, name, suffix)
	if err != nil {
		return nil, err
	}

	ii.cache[key] = sym
	return sym, nil
}

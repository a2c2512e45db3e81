package effects

// ReadGraph records, per function name, the set of effect names the function
// reads directly and the set of functions it calls.  The driver populates it
// during semantic analysis and closes it transitively before scheduling
// effect variants.
type ReadGraph struct {
	directReads map[string]map[string]struct{}
	callees     map[string]map[string]struct{}
}

// NewReadGraph creates a new empty read graph.
func NewReadGraph() *ReadGraph {
	return &ReadGraph{
		directReads: make(map[string]map[string]struct{}),
		callees:     make(map[string]map[string]struct{}),
	}
}

// AddRead records that fn reads the given effect name directly.
func (rg *ReadGraph) AddRead(fn, effect string) {
	if rg.directReads[fn] == nil {
		rg.directReads[fn] = make(map[string]struct{})
	}

	rg.directReads[fn][effect] = struct{}{}
}

// AddCall records that fn calls callee.
func (rg *ReadGraph) AddCall(fn, callee string) {
	if rg.callees[fn] == nil {
		rg.callees[fn] = make(map[string]struct{})
	}

	rg.callees[fn][callee] = struct{}{}
}

// TransitiveReads computes the set of effect names fn reads directly or
// through any chain of callees.  Call cycles are tolerated: the closure is a
// fixpoint, so recursive functions simply share one read set.
func (rg *ReadGraph) TransitiveReads(fn string) map[string]struct{} {
	reads := make(map[string]struct{})
	visited := make(map[string]struct{})
	rg.collect(fn, reads, visited)
	return reads
}

func (rg *ReadGraph) collect(fn string, reads, visited map[string]struct{}) {
	if _, ok := visited[fn]; ok {
		return
	}
	visited[fn] = struct{}{}

	for effect := range rg.directReads[fn] {
		reads[effect] = struct{}{}
	}

	for callee := range rg.callees[fn] {
		rg.collect(callee, reads, visited)
	}
}

// Callees returns the direct callees of fn.
func (rg *ReadGraph) Callees(fn string) map[string]struct{} {
	return rg.callees[fn]
}

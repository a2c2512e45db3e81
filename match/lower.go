package match

import (
	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

// Strategy selects how a match statement lowers.
type Strategy int

const (
	// StrategySwitch emits a switch table: every arm is an unguarded integer
	// literal (or an or of integer literals) over a single integral subject.
	StrategySwitch Strategy = iota

	// StrategyIfChain emits an if/elif chain performing destructuring and
	// guard evaluation in source arm order.
	StrategyIfChain
)

// SwitchArm is one arm of a switch-table lowering.
type SwitchArm struct {
	// Values are the integer tags the arm covers; an or-pattern contributes
	// several.
	Values []int64

	// CaseIndex is the originating case clause.
	CaseIndex int
}

// Lowered is the lowering decision for one match statement, consumed by the
// IR emitter.  Arms never fall through: they are mutually exclusive in
// evaluation order.
type Lowered struct {
	Strategy Strategy

	// SwitchArms is populated for StrategySwitch.
	SwitchArms []SwitchArm

	// DefaultCase is the index of the catch-all clause, or -1.
	DefaultCase int
}

// -----------------------------------------------------------------------------

// Check runs exhaustiveness analysis on a match statement and selects its
// lowering.  The subject type must already be resolved.
func Check(node *ast.Match, subject typing.DataType, n *Normalizer) (*Lowered, *report.CompileError) {
	matrix := &Matrix{ColTypes: []typing.DataType{subject}}

	for i, mc := range node.Cases {
		norm, err := n.Normalize(mc.Pattern, subject)
		if err != nil {
			return nil, err
		}

		matrix.Rows = append(matrix.Rows, Row{
			Patterns:  []*Pattern{norm},
			HasGuard:  mc.Guard != nil,
			CaseIndex: i,
		})
	}

	ok, witnesses := IsExhaustive(matrix)
	if !ok {
		return nil, report.RaiseWithWitness(report.MatchNonExhaustive, node.Pos, witnesses,
			"match over `%s` is not exhaustive", subject.Repr())
	}

	return selectStrategy(node, subject, matrix), nil
}

// selectStrategy chooses between the switch-table and if-chain lowerings.
func selectStrategy(node *ast.Match, subject typing.DataType, matrix *Matrix) *Lowered {
	lowered := &Lowered{Strategy: StrategyIfChain, DefaultCase: -1}

	for i, mc := range node.Cases {
		if ast.IsWildcard(mc.Pattern) && mc.Guard == nil {
			lowered.DefaultCase = i
			break
		}
	}

	if _, isInt := typing.InnerType(subject).(*typing.IntType); !isInt {
		return lowered
	}

	// Switch lowering requires every non-default arm to be an unguarded
	// integer literal or an or of integer literals.
	var arms []SwitchArm
	for i, row := range matrix.Rows {
		if row.HasGuard {
			return lowered
		}

		first := row.Patterns[0]
		if first.IsWildcard() {
			continue
		}

		values, ok := intLiteralValues(first)
		if !ok {
			return lowered
		}

		arms = append(arms, SwitchArm{Values: values, CaseIndex: i})
	}

	lowered.Strategy = StrategySwitch
	lowered.SwitchArms = arms
	return lowered
}

// intLiteralValues extracts the integer values a pattern covers, if the
// pattern is an integer literal or an or of integer literals.
func intLiteralValues(p *Pattern) ([]int64, bool) {
	switch p.Kind {
	case KindLiteral:
		if v, ok := p.Value.(int64); ok {
			return []int64{v}, true
		}
	case KindOr:
		var values []int64
		for _, alt := range p.Alts {
			subValues, ok := intLiteralValues(alt)
			if !ok {
				return nil, false
			}

			values = append(values, subValues...)
		}

		return values, true
	}

	return nil, false
}

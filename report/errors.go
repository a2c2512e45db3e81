package report

import "fmt"

// ErrorKind enumerates the kinds of diagnostics the analyses can produce.
// Every diagnostic surfaced by the compiler carries exactly one kind.
type ErrorKind int

const (
	// Parsing/shape errors.
	TypeShapeInvalid ErrorKind = iota
	RefinedArityMismatch

	// Type errors.
	TypeMismatch
	InvalidCast
	ExternSignatureMismatch

	// Effect errors.
	EffectUnbound
	EffectRepin
	EffectSuffixRequired
	EffectCycle

	// Linear errors.
	LinearOverwrite
	LinearCopy
	LinearUseAfterConsume
	LinearUndefined
	LinearInconsistentMerge
	LinearExitNotConsumed

	// Refinement errors.
	RefineTagNotSubset
	RefineBaseToRefined
	RefineOutsideForLoop

	// Match errors.
	MatchNonExhaustive
	MatchPatternTypeMismatch

	// Control flow errors.
	LabelNotVisible
	GotoEndToUncle
	UnreachableAfterReturn

	// Driver errors.
	CompileCycle
	RecursiveInline
	VariantCollision
)

var errorKindNames = map[ErrorKind]string{
	TypeShapeInvalid:         "TypeShapeInvalid",
	RefinedArityMismatch:     "RefinedArityMismatch",
	TypeMismatch:             "TypeMismatch",
	InvalidCast:              "InvalidCast",
	ExternSignatureMismatch:  "ExternSignatureMismatch",
	EffectUnbound:            "EffectUnbound",
	EffectRepin:              "EffectRepin",
	EffectSuffixRequired:     "EffectSuffixRequired",
	EffectCycle:              "EffectCycle",
	LinearOverwrite:          "LinearOverwrite",
	LinearCopy:               "LinearCopy",
	LinearUseAfterConsume:    "LinearUseAfterConsume",
	LinearUndefined:          "LinearUndefined",
	LinearInconsistentMerge:  "LinearInconsistentMerge",
	LinearExitNotConsumed:    "LinearExitNotConsumed",
	RefineTagNotSubset:       "RefineTagNotSubset",
	RefineBaseToRefined:      "RefineBaseToRefined",
	RefineOutsideForLoop:     "RefineOutsideForLoop",
	MatchNonExhaustive:       "MatchNonExhaustive",
	MatchPatternTypeMismatch: "MatchPatternTypeMismatch",
	LabelNotVisible:          "LabelNotVisible",
	GotoEndToUncle:           "GotoEndToUncle",
	UnreachableAfterReturn:   "UnreachableAfterReturn",
	CompileCycle:             "CompileCycle",
	RecursiveInline:          "RecursiveInline",
	VariantCollision:         "VariantCollision",
}

func (ek ErrorKind) Repr() string {
	if name, ok := errorKindNames[ek]; ok {
		return name
	}

	return fmt.Sprintf("ErrorKind(%d)", int(ek))
}

// -----------------------------------------------------------------------------

// CompileError is a diagnostic produced during compilation of a translation
// unit.  Compile errors are fatal to their unit: the driver never emits IR for
// a unit whose analysis produced one.
type CompileError struct {
	// The kind of the error.
	Kind ErrorKind

	// The error message.
	Message string

	// The position of the offending source text.  May be nil for errors with
	// no single location (eg. driver-level cycles).
	Position *TextPosition

	// The inline provenance chain for errors raised inside expanded code.
	Provenance Provenance

	// Witness holds optional witness values, eg. the uncovered value of a
	// non-exhaustive match or the slot names left unconsumed at exit.
	Witness []string
}

func (ce *CompileError) Error() string {
	if ce.Position != nil {
		return fmt.Sprintf("[%s] %s at %s", ce.Kind.Repr(), ce.Message, ce.Position.Repr())
	}

	return fmt.Sprintf("[%s] %s", ce.Kind.Repr(), ce.Message)
}

// Raise creates a new compile error of the given kind.
func Raise(kind ErrorKind, pos *TextPosition, msg string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(msg, args...), Position: pos}
}

// RaiseWithWitness creates a new compile error carrying witness values.
func RaiseWithWitness(kind ErrorKind, pos *TextPosition, witness []string, msg string, args ...interface{}) *CompileError {
	ce := Raise(kind, pos, msg, args...)
	ce.Witness = witness
	return ce
}

package report

import "fmt"

// TextPosition represents a positional range in the source text.
type TextPosition struct {
	StartLn, StartCol int // starting line, starting 0-indexed column
	EndLn, EndCol     int // ending line, column trailing token (one over)
}

// TextPositionFromRange takes two positions and computes the text position
// spanning them.
func TextPositionFromRange(start, end *TextPosition) *TextPosition {
	return &TextPosition{
		StartLn:  start.StartLn,
		StartCol: start.StartCol,
		EndLn:    end.EndLn,
		EndCol:   end.EndCol,
	}
}

func (tp *TextPosition) Repr() string {
	return fmt.Sprintf("%d:%d", tp.StartLn+1, tp.StartCol+1)
}

// -----------------------------------------------------------------------------

// InlineFrame records one step of a synthetic-position provenance chain: code
// produced by the inline kernel keeps the position of the call site that
// produced it along with the callee it came from.
type InlineFrame struct {
	// The name of the callee whose body was expanded.
	Callee string

	// The position of the call site in the caller.
	CallSite *TextPosition
}

// Provenance is the chain of inline frames leading to a synthetic position,
// outermost call first.
type Provenance []InlineFrame

// Extend returns a new provenance chain with one more frame appended.
func (p Provenance) Extend(callee string, callSite *TextPosition) Provenance {
	next := make(Provenance, len(p), len(p)+1)
	copy(next, p)
	return append(next, InlineFrame{Callee: callee, CallSite: callSite})
}

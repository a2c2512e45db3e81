package report

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = SuccessColorFG
	InfoStyleBG    = SuccessStyleBG
)

// PrintErrorMessage prints a standard error to the console.
func PrintErrorMessage(tag string, err error) {
	ErrorStyleBG.Print(tag)
	ErrorColorFG.Println(" " + err.Error())
}

// PrintWarningMessage prints a warning message to the console.
func PrintWarningMessage(tag, msg string) {
	WarnStyleBG.Print(tag)
	WarnColorFG.Println(" " + msg)
}

// PrintInfoMessage prints an informational message to the user.
func PrintInfoMessage(tag, msg string) {
	InfoStyleBG.Print(tag)
	InfoColorFG.Println(" " + msg)
}

// -----------------------------------------------------------------------------

func displayCompileError(err *CompileError) {
	PrintErrorMessage(err.Kind.Repr()+" Error", err)

	// Inlined code reports the chain of call sites that produced it.
	for _, frame := range err.Provenance {
		if frame.CallSite != nil {
			ErrorColorFG.Printf("  in expansion of `%s` at %s\n", frame.Callee, frame.CallSite.Repr())
		} else {
			ErrorColorFG.Printf("  in expansion of `%s`\n", frame.Callee)
		}
	}

	for _, w := range err.Witness {
		ErrorColorFG.Println("  witness: " + w)
	}
}

func displayCompileWarning(w *CompileWarning) {
	if w.Position != nil {
		PrintWarningMessage("Warning", fmt.Sprintf("%s at %s", w.Message, w.Position.Repr()))
	} else {
		PrintWarningMessage("Warning", w.Message)
	}
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal compiler error.  These are errors that
// specifically result from a bug or unexpected condition occurring within the
// compiler: they are not intended to ever happen.  These errors are always
// displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	ErrorStyleBG.Print("Internal Error")
	ErrorColorFG.Println(" " + fmt.Sprintf(message, args...))
	os.Exit(1)
}

package report

import (
	"sync"
)

// Reporter is responsible for collecting and reporting errors, warnings, and
// other kinds of messages to the user during compilation.  The reporter
// respects the set log level and is synchronized: its methods can be safely
// called from multiple goroutines.
type Reporter struct {
	// The mutex used to synchronize different error method calls.
	m *sync.Mutex

	// The selected log level of the reporter.  This must be one of the
	// enumerated log levels below.
	logLevel int

	// errors is the buffer of compile errors accumulated so far.  Errors are
	// buffered rather than thrown: all failure paths in the analyses return a
	// result and record their diagnostic here.
	errors []*CompileError

	// warnings is the buffer of warnings accumulated so far.
	warnings []*CompileWarning
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors to the user.
	LogLevelWarn           // Displays only warnings and errors to the user.
	LogLevelVerbose        // Displays all compilation messages to the user (default).
)

// CompileWarning is a non-fatal diagnostic.
type CompileWarning struct {
	Message  string
	Position *TextPosition
}

// NewReporter creates a new reporter with the given log level.
func NewReporter(logLevel int) *Reporter {
	return &Reporter{
		m:        &sync.Mutex{},
		logLevel: logLevel,
	}
}

// ReportError records a compile error and displays it per the log level.
func (r *Reporter) ReportError(err *CompileError) {
	r.m.Lock()
	defer r.m.Unlock()

	r.errors = append(r.errors, err)

	if r.logLevel >= LogLevelError {
		displayCompileError(err)
	}
}

// ReportWarning records a compile warning and displays it per the log level.
func (r *Reporter) ReportWarning(pos *TextPosition, msg string) {
	r.m.Lock()
	defer r.m.Unlock()

	w := &CompileWarning{Message: msg, Position: pos}
	r.warnings = append(r.warnings, w)

	if r.logLevel >= LogLevelWarn {
		displayCompileWarning(w)
	}
}

// ShouldProceed indicates whether or not there have been any errors that
// should cause compilation to stop at the current phase.
func (r *Reporter) ShouldProceed() bool {
	r.m.Lock()
	defer r.m.Unlock()

	return len(r.errors) == 0
}

// Errors returns the buffered compile errors in report order.
func (r *Reporter) Errors() []*CompileError {
	r.m.Lock()
	defer r.m.Unlock()

	errs := make([]*CompileError, len(r.errors))
	copy(errs, r.errors)
	return errs
}

// ErrorCount returns the number of buffered errors.
func (r *Reporter) ErrorCount() int {
	r.m.Lock()
	defer r.m.Unlock()

	return len(r.errors)
}

// LogLevel returns the reporter's log level.
func (r *Reporter) LogLevel() int {
	return r.logLevel
}

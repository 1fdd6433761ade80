package report

import (
	"fmt"
	"os"
)

// BuildError is a fatal error produced while building a compilation unit.  All
// build errors name the declaration that caused them so the invoking toolchain
// can locate the offending input.
type BuildError struct {
	// Kind is the category of the error: one of the enumerated error kinds.
	Kind int

	// Decl is the name of the offending declaration.
	Decl string

	// The error message.
	Message string
}

// Enumeration of build error kinds.
const (
	ErrKindLayout      = iota // Incomplete type used by value.
	ErrKindCycle              // Cycle in the base-class graph.
	ErrKindInheritance        // Conflicting virtual-base shapes.
	ErrKindSymbol             // Reference to an undeclared symbol.
	ErrKindUnit               // Invalid unit manifest or declaration set.
)

func (be *BuildError) Error() string {
	return fmt.Sprintf("in `%s`: %s", be.Decl, be.Message)
}

// Raise creates a new build error of the given kind for the given declaration.
func Raise(kind int, decl, msg string, args ...interface{}) *BuildError {
	return &BuildError{Kind: kind, Decl: decl, Message: fmt.Sprintf(msg, args...)}
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal compiler error.  These are errors that
// specifically result from a bug or unexpected condition occurring within the
// compiler: they are not intended to ever happen.  These errors are always
// displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error.  These are errors that should cause the
// build to stop immediately.  However, they are expected errors that generally
// result from invalid configuration of some form: missing unit manifest,
// unwritable output path, etc.
func ReportFatal(message string, args ...interface{}) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	if rep.shows(LogLevelError) {
		displayFatal(fmt.Sprintf(message, args...))
	}

	os.Exit(1)
}

// ReportBuildError reports a build error: ie. an erroneous declaration set.
// The error is recorded even when the log level suppresses its display.
func ReportBuildError(be *BuildError) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	if rep.recordError() {
		displayBuildError(be)
	}
}

// ReportUnitWarning reports a warning produced while loading a unit.
func ReportUnitWarning(unitName, msg string) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	if rep.shows(LogLevelWarn) {
		displayWarning(unitName, msg)
	}
}

// -----------------------------------------------------------------------------

// AnyErrors returns whether or not any errors were detected.
func AnyErrors() bool {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	return rep.errorCount > 0
}

// -----------------------------------------------------------------------------

// CatchErrors catches any errors thrown by a `panic` during a stage of the
// build.  In effect, this handler determines when any errors "unrecoverable"
// within a given subsection of the compiler should stop bubbling.
// NB: This function must ALWAYS be deferred.
func CatchErrors() {
	if x := recover(); x != nil {
		if berr, ok := x.(*BuildError); ok {
			ReportBuildError(berr)
		} else {
			ReportICE("%s", x)
		}
	}
}

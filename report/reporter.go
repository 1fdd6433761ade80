package report

import "sync"

// Log levels, ordered by verbosity.  A message is displayed only when the
// reporter's level is at or above the level its class requires.
const (
	LogLevelSilent  = iota // No output at all.
	LogLevelError          // Errors only.
	LogLevelWarn           // Warnings and errors.
	LogLevelVerbose        // Everything, including build progress (default).
)

// reporter serializes all user-facing output for one build and tracks how
// many build errors it has recorded.  Layout, object building, and generation
// all report through the same instance, so every entry point locks.
type reporter struct {
	mu sync.Mutex

	logLevel   int
	errorCount int
}

// rep is the active reporter.  It starts at the verbose default so failures
// occurring before InitReporter runs are never swallowed.
var rep = &reporter{logLevel: LogLevelVerbose}

// InitReporter sets the log level for the build.
func InitReporter(logLevel int) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	rep.logLevel = logLevel
}

// recordError bumps the build's error count and reports whether the error
// should also be displayed.  The count grows even when display is suppressed:
// a silent build must still fail.
func (r *reporter) recordError() bool {
	r.errorCount++
	return r.shows(LogLevelError)
}

// shows reports whether messages requiring the given level are displayed.
func (r *reporter) shows(level int) bool {
	return r.logLevel >= level
}

package inject

import (
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
)

// Logger is an injected study logger.
type Logger struct {
	plugins.Logger
	SetMaxProgressFunc func(total int)
	PrintProgressFunc  func(current int)
	PrintResultsFunc   func(results reachdb.StudyResults)
	PrintFunc          func(msg string)
}

// SetMaxProgress calls the injected SetMaxProgress or the real version.
func (l *Logger) SetMaxProgress(total int) {
	if l.SetMaxProgressFunc == nil {
		l.Logger.SetMaxProgress(total)
		return
	}
	l.SetMaxProgressFunc(total)
}

// PrintProgress calls the injected PrintProgress or the real version.
func (l *Logger) PrintProgress(current int) {
	if l.PrintProgressFunc == nil {
		l.Logger.PrintProgress(current)
		return
	}
	l.PrintProgressFunc(current)
}

// PrintResults calls the injected PrintResults or the real version.
func (l *Logger) PrintResults(results reachdb.StudyResults) {
	if l.PrintResultsFunc == nil {
		l.Logger.PrintResults(results)
		return
	}
	l.PrintResultsFunc(results)
}

// Print calls the injected Print or the real version.
func (l *Logger) Print(msg string) {
	if l.PrintFunc == nil {
		l.Logger.Print(msg)
		return
	}
	l.PrintFunc(msg)
}

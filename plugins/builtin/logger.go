package builtin

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"go.viam.com/reach/logging"
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/registry"
)

// ConsoleLoggerConfig configures a ConsoleLogger.
type ConsoleLoggerConfig struct {
	// Color highlights the progress percentage even when the output is not a terminal.
	Color bool `json:"color"`
}

// ConsoleLogger prints progress as a percentage and results as a table.
type ConsoleLogger struct {
	mu          sync.Mutex
	out         io.Writer
	total       int
	lastPercent int
	// percent is nil when progress is printed plain.
	percent *color.Color
}

// NewConsoleLogger returns a console logger writing to out.
func NewConsoleLogger(out io.Writer) *ConsoleLogger {
	return &ConsoleLogger{out: out, lastPercent: -1}
}

// EnableColor highlights the progress percentage.
func (l *ConsoleLogger) EnableColor() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.percent = color.New(color.FgGreen, color.Bold)
	l.percent.EnableColor()
}

func newConsoleLogger(env registry.Env, attrs registry.Attributes) (plugins.Logger, error) {
	var cfg ConsoleLoggerConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	l := NewConsoleLogger(os.Stdout)
	if cfg.Color {
		l.EnableColor()
	}
	return l, nil
}

// SetMaxProgress sets the count progress is measured against.
func (l *ConsoleLogger) SetMaxProgress(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
	l.lastPercent = -1
}

// PrintProgress prints the progress whenever the whole percentage changes.
func (l *ConsoleLogger) PrintProgress(current int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	percent := 100
	if l.total > 0 {
		percent = 100 * current / l.total
	}
	if percent == l.lastPercent {
		return
	}
	l.lastPercent = percent
	label := fmt.Sprintf("[%3d%%]", percent)
	if l.percent != nil {
		label = l.percent.Sprint(label)
	}
	fmt.Fprintf(l.out, "%s %d/%d\n", label, current, l.total)
}

// PrintResults prints the results table.
func (l *ConsoleLogger) PrintResults(results reachdb.StudyResults) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, results.String())
}

// Print prints msg on its own line.
func (l *ConsoleLogger) Print(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, msg)
}

// LogLogger reports study progress as structured log lines.
type LogLogger struct {
	logger logging.Logger
	mu     sync.Mutex
	total  int
}

// NewLogLogger returns a study logger writing to logger.
func NewLogLogger(logger logging.Logger) *LogLogger {
	return &LogLogger{logger: logger}
}

func newLogLogger(env registry.Env, attrs registry.Attributes) (plugins.Logger, error) {
	if err := registry.DecodeAttributes(attrs, &struct{}{}); err != nil {
		return nil, err
	}
	return NewLogLogger(env.Logger), nil
}

// SetMaxProgress sets the count progress is measured against.
func (l *LogLogger) SetMaxProgress(total int) {
	l.mu.Lock()
	l.total = total
	l.mu.Unlock()
}

// PrintProgress logs the current count.
func (l *LogLogger) PrintProgress(current int) {
	l.mu.Lock()
	total := l.total
	l.mu.Unlock()
	l.logger.Infow("progress", "current", current, "total", total)
}

// PrintResults logs every field of the results.
func (l *LogLogger) PrintResults(results reachdb.StudyResults) {
	l.logger.Infow("results",
		"poses", results.Total,
		"reachable", results.Reachable,
		"coverage", results.Coverage,
		"total_score", results.TotalScore,
		"mean_score", results.MeanScore,
		"median_score", results.MedianScore,
		"mean_reachable_score", results.MeanReachableScore,
	)
}

// Print logs msg.
func (l *LogLogger) Print(msg string) {
	l.logger.Info(msg)
}

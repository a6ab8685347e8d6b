// Package progress reports hierarchical task progress.
//
// Every long-running operation receives a Sink. Sinks nest: a child sink
// reports under its parent's path, so concurrent builds and pushes stay
// attributable in interleaved output.
package progress

import "fmt"

// Level classifies a progress message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelSuccess
	LevelFailure
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelSuccess:
		return "success"
	case LevelFailure:
		return "failure"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Sink receives progress for a single task.
type Sink interface {
	// Child returns a sink for a named subtask.
	Child(name string) Sink
	// Message reports a line of status for this task.
	Message(level Level, msg string)
	// Init sets the number of units this task will complete.
	Init(total int)
	// Inc marks one unit complete.
	Inc()
}

func Debug(s Sink, format string, args ...any) {
	s.Message(LevelDebug, fmt.Sprintf(format, args...))
}

func Info(s Sink, format string, args ...any) {
	s.Message(LevelInfo, fmt.Sprintf(format, args...))
}

func Warn(s Sink, format string, args ...any) {
	s.Message(LevelWarn, fmt.Sprintf(format, args...))
}

// Done reports that the task finished successfully.
func Done(s Sink, format string, args ...any) {
	s.Message(LevelSuccess, fmt.Sprintf(format, args...))
}

// Fail reports that the task failed.
func Fail(s Sink, format string, args ...any) {
	s.Message(LevelFailure, fmt.Sprintf(format, args...))
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Child(string) Sink     { return discard{} }
func (discard) Message(Level, string) {}
func (discard) Init(int)              {}
func (discard) Inc()                  {}

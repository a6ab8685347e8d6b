package progress

import (
	"io"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const pathSep = " › "

// Log is a Sink that writes structured events to a zerolog logger.
// Each event carries the task path; counters are tracked per task.
type Log struct {
	logger zerolog.Logger
	path   []string
	total  *atomic.Int64
	done   *atomic.Int64
}

// NewLog returns the root sink for logger.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger, total: new(atomic.Int64), done: new(atomic.Int64)}
}

// NewLogger builds the console logger used by the CLI.
func NewLogger(w io.Writer, level zerolog.Level, color bool) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, NoColor: !color, TimeFormat: "15:04:05"}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

func (l *Log) Child(name string) Sink {
	return &Log{
		logger: l.logger,
		path:   append(slices.Clone(l.path), name),
		total:  new(atomic.Int64),
		done:   new(atomic.Int64),
	}
}

func (l *Log) Message(level Level, msg string) {
	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = l.logger.Debug()
	case LevelWarn:
		ev = l.logger.Warn()
	case LevelSuccess:
		ev = l.logger.Info().Str("status", "done")
	case LevelFailure:
		ev = l.logger.Error().Str("status", "failed")
	default:
		ev = l.logger.Info()
	}
	l.withTask(ev).Msg(msg)
}

func (l *Log) Init(total int) {
	l.total.Store(int64(total))
	l.done.Store(0)
}

func (l *Log) Inc() {
	n := l.done.Add(1)
	l.withTask(l.logger.Debug()).
		Int64("done", n).
		Int64("total", l.total.Load()).
		Msg("progress")
}

// Path is the joined task path of this sink.
func (l *Log) Path() string {
	return strings.Join(l.path, pathSep)
}

func (l *Log) withTask(ev *zerolog.Event) *zerolog.Event {
	if len(l.path) == 0 {
		return ev
	}
	return ev.Str("task", l.Path())
}

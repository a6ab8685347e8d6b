package progress

import (
	"slices"
	"strings"
	"sync"
)

// Entry is one recorded message.
type Entry struct {
	Path  string
	Level Level
	Msg   string
}

// Recorder is a Sink that keeps every message in memory. Safe for
// concurrent use; children share the parent's log.
type Recorder struct {
	state *recorderState
	path  []string
}

type recorderState struct {
	mu      sync.Mutex
	entries []Entry
	totals  map[string]int
	ticks   map[string]int
}

func NewRecorder() *Recorder {
	return &Recorder{state: &recorderState{
		totals: make(map[string]int),
		ticks:  make(map[string]int),
	}}
}

func (r *Recorder) Child(name string) Sink {
	return &Recorder{state: r.state, path: append(slices.Clone(r.path), name)}
}

func (r *Recorder) Message(level Level, msg string) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.entries = append(r.state.entries, Entry{Path: r.key(), Level: level, Msg: msg})
}

func (r *Recorder) Init(total int) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.totals[r.key()] = total
}

func (r *Recorder) Inc() {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.ticks[r.key()]++
}

// Entries returns a copy of every message recorded so far.
func (r *Recorder) Entries() []Entry {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return slices.Clone(r.state.entries)
}

// Ticks returns the Init total and Inc count recorded at path.
func (r *Recorder) Ticks(path string) (total, done int) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return r.state.totals[path], r.state.ticks[path]
}

// Has reports whether a message at level containing substr was recorded.
func (r *Recorder) Has(level Level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Msg, substr) {
			return true
		}
	}
	return false
}

func (r *Recorder) key() string {
	return strings.Join(r.path, pathSep)
}

package build

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sofmeright/steiger/src/progress"
)

// ExitError is returned when an external tool exits unsuccessfully.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + truncate(strings.TrimSpace(e.Stderr), 512)
	}
	return msg
}

// Run starts cmd and forwards each line it writes on stdout and stderr to
// sink until it exits.
func Run(cmd *exec.Cmd, sink progress.Sink) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	progress.Debug(sink, "exec: %s", describe(cmd))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", commandName(cmd), err)
	}

	// Keep the tail of stderr for the error message.
	var tail tailBuffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		forward(stdout, sink, nil)
	}()
	go func() {
		defer wg.Done()
		forward(stderr, sink, &tail)
	}()
	wg.Wait()

	return exitError(cmd, cmd.Wait(), tail.String())
}

// Capture runs cmd and returns its stdout.
func Capture(cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", exitError(cmd, err, stderr.String())
	}
	return stdout.String(), nil
}

// maxLineLength caps a forwarded line; the rest of a longer line is
// read and dropped.
const maxLineLength = 64 * 1024

// forward reports every line of r at debug level until r is exhausted.
func forward(r io.Reader, sink progress.Sink, tail *tailBuffer) {
	br := bufio.NewReaderSize(r, 4096)
	var line []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if len(line) < maxLineLength {
			line = append(line, chunk[:min(len(chunk), maxLineLength-len(line))]...)
		}
		if isPrefix && err == nil {
			continue
		}
		if err == nil || len(line) > 0 {
			emit(string(line), sink, tail)
		}
		line = line[:0]
		if err != nil {
			// The pipe must be drained or the tool blocks on write.
			io.Copy(io.Discard, r)
			return
		}
	}
}

func emit(line string, sink progress.Sink, tail *tailBuffer) {
	if tail != nil {
		tail.add(line)
	}
	if strings.TrimSpace(line) == "" {
		return
	}
	sink.Message(progress.LevelDebug, line)
}

func exitError(cmd *exec.Cmd, err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: commandName(cmd), Code: exitErr.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("running %s: %w", commandName(cmd), err)
}

func commandName(cmd *exec.Cmd) string {
	name := filepath.Base(cmd.Path)
	if len(cmd.Args) > 1 {
		name += " " + cmd.Args[1]
	}
	return name
}

func describe(cmd *exec.Cmd) string {
	return strings.Join(append([]string{filepath.Base(cmd.Path)}, cmd.Args[1:]...), " ")
}

// tailBuffer keeps the last few lines written to it.
type tailBuffer struct {
	lines []string
}

const tailLines = 20

func (t *tailBuffer) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > tailLines {
		t.lines = t.lines[len(t.lines)-tailLines:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}

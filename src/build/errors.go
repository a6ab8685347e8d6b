package build

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/image"
)

// ErrInit marks a backend that could not be initialized.
var ErrInit = errors.New("builder initialization failed")

// Stage is where a target failed.
type Stage string

const (
	StageInit  Stage = "init"
	StageBuild Stage = "build"
	StageLoad  Stage = "load"
)

// TargetError is the failure of one configured target.
type TargetError struct {
	Target string
	Kind   config.Kind
	Stage  Stage
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s (%s) %s: %v", e.Target, e.Kind, e.Stage, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// BuildError aggregates every failed target of a run.
type BuildError struct {
	Failures []*TargetError
	Total    int
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d of %d targets failed: %s", len(e.Failures), e.Total, strings.Join(msgs, "; "))
}

func (e *BuildError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// stageOf classifies a builder error.
func stageOf(err error) Stage {
	var loadErr *image.LoadError
	if errors.As(err, &loadErr) {
		return StageLoad
	}
	return StageBuild
}

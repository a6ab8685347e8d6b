package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidReference is wrapped by reference parse failures.
var ErrInvalidReference = errors.New("invalid image reference")

// PushError is the failure of one artifact's publish.
type PushError struct {
	Artifact string
	Ref      string
	Err      error
}

func (e *PushError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %v", e.Artifact, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Artifact, e.Ref, e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }

// PublishError aggregates the failed artifacts of a publish run.
type PublishError struct {
	Failures []*PushError
}

func (e *PublishError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("failed to publish %d artifacts: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *PublishError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

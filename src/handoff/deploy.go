package handoff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/progress"
)

// Deployer rolls out one release using the images in a Document.
type Deployer interface {
	// Validate checks the release before anything is deployed.
	Validate(ctx context.Context, rel config.Release) error
	Deploy(ctx context.Context, sink progress.Sink, rel config.Release, doc *Document) error
}

// ReleaseError is the failure of one release.
type ReleaseError struct {
	Release string
	Err     error
}

func (e *ReleaseError) Error() string { return fmt.Sprintf("%s: %v", e.Release, e.Err) }

func (e *ReleaseError) Unwrap() error { return e.Err }

// DeployError aggregates the failed releases of a run.
type DeployError struct {
	Failures []*ReleaseError
	// Validation is set when nothing was deployed because a release
	// failed validation.
	Validation bool
}

func (e *DeployError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d releases failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

func (e *DeployError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Manager validates and deploys releases. The helm deployer is created on
// first use.
type Manager struct {
	newHelm func() (Deployer, error)

	mu   sync.Mutex
	helm Deployer
}

func NewManager(newHelm func() (Deployer, error)) *Manager {
	return &Manager{newHelm: newHelm}
}

func (m *Manager) deployer(rel config.Release) (Deployer, error) {
	if rel.Helm == nil {
		return nil, errors.New("release has no deploy configuration")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.helm == nil {
		d, err := m.newHelm()
		if err != nil {
			return nil, err
		}
		m.helm = d
	}
	return m.helm, nil
}

// Run validates every release, then deploys them all concurrently. A
// validation failure deploys nothing; deployment failures are collected
// into a *DeployError once every release has finished.
func (m *Manager) Run(ctx context.Context, sink progress.Sink, releases config.Releases, doc *Document) error {
	deployers := make([]Deployer, len(releases))
	var invalid []*ReleaseError
	for i, rel := range releases {
		d, err := m.deployer(rel)
		if err == nil {
			err = d.Validate(ctx, rel)
		}
		if err != nil {
			invalid = append(invalid, &ReleaseError{Release: rel.Name, Err: err})
			continue
		}
		deployers[i] = d
	}
	if len(invalid) > 0 {
		return &DeployError{Failures: invalid, Validation: true}
	}

	errs := make([]error, len(releases))
	var wg sync.WaitGroup
	for i, rel := range releases {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := sink.Child(rel.Name)
			if err := deployers[i].Deploy(ctx, child, rel, doc); err != nil {
				progress.Fail(child, "%v", err)
				errs[i] = err
				return
			}
			progress.Done(child, "deployed")
		}()
	}
	wg.Wait()

	var failures []*ReleaseError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, &ReleaseError{Release: releases[i].Name, Err: err})
		}
	}
	if len(failures) > 0 {
		return &DeployError{Failures: failures}
	}
	return nil
}

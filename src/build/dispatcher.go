package build

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/progress"
)

// Dispatcher builds every configured service concurrently. Backends are
// created lazily, at most once per kind, and reused across targets.
type Dispatcher struct {
	services config.Services
	registry *Registry
	workRoot string

	mu       sync.Mutex
	backends map[config.Kind]Builder
}

// Result is the merged output of a run.
type Result struct {
	Output  Output
	Elapsed time.Duration
}

// NewDispatcher returns a dispatcher for services. Each target gets its
// own scratch directory under workRoot.
func NewDispatcher(services config.Services, registry *Registry, workRoot string) *Dispatcher {
	return &Dispatcher{
		services: services,
		registry: registry,
		workRoot: workRoot,
		backends: make(map[config.Kind]Builder),
	}
}

// backend returns the cached Builder for kind, creating it on first use.
func (d *Dispatcher) backend(kind config.Kind) (Builder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.backends[kind]; ok {
		return b, nil
	}
	factory, err := d.registry.Factory(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	b, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInit, kind, err)
	}
	d.backends[kind] = b
	return b, nil
}

// Run builds all services for platform and waits for every one of them.
// Successful outputs are merged in configuration order. If any target
// fails, the returned error is a *BuildError and Result still holds the
// outputs of the targets that succeeded. A backend that cannot be
// initialized stops scheduling at once; targets already started are
// joined and their outputs discarded.
func (d *Dispatcher) Run(ctx context.Context, platform string, sink progress.Sink) (*Result, error) {
	start := time.Now()
	progress.Info(sink.Child("meta"), "detected platform: %s", platform)

	type outcome struct {
		sink progress.Sink
		out  Output
		err  error
	}
	outcomes := make([]outcome, len(d.services))

	var (
		wg      sync.WaitGroup
		initErr *TargetError
		spawned int
	)
	for i, svc := range d.services {
		kind := svc.Build.Kind()
		b, err := d.backend(kind)
		if err != nil {
			initErr = &TargetError{Target: svc.Name, Kind: kind, Stage: StageInit, Err: err}
			progress.Fail(sink.Child(svc.Name), "%v", err)
			break
		}

		bctx := Context{
			Service:  svc.Name,
			Platform: platform,
			Progress: sink.Child(svc.Name),
			WorkDir:  filepath.Join(d.workRoot, svc.Name),
		}
		spawned++
		wg.Add(1)
		go func(i int, b Builder, bctx Context, cfg config.BuildConfig) {
			defer wg.Done()
			out, err := b.Build(ctx, bctx, cfg)
			outcomes[i] = outcome{sink: bctx.Progress, out: out, err: err}
		}(i, b, bctx, svc.Build)
	}
	wg.Wait()

	result := &Result{Output: NewOutput(), Elapsed: time.Since(start)}
	if initErr != nil {
		return result, &BuildError{Failures: []*TargetError{initErr}, Total: len(d.services)}
	}

	var failures []*TargetError
	for i, o := range outcomes[:spawned] {
		svc := d.services[i]
		if o.err != nil {
			progress.Fail(o.sink, "%v", o.err)
			failures = append(failures, &TargetError{
				Target: svc.Name,
				Kind:   svc.Build.Kind(),
				Stage:  stageOf(o.err),
				Err:    o.err,
			})
			continue
		}
		result.Output.Merge(o.out)
	}

	if len(failures) > 0 {
		return result, &BuildError{Failures: failures, Total: len(d.services)}
	}
	return result, nil
}

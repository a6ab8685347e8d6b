// Package build runs build backends and collects the images they produce.
package build

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/progress"
)

// Context carries per-target inputs to a Builder.
type Context struct {
	// Service is the configured target name.
	Service string
	// Platform is the os/arch string to build for.
	Platform string
	// Progress reports under this target's node.
	Progress progress.Sink
	// WorkDir is a scratch directory owned by this target for the run.
	WorkDir string
}

// Builder is the interface every build backend implements. A Builder is
// created once per dispatcher and may be used by several targets at once.
type Builder interface {
	Kind() config.Kind
	Build(ctx context.Context, bctx Context, cfg config.BuildConfig) (Output, error)
}

// Factory creates a Builder, probing for whatever tooling it needs.
type Factory func() (Builder, error)

// Registry maps backend kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[config.Kind]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[config.Kind]Factory)}
}

// Register adds a factory. Registering the same kind twice panics.
func (r *Registry) Register(kind config.Kind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		panic(fmt.Sprintf("build: duplicate builder registration: %s", kind))
	}
	r.factories[kind] = f
}

// Factory returns the factory registered for kind.
func (r *Registry) Factory(kind config.Kind) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("build: no builder registered for %q", kind)
	}
	return f, nil
}

// Kinds returns the sorted registered kinds.
func (r *Registry) Kinds() []config.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]config.Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Package engines holds the build backends: docker buildx, ko, bazel and nix.
package engines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/image"
)

// Registry returns a build.Registry with every backend registered.
func Registry() *build.Registry {
	r := build.NewRegistry()
	r.Register(config.KindDocker, NewDocker)
	r.Register(config.KindKo, NewKo)
	r.Register(config.KindBazel, NewBazel)
	r.Register(config.KindNix, NewNix)
	return r
}

// layoutDir creates and returns the directory a backend writes its OCI
// layout into.
func layoutDir(bctx build.Context) (string, error) {
	dir := filepath.Join(bctx.WorkDir, "oci")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating layout dir: %w", err)
	}
	return dir, nil
}

// loadArtifact loads the layout at dir as the single artifact name.
func loadArtifact(ctx context.Context, name, dir string) (build.Output, error) {
	images, err := image.LoadFromPath(ctx, dir)
	if err != nil {
		return build.Output{}, err
	}
	return build.SingleArtifact(name, images), nil
}

func wrongConfig(kind config.Kind, cfg config.BuildConfig) error {
	return fmt.Errorf("%s builder: got %q build config", kind, cfg.Kind())
}

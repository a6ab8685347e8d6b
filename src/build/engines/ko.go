package engines

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/progress"
)

// Ko builds Go main packages with ko.
type Ko struct {
	binary string
}

func NewKo() (build.Builder, error) {
	bin, err := exec.LookPath("ko")
	if err != nil {
		return nil, fmt.Errorf("ko not found in PATH: %w", err)
	}
	return &Ko{binary: bin}, nil
}

func (k *Ko) Kind() config.Kind { return config.KindKo }

func (k *Ko) Build(ctx context.Context, bctx build.Context, cfg config.BuildConfig) (build.Output, error) {
	in := cfg.Ko
	if in == nil {
		return build.Output{}, wrongConfig(config.KindKo, cfg)
	}

	dest, err := layoutDir(bctx)
	if err != nil {
		return build.Output{}, err
	}

	progress.Info(bctx.Progress, "building %s", in.Package())
	cmd := exec.CommandContext(ctx, k.binary, koArgs(in, bctx.Platform, dest)...)
	if err := build.Run(cmd, bctx.Progress.Child("ko")); err != nil {
		return build.Output{}, fmt.Errorf("ko build: %w", err)
	}
	progress.Done(bctx.Progress, "build finished")

	return loadArtifact(ctx, bctx.Service, dest)
}

func koArgs(in *config.KoBuild, platform, dest string) []string {
	return []string{
		"build",
		"--push=false",
		"--platform", platform,
		"--oci-layout-path", dest,
		in.Package(),
	}
}

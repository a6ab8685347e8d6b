package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/image"
	"github.com/sofmeright/steiger/src/progress"
)

// Nix builds flake packages whose outputs are OCI layouts.
type Nix struct {
	binary string
}

func NewNix() (build.Builder, error) {
	bin, err := exec.LookPath("nix")
	if err != nil {
		return nil, fmt.Errorf("nix not found in PATH: %w", err)
	}
	return &Nix{binary: bin}, nil
}

func (n *Nix) Kind() config.Kind { return config.KindNix }

func (n *Nix) Build(ctx context.Context, bctx build.Context, cfg config.BuildConfig) (build.Output, error) {
	in := cfg.Nix
	if in == nil {
		return build.Output{}, wrongConfig(config.KindNix, cfg)
	}
	sink := bctx.Progress

	system, err := SystemFor(bctx.Platform)
	if err != nil {
		return build.Output{}, err
	}

	systems := in.Systems
	if len(systems) == 0 {
		if systems, err = n.systems(ctx, in.FlakeRef()); err != nil {
			return build.Output{}, err
		}
	}
	if !slices.Contains(systems, system) {
		progress.Info(sink, "flake has no packages for %s, skipping", system)
		return build.NewOutput(), nil
	}

	result := build.NewOutput()
	var mu sync.Mutex
	sink.Init(len(in.Packages))

	g, gctx := errgroup.WithContext(ctx)
	for name, attr := range in.Packages {
		g.Go(func() error {
			installable := fmt.Sprintf("%s#packages.%s.%s", in.FlakeRef(), system, attr)
			progress.Info(sink, "building %s", installable)
			out, err := build.Capture(exec.CommandContext(gctx, n.binary, "build", "--no-link", "--print-out-paths", installable))
			if err != nil {
				return fmt.Errorf("nix build %s: %w", installable, err)
			}
			path := lastLine(out)
			if path == "" {
				return fmt.Errorf("nix build %s printed no output path", installable)
			}
			images, err := image.LoadFromPath(gctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Artifacts[name] = images
			mu.Unlock()
			sink.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return build.Output{}, err
	}
	progress.Done(sink, "build finished")
	return result, nil
}

// systems lists the systems the flake exposes packages for.
func (n *Nix) systems(ctx context.Context, flake string) ([]string, error) {
	out, err := build.Capture(exec.CommandContext(ctx, n.binary,
		"eval", "--json", flake+"#packages", "--apply", "builtins.attrNames"))
	if err != nil {
		return nil, fmt.Errorf("detecting flake systems: %w", err)
	}
	var systems []string
	if err := json.Unmarshal([]byte(out), &systems); err != nil {
		return nil, fmt.Errorf("parsing flake systems: %w", err)
	}
	return systems, nil
}

// SystemFor maps an OCI platform to a nix system double.
func SystemFor(platform string) (string, error) {
	p, err := image.ParsePlatform(platform)
	if err != nil {
		return "", err
	}
	var arch string
	switch p.Architecture {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	case "riscv64":
		arch = "riscv64"
	default:
		return "", fmt.Errorf("no nix system for architecture %q", p.Architecture)
	}
	return arch + "-" + p.OS, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

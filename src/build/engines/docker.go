package engines

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/progress"
)

// builderName is the buildx builder steiger creates and reuses. The
// docker-container driver is the only one that can export OCI layouts.
const builderName = "steiger"

// Docker builds Dockerfiles with docker buildx.
type Docker struct {
	binary string
}

// NewDocker locates the docker CLI.
func NewDocker() (build.Builder, error) {
	bin, err := exec.LookPath("docker")
	if err != nil {
		return nil, fmt.Errorf("docker not found in PATH: %w", err)
	}
	return &Docker{binary: bin}, nil
}

func (d *Docker) Kind() config.Kind { return config.KindDocker }

func (d *Docker) Build(ctx context.Context, bctx build.Context, cfg config.BuildConfig) (build.Output, error) {
	in := cfg.Docker
	if in == nil {
		return build.Output{}, wrongConfig(config.KindDocker, cfg)
	}
	sink := bctx.Progress

	unused, err := checkDockerfile(in)
	if err != nil {
		return build.Output{}, err
	}
	if len(unused) > 0 {
		progress.Warn(sink, "build args not declared in %s: %s", in.DockerfilePath(), strings.Join(unused, ", "))
	}

	if err := d.ensureBuilder(ctx, sink); err != nil {
		return build.Output{}, err
	}

	dest, err := layoutDir(bctx)
	if err != nil {
		return build.Output{}, err
	}

	progress.Info(sink, "building %s", in.DockerfilePath())
	cmd := exec.CommandContext(ctx, d.binary, buildxArgs(in, bctx.Platform, dest)...)
	if err := build.Run(cmd, sink.Child("docker")); err != nil {
		return build.Output{}, fmt.Errorf("docker buildx build: %w", err)
	}
	progress.Done(sink, "build finished")

	return loadArtifact(ctx, bctx.Service, dest)
}

// ensureBuilder creates the steiger buildx builder unless it exists.
func (d *Docker) ensureBuilder(ctx context.Context, sink progress.Sink) error {
	out, err := build.Capture(exec.CommandContext(ctx, d.binary, "buildx", "ls", "--format", "json"))
	if err != nil {
		return fmt.Errorf("listing buildx builders: %w", err)
	}
	names, err := parseBuilderList(out)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == builderName {
			return nil
		}
	}

	progress.Info(sink, "creating buildx builder %q", builderName)
	create := exec.CommandContext(ctx, d.binary, "buildx", "create", "--driver=docker-container", "--name="+builderName)
	if err := build.Run(create, sink.Child("buildx")); err != nil {
		return fmt.Errorf("creating buildx builder: %w", err)
	}
	return nil
}

// parseBuilderList reads the newline-delimited JSON of buildx ls.
func parseBuilderList(out string) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry struct {
			Name string `json:"Name"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parsing buildx ls output: %w", err)
		}
		names = append(names, entry.Name)
	}
	return names, scanner.Err()
}

// buildxArgs constructs the docker buildx build argument list.
func buildxArgs(in *config.DockerBuild, platform, dest string) []string {
	args := []string{
		"buildx", "build",
		"--builder", builderName,
		"--platform", platform,
		"--output", fmt.Sprintf("type=oci,dest=%s,tar=false", dest),
		"--file", in.DockerfilePath(),
	}

	if in.Target != "" {
		args = append(args, "--target", in.Target)
	}

	keys := make([]string, 0, len(in.BuildArgs))
	for k := range in.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, in.BuildArgs[k]))
	}

	return append(args, in.ContextDir())
}

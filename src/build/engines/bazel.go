package engines

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/image"
	"github.com/sofmeright/steiger/src/progress"
)

// cqueryFormat prints one ["//pkg:name", "path"] pair per target, where
// path is the directory holding the target's OCI layout.
const cqueryFormat = `json.encode(["//{}:{}".format(target.label.package, target.label.name), target.files.to_list()[0].path])`

// Bazel builds rules_oci image targets.
type Bazel struct {
	binary string
}

func NewBazel() (build.Builder, error) {
	for _, name := range []string{"bazel", "bazelisk"} {
		if bin, err := exec.LookPath(name); err == nil {
			return &Bazel{binary: bin}, nil
		}
	}
	return nil, fmt.Errorf("neither bazel nor bazelisk found in PATH")
}

func (b *Bazel) Kind() config.Kind { return config.KindBazel }

func (b *Bazel) Build(ctx context.Context, bctx build.Context, cfg config.BuildConfig) (build.Output, error) {
	in := cfg.Bazel
	if in == nil {
		return build.Output{}, wrongConfig(config.KindBazel, cfg)
	}
	sink := bctx.Progress
	labels := in.Labels()

	args := []string{"build"}
	if p, ok := in.Platforms[bctx.Platform]; ok {
		progress.Info(sink, "using bazel platform %s", p)
		args = append(args, "--platforms="+p)
	}
	args = append(args, labels...)

	progress.Info(sink, "building %d targets", len(labels))
	if err := build.Run(exec.CommandContext(ctx, b.binary, args...), sink.Child("bazel")); err != nil {
		return build.Output{}, fmt.Errorf("bazel build: %w", err)
	}

	query := []string{"cquery", "--output=starlark", "--starlark:expr=" + cqueryFormat}
	if p, ok := in.Platforms[bctx.Platform]; ok {
		query = append(query, "--platforms="+p)
	}
	query = append(query, cqueryExpr(labels))
	out, err := build.Capture(exec.CommandContext(ctx, b.binary, query...))
	if err != nil {
		return build.Output{}, fmt.Errorf("bazel cquery: %w", err)
	}
	paths, err := parseCquery(out)
	if err != nil {
		return build.Output{}, err
	}

	result := build.NewOutput()
	for name, label := range in.Targets {
		path, ok := paths[normalizeLabel(label)]
		if !ok {
			return build.Output{}, fmt.Errorf("bazel cquery returned no output for %s", label)
		}
		images, err := image.LoadFromPath(ctx, path)
		if err != nil {
			return build.Output{}, err
		}
		result.Artifacts[name] = images
	}
	progress.Done(sink, "build finished")
	return result, nil
}

// parseCquery maps normalized labels to output paths.
func parseCquery(out string) (map[string]string, error) {
	paths := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var pair []string
		if err := json.Unmarshal([]byte(line), &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("unexpected cquery output line %q", line)
		}
		paths[normalizeLabel(pair[0])] = pair[1]
	}
	return paths, scanner.Err()
}

// cqueryExpr unions the quoted labels into one query expression.
func cqueryExpr(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return strings.Join(quoted, " union ")
}

// normalizeLabel strips the main-repository prefix and expands the
// shorthand "//a/b" to "a/b:b", so every spelling of a target compares
// equal to what cquery prints.
func normalizeLabel(label string) string {
	label = strings.TrimLeft(label, "@")
	label = strings.TrimPrefix(label, "//")
	if !strings.Contains(label, ":") {
		label += ":" + label[strings.LastIndex(label, "/")+1:]
	}
	return label
}

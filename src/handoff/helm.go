package handoff

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"unicode"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/progress"
)

// Helm deploys local charts with helm upgrade --install. Every image in
// the document is passed as steiger.<imageName>.image, with the image
// name in camelCase.
type Helm struct {
	binary string
}

func NewHelm() (Deployer, error) {
	bin, err := exec.LookPath("helm")
	if err != nil {
		return nil, fmt.Errorf("helm not found in PATH: %w", err)
	}
	return &Helm{binary: bin}, nil
}

func (h *Helm) Validate(_ context.Context, rel config.Release) error {
	info, err := os.Stat(rel.Helm.Path)
	if err != nil {
		return fmt.Errorf("helm chart %s: %w", rel.Helm.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("helm chart %s is not a directory", rel.Helm.Path)
	}
	return nil
}

func (h *Helm) Deploy(ctx context.Context, sink progress.Sink, rel config.Release, doc *Document) error {
	progress.Info(sink, "deploying chart %s", rel.Helm.Path)
	cmd := exec.CommandContext(ctx, h.binary, helmArgs(rel.Name, rel.Helm, doc)...)
	if err := build.Run(cmd, sink.Child("helm")); err != nil {
		return fmt.Errorf("helm upgrade: %w", err)
	}
	return nil
}

func helmArgs(name string, rel *config.HelmRelease, doc *Document) []string {
	args := []string{"upgrade", "--install", name, rel.Path}

	for _, b := range doc.Builds {
		args = append(args, "--set", fmt.Sprintf("steiger.%s.image=%s", camelCase(b.ImageName), b.Tag))
	}
	if rel.Timeout > 0 {
		args = append(args, "--timeout", rel.Timeout.String())
	}
	if rel.Namespace != "" {
		args = append(args, "--namespace", rel.Namespace)
	}

	keys := make([]string, 0, len(rel.Values))
	for k := range rel.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", fmt.Sprintf("%s=%s", k, rel.Values[k]))
	}
	for _, f := range rel.ValuesFiles {
		args = append(args, "--values", f)
	}
	return args
}

// camelCase turns "my-web_app" into "myWebApp" so image names are valid
// helm value keys.
func camelCase(s string) string {
	var b strings.Builder
	upper := false
	for i, r := range s {
		if r == '-' || r == '_' || r == '.' || unicode.IsSpace(r) {
			upper = b.Len() > 0
			continue
		}
		switch {
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		case i == 0:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

package output

import (
	"fmt"
	"sort"

	"github.com/sofmeright/steiger/src/build"
	"github.com/sofmeright/steiger/src/image"
	"github.com/sofmeright/steiger/src/registry"
)

// BuildRows lists every built artifact, then every failed target.
func BuildRows(sec *Section, out build.Output, failures []*build.TargetError) {
	for _, name := range out.Names() {
		images := out.Artifacts[name]
		platforms := make([]string, len(images))
		for i, img := range images {
			platforms[i] = image.FormatPlatform(img.Platform)
		}
		sec.StatusRow(name, fmt.Sprintf("%d image(s) %v", len(images), platforms), StatusSuccess)
	}
	for _, f := range failures {
		sec.StatusRow(f.Target, fmt.Sprintf("%s %s: %v", f.Kind, f.Stage, f.Err), StatusFailed)
	}
}

// PushRows lists every published artifact with its pinned reference,
// then every failed one.
func PushRows(sec *Section, results map[string]*registry.Result, failures []*registry.PushError) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		status := StatusSuccess
		detail := res.Reference.String()
		if res.Skipped {
			status = StatusSkipped
			detail += Dimmed(" (unchanged)", sec.color)
		}
		sec.StatusRow(name, detail, status)
	}
	for _, f := range failures {
		sec.StatusRow(f.Artifact, f.Err.Error(), StatusFailed)
	}
}

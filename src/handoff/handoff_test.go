package handoff

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/sofmeright/steiger/src/config"
	"github.com/sofmeright/steiger/src/progress"
	"github.com/sofmeright/steiger/src/registry"
)

func TestDocumentRoundTrip(t *testing.T) {
	d := digest.FromString("web")
	results := map[string]*registry.Result{
		"web": {Artifact: "web", Reference: registry.Reference{Registry: "registry.example", Repository: "org/web", Tag: "v1", Digest: d}},
		"api": {Artifact: "api", Reference: registry.Reference{Registry: "registry.example", Repository: "org/api", Tag: "v1", Digest: d}},
	}
	doc := FromResults(results)
	if doc.Builds[0].ImageName != "api" {
		t.Errorf("builds not sorted: %+v", doc.Builds)
	}

	path := filepath.Join(t.TempDir(), "build.json")
	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	tag, ok := got.Lookup("web")
	if !ok || tag != "registry.example/org/web:v1@"+d.String() {
		t.Errorf("Lookup(web) = %q, %v", tag, ok)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHelmArgs(t *testing.T) {
	rel := &config.HelmRelease{
		Path:        "./chart",
		Namespace:   "prod",
		Timeout:     5 * time.Minute,
		Values:      map[string]string{"replicas": "2", "debug": "false"},
		ValuesFiles: []string{"values.prod.yaml"},
	}
	doc := &Document{Builds: []Build{{ImageName: "web-frontend", Tag: "registry.example/org/web-frontend:v1"}}}

	got := helmArgs("app", rel, doc)
	want := []string{
		"upgrade", "--install", "app", "./chart",
		"--set", "steiger.webFrontend.image=registry.example/org/web-frontend:v1",
		"--timeout", "5m0s",
		"--namespace", "prod",
		"--set", "debug=false",
		"--set", "replicas=2",
		"--values", "values.prod.yaml",
	}
	if !slices.Equal(got, want) {
		t.Errorf("helmArgs:\n got  %v\n want %v", got, want)
	}
}

func TestCamelCase(t *testing.T) {
	for in, want := range map[string]string{
		"web":          "web",
		"web-frontend": "webFrontend",
		"my_api.v2":    "myApiV2",
		"-leading":     "leading",
		"Web":          "web",
	} {
		if got := camelCase(in); got != want {
			t.Errorf("camelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeDeployer struct {
	invalid  map[string]bool
	fail     map[string]bool
	deployed atomic.Int32
}

func (f *fakeDeployer) Validate(_ context.Context, rel config.Release) error {
	if f.invalid[rel.Name] {
		return errors.New("chart is not a directory")
	}
	return nil
}

func (f *fakeDeployer) Deploy(_ context.Context, _ progress.Sink, rel config.Release, _ *Document) error {
	f.deployed.Add(1)
	if f.fail[rel.Name] {
		return errors.New("release failed")
	}
	return nil
}

func releases(names ...string) config.Releases {
	var out config.Releases
	for _, n := range names {
		out = append(out, config.Release{Name: n, Helm: &config.HelmRelease{Path: "./" + n}})
	}
	return out
}

func TestManagerAggregatesFailures(t *testing.T) {
	fake := &fakeDeployer{fail: map[string]bool{"b": true}}
	var created atomic.Int32
	m := NewManager(func() (Deployer, error) {
		created.Add(1)
		return fake, nil
	})

	err := m.Run(context.Background(), progress.Discard, releases("a", "b", "c"), &Document{})
	var deployErr *DeployError
	if !errors.As(err, &deployErr) {
		t.Fatalf("expected *DeployError, got %v", err)
	}
	if len(deployErr.Failures) != 1 || deployErr.Failures[0].Release != "b" {
		t.Errorf("failures = %v", deployErr.Failures)
	}
	if fake.deployed.Load() != 3 {
		t.Errorf("every release must run; deployed %d", fake.deployed.Load())
	}
	if created.Load() != 1 {
		t.Errorf("deployer created %d times", created.Load())
	}
}

func TestManagerValidatesBeforeDeploying(t *testing.T) {
	fake := &fakeDeployer{invalid: map[string]bool{"c": true}}
	m := NewManager(func() (Deployer, error) { return fake, nil })

	err := m.Run(context.Background(), progress.Discard, releases("a", "c"), &Document{})
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fake.deployed.Load() != 0 {
		t.Error("nothing may deploy when validation fails")
	}
	var de *DeployError
	if !errors.As(err, &de) || !de.Validation || len(de.Failures) != 1 {
		t.Errorf("expected one validation failure, got %#v", err)
	}
}

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind names a build backend.
type Kind string

const (
	KindDocker Kind = "docker"
	KindKo     Kind = "ko"
	KindBazel  Kind = "bazel"
	KindNix    Kind = "nix"
)

// Kinds lists every supported backend.
var Kinds = []Kind{KindDocker, KindKo, KindBazel, KindNix}

// BuildConfig is a tagged union selected by the "type" key. Exactly one
// variant is set after decoding.
type BuildConfig struct {
	Docker *DockerBuild
	Ko     *KoBuild
	Bazel  *BazelBuild
	Nix    *NixBuild
}

// Kind returns the variant that is set, or "" for an empty config.
func (b BuildConfig) Kind() Kind {
	switch {
	case b.Docker != nil:
		return KindDocker
	case b.Ko != nil:
		return KindKo
	case b.Bazel != nil:
		return KindBazel
	case b.Nix != nil:
		return KindNix
	}
	return ""
}

func (b *BuildConfig) UnmarshalYAML(value *yaml.Node) error {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := value.Decode(&head); err != nil {
		return err
	}

	*b = BuildConfig{}
	switch Kind(head.Type) {
	case KindDocker:
		b.Docker = &DockerBuild{}
		return value.Decode(b.Docker)
	case KindKo:
		b.Ko = &KoBuild{}
		return value.Decode(b.Ko)
	case KindBazel:
		b.Bazel = &BazelBuild{}
		return value.Decode(b.Bazel)
	case KindNix:
		b.Nix = &NixBuild{}
		return value.Decode(b.Nix)
	case "":
		return fmt.Errorf("line %d: build type is required", value.Line)
	default:
		names := make([]string, len(Kinds))
		for i, k := range Kinds {
			names[i] = string(k)
		}
		return fmt.Errorf("line %d: unknown build type %q (supported: %s)",
			value.Line, head.Type, strings.Join(names, ", "))
	}
}

// DockerBuild builds a Dockerfile with buildx.
type DockerBuild struct {
	Context    string            `yaml:"context"`
	Dockerfile string            `yaml:"dockerfile"`
	Target     string            `yaml:"target"`
	BuildArgs  map[string]string `yaml:"buildArgs"`
}

// ContextDir returns the build context, defaulting to the working directory.
func (d *DockerBuild) ContextDir() string {
	if d.Context == "" {
		return "."
	}
	return d.Context
}

// DockerfilePath returns the Dockerfile, defaulting to <context>/Dockerfile.
func (d *DockerBuild) DockerfilePath() string {
	if d.Dockerfile == "" {
		return filepath.Join(d.ContextDir(), "Dockerfile")
	}
	return d.Dockerfile
}

// KoBuild builds a Go main package with ko.
type KoBuild struct {
	ImportPath string `yaml:"importPath"`
}

// Package returns the import path, defaulting to the current directory.
func (k *KoBuild) Package() string {
	if k.ImportPath == "" {
		return "."
	}
	return k.ImportPath
}

// BazelBuild maps artifact names to bazel labels producing OCI layouts.
type BazelBuild struct {
	Targets map[string]string `yaml:"targets"`
	// Platforms maps os/arch strings to bazel platform labels.
	Platforms map[string]string `yaml:"platforms"`
}

// Labels returns the target labels ordered by artifact name.
func (b *BazelBuild) Labels() []string {
	return sortedValues(b.Targets)
}

// NixBuild maps artifact names to flake package attributes.
type NixBuild struct {
	Flake    string            `yaml:"flake"`
	Systems  []string          `yaml:"systems"`
	Packages map[string]string `yaml:"packages"`
}

// FlakeRef returns the flake reference, defaulting to the current directory.
func (n *NixBuild) FlakeRef() string {
	if n.Flake == "" {
		return "."
	}
	return n.Flake
}

package config

import (
	"fmt"
	"regexp"
	"strings"
)

// artifactNameRe matches a single OCI repository path component. Artifact
// names are appended to the destination repo, so they must be valid there.
var artifactNameRe = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|[-]+)[a-z0-9]+)*$`)

// Validate checks structural invariants of a loaded Config. All problems
// are reported together.
func Validate(cfg *Config) error {
	var errs []string

	// ── Services ──────────────────────────────────────────────────────────

	if len(cfg.Services) == 0 {
		errs = append(errs, "services: at least one service is required")
	}

	seen := make(map[string]bool)
	owner := make(map[string]string) // artifact name → service
	for _, svc := range cfg.Services {
		spath := fmt.Sprintf("services.%s", svc.Name)

		if seen[svc.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate service name", spath))
		}
		seen[svc.Name] = true

		switch svc.Build.Kind() {
		case "":
			errs = append(errs, fmt.Sprintf("%s: build is required", spath))
		case KindBazel:
			if len(svc.Build.Bazel.Targets) == 0 {
				errs = append(errs, fmt.Sprintf("%s.build: bazel requires at least one target", spath))
			}
			for name, label := range svc.Build.Bazel.Targets {
				if label == "" {
					errs = append(errs, fmt.Sprintf("%s.build.targets.%s: label is required", spath, name))
				}
			}
		case KindNix:
			if len(svc.Build.Nix.Packages) == 0 {
				errs = append(errs, fmt.Sprintf("%s.build: nix requires at least one package", spath))
			}
			for name, attr := range svc.Build.Nix.Packages {
				if attr == "" {
					errs = append(errs, fmt.Sprintf("%s.build.packages.%s: attribute is required", spath, name))
				}
			}
		}

		for _, artifact := range svc.ArtifactNames() {
			if !artifactNameRe.MatchString(artifact) {
				errs = append(errs, fmt.Sprintf("%s: artifact name %q is not a valid repository component (lowercase alphanumerics and separators)", spath, artifact))
			}
			if prev, ok := owner[artifact]; ok && prev != svc.Name {
				errs = append(errs, fmt.Sprintf("%s: artifact %q is also produced by services.%s", spath, artifact, prev))
			} else if ok {
				errs = append(errs, fmt.Sprintf("%s: artifact %q is produced twice", spath, artifact))
			}
			owner[artifact] = svc.Name
		}
	}

	// ── Deploy ────────────────────────────────────────────────────────────

	releases := make(map[string]bool)
	for _, rel := range cfg.Deploy {
		rpath := fmt.Sprintf("deploy.%s", rel.Name)
		if releases[rel.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate release name", rpath))
		}
		releases[rel.Name] = true

		if rel.Helm != nil {
			if rel.Helm.Path == "" {
				errs = append(errs, fmt.Sprintf("%s: path is required", rpath))
			}
			if rel.Helm.Timeout < 0 {
				errs = append(errs, fmt.Sprintf("%s: timeout must not be negative", rpath))
			}
		}
	}

	// ── Registry ──────────────────────────────────────────────────────────

	for i, host := range cfg.Registry.Insecure {
		if host == "" || strings.ContainsAny(host, " /\t") {
			errs = append(errs, fmt.Sprintf("registry.insecure[%d]: %q is not a host[:port]", i, host))
		}
	}
	if strings.Contains(cfg.Registry.Repo, "://") {
		errs = append(errs, fmt.Sprintf("registry.repo: %q must not include a scheme", cfg.Registry.Repo))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

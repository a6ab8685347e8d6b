package engines

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/sofmeright/steiger/src/config"
)

var (
	// FROM [--platform=...] <image> [AS <name>]
	fromRe = regexp.MustCompile(`(?i)^FROM\s+(?:--platform=\S+\s+)?(\S+)(?:\s+AS\s+(\S+))?`)
	// ARG <name>[=<default>]
	argRe = regexp.MustCompile(`(?i)^ARG\s+([^\s=]+)`)
)

// dockerfile is what the preflight check needs from a Dockerfile: its
// named stages and declared build arguments. Line continuations and
// heredocs are not followed.
type dockerfile struct {
	stages []string
	args   map[string]bool
}

func parseDockerfile(path string) (*dockerfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := &dockerfile{args: make(map[string]bool)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := fromRe.FindStringSubmatch(line); m != nil {
			if m[2] != "" {
				df.stages = append(df.stages, strings.ToLower(m[2]))
			}
			continue
		}
		if m := argRe.FindStringSubmatch(line); m != nil {
			df.args[m[1]] = true
		}
	}
	return df, scanner.Err()
}

// checkDockerfile fails when the configured target stage does not exist
// and returns the build args the Dockerfile never declares.
func checkDockerfile(in *config.DockerBuild) (unused []string, err error) {
	df, err := parseDockerfile(in.DockerfilePath())
	if err != nil {
		return nil, fmt.Errorf("reading Dockerfile: %w", err)
	}

	if in.Target != "" {
		found := false
		for _, s := range df.stages {
			if s == strings.ToLower(in.Target) {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%s has no stage %q (stages: %s)",
				in.DockerfilePath(), in.Target, strings.Join(df.stages, ", "))
		}
	}

	for k := range in.BuildArgs {
		if !df.args[k] {
			unused = append(unused, k)
		}
	}
	sort.Strings(unused)
	return unused, nil
}

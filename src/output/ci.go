package output

import (
	"fmt"
	"io"
	"os"
	"time"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

func IsGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// Collapsible log sections. GitLab folds by id; GitHub Actions only
// supports one level of groups and ignores the id.

func SectionStart(w io.Writer, id, name string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", time.Now().Unix(), id, name)
	case IsGitHubActions():
		fmt.Fprintf(w, "::group::%s\n", name)
	}
}

func SectionEnd(w io.Writer, id string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), id)
	case IsGitHubActions():
		fmt.Fprintln(w, "::endgroup::")
	}
}

// SectionStartCollapsed starts a section that is collapsed by default.
func SectionStartCollapsed(w io.Writer, id, name string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s[collapsed=true]\r\033[0K%s\n", time.Now().Unix(), id, name)
	case IsGitHubActions():
		fmt.Fprintf(w, "::group::%s\n", name)
	}
}

// CIContext returns pipeline identity for the context block, read from
// GitLab or GitHub Actions variables.
func CIContext() []KV {
	var kv []KV
	add := func(key string, vars ...string) {
		for _, v := range vars {
			if val := os.Getenv(v); val != "" {
				kv = append(kv, KV{Key: key, Value: val})
				return
			}
		}
	}
	add("Pipeline", "CI_PIPELINE_ID", "GITHUB_RUN_ID")
	add("Runner", "CI_RUNNER_DESCRIPTION", "RUNNER_NAME")
	add("Branch", "CI_COMMIT_BRANCH", "GITHUB_REF_NAME")
	add("Tag", "CI_COMMIT_TAG")
	if sha := os.Getenv("CI_COMMIT_SHA"); len(sha) >= 8 {
		kv = append(kv, KV{Key: "Commit", Value: sha[:8]})
	} else if sha := os.Getenv("GITHUB_SHA"); len(sha) >= 8 {
		kv = append(kv, KV{Key: "Commit", Value: sha[:8]})
	}
	return kv
}

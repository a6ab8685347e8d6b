package gitver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initRepo creates a repository with a single commit.
func initRepo(t *testing.T) (string, *git.Repository, plumbing.Hash) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("Dockerfile"); err != nil {
		t.Fatal(err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir, repo, hash
}

func TestDetectUntagged(t *testing.T) {
	dir, _, hash := initRepo(t)

	st, err := Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if st.Commit != hash.String() {
		t.Errorf("commit = %s, want %s", st.Commit, hash)
	}
	if st.Tag != "" || st.Dirty {
		t.Errorf("state = %+v", st)
	}
	if got := st.DefaultTag(); got != hash.String()[:7] {
		t.Errorf("DefaultTag = %q", got)
	}
}

func TestDetectTaggedAndDirty(t *testing.T) {
	dir, repo, hash := initRepo(t)
	if _, err := repo.CreateTag("v1.2.0", hash, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTag("v1.10.0", hash, &git.CreateTagOptions{
		Tagger:  &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
		Message: "release",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTag("stable", hash, nil); err != nil {
		t.Fatal(err)
	}

	st, err := Detect(filepath.Join(dir))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if st.Tag != "v1.10.0" {
		t.Errorf("tag = %q, want highest semver v1.10.0", st.Tag)
	}
	if st.DefaultTag() != "v1.10.0" {
		t.Errorf("DefaultTag = %q", st.DefaultTag())
	}

	if err := os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("wip"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err = Detect(dir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !st.Dirty {
		t.Error("untracked file must make the tree dirty")
	}
	if st.DefaultTag() != "v1.10.0-dirty" {
		t.Errorf("DefaultTag = %q", st.DefaultTag())
	}
}

func TestDetectFromSubdirectory(t *testing.T) {
	dir, _, _ := initRepo(t)
	sub := filepath.Join(dir, "services", "web")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Detect(sub); err != nil {
		t.Errorf("Detect from subdirectory: %v", err)
	}
}

func TestDetectNotARepo(t *testing.T) {
	if _, err := Detect(t.TempDir()); err == nil {
		t.Error("expected error outside a repository")
	}
}

func TestExpandTag(t *testing.T) {
	tagged := &State{Tag: "v2.3.4", Commit: "0123456789abcdef", Branch: "feature/login"}
	dirty := &State{Commit: "fedcba9876543210", Dirty: true}

	tests := []struct {
		tmpl  string
		state *State
		want  string
	}{
		{"", tagged, "v2.3.4"},
		{"{tag}", dirty, "fedcba9-dirty"},
		{"{version}", tagged, "2.3.4"},
		{"{major}.{minor}", tagged, "2.3"},
		{"{version}", dirty, "0.0.0"},
		{"{branch}-{sha}", tagged, "feature-login-0123456"},
		{"build-{commit}", tagged, "build-0123456789abcdef"},
		{"latest", dirty, "latest"},
	}
	for _, tt := range tests {
		if got := ExpandTag(tt.tmpl, tt.state); got != tt.want {
			t.Errorf("ExpandTag(%q) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}

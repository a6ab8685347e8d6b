// Package gitver derives image tags from the state of a git work tree.
package gitver

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DirtySuffix marks a tag built from a work tree with uncommitted changes.
const DirtySuffix = "-dirty"

// State is the git state of a work tree.
type State struct {
	// Tag is a tag pointing at HEAD, or "".
	Tag    string
	Commit string
	Branch string
	// Dirty is set when tracked files are modified or untracked files exist.
	Dirty bool
}

// Detect reads the git state of the repository containing dir. When
// several tags point at HEAD the highest semver tag wins, then the
// lexically greatest.
func Detect(dir string) (*State, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("repository at %s has no commits", dir)
		}
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	st := &State{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		st.Branch = head.Name().Short()
	}

	tags, err := headTags(repo, head.Hash())
	if err != nil {
		return nil, err
	}
	st.Tag = pickTag(tags)

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}
	st.Dirty = !status.IsClean()

	return st, nil
}

// headTags lists tags whose target commit is head, peeling annotated tags.
func headTags(repo *git.Repository, head plumbing.Hash) ([]string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if obj, err := repo.TagObject(target); err == nil {
			commit, err := obj.Commit()
			if err != nil {
				return nil
			}
			target = commit.Hash
		}
		if target == head {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return names, nil
}

func pickTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	sort.Slice(tags, func(i, j int) bool {
		vi, ei := semver.NewVersion(tags[i])
		vj, ej := semver.NewVersion(tags[j])
		switch {
		case ei == nil && ej == nil:
			if !vi.Equal(vj) {
				return vi.GreaterThan(vj)
			}
		case ei == nil:
			return true
		case ej == nil:
			return false
		}
		return tags[i] > tags[j]
	})
	return tags[0]
}

// Short is the 7-character abbreviated commit.
func (s *State) Short() string {
	if len(s.Commit) > 7 {
		return s.Commit[:7]
	}
	return s.Commit
}

// DefaultTag is the HEAD tag, or the short commit when HEAD is untagged,
// with DirtySuffix appended for a dirty work tree.
func (s *State) DefaultTag() string {
	name := s.Tag
	if name == "" {
		name = s.Short()
	}
	if s.Dirty {
		name += DirtySuffix
	}
	return sanitizeTag(name)
}

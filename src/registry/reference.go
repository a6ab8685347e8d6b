package registry

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Reference is a fully qualified image reference:
// registry/repository:tag[@digest].
type Reference struct {
	Registry   string
	Repository string
	Tag        string
	Digest     digest.Digest
}

// ParseReference parses a fully qualified reference. The first path
// component must be a registry host.
func ParseReference(s string) (Reference, error) {
	var ref Reference
	rest := s

	if i := strings.IndexByte(rest, '@'); i >= 0 {
		d, err := digest.Parse(rest[i+1:])
		if err != nil {
			return Reference{}, fmt.Errorf("%w: %q: %v", ErrInvalidReference, s, err)
		}
		ref.Digest = d
		rest = rest[:i]
	}

	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return Reference{}, fmt.Errorf("%w: %q has no registry host", ErrInvalidReference, s)
	}
	ref.Registry = rest[:slash]
	rest = rest[slash+1:]

	if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		ref.Tag = rest[i+1:]
		rest = rest[:i]
	}
	ref.Repository = rest

	if !strings.ContainsAny(ref.Registry, ".:") && ref.Registry != "localhost" {
		return Reference{}, fmt.Errorf("%w: %q: %q is not a registry host", ErrInvalidReference, s, ref.Registry)
	}
	if err := ref.Validate(); err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return ref, nil
}

// Validate checks each component.
func (r Reference) Validate() error {
	if err := ValidateHost(r.Registry); err != nil {
		return err
	}
	if err := ValidateRepository(r.Repository); err != nil {
		return err
	}
	if r.Tag == "" && r.Digest == "" {
		return fmt.Errorf("reference %s has neither tag nor digest", r.Name())
	}
	if r.Tag != "" {
		if err := ValidateTag(r.Tag); err != nil {
			return err
		}
	}
	return nil
}

// Name is registry/repository.
func (r Reference) Name() string {
	return r.Registry + "/" + r.Repository
}

// WithDigest returns a copy of r pinned to d.
func (r Reference) WithDigest(d digest.Digest) Reference {
	r.Digest = d
	return r
}

func (r Reference) String() string {
	s := r.Name()
	if r.Tag != "" {
		s += ":" + r.Tag
	}
	if r.Digest != "" {
		s += "@" + r.Digest.String()
	}
	return s
}

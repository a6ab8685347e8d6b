package registry

import (
	"errors"
	"testing"

	"github.com/opencontainers/go-digest"
	"oras.land/oras-go/v2/registry/remote/auth"
)

func authCred(user string) auth.Credential {
	return auth.Credential{Username: user, Password: "secret"}
}

func TestParseReference(t *testing.T) {
	dgst := digest.FromString("m")
	tests := []struct {
		in   string
		want Reference
	}{
		{"registry.example/org/web:v1", Reference{Registry: "registry.example", Repository: "org/web", Tag: "v1"}},
		{"localhost:5000/web:dev-dirty", Reference{Registry: "localhost:5000", Repository: "web", Tag: "dev-dirty"}},
		{"ghcr.io/a/b/c:1.2.3@" + dgst.String(), Reference{Registry: "ghcr.io", Repository: "a/b/c", Tag: "1.2.3", Digest: dgst}},
		{"localhost/web@" + dgst.String(), Reference{Registry: "localhost", Repository: "web", Digest: dgst}},
	}
	for _, tt := range tests {
		got, err := ParseReference(tt.in)
		if err != nil {
			t.Errorf("ParseReference(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseReference(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}

func TestParseReferenceErrors(t *testing.T) {
	for _, in := range []string{
		"web:v1",                       // no registry
		"org/web:v1",                   // first component is not a host
		"registry.example/Org/web:v1",  // uppercase repository
		"registry.example/org/web",     // no tag or digest
		"registry.example/org/web:v~1", // illegal tag character
		"registry.example/org/web@sha256:short",
	} {
		if _, err := ParseReference(in); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("ParseReference(%q) = %v, want ErrInvalidReference", in, err)
		}
	}
}

func TestValidateCredentials(t *testing.T) {
	if err := ValidateCredentials("ghcr_org"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateCredentials("1BAD"); err == nil {
		t.Error("expected error for leading digit")
	}
	if err := ValidateCredentials(""); err != nil {
		t.Errorf("empty prefix must be allowed: %v", err)
	}
}

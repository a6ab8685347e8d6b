// Package registry publishes loaded images to OCI distribution registries.
//
// The Publisher talks to a registry through the Remote interface so the
// push protocol can be exercised without a network. Client is the
// production Remote, built on oras-go.
package registry

import (
	"context"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote/auth"
)

// Remote is the subset of the distribution API the publisher needs.
type Remote interface {
	// StoreAuth associates a credential with a registry host for all
	// subsequent calls.
	StoreAuth(host string, cred auth.Credential)

	// ResolveDigest returns the digest ref.Tag currently points at. A tag
	// or repository that does not exist yields found == false, not an error.
	ResolveDigest(ctx context.Context, ref Reference) (dgst digest.Digest, found bool, err error)

	// ProbeBlob reports whether the registry already holds desc, using a
	// one-byte ranged read.
	ProbeBlob(ctx context.Context, ref Reference, desc ocispec.Descriptor) (bool, error)

	// PushBlob uploads data and returns the blob's URL.
	PushBlob(ctx context.Context, ref Reference, desc ocispec.Descriptor, data []byte) (string, error)

	// PushManifest uploads data under ref.Tag and returns the manifest URL.
	PushManifest(ctx context.Context, ref Reference, desc ocispec.Descriptor, data []byte) (string, error)
}

package image

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// BlobStore reads content-addressed blobs from an OCI layout directory,
// where each blob lives at blobs/<algorithm>/<encoded>.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) *BlobStore {
	return &BlobStore{root: root}
}

// Path returns where dgst is stored. Malformed digests are rejected so a
// descriptor can never address a file outside the blob tree.
func (s *BlobStore) Path(dgst digest.Digest) (string, error) {
	if err := dgst.Validate(); err != nil {
		return "", fmt.Errorf("%w: digest %q: %v", ErrInvalidLayout, dgst, err)
	}
	return filepath.Join(s.root, ocispec.ImageBlobsDir, dgst.Algorithm().String(), dgst.Encoded()), nil
}

// ReadBlob returns the raw bytes stored under dgst without verifying them.
func (s *BlobStore) ReadBlob(dgst digest.Digest) ([]byte, error) {
	path, err := s.Path(dgst)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, dgst)
		}
		return nil, fmt.Errorf("reading blob %s: %w", dgst, err)
	}
	return data, nil
}

// ReadVerified reads the blob desc points at and checks that its size and
// digest match the descriptor.
func (s *BlobStore) ReadVerified(desc ocispec.Descriptor) ([]byte, error) {
	data, err := s.ReadBlob(desc.Digest)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != desc.Size {
		return nil, fmt.Errorf("%w: %s is %d bytes, descriptor declares %d",
			ErrIntegrity, desc.Digest, len(data), desc.Size)
	}
	if actual := desc.Digest.Algorithm().FromBytes(data); actual != desc.Digest {
		return nil, fmt.Errorf("%w: %s hashes to %s", ErrIntegrity, desc.Digest, actual)
	}
	return data, nil
}

package image

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// layout writes an OCI layout into a temp dir for tests.
type layout struct {
	t   *testing.T
	dir string
}

func newLayout(t *testing.T) *layout {
	t.Helper()
	return &layout{t: t, dir: t.TempDir()}
}

func (l *layout) blob(mediaType string, data []byte) ocispec.Descriptor {
	l.t.Helper()
	dgst := digest.FromBytes(data)
	dir := filepath.Join(l.dir, "blobs", "sha256")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, dgst.Encoded()), data, 0o644); err != nil {
		l.t.Fatal(err)
	}
	return ocispec.Descriptor{MediaType: mediaType, Digest: dgst, Size: int64(len(data))}
}

func (l *layout) json(mediaType string, v any) ocispec.Descriptor {
	l.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		l.t.Fatal(err)
	}
	return l.blob(mediaType, data)
}

// image writes a config, the given layers and a manifest, returning the
// manifest descriptor.
func (l *layout) image(layers ...string) ocispec.Descriptor {
	l.t.Helper()
	config := l.blob(ocispec.MediaTypeImageConfig, []byte(`{"architecture":"amd64","os":"linux"}`))
	m := ocispec.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageManifest,
		Config:    config,
	}
	for _, content := range layers {
		m.Layers = append(m.Layers, l.blob(ocispec.MediaTypeImageLayerGzip, []byte(content)))
	}
	return l.json(ocispec.MediaTypeImageManifest, m)
}

func (l *layout) index(manifests ...ocispec.Descriptor) {
	l.t.Helper()
	idx := ocispec.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageIndex,
		Manifests: manifests,
	}
	data, err := json.Marshal(idx)
	if err != nil {
		l.t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, "index.json"), data, 0o644); err != nil {
		l.t.Fatal(err)
	}
}

func (l *layout) path(dgst digest.Digest) string {
	return filepath.Join(l.dir, "blobs", dgst.Algorithm().String(), dgst.Encoded())
}

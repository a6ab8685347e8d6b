package registry

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote/auth"

	"github.com/sofmeright/steiger/src/image"
)

// fakeRemote is an in-memory registry that records every call.
type fakeRemote struct {
	mu        sync.Mutex
	blobs     map[digest.Digest][]byte
	manifests map[string]digest.Digest // repo:tag → digest
	calls     []string
	auth      map[string]auth.Credential

	probeDelay time.Duration
	probeErr   map[digest.Digest]error
	inflight   atomic.Int32
	maxSeen    atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		blobs:     make(map[digest.Digest][]byte),
		manifests: make(map[string]digest.Digest),
		auth:      make(map[string]auth.Credential),
		probeErr:  make(map[digest.Digest]error),
	}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeRemote) StoreAuth(host string, cred auth.Credential) {
	f.record("auth")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth[host] = cred
}

func (f *fakeRemote) ResolveDigest(_ context.Context, ref Reference) (digest.Digest, bool, error) {
	f.record("resolve")
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.manifests[ref.Repository+":"+ref.Tag]
	return d, ok, nil
}

func (f *fakeRemote) ProbeBlob(ctx context.Context, _ Reference, desc ocispec.Descriptor) (bool, error) {
	f.record("probe")
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if n <= prev || f.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	if f.probeDelay > 0 {
		select {
		case <-time.After(f.probeDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.probeErr[desc.Digest]; err != nil {
		return false, err
	}
	_, ok := f.blobs[desc.Digest]
	return ok, nil
}

func (f *fakeRemote) PushBlob(_ context.Context, ref Reference, desc ocispec.Descriptor, data []byte) (string, error) {
	f.record("blob")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[desc.Digest] = data
	return "https://" + ref.Registry + "/v2/" + ref.Repository + "/blobs/" + desc.Digest.String(), nil
}

func (f *fakeRemote) PushManifest(_ context.Context, ref Reference, desc ocispec.Descriptor, data []byte) (string, error) {
	f.record("manifest")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifests[ref.Repository+":"+ref.Tag] = digest.FromBytes(data)
	return "https://" + ref.Registry + "/v2/" + ref.Repository + "/manifests/" + desc.Digest.String(), nil
}

// testImage builds an in-memory image whose RawManifest is canonical.
func testImage(platform *ocispec.Platform, layers ...string) *image.Image {
	config := []byte(`{"architecture":"amd64","os":"linux"}`)
	img := &image.Image{
		MediaType: ocispec.MediaTypeImageManifest,
		Config: image.Blob{
			Digest:    digest.FromBytes(config),
			MediaType: ocispec.MediaTypeImageConfig,
			Size:      int64(len(config)),
			Data:      config,
		},
		Platform: platform,
	}
	m := ocispec.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageManifest,
		Config:    img.Config.Descriptor(),
	}
	for _, content := range layers {
		b := image.Blob{
			Digest:    digest.FromString(content),
			MediaType: ocispec.MediaTypeImageLayerGzip,
			Size:      int64(len(content)),
			Data:      []byte(content),
		}
		img.Layers = append(img.Layers, b)
		m.Layers = append(m.Layers, b.Descriptor())
	}
	raw, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	canonical, err := image.Canonicalize(raw)
	if err != nil {
		panic(err)
	}
	img.Manifest = m
	img.RawManifest = canonical
	img.Digest = digest.FromBytes(canonical)
	return img
}

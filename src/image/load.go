package image

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	mediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"

	// Attestation manifests written by buildx sit next to the real images
	// in an index and are never runnable.
	annotationReferenceType  = "vnd.docker.reference.type"
	referenceTypeAttestation = "attestation-manifest"
)

// LoadFromPath reads the OCI layout rooted at dir and returns every image
// its index references, with all blobs verified against their descriptors.
// A nested image index is followed one level deep. All failures are
// returned as *LoadError.
func LoadFromPath(ctx context.Context, dir string) ([]*Image, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ocispec.ImageIndexFile))
	if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}
	var index ocispec.Index
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, &LoadError{Path: dir, Err: fmt.Errorf("%w: parsing %s: %v", ErrInvalidLayout, ocispec.ImageIndexFile, err)}
	}

	store := NewBlobStore(dir)
	var images []*Image
	for _, desc := range index.Manifests {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{Path: dir, Err: err}
		}
		loaded, err := loadDescriptor(store, desc, 0)
		if err != nil {
			return nil, &LoadError{Path: dir, Err: err}
		}
		images = append(images, loaded...)
	}
	if len(images) == 0 {
		return nil, &LoadError{Path: dir, Err: fmt.Errorf("%w: index references no image manifests", ErrInvalidLayout)}
	}
	return images, nil
}

func loadDescriptor(store *BlobStore, desc ocispec.Descriptor, depth int) ([]*Image, error) {
	if desc.Annotations[annotationReferenceType] == referenceTypeAttestation {
		return nil, nil
	}
	switch desc.MediaType {
	case ocispec.MediaTypeImageIndex, mediaTypeDockerManifestList:
		if depth > 0 {
			return nil, fmt.Errorf("%w: index %s nests another index", ErrInvalidLayout, desc.Digest)
		}
		raw, err := store.ReadVerified(desc)
		if err != nil {
			return nil, err
		}
		var index ocispec.Index
		if err := json.Unmarshal(raw, &index); err != nil {
			return nil, fmt.Errorf("%w: parsing index %s: %v", ErrInvalidLayout, desc.Digest, err)
		}
		var images []*Image
		for _, child := range index.Manifests {
			loaded, err := loadDescriptor(store, child, depth+1)
			if err != nil {
				return nil, err
			}
			images = append(images, loaded...)
		}
		return images, nil
	default:
		img, err := loadManifest(store, desc)
		if err != nil {
			return nil, err
		}
		return []*Image{img}, nil
	}
}

func loadManifest(store *BlobStore, desc ocispec.Descriptor) (*Image, error) {
	raw, err := store.ReadVerified(desc)
	if err != nil {
		return nil, err
	}
	var manifest ocispec.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("%w: parsing manifest %s: %v", ErrInvalidLayout, desc.Digest, err)
	}

	layers := make([]Blob, 0, len(manifest.Layers))
	for _, l := range manifest.Layers {
		b, err := readBlob(store, l)
		if err != nil {
			return nil, err
		}
		layers = append(layers, b)
	}

	canonical, err := Canonicalize(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", desc.Digest, err)
	}

	config, err := readBlob(store, manifest.Config)
	if err != nil {
		return nil, err
	}

	mediaType := manifest.MediaType
	if mediaType == "" {
		mediaType = desc.MediaType
	}
	if mediaType == "" {
		mediaType = ocispec.MediaTypeImageManifest
	}

	var platform *ocispec.Platform
	if desc.Platform != nil {
		p := *desc.Platform
		platform = &p
	}

	return &Image{
		Digest:      digest.FromBytes(canonical),
		MediaType:   mediaType,
		Manifest:    manifest,
		RawManifest: canonical,
		Config:      config,
		Layers:      layers,
		Platform:    platform,
	}, nil
}

func readBlob(store *BlobStore, desc ocispec.Descriptor) (Blob, error) {
	data, err := store.ReadVerified(desc)
	if err != nil {
		return Blob{}, err
	}
	return Blob{
		Digest:      desc.Digest,
		MediaType:   desc.MediaType,
		Size:        desc.Size,
		Annotations: desc.Annotations,
		Data:        data,
	}, nil
}

// Package image loads OCI images from on-disk layouts into memory.
package image

import (
	"fmt"
	"strings"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Blob is a piece of content together with the descriptor metadata the
// manifest declared for it.
type Blob struct {
	Digest      digest.Digest
	MediaType   string
	Size        int64
	Annotations map[string]string
	Data        []byte
}

func (b Blob) Descriptor() ocispec.Descriptor {
	return ocispec.Descriptor{
		MediaType:   b.MediaType,
		Digest:      b.Digest,
		Size:        b.Size,
		Annotations: b.Annotations,
	}
}

// Image is a fully loaded single-platform image. RawManifest holds the
// canonical encoding of the manifest, so Digest is the sha256 of exactly
// those bytes.
type Image struct {
	Digest      digest.Digest
	MediaType   string
	Manifest    ocispec.Manifest
	RawManifest []byte
	Config      Blob
	Layers      []Blob
	Platform    *ocispec.Platform
}

// ManifestDescriptor describes RawManifest for a registry push.
func (img *Image) ManifestDescriptor() ocispec.Descriptor {
	return ocispec.Descriptor{
		MediaType: img.MediaType,
		Digest:    img.Digest,
		Size:      int64(len(img.RawManifest)),
	}
}

// Size is the total byte count of the config and all layers.
func (img *Image) Size() int64 {
	total := img.Config.Size
	for _, l := range img.Layers {
		total += l.Size
	}
	return total
}

func (img *Image) String() string {
	return fmt.Sprintf("%s (%s, %d layers)", img.Digest, FormatPlatform(img.Platform), len(img.Layers))
}

// ParsePlatform parses os/arch[/variant].
func ParsePlatform(s string) (ocispec.Platform, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return ocispec.Platform{}, fmt.Errorf("invalid platform %q: expected os/arch[/variant]", s)
	}
	for _, p := range parts {
		if p == "" {
			return ocispec.Platform{}, fmt.Errorf("invalid platform %q: empty component", s)
		}
	}
	p := ocispec.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		p.Variant = parts[2]
	}
	return p, nil
}

// FormatPlatform renders p as os/arch[/variant], or "any" when nil.
func FormatPlatform(p *ocispec.Platform) string {
	if p == nil {
		return "any"
	}
	s := p.OS + "/" + p.Architecture
	if p.Variant != "" {
		s += "/" + p.Variant
	}
	return s
}

// Matches reports whether the image can run on want. A variant only
// constrains the match when both sides declare one.
func (img *Image) Matches(want ocispec.Platform) bool {
	p := img.Platform
	if p == nil {
		return false
	}
	if p.OS != want.OS || p.Architecture != want.Architecture {
		return false
	}
	return p.Variant == "" || want.Variant == "" || p.Variant == want.Variant
}

// Select picks the image to publish for platform: the first exact match,
// otherwise the first image without a declared platform.
func Select(images []*Image, platform ocispec.Platform) (*Image, error) {
	for _, img := range images {
		if img.Matches(platform) {
			return img, nil
		}
	}
	for _, img := range images {
		if img.Platform == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("%w %s (have %d images)", ErrNoPlatform, FormatPlatform(&platform), len(images))
}

package image

import (
	"errors"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in      string
		want    ocispec.Platform
		wantErr bool
	}{
		{"linux/amd64", ocispec.Platform{OS: "linux", Architecture: "amd64"}, false},
		{"linux/arm/v7", ocispec.Platform{OS: "linux", Architecture: "arm", Variant: "v7"}, false},
		{"linux", ocispec.Platform{}, true},
		{"linux//v7", ocispec.Platform{}, true},
		{"a/b/c/d", ocispec.Platform{}, true},
	}
	for _, tt := range tests {
		got, err := ParsePlatform(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePlatform(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (got.OS != tt.want.OS || got.Architecture != tt.want.Architecture || got.Variant != tt.want.Variant) {
			t.Errorf("ParsePlatform(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSelect(t *testing.T) {
	amd := &Image{Digest: "sha256:amd", Platform: &ocispec.Platform{OS: "linux", Architecture: "amd64"}}
	armv7 := &Image{Digest: "sha256:armv7", Platform: &ocispec.Platform{OS: "linux", Architecture: "arm", Variant: "v7"}}
	generic := &Image{Digest: "sha256:any"}

	tests := []struct {
		name   string
		images []*Image
		want   string
		err    error
	}{
		{"exact", []*Image{generic, amd}, "linux/amd64", nil},
		{"variant", []*Image{amd, armv7}, "linux/arm/v7", nil},
		{"fallback to platformless", []*Image{armv7, generic}, "linux/amd64", nil},
		{"no match", []*Image{armv7}, "linux/amd64", ErrNoPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := ParsePlatform(tt.want)
			img, err := Select(tt.images, p)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if img.Platform != nil && !img.Matches(p) {
				t.Errorf("selected %s for %s", img, tt.want)
			}
			if tt.name == "fallback to platformless" && img != generic {
				t.Errorf("expected platformless image, got %s", img)
			}
		})
	}
}

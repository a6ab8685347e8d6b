package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"

	"github.com/sofmeright/steiger/src/image"
	"github.com/sofmeright/steiger/src/progress"
)

// MaxConcurrentBlobs bounds the layer probes and uploads in flight for a
// single image push.
const MaxConcurrentBlobs = 16

// Result describes one published image.
type Result struct {
	Artifact string
	// Reference is the destination pinned to the image digest.
	Reference Reference
	// Skipped is set when the tag already pointed at the image.
	Skipped     bool
	ConfigURL   string
	ManifestURL string
}

// Publisher pushes images through a Remote.
type Publisher struct {
	remote      Remote
	credentials CredentialFunc
}

// NewPublisher returns a Publisher. A nil creds resolves every host to
// anonymous access.
func NewPublisher(remote Remote, creds CredentialFunc) *Publisher {
	if creds == nil {
		creds = Anonymous
	}
	return &Publisher{remote: remote, credentials: creds}
}

// Push publishes img under ref.Tag. If the tag already resolves to
// img.Digest nothing is uploaded. Otherwise every layer the registry is
// missing is uploaded, then the config blob, then the manifest. The
// first layer failure cancels the remaining layer work.
func (p *Publisher) Push(ctx context.Context, sink progress.Sink, ref Reference, img *image.Image) (*Result, error) {
	cred, err := p.credentials(ctx, ref.Registry)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for %s: %w", ref.Registry, err)
	}
	p.remote.StoreAuth(ref.Registry, cred)

	existing, found, err := p.remote.ResolveDigest(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}
	if found && existing == img.Digest {
		progress.Info(sink, "image already exists, skipping push")
		return &Result{Reference: ref.WithDigest(existing), Skipped: true}, nil
	}

	progress.Info(sink, "pushing %s (%d layers)", ref, len(img.Layers))
	if err := p.pushLayers(ctx, sink, ref, img.Layers); err != nil {
		return nil, err
	}

	configURL, err := p.remote.PushBlob(ctx, ref, img.Config.Descriptor(), img.Config.Data)
	if err != nil {
		return nil, fmt.Errorf("pushing config: %w", err)
	}

	manifestURL, err := p.remote.PushManifest(ctx, ref, img.ManifestDescriptor(), img.RawManifest)
	if err != nil {
		return nil, fmt.Errorf("pushing manifest: %w", err)
	}

	progress.Done(sink, "pushed %s", ref.WithDigest(img.Digest))
	return &Result{
		Reference:   ref.WithDigest(img.Digest),
		ConfigURL:   configURL,
		ManifestURL: manifestURL,
	}, nil
}

func (p *Publisher) pushLayers(ctx context.Context, sink progress.Sink, ref Reference, layers []image.Blob) error {
	sink.Init(len(layers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentBlobs)
	for _, layer := range layers {
		g.Go(func() error {
			desc := layer.Descriptor()
			exists, err := p.remote.ProbeBlob(gctx, ref, desc)
			if err != nil {
				return fmt.Errorf("layer %s: %w", desc.Digest, err)
			}
			if exists {
				progress.Debug(sink, "layer %s already exists", shortDigest(desc.Digest.Encoded()))
			} else if _, err := p.remote.PushBlob(gctx, ref, desc, layer.Data); err != nil {
				return fmt.Errorf("layer %s: %w", desc.Digest, err)
			}
			sink.Inc()
			return nil
		})
	}
	return g.Wait()
}

// PublishAll pushes, for every artifact, the image matching platform to
// repo/<artifact>:tag. Artifacts are published concurrently and a
// failure of one does not stop the others. Results hold every artifact
// that succeeded; a non-nil error is a *PublishError.
func (p *Publisher) PublishAll(ctx context.Context, sink progress.Sink, repo, tag string,
	platform ocispec.Platform, artifacts map[string][]*image.Image) (map[string]*Result, error) {

	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		results  = make(map[string]*Result, len(names))
		failures []*PushError
	)
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := sink.Child(name)
			dest := fmt.Sprintf("%s/%s:%s", repo, name, tag)

			res, err := p.publish(ctx, child, dest, artifacts[name], platform)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				progress.Fail(child, "%v", err)
				failures = append(failures, &PushError{Artifact: name, Ref: dest, Err: err})
				return
			}
			res.Artifact = name
			results[name] = res
		}()
	}
	wg.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].Artifact < failures[j].Artifact })
		return results, &PublishError{Failures: failures}
	}
	return results, nil
}

func (p *Publisher) publish(ctx context.Context, sink progress.Sink, dest string, images []*image.Image, platform ocispec.Platform) (*Result, error) {
	ref, err := ParseReference(dest)
	if err != nil {
		return nil, err
	}
	img, err := image.Select(images, platform)
	if err != nil {
		return nil, err
	}
	return p.Push(ctx, sink, ref, img)
}

func shortDigest(encoded string) string {
	if len(encoded) > 12 {
		return encoded[:12]
	}
	return encoded
}

package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	orasregistry "oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/sofmeright/steiger/src/version"
)

// dockerHubHost is where oras sends docker.io traffic.
const dockerHubHost = "registry-1.docker.io"

// Client is a Remote backed by oras-go. Hosts listed as insecure, plus
// localhost and 127.0.0.1, are reached over plain HTTP.
type Client struct {
	insecure map[string]bool
	client   *auth.Client

	mu    sync.RWMutex
	creds map[string]auth.Credential
}

// NewClient returns a Client that uses plain HTTP for the insecure hosts.
func NewClient(insecure []string) *Client {
	c := &Client{
		insecure: map[string]bool{"localhost": true, "127.0.0.1": true},
		creds:    make(map[string]auth.Credential),
	}
	for _, h := range insecure {
		c.insecure[h] = true
	}
	c.client = &auth.Client{
		Client:     retry.DefaultClient,
		Cache:      auth.NewCache(),
		Credential: c.credential,
	}
	c.client.SetUserAgent("steiger/" + version.Version)
	return c
}

func (c *Client) StoreAuth(host string, cred auth.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds[host] = cred
}

func (c *Client) credential(_ context.Context, hostport string) (auth.Credential, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cred, ok := c.creds[hostport]; ok {
		return cred, nil
	}
	if hostport == dockerHubHost {
		if cred, ok := c.creds["docker.io"]; ok {
			return cred, nil
		}
	}
	return auth.EmptyCredential, nil
}

// PlainHTTP reports whether host is reached without TLS.
func (c *Client) PlainHTTP(host string) bool {
	if c.insecure[host] {
		return true
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return c.insecure[h]
	}
	return false
}

func (c *Client) repository(ref Reference) (*remote.Repository, error) {
	repo, err := remote.NewRepository(ref.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	repo.Client = c.client
	repo.PlainHTTP = c.PlainHTTP(ref.Registry)
	return repo, nil
}

func (c *Client) ResolveDigest(ctx context.Context, ref Reference) (digest.Digest, bool, error) {
	repo, err := c.repository(ref)
	if err != nil {
		return "", false, err
	}
	desc, err := repo.Resolve(ctx, ref.Tag)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return desc.Digest, true, nil
}

func (c *Client) ProbeBlob(ctx context.Context, ref Reference, desc ocispec.Descriptor) (bool, error) {
	target := orasregistry.Reference{Registry: ref.Registry, Repository: ref.Repository}
	ctx = auth.AppendRepositoryScope(ctx, target, auth.ActionPull)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.blobURL(ref, desc.Digest), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probing blob %s: %w", desc.Digest, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("probing blob %s: %s %s", desc.Digest, resp.Status, truncateBody(body, 512))
	}
}

func (c *Client) PushBlob(ctx context.Context, ref Reference, desc ocispec.Descriptor, data []byte) (string, error) {
	repo, err := c.repository(ref)
	if err != nil {
		return "", err
	}
	if err := repo.Blobs().Push(ctx, desc, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("pushing blob %s: %w", desc.Digest, err)
	}
	return c.blobURL(ref, desc.Digest), nil
}

func (c *Client) PushManifest(ctx context.Context, ref Reference, desc ocispec.Descriptor, data []byte) (string, error) {
	repo, err := c.repository(ref)
	if err != nil {
		return "", err
	}
	if err := repo.PushReference(ctx, desc, bytes.NewReader(data), ref.Tag); err != nil {
		return "", fmt.Errorf("pushing manifest %s: %w", ref, err)
	}
	return c.url(ref, "manifests", desc.Digest.String()), nil
}

func (c *Client) blobURL(ref Reference, dgst digest.Digest) string {
	return c.url(ref, "blobs", dgst.String())
}

func (c *Client) url(ref Reference, kind, id string) string {
	scheme := "https"
	if c.PlainHTTP(ref.Registry) {
		scheme = "http"
	}
	host := orasregistry.Reference{Registry: ref.Registry}.Host()
	return fmt.Sprintf("%s://%s/v2/%s/%s/%s", scheme, host, ref.Repository, kind, id)
}

// isNotFound treats a missing manifest and a missing repository alike.
func isNotFound(err error) bool {
	if errors.Is(err, errdef.ErrNotFound) {
		return true
	}
	var resp *errcode.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	for _, e := range resp.Errors {
		switch e.Code {
		case errcode.ErrorCodeManifestUnknown, errcode.ErrorCodeNameUnknown:
			return true
		}
	}
	return false
}

func truncateBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}

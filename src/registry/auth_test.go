package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"oras.land/oras-go/v2/registry/remote/auth"
)

func TestResolveCredentialFromEnv(t *testing.T) {
	t.Setenv("DOCKER_CONFIG", t.TempDir())
	t.Setenv("GHCR_ORG_USER", "bot")
	t.Setenv("GHCR_ORG_PASS", "token")

	cred, err := ResolveCredential(context.Background(), "ghcr.io", "ghcr_org")
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred.Username != "bot" || cred.Password != "token" {
		t.Errorf("cred = %+v", cred)
	}
}

func TestResolveCredentialAnonymousWithoutConfig(t *testing.T) {
	t.Setenv("DOCKER_CONFIG", t.TempDir())

	cred, err := Credentials("")(context.Background(), "registry.example")
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred != auth.EmptyCredential {
		t.Errorf("expected anonymous, got %+v", cred)
	}
}

func TestResolveCredentialFromDockerConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCKER_CONFIG", dir)
	// "ci:secret"
	config := `{"auths":{"registry.example":{"auth":"Y2k6c2VjcmV0"}}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}

	cred, err := ResolveCredential(context.Background(), "registry.example", "")
	if err != nil {
		t.Fatalf("ResolveCredential: %v", err)
	}
	if cred.Username != "ci" || cred.Password != "secret" {
		t.Errorf("cred = %+v", cred)
	}

	other, err := ResolveCredential(context.Background(), "other.example", "")
	if err != nil || other != auth.EmptyCredential {
		t.Errorf("unknown host = %+v, %v", other, err)
	}
}

func TestResolveCredentialMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCKER_CONFIG", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveCredential(context.Background(), "registry.example", ""); err == nil {
		t.Error("expected error for malformed docker config")
	}
}

package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// CredentialFunc resolves the credential to use for a registry host.
type CredentialFunc func(ctx context.Context, host string) (auth.Credential, error)

// Anonymous never supplies credentials.
func Anonymous(context.Context, string) (auth.Credential, error) {
	return auth.EmptyCredential, nil
}

// Credentials returns a CredentialFunc that checks PREFIX_USER and
// PREFIX_PASS first, then the docker credential store. A host the store
// knows nothing about, or whose credential helper fails, is anonymous.
// A docker config that cannot be parsed is an error.
func Credentials(envPrefix string) CredentialFunc {
	return func(ctx context.Context, host string) (auth.Credential, error) {
		return ResolveCredential(ctx, host, envPrefix)
	}
}

// ResolveCredential implements Credentials for a single lookup.
func ResolveCredential(ctx context.Context, host, envPrefix string) (auth.Credential, error) {
	log := zerolog.Ctx(ctx)

	if user, pass := resolveCredentials(envPrefix); user != "" {
		log.Debug().Str("registry", host).Str("source", "env").Msg("using credentials")
		return auth.Credential{Username: user, Password: pass}, nil
	}

	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		return auth.EmptyCredential, fmt.Errorf("loading docker credentials: %w", err)
	}
	cred, err := store.Get(ctx, host)
	if err != nil {
		log.Debug().Err(err).Str("registry", host).Msg("credential lookup failed, using anonymous access")
		return auth.EmptyCredential, nil
	}
	if cred == auth.EmptyCredential {
		log.Debug().Str("registry", host).Msg("no credentials configured, using anonymous access")
	} else {
		log.Debug().Str("registry", host).Str("source", "docker").Msg("using credentials")
	}
	return cred, nil
}

// resolveCredentials reads PREFIX_USER and PREFIX_PASS. Returns empty
// strings if no prefix or vars are unset.
func resolveCredentials(prefix string) (user, pass string) {
	if prefix == "" {
		return "", ""
	}
	p := strings.ToUpper(prefix)
	return os.Getenv(p + "_USER"), os.Getenv(p + "_PASS")
}

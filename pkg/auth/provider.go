package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Login provider names.
const (
	ProviderApple = "apple"
	ProviderKakao = "kakao"
)

// ErrUnsupportedProvider is returned for a provider name with no registered IdentityProvider.
var ErrUnsupportedProvider = errors.New("unsupported login provider")

// Identity is the subject a third-party token was issued for.
type Identity struct {
	Provider string
	Subject  string
	Email    string
}

// IdentityProvider turns a third-party token into an Identity.
type IdentityProvider interface {
	Name() string
	Identify(ctx context.Context, token string) (Identity, error)
}

// Providers is a registry of IdentityProviders keyed by name.
type Providers map[string]IdentityProvider

// NewProviders registers every non-nil provider under its name.
func NewProviders(providers ...IdentityProvider) Providers {
	out := make(Providers, len(providers))
	for _, p := range providers {
		if p != nil {
			out[strings.ToLower(p.Name())] = p
		}
	}
	return out
}

// Identify resolves token with the provider registered under name.
func (p Providers) Identify(ctx context.Context, name, token string) (Identity, error) {
	provider, ok := p[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	if strings.TrimSpace(token) == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	return provider.Identify(ctx, token)
}

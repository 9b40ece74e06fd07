package auth

import (
	"context"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

// AppleProvider verifies Sign in with Apple identity tokens.
type AppleProvider struct {
	validator JWTValidator
}

// NewAppleProvider builds a provider that checks tokens against Apple's published keys.
func NewAppleProvider(jwksURL string, cacheTTL time.Duration, issuer, audience string, log logger.Logger) *AppleProvider {
	keys := NewJWKSClient(jwksURL, cacheTTL, log)
	return &AppleProvider{validator: NewJWKSValidator(keys, issuer, audience, log)}
}

// NewAppleProviderWithValidator builds a provider on an existing validator.
func NewAppleProviderWithValidator(validator JWTValidator) *AppleProvider {
	return &AppleProvider{validator: validator}
}

// Name returns "apple".
func (p *AppleProvider) Name() string { return ProviderApple }

// Identify validates an identity token and returns its subject.
func (p *AppleProvider) Identify(ctx context.Context, token string) (Identity, error) {
	claims, err := p.validator.Validate(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Provider: ProviderApple,
		Subject:  claims.Subject,
		Email:    claims.Email,
	}, nil
}

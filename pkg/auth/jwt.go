package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every parse or verification failure.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified content of an identity token.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Email     string
	// Custom holds every claim not mapped to a field above.
	Custom map[string]interface{}
}

// JWTValidator verifies a token and returns its claims.
type JWTValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// JWKSValidator accepts RS256 tokens signed by a key from keys, issued by
// issuer for audience, with an expiry.
type JWKSValidator struct {
	keys   KeySource
	parser *jwt.Parser
	logger logger.Logger
}

func NewJWKSValidator(keys KeySource, issuer, audience string, log logger.Logger) *JWKSValidator {
	return &JWKSValidator{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
		logger: log,
	}
}

func (v *JWKSValidator) Validate(ctx context.Context, raw string) (*Claims, error) {
	mc := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(raw, mc, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		return v.keys.GetKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := claimsFromMap(mc)
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	v.logger.Debug("identity token verified", "issuer", claims.Issuer)
	return claims, nil
}

func claimsFromMap(mc jwt.MapClaims) *Claims {
	c := &Claims{Custom: map[string]interface{}{}}
	c.Subject, _ = mc.GetSubject()
	c.Issuer, _ = mc.GetIssuer()
	if aud, err := mc.GetAudience(); err == nil {
		c.Audience = aud
	}
	if exp, _ := mc.GetExpirationTime(); exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, _ := mc.GetIssuedAt(); iat != nil {
		c.IssuedAt = iat.Time
	}

	for name, value := range mc {
		switch name {
		case "sub", "iss", "aud", "exp", "iat", "nbf", "jti":
		case "email":
			s, _ := value.(string)
			c.Email = strings.TrimSpace(s)
		default:
			c.Custom[name] = value
		}
	}
	return c
}

type claimsKey struct{}

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims returns the claims attached by WithClaims, or nil.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

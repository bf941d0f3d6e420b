package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// ErrInvalidToken is returned for tokens that do not verify or lack a subject
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by an access token
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenResolver verifies HS256 tokens issued by IssueToken.
// When a directory is attached, the directory entry for the subject wins over token claims.
type TokenResolver struct {
	secret    []byte
	directory port.UserDirectory
	now       func() time.Time
}

// ResolverOption configures a TokenResolver
type ResolverOption func(*TokenResolver)

// WithDirectory makes the resolver look subjects up in directory
func WithDirectory(directory port.UserDirectory) ResolverOption {
	return func(r *TokenResolver) {
		r.directory = directory
	}
}

// WithTimeFunc overrides the clock used for expiry checks
func WithTimeFunc(now func() time.Time) ResolverOption {
	return func(r *TokenResolver) {
		r.now = now
	}
}

// NewTokenResolver creates a resolver for tokens signed with secret
func NewTokenResolver(secret string, opts ...ResolverOption) *TokenResolver {
	r := &TokenResolver{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IssueToken signs an access token for identity valid for ttl
func (r *TokenResolver) IssueToken(identity entity.Identity, ttl time.Duration) (string, error) {
	now := r.now()
	claims := Claims{
		Name:  identity.Name,
		Email: identity.Email,
		Role:  string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Resolve implements port.IdentityResolver
func (r *TokenResolver) Resolve(ctx context.Context, raw string) (entity.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return entity.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if r.directory != nil {
		identity, err := r.directory.Get(ctx, claims.Subject)
		if entity.IsNotFound(err) {
			return entity.Identity{}, fmt.Errorf("%w: unknown subject %s", ErrInvalidToken, claims.Subject)
		}
		return identity, err
	}

	role := entity.Role(claims.Role)
	if !role.IsValid() {
		return entity.Identity{}, fmt.Errorf("%w: invalid role %q", ErrInvalidToken, claims.Role)
	}
	return entity.Identity{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  role,
	}, nil
}

var _ port.IdentityResolver = (*TokenResolver)(nil)

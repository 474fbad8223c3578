package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

var ErrInvalidToken = errors.New("invalid access token")

type Claims struct {
	UserID string
	Email  string
}

// JWKSVerifier validates access tokens against the project's published keys.
type JWKSVerifier struct {
	cache   *jwk.Cache
	jwksURL string
}

// JWKSURL is where Supabase Auth publishes its signing keys.
func JWKSURL(supabaseURL string) string {
	return strings.TrimRight(supabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
}

func NewJWKSVerifier(ctx context.Context, jwksURL string) (*JWKSVerifier, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	if err := cache.Register(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("failed to register jwks url with cache: %w", err)
	}

	return &JWKSVerifier{cache: cache, jwksURL: jwksURL}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, accessToken string) (*Claims, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	claims := &Claims{UserID: userID}

	// email is optional
	_ = token.Get("email", &claims.Email)

	return claims, nil
}

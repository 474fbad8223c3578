package auth

import (
	"context"
	"fmt"
	"strings"

	supauth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"
)

// SupabaseProvider talks to Supabase Auth (GoTrue). The client library is
// not context aware, so ctx is only checked before each call.
type SupabaseProvider struct {
	client supauth.Client
}

func NewSupabaseProvider(projectRef, anonKey, authURL string) *SupabaseProvider {
	client := supauth.New(projectRef, anonKey)
	if authURL != "" {
		client = client.WithCustomAuthURL(strings.TrimRight(authURL, "/") + "/auth/v1")
	}

	return &SupabaseProvider{client: client}
}

func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, *Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	resp, err := p.client.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     metadata,
	})
	if err != nil {
		return nil, nil, mapSupabaseError(err, "failed to sign up")
	}

	user := userFromSupabase(resp.User)
	if resp.AccessToken == "" {
		return &user, nil, nil
	}

	return &user, &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		User:         user,
	}, nil
}

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := p.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, mapSupabaseError(err, "failed to sign in")
	}

	return sessionFromSupabase(resp.Session), nil
}

func (p *SupabaseProvider) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := p.client.Token(types.TokenRequest{
		GrantType:    "pkce",
		Code:         code,
		CodeVerifier: verifier,
	})
	if err != nil {
		return nil, mapSupabaseError(err, "failed to exchange code")
	}

	return sessionFromSupabase(resp.Session), nil
}

func (p *SupabaseProvider) Recover(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.client.Recover(types.RecoverRequest{Email: email}); err != nil {
		return mapSupabaseError(err, "failed to send recovery email")
	}

	return nil
}

func (p *SupabaseProvider) UpdatePassword(ctx context.Context, accessToken, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.client.WithToken(accessToken).UpdateUser(types.UpdateUserRequest{Password: &password})
	if err != nil {
		return mapSupabaseError(err, "failed to update password")
	}

	return nil
}

func (p *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.client.WithToken(accessToken).Logout(); err != nil {
		return mapSupabaseError(err, "failed to sign out")
	}

	return nil
}

func userFromSupabase(u types.User) User {
	user := User{
		ID:             u.ID.String(),
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil && !u.EmailConfirmedAt.IsZero(),
	}

	if name, ok := u.UserMetadata["full_name"].(string); ok {
		user.FullName = name
	}

	return user
}

func sessionFromSupabase(s types.Session) *Session {
	return &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		User:         userFromSupabase(s.User),
	}
}

// mapSupabaseError turns the library's status text errors into sentinels.
func mapSupabaseError(err error, msg string) error {
	text := strings.ToLower(err.Error())

	switch {
	case strings.Contains(text, "invalid login credentials"), strings.Contains(text, "invalid_credentials"):
		return fmt.Errorf("%s: %w", msg, ErrInvalidCredentials)
	case strings.Contains(text, "email not confirmed"), strings.Contains(text, "email_not_confirmed"):
		return fmt.Errorf("%s: %w", msg, ErrEmailNotConfirmed)
	case strings.Contains(text, "already registered"), strings.Contains(text, "user_already_exists"):
		return fmt.Errorf("%s: %w", msg, ErrUserExists)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUserExists         = errors.New("user already registered")
)

// User is the hosted identity, independent of the profile row.
type User struct {
	ID             string
	Email          string
	EmailConfirmed bool
	FullName       string
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	User         User
}

// Provider is the hosted authentication service. SignUp returns a nil
// session when the account must confirm its email first.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, *Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
	Recover(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, password string) error
	SignOut(ctx context.Context, accessToken string) error
}

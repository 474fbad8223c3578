package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

var ErrNoSession = errors.New("no session")

// Meta tracks session age and activity alongside the access token cookie.
type Meta struct {
	UserID    string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Expired reports whether the session is past its absolute or idle limit.
func (m *Meta) Expired(now time.Time, maxAge, idle time.Duration) bool {
	if maxAge > 0 && now.Sub(m.CreatedAt) > maxAge {
		return true
	}
	if idle > 0 && now.Sub(m.LastSeen) > idle {
		return true
	}
	return false
}

type CookieConfig struct {
	Name        string
	MaxAge      time.Duration
	IdleTimeout time.Duration
	Secure      bool
}

// Cookies reads and writes the encrypted session cookies.
type Cookies struct {
	codec  *securecookie.SecureCookie
	config CookieConfig
}

func NewCookies(hashKey, blockKey []byte, config CookieConfig) *Cookies {
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(config.MaxAge.Seconds()))

	return &Cookies{codec: codec, config: config}
}

func (c *Cookies) metaName() string {
	return c.config.Name + "_meta"
}

func (c *Cookies) verifierName() string {
	return c.config.Name + "_verifier"
}

func (c *Cookies) Config() CookieConfig {
	return c.config
}

func (c *Cookies) AccessToken(r *http.Request) (string, error) {
	var token string
	if err := c.read(r, c.config.Name, &token); err != nil {
		return "", err
	}
	return token, nil
}

func (c *Cookies) Meta(r *http.Request) (*Meta, error) {
	var meta Meta
	if err := c.read(r, c.metaName(), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SetSession writes the access token and a fresh metadata cookie.
func (c *Cookies) SetSession(w http.ResponseWriter, session *Session, now time.Time) error {
	if err := c.write(w, c.config.Name, session.AccessToken); err != nil {
		return err
	}

	return c.SetMeta(w, &Meta{UserID: session.User.ID, CreatedAt: now, LastSeen: now})
}

func (c *Cookies) SetMeta(w http.ResponseWriter, meta *Meta) error {
	return c.write(w, c.metaName(), meta)
}

// EnsureMeta writes metadata for a session that has none. It reports
// whether a cookie was written.
func (c *Cookies) EnsureMeta(w http.ResponseWriter, r *http.Request, userID string, now time.Time) (bool, error) {
	if meta, err := c.Meta(r); err == nil && meta.UserID == userID {
		return false, nil
	}

	if err := c.SetMeta(w, &Meta{UserID: userID, CreatedAt: now, LastSeen: now}); err != nil {
		return false, err
	}

	return true, nil
}

func (c *Cookies) Verifier(r *http.Request) string {
	var verifier string
	if err := c.read(r, c.verifierName(), &verifier); err != nil {
		return ""
	}
	return verifier
}

// Clear expires every session cookie.
func (c *Cookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{c.config.Name, c.metaName(), c.verifierName()} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			HttpOnly: true,
			Secure:   c.config.Secure,
			SameSite: http.SameSiteLaxMode,
			Path:     "/",
			MaxAge:   -1,
		})
	}
}

func (c *Cookies) read(r *http.Request, name string, dst any) error {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ErrNoSession
	}

	if err := c.codec.Decode(name, cookie.Value, dst); err != nil {
		return fmt.Errorf("failed to decode %s cookie: %w", name, err)
	}

	return nil
}

func (c *Cookies) write(w http.ResponseWriter, name string, value any) error {
	encoded, err := c.codec.Encode(name, value)
	if err != nil {
		return fmt.Errorf("failed to encode %s cookie: %w", name, err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    encoded,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.config.MaxAge.Seconds()),
		Path:     "/",
	})

	return nil
}

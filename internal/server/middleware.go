package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"time"

	"neothink/internal/auth"
	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyUserID      contextKey = "user_id"
	contextKeyEmail       contextKey = "email"
	contextKeyAccessToken contextKey = "access_token"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach Flush and deadlines.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

func (s *Service) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; frame-ancestors 'none'")
		if !s.config.IsDevelopment() {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") && classifyPath(path) != pathStatic {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type pathClass int

const (
	pathPublic pathClass = iota
	pathStatic
	pathAuth
	pathProtected
)

var (
	staticPrefixes    = []string{"/static/", "/_next/"}
	staticFiles       = []string{"/favicon.ico", "/robots.txt", "/sitemap.xml"}
	authPrefixes      = []string{"/auth/", "/api/auth/"}
	protectedPrefixes = []string{
		"/dashboard",
		"/profile",
		"/settings",
		"/notifications",
		"/onboarding",
		"/api/notifications",
		"/api/preferences",
		"/api/profile",
		"/api/settings",
	}
)

func classifyPath(p string) pathClass {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return pathStatic
		}
	}
	for _, f := range staticFiles {
		if p == f {
			return pathStatic
		}
	}
	if strings.HasPrefix(p, "/assets/") && path.Ext(p) != "" {
		return pathStatic
	}

	for _, prefix := range authPrefixes {
		if strings.HasPrefix(p, prefix) {
			return pathAuth
		}
	}

	for _, prefix := range protectedPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return pathProtected
		}
	}

	return pathPublic
}

// SessionGate classifies the request path, throttles auth endpoints and
// enforces a fresh session on protected paths.
func (s *Service) SessionGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := classifyPath(r.URL.Path)
		if class == pathStatic {
			next.ServeHTTP(w, r)
			return
		}

		if class == pathAuth {
			result := s.limiter.CheckRateLimit(s.clientIP(r) + ":" + r.URL.Path)
			if !result.Allowed {
				s.writeRateLimited(w, result.WaitTimeMillis(), result.RetryAfterSeconds())
				return
			}
		}

		ctx := r.Context()
		now := s.now()
		claims, token := s.resolveSession(r)

		if class != pathProtected {
			if claims != nil {
				if _, err := s.cookies.EnsureMeta(w, r, claims.UserID, now); err != nil {
					s.logger.WithError(err).Warn("failed to initialize session metadata")
				}
				ctx = withIdentity(ctx, claims, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if claims == nil {
			v := url.Values{}
			v.Set("redirectedFrom", r.URL.Path)
			http.Redirect(w, r, "/auth/sign-in?"+v.Encode(), http.StatusSeeOther)
			return
		}

		cookieConfig := s.cookies.Config()
		meta, err := s.cookies.Meta(r)
		if err != nil || meta.UserID != claims.UserID || meta.Expired(now, cookieConfig.MaxAge, cookieConfig.IdleTimeout) {
			s.logger.WithField("user_id", claims.UserID).Info("session expired")
			s.cookies.Clear(w)
			http.Redirect(w, r, "/auth/sign-in?error=session_expired", http.StatusSeeOther)
			return
		}

		meta.LastSeen = now
		if err := s.cookies.SetMeta(w, meta); err != nil {
			s.logger.WithError(err).Warn("failed to refresh session metadata")
		}

		ctx = withIdentity(ctx, claims, token)

		if r.URL.Path == "/dashboard" {
			profile, err := s.profiles.Profile(ctx, claims.UserID)
			if err != nil && !errors.Is(err, types.ErrProfileNotFound) {
				s.logger.WithError(err).WithField("user_id", claims.UserID).Error("failed to load profile for dashboard gate")
				s.internalServerError(w)
				return
			}
			if profile == nil || !profile.OnboardingCompleted {
				http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveSession returns nil claims when there is no valid session.
func (s *Service) resolveSession(r *http.Request) (*auth.Claims, string) {
	token, err := s.cookies.AccessToken(r)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			s.logger.WithError(err).Debug("unreadable session cookie")
		}
		return nil, ""
	}

	claims, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		s.logger.WithError(err).Debug("session token rejected")
		return nil, ""
	}

	return claims, token
}

func withIdentity(ctx context.Context, claims *auth.Claims, token string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID, claims.UserID)
	ctx = context.WithValue(ctx, contextKeyAccessToken, token)
	if claims.Email != "" {
		ctx = context.WithValue(ctx, contextKeyEmail, claims.Email)
	}
	return ctx
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok || userID == "" {
		return "", types.ErrUnauthenticated
	}
	return userID, nil
}

// ParseTrustedProxies accepts bare addresses and CIDR prefixes.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			out = append(out, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (s *Service) trustedProxy(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, prefix := range s.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP only believes X-Forwarded-For and X-Real-IP when the peer is a
// trusted proxy. Forwarded hops are read right to left and the first one
// that is not itself a trusted proxy is the client.
func (s *Service) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}

	if !s.trustedProxy(peer) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		leftmost := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !s.trustedProxy(hop) {
				return hop
			}
			leftmost = hop
		}
		if leftmost != "" {
			return leftmost
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	return peer
}

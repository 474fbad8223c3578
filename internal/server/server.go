package server

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"neothink/internal/auth"
	"neothink/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Service struct {
	logger *logrus.Logger
	config *types.Config

	provider auth.Provider
	verifier TokenVerifier
	cookies  *auth.Cookies
	limiter  RateLimiter

	trustedProxies []netip.Prefix

	profiles    ProfileStore
	preferences PreferenceStore
	settings    SettingsStore
	feed        NotificationFeed
	notifier    Notifier
	avatars     AvatarStorage

	now func() time.Time

	// streams is cancelled when shutdown begins so open event streams
	// return instead of holding the server open.
	streams      context.Context
	closeStreams context.CancelFunc

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	provider auth.Provider,
	verifier TokenVerifier,
	cookies *auth.Cookies,
	limiter RateLimiter,
	profiles ProfileStore,
	preferences PreferenceStore,
	settings SettingsStore,
	feed NotificationFeed,
	notifier Notifier,
	avatars AvatarStorage,
) *Service {
	s := &Service{
		logger:      logger,
		config:      config,
		provider:    provider,
		verifier:    verifier,
		cookies:     cookies,
		limiter:     limiter,
		profiles:    profiles,
		preferences: preferences,
		settings:    settings,
		feed:        feed,
		notifier:    notifier,
		avatars:     avatars,
		now:         time.Now,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	proxies, err := ParseTrustedProxies(config.TrustedProxies)
	if err != nil {
		logger.WithError(err).Warn("ignoring trusted proxy configuration")
	}
	s.trustedProxies = proxies

	s.streams, s.closeStreams = context.WithCancel(context.Background())
	s.server.RegisterOnShutdown(s.closeStreams)

	mux := flow.New()
	s.buildRouter(mux)

	// The middleware chain wraps the mux itself so unrouted paths are
	// still gated and carry the security headers.
	s.server.Handler = s.LoggingMiddleware(s.SecurityHeaders(s.StripTrailingSlash(s.SessionGate(mux))))

	return s
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler, mostly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, fmt.Errorf("no route for %s: %w", r.URL.Path, types.ErrNotFound))
	})

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/welcome", s.handlePage("welcome"), http.MethodGet)
	r.HandleFunc("/settings", s.handleGetSettingsPage, http.MethodGet)

	r.HandleFunc("/auth/sign-up", s.handlePage("sign-up"), http.MethodGet)
	r.HandleFunc("/auth/sign-in", s.handlePage("sign-in"), http.MethodGet)
	r.HandleFunc("/auth/verify-email", s.handlePage("verify-email"), http.MethodGet)
	r.HandleFunc("/auth/auth-error", s.handlePage("auth-error"), http.MethodGet)
	r.HandleFunc("/auth/reset-password", s.handlePage("reset-password"), http.MethodGet)
	r.HandleFunc("/auth/update-password", s.handlePage("update-password"), http.MethodGet)

	r.HandleFunc("/auth/sign-up", s.handlePostSignUp, http.MethodPost)
	r.HandleFunc("/auth/sign-in", s.handlePostSignIn, http.MethodPost)
	r.HandleFunc("/auth/sign-out", s.handlePostSignOut, http.MethodPost)
	r.HandleFunc("/auth/reset-password", s.handlePostResetPassword, http.MethodPost)
	r.HandleFunc("/auth/update-password", s.handlePostUpdatePassword, http.MethodPost)
	r.HandleFunc("/auth/callback", s.handleGetCallback, http.MethodGet)

	r.HandleFunc("/dashboard", s.handleGetDashboard, http.MethodGet)
	r.HandleFunc("/onboarding", s.handleGetOnboarding, http.MethodGet)
	r.HandleFunc("/onboarding", s.handlePostOnboarding, http.MethodPost)

	r.HandleFunc("/api/profile", s.handleGetProfile, http.MethodGet)
	r.HandleFunc("/api/profile", s.handlePatchProfile, http.MethodPatch)
	r.HandleFunc("/api/profile", s.handleDeleteProfile, http.MethodDelete)
	r.HandleFunc("/api/profile/avatar", s.handlePostAvatar, http.MethodPost)

	r.HandleFunc("/api/preferences", s.handleGetPreferences, http.MethodGet)
	r.HandleFunc("/api/preferences/:type", s.handlePatchPreference, http.MethodPatch)

	r.HandleFunc("/api/settings", s.handleGetSettings, http.MethodGet)
	r.HandleFunc("/api/settings", s.handlePatchSettings, http.MethodPatch)
	r.HandleFunc("/api/settings/privacy", s.handleGetPrivacy, http.MethodGet)
	r.HandleFunc("/api/settings/privacy", s.handlePatchPrivacy, http.MethodPatch)

	r.HandleFunc("/api/notifications", s.handleListNotifications, http.MethodGet)
	r.HandleFunc("/api/notifications", s.handleDeleteAllNotifications, http.MethodDelete)
	r.HandleFunc("/api/notifications/stream", s.handleNotificationStream, http.MethodGet)
	r.HandleFunc("/api/notifications/read-all", s.handleMarkAllNotificationsRead, http.MethodPost)
	r.HandleFunc("/api/notifications/:id/read", s.handleMarkNotificationRead, http.MethodPost)
	r.HandleFunc("/api/notifications/:id", s.handleDeleteNotification, http.MethodDelete)
}

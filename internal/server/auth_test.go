package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"neothink/internal/auth"
	"neothink/pkg/types"

	"github.com/stretchr/testify/require"
)

func location(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc
}

func cookieNames(rec *httptest.ResponseRecorder) map[string]bool {
	names := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			names[c.Name] = true
		}
	}
	return names
}

func confirmedSession(userID, email string) *auth.Session {
	return &auth.Session{
		AccessToken: "token:" + userID,
		User:        auth.User{ID: userID, Email: email, EmailConfirmed: true},
	}
}

func TestSignInRedirectsToRequestedPath(t *testing.T) {
	h := newHarness(t, "development")
	h.addProfile("u1", true)
	h.provider.signInSession = confirmedSession("u1", "a@example.com")

	rec := h.do(formRequest("/auth/sign-in", map[string]string{
		"email":          " A@Example.com ",
		"password":       "Secret123",
		"redirectedFrom": "/settings",
	}))

	loc := location(t, rec)
	require.Equal(t, "/settings", loc.String())
	require.Contains(t, h.limiter.resets, "a@example.com")
	require.Contains(t, h.limiter.checked, "a@example.com")
	require.Contains(t, h.profiles.bootstrapped, "u1")

	names := cookieNames(rec)
	require.True(t, names["nt_session"])
	require.True(t, names["nt_session_meta"])
}

func TestSignInIgnoresOffsiteRedirect(t *testing.T) {
	h := newHarness(t, "development")
	h.addProfile("u1", true)
	h.provider.signInSession = confirmedSession("u1", "a@example.com")

	rec := h.do(formRequest("/auth/sign-in", map[string]string{
		"email":          "a@example.com",
		"password":       "Secret123",
		"redirectedFrom": "https://evil.example.net/steal",
	}))

	require.Equal(t, "/dashboard", location(t, rec).String())
}

func TestSignInSendsNewAccountsToOnboarding(t *testing.T) {
	h := newHarness(t, "development")
	h.provider.signInSession = confirmedSession("u1", "a@example.com")

	rec := h.do(formRequest("/auth/sign-in", map[string]string{
		"email":    "a@example.com",
		"password": "Secret123",
	}))

	require.Equal(t, "/onboarding", location(t, rec).String())
	require.Contains(t, h.profiles.profiles, "u1")
}

func TestSignInFailures(t *testing.T) {
	t.Run("invalid credentials", func(t *testing.T) {
		h := newHarness(t, "development")
		h.provider.signInErr = auth.ErrInvalidCredentials

		rec := h.do(formRequest("/auth/sign-in", map[string]string{"email": "a@example.com", "password": "nope"}))

		loc := location(t, rec)
		require.Equal(t, "/auth/sign-in", loc.Path)
		require.Equal(t, "Invalid email or password.", loc.Query().Get("error"))
		require.Empty(t, h.limiter.resets)
		require.False(t, cookieNames(rec)["nt_session"])
	})

	t.Run("email not confirmed", func(t *testing.T) {
		h := newHarness(t, "development")
		h.provider.signInErr = auth.ErrEmailNotConfirmed

		rec := h.do(formRequest("/auth/sign-in", map[string]string{"email": "a@example.com", "password": "Secret123"}))

		loc := location(t, rec)
		require.Equal(t, "/auth/verify-email", loc.Path)
		require.Equal(t, "a@example.com", loc.Query().Get("email"))
	})

	t.Run("missing password", func(t *testing.T) {
		h := newHarness(t, "development")

		rec := h.do(formRequest("/auth/sign-in", map[string]string{"email": "a@example.com"}))

		loc := location(t, rec)
		require.Equal(t, "/auth/sign-in", loc.Path)
		require.NotEmpty(t, loc.Query().Get("error"))
	})

	t.Run("throttled by email", func(t *testing.T) {
		h := newHarness(t, "development")
		h.limiter.deny["a@example.com"] = true

		rec := h.do(formRequest("/auth/sign-in", map[string]string{"email": "a@example.com", "password": "Secret123"}))

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "2", rec.Header().Get("Retry-After"))
	})
}

func TestSignUp(t *testing.T) {
	t.Run("weak password", func(t *testing.T) {
		h := newHarness(t, "development")

		rec := h.do(formRequest("/auth/sign-up", map[string]string{
			"email":            "a@example.com",
			"password":         "short",
			"confirm_password": "short",
		}))

		loc := location(t, rec)
		require.Equal(t, "/auth/sign-up", loc.Path)
		require.NotEmpty(t, loc.Query().Get("error"))
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		h := newHarness(t, "development")

		rec := h.do(formRequest("/auth/sign-up", map[string]string{
			"email":            "a@example.com",
			"password":         "Secret123",
			"confirm_password": "Secret124",
		}))

		require.Equal(t, "/auth/sign-up", location(t, rec).Path)
	})

	t.Run("existing account", func(t *testing.T) {
		h := newHarness(t, "development")
		h.provider.signUpErr = auth.ErrUserExists

		rec := h.do(formRequest("/auth/sign-up", map[string]string{
			"email":            "a@example.com",
			"password":         "Secret123",
			"confirm_password": "Secret123",
		}))

		loc := location(t, rec)
		require.Equal(t, "/auth/sign-up", loc.Path)
		require.Contains(t, loc.Query().Get("error"), "already exists")
	})

	t.Run("confirmation pending", func(t *testing.T) {
		h := newHarness(t, "development")

		rec := h.do(formRequest("/auth/sign-up", map[string]string{
			"email":            "A@example.com",
			"password":         "Secret123",
			"confirm_password": "Secret123",
		}))

		loc := location(t, rec)
		require.Equal(t, "/auth/verify-email", loc.Path)
		require.Equal(t, "a@example.com", loc.Query().Get("email"))
		require.Empty(t, h.profiles.bootstrapped)
	})

	t.Run("immediate session", func(t *testing.T) {
		h := newHarness(t, "development")
		h.provider.signUpUser = &auth.User{ID: "u9", Email: "a@example.com"}
		h.provider.signUpSession = confirmedSession("u9", "a@example.com")

		rec := h.do(formRequest("/auth/sign-up", map[string]string{
			"email":            "a@example.com",
			"password":         "Secret123",
			"confirm_password": "Secret123",
			"full_name":        "Ada Lovelace",
		}))

		require.Equal(t, "/welcome", location(t, rec).String())
		require.Equal(t, []string{"u9"}, h.profiles.bootstrapped)
		require.True(t, cookieNames(rec)["nt_session"])
	})
}

func TestResetPasswordNeverDisclosesAccounts(t *testing.T) {
	h := newHarness(t, "development")

	rec := h.do(formRequest("/auth/reset-password", map[string]string{"email": "Nobody@Example.com"}))

	loc := location(t, rec)
	require.Equal(t, "/auth/reset-password", loc.Path)
	require.Equal(t, "true", loc.Query().Get("sent"))
	require.Equal(t, []string{"nobody@example.com"}, h.provider.recovered)
}

func TestUpdatePassword(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		h := newHarness(t, "development")

		rec := h.do(formRequest("/auth/update-password", map[string]string{
			"password":         "Secret123",
			"confirm_password": "Secret123",
		}))

		loc := location(t, rec)
		require.Equal(t, "/auth/sign-in", loc.Path)
		require.Equal(t, "/auth/update-password", loc.Query().Get("redirectedFrom"))
		require.Empty(t, h.provider.updatedPassword)
	})

	t.Run("updates and notifies", func(t *testing.T) {
		h := newHarness(t, "development")
		h.addProfile("u1", true)

		rec := h.do(formRequest("/auth/update-password", map[string]string{
			"password":         "Secret123",
			"confirm_password": "Secret123",
		}), h.freshSession(t, "u1")...)

		loc := location(t, rec)
		require.Equal(t, "/settings", loc.Path)
		require.Equal(t, "password_updated", loc.Query().Get("notice"))
		require.Equal(t, []string{"token:u1"}, h.provider.updatedPassword)

		require.Len(t, h.notifier.sent, 1)
		require.Equal(t, types.NotificationTypeSecurity, h.notifier.sent[0].Type)
		require.Equal(t, "u1", h.notifier.sent[0].UserID)
	})
}

func TestSignOutClearsCookies(t *testing.T) {
	h := newHarness(t, "development")

	rec := h.do(httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil), h.freshSession(t, "u1")...)

	require.Equal(t, "/", location(t, rec).String())
	require.Equal(t, []string{"token:u1"}, h.provider.signedOut)

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	require.Equal(t, 3, cleared)
}

func TestCallback(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		onboarded bool
		exchange  error
		want      string
		bootstrap bool
	}{
		{name: "provider error", query: "error=access_denied&error_description=Link+expired", want: "/auth/auth-error?reason=Link+expired"},
		{name: "provider error without description", query: "error=access_denied", want: "/auth/auth-error?reason=access_denied"},
		{name: "missing code", query: "", want: "/auth/auth-error?reason=missing_code"},
		{name: "exchange failure", query: "code=abc", exchange: auth.ErrInvalidToken, want: "/auth/auth-error?reason=Unable+to+verify+your+link.+It+may+have+expired."},
		{name: "signup", query: "code=abc&type=signup", want: "/welcome", bootstrap: true},
		{name: "recovery", query: "code=abc&type=recovery", want: "/auth/update-password"},
		{name: "recovery with next", query: "code=abc&type=recovery&next=%2Fsettings", want: "/settings"},
		{name: "not onboarded", query: "code=abc&next=%2Fsettings", want: "/welcome"},
		{name: "onboarded with next", query: "code=abc&next=%2Fsettings", onboarded: true, want: "/settings"},
		{name: "offsite next", query: "code=abc&next=%2F%2Fevil.example.net", onboarded: true, want: "/dashboard"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, "development")
			if tc.onboarded {
				h.addProfile("u1", true)
			}
			h.provider.exchangeSession = confirmedSession("u1", "a@example.com")
			h.provider.exchangeErr = tc.exchange

			rec := h.do(httptest.NewRequest(http.MethodGet, "/auth/callback?"+tc.query, nil))

			require.Equal(t, tc.want, location(t, rec).String())
			if tc.bootstrap {
				require.Equal(t, []string{"u1"}, h.profiles.bootstrapped)
			} else {
				require.Empty(t, h.profiles.bootstrapped)
			}
		})
	}
}

func TestLocalPath(t *testing.T) {
	cases := map[string]string{
		"/settings":            "/settings",
		"/settings?tab=1":      "/settings?tab=1",
		"":                     "/fallback",
		"settings":             "/fallback",
		"//evil.example.net":   "/fallback",
		"/\\evil.example.net":  "/fallback",
		"https://example.net/": "/fallback",
	}

	for in, want := range cases {
		require.Equal(t, want, localPath(in, "/fallback"), in)
	}
}

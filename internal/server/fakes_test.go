package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"neothink/internal/auth"
	"neothink/internal/ratelimit"
	"neothink/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu sync.Mutex

	signUpUser    *auth.User
	signUpSession *auth.Session
	signUpErr     error

	signInSession *auth.Session
	signInErr     error

	exchangeSession *auth.Session
	exchangeErr     error

	recovered       []string
	updatedPassword []string
	signedOut       []string
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string, _ map[string]any) (*auth.User, *auth.Session, error) {
	if f.signUpErr != nil {
		return nil, nil, f.signUpErr
	}
	user := f.signUpUser
	if user == nil {
		user = &auth.User{ID: "new-user", Email: email}
	}
	return user, f.signUpSession, nil
}

func (f *fakeProvider) SignIn(context.Context, string, string) (*auth.Session, error) {
	return f.signInSession, f.signInErr
}

func (f *fakeProvider) ExchangeCode(context.Context, string, string) (*auth.Session, error) {
	return f.exchangeSession, f.exchangeErr
}

func (f *fakeProvider) Recover(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recovered = append(f.recovered, email)
	return nil
}

func (f *fakeProvider) UpdatePassword(_ context.Context, token, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedPassword = append(f.updatedPassword, token)
	return nil
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, token)
	return nil
}

// fakeVerifier accepts tokens of the form "token:<user id>".
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (*auth.Claims, error) {
	userID, ok := strings.CutPrefix(token, "token:")
	if !ok || userID == "" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: userID, Email: userID + "@example.com"}, nil
}

type recordingLimiter struct {
	mu      sync.Mutex
	deny    map[string]bool
	checked []string
	resets  []string
}

func (l *recordingLimiter) CheckRateLimit(id string) ratelimit.Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checked = append(l.checked, id)
	if l.deny[id] {
		return ratelimit.Result{Allowed: false, WaitTime: 1500 * time.Millisecond}
	}
	return ratelimit.Result{Allowed: true}
}

func (l *recordingLimiter) Reset(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets = append(l.resets, id)
}

type fakeProfiles struct {
	mu           sync.Mutex
	profiles     map[string]*types.Profile
	bootstrapped []string
	deleted      []string
	// claimed usernames pass UsernameTaken but fail on write, as when a
	// concurrent request wins the unique index.
	claimed map[string]bool
}

func (f *fakeProfiles) Profile(_ context.Context, userID string) (*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Bootstrap(_ context.Context, userID, email, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bootstrapped = append(f.bootstrapped, userID)
	if _, ok := f.profiles[userID]; !ok {
		f.profiles[userID] = &types.Profile{ID: userID, Email: &email}
	}
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, userID string, u *types.ProfileUpdate) (*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	if u.FullName != nil {
		p.FullName = u.FullName
	}
	if u.Username != nil {
		if f.claimed[*u.Username] {
			return nil, types.ErrUsernameTaken()
		}
		p.Username = u.Username
	}
	if u.Bio != nil {
		p.Bio = u.Bio
	}
	if u.Pathway != nil {
		p.Pathway = u.Pathway
	}
	if u.AvatarURL != nil {
		p.AvatarURL = u.AvatarURL
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) CompleteOnboarding(_ context.Context, userID, fullName, username string, pathway types.Pathway) (*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	if f.claimed[username] {
		return nil, types.ErrUsernameTaken()
	}
	p.FullName, p.Username, p.Pathway = &fullName, &username, &pathway
	p.OnboardingCompleted = true
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) UsernameTaken(_ context.Context, username, except string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.profiles {
		if id != except && p.Username != nil && *p.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfiles) DeleteAccount(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[userID]; !ok {
		return types.ErrProfileNotFound
	}
	delete(f.profiles, userID)
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakePreferences struct {
	mu    sync.Mutex
	prefs map[string]map[types.NotificationType]*types.NotificationPreference
}

func (f *fakePreferences) PreferencesByUserID(_ context.Context, userID string) ([]*types.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.NotificationPreference, 0)
	for _, t := range types.PreferenceTypes {
		if p, ok := f.prefs[userID][t]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePreferences) EnsureDefaults(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefs[userID] == nil {
		f.prefs[userID] = map[types.NotificationType]*types.NotificationPreference{}
	}
	for _, t := range types.PreferenceTypes {
		if _, ok := f.prefs[userID][t]; !ok {
			f.prefs[userID][t] = types.DefaultPreference(userID, t)
		}
	}
	return nil
}

func (f *fakePreferences) UpdatePreference(_ context.Context, userID string, u *types.PreferenceUpdate) (*types.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[userID][u.Type]
	if !ok {
		return nil, types.ErrPreferenceNotFound
	}
	switch u.Field {
	case types.PreferenceFieldEnabled:
		p.Enabled = u.Value.(bool)
	case types.PreferenceFieldFrequency:
		p.Frequency = u.Value.(types.Frequency)
	case types.PreferenceFieldQuietHoursStart:
		p.QuietHoursStart = u.Value.(*string)
	case types.PreferenceFieldQuietHoursEnd:
		p.QuietHoursEnd = u.Value.(*string)
	}
	cp := *p
	return &cp, nil
}

type fakeSettings struct {
	mu      sync.Mutex
	user    map[string]*types.UserSettings
	privacy map[string]*types.PrivacySettings
}

func (f *fakeSettings) UserSettings(_ context.Context, userID string) (*types.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.user[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return types.DefaultUserSettings(userID), nil
}

func (f *fakeSettings) SaveUserSettings(_ context.Context, s *types.UserSettings) (*types.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.user[s.UserID] = &cp
	return s, nil
}

func (f *fakeSettings) PrivacySettings(_ context.Context, userID string) (*types.PrivacySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.privacy[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return types.DefaultPrivacySettings(userID), nil
}

func (f *fakeSettings) SavePrivacySettings(_ context.Context, s *types.PrivacySettings) (*types.PrivacySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.privacy[s.UserID] = &cp
	return s, nil
}

type fakeFeed struct {
	mu            sync.Mutex
	notifications map[string][]*types.Notification
	filters       []types.NotificationFilter
}

func (f *fakeFeed) List(_ context.Context, userID string, filter types.NotificationFilter) (*types.NotificationList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	unread := 0
	for _, n := range f.notifications[userID] {
		if !n.Read {
			unread++
		}
	}
	list := append([]*types.Notification{}, f.notifications[userID]...)
	return &types.NotificationList{Notifications: list, UnreadCount: unread}, nil
}

func (f *fakeFeed) MarkRead(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications[userID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return types.ErrNotificationNotFound
}

func (f *fakeFeed) MarkAllRead(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated int64
	for _, n := range f.notifications[userID] {
		if !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeFeed) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.notifications[userID]
	for i, n := range list {
		if n.ID == id {
			f.notifications[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return types.ErrNotificationNotFound
}

func (f *fakeFeed) DeleteAll(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.notifications[userID]))
	delete(f.notifications, userID)
	return n, nil
}

func (f *fakeFeed) OnChange(string, func(types.ChangeEvent)) func() {
	return func() {}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []types.Candidate
}

func (f *fakeNotifier) Send(_ context.Context, c types.Candidate) types.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return types.SendResult{Success: true}
}

type fakeAvatars struct {
	mu       sync.Mutex
	uploaded map[string]string
	deleted  []string
}

func (f *fakeAvatars) UploadFile(_ context.Context, key string, body io.Reader, _ int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = io.Copy(io.Discard, body)
	f.uploaded[key] = contentType
	return key, nil
}

func (f *fakeAvatars) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeAvatars) PublicURL(key string) string {
	return "https://cdn.example.com/avatars/" + key
}

func (f *fakeAvatars) KeyFromURL(url string) (string, bool) {
	return strings.CutPrefix(url, "https://cdn.example.com/avatars/")
}

type harness struct {
	svc      *Service
	handler  http.Handler
	now      time.Time
	cookies  *auth.Cookies
	provider *fakeProvider
	limiter  *recordingLimiter
	profiles *fakeProfiles
	prefs    *fakePreferences
	settings *fakeSettings
	feed     *fakeFeed
	notifier *fakeNotifier
	avatars  *fakeAvatars
}

func newHarness(t *testing.T, environment string) *harness {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	config := &types.Config{
		Environment:     environment,
		ServerPort:      0,
		ReadTimeoutSec:  10,
		WriteTimeoutSec: 15,
	}

	h := &harness{
		now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		cookies: auth.NewCookies(
			[]byte("0123456789abcdef0123456789abcdef"),
			[]byte("abcdef0123456789abcdef0123456789"),
			auth.CookieConfig{Name: "nt_session", MaxAge: 7 * 24 * time.Hour, IdleTimeout: 24 * time.Hour},
		),
		provider: &fakeProvider{},
		limiter:  &recordingLimiter{deny: map[string]bool{}},
		profiles: &fakeProfiles{profiles: map[string]*types.Profile{}},
		prefs:    &fakePreferences{prefs: map[string]map[types.NotificationType]*types.NotificationPreference{}},
		settings: &fakeSettings{user: map[string]*types.UserSettings{}, privacy: map[string]*types.PrivacySettings{}},
		feed:     &fakeFeed{notifications: map[string][]*types.Notification{}},
		notifier: &fakeNotifier{},
		avatars:  &fakeAvatars{uploaded: map[string]string{}},
	}

	h.svc = New(config, logger, h.provider, fakeVerifier{}, h.cookies, h.limiter,
		h.profiles, h.prefs, h.settings, h.feed, h.notifier, h.avatars)
	h.svc.now = func() time.Time { return h.now }
	h.handler = h.svc.Handler()

	return h
}

// addProfile stores an onboarded (or not) profile for userID.
func (h *harness) addProfile(userID string, onboarded bool) {
	h.profiles.profiles[userID] = &types.Profile{ID: userID, OnboardingCompleted: onboarded}
}

// sessionCookies returns the access token cookie and, unless meta is nil,
// a metadata cookie.
func (h *harness) sessionCookies(t *testing.T, userID string, meta *auth.Meta) []*http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, h.cookies.SetSession(rec, &auth.Session{AccessToken: "token:" + userID, User: auth.User{ID: userID}}, h.now))

	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "nt_session" {
			out = append(out, c)
		}
	}

	if meta != nil {
		rec = httptest.NewRecorder()
		require.NoError(t, h.cookies.SetMeta(rec, meta))
		out = append(out, rec.Result().Cookies()...)
	}

	return out
}

// freshSession is a session created an hour ago and seen a minute ago.
func (h *harness) freshSession(t *testing.T, userID string) []*http.Cookie {
	return h.sessionCookies(t, userID, &auth.Meta{
		UserID:    userID,
		CreatedAt: h.now.Add(-time.Hour),
		LastSeen:  h.now.Add(-time.Minute),
	})
}

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func formRequest(path string, values map[string]string) *http.Request {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

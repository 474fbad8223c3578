package server

import (
	"net/http"
	"net/url"
	"strings"
)

func redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	redirectWithParam(w, r, path, "error", msg)
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	redirectWithParam(w, r, path, "notice", notice)
}

func redirectWithParam(w http.ResponseWriter, r *http.Request, path, key, value string) {
	v := url.Values{}
	v.Set(key, value)
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}

// redirectToAuthError sends the browser to the generic failure page.
func redirectToAuthError(w http.ResponseWriter, r *http.Request, reason string) {
	redirectWithParam(w, r, "/auth/auth-error", "reason", reason)
}

// localPath accepts only same-origin absolute paths, falling back otherwise.
func localPath(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}

	return next
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session"

// flashCookieName carries a one-shot user-facing message across a redirect
// (e.g. "Please login to access this page."). Read-and-cleared by the flash
// endpoint.
const flashCookieName = "flash"

// ErrSessionExpired marks a session rejected for exceeding the idle timeout,
// as opposed to one that never existed. The auth gate uses the distinction
// only to pick the flash message; both are anonymous afterwards.
var ErrSessionExpired = errors.New("auth: session expired")

// Session is the per-request identity. One is always present in the request
// context after the session middleware runs: either the authenticated variant
// (UserID set) or the anonymous one (zero value). Handlers never have to
// check whether auth helpers "exist" — they ask the session.
type Session struct {
	Token    string
	UserID   string
	Username string

	// Expired is set on the anonymous variant when the request presented a
	// session that had idle-timed out.
	Expired bool
}

// LoggedIn reports whether this is the authenticated variant.
func (s *Session) LoggedIn() bool {
	return s != nil && s.UserID != ""
}

type contextKey string

const sessionKey contextKey = "session"

// FromContext returns the request's Session. The anonymous variant is
// returned for requests that never went through the session middleware, so
// the result is always usable.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionCookie builds the session cookie. maxAge <= 0 deletes it.
// HttpOnly keeps the token away from page scripts; SameSite=Lax keeps it off
// cross-site POSTs while still allowing normal navigation.
func SessionCookie(token string, maxAge time.Duration, secure bool) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge <= 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}

// SetFlash stores a one-shot message for the next page load.
func SetFlash(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending flash message, if any, and clears it.
func PopFlash(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	http.SetCookie(w, &http.Cookie{
		Name:   flashCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	message, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", false
	}
	return message, true
}

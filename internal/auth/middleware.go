package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/blogwithme/blogwithme/internal/apperror"
)

// SessionResolver turns request credentials into an authenticated Session.
// Implemented by service.AuthService; an interface here keeps the middleware
// free of a service-package dependency.
type SessionResolver interface {
	// ResolveSession validates a session cookie token, refreshes its
	// last-activity timestamp, and returns the authenticated session.
	// Returns ErrSessionExpired for idle-timed-out sessions and
	// apperror.ErrNotFound for unknown/forged tokens.
	ResolveSession(ctx context.Context, token string) (*Session, error)

	// ResolveBearer validates an API bearer token (JWT) and returns the
	// authenticated session for its subject.
	ResolveBearer(ctx context.Context, token string) (*Session, error)
}

// WithSession resolves the request's credential — session cookie first, then
// an Authorization: Bearer token — and stores a Session in the context.
// Anonymous requests pass through with the anonymous variant; a missing or
// forged credential is never an error here.
//
// An expired session additionally has its cookie cleared so the browser
// stops presenting a dead token.
func WithSession(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := &Session{}

			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				resolved, err := resolver.ResolveSession(r.Context(), cookie.Value)
				switch {
				case err == nil:
					session = resolved
				case errors.Is(err, ErrSessionExpired):
					session = &Session{Expired: true}
					http.SetCookie(w, SessionCookie("", 0, false))
				default:
					// Unknown token: anonymous. Anything else is a storage
					// failure; log it and degrade to anonymous rather than
					// failing the whole request.
					if !errors.Is(err, apperror.ErrNotFound) {
						logger.Error("session resolution failed", slog.String("error", err.Error()))
					}
					http.SetCookie(w, SessionCookie("", 0, false))
				}
			} else if bearer := bearerToken(r); bearer != "" {
				if resolved, err := resolver.ResolveBearer(r.Context(), bearer); err == nil {
					session = resolved
				}
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
		})
	}
}

// RequireAuth is the auth gate for protected routes. Anonymous requests are
// terminated here: API clients get 401 JSON, browsers get a redirect to the
// login page plus a one-shot flash explaining why.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := FromContext(r.Context())
			if session.LoggedIn() {
				next.ServeHTTP(w, r)
				return
			}

			if wantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				if session.Expired {
					w.Write([]byte(`{"error":"unauthorized","message":"session expired, please login again"}`))
				} else {
					w.Write([]byte(`{"error":"unauthorized","message":"please login to access this page"}`))
				}
				return
			}

			if session.Expired {
				SetFlash(w, "Your session has expired. Please login again.")
			} else {
				SetFlash(w, "Please login to access this page.")
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(after)
	}
	return ""
}

// wantsJSON decides between the API behaviour (401) and the browser
// behaviour (redirect) at the auth gate. API callers either hit /api/ routes
// with an Accept: application/json or carry a bearer token.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if r.Header.Get("Authorization") != "" {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/blogwithme/blogwithme/internal/auth"
	"github.com/blogwithme/blogwithme/internal/service"
)

// AuthHandler exposes registration, login/logout, the current-user endpoint,
// API token issuance, the GitHub OAuth flow and the one-shot flash message.
type AuthHandler struct {
	authService  *service.AuthService
	github       *auth.GitHubProvider // nil when OAuth is not configured
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, github *auth.GitHubProvider, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		github:       github,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// credentialsRequest covers both the register and login bodies; login
// ignores the extra fields.
type credentialsRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin verifies credentials and sets the session cookie. Every
// failure returns the same generic message.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password, presentedToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, session.Token)
	writeJSON(w, http.StatusOK, map[string]string{
		"userId":   session.UserID,
		"username": session.Username,
	})
}

// HandleLogout destroys the session and clears the cookie.
//
// HTTP: POST /api/auth/logout
// POST because logout changes state; GET would be prefetchable.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), presentedToken(r)); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
	}

	http.SetCookie(w, auth.SessionCookie("", 0, h.secureCookie))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/auth/me (auth required)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	user, err := h.authService.CurrentUser(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleIssueToken mints a short-lived API bearer token for the session
// user.
//
// HTTP: POST /api/auth/token (auth required)
func (h *AuthHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	token, err := h.authService.IssueAPIToken(r.Context(), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleFlash returns and clears the pending one-shot message set by a
// redirect (e.g. the auth gate's "Please login to access this page.").
//
// HTTP: GET /api/auth/flash
func (h *AuthHandler) HandleFlash(w http.ResponseWriter, r *http.Request) {
	message, ok := auth.PopFlash(w, r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"message": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message})
}

// HandleGitHubLogin starts the OAuth flow: store a random state in a
// short-lived cookie and send the browser to GitHub.
//
// HTTP: GET /api/auth/github
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub login is not enabled"})
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: verify the state, exchange
// the code, provision/refresh the account and establish a normal session.
//
// HTTP: GET /api/auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "GitHub login is not enabled"})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	session, err := h.authService.LoginWithGitHub(r.Context(), ghUser, presentedToken(r))
	if err != nil {
		h.logger.Error("oauth callback: login failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setSessionCookie(w, session.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	// Cookie lifetime is deliberately longer than the idle timeout: the
	// server-side last-activity check is the authority, the cookie just has
	// to outlive it.
	http.SetCookie(w, auth.SessionCookie(token, 2*h.authService.SessionLifetime(), h.secureCookie))
}

// presentedToken returns the session token the request carried, or "".
func presentedToken(r *http.Request) string {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

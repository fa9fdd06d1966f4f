package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/auth"
	"github.com/blogwithme/blogwithme/internal/model"
	"github.com/blogwithme/blogwithme/internal/repository"
)

const (
	MinPasswordLength = 6
	MaxUsernameLength = 50

	// DefaultSessionLifetime is the idle timeout: a session untouched for
	// this long is invalidated on its next use.
	DefaultSessionLifetime = time.Hour
)

// genericLoginError is returned for every login failure — unknown email and
// wrong password alike — so responses don't reveal which one it was.
const genericLoginError = "invalid email or password"

// AuthService owns registration, login/logout, session resolution and API
// token issuance.
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService // nil when no token secret is configured
	lifetime  time.Duration
	logger    *slog.Logger
}

// NewAuthService wires an AuthService. tokens may be nil, which disables the
// API bearer-token endpoints but leaves cookie sessions fully functional.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	lifetime time.Duration,
	logger *slog.Logger,
) *AuthService {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		passwords: passwords,
		tokens:    tokens,
		lifetime:  lifetime,
		logger:    logger,
	}
}

// SessionLifetime returns the configured idle timeout.
func (s *AuthService) SessionLifetime() time.Duration {
	return s.lifetime
}

// Register creates a new account. Uniqueness of email and username is
// enforced by the insert itself (UNIQUE constraints), not by a lookup first,
// so concurrent registrations cannot both slip through.
func (s *AuthService) Register(ctx context.Context, username, email, password, confirm string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "all fields are required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "invalid email format")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}
	if password != confirm {
		return nil, apperror.ValidationFailed("confirm_password", "passwords do not match")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.DefaultRole,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Conflict carries its own user-facing message; anything else is a
		// storage failure.
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login verifies the credentials and establishes a fresh session.
// presentedToken is whatever session token the request already carried; it
// is destroyed so the login always rotates the session identifier.
func (s *AuthService) Login(ctx context.Context, email, password, presentedToken string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "please enter both email and password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Burn a bcrypt comparison anyway so unknown emails take as long as
		// wrong passwords.
		s.passwords.DummyVerify()
		return nil, apperror.Unauthorized(genericLoginError)
	}
	if user.PasswordHash == "" {
		// OAuth-only account; no password to verify.
		s.passwords.DummyVerify()
		return nil, apperror.Unauthorized(genericLoginError)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(genericLoginError)
	}

	return s.establishSession(ctx, user, presentedToken)
}

// LoginWithGitHub provisions or refreshes the account for a GitHub profile
// and establishes a session, mirroring Login for the OAuth path.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser, presentedToken string) (*model.Session, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := strings.ToLower(strings.TrimSpace(ghUser.Email))
	if email == "" {
		// GitHub hides the email when the user chooses to; fall back to the
		// noreply convention so the NOT NULL UNIQUE column stays satisfied.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, strings.ToLower(ghUser.Login))
	}

	user := &model.User{
		GitHubID: ghUser.ID,
		Username: ghUser.Login,
		Email:    email,
	}
	err := s.users.UpsertGitHub(ctx, user)
	if err != nil && apperrorField(err) == "username" {
		// Login name already taken by a password account; disambiguate.
		user.Username = fmt.Sprintf("%s-%d", ghUser.Login, ghUser.ID)
		err = s.users.UpsertGitHub(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting GitHub user %d: %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.establishSession(ctx, user, presentedToken)
}

// establishSession mints a fresh opaque token (uuid v4 — unguessable, unlike
// time-ordered entity IDs) and destroys any token the request presented, the
// session-fixation defence.
func (s *AuthService) establishSession(ctx context.Context, user *model.User, presentedToken string) (*model.Session, error) {
	if presentedToken != "" {
		if err := s.sessions.Delete(ctx, presentedToken); err != nil {
			s.logger.Warn("failed to delete pre-login session", slog.String("error", err.Error()))
		}
	}

	now := time.Now().UTC()
	session := &model.Session{
		Token:        uuid.NewString(),
		UserID:       user.ID,
		Username:     user.Username,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: creating session: %w", err)
	}

	s.logger.Info("session established", slog.String("userID", user.ID))

	return session, nil
}

// Logout destroys the session. Safe to call with an unknown token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("service/auth: destroying session: %w", err)
	}
	return nil
}

// ResolveSession implements auth.SessionResolver for the cookie credential.
// A session idle past the lifetime is destroyed and reported as expired;
// otherwise its last-activity timestamp is refreshed to now.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*auth.Session, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if now.Sub(session.LastActivity) > s.lifetime {
		if err := s.sessions.Delete(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", slog.String("error", err.Error()))
		}
		return nil, auth.ErrSessionExpired
	}

	if err := s.sessions.Touch(ctx, token, now); err != nil {
		// Lost a race with logout/sweep; treat as gone.
		return nil, err
	}

	return &auth.Session{
		Token:    session.Token,
		UserID:   session.UserID,
		Username: session.Username,
	}, nil
}

// ResolveBearer implements auth.SessionResolver for the Authorization
// header. Bearer requests do not touch the sessions table.
func (s *AuthService) ResolveBearer(ctx context.Context, tokenStr string) (*auth.Session, error) {
	if s.tokens == nil {
		return nil, apperror.Unauthorized("API tokens are not enabled")
	}

	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return nil, apperror.Unauthorized("invalid API token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &auth.Session{
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

// IssueAPIToken mints a short-lived bearer token for an already
// authenticated user, letting non-browser clients call the API without
// cookies.
func (s *AuthService) IssueAPIToken(ctx context.Context, userID string) (string, error) {
	if s.tokens == nil {
		return "", apperror.Forbidden("API tokens are not enabled")
	}

	token, err := s.tokens.Generate(userID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating API token for user %s: %w", userID, err)
	}

	return token, nil
}

// CurrentUser returns the full user record for an authenticated session.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("please login")
	}
	return s.users.GetByID(ctx, userID)
}

// SweepIdleSessions deletes sessions idle past the lifetime. Run
// periodically so the table doesn't accumulate dead rows; expiry itself is
// enforced on resolution regardless.
func (s *AuthService) SweepIdleSessions(ctx context.Context) {
	removed, err := s.sessions.DeleteIdleSince(ctx, time.Now().UTC().Add(-s.lifetime))
	if err != nil {
		s.logger.Error("session sweep failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		s.logger.Info("swept idle sessions", slog.Int64("removed", removed))
	}
}

// apperrorField extracts the Field of a wrapped AppError, or "".
func apperrorField(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

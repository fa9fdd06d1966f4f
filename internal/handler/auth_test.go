package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blogwithme/blogwithme/internal/auth"
)

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	cookie := env.signup(t, "alice")

	w := env.doJSON(t, http.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	var user struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	decodeJSON(t, w, &user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)

	// The password hash must never appear in a response.
	assert.NotContains(t, w.Body.String(), "$2")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "first", "dup@example.com", "secret1")

	w := env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username":         "second",
		"email":            "dup@example.com",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username":         "alice",
		"email":            "not-an-email",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_FailuresLookIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")

	wrongPassword := env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	unknownEmail := env.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// Byte-identical bodies: the response must not reveal whether the email
	// exists.
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "alice")

	w := env.doJSON(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	// The cookie is cleared...
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "logout should clear the session cookie")

	// ...and the old token no longer authenticates.
	w = env.doJSON(t, http.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoute_Anonymous(t *testing.T) {
	env := newTestEnv(t)

	// JSON client: 401.
	w := env.doJSON(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Browser-style request (no JSON markers): redirect to login with a
	// flash message.
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := newRecorderFor(env, r)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestFlashRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	// Trip the auth gate as a browser to get a flash cookie.
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := newRecorderFor(env, r)

	var flashCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "flash" && c.Value != "" {
			flashCookie = c
		}
	}
	if flashCookie == nil {
		t.Fatal("auth gate set no flash cookie")
	}

	w := env.doJSON(t, http.MethodGet, "/api/auth/flash", nil, flashCookie)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message *string `json:"message"`
	}
	decodeJSON(t, w, &resp)
	if assert.NotNil(t, resp.Message) {
		assert.Equal(t, "Please login to access this page.", *resp.Message)
	}

	// Without the cookie the message is gone.
	w = env.doJSON(t, http.MethodGet, "/api/auth/flash", nil)
	decodeJSON(t, w, &resp)
	assert.Nil(t, resp.Message)
}

func TestAPITokenFlow(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "alice")

	w := env.doJSON(t, http.MethodPost, "/api/auth/token", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	decodeJSON(t, w, &resp)
	assert.NotEmpty(t, resp.Token)

	// The bearer token authenticates without the cookie.
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := newRecorderFor(env, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

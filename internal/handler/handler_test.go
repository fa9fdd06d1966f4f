package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blogwithme/blogwithme/internal/auth"
	"github.com/blogwithme/blogwithme/internal/handler"
	"github.com/blogwithme/blogwithme/internal/repository/sqlite"
	"github.com/blogwithme/blogwithme/internal/service"
	"github.com/blogwithme/blogwithme/internal/upload"
)

// testEnv wires the real stack — in-memory SQLite, a temp upload dir, the
// services and handlers — behind the same routes the server mounts, so
// handler tests exercise routing, middleware and error mapping together.
type testEnv struct {
	router http.Handler
	images *upload.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	images, err := upload.NewStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("creating upload store: %v", err)
	}

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}

	authSvc := service.NewAuthService(db.Users(), db.Sessions(),
		auth.NewPasswordServiceForTest(4), tokens, time.Hour, logger)
	postSvc := service.NewPostService(db.Posts(), images, logger)
	commentSvc := service.NewCommentService(db.Comments(), db.Posts(), logger)
	likeSvc := service.NewLikeService(db.Likes(), db.Posts(), logger)

	authH := handler.NewAuthHandler(authSvc, nil, false, logger)
	postH := handler.NewPostHandler(postSvc, likeSvc, logger)
	commentH := handler.NewCommentHandler(commentSvc, logger)

	r := chi.NewRouter()
	r.Use(auth.WithSession(authSvc, logger))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(images.Dir()))))
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authH.HandleRegister)
		r.Post("/auth/login", authH.HandleLogin)
		r.Post("/auth/logout", authH.HandleLogout)
		r.Get("/auth/flash", authH.HandleFlash)

		r.Get("/posts", postH.HandleList)
		r.Get("/posts/search", postH.HandleSearch)
		r.Get("/posts/{id}", postH.HandleGet)
		r.Get("/posts/{id}/comments", commentH.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth())

			r.Get("/auth/me", authH.HandleMe)
			r.Post("/auth/token", authH.HandleIssueToken)

			r.Get("/dashboard", postH.HandleDashboard)
			r.Post("/posts", postH.HandleCreate)
			r.Put("/posts/{id}", postH.HandleUpdate)
			r.Delete("/posts/{id}", postH.HandleDelete)
			r.Post("/posts/{id}/like", postH.HandleToggleLike)
			r.Post("/posts/{id}/comments", commentH.HandleAdd)
			r.Delete("/comments/{id}", commentH.HandleDelete)
		})
	})

	return &testEnv{router: r, images: images}
}

// doJSON performs a request with a JSON body (nil for none) and the given
// cookies, always declaring Accept: application/json.
func (e *testEnv) doJSON(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Accept", "application/json")
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

// register creates an account through the API.
func (e *testEnv) register(t *testing.T, username, email, password string) {
	t.Helper()
	w := e.doJSON(t, http.MethodPost, "/api/auth/register", map[string]string{
		"username":         username,
		"email":            email,
		"password":         password,
		"confirm_password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %q: status = %d, body = %s", username, w.Code, w.Body.String())
	}
}

// login authenticates and returns the session cookie.
func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	w := e.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %q: status = %d, body = %s", email, w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

// signup registers and logs in one user.
func (e *testEnv) signup(t *testing.T, username string) *http.Cookie {
	t.Helper()
	email := username + "@example.com"
	e.register(t, username, email, "secret1")
	return e.login(t, email, "secret1")
}

// newRecorderFor serves an arbitrary request (for non-JSON cases the doJSON
// helper can't express).
func newRecorderFor(e *testEnv, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(into); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

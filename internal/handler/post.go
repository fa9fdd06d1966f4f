package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/blogwithme/blogwithme/internal/auth"
	"github.com/blogwithme/blogwithme/internal/service"
	"github.com/blogwithme/blogwithme/internal/upload"
)

// PostHandler exposes post CRUD, the public listing, search, the dashboard
// and the like toggle.
type PostHandler struct {
	posts  *service.PostService
	likes  *service.LikeService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, likes *service.LikeService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		likes:  likes,
		logger: logger,
	}
}

// postForm is what HandleCreate/HandleUpdate extract from the request. Post
// mutations accept either multipart/form-data (needed for the image upload)
// or plain JSON (no image).
type postForm struct {
	Title       string
	Content     string
	Image       multipart.File
	ImageSize   int64
	RemoveImage bool
}

func (f *postForm) close() {
	if f.Image != nil {
		f.Image.Close()
	}
}

func parsePostForm(r *http.Request) (*postForm, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Title       string `json:"title"`
			Content     string `json:"content"`
			RemoveImage bool   `json:"remove_image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &postForm{Title: req.Title, Content: req.Content, RemoveImage: req.RemoveImage}, nil
	}

	// Multipart: memory cap matches the upload limit; bigger parts spill to
	// temp files.
	if err := r.ParseMultipartForm(upload.MaxImageSize); err != nil {
		return nil, err
	}

	form := &postForm{
		Title:       r.FormValue("title"),
		Content:     r.FormValue("content"),
		RemoveImage: r.FormValue("remove_image") != "",
	}

	file, header, err := r.FormFile("image")
	switch err {
	case nil:
		form.Image = file
		form.ImageSize = header.Size
	case http.ErrMissingFile:
		// No upload — fine.
	default:
		return nil, err
	}

	return form, nil
}

// HandleCreate saves a new post for the session user.
//
// HTTP: POST /api/posts (auth required)
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	form, err := parsePostForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}
	defer form.close()

	session := auth.FromContext(r.Context())

	var image io.Reader
	if form.Image != nil {
		image = form.Image
	}

	post, err := h.posts.Create(r.Context(), session.UserID, form.Title, form.Content, image, form.ImageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate edits an owned post.
//
// HTTP: PUT /api/posts/{id} (auth required)
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	form, err := parsePostForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}
	defer form.close()

	session := auth.FromContext(r.Context())

	var image io.Reader
	if form.Image != nil {
		image = form.Image
	}

	post, err := h.posts.Update(r.Context(),
		session.UserID, chi.URLParam(r, "id"),
		form.Title, form.Content,
		image, form.ImageSize, form.RemoveImage,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes an owned post (and its image file).
//
// HTTP: DELETE /api/posts/{id} (auth required)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	if err := h.posts.Delete(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleList returns the public listing, newest first, with author usernames
// and like counts.
//
// HTTP: GET /api/posts?limit=&offset=
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	limit, offset := listParams(r)

	posts, err := h.posts.List(r.Context(), session.UserID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleSearch returns posts matching ?q= in title or content.
//
// HTTP: GET /api/posts/search?q=
func (h *PostHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, offset := listParams(r)

	posts, err := h.posts.Search(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleDashboard returns the session user's own posts, newest first.
//
// HTTP: GET /api/dashboard (auth required)
func (h *PostHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	limit, offset := listParams(r)

	posts, err := h.posts.Dashboard(r.Context(), session.UserID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"), session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleToggleLike flips the session user's like on a post.
//
// HTTP: POST /api/posts/{id}/like (auth required)
func (h *PostHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	liked, count, err := h.likes.Toggle(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"liked":     liked,
		"likeCount": count,
	})
}

func listParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blogwithme/blogwithme/internal/auth"
	"github.com/blogwithme/blogwithme/internal/service"
)

// CommentHandler exposes the comment thread under a post.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		logger:   logger,
	}
}

// HandleAdd appends a comment to a post as the session user.
//
// HTTP: POST /api/posts/{id}/comments (auth required)
func (h *CommentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "invalid request body"})
		return
	}

	session := auth.FromContext(r.Context())

	comment, err := h.comments.Add(r.Context(), session.UserID, chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// HandleList returns a post's comments, oldest first.
//
// HTTP: GET /api/posts/{id}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListForPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// HandleDelete removes an owned comment.
//
// HTTP: DELETE /api/comments/{id} (auth required)
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	if err := h.comments.Delete(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

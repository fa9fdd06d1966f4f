// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage provides the implementation; tests
// substitute in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/blogwithme/blogwithme/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	// Create inserts a new user, relying on the UNIQUE constraints on email
	// and username. A constraint violation surfaces as apperror.ErrConflict
	// naming the offending field — callers never pre-check uniqueness.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub creates or refreshes an account keyed on github_id.
	UpsertGitHub(ctx context.Context, user *model.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, token string) (*model.Session, error)
	// Touch sets last_activity to now.
	Touch(ctx context.Context, token string, now time.Time) error
	Delete(ctx context.Context, token string) error
	// DeleteIdleSince removes every session whose last_activity is before
	// cutoff. Returns the number of sessions removed.
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int64, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	// GetByID returns the post with its author's username and like count.
	// viewerID may be empty; when set, ViewerLiked is filled in.
	GetByID(ctx context.Context, id, viewerID string) (*model.Post, error)
	// List returns public posts newest-first with author and like count.
	List(ctx context.Context, viewerID string, opts ListOptions) ([]model.Post, error)
	// ListByUser returns one user's posts newest-first (dashboard view).
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Post, error)
	// Search matches query as a case-insensitive substring of title or
	// content, newest first.
	Search(ctx context.Context, query string, opts ListOptions) ([]model.Post, error)
	// Update and Delete are scoped to the owning user: a post that does not
	// exist and a post owned by someone else are indistinguishable to the
	// caller (both report ErrNotFound).
	Update(ctx context.Context, post *model.Post, ownerID string) error
	Delete(ctx context.Context, id, ownerID string) (*model.Post, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListByPost returns a post's comments oldest-first with authors.
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	// Delete is owner-scoped like PostRepository.Delete.
	Delete(ctx context.Context, id, ownerID string) error
}

type LikeRepository interface {
	// Toggle flips the (userID, postID) like row and reports the new state.
	// Both legs are single atomic statements, so two concurrent toggles
	// converge instead of double-inserting.
	Toggle(ctx context.Context, userID, postID string) (liked bool, err error)
	Count(ctx context.Context, postID string) (int, error)
}

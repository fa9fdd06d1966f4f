package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/model"
	"github.com/blogwithme/blogwithme/internal/repository"
)

const MaxCommentLength = 2000

// CommentService handles adding, listing and deleting comments.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		logger:   logger,
	}
}

// Add attaches a comment by actorID to the given post.
func (s *CommentService) Add(ctx context.Context, actorID, postID, text string) (*model.Comment, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("please login")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("comment", "comment must not be empty")
	}
	if len(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("comment",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	// Commenting on a missing post is a NotFound, not an FK error.
	if _, err := s.posts.GetByID(ctx, postID, ""); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  actorID,
		Comment: text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("postID", postID),
			slog.String("userID", actorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment added",
		slog.String("id", comment.ID),
		slog.String("postID", postID),
	)

	return comment, nil
}

// ListForPost returns a post's comments, oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]model.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

// Delete removes a comment the actor wrote. The refusal for someone else's
// comment is identical to the refusal for a nonexistent one.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID string) error {
	if actorID == "" {
		return apperror.Unauthorized("please login")
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return apperror.NotFoundOrNoPermission("comment")
	}
	if !CanMutate(actorID, comment.UserID) {
		return apperror.NotFoundOrNoPermission("comment")
	}

	if err := s.comments.Delete(ctx, commentID, actorID); err != nil {
		return err
	}

	s.logger.Info("comment deleted",
		slog.String("id", commentID),
		slog.String("userID", actorID),
	)

	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/repository"
)

// LikeService handles the like toggle. A user's like on a post is a marker
// row; toggling twice restores the original count.
type LikeService struct {
	likes  repository.LikeRepository
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewLikeService(likes repository.LikeRepository, posts repository.PostRepository, logger *slog.Logger) *LikeService {
	return &LikeService{
		likes:  likes,
		posts:  posts,
		logger: logger,
	}
}

// Toggle flips actorID's like on the post and returns the new state and
// count.
func (s *LikeService) Toggle(ctx context.Context, actorID, postID string) (liked bool, count int, err error) {
	if actorID == "" {
		return false, 0, apperror.Unauthorized("please login")
	}

	if _, err := s.posts.GetByID(ctx, postID, ""); err != nil {
		return false, 0, err
	}

	liked, err = s.likes.Toggle(ctx, actorID, postID)
	if err != nil {
		s.logger.Error("failed to toggle like",
			slog.String("postID", postID),
			slog.String("userID", actorID),
			slog.String("error", err.Error()),
		)
		return false, 0, fmt.Errorf("toggling like: %w", err)
	}

	count, err = s.likes.Count(ctx, postID)
	if err != nil {
		return liked, 0, fmt.Errorf("counting likes: %w", err)
	}

	return liked, count, nil
}

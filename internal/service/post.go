package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/model"
	"github.com/blogwithme/blogwithme/internal/repository"
	"github.com/blogwithme/blogwithme/internal/upload"
)

const (
	MaxTitleLength   = 200
	MaxContentLength = 50000
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// PostService handles post CRUD, listings and search. It also owns the image
// file lifecycle: a post's image file is written before the row references
// it and removed when the post is deleted or the image replaced.
type PostService struct {
	posts  repository.PostRepository
	images *upload.Store
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, images *upload.Store, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		images: images,
		logger: logger,
	}
}

// Create validates and saves a new post owned by actorID. image may be nil
// (no upload); imageSize is the declared upload size.
func (s *PostService) Create(ctx context.Context, actorID, title, content string, image io.Reader, imageSize int64) (*model.Post, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("please login")
	}
	if err := validatePostFields(&title, &content); err != nil {
		return nil, err
	}

	filename := ""
	if image != nil {
		var err error
		filename, err = s.images.Save(image, imageSize)
		if err != nil {
			return nil, err
		}
	}

	post := &model.Post{
		UserID:  actorID,
		Title:   title,
		Content: content,
		Image:   filename,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		// Don't leave an orphaned file behind a failed insert.
		s.images.Remove(filename)
		s.logger.Error("failed to create post",
			slog.String("userID", actorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("userID", actorID),
	)

	return post, nil
}

// Update edits an owned post. A new image replaces (and deletes) the old
// file; removeImage deletes it without replacement; otherwise the old image
// is kept. Refusals never distinguish "no such post" from "not yours".
func (s *PostService) Update(ctx context.Context, actorID, postID, title, content string, image io.Reader, imageSize int64, removeImage bool) (*model.Post, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("please login")
	}
	if err := validatePostFields(&title, &content); err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID, actorID)
	if err != nil {
		return nil, apperror.NotFoundOrNoPermission("post")
	}
	if !CanMutate(actorID, post.UserID) {
		return nil, apperror.NotFoundOrNoPermission("post")
	}

	oldImage := post.Image
	newImage := oldImage
	if removeImage {
		newImage = ""
	}
	if image != nil && !removeImage {
		newImage, err = s.images.Save(image, imageSize)
		if err != nil {
			return nil, err
		}
	}

	post.Title = title
	post.Content = content
	post.Image = newImage

	if err := s.posts.Update(ctx, post, actorID); err != nil {
		if newImage != oldImage {
			s.images.Remove(newImage)
		}
		return nil, err
	}

	// Row updated; now it's safe to drop the replaced/removed file.
	if oldImage != "" && oldImage != newImage {
		s.images.Remove(oldImage)
	}

	s.logger.Info("post updated",
		slog.String("id", post.ID),
		slog.String("userID", actorID),
	)

	return post, nil
}

// Delete removes an owned post and its image file.
func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	if actorID == "" {
		return apperror.Unauthorized("please login")
	}

	post, err := s.posts.Delete(ctx, postID, actorID)
	if err != nil {
		return err
	}

	s.images.Remove(post.Image)

	s.logger.Info("post deleted",
		slog.String("id", postID),
		slog.String("userID", actorID),
	)

	return nil
}

// Get returns one post with author, like count and (when viewerID is set)
// whether the viewer liked it.
func (s *PostService) Get(ctx context.Context, postID, viewerID string) (*model.Post, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	return s.posts.GetByID(ctx, postID, viewerID)
}

// List returns the public listing, newest first.
func (s *PostService) List(ctx context.Context, viewerID string, limit, offset int) ([]model.Post, error) {
	posts, err := s.posts.List(ctx, viewerID, clampOptions(limit, offset))
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// Dashboard returns the acting user's own posts, newest first.
func (s *PostService) Dashboard(ctx context.Context, actorID string, limit, offset int) ([]model.Post, error) {
	if actorID == "" {
		return nil, apperror.Unauthorized("please login")
	}
	posts, err := s.posts.ListByUser(ctx, actorID, clampOptions(limit, offset))
	if err != nil {
		s.logger.Error("failed to list user posts",
			slog.String("userID", actorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing user posts: %w", err)
	}
	return posts, nil
}

// Search returns posts matching the query in title or content. An empty
// query matches nothing, same as submitting the search form empty.
func (s *PostService) Search(ctx context.Context, query string, limit, offset int) ([]model.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Post{}, nil
	}

	posts, err := s.posts.Search(ctx, query, clampOptions(limit, offset))
	if err != nil {
		s.logger.Error("failed to search posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("searching posts: %w", err)
	}
	return posts, nil
}

func validatePostFields(title, content *string) error {
	*title = strings.TrimSpace(*title)
	*content = strings.TrimSpace(*content)

	if *title == "" || *content == "" {
		return apperror.ValidationFailed("", "please provide both title and content")
	}
	if len(*title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(*content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return nil
}

func clampOptions(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/model"
	"github.com/blogwithme/blogwithme/internal/repository"
)

// In-memory fakes for the repository interfaces. Hand-written (no mock
// framework) so each test reads top to bottom without indirection.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ------------------------------------------------------------------------
// users
// ------------------------------------------------------------------------

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("email", "email already registered")
		}
		if u.Username == user.Username {
			return apperror.Conflict("username", "username already taken")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID {
			u.Email = user.Email
			user.ID = u.ID
			user.Username = u.Username
			return nil
		}
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("username", "username already taken")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

// ------------------------------------------------------------------------
// sessions
// ------------------------------------------------------------------------

type fakeSessionRepo struct {
	sessions map[string]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *model.Session) error {
	if session.Token == "" {
		return fmt.Errorf("token must be set")
	}
	stored := *session
	f.sessions[session.Token] = &stored
	return nil
}

func (f *fakeSessionRepo) Get(_ context.Context, token string) (*model.Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, apperror.NotFound("session", token)
	}
	result := *s
	return &result, nil
}

func (f *fakeSessionRepo) Touch(_ context.Context, token string, now time.Time) error {
	s, ok := f.sessions[token]
	if !ok {
		return apperror.NotFound("session", token)
	}
	s.LastActivity = now
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionRepo) DeleteIdleSince(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for token, s := range f.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(f.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// ------------------------------------------------------------------------
// posts
// ------------------------------------------------------------------------

type fakePostRepo struct {
	posts  map[string]*model.Post
	nextID int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func (f *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = post.CreatedAt
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id, viewerID string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	result := *p
	return &result, nil
}

func (f *fakePostRepo) List(_ context.Context, _ string, opts repository.ListOptions) ([]model.Post, error) {
	return f.collect(func(*model.Post) bool { return true }), nil
}

func (f *fakePostRepo) ListByUser(_ context.Context, userID string, _ repository.ListOptions) ([]model.Post, error) {
	return f.collect(func(p *model.Post) bool { return p.UserID == userID }), nil
}

func (f *fakePostRepo) Search(_ context.Context, query string, _ repository.ListOptions) ([]model.Post, error) {
	return f.collect(func(p *model.Post) bool { return p.Title == query || p.Content == query }), nil
}

func (f *fakePostRepo) Update(_ context.Context, post *model.Post, ownerID string) error {
	existing, ok := f.posts[post.ID]
	if !ok || existing.UserID != ownerID {
		return apperror.NotFoundOrNoPermission("post")
	}
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakePostRepo) Delete(_ context.Context, id, ownerID string) (*model.Post, error) {
	existing, ok := f.posts[id]
	if !ok || existing.UserID != ownerID {
		return nil, apperror.NotFoundOrNoPermission("post")
	}
	delete(f.posts, id)
	result := *existing
	return &result, nil
}

func (f *fakePostRepo) collect(keep func(*model.Post) bool) []model.Post {
	result := make([]model.Post, 0, len(f.posts))
	for _, p := range f.posts {
		if keep(p) {
			result = append(result, *p)
		}
	}
	return result
}

// ------------------------------------------------------------------------
// comments
// ------------------------------------------------------------------------

type fakeCommentRepo struct {
	comments map[string]*model.Comment
	nextID   int
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*model.Comment)}
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *model.Comment) error {
	f.nextID++
	comment.ID = fmt.Sprintf("comment-%d", f.nextID)
	comment.CreatedAt = time.Now().UTC()
	stored := *comment
	f.comments[comment.ID] = &stored
	return nil
}

func (f *fakeCommentRepo) GetByID(_ context.Context, id string) (*model.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	result := *c
	return &result, nil
}

func (f *fakeCommentRepo) ListByPost(_ context.Context, postID string) ([]model.Comment, error) {
	result := make([]model.Comment, 0, len(f.comments))
	for _, c := range f.comments {
		if c.PostID == postID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (f *fakeCommentRepo) Delete(_ context.Context, id, ownerID string) error {
	existing, ok := f.comments[id]
	if !ok || existing.UserID != ownerID {
		return apperror.NotFoundOrNoPermission("comment")
	}
	delete(f.comments, id)
	return nil
}

// ------------------------------------------------------------------------
// likes
// ------------------------------------------------------------------------

type fakeLikeRepo struct {
	likes map[string]bool // key: userID + "/" + postID
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: make(map[string]bool)}
}

func (f *fakeLikeRepo) Toggle(_ context.Context, userID, postID string) (bool, error) {
	key := userID + "/" + postID
	if f.likes[key] {
		delete(f.likes, key)
		return false, nil
	}
	f.likes[key] = true
	return true, nil
}

func (f *fakeLikeRepo) Count(_ context.Context, postID string) (int, error) {
	count := 0
	for key := range f.likes {
		if strings.HasSuffix(key, "/"+postID) {
			count++
		}
	}
	return count, nil
}

// Compile-time checks that the fakes satisfy the interfaces the services
// expect.
var (
	_ repository.UserRepository    = (*fakeUserRepo)(nil)
	_ repository.SessionRepository = (*fakeSessionRepo)(nil)
	_ repository.PostRepository    = (*fakePostRepo)(nil)
	_ repository.CommentRepository = (*fakeCommentRepo)(nil)
	_ repository.LikeRepository    = (*fakeLikeRepo)(nil)
)

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/model"
	"github.com/blogwithme/blogwithme/internal/repository"
)

// PostDB implements repository.PostRepository.
type PostDB struct {
	conn *sql.DB
}

var _ repository.PostRepository = (*PostDB)(nil)

// postColumns is the SELECT list shared by every read. The like count is a
// correlated subquery rather than a join so posts with zero likes still
// produce a row; viewer_liked checks for the acting user's own like row.
const postColumns = `
	p.id, p.user_id, p.title, p.content, p.image, p.created_at, p.updated_at,
	u.username,
	(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
	EXISTS(SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = ?) AS viewer_liked`

func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, title, content, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Title,
		post.Content,
		post.Image,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

func (p *PostDB) GetByID(ctx context.Context, id, viewerID string) (*model.Post, error) {
	var post model.Post
	err := p.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts p
		 JOIN users u ON p.user_id = u.id
		 WHERE p.id = ?`,
		viewerID, id,
	).Scan(
		&post.ID, &post.UserID, &post.Title, &post.Content, &post.Image,
		&post.CreatedAt, &post.UpdatedAt,
		&post.Username, &post.LikeCount, &post.ViewerLiked,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	return &post, nil
}

func (p *PostDB) List(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := clampListOptions(opts)

	rows, err := p.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts p
		 JOIN users u ON p.user_id = u.id
		 ORDER BY p.created_at DESC
		 LIMIT ? OFFSET ?`,
		viewerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows, limit)
}

func (p *PostDB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := clampListOptions(opts)

	rows, err := p.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts p
		 JOIN users u ON p.user_id = u.id
		 WHERE p.user_id = ?
		 ORDER BY p.created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanPosts(rows, limit)
}

// Search matches query against title and content. SQLite's LIKE is
// case-insensitive for ASCII, which matches what the search box promises.
func (p *PostDB) Search(ctx context.Context, query string, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := clampListOptions(opts)
	pattern := "%" + escapeLike(query) + "%"

	rows, err := p.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts p
		 JOIN users u ON p.user_id = u.id
		 WHERE p.title LIKE ? ESCAPE '\' OR p.content LIKE ? ESCAPE '\'
		 ORDER BY p.created_at DESC
		 LIMIT ? OFFSET ?`,
		"", pattern, pattern, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows, limit)
}

// Update rewrites title, content and image for a post the given owner holds.
// The WHERE clause carries the ownership check, so "someone else's post" and
// "no such post" are the same zero-rows outcome.
func (p *PostDB) Update(ctx context.Context, post *model.Post, ownerID string) error {
	post.UpdatedAt = time.Now().UTC()

	result, err := p.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, content = ?, image = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		post.Title,
		post.Content,
		post.Image,
		post.UpdatedAt,
		post.ID,
		ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFoundOrNoPermission("post")
	}

	return nil
}

// Delete removes an owned post and returns the deleted row so the caller can
// clean up the image file. Comments and likes go with it via FK cascade.
func (p *PostDB) Delete(ctx context.Context, id, ownerID string) (*model.Post, error) {
	var post model.Post
	err := p.conn.QueryRowContext(ctx,
		`DELETE FROM posts
		 WHERE id = ? AND user_id = ?
		 RETURNING id, user_id, title, content, image, created_at, updated_at`,
		id, ownerID,
	).Scan(
		&post.ID, &post.UserID, &post.Title, &post.Content, &post.Image,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundOrNoPermission("post")
		}
		return nil, fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	return &post, nil
}

func scanPosts(rows *sql.Rows, capacity int) ([]model.Post, error) {
	posts := make([]model.Post, 0, capacity)
	for rows.Next() {
		var post model.Post
		if err := rows.Scan(
			&post.ID, &post.UserID, &post.Title, &post.Content, &post.Image,
			&post.CreatedAt, &post.UpdatedAt,
			&post.Username, &post.LikeCount, &post.ViewerLiked,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

func clampListOptions(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// escapeLike neutralises LIKE wildcards in user-supplied search terms.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

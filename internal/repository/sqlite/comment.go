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

// CommentDB implements repository.CommentRepository.
type CommentDB struct {
	conn *sql.DB
}

var _ repository.CommentRepository = (*CommentDB)(nil)

func (c *CommentDB) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now().UTC()

	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, user_id, comment, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.UserID,
		comment.Comment,
		comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}

	return nil
}

func (c *CommentDB) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var comment model.Comment
	err := c.conn.QueryRowContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.comment, c.created_at, u.username
		 FROM comments c
		 JOIN users u ON c.user_id = u.id
		 WHERE c.id = ?`,
		id,
	).Scan(
		&comment.ID, &comment.PostID, &comment.UserID,
		&comment.Comment, &comment.CreatedAt, &comment.Username,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}

	return &comment, nil
}

// ListByPost returns a post's comments oldest-first, the order a comment
// thread reads in.
func (c *CommentDB) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.comment, c.created_at, u.username
		 FROM comments c
		 JOIN users u ON c.user_id = u.id
		 WHERE c.post_id = ?
		 ORDER BY c.created_at ASC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, 8)
	for rows.Next() {
		var comment model.Comment
		if err := rows.Scan(
			&comment.ID, &comment.PostID, &comment.UserID,
			&comment.Comment, &comment.CreatedAt, &comment.Username,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

// Delete removes a comment the given owner wrote. Same owner-scoped WHERE as
// post deletion: missing and not-yours are indistinguishable.
func (c *CommentDB) Delete(ctx context.Context, id, ownerID string) error {
	result, err := c.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFoundOrNoPermission("comment")
	}

	return nil
}

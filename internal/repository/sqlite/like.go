package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blogwithme/blogwithme/internal/repository"
)

// LikeDB implements repository.LikeRepository.
type LikeDB struct {
	conn *sql.DB
}

var _ repository.LikeRepository = (*LikeDB)(nil)

// Toggle flips the like row for (userID, postID) and reports the new state.
//
// The insert leg is a single atomic conditional insert against the primary
// key — not a SELECT followed by an INSERT — so two concurrent toggles cannot
// both observe "not liked" and double-insert. If the insert affected nothing
// the row already existed and the toggle means unlike.
func (l *LikeDB) Toggle(ctx context.Context, userID, postID string) (bool, error) {
	result, err := l.conn.ExecContext(ctx,
		`INSERT INTO likes (user_id, post_id) VALUES (?, ?)
		 ON CONFLICT(user_id, post_id) DO NOTHING`,
		userID, postID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting like: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	if _, err := l.conn.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	); err != nil {
		return false, fmt.Errorf("sqlite: deleting like: %w", err)
	}

	return false, nil
}

func (l *LikeDB) Count(ctx context.Context, postID string) (int, error) {
	var count int
	err := l.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID,
	).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("sqlite: counting likes for post %s: %w", postID, err)
	}

	return count, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/model"
	"github.com/blogwithme/blogwithme/internal/repository"
)

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

// Compile-time interface check.
var _ repository.UserRepository = (*UserDB)(nil)

// Create inserts a new user. There is no SELECT-then-INSERT: uniqueness of
// email and username rests entirely on the table constraints, so two
// concurrent registrations with the same email cannot both succeed.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.DefaultRole
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		nullableGitHubID(user.GitHubID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("email", "email already registered")
		}
		if isUniqueViolation(err, "users.username") {
			return apperror.Conflict("username", "username already taken")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return u.getOne(ctx, `WHERE id = ?`, id)
}

func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.getOne(ctx, `WHERE email = ?`, email)
}

func (u *UserDB) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		user     model.User
		githubID sql.NullInt64
	)
	err := u.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, github_id, created_at, updated_at
		 FROM users `+where, arg,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&githubID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	user.GitHubID = githubID.Int64

	return &user, nil
}

// UpsertGitHub creates or refreshes an account keyed on github_id. First
// OAuth login inserts; later logins update email and updated_at in case they
// changed on GitHub. The row's ID and username are preserved on update.
func (u *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return fmt.Errorf("sqlite: upserting user: github_id must be set")
	}

	now := time.Now().UTC()
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.DefaultRole
	}

	// Fast path: the account already exists.
	existing, err := u.getOne(ctx, `WHERE github_id = ?`, user.GitHubID)
	switch {
	case err == nil:
		_, err = u.conn.ExecContext(ctx,
			`UPDATE users SET email = ?, updated_at = ? WHERE github_id = ?`,
			user.Email, user.UpdatedAt, user.GitHubID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating github user %d: %w", user.GitHubID, err)
		}
		user.ID = existing.ID
		user.Username = existing.Username
		user.Role = existing.Role
		user.CreatedAt = existing.CreatedAt
		return nil

	case errors.Is(err, apperror.ErrNotFound):
		user.CreatedAt = now
		if createErr := u.Create(ctx, user); createErr != nil {
			// A concurrent callback for the same GitHub account can win the
			// insert; the partial unique index reports it on users.github_id.
			if isUniqueViolation(createErr, "users.github_id") {
				return u.UpsertGitHub(ctx, user)
			}
			return createErr
		}
		return nil

	default:
		return err
	}
}

func nullableGitHubID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

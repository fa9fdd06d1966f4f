package sqlite

import (
	"context"
	"testing"

	"github.com/blogwithme/blogwithme/internal/model"
)

// newTestDB returns an in-memory database with the full schema applied.
// t.Cleanup closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$notarealhashnotarealhashnotarealhash",
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

// createTestPost inserts a post owned by userID.
func createTestPost(t *testing.T, db *DB, userID, title, content string) *model.Post {
	t.Helper()
	post := &model.Post{
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	if err := db.Posts().Create(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post %q: %v", title, err)
	}
	return post
}

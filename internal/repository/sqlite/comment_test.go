package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blogwithme/blogwithme/internal/apperror"
	"github.com/blogwithme/blogwithme/internal/model"
)

func createTestComment(t *testing.T, db *DB, postID, userID, text string) *model.Comment {
	t.Helper()
	comment := &model.Comment{
		PostID:  postID,
		UserID:  userID,
		Comment: text,
	}
	if err := db.Comments().Create(context.Background(), comment); err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return comment
}

func TestCommentCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "commenter")
	post := createTestPost(t, db, user.ID, "post", "content")

	created := createTestComment(t, db, post.ID, user.ID, "nice post")
	if created.ID == "" {
		t.Fatal("Create() did not set comment.ID")
	}

	found, err := db.Comments().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Comment != "nice post" {
		t.Errorf("Comment = %q, want %q", found.Comment, "nice post")
	}
	if found.Username != "commenter" {
		t.Errorf("Username = %q, want %q", found.Username, "commenter")
	}
}

func TestCommentListByPost_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "commenter")
	post := createTestPost(t, db, user.ID, "post", "content")
	other := createTestPost(t, db, user.ID, "other", "content")

	createTestComment(t, db, post.ID, user.ID, "first")
	time.Sleep(5 * time.Millisecond)
	createTestComment(t, db, post.ID, user.ID, "second")
	createTestComment(t, db, other.ID, user.ID, "elsewhere")

	comments, err := db.Comments().ListByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListByPost() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("ListByPost() returned %d comments, want 2", len(comments))
	}
	if comments[0].Comment != "first" || comments[1].Comment != "second" {
		t.Errorf("order = [%q, %q], want oldest first", comments[0].Comment, comments[1].Comment)
	}
}

func TestCommentDelete_OwnerScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	intruder := createTestUser(t, db, "intruder")
	post := createTestPost(t, db, owner.ID, "post", "content")
	comment := createTestComment(t, db, post.ID, owner.ID, "mine")

	err := db.Comments().Delete(ctx, comment.ID, intruder.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete() as non-owner error = %v, want ErrNotFound", err)
	}

	if err := db.Comments().Delete(ctx, comment.ID, owner.ID); err != nil {
		t.Fatalf("Delete() as owner error = %v", err)
	}
	if _, err := db.Comments().GetByID(ctx, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCommentCascadeOnPostDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "owner")
	post := createTestPost(t, db, user.ID, "doomed", "content")
	comment := createTestComment(t, db, post.ID, user.ID, "soon gone")

	if _, err := db.Posts().Delete(ctx, post.ID, user.ID); err != nil {
		t.Fatalf("Delete() post error = %v", err)
	}

	if _, err := db.Comments().GetByID(ctx, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("comment survived its post's deletion: %v", err)
	}
}

package model

import "time"

// Post is a blog post owned by exactly one user. Image is the stored filename
// of an optional uploaded image ("" = no image); the file itself lives in the
// upload directory and is removed together with the post.
type Post struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Title     string    `json:"title"     db:"title"`
	Content   string    `json:"content"   db:"content"`
	Image     string    `json:"image,omitempty" db:"image"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Denormalised fields filled by listing queries, not stored columns.
	Username    string `json:"username,omitempty" db:"-"`
	LikeCount   int    `json:"likeCount"          db:"-"`
	ViewerLiked bool   `json:"viewerLiked"        db:"-"`
}

// Comment belongs to a post and to the user who wrote it. Deletable only by
// that user.
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	PostID    string    `json:"postId"    db:"post_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Comment   string    `json:"comment"   db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Username string `json:"username,omitempty" db:"-"`
}

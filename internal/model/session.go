package model

import "time"

// Session is a server-side login session keyed by an opaque, unguessable
// token carried in a cookie. LastActivity is refreshed on every request that
// presents the token; a session idle for longer than the configured lifetime
// is destroyed and the request treated as anonymous.
//
// Username is cached from the user row at login so request handling does not
// need a user lookup just to display who is logged in.
type Session struct {
	Token        string    `json:"-"            db:"token"`
	UserID       string    `json:"userId"       db:"user_id"`
	Username     string    `json:"username"     db:"username"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
	LastActivity time.Time `json:"lastActivity" db:"last_activity"`
}

package types

import "time"

// CreatedAtLayout is the fixed wall-clock layout accepted for explicit
// created_at overrides and used for timestamps in legacy API payloads.
// It corresponds to "YYYY-MM-DD HH:MM:SS".
const CreatedAtLayout = "2006-01-02 15:04:05"

// MaxTitleLen bounds blog post titles, matching the title column's
// width in the schema.
const MaxTitleLen = 128

// BlogPost represents a single post authored by a user.
type BlogPost struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// UserID is the identifier of the authoring user. Deleting the user
	// cascades to their posts at the database level.
	UserID int `json:"user_id" db:"user_id"`

	// Author is the authoring user's username. Populated by list/get
	// queries through a join; not a stored column.
	Author string `json:"author" db:"-"`

	// Title is the post's headline. Required, at most MaxTitleLen runes.
	Title string `json:"title" db:"title"`

	// Text is the post body. Required, unbounded.
	Text string `json:"text" db:"text"`

	// CreatedAt is the post's creation timestamp. It orders feeds
	// (newest first, ties broken by ID) and may be backdated at creation
	// through the legacy create API.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

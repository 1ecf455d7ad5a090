package models

import "time"

// MinPostContentLength is the minimum number of characters a post body must have.
const MinPostContentLength = 20

type Post struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Excerpt   string      `json:"excerpt"`
	OwnerID   string      `json:"ownerId"` // Set once at creation, never reassigned
	Author    *PostAuthor `json:"author,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// PostAuthor is the owner projection attached to posts when listing.
type PostAuthor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (p *Post) OwnedBy(userID string) bool {
	return p.OwnerID != "" && p.OwnerID == userID
}

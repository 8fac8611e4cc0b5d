package entities

import "time"

// Quote is a passage saved from a book. Lists are shown newest first.
type Quote struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	StartPage int       `json:"start_page"`
	EndPage   int       `json:"end_page"`
	CreatedAt time.Time `json:"created_at"`
}

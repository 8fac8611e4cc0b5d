package entities

// Shelf groups books. BookIDs is not stored on the shelf record; it is rebuilt
// from the book_shelf link table on every read.
type Shelf struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	BookIDs     []string `json:"book_ids"`
}

// Contains reports whether the shelf lists the given book.
func (s Shelf) Contains(bookID string) bool {
	for _, id := range s.BookIDs {
		if id == bookID {
			return true
		}
	}
	return false
}

// BookShelfLink is one row of the many-to-many book/shelf association.
type BookShelfLink struct {
	BookID  string `json:"book_id"`
	ShelfID string `json:"shelf_id"`
}

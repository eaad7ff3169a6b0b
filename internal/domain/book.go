package domain

// Book represents a catalog entry. Titles are unique across the catalog.
// Books hold a weak reference to their author by ID; authors do not own books.
type Book struct {
	Record
	Title     string   `json:"title"`
	Published int32    `json:"published"`
	Genres    []string `json:"genres"`
	AuthorID  string   `json:"author_id"`
}

// HasGenre reports whether the book's genre list contains g.
func (b *Book) HasGenre(g string) bool {
	for _, genre := range b.Genres {
		if genre == g {
			return true
		}
	}
	return false
}

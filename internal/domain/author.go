package domain

// Author represents a book author. Names are unique across the catalog.
// Authors created lazily during addBook start out with no birth year.
type Author struct {
	Record
	Name string `json:"name"`
	Born *int32 `json:"born,omitempty"`
}

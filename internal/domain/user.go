package domain

// User represents an account that can authenticate against the catalog.
// Usernames are unique. There is no stored password: login checks a
// placeholder secret until a real credential scheme lands.
type User struct {
	Record
	Username      string `json:"username"`
	FavoriteGenre string `json:"favorite_genre"`
}

// Package main provides a tool to seed the catalog with sample data.
//
// Usage:
//
//	LIBRIS_DATA_PATH=~/libris/db go run ./cmd/seed
//	LIBRIS_DATA_PATH=~/libris/db go run ./cmd/seed --create-user  # Also create a demo user
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/librisapp/libris-server/internal/domain"
	"github.com/librisapp/libris-server/internal/id"
	"github.com/librisapp/libris-server/internal/store"
)

var createUser = flag.Bool("create-user", false, "Create a demo user for login testing")

type seedAuthor struct {
	name string
	born int32
}

type seedBook struct {
	title     string
	author    string
	published int32
	genres    []string
}

var authors = []seedAuthor{
	{"Robert Martin", 1952},
	{"Martin Fowler", 1963},
	{"Fyodor Dostoevsky", 1821},
	{"Joshua Kerievsky", 0},
	{"Sandi Metz", 0},
}

var books = []seedBook{
	{"Clean Code", "Robert Martin", 2008, []string{"refactoring"}},
	{"Agile software development", "Robert Martin", 2002, []string{"agile", "patterns", "design"}},
	{"Refactoring, edition 2", "Martin Fowler", 2018, []string{"refactoring"}},
	{"Refactoring to patterns", "Joshua Kerievsky", 2008, []string{"refactoring", "patterns"}},
	{"Practical Object-Oriented Design, An Agile Primer Using Ruby", "Sandi Metz", 2012, []string{"refactoring", "design"}},
	{"Crime and punishment", "Fyodor Dostoevsky", 1866, []string{"classic", "crime"}},
	{"Demons", "Fyodor Dostoevsky", 1872, []string{"classic", "revolution"}},
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("LIBRIS_DATA_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/libris/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	authorIDs := make(map[string]string, len(authors))
	for _, a := range authors {
		author := &domain.Author{Name: a.name}
		author.ID = id.MustGenerate("author")
		author.InitTimestamps()
		if a.born != 0 {
			born := a.born
			author.Born = &born
		}

		if err := s.Authors.Create(ctx, author.ID, author); err != nil {
			if existing, lookupErr := s.Authors.GetByIndex(ctx, "name", a.name); lookupErr == nil {
				fmt.Printf("Author already exists: %s\n", a.name)
				authorIDs[a.name] = existing.ID
				continue
			}
			log.Fatalf("Failed to create author %s: %v", a.name, err)
		}
		authorIDs[a.name] = author.ID
		fmt.Printf("Created author: %s\n", a.name)
	}

	for _, b := range books {
		book := &domain.Book{
			Title:     b.title,
			Published: b.published,
			Genres:    b.genres,
			AuthorID:  authorIDs[b.author],
		}
		book.ID = id.MustGenerate("book")
		book.InitTimestamps()

		if err := s.Books.Create(ctx, book.ID, book); err != nil {
			fmt.Printf("Skipping book (already exists?): %s: %v\n", b.title, err)
			continue
		}
		fmt.Printf("Created book: %s\n", b.title)
	}

	if *createUser {
		user := &domain.User{Username: "demo", FavoriteGenre: "refactoring"}
		user.ID = id.MustGenerate("user")
		user.InitTimestamps()
		if err := s.Users.Create(ctx, user.ID, user); err != nil {
			fmt.Printf("Skipping user (already exists?): %v\n", err)
		} else {
			fmt.Println("Created user: demo (password: secret)")
		}
	}

	fmt.Println("Done")
}

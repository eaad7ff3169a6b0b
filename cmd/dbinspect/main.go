// Package main provides a read-only inspection tool for the catalog database.
//
// Usage:
//
//	LIBRIS_DATA_PATH=~/libris/db go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/librisapp/libris-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("LIBRIS_DATA_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/libris/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Catalog Inspection ===")
	fmt.Println()

	bookCount := 0
	genres := map[string]int{}
	booksByAuthorID := map[string]int{}

	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte("book:")
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Skip secondary index entries.
			if strings.HasPrefix(key, "book:idx:") {
				continue
			}

			err := item.Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}

				bookCount++
				booksByAuthorID[book.AuthorID]++
				for _, g := range book.Genres {
					genres[g]++
				}

				if bookCount <= 5 {
					fmt.Printf("Book: %s\n", book.Title)
					fmt.Printf("  ID: %s\n", book.ID)
					fmt.Printf("  Published: %d\n", book.Published)
					fmt.Printf("  Genres: %s\n", strings.Join(book.Genres, ", "))
					fmt.Println()
				}

				return nil
			})
			if err != nil {
				log.Printf("Error reading book %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	authorCount := 0
	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte("author:")
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if !strings.HasPrefix(string(it.Item().Key()), "author:idx:") {
				authorCount++
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error counting authors: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Total books: %d\n", bookCount)
	fmt.Printf("Total authors: %d\n", authorCount)
	fmt.Printf("Authors referenced by books: %d\n", len(booksByAuthorID))
	fmt.Printf("Distinct genres: %d\n", len(genres))
	for g, n := range genres {
		fmt.Printf("  %s: %d\n", g, n)
	}
}

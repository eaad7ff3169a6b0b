// Package store implements the document store for the catalog on top of Badger.
package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/librisapp/libris-server/internal/domain"
)

// Sentinel errors returned by store operations.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a primary key or unique index conflict.
	ErrAlreadyExists = errors.New("already exists")
)

// Store wraps a Badger database instance and exposes the catalog entities.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Books   *Entity[domain.Book]
	Authors *Entity[domain.Author]
	Users   *Entity[domain.User]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}
	store.initEntities()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// initEntities wires up the catalog entities with their unique indexes.
// The indexes are what enforce the catalog invariants: one book per title,
// one author per name, one user per username.
func (s *Store) initEntities() {
	s.Books = NewEntity[domain.Book](s, "book:").
		WithUniqueIndex("title", func(b *domain.Book) string { return b.Title })

	s.Authors = NewEntity[domain.Author](s, "author:").
		WithUniqueIndex("name", func(a *domain.Author) string { return a.Name })

	s.Users = NewEntity[domain.User](s, "user:").
		WithUniqueIndex("username", func(u *domain.User) string { return u.Username })
}

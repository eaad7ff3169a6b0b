// Package service orchestrates catalog operations over the store.
package service

import (
	"context"
	"log/slog"

	"github.com/librisapp/libris-server/internal/auth"
	"github.com/librisapp/libris-server/internal/domain"
	domainerrors "github.com/librisapp/libris-server/internal/errors"
	"github.com/librisapp/libris-server/internal/events"
	"github.com/librisapp/libris-server/internal/id"
	"github.com/librisapp/libris-server/internal/store"
	"github.com/librisapp/libris-server/internal/validation"
)

// AllGenresSentinel is the genre value meaning "no genre filter".
// allGenres always includes it so clients can offer an unfiltered choice.
const AllGenresSentinel = "all genres"

// CatalogBook is a book joined with its author record.
type CatalogBook struct {
	Book   *domain.Book
	Author *domain.Author
}

// BookCounts maps author names to the number of books they wrote.
// allAuthors computes it once per call so resolving bookCount for every
// author does not re-scan the store.
type BookCounts map[string]int32

// CatalogService computes counts, lists and filters over the catalog,
// and handles the book/author mutations.
type CatalogService struct {
	store     *store.Store
	logger    *slog.Logger
	validator *validation.Validator
	bookAdded *events.Bus[CatalogBook]
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(s *store.Store, logger *slog.Logger, bookAdded *events.Bus[CatalogBook]) *CatalogService {
	return &CatalogService{
		store:     s,
		logger:    logger,
		validator: validation.New(),
		bookAdded: bookAdded,
	}
}

// BookCount returns the total number of books.
func (s *CatalogService) BookCount(ctx context.Context) (int32, error) {
	n, err := s.store.Books.Count(ctx)
	return int32(n), err
}

// AuthorCount returns the total number of authors.
func (s *CatalogService) AuthorCount(ctx context.Context) (int32, error) {
	n, err := s.store.Authors.Count(ctx)
	return int32(n), err
}

// BookFilter holds the optional allBooks arguments.
// A nil or empty field means that filter is absent.
type BookFilter struct {
	Author *string
	Genre  *string
}

func (f BookFilter) authorName() (string, bool) {
	if f.Author == nil || *f.Author == "" {
		return "", false
	}
	return *f.Author, true
}

func (f BookFilter) genre() (string, bool) {
	if f.Genre == nil || *f.Genre == "" {
		return "", false
	}
	return *f.Genre, true
}

// AllBooks returns books with their authors, filtered by author name and/or genre.
//
// The dual-filter behavior is deliberately kept compatible with the previous
// implementation of this API: when both filters are given and the author
// filter matches nothing, the genre filter is applied to the full catalog
// instead of the empty intersection. Clients depend on the single-filter
// paths; the dual-filter fallback is documented in DESIGN.md.
func (s *CatalogService) AllBooks(ctx context.Context, filter BookFilter) ([]CatalogBook, error) {
	books, err := s.loadBooks(ctx)
	if err != nil {
		return nil, err
	}

	authorName, byAuthor := filter.authorName()
	genre, byGenre := filter.genre()

	if !byAuthor && !byGenre {
		return books, nil
	}

	var filtered []CatalogBook
	if byAuthor {
		for _, b := range books {
			if b.Author != nil && b.Author.Name == authorName {
				filtered = append(filtered, b)
			}
		}
	}

	if byGenre {
		if len(filtered) == 0 {
			if genre == AllGenresSentinel {
				return books, nil
			}
			return booksWithGenre(books, genre), nil
		}
		if genre != AllGenresSentinel {
			filtered = booksWithGenre(filtered, genre)
		}
	}

	return filtered, nil
}

func booksWithGenre(books []CatalogBook, genre string) []CatalogBook {
	var matched []CatalogBook
	for _, b := range books {
		if b.Book.HasGenre(genre) {
			matched = append(matched, b)
		}
	}
	return matched
}

// AllGenres returns every distinct genre across all books plus the sentinel,
// in first-seen order with the sentinel last.
func (s *CatalogService) AllGenres(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	genres := []string{}

	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return nil, err
		}
		for _, g := range book.Genres {
			if !seen[g] {
				seen[g] = true
				genres = append(genres, g)
			}
		}
	}

	return append(genres, AllGenresSentinel), nil
}

// AllAuthors returns all authors along with a precomputed name→count map.
// The map is built from a single pass over the books so per-author bookCount
// resolution does not hit the store again.
func (s *CatalogService) AllAuthors(ctx context.Context) ([]*domain.Author, BookCounts, error) {
	authors, err := s.store.Authors.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	books, err := s.loadBooks(ctx)
	if err != nil {
		return nil, nil, err
	}

	counts := make(BookCounts, len(authors))
	for _, b := range books {
		if b.Author != nil {
			counts[b.Author.Name]++
		}
	}

	return authors, counts, nil
}

// CountBooksByAuthor counts books referencing the given author.
// This is the fallback path when no precomputed count map is available;
// for consistent data it agrees with the map built by AllAuthors.
func (s *CatalogService) CountBooksByAuthor(ctx context.Context, authorID string) (int32, error) {
	var count int32
	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return 0, err
		}
		if book.AuthorID == authorID {
			count++
		}
	}
	return count, nil
}

// AddBookRequest contains fields for creating a book.
type AddBookRequest struct {
	Title     string   `json:"title" validate:"required,min=1,max=500"`
	Author    string   `json:"author" validate:"required,min=1,max=200"`
	Published int32    `json:"published"`
	Genres    []string `json:"genres" validate:"required"`
}

// AddBook creates a book, lazily creating its author, and publishes a
// "book added" event on success. Requires an authenticated user.
func (s *CatalogService) AddBook(ctx context.Context, req AddBookRequest) (*CatalogBook, error) {
	if auth.UserFrom(ctx) == nil {
		return nil, domainerrors.NotAuthenticated("not authenticated")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Title uniqueness is rechecked by the store's index on create; this
	// early check gives the clean "must be unique" message before any
	// author is lazily created.
	if _, err := s.store.Books.GetByIndex(ctx, "title", req.Title); err == nil {
		return nil, domainerrors.UserInput("book title must be unique").WithArgs(req.Title)
	} else if !domainerrors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	author, created, err := s.store.Authors.FindOrCreate(ctx, "name", req.Author, func() (string, *domain.Author, error) {
		authorID, err := id.Generate("author")
		if err != nil {
			return "", nil, err
		}
		a := &domain.Author{Name: req.Author}
		a.ID = authorID
		a.InitTimestamps()
		return authorID, a, nil
	})
	if err != nil {
		return nil, domainerrors.UserInput("saving author failed").WithArgs(req.Author).WithCause(err)
	}
	if created {
		s.logger.Info("author created lazily", "author", author.Name, "author_id", author.ID)
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, domainerrors.Internal("generate book ID").WithCause(err)
	}

	book := &domain.Book{
		Title:     req.Title,
		Published: req.Published,
		Genres:    req.Genres,
		AuthorID:  author.ID,
	}
	book.ID = bookID
	book.InitTimestamps()

	if err := s.store.Books.Create(ctx, bookID, book); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.UserInput("book title must be unique").WithArgs(req.Title).WithCause(err)
		}
		return nil, domainerrors.UserInput("saving book failed").WithArgs(req.Title).WithCause(err)
	}

	entry := CatalogBook{Book: book, Author: author}
	s.bookAdded.Publish(entry)
	s.logger.Info("book added", "title", book.Title, "author", author.Name, "book_id", book.ID)

	return &entry, nil
}

// EditAuthor sets an author's birth year. Requires an authenticated user.
// Returns nil without error if no author carries the given name.
func (s *CatalogService) EditAuthor(ctx context.Context, name string, setBornTo int32) (*domain.Author, error) {
	if auth.UserFrom(ctx) == nil {
		return nil, domainerrors.NotAuthenticated("not authenticated")
	}

	author, err := s.store.Authors.GetByIndex(ctx, "name", name)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	born := setBornTo
	author.Born = &born
	author.Touch()

	if err := s.store.Authors.Update(ctx, author.ID, author); err != nil {
		return nil, domainerrors.UserInput("saving author failed").WithArgs(name).WithCause(err)
	}

	return author, nil
}

// loadBooks joins every book with its author in one pass over each entity.
func (s *CatalogService) loadBooks(ctx context.Context) ([]CatalogBook, error) {
	authors, err := s.store.Authors.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Author, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}

	books := []CatalogBook{}
	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return nil, err
		}
		books = append(books, CatalogBook{Book: book, Author: byID[book.AuthorID]})
	}

	return books, nil
}

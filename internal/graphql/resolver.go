package graphql

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/librisapp/libris-server/internal/auth"
	"github.com/librisapp/libris-server/internal/domain"
	domainerrors "github.com/librisapp/libris-server/internal/errors"
	"github.com/librisapp/libris-server/internal/events"
	"github.com/librisapp/libris-server/internal/service"
)

// Resolver is the root resolver for queries, mutations and subscriptions.
type Resolver struct {
	catalog   *service.CatalogService
	auth      *service.AuthService
	bookAdded *events.Bus[service.CatalogBook]
}

// NewResolver creates the root resolver.
func NewResolver(catalog *service.CatalogService, authSvc *service.AuthService, bookAdded *events.Bus[service.CatalogBook]) *Resolver {
	return &Resolver{
		catalog:   catalog,
		auth:      authSvc,
		bookAdded: bookAdded,
	}
}

// Query resolvers.

// BookCount resolves Query.bookCount.
func (r *Resolver) BookCount(ctx context.Context) (int32, error) {
	return r.catalog.BookCount(ctx)
}

// AuthorCount resolves Query.authorCount.
func (r *Resolver) AuthorCount(ctx context.Context) (int32, error) {
	return r.catalog.AuthorCount(ctx)
}

// AllBooks resolves Query.allBooks.
func (r *Resolver) AllBooks(ctx context.Context, args struct {
	Author *string
	Genre  *string
}) ([]*BookResolver, error) {
	books, err := r.catalog.AllBooks(ctx, service.BookFilter{Author: args.Author, Genre: args.Genre})
	if err != nil {
		return nil, err
	}

	resolvers := make([]*BookResolver, 0, len(books))
	for _, entry := range books {
		resolvers = append(resolvers, &BookResolver{entry: entry, root: r})
	}
	return resolvers, nil
}

// AllAuthors resolves Query.allAuthors. The count map built by the service is
// handed to every author resolver so bookCount never re-queries the store.
func (r *Resolver) AllAuthors(ctx context.Context) ([]*AuthorResolver, error) {
	authors, counts, err := r.catalog.AllAuthors(ctx)
	if err != nil {
		return nil, err
	}

	resolvers := make([]*AuthorResolver, 0, len(authors))
	for _, a := range authors {
		resolvers = append(resolvers, &AuthorResolver{author: a, counts: counts, root: r})
	}
	return resolvers, nil
}

// AllGenres resolves Query.allGenres.
func (r *Resolver) AllGenres(ctx context.Context) ([]string, error) {
	return r.catalog.AllGenres(ctx)
}

// Me resolves Query.me to the request's current user, or null when the
// request carried no valid credentials.
func (r *Resolver) Me(ctx context.Context) *UserResolver {
	user := auth.UserFrom(ctx)
	if user == nil {
		return nil
	}
	return &UserResolver{user: user}
}

// Mutation resolvers.

// AddBook resolves Mutation.addBook.
func (r *Resolver) AddBook(ctx context.Context, args struct {
	Title     string
	Author    string
	Published int32
	Genres    []string
}) (*BookResolver, error) {
	entry, err := r.catalog.AddBook(ctx, service.AddBookRequest{
		Title:     args.Title,
		Author:    args.Author,
		Published: args.Published,
		Genres:    args.Genres,
	})
	if err != nil {
		return nil, err
	}
	return &BookResolver{entry: *entry, root: r}, nil
}

// EditAuthor resolves Mutation.editAuthor. Yields null for an unknown author.
func (r *Resolver) EditAuthor(ctx context.Context, args struct {
	Name      string
	SetBornTo int32
}) (*AuthorResolver, error) {
	author, err := r.catalog.EditAuthor(ctx, args.Name, args.SetBornTo)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, nil
	}
	return &AuthorResolver{author: author, root: r}, nil
}

// CreateUser resolves Mutation.createUser.
func (r *Resolver) CreateUser(ctx context.Context, args struct {
	Username      string
	FavoriteGenre string
}) (*UserResolver, error) {
	user, err := r.auth.CreateUser(ctx, service.CreateUserRequest{
		Username:      args.Username,
		FavoriteGenre: args.FavoriteGenre,
	})
	if err != nil {
		return nil, err
	}
	return &UserResolver{user: user}, nil
}

// Login resolves Mutation.login.
func (r *Resolver) Login(ctx context.Context, args struct {
	Username string
	Password string
}) (*TokenResolver, error) {
	token, err := r.auth.Login(ctx, args.Username, args.Password)
	if err != nil {
		return nil, err
	}
	return &TokenResolver{value: token}, nil
}

// Subscription resolvers.

// BookAdded resolves Subscription.bookAdded. Each subscriber gets its own
// ordered stream of books added after subscribing; the stream ends when the
// client disconnects.
func (r *Resolver) BookAdded(ctx context.Context) chan *BookResolver {
	added := r.bookAdded.Subscribe(ctx)

	out := make(chan *BookResolver)
	go func() {
		defer close(out)
		for entry := range added {
			select {
			case out <- &BookResolver{entry: entry, root: r}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// BookResolver resolves the Book type.
type BookResolver struct {
	entry service.CatalogBook
	root  *Resolver
}

// Title resolves Book.title.
func (b *BookResolver) Title() string {
	return b.entry.Book.Title
}

// Published resolves Book.published.
func (b *BookResolver) Published() int32 {
	return b.entry.Book.Published
}

// Genres resolves Book.genres.
func (b *BookResolver) Genres() []string {
	return b.entry.Book.Genres
}

// ID resolves Book.id.
func (b *BookResolver) ID() graphql.ID {
	return graphql.ID(b.entry.Book.ID)
}

// Author resolves Book.author. The schema declares the field non-null, so a
// dangling author reference is surfaced as an error rather than null.
func (b *BookResolver) Author() (*AuthorResolver, error) {
	if b.entry.Author == nil {
		return nil, domainerrors.Internalf("book %q references missing author %q", b.entry.Book.Title, b.entry.Book.AuthorID)
	}
	return &AuthorResolver{author: b.entry.Author, root: b.root}, nil
}

// AuthorResolver resolves the Author type.
// counts is the per-request count map from allAuthors; it is nil on other
// paths, where bookCount falls back to counting in the store.
type AuthorResolver struct {
	author *domain.Author
	counts service.BookCounts
	root   *Resolver
}

// Name resolves Author.name.
func (a *AuthorResolver) Name() string {
	return a.author.Name
}

// Born resolves Author.born.
func (a *AuthorResolver) Born() *int32 {
	return a.author.Born
}

// ID resolves Author.id.
func (a *AuthorResolver) ID() graphql.ID {
	return graphql.ID(a.author.ID)
}

// BookCount resolves Author.bookCount, preferring the precomputed map.
func (a *AuthorResolver) BookCount(ctx context.Context) (int32, error) {
	if a.counts != nil {
		if count, ok := a.counts[a.author.Name]; ok {
			return count, nil
		}
	}
	return a.root.catalog.CountBooksByAuthor(ctx, a.author.ID)
}

// UserResolver resolves the User type.
type UserResolver struct {
	user *domain.User
}

// Username resolves User.username.
func (u *UserResolver) Username() string {
	return u.user.Username
}

// FavoriteGenre resolves User.favoriteGenre.
func (u *UserResolver) FavoriteGenre() string {
	return u.user.FavoriteGenre
}

// ID resolves User.id.
func (u *UserResolver) ID() graphql.ID {
	return graphql.ID(u.user.ID)
}

// TokenResolver resolves the Token type.
type TokenResolver struct {
	value string
}

// Value resolves Token.value.
func (t *TokenResolver) Value() string {
	return t.value
}

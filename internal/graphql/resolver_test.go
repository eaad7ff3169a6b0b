package graphql_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	gographql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librisapp/libris-server/internal/auth"
	"github.com/librisapp/libris-server/internal/domain"
	"github.com/librisapp/libris-server/internal/events"
	"github.com/librisapp/libris-server/internal/graphql"
	"github.com/librisapp/libris-server/internal/service"
	"github.com/librisapp/libris-server/internal/store"
)

type apiFixture struct {
	schema  *gographql.Schema
	catalog *service.CatalogService
	auth    *service.AuthService
	bus     *events.Bus[service.CatalogBook]
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	log := slog.New(slog.DiscardHandler)

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	bus := events.NewBus[service.CatalogBook](log)
	t.Cleanup(bus.Close)

	tokens, err := auth.NewTokenService(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)

	catalog := service.NewCatalogService(s, log, bus)
	authSvc := service.NewAuthService(s, tokens, log)

	resolver := graphql.NewResolver(catalog, authSvc, bus)
	schema, err := gographql.ParseSchema(graphql.Schema, resolver)
	require.NoError(t, err)

	return &apiFixture{schema: schema, catalog: catalog, auth: authSvc, bus: bus}
}

func (f *apiFixture) authedCtx(t *testing.T) context.Context {
	t.Helper()
	user := &domain.User{Username: "librarian", FavoriteGenre: "classic"}
	user.ID = "user_test"
	return auth.WithUser(context.Background(), user)
}

// exec runs a query and fails the test on any GraphQL error.
func (f *apiFixture) exec(t *testing.T, ctx context.Context, query string, vars map[string]any) map[string]any {
	t.Helper()

	resp := f.schema.Exec(ctx, query, "", vars)
	require.Empty(t, resp.Errors, "unexpected GraphQL errors: %v", resp.Errors)

	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data
}

func (f *apiFixture) addBook(t *testing.T, title, author string, published int32, genres []string) {
	t.Helper()
	_, err := f.catalog.AddBook(f.authedCtx(t), service.AddBookRequest{
		Title: title, Author: author, Published: published, Genres: genres,
	})
	require.NoError(t, err)
}

func TestSchemaMatchesResolver(t *testing.T) {
	// ParseSchema validates every schema field against the resolver's
	// methods, so a successful setup is the assertion.
	setupAPI(t)
}

func TestQueryCounts(t *testing.T) {
	f := setupAPI(t)
	f.addBook(t, "Clean Code", "Robert Martin", 2008, []string{"refactoring"})
	f.addBook(t, "Agile Software Development", "Robert Martin", 2002, []string{"agile", "design"})
	f.addBook(t, "Refactoring", "Martin Fowler", 1999, []string{"refactoring"})

	data := f.exec(t, context.Background(), `{ bookCount authorCount }`, nil)
	assert.EqualValues(t, 3, data["bookCount"])
	assert.EqualValues(t, 2, data["authorCount"])
}

func TestQueryAllBooks_GenreFilter(t *testing.T) {
	f := setupAPI(t)
	f.addBook(t, "Clean Code", "Robert Martin", 2008, []string{"refactoring"})
	f.addBook(t, "Demons", "Fyodor Dostoevsky", 1872, []string{"classic", "revolution"})

	data := f.exec(t, context.Background(), `
		query($genre: String) {
			allBooks(genre: $genre) { title author { name } genres }
		}`, map[string]any{"genre": "classic"})

	books := data["allBooks"].([]any)
	require.Len(t, books, 1)
	book := books[0].(map[string]any)
	assert.Equal(t, "Demons", book["title"])
	assert.Equal(t, "Fyodor Dostoevsky", book["author"].(map[string]any)["name"])
}

func TestQueryAllAuthors_BookCount(t *testing.T) {
	f := setupAPI(t)
	f.addBook(t, "Clean Code", "Robert Martin", 2008, []string{"refactoring"})
	f.addBook(t, "Agile Software Development", "Robert Martin", 2002, []string{"agile"})
	f.addBook(t, "Refactoring", "Martin Fowler", 1999, []string{"refactoring"})

	data := f.exec(t, context.Background(), `{ allAuthors { name bookCount born } }`, nil)

	counts := map[string]float64{}
	for _, a := range data["allAuthors"].([]any) {
		author := a.(map[string]any)
		counts[author["name"].(string)] = author["bookCount"].(float64)
		assert.Nil(t, author["born"])
	}
	assert.Equal(t, map[string]float64{"Robert Martin": 2, "Martin Fowler": 1}, counts)
}

func TestQueryAllGenres(t *testing.T) {
	f := setupAPI(t)
	f.addBook(t, "Refactoring", "Martin Fowler", 1999, []string{"refactoring", "design"})

	data := f.exec(t, context.Background(), `{ allGenres }`, nil)

	genres := data["allGenres"].([]any)
	require.NotEmpty(t, genres)
	assert.Equal(t, service.AllGenresSentinel, genres[len(genres)-1])
}

func TestQueryMe(t *testing.T) {
	f := setupAPI(t)

	data := f.exec(t, context.Background(), `{ me { username } }`, nil)
	assert.Nil(t, data["me"])

	data = f.exec(t, f.authedCtx(t), `{ me { username favoriteGenre } }`, nil)
	me := data["me"].(map[string]any)
	assert.Equal(t, "librarian", me["username"])
	assert.Equal(t, "classic", me["favoriteGenre"])
}

func TestMutationAddBook(t *testing.T) {
	f := setupAPI(t)

	data := f.exec(t, f.authedCtx(t), `
		mutation {
			addBook(title: "Demons", author: "Fyodor Dostoevsky", published: 1872, genres: ["classic"]) {
				title
				published
				author { name bookCount }
				id
			}
		}`, nil)

	book := data["addBook"].(map[string]any)
	assert.Equal(t, "Demons", book["title"])
	assert.EqualValues(t, 1872, book["published"])
	assert.Equal(t, "Fyodor Dostoevsky", book["author"].(map[string]any)["name"])
	assert.EqualValues(t, 1, book["author"].(map[string]any)["bookCount"])
	assert.NotEmpty(t, book["id"])
}

func TestMutationAddBook_Unauthenticated(t *testing.T) {
	f := setupAPI(t)

	resp := f.schema.Exec(context.Background(), `
		mutation {
			addBook(title: "Demons", author: "Fyodor Dostoevsky", published: 1872, genres: ["classic"]) { title }
		}`, "", nil)

	require.Len(t, resp.Errors, 1)
	require.NotNil(t, resp.Errors[0].Extensions)
	assert.Equal(t, "NOT_AUTHENTICATED", resp.Errors[0].Extensions["code"])
}

func TestMutationAddBook_DuplicateTitle(t *testing.T) {
	f := setupAPI(t)
	f.addBook(t, "Demons", "Fyodor Dostoevsky", 1872, []string{"classic"})

	resp := f.schema.Exec(f.authedCtx(t), `
		mutation {
			addBook(title: "Demons", author: "Fyodor Dostoevsky", published: 1872, genres: ["classic"]) { title }
		}`, "", nil)

	require.Len(t, resp.Errors, 1)
	require.NotNil(t, resp.Errors[0].Extensions)
	assert.Equal(t, "BAD_USER_INPUT", resp.Errors[0].Extensions["code"])
}

func TestMutationEditAuthor(t *testing.T) {
	f := setupAPI(t)
	f.addBook(t, "Demons", "Fyodor Dostoevsky", 1872, []string{"classic"})

	data := f.exec(t, f.authedCtx(t), `
		mutation {
			editAuthor(name: "Fyodor Dostoevsky", setBornTo: 1821) { name born }
		}`, nil)

	author := data["editAuthor"].(map[string]any)
	assert.Equal(t, "Fyodor Dostoevsky", author["name"])
	assert.EqualValues(t, 1821, author["born"])
}

func TestMutationEditAuthor_UnknownIsNull(t *testing.T) {
	f := setupAPI(t)

	data := f.exec(t, f.authedCtx(t), `
		mutation { editAuthor(name: "Nobody", setBornTo: 1900) { name } }`, nil)
	assert.Nil(t, data["editAuthor"])
}

func TestMutationCreateUserAndLogin(t *testing.T) {
	f := setupAPI(t)

	data := f.exec(t, context.Background(), `
		mutation {
			createUser(username: "reader", favoriteGenre: "fantasy") { username favoriteGenre }
		}`, nil)
	user := data["createUser"].(map[string]any)
	assert.Equal(t, "reader", user["username"])
	assert.Equal(t, "fantasy", user["favoriteGenre"])

	data = f.exec(t, context.Background(), `
		mutation { login(username: "reader", password: "secret") { value } }`, nil)
	token := data["login"].(map[string]any)["value"].(string)
	require.NotEmpty(t, token)

	resolved, err := f.auth.ResolveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "reader", resolved.Username)
}

func TestMutationLogin_WrongPassword(t *testing.T) {
	f := setupAPI(t)
	f.exec(t, context.Background(), `
		mutation { createUser(username: "reader", favoriteGenre: "fantasy") { username } }`, nil)

	resp := f.schema.Exec(context.Background(), `
		mutation { login(username: "reader", password: "hunter2") { value } }`, "", nil)

	require.Len(t, resp.Errors, 1)
	require.NotNil(t, resp.Errors[0].Extensions)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Errors[0].Extensions["code"])
}

func TestSubscriptionBookAdded(t *testing.T) {
	f := setupAPI(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := f.schema.Subscribe(ctx, `
		subscription { bookAdded { title author { name } } }`, "", nil)
	require.NoError(t, err)

	// The subscription resolver runs asynchronously; wait for it to attach
	// before publishing so the event is not dropped.
	require.Eventually(t, func() bool {
		return f.bus.SubscriberCount() > 0
	}, time.Second, 5*time.Millisecond)

	f.addBook(t, "Demons", "Fyodor Dostoevsky", 1872, []string{"classic"})

	payload := <-stream
	resp, ok := payload.(*gographql.Response)
	require.True(t, ok)
	require.Empty(t, resp.Errors)

	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	book := data["bookAdded"].(map[string]any)
	assert.Equal(t, "Demons", book["title"])
	assert.Equal(t, "Fyodor Dostoevsky", book["author"].(map[string]any)["name"])
}

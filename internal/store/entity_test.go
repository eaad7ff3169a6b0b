package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librisapp/libris-server/internal/store"
)

type testEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newTestEntity(s *store.Store) *store.Entity[testEntity] {
	return store.NewEntity[testEntity](s, "test:").
		WithUniqueIndex("name", func(e *testEntity) string { return e.Name })
}

func TestEntity_CreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	err := entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"})
	require.NoError(t, err)

	got, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)
}

func TestEntity_Create_DuplicateID(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	require.NoError(t, entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"}))

	err := entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "beta"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_Create_UniqueIndexConflict(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	require.NoError(t, entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"}))

	err := entity.Create(context.Background(), "2", &testEntity{ID: "2", Name: "alpha"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_Get_NotFound(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	_, err := entity.Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_GetByIndex(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	require.NoError(t, entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"}))

	got, err := entity.GetByIndex(context.Background(), "name", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	_, err = entity.GetByIndex(context.Background(), "name", "beta")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Update_MovesIndex(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	require.NoError(t, entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"}))

	err := entity.Update(context.Background(), "1", &testEntity{ID: "1", Name: "gamma"})
	require.NoError(t, err)

	// The old index entry is gone, the new one resolves.
	_, err = entity.GetByIndex(context.Background(), "name", "alpha")
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := entity.GetByIndex(context.Background(), "name", "gamma")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	// The freed value is reusable by another record.
	require.NoError(t, entity.Create(context.Background(), "2", &testEntity{ID: "2", Name: "alpha"}))
}

func TestEntity_Update_KeepsOwnIndexValue(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	require.NoError(t, entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"}))

	// Updating without changing the indexed value must not conflict with itself.
	require.NoError(t, entity.Update(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"}))
}

func TestEntity_Update_IndexConflict(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	require.NoError(t, entity.Create(context.Background(), "1", &testEntity{ID: "1", Name: "alpha"}))
	require.NoError(t, entity.Create(context.Background(), "2", &testEntity{ID: "2", Name: "beta"}))

	err := entity.Update(context.Background(), "2", &testEntity{ID: "2", Name: "alpha"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_Update_NotFound(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	err := entity.Update(context.Background(), "missing", &testEntity{ID: "missing", Name: "alpha"})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_FindOrCreate(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	built := 0
	build := func() (string, *testEntity, error) {
		built++
		return "1", &testEntity{ID: "1", Name: "alpha"}, nil
	}

	got, created, err := entity.FindOrCreate(context.Background(), "name", "alpha", build)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "1", got.ID)

	// Second call finds the existing record and never invokes build.
	got, created, err = entity.FindOrCreate(context.Background(), "name", "alpha", build)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "1", got.ID)
	assert.Equal(t, 1, built)
}

func TestEntity_Count(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	count, err := entity.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for i := range 5 {
		id := fmt.Sprintf("%d", i)
		require.NoError(t, entity.Create(context.Background(), id, &testEntity{ID: id, Name: "name-" + id}))
	}

	// Index keys share the prefix but must not be counted.
	count, err = entity.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestEntity_ListAll(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	for i := range 3 {
		id := fmt.Sprintf("%d", i)
		require.NoError(t, entity.Create(context.Background(), id, &testEntity{ID: id, Name: "name-" + id}))
	}

	all, err := entity.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	names := make(map[string]bool)
	for _, e := range all {
		names[e.Name] = true
	}
	assert.True(t, names["name-0"] && names["name-1"] && names["name-2"])
}

func TestEntity_List_StopsEarly(t *testing.T) {
	s := setupTestStore(t)
	entity := newTestEntity(s)

	for i := range 3 {
		id := fmt.Sprintf("%d", i)
		require.NoError(t, entity.Create(context.Background(), id, &testEntity{ID: id, Name: "name-" + id}))
	}

	seen := 0
	for _, err := range entity.List(context.Background()) {
		require.NoError(t, err)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

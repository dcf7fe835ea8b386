package docstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertMany(ctx, "animals", []domain.Document{
		{"_id": "a1", "name": "goat"},
		{"name": "sheep"},
	}))

	docs, err := s.Find(ctx, "animals")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "goat", docs[0]["name"])
	assert.NotEmpty(t, docs[1]["_id"], "missing _id should be generated")

	// returned documents are copies
	docs[0]["name"] = "changed"
	again, _ := s.Find(ctx, "animals")
	assert.Equal(t, "goat", again[0]["name"])
}

func TestMemoryStore_DuplicateKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertMany(ctx, "c", []domain.Document{{"_id": 1}}))

	err := s.InsertMany(ctx, "c", []domain.Document{{"_id": 2}, {"_id": 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	docs, _ := s.Find(ctx, "c")
	assert.Len(t, docs, 2, "documents before the duplicate stay written")
}

func TestMemoryStore_ReplaceOrInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertMany(ctx, "c", []domain.Document{{"_id": "x", "v": 1}}))

	require.NoError(t, s.ReplaceOrInsert(ctx, "c", "x", domain.Document{"_id": "x", "v": 2}))
	require.NoError(t, s.ReplaceOrInsert(ctx, "c", "y", domain.Document{"v": 3}))

	docs, _ := s.Find(ctx, "c")
	require.Len(t, docs, 2)
	assert.Equal(t, 2, docs[0]["v"])
	assert.Equal(t, "y", docs[1]["_id"])
}

func TestMemoryStore_IDKeyMatchesNumberForms(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertMany(ctx, "c", []domain.Document{{"_id": json.Number("7")}}))

	require.NoError(t, s.ReplaceOrInsert(ctx, "c", 7, domain.Document{"v": "new"}))
	docs, _ := s.Find(ctx, "c")
	assert.Len(t, docs, 1)
}

func TestMemoryStore_CollectionsAndIndexes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateCollection(ctx, "b"))
	require.Error(t, s.CreateCollection(ctx, "b"))
	require.NoError(t, s.InsertMany(ctx, "a", []domain.Document{{"_id": 1}}))

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	idx := domain.IndexDescriptor{Name: "tag_1", Keys: []domain.IndexKey{{Field: "tag", Value: 1}}, Unique: true}
	require.NoError(t, s.CreateIndex(ctx, "a", idx))
	indexes, err := s.ListIndexes(ctx, "a")
	require.NoError(t, err)
	require.Len(t, indexes, 2)
	assert.True(t, indexes[0].IsPrimary())
	assert.Equal(t, "tag_1", indexes[1].Name)

	require.NoError(t, s.Drop(ctx, "a"))
	require.NoError(t, s.Drop(ctx, "missing"))
	names, _ = s.ListCollections(ctx)
	assert.Equal(t, []string{"b"}, names)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(context.Background(), &Config{Type: TypeMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = NewStore(context.Background(), &Config{Type: "cassandra"}, nil)
	assert.Error(t, err)
}

package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/pkg/errors"
)

// ErrDuplicateKey is returned when an insert collides with an existing _id
var ErrDuplicateKey = errors.New("duplicate key error")

// ErrCollectionExists is returned by CreateCollection for an existing collection
var ErrCollectionExists = errors.New("collection already exists")

type memCollection struct {
	docs    []domain.Document
	byID    map[string]int
	indexes []domain.IndexDescriptor
}

func newMemCollection() *memCollection {
	return &memCollection{
		byID: make(map[string]int),
		indexes: []domain.IndexDescriptor{{
			Name: domain.PrimaryIndexName,
			Keys: []domain.IndexKey{{Field: domain.IDField, Value: int32(1)}},
		}},
	}
}

// MemoryStore is an in-process document store with the same insert and
// upsert rules as a mongodb collection
// MemoryStore 进程内文档存储，插入与替换规则与 mongodb 集合一致
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

var _ domain.DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore 创建内存文档存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (m *MemoryStore) Find(_ context.Context, collection string) ([]domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return []domain.Document{}, nil
	}
	out := make([]domain.Document, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, copyDocument(d))
	}
	return out, nil
}

// InsertMany inserts docs in order, documents without _id get a generated one.
// A duplicate _id stops the insert, earlier documents stay written.
func (m *MemoryStore) InsertMany(_ context.Context, collection string, docs []domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	for i, d := range docs {
		doc := copyDocument(d)
		id, ok := domain.DocumentID(doc)
		if !ok {
			id = uuid.NewString()
			doc[domain.IDField] = id
		}
		key := domain.IDKey(id)
		if _, exists := c.byID[key]; exists {
			return errors.Wrapf(ErrDuplicateKey, "collection %s index %d _id %v", collection, i, id)
		}
		c.byID[key] = len(c.docs)
		c.docs = append(c.docs, doc)
	}
	return nil
}

func (m *MemoryStore) ReplaceOrInsert(_ context.Context, collection string, id any, doc domain.Document) error {
	if id == nil {
		return errors.New("replace requires an _id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	d := copyDocument(doc)
	d[domain.IDField] = id
	key := domain.IDKey(id)
	if pos, ok := c.byID[key]; ok {
		c.docs[pos] = d
		return nil
	}
	c.byID[key] = len(c.docs)
	c.docs = append(c.docs, d)
	return nil
}

func (m *MemoryStore) Drop(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
	return nil
}

func (m *MemoryStore) CreateCollection(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; ok {
		return errors.Wrap(ErrCollectionExists, collection)
	}
	m.collections[collection] = newMemCollection()
	return nil
}

func (m *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) ListIndexes(_ context.Context, collection string) ([]domain.IndexDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return []domain.IndexDescriptor{}, nil
	}
	out := make([]domain.IndexDescriptor, len(c.indexes))
	copy(out, c.indexes)
	return out, nil
}

func (m *MemoryStore) CreateIndex(_ context.Context, collection string, index domain.IndexDescriptor) error {
	if len(index.Keys) == 0 {
		return errors.New("index key specification is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collection(collection)
	for i, existing := range c.indexes {
		if existing.Name == index.Name {
			c.indexes[i] = index
			return nil
		}
	}
	c.indexes = append(c.indexes, index)
	return nil
}

func (m *MemoryStore) Close(context.Context) error {
	return nil
}

// collection returns the named collection, creating it like an implicit mongodb insert
func (m *MemoryStore) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = newMemCollection()
		m.collections[name] = c
	}
	return c
}

func copyDocument(d domain.Document) domain.Document {
	out := make(domain.Document, len(d))
	for k, v := range d {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	}
	return v
}

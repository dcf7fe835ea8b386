package docstore

import (
	"context"
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/pkg/logger"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// extJSON keeps numbers as json.Number so integer and double types survive the round trip
var extJSON = sonic.Config{UseNumber: true, SortMapKeys: true}.Froze()

// MongoStore adapts a mongodb database to domain.DocumentStore.
// Documents cross the boundary as relaxed extended JSON, so ObjectIDs and dates
// are kept as {"$oid": ...} and {"$date": ...} objects inside an artifact.
// MongoStore 把 mongodb 数据库适配为 domain.DocumentStore
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ domain.DocumentStore = (*MongoStore)(nil)

// indexSpec is the shape returned by listIndexes
type indexSpec struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             bool   `bson:"unique,omitempty"`
	Sparse             bool   `bson:"sparse,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

// NewMongoStore connects to cfg.URI and pings the server
// NewMongoStore 连接 mongodb 并检测连通性
func NewMongoStore(ctx context.Context, cfg *Config, log *zap.Logger) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb connect")
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "mongodb ping")
	}

	log.Info("document store connected", zap.String("database", cfg.Database))
	return &MongoStore{
		client: client,
		db:     client.Database(cfg.Database),
		logger: log,
	}, nil
}

func (m *MongoStore) Find(ctx context.Context, collection string) ([]domain.Document, error) {
	cur, err := m.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", collection)
	}
	var raw []bson.D
	if err := cur.All(ctx, &raw); err != nil {
		return nil, errors.Wrapf(err, "decode %s", collection)
	}

	docs := make([]domain.Document, 0, len(raw))
	for _, d := range raw {
		doc, err := toDocument(d)
		if err != nil {
			return nil, errors.Wrapf(err, "convert %s document", collection)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MongoStore) InsertMany(ctx context.Context, collection string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]bson.D, 0, len(docs))
	for _, doc := range docs {
		d, err := toBSON(doc)
		if err != nil {
			return errors.Wrapf(err, "convert %s document", collection)
		}
		batch = append(batch, d)
	}
	if _, err := m.db.Collection(collection).InsertMany(ctx, batch); err != nil {
		return errors.Wrapf(err, "insert into %s", collection)
	}
	return nil
}

func (m *MongoStore) ReplaceOrInsert(ctx context.Context, collection string, id any, doc domain.Document) error {
	d, err := toBSON(doc)
	if err != nil {
		return errors.Wrapf(err, "convert %s document", collection)
	}
	key, err := toBSON(domain.Document{domain.IDField: id})
	if err != nil {
		return errors.Wrapf(err, "convert %s _id", collection)
	}

	_, err = m.db.Collection(collection).ReplaceOne(ctx, key, d, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "upsert into %s", collection)
	}
	return nil
}

func (m *MongoStore) Drop(ctx context.Context, collection string) error {
	if err := m.db.Collection(collection).Drop(ctx); err != nil {
		return errors.Wrapf(err, "drop %s", collection)
	}
	return nil
}

func (m *MongoStore) CreateCollection(ctx context.Context, collection string) error {
	if err := m.db.CreateCollection(ctx, collection); err != nil {
		return errors.Wrapf(err, "create collection %s", collection)
	}
	return nil
}

func (m *MongoStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, errors.Wrap(err, "list collections")
	}
	return names, nil
}

func (m *MongoStore) ListIndexes(ctx context.Context, collection string) ([]domain.IndexDescriptor, error) {
	cur, err := m.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "list indexes of %s", collection)
	}
	var specs []indexSpec
	if err := cur.All(ctx, &specs); err != nil {
		return nil, errors.Wrapf(err, "decode indexes of %s", collection)
	}

	out := make([]domain.IndexDescriptor, 0, len(specs))
	for _, s := range specs {
		desc := domain.IndexDescriptor{
			Name:               s.Name,
			Unique:             s.Unique,
			Sparse:             s.Sparse,
			ExpireAfterSeconds: s.ExpireAfterSeconds,
		}
		for _, e := range s.Key {
			desc.Keys = append(desc.Keys, domain.IndexKey{Field: e.Key, Value: e.Value})
		}
		out = append(out, desc)
	}
	return out, nil
}

func (m *MongoStore) CreateIndex(ctx context.Context, collection string, index domain.IndexDescriptor) error {
	keys := make(bson.D, 0, len(index.Keys))
	for _, k := range index.Keys {
		keys = append(keys, bson.E{Key: k.Field, Value: indexKeyValue(k.Value)})
	}

	opts := options.Index()
	if index.Name != "" {
		opts.SetName(index.Name)
	}
	if index.Unique {
		opts.SetUnique(true)
	}
	if index.Sparse {
		opts.SetSparse(true)
	}
	if index.ExpireAfterSeconds != nil {
		opts.SetExpireAfterSeconds(*index.ExpireAfterSeconds)
	}

	_, err := m.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		return errors.Wrapf(err, "create index %s on %s", index.Name, collection)
	}
	m.logger.Debug("index created", zap.String(logger.FieldCollection, collection), zap.String("index", index.Name))
	return nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func toDocument(d bson.D) (domain.Document, error) {
	b, err := bson.MarshalExtJSON(d, false, false)
	if err != nil {
		return nil, err
	}
	var doc domain.Document
	if err := extJSON.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func toBSON(doc domain.Document) (bson.D, error) {
	b, err := extJSON.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(b, false, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// indexKeyValue normalizes numeric key directions read back from an artifact
func indexKeyValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int32(i)
		}
		if f, err := t.Float64(); err == nil {
			return int32(f)
		}
		return t.String()
	case float64:
		return int32(t)
	case int:
		return int32(t)
	case int64:
		return int32(t)
	}
	return v
}

package docstore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestExtJSONConversion(t *testing.T) {
	oid := bson.NewObjectID()
	when := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	src := bson.D{
		{Key: "_id", Value: oid},
		{Key: "count", Value: int32(3)},
		{Key: "weight", Value: 12.5},
		{Key: "born", Value: when},
		{Key: "tags", Value: bson.A{"a", "b"}},
	}

	doc, err := toDocument(src)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$oid": oid.Hex()}, doc["_id"])
	assert.Equal(t, json.Number("3"), doc["count"])

	back, err := toBSON(doc)
	require.NoError(t, err)

	m := map[string]any{}
	for _, e := range back {
		m[e.Key] = e.Value
	}
	assert.Equal(t, oid, m["_id"])
	assert.Equal(t, int32(3), m["count"])
	assert.Equal(t, 12.5, m["weight"])
	assert.Equal(t, bson.NewDateTimeFromTime(when), m["born"])
}

func TestIndexKeyValue(t *testing.T) {
	assert.Equal(t, int32(1), indexKeyValue(json.Number("1")))
	assert.Equal(t, int32(-1), indexKeyValue(float64(-1)))
	assert.Equal(t, "text", indexKeyValue("text"))
	assert.Equal(t, "2dsphere", indexKeyValue(json.Number("2dsphere")))
}

func TestIndexDescriptorPrimary(t *testing.T) {
	assert.True(t, domain.IndexDescriptor{Name: "_id_"}.IsPrimary())
	assert.False(t, domain.IndexDescriptor{Name: "tag_1", Keys: []domain.IndexKey{{Field: "tag", Value: 1}}}.IsPrimary())
}

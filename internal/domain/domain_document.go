package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// IDField is the identity field used by merge and skip restores
const IDField = "_id"

// PrimaryIndexName is the implicit primary key index, never recreated on restore
const PrimaryIndexName = "_id_"

// Document is one opaque record of the document store
// Document 文档存储中的一条记录
type Document = map[string]any

// IndexKey is one field of an index key specification, order matters
// IndexKey 索引键中的一个字段，顺序有意义
type IndexKey struct {
	Field string `json:"field"`
	// Value is 1, -1 or a special index type such as "text"
	Value any `json:"value"`
}

// IndexDescriptor 索引描述
type IndexDescriptor struct {
	Name               string     `json:"name"`
	Keys               []IndexKey `json:"keys"`
	Unique             bool       `json:"unique,omitempty"`
	Sparse             bool       `json:"sparse,omitempty"`
	ExpireAfterSeconds *int32     `json:"expireAfterSeconds,omitempty"`
}

// IsPrimary reports whether the descriptor is the implicit _id index
func (d IndexDescriptor) IsPrimary() bool {
	if d.Name == PrimaryIndexName {
		return true
	}
	return len(d.Keys) == 1 && d.Keys[0].Field == IDField
}

// DocumentID returns the identity value of doc and whether it has one
// DocumentID 返回文档的身份字段值
func DocumentID(doc Document) (any, bool) {
	id, ok := doc[IDField]
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}

// IDKey renders an identity value as a comparable map key prefixed with its type,
// so _id 1 and _id "1" stay distinct. Every numeric kind shares the "number" tag.
// IDKey 把身份字段值转换为带类型前缀的可比较键，所有数值类型共用 number 前缀
func IDKey(id any) string {
	switch v := id.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return "number:" + strconv.FormatInt(i, 10)
		}
		if f, err := v.Float64(); err == nil {
			return "number:" + strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "number:" + v.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number:" + fmt.Sprint(v)
	case float32:
		return "number:" + strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return "number:" + strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprintf("%T:%v", id, id)
}

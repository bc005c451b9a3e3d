// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package fory

import (
	"reflect"
	"sort"

	"github.com/apache/fory-go/fory/meta"
	"github.com/spaolacci/murmur3"
)

// fieldNameEncoder/fieldNameDecoder pack a TypeMeta's type name and field
// names the same way the type resolver packs namespace/type-name strings:
// both are plain Go identifiers, so one special-character slot pair covers
// the alphabet LOWER_UPPER_DIGIT_SPECIAL doesn't already reach.
var (
	fieldNameEncoder = meta.NewEncoder('_', '_')
	fieldNameDecoder = meta.NewDecoder('_', '_')
)

// peerFieldMeta is one field entry as read off the wire: a compatible-mode
// peer's declared name, wire type id, and nullability for that field, §4.F.
type peerFieldMeta struct {
	Name     string
	TypeID   TypeId
	Nullable bool
}

// peerTypeMeta is a decoded TypeMeta: the schema a compatible-mode writer
// actually used, which may differ from our own in field set or order.
type peerTypeMeta struct {
	TypeName string
	Fields   []peerFieldMeta
}

// encodeTypeMeta writes tm's type name and per-field (name, type id,
// nullable) triples, §4.F. Field values themselves are written separately,
// by the caller, in the same canonical order as tm.Fields.
func encodeTypeMeta(ctx *WriteContext, tm *TypeMeta) error {
	nameStr, err := fieldNameEncoder.Encode(tm.TypeName)
	if err != nil {
		return FromError(err)
	}
	nameBytes := ctx.MetaStrings().GetMetaStrBytes(&nameStr)
	if err := ctx.MetaStrings().WriteMetaStringBytes(ctx.buf, nameBytes); err != nil {
		return err
	}
	ctx.buf.WriteVarUint32(uint32(len(tm.Fields)))
	for _, f := range tm.Fields {
		fieldStr, err := fieldNameEncoder.Encode(f.FieldName)
		if err != nil {
			return FromError(err)
		}
		fieldBytes := ctx.MetaStrings().GetMetaStrBytes(&fieldStr)
		if err := ctx.MetaStrings().WriteMetaStringBytes(ctx.buf, fieldBytes); err != nil {
			return err
		}
		ctx.buf.WriteVarUint32Small7(uint32(f.FieldType.TypeID))
		ctx.buf.WriteBool(f.FieldType.Nullable)
	}
	return nil
}

// decodeTypeMeta reads back what encodeTypeMeta wrote.
func decodeTypeMeta(ctx *ReadContext) (*peerTypeMeta, error) {
	nameBytes, err := ctx.MetaStrings().ReadMetaStringBytes(ctx.buf)
	if err != nil {
		return nil, err
	}
	typeName, err := fieldNameDecoder.Decode(nameBytes.Data, nameBytes.Encoding, nameBytes.Length)
	if err != nil {
		return nil, FromError(err)
	}
	n := int(ctx.buf.ReadVarUint32())
	fields := make([]peerFieldMeta, n)
	for i := 0; i < n; i++ {
		fb, err := ctx.MetaStrings().ReadMetaStringBytes(ctx.buf)
		if err != nil {
			return nil, err
		}
		name, err := fieldNameDecoder.Decode(fb.Data, fb.Encoding, fb.Length)
		if err != nil {
			return nil, FromError(err)
		}
		typeID := TypeId(ctx.buf.ReadVarUint32Small7())
		nullable := ctx.buf.ReadBool()
		fields[i] = peerFieldMeta{Name: name, TypeID: typeID, Nullable: nullable}
	}
	return &peerTypeMeta{TypeName: typeName, Fields: fields}, nil
}

// FieldInfo describes one struct field's wire identity and declared type,
// §3's schema descriptor entry.
type FieldInfo struct {
	FieldID   int32
	FieldName string
	FieldType FieldType
	index     []int // reflect.Type.FieldByIndex path
}

// TypeMeta is the schema descriptor exchanged for COMPATIBLE_STRUCT /
// NAMED_COMPATIBLE_STRUCT types, §4.F: a canonically-ordered field list plus
// a schema hash computed over it. encodeTypeMeta writes the full field list
// on every compatible write; the hash is kept locally and not written.
type TypeMeta struct {
	TypeName   string
	Fields     []FieldInfo
	SchemaHash int32
}

// typeIdSortGroup buckets a TypeId into a coarse kind group; canonical field
// order sorts by group first, then by field name, so that widening a field's
// declared width (e.g. int32 -> int64) does not reorder the schema.
func typeIdSortGroup(id TypeId) int {
	switch {
	case id == BOOL:
		return 0
	case id >= INT8 && id <= TAGGED_UINT64:
		return 1
	case id >= FLOAT8 && id <= FLOAT64:
		return 2
	case id == STRING:
		return 3
	case id == LIST || id == SET:
		return 4
	case id == MAP:
		return 5
	case id == STRUCT || id == COMPATIBLE_STRUCT || id == NAMED_STRUCT || id == NAMED_COMPATIBLE_STRUCT:
		return 6
	default:
		return 7
	}
}

// buildTypeMeta reflects over type_'s exported fields and produces a
// canonically-ordered TypeMeta, §4.F.
func buildTypeMeta(type_ reflect.Type, r *TypeResolver) (*TypeMeta, error) {
	var fields []FieldInfo
	if err := collectFields(type_, nil, r, &fields); err != nil {
		return nil, err
	}
	sort.Slice(fields, func(i, j int) bool {
		gi, gj := typeIdSortGroup(fields[i].FieldType.TypeID), typeIdSortGroup(fields[j].FieldType.TypeID)
		if gi != gj {
			return gi < gj
		}
		return fields[i].FieldName < fields[j].FieldName
	})
	tm := &TypeMeta{TypeName: type_.Name(), Fields: fields}
	tm.SchemaHash = computeSchemaHash(tm)
	return tm, nil
}

func collectFields(type_ reflect.Type, prefix []int, r *TypeResolver, out *[]FieldInfo) error {
	for i := 0; i < type_.NumField(); i++ {
		f := type_.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		index := append(append([]int{}, prefix...), i)
		ft, err := fieldTypeOf(f.Type, r)
		if err != nil {
			return err
		}
		*out = append(*out, FieldInfo{FieldName: f.Name, FieldType: ft, index: index})
	}
	return nil
}

func fieldTypeOf(t reflect.Type, r *TypeResolver) (FieldType, error) {
	nullable := false
	trackRef := false
	for t.Kind() == reflect.Ptr {
		nullable = true
		trackRef = true
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return FieldType{TypeID: BOOL}, nil
	case reflect.Int8:
		return FieldType{TypeID: INT8}, nil
	case reflect.Int16:
		return FieldType{TypeID: INT16}, nil
	case reflect.Int32:
		return FieldType{TypeID: VAR_INT32}, nil
	case reflect.Int, reflect.Int64:
		return FieldType{TypeID: VAR_INT64}, nil
	case reflect.Uint8:
		return FieldType{TypeID: UINT8}, nil
	case reflect.Uint16:
		return FieldType{TypeID: UINT16}, nil
	case reflect.Uint32:
		return FieldType{TypeID: VAR_UINT32}, nil
	case reflect.Uint, reflect.Uint64:
		return FieldType{TypeID: VAR_UINT64}, nil
	case reflect.Float32:
		return FieldType{TypeID: FLOAT32}, nil
	case reflect.Float64:
		return FieldType{TypeID: FLOAT64}, nil
	case reflect.String:
		return FieldType{TypeID: STRING, Nullable: nullable}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return FieldType{TypeID: BINARY, Nullable: true, TrackRef: true}, nil
		}
		elem, err := fieldTypeOf(t.Elem(), r)
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{TypeID: LIST, Nullable: true, TrackRef: true, Generics: []FieldType{elem}}, nil
	case reflect.Map:
		key, err := fieldTypeOf(t.Key(), r)
		if err != nil {
			return FieldType{}, err
		}
		val, err := fieldTypeOf(t.Elem(), r)
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{TypeID: MAP, Nullable: true, TrackRef: true, Generics: []FieldType{key, val}}, nil
	case reflect.Struct:
		if t == reflect.TypeOf(Date{}) {
			return FieldType{TypeID: DATE}, nil
		}
		if t == reflect.TypeOf(timeType) {
			return FieldType{TypeID: TIMESTAMP}, nil
		}
		return FieldType{TypeID: NAMED_STRUCT, Nullable: nullable, TrackRef: true}, nil
	case reflect.Interface:
		return FieldType{TypeID: UNKNOWN, Nullable: true, TrackRef: true}, nil
	default:
		return FieldType{TypeID: UNKNOWN, Nullable: nullable, TrackRef: trackRef}, nil
	}
}

// computeSchemaHash hashes the canonical (name, type id) sequence so two
// peers that agree on field order agree on the hash without exchanging
// descriptors, §9 (fixed to murmur3 for this implementation).
func computeSchemaHash(tm *TypeMeta) int32 {
	h := murmur3.New32()
	for _, f := range tm.Fields {
		h.Write([]byte(f.FieldName))
		h.Write([]byte{byte(f.FieldType.TypeID), byte(f.FieldType.TypeID >> 8)})
	}
	return int32(h.Sum32())
}

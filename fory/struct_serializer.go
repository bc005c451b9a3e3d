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

import "reflect"

// structSerializer implements schema-consistent struct encoding, §4.I: both
// peers are assumed to share the exact same canonical field list, so no
// TypeMeta is exchanged and fields are written/read in that fixed order with
// no per-field name or id on the wire.
type structSerializer struct {
	type_  reflect.Type
	meta   *TypeMeta
	fields []fieldCodec
}

type fieldCodec struct {
	info       FieldInfo
	serializer Serializer
	refMode    RefMode
}

// newEmptyStructSerializer allocates a structSerializer with no fields yet.
// Callers must register it in the resolver's type tables before calling
// populateFields, so that a self-referential or mutually-recursive field
// type resolves back to this same instance instead of recursing forever
// trying to build a not-yet-registered type.
func newEmptyStructSerializer(type_ reflect.Type) *structSerializer {
	return &structSerializer{type_: type_}
}

// populateFields reflects over s.type_'s canonical field order and resolves
// each field's serializer, deferred until after s itself is registered.
func (s *structSerializer) populateFields(r *TypeResolver) error {
	meta, err := buildTypeMeta(s.type_, r)
	if err != nil {
		meta = &TypeMeta{TypeName: s.type_.Name()}
	}
	s.meta = meta
	s.fields = make([]fieldCodec, 0, len(meta.Fields))
	for _, f := range meta.Fields {
		declared := s.type_.FieldByIndex(f.index).Type
		fieldType := declared
		for fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}
		ser, err := r.getSerializerByType(fieldType, true)
		refMode := RefModeNullOnly
		if err != nil {
			ser = nil
			refMode = RefModeTracking
		} else if isRefTrackedKind(declared.Kind()) {
			refMode = RefModeTracking
		}
		s.fields = append(s.fields, fieldCodec{info: f, serializer: ser, refMode: refMode})
	}
	return nil
}

func isRefTrackedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	default:
		return false
	}
}

func (s *structSerializer) TypeId() TypeId { return NAMED_STRUCT }

func (s *structSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}

func (s *structSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	for _, fc := range s.fields {
		fv := value.FieldByIndex(fc.info.index)
		if fc.serializer == nil {
			writeDynamicValue(ctx, fv)
			if ctx.HasError() {
				return
			}
			continue
		}
		fc.serializer.Write(ctx, fc.refMode, false, fv)
	}
}

func (s *structSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, resolved, refID, hasID := readRefHeader(ctx, refMode, readType)
	if skip {
		if value.IsValid() && value.CanSet() && resolved.IsValid() {
			value.Set(resolved)
		}
		return
	}
	if hasID {
		ctx.refs.SetReadObject(refID, value)
	}
	s.ReadData(ctx, s.type_, value)
}

func (s *structSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	target := value
	if target.Kind() == reflect.Ptr {
		if target.IsNil() && target.CanSet() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}
	for _, fc := range s.fields {
		fv := target.FieldByIndex(fc.info.index)
		if fc.serializer == nil {
			tmp := readDynamicValue(ctx)
			if ctx.HasError() {
				return
			}
			if tmp.IsValid() && fv.CanSet() {
				fv.Set(tmp)
			}
			continue
		}
		fc.serializer.Read(ctx, fc.refMode, false, fv)
	}
}

// compatibleStructSerializer implements §4.I's schema-evolution mode: a
// TypeMeta (type name plus each field's name/wire-type/nullable) is written
// ahead of the payload, and fields absent from the writer's schema, or
// present in it but not the reader's, are handled gracefully instead of
// desyncing the stream.
type compatibleStructSerializer struct {
	inner *structSerializer
}

func (c *compatibleStructSerializer) TypeId() TypeId { return NAMED_COMPATIBLE_STRUCT }

func (c *compatibleStructSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, c, refMode, writeType, value) {
		return
	}
	c.WriteData(ctx, value)
}

func (c *compatibleStructSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	if err := encodeTypeMeta(ctx, c.inner.meta); err != nil {
		ctx.SetError(FromError(err))
		return
	}
	c.inner.WriteData(ctx, value)
}

func (c *compatibleStructSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, resolved, refID, hasID := readRefHeader(ctx, refMode, readType)
	if skip {
		if value.IsValid() && value.CanSet() && resolved.IsValid() {
			value.Set(resolved)
		}
		return
	}
	if hasID {
		ctx.refs.SetReadObject(refID, value)
	}
	c.ReadData(ctx, c.inner.type_, value)
}

// ReadData reads the peer's actual TypeMeta and walks it field by field,
// matching each peer field to ours by name rather than assuming identical
// order or a hash match: a field present on both sides decodes normally
// (converting the peer's value with reflect.Value.Convert when the declared
// types differ, e.g. int32->int64 or int64->int32; a narrowing conversion
// truncates), a field only the peer has is skipped, and a field only we
// have keeps its zero value. This is what makes added/removed/reordered
// fields round-trip instead of desyncing the stream.
func (c *compatibleStructSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	peer, err := decodeTypeMeta(ctx)
	if err != nil {
		ctx.SetError(FromError(err))
		return
	}
	target := value
	if target.Kind() == reflect.Ptr {
		if target.IsNil() && target.CanSet() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}
	byName := make(map[string]fieldCodec, len(c.inner.fields))
	for _, fc := range c.inner.fields {
		byName[fc.info.FieldName] = fc
	}
	for _, pf := range peer.Fields {
		fc, ok := byName[pf.Name]
		if !ok {
			if _, err := decodeByTypeID(ctx, pf.TypeID); err != nil {
				ctx.SetError(FromError(err))
				return
			}
			continue
		}
		if fc.serializer == nil {
			tmp := readDynamicValue(ctx)
			if ctx.HasError() {
				return
			}
			fv := target.FieldByIndex(fc.info.index)
			if tmp.IsValid() && fv.CanSet() {
				fv.Set(tmp)
			}
			continue
		}
		fv := target.FieldByIndex(fc.info.index)
		if pf.TypeID == fc.info.FieldType.TypeID {
			fc.serializer.Read(ctx, fc.refMode, false, fv)
			if ctx.HasError() {
				return
			}
			continue
		}
		decoded, err := decodeByTypeID(ctx, pf.TypeID)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		if fv.CanSet() && decoded.Type().ConvertibleTo(fv.Type()) {
			fv.Set(decoded.Convert(fv.Type()))
		}
	}
}

// decodeByTypeID decodes one value whose wire type is id using the
// resolver's globally-registered serializer for that id. Only the built-in
// ids registered at startup (bool, the integer/float family, string,
// binary, date, timestamp) and user ids given to Register have an entry
// in idToInfo, so this is what lets
// ReadData widen or skip a field it doesn't have an exact type match for; a
// peer field declared as a composite id (LIST, MAP, a named struct) that we
// can't place has no such global decoder and fails here rather than risk
// silently desyncing the rest of the stream.
func decodeByTypeID(ctx *ReadContext, id TypeId) (reflect.Value, error) {
	info, ok := ctx.TypeResolver().idToInfo[id]
	if !ok {
		return reflect.Value{}, unregisteredTypeError("no scalar decoder registered for wire type id %d", id)
	}
	v := reflect.New(info.Type).Elem()
	info.Serializer.Read(ctx, RefModeNullOnly, false, v)
	if ctx.HasError() {
		return reflect.Value{}, ctx.Err()
	}
	return v, nil
}

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
	"fmt"
	"reflect"
)

// Union2 holds exactly one of two alternative types, Go's stand-in for a
// tagged union / sum type (Rust's two-variant enum, C++'s
// std::variant<T1, T2>, Python's typing.Union[T1, T2]).
//
// The fields are exported so the serializer can reach them by reflection;
// normal code should use NewUnion2A/NewUnion2B and Match/Index/First/Second.
type Union2[T1 any, T2 any] struct {
	V1  *T1
	V2  *T2
	Idx int
}

// NewUnion2A builds a Union2 holding its first alternative.
func NewUnion2A[T1 any, T2 any](t T1) Union2[T1, T2] {
	return Union2[T1, T2]{V1: &t, Idx: 1}
}

// NewUnion2B builds a Union2 holding its second alternative.
func NewUnion2B[T1 any, T2 any](t T2) Union2[T1, T2] {
	return Union2[T1, T2]{V2: &t, Idx: 2}
}

// Match dispatches to whichever alternative is active.
func (u Union2[T1, T2]) Match(case1 func(T1), case2 func(T2)) {
	switch u.Idx {
	case 1:
		case1(*u.V1)
	case 2:
		case2(*u.V2)
	default:
		panic("Union2 is uninitialized")
	}
}

// Index returns the 1-based index of the active alternative.
func (u Union2[T1, T2]) Index() int { return u.Idx }

// IsFirst reports whether the first alternative is active.
func (u Union2[T1, T2]) IsFirst() bool { return u.Idx == 1 }

// IsSecond reports whether the second alternative is active.
func (u Union2[T1, T2]) IsSecond() bool { return u.Idx == 2 }

// First returns the first alternative. Panics if it isn't active.
func (u Union2[T1, T2]) First() T1 {
	if u.Idx != 1 {
		panic("Union2: First() called but second alternative is active")
	}
	return *u.V1
}

// Second returns the second alternative. Panics if it isn't active.
func (u Union2[T1, T2]) Second() T2 {
	if u.Idx != 2 {
		panic("Union2: Second() called but first alternative is active")
	}
	return *u.V2
}

// Union3 holds one of three alternative types.
type Union3[T1 any, T2 any, T3 any] struct {
	V1  *T1
	V2  *T2
	V3  *T3
	Idx int
}

func NewUnion3A[T1 any, T2 any, T3 any](t T1) Union3[T1, T2, T3] {
	return Union3[T1, T2, T3]{V1: &t, Idx: 1}
}
func NewUnion3B[T1 any, T2 any, T3 any](t T2) Union3[T1, T2, T3] {
	return Union3[T1, T2, T3]{V2: &t, Idx: 2}
}
func NewUnion3C[T1 any, T2 any, T3 any](t T3) Union3[T1, T2, T3] {
	return Union3[T1, T2, T3]{V3: &t, Idx: 3}
}

func (u Union3[T1, T2, T3]) Match(f1 func(T1), f2 func(T2), f3 func(T3)) {
	switch u.Idx {
	case 1:
		f1(*u.V1)
	case 2:
		f2(*u.V2)
	case 3:
		f3(*u.V3)
	default:
		panic("Union3 is uninitialized")
	}
}

func (u Union3[T1, T2, T3]) Index() int { return u.Idx }

// Union4 holds one of four alternative types.
type Union4[T1 any, T2 any, T3 any, T4 any] struct {
	V1  *T1
	V2  *T2
	V3  *T3
	V4  *T4
	Idx int
}

func NewUnion4A[T1 any, T2 any, T3 any, T4 any](t T1) Union4[T1, T2, T3, T4] {
	return Union4[T1, T2, T3, T4]{V1: &t, Idx: 1}
}
func NewUnion4B[T1 any, T2 any, T3 any, T4 any](t T2) Union4[T1, T2, T3, T4] {
	return Union4[T1, T2, T3, T4]{V2: &t, Idx: 2}
}
func NewUnion4C[T1 any, T2 any, T3 any, T4 any](t T3) Union4[T1, T2, T3, T4] {
	return Union4[T1, T2, T3, T4]{V3: &t, Idx: 3}
}
func NewUnion4D[T1 any, T2 any, T3 any, T4 any](t T4) Union4[T1, T2, T3, T4] {
	return Union4[T1, T2, T3, T4]{V4: &t, Idx: 4}
}

func (u Union4[T1, T2, T3, T4]) Match(f1 func(T1), f2 func(T2), f3 func(T3), f4 func(T4)) {
	switch u.Idx {
	case 1:
		f1(*u.V1)
	case 2:
		f2(*u.V2)
	case 3:
		f3(*u.V3)
	case 4:
		f4(*u.V4)
	default:
		panic("Union4 is uninitialized")
	}
}

func (u Union4[T1, T2, T3, T4]) Index() int { return u.Idx }

// unionSerializer serializes the generic UnionN types: a varuint32 variant
// index, then (in cross-language mode) the active alternative's type info,
// then its payload.
type unionSerializer struct {
	type_            reflect.Type
	alternativeTypes []reflect.Type
}

func newUnionSerializer(type_ reflect.Type, alternativeTypes []reflect.Type) *unionSerializer {
	return &unionSerializer{type_: type_, alternativeTypes: alternativeTypes}
}

func (s *unionSerializer) TypeId() TypeId { return NAMED_UNION }

func (s *unionSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if value.Kind() == reflect.Ptr && value.IsNil() {
		ctx.buf.WriteInt8(NullFlag)
		return
	}
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	indexField := value.FieldByName("Idx")
	if !indexField.IsValid() || indexField.Int() == 0 {
		if refMode != RefModeNone {
			ctx.buf.WriteInt8(NullFlag)
		}
		return
	}
	switch refMode {
	case RefModeTracking:
		done, err := ctx.refs.WriteRefOrNull(ctx.buf, value)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		if done {
			return
		}
	case RefModeNullOnly:
		ctx.buf.WriteInt8(NotNullValueFlag)
	}
	if writeType {
		ctx.buf.WriteVarUint32Small7(uint32(NAMED_UNION))
	}
	s.WriteData(ctx, value)
}

func (s *unionSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	activeIndex := int(value.FieldByName("Idx").Int()) - 1
	if activeIndex < 0 || activeIndex >= len(s.alternativeTypes) {
		ctx.SetError(SerializationErrorf("union index out of bounds: %d", activeIndex+1))
		return
	}
	ctx.buf.WriteVarUint32(uint32(activeIndex))

	fieldName := fmt.Sprintf("V%d", activeIndex+1)
	valueField := value.FieldByName(fieldName)
	if !valueField.IsValid() || valueField.IsNil() {
		ctx.SetError(SerializationErrorf("union value field %s is nil", fieldName))
		return
	}
	innerValue := valueField.Elem()

	altType := s.alternativeTypes[activeIndex]
	serializer, err := ctx.TypeResolver().getSerializerByType(altType, false)
	if err != nil {
		ctx.SetError(FromError(fmt.Errorf("no serializer for union alternative type %v: %w", altType, err)))
		return
	}
	if ctx.TypeResolver().isXlang {
		typeInfo, err := ctx.TypeResolver().getTypeInfo(innerValue, true)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		if err := ctx.TypeResolver().WriteTypeInfo(ctx.buf, typeInfo, ctx.MetaStrings()); err != nil {
			ctx.SetError(FromError(err))
			return
		}
	}
	serializer.WriteData(ctx, innerValue)
}

func (s *unionSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	var refID uint32
	var hasID bool
	switch refMode {
	case RefModeTracking:
		flag, id, err := ctx.refs.TryPreserveRefId(ctx.buf)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		switch flag {
		case NullFlag:
			return
		case RefFlag:
			obj := ctx.refs.GetReadObject(id)
			if obj.IsValid() {
				if value.Kind() == reflect.Ptr {
					value.Elem().Set(obj)
				} else {
					value.Set(obj)
				}
			}
			return
		case RefValueFlag:
			refID, hasID = id, true
		}
	case RefModeNullOnly:
		if ctx.buf.ReadInt8() == NullFlag {
			return
		}
	}
	if readType {
		typeId := ctx.buf.ReadVarUint32Small7()
		if TypeId(typeId) != NAMED_UNION {
			ctx.SetError(DeserializationErrorf("expected NAMED_UNION type id %d, got %d", NAMED_UNION, typeId))
			return
		}
	}
	s.ReadData(ctx, s.type_, value)
	if hasID {
		ctx.refs.SetReadObject(refID, value)
	}
}

func (s *unionSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	storedIndex := int(ctx.buf.ReadVarUint32())
	if storedIndex < 0 || storedIndex >= len(s.alternativeTypes) {
		ctx.SetError(DeserializationErrorf("union index out of bounds: %d (max: %d)", storedIndex, len(s.alternativeTypes)-1))
		return
	}
	altType := s.alternativeTypes[storedIndex]
	serializer, err := ctx.TypeResolver().getSerializerByType(altType, false)
	if err != nil {
		ctx.SetError(FromError(fmt.Errorf("no serializer for union alternative type %v: %w", altType, err)))
		return
	}
	if ctx.TypeResolver().isXlang {
		if _, err := ctx.TypeResolver().ReadTypeInfo(ctx.buf, ctx.MetaStrings()); err != nil {
			ctx.SetError(FromError(err))
			return
		}
	}
	altValue := reflect.New(altType).Elem()
	serializer.ReadData(ctx, altType, altValue)
	if ctx.HasError() {
		return
	}

	target := value
	if target.Kind() == reflect.Ptr {
		if target.IsNil() {
			target.Set(reflect.New(target.Type().Elem()))
		}
		target = target.Elem()
	}
	target.FieldByName("Idx").SetInt(int64(storedIndex + 1))
	ptrValue := reflect.New(altType)
	ptrValue.Elem().Set(altValue)
	target.FieldByName(fmt.Sprintf("V%d", storedIndex+1)).Set(ptrValue)
}

// registerUnionSerializer registers unionType by name rather than by its
// (shared, non-discriminating) NAMED_UNION type id alone: every distinct
// instantiation of Union2/Union3/Union4 carries the same TypeId(), so only
// the namespace/name pair RegisterByName records lets getTypeInfo and
// ReadTypeInfo tell them apart at the top level or across a dynamic
// (interface-typed) field.
func registerUnionSerializer(f *Fory, unionType reflect.Type, alternativeTypes []reflect.Type) {
	serializer := newUnionSerializer(unionType, alternativeTypes)
	namespace, typeName := splitPkgPath(unionType)
	_ = f.typeResolver.RegisterByName(unionType, namespace, typeName, serializer)
	f.typeResolver.typeToSerializers[reflect.PtrTo(unionType)] = &ptrSerializer{elem: serializer, elemType: unionType}
}

// RegisterUnion2Type registers Union2[T1, T2] with f so values of that type
// can be serialized/deserialized.
func RegisterUnion2Type[T1 any, T2 any](f *Fory) error {
	var zero1 T1
	var zero2 T2
	registerUnionSerializer(f, reflect.TypeOf(Union2[T1, T2]{}), []reflect.Type{reflect.TypeOf(zero1), reflect.TypeOf(zero2)})
	return nil
}

// RegisterUnion3Type registers Union3[T1, T2, T3] with f.
func RegisterUnion3Type[T1 any, T2 any, T3 any](f *Fory) error {
	var zero1 T1
	var zero2 T2
	var zero3 T3
	registerUnionSerializer(f, reflect.TypeOf(Union3[T1, T2, T3]{}), []reflect.Type{reflect.TypeOf(zero1), reflect.TypeOf(zero2), reflect.TypeOf(zero3)})
	return nil
}

// RegisterUnion4Type registers Union4[T1, T2, T3, T4] with f.
func RegisterUnion4Type[T1 any, T2 any, T3 any, T4 any](f *Fory) error {
	var zero1 T1
	var zero2 T2
	var zero3 T3
	var zero4 T4
	registerUnionSerializer(f, reflect.TypeOf(Union4[T1, T2, T3, T4]{}), []reflect.Type{reflect.TypeOf(zero1), reflect.TypeOf(zero2), reflect.TypeOf(zero3), reflect.TypeOf(zero4)})
	return nil
}

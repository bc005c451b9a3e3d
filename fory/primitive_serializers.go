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

// writeRefHeader emits the reference byte per refMode and, when the caller
// requested it, the type info; it returns true when the value's payload was
// already fully handled (null, or an already-seen reference) and the caller
// must not call WriteData.
func writeRefHeader(ctx *WriteContext, s Serializer, refMode RefMode, writeType bool, value reflect.Value) bool {
	switch refMode {
	case RefModeNone:
		// no flag byte at all
	case RefModeNullOnly:
		if isNilValue(value) {
			ctx.buf.WriteInt8(NullFlag)
			return true
		}
		ctx.buf.WriteInt8(NotNullValueFlag)
	case RefModeTracking:
		done, err := ctx.refs.WriteRefOrNull(ctx.buf, value)
		if err != nil {
			ctx.SetError(FromError(err))
			return true
		}
		if done {
			return true
		}
	}
	if writeType {
		info := &TypeInfo{TypeID: s.TypeId()}
		if err := ctx.TypeResolver().WriteTypeInfo(ctx.buf, info, ctx.MetaStrings()); err != nil {
			ctx.SetError(FromError(err))
			return true
		}
	}
	return false
}

// readRefHeader mirrors writeRefHeader. It returns (skip=true) when the
// caller must not call ReadData — either the value is null (zero Value
// returned) or it resolved to an already-read reference (returned directly).
func readRefHeader(ctx *ReadContext, refMode RefMode, readType bool) (skip bool, resolved reflect.Value, refID uint32, hasID bool) {
	switch refMode {
	case RefModeNone:
	case RefModeNullOnly:
		flag := ctx.buf.ReadInt8()
		if flag == NullFlag {
			return true, reflect.Value{}, 0, false
		}
	case RefModeTracking:
		flag, id, err := ctx.refs.TryPreserveRefId(ctx.buf)
		if err != nil {
			ctx.SetError(FromError(err))
			return true, reflect.Value{}, 0, false
		}
		switch flag {
		case NullFlag:
			return true, reflect.Value{}, 0, false
		case RefFlag:
			return true, ctx.refs.GetReadObject(id), 0, false
		case RefValueFlag:
			refID, hasID = id, true
		}
	}
	if readType {
		if _, err := ctx.TypeResolver().ReadTypeInfo(ctx.buf, ctx.MetaStrings()); err != nil {
			ctx.SetError(FromError(err))
			return true, reflect.Value{}, 0, false
		}
	}
	return false, reflect.Value{}, refID, hasID
}

type boolSerializer struct{}

func (boolSerializer) TypeId() TypeId { return BOOL }
func (s boolSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (boolSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteBool(value.Bool())
}
func (s boolSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, reflect.TypeOf(false), value)
}
func (boolSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadBool()
	if value.IsValid() && value.CanSet() {
		value.SetBool(v)
	}
}

// The signed integer serializers below differ only in their TypeId and
// ByteBuffer accessor; each kind is written out as its own near-copy.

type int8Serializer struct{}

func (int8Serializer) TypeId() TypeId { return INT8 }
func (s int8Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (int8Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteInt8(int8(value.Int()))
}
func (s int8Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (int8Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadInt8()
	if value.IsValid() && value.CanSet() {
		value.SetInt(int64(v))
	}
}

type int16Serializer struct{}

func (int16Serializer) TypeId() TypeId { return INT16 }
func (s int16Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (int16Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteInt16(int16(value.Int()))
}
func (s int16Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (int16Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadInt16()
	if value.IsValid() && value.CanSet() {
		value.SetInt(int64(v))
	}
}

type int32Serializer struct{}

func (int32Serializer) TypeId() TypeId { return VAR_INT32 }
func (s int32Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (int32Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteVarInt32(int32(value.Int()))
}
func (s int32Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (int32Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadVarInt32()
	if value.IsValid() && value.CanSet() {
		value.SetInt(int64(v))
	}
}

type int64Serializer struct{}

func (int64Serializer) TypeId() TypeId { return VAR_INT64 }
func (s int64Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (int64Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteVarInt64(value.Int())
}
func (s int64Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (int64Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadVarInt64()
	if value.IsValid() && value.CanSet() {
		value.SetInt(v)
	}
}

// intSerializer handles Go's platform-width `int`, writing it as a
// VAR_INT64 on the wire so the representation is platform-independent.
type intSerializer struct{}

func (intSerializer) TypeId() TypeId { return VAR_INT64 }
func (s intSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (intSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteVarInt64(value.Int())
}
func (s intSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (intSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadVarInt64()
	if value.IsValid() && value.CanSet() {
		value.SetInt(v)
	}
}

type uint8Serializer struct{}

func (uint8Serializer) TypeId() TypeId { return UINT8 }
func (s uint8Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (uint8Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteUint8(uint8(value.Uint()))
}
func (s uint8Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (uint8Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadUint8()
	if value.IsValid() && value.CanSet() {
		value.SetUint(uint64(v))
	}
}

type uint16Serializer struct{}

func (uint16Serializer) TypeId() TypeId { return UINT16 }
func (s uint16Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (uint16Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteUint16(uint16(value.Uint()))
}
func (s uint16Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (uint16Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadUint16()
	if value.IsValid() && value.CanSet() {
		value.SetUint(uint64(v))
	}
}

type uint32Serializer struct{}

func (uint32Serializer) TypeId() TypeId { return VAR_UINT32 }
func (s uint32Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (uint32Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteVarUint32(uint32(value.Uint()))
}
func (s uint32Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (uint32Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadVarUint32()
	if value.IsValid() && value.CanSet() {
		value.SetUint(uint64(v))
	}
}

type uint64Serializer struct{}

func (uint64Serializer) TypeId() TypeId { return VAR_UINT64 }
func (s uint64Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (uint64Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteVarUint64(value.Uint())
}
func (s uint64Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (uint64Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadVarUint64()
	if value.IsValid() && value.CanSet() {
		value.SetUint(v)
	}
}

type float32Serializer struct{}

func (float32Serializer) TypeId() TypeId { return FLOAT32 }
func (s float32Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (float32Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteFloat32(float32(value.Float()))
}
func (s float32Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (float32Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadFloat32()
	if value.IsValid() && value.CanSet() {
		value.SetFloat(float64(v))
	}
}

type float64Serializer struct{}

func (float64Serializer) TypeId() TypeId { return FLOAT64 }
func (s float64Serializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}
func (float64Serializer) WriteData(ctx *WriteContext, value reflect.Value) {
	ctx.buf.WriteFloat64(value.Float())
}
func (s float64Serializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, _, _, _ := readRefHeader(ctx, refMode, readType)
	if skip {
		return
	}
	s.ReadData(ctx, nil, value)
}
func (float64Serializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	v := ctx.buf.ReadFloat64()
	if value.IsValid() && value.CanSet() {
		value.SetFloat(v)
	}
}

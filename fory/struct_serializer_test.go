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
	"testing"

	"github.com/stretchr/testify/require"
)

type personV1 struct {
	Name string
	Age  int32
}

// personV2 is personV1 evolved: Age widened from int32 to int64, and a new
// Nick field personV1 never had.
type personV2 struct {
	Name string
	Age  int64
	Nick string
}

func TestCompatibleStructSerializerSameSchemaRoundTrips(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).WithCompatible(true).Build()
	in := personV1{Name: "Ada", Age: 30}
	data, err := f.Serialize(in)
	require.NoError(t, err)
	out, err := f.Deserialize(data, reflect.TypeOf(personV1{}))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

// A reader built against an older schema (no Nick field, Age still int32)
// must still decode bytes written by the newer schema: the added field is
// skipped and the widened one is converted to the reader's declared width.
func TestCompatibleStructSerializerWidensAndSkipsAddedField(t *testing.T) {
	writerFory := NewBuilder().WithRequireRegistration(false).WithCompatible(true).Build()
	writerInfo, err := writerFory.typeResolver.GetTypeInfoByGoType(reflect.ValueOf(personV2{}))
	require.NoError(t, err)
	writerSer := writerInfo.Serializer.(*compatibleStructSerializer)

	buf := NewByteBuffer(nil)
	wctx := newWriteContext(writerFory, buf)
	writerSer.WriteData(wctx, reflect.ValueOf(personV2{Name: "Grace", Age: 85, Nick: "Amazing"}))
	require.False(t, wctx.HasError())

	readerFory := NewBuilder().WithRequireRegistration(false).WithCompatible(true).Build()
	readerInfo, err := readerFory.typeResolver.GetTypeInfoByGoType(reflect.ValueOf(personV1{}))
	require.NoError(t, err)
	readerSer := readerInfo.Serializer.(*compatibleStructSerializer)

	buf.SetReaderIndex(0)
	rctx := newReadContext(readerFory, buf)
	out := reflect.New(reflect.TypeOf(personV1{})).Elem()
	readerSer.ReadData(rctx, reflect.TypeOf(personV1{}), out)
	require.False(t, rctx.HasError())
	got := out.Interface().(personV1)
	require.Equal(t, "Grace", got.Name)
	require.Equal(t, int32(85), got.Age)
}

// A reader built against a newer schema (Age widened to int64, plus a Nick
// field) must still decode bytes written by the older schema: the missing
// field keeps its zero value and the narrower field widens on the way in.
func TestCompatibleStructSerializerReaderWidensMissingFieldDefaults(t *testing.T) {
	writerFory := NewBuilder().WithRequireRegistration(false).WithCompatible(true).Build()
	writerInfo, err := writerFory.typeResolver.GetTypeInfoByGoType(reflect.ValueOf(personV1{}))
	require.NoError(t, err)
	writerSer := writerInfo.Serializer.(*compatibleStructSerializer)

	buf := NewByteBuffer(nil)
	wctx := newWriteContext(writerFory, buf)
	writerSer.WriteData(wctx, reflect.ValueOf(personV1{Name: "Linus", Age: 50}))
	require.False(t, wctx.HasError())

	readerFory := NewBuilder().WithRequireRegistration(false).WithCompatible(true).Build()
	readerInfo, err := readerFory.typeResolver.GetTypeInfoByGoType(reflect.ValueOf(personV2{}))
	require.NoError(t, err)
	readerSer := readerInfo.Serializer.(*compatibleStructSerializer)

	buf.SetReaderIndex(0)
	rctx := newReadContext(readerFory, buf)
	out := reflect.New(reflect.TypeOf(personV2{})).Elem()
	readerSer.ReadData(rctx, reflect.TypeOf(personV2{}), out)
	require.False(t, rctx.HasError())
	got := out.Interface().(personV2)
	require.Equal(t, "Linus", got.Name)
	require.Equal(t, int64(50), got.Age)
	require.Equal(t, "", got.Nick)
}

func TestStructSerializerWriteDataReadDataDirectPointerDeref(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	info, err := f.typeResolver.GetTypeInfoByGoType(reflect.ValueOf(simplePoint{}))
	require.NoError(t, err)
	ser := info.Serializer.(*structSerializer)

	buf := NewByteBuffer(nil)
	ctx := newWriteContext(f, buf)
	p := &simplePoint{X: 11, Y: 22}
	ser.WriteData(ctx, reflect.ValueOf(p))
	require.False(t, ctx.HasError())

	buf.SetReaderIndex(0)
	rctx := newReadContext(f, buf)
	out := reflect.New(reflect.TypeOf(simplePoint{})).Elem()
	ser.ReadData(rctx, reflect.TypeOf(simplePoint{}), out)
	require.False(t, rctx.HasError())
	require.Equal(t, *p, out.Interface().(simplePoint))
}

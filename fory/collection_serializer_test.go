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

func TestListSerializerHomogeneousChunkRoundTrips(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := []int32{10, 20, 30, 40, 50}
	got := roundTrip(t, f, in).([]int32)
	require.Equal(t, in, got)
}

func TestListSerializerLargeSliceSpansMultipleChunks(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := make([]int32, collectionChunkSize*2+3)
	for i := range in {
		in[i] = int32(i)
	}
	got := roundTrip(t, f, in).([]int32)
	require.Equal(t, in, got)
}

func TestListSerializerEmptySlice(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := []int32{}
	got := roundTrip(t, f, in).([]int32)
	require.Equal(t, in, got)
}

func TestMapSerializerNestedMapRoundTrips(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := map[string][]int32{"a": {1, 2}, "b": {3}}
	got := roundTrip(t, f, in).(map[string][]int32)
	require.Equal(t, in, got)
}

func TestPtrSerializerNilPointerFieldRoundTrips(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	type withOptional struct {
		Tag *simplePoint
	}
	in := withOptional{Tag: nil}
	got := roundTrip(t, f, in).(withOptional)
	require.Nil(t, got.Tag)

	in2 := withOptional{Tag: &simplePoint{X: 1, Y: 2}}
	got2 := roundTrip(t, f, in2).(withOptional)
	require.Equal(t, *in2.Tag, *got2.Tag)
}

func TestWriteDynamicValueThenReadDynamicValueRoundTrips(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	buf := NewByteBuffer(nil)
	wctx := newWriteContext(f, buf)
	writeDynamicValue(wctx, reflect.ValueOf(int32(99)))
	require.False(t, wctx.HasError())

	buf.SetReaderIndex(0)
	rctx := newReadContext(f, buf)
	out := readDynamicValue(rctx)
	require.False(t, rctx.HasError())
	require.Equal(t, int32(99), out.Interface())
}

func TestWriteDynamicValueNullRoundTrips(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	buf := NewByteBuffer(nil)
	wctx := newWriteContext(f, buf)
	writeDynamicValue(wctx, reflect.Value{})

	buf.SetReaderIndex(0)
	rctx := newReadContext(f, buf)
	out := readDynamicValue(rctx)
	require.False(t, rctx.HasError())
	require.False(t, out.IsValid())
}

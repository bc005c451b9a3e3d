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
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarUint32Boundaries(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 16383, 16384, 1 << 28, math.MaxUint32}
	for _, c := range cases {
		buf := NewByteBuffer(nil)
		buf.WriteVarUint32(c)
		buf.SetReaderIndex(0)
		require.Equal(t, c, buf.ReadVarUint32(), "value %d", c)
	}
}

func TestVarInt32RoundTripNegative(t *testing.T) {
	cases := []int32{0, -1, 1, math.MinInt32, math.MaxInt32, -64, 64}
	for _, c := range cases {
		buf := NewByteBuffer(nil)
		buf.WriteVarInt32(c)
		buf.SetReaderIndex(0)
		require.Equal(t, c, buf.ReadVarInt32(), "value %d", c)
	}
}

func TestVarUint64Boundaries(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, math.MaxUint64}
	for _, c := range cases {
		buf := NewByteBuffer(nil)
		buf.WriteVarUint64(c)
		buf.SetReaderIndex(0)
		require.Equal(t, c, buf.ReadVarUint64(), "value %d", c)
	}
}

func TestSliInt64SmallAndEscaped(t *testing.T) {
	cases := []int64{0, -1, 1, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64, 1 << 40}
	for _, c := range cases {
		buf := NewByteBuffer(nil)
		buf.WriteSliInt64(c)
		buf.SetReaderIndex(0)
		require.Equal(t, c, buf.ReadSliInt64(), "value %d", c)
	}
}

func TestTaggedUint64RoundTrip(t *testing.T) {
	buf := NewByteBuffer(nil)
	require.NoError(t, buf.WriteTaggedUint64(12345, true))
	buf.SetReaderIndex(0)
	v, tag := buf.ReadTaggedUint64()
	require.Equal(t, uint64(12345), v)
	require.True(t, tag)

	buf2 := NewByteBuffer(nil)
	require.NoError(t, buf2.WriteTaggedUint64(0, false))
	buf2.SetReaderIndex(0)
	v2, tag2 := buf2.ReadTaggedUint64()
	require.Equal(t, uint64(0), v2)
	require.False(t, tag2)

	require.Error(t, buf.WriteTaggedUint64(math.MaxUint64, false))
}

func TestByteBufferGrowsAndPreservesContent(t *testing.T) {
	buf := NewByteBuffer(nil)
	for i := 0; i < 1000; i++ {
		buf.WriteInt32(int32(i))
	}
	buf.SetReaderIndex(0)
	for i := 0; i < 1000; i++ {
		require.Equal(t, int32(i), buf.ReadInt32())
	}
}

func TestByteBufferUnderflowPanics(t *testing.T) {
	buf := NewByteBuffer([]byte{1})
	require.Panics(t, func() {
		buf.ReadInt32()
	})
}

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

func TestWriteRefOrNullNilWritesNullFlag(t *testing.T) {
	r := newRefResolver(true)
	buf := NewByteBuffer(nil)
	var p *int
	done, err := r.WriteRefOrNull(buf, reflect.ValueOf(p))
	require.NoError(t, err)
	require.True(t, done)
	buf.SetReaderIndex(0)
	require.Equal(t, NullFlag, buf.ReadInt8())
}

func TestWriteRefOrNullSameIdentityBacksReference(t *testing.T) {
	r := newRefResolver(true)
	buf := NewByteBuffer(nil)
	shared := &simplePoint{X: 1, Y: 2}
	v := reflect.ValueOf(shared)

	done, err := r.WriteRefOrNull(buf, v)
	require.NoError(t, err)
	require.False(t, done, "first sighting of a trackable value must write a fresh payload")

	done, err = r.WriteRefOrNull(buf, v)
	require.NoError(t, err)
	require.True(t, done, "second sighting of the same identity must short-circuit as a back-reference")

	buf.SetReaderIndex(0)
	require.Equal(t, RefValueFlag, buf.ReadInt8())
	require.Equal(t, RefFlag, buf.ReadInt8())
	require.Equal(t, uint32(0), buf.ReadVarUint32())
}

func TestWriteRefOrNullDisabledTrackingStillWritesPayload(t *testing.T) {
	r := newRefResolver(false)
	buf := NewByteBuffer(nil)
	done, err := r.WriteRefOrNull(buf, reflect.ValueOf(&simplePoint{X: 1}))
	require.NoError(t, err)
	require.False(t, done, "caller must still write the payload when tracking is disabled")
	buf.SetReaderIndex(0)
	require.Equal(t, NotNullValueFlag, buf.ReadInt8())
}

// Write-side id assignment must stay aligned with the read side's
// TryPreserveRefId, which grows a readObjects slot for every RefValueFlag
// occurrence regardless of the underlying value's kind. A non-trackable
// value (e.g. a plain int written through RefModeTracking) still consumes
// an id slot.
func TestRefIdNumberingStaysAlignedAcrossTrackableAndNonTrackableValues(t *testing.T) {
	r := newRefResolver(true)
	buf := NewByteBuffer(nil)

	shared := &simplePoint{X: 9}
	_, err := r.WriteRefOrNull(buf, reflect.ValueOf(42))
	require.NoError(t, err)
	_, err = r.WriteRefOrNull(buf, reflect.ValueOf(shared))
	require.NoError(t, err)
	done, err := r.WriteRefOrNull(buf, reflect.ValueOf(shared))
	require.NoError(t, err)
	require.True(t, done)

	buf.SetReaderIndex(0)
	require.Equal(t, RefValueFlag, buf.ReadInt8()) // int, id 0
	require.Equal(t, RefValueFlag, buf.ReadInt8()) // shared, id 1
	require.Equal(t, RefFlag, buf.ReadInt8())
	require.Equal(t, uint32(1), buf.ReadVarUint32(), "back-reference must point at shared's id (1), not 0")
}

func TestTryPreserveRefIdReservesSlotBeforeDecode(t *testing.T) {
	r := newRefResolver(true)
	buf := NewByteBuffer(nil)
	buf.WriteInt8(RefValueFlag)
	buf.SetReaderIndex(0)

	flag, id, err := r.TryPreserveRefId(buf)
	require.NoError(t, err)
	require.Equal(t, RefValueFlag, flag)
	require.Equal(t, uint32(0), id)
	require.False(t, r.GetReadObject(0).IsValid(), "slot is reserved but not yet populated")

	r.SetReadObject(0, reflect.ValueOf(&simplePoint{X: 1}))
	require.True(t, r.GetReadObject(0).IsValid())
}

func TestTryPreserveRefIdUnknownRefIdErrors(t *testing.T) {
	r := newRefResolver(true)
	buf := NewByteBuffer(nil)
	buf.WriteInt8(RefFlag)
	buf.WriteVarUint32(5)
	buf.SetReaderIndex(0)

	_, _, err := r.TryPreserveRefId(buf)
	require.Error(t, err)
}

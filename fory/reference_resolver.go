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

// Reference tags, §6: signed 8-bit flags written ahead of every
// reference-tracked value.
const (
	NullFlag         int8 = -3
	RefFlag          int8 = -1
	NotNullValueFlag int8 = -2
	RefValueFlag     int8 = 0
)

// RefMode selects how a serializer's Write/Read methods treat the
// reference byte ahead of a value, matching the three cases in §4.D.
type RefMode int

const (
	// RefModeTracking writes/reads the full NULL/REF/REF_VALUE protocol
	// and registers the value in the resolver's identity table.
	RefModeTracking RefMode = iota
	// RefModeNullOnly writes/reads only a null-or-not flag
	// (NULL_FLAG / NOT_NULL_VALUE_FLAG); used when the type can't be
	// shared or cyclic (e.g. a final value type) but can still be nil.
	RefModeNullOnly
	// RefModeNone skips the reference byte entirely; used for elements
	// known never to be null (non-pointer primitives).
	RefModeNone
)

// refResolver is the per-call identity table described in §4.D. A new
// instance is created for every Serialize/Deserialize call and discarded
// at the end of it — it never outlives a WriteContext/ReadContext.
type refResolver struct {
	trackingEnabled bool

	// write side: object identity -> assigned ref id.
	writtenIds map[uintptr]uint32
	writeOrder []reflect.Value

	// read side: ref id -> the (possibly still-being-built) decoded value.
	readObjects []reflect.Value
}

func newRefResolver(trackingEnabled bool) *refResolver {
	return &refResolver{
		trackingEnabled: trackingEnabled,
		writtenIds:      make(map[uintptr]uint32),
	}
}

func identityKey(v reflect.Value) (uintptr, bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		if v.IsNil() {
			return 0, false
		}
		return v.Pointer(), true
	default:
		return 0, false
	}
}

// WriteRefOrNull implements the write path of §4.D. It returns
// (refWritten=true, nil) when it already emitted everything needed for
// value (null tag or a back-reference) and the caller should not write the
// payload; it returns (false, nil) when the caller must write a fresh
// payload after the REF_VALUE_FLAG byte it already wrote.
func (r *refResolver) WriteRefOrNull(buf *ByteBuffer, value reflect.Value) (bool, error) {
	if !value.IsValid() || isNilValue(value) {
		buf.WriteInt8(NullFlag)
		return true, nil
	}
	if !r.trackingEnabled {
		buf.WriteInt8(NotNullValueFlag)
		return false, nil
	}
	// The id space is shared by every RefValueFlag occurrence regardless of
	// whether its value is identity-trackable, so it stays aligned with the
	// read side's readObjects slots (TryPreserveRefId grows one slot per
	// RefValueFlag it sees, before it knows the value's kind).
	id := uint32(len(r.writeOrder))
	key, trackable := identityKey(value)
	if trackable {
		if existing, ok := r.writtenIds[key]; ok {
			buf.WriteInt8(RefFlag)
			buf.WriteVarUint32(existing)
			return true, nil
		}
		r.writtenIds[key] = id
	}
	r.writeOrder = append(r.writeOrder, value)
	buf.WriteInt8(RefValueFlag)
	return false, nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// TryPreserveRefId implements the read path of §4.D: it reads the
// reference byte, and for REF_VALUE_FLAG it reserves a slot in the read
// table *before* the caller decodes the payload, so that self-cycles
// inside the payload can resolve to the partially-built object via
// GetReadObject/SetReadObject.
//
// It returns the flag byte as read, plus an id: for RefFlag the ref id read
// from the stream (pass it to GetReadObject), for RefValueFlag the slot just
// reserved (pass it to SetReadObject), and 0 for NullFlag/NotNullValueFlag.
func (r *refResolver) TryPreserveRefId(buf *ByteBuffer) (int8, uint32, error) {
	flag := buf.ReadInt8()
	switch flag {
	case NullFlag, NotNullValueFlag:
		return flag, 0, nil
	case RefFlag:
		id := buf.ReadVarUint32()
		if int(id) >= len(r.readObjects) {
			return flag, 0, invalidReferenceError("ref id %d not found", id)
		}
		return flag, id, nil
	case RefValueFlag:
		id := uint32(len(r.readObjects))
		r.readObjects = append(r.readObjects, reflect.Value{})
		return flag, id, nil
	default:
		return flag, 0, invalidReferenceError("unknown reference flag %d", flag)
	}
}

// SetReadObject records the fully or partially constructed value for a
// slot reserved by TryPreserveRefId, so later REF_FLAG occurrences (forward
// references resolved via cycles) see it.
func (r *refResolver) SetReadObject(id uint32, value reflect.Value) {
	if int(id) < len(r.readObjects) {
		r.readObjects[id] = value
	}
}

// GetReadObject returns the value registered for id, or the zero Value if
// none was recorded (e.g. tracking disabled for this type).
func (r *refResolver) GetReadObject(id uint32) reflect.Value {
	if int(id) < len(r.readObjects) {
		return r.readObjects[id]
	}
	return reflect.Value{}
}

// Reset clears per-call state. Kept for pooled-context reuse (§5 allows a
// pooled-context mode).
func (r *refResolver) Reset() {
	for k := range r.writtenIds {
		delete(r.writtenIds, k)
	}
	r.writeOrder = r.writeOrder[:0]
	r.readObjects = r.readObjects[:0]
}

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
	"time"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, f *Fory, value interface{}) interface{} {
	t.Helper()
	data, err := f.Serialize(value)
	require.NoError(t, err)
	out, err := f.Deserialize(data, reflect.TypeOf(value))
	require.NoError(t, err)
	return out
}

func TestSerializePrimitives(t *testing.T) {
	f := NewFory(true)
	cases := []interface{}{
		false, true,
		int8(-1), int8(127),
		int16(-32768), int16(32767),
		int32(-1), int32(1 << 20),
		int64(-1), int64(1 << 40),
		uint8(200), uint16(60000), uint32(1 << 30), uint64(1 << 50),
		float32(1.5), float64(-2.25),
		"hello", "",
	}
	for _, c := range cases {
		got := roundTrip(t, f, c)
		require.Equal(t, c, got, "%T", c)
	}
}

func TestSerializeNil(t *testing.T) {
	f := NewFory(true)
	data, err := f.Serialize(nil)
	require.NoError(t, err)
	out, err := f.Deserialize(data, reflect.TypeOf(""))
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestSerializeSlice(t *testing.T) {
	f := NewFory(true)
	in := []int32{1, 2, 3, -4, 5}
	got := roundTrip(t, f, in)
	require.Equal(t, in, got)
}

func TestSerializeMap(t *testing.T) {
	f := NewFory(true)
	in := map[string]int32{"a": 1, "b": -2, "": 3}
	got := roundTrip(t, f, in)
	require.Equal(t, in, got)
}

func TestSerializeBinaryAndDate(t *testing.T) {
	f := NewFory(true)
	bin := []byte{1, 2, 3, 4, 5}
	require.Equal(t, bin, roundTrip(t, f, bin))

	d := Date{Year: 2024, Month: 3, Day: 14}
	require.Equal(t, d, roundTrip(t, f, d))

	ts := time.Date(2024, 3, 14, 9, 26, 53, 0, time.UTC)
	got := roundTrip(t, f, ts).(time.Time)
	require.True(t, ts.Equal(got))
}

type simplePoint struct {
	X int32
	Y int32
}

func TestSerializeStructSimple(t *testing.T) {
	f := NewFory(false)
	require.NoError(t, f.RegisterByName(reflect.TypeOf(simplePoint{}), "fory_test", "simplePoint", newEmptyStructSerializerRegistered(reflect.TypeOf(simplePoint{}), f)))
	in := simplePoint{X: 3, Y: -7}
	got := roundTrip(t, f, in)
	require.Equal(t, in, got)
}

func TestSerializeStructAutoRegistered(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := simplePoint{X: 10, Y: 20}
	got := roundTrip(t, f, in)
	require.Equal(t, in, got)
}

type withSlicesAndMaps struct {
	Names []string
	Score map[string]int32
	Tags  []*simplePoint
}

func TestSerializeNestedContainers(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := withSlicesAndMaps{
		Names: []string{"a", "b", "c"},
		Score: map[string]int32{"a": 1, "b": 2},
		Tags:  []*simplePoint{{X: 1, Y: 2}, {X: 3, Y: 4}},
	}
	got := roundTrip(t, f, in).(withSlicesAndMaps)
	require.Equal(t, in.Names, got.Names)
	require.Equal(t, in.Score, got.Score)
	require.Len(t, got.Tags, 2)
	require.Equal(t, *in.Tags[0], *got.Tags[0])
	require.Equal(t, *in.Tags[1], *got.Tags[1])
}

type node struct {
	Value    int32
	Children []*node
}

func TestSerializeSelfReferentialStruct(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := &node{Value: 1, Children: []*node{{Value: 2}, {Value: 3}}}
	data, err := f.Serialize(in)
	require.NoError(t, err)
	out, err := f.Deserialize(data, reflect.TypeOf(node{}))
	require.NoError(t, err)
	got := out.(node)
	require.Equal(t, int32(1), got.Value)
	require.Len(t, got.Children, 2)
	require.Equal(t, int32(2), got.Children[0].Value)
	require.Equal(t, int32(3), got.Children[1].Value)
}

func TestSerializeSharedReference(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	shared := &simplePoint{X: 9, Y: 9}
	type pair struct {
		A *simplePoint
		B *simplePoint
	}
	in := pair{A: shared, B: shared}
	data, err := f.Serialize(in)
	require.NoError(t, err)
	out, err := f.Deserialize(data, reflect.TypeOf(pair{}))
	require.NoError(t, err)
	got := out.(pair)
	require.True(t, got.A == got.B, "shared pointer should decode to the same identity, not equal copies")
}

// cyclic chains through an intermediate pointer field so the cycle is
// reachable without involving the top-level Serialize argument's own
// identity (see DESIGN.md's note on top-level pointer identity).
type cyclic struct {
	Next *cyclic
}

type cyclicHolder struct {
	Root *cyclic
}

func TestSerializeCircularReference(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	a := &cyclic{}
	a.Next = a
	in := cyclicHolder{Root: a}
	data, err := f.Serialize(in)
	require.NoError(t, err)
	out, err := f.Deserialize(data, reflect.TypeOf(cyclicHolder{}))
	require.NoError(t, err)
	got := out.(cyclicHolder)
	require.True(t, got.Root.Next == got.Root, "self-referential pointer must resolve to its own identity")
}

func TestRepeatedSerializeIsDeterministic(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := simplePoint{X: 1, Y: 2}
	first, err := f.Serialize(in)
	require.NoError(t, err)
	second, err := f.Serialize(in)
	require.NoError(t, err)
	require.Equal(t, first, second, "a fresh per-call meta-string table must not leak state across calls")
}

func TestSerializeDynamicSliceElements(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	in := []interface{}{int32(1), "two", simplePoint{X: 3, Y: 4}, nil}
	got := roundTrip(t, f, in).([]interface{})
	require.Len(t, got, 4)
	require.Equal(t, int32(1), got[0])
	require.Equal(t, "two", got[1])
	require.Equal(t, simplePoint{X: 3, Y: 4}, got[2])
	require.Nil(t, got[3])
}

func TestSerializeWithoutReferenceTracking(t *testing.T) {
	f := NewBuilder().WithReferenceTracking(false).WithRequireRegistration(false).Build()
	in := simplePoint{X: 5, Y: 6}
	got := roundTrip(t, f, in)
	require.Equal(t, in, got, "disabling reference tracking must still write the payload")
}

// newEmptyStructSerializerRegistered is a small test helper mirroring what
// autoRegisterStruct does for an explicitly registered (rather than
// auto-registered) schema-consistent struct.
func newEmptyStructSerializerRegistered(type_ reflect.Type, f *Fory) Serializer {
	s := newEmptyStructSerializer(type_)
	_ = s.populateFields(f.typeResolver)
	return s
}

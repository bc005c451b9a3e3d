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

func TestUnion2HelpersMatchAndIndex(t *testing.T) {
	a := NewUnion2A[int32, string](7)
	require.True(t, a.IsFirst())
	require.False(t, a.IsSecond())
	require.Equal(t, int32(7), a.First())
	require.Panics(t, func() { a.Second() })

	b := NewUnion2B[int32, string]("hi")
	require.Equal(t, "hi", b.Second())
	require.Equal(t, 2, b.Index())
}

func TestUnion2RoundTripThroughFory(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	require.NoError(t, RegisterUnion2Type[int32, string](f))

	u := NewUnion2A[int32, string](42)
	typ := reflect.TypeOf(u)
	data, err := f.Serialize(u)
	require.NoError(t, err)
	out, err := f.Deserialize(data, typ)
	require.NoError(t, err)
	got := out.(Union2[int32, string])
	require.True(t, got.IsFirst())
	require.Equal(t, int32(42), got.First())

	u2 := NewUnion2B[int32, string]("second")
	data2, err := f.Serialize(u2)
	require.NoError(t, err)
	out2, err := f.Deserialize(data2, typ)
	require.NoError(t, err)
	got2 := out2.(Union2[int32, string])
	require.True(t, got2.IsSecond())
	require.Equal(t, "second", got2.Second())
}

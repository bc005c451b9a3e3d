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

type orderedFields struct {
	Name    string
	Age     int32
	Active  bool
	Score   float64
	Tags    []string
	ByCount map[string]int32
}

func TestBuildTypeMetaOrdersFieldsByGroupThenName(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	tm, err := buildTypeMeta(reflect.TypeOf(orderedFields{}), f.typeResolver)
	require.NoError(t, err)

	var names []string
	for _, fld := range tm.Fields {
		names = append(names, fld.FieldName)
	}
	// group order: BOOL(0), INT/UINT/VARINT(1), FLOAT(2), STRING(3), LIST(4), MAP(5)
	require.Equal(t, []string{"Active", "Age", "Score", "Name", "Tags", "ByCount"}, names)
}

func TestBuildTypeMetaSchemaHashStableAcrossCalls(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	tm1, err := buildTypeMeta(reflect.TypeOf(orderedFields{}), f.typeResolver)
	require.NoError(t, err)
	tm2, err := buildTypeMeta(reflect.TypeOf(orderedFields{}), f.typeResolver)
	require.NoError(t, err)
	require.Equal(t, tm1.SchemaHash, tm2.SchemaHash)
}

type widenedLater struct {
	Age  int64 // was int32 in an earlier version of this schema
	Name string
}

func TestBuildTypeMetaWideningFieldDoesNotReorderSchema(t *testing.T) {
	f := NewBuilder().WithRequireRegistration(false).Build()
	tm, err := buildTypeMeta(reflect.TypeOf(widenedLater{}), f.typeResolver)
	require.NoError(t, err)
	require.Equal(t, "Age", tm.Fields[0].FieldName, "int64 stays in the integer group, ahead of string")
	require.Equal(t, "Name", tm.Fields[1].FieldName)
}

func TestCollectFieldsSkipsUnexportedFields(t *testing.T) {
	type withUnexported struct {
		Visible int32
		hidden  int32
	}
	f := NewBuilder().WithRequireRegistration(false).Build()
	tm, err := buildTypeMeta(reflect.TypeOf(withUnexported{}), f.typeResolver)
	require.NoError(t, err)
	require.Len(t, tm.Fields, 1)
	require.Equal(t, "Visible", tm.Fields[0].FieldName)
}

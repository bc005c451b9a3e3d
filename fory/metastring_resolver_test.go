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
	"testing"

	"github.com/apache/fory-go/fory/meta"
	"github.com/stretchr/testify/require"
)

func TestMetaStringResolverWritesFullThenBackReference(t *testing.T) {
	r := NewMetaStringResolver()
	enc := meta.NewEncoder('.', '_')
	ms, err := enc.Encode("my_package")
	require.NoError(t, err)
	msb := r.GetMetaStrBytes(&ms)

	buf := NewByteBuffer(nil)
	require.NoError(t, r.WriteMetaStringBytes(buf, msb))
	require.NoError(t, r.WriteMetaStringBytes(buf, msb))

	buf.SetReaderIndex(0)
	reader := NewMetaStringResolver()
	first, err := reader.ReadMetaStringBytes(buf)
	require.NoError(t, err)
	require.Equal(t, msb.Data, first.Data)

	second, err := reader.ReadMetaStringBytes(buf)
	require.NoError(t, err)
	require.Same(t, first, second, "second occurrence must resolve to the same interned instance")
}

func TestMetaStringResolverNilWritesZeroHeader(t *testing.T) {
	r := NewMetaStringResolver()
	buf := NewByteBuffer(nil)
	require.NoError(t, r.WriteMetaStringBytes(buf, nil))
	buf.SetReaderIndex(0)

	reader := NewMetaStringResolver()
	got, err := reader.ReadMetaStringBytes(buf)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMetaStringResolverUnknownBackReferenceErrors(t *testing.T) {
	r := NewMetaStringResolver()
	buf := NewByteBuffer(nil)
	buf.WriteVarUint32((5 << 1) | 1)
	buf.SetReaderIndex(0)

	_, err := r.ReadMetaStringBytes(buf)
	require.Error(t, err)
}

func TestMetaStringResolverLongStringCarriesHash(t *testing.T) {
	r := NewMetaStringResolver()
	enc := meta.NewEncoder('.', '_')
	ms, err := enc.Encode("a_very_long_package_name_that_exceeds_the_threshold")
	require.NoError(t, err)
	msb := r.GetMetaStrBytes(&ms)
	require.Greater(t, len(msb.Data), longMetaStringThreshold)

	buf := NewByteBuffer(nil)
	require.NoError(t, r.WriteMetaStringBytes(buf, msb))
	buf.SetReaderIndex(0)

	reader := NewMetaStringResolver()
	got, err := reader.ReadMetaStringBytes(buf)
	require.NoError(t, err)
	require.Equal(t, msb.Data, got.Data)
	require.Equal(t, msb.Hashcode, got.Hashcode)
}

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

package meta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, enc *Encoder, dec *Decoder, s string) MetaString {
	t.Helper()
	ms, err := enc.Encode(s)
	require.NoError(t, err)
	decoded, err := dec.Decode(ms.Data, ms.Encoding, ms.OriginalLength)
	require.NoError(t, err)
	require.Equal(t, s, decoded, "encoding %s", ms.Encoding)
	return ms
}

func TestLowerSpecialRoundTrip(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	ms := roundTrip(t, enc, dec, "user_id")
	require.Equal(t, LOWER_SPECIAL, ms.Encoding)
}

func TestFirstToLowerSpecial(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	ms := roundTrip(t, enc, dec, "User")
	require.Equal(t, FIRST_TO_LOWER_SPECIAL, ms.Encoding)
}

func TestLowerUpperDigitSpecial(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	ms := roundTrip(t, enc, dec, "userId2")
	require.Equal(t, LOWER_UPPER_DIGIT_SPECIAL, ms.Encoding)
}

func TestAllToLowerSpecialPreferredWhenSmaller(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	// One capital among many lowercase: ALL_TO_LOWER_SPECIAL's
	// (len+upper)*5 beats LOWER_UPPER_DIGIT_SPECIAL's len*6, and the
	// capital isn't in the first position so FIRST_TO_LOWER_SPECIAL can't
	// apply either.
	ms := roundTrip(t, enc, dec, "aaaaaaaaaA")
	require.Equal(t, ALL_TO_LOWER_SPECIAL, ms.Encoding)
}

func TestUTF8Fallback(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	ms := roundTrip(t, enc, dec, "héllo wörld!")
	require.Equal(t, UTF_8, ms.Encoding)
}

func TestNumericEncoding(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	for _, s := range []string{"0", "7", "-1", "12345", "-999999999999"} {
		ms := roundTrip(t, enc, dec, s)
		require.Equal(t, NUMERIC, ms.Encoding, s)
	}
}

func TestNonCanonicalNumericFallsBackToSixBit(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	// leading zero is not a canonical decimal and must not use NUMERIC; its
	// digits all fit the 6-bit alphabet, so it packs as
	// LOWER_UPPER_DIGIT_SPECIAL.
	ms := roundTrip(t, enc, dec, "007")
	require.Equal(t, LOWER_UPPER_DIGIT_SPECIAL, ms.Encoding)
}

func TestEmptyString(t *testing.T) {
	enc := NewEncoder('.', '_')
	dec := NewDecoder('.', '_')
	roundTrip(t, enc, dec, "")
}

func TestDifferentSpecialCharPairs(t *testing.T) {
	enc := NewEncoder('$', '_')
	dec := NewDecoder('$', '_')
	roundTrip(t, enc, dec, "Foo$Bar_1")
}

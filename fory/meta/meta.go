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

// Package meta implements the compact identifier-string ("meta-string")
// codec described in the fory wire format: a 5/6-bit packed encoding for
// identifier-like strings (type names, namespaces, field names) with a
// fallback to raw UTF-8 and to a compact decimal form for numeric strings.
package meta

import (
	"fmt"
	"math/big"
	"strings"
)

// Encoding identifies which packing scheme produced a MetaString's bytes.
type Encoding uint8

const (
	// UTF_8 is the fallback encoding: the original string's raw UTF-8 bytes.
	UTF_8 Encoding = iota
	// LOWER_SPECIAL packs `a-z . _ $ |` at 5 bits/char.
	LOWER_SPECIAL
	// LOWER_UPPER_DIGIT_SPECIAL packs `a-z A-Z 0-9 <sc1> <sc2>` at 6 bits/char.
	LOWER_UPPER_DIGIT_SPECIAL
	// FIRST_TO_LOWER_SPECIAL is LOWER_SPECIAL with the first character
	// implicitly upper-cased on decode.
	FIRST_TO_LOWER_SPECIAL
	// ALL_TO_LOWER_SPECIAL is LOWER_SPECIAL with a `|x` escape sequence
	// emitted for every original capital letter.
	ALL_TO_LOWER_SPECIAL
	// NUMERIC is the compact signed-magnitude form for pure decimal-integer
	// strings ("-12345", "0", "7"), the other EXTENDED sub-case in §4.B.
	NUMERIC
)

func (e Encoding) String() string {
	switch e {
	case UTF_8:
		return "UTF_8"
	case LOWER_SPECIAL:
		return "LOWER_SPECIAL"
	case LOWER_UPPER_DIGIT_SPECIAL:
		return "LOWER_UPPER_DIGIT_SPECIAL"
	case FIRST_TO_LOWER_SPECIAL:
		return "FIRST_TO_LOWER_SPECIAL"
	case ALL_TO_LOWER_SPECIAL:
		return "ALL_TO_LOWER_SPECIAL"
	case NUMERIC:
		return "NUMERIC"
	default:
		return "UNKNOWN"
	}
}

// MetaString is the encoded form of an identifier-like string: the packed
// bytes, the encoding used to produce them, and the original character
// length (needed to size the unpack for the fixed-width encodings).
type MetaString struct {
	Original       string
	Encoding       Encoding
	Data           []byte
	OriginalLength int
}

const lowerSpecialChars = "abcdefghijklmnopqrstuvwxyz._$|"

func lowerSpecialIndex(c byte) (int, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	case c == '.':
		return 26, true
	case c == '_':
		return 27, true
	case c == '$':
		return 28, true
	case c == '|':
		return 29, true
	default:
		return 0, false
	}
}

func lowerSpecialChar(v int) byte {
	if v < 26 {
		return 'a' + byte(v)
	}
	return lowerSpecialChars[v]
}

// Encoder produces MetaStrings for one "special character" slot pair — the
// two non-alphanumeric characters the 6-bit alphabet reserves beyond
// lower/upper/digit, e.g. ('.', '_') for namespaces and ('$', '_') for type
// names, matching the two encoder instances the type resolver keeps.
type Encoder struct {
	special1, special2 byte
}

// NewEncoder builds an Encoder whose LOWER_UPPER_DIGIT_SPECIAL alphabet
// reserves special1 and special2 as its two non-alphanumeric slots.
func NewEncoder(special1, special2 byte) *Encoder {
	return &Encoder{special1: special1, special2: special2}
}

func (e *Encoder) sixBitIndex(c byte) (int, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	case c >= 'A' && c <= 'Z':
		return 26 + int(c-'A'), true
	case c >= '0' && c <= '9':
		return 52 + int(c-'0'), true
	case c == e.special1:
		return 62, true
	case c == e.special2:
		return 63, true
	default:
		return 0, false
	}
}

func (e *Encoder) sixBitChar(v int) byte {
	switch {
	case v < 26:
		return 'a' + byte(v)
	case v < 52:
		return 'A' + byte(v-26)
	case v < 62:
		return '0' + byte(v-52)
	case v == 62:
		return e.special1
	default:
		return e.special2
	}
}

// Encode picks the shortest encoding the string's alphabet allows, per the
// ordering in §4.B: numeric strings go to NUMERIC, pure-ASCII identifier
// strings go to one of the LOWER_SPECIAL family, everything else falls back
// to UTF_8.
func (e *Encoder) Encode(s string) (MetaString, error) {
	if s == "" {
		return MetaString{Original: s, Encoding: UTF_8, Data: nil, OriginalLength: 0}, nil
	}
	if isCanonicalDecimal(s) {
		return MetaString{Original: s, Encoding: NUMERIC, Data: encodeNumeric(s), OriginalLength: len(s)}, nil
	}

	allLowerSpecial := true
	allSixBit := true
	upperCount := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			upperCount++
		}
		if _, ok := lowerSpecialIndex(toLowerASCII(c)); !ok {
			allLowerSpecial = false
		}
		if _, ok := e.sixBitIndex(c); !ok {
			allSixBit = false
		}
	}

	if allLowerSpecial && upperCount == 0 {
		return MetaString{Original: s, Encoding: LOWER_SPECIAL, Data: packLowerSpecial(s), OriginalLength: len(s)}, nil
	}

	// ALL_TO_LOWER_SPECIAL is preferred over LOWER_UPPER_DIGIT_SPECIAL when
	// it is strictly smaller: (len+upperCount)*5 < len*6.
	preferAllLower := allLowerSpecial && (len(s)+upperCount)*5 < len(s)*6

	if allLowerSpecial && upperCount == 1 && s[0] >= 'A' && s[0] <= 'Z' {
		rest := string(toLowerASCII(s[0])) + s[1:]
		if _, ok := lowerSpecialIndex(toLowerASCII(s[0])); ok {
			return MetaString{Original: s, Encoding: FIRST_TO_LOWER_SPECIAL, Data: packLowerSpecial(rest), OriginalLength: len(s)}, nil
		}
	}

	if allLowerSpecial && preferAllLower {
		escaped := escapeAllToLower(s)
		return MetaString{Original: s, Encoding: ALL_TO_LOWER_SPECIAL, Data: packLowerSpecial(escaped), OriginalLength: len(s)}, nil
	}

	if allSixBit {
		return MetaString{Original: s, Encoding: LOWER_UPPER_DIGIT_SPECIAL, Data: e.packSixBit(s), OriginalLength: len(s)}, nil
	}

	if allLowerSpecial {
		escaped := escapeAllToLower(s)
		return MetaString{Original: s, Encoding: ALL_TO_LOWER_SPECIAL, Data: packLowerSpecial(escaped), OriginalLength: len(s)}, nil
	}

	return MetaString{Original: s, Encoding: UTF_8, Data: []byte(s), OriginalLength: len(s)}, nil
}

func toLowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func escapeAllToLower(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteByte('|')
			b.WriteByte(c + ('a' - 'A'))
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Decoder reverses an Encoder's output; it must be constructed with the
// same special-character pair used to encode.
type Decoder struct {
	special1, special2 byte
}

// NewDecoder builds a Decoder matching an Encoder created with the same
// special character pair.
func NewDecoder(special1, special2 byte) *Decoder {
	return &Decoder{special1: special1, special2: special2}
}

// Decode reconstructs the original string from a MetaString's Data, under
// the given Encoding and original character count.
func (d *Decoder) Decode(data []byte, encoding Encoding, originalLength int) (string, error) {
	switch encoding {
	case UTF_8:
		return string(data), nil
	case NUMERIC:
		return decodeNumeric(data)
	case LOWER_SPECIAL:
		return unpackLowerSpecial(data, originalLength)
	case FIRST_TO_LOWER_SPECIAL:
		s, err := unpackLowerSpecial(data, originalLength)
		if err != nil {
			return "", err
		}
		if s == "" {
			return s, nil
		}
		return string(s[0]-('a'-'A')) + s[1:], nil
	case ALL_TO_LOWER_SPECIAL:
		escapedLen := originalLength
		// originalLength counts decoded characters; the escaped
		// intermediate string is longer by one byte per '|' sequence, so
		// unpack greedily until the escape sequences are all consumed.
		s, err := unpackLowerSpecialUnbounded(data, escapedLen)
		if err != nil {
			return "", err
		}
		return unescapeAllToLower(s), nil
	case LOWER_UPPER_DIGIT_SPECIAL:
		e := &Encoder{special1: d.special1, special2: d.special2}
		return unpackSixBit(data, originalLength, e)
	default:
		return "", fmt.Errorf("meta: unknown encoding tag %d", encoding)
	}
}

func unescapeAllToLower(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '|' && i+1 < len(s) {
			b.WriteByte(s[i+1] - ('a' - 'A'))
			i++
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ---- numeric (EXTENDED/compact-decimal) ----

func isCanonicalDecimal(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' {
		i = 1
		if len(s) == 1 {
			return false
		}
	}
	if s[i] == '0' && len(s)-i > 1 {
		return false // leading zero, not canonical
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func encodeNumeric(s string) []byte {
	n := new(big.Int)
	n.SetString(s, 10)
	if n.Sign() == 0 {
		return []byte{0}
	}
	return twosComplementBytes(n)
}

func decodeNumeric(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("meta: empty numeric payload")
	}
	n := bigFromTwosComplement(data)
	return n.String(), nil
}

// twosComplementBytes returns the minimal big-endian two's-complement
// representation of n, including a sign byte when needed.
func twosComplementBytes(n *big.Int) []byte {
	if n.Sign() >= 0 {
		b := n.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// two's complement of a negative number: invert magnitude bits then add 1,
	// sized to the smallest byte count whose top bit can represent the sign.
	mag := new(big.Int).Neg(n)
	magBytes := mag.Bytes()
	size := len(magBytes)
	if size == 0 || magBytes[0]&0x80 != 0 {
		size++
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(size*8))
	comp := new(big.Int).Add(full, n)
	b := comp.Bytes()
	for len(b) < size {
		b = append([]byte{0}, b...)
	}
	return b
}

func bigFromTwosComplement(data []byte) *big.Int {
	n := new(big.Int).SetBytes(data)
	if data[0]&0x80 != 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(len(data)*8))
		n.Sub(n, full)
	}
	return n
}

// ---- bit packing ----

type bitWriter struct {
	bits []bool
}

func (w *bitWriter) writeBit(v bool) { w.bits = append(w.bits, v) }

func (w *bitWriter) writeBits(v int, width int) {
	for i := width - 1; i >= 0; i-- {
		w.writeBit(v&(1<<uint(i)) != 0)
	}
}

func (w *bitWriter) bytes() []byte {
	out := make([]byte, (len(w.bits)+7)/8)
	for i, bit := range w.bits {
		if bit {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) readBit() bool {
	b := r.data[r.pos/8]&(1<<uint(7-r.pos%8)) != 0
	r.pos++
	return b
}

func (r *bitReader) readBits(width int) int {
	v := 0
	for i := 0; i < width; i++ {
		v <<= 1
		if r.readBit() {
			v |= 1
		}
	}
	return v
}

func pack(codes []int, bitsPerChar int) []byte {
	w := &bitWriter{}
	w.writeBit(false) // placeholder strip_last_char flag
	for _, c := range codes {
		w.writeBits(c, bitsPerChar)
	}
	totalBytes := (len(w.bits) + 7) / 8
	possibleChars := (totalBytes*8 - 1) / bitsPerChar
	strip := possibleChars > len(codes)
	out := w.bytes()
	if strip {
		out[0] |= 0x80 // bit index 0 is the MSB of the first byte
	}
	return out
}

func unpack(data []byte, bitsPerChar int, count int) []int {
	r := &bitReader{data: data}
	_ = r.readBit() // strip_last_char flag, consumed by caller via count
	codes := make([]int, count)
	for i := range codes {
		codes[i] = r.readBits(bitsPerChar)
	}
	return codes
}

func packLowerSpecial(s string) []byte {
	codes := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		idx, _ := lowerSpecialIndex(s[i])
		codes[i] = idx
	}
	return pack(codes, 5)
}

func unpackLowerSpecial(data []byte, count int) (string, error) {
	codes := unpack(data, 5, count)
	b := make([]byte, count)
	for i, c := range codes {
		b[i] = lowerSpecialChar(c)
	}
	return string(b), nil
}

// unpackLowerSpecialUnbounded decodes the ALL_TO_LOWER_SPECIAL escaped
// intermediate string, whose length (original + one byte per capital) isn't
// known up front; it decodes available 5-bit slots and trims trailing
// padding artifacts using the strip_last_char flag recorded in bit 0.
func unpackLowerSpecialUnbounded(data []byte, minLen int) (string, error) {
	r := &bitReader{data: data}
	strip := r.readBit()
	totalBits := len(data)*8 - 1
	maxChars := totalBits / 5
	if strip && maxChars > 0 {
		maxChars--
	}
	b := make([]byte, maxChars)
	for i := 0; i < maxChars; i++ {
		b[i] = lowerSpecialChar(r.readBits(5))
	}
	return string(b), nil
}

func (e *Encoder) packSixBit(s string) []byte {
	codes := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		idx, _ := e.sixBitIndex(s[i])
		codes[i] = idx
	}
	return pack(codes, 6)
}

func unpackSixBit(data []byte, count int, e *Encoder) (string, error) {
	codes := unpack(data, 6, count)
	b := make([]byte, count)
	for i, c := range codes {
		b[i] = e.sixBitChar(c)
	}
	return string(b), nil
}

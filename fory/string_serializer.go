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
	"encoding/binary"
	"reflect"
	"unicode/utf16"
)

// String size-class tag, §4.G: a 1-byte tag precedes every string payload.
// Its top 2 bits pick the byte encoding (Latin-1/UTF-16-LE/UTF-8); its low
// 6 bits either carry the payload's byte length directly (0-62) or, when
// all six bits are set, signal that a varuint length follows.
const (
	stringClassLatin1  byte = 0 << 6
	stringClassUTF16LE byte = 1 << 6
	stringClassUTF8    byte = 2 << 6

	stringClassMask       byte = 0xC0
	stringSmallLenMask    byte = 0x3F
	stringSmallLenEscape  byte = 0x3F
)

// stringSerializer writes Go strings with the size-class tag byte, choosing
// the first of three encodings that can hold every rune: Latin-1 when
// every rune fits a byte, else UTF-16-LE when every rune fits the Basic
// Multilingual Plane, else raw UTF-8. The choice is by rune range, not by
// payload size, so mostly-ASCII text with one BMP rune above 0xFF takes two
// bytes per character. It does
// not use the meta-string codec (§4.B): that codec is reserved for
// identifier-like strings the resolver interns (type names, field names,
// namespaces), while ordinary string field values are arbitrary text.
type stringSerializer struct{}

func (stringSerializer) TypeId() TypeId { return STRING }

func (s stringSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}

func (stringSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	class, payload := encodeStringPayload(value.String())
	n := len(payload)
	if n < int(stringSmallLenEscape) {
		ctx.buf.WriteByte_(class | byte(n))
	} else {
		ctx.buf.WriteByte_(class | stringSmallLenEscape)
		ctx.buf.WriteVarUint32(uint32(n))
	}
	ctx.buf.WriteBinary(payload)
}

func (s stringSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, resolved, refID, hasID := readRefHeader(ctx, refMode, readType)
	if skip {
		if value.IsValid() && value.CanSet() && resolved.IsValid() {
			value.Set(resolved)
		}
		return
	}
	s.ReadData(ctx, nil, value)
	if hasID {
		ctx.refs.SetReadObject(refID, value)
	}
}

func (stringSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	tag := ctx.buf.ReadByte_()
	class := tag & stringClassMask
	small := tag & stringSmallLenMask
	n := int(small)
	if small == stringSmallLenEscape {
		n = int(ctx.buf.ReadVarUint32())
	}
	payload := ctx.buf.ReadBinary(n)
	str, err := decodeStringPayload(class, payload)
	if err != nil {
		ctx.SetError(FromError(err))
		return
	}
	if value.IsValid() && value.CanSet() {
		value.SetString(str)
	}
}

// encodeStringPayload picks s's wire size-class and returns its encoded
// bytes.
func encodeStringPayload(s string) (byte, []byte) {
	if isLatin1(s) {
		return stringClassLatin1, encodeLatin1(s)
	}
	if isBasicMultilingualPlane(s) {
		return stringClassUTF16LE, encodeUTF16LE(s)
	}
	return stringClassUTF8, []byte(s)
}

func decodeStringPayload(class byte, payload []byte) (string, error) {
	switch class {
	case stringClassLatin1:
		return decodeLatin1(payload), nil
	case stringClassUTF16LE:
		return decodeUTF16LE(payload)
	case stringClassUTF8:
		return string(payload), nil
	default:
		return "", malformedInputError("string size-class %#x not recognized", class)
	}
}

func isLatin1(s string) bool {
	for _, r := range s {
		if r > 0xFF {
			return false
		}
	}
	return true
}

func encodeLatin1(s string) []byte {
	runes := []rune(s)
	out := make([]byte, len(runes))
	for i, r := range runes {
		out[i] = byte(r)
	}
	return out
}

func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func isBasicMultilingualPlane(s string) bool {
	for _, r := range s {
		if r > 0xFFFF {
			return false
		}
	}
	return true
}

func encodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

func decodeUTF16LE(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", malformedInputError("utf-16-le string payload has odd length %d", len(data))
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return string(utf16.Decode(units)), nil
}

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
	"github.com/apache/fory-go/fory/meta"
	"github.com/spaolacci/murmur3"
)

// longMetaStringThreshold is the length (in encoded bytes) above which a
// meta-string is hash-prefixed on the wire instead of compared by id alone.
const longMetaStringThreshold = 16

// MetaStringBytes is the wire-ready form of a meta.MetaString: its packed
// payload plus the bookkeeping the resolver needs to intern and re-emit it
// by reference on later occurrences.
type MetaStringBytes struct {
	Data     []byte
	Encoding meta.Encoding
	Hashcode uint64
	Length   int
}

// MetaStringResolver is the per-stream interning table described in §4.C:
// a meta-string is written in full the first time it's seen in a call and
// by a small back-reference id on every later occurrence.
type MetaStringResolver struct {
	writtenStrings map[uint64]uint32
	writtenOrder   []*MetaStringBytes
	readStrings    []*MetaStringBytes
}

// NewMetaStringResolver constructs an empty per-call resolver.
func NewMetaStringResolver() *MetaStringResolver {
	return &MetaStringResolver{
		writtenStrings: make(map[uint64]uint32),
	}
}

// GetMetaStrBytes wraps an encoded meta.MetaString with its hash, computed
// eagerly (murmur3 over the encoding byte followed by the packed data).
func (r *MetaStringResolver) GetMetaStrBytes(ms *meta.MetaString) *MetaStringBytes {
	if ms == nil {
		return nil
	}
	h := murmur3.Sum64(append([]byte{byte(ms.Encoding)}, ms.Data...))
	return &MetaStringBytes{
		Data:     ms.Data,
		Encoding: ms.Encoding,
		Hashcode: h,
		Length:   ms.OriginalLength,
	}
}

// WriteMetaStringBytes writes msb to buf, emitting a back-reference if this
// exact meta-string was already written earlier in the same call.
func (r *MetaStringResolver) WriteMetaStringBytes(buf *ByteBuffer, msb *MetaStringBytes) error {
	if msb == nil {
		buf.WriteVarUint32(0)
		return nil
	}
	if id, ok := r.writtenStrings[msb.Hashcode]; ok {
		buf.WriteVarUint32((id << 1) | 1)
		return nil
	}
	id := uint32(len(r.writtenOrder)) + 1
	r.writtenStrings[msb.Hashcode] = id
	r.writtenOrder = append(r.writtenOrder, msb)

	buf.WriteVarUint32(uint32(len(msb.Data)) << 1)
	buf.WriteByte_(byte(msb.Encoding))
	if len(msb.Data) > longMetaStringThreshold {
		buf.WriteUint64(msb.Hashcode)
	}
	buf.WriteVarUint32(uint32(msb.Length))
	buf.WriteBinary(msb.Data)
	return nil
}

// ReadMetaStringBytes mirrors WriteMetaStringBytes.
func (r *MetaStringResolver) ReadMetaStringBytes(buf *ByteBuffer) (*MetaStringBytes, error) {
	header := buf.ReadVarUint32()
	if header == 0 {
		return nil, nil
	}
	if header&1 == 1 {
		id := header >> 1
		if int(id) > len(r.readStrings) || id == 0 {
			return nil, invalidReferenceError("meta-string ref id %d out of range", id)
		}
		return r.readStrings[id-1], nil
	}
	length := int(header >> 1)
	encoding := meta.Encoding(buf.ReadByte_())
	var hash uint64
	if length > longMetaStringThreshold {
		hash = buf.ReadUint64()
	}
	originalLength := int(buf.ReadVarUint32())
	data := buf.ReadBinary(length)
	if hash == 0 {
		hash = murmur3.Sum64(append([]byte{byte(encoding)}, data...))
	}
	msb := &MetaStringBytes{Data: data, Encoding: encoding, Hashcode: hash, Length: originalLength}
	r.readStrings = append(r.readStrings, msb)
	return msb, nil
}

// Reset clears the per-call intern tables so an instance can be reused.
// Fory itself allocates a fresh resolver for every Serialize/Deserialize
// call (see newWriteContext/newReadContext).
func (r *MetaStringResolver) Reset() {
	for k := range r.writtenStrings {
		delete(r.writtenStrings, k)
	}
	r.writtenOrder = r.writtenOrder[:0]
	r.readStrings = r.readStrings[:0]
}

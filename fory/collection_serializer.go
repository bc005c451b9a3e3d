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

// ptrSerializer adapts a Serializer for T to *T, dereferencing on write and
// allocating a fresh T on read. Nullability of the pointer itself is carried
// by the surrounding refMode (RefModeTracking/RefModeNullOnly), not here.
type ptrSerializer struct {
	elem     Serializer
	elemType reflect.Type
}

func (p *ptrSerializer) TypeId() TypeId { return p.elem.TypeId() }

func (p *ptrSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, p, refMode, writeType, value) {
		return
	}
	p.WriteData(ctx, value)
}

func (p *ptrSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	p.elem.WriteData(ctx, value.Elem())
}

func (p *ptrSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, resolved, refID, hasID := readRefHeader(ctx, refMode, readType)
	if skip {
		if value.IsValid() && value.CanSet() && resolved.IsValid() {
			value.Set(resolved)
		}
		return
	}
	if value.IsValid() && value.CanSet() && value.IsNil() {
		value.Set(reflect.New(p.elemType))
	}
	// Register the freshly allocated pointer before decoding what it points
	// to: a self-referential payload (value.Elem() containing a pointer back
	// to value itself) resolves by looking this id up mid-decode.
	if hasID {
		ctx.refs.SetReadObject(refID, value)
	}
	if value.IsValid() {
		p.elem.ReadData(ctx, p.elemType, value.Elem())
	}
}

func (p *ptrSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	if value.IsValid() && value.CanSet() {
		if value.IsNil() {
			value.Set(reflect.New(p.elemType))
		}
		p.elem.ReadData(ctx, p.elemType, value.Elem())
	}
}

// collectionChunkSize bounds how many elements a single chunk covers (§4.H):
// long collections are split across several chunks rather than growing one
// chunk's null mask and size field without bound.
const collectionChunkSize = 255

// Chunk header flags, §4.H. A chunk header is a single byte: the low 4 bits
// are these flags; the high 4 bits are a 4-bit inline chunk size or 0,
// meaning "a varuint size follows" — this implementation always takes the
// varuint form, which §4.H explicitly allows ("decoder MUST accept any
// valid chunk partition").
const (
	chunkFlagSameType          byte = 1 << 0
	chunkFlagHasNull           byte = 1 << 1
	chunkFlagTrackRef          byte = 1 << 2
	chunkFlagDeclaredTypeFinal byte = 1 << 3
)

func writeChunkHeader(buf *ByteBuffer, flags byte, size int) {
	buf.WriteByte_(flags)
	buf.WriteVarUint32(uint32(size))
}

func readChunkHeader(buf *ByteBuffer) (flags byte, size int) {
	flags = buf.ReadByte_()
	size = int(buf.ReadVarUint32())
	return flags, size
}

// writeNullMask packs one bit per element, LSB first, set when that element
// is null.
func writeNullMask(buf *ByteBuffer, isNull []bool) {
	mask := make([]byte, (len(isNull)+7)/8)
	for i, null := range isNull {
		if null {
			mask[i/8] |= 1 << uint(i%8)
		}
	}
	buf.WriteBinary(mask)
}

func readNullMask(buf *ByteBuffer, n int) []bool {
	mask := buf.ReadBinary((n + 7) / 8)
	out := make([]bool, n)
	for i := range out {
		out[i] = mask[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

// listSerializer writes a slice or array as a chunked sequence, §4.H: a
// statically-typed element (elemSerializer set) never needs type info on
// the wire, so its chunks exist only to bound the null-mask/ref-tracking
// block; a dynamically-typed element (elemSerializer nil, e.g. []interface{})
// is partitioned into maximal runs of one concrete type, each run becoming
// one same_type chunk with its type info written once.
type listSerializer struct {
	type_          reflect.Type
	elemSerializer Serializer
	elemType       reflect.Type
}

func (l *listSerializer) TypeId() TypeId { return LIST }

func (l *listSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, l, refMode, writeType, value) {
		return
	}
	l.WriteData(ctx, value)
}

func (l *listSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	n := value.Len()
	ctx.buf.WriteVarUint32(uint32(n))
	if n == 0 {
		return
	}
	if l.elemSerializer != nil {
		l.writeHomogeneousChunks(ctx, value, n)
		return
	}
	l.writeDynamicChunks(ctx, value, n)
}

func (l *listSerializer) writeHomogeneousChunks(ctx *WriteContext, value reflect.Value, n int) {
	trackRef := isRefTrackedKind(l.elemType.Kind())
	nullable := trackRef
	for start := 0; start < n; start += collectionChunkSize {
		end := start + collectionChunkSize
		if end > n {
			end = n
		}
		size := end - start
		flags := chunkFlagSameType | chunkFlagDeclaredTypeFinal
		if nullable {
			flags |= chunkFlagHasNull
		}
		if trackRef {
			flags |= chunkFlagTrackRef
		}
		writeChunkHeader(ctx.buf, flags, size)
		if nullable {
			isNull := make([]bool, size)
			for i := 0; i < size; i++ {
				isNull[i] = value.Index(start + i).IsNil()
			}
			writeNullMask(ctx.buf, isNull)
		}
		for i := start; i < end; i++ {
			ev := value.Index(i)
			if nullable && ev.IsNil() {
				continue
			}
			if trackRef {
				done, err := ctx.refs.WriteRefOrNull(ctx.buf, ev)
				if err != nil {
					ctx.SetError(FromError(err))
					return
				}
				if done {
					continue
				}
			}
			l.elemSerializer.WriteData(ctx, ev)
			if ctx.HasError() {
				return
			}
		}
	}
}

// writeDynamicChunks partitions n interface-typed elements into maximal
// runs sharing one (is-null, concrete-type) pair and writes each run as one
// same_type chunk.
func (l *listSerializer) writeDynamicChunks(ctx *WriteContext, value reflect.Value, n int) {
	start := 0
	for start < n {
		first := derefForTypeInfo(value.Index(start))
		firstNull := !first.IsValid()
		var firstType reflect.Type
		if !firstNull {
			firstType = first.Type()
		}
		end := start + 1
		for end < n && end-start < collectionChunkSize {
			dv := derefForTypeInfo(value.Index(end))
			if !dv.IsValid() != firstNull {
				break
			}
			if !firstNull && dv.Type() != firstType {
				break
			}
			end++
		}
		size := end - start

		if firstNull {
			isNull := make([]bool, size)
			for i := range isNull {
				isNull[i] = true
			}
			writeChunkHeader(ctx.buf, chunkFlagSameType|chunkFlagHasNull, size)
			writeNullMask(ctx.buf, isNull)
			start = end
			continue
		}

		trackRef := isRefTrackedKind(firstType.Kind())
		flags := chunkFlagSameType
		if trackRef {
			flags |= chunkFlagTrackRef
		}
		writeChunkHeader(ctx.buf, flags, size)
		info, err := ctx.TypeResolver().GetTypeInfoByGoType(first)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		if err := ctx.TypeResolver().WriteTypeInfo(ctx.buf, info, ctx.MetaStrings()); err != nil {
			ctx.SetError(FromError(err))
			return
		}
		for i := start; i < end; i++ {
			dv := derefForTypeInfo(value.Index(i))
			if trackRef {
				done, err := ctx.refs.WriteRefOrNull(ctx.buf, dv)
				if err != nil {
					ctx.SetError(FromError(err))
					return
				}
				if done {
					continue
				}
			}
			info.Serializer.WriteData(ctx, dv)
			if ctx.HasError() {
				return
			}
		}
		start = end
	}
}

func derefForTypeInfo(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Interface {
		return v.Elem()
	}
	return v
}

// writeDynamicValue writes a single element whose concrete type isn't known
// until the value is inspected (an interface-typed struct field, or a map
// key/value whose declared type is interface{}): a reference byte, then
// (for a new, non-null value) its full type info and payload. Mirrored by
// readDynamicValue. Collection elements use writeDynamicChunks/
// readDynamicChunks instead, which batch this same information across a
// whole chunk rather than one element at a time.
func writeDynamicValue(ctx *WriteContext, v reflect.Value) {
	dv := derefForTypeInfo(v)
	if !dv.IsValid() {
		ctx.buf.WriteInt8(NullFlag)
		return
	}
	done, err := ctx.refs.WriteRefOrNull(ctx.buf, dv)
	if err != nil {
		ctx.SetError(FromError(err))
		return
	}
	if done {
		return
	}
	info, err := ctx.TypeResolver().GetTypeInfoByGoType(dv)
	if err != nil {
		ctx.SetError(FromError(err))
		return
	}
	if err := ctx.TypeResolver().WriteTypeInfo(ctx.buf, info, ctx.MetaStrings()); err != nil {
		ctx.SetError(FromError(err))
		return
	}
	info.Serializer.WriteData(ctx, dv)
}

// readDynamicValue mirrors writeDynamicValue: it consumes the reference byte
// and, for a fresh value, its type info and payload, returning the decoded
// value (or the zero Value for null/unresolved).
func readDynamicValue(ctx *ReadContext) reflect.Value {
	flag, id, err := ctx.refs.TryPreserveRefId(ctx.buf)
	if err != nil {
		ctx.SetError(FromError(err))
		return reflect.Value{}
	}
	switch flag {
	case NullFlag:
		return reflect.Value{}
	case RefFlag:
		return ctx.refs.GetReadObject(id)
	}
	info, err := ctx.TypeResolver().ReadTypeInfo(ctx.buf, ctx.MetaStrings())
	if err != nil {
		ctx.SetError(FromError(err))
		return reflect.Value{}
	}
	v := reflect.New(info.Type).Elem()
	info.Serializer.ReadData(ctx, info.Type, v)
	if flag == RefValueFlag {
		ctx.refs.SetReadObject(id, v)
	}
	return v
}

func (l *listSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, resolved, refID, hasID := readRefHeader(ctx, refMode, readType)
	if skip {
		if value.IsValid() && value.CanSet() && resolved.IsValid() {
			value.Set(resolved)
		}
		return
	}
	type_ := l.type_
	if type_ == nil && value.IsValid() {
		type_ = value.Type()
	}
	n := int(ctx.buf.ReadVarUint32())
	slice := reflect.MakeSlice(type_, n, n)
	// Register the slice (its backing array already exists) before filling
	// elements, so a self-referential element decoded below resolves to the
	// same backing storage instead of a not-yet-built placeholder.
	if hasID {
		ctx.refs.SetReadObject(refID, slice)
	}
	l.fillSlice(ctx, slice, n)
	if value.IsValid() && value.CanSet() {
		value.Set(slice)
	}
}

func (l *listSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	n := int(ctx.buf.ReadVarUint32())
	if type_ == nil {
		type_ = l.type_
	}
	slice := reflect.MakeSlice(type_, n, n)
	l.fillSlice(ctx, slice, n)
	if value.IsValid() && value.CanSet() {
		value.Set(slice)
	}
}

func (l *listSerializer) fillSlice(ctx *ReadContext, slice reflect.Value, n int) {
	if n == 0 {
		return
	}
	if l.elemSerializer != nil {
		l.readHomogeneousChunks(ctx, slice, n)
		return
	}
	l.readDynamicChunks(ctx, slice, n)
}

func (l *listSerializer) readHomogeneousChunks(ctx *ReadContext, slice reflect.Value, n int) {
	idx := 0
	for idx < n {
		flags, size := readChunkHeader(ctx.buf)
		nullable := flags&chunkFlagHasNull != 0
		trackRef := flags&chunkFlagTrackRef != 0
		var isNull []bool
		if nullable {
			isNull = readNullMask(ctx.buf, size)
		}
		for i := 0; i < size; i++ {
			ev := slice.Index(idx)
			slot := i
			idx++
			if nullable && isNull[slot] {
				continue
			}
			if trackRef {
				flag, id, err := ctx.refs.TryPreserveRefId(ctx.buf)
				if err != nil {
					ctx.SetError(FromError(err))
					return
				}
				if flag == RefFlag {
					resolved := ctx.refs.GetReadObject(id)
					if resolved.IsValid() && ev.CanSet() {
						ev.Set(resolved)
					}
					continue
				}
				l.elemSerializer.ReadData(ctx, l.elemType, ev)
				if ctx.HasError() {
					return
				}
				if flag == RefValueFlag {
					ctx.refs.SetReadObject(id, ev)
				}
				continue
			}
			l.elemSerializer.ReadData(ctx, l.elemType, ev)
			if ctx.HasError() {
				return
			}
		}
	}
}

func (l *listSerializer) readDynamicChunks(ctx *ReadContext, slice reflect.Value, n int) {
	idx := 0
	for idx < n {
		flags, size := readChunkHeader(ctx.buf)
		hasNull := flags&chunkFlagHasNull != 0
		trackRef := flags&chunkFlagTrackRef != 0
		if hasNull {
			readNullMask(ctx.buf, size)
			idx += size
			continue
		}
		info, err := ctx.TypeResolver().ReadTypeInfo(ctx.buf, ctx.MetaStrings())
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		for i := 0; i < size; i++ {
			ev := slice.Index(idx)
			idx++
			if trackRef {
				flag, id, err := ctx.refs.TryPreserveRefId(ctx.buf)
				if err != nil {
					ctx.SetError(FromError(err))
					return
				}
				if flag == RefFlag {
					resolved := ctx.refs.GetReadObject(id)
					if resolved.IsValid() && ev.CanSet() {
						ev.Set(resolved)
					}
					continue
				}
				v := reflect.New(info.Type).Elem()
				info.Serializer.ReadData(ctx, info.Type, v)
				if ctx.HasError() {
					return
				}
				if flag == RefValueFlag {
					ctx.refs.SetReadObject(id, v)
				}
				if ev.CanSet() {
					ev.Set(v)
				}
				continue
			}
			v := reflect.New(info.Type).Elem()
			info.Serializer.ReadData(ctx, info.Type, v)
			if ctx.HasError() {
				return
			}
			if ev.CanSet() {
				ev.Set(v)
			}
		}
	}
}

// dynDescriptor groups a dynamically-typed map key or value by (is-null,
// concrete-type) so mapSerializer can find maximal same-type runs exactly
// like writeDynamicChunks does for lists.
type dynDescriptor struct {
	isNull bool
	type_  reflect.Type
}

func describeDynamic(ser Serializer, v reflect.Value) dynDescriptor {
	if ser != nil {
		return dynDescriptor{}
	}
	dv := derefForTypeInfo(v)
	if !dv.IsValid() {
		return dynDescriptor{isNull: true}
	}
	return dynDescriptor{type_: dv.Type()}
}

// mapSerializer writes a Go map as count-prefixed chunks, §4.H: each chunk
// carries two independent flag groups, one for the key component and one
// for the value component, and covers a maximal run of entries whose key
// and value both keep the same (is-null, concrete-type) shape.
type mapSerializer struct {
	type_           reflect.Type
	keySerializer   Serializer
	valueSerializer Serializer
	keyType         reflect.Type
	valueType       reflect.Type
}

func (m *mapSerializer) TypeId() TypeId { return MAP }

func (m *mapSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, m, refMode, writeType, value) {
		return
	}
	m.WriteData(ctx, value)
}

func (m *mapSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	keys := value.MapKeys()
	n := len(keys)
	ctx.buf.WriteVarUint32(uint32(n))
	if n == 0 {
		return
	}
	vals := make([]reflect.Value, n)
	for i, k := range keys {
		vals[i] = value.MapIndex(k)
	}
	m.writeEntryChunks(ctx, keys, vals)
}

func (m *mapSerializer) writeEntryChunks(ctx *WriteContext, keys, vals []reflect.Value) {
	n := len(keys)
	start := 0
	for start < n {
		kDesc := describeDynamic(m.keySerializer, keys[start])
		vDesc := describeDynamic(m.valueSerializer, vals[start])
		end := start + 1
		for end < n && end-start < collectionChunkSize {
			if m.keySerializer == nil && describeDynamic(m.keySerializer, keys[end]) != kDesc {
				break
			}
			if m.valueSerializer == nil && describeDynamic(m.valueSerializer, vals[end]) != vDesc {
				break
			}
			end++
		}
		m.writeChunk(ctx, keys[start:end], vals[start:end], kDesc, vDesc)
		if ctx.HasError() {
			return
		}
		start = end
	}
}

// componentFlags computes one side's (key or value) chunk flags. sameType
// is always set: every chunk this encoder emits, static or dynamic, covers
// a single concrete type by construction.
func componentFlags(ser Serializer, type_ reflect.Type, desc dynDescriptor) (flags byte, trackRef bool) {
	flags = chunkFlagSameType
	if ser != nil {
		flags |= chunkFlagDeclaredTypeFinal
		if isRefTrackedKind(type_.Kind()) {
			flags |= chunkFlagHasNull
			trackRef = true
		}
	} else if desc.isNull {
		flags |= chunkFlagHasNull
	} else {
		trackRef = isRefTrackedKind(desc.type_.Kind())
	}
	if trackRef {
		flags |= chunkFlagTrackRef
	}
	return flags, trackRef
}

func componentNullMask(ser Serializer, vals []reflect.Value) []bool {
	out := make([]bool, len(vals))
	if ser != nil {
		for i, v := range vals {
			out[i] = isRefTrackedKind(v.Kind()) && v.IsNil()
		}
		return out
	}
	for i := range out {
		out[i] = true // a dynamic null run is wholly null by partition construction
	}
	return out
}

func (m *mapSerializer) writeChunk(ctx *WriteContext, keys, vals []reflect.Value, kDesc, vDesc dynDescriptor) {
	size := len(keys)
	keyFlags, keyTrackRef := componentFlags(m.keySerializer, m.keyType, kDesc)
	valFlags, valTrackRef := componentFlags(m.valueSerializer, m.valueType, vDesc)
	ctx.buf.WriteByte_(keyFlags)
	ctx.buf.WriteByte_(valFlags)
	ctx.buf.WriteVarUint32(uint32(size))

	if keyFlags&chunkFlagHasNull != 0 {
		writeNullMask(ctx.buf, componentNullMask(m.keySerializer, keys))
	}
	if valFlags&chunkFlagHasNull != 0 {
		writeNullMask(ctx.buf, componentNullMask(m.valueSerializer, vals))
	}

	var keyInfo, valInfo *TypeInfo
	if m.keySerializer == nil && !kDesc.isNull {
		info, err := ctx.TypeResolver().GetTypeInfoByGoType(derefForTypeInfo(keys[0]))
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		if err := ctx.TypeResolver().WriteTypeInfo(ctx.buf, info, ctx.MetaStrings()); err != nil {
			ctx.SetError(FromError(err))
			return
		}
		keyInfo = info
	}
	if m.valueSerializer == nil && !vDesc.isNull {
		info, err := ctx.TypeResolver().GetTypeInfoByGoType(derefForTypeInfo(vals[0]))
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		if err := ctx.TypeResolver().WriteTypeInfo(ctx.buf, info, ctx.MetaStrings()); err != nil {
			ctx.SetError(FromError(err))
			return
		}
		valInfo = info
	}

	for i := 0; i < size; i++ {
		m.writeComponentEntry(ctx, m.keySerializer, keyInfo, keyTrackRef, keys[i])
		if ctx.HasError() {
			return
		}
		m.writeComponentEntry(ctx, m.valueSerializer, valInfo, valTrackRef, vals[i])
		if ctx.HasError() {
			return
		}
	}
}

func (m *mapSerializer) writeComponentEntry(ctx *WriteContext, ser Serializer, info *TypeInfo, trackRef bool, v reflect.Value) {
	if ser != nil {
		if isRefTrackedKind(v.Kind()) && v.IsNil() {
			return // already recorded in the chunk's null mask
		}
		if trackRef {
			done, err := ctx.refs.WriteRefOrNull(ctx.buf, v)
			if err != nil {
				ctx.SetError(FromError(err))
				return
			}
			if done {
				return
			}
		}
		ser.WriteData(ctx, v)
		return
	}
	dv := derefForTypeInfo(v)
	if !dv.IsValid() {
		return // already recorded in the chunk's null mask
	}
	if trackRef {
		done, err := ctx.refs.WriteRefOrNull(ctx.buf, dv)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		if done {
			return
		}
	}
	info.Serializer.WriteData(ctx, dv)
}

func (m *mapSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, resolved, refID, hasID := readRefHeader(ctx, refMode, readType)
	if skip {
		if value.IsValid() && value.CanSet() && resolved.IsValid() {
			value.Set(resolved)
		}
		return
	}
	type_ := m.type_
	if type_ == nil && value.IsValid() {
		type_ = value.Type()
	}
	n := int(ctx.buf.ReadVarUint32())
	out := reflect.MakeMapWithSize(type_, n)
	// Register the map before filling entries, mirroring listSerializer.Read:
	// a self-referential entry decoded below must see this same map, not a
	// placeholder.
	if hasID {
		ctx.refs.SetReadObject(refID, out)
	}
	m.fillMap(ctx, out, n)
	if value.IsValid() && value.CanSet() {
		value.Set(out)
	}
}

func (m *mapSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	if type_ == nil {
		type_ = m.type_
	}
	n := int(ctx.buf.ReadVarUint32())
	out := reflect.MakeMapWithSize(type_, n)
	m.fillMap(ctx, out, n)
	if value.IsValid() && value.CanSet() {
		value.Set(out)
	}
}

func (m *mapSerializer) fillMap(ctx *ReadContext, out reflect.Value, n int) {
	if n == 0 {
		return
	}
	filled := 0
	for filled < n {
		keyFlags := ctx.buf.ReadByte_()
		valFlags := ctx.buf.ReadByte_()
		size := int(ctx.buf.ReadVarUint32())

		var keyNullMask, valNullMask []bool
		if keyFlags&chunkFlagHasNull != 0 {
			keyNullMask = readNullMask(ctx.buf, size)
		}
		if valFlags&chunkFlagHasNull != 0 {
			valNullMask = readNullMask(ctx.buf, size)
		}

		var keyInfo, valInfo *TypeInfo
		if m.keySerializer == nil && keyFlags&chunkFlagHasNull == 0 {
			info, err := ctx.TypeResolver().ReadTypeInfo(ctx.buf, ctx.MetaStrings())
			if err != nil {
				ctx.SetError(FromError(err))
				return
			}
			keyInfo = info
		}
		if m.valueSerializer == nil && valFlags&chunkFlagHasNull == 0 {
			info, err := ctx.TypeResolver().ReadTypeInfo(ctx.buf, ctx.MetaStrings())
			if err != nil {
				ctx.SetError(FromError(err))
				return
			}
			valInfo = info
		}

		for i := 0; i < size; i++ {
			keyNull := keyNullMask != nil && keyNullMask[i]
			valNull := valNullMask != nil && valNullMask[i]
			k := m.readComponentEntry(ctx, m.keySerializer, keyInfo, m.keyType, keyFlags&chunkFlagTrackRef != 0, keyNull)
			if ctx.HasError() {
				return
			}
			v := m.readComponentEntry(ctx, m.valueSerializer, valInfo, m.valueType, valFlags&chunkFlagTrackRef != 0, valNull)
			if ctx.HasError() {
				return
			}
			if k.IsValid() && v.IsValid() {
				out.SetMapIndex(k, v)
			}
			filled++
		}
	}
}

func (m *mapSerializer) readComponentEntry(ctx *ReadContext, ser Serializer, info *TypeInfo, type_ reflect.Type, trackRef, isNull bool) reflect.Value {
	if isNull {
		if ser != nil {
			return reflect.Zero(type_)
		}
		return reflect.Value{}
	}
	if trackRef {
		flag, id, err := ctx.refs.TryPreserveRefId(ctx.buf)
		if err != nil {
			ctx.SetError(FromError(err))
			return reflect.Value{}
		}
		if flag == RefFlag {
			return ctx.refs.GetReadObject(id)
		}
		v := m.decodeComponent(ctx, ser, info, type_)
		if ctx.HasError() {
			return reflect.Value{}
		}
		if flag == RefValueFlag {
			ctx.refs.SetReadObject(id, v)
		}
		return v
	}
	return m.decodeComponent(ctx, ser, info, type_)
}

func (m *mapSerializer) decodeComponent(ctx *ReadContext, ser Serializer, info *TypeInfo, type_ reflect.Type) reflect.Value {
	if ser != nil {
		v := reflect.New(type_).Elem()
		ser.ReadData(ctx, type_, v)
		return v
	}
	v := reflect.New(info.Type).Elem()
	info.Serializer.ReadData(ctx, info.Type, v)
	return v
}

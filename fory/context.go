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

// Serializer is implemented by every per-type codec (G-J). The split
// between Write/WriteData (and Read/ReadData) lets container serializers
// skip the reference-byte and type-info machinery for elements whose
// chunk header already declared them, per §4.H.
type Serializer interface {
	// TypeId returns the built-in or user-assigned type id this
	// serializer writes on the wire.
	TypeId() TypeId

	// Write emits the full reference-tracked, typed encoding of value:
	// the reference byte (per refMode), optionally the type info (when
	// writeType is set), then the payload via WriteData.
	Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value)

	// WriteData emits only the payload, assuming the caller already
	// handled the reference byte and type info.
	WriteData(ctx *WriteContext, value reflect.Value)

	// Read mirrors Write.
	Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value)

	// ReadData mirrors WriteData, decoding the payload into value. It
	// returns nothing: a caller that needs a fresh value allocates one of
	// type_ and passes it in.
	ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value)
}

// WriteContext is the per-call state a write uses: the output buffer, the
// reference table, the meta-string intern table, and the runtime's type
// resolver. It is created fresh for each Fory.Serialize call and never
// escapes it, per §3 Ownership.
type WriteContext struct {
	fory *Fory
	buf  *ByteBuffer
	refs *refResolver
	msr  *MetaStringResolver
	err  *Error
}

func newWriteContext(f *Fory, buf *ByteBuffer) *WriteContext {
	return &WriteContext{
		fory: f,
		buf:  buf,
		refs: newRefResolver(f.referenceTracking),
		msr:  NewMetaStringResolver(),
	}
}

func (c *WriteContext) Buffer() *ByteBuffer             { return c.buf }
func (c *WriteContext) RefResolver() *refResolver       { return c.refs }
func (c *WriteContext) TypeResolver() *TypeResolver     { return c.fory.typeResolver }
func (c *WriteContext) MetaStrings() *MetaStringResolver { return c.msr }
func (c *WriteContext) SetError(err *Error) {
	if c.err == nil {
		c.err = err
	}
}
func (c *WriteContext) HasError() bool { return c.err != nil }
func (c *WriteContext) Err() *Error    { return c.err }

// ReadContext mirrors WriteContext for the read path.
type ReadContext struct {
	fory *Fory
	buf  *ByteBuffer
	refs *refResolver
	msr  *MetaStringResolver
	err  *Error
}

func newReadContext(f *Fory, buf *ByteBuffer) *ReadContext {
	return &ReadContext{
		fory: f,
		buf:  buf,
		refs: newRefResolver(f.referenceTracking),
		msr:  NewMetaStringResolver(),
	}
}

func (c *ReadContext) Buffer() *ByteBuffer             { return c.buf }
func (c *ReadContext) RefResolver() *refResolver       { return c.refs }
func (c *ReadContext) TypeResolver() *TypeResolver     { return c.fory.typeResolver }
func (c *ReadContext) MetaStrings() *MetaStringResolver { return c.msr }
func (c *ReadContext) SetError(err *Error) {
	if c.err == nil {
		c.err = err
	}
}
func (c *ReadContext) HasError() bool { return c.err != nil }
func (c *ReadContext) Err() *Error    { return c.err }

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

// Package fory implements a cross-language object graph serialization
// format: a compact binary wire protocol plus the Go-side runtime
// (reference tracking, type resolution, meta-string interning) needed to
// read and write it.
package fory

import "reflect"

// Stream header bits, §6: one leading byte per top-level Serialize call.
const (
	headerBitIsNull          = 1 << 0
	headerBitIsLittleEndian  = 1 << 1
	headerBitIsCrossLanguage = 1 << 2
	headerBitOutOfBand       = 1 << 3
)

// Fory is the serialization runtime: the registries and configuration a
// Serialize/Deserialize call needs. A Fory is safe to share across
// goroutines for concurrent calls — every call builds its own WriteContext
// / ReadContext (and the refResolver and buffer they own) from scratch, so
// no mutable per-call state is shared, per §5.
type Fory struct {
	referenceTracking   bool
	compatible          bool
	requireRegistration bool
	crossLanguage       bool

	typeResolver *TypeResolver
}

// Builder configures a Fory before construction, mirroring the
// config-by-builder pattern the rest of this stack uses for multi-knob
// setup.
type Builder struct {
	trackRef            bool
	compatible          bool
	requireRegistration bool
	crossLanguage       bool
}

// NewBuilder returns a Builder with the defaults: reference tracking on,
// schema-consistent (not compatible) struct mode, registration required,
// cross-language mode on.
func NewBuilder() *Builder {
	return &Builder{trackRef: true, requireRegistration: true, crossLanguage: true}
}

// WithReferenceTracking toggles cyclic/shared reference tracking (§4.D).
func (b *Builder) WithReferenceTracking(v bool) *Builder { b.trackRef = v; return b }

// WithCompatible selects compatible (schema-evolving) struct encoding for
// auto-registered structs (§4.I) instead of schema-consistent encoding.
func (b *Builder) WithCompatible(v bool) *Builder { b.compatible = v; return b }

// WithRequireRegistration toggles whether unregistered struct types are
// rejected (true) or auto-registered by name on first use (false).
func (b *Builder) WithRequireRegistration(v bool) *Builder { b.requireRegistration = v; return b }

// WithCrossLanguage sets the stream header's cross-language bit and whether
// a union payload carries its active alternative's type info. Named types
// write their namespace/name pair either way; there is no numeric-id-only
// mode.
func (b *Builder) WithCrossLanguage(v bool) *Builder { b.crossLanguage = v; return b }

// Build constructs the configured Fory.
func (b *Builder) Build() *Fory {
	f := &Fory{
		referenceTracking:   b.trackRef,
		compatible:          b.compatible,
		requireRegistration: b.requireRegistration,
		crossLanguage:       b.crossLanguage,
	}
	f.typeResolver = newTypeResolver(f)
	f.typeResolver.isXlang = b.crossLanguage
	f.typeResolver.requireRegistration = b.requireRegistration
	return f
}

// NewFory builds a Fory with reference tracking set to trackRef and every
// other knob at its default, the common single-argument constructor shape.
func NewFory(trackRef bool) *Fory {
	return NewBuilder().WithReferenceTracking(trackRef).Build()
}

// Register assigns a numeric id to a Go type, §6 register(type, id).
func (f *Fory) Register(type_ reflect.Type, id TypeId, s Serializer) error {
	return f.typeResolver.Register(type_, id, s)
}

// RegisterByName assigns a (namespace, type_name) pair to a Go type, §6
// register(type, namespace, type_name).
func (f *Fory) RegisterByName(type_ reflect.Type, namespace, typeName string, s Serializer) error {
	return f.typeResolver.RegisterByName(type_, namespace, typeName, s)
}

// RegisterSerializer overrides the serializer used for a Go type without
// assigning it a new id, §6 register_serializer(type, impl).
func (f *Fory) RegisterSerializer(type_ reflect.Type, s Serializer) error {
	return f.typeResolver.RegisterSerializer(type_, s)
}

// Serialize encodes value into a new buffer and returns its bytes. Every
// fallible step funnels into a panic carrying a *Error, recovered here so
// callers see an ordinary Go error instead of threading one through every
// serializer method, matching the core's no-log error design (§7).
func (f *Fory) Serialize(value interface{}) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	buf := NewByteBuffer(nil)
	header := byte(headerBitIsLittleEndian)
	if f.crossLanguage {
		header |= headerBitIsCrossLanguage
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || isNilValue(rv) {
		header |= headerBitIsNull
		buf.WriteByte_(header)
		return buf.Bytes(), nil
	}
	buf.WriteByte_(header)

	ctx := newWriteContext(f, buf)
	dv := derefForTypeInfo(rv)
	for dv.Kind() == reflect.Ptr {
		dv = dv.Elem()
	}
	info, infoErr := f.typeResolver.getTypeInfo(dv, true)
	if infoErr != nil {
		return nil, infoErr
	}
	// §2's data flow writes the reference marker before the TypeInfo; every
	// nested call already gets this order via writeRefHeader, so the root
	// call must write its own ref byte ahead of WriteTypeInfo instead of
	// writing TypeInfo first and delegating to Write (which is where the ref
	// byte actually lives) second.
	done, refErr := ctx.RefResolver().WriteRefOrNull(buf, dv)
	if refErr != nil {
		return nil, FromError(refErr)
	}
	if !done {
		if err := f.typeResolver.WriteTypeInfo(buf, info, ctx.MetaStrings()); err != nil {
			return nil, err
		}
		info.Serializer.WriteData(ctx, dv)
	}
	if ctx.HasError() {
		return nil, ctx.Err()
	}
	return buf.Bytes(), nil
}

// Deserialize decodes data into a newly allocated value of type_, recovering
// any internal panic into a returned error exactly like Serialize.
func (f *Fory) Deserialize(data []byte, type_ reflect.Type) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	buf := NewByteBuffer(data)
	header := buf.ReadByte_()
	if header&headerBitIsNull != 0 {
		return reflect.Zero(type_).Interface(), nil
	}

	ctx := newReadContext(f, buf)
	// Mirrors Serialize: the reference byte is read before the TypeInfo.
	flag, id, refErr := ctx.RefResolver().TryPreserveRefId(buf)
	if refErr != nil {
		return nil, FromError(refErr)
	}
	switch flag {
	case NullFlag:
		return reflect.Zero(type_).Interface(), nil
	case RefFlag:
		resolved := ctx.RefResolver().GetReadObject(id)
		if resolved.IsValid() {
			return resolved.Interface(), nil
		}
		return reflect.Zero(type_).Interface(), nil
	}

	info, infoErr := f.typeResolver.ReadTypeInfo(buf, ctx.MetaStrings())
	if infoErr != nil {
		return nil, infoErr
	}
	out := reflect.New(type_).Elem()
	if flag == RefValueFlag {
		ctx.RefResolver().SetReadObject(id, out)
	}
	info.Serializer.ReadData(ctx, type_, out)
	if ctx.HasError() {
		return nil, ctx.Err()
	}
	return out.Interface(), nil
}

func recoverToError(r interface{}) *Error {
	if fe, ok := r.(*Error); ok {
		return fe
	}
	if e, ok := r.(error); ok {
		return FromError(e)
	}
	return malformedInputError("%v", r)
}

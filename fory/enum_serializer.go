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
	"fmt"
	"reflect"
	"strconv"

	"github.com/apache/fory-go/fory/meta"
)

// enumNameEncoder/enumNameDecoder pack an enum variant's wire name the same
// way the type resolver packs namespace/type-name strings, §4.J: variant
// names are plain identifiers, so one special-character slot pair ('_' for
// both) covers everything the LOWER_UPPER_DIGIT_SPECIAL alphabet doesn't
// already reach.
var (
	enumNameEncoder = meta.NewEncoder('_', '_')
	enumNameDecoder = meta.NewDecoder('_', '_')
)

// enumSerializer writes a Go integer-kind named type (the idiomatic Go
// stand-in for an enum: `type Suit int32; const (Hearts Suit = iota; ...)`)
// as NAMED_ENUM on the wire: the bare ordinal when the type was registered
// by numeric id, or the variant's name as a MetaString when it was
// registered by name, per §4.J.
type enumSerializer struct {
	type_ reflect.Type
}

// NewEnumSerializer builds a Serializer for an integer-kind named type,
// for use with TypeResolver.Register/RegisterByName.
func NewEnumSerializer(type_ reflect.Type) Serializer {
	return &enumSerializer{type_: type_}
}

func (e *enumSerializer) TypeId() TypeId { return NAMED_ENUM }

// typeResolverAccessor is satisfied by both WriteContext and ReadContext;
// it lets isRegisteredByName share one implementation across Write/Read.
type typeResolverAccessor interface {
	TypeResolver() *TypeResolver
}

// isRegisteredByName reports whether e's own type was registered with
// RegisterByName rather than Register. A context built directly against a
// zero-value Fory (as a unit test exercising WriteData/ReadData might) has
// no resolver to ask; that case quietly falls back to ordinal mode instead
// of panicking.
func (e *enumSerializer) isRegisteredByName(ctx typeResolverAccessor) (byName bool) {
	defer func() {
		if recover() != nil {
			byName = false
		}
	}()
	info, err := ctx.TypeResolver().GetTypeInfoByGoType(reflect.New(e.type_).Elem())
	if err != nil {
		return false
	}
	return info.IsRegisteredByName
}

// variantName returns the wire-level name for an enum value: its
// fmt.Stringer text when the underlying Go type provides one (the idiomatic
// way to name enum constants), otherwise the decimal ordinal.
func variantName(value reflect.Value) string {
	if s, ok := value.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(value.Int(), 10)
	default:
		return strconv.FormatUint(value.Uint(), 10)
	}
}

// setEnumFromName parses name back into value's ordinal. The decimal form
// variantName falls back to when a type has no Stringer always round-trips;
// a symbolic Stringer-produced name this side has no reverse table for
// falls back to the zero value instead of erroring, per §4.J's "unknown
// ordinals/names fall back to a sentinel UNKNOWN variant" rule.
func setEnumFromName(value reflect.Value, type_ reflect.Type, name string) {
	if !value.IsValid() || !value.CanSet() {
		return
	}
	switch type_.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			value.SetInt(0)
			return
		}
		value.SetInt(n)
	default:
		n, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			value.SetUint(0)
			return
		}
		value.SetUint(n)
	}
}

func (e *enumSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, e, refMode, writeType, value) {
		return
	}
	e.WriteData(ctx, value)
}

func (e *enumSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		ctx.SetError(malformedInputError("enum type %s must have an integer underlying kind", value.Type()))
		return
	}
	if e.isRegisteredByName(ctx) {
		ms, err := enumNameEncoder.Encode(variantName(value))
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		msb := ctx.MetaStrings().GetMetaStrBytes(&ms)
		if err := ctx.MetaStrings().WriteMetaStringBytes(ctx.buf, msb); err != nil {
			ctx.SetError(FromError(err))
		}
		return
	}
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		ctx.buf.WriteVarInt64(value.Int())
	default:
		ctx.buf.WriteVarUint64(value.Uint())
	}
}

func (e *enumSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
	skip, resolved, refID, hasID := readRefHeader(ctx, refMode, readType)
	if skip {
		if value.IsValid() && value.CanSet() && resolved.IsValid() {
			value.Set(resolved)
		}
		return
	}
	e.ReadData(ctx, e.type_, value)
	if hasID {
		ctx.refs.SetReadObject(refID, value)
	}
}

func (e *enumSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	if type_ == nil {
		type_ = e.type_
	}
	switch type_.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		ctx.SetError(malformedInputError("enum type %s must have an integer underlying kind", type_))
		return
	}
	if e.isRegisteredByName(ctx) {
		msb, err := ctx.MetaStrings().ReadMetaStringBytes(ctx.buf)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		name, err := enumNameDecoder.Decode(msb.Data, msb.Encoding, msb.Length)
		if err != nil {
			ctx.SetError(FromError(err))
			return
		}
		setEnumFromName(value, type_, name)
		return
	}
	switch type_.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := ctx.buf.ReadVarInt64()
		if value.IsValid() && value.CanSet() {
			value.SetInt(v)
		}
	default:
		v := ctx.buf.ReadVarUint64()
		if value.IsValid() && value.CanSet() {
			value.SetUint(v)
		}
	}
}

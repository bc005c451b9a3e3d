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
	"time"
)

// binarySerializer writes a []byte as a length-prefixed opaque payload.
type binarySerializer struct{}

func (binarySerializer) TypeId() TypeId { return BINARY }

func (s binarySerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}

func (binarySerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	data := value.Bytes()
	ctx.buf.WriteVarUint32(uint32(len(data)))
	ctx.buf.WriteBinary(data)
}

func (s binarySerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
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

func (binarySerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	n := int(ctx.buf.ReadVarUint32())
	data := ctx.buf.ReadBinary(n)
	if value.IsValid() && value.CanSet() {
		value.SetBytes(data)
	}
}

// Date is a calendar date with no time-of-day or timezone component, the
// DATE type id's Go representation (§6).
type Date struct {
	Year  int
	Month int
	Day   int
}

// dateEpoch is the zero point every DATE value is encoded as a day offset
// from, matching the day-granularity most cross-language date libraries use.
var dateEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

type dateSerializer struct{}

func (dateSerializer) TypeId() TypeId { return DATE }

func (s dateSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}

func (dateSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	d := value.Interface().(Date)
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	days := int32(t.Sub(dateEpoch).Hours() / 24)
	ctx.buf.WriteInt32(days)
}

func (s dateSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
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

func (dateSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	days := ctx.buf.ReadInt32()
	t := dateEpoch.Add(time.Duration(days) * 24 * time.Hour)
	d := Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
	if value.IsValid() && value.CanSet() {
		value.Set(reflect.ValueOf(d))
	}
}

var timeType = timeTypeOf()

func timeTypeOf() time.Time { return time.Time{} }

// timeSerializer writes time.Time as a TIMESTAMP: Unix microseconds since
// the epoch, UTC. Monotonic readings and location are not preserved, only
// the instant.
type timeSerializer struct{}

func (timeSerializer) TypeId() TypeId { return TIMESTAMP }

func (s timeSerializer) Write(ctx *WriteContext, refMode RefMode, writeType bool, value reflect.Value) {
	if writeRefHeader(ctx, s, refMode, writeType, value) {
		return
	}
	s.WriteData(ctx, value)
}

func (timeSerializer) WriteData(ctx *WriteContext, value reflect.Value) {
	t := value.Interface().(time.Time)
	micros := t.UnixMicro()
	ctx.buf.WriteVarInt64(micros)
}

func (s timeSerializer) Read(ctx *ReadContext, refMode RefMode, readType bool, value reflect.Value) {
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

func (timeSerializer) ReadData(ctx *ReadContext, type_ reflect.Type, value reflect.Value) {
	micros := ctx.buf.ReadVarInt64()
	t := time.UnixMicro(micros).UTC()
	if value.IsValid() && value.CanSet() {
		value.Set(reflect.ValueOf(t))
	}
}

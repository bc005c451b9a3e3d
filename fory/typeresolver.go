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
	"strings"

	"github.com/apache/fory-go/fory/meta"
)

// TypeId is the wire type identifier, §6.
type TypeId int32

// Built-in type id assignments, §6 (closed enum).
const (
	UNKNOWN TypeId = iota
	BOOL
	INT8
	INT16
	INT32
	VAR_INT32
	INT64
	VAR_INT64
	SLI_INT64
	UINT8
	UINT16
	UINT32
	VAR_UINT32
	UINT64
	VAR_UINT64
	TAGGED_UINT64
	FLOAT8
	FLOAT16
	BFLOAT16
	FLOAT32
	FLOAT64
	STRING
	LIST
	SET
	MAP
	ENUM
	NAMED_ENUM
	STRUCT
	COMPATIBLE_STRUCT
	NAMED_STRUCT
	NAMED_COMPATIBLE_STRUCT
	EXT
	NAMED_EXT
	UNION
	TYPED_UNION
	NAMED_UNION
	NONE
	DURATION
	TIMESTAMP
	DATE
	DECIMAL
	BINARY
	ARRAY
	BOOL_ARRAY
	INT8_ARRAY
	INT16_ARRAY
	INT32_ARRAY
	INT64_ARRAY
	UINT8_ARRAY
	UINT16_ARRAY
	UINT32_ARRAY
	UINT64_ARRAY
	FLOAT16_ARRAY
	FLOAT32_ARRAY
	FLOAT64_ARRAY
)

// UserTypeIDStart is the first numeric id a caller may assign a registered
// type; ids below it are reserved for the built-in enum above.
const UserTypeIDStart = 256

// namedTypeIds is the closed set of type ids that carry a namespace/name
// pair on the wire instead of (or in addition to) a numeric id.
var namedTypeIds = map[TypeId]bool{
	NAMED_ENUM:              true,
	NAMED_STRUCT:            true,
	NAMED_COMPATIBLE_STRUCT: true,
	NAMED_EXT:               true,
	NAMED_UNION:             true,
}

// IsNamespacedType reports whether id is one of the name-carrying type ids.
func IsNamespacedType(id TypeId) bool { return namedTypeIds[id] }

// FieldType describes a field's declared type, including generic
// parameters, §3. Recursion is finite and tree-shaped.
type FieldType struct {
	TypeID   TypeId
	Nullable bool
	TrackRef bool
	Generics []FieldType
}

// TypeInfo is the resolver's record for a registered or built-in type, §3.
type TypeInfo struct {
	Type               reflect.Type
	TypeID             TypeId
	Namespace          *MetaStringBytes
	TypeName           *MetaStringBytes
	Serializer         Serializer
	IsRegisteredByName bool
	IsRegisteredByID   bool
	SchemaHash         int32
	TypeMeta           *TypeMeta
}

type nsTypeKey struct {
	NamespaceHash int64
	TypeNameHash  int64
}

type namedTypeKey struct {
	Namespace string
	TypeName  string
}

// TypeResolver is the registry mapping Go types to numeric/named type ids
// and dispatching to a Serializer, §4.E.
type TypeResolver struct {
	fory *Fory

	isXlang             bool
	requireRegistration bool

	typeToInfo   map[reflect.Type]*TypeInfo
	idToInfo     map[TypeId]*TypeInfo
	namedToInfo  map[namedTypeKey]*TypeInfo
	nsKeyToInfo  map[nsTypeKey]*TypeInfo
	nextUserID   TypeId
	typeToSerializers map[reflect.Type]Serializer

	namespaceEncoder *meta.Encoder
	namespaceDecoder *meta.Decoder
	typeNameEncoder  *meta.Encoder
	typeNameDecoder  *meta.Decoder

	// registrationStrings is used only to compute the stable hash/length a
	// MetaStringBytes needs at registration time (GetMetaStrBytes is pure);
	// it never accumulates per-call intern state the way a WriteContext's or
	// ReadContext's own resolver does.
	registrationStrings *MetaStringResolver
}

func newTypeResolver(f *Fory) *TypeResolver {
	r := &TypeResolver{
		fory:                f,
		isXlang:             true,
		typeToInfo:          make(map[reflect.Type]*TypeInfo),
		idToInfo:            make(map[TypeId]*TypeInfo),
		namedToInfo:         make(map[namedTypeKey]*TypeInfo),
		nsKeyToInfo:         make(map[nsTypeKey]*TypeInfo),
		nextUserID:          UserTypeIDStart,
		typeToSerializers:   make(map[reflect.Type]Serializer),
		namespaceEncoder:    meta.NewEncoder('.', '_'),
		namespaceDecoder:    meta.NewDecoder('.', '_'),
		typeNameEncoder:     meta.NewEncoder('$', '_'),
		typeNameDecoder:     meta.NewDecoder('$', '_'),
		registrationStrings: NewMetaStringResolver(),
	}
	r.registerBuiltins()
	return r
}

func (r *TypeResolver) registerBuiltins() {
	builtins := []struct {
		Type reflect.Type
		Ser  Serializer
	}{
		{reflect.TypeOf(false), boolSerializer{}},
		{reflect.TypeOf(int8(0)), int8Serializer{}},
		{reflect.TypeOf(int16(0)), int16Serializer{}},
		{reflect.TypeOf(int32(0)), int32Serializer{}},
		{reflect.TypeOf(int64(0)), int64Serializer{}},
		{reflect.TypeOf(int(0)), intSerializer{}},
		{reflect.TypeOf(uint8(0)), uint8Serializer{}},
		{reflect.TypeOf(uint16(0)), uint16Serializer{}},
		{reflect.TypeOf(uint32(0)), uint32Serializer{}},
		{reflect.TypeOf(uint64(0)), uint64Serializer{}},
		{reflect.TypeOf(float32(0)), float32Serializer{}},
		{reflect.TypeOf(float64(0)), float64Serializer{}},
		{reflect.TypeOf(""), stringSerializer{}},
		{reflect.TypeOf([]byte(nil)), binarySerializer{}},
		{reflect.TypeOf(Date{}), dateSerializer{}},
		{reflect.TypeOf(timeType), timeSerializer{}},
	}
	for _, b := range builtins {
		_ = r.RegisterSerializer(b.Type, b.Ser)
	}
}

// RegisterSerializer associates a concrete serializer with a Go type and,
// when its TypeId is a built-in or user-assigned numeric id, indexes it for
// by-id lookup as well.
func (r *TypeResolver) RegisterSerializer(type_ reflect.Type, s Serializer) error {
	info := &TypeInfo{
		Type:             type_,
		TypeID:           s.TypeId(),
		Serializer:       s,
		IsRegisteredByID: true,
	}
	r.typeToInfo[type_] = info
	r.typeToSerializers[type_] = s
	if _, exists := r.idToInfo[s.TypeId()]; !exists {
		r.idToInfo[s.TypeId()] = info
	}
	return nil
}

// Register assigns a numeric id to a user type, §6 register(type, id).
func (r *TypeResolver) Register(type_ reflect.Type, id TypeId, s Serializer) error {
	if id < UserTypeIDStart {
		return newError(ErrMalformedInput, "user type id %d must be >= %d", id, UserTypeIDStart)
	}
	info := &TypeInfo{Type: type_, TypeID: id, Serializer: s, IsRegisteredByID: true}
	r.typeToInfo[type_] = info
	r.idToInfo[id] = info
	r.typeToSerializers[type_] = s
	return nil
}

// RegisterByName assigns a (namespace, type_name) pair to a user type,
// §6 register(type, namespace, type_name).
func (r *TypeResolver) RegisterByName(type_ reflect.Type, namespace, typeName string, s Serializer) error {
	nsStr, err := r.namespaceEncoder.Encode(namespace)
	if err != nil {
		return FromError(err)
	}
	nameStr, err := r.typeNameEncoder.Encode(typeName)
	if err != nil {
		return FromError(err)
	}
	nsBytes := r.registrationStrings.GetMetaStrBytes(&nsStr)
	nameBytes := r.registrationStrings.GetMetaStrBytes(&nameStr)

	info := &TypeInfo{
		Type:               type_,
		TypeID:             s.TypeId(),
		Namespace:          nsBytes,
		TypeName:           nameBytes,
		Serializer:         s,
		IsRegisteredByName: true,
	}
	r.typeToInfo[type_] = info
	r.typeToSerializers[type_] = s
	r.namedToInfo[namedTypeKey{namespace, typeName}] = info
	r.nsKeyToInfo[nsTypeKey{int64(nsBytes.Hashcode), int64(nameBytes.Hashcode)}] = info
	return nil
}

// allocateAutoID assigns the next free numeric id for implicit (unnamed)
// registration when the runtime doesn't require explicit registration.
func (r *TypeResolver) allocateAutoID() TypeId {
	id := r.nextUserID
	r.nextUserID++
	return id
}

// getTypeInfo resolves a Go type's TypeInfo, auto-registering it (with a
// struct serializer in schema-consistent or compatible mode, depending on
// the runtime's configuration) when it is a struct the caller never
// explicitly registered and require_registration is off.
func (r *TypeResolver) getTypeInfo(value reflect.Value, create bool) (*TypeInfo, error) {
	type_ := value.Type()
	if info, ok := r.typeToInfo[type_]; ok {
		return info, nil
	}
	if !create {
		return nil, unregisteredTypeError("type %s not registered", type_)
	}
	if r.requireRegistration {
		return nil, unregisteredTypeError("type %s must be registered explicitly", type_)
	}
	switch type_.Kind() {
	case reflect.Struct:
		return r.autoRegisterStruct(type_)
	case reflect.Ptr:
		if type_.Elem().Kind() == reflect.Struct {
			elemInfo, err := r.autoRegisterStruct(type_.Elem())
			if err != nil {
				return nil, err
			}
			return elemInfo, nil
		}
	}
	return nil, unregisteredTypeError("type %s must be registered explicitly", type_)
}

// autoRegisterStruct registers type_'s TypeInfo and serializer before
// resolving its fields: a field whose own type is type_ (directly, through
// a pointer, or through a container) looks type_ up mid-construction and
// must find an already-registered entry, or building the schema would
// recurse forever on self-referential or mutually-recursive struct types.
func (r *TypeResolver) autoRegisterStruct(type_ reflect.Type) (*TypeInfo, error) {
	namespace, typeName := splitPkgPath(type_)
	inner := newEmptyStructSerializer(type_)
	var s Serializer = inner
	if r.fory.compatible {
		s = &compatibleStructSerializer{inner: inner}
	}
	if err := r.RegisterByName(type_, namespace, typeName, s); err != nil {
		return nil, err
	}
	if err := inner.populateFields(r); err != nil {
		return nil, err
	}
	info := r.typeToInfo[type_]
	info.SchemaHash = inner.meta.SchemaHash
	info.TypeMeta = inner.meta
	return info, nil
}

func splitPkgPath(type_ reflect.Type) (namespace, typeName string) {
	typeName = type_.Name()
	pkgPath := type_.PkgPath()
	if pkgPath == "" {
		return "", typeName
	}
	if idx := strings.LastIndex(pkgPath, "/"); idx != -1 {
		return pkgPath[idx+1:], typeName
	}
	return pkgPath, typeName
}

// getSerializerByType returns the serializer for a type, building a
// composite (slice/map/ptr) serializer on demand the way createSerializer
// does in the original fory-go port.
func (r *TypeResolver) getSerializerByType(type_ reflect.Type, mapInStruct bool) (Serializer, error) {
	if s, ok := r.typeToSerializers[type_]; ok {
		return s, nil
	}
	s, err := r.createSerializer(type_, mapInStruct)
	if err != nil {
		return nil, err
	}
	r.typeToSerializers[type_] = s
	return s, nil
}

func (r *TypeResolver) createSerializer(type_ reflect.Type, mapInStruct bool) (Serializer, error) {
	switch type_.Kind() {
	case reflect.Ptr:
		elemSer, err := r.getSerializerByType(type_.Elem(), false)
		if err != nil {
			return nil, err
		}
		return &ptrSerializer{elem: elemSer, elemType: type_.Elem()}, nil
	case reflect.Slice, reflect.Array:
		elemType := type_.Elem()
		if isDynamicType(elemType) {
			return &listSerializer{type_: type_}, nil
		}
		elemSer, err := r.getSerializerByType(elemType, false)
		if err != nil {
			return nil, err
		}
		return &listSerializer{type_: type_, elemSerializer: elemSer, elemType: elemType}, nil
	case reflect.Map:
		keyType, valType := type_.Key(), type_.Elem()
		var keySer, valSer Serializer
		var err error
		if !isDynamicType(keyType) {
			if keySer, err = r.getSerializerByType(keyType, mapInStruct); err != nil {
				return nil, err
			}
		}
		if !isDynamicType(valType) {
			if valSer, err = r.getSerializerByType(valType, mapInStruct); err != nil {
				return nil, err
			}
		}
		return &mapSerializer{type_: type_, keySerializer: keySer, valueSerializer: valSer, keyType: keyType, valueType: valType}, nil
	case reflect.Struct:
		info, err := r.getTypeInfo(reflect.New(type_).Elem(), true)
		if err != nil {
			return nil, err
		}
		return info.Serializer, nil
	}
	return nil, unregisteredTypeError("type %s not supported", type_)
}

func isDynamicType(type_ reflect.Type) bool {
	return type_.Kind() == reflect.Interface
}

// WriteTypeInfo writes the type id and, for namespaced types, the
// namespace/name meta-strings, §4.E/4.F. msr is the calling
// Serialize call's per-call meta-string intern table (WriteContext.MetaStrings()),
// never the resolver's own registration-time helper.
func (r *TypeResolver) WriteTypeInfo(buf *ByteBuffer, info *TypeInfo, msr *MetaStringResolver) error {
	buf.WriteVarUint32Small7(uint32(info.TypeID))
	if IsNamespacedType(info.TypeID) {
		if err := msr.WriteMetaStringBytes(buf, info.Namespace); err != nil {
			return err
		}
		if err := msr.WriteMetaStringBytes(buf, info.TypeName); err != nil {
			return err
		}
	}
	return nil
}

// ReadTypeInfo mirrors WriteTypeInfo, resolving back to a registered
// TypeInfo (or returning UnregisteredType if the peer named a type we
// never registered). msr is the calling Deserialize call's own per-call
// intern table (ReadContext.MetaStrings()), shared by every ReadTypeInfo of
// that call so back-references resolve.
func (r *TypeResolver) ReadTypeInfo(buf *ByteBuffer, msr *MetaStringResolver) (*TypeInfo, error) {
	id := TypeId(buf.ReadVarUint32Small7())
	if IsNamespacedType(id) {
		nsBytes, err := msr.ReadMetaStringBytes(buf)
		if err != nil {
			return nil, err
		}
		nameBytes, err := msr.ReadMetaStringBytes(buf)
		if err != nil {
			return nil, err
		}
		key := nsTypeKey{int64(nsBytes.Hashcode), int64(nameBytes.Hashcode)}
		if info, ok := r.nsKeyToInfo[key]; ok {
			return info, nil
		}
		ns, err := r.namespaceDecoder.Decode(nsBytes.Data, nsBytes.Encoding, nsBytes.Length)
		if err != nil {
			return nil, FromError(err)
		}
		name, err := r.typeNameDecoder.Decode(nameBytes.Data, nameBytes.Encoding, nameBytes.Length)
		if err != nil {
			return nil, FromError(err)
		}
		if info, ok := r.namedToInfo[namedTypeKey{ns, name}]; ok {
			r.nsKeyToInfo[key] = info
			return info, nil
		}
		return nil, unregisteredTypeError("named type %s.%s not registered locally", ns, name)
	}
	info, ok := r.idToInfo[id]
	if !ok {
		return nil, unregisteredTypeError("type id %d not registered locally", id)
	}
	return info, nil
}

// GetTypeInfoByGoType exposes getTypeInfo for serializers outside this
// file that need to resolve a dynamic (interface-typed) element's concrete
// TypeInfo.
func (r *TypeResolver) GetTypeInfoByGoType(value reflect.Value) (*TypeInfo, error) {
	return r.getTypeInfo(value, true)
}

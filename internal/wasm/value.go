package wasm

import "github.com/merl-lang/merl/internal/leb128"

// ValueTypeKind discriminates ValueType.
type ValueTypeKind byte

const (
	// ValueTypeKindInt is the canonical machine integer, encoded as i32.
	// The width is pinned in one place, see codegen's integer primitives.
	ValueTypeKindInt ValueTypeKind = iota
	// ValueTypeKindFloat is a 64-bit float, encoded as f64.
	ValueTypeKindFloat
	// ValueTypeKindBool is a boolean, represented as a 32-bit integer.
	ValueTypeKindBool
	// ValueTypeKindNil is the unit value, represented as a 32-bit integer.
	ValueTypeKindNil
	// ValueTypeKindRef is a non-nullable reference to a concrete struct type.
	ValueTypeKindRef
)

// ValueType is the type of a parameter, result, local, global or field.
// ValueTypes are comparable with ==. Int, Bool and Nil are distinct values
// even though all three encode as i32.
type ValueType struct {
	Kind ValueTypeKind

	// TypeIndex is the referenced struct type. Only set when Kind is
	// ValueTypeKindRef.
	TypeIndex Index
}

var (
	ValueTypeInt   = ValueType{Kind: ValueTypeKindInt}
	ValueTypeFloat = ValueType{Kind: ValueTypeKindFloat}
	ValueTypeBool  = ValueType{Kind: ValueTypeKindBool}
	ValueTypeNil   = ValueType{Kind: ValueTypeKindNil}
)

// StructRefType returns the non-nullable reference type to the struct type
// at the given index.
func StructRefType(typeIndex Index) ValueType {
	return ValueType{Kind: ValueTypeKindRef, TypeIndex: typeIndex}
}

// Binary representation of value types.
//
// See https://webassembly.github.io/gc/core/binary/types.html
const (
	valueTypeI32          byte = 0x7f
	valueTypeF64          byte = 0x7c
	refTypeNullablePrefix byte = 0x63
	refTypePrefix         byte = 0x64
)

// Encode appends this value type's binary representation.
func (v ValueType) Encode() []byte {
	switch v.Kind {
	case ValueTypeKindInt, ValueTypeKindBool, ValueTypeKindNil:
		return []byte{valueTypeI32}
	case ValueTypeKindFloat:
		return []byte{valueTypeF64}
	case ValueTypeKindRef:
		// Heap type indexes are signed 33-bit integers.
		return append([]byte{refTypePrefix}, leb128.EncodeInt64(int64(v.TypeIndex))...)
	}
	panic("BUG: unknown value type kind")
}

// EncodeNullableRef encodes `ref null <typeIndex>`, used by global
// declarations that are initialised lazily by the start function.
func EncodeNullableRef(typeIndex Index) []byte {
	return append([]byte{refTypeNullablePrefix}, leb128.EncodeInt64(int64(typeIndex))...)
}

// String implements fmt.Stringer, in text-format-ish notation.
func (v ValueType) String() string {
	switch v.Kind {
	case ValueTypeKindInt:
		return "i32"
	case ValueTypeKindFloat:
		return "f64"
	case ValueTypeKindBool:
		return "i32(bool)"
	case ValueTypeKindNil:
		return "i32(nil)"
	case ValueTypeKindRef:
		return "ref"
	}
	return "unknown"
}

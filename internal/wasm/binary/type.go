package binary

import (
	"github.com/merl-lang/merl/internal/leb128"
	"github.com/merl-lang/merl/internal/wasm"
)

// Composite and subtype tags of the GC proposal's type section encoding.
//
// See https://webassembly.github.io/gc/core/binary/types.html
const (
	functionTypeTag byte = 0x60
	structTypeTag   byte = 0x5f
	subTypeTag      byte = 0x50
	subFinalTypeTag byte = 0x4f
)

const (
	fieldImmutable byte = 0x00
)

func encodeTypeDefinition(def wasm.TypeDefinition) []byte {
	switch d := def.(type) {
	case wasm.FunctionTypeDefinition:
		return encodeFunctionType(d)
	case wasm.SumTypeDefinition:
		return encodeSumType()
	case wasm.ProductTypeDefinition:
		return encodeProductType(d)
	}
	panic("BUG: unknown type definition")
}

func encodeFunctionType(d wasm.FunctionTypeDefinition) []byte {
	buf := append([]byte{functionTypeTag}, leb128.EncodeUint32(uint32(len(d.Params)))...)
	for _, p := range d.Params {
		buf = append(buf, p.Encode()...)
	}
	buf = append(buf, leb128.EncodeUint32(1)...)
	return append(buf, d.Result.Encode()...)
}

// encodeSumType encodes the opaque supertype of a custom type: a non-final
// struct with no declared supertypes, holding only the tag.
func encodeSumType() []byte {
	buf := []byte{subTypeTag, 0x00, structTypeTag}
	buf = append(buf, leb128.EncodeUint32(1)...)
	return append(buf, encodeTagField()...)
}

// encodeProductType encodes a variant struct: final, subtyping its sum, the
// tag field followed by the variant's own fields.
func encodeProductType(d wasm.ProductTypeDefinition) []byte {
	buf := []byte{subFinalTypeTag, 0x01}
	buf = append(buf, leb128.EncodeUint32(d.SupertypeIndex)...)
	buf = append(buf, structTypeTag)
	buf = append(buf, leb128.EncodeUint32(uint32(len(d.Fields))+1)...)
	buf = append(buf, encodeTagField()...)
	for _, f := range d.Fields {
		buf = append(buf, f.Encode()...)
		buf = append(buf, fieldImmutable)
	}
	return buf
}

// encodeTagField encodes the immutable integer discriminator every sum and
// product starts with.
func encodeTagField() []byte {
	return append(wasm.ValueTypeInt.Encode(), fieldImmutable)
}

package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueType_Encode(t *testing.T) {
	tests := []struct {
		name     string
		input    ValueType
		expected []byte
	}{
		{name: "int", input: ValueTypeInt, expected: []byte{0x7f}},
		{name: "bool", input: ValueTypeBool, expected: []byte{0x7f}},
		{name: "nil", input: ValueTypeNil, expected: []byte{0x7f}},
		{name: "float", input: ValueTypeFloat, expected: []byte{0x7c}},
		{name: "struct ref", input: StructRefType(3), expected: []byte{0x64, 0x03}},
		// 64 needs two signed LEB bytes: a single 0x40 byte would read back
		// negative.
		{name: "high index struct ref", input: StructRefType(64), expected: []byte{0x64, 0xc0, 0x00}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.input.Encode())
		})
	}
}

func TestEncodeNullableRef(t *testing.T) {
	require.Equal(t, []byte{0x63, 0x05}, EncodeNullableRef(5))
}

func TestValueType_Comparable(t *testing.T) {
	require.Equal(t, StructRefType(2), StructRefType(2))
	require.NotEqual(t, StructRefType(2), StructRefType(3))
	require.NotEqual(t, ValueTypeInt, ValueTypeBool)
}

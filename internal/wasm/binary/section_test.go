package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merl-lang/merl/internal/wasm"
)

func TestEncodeFunctionSection(t *testing.T) {
	functions := []*wasm.Function{{FunctionIndex: 0, TypeIndex: 5}}
	require.Equal(t, []byte{wasm.SectionIDFunction, 0x03, 0x02, 0x05, 0x06},
		EncodeFunctionSection(functions, 6))
}

// TestEncodeStartSection uses the same index as TestEncodeFunctionSection to
// highlight the encoding is different.
func TestEncodeStartSection(t *testing.T) {
	require.Equal(t, []byte{wasm.SectionIDStart, 0x01, 0x05}, EncodeStartSection(5))
}

func TestEncodeGlobal(t *testing.T) {
	g := &wasm.Global{Name: "Red", GlobalIndex: 0, TypeIndex: 2}
	require.Equal(t, []byte{
		0x63, 0x02, // ref null 2
		0x01, // mutable
		wasm.OpcodeRefNull, 0x02, wasm.OpcodeEnd,
	}, encodeGlobal(g))
}

func TestEncodeTypeDefinition(t *testing.T) {
	tests := []struct {
		name     string
		input    wasm.TypeDefinition
		expected []byte
	}{
		{
			name:     "sum",
			input:    wasm.SumTypeDefinition{},
			expected: []byte{0x50, 0x00, 0x5f, 0x01, 0x7f, 0x00},
		},
		{
			name: "product",
			input: wasm.ProductTypeDefinition{
				SupertypeIndex: 3,
				Tag:            1,
				Fields:         []wasm.ValueType{wasm.ValueTypeInt, wasm.ValueTypeFloat},
			},
			expected: []byte{
				0x4f, 0x01, 0x03, // final, subtypes 3
				0x5f, 0x03, // struct, 3 fields
				0x7f, 0x00, // tag
				0x7f, 0x00, // Int
				0x7c, 0x00, // Float
			},
		},
		{
			name: "function",
			input: wasm.FunctionTypeDefinition{
				Params: []wasm.ValueType{wasm.ValueTypeInt, wasm.StructRefType(2)},
				Result: wasm.ValueTypeFloat,
			},
			expected: []byte{0x60, 0x02, 0x7f, 0x64, 0x02, 0x01, 0x7c},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, encodeTypeDefinition(tc.input))
		})
	}
}

func TestEncodeNameMap(t *testing.T) {
	require.Equal(t, []byte{0x00}, encodeNameMap(nil))
	require.Equal(t, []byte{
		0x02,
		0x00, 0x05, 'h', 'e', 'l', 'l', 'o',
		0x02, 0x01, 'x',
	}, encodeNameMap([]nameAssoc{
		{index: 0, name: "hello"},
		{index: 2, name: "x"},
	}))
}

func TestEncodeNameSubsection(t *testing.T) {
	require.Equal(t, []byte{subsectionIDGlobalNames, 0x01, 0x00},
		encodeNameSubsection(subsectionIDGlobalNames, encodeNameMap(nil)))
}

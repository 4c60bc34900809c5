package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInteger(t *testing.T) {
	for _, c := range []struct {
		input    string
		expected int32
	}{
		{input: "0", expected: 0},
		{input: "42", expected: 42},
		{input: "1_000_000", expected: 1000000},
		{input: "0b101", expected: 5},
		{input: "0b1111_0000", expected: 240},
		{input: "0o17", expected: 15},
		{input: "0o7_7", expected: 63},
		{input: "0x10", expected: 16},
		{input: "0xff_ff", expected: 65535},
		{input: "2147483647", expected: 2147483647},
	} {
		require.Equal(t, c.expected, parseInteger(c.input), c.input)
	}
}

func TestParseInteger_Invalid(t *testing.T) {
	for _, input := range []string{"", "0b", "0x1g", "12a", "9999999999999"} {
		require.Panics(t, func() { parseInteger(input) }, input)
	}
}

func TestParseFloat(t *testing.T) {
	for _, c := range []struct {
		input    string
		expected float64
	}{
		{input: "0.0", expected: 0},
		{input: "1.5", expected: 1.5},
		{input: "1_000.25", expected: 1000.25},
		{input: "2.0e3", expected: 2000},
	} {
		require.Equal(t, c.expected, parseFloat(c.input), c.input)
	}
}

package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeBuffer_Constants(t *testing.T) {
	var buf CodeBuffer
	buf.I32Const(-1)
	buf.I32Const(624485)
	buf.F64Const(1.0)

	require.Equal(t, []byte{
		OpcodeI32Const, 0x7f,
		OpcodeI32Const, 0xe5, 0x8e, 0x26,
		OpcodeF64Const, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf0, 0x3f,
	}, buf.Bytes())
}

func TestCodeBuffer_ControlFlow(t *testing.T) {
	var buf CodeBuffer
	buf.Block(BlockTypeEmpty)
	buf.If(BlockResultType(ValueTypeInt))
	buf.Br(1)
	buf.Else()
	buf.BrIf(0)
	buf.End()
	buf.Unreachable()
	buf.End()

	require.Equal(t, []byte{
		OpcodeBlock, 0x40,
		OpcodeIf, 0x7f,
		OpcodeBr, 0x01,
		OpcodeElse,
		OpcodeBrIf, 0x00,
		OpcodeEnd,
		OpcodeUnreachable,
		OpcodeEnd,
	}, buf.Bytes())
}

func TestCodeBuffer_RefInstructions(t *testing.T) {
	var buf CodeBuffer
	buf.StructNew(2)
	buf.StructGet(2, 1)
	buf.RefTest(2)
	buf.RefCast(2)
	buf.RefAsNonNull()
	buf.RefNull(2)

	require.Equal(t, []byte{
		OpcodeGCPrefix, OpcodeGCStructNew, 0x02,
		OpcodeGCPrefix, OpcodeGCStructGet, 0x02, 0x01,
		OpcodeGCPrefix, OpcodeGCRefTest, 0x02,
		OpcodeGCPrefix, OpcodeGCRefCast, 0x02,
		OpcodeRefAsNonNull,
		OpcodeRefNull, 0x02,
	}, buf.Bytes())
}

func TestCodeBuffer_AppendBuffer(t *testing.T) {
	var a, b CodeBuffer
	a.LocalGet(0)
	b.LocalSet(1)
	a.AppendBuffer(&b)
	require.Equal(t, []byte{OpcodeLocalGet, 0x00, OpcodeLocalSet, 0x01}, a.Bytes())
}

func TestBlockType_ResultArity(t *testing.T) {
	require.Equal(t, 0, BlockTypeEmpty.ResultArity())
	require.Equal(t, 1, BlockResultType(ValueTypeFloat).ResultArity())
}

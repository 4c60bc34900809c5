package wasm

import (
	"encoding/binary"
	"math"

	"github.com/merl-lang/merl/internal/leb128"
)

// Opcode is a single-byte WebAssembly instruction opcode, or the first byte
// of a multi-byte one.
type Opcode = byte

const (
	OpcodeUnreachable Opcode = 0x00
	OpcodeNop         Opcode = 0x01
	OpcodeBlock       Opcode = 0x02
	OpcodeLoop        Opcode = 0x03
	OpcodeIf          Opcode = 0x04
	OpcodeElse        Opcode = 0x05
	OpcodeEnd         Opcode = 0x0b
	OpcodeBr          Opcode = 0x0c
	OpcodeBrIf        Opcode = 0x0d
	OpcodeCall        Opcode = 0x10
	OpcodeDrop        Opcode = 0x1a

	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	OpcodeI32Const Opcode = 0x41
	OpcodeF64Const Opcode = 0x44

	OpcodeI32Eqz Opcode = 0x45
	OpcodeI32Eq  Opcode = 0x46
	OpcodeI32Ne  Opcode = 0x47
	OpcodeI32LtS Opcode = 0x48
	OpcodeI32GtS Opcode = 0x4a
	OpcodeI32LeS Opcode = 0x4c
	OpcodeI32GeS Opcode = 0x4e

	OpcodeF64Eq Opcode = 0x61
	OpcodeF64Ne Opcode = 0x62
	OpcodeF64Lt Opcode = 0x63
	OpcodeF64Gt Opcode = 0x64
	OpcodeF64Le Opcode = 0x65
	OpcodeF64Ge Opcode = 0x66

	OpcodeI32Add  Opcode = 0x6a
	OpcodeI32Sub  Opcode = 0x6b
	OpcodeI32Mul  Opcode = 0x6c
	OpcodeI32DivS Opcode = 0x6d
	OpcodeI32RemS Opcode = 0x6f

	OpcodeF64Add Opcode = 0xa0
	OpcodeF64Sub Opcode = 0xa1
	OpcodeF64Mul Opcode = 0xa2
	OpcodeF64Div Opcode = 0xa3

	OpcodeRefNull      Opcode = 0xd0
	OpcodeRefAsNonNull Opcode = 0xd4

	// OpcodeGCPrefix begins the two-byte opcodes of the GC proposal.
	OpcodeGCPrefix Opcode = 0xfb
)

// Opcodes behind OpcodeGCPrefix.
//
// See https://webassembly.github.io/gc/core/binary/instructions.html
const (
	OpcodeGCStructNew Opcode = 0x00
	OpcodeGCStructGet Opcode = 0x02
	OpcodeGCRefTest   Opcode = 0x14
	OpcodeGCRefCast   Opcode = 0x16
)

// blockTypeEmpty encodes a block with neither parameters nor results.
const blockTypeEmpty byte = 0x40

// BlockType is the type immediate of block and if instructions.
type BlockType struct {
	hasResult bool
	result    ValueType
}

// BlockTypeEmpty is the `[] -> []` block type.
var BlockTypeEmpty = BlockType{}

// BlockResultType is the `[] -> [v]` block type.
func BlockResultType(v ValueType) BlockType {
	return BlockType{hasResult: true, result: v}
}

// ResultArity returns how many values the block leaves on the stack.
func (b BlockType) ResultArity() int {
	if b.hasResult {
		return 1
	}
	return 0
}

func (b BlockType) encode() []byte {
	if !b.hasResult {
		return []byte{blockTypeEmpty}
	}
	return b.result.Encode()
}

// CodeBuffer accumulates the binary encoding of an instruction sequence.
// The zero value is an empty sequence ready for use.
//
// Each instruction method appends exactly one instruction (AppendBuffer and
// AppendBytes append already-encoded sequences); the caller is responsible for
// stack discipline, which is independently checked by ValidateFunction.
type CodeBuffer struct {
	data []byte
}

// Bytes returns the encoded instructions. The returned slice aliases the
// buffer and must not be retained across further appends.
func (c *CodeBuffer) Bytes() []byte {
	return c.data
}

// AppendBuffer appends another buffer's already-encoded instructions.
func (c *CodeBuffer) AppendBuffer(other *CodeBuffer) {
	c.data = append(c.data, other.data...)
}

// AppendBytes appends already-encoded instructions.
func (c *CodeBuffer) AppendBytes(encoded []byte) {
	c.data = append(c.data, encoded...)
}

func (c *CodeBuffer) op(op Opcode) {
	c.data = append(c.data, op)
}

func (c *CodeBuffer) opIndex(op Opcode, i Index) {
	c.data = append(append(c.data, op), leb128.EncodeUint32(i)...)
}

func (c *CodeBuffer) gcOpType(op Opcode, typeIndex Index) {
	c.data = append(append(c.data, OpcodeGCPrefix, op), leb128.EncodeUint32(typeIndex)...)
}

// Heap type immediates are signed 33-bit integers, unlike type indexes.
func (c *CodeBuffer) gcOpHeapType(op Opcode, typeIndex Index) {
	c.data = append(append(c.data, OpcodeGCPrefix, op), leb128.EncodeInt64(int64(typeIndex))...)
}

func (c *CodeBuffer) Unreachable() { c.op(OpcodeUnreachable) }
func (c *CodeBuffer) End()         { c.op(OpcodeEnd) }
func (c *CodeBuffer) Drop()        { c.op(OpcodeDrop) }

func (c *CodeBuffer) Block(bt BlockType) {
	c.data = append(append(c.data, OpcodeBlock), bt.encode()...)
}

func (c *CodeBuffer) If(bt BlockType) {
	c.data = append(append(c.data, OpcodeIf), bt.encode()...)
}

func (c *CodeBuffer) Else() { c.op(OpcodeElse) }

// Br branches to the end of the block `depth` levels out.
func (c *CodeBuffer) Br(depth uint32)   { c.opIndex(OpcodeBr, depth) }
func (c *CodeBuffer) BrIf(depth uint32) { c.opIndex(OpcodeBrIf, depth) }

func (c *CodeBuffer) Call(functionIndex Index) { c.opIndex(OpcodeCall, functionIndex) }

func (c *CodeBuffer) LocalGet(i Index)  { c.opIndex(OpcodeLocalGet, i) }
func (c *CodeBuffer) LocalSet(i Index)  { c.opIndex(OpcodeLocalSet, i) }
func (c *CodeBuffer) LocalTee(i Index)  { c.opIndex(OpcodeLocalTee, i) }
func (c *CodeBuffer) GlobalGet(i Index) { c.opIndex(OpcodeGlobalGet, i) }
func (c *CodeBuffer) GlobalSet(i Index) { c.opIndex(OpcodeGlobalSet, i) }

func (c *CodeBuffer) I32Const(v int32) {
	c.data = append(append(c.data, OpcodeI32Const), leb128.EncodeInt32(v)...)
}

func (c *CodeBuffer) F64Const(v float64) {
	c.data = append(c.data, OpcodeF64Const)
	c.data = binary.LittleEndian.AppendUint64(c.data, math.Float64bits(v))
}

func (c *CodeBuffer) I32Eqz()  { c.op(OpcodeI32Eqz) }
func (c *CodeBuffer) I32Eq()   { c.op(OpcodeI32Eq) }
func (c *CodeBuffer) I32Ne()   { c.op(OpcodeI32Ne) }
func (c *CodeBuffer) I32LtS()  { c.op(OpcodeI32LtS) }
func (c *CodeBuffer) I32GtS()  { c.op(OpcodeI32GtS) }
func (c *CodeBuffer) I32LeS()  { c.op(OpcodeI32LeS) }
func (c *CodeBuffer) I32GeS()  { c.op(OpcodeI32GeS) }
func (c *CodeBuffer) I32Add()  { c.op(OpcodeI32Add) }
func (c *CodeBuffer) I32Sub()  { c.op(OpcodeI32Sub) }
func (c *CodeBuffer) I32Mul()  { c.op(OpcodeI32Mul) }
func (c *CodeBuffer) I32DivS() { c.op(OpcodeI32DivS) }
func (c *CodeBuffer) I32RemS() { c.op(OpcodeI32RemS) }

func (c *CodeBuffer) F64Eq()  { c.op(OpcodeF64Eq) }
func (c *CodeBuffer) F64Ne()  { c.op(OpcodeF64Ne) }
func (c *CodeBuffer) F64Lt()  { c.op(OpcodeF64Lt) }
func (c *CodeBuffer) F64Gt()  { c.op(OpcodeF64Gt) }
func (c *CodeBuffer) F64Le()  { c.op(OpcodeF64Le) }
func (c *CodeBuffer) F64Ge()  { c.op(OpcodeF64Ge) }
func (c *CodeBuffer) F64Add() { c.op(OpcodeF64Add) }
func (c *CodeBuffer) F64Sub() { c.op(OpcodeF64Sub) }
func (c *CodeBuffer) F64Mul() { c.op(OpcodeF64Mul) }
func (c *CodeBuffer) F64Div() { c.op(OpcodeF64Div) }

func (c *CodeBuffer) RefAsNonNull() { c.op(OpcodeRefAsNonNull) }

// RefNull pushes a null reference to the given concrete struct type.
func (c *CodeBuffer) RefNull(typeIndex Index) {
	// The heap type immediate is a signed 33-bit integer.
	c.data = append(append(c.data, OpcodeRefNull), leb128.EncodeInt64(int64(typeIndex))...)
}

// StructNew allocates a struct of the given type from its field values.
func (c *CodeBuffer) StructNew(typeIndex Index) { c.gcOpType(OpcodeGCStructNew, typeIndex) }

// StructGet reads a field of a struct of the given type.
func (c *CodeBuffer) StructGet(typeIndex Index, fieldIndex Index) {
	c.gcOpType(OpcodeGCStructGet, typeIndex)
	c.data = append(c.data, leb128.EncodeUint32(fieldIndex)...)
}

// RefTest tests whether the reference on the stack is a `(ref typeIndex)`,
// leaving an i32.
func (c *CodeBuffer) RefTest(typeIndex Index) { c.gcOpHeapType(OpcodeGCRefTest, typeIndex) }

// RefCast casts the reference on the stack to `(ref typeIndex)`, trapping
// when it is not one.
func (c *CodeBuffer) RefCast(typeIndex Index) { c.gcOpHeapType(OpcodeGCRefCast, typeIndex) }

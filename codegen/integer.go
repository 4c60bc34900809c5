package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/merl-lang/merl/internal/wasm"
)

// The canonical integer representation is 32-bit signed. Everything
// width-dependent funnels through this file and the value type encoding, so
// widening the native integer is a local change.

// parseInteger parses an integer literal as written in the source: an
// optional 0b/0o/0x base prefix, digits, and underscore separators. The
// lexer guarantees well-formed literals, so a parse failure is a bug.
func parseInteger(value string) int32 {
	val := strings.ReplaceAll(value, "_", "")

	base := 10
	switch {
	case strings.HasPrefix(val, "0b"):
		base = 2
		val = val[2:]
	case strings.HasPrefix(val, "0o"):
		base = 8
		val = val[2:]
	case strings.HasPrefix(val, "0x"):
		base = 16
		val = val[2:]
	}

	n, err := strconv.ParseInt(val, base, 32)
	if err != nil {
		panic(fmt.Sprintf("BUG: invalid integer literal %q: %v", value, err))
	}
	return int32(n)
}

func intConst(buf *wasm.CodeBuffer, v int32) { buf.I32Const(v) }

func intAdd(buf *wasm.CodeBuffer)  { buf.I32Add() }
func intSub(buf *wasm.CodeBuffer)  { buf.I32Sub() }
func intMul(buf *wasm.CodeBuffer)  { buf.I32Mul() }
func intDiv(buf *wasm.CodeBuffer)  { buf.I32DivS() }
func intRem(buf *wasm.CodeBuffer)  { buf.I32RemS() }
func intEq(buf *wasm.CodeBuffer)   { buf.I32Eq() }
func intLt(buf *wasm.CodeBuffer)   { buf.I32LtS() }
func intLtEq(buf *wasm.CodeBuffer) { buf.I32LeS() }
func intGt(buf *wasm.CodeBuffer)   { buf.I32GtS() }
func intGtEq(buf *wasm.CodeBuffer) { buf.I32GeS() }

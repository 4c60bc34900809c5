package binary

import (
	"github.com/merl-lang/merl/internal/leb128"
	"github.com/merl-lang/merl/internal/wasm"
)

// encodeSection encodes the section ID followed by its size-prefixed
// contents.
func encodeSection(sectionID wasm.SectionID, contents []byte) []byte {
	return append([]byte{sectionID}, encodeSizePrefixed(contents)...)
}

// encodeSizePrefixed encodes the data prefixed with its length in bytes.
func encodeSizePrefixed(data []byte) []byte {
	return append(leb128.EncodeUint32(uint32(len(data))), data...)
}

// Package leb128 encodes and decodes integers in the variable-length format
// used throughout the WebAssembly binary format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#integers%E2%91%A4
package leb128

import (
	"errors"
	"fmt"
)

const (
	maxVarintLen32 = 5
	maxVarintLen33 = 5
	maxVarintLen64 = 10
)

var (
	errOverflow32 = errors.New("overflows a 32-bit integer")
	errOverflow33 = errors.New("overflows a 33-bit integer")
	errOverflow64 = errors.New("overflows a 64-bit integer")
)

// EncodeInt32 encodes the signed value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 encodes the signed value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt64(value int64) (buf []byte) {
	for {
		// Take 7 remaining low-order bits of the value.
		b := uint8(value & 0x7f)
		signBit := b & 0x40
		value >>= 7
		if (value == 0 && signBit == 0) || (value == -1 && signBit != 0) {
			// If there are no remaining bits, we don't have to continue.
			buf = append(buf, b)
			break
		}
		// set high-order bit of byte as there are remaining bits.
		buf = append(buf, b|0x80)
	}
	return
}

// EncodeUint32 encodes the value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 encodes the value into a buffer in LEB128 format.
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint64(value uint64) (buf []byte) {
	// This is effectively a do/while loop where we take 7 bits of the value and encode them until it is zero.
	for {
		// Take 7 remaining low-order bits of the value.
		b := uint8(value & 0x7f)
		value = value >> 7

		// If there are remaining bits, the value won't be zero: Set the high-
		// order bit to tell the reader there are more bytes in this uint.
		if value != 0 {
			b |= 0x80
		}

		// Append b into the buffer
		buf = append(buf, b)
		if b&0x80 == 0 {
			return buf
		}
	}
}

// LoadUint32 reads an unsigned 32-bit integer from r, returning it and the
// number of bytes read.
func LoadUint32(r []byte) (ret uint32, bytesRead uint64, err error) {
	// Derived from https://github.com/golang/go/blob/go1.20/src/encoding/binary/varint.go
	// with the modification on the overflow handling tailored for 32-bits.
	var s uint32
	for i := 0; i < maxVarintLen32; i++ {
		if i >= len(r) {
			return 0, 0, errOverflow32
		}
		b := r[i]
		if b < 0x80 {
			// Unused bits must be all zero.
			if i == maxVarintLen32-1 && (b&0xf0) > 0 {
				return 0, 0, errOverflow32
			}
			return ret | uint32(b)<<s, uint64(i) + 1, nil
		}
		ret |= (uint32(b) & 0x7f) << s
		s += 7
	}
	return 0, 0, errOverflow32
}

// LoadUint64 reads an unsigned 64-bit integer from r, returning it and the
// number of bytes read.
func LoadUint64(r []byte) (ret uint64, bytesRead uint64, err error) {
	var s uint64
	for i := 0; i < maxVarintLen64; i++ {
		if i >= len(r) {
			return 0, 0, errOverflow64
		}
		b := r[i]
		if b < 0x80 {
			// Unused bits must be all zero.
			if i == maxVarintLen64-1 && b > 1 {
				return 0, 0, errOverflow64
			}
			return ret | uint64(b)<<s, uint64(i) + 1, nil
		}
		ret |= (uint64(b) & 0x7f) << s
		s += 7
	}
	return 0, 0, errOverflow64
}

// LoadInt32 reads a signed 32-bit integer from r, returning it and the
// number of bytes read.
func LoadInt32(r []byte) (ret int32, bytesRead uint64, err error) {
	var shift int
	var b byte
	for {
		if bytesRead >= uint64(len(r)) {
			return 0, 0, errOverflow32
		}
		b = r[bytesRead]
		ret |= (int32(b) & 0x7f) << shift
		shift += 7
		bytesRead++
		if b&0x80 == 0 {
			if shift < 32 && (b&0x40) != 0 {
				ret |= -1 << shift
			}
			// Over flow checks.
			// fixme: can be optimized.
			if bytesRead > maxVarintLen32 {
				return 0, 0, errOverflow32
			} else if unused := b & 0b00110000; bytesRead == maxVarintLen32 && ret < 0 && unused != 0b00110000 {
				return 0, 0, errOverflow32
			} else if bytesRead == maxVarintLen32 && ret >= 0 && unused != 0x00 {
				return 0, 0, errOverflow32
			}
			return
		}
	}
}

// LoadInt33AsInt64 reads a signed 33-bit integer from r as an int64. This
// width is used by block types and heap type indexes.
func LoadInt33AsInt64(r []byte) (ret int64, bytesRead uint64, err error) {
	var shift int
	var b int64
	var rb byte
	for shift < 35 {
		if bytesRead >= uint64(len(r)) {
			return 0, 0, errOverflow33
		}
		rb = r[bytesRead]
		b = int64(rb)
		ret |= (b & 0x7f) << shift
		shift += 7
		bytesRead++
		if b&0x80 == 0 {
			if shift < 33 && (b&0x40) != 0 {
				ret |= -1 << shift
			}
			// Over flow checks.
			// fixme: can be optimized.
			if bytesRead > maxVarintLen33 {
				return 0, 0, errOverflow33
			} else if unused := b & 0b00100000; bytesRead == maxVarintLen33 && ret < 0 && unused != 0b00100000 {
				return 0, 0, errOverflow33
			} else if bytesRead == maxVarintLen33 && ret >= 0 && unused != 0x00 {
				return 0, 0, errOverflow33
			}
			return ret, bytesRead, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: shifted beyond 33 bits", errOverflow33)
}

// LoadInt64 reads a signed 64-bit integer from r, returning it and the
// number of bytes read.
func LoadInt64(r []byte) (ret int64, bytesRead uint64, err error) {
	var shift int
	var b byte
	for {
		if bytesRead >= uint64(len(r)) {
			return 0, 0, errOverflow64
		}
		b = r[bytesRead]
		ret |= (int64(b) & 0x7f) << shift
		shift += 7
		bytesRead++
		if b&0x80 == 0 {
			if shift < 64 && (b&0x40) != 0 {
				ret |= -1 << shift
			}
			// Over flow checks.
			// fixme: can be optimized.
			if bytesRead > maxVarintLen64 {
				return 0, 0, errOverflow64
			} else if bytesRead == maxVarintLen64 && ((ret < 0 && b != 0x7f) || (ret >= 0 && b != 0x00)) {
				return 0, 0, errOverflow64
			}
			return
		}
	}
}

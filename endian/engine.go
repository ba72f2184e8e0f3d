// Package endian provides byte order utilities for the Nintendo binary
// container family.
//
// Every container starts with a 4-byte magic followed by a 2-byte byte-order
// mark (BOM). The mark is the value 0xFEFF written in the file's own byte
// order, so the first two bytes are FE FF for big-endian files (Wii U) and
// FF FE for little-endian files (Switch). FromBOM turns those two bytes into
// an EndianEngine used for every multi-byte field that follows.
//
// # Basic Usage
//
//	engine, err := endian.FromBOM(data[4:6])
//	if err != nil {
//	    return err
//	}
//	version := engine.Uint32(data[8:12])
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
// The returned EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/arloliu/bfsnd/errs"
)

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian from
// the standard library.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// BOMValue is the byte-order mark as read in the file's own byte order.
const BOMValue uint16 = 0xFEFF

// BOMSwapped is the byte-order mark as seen when read with the wrong byte order.
const BOMSwapped uint16 = 0xFFFE

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100 is 256. For a little-endian system, the LSB (0x00) is first.
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

func IsNativeBigEndian() bool {
	return CheckEndianness() == binary.BigEndian
}

func CompareNativeEndian(engine EndianEngine) bool {
	return engine == CheckEndianness()
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// FromBOM returns the engine selected by a 2-byte byte-order mark.
//
// Parameters:
//   - bom: the two mark bytes exactly as stored in the file
//
// Returns:
//   - EndianEngine: big-endian for FE FF, little-endian for FF FE
//   - error: errs.ErrMalformedByteOrderMark for any other value or a short slice
func FromBOM(bom []byte) (EndianEngine, error) {
	if len(bom) < 2 {
		return nil, fmt.Errorf("%w: need 2 bytes, got %d", errs.ErrMalformedByteOrderMark, len(bom))
	}

	switch {
	case bom[0] == 0xFE && bom[1] == 0xFF:
		return binary.BigEndian, nil
	case bom[0] == 0xFF && bom[1] == 0xFE:
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x%02x", errs.ErrMalformedByteOrderMark, bom[0], bom[1])
	}
}

// AppendBOM appends the byte-order mark for engine.
func AppendBOM(dst []byte, engine EndianEngine) []byte {
	return engine.AppendUint16(dst, BOMValue)
}

// NeedsSwap reports whether data written with engine must be byte-swapped
// when interpreted in host order.
func NeedsSwap(engine EndianEngine) bool {
	return !CompareNativeEndian(engine)
}

// Name returns "little" or "big" for the two standard engines.
func Name(engine EndianEngine) string {
	if engine == binary.BigEndian {
		return "big"
	}

	return "little"
}

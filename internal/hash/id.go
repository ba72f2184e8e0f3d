package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Builder accumulates fixed-width values into an xxHash64 key. The zero
// value is not usable; call NewBuilder.
type Builder struct {
	d   *xxhash.Digest
	buf [8]byte
}

// NewBuilder returns an empty key builder.
func NewBuilder() *Builder {
	return &Builder{d: xxhash.New()}
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() *Builder {
	b.d.Reset()
	return b
}

// Uint32 appends v in little-endian order.
func (b *Builder) Uint32(v uint32) *Builder {
	binary.LittleEndian.PutUint32(b.buf[:4], v)
	_, _ = b.d.Write(b.buf[:4])

	return b
}

// Uint64 appends v in little-endian order.
func (b *Builder) Uint64(v uint64) *Builder {
	binary.LittleEndian.PutUint64(b.buf[:], v)
	_, _ = b.d.Write(b.buf[:])

	return b
}

// Int appends v as a 64-bit value.
func (b *Builder) Int(v int) *Builder {
	binary.LittleEndian.PutUint64(b.buf[:], uint64(v)) //nolint:gosec
	_, _ = b.d.Write(b.buf[:])

	return b
}

// Int16 appends v in little-endian order.
func (b *Builder) Int16(v int16) *Builder {
	binary.LittleEndian.PutUint16(b.buf[:2], uint16(v)) //nolint:gosec
	_, _ = b.d.Write(b.buf[:2])

	return b
}

// Bytes appends p verbatim.
func (b *Builder) Bytes(p []byte) *Builder {
	_, _ = b.d.Write(p)

	return b
}

// Sum returns the key of everything appended so far.
func (b *Builder) Sum() uint64 {
	return b.d.Sum64()
}

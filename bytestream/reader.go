package bytestream

import (
	"fmt"

	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
)

// Reader is a random-access cursor over a borrowed byte slice.
//
// Reader is not safe for concurrent use. Slices returned by Bytes alias
// the underlying buffer.
type Reader struct {
	data   []byte
	pos    int
	engine endian.EndianEngine
}

// NewReader creates a little-endian reader positioned at offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, engine: endian.GetLittleEndianEngine()}
}

// NewReaderWithEngine creates a reader using the given byte order.
func NewReaderWithEngine(data []byte, engine endian.EndianEngine) *Reader {
	return &Reader{data: data, engine: engine}
}

// Engine returns the byte order used for multi-byte reads.
func (r *Reader) Engine() endian.EndianEngine {
	return r.engine
}

// SetEngine replaces the byte order used for multi-byte reads.
func (r *Reader) SetEngine(engine endian.EndianEngine) {
	r.engine = engine
}

// Len returns the total buffer length.
func (r *Reader) Len() int {
	return len(r.data)
}

// Tell returns the current absolute position.
func (r *Reader) Tell() int {
	return r.pos
}

// Remaining returns the number of bytes between the cursor and the buffer end.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Data returns the whole underlying buffer.
func (r *Reader) Data() []byte {
	return r.data
}

func (r *Reader) check(pos, size int) error {
	if pos < 0 || size < 0 || pos > len(r.data) || size > len(r.data)-pos {
		return fmt.Errorf("%w: %d bytes at 0x%x, buffer length 0x%x", errs.ErrOutOfBounds, size, pos, len(r.data))
	}

	return nil
}

// Seek moves the cursor to an absolute position. Seeking to Len() is allowed.
func (r *Reader) Seek(pos int) error {
	if err := r.check(pos, 0); err != nil {
		return err
	}
	r.pos = pos

	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.check(r.pos, n); err != nil {
		return err
	}
	r.pos += n

	return nil
}

// Bytes returns the next n bytes and advances past them.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.check(r.pos, n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n

	return b, nil
}

// Span returns size bytes at an absolute offset without moving the cursor.
func (r *Reader) Span(offset, size int) ([]byte, error) {
	if err := r.check(offset, size); err != nil {
		return nil, err
	}

	return r.data[offset : offset+size : offset+size], nil
}

// U8 reads an unsigned byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.check(r.pos, 1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++

	return v, nil
}

// S8 reads a signed byte.
func (r *Reader) S8() (int8, error) {
	v, err := r.U8()
	return int8(v), err //nolint:gosec
}

// U16 reads an unsigned 16-bit value in the reader's byte order.
func (r *Reader) U16() (uint16, error) {
	if err := r.check(r.pos, 2); err != nil {
		return 0, err
	}
	v := r.engine.Uint16(r.data[r.pos:])
	r.pos += 2

	return v, nil
}

// S16 reads a signed 16-bit value in the reader's byte order.
func (r *Reader) S16() (int16, error) {
	v, err := r.U16()
	return int16(v), err //nolint:gosec
}

// U32 reads an unsigned 32-bit value in the reader's byte order.
func (r *Reader) U32() (uint32, error) {
	if err := r.check(r.pos, 4); err != nil {
		return 0, err
	}
	v := r.engine.Uint32(r.data[r.pos:])
	r.pos += 4

	return v, nil
}

// S32 reads a signed 32-bit value in the reader's byte order.
func (r *Reader) S32() (int32, error) {
	v, err := r.U32()
	return int32(v), err //nolint:gosec
}

// ReadBOM reads the 2-byte byte-order mark at the cursor and switches the
// reader to the byte order it announces.
//
// Returns the mark as read in the selected order (always endian.BOMValue on
// success) or errs.ErrMalformedByteOrderMark.
func (r *Reader) ReadBOM() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}

	engine, err := endian.FromBOM(b)
	if err != nil {
		return 0, err
	}
	r.engine = engine

	return engine.Uint16(b), nil
}

// CString reads a NUL-terminated string starting at the cursor. The cursor
// ends up after the terminator.
func (r *Reader) CString() (string, error) {
	start := r.pos
	for i := start; i < len(r.data); i++ {
		if r.data[i] == 0 {
			r.pos = i + 1
			return string(r.data[start:i]), nil
		}
	}

	return "", fmt.Errorf("%w: unterminated string at 0x%x", errs.ErrOutOfBounds, start)
}

// Fields reads a sequence of fields into the pointed-to values, stopping on
// the first error. Supported pointer types are *uint8, *int8, *uint16,
// *int16, *uint32 and *int32; a nil entry skips 2 bytes of padding.
func (r *Reader) Fields(dst ...any) error {
	for _, d := range dst {
		var err error
		switch p := d.(type) {
		case *uint8:
			*p, err = r.U8()
		case *int8:
			*p, err = r.S8()
		case *uint16:
			*p, err = r.U16()
		case *int16:
			*p, err = r.S16()
		case *uint32:
			*p, err = r.U32()
		case *int32:
			*p, err = r.S32()
		case nil:
			err = r.Skip(2)
		default:
			panic(fmt.Sprintf("bytestream: unsupported field type %T", d))
		}
		if err != nil {
			return err
		}
	}

	return nil
}

package bytestream

import (
	"fmt"

	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/internal/pool"
)

// Writer is a growable, seekable output cursor.
//
// Writes past the current end extend the buffer; gaps created by Seek or
// Skip are zero-filled. Writer is not safe for concurrent use.
type Writer struct {
	buf    *pool.ByteBuffer
	pos    int
	engine endian.EndianEngine
}

// NewWriter creates a writer backed by a pooled container buffer.
// Call Release when the bytes are no longer needed.
func NewWriter(engine endian.EndianEngine) *Writer {
	return &Writer{buf: pool.GetContainerBuffer(), engine: engine}
}

// Engine returns the byte order used for multi-byte writes.
func (w *Writer) Engine() endian.EndianEngine {
	return w.engine
}

// Tell returns the current absolute position.
func (w *Writer) Tell() int {
	return w.pos
}

// Len returns the number of bytes written so far, including zero-filled gaps.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the written bytes. The slice aliases the writer's buffer
// and is invalidated by further writes or Release.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Detach returns a copy of the written bytes and releases the buffer.
func (w *Writer) Detach() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	w.Release()

	return out
}

// Release returns the buffer to the pool. The writer must not be used afterwards.
func (w *Writer) Release() {
	if w.buf != nil {
		pool.PutContainerBuffer(w.buf)
		w.buf = nil
	}
}

// Seek moves the cursor to an absolute position, zero-filling if it lies
// past the end.
func (w *Writer) Seek(pos int) error {
	if pos < 0 {
		return fmt.Errorf("%w: seek to %d", errs.ErrOutOfBounds, pos)
	}
	w.buf.ZeroExtend(pos)
	w.pos = pos

	return nil
}

// SeekEnd moves the cursor to the end of the written data.
func (w *Writer) SeekEnd() {
	w.pos = w.buf.Len()
}

// Skip advances the cursor by n bytes, zero-filling as needed.
func (w *Writer) Skip(n int) {
	w.pos += n
	w.buf.ZeroExtend(w.pos)
}

// Align zero-fills up to the next multiple of n and returns the new position.
func (w *Writer) Align(n int) (int, error) {
	if n <= 0 || n&(n-1) != 0 {
		return w.pos, fmt.Errorf("%w: %d", errs.ErrInvalidAlignment, n)
	}
	if rem := w.pos & (n - 1); rem != 0 {
		w.Skip(n - rem)
	}

	return w.pos, nil
}

func (w *Writer) put(b []byte) {
	end := w.pos + len(b)
	w.buf.ZeroExtend(end)
	copy(w.buf.B[w.pos:end], b)
	w.pos = end
}

// Write writes raw bytes at the cursor.
func (w *Writer) Write(b []byte) (int, error) {
	w.put(b)
	return len(b), nil
}

// PutU8 writes an unsigned byte.
func (w *Writer) PutU8(v uint8) {
	w.put([]byte{v})
}

// PutS8 writes a signed byte.
func (w *Writer) PutS8(v int8) {
	w.PutU8(uint8(v)) //nolint:gosec
}

// PutU16 writes an unsigned 16-bit value.
func (w *Writer) PutU16(v uint16) {
	var b [2]byte
	w.engine.PutUint16(b[:], v)
	w.put(b[:])
}

// PutS16 writes a signed 16-bit value.
func (w *Writer) PutS16(v int16) {
	w.PutU16(uint16(v)) //nolint:gosec
}

// PutU32 writes an unsigned 32-bit value.
func (w *Writer) PutU32(v uint32) {
	var b [4]byte
	w.engine.PutUint32(b[:], v)
	w.put(b[:])
}

// PutS32 writes a signed 32-bit value.
func (w *Writer) PutS32(v int32) {
	w.PutU32(uint32(v)) //nolint:gosec
}

// PutBOM writes the byte-order mark for the writer's engine.
func (w *Writer) PutBOM() {
	w.PutU16(endian.BOMValue)
}

// PutCString writes s followed by a NUL terminator.
func (w *Writer) PutCString(s string) {
	w.put([]byte(s))
	w.PutU8(0)
}

// Reserve32 writes a zero placeholder and returns its position for a later
// PatchU32 or PatchS32.
func (w *Writer) Reserve32() int {
	pos := w.pos
	w.PutU32(0)

	return pos
}

// Reserve16 writes a zero 16-bit placeholder and returns its position.
func (w *Writer) Reserve16() int {
	pos := w.pos
	w.PutU16(0)

	return pos
}

func (w *Writer) checkPatch(pos, size int) error {
	if pos < 0 || pos+size > w.buf.Len() {
		return fmt.Errorf("%w: patch %d bytes at 0x%x, length 0x%x", errs.ErrOutOfBounds, size, pos, w.buf.Len())
	}

	return nil
}

// PatchU32 overwrites a previously written 32-bit field without moving the cursor.
func (w *Writer) PatchU32(pos int, v uint32) error {
	if err := w.checkPatch(pos, 4); err != nil {
		return err
	}
	w.engine.PutUint32(w.buf.B[pos:], v)

	return nil
}

// PatchS32 overwrites a previously written signed 32-bit field.
func (w *Writer) PatchS32(pos int, v int32) error {
	return w.PatchU32(pos, uint32(v)) //nolint:gosec
}

// PatchU16 overwrites a previously written 16-bit field.
func (w *Writer) PatchU16(pos int, v uint16) error {
	if err := w.checkPatch(pos, 2); err != nil {
		return err
	}
	w.engine.PutUint16(w.buf.B[pos:], v)

	return nil
}

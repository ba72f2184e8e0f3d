// Package bytestream provides bounds-checked, endian-aware cursors over
// in-memory container files.
//
// Reader borrows a byte slice and never reads past its end: every access
// validates position+size against the buffer length and fails with
// errs.ErrOutOfBounds instead of panicking. The byte order is little-endian
// until ReadBOM (or SetEngine) selects the file's order.
//
// Writer grows a pooled buffer on demand. Seeking past the end zero-fills,
// which makes the usual two-pass layout cheap: reserve a field, write the
// dependent data, then patch the field once its value is known.
//
//	w := bytestream.NewWriter(endian.GetLittleEndianEngine())
//	defer w.Release()
//	sizePos := w.Reserve32()
//	w.Write(payload)
//	_ = w.PatchU32(sizePos, uint32(w.Tell()))
package bytestream

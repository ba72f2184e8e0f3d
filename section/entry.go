package section

import (
	"fmt"

	"github.com/arloliu/bfsnd/bytestream"
)

// SectionEntry is one row of the top-level section table.
//
// Offset is relative to the start of the file.
type SectionEntry struct {
	Flag   Flag
	Offset int32
	Size   uint32
}

// ReferenceEntry is an indirect pointer: flag plus an offset relative to
// the owning structure's Base.
type ReferenceEntry struct {
	Flag   Flag
	Offset int32
}

// SizedReference is a reference that also carries the size of its target.
type SizedReference struct {
	ReferenceEntry
	Size uint32
}

// IsNull reports whether the reference points nowhere.
func (e ReferenceEntry) IsNull() bool {
	return e.Offset == NullOffset
}

func (e SectionEntry) String() string {
	return fmt.Sprintf("section(flag=0x%04x offset=0x%x size=0x%x)", uint16(e.Flag), e.Offset, e.Size)
}

func (e ReferenceEntry) String() string {
	return fmt.Sprintf("ref(flag=0x%04x offset=0x%x)", uint16(e.Flag), e.Offset)
}

// ReadSectionEntry decodes a 12-byte section entry at the cursor.
func ReadSectionEntry(r *bytestream.Reader) (SectionEntry, error) {
	var (
		flag   uint16
		offset int32
		size   uint32
	)
	if err := r.Fields(&flag, nil, &offset, &size); err != nil {
		return SectionEntry{}, err
	}

	return SectionEntry{Flag: Flag(flag), Offset: offset, Size: size}, nil
}

// WriteTo encodes the entry at the writer's cursor.
func (e SectionEntry) WriteTo(w *bytestream.Writer) {
	w.PutU16(uint16(e.Flag))
	w.PutU16(0)
	w.PutS32(e.Offset)
	w.PutU32(e.Size)
}

// ReadReferenceEntry decodes an 8-byte reference entry at the cursor.
func ReadReferenceEntry(r *bytestream.Reader) (ReferenceEntry, error) {
	var (
		flag   uint16
		offset int32
	)
	if err := r.Fields(&flag, nil, &offset); err != nil {
		return ReferenceEntry{}, err
	}

	return ReferenceEntry{Flag: Flag(flag), Offset: offset}, nil
}

// WriteTo encodes the entry at the writer's cursor.
func (e ReferenceEntry) WriteTo(w *bytestream.Writer) {
	w.PutU16(uint16(e.Flag))
	w.PutU16(0)
	w.PutS32(e.Offset)
}

// ReadSizedReference decodes a 12-byte sized reference at the cursor.
func ReadSizedReference(r *bytestream.Reader) (SizedReference, error) {
	ref, err := ReadReferenceEntry(r)
	if err != nil {
		return SizedReference{}, err
	}
	size, err := r.U32()
	if err != nil {
		return SizedReference{}, err
	}

	return SizedReference{ReferenceEntry: ref, Size: size}, nil
}

// WriteTo encodes the sized reference at the writer's cursor.
func (e SizedReference) WriteTo(w *bytestream.Writer) {
	e.ReferenceEntry.WriteTo(w)
	w.PutU32(e.Size)
}

// Base is the origin that relative offsets are resolved against:
// Start + HeaderWidth + offset.
type Base struct {
	// Start is the absolute position of the owning structure.
	Start int
	// HeaderWidth is the number of bytes between Start and the offset origin.
	HeaderWidth int
}

// BlockBase returns the base for references that follow a block header at start.
func BlockBase(start int) Base {
	return Base{Start: start, HeaderWidth: BlockHeaderSize}
}

// TableBase returns the base for entries of a table or record starting at start.
func TableBase(start int) Base {
	return Base{Start: start}
}

// Origin returns the absolute position offsets are measured from.
func (b Base) Origin() int {
	return b.Start + b.HeaderWidth
}

// Resolve converts a relative offset to an absolute position.
func (b Base) Resolve(offset int32) int {
	return b.Origin() + int(offset)
}

// Relative converts an absolute position to an offset against this base.
func (b Base) Relative(abs int) int32 {
	return int32(abs - b.Origin()) //nolint:gosec
}

// RefSlot is a reference entry written with a placeholder offset that is
// filled in once its target is laid out.
type RefSlot struct {
	pos   int
	base  Base
	sized bool
}

// ReserveReference writes a reference with flag and a null offset and
// returns a slot to point it later.
func ReserveReference(w *bytestream.Writer, flag Flag, base Base) RefSlot {
	pos := w.Tell()
	ReferenceEntry{Flag: flag, Offset: NullOffset}.WriteTo(w)

	return RefSlot{pos: pos, base: base}
}

// ReserveSizedReference writes a sized reference placeholder.
func ReserveSizedReference(w *bytestream.Writer, flag Flag, base Base) RefSlot {
	pos := w.Tell()
	SizedReference{ReferenceEntry: ReferenceEntry{Flag: flag, Offset: NullOffset}}.WriteTo(w)

	return RefSlot{pos: pos, base: base, sized: true}
}

// Point patches the slot's offset so it resolves to target.
func (s RefSlot) Point(w *bytestream.Writer, target int) error {
	return w.PatchS32(s.pos+4, s.base.Relative(target))
}

// PointSized patches offset and size of a sized slot.
func (s RefSlot) PointSized(w *bytestream.Writer, target int, size uint32) error {
	if !s.sized {
		return fmt.Errorf("section: slot at 0x%x has no size field", s.pos)
	}
	if err := s.Point(w, target); err != nil {
		return err
	}

	return w.PatchU32(s.pos+8, size)
}

// SetFlag replaces the slot's flag, for references whose kind is only
// known once the target is written.
func (s RefSlot) SetFlag(w *bytestream.Writer, flag Flag) error {
	return w.PatchU16(s.pos, uint16(flag))
}

package section

import (
	"fmt"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
)

// Magic is a 4-character block or file signature stored as ASCII bytes.
// It is byte-order independent.
type Magic [4]byte

// MagicOf builds a Magic from a 4-character string.
func MagicOf(s string) Magic {
	var m Magic
	copy(m[:], s)

	return m
}

func (m Magic) String() string {
	return string(m[:])
}

// Uint32LE returns the magic read as a little-endian u32, the numeric
// form tools usually print ("FSTM" is 0x4d545346).
func (m Magic) Uint32LE() uint32 {
	return uint32(m[0]) | uint32(m[1])<<8 | uint32(m[2])<<16 | uint32(m[3])<<24
}

// ReadMagic reads 4 signature bytes at the cursor.
func ReadMagic(r *bytestream.Reader) (Magic, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return Magic{}, err
	}

	var m Magic
	copy(m[:], b)

	return m, nil
}

// Version is a packed major.minor.micro format version, e.g. 0x00060100.
type Version uint32

// NewVersion packs a version number.
func NewVersion(major, minor, micro uint8) Version {
	return Version(uint32(major)<<16 | uint32(minor)<<8 | uint32(micro))
}

func (v Version) Major() uint8 { return uint8(v >> 16) } //nolint:gosec
func (v Version) Minor() uint8 { return uint8(v >> 8) }  //nolint:gosec
func (v Version) Micro() uint8 { return uint8(v) }       //nolint:gosec

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Micro())
}

// AtLeast reports whether v >= other.
func (v Version) AtLeast(other Version) bool {
	return v >= other
}

// FileHeader is the common header of every container.
type FileHeader struct {
	Magic      Magic
	Engine     endian.EndianEngine
	HeaderSize uint16
	Version    Version
	FileSize   uint32
	Sections   []SectionEntry
}

// ParseFileHeader reads the file header and section table from the start
// of the reader and switches the reader to the file's byte order.
//
// Parameters:
//   - r: reader over the whole file
//   - want: expected file magic
//
// Returns:
//   - FileHeader: the parsed header; Sections are in file order and not yet dispatched
//   - error: errs.ErrMalformedMagic, errs.ErrMalformedByteOrderMark, errs.ErrTooManySections
//     or errs.ErrOutOfBounds
func ParseFileHeader(r *bytestream.Reader, want Magic) (FileHeader, error) {
	var h FileHeader

	if err := r.Seek(0); err != nil {
		return h, err
	}

	magic, err := ReadMagic(r)
	if err != nil {
		return h, err
	}
	if magic != want {
		return h, fmt.Errorf("%w: got %q, want %q", errs.ErrMalformedMagic, magic.String(), want.String())
	}
	h.Magic = magic

	if _, err := r.ReadBOM(); err != nil {
		return h, err
	}
	h.Engine = r.Engine()

	var (
		version      uint32
		sectionCount uint16
	)
	if err := r.Fields(&h.HeaderSize, &version, &h.FileSize, &sectionCount, nil); err != nil {
		return h, err
	}
	h.Version = Version(version)

	if sectionCount > MaxSections {
		return h, fmt.Errorf("%w: %d", errs.ErrTooManySections, sectionCount)
	}

	h.Sections = make([]SectionEntry, 0, sectionCount)
	for range sectionCount {
		entry, err := ReadSectionEntry(r)
		if err != nil {
			return h, err
		}
		h.Sections = append(h.Sections, entry)
	}

	return h, nil
}

// Find returns the first section entry with the given flag.
func (h *FileHeader) Find(flag Flag) (SectionEntry, bool) {
	for _, s := range h.Sections {
		if s.Flag == flag {
			return s, true
		}
	}

	return SectionEntry{}, false
}

// HeaderSizeFor returns the aligned header size for sectionCount sections.
func HeaderSizeFor(sectionCount int) int {
	n := FileHeaderFixedSize + sectionCount*SectionEntrySize
	return (n + BlockAlignment - 1) &^ (BlockAlignment - 1)
}

// HeaderWriter writes a file header whose section entries and file size
// are backpatched once the blocks are laid out.
type HeaderWriter struct {
	w           *bytestream.Writer
	fileSizePos int
	entryPos    []int
}

// BeginFileHeader writes the header at position 0 with placeholder section
// entries for flags, then leaves the cursor at the aligned header end.
func BeginFileHeader(w *bytestream.Writer, magic Magic, version Version, flags []Flag) (*HeaderWriter, error) {
	if len(flags) > MaxSections {
		return nil, fmt.Errorf("%w: %d", errs.ErrTooManySections, len(flags))
	}
	if err := w.Seek(0); err != nil {
		return nil, err
	}

	headerSize := HeaderSizeFor(len(flags))
	_, _ = w.Write(magic[:])
	w.PutBOM()
	w.PutU16(uint16(headerSize)) //nolint:gosec
	w.PutU32(uint32(version))
	hw := &HeaderWriter{w: w, fileSizePos: w.Reserve32()}
	w.PutU16(uint16(len(flags))) //nolint:gosec
	w.PutU16(0)

	hw.entryPos = make([]int, len(flags))
	for i, f := range flags {
		hw.entryPos[i] = w.Tell()
		SectionEntry{Flag: f, Offset: NullOffset}.WriteTo(w)
	}

	if err := w.Seek(headerSize); err != nil {
		return nil, err
	}

	return hw, nil
}

// SetSection patches entry i with the block's absolute offset and size.
func (hw *HeaderWriter) SetSection(i int, offset, size int) error {
	if i < 0 || i >= len(hw.entryPos) {
		return fmt.Errorf("%w: section %d of %d", errs.ErrOutOfBounds, i, len(hw.entryPos))
	}
	pos := hw.entryPos[i]
	if err := hw.w.PatchS32(pos+4, int32(offset)); err != nil { //nolint:gosec
		return err
	}

	return hw.w.PatchU32(pos+8, uint32(size)) //nolint:gosec
}

// Finish patches the file size with the writer's current length.
func (hw *HeaderWriter) Finish() error {
	return hw.w.PatchU32(hw.fileSizePos, uint32(hw.w.Len())) //nolint:gosec
}

// ReadBlockHeader seeks to a section block, validates its magic and returns
// the block base (width 8) and the declared block size.
func ReadBlockHeader(r *bytestream.Reader, entry SectionEntry, want Magic) (Base, uint32, error) {
	if err := r.Seek(int(entry.Offset)); err != nil {
		return Base{}, 0, err
	}

	magic, err := ReadMagic(r)
	if err != nil {
		return Base{}, 0, err
	}
	if magic != want {
		return Base{}, 0, fmt.Errorf("%w: block at 0x%x is %q, want %q",
			errs.ErrMalformedMagic, entry.Offset, magic.String(), want.String())
	}

	size, err := r.U32()
	if err != nil {
		return Base{}, 0, err
	}

	return BlockBase(int(entry.Offset)), size, nil
}

// BlockWriter writes one section block: magic, size placeholder, body.
type BlockWriter struct {
	w       *bytestream.Writer
	start   int
	sizePos int
}

// BeginBlock starts a block at the writer's cursor, which must already be aligned.
func BeginBlock(w *bytestream.Writer, magic Magic) *BlockWriter {
	start := w.Tell()
	_, _ = w.Write(magic[:])

	return &BlockWriter{w: w, start: start, sizePos: w.Reserve32()}
}

// Base returns the block base used by references inside the body.
func (b *BlockWriter) Base() Base {
	return BlockBase(b.start)
}

// Start returns the absolute position of the block.
func (b *BlockWriter) Start() int {
	return b.start
}

// End pads the block to BlockAlignment, patches its size and returns the
// block's offset and size for the section table.
func (b *BlockWriter) End() (int, int, error) {
	b.w.SeekEnd()
	end, err := b.w.Align(BlockAlignment)
	if err != nil {
		return 0, 0, err
	}
	size := end - b.start
	if err := b.w.PatchU32(b.sizePos, uint32(size)); err != nil { //nolint:gosec
		return 0, 0, err
	}

	return b.start, size, nil
}

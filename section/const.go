package section

// Flag tags a section or reference entry with its semantic kind. Within a
// table the flag is also the lookup key.
type Flag uint16

// Flags shared by every container in the family.
const (
	FlagNone           Flag = 0x0000 // FlagNone marks an unused reference.
	FlagByteTable      Flag = 0x0100 // FlagByteTable points at a count-prefixed u8 table.
	FlagReferenceTable Flag = 0x0101 // FlagReferenceTable points at a count-prefixed reference table.
	FlagSampleData     Flag = 0x1F00 // FlagSampleData points at raw sample or file data.
	FlagStringEntry    Flag = 0x1F01 // FlagStringEntry is a sized reference into a string blob.
)

// On-disk sizes.
const (
	// FileHeaderFixedSize covers magic, BOM, header size, version, file size,
	// section count and padding.
	FileHeaderFixedSize = 0x14
	// SectionEntrySize is flag, pad, offset and size.
	SectionEntrySize = 12
	// ReferenceEntrySize is flag, pad and offset.
	ReferenceEntrySize = 8
	// SizedReferenceSize is a reference followed by a size.
	SizedReferenceSize = 12
	// BlockHeaderSize is the magic and size that open every section block;
	// most offsets inside a block are relative to the end of it.
	BlockHeaderSize = 8
	// TableCountSize is the u32 element count that opens every table.
	TableCountSize = 4
	// BlockAlignment is the alignment of section blocks and the header.
	BlockAlignment = 0x20
)

// NullOffset is stored in references that point nowhere.
const NullOffset int32 = -1

// MaxSections bounds the section table; real files carry at most five.
const MaxSections = 16

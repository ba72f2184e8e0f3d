// Package section implements the addressing convention shared by the
// Nintendo binary container family (streams, sound archives, groups, wave
// archives).
//
// # Container Layout
//
// Every container has the same outer shape:
//
//	┌──────────────────────────────────────────────────────┐
//	│ File header (0x14 bytes)                             │
//	│  magic[4] bom u16 headerSize u16 version u32         │
//	│  fileSize u32 sectionCount u16 pad u16               │
//	├──────────────────────────────────────────────────────┤
//	│ Section table (sectionCount × 12 bytes)              │
//	│  flag u16 pad u16 offset i32 size u32                │
//	├──────────────────────────────────────────────────────┤
//	│ padding to 0x20                                      │
//	├──────────────────────────────────────────────────────┤
//	│ Section blocks, each 0x20 aligned                    │
//	│  magic[4] size u32 body...                           │
//	└──────────────────────────────────────────────────────┘
//
// Inside a block, indirection uses reference entries (flag u16, pad u16,
// offset i32) and reference tables (count u32 followed by entries). An
// offset is always relative to some base; the base is the start of the
// owning structure plus a fixed header width. For references stored right
// after a block header the width is 8 (magic + size); for entries of a
// reference table the base is the table start itself (width 0). Base keeps
// both values explicit so each caller states which convention applies.
//
// # Error Handling
//
// Unknown flags in the top-level section table are fatal and reported as
// errs.ErrUnsupportedSectionFlag by the format parsers. Unknown flags inside
// a nested reference table are skipped; ReadReferenceTable returns them as
// warnings wrapping the same sentinel.
package section

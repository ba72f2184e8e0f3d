package section

import (
	"fmt"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/errs"
)

// ReferenceTable is a decoded count-prefixed reference table.
type ReferenceTable struct {
	// Base resolves entry offsets; it is the table start with width 0.
	Base Base
	// Entries holds the entries whose flag matched, in file order.
	Entries []ReferenceEntry
	// Indices maps each kept entry to its slot in the table.
	Indices []int
	// Count is the declared element count, including skipped entries.
	Count uint32
}

// ReadReferenceTable decodes the table at pos, keeping entries flagged want.
//
// Entries with any other flag are skipped; each one produces a warning that
// wraps errs.ErrUnsupportedSectionFlag. A limit greater than zero truncates
// the table and adds a warning.
//
// Parameters:
//   - r: reader over the whole file
//   - pos: absolute position of the count field
//   - want: flag of the entries to keep
//   - limit: maximum number of slots to read, 0 for no limit
//
// Returns:
//   - ReferenceTable: kept entries and their base
//   - []error: recoverable warnings
//   - error: errs.ErrOutOfBounds when the table crosses the buffer end
func ReadReferenceTable(r *bytestream.Reader, pos int, want Flag, limit int) (ReferenceTable, []error, error) {
	tbl := ReferenceTable{Base: TableBase(pos)}
	if err := r.Seek(pos); err != nil {
		return tbl, nil, err
	}

	count, err := r.U32()
	if err != nil {
		return tbl, nil, err
	}
	tbl.Count = count

	// Validate the whole table up front so a garbage count cannot drive a huge allocation.
	if int64(count)*ReferenceEntrySize > int64(r.Remaining()) {
		return tbl, nil, fmt.Errorf("%w: table at 0x%x declares %d entries", errs.ErrOutOfBounds, pos, count)
	}

	var warnings []error
	n := int(count)
	if limit > 0 && n > limit {
		warnings = append(warnings, fmt.Errorf("table at 0x%x has %d entries, only %d are supported", pos, n, limit))
		n = limit
	}

	tbl.Entries = make([]ReferenceEntry, 0, n)
	for i := range n {
		entry, err := ReadReferenceEntry(r)
		if err != nil {
			return tbl, warnings, err
		}
		if entry.Flag != want {
			warnings = append(warnings, fmt.Errorf("%w: entry %d of table at 0x%x is 0x%04x, want 0x%04x",
				errs.ErrUnsupportedSectionFlag, i, pos, uint16(entry.Flag), uint16(want)))

			continue
		}
		tbl.Entries = append(tbl.Entries, entry)
		tbl.Indices = append(tbl.Indices, i)
	}

	return tbl, warnings, nil
}

// Resolve returns the absolute position of entry i.
func (t ReferenceTable) Resolve(i int) int {
	return t.Base.Resolve(t.Entries[i].Offset)
}

// TableWriter writes a reference table whose entry offsets are filled in
// as each element is written.
type TableWriter struct {
	start int
	slots []RefSlot
}

// BeginReferenceTable writes count and count placeholder entries flagged flag.
func BeginReferenceTable(w *bytestream.Writer, flag Flag, count int) *TableWriter {
	tw := &TableWriter{start: w.Tell()}
	w.PutU32(uint32(count)) //nolint:gosec
	base := TableBase(tw.start)
	tw.slots = make([]RefSlot, count)
	for i := range count {
		tw.slots[i] = ReserveReference(w, flag, base)
	}

	return tw
}

// Start returns the absolute position of the table.
func (tw *TableWriter) Start() int {
	return tw.start
}

// Point sets entry i to resolve to target.
func (tw *TableWriter) Point(w *bytestream.Writer, i int, target int) error {
	if i < 0 || i >= len(tw.slots) {
		return fmt.Errorf("%w: table entry %d of %d", errs.ErrOutOfBounds, i, len(tw.slots))
	}

	return tw.slots[i].Point(w, target)
}

package bfsar

import (
	"fmt"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/internal/options"
	"github.com/arloliu/bfsnd/section"
	"github.com/arloliu/bfsnd/trie"
)

type writeConfig struct {
	engine endian.EndianEngine
}

// WriteOption configures WriteStrings.
type WriteOption = options.Option[*writeConfig]

// WithEngine sets the byte order of the output. The default is little-endian.
func WithEngine(engine endian.EndianEngine) WriteOption {
	return options.NoError(func(c *writeConfig) {
		if engine != nil {
			c.engine = engine
		}
	})
}

// WriteStrings encodes a standalone STRG block. String i of the table is
// names[i].Name, and the trie maps it to names[i].ID.
//
// Returns errs.ErrEmptyTrie, errs.ErrInvalidName or errs.ErrDuplicateTrieKey
// when the names cannot be indexed.
func WriteStrings(names []ItemName, opts ...WriteOption) ([]byte, error) {
	cfg := &writeConfig{engine: endian.GetLittleEndianEngine()}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	strs := make([]string, len(names))
	keys := make([]trie.Key, len(names))
	for i, n := range names {
		strs[i] = n.Name
		keys[i] = trie.Key{Name: n.Name, StringIndex: uint32(i), ItemID: uint32(n.ID)} //nolint:gosec
	}
	tree, err := trie.Build(keys)
	if err != nil {
		return nil, fmt.Errorf("bfsar: %w", err)
	}

	w := bytestream.NewWriter(cfg.engine)
	if _, _, err := writeStrings(w, strs, tree); err != nil {
		w.Release()
		return nil, err
	}

	return w.Detach(), nil
}

func writeStrings(w *bytestream.Writer, strs []string, tree *trie.Tree) (int, int, error) {
	bw := section.BeginBlock(w, StringsMagic)
	base := bw.Base()
	tableRef := section.ReserveReference(w, RefStringTable, base)
	lutRef := section.ReserveReference(w, RefLookupTable, base)

	tableStart := w.Tell()
	if err := tableRef.Point(w, tableStart); err != nil {
		return 0, 0, err
	}
	w.PutU32(uint32(len(strs))) //nolint:gosec
	slots := make([]section.RefSlot, len(strs))
	for i := range strs {
		slots[i] = section.ReserveSizedReference(w, section.FlagStringEntry, section.TableBase(tableStart))
	}
	for i, s := range strs {
		if err := slots[i].PointSized(w, w.Tell(), uint32(len(s)+1)); err != nil { //nolint:gosec
			return 0, 0, err
		}
		w.PutCString(s)
	}
	if _, err := w.Align(4); err != nil {
		return 0, 0, err
	}

	if err := lutRef.Point(w, w.Tell()); err != nil {
		return 0, 0, err
	}
	tree.Encode(w)

	return bw.End()
}

// AddInternalFile appends a file stored in the FILE block and returns its ID.
func (a *Archive) AddInternalFile(body []byte) uint32 {
	off := len(a.fileBody)
	a.fileBody = append(a.fileBody, body...)
	a.Files = append(a.Files, FileInfo{
		Location: FlagInternalFileInfo,
		Offset:   int32(off),        //nolint:gosec
		Size:     uint32(len(body)), //nolint:gosec
	})

	return uint32(len(a.Files) - 1) //nolint:gosec
}

// AddExternalFile appends a file referenced by path and returns its ID.
func (a *Archive) AddExternalFile(path string) uint32 {
	a.Files = append(a.Files, FileInfo{Location: FlagExternalFileInfo, Offset: section.NullOffset, External: path})
	return uint32(len(a.Files) - 1) //nolint:gosec
}

// Write encodes the archive.
//
// Names come from the NameID fields of the records; the trie is rebuilt
// from them. Internal files are laid out again in ID order, so Offset
// fields of the written archive may differ from a.Files.
//
// Returns errs.ErrInvalidStringTable for a NameID outside Strings,
// errs.ErrDuplicateTrieKey when two items share a name and
// errs.ErrInvalidFileInfo for files with an unknown location or missing body.
func Write(a *Archive) ([]byte, error) {
	version := a.Version
	if version == 0 {
		version = DefaultVersion
	}
	engine := a.Engine
	if engine == nil {
		engine = endian.GetLittleEndianEngine()
	}

	tree, err := a.buildTree()
	if err != nil {
		return nil, err
	}
	files, bodies, err := a.layoutFiles()
	if err != nil {
		return nil, err
	}

	var flags []section.Flag
	if tree != nil {
		flags = append(flags, SectionStrings)
	}
	flags = append(flags, SectionInfo, SectionFile)

	w := bytestream.NewWriter(engine)
	defer w.Release()

	hw, err := section.BeginFileHeader(w, FileMagic, version, flags)
	if err != nil {
		return nil, err
	}

	for i, flag := range flags {
		var off, size int
		switch flag {
		case SectionStrings:
			off, size, err = writeStrings(w, a.Strings, tree)
		case SectionInfo:
			off, size, err = a.writeInfo(w, files)
		case SectionFile:
			off, size, err = writeFiles(w, files, bodies)
		}
		if err != nil {
			return nil, fmt.Errorf("bfsar: write section 0x%04x: %w", uint16(flag), err)
		}
		if err := hw.SetSection(i, off, size); err != nil {
			return nil, err
		}
	}
	if err := hw.Finish(); err != nil {
		return nil, err
	}

	out := make([]byte, w.Len())
	copy(out, w.Bytes())

	return out, nil
}

// buildTree indexes every named record; it returns nil when nothing is named.
func (a *Archive) buildTree() (*trie.Tree, error) {
	var keys []trie.Key
	add := func(t ItemType, n int) error {
		for i := range n {
			id := NewItemID(t, i)
			nameID, _ := a.nameID(id)
			if nameID == NoName {
				continue
			}
			if int(nameID) >= len(a.Strings) {
				return fmt.Errorf("bfsar: %w: %s has name %d of %d strings",
					errs.ErrInvalidStringTable, id, nameID, len(a.Strings))
			}
			keys = append(keys, trie.Key{Name: a.Strings[nameID], StringIndex: nameID, ItemID: uint32(id)})
		}

		return nil
	}

	counts := [...]struct {
		t ItemType
		n int
	}{
		{ItemSound, len(a.Sounds)},
		{ItemSoundGroup, len(a.SoundGroups)},
		{ItemBank, len(a.Banks)},
		{ItemPlayer, len(a.Players)},
		{ItemWaveArchive, len(a.WaveArchives)},
		{ItemGroup, len(a.Groups)},
	}
	for _, c := range counts {
		if err := add(c.t, c.n); err != nil {
			return nil, err
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	tree, err := trie.Build(keys)
	if err != nil {
		return nil, fmt.Errorf("bfsar: %w", err)
	}

	return tree, nil
}

// layoutFiles assigns FILE block offsets to internal files in ID order.
func (a *Archive) layoutFiles() ([]FileInfo, [][]byte, error) {
	files := make([]FileInfo, len(a.Files))
	bodies := make([][]byte, len(a.Files))
	cursor := fileDataPadding

	for i, f := range a.Files {
		files[i] = f
		switch {
		case f.Location == FlagExternalFileInfo:
			files[i].Offset = section.NullOffset
			files[i].Size = 0
		case f.Location != FlagInternalFileInfo:
			return nil, nil, fmt.Errorf("bfsar: %w: file %d has location 0x%04x",
				errs.ErrInvalidFileInfo, i, uint16(f.Location))
		case f.Offset == section.NullOffset:
		default:
			body, err := a.FileData(uint32(i)) //nolint:gosec
			if err != nil {
				return nil, nil, err
			}
			files[i].Offset = int32(cursor) //nolint:gosec
			bodies[i] = body
			cursor = alignFile(cursor + len(body))
		}
	}

	return files, bodies, nil
}

// alignFile moves a FILE body offset to the next absolutely aligned position.
func alignFile(off int) int {
	abs := off + section.BlockHeaderSize
	abs = (abs + fileAlignment - 1) &^ (fileAlignment - 1)

	return abs - section.BlockHeaderSize
}

func (a *Archive) writeInfo(w *bytestream.Writer, files []FileInfo) (int, int, error) {
	bw := section.BeginBlock(w, InfoMagic)
	base := bw.Base()

	var refs [len(infoTables)]section.RefSlot
	for i, t := range infoTables {
		refs[i] = section.ReserveReference(w, t.ref, base)
	}

	writers := [...]struct {
		n     int
		write func(w *bytestream.Writer, i int)
	}{
		{len(a.Sounds), a.writeSound},
		{len(a.SoundGroups), a.writeSoundGroup},
		{len(a.Banks), a.writeBank},
		{len(a.WaveArchives), a.writeWaveArchive},
		{len(a.Groups), a.writeGroup},
		{len(a.Players), a.writePlayer},
		{len(files), func(w *bytestream.Writer, i int) { writeFileInfo(w, files[i]) }},
	}
	for i, tw := range writers {
		if err := refs[i].Point(w, w.Tell()); err != nil {
			return 0, 0, err
		}
		table := section.BeginReferenceTable(w, infoTables[i].element, tw.n)
		for j := range tw.n {
			if err := table.Point(w, j, w.Tell()); err != nil {
				return 0, 0, err
			}
			tw.write(w, j)
		}
	}

	if err := refs[len(refs)-1].Point(w, w.Tell()); err != nil {
		return 0, 0, err
	}
	s := a.Settings
	for _, v := range []uint16{
		s.SequenceSoundMax, s.SequenceTrackMax, s.StreamSoundMax, s.StreamTrackMax,
		s.StreamChannelMax, s.WaveSoundMax, s.WaveTrackMax,
	} {
		w.PutU16(v)
	}
	w.PutU8(s.StreamBufferTimes)
	w.PutU8(s.IsAdvancedWave)

	return bw.End()
}

func (a *Archive) writeSound(w *bytestream.Writer, i int) {
	s := a.Sounds[i]
	w.PutU32(s.FileID)
	w.PutU32(s.PlayerID)
	w.PutU8(s.Volume)
	w.PutU8(s.RemoteFilter)
	w.PutU16(0)
	section.ReferenceEntry{Flag: s.Type, Offset: s.DetailOffset}.WriteTo(w)
	w.PutU32(s.Flags)
}

func (a *Archive) writeSoundGroup(w *bytestream.Writer, i int) {
	g := a.SoundGroups[i]
	w.PutU32(uint32(g.StartID))
	w.PutU32(uint32(g.EndID))
	section.ReferenceEntry{Flag: section.FlagNone, Offset: section.NullOffset}.WriteTo(w)
	section.ReferenceEntry{Flag: section.FlagNone, Offset: section.NullOffset}.WriteTo(w)
}

func (a *Archive) writeBank(w *bytestream.Writer, i int) {
	w.PutU32(a.Banks[i].FileID)
	section.ReferenceEntry{Flag: section.FlagNone, Offset: section.NullOffset}.WriteTo(w)
	w.PutU32(0)
}

func (a *Archive) writeWaveArchive(w *bytestream.Writer, i int) {
	wa := a.WaveArchives[i]
	w.PutU32(wa.FileID)
	w.PutU32(wa.WaveCount)
	w.PutU32(wa.Flags)
}

func (a *Archive) writeGroup(w *bytestream.Writer, i int) {
	w.PutU32(a.Groups[i].FileID)
	w.PutU32(0)
}

func (a *Archive) writePlayer(w *bytestream.Writer, i int) {
	w.PutU32(a.Players[i].PlayableSoundMax)
	w.PutU32(a.Players[i].Flags)
}

func writeFileInfo(w *bytestream.Writer, f FileInfo) {
	section.ReferenceEntry{Flag: f.Location, Offset: fileInfoBodyOffset}.WriteTo(w)
	w.PutU32(0)

	if f.Location == FlagExternalFileInfo {
		w.PutCString(f.External)
		_, _ = w.Align(4)

		return
	}
	section.SizedReference{
		ReferenceEntry: section.ReferenceEntry{Flag: section.FlagSampleData, Offset: f.Offset},
		Size:           f.Size,
	}.WriteTo(w)
	section.ReferenceEntry{Flag: section.FlagByteTable, Offset: section.NullOffset}.WriteTo(w)
}

func writeFiles(w *bytestream.Writer, files []FileInfo, bodies [][]byte) (int, int, error) {
	bw := section.BeginBlock(w, FileBlockMagic)
	base := bw.Base()
	if err := w.Seek(base.Resolve(fileDataPadding)); err != nil {
		return 0, 0, err
	}
	for i, body := range bodies {
		if body == nil {
			continue
		}
		if err := w.Seek(base.Resolve(files[i].Offset)); err != nil {
			return 0, 0, err
		}
		_, _ = w.Write(body)
	}

	return bw.End()
}

package bfsar

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/internal/options"
	"github.com/arloliu/bfsnd/section"
	"github.com/arloliu/bfsnd/trie"
)

// ParseOption configures Parse.
type ParseOption = options.Option[*parser]

// WithLogger sets the logger that receives parse warnings.
func WithLogger(logger *slog.Logger) ParseOption {
	return options.NoError(func(p *parser) {
		if logger != nil {
			p.logger = logger
		}
	})
}

// parser carries the state of one Parse call: the string table and the
// per-kind item counts seen in the trie and in the INFO tables.
type parser struct {
	r        *bytestream.Reader
	logger   *slog.Logger
	arc      *Archive
	sections map[section.Flag]section.SectionEntry

	trieCounts [itemTypeCount]int
	infoCounts [itemTypeCount]int
}

func (p *parser) warn(err error) {
	p.arc.Warnings = append(p.arc.Warnings, err)
	p.logger.Warn("bfsar: parse warning", "error", err)
}

// Parse decodes a sound archive.
//
// The archive aliases data for FileData.
//
// Returns:
//   - *Archive: the parsed archive with recoverable problems in Warnings
//   - error: errs.ErrMalformedMagic, errs.ErrMalformedByteOrderMark,
//     errs.ErrUnsupportedSectionFlag, errs.ErrMissingRequiredSection,
//     errs.ErrMissingReference, errs.ErrInvalidStringTable, errs.ErrInvalidTrie
//     or errs.ErrOutOfBounds
func Parse(data []byte, opts ...ParseOption) (*Archive, error) {
	p := &parser{
		r:        bytestream.NewReader(data),
		logger:   slog.New(slog.DiscardHandler),
		arc:      &Archive{},
		sections: make(map[section.Flag]section.SectionEntry),
	}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	if err := p.parseStrings(); err != nil {
		return nil, err
	}
	if err := p.parseInfo(); err != nil {
		return nil, err
	}
	if err := p.parseFile(); err != nil {
		return nil, err
	}
	p.attachNames()

	return p.arc, nil
}

func (p *parser) parseHeader() error {
	h, err := section.ParseFileHeader(p.r, FileMagic)
	if err != nil {
		return fmt.Errorf("bfsar: %w", err)
	}
	p.arc.Version = h.Version
	p.arc.Engine = h.Engine

	if h.Version > DefaultVersion {
		p.warn(fmt.Errorf("%w: version %s is newer than %s", errs.ErrUnsupportedVersion, h.Version, DefaultVersion))
	}

	for _, s := range h.Sections {
		switch s.Flag {
		case SectionStrings, SectionInfo, SectionFile:
			p.sections[s.Flag] = s
		default:
			return fmt.Errorf("bfsar: %w: section 0x%04x", errs.ErrUnsupportedSectionFlag, uint16(s.Flag))
		}
	}
	for _, required := range []section.Flag{SectionInfo, SectionFile} {
		if _, ok := p.sections[required]; !ok {
			return fmt.Errorf("bfsar: %w: 0x%04x", errs.ErrMissingRequiredSection, uint16(required))
		}
	}

	return nil
}

func (p *parser) parseStrings() error {
	entry, ok := p.sections[SectionStrings]
	if !ok {
		return nil
	}

	base, _, err := section.ReadBlockHeader(p.r, entry, StringsMagic)
	if err != nil {
		return fmt.Errorf("bfsar: strings: %w", err)
	}

	tableRef, err := section.ReadReferenceEntry(p.r)
	if err != nil {
		return fmt.Errorf("bfsar: strings: %w", err)
	}
	lutRef, err := section.ReadReferenceEntry(p.r)
	if err != nil {
		return fmt.Errorf("bfsar: strings: %w", err)
	}
	if tableRef.Flag != RefStringTable || lutRef.Flag != RefLookupTable {
		return fmt.Errorf("bfsar: %w: references %s and %s", errs.ErrInvalidStringTable, tableRef, lutRef)
	}

	if err := p.readStringTable(base.Resolve(tableRef.Offset)); err != nil {
		return err
	}

	if err := p.r.Seek(base.Resolve(lutRef.Offset)); err != nil {
		return fmt.Errorf("bfsar: lookup table: %w", err)
	}
	tree, err := trie.Decode(p.r, p.arc.Strings)
	if err != nil {
		return fmt.Errorf("bfsar: lookup table: %w", err)
	}
	p.arc.Tree = tree

	for _, leaf := range tree.Leaves() {
		if t := ItemID(leaf.ItemID).Type(); t < itemTypeCount {
			p.trieCounts[t]++
		}
	}

	return nil
}

func (p *parser) readStringTable(pos int) error {
	if err := p.r.Seek(pos); err != nil {
		return fmt.Errorf("bfsar: string table: %w", err)
	}
	count, err := p.r.U32()
	if err != nil {
		return fmt.Errorf("bfsar: string table: %w", err)
	}
	if int64(count)*section.SizedReferenceSize > int64(p.r.Remaining()) {
		return fmt.Errorf("bfsar: %w: string table declares %d entries", errs.ErrOutOfBounds, count)
	}

	base := section.TableBase(pos)
	refs := make([]section.SizedReference, 0, count)
	for i := range count {
		ref, err := section.ReadSizedReference(p.r)
		if err != nil {
			return fmt.Errorf("bfsar: string table: %w", err)
		}
		if ref.Flag != section.FlagStringEntry {
			p.warn(fmt.Errorf("%w: string entry %d is %s", errs.ErrUnsupportedSectionFlag, i, ref.ReferenceEntry))
			continue
		}
		refs = append(refs, ref)
	}

	p.arc.Strings = make([]string, 0, len(refs))
	for i, ref := range refs {
		if ref.Size == 0 {
			return fmt.Errorf("bfsar: %w: string %d has size 0", errs.ErrInvalidStringTable, i)
		}
		b, err := p.r.Span(base.Resolve(ref.Offset), int(ref.Size)-1)
		if err != nil {
			return fmt.Errorf("bfsar: string %d: %w", i, err)
		}
		p.arc.Strings = append(p.arc.Strings, string(b))
	}

	return nil
}

// infoTables lists the INFO references in storage order with the element
// flag of the table each one points at.
var infoTables = [...]struct {
	ref     section.Flag
	element section.Flag
}{
	{RefSoundTable, FlagSoundInfo},
	{RefSoundGroupTable, FlagSoundGroupInfo},
	{RefBankTable, FlagBankInfo},
	{RefWaveArchiveTable, FlagWaveArchiveInfo},
	{RefGroupTable, FlagGroupInfo},
	{RefPlayerTable, FlagPlayerInfo},
	{RefFileTable, FlagFileInfo},
	{FlagArchivePlayerInfo, 0},
}

func (p *parser) parseInfo() error {
	base, _, err := section.ReadBlockHeader(p.r, p.sections[SectionInfo], InfoMagic)
	if err != nil {
		return fmt.Errorf("bfsar: info: %w", err)
	}

	var refs [len(infoTables)]section.ReferenceEntry
	for i, want := range infoTables {
		if refs[i], err = section.ReadReferenceEntry(p.r); err != nil {
			return fmt.Errorf("bfsar: info: %w", err)
		}
		if refs[i].Flag != want.ref || refs[i].IsNull() {
			return fmt.Errorf("bfsar: %w: info reference %d is %s, want flag 0x%04x",
				errs.ErrMissingReference, i, refs[i], uint16(want.ref))
		}
	}

	readers := [...]func(int) error{
		p.readSound, p.readSoundGroup, p.readBank, p.readWaveArchive,
		p.readGroup, p.readPlayer, p.readFileInfo,
	}
	for i, read := range readers {
		tbl, warnings, err := section.ReadReferenceTable(p.r, base.Resolve(refs[i].Offset), infoTables[i].element, 0)
		if err != nil {
			return fmt.Errorf("bfsar: info table 0x%04x: %w", uint16(infoTables[i].element), err)
		}
		for _, w := range warnings {
			p.warn(w)
		}
		for j := range tbl.Entries {
			if err := p.r.Seek(tbl.Resolve(j)); err != nil {
				return fmt.Errorf("bfsar: info record 0x%04x/%d: %w", uint16(infoTables[i].element), j, err)
			}
			if err := read(tbl.Resolve(j)); err != nil {
				return fmt.Errorf("bfsar: info record 0x%04x/%d: %w", uint16(infoTables[i].element), j, err)
			}
		}
	}

	if err := p.r.Seek(base.Resolve(refs[len(refs)-1].Offset)); err != nil {
		return fmt.Errorf("bfsar: player settings: %w", err)
	}
	s := &p.arc.Settings
	err = p.r.Fields(&s.SequenceSoundMax, &s.SequenceTrackMax, &s.StreamSoundMax, &s.StreamTrackMax,
		&s.StreamChannelMax, &s.WaveSoundMax, &s.WaveTrackMax, &s.StreamBufferTimes, &s.IsAdvancedWave)
	if err != nil {
		return fmt.Errorf("bfsar: player settings: %w", err)
	}

	p.infoCounts[ItemSound] = len(p.arc.Sounds)
	p.infoCounts[ItemSoundGroup] = len(p.arc.SoundGroups)
	p.infoCounts[ItemBank] = len(p.arc.Banks)
	p.infoCounts[ItemPlayer] = len(p.arc.Players)
	p.infoCounts[ItemWaveArchive] = len(p.arc.WaveArchives)
	p.infoCounts[ItemGroup] = len(p.arc.Groups)
	p.checkCounts()

	return nil
}

// checkCounts compares the trie's items per kind with the INFO tables.
// Wave archives are exempt: archives routinely index only some of them.
func (p *parser) checkCounts() {
	if p.arc.Tree == nil {
		return
	}
	for t := ItemSound; t < itemTypeCount; t++ {
		if t == ItemWaveArchive {
			continue
		}
		if p.trieCounts[t] != p.infoCounts[t] {
			p.warn(fmt.Errorf("%w: %s has %d names and %d records",
				errs.ErrItemCountMismatch, t, p.trieCounts[t], p.infoCounts[t]))
		}
	}
}

func (p *parser) readSound(start int) error {
	s := SoundInfo{NameID: NoName}
	var typ uint16
	err := p.r.Fields(&s.FileID, &s.PlayerID, &s.Volume, &s.RemoteFilter, nil, &typ, nil, &s.DetailOffset, &s.Flags)
	if err != nil {
		return err
	}
	s.Type = SoundType(typ)
	switch s.Type {
	case FlagStreamSoundInfo, FlagWaveSoundInfo, FlagSequenceSoundInfo:
	default:
		p.warn(fmt.Errorf("%w: sound at 0x%x has type 0x%04x", errs.ErrUnsupportedSectionFlag, start, typ))
	}
	p.arc.Sounds = append(p.arc.Sounds, s)

	return nil
}

func (p *parser) readSoundGroup(int) error {
	g := SoundGroupInfo{NameID: NoName}
	var startID, endID uint32
	if err := p.r.Fields(&startID, &endID); err != nil {
		return err
	}
	g.StartID, g.EndID = ItemID(startID), ItemID(endID)
	p.arc.SoundGroups = append(p.arc.SoundGroups, g)

	return nil
}

func (p *parser) readBank(int) error {
	b := BankInfo{NameID: NoName}
	if err := p.r.Fields(&b.FileID); err != nil {
		return err
	}
	p.arc.Banks = append(p.arc.Banks, b)

	return nil
}

func (p *parser) readWaveArchive(int) error {
	w := WaveArchiveInfo{NameID: NoName}
	if err := p.r.Fields(&w.FileID, &w.WaveCount, &w.Flags); err != nil {
		return err
	}
	p.arc.WaveArchives = append(p.arc.WaveArchives, w)

	return nil
}

func (p *parser) readGroup(int) error {
	g := GroupInfo{NameID: NoName}
	if err := p.r.Fields(&g.FileID); err != nil {
		return err
	}
	p.arc.Groups = append(p.arc.Groups, g)

	return nil
}

func (p *parser) readPlayer(int) error {
	pl := PlayerInfo{NameID: NoName}
	if err := p.r.Fields(&pl.PlayableSoundMax, &pl.Flags); err != nil {
		return err
	}
	p.arc.Players = append(p.arc.Players, pl)

	return nil
}

func (p *parser) readFileInfo(start int) error {
	loc, err := section.ReadReferenceEntry(p.r)
	if err != nil {
		return err
	}
	f := FileInfo{Location: loc.Flag, Offset: section.NullOffset}
	if err := p.r.Seek(section.TableBase(start).Resolve(loc.Offset)); err != nil {
		return err
	}

	switch loc.Flag {
	case FlagExternalFileInfo:
		if f.External, err = p.r.CString(); err != nil {
			return err
		}
	case FlagInternalFileInfo:
		body, err := section.ReadSizedReference(p.r)
		if err != nil {
			return err
		}
		f.Offset, f.Size = body.Offset, body.Size
	default:
		p.warn(fmt.Errorf("%w: file info at 0x%x has location 0x%04x",
			errs.ErrInvalidFileInfo, start, uint16(loc.Flag)))
	}
	p.arc.Files = append(p.arc.Files, f)

	return nil
}

func (p *parser) parseFile() error {
	base, size, err := section.ReadBlockHeader(p.r, p.sections[SectionFile], FileBlockMagic)
	if err != nil {
		return fmt.Errorf("bfsar: file: %w", err)
	}
	end := min(base.Start+int(size), p.r.Len())
	if end < base.Origin() {
		return fmt.Errorf("bfsar: %w: file block size 0x%x", errs.ErrOutOfBounds, size)
	}
	p.arc.fileBody, err = p.r.Span(base.Origin(), end-base.Origin())

	return err
}

// attachNames copies the string index of every trie leaf into the record
// its item ID designates.
func (p *parser) attachNames() {
	if p.arc.Tree == nil {
		return
	}
	for _, leaf := range p.arc.Tree.Leaves() {
		id := ItemID(leaf.ItemID)
		if !p.arc.setNameID(id, leaf.StringIndex) {
			p.warn(fmt.Errorf("%w: name %d points at %s", errs.ErrItemNotFound, leaf.StringIndex, id))
		}
	}
}

package bfstm

import (
	"fmt"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/section"
)

// Normalize fills the fields of Info that follow from the rest of the file:
// channel and region counts, seek geometry and the layout offsets Write uses.
func (f *File) Normalize() {
	if f.Version == 0 {
		f.Version = DefaultVersion
	}
	if f.Engine == nil {
		f.Engine = endian.GetLittleEndianEngine()
	}

	info := &f.Info
	info.ChannelCount = uint8(len(f.Channels)) //nolint:gosec
	info.RegionCount = uint8(len(f.Regions))   //nolint:gosec
	info.SampleDataOffset = dataPadding

	if len(f.SeekTable) > 0 {
		info.SeekInfoSize = seekEntrySize
		info.SeekSampleInterval = info.BlockSizeSamples
	} else {
		info.SeekInfoSize = 0
		info.SeekSampleInterval = 0
	}

	if len(f.Regions) > 0 {
		info.RegionInfoSize = uint16(regionInfoSize(len(f.Channels))) //nolint:gosec
		info.RegionDataOffset = regionPadding
	} else {
		info.RegionInfoSize = 0
		info.RegionDataOffset = section.NullOffset
	}

	if !hasUnalignedLoop(f.Version) {
		info.LoopStartUnaligned = info.LoopStart
		info.LoopEndUnaligned = info.SampleCount
	}
	if !f.Version.AtLeast(versionChecksum) {
		info.Checksum = 0
	}
}

func regionInfoSize(channels int) int {
	n := regionRecordFixedSize + channels*contextSize
	n = alignBlock(n)

	return max(n, DefaultRegionInfoSize)
}

// Write encodes f as a BFSTM container.
//
// f is normalized first (see Normalize), so Parse(Write(f)) reproduces f
// after f.Normalize().
//
// Returns:
//   - []byte: the encoded file
//   - error: errs.ErrInvalidStreamInfo or errs.ErrInvalidSampleData when the
//     parts of f disagree
func Write(f *File) ([]byte, error) {
	c := *f
	c.Normalize()
	if err := c.validate(); err != nil {
		return nil, err
	}

	flags := []section.Flag{SectionInfo}
	if len(c.SeekTable) > 0 {
		flags = append(flags, SectionSeek)
	}
	if len(c.Regions) > 0 {
		flags = append(flags, SectionRegion)
	}
	flags = append(flags, SectionData)

	w := bytestream.NewWriter(c.Engine)
	defer w.Release()

	hw, err := section.BeginFileHeader(w, FileMagic, c.Version, flags)
	if err != nil {
		return nil, err
	}

	writers := map[section.Flag]func(*bytestream.Writer) (int, int, error){
		SectionInfo:   c.writeInfo,
		SectionSeek:   c.writeSeek,
		SectionRegion: c.writeRegions,
		SectionData:   c.writeData,
	}
	for i, flag := range flags {
		off, size, err := writers[flag](w)
		if err != nil {
			return nil, fmt.Errorf("bfstm: write section 0x%04x: %w", uint16(flag), err)
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

func (f *File) validate() error {
	info := &f.Info
	switch {
	case !info.Encoding.Supported():
		return fmt.Errorf("bfstm: %w: %s", errs.ErrUnsupportedEncoding, info.Encoding)
	case len(f.Channels) == 0 || len(f.Channels) > 0xFF:
		return fmt.Errorf("bfstm: %w: %d channels", errs.ErrInvalidStreamInfo, len(f.Channels))
	case len(f.Regions) > 0xFF:
		return fmt.Errorf("bfstm: %w: %d regions", errs.ErrInvalidStreamInfo, len(f.Regions))
	case info.SampleRate == 0 || info.BlockCount == 0 || info.BlockSizeSamples == 0:
		return fmt.Errorf("bfstm: %w: empty block layout", errs.ErrInvalidStreamInfo)
	case len(f.Tracks) > MaxTracks:
		return fmt.Errorf("bfstm: %w: %d tracks", errs.ErrInvalidStreamInfo, len(f.Tracks))
	}

	for i, ch := range f.Channels {
		if ch.Encoding() != info.Encoding {
			return fmt.Errorf("bfstm: %w: channel %d is %s in a %s stream",
				errs.ErrInvalidChannelInfo, i, ch.Encoding(), info.Encoding)
		}
	}
	for i, r := range f.Regions {
		if len(r.Contexts) != len(f.Channels) {
			return fmt.Errorf("bfstm: %w: region %d has %d contexts for %d channels",
				errs.ErrInvalidRegion, i, len(r.Contexts), len(f.Channels))
		}
	}
	if n := len(f.SeekTable); n > 0 && n != int(info.BlockCount)*len(f.Channels) {
		return fmt.Errorf("bfstm: %w: seek table has %d entries, want %d",
			errs.ErrInvalidStreamInfo, n, int(info.BlockCount)*len(f.Channels))
	}
	if len(f.Data) != f.dataSize() {
		return fmt.Errorf("bfstm: %w: 0x%x bytes of sample data, layout needs 0x%x",
			errs.ErrInvalidSampleData, len(f.Data), f.dataSize())
	}

	return nil
}

func (f *File) writeInfo(w *bytestream.Writer) (int, int, error) {
	bw := section.BeginBlock(w, InfoMagic)
	base := bw.Base()

	streamRef := section.ReserveReference(w, RefStreamInfo, base)
	trackRef := section.ReserveReference(w, section.FlagNone, base)
	channelRef := section.ReserveReference(w, section.FlagReferenceTable, base)

	if err := streamRef.Point(w, w.Tell()); err != nil {
		return 0, 0, err
	}
	f.writeStreamInfo(w)

	if len(f.Tracks) > 0 {
		if err := trackRef.SetFlag(w, section.FlagReferenceTable); err != nil {
			return 0, 0, err
		}
		if err := trackRef.Point(w, w.Tell()); err != nil {
			return 0, 0, err
		}
		if err := f.writeTracks(w); err != nil {
			return 0, 0, err
		}
	}

	if err := channelRef.Point(w, w.Tell()); err != nil {
		return 0, 0, err
	}
	if err := f.writeChannels(w); err != nil {
		return 0, 0, err
	}

	return bw.End()
}

func (f *File) writeStreamInfo(w *bytestream.Writer) {
	info := &f.Info
	w.PutU8(uint8(info.Encoding))
	if info.Loop {
		w.PutU8(1)
	} else {
		w.PutU8(0)
	}
	w.PutU8(info.ChannelCount)
	w.PutU8(info.RegionCount)
	for _, v := range []uint32{
		info.SampleRate, info.LoopStart, info.SampleCount, info.BlockCount,
		info.BlockSizeBytes, info.BlockSizeSamples,
		info.LastBlockSizeBytes, info.LastBlockSizeSamples, info.LastBlockSizeBytesRaw,
		info.SeekInfoSize, info.SeekSampleInterval,
	} {
		w.PutU32(v)
	}
	section.ReferenceEntry{Flag: section.FlagSampleData, Offset: info.SampleDataOffset}.WriteTo(w)
	w.PutU16(info.RegionInfoSize)
	w.PutU16(0)
	section.ReferenceEntry{Flag: section.FlagNone, Offset: info.RegionDataOffset}.WriteTo(w)

	if hasUnalignedLoop(f.Version) {
		w.PutU32(info.LoopStartUnaligned)
		w.PutU32(info.LoopEndUnaligned)
	}
	if f.Version.AtLeast(versionChecksum) {
		w.PutU32(info.Checksum)
	}
}

func (f *File) writeTracks(w *bytestream.Writer) error {
	tw := section.BeginReferenceTable(w, RefTrackInfo, len(f.Tracks))
	for i, t := range f.Tracks {
		start := w.Tell()
		if err := tw.Point(w, i, start); err != nil {
			return err
		}
		w.PutU8(t.Volume)
		w.PutU8(t.Pan)
		w.PutU8(t.Span)
		w.PutU8(t.Flags)
		ref := section.ReserveReference(w, section.FlagByteTable, section.TableBase(start))
		if err := ref.Point(w, w.Tell()); err != nil {
			return err
		}
		w.PutU32(uint32(len(t.Channels))) //nolint:gosec
		_, _ = w.Write(t.Channels)
		if _, err := w.Align(4); err != nil {
			return err
		}
	}

	return nil
}

func (f *File) writeChannels(w *bytestream.Writer) error {
	tw := section.BeginReferenceTable(w, RefChannelInfo, len(f.Channels))

	// Channel records first, then the codec records they point at.
	slots := make([]section.RefSlot, len(f.Channels))
	for i, ch := range f.Channels {
		start := w.Tell()
		if err := tw.Point(w, i, start); err != nil {
			return err
		}
		if ch.Encoding() == format.DSPADPCM {
			slots[i] = section.ReserveReference(w, RefDSPADPCM, section.TableBase(start))
		} else {
			section.ReferenceEntry{Flag: section.FlagNone, Offset: section.NullOffset}.WriteTo(w)
		}
	}

	for i, ch := range f.Channels {
		info, ok := ch.(DSPChannelInfo)
		if !ok {
			continue
		}
		if err := slots[i].Point(w, w.Tell()); err != nil {
			return err
		}
		for _, pair := range info.Coefs {
			w.PutS16(pair[0])
			w.PutS16(pair[1])
		}
		writeContext(w, info.Start)
		writeContext(w, info.Loop)
		w.PutU16(0)
	}

	return nil
}

func writeContext(w *bytestream.Writer, c dsp.Context) {
	w.PutU16(c.Header)
	w.PutS16(c.Yn1)
	w.PutS16(c.Yn2)
}

func (f *File) writeSeek(w *bytestream.Writer) (int, int, error) {
	bw := section.BeginBlock(w, SeekMagic)
	for _, h := range f.SeekTable {
		w.PutS16(h.Yn1)
		w.PutS16(h.Yn2)
	}

	return bw.End()
}

func (f *File) writeRegions(w *bytestream.Writer) (int, int, error) {
	bw := section.BeginBlock(w, RegionMagic)
	first := bw.Base().Resolve(f.Info.RegionDataOffset)
	stride := int(f.Info.RegionInfoSize)

	for i, r := range f.Regions {
		if err := w.Seek(first + i*stride); err != nil {
			return 0, 0, err
		}
		w.PutU32(r.Start)
		w.PutU32(r.End)
		for _, c := range r.Contexts {
			writeContext(w, c)
		}
	}
	if err := w.Seek(first + len(f.Regions)*stride); err != nil {
		return 0, 0, err
	}

	return bw.End()
}

func (f *File) writeData(w *bytestream.Writer) (int, int, error) {
	bw := section.BeginBlock(w, DataMagic)
	if err := w.Seek(bw.Base().Resolve(f.Info.SampleDataOffset)); err != nil {
		return 0, 0, err
	}
	_, _ = w.Write(f.Data)

	return bw.End()
}

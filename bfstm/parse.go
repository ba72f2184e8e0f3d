package bfstm

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/bfsnd/bytestream"
	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/internal/options"
	"github.com/arloliu/bfsnd/section"
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

type parser struct {
	r        *bytestream.Reader
	logger   *slog.Logger
	stream   *Stream
	sections map[section.Flag]section.SectionEntry
}

func (p *parser) warn(err error) {
	p.stream.Warnings = append(p.stream.Warnings, err)
	p.logger.Warn("bfstm: parse warning", "error", err)
}

// Parse decodes a BFSTM container.
//
// The returned Stream aliases data; the caller must not modify data while
// the stream is in use.
//
// Parameters:
//   - data: the whole file
//   - opts: parse options
//
// Returns:
//   - *Stream: parsed stream, with recoverable problems in Warnings
//   - error: errs.ErrMalformedMagic, errs.ErrMalformedByteOrderMark,
//     errs.ErrUnsupportedSectionFlag, errs.ErrMissingRequiredSection,
//     errs.ErrUnsupportedEncoding, errs.ErrInvalidStreamInfo or errs.ErrOutOfBounds
func Parse(data []byte, opts ...ParseOption) (*Stream, error) {
	p := &parser{
		r:        bytestream.NewReader(data),
		logger:   slog.New(slog.DiscardHandler),
		stream:   &Stream{},
		sections: make(map[section.Flag]section.SectionEntry),
	}
	if err := options.Apply(p, opts...); err != nil {
		return nil, err
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	if err := p.parseInfo(); err != nil {
		return nil, err
	}
	if err := p.parseRegions(); err != nil {
		return nil, err
	}
	if err := p.parseSeek(); err != nil {
		return nil, err
	}
	if err := p.parseData(); err != nil {
		return nil, err
	}

	return p.stream, nil
}

func (p *parser) parseHeader() error {
	h, err := section.ParseFileHeader(p.r, FileMagic)
	if err != nil {
		return fmt.Errorf("bfstm: %w", err)
	}
	p.stream.Header = h
	p.stream.Version = h.Version
	p.stream.Engine = h.Engine

	if h.Version > DefaultVersion {
		p.warn(fmt.Errorf("%w: version %s is newer than %s", errs.ErrUnsupportedVersion, h.Version, DefaultVersion))
	}

	for _, s := range h.Sections {
		switch s.Flag {
		case SectionInfo, SectionSeek, SectionData, SectionRegion:
			p.sections[s.Flag] = s
		case SectionPdat:
			p.warn(fmt.Errorf("%w: pdat section at 0x%x ignored", errs.ErrUnsupportedSectionFlag, s.Offset))
		default:
			return fmt.Errorf("bfstm: %w: section 0x%04x", errs.ErrUnsupportedSectionFlag, uint16(s.Flag))
		}
	}

	for _, required := range []section.Flag{SectionInfo, SectionData} {
		if _, ok := p.sections[required]; !ok {
			return fmt.Errorf("bfstm: %w: 0x%04x", errs.ErrMissingRequiredSection, uint16(required))
		}
	}

	return nil
}

func (p *parser) parseInfo() error {
	base, _, err := section.ReadBlockHeader(p.r, p.sections[SectionInfo], InfoMagic)
	if err != nil {
		return fmt.Errorf("bfstm: info: %w", err)
	}

	var refs [3]section.ReferenceEntry
	for i := range refs {
		if refs[i], err = section.ReadReferenceEntry(p.r); err != nil {
			return fmt.Errorf("bfstm: info: %w", err)
		}
	}
	streamRef, trackRef, channelRef := refs[0], refs[1], refs[2]

	if streamRef.Flag != RefStreamInfo || streamRef.IsNull() {
		return fmt.Errorf("bfstm: %w: stream info reference is %s", errs.ErrMissingReference, streamRef)
	}
	if err := p.r.Seek(base.Resolve(streamRef.Offset)); err != nil {
		return fmt.Errorf("bfstm: stream info: %w", err)
	}
	if err := p.parseStreamInfo(); err != nil {
		return err
	}

	switch {
	case trackRef.IsNull():
	case trackRef.Flag == section.FlagReferenceTable:
		if err := p.parseTracks(base.Resolve(trackRef.Offset)); err != nil {
			return err
		}
	default:
		p.warn(fmt.Errorf("%w: track table reference %s", errs.ErrUnsupportedSectionFlag, trackRef))
	}

	switch {
	case channelRef.IsNull():
	case channelRef.Flag == section.FlagReferenceTable:
		if err := p.parseChannels(base.Resolve(channelRef.Offset)); err != nil {
			return err
		}
	default:
		p.warn(fmt.Errorf("%w: channel table reference %s", errs.ErrUnsupportedSectionFlag, channelRef))
	}

	declared := int(p.stream.Info.ChannelCount)
	p.stream.channelCount = min(declared, len(p.stream.Channels))
	if len(p.stream.Channels) != declared {
		p.warn(fmt.Errorf("%w: %d channels declared, %d channel records",
			errs.ErrChannelCountMismatch, declared, len(p.stream.Channels)))
	}

	return nil
}

func (p *parser) parseStreamInfo() error {
	var (
		info               = &p.stream.Info
		encoding, loop     uint8
		dataFlag, regnFlag uint16
	)
	err := p.r.Fields(
		&encoding, &loop, &info.ChannelCount, &info.RegionCount,
		&info.SampleRate, &info.LoopStart, &info.SampleCount, &info.BlockCount,
		&info.BlockSizeBytes, &info.BlockSizeSamples,
		&info.LastBlockSizeBytes, &info.LastBlockSizeSamples, &info.LastBlockSizeBytesRaw,
		&info.SeekInfoSize, &info.SeekSampleInterval,
		&dataFlag, nil, &info.SampleDataOffset,
		&info.RegionInfoSize, nil,
		&regnFlag, nil, &info.RegionDataOffset,
	)
	if err != nil {
		return fmt.Errorf("bfstm: stream info: %w", err)
	}
	info.Encoding = format.Encoding(encoding)
	info.Loop = loop != 0

	if hasUnalignedLoop(p.stream.Version) {
		if err := p.r.Fields(&info.LoopStartUnaligned, &info.LoopEndUnaligned); err != nil {
			return fmt.Errorf("bfstm: stream info: %w", err)
		}
	} else {
		info.LoopStartUnaligned = info.LoopStart
		info.LoopEndUnaligned = info.SampleCount
	}
	if p.stream.Version.AtLeast(versionChecksum) {
		if err := p.r.Fields(&info.Checksum); err != nil {
			return fmt.Errorf("bfstm: stream info: %w", err)
		}
	}

	if section.Flag(dataFlag) != section.FlagSampleData {
		p.warn(fmt.Errorf("%w: sample data reference flag 0x%04x", errs.ErrUnsupportedSectionFlag, dataFlag))
	}

	if !info.Encoding.Supported() {
		return fmt.Errorf("bfstm: %w: %s", errs.ErrUnsupportedEncoding, info.Encoding)
	}

	switch {
	case info.ChannelCount == 0:
		return fmt.Errorf("bfstm: %w: no channels", errs.ErrInvalidStreamInfo)
	case info.SampleRate == 0:
		return fmt.Errorf("bfstm: %w: zero sample rate", errs.ErrInvalidStreamInfo)
	case info.BlockCount == 0 || info.BlockSizeSamples == 0:
		return fmt.Errorf("bfstm: %w: empty block layout", errs.ErrInvalidStreamInfo)
	case info.LastBlockSizeBytesRaw < info.LastBlockSizeBytes:
		return fmt.Errorf("bfstm: %w: last block raw size 0x%x below 0x%x",
			errs.ErrInvalidStreamInfo, info.LastBlockSizeBytesRaw, info.LastBlockSizeBytes)
	}

	return nil
}

func (p *parser) parseTracks(pos int) error {
	tbl, warnings, err := section.ReadReferenceTable(p.r, pos, RefTrackInfo, MaxTracks)
	if err != nil {
		return fmt.Errorf("bfstm: track table: %w", err)
	}
	for _, w := range warnings {
		p.warn(w)
	}

	p.stream.Tracks = make([]TrackInfo, 0, len(tbl.Entries))
	for i := range tbl.Entries {
		start := tbl.Resolve(i)
		if err := p.r.Seek(start); err != nil {
			return fmt.Errorf("bfstm: track %d: %w", i, err)
		}

		var t TrackInfo
		if err := p.r.Fields(&t.Volume, &t.Pan, &t.Span, &t.Flags); err != nil {
			return fmt.Errorf("bfstm: track %d: %w", i, err)
		}
		ref, err := section.ReadReferenceEntry(p.r)
		if err != nil {
			return fmt.Errorf("bfstm: track %d: %w", i, err)
		}

		if ref.Flag == section.FlagByteTable && !ref.IsNull() {
			if t.Channels, err = p.readByteTable(section.TableBase(start).Resolve(ref.Offset)); err != nil {
				return fmt.Errorf("bfstm: track %d: %w", i, err)
			}
		} else if !ref.IsNull() {
			p.warn(fmt.Errorf("%w: track %d channel table %s", errs.ErrUnsupportedSectionFlag, i, ref))
		}

		p.stream.Tracks = append(p.stream.Tracks, t)
	}

	return nil
}

func (p *parser) readByteTable(pos int) ([]uint8, error) {
	if err := p.r.Seek(pos); err != nil {
		return nil, err
	}
	count, err := p.r.U32()
	if err != nil {
		return nil, err
	}
	b, err := p.r.Bytes(int(count))
	if err != nil {
		return nil, err
	}

	return append([]uint8(nil), b...), nil
}

func (p *parser) parseChannels(pos int) error {
	tbl, warnings, err := section.ReadReferenceTable(p.r, pos, RefChannelInfo, 0)
	if err != nil {
		return fmt.Errorf("bfstm: channel table: %w", err)
	}
	for _, w := range warnings {
		p.warn(w)
	}

	encoding := p.stream.Info.Encoding
	p.stream.Channels = make([]ChannelInfo, 0, len(tbl.Entries))
	for i := range tbl.Entries {
		start := tbl.Resolve(i)
		if err := p.r.Seek(start); err != nil {
			return fmt.Errorf("bfstm: channel %d: %w", i, err)
		}
		ref, err := section.ReadReferenceEntry(p.r)
		if err != nil {
			return fmt.Errorf("bfstm: channel %d: %w", i, err)
		}

		if encoding != format.DSPADPCM {
			p.stream.Channels = append(p.stream.Channels, PCMChannelInfo{Width: encoding})
			continue
		}

		if ref.Flag != RefDSPADPCM || ref.IsNull() {
			return fmt.Errorf("bfstm: %w: channel %d codec reference %s", errs.ErrInvalidChannelInfo, i, ref)
		}
		if err := p.r.Seek(section.TableBase(start).Resolve(ref.Offset)); err != nil {
			return fmt.Errorf("bfstm: channel %d: %w", i, err)
		}
		info, err := readDSPChannelInfo(p.r)
		if err != nil {
			return fmt.Errorf("bfstm: channel %d: %w", i, err)
		}
		p.stream.Channels = append(p.stream.Channels, info)
	}

	return nil
}

func readDSPChannelInfo(r *bytestream.Reader) (DSPChannelInfo, error) {
	var info DSPChannelInfo
	for i := range info.Coefs {
		if err := r.Fields(&info.Coefs[i][0], &info.Coefs[i][1]); err != nil {
			return info, err
		}
	}

	var err error
	if info.Start, err = readContext(r); err != nil {
		return info, err
	}
	if info.Loop, err = readContext(r); err != nil {
		return info, err
	}

	return info, nil
}

func readContext(r *bytestream.Reader) (dsp.Context, error) {
	var c dsp.Context
	err := r.Fields(&c.Header, &c.Yn1, &c.Yn2)

	return c, err
}

func (p *parser) parseRegions() error {
	entry, ok := p.sections[SectionRegion]
	info := &p.stream.Info
	if !ok || info.RegionCount == 0 {
		return nil
	}

	base, _, err := section.ReadBlockHeader(p.r, entry, RegionMagic)
	if err != nil {
		p.warn(fmt.Errorf("%w: %w", errs.ErrInvalidRegion, err))
		return nil
	}

	stride := int(info.RegionInfoSize)
	channels := int(info.ChannelCount)
	if stride < regionRecordFixedSize+channels*contextSize {
		p.warn(fmt.Errorf("%w: record size 0x%x too small for %d channels", errs.ErrInvalidRegion, stride, channels))
		return nil
	}

	first := base.Resolve(info.RegionDataOffset)
	p.stream.Regions = make([]Region, 0, info.RegionCount)
	for i := range int(info.RegionCount) {
		if err := p.r.Seek(first + i*stride); err != nil {
			return fmt.Errorf("bfstm: region %d: %w", i, err)
		}

		var reg Region
		if err := p.r.Fields(&reg.Start, &reg.End); err != nil {
			return fmt.Errorf("bfstm: region %d: %w", i, err)
		}
		reg.Contexts = make([]dsp.Context, channels)
		for ch := range reg.Contexts {
			if reg.Contexts[ch], err = readContext(p.r); err != nil {
				return fmt.Errorf("bfstm: region %d: %w", i, err)
			}
		}
		p.stream.Regions = append(p.stream.Regions, reg)
	}

	p.stream.regionsValid = p.stream.checkRegions()
	if !p.stream.regionsValid {
		p.warn(fmt.Errorf("%w: region table does not fit the stream", errs.ErrInvalidRegion))
	}

	return nil
}

func (p *parser) parseSeek() error {
	entry, ok := p.sections[SectionSeek]
	if !ok {
		return nil
	}

	base, _, err := section.ReadBlockHeader(p.r, entry, SeekMagic)
	if err != nil {
		return fmt.Errorf("bfstm: seek: %w", err)
	}
	if p.stream.Info.Encoding != format.DSPADPCM {
		return nil
	}

	n := int(p.stream.Info.BlockCount) * int(p.stream.Info.ChannelCount)
	if err := p.r.Seek(base.Origin()); err != nil {
		return fmt.Errorf("bfstm: seek: %w", err)
	}
	if p.r.Remaining() < n*seekEntrySize {
		p.warn(fmt.Errorf("%w: seek table holds fewer than %d entries", errs.ErrOutOfBounds, n))
		return nil
	}

	p.stream.SeekTable = make([]dsp.History, n)
	for i := range p.stream.SeekTable {
		h := &p.stream.SeekTable[i]
		if err := p.r.Fields(&h.Yn1, &h.Yn2); err != nil {
			return fmt.Errorf("bfstm: seek: %w", err)
		}
	}

	return nil
}

func (p *parser) parseData() error {
	entry := p.sections[SectionData]
	base, size, err := section.ReadBlockHeader(p.r, entry, DataMagic)
	if err != nil {
		return fmt.Errorf("bfstm: data: %w", err)
	}

	start := base.Resolve(p.stream.Info.SampleDataOffset)
	end := base.Start + int(size)
	if end > p.r.Len() {
		end = p.r.Len()
	}
	need := p.stream.dataSize()
	if start < base.Origin() || start+need > end {
		return fmt.Errorf("bfstm: %w: data section holds 0x%x bytes, stream needs 0x%x",
			errs.ErrOutOfBounds, max(end-start, 0), need)
	}

	p.stream.Data, err = p.r.Span(start, need)
	if err != nil {
		return fmt.Errorf("bfstm: data: %w", err)
	}

	return nil
}

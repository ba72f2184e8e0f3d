package bfstm

import (
	"time"

	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/section"
)

// StreamInfo holds the stream parameters stored at the head of the INFO block.
type StreamInfo struct {
	Encoding     format.Encoding
	Loop         bool
	ChannelCount uint8
	RegionCount  uint8
	SampleRate   uint32
	LoopStart    uint32
	// SampleCount is the loop end, which is also the number of samples played.
	SampleCount           uint32
	BlockCount            uint32
	BlockSizeBytes        uint32
	BlockSizeSamples      uint32
	LastBlockSizeBytes    uint32
	LastBlockSizeSamples  uint32
	LastBlockSizeBytesRaw uint32
	SeekInfoSize          uint32
	SeekSampleInterval    uint32
	// SampleDataOffset is relative to the DATA block body.
	SampleDataOffset int32
	RegionInfoSize   uint16
	// RegionDataOffset is relative to the REGN block body, NullOffset without regions.
	RegionDataOffset int32
	// LoopStartUnaligned and LoopEndUnaligned are stored from version 4 on;
	// older files mirror LoopStart and SampleCount.
	LoopStartUnaligned uint32
	LoopEndUnaligned   uint32
	// Checksum is stored from version 5 on.
	Checksum uint32
}

// TrackInfo describes one track: a mix setting over a set of channels.
type TrackInfo struct {
	Volume   uint8
	Pan      uint8
	Span     uint8
	Flags    uint8
	Channels []uint8
}

// ChannelInfo is the per-channel decoder state. It is either a
// DSPChannelInfo or a PCMChannelInfo.
type ChannelInfo interface {
	Encoding() format.Encoding
}

// DSPChannelInfo carries the coefficients and entry contexts of a
// DSP-ADPCM channel.
type DSPChannelInfo struct {
	Coefs dsp.Coefficients
	Start dsp.Context
	Loop  dsp.Context
}

func (DSPChannelInfo) Encoding() format.Encoding { return format.DSPADPCM }

// PCMChannelInfo is the empty channel record of PCM streams.
type PCMChannelInfo struct {
	Width format.Encoding
}

func (c PCMChannelInfo) Encoding() format.Encoding { return c.Width }

// Region is a sample range with the decoder context of every channel at
// its start. End is inclusive.
type Region struct {
	Start    uint32
	End      uint32
	Contexts []dsp.Context
}

// File is the structured content of a BFSTM container.
type File struct {
	Version  section.Version
	Engine   endian.EndianEngine
	Info     StreamInfo
	Tracks   []TrackInfo
	Channels []ChannelInfo
	Regions  []Region
	// SeekTable holds the history entering every block, block-major:
	// entry block*ChannelCount+channel.
	SeekTable []dsp.History
	// Data is the interleaved sample data, starting at the first block.
	Data []byte
}

// Stream is a parsed container: the file content plus everything the
// parser learned about it.
type Stream struct {
	File
	Header section.FileHeader
	// Warnings holds recoverable problems found while parsing; each wraps
	// a sentinel from package errs.
	Warnings []error

	regionsValid bool
	channelCount int
}

// BlockSamples returns the number of samples in block i.
func (f *File) BlockSamples(i int) int {
	if i == int(f.Info.BlockCount)-1 {
		return int(f.Info.LastBlockSizeSamples)
	}

	return int(f.Info.BlockSizeSamples)
}

// BlockBytes returns the number of meaningful bytes of block i of one channel.
func (f *File) BlockBytes(i int) int {
	if i == int(f.Info.BlockCount)-1 {
		return int(f.Info.LastBlockSizeBytes)
	}

	return int(f.Info.BlockSizeBytes)
}

// blockStride returns the distance between two channels of block i.
func (f *File) blockStride(i int) int {
	if i == int(f.Info.BlockCount)-1 {
		return int(f.Info.LastBlockSizeBytesRaw)
	}

	return int(f.Info.BlockSizeBytes)
}

// BlockOffset returns the offset of block i of channel ch within Data.
func (f *File) BlockOffset(i, ch int) int {
	return i*int(f.Info.ChannelCount)*int(f.Info.BlockSizeBytes) + ch*f.blockStride(i)
}

// BlockData returns the bytes of block i of channel ch.
func (f *File) BlockData(i, ch int) []byte {
	off := f.BlockOffset(i, ch)
	return f.Data[off : off+f.BlockBytes(i)]
}

// dataSize returns the number of sample bytes the stream info describes.
func (f *File) dataSize() int {
	if f.Info.BlockCount == 0 {
		return 0
	}
	last := int(f.Info.BlockCount) - 1

	return f.BlockOffset(last, 0) + int(f.Info.ChannelCount)*int(f.Info.LastBlockSizeBytesRaw)
}

// LengthSeconds returns the playing time up to the loop end.
func (f *File) LengthSeconds() float64 {
	if f.Info.SampleRate == 0 || f.Info.BlockCount == 0 {
		return 0
	}
	samples := uint64(f.Info.BlockSizeSamples)*uint64(f.Info.BlockCount-1) + uint64(f.Info.LastBlockSizeSamples)

	return float64(samples) / float64(f.Info.SampleRate)
}

// Duration is LengthSeconds as a time.Duration.
func (f *File) Duration() time.Duration {
	return time.Duration(f.LengthSeconds() * float64(time.Second))
}

// LoopStartBlock returns the block that contains the loop start.
func (f *File) LoopStartBlock() int {
	if f.Info.BlockSizeSamples == 0 {
		return 0
	}

	return int(f.Info.LoopStart / f.Info.BlockSizeSamples)
}

// SeekHistory returns the history entering block i of channel ch.
func (f *File) SeekHistory(i, ch int) (dsp.History, bool) {
	idx := i*int(f.Info.ChannelCount) + ch
	if i < 0 || ch < 0 || ch >= int(f.Info.ChannelCount) || idx >= len(f.SeekTable) {
		return dsp.History{}, false
	}

	return f.SeekTable[idx], true
}

// DSPChannel returns the DSP-ADPCM record of channel ch.
func (f *File) DSPChannel(ch int) (DSPChannelInfo, bool) {
	if ch < 0 || ch >= len(f.Channels) {
		return DSPChannelInfo{}, false
	}
	info, ok := f.Channels[ch].(DSPChannelInfo)

	return info, ok
}

// ChannelCount returns the number of channels that can be played: the
// declared count, clamped to the channel records actually present.
func (s *Stream) ChannelCount() int {
	return s.channelCount
}

// RegionsValid reports whether the region table can be used for playback.
func (s *Stream) RegionsValid() bool {
	return s.regionsValid
}

// checkRegions reports whether every region lies within the stream and
// carries one context per channel.
func (f *File) checkRegions() bool {
	if len(f.Regions) == 0 {
		return false
	}
	for _, r := range f.Regions {
		if r.Start > r.End || r.End >= f.Info.SampleCount {
			return false
		}
		if len(r.Contexts) < int(f.Info.ChannelCount) {
			return false
		}
	}

	return true
}

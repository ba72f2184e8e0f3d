package bfstm

import (
	"fmt"

	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/internal/options"
	"github.com/arloliu/bfsnd/section"
)

// RegionSpan is a region requested from FromPCM. End is inclusive.
type RegionSpan struct {
	Start uint32
	End   uint32
}

type encodeConfig struct {
	encoding  format.Encoding
	loop      bool
	loopStart uint32
	loopEnd   uint32
	regions   []RegionSpan
	blockSize int
	version   section.Version
	engine    endian.EndianEngine
}

// EncodeOption configures FromPCM.
type EncodeOption = options.Option[*encodeConfig]

// WithLoop makes the stream loop from start back to end. end is exclusive
// and becomes the stream's sample count; 0 means the input length.
func WithLoop(start, end uint32) EncodeOption {
	return options.NoError(func(c *encodeConfig) {
		c.loop = true
		c.loopStart = start
		c.loopEnd = end
	})
}

// WithEncoding selects the sample encoding. The default is DSP-ADPCM.
func WithEncoding(enc format.Encoding) EncodeOption {
	return options.New(func(c *encodeConfig) error {
		if !enc.Supported() {
			return fmt.Errorf("%w: %s", errs.ErrUnsupportedEncoding, enc)
		}
		c.encoding = enc

		return nil
	})
}

// WithRegions adds regions. DSP-ADPCM region starts are moved down to a
// frame boundary.
func WithRegions(regions ...RegionSpan) EncodeOption {
	return options.NoError(func(c *encodeConfig) {
		c.regions = append(c.regions, regions...)
	})
}

// WithBlockSize sets the per-channel block size in bytes. It must be a
// positive multiple of 0x20.
func WithBlockSize(size int) EncodeOption {
	return options.New(func(c *encodeConfig) error {
		if size <= 0 || size%blockAlignment != 0 {
			return fmt.Errorf("%w: block size 0x%x", errs.ErrInvalidAlignment, size)
		}
		c.blockSize = size

		return nil
	})
}

// WithVersion sets the container version written to the header.
func WithVersion(v section.Version) EncodeOption {
	return options.NoError(func(c *encodeConfig) {
		c.version = v
	})
}

// WithEngine sets the byte order of the output file.
func WithEngine(engine endian.EndianEngine) EncodeOption {
	return options.NoError(func(c *encodeConfig) {
		if engine != nil {
			c.engine = engine
		}
	})
}

// FromPCM builds a File from 16-bit PCM, one slice per channel.
//
// For DSP-ADPCM every channel gets its own coefficients; start, loop and
// region contexts and the seek table are taken from the encoder state, so
// playback entering at any of those points matches a linear decode. The
// loop start is moved down to a frame boundary; the requested value is kept
// in LoopStartUnaligned.
//
// Parameters:
//   - channels: PCM samples per channel, all of the same length
//   - sampleRate: samples per second
//   - opts: encoding options
//
// Returns:
//   - *File: a normalized file ready for Write
//   - error: errs.ErrChannelCountMismatch, errs.ErrInvalidStreamInfo or errs.ErrInvalidRegion
func FromPCM(channels [][]int16, sampleRate uint32, opts ...EncodeOption) (*File, error) {
	cfg := &encodeConfig{
		encoding:  format.DSPADPCM,
		blockSize: DefaultBlockSize,
		version:   DefaultVersion,
		engine:    endian.GetLittleEndianEngine(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if len(channels) == 0 || len(channels) > 0xFF {
		return nil, fmt.Errorf("bfstm: %w: %d channels", errs.ErrInvalidStreamInfo, len(channels))
	}
	n := len(channels[0])
	for i, ch := range channels {
		if len(ch) != n {
			return nil, fmt.Errorf("bfstm: %w: channel %d has %d samples, channel 0 has %d",
				errs.ErrChannelCountMismatch, i, len(ch), n)
		}
	}
	if n == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("bfstm: %w: %d samples at %d Hz", errs.ErrInvalidStreamInfo, n, sampleRate)
	}

	sampleCount := uint32(n) //nolint:gosec
	if cfg.loop {
		if cfg.loopEnd == 0 {
			cfg.loopEnd = sampleCount
		}
		if cfg.loopEnd > sampleCount || cfg.loopStart >= cfg.loopEnd {
			return nil, fmt.Errorf("bfstm: %w: loop [%d, %d) in %d samples",
				errs.ErrInvalidStreamInfo, cfg.loopStart, cfg.loopEnd, sampleCount)
		}
		sampleCount = cfg.loopEnd
	}

	f := &File{Version: cfg.version, Engine: cfg.engine}
	if err := cfg.layout(f, sampleCount, sampleRate); err != nil {
		return nil, err
	}

	pcm := make([][]int16, len(channels))
	for i, ch := range channels {
		pcm[i] = ch[:sampleCount]
	}

	if cfg.encoding == format.DSPADPCM {
		cfg.encodeDSP(f, pcm)
	} else {
		cfg.encodePCM(f, pcm)
	}

	f.Tracks = pairTracks(len(channels))
	f.Normalize()

	return f, nil
}

// layout fills the block geometry and loop fields of f.
func (c *encodeConfig) layout(f *File, sampleCount, sampleRate uint32) error {
	var blockSamples int
	switch c.encoding {
	case format.DSPADPCM:
		blockSamples = c.blockSize / dsp.FrameByteCount * dsp.FrameSampleCount
	default:
		blockSamples = c.blockSize / c.encoding.BytesPerSample()
	}

	blockCount := (int(sampleCount) + blockSamples - 1) / blockSamples
	lastSamples := int(sampleCount) - (blockCount-1)*blockSamples
	lastBytes := c.byteCount(lastSamples)

	info := &f.Info
	info.Encoding = c.encoding
	info.SampleRate = sampleRate
	info.SampleCount = sampleCount
	info.BlockCount = uint32(blockCount)
	info.BlockSizeBytes = uint32(c.blockSize)
	info.BlockSizeSamples = uint32(blockSamples)
	info.LastBlockSizeBytes = uint32(lastBytes)
	info.LastBlockSizeSamples = uint32(lastSamples)
	info.LastBlockSizeBytesRaw = uint32(alignBlock(lastBytes))

	if c.loop {
		info.Loop = true
		info.LoopStart = c.loopStart
		if c.encoding == format.DSPADPCM {
			info.LoopStart -= info.LoopStart % dsp.FrameSampleCount
		}
		info.LoopStartUnaligned = c.loopStart
	}
	info.LoopEndUnaligned = sampleCount

	for i, r := range c.regions {
		if r.Start > r.End || r.End >= sampleCount {
			return fmt.Errorf("bfstm: %w: region %d [%d, %d] in %d samples",
				errs.ErrInvalidRegion, i, r.Start, r.End, sampleCount)
		}
	}

	return nil
}

func alignBlock(n int) int {
	return (n + blockAlignment - 1) &^ (blockAlignment - 1)
}

func (c *encodeConfig) byteCount(samples int) int {
	if c.encoding == format.DSPADPCM {
		return dsp.ByteCount(samples)
	}

	return samples * c.encoding.BytesPerSample()
}

func (c *encodeConfig) encodeDSP(f *File, pcm [][]int16) {
	info := &f.Info
	blockCount := int(info.BlockCount)
	blockSamples := int(info.BlockSizeSamples)
	encoded := make([]*dsp.Encoded, len(pcm))

	f.Channels = make([]ChannelInfo, len(pcm))
	for i, samples := range pcm {
		coefs := dsp.CalculateCoefficients(samples)
		enc := dsp.Encode(samples, &coefs, dsp.History{})
		encoded[i] = enc

		ch := DSPChannelInfo{Coefs: coefs, Start: enc.ContextAt(0)}
		if info.Loop {
			ch.Loop = enc.ContextAt(int(info.LoopStart))
		}
		f.Channels[i] = ch
	}

	f.SeekTable = make([]dsp.History, 0, blockCount*len(pcm))
	for b := range blockCount {
		for _, enc := range encoded {
			f.SeekTable = append(f.SeekTable, enc.HistoryAt(b*blockSamples))
		}
	}

	for _, span := range c.regions {
		start := span.Start - span.Start%dsp.FrameSampleCount
		reg := Region{Start: start, End: span.End, Contexts: make([]dsp.Context, len(pcm))}
		for ch, enc := range encoded {
			reg.Contexts[ch] = enc.ContextAt(int(start))
		}
		f.Regions = append(f.Regions, reg)
	}

	f.Data = interleave(info, len(pcm), func(ch, b int) []byte {
		from := b * int(info.BlockSizeBytes)
		to := min(from+int(info.BlockSizeBytes), len(encoded[ch].Data))

		return encoded[ch].Data[from:to]
	})
}

func (c *encodeConfig) encodePCM(f *File, pcm [][]int16) {
	info := &f.Info
	blockSamples := int(info.BlockSizeSamples)
	width := c.encoding.BytesPerSample()

	f.Channels = make([]ChannelInfo, len(pcm))
	for i := range pcm {
		f.Channels[i] = PCMChannelInfo{Width: c.encoding}
	}

	for _, span := range c.regions {
		f.Regions = append(f.Regions, Region{Start: span.Start, End: span.End, Contexts: make([]dsp.Context, len(pcm))})
	}

	block := make([]byte, int(info.BlockSizeBytes))
	f.Data = interleave(info, len(pcm), func(ch, b int) []byte {
		from := b * blockSamples
		to := min(from+blockSamples, len(pcm[ch]))
		out := block[:(to-from)*width]
		for i, s := range pcm[ch][from:to] {
			if width == 1 {
				out[i] = byte(int8(s >> 8))
			} else {
				c.engine.PutUint16(out[i*2:], uint16(s)) //nolint:gosec
			}
		}

		return out
	})
}

// interleave lays out blocks block-major, padding each channel's last
// block to the raw size.
func interleave(info *StreamInfo, channels int, block func(ch, b int) []byte) []byte {
	blockCount := int(info.BlockCount)
	size := (blockCount-1)*channels*int(info.BlockSizeBytes) + channels*int(info.LastBlockSizeBytesRaw)
	out := make([]byte, size)

	pos := 0
	for b := range blockCount {
		stride := int(info.BlockSizeBytes)
		if b == blockCount-1 {
			stride = int(info.LastBlockSizeBytesRaw)
		}
		for ch := range channels {
			copy(out[pos:pos+stride], block(ch, b))
			pos += stride
		}
	}

	return out
}

// pairTracks builds one centered track per channel pair.
func pairTracks(channels int) []TrackInfo {
	var tracks []TrackInfo
	for i := 0; i < channels && len(tracks) < MaxTracks; i += 2 {
		t := TrackInfo{Volume: 0x7F, Pan: 0x40}
		t.Channels = append(t.Channels, uint8(i)) //nolint:gosec
		if i+1 < channels {
			t.Channels = append(t.Channels, uint8(i+1)) //nolint:gosec
		}
		tracks = append(tracks, t)
	}

	return tracks
}

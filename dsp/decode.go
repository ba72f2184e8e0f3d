package dsp

import (
	"fmt"

	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/internal/options"
)

// LegacyClampMin is the lower clamp bound used by some older tools. It is
// 90 above the true int16 minimum.
const LegacyClampMin = -32678

// Decoder decodes DSP-ADPCM frames. The zero value is not usable; call
// NewDecoder. A Decoder is immutable and safe for concurrent use.
type Decoder struct {
	clampMin int32
}

// DecoderOption configures a Decoder.
type DecoderOption = options.Option[*Decoder]

// WithLegacyClamp makes the decoder saturate negative samples at
// LegacyClampMin instead of -32768, reproducing output of tools that carry
// that bound.
func WithLegacyClamp() DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.clampMin = LegacyClampMin
	})
}

// NewDecoder creates a decoder that clamps to the full int16 range unless
// configured otherwise.
func NewDecoder(opts ...DecoderOption) (*Decoder, error) {
	d := &Decoder{clampMin: -32768}
	if err := options.Apply(d, opts...); err != nil {
		return nil, err
	}

	return d, nil
}

var defaultDecoder = &Decoder{clampMin: -32768}

// Decode decodes len(dst) samples with the default decoder.
func Decode(dst []int16, src []byte, coefs *Coefficients, hist *History, startSample int) error {
	return defaultDecoder.Decode(dst, src, coefs, hist, startSample)
}

// LegacyClamp reports whether the decoder uses LegacyClampMin.
func (d *Decoder) LegacyClamp() bool {
	return d.clampMin == LegacyClampMin
}

func (d *Decoder) clamp(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < d.clampMin {
		return int16(d.clampMin)
	}

	return int16(v)
}

// Decode decodes len(dst) samples from src.
//
// Decoding starts at the frame containing startSample. The samples of that
// frame before startSample are decoded to advance the predictor but are
// not written, so hist must hold the history entering that frame.
//
// A frame holds FrameSampleCount (14) samples, so the samples skipped are
// startSample%14. Some older decoders compute startSample%7 here, which
// only agrees for offsets in the first half of a frame; they produce
// different output when resuming in the second half.
//
// Parameters:
//   - dst: output buffer; its length is the number of samples to produce
//   - src: frame data, with frame 0 at src[0]
//   - coefs: the channel's coefficient pairs
//   - hist: predictor history, updated in place
//   - startSample: index of the first sample to emit, relative to src
//
// Returns:
//   - error: errs.ErrOutOfBounds if src is too short, errs.ErrInvalidSampleData
//     for a frame header selecting a coefficient pair above 7
func (d *Decoder) Decode(dst []int16, src []byte, coefs *Coefficients, hist *History, startSample int) error {
	if len(dst) == 0 {
		return nil
	}
	if startSample < 0 {
		return fmt.Errorf("%w: negative start sample %d", errs.ErrOutOfBounds, startSample)
	}

	pos := startSample / FrameSampleCount * FrameByteCount
	skip := startSample % FrameSampleCount

	if need := pos + ByteCount(skip+len(dst)); need > len(src) {
		return fmt.Errorf("%w: need %d bytes of frame data, have %d", errs.ErrOutOfBounds, need, len(src))
	}

	yn1, yn2 := int32(hist.Yn1), int32(hist.Yn2)
	out := 0

	for out < len(dst) {
		header := src[pos]
		pos++

		scale := int32(1) << (header & 0xF)
		idx := header >> 4
		if idx >= CoefficientPairs {
			hist.Yn1, hist.Yn2 = int16(yn1), int16(yn2)
			return fmt.Errorf("%w: frame header 0x%02x at byte %d", errs.ErrInvalidSampleData, header, pos-1)
		}
		c1, c2 := int32(coefs[idx][0]), int32(coefs[idx][1])

		for b := 0; b < FrameByteCount-1 && out < len(dst); b++ {
			packed := src[pos]
			pos++

			for s := 0; s < 2 && out < len(dst); s++ {
				var nibble int32
				if s == 0 {
					nibble = nibbleTable[packed>>4]
				} else {
					nibble = nibbleTable[packed&0xF]
				}

				sample := int32(d.clamp((((nibble * scale) << 11) + 1024 + c1*yn1 + c2*yn2) >> 11))
				yn2 = yn1
				yn1 = sample

				if skip > 0 {
					skip--
					continue
				}
				dst[out] = int16(sample)
				out++
			}
		}
	}

	hist.Yn1, hist.Yn2 = int16(yn1), int16(yn2)

	return nil
}

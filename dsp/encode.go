package dsp

import "math"

// Encoded is the result of encoding one channel.
type Encoded struct {
	// Data holds the frames; a trailing partial frame is truncated to
	// ByteCount(SampleCount) bytes.
	Data []byte
	// Frames holds the entry context of every frame.
	Frames []Context
	// Decoded holds the samples a decoder will reproduce from Data.
	Decoded []int16
	// SampleCount is the number of encoded samples.
	SampleCount int
}

// ContextAt returns the entry context of the frame containing sample.
// Samples at or past the end map to the last frame.
func (e *Encoded) ContextAt(sample int) Context {
	if len(e.Frames) == 0 {
		return Context{}
	}
	idx := sample / FrameSampleCount
	if idx >= len(e.Frames) {
		idx = len(e.Frames) - 1
	}
	if idx < 0 {
		idx = 0
	}

	return e.Frames[idx]
}

// HistoryAt returns the history entering the frame containing sample.
func (e *Encoded) HistoryAt(sample int) History {
	return e.ContextAt(sample).History()
}

// encodeScratch is per-call working storage for encodeFrame.
type encodeScratch struct {
	inSamples  [CoefficientPairs][FrameSampleCount + 2]int32
	outSamples [CoefficientPairs][FrameSampleCount]int32
	scale      [CoefficientPairs]int
	distAccum  [CoefficientPairs]float64
}

// Encode encodes pcm with the given coefficients starting from hist.
//
// Parameters:
//   - pcm: 16-bit samples of one channel
//   - coefs: coefficient pairs, usually from CalculateCoefficients
//   - hist: predictor history before the first sample, normally zero
//
// Returns:
//   - *Encoded: frames plus the per-frame contexts needed by containers
func Encode(pcm []int16, coefs *Coefficients, hist History) *Encoded {
	frameCount := FrameCount(len(pcm))
	enc := &Encoded{
		Data:        make([]byte, ByteCount(len(pcm))),
		Frames:      make([]Context, 0, frameCount),
		Decoded:     make([]int16, len(pcm)),
		SampleCount: len(pcm),
	}

	var (
		buf     [FrameSampleCount + 2]int32
		frame   [FrameByteCount]byte
		scratch encodeScratch
	)
	buf[0] = int32(hist.Yn2)
	buf[1] = int32(hist.Yn1)

	for f := range frameCount {
		start := f * FrameSampleCount
		n := min(len(pcm)-start, FrameSampleCount)
		for s := range FrameSampleCount {
			if s < n {
				buf[s+2] = int32(pcm[start+s])
			} else {
				buf[s+2] = 0
			}
		}

		entry := Context{Yn1: int16(buf[1]), Yn2: int16(buf[0])}
		encodeFrame(&buf, n, &frame, coefs, &scratch)
		entry.Header = uint16(frame[0])
		enc.Frames = append(enc.Frames, entry)

		copy(enc.Data[f*FrameByteCount:], frame[:ByteCount(n)])
		for s := range n {
			enc.Decoded[start+s] = int16(buf[s+2])
		}

		buf[0] = buf[FrameSampleCount]
		buf[1] = buf[FrameSampleCount+1]
	}

	return enc
}

// encodeFrame encodes sampleCount samples of pcm[2:] with history pcm[0]
// (yn2) and pcm[1] (yn1). It tries every coefficient pair, searching the
// smallest scale that keeps residuals in range, and keeps the pair with
// the lowest squared error. pcm[2:] is replaced with the decoded samples.
func encodeFrame(pcm *[FrameSampleCount + 2]int32, sampleCount int, out *[FrameByteCount]byte, coefs *Coefficients, b *encodeScratch) {
	for i := range CoefficientPairs {
		c1, c2 := int32(coefs[i][0]), int32(coefs[i][1])

		b.inSamples[i][0] = pcm[0]
		b.inSamples[i][1] = pcm[1]

		distance := int32(0)
		for s := range sampleCount {
			v1 := ((pcm[s] * c2) + (pcm[s+1] * c1)) / 2048
			b.inSamples[i][s+2] = v1
			v2 := pcm[s+2] - v1
			v3 := clampInt(v2, -32768, 32767)
			if abs32(v3) > abs32(distance) {
				distance = v3
			}
		}

		scale := 0
		for ; scale <= 12 && (distance > 7 || distance < -8); scale++ {
			distance /= 2
		}
		if scale <= 1 {
			scale = -1
		} else {
			scale -= 2
		}

		var index int32
		for {
			scale++
			b.distAccum[i] = 0
			index = 0

			for s := range sampleCount {
				v1 := (b.inSamples[i][s] * c2) + (b.inSamples[i][s+1] * c1)
				v2 := (pcm[s+2] << 11) - v1

				var v3 int32
				q := float64(v2) / float64(int32(1)<<scale) / 2048
				if v2 > 0 {
					v3 = int32(q + roundBias)
				} else {
					v3 = int32(q - roundBias)
				}

				if v3 < -8 {
					if over := -8 - v3; index < over {
						index = over
					}
					v3 = -8
				} else if v3 > 7 {
					if over := v3 - 7; index < over {
						index = over
					}
					v3 = 7
				}

				b.outSamples[i][s] = v3

				v1 = (v1 + ((v3 * (int32(1) << scale)) << 11) + 1024) >> 11
				decoded := clampInt(v1, -32768, 32767)
				b.inSamples[i][s+2] = decoded

				diff := float64(pcm[s+2] - decoded)
				b.distAccum[i] += diff * diff
			}

			for x := index + 8; x > 256; x >>= 1 {
				scale++
				if scale >= 12 {
					scale = 11
				}
			}

			if scale >= 12 || index <= 1 {
				break
			}
		}
		b.scale[i] = scale
	}

	best := 0
	lowest := math.MaxFloat64
	for i := range CoefficientPairs {
		if b.distAccum[i] < lowest {
			lowest = b.distAccum[i]
			best = i
		}
	}

	for s := range sampleCount {
		pcm[s+2] = b.inSamples[best][s+2]
	}

	out[0] = byte(best<<4) | byte(b.scale[best]&0xF)

	for s := sampleCount; s < FrameSampleCount; s++ {
		b.outSamples[best][s] = 0
	}
	for y := range FrameByteCount - 1 {
		hi := b.outSamples[best][y*2]
		lo := b.outSamples[best][y*2+1]
		out[y+1] = byte(hi<<4) | byte(lo&0xF)
	}
}

// roundBias is the single-precision 0.4999999f used by the reference
// encoders, widened to float64.
var roundBias = float64(float32(0.4999999))

func clampInt(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}

	return v
}

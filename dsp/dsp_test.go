package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/errs"
)

func sine(n int, freq, rate, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}

	return out
}

func TestSizes(t *testing.T) {
	tests := []struct {
		samples int
		bytes   int
		nibbles int
		frames  int
	}{
		{samples: 0, bytes: 0, nibbles: 0, frames: 0},
		{samples: 1, bytes: 2, nibbles: 3, frames: 1},
		{samples: 2, bytes: 2, nibbles: 4, frames: 1},
		{samples: 13, bytes: 8, nibbles: 15, frames: 1},
		{samples: 14, bytes: 8, nibbles: 16, frames: 1},
		{samples: 15, bytes: 10, nibbles: 19, frames: 2},
		{samples: 0x3800, bytes: 0x2000, nibbles: 0x4000, frames: 1024},
	}

	for _, tt := range tests {
		require.Equal(t, tt.bytes, ByteCount(tt.samples), "ByteCount(%d)", tt.samples)
		require.Equal(t, tt.nibbles, NibbleCount(tt.samples), "NibbleCount(%d)", tt.samples)
		require.Equal(t, tt.frames, FrameCount(tt.samples), "FrameCount(%d)", tt.samples)
	}

	require.Equal(t, 0x3800, SampleCount(0x2000))
	require.Equal(t, 14, SampleCount(9))
	require.Equal(t, 16, SampleCount(10))
}

func TestDecode_SingleFrame(t *testing.T) {
	var coefs Coefficients
	// Pair 0 is all zero: samples are just nibble*scale.
	frame := []byte{0x01, 0x12, 0x34, 0x56, 0x70, 0x89, 0xAB, 0xFF}
	dst := make([]int16, 14)
	hist := History{}

	require.NoError(t, Decode(dst, frame, &coefs, &hist, 0))
	want := []int16{2, 4, 6, 8, 10, 12, 14, 0, -16, -14, -12, -10, -2, -2}
	require.Equal(t, want, dst)
	require.Equal(t, History{Yn1: -2, Yn2: -2}, hist)
}

func TestDecode_Clamp(t *testing.T) {
	var coefs Coefficients
	// shift 12, every nibble -8: raw value is exactly -32768.
	frame := []byte{0x0C, 0x88, 0x88, 0x88, 0x88, 0x88, 0x88, 0x88}

	t.Run("full range", func(t *testing.T) {
		dst := make([]int16, 14)
		hist := History{}
		require.NoError(t, Decode(dst, frame, &coefs, &hist, 0))
		for _, s := range dst {
			require.Equal(t, int16(-32768), s)
		}
	})

	t.Run("legacy bound", func(t *testing.T) {
		dec, err := NewDecoder(WithLegacyClamp())
		require.NoError(t, err)
		require.True(t, dec.LegacyClamp())

		dst := make([]int16, 14)
		hist := History{}
		require.NoError(t, dec.Decode(dst, frame, &coefs, &hist, 0))
		for _, s := range dst {
			require.Equal(t, int16(LegacyClampMin), s)
		}
	})
}

func TestDecode_Errors(t *testing.T) {
	var coefs Coefficients
	hist := History{}

	t.Run("short source", func(t *testing.T) {
		err := Decode(make([]int16, 15), make([]byte, 8), &coefs, &hist, 0)
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
	})

	t.Run("short source with offset", func(t *testing.T) {
		err := Decode(make([]int16, 2), make([]byte, 8), &coefs, &hist, 13)
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
	})

	t.Run("coefficient index out of range", func(t *testing.T) {
		err := Decode(make([]int16, 14), []byte{0x80, 0, 0, 0, 0, 0, 0, 0}, &coefs, &hist, 0)
		require.ErrorIs(t, err, errs.ErrInvalidSampleData)
	})

	t.Run("negative start", func(t *testing.T) {
		err := Decode(make([]int16, 1), make([]byte, 8), &coefs, &hist, -1)
		require.ErrorIs(t, err, errs.ErrOutOfBounds)
	})

	t.Run("empty destination", func(t *testing.T) {
		require.NoError(t, Decode(nil, nil, &coefs, &hist, 0))
	})
}

func TestEncodeDecode_Sine(t *testing.T) {
	const amp = 10000.0
	pcm := sine(14*200+5, 440, 32000, amp)

	coefs := CalculateCoefficients(pcm)
	enc := Encode(pcm, &coefs, History{})
	require.Len(t, enc.Data, ByteCount(len(pcm)))
	require.Len(t, enc.Frames, FrameCount(len(pcm)))

	decoded := make([]int16, len(pcm))
	hist := History{}
	require.NoError(t, Decode(decoded, enc.Data, &coefs, &hist, 0))
	require.Equal(t, enc.Decoded, decoded, "encoder reconstruction must match the decoder")

	var sum, peak float64
	for i := range pcm {
		d := math.Abs(float64(pcm[i]) - float64(decoded[i]))
		sum += d * d
		peak = math.Max(peak, d)
	}
	rms := math.Sqrt(sum / float64(len(pcm)))
	require.Less(t, rms, amp*0.02, "rms error")
	require.Less(t, peak, amp*0.10, "peak error")
}

func TestDecode_MidFrameMatchesFullDecode(t *testing.T) {
	pcm := sine(14*40, 1000, 48000, 12000)
	coefs := CalculateCoefficients(pcm)
	enc := Encode(pcm, &coefs, History{})

	full := make([]int16, len(pcm))
	hist := History{}
	require.NoError(t, Decode(full, enc.Data, &coefs, &hist, 0))

	for _, start := range []int{0, 1, 7, 13, 14, 15, 100, 14*39 + 3} {
		n := min(50, len(pcm)-start)
		part := make([]int16, n)
		h := enc.HistoryAt(start)
		require.NoError(t, Decode(part, enc.Data, &coefs, &h, start))
		require.Equal(t, full[start:start+n], part, "start %d", start)
	}
}

func TestDecode_Deterministic(t *testing.T) {
	pcm := sine(14*16, 300, 22050, 8000)
	coefs := CalculateCoefficients(pcm)
	enc := Encode(pcm, &coefs, History{Yn1: 5, Yn2: -5})

	var first []int16
	for range 3 {
		out := make([]int16, len(pcm))
		hist := History{Yn1: 5, Yn2: -5}
		require.NoError(t, Decode(out, enc.Data, &coefs, &hist, 0))
		if first == nil {
			first = out
			continue
		}
		require.Equal(t, first, out)
	}
}

func TestCalculateCoefficients(t *testing.T) {
	t.Run("silence yields zero coefficients", func(t *testing.T) {
		require.Equal(t, Coefficients{}, CalculateCoefficients(make([]int16, 1000)))
		require.Equal(t, Coefficients{}, CalculateCoefficients(nil))
	})

	t.Run("deterministic", func(t *testing.T) {
		pcm := sine(5000, 440, 32000, 9000)
		require.Equal(t, CalculateCoefficients(pcm), CalculateCoefficients(pcm))
	})

	t.Run("sine predictor is found", func(t *testing.T) {
		// x[n] = 2cos(w)x[n-1] - x[n-2] for a pure tone.
		pcm := sine(14*300, 440, 32000, 9000)
		coefs := CalculateCoefficients(pcm)

		want1 := 2 * math.Cos(2*math.Pi*440/32000) * 2048
		best := math.MaxFloat64
		for _, pair := range coefs {
			d := math.Abs(float64(pair[0])-want1) + math.Abs(float64(pair[1])+2048)
			best = math.Min(best, d)
		}
		require.Less(t, best, 200.0)
	})
}

func TestEncoded_ContextAt(t *testing.T) {
	pcm := sine(14*3, 440, 32000, 5000)
	coefs := CalculateCoefficients(pcm)
	enc := Encode(pcm, &coefs, History{})

	require.Equal(t, Context{Header: uint16(enc.Data[0])}, enc.ContextAt(0))
	ctx := enc.ContextAt(20)
	require.Equal(t, uint16(enc.Data[8]), ctx.Header)
	require.Equal(t, enc.Decoded[13], ctx.Yn1)
	require.Equal(t, enc.Decoded[12], ctx.Yn2)
	require.Equal(t, enc.Frames[2], enc.ContextAt(1000))

	empty := &Encoded{}
	require.Equal(t, Context{}, empty.ContextAt(0))
}

func BenchmarkDecode(b *testing.B) {
	pcm := sine(0x3800, 440, 32000, 10000)
	coefs := CalculateCoefficients(pcm)
	enc := Encode(pcm, &coefs, History{})
	dst := make([]int16, len(pcm))

	b.ReportAllocs()
	b.SetBytes(int64(len(enc.Data)))
	for b.Loop() {
		hist := History{}
		_ = Decode(dst, enc.Data, &coefs, &hist, 0)
	}
}

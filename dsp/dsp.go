package dsp

const (
	// FrameSampleCount is the number of samples in one frame.
	FrameSampleCount = 14
	// FrameByteCount is the size of one frame in bytes.
	FrameByteCount = 8
	// FrameNibbleCount is the number of nibbles in one frame, header included.
	FrameNibbleCount = 16
	// CoefficientPairs is the number of coefficient pairs per channel.
	CoefficientPairs = 8
)

// Coefficients holds the 8 prediction coefficient pairs of one channel,
// stored on disk as 16 consecutive s16 values.
type Coefficients [CoefficientPairs][2]int16

// Context is a decoder entry state: the predictor/scale byte of the frame
// being entered and the history before it.
type Context struct {
	Header uint16
	Yn1    int16
	Yn2    int16
}

// History is the two most recently decoded samples.
type History struct {
	Yn1 int16
	Yn2 int16
}

// History returns the context's history part.
func (c Context) History() History {
	return History{Yn1: c.Yn1, Yn2: c.Yn2}
}

var nibbleTable = [16]int32{0, 1, 2, 3, 4, 5, 6, 7, -8, -7, -6, -5, -4, -3, -2, -1}

// FrameCount returns the number of frames needed for sampleCount samples.
func FrameCount(sampleCount int) int {
	return (sampleCount + FrameSampleCount - 1) / FrameSampleCount
}

// ByteCount returns the number of bytes that hold sampleCount samples. A
// trailing partial frame only needs its header and the bytes it uses.
func ByteCount(sampleCount int) int {
	frames := sampleCount / FrameSampleCount
	rem := sampleCount % FrameSampleCount
	n := frames * FrameByteCount
	if rem > 0 {
		n += 1 + (rem+1)/2
	}

	return n
}

// NibbleCount returns the nibble address just past sampleCount samples,
// counting frame headers as two nibbles.
func NibbleCount(sampleCount int) int {
	frames := sampleCount / FrameSampleCount
	rem := sampleCount % FrameSampleCount
	if rem > 0 {
		return frames*FrameNibbleCount + rem + 2
	}

	return frames * FrameNibbleCount
}

// SampleCount returns the number of samples stored in byteCount bytes.
func SampleCount(byteCount int) int {
	frames := byteCount / FrameByteCount
	rem := byteCount % FrameByteCount
	n := frames * FrameSampleCount
	if rem > 1 {
		n += (rem - 1) * 2
	}

	return n
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}

	return int16(v)
}

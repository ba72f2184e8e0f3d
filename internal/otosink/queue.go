package otosink

import (
	"encoding/binary"
	"sync"
)

// frameQueue holds interleaved signed 16-bit little-endian frames waiting
// for the device.
type frameQueue struct {
	mu       sync.Mutex
	buf      []byte
	channels int
	// underruns counts reads that found fewer bytes than requested.
	underruns int
	// padded counts silence bytes handed out since the last queued byte.
	padded int
}

func newFrameQueue(channels int) *frameQueue {
	return &frameQueue{channels: channels}
}

func (q *frameQueue) frameBytes() int {
	return q.channels * 2
}

// push interleaves frames samples from every input channel. A mono input
// feeds every output channel; extra input channels are dropped and missing
// ones are silent.
func (q *frameQueue) push(channels [][]int16, frames int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	start := len(q.buf)
	q.buf = append(q.buf, make([]byte, frames*q.frameBytes())...)
	out := q.buf[start:]

	for i := 0; i < frames; i++ {
		for c := 0; c < q.channels; c++ {
			var v int16
			switch {
			case len(channels) == 1:
				v = channels[0][i]
			case c < len(channels):
				v = channels[c][i]
			}
			binary.LittleEndian.PutUint16(out[(i*q.channels+c)*2:], uint16(v)) //nolint:gosec
		}
	}
}

// read fills p with queued frames and pads the rest with silence, so the
// device never stalls on an empty queue.
func (q *frameQueue) read(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := copy(p, q.buf)
	q.buf = q.buf[:copy(q.buf, q.buf[n:])]
	if n > 0 {
		q.padded = 0
	}
	if n < len(p) {
		clear(p[n:])
		q.underruns++
		q.padded += len(p) - n
	}

	return len(p)
}

// audible returns how many of the last held bytes handed to the device are
// queued audio rather than silence padding.
func (q *frameQueue) audible(held int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return max(held-q.padded, 0)
}

// discard drops up to frames frames from the head of the queue.
func (q *frameQueue) discard(frames int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(frames*q.frameBytes(), len(q.buf))
	q.buf = q.buf[:copy(q.buf, q.buf[n:])]
}

// frames returns the number of queued frames.
func (q *frameQueue) frames() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.buf) / q.frameBytes()
}

func (q *frameQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = q.buf[:0]
	q.padded = 0
}

func (q *frameQueue) underrunCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.underruns
}

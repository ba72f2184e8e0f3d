package otosink

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/errs"
)

func decodeLE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:])) //nolint:gosec
	}

	return out
}

func TestFrameQueue_Push(t *testing.T) {
	t.Run("stereo interleave", func(t *testing.T) {
		q := newFrameQueue(2)
		q.push([][]int16{{1, 2, 3}, {-1, -2, -3}}, 3)
		require.Equal(t, 3, q.frames())

		p := make([]byte, 12)
		require.Equal(t, 12, q.read(p))
		require.Equal(t, []int16{1, -1, 2, -2, 3, -3}, decodeLE(p))
		require.Zero(t, q.frames())
	})

	t.Run("mono feeds both outputs", func(t *testing.T) {
		q := newFrameQueue(2)
		q.push([][]int16{{7, 8}}, 2)

		p := make([]byte, 8)
		q.read(p)
		require.Equal(t, []int16{7, 7, 8, 8}, decodeLE(p))
	})

	t.Run("extra channels dropped", func(t *testing.T) {
		q := newFrameQueue(1)
		q.push([][]int16{{5, 6}, {9, 9}}, 2)

		p := make([]byte, 4)
		q.read(p)
		require.Equal(t, []int16{5, 6}, decodeLE(p))
	})

	t.Run("frames limits input", func(t *testing.T) {
		q := newFrameQueue(2)
		q.push([][]int16{{1, 2, 3, 4}, {1, 2, 3, 4}}, 2)
		require.Equal(t, 2, q.frames())
	})
}

func TestFrameQueue_Read(t *testing.T) {
	q := newFrameQueue(2)
	q.push([][]int16{{100}, {200}}, 1)

	p := make([]byte, 12)
	for i := range p {
		p[i] = 0xFF
	}
	require.Equal(t, len(p), q.read(p))
	require.Equal(t, []int16{100, 200, 0, 0, 0, 0}, decodeLE(p))
	require.Equal(t, 1, q.underrunCount())

	// A partial read leaves the tail queued.
	q.push([][]int16{{1, 2, 3}, {4, 5, 6}}, 3)
	p = make([]byte, 4)
	q.read(p)
	require.Equal(t, []int16{1, 4}, decodeLE(p))
	require.Equal(t, 2, q.frames())
	require.Equal(t, 1, q.underrunCount())
}

func TestFrameQueue_Audible(t *testing.T) {
	q := newFrameQueue(1)
	require.Equal(t, 8, q.audible(8))

	q.push([][]int16{{1, 2, 3}}, 3)
	q.read(make([]byte, 4))
	require.Equal(t, 4, q.audible(4))

	// 2 bytes of audio then 6 of silence: a device holding the last 6 bytes
	// holds nothing audible, one holding 8 still has one frame to play.
	q.read(make([]byte, 8))
	require.Zero(t, q.audible(6))
	require.Equal(t, 2, q.audible(8))

	q.read(make([]byte, 4))
	require.Equal(t, 2, q.audible(12))

	q.push([][]int16{{4}}, 1)
	q.read(make([]byte, 2))
	require.Equal(t, 6, q.audible(6))

	q.reset()
	require.Equal(t, 4, q.audible(4))
}

func TestFrameQueue_Discard(t *testing.T) {
	q := newFrameQueue(1)
	q.push([][]int16{{1, 2, 3, 4}}, 4)

	q.discard(3)
	require.Equal(t, 1, q.frames())
	p := make([]byte, 2)
	q.read(p)
	require.Equal(t, []int16{4}, decodeLE(p))

	q.push([][]int16{{1}}, 1)
	q.discard(10)
	require.Zero(t, q.frames())

	q.push([][]int16{{1, 2}}, 2)
	q.reset()
	require.Zero(t, q.frames())
}

func TestValidate(t *testing.T) {
	require.NoError(t, validate(48000, 1))
	require.NoError(t, validate(32000, 2))
	require.ErrorIs(t, validate(0, 2), errs.ErrInvalidStreamInfo)
	require.ErrorIs(t, validate(48000, 0), errs.ErrInvalidChannel)
	require.ErrorIs(t, validate(48000, 3), errs.ErrInvalidChannel)
}

func TestOptions(t *testing.T) {
	cfg, err := newConfig(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultBufferSize, cfg.bufferSize)
	require.NotNil(t, cfg.logger)

	cfg, err = newConfig([]Option{WithBufferSize(0), WithLogger(nil)})
	require.NoError(t, err)
	require.Zero(t, cfg.bufferSize)
	require.NotNil(t, cfg.logger)
}

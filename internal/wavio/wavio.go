// Package wavio converts between WAV files and per-channel 16-bit PCM.
package wavio

import (
	"fmt"
	"io"
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/arloliu/bfsnd/errs"
)

// MaxChannels is the widest WAV layout supported.
const MaxChannels = 2

const streamChunk = 1024

// Audio is decoded PCM: one slice per channel, all of the same length.
type Audio struct {
	SampleRate int
	Channels   [][]int16
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}

	return len(a.Channels[0])
}

// Decode reads a whole WAV file.
func Decode(r io.Reader) (*Audio, error) {
	s, f, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}
	defer s.Close()

	if f.NumChannels < 1 || f.NumChannels > MaxChannels {
		return nil, fmt.Errorf("wavio: %w: %d channels", errs.ErrInvalidStreamInfo, f.NumChannels)
	}

	a := &Audio{
		SampleRate: int(f.SampleRate),
		Channels:   make([][]int16, f.NumChannels),
	}
	if n := s.Len(); n > 0 {
		for c := range a.Channels {
			a.Channels[c] = make([]int16, 0, n)
		}
	}

	buf := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			for c := range a.Channels {
				a.Channels[c] = append(a.Channels[c], toInt16(frame[c]))
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}

	return a, nil
}

// Encode writes a as a 16-bit WAV file. w must be seekable so the header
// sizes can be filled in after the data.
func Encode(w io.WriteSeeker, a *Audio) error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("wavio: %w: sample rate %d", errs.ErrInvalidStreamInfo, a.SampleRate)
	}
	if len(a.Channels) < 1 || len(a.Channels) > MaxChannels {
		return fmt.Errorf("wavio: %w: %d channels", errs.ErrInvalidStreamInfo, len(a.Channels))
	}
	n := a.Frames()
	for i, ch := range a.Channels {
		if len(ch) != n {
			return fmt.Errorf("wavio: %w: channel %d has %d samples, channel 0 has %d",
				errs.ErrChannelCountMismatch, i, len(ch), n)
		}
	}

	f := beep.Format{
		SampleRate:  beep.SampleRate(a.SampleRate),
		NumChannels: len(a.Channels),
		Precision:   2,
	}
	if err := wav.Encode(w, &pcmStreamer{channels: a.Channels}, f); err != nil {
		return fmt.Errorf("wavio: %w", err)
	}

	return nil
}

// pcmStreamer streams int16 channels as beep samples. A mono source is
// copied to both sides of the stereo frame.
type pcmStreamer struct {
	channels [][]int16
	pos      int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	total := len(p.channels[0])
	if p.pos >= total {
		return 0, false
	}

	n := min(len(samples), total-p.pos)
	right := p.channels[len(p.channels)-1]
	for i := range n {
		samples[i][0] = toFloat(p.channels[0][p.pos+i])
		samples[i][1] = toFloat(right[p.pos+i])
	}
	p.pos += n

	return n, true
}

func (p *pcmStreamer) Err() error { return nil }

func toFloat(v int16) float64 {
	return float64(v) / 32768
}

func toInt16(f float64) int16 {
	v := math.Round(f * 32768)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

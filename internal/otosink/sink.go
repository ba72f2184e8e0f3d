//go:build !headless

package otosink

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/arloliu/bfsnd/player"
)

// Sink feeds an oto player from a queue of interleaved frames. Only one
// Sink can exist per process because the driver context is global.
type Sink struct {
	ctx    *oto.Context
	player *oto.Player
	queue  *frameQueue
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

var _ player.Sink = (*Sink)(nil)

// New opens the audio device at sampleRate with the given output channel
// count and waits until it is ready.
func New(sampleRate, channels int, opts ...Option) (*Sink, error) {
	if err := validate(sampleRate, channels); err != nil {
		return nil, err
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("otosink: open device: %w", err)
	}
	<-ready

	cfg.logger.Debug("audio device ready", "sample_rate", sampleRate, "channels", channels,
		"buffer", cfg.bufferSize)

	return &Sink{
		ctx:    ctx,
		queue:  newFrameQueue(channels),
		logger: cfg.logger,
	}, nil
}

// Read implements io.Reader for the oto player.
func (s *Sink) Read(p []byte) (int, error) {
	return s.queue.read(p), nil
}

func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}
	s.player = s.ctx.NewPlayer(s)
	s.player.Play()
	s.started = true

	return nil
}

// WriteBlock queues a copy of the block; it never blocks.
func (s *Sink) WriteBlock(channels [][]int16, frames int) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	s.queue.push(channels, frames)

	return nil
}

// BufferedFrames counts queued frames plus the audio frames held by the
// driver. Silence the driver pulled after the queue ran dry is not counted.
func (s *Sink) BufferedFrames() uint32 {
	n := s.queue.frames()

	s.mu.Lock()
	if s.player != nil {
		n += s.queue.audible(s.player.BufferedSize()) / s.queue.frameBytes()
	}
	s.mu.Unlock()

	return uint32(n) //nolint:gosec
}

func (s *Sink) Pause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil || s.closed {
		return
	}
	if paused {
		s.player.Pause()
	} else {
		s.player.Play()
	}
}

// Stop closes the player and drops queued frames. The device context
// stays open for the life of the process.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.player != nil {
		s.player.Close()
	}
	s.queue.reset()
	if n := s.queue.underrunCount(); n > 0 {
		s.logger.Debug("playback underruns", "count", n)
	}
}

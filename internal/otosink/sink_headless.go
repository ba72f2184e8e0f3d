//go:build headless

package otosink

import (
	"log/slog"
	"sync"
	"time"

	"github.com/arloliu/bfsnd/player"
)

// Sink discards queued frames at the playback rate, so a scheduler paces
// itself exactly as it would against a device.
type Sink struct {
	queue      *frameQueue
	sampleRate int
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	last    time.Time
	carry   time.Duration
	started bool
	paused  bool
	closed  bool
}

var _ player.Sink = (*Sink)(nil)

func New(sampleRate, channels int, opts ...Option) (*Sink, error) {
	if err := validate(sampleRate, channels); err != nil {
		return nil, err
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	cfg.logger.Debug("headless audio sink", "sample_rate", sampleRate, "channels", channels)

	return &Sink{
		queue:      newFrameQueue(channels),
		sampleRate: sampleRate,
		logger:     cfg.logger,
		now:        time.Now,
	}, nil
}

func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.started = true
	s.last = s.now()

	return nil
}

func (s *Sink) WriteBlock(channels [][]int16, frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.drainLocked()
	s.queue.push(channels, frames)

	return nil
}

func (s *Sink) BufferedFrames() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainLocked()

	return uint32(s.queue.frames()) //nolint:gosec
}

func (s *Sink) Pause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drainLocked()
	s.paused = paused
}

func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.queue.reset()
}

// drainLocked drops the frames a device would have played since the last
// call. Time spent paused or before Start plays nothing.
func (s *Sink) drainLocked() {
	now := s.now()
	if !s.started || s.paused || s.closed {
		s.last = now
		return
	}

	elapsed := now.Sub(s.last) + s.carry
	s.last = now
	frames := int(elapsed * time.Duration(s.sampleRate) / time.Second)
	s.carry = elapsed - time.Duration(frames)*time.Second/time.Duration(s.sampleRate)

	queued := s.queue.frames()
	if frames >= queued {
		s.queue.discard(queued)
		s.carry = 0
		return
	}
	s.queue.discard(frames)
}

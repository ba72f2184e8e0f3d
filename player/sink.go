package player

import (
	"sync"
)

// Sink is an audio output. The scheduler calls Start once, then
// WriteBlock for every decoded block, and Stop when playback ends.
//
// WriteBlock receives one slice per output channel, each holding frames
// samples. The slices are reused after WriteBlock returns. WriteBlock may
// block until the device accepts the data.
type Sink interface {
	Start() error
	WriteBlock(channels [][]int16, frames int) error
	// BufferedFrames returns the number of frames written but not yet played.
	BufferedFrames() uint32
	Pause(paused bool)
	// Stop releases the device and may discard frames still buffered. At
	// the natural end of a stream the scheduler waits for BufferedFrames
	// to reach zero before calling it.
	Stop()
}

// MemorySink collects everything written to it. It never reports a
// backlog, so a scheduler feeding it runs as fast as it can decode.
type MemorySink struct {
	mu       sync.Mutex
	channels [][]int16
	blocks   int
	started  bool
	stopped  bool
	paused   bool
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true

	return nil
}

// WriteBlock appends a copy of the samples. The channel count is fixed by
// the first write; later writes with fewer channels pad with silence.
func (m *MemorySink) WriteBlock(channels [][]int16, frames int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.channels == nil {
		m.channels = make([][]int16, len(channels))
	}
	for i := range m.channels {
		if i < len(channels) {
			m.channels[i] = append(m.channels[i], channels[i][:frames]...)
		} else {
			m.channels[i] = append(m.channels[i], make([]int16, frames)...)
		}
	}
	m.blocks++

	return nil
}

func (m *MemorySink) BufferedFrames() uint32 { return 0 }

func (m *MemorySink) Pause(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

func (m *MemorySink) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// Channels returns the collected samples, one slice per channel.
func (m *MemorySink) Channels() [][]int16 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]int16, len(m.channels))
	for i, ch := range m.channels {
		out[i] = append([]int16(nil), ch...)
	}

	return out
}

// Frames returns the number of frames collected.
func (m *MemorySink) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.channels) == 0 {
		return 0
	}

	return len(m.channels[0])
}

// Blocks returns the number of WriteBlock calls.
func (m *MemorySink) Blocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.blocks
}

// Started reports whether Start was called.
func (m *MemorySink) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.started
}

// Stopped reports whether Stop was called.
func (m *MemorySink) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stopped
}

// Paused reports the last state passed to Pause.
func (m *MemorySink) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.paused
}

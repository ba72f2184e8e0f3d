package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/blockcache"
	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/internal/hash"
	"github.com/arloliu/bfsnd/internal/options"
	"github.com/arloliu/bfsnd/internal/pool"
)

// State is the playback state of a Scheduler.
type State int32

const (
	Idle State = iota
	Playing
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Event describes one block handed to the sink.
type Event struct {
	Block int
	// Offset is the first sample within the block; it is nonzero when
	// playback entered the block at a loop or region start.
	Offset int
	// Sample is the absolute position of the first sample.
	Sample int
	Frames int
	// Region is the active region, -1 outside regions.
	Region int
	Pair   int
	// Wrapped reports that playback jumps back to the loop or region start
	// after this block.
	Wrapped bool
	// Last reports that this block ends playback.
	Last bool
}

// Scheduler plays a stream into a sink. Create it with New.
type Scheduler struct {
	stream   *bfstm.Stream
	sink     Sink
	logger   *slog.Logger
	observer func(Event)
	cache    *blockcache.Cache
	cacheID  uint64
	decoder  *dsp.Decoder
	sleep    SleepFunc

	encoding  format.Encoding
	channels  int
	blockSize int
	total     int
	loop      bool
	loopStart int
	regionsOK bool
	dspInfo   []bfstm.DSPChannelInfo

	mu            sync.Mutex
	cond          *sync.Cond
	state         State
	paused        bool
	stopReq       bool
	cancel        context.CancelFunc
	pos           int
	region        int
	pendingRegion int
	pendingSeek   int
	pair          int
	hist          []dsp.History
	bufs          [][]int16
	out           [][]int16

	done     chan struct{}
	doneOnce sync.Once
	err      error
}

// New creates an idle scheduler for stream.
//
// Returns:
//   - *Scheduler: the scheduler, positioned at the first sample
//   - error: errs.ErrUnsupportedEncoding, errs.ErrInvalidStreamInfo,
//     errs.ErrInvalidChannelInfo or errs.ErrInvalidChannel
func New(stream *bfstm.Stream, sink Sink, opts ...Option) (*Scheduler, error) {
	if stream == nil || sink == nil {
		return nil, fmt.Errorf("player: %w: stream and sink are required", errs.ErrInvalidStreamInfo)
	}

	info := stream.Info
	switch info.Encoding {
	case format.DSPADPCM, format.PCM16, format.PCM8:
	default:
		return nil, fmt.Errorf("player: %w: %s", errs.ErrUnsupportedEncoding, info.Encoding)
	}
	if stream.ChannelCount() == 0 || info.BlockCount == 0 || info.BlockSizeSamples == 0 || info.SampleRate == 0 {
		return nil, fmt.Errorf("player: %w: %d channels, %d blocks of %d samples at %d Hz",
			errs.ErrInvalidStreamInfo, stream.ChannelCount(), info.BlockCount, info.BlockSizeSamples, info.SampleRate)
	}

	s := &Scheduler{
		stream:        stream,
		sink:          sink,
		logger:        slog.New(slog.DiscardHandler),
		sleep:         sleepContext,
		encoding:      info.Encoding,
		channels:      stream.ChannelCount(),
		blockSize:     int(info.BlockSizeSamples),
		region:        -1,
		pendingRegion: -1,
		pendingSeek:   -1,
		done:          make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	var err error
	if s.decoder, err = dsp.NewDecoder(); err != nil {
		return nil, err
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}
	if err := s.checkPair(s.pair); err != nil {
		return nil, err
	}

	blockTotal := s.blockSize*(int(info.BlockCount)-1) + int(info.LastBlockSizeSamples)
	s.total = blockTotal
	if info.SampleCount > 0 {
		s.total = min(int(info.SampleCount), blockTotal)
	}

	if info.Loop {
		if int(info.LoopStart) < s.total {
			s.loop = true
			s.loopStart = int(info.LoopStart)
		} else {
			s.logger.Warn("player: loop start beyond stream end, playing once",
				"loop_start", info.LoopStart, "samples", s.total)
		}
	}

	s.regionsOK = stream.RegionsValid()
	for _, r := range stream.Regions {
		if int(r.Start) >= s.total {
			s.regionsOK = false
		}
	}

	s.hist = make([]dsp.History, s.channels)
	if s.encoding == format.DSPADPCM {
		s.dspInfo = make([]bfstm.DSPChannelInfo, s.channels)
		for ch := range s.channels {
			ci, ok := stream.DSPChannel(ch)
			if !ok {
				return nil, fmt.Errorf("player: %w: channel %d has no DSP-ADPCM record", errs.ErrInvalidChannelInfo, ch)
			}
			s.dspInfo[ch] = ci
			s.hist[ch] = ci.Start.History()
		}
		if s.cache != nil {
			s.cacheID = streamID(stream, s.dspInfo)
		}
	}

	return s, nil
}

// streamID fingerprints the sample data and coefficients so entries of
// different streams never meet in a shared block cache.
func streamID(stream *bfstm.Stream, info []bfstm.DSPChannelInfo) uint64 {
	b := hash.NewBuilder().
		Int(len(info)).
		Uint32(stream.Info.BlockSizeBytes).
		Bytes(stream.Data)
	for _, ci := range info {
		for _, pair := range ci.Coefs {
			b.Int16(pair[0]).Int16(pair[1])
		}
	}

	return b.Sum()
}

// Run plays the stream on the calling goroutine until it ends, Stop is
// called or ctx is done. When the stream ends, Run waits for the sink to
// play out its backlog before stopping it. It returns nil in all of these cases and the
// first sink or decode error otherwise.
//
// Returns errs.ErrSchedulerRunning or errs.ErrSchedulerStopped when the
// scheduler is not idle.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	return s.run(ctx)
}

// Start runs playback on a new goroutine. Use Wait to collect the result.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		_ = s.run(ctx)
	}()

	return nil
}

// Wait blocks until playback has stopped and returns what Run returned.
func (s *Scheduler) Wait() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Done is closed once playback has stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Stop ends playback at the next block boundary. It is idempotent, wakes
// a paused scheduler and does not wait; use Wait for that.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopReq {
		s.mu.Unlock()
		return
	}
	s.stopReq = true
	if s.cancel != nil {
		s.cancel()
	}
	idle := s.state == Idle
	if idle {
		s.state = Stopped
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	if idle {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

// Pause suspends decoding after the current block. Pausing an idle
// scheduler makes it start paused.
func (s *Scheduler) Pause() error {
	return s.setPaused(true)
}

// Resume continues after Pause.
func (s *Scheduler) Resume() error {
	return s.setPaused(false)
}

// TogglePause flips the pause state and returns the new one.
func (s *Scheduler) TogglePause() (bool, error) {
	s.mu.Lock()
	paused := !s.paused
	s.mu.Unlock()

	return paused, s.setPaused(paused)
}

func (s *Scheduler) setPaused(paused bool) error {
	s.mu.Lock()
	if s.stopReq {
		s.mu.Unlock()
		return errs.ErrSchedulerStopped
	}
	changed := s.paused != paused
	s.paused = paused
	running := s.state != Idle
	if running {
		s.state = Playing
		if paused {
			s.state = Paused
		}
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	if changed && running {
		s.sink.Pause(paused)
	}

	return nil
}

// Seek moves playback to the start of block and leaves region mode.
//
// Returns errs.ErrInvalidBlock for a block outside the stream.
func (s *Scheduler) Seek(block int) error {
	if block < 0 || block >= int(s.stream.Info.BlockCount) {
		return fmt.Errorf("%w: %d of %d", errs.ErrInvalidBlock, block, s.stream.Info.BlockCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopReq {
		return errs.ErrSchedulerStopped
	}
	s.pendingSeek = block
	s.pendingRegion = -1

	return nil
}

// IncRegion schedules the next region: the first one when no region is
// active, wrapping after the last. Playback jumps to the region start at
// the next block boundary and then repeats the region.
//
// Returns errs.ErrNoRegions for streams without regions and
// errs.ErrInvalidRegion when the region table cannot be played; playback
// then stays linear.
func (s *Scheduler) IncRegion() error {
	n := len(s.stream.Regions)
	if n == 0 {
		return errs.ErrNoRegions
	}
	if !s.regionsOK {
		return fmt.Errorf("%w: region table does not match the stream", errs.ErrInvalidRegion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopReq {
		return errs.ErrSchedulerStopped
	}
	cur := s.region
	if s.pendingRegion >= 0 {
		cur = s.pendingRegion
	}
	s.pendingRegion = (cur + 1) % n

	return nil
}

// SetChannel selects the channel pair played from the next block on.
//
// Returns errs.ErrInvalidChannel when the pair does not exist.
func (s *Scheduler) SetChannel(pair int) error {
	if err := s.checkPair(pair); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopReq {
		return errs.ErrSchedulerStopped
	}
	s.pair = pair

	return nil
}

// ChannelPairs returns the number of selectable channel pairs.
func (s *Scheduler) ChannelPairs() int {
	return (s.channels + 1) / 2
}

func (s *Scheduler) checkPair(pair int) error {
	if pair < 0 || pair*2 >= s.channels {
		return fmt.Errorf("%w: pair %d of a %d channel stream", errs.ErrInvalidChannel, pair, s.channels)
	}

	return nil
}

// State returns the playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Position returns the next sample to decode.
func (s *Scheduler) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pos
}

// Region returns the active region, or -1.
func (s *Scheduler) Region() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.region
}

// Channel returns the selected channel pair.
func (s *Scheduler) Channel() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pair
}

func (s *Scheduler) begin(parent context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Idle:
	case Stopped:
		return nil, errs.ErrSchedulerStopped
	default:
		return nil, errs.ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.state = Playing
	if s.paused {
		s.state = Paused
	}

	return ctx, nil
}

func (s *Scheduler) run(ctx context.Context) (err error) {
	release := s.allocBuffers()
	defer func() {
		s.finish(err)
		release()
	}()

	stopWatch := context.AfterFunc(ctx, s.Stop)
	defer stopWatch()

	if err := s.sink.Start(); err != nil {
		return fmt.Errorf("player: start sink: %w", err)
	}
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()
	if paused {
		s.sink.Pause(true)
	}

	s.logger.Info("player: playback started",
		"encoding", s.encoding.String(),
		"channels", s.channels,
		"blocks", s.stream.Info.BlockCount,
		"loop", s.loop)

	for {
		ev, out, ok, err := s.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := s.sink.WriteBlock(out, ev.Frames); err != nil {
			return fmt.Errorf("player: write block %d: %w", ev.Block, err)
		}
		if s.observer != nil {
			s.observer(ev)
		}
		if ev.Last {
			s.drain(ctx)
			return nil
		}

		if err := s.throttle(ctx); err != nil {
			return nil //nolint:nilerr
		}
	}
}

func (s *Scheduler) allocBuffers() func() {
	size := max(s.blockSize, int(s.stream.Info.LastBlockSizeSamples))
	releases := make([]func(), s.channels)

	s.mu.Lock()
	s.bufs = make([][]int16, s.channels)
	for ch := range s.channels {
		s.bufs[ch], releases[ch] = pool.GetInt16Slice(size)
	}
	s.out = make([][]int16, 0, 2)
	s.mu.Unlock()

	return func() {
		for _, release := range releases {
			release()
		}
	}
}

func (s *Scheduler) finish(err error) {
	s.mu.Lock()
	s.state = Stopped
	s.stopReq = true
	s.err = err
	if s.cancel != nil {
		s.cancel()
	}
	s.cond.Broadcast()
	s.bufs = nil
	s.mu.Unlock()

	s.sink.Stop()
	if err != nil {
		s.logger.Error("player: playback failed", "error", err)
	} else {
		s.logger.Info("player: playback stopped")
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// throttle sleeps until the sink holds about one block.
func (s *Scheduler) throttle(ctx context.Context) error {
	buffered := int(s.sink.BufferedFrames())
	if buffered <= s.blockSize {
		return nil
	}
	d := time.Duration(buffered-s.blockSize) * time.Second / time.Duration(s.stream.Info.SampleRate)

	return s.sleep(ctx, d)
}

// drainStalls bounds how many waits in a row may see no progress while
// draining before the scheduler gives up on the sink.
const drainStalls = 4

// drain waits until the sink has played everything it holds. Stop and ctx
// cut it short, and a paused scheduler waits for Resume first.
func (s *Scheduler) drain(ctx context.Context) {
	buffered := s.sink.BufferedFrames()
	for stalls := 0; buffered > 0; {
		if !s.awaitResume() {
			return
		}
		d := time.Duration(buffered) * time.Second / time.Duration(s.stream.Info.SampleRate)
		if err := s.sleep(ctx, d); err != nil {
			return
		}

		left := s.sink.BufferedFrames()
		if left < buffered {
			stalls = 0
		} else if stalls++; stalls == drainStalls {
			s.logger.Warn("player: sink backlog not draining, stopping", "frames", left)
			return
		}
		buffered = left
	}
}

// awaitResume blocks while paused and reports false once a stop is requested.
func (s *Scheduler) awaitResume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.paused && !s.stopReq {
		s.cond.Wait()
	}

	return !s.stopReq
}

// next runs one decode cycle: it waits while paused, applies pending
// controls, decodes the samples up to the end of the current block or
// segment and advances the position.
func (s *Scheduler) next() (Event, [][]int16, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.paused && !s.stopReq {
		s.cond.Wait()
	}
	if s.stopReq {
		return Event{}, nil, false, nil
	}

	if err := s.applyPending(); err != nil {
		return Event{}, nil, false, err
	}

	block := s.pos / s.blockSize
	blockStart := block * s.blockSize
	segEnd := s.segmentEnd()
	end := min(blockStart+s.stream.BlockSamples(block), segEnd)
	frames := end - s.pos
	if block >= int(s.stream.Info.BlockCount) || frames <= 0 {
		return Event{}, nil, false, fmt.Errorf("player: %w: position %d in block %d", errs.ErrInvalidBlock, s.pos, block)
	}

	offset := s.pos - blockStart
	for ch := range s.channels {
		if err := s.decodeChannel(block, offset, ch, s.bufs[ch][:frames]); err != nil {
			return Event{}, nil, false, err
		}
	}

	ev := Event{
		Block:  block,
		Offset: offset,
		Sample: s.pos,
		Frames: frames,
		Region: s.region,
		Pair:   s.pair,
	}
	s.pos = end
	if end >= segEnd {
		ev.Wrapped, ev.Last = s.wrap()
	}

	n := min(s.channels-s.pair*2, 2)
	s.out = s.out[:0]
	for i := range n {
		s.out = append(s.out, s.bufs[s.pair*2+i][:frames])
	}

	return ev, s.out, true, nil
}

// segmentEnd returns the exclusive end of what plays before the next jump.
func (s *Scheduler) segmentEnd() int {
	if s.region >= 0 {
		return min(int(s.stream.Regions[s.region].End)+1, s.total)
	}

	return s.total
}

// wrap handles the end of a segment: a region repeats, a looping stream
// returns to its loop start and anything else ends.
func (s *Scheduler) wrap() (wrapped bool, last bool) {
	switch {
	case s.region >= 0:
		s.enterRegion(s.region)
		return true, false
	case s.loop:
		s.pos = s.loopStart
		for ch, ci := range s.dspInfo {
			s.hist[ch] = ci.Loop.History()
		}
		s.logger.Debug("player: loop", "sample", s.loopStart)

		return true, false
	default:
		return false, true
	}
}

func (s *Scheduler) applyPending() error {
	if s.pendingSeek >= 0 {
		block := s.pendingSeek
		s.pendingSeek = -1
		s.region = -1
		s.pos = block * s.blockSize
		if err := s.seedBlock(block); err != nil {
			return err
		}
		s.logger.Debug("player: seek", "block", block)
	}
	if s.pendingRegion >= 0 {
		s.enterRegion(s.pendingRegion)
		s.pendingRegion = -1
	}

	return nil
}

// enterRegion moves to the start of region i with the decoder state
// stored for it.
func (s *Scheduler) enterRegion(i int) {
	r := s.stream.Regions[i]
	s.region = i
	s.pos = int(r.Start)
	if s.encoding == format.DSPADPCM {
		for ch := range s.channels {
			s.hist[ch] = r.Contexts[ch].History()
		}
	}
	s.logger.Debug("player: region", "region", i, "start", r.Start, "end", r.End)
}

// seedBlock sets the decoder history entering block from the seek table,
// or by decoding every block before it when the table is missing.
func (s *Scheduler) seedBlock(block int) error {
	if s.encoding != format.DSPADPCM {
		return nil
	}

	for ch, ci := range s.dspInfo {
		if block == 0 {
			s.hist[ch] = ci.Start.History()
			continue
		}
		if h, ok := s.stream.SeekHistory(block, ch); ok {
			s.hist[ch] = h
			continue
		}

		h := ci.Start.History()
		for b := range block {
			dst := s.bufs[ch][:s.stream.BlockSamples(b)]
			if err := s.decoder.Decode(dst, s.stream.BlockData(b, ch), &ci.Coefs, &h, 0); err != nil {
				return fmt.Errorf("player: replay block %d channel %d: %w", b, ch, err)
			}
		}
		s.hist[ch] = h
	}

	return nil
}

func (s *Scheduler) decodeChannel(block, offset, ch int, dst []int16) error {
	switch s.encoding {
	case format.DSPADPCM:
		return s.decodeDSP(block, offset, ch, dst)
	case format.PCM16:
		src := s.stream.BlockData(block, ch)[offset*2:]
		engine := s.stream.Engine
		for i := range dst {
			dst[i] = int16(engine.Uint16(src[2*i:])) //nolint:gosec
		}
	case format.PCM8:
		src := s.stream.BlockData(block, ch)[offset:]
		for i := range dst {
			dst[i] = int16(int8(src[i])) << 8 //nolint:gosec
		}
	}

	return nil
}

func (s *Scheduler) decodeDSP(block, offset, ch int, dst []int16) error {
	key := blockcache.Key{
		Stream:      s.cacheID,
		LegacyClamp: s.decoder.LegacyClamp(),
		Block:       block,
		Offset:      offset,
		Frames:      len(dst),
		Channel:     ch,
		History:     s.hist[ch],
	}
	if s.cache != nil {
		exit, err := s.cache.Get(key, dst)
		if err == nil {
			s.hist[ch] = exit
			return nil
		}
		if !errors.Is(err, errs.ErrCacheMiss) {
			s.logger.Warn("player: block cache read failed", "block", block, "channel", ch, "error", err)
		}
	}

	ci := &s.dspInfo[ch]
	if err := s.decoder.Decode(dst, s.stream.BlockData(block, ch), &ci.Coefs, &s.hist[ch], offset); err != nil {
		return fmt.Errorf("player: decode block %d channel %d: %w", block, ch, err)
	}

	if s.cache != nil {
		if err := s.cache.Put(key, dst, s.hist[ch]); err != nil {
			s.logger.Warn("player: block cache write failed", "block", block, "channel", ch, "error", err)
		}
	}

	return nil
}

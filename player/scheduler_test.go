package player

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/blockcache"
	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/format"
)

const (
	testRate      = 32000
	testSamples   = 2000
	testBlockSize = 0x100 // 448 DSP-ADPCM samples per block
)

func tone(n, ch int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(9000*math.Sin(float64(i)*0.031*float64(ch+1)) + 3000*math.Sin(float64(i)*0.17))
	}

	return out
}

func testStream(t testing.TB, channels int, opts ...bfstm.EncodeOption) *bfstm.Stream {
	t.Helper()

	pcm := make([][]int16, channels)
	for ch := range pcm {
		pcm[ch] = tone(testSamples, ch)
	}
	opts = append([]bfstm.EncodeOption{bfstm.WithBlockSize(testBlockSize)}, opts...)
	f, err := bfstm.FromPCM(pcm, testRate, opts...)
	require.NoError(t, err)
	data, err := bfstm.Write(f)
	require.NoError(t, err)
	s, err := bfstm.Parse(data)
	require.NoError(t, err)
	require.Empty(t, s.Warnings)

	return s
}

// linearDecode decodes a whole DSP-ADPCM channel block by block.
func linearDecode(t testing.TB, s *bfstm.Stream, ch int) []int16 {
	t.Helper()

	ci, ok := s.DSPChannel(ch)
	require.True(t, ok)
	h := ci.Start.History()
	var out []int16
	for b := range int(s.Info.BlockCount) {
		dst := make([]int16, s.BlockSamples(b))
		require.NoError(t, dsp.Decode(dst, s.BlockData(b, ch), &ci.Coefs, &h, 0))
		out = append(out, dst...)
	}

	return out
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) blocks() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Block
	}

	return out
}

func TestState_String(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "playing", Playing.String())
	require.Equal(t, "paused", Paused.String())
	require.Equal(t, "stopped", Stopped.String())
	require.Equal(t, "State(9)", State(9).String())
}

func TestScheduler_LinearPlayback(t *testing.T) {
	s := testStream(t, 2)
	sink := NewMemorySink()
	rec := &recorder{}

	sched, err := New(s, sink, WithObserver(rec.add))
	require.NoError(t, err)
	require.Equal(t, Idle, sched.State())
	require.Equal(t, 1, sched.ChannelPairs())

	require.NoError(t, sched.Run(context.Background()))
	require.Equal(t, Stopped, sched.State())
	require.NoError(t, sched.Wait())

	blocks := rec.blocks()
	require.Len(t, blocks, int(s.Info.BlockCount))
	for i, b := range blocks {
		require.Equal(t, i, b, "blocks play once, in order")
	}
	last := rec.events[len(rec.events)-1]
	require.True(t, last.Last)
	require.False(t, last.Wrapped)

	require.True(t, sink.Started())
	require.True(t, sink.Stopped())
	got := sink.Channels()
	require.Len(t, got, 2)
	require.Equal(t, linearDecode(t, s, 0), got[0])
	require.Equal(t, linearDecode(t, s, 1), got[1])
}

func TestScheduler_LoopPlayback(t *testing.T) {
	s := testStream(t, 1, bfstm.WithLoop(1000, 0))
	require.Equal(t, uint32(994), s.Info.LoopStart)
	loopBlock := s.LoopStartBlock()
	require.Equal(t, 2, loopBlock)

	sink := NewMemorySink()
	rec := &recorder{}
	var sched *Scheduler
	wraps := 0
	observer := func(ev Event) {
		rec.add(ev)
		if ev.Wrapped {
			wraps++
			if wraps == 3 {
				sched.Stop()
			}
		}
	}

	sched, err := New(s, sink, WithObserver(observer))
	require.NoError(t, err)
	require.NoError(t, sched.Run(context.Background()))

	// The first pass visits every block in order; after the first wrap,
	// blocks stay within the loop.
	blocks := rec.blocks()
	count := int(s.Info.BlockCount)
	for i := range count {
		require.Equal(t, i, blocks[i])
	}
	for _, b := range blocks[count:] {
		require.GreaterOrEqual(t, b, loopBlock)
		require.Less(t, b, count)
	}
	require.Equal(t, 994-loopBlock*448, rec.events[count].Offset)

	ref := linearDecode(t, s, 0)
	loopLen := testSamples - 994
	got := sink.Channels()[0]
	require.Len(t, got, testSamples+2*loopLen)
	require.Equal(t, ref, got[:testSamples])
	require.Equal(t, ref[994:], got[testSamples:testSamples+loopLen])
	require.Equal(t, ref[994:], got[testSamples+loopLen:])
}

func TestScheduler_RegionScenario(t *testing.T) {
	s := testStream(t, 1, bfstm.WithRegions(
		bfstm.RegionSpan{Start: 0, End: 999},
		bfstm.RegionSpan{Start: 1000, End: 1999},
	))
	require.True(t, s.RegionsValid())
	require.Equal(t, uint32(994), s.Regions[1].Start)

	t.Run("first region uses its snapshot", func(t *testing.T) {
		// Make region 0's snapshot distinguishable from the start context.
		snapshot := dsp.History{Yn1: 700, Yn2: -300}
		s.Regions[0].Contexts[0].Yn1 = snapshot.Yn1
		s.Regions[0].Contexts[0].Yn2 = snapshot.Yn2
		defer func() { s.Regions[0].Contexts[0] = dsp.Context{Header: s.Regions[0].Contexts[0].Header} }()

		sink := NewMemorySink()
		rec := &recorder{}
		var sched *Scheduler
		sched, err := New(s, sink, WithObserver(func(ev Event) {
			rec.add(ev)
			if ev.Wrapped {
				sched.Stop()
			}
		}))
		require.NoError(t, err)
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.Run(context.Background()))

		ci, _ := s.DSPChannel(0)
		want := make([]int16, 448)
		h := snapshot
		require.NoError(t, dsp.Decode(want, s.BlockData(0, 0), &ci.Coefs, &h, 0))

		got := sink.Channels()[0]
		require.Len(t, got, 1000)
		require.Equal(t, want, got[:448])
		require.Equal(t, []int{0, 1, 2}, rec.blocks())
		for _, ev := range rec.events {
			require.Equal(t, 0, ev.Region)
		}
		require.Equal(t, 1000-896, rec.events[2].Frames)
	})

	t.Run("second region", func(t *testing.T) {
		sink := NewMemorySink()
		rec := &recorder{}
		var sched *Scheduler
		sched, err := New(s, sink, WithObserver(func(ev Event) {
			rec.add(ev)
			if ev.Wrapped {
				sched.Stop()
			}
		}))
		require.NoError(t, err)
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.Run(context.Background()))

		require.Equal(t, []int{2, 3, 4}, rec.blocks())
		require.Equal(t, 994-896, rec.events[0].Offset)
		require.Equal(t, linearDecode(t, s, 0)[994:], sink.Channels()[0])
	})

	t.Run("region repeats", func(t *testing.T) {
		sink := NewMemorySink()
		var sched *Scheduler
		wraps := 0
		sched, err := New(s, sink, WithObserver(func(ev Event) {
			if ev.Wrapped {
				wraps++
				if wraps == 2 {
					sched.Stop()
				}
			}
		}))
		require.NoError(t, err)
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.Run(context.Background()))

		ref := linearDecode(t, s, 0)[994:]
		got := sink.Channels()[0]
		require.Len(t, got, 2*len(ref))
		require.Equal(t, ref, got[:len(ref)])
		require.Equal(t, ref, got[len(ref):])
	})

	t.Run("increment wraps", func(t *testing.T) {
		sched, err := New(s, NewMemorySink())
		require.NoError(t, err)
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.IncRegion())
		require.Equal(t, 0, sched.pendingRegion)
	})
}

func TestScheduler_RegionErrors(t *testing.T) {
	sched, err := New(testStream(t, 1), NewMemorySink())
	require.NoError(t, err)
	require.ErrorIs(t, sched.IncRegion(), errs.ErrNoRegions)

	pcm := [][]int16{tone(testSamples, 0)}
	f, err := bfstm.FromPCM(pcm, testRate, bfstm.WithBlockSize(testBlockSize),
		bfstm.WithRegions(bfstm.RegionSpan{Start: 0, End: 500}))
	require.NoError(t, err)
	f.Regions[0].End = 5000
	data, err := bfstm.Write(f)
	require.NoError(t, err)
	s, err := bfstm.Parse(data)
	require.NoError(t, err)
	require.False(t, s.RegionsValid())

	sink := NewMemorySink()
	sched, err = New(s, sink)
	require.NoError(t, err)
	require.ErrorIs(t, sched.IncRegion(), errs.ErrInvalidRegion)

	// Playback stays linear.
	require.NoError(t, sched.Run(context.Background()))
	require.Equal(t, testSamples, sink.Frames())
	require.Equal(t, -1, sched.Region())
}

func TestScheduler_Seek(t *testing.T) {
	for _, withTable := range []bool{true, false} {
		name := "seek table"
		if !withTable {
			name = "replay"
		}
		t.Run(name, func(t *testing.T) {
			s := testStream(t, 2)
			if !withTable {
				s.SeekTable = nil
			}

			sink := NewMemorySink()
			rec := &recorder{}
			var sched *Scheduler
			sched, err := New(s, sink, WithObserver(func(ev Event) {
				rec.add(ev)
				if ev.Block == 0 {
					require.NoError(t, sched.Seek(3))
				}
			}))
			require.NoError(t, err)
			require.NoError(t, sched.Run(context.Background()))

			require.Equal(t, []int{0, 3, 4}, rec.blocks())
			for ch := range 2 {
				ref := linearDecode(t, s, ch)
				got := sink.Channels()[ch]
				require.Equal(t, ref[:448], got[:448])
				require.Equal(t, ref[3*448:], got[448:])
			}
		})
	}

	t.Run("out of range", func(t *testing.T) {
		s := testStream(t, 1)
		sched, err := New(s, NewMemorySink())
		require.NoError(t, err)
		require.ErrorIs(t, sched.Seek(-1), errs.ErrInvalidBlock)
		require.ErrorIs(t, sched.Seek(int(s.Info.BlockCount)), errs.ErrInvalidBlock)
	})

	t.Run("leaves region", func(t *testing.T) {
		s := testStream(t, 1, bfstm.WithRegions(bfstm.RegionSpan{Start: 0, End: 999}))
		rec := &recorder{}
		var sched *Scheduler
		sched, err := New(s, NewMemorySink(), WithObserver(func(ev Event) {
			rec.add(ev)
			if ev.Block == 1 && ev.Region == 0 {
				require.NoError(t, sched.Seek(4))
			}
		}))
		require.NoError(t, err)
		require.NoError(t, sched.IncRegion())
		require.NoError(t, sched.Run(context.Background()))

		require.Equal(t, []int{0, 1, 4}, rec.blocks())
		require.Equal(t, -1, rec.events[2].Region)
		require.True(t, rec.events[2].Last)
	})
}

func TestScheduler_Channels(t *testing.T) {
	s := testStream(t, 3)

	t.Run("odd pair", func(t *testing.T) {
		sink := NewMemorySink()
		sched, err := New(s, sink, WithChannelPair(1))
		require.NoError(t, err)
		require.Equal(t, 2, sched.ChannelPairs())
		require.NoError(t, sched.Run(context.Background()))

		got := sink.Channels()
		require.Len(t, got, 1)
		require.Equal(t, linearDecode(t, s, 2), got[0])
	})

	t.Run("switch while playing", func(t *testing.T) {
		sink := NewMemorySink()
		var sched *Scheduler
		sched, err := New(s, sink, WithObserver(func(ev Event) {
			if ev.Block == 0 {
				require.NoError(t, sched.SetChannel(1))
			}
		}))
		require.NoError(t, err)
		require.NoError(t, sched.Run(context.Background()))

		got := sink.Channels()
		require.Len(t, got, 2)
		require.Equal(t, linearDecode(t, s, 0)[:448], got[0][:448])
		require.Equal(t, linearDecode(t, s, 2)[448:], got[0][448:])
		require.Equal(t, linearDecode(t, s, 1)[:448], got[1][:448])
		require.Equal(t, make([]int16, testSamples-448), got[1][448:])
		require.Equal(t, 1, sched.Channel())
	})

	t.Run("invalid pair", func(t *testing.T) {
		_, err := New(s, NewMemorySink(), WithChannelPair(2))
		require.ErrorIs(t, err, errs.ErrInvalidChannel)

		sched, err := New(s, NewMemorySink())
		require.NoError(t, err)
		require.ErrorIs(t, sched.SetChannel(-1), errs.ErrInvalidChannel)
		require.ErrorIs(t, sched.SetChannel(2), errs.ErrInvalidChannel)
	})
}

func TestScheduler_PauseResume(t *testing.T) {
	s := testStream(t, 1)
	sink := NewMemorySink()
	pausedAt := make(chan struct{})
	var sched *Scheduler
	sched, err := New(s, sink, WithObserver(func(ev Event) {
		if ev.Block == 1 {
			if err := sched.Pause(); err != nil {
				t.Error(err)
			}
			close(pausedAt)
		}
	}))
	require.NoError(t, err)
	require.NoError(t, sched.Start(context.Background()))

	<-pausedAt
	require.Equal(t, Paused, sched.State())
	require.True(t, sink.Paused())
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, sink.Blocks())

	paused, err := sched.TogglePause()
	require.NoError(t, err)
	require.False(t, paused)
	require.NoError(t, sched.Wait())
	require.False(t, sink.Paused())
	require.Equal(t, testSamples, sink.Frames())
}

func TestScheduler_Stop(t *testing.T) {
	t.Run("wakes pause", func(t *testing.T) {
		sink := NewMemorySink()
		sched, err := New(testStream(t, 1), sink)
		require.NoError(t, err)
		require.NoError(t, sched.Pause())
		require.NoError(t, sched.Start(context.Background()))
		require.ErrorIs(t, sched.Start(context.Background()), errs.ErrSchedulerRunning)

		sched.Stop()
		sched.Stop()
		require.NoError(t, sched.Wait())
		require.Equal(t, Stopped, sched.State())
		require.Zero(t, sink.Blocks())
		require.True(t, sink.Stopped())

		require.ErrorIs(t, sched.Run(context.Background()), errs.ErrSchedulerStopped)
		require.ErrorIs(t, sched.Pause(), errs.ErrSchedulerStopped)
		require.ErrorIs(t, sched.Seek(0), errs.ErrSchedulerStopped)
		require.ErrorIs(t, sched.SetChannel(0), errs.ErrSchedulerStopped)
	})

	t.Run("before start", func(t *testing.T) {
		sink := NewMemorySink()
		sched, err := New(testStream(t, 1), sink)
		require.NoError(t, err)
		sched.Stop()
		<-sched.Done()
		require.NoError(t, sched.Wait())
		require.False(t, sink.Started())
		require.ErrorIs(t, sched.Start(context.Background()), errs.ErrSchedulerStopped)
	})

	t.Run("context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sink := NewMemorySink()
		sched, err := New(testStream(t, 1, bfstm.WithLoop(0, 0)), sink, WithObserver(func(ev Event) {
			if ev.Wrapped {
				cancel()
			}
		}))
		require.NoError(t, err)
		require.NoError(t, sched.Start(ctx))
		require.NoError(t, sched.Wait())
		require.Equal(t, Stopped, sched.State())
		require.GreaterOrEqual(t, sink.Frames(), testSamples)
	})
}

type backlogSink struct {
	*MemorySink
	buffered uint32
	failAt   int
}

func (b *backlogSink) BufferedFrames() uint32 { return b.buffered }

func (b *backlogSink) WriteBlock(channels [][]int16, frames int) error {
	if b.failAt > 0 && b.MemorySink.Blocks() == b.failAt {
		return errors.New("device lost")
	}

	return b.MemorySink.WriteBlock(channels, frames)
}

func TestScheduler_Throttle(t *testing.T) {
	s := testStream(t, 1)
	sink := &backlogSink{MemorySink: NewMemorySink(), buffered: 3 * 448}

	var sleeps []time.Duration
	sched, err := New(s, sink, WithClock(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}))
	require.NoError(t, err)
	require.NoError(t, sched.Run(context.Background()))

	// One throttle wait between blocks, then drain waits on a backlog that
	// never shrinks until the scheduler gives up.
	throttled := int(s.Info.BlockCount) - 1
	require.Len(t, sleeps, throttled+drainStalls)
	for _, d := range sleeps[:throttled] {
		require.Equal(t, 28*time.Millisecond, d)
	}
	for _, d := range sleeps[throttled:] {
		require.Equal(t, 42*time.Millisecond, d)
	}
	require.True(t, sink.Stopped())

	t.Run("interrupted sleep stops", func(t *testing.T) {
		sink := &backlogSink{MemorySink: NewMemorySink(), buffered: 3 * 448}
		sched, err := New(s, sink, WithClock(func(context.Context, time.Duration) error {
			return context.Canceled
		}))
		require.NoError(t, err)
		require.NoError(t, sched.Run(context.Background()))
		require.Equal(t, 1, sink.Blocks())
	})

	t.Run("small backlog does not throttle", func(t *testing.T) {
		sink := &backlogSink{MemorySink: NewMemorySink(), buffered: 448}
		var sleeps []time.Duration
		sched, err := New(s, sink, WithClock(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}))
		require.NoError(t, err)
		require.NoError(t, sched.Run(context.Background()))

		require.Equal(t, int(s.Info.BlockCount), sink.Blocks())
		require.Len(t, sleeps, drainStalls)
		for _, d := range sleeps {
			require.Equal(t, 14*time.Millisecond, d)
		}
	})
}

// drainSink plays its backlog out only as the scheduler's clock advances.
type drainSink struct {
	*MemorySink
	mu          sync.Mutex
	backlog     uint32
	rate        int
	stoppedWith []uint32
}

func (d *drainSink) BufferedFrames() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.backlog
}

func (d *drainSink) WriteBlock(channels [][]int16, frames int) error {
	d.mu.Lock()
	d.backlog += uint32(frames) //nolint:gosec
	d.mu.Unlock()

	return d.MemorySink.WriteBlock(channels, frames)
}

// advance plays out the frames that fit in elapsed, at most half the backlog
// per call so the drain needs several waits.
func (d *drainSink) advance(elapsed time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	played := uint32(elapsed * time.Duration(d.rate) / time.Second) //nolint:gosec
	played = min(played, max(d.backlog/2, 1))
	d.backlog -= min(played, d.backlog)
}

func (d *drainSink) Stop() {
	d.mu.Lock()
	d.stoppedWith = append(d.stoppedWith, d.backlog)
	d.mu.Unlock()
	d.MemorySink.Stop()
}

func TestScheduler_DrainBeforeStop(t *testing.T) {
	s := testStream(t, 1)

	t.Run("natural end plays the tail out", func(t *testing.T) {
		sink := &drainSink{MemorySink: NewMemorySink(), rate: testRate}
		var drains int
		var lastWritten bool
		sched, err := New(s, sink,
			WithObserver(func(ev Event) { lastWritten = ev.Last }),
			WithClock(func(_ context.Context, d time.Duration) error {
				if lastWritten {
					drains++
				}
				sink.advance(d)
				return nil
			}))
		require.NoError(t, err)
		require.NoError(t, sched.Run(context.Background()))

		require.Greater(t, drains, 1)
		require.Equal(t, []uint32{0}, sink.stoppedWith)
		require.Equal(t, testSamples, sink.Frames())
	})

	t.Run("stop cuts the drain short", func(t *testing.T) {
		sink := &drainSink{MemorySink: NewMemorySink(), rate: testRate}
		var sched *Scheduler
		var lastWritten bool
		sched, err := New(s, sink,
			WithObserver(func(ev Event) { lastWritten = ev.Last }),
			WithClock(func(ctx context.Context, d time.Duration) error {
				if lastWritten {
					sched.Stop()
					return ctx.Err()
				}
				sink.advance(d)
				return nil
			}))
		require.NoError(t, err)
		require.NoError(t, sched.Run(context.Background()))

		require.Len(t, sink.stoppedWith, 1)
		require.Positive(t, sink.stoppedWith[0])
		require.Equal(t, Stopped, sched.State())
	})
}

func TestScheduler_SinkError(t *testing.T) {
	sink := &backlogSink{MemorySink: NewMemorySink(), failAt: 2}
	sched, err := New(testStream(t, 1), sink)
	require.NoError(t, err)

	err = sched.Run(context.Background())
	require.ErrorContains(t, err, "device lost")
	require.Equal(t, err, sched.Wait())
	require.Equal(t, Stopped, sched.State())
	require.True(t, sink.Stopped())
}

func TestScheduler_BlockCache(t *testing.T) {
	s := testStream(t, 2, bfstm.WithLoop(500, 0))

	play := func(cache *blockcache.Cache) [][]int16 {
		sink := NewMemorySink()
		var sched *Scheduler
		wraps := 0
		opts := []Option{WithObserver(func(ev Event) {
			if ev.Wrapped {
				wraps++
				if wraps == 3 {
					sched.Stop()
				}
			}
		})}
		if cache != nil {
			opts = append(opts, WithBlockCache(cache))
		}
		sched, err := New(s, sink, opts...)
		require.NoError(t, err)
		require.NoError(t, sched.Run(context.Background()))

		return sink.Channels()
	}

	cache, err := blockcache.New(blockcache.WithCompression(format.CompressionS2))
	require.NoError(t, err)

	want := play(nil)
	require.Equal(t, want, play(cache))
	stats := cache.Stats()
	require.Positive(t, stats.Hits)
	require.Positive(t, stats.Entries)

	// A second run is served from the cache.
	require.Equal(t, want, play(cache))
	require.Greater(t, cache.Stats().Hits, stats.Hits)
}

func TestScheduler_SharedBlockCache(t *testing.T) {
	scaled := func(gain float64) *bfstm.Stream {
		pcm := tone(testSamples, 0)
		for i, v := range pcm {
			pcm[i] = int16(float64(v) * gain)
		}
		f, err := bfstm.FromPCM([][]int16{pcm}, testRate, bfstm.WithBlockSize(testBlockSize))
		require.NoError(t, err)
		data, err := bfstm.Write(f)
		require.NoError(t, err)
		st, err := bfstm.Parse(data)
		require.NoError(t, err)

		return st
	}

	play := func(st *bfstm.Stream, opts ...Option) []int16 {
		sink := NewMemorySink()
		sched, err := New(st, sink, opts...)
		require.NoError(t, err)
		require.NoError(t, sched.Run(context.Background()))

		return sink.Channels()[0]
	}

	t.Run("different streams", func(t *testing.T) {
		cache, err := blockcache.New()
		require.NoError(t, err)

		loud, quiet := scaled(1), scaled(0.25)
		require.Equal(t, linearDecode(t, loud, 0), play(loud, WithBlockCache(cache)))
		require.Equal(t, linearDecode(t, quiet, 0), play(quiet, WithBlockCache(cache)))
		require.Zero(t, cache.Stats().Hits)

		// The same stream parsed again shares its entries.
		require.Equal(t, linearDecode(t, loud, 0), play(scaled(1), WithBlockCache(cache)))
		require.Positive(t, cache.Stats().Hits)
	})

	t.Run("different clamp modes", func(t *testing.T) {
		cache, err := blockcache.New()
		require.NoError(t, err)
		legacy, err := dsp.NewDecoder(dsp.WithLegacyClamp())
		require.NoError(t, err)

		st := scaled(1)
		play(st, WithBlockCache(cache))
		hits := cache.Stats().Hits
		play(st, WithBlockCache(cache), WithDecoder(legacy))
		require.Equal(t, hits, cache.Stats().Hits)
	})
}

func TestScheduler_PCM(t *testing.T) {
	for _, enc := range []format.Encoding{format.PCM16, format.PCM8} {
		t.Run(enc.String(), func(t *testing.T) {
			s := testStream(t, 2, bfstm.WithEncoding(enc), bfstm.WithLoop(700, 0))
			require.Equal(t, uint32(700), s.Info.LoopStart)

			sink := NewMemorySink()
			var sched *Scheduler
			sched, err := New(s, sink, WithObserver(func(ev Event) {
				if ev.Wrapped {
					sched.Stop()
				}
			}))
			require.NoError(t, err)
			require.NoError(t, sched.Run(context.Background()))

			for ch, got := range sink.Channels() {
				want := tone(testSamples, ch)
				if enc == format.PCM8 {
					for i, v := range want {
						want[i] = int16(int8(v>>8)) << 8
					}
				}
				require.Equal(t, want, got)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, NewMemorySink())
	require.ErrorIs(t, err, errs.ErrInvalidStreamInfo)

	s := testStream(t, 1)
	_, err = New(s, nil)
	require.ErrorIs(t, err, errs.ErrInvalidStreamInfo)

	bad := *s
	bad.Info.Encoding = format.IMAADPCM
	_, err = New(&bad, NewMemorySink())
	require.ErrorIs(t, err, errs.ErrUnsupportedEncoding)

	bad = *s
	bad.Info.SampleRate = 0
	_, err = New(&bad, NewMemorySink())
	require.ErrorIs(t, err, errs.ErrInvalidStreamInfo)

	bad = *s
	bad.Channels = []bfstm.ChannelInfo{bfstm.PCMChannelInfo{Width: format.PCM16}}
	_, err = New(&bad, NewMemorySink())
	require.ErrorIs(t, err, errs.ErrInvalidChannelInfo)
}

func BenchmarkScheduler_Decode(b *testing.B) {
	s := testStream(b, 2)
	b.ReportAllocs()
	for b.Loop() {
		sched, err := New(s, NewMemorySink())
		if err != nil {
			b.Fatal(err)
		}
		if err := sched.Run(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

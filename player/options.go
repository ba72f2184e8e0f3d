package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/arloliu/bfsnd/blockcache"
	"github.com/arloliu/bfsnd/dsp"
	"github.com/arloliu/bfsnd/internal/options"
)

// Option configures a Scheduler.
type Option = options.Option[*Scheduler]

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// WithLogger sets the logger for playback events.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	})
}

// WithObserver registers a function called from the decode goroutine
// after every block is written to the sink. It may call the controls.
func WithObserver(fn func(Event)) Option {
	return options.NoError(func(s *Scheduler) {
		s.observer = fn
	})
}

// WithChannelPair selects the initial channel pair; pair n plays
// channels 2n and 2n+1.
func WithChannelPair(pair int) Option {
	return options.NoError(func(s *Scheduler) {
		s.pair = pair
	})
}

// WithBlockCache stores decoded DSP-ADPCM blocks in cache and reuses them
// when playback returns to a block with the same decoder state.
func WithBlockCache(cache *blockcache.Cache) Option {
	return options.NoError(func(s *Scheduler) {
		s.cache = cache
	})
}

// WithClock replaces the sleep used for backpressure.
func WithClock(sleep SleepFunc) Option {
	return options.NoError(func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	})
}

// WithDecoder sets the DSP-ADPCM decoder, for example one created with
// dsp.WithLegacyClamp.
func WithDecoder(d *dsp.Decoder) Option {
	return options.NoError(func(s *Scheduler) {
		if d != nil {
			s.decoder = d
		}
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

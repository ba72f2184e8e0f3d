package otosink

import (
	"log/slog"
	"time"

	"github.com/arloliu/bfsnd/internal/options"
)

// DefaultBufferSize is the device buffer requested from the audio driver.
const DefaultBufferSize = 50 * time.Millisecond

// Option configures a Sink.
type Option = options.Option[*config]

type config struct {
	bufferSize time.Duration
	logger     *slog.Logger
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{
		bufferSize: DefaultBufferSize,
		logger:     slog.New(slog.DiscardHandler),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithBufferSize sets the device buffer duration. Zero lets the driver pick.
func WithBufferSize(d time.Duration) Option {
	return options.NoError(func(c *config) {
		if d >= 0 {
			c.bufferSize = d
		}
	})
}

// WithLogger sets the logger for device events.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

package otosink

import (
	"errors"
	"fmt"

	"github.com/arloliu/bfsnd/errs"
)

// MaxChannels is the widest output a sink accepts; the scheduler plays
// one channel pair at a time.
const MaxChannels = 2

// ErrClosed is returned when a stopped sink is written to or restarted.
var ErrClosed = errors.New("otosink: sink stopped")

func validate(sampleRate, channels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("otosink: %w: sample rate %d", errs.ErrInvalidStreamInfo, sampleRate)
	}
	if channels < 1 || channels > MaxChannels {
		return fmt.Errorf("otosink: %w: %d output channels", errs.ErrInvalidChannel, channels)
	}

	return nil
}

package main

import (
	"errors"
	"fmt"

	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/player"
)

// controller is the part of the scheduler driven by the keyboard.
type controller interface {
	TogglePause() (bool, error)
	IncRegion() error
	SetChannel(pair int) error
	Channel() int
	ChannelPairs() int
	Seek(block int) error
	Stop()
}

var _ controller = (*player.Scheduler)(nil)

const keyHelp = "space: pause  r: next region  c: next channel pair  g: restart  q: quit"

// handleKey applies one key press and returns a status line for it.
// It reports quit for q, Esc and Ctrl-C.
func handleKey(c controller, key byte) (status string, quit bool, err error) {
	switch key {
	case ' ':
		paused, err := c.TogglePause()
		if err != nil {
			return "", false, err
		}
		if paused {
			return "paused", false, nil
		}

		return "playing", false, nil
	case 'r', 'R':
		switch err := c.IncRegion(); {
		case errors.Is(err, errs.ErrNoRegions):
			return "stream has no regions", false, nil
		case errors.Is(err, errs.ErrInvalidRegion):
			return "region table is invalid", false, nil
		case err != nil:
			return "", false, err
		}

		return "next region", false, nil
	case 'c', 'C':
		pair := (c.Channel() + 1) % c.ChannelPairs()
		if err := c.SetChannel(pair); err != nil {
			return "", false, err
		}

		return fmt.Sprintf("channel pair %d", pair), false, nil
	case 'g', 'G':
		if err := c.Seek(0); err != nil {
			return "", false, err
		}

		return "restart", false, nil
	case 'q', 'Q', 0x1B, 0x03:
		c.Stop()
		return "quit", true, nil
	case 'h', '?':
		return keyHelp, false, nil
	default:
		return "", false, nil
	}
}

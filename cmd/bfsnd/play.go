package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arloliu/bfsnd"
	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/errs"
	"github.com/arloliu/bfsnd/internal/otosink"
	"github.com/arloliu/bfsnd/player"
)

func newPlayCmd(a *app) *cobra.Command {
	var (
		pair   int
		cache  string
		noKeys bool
	)

	cmd := &cobra.Command{
		Use:   "play [stream_file]",
		Short: "Play a stream on the audio device",
		Long: `Play a BFSTM stream on the default audio device.

Keys (when stdin is a terminal):
  space   pause or resume
  r       play the next region
  c       switch to the next channel pair
  g       restart from the first block
  q       quit

Example:
  bfsnd play bgm.bfstm --channel 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bfsnd.OpenStream(args[0], bfstm.WithLogger(a.logger))
			if err != nil {
				return fmt.Errorf("failed to open stream: %w", err)
			}
			opts, err := a.playerOptions(pair, cache)
			if err != nil {
				return err
			}

			sink, err := otosink.New(int(s.Info.SampleRate), min(s.ChannelCount(), otosink.MaxChannels),
				otosink.WithLogger(a.logger))
			if err != nil {
				return fmt.Errorf("failed to open audio device: %w", err)
			}
			sched, err := bfsnd.NewPlayer(s, sink, opts...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			fmt.Fprintf(a.out, "Playing %s: %s, %d channels @ %d Hz, %s\n", args[0],
				s.Info.Encoding, s.ChannelCount(), s.Info.SampleRate, s.Duration())

			if err := sched.Start(ctx); err != nil {
				return err
			}
			fd := int(os.Stdin.Fd()) //nolint:gosec
			if !noKeys && term.IsTerminal(fd) {
				if err := a.readKeys(fd, os.Stdin, sched); err != nil {
					sched.Stop()
					_ = sched.Wait()

					return err
				}
			}

			return sched.Wait()
		},
	}
	cmd.Flags().IntVarP(&pair, "channel", "c", 0, "initial channel pair")
	cmd.Flags().StringVar(&cache, "cache", "lz4", "decoded block cache codec: off, none, lz4, s2 or zstd")
	cmd.Flags().BoolVar(&noKeys, "no-keys", false, "do not read keyboard controls")

	return cmd
}

// readKeys switches the terminal to raw mode and applies key presses until
// the scheduler stops. The reader goroutine is left blocked on stdin when
// playback ends on its own; the process exits right after.
func (a *app) readKeys(fd int, in io.Reader, sched *player.Scheduler) error {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	fmt.Fprintf(a.out, "%s\r\n", keyHelp)

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := in.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n == 1 {
				select {
				case keys <- buf[0]:
				case <-sched.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-sched.Done():
			return nil
		case key, ok := <-keys:
			if !ok {
				return nil
			}
			status, quit, err := handleKey(sched, key)
			if errors.Is(err, errs.ErrSchedulerStopped) {
				return nil
			}
			if err != nil {
				return err
			}
			if status != "" {
				fmt.Fprintf(a.out, "%s\r\n", status)
			}
			if quit {
				return nil
			}
		}
	}
}

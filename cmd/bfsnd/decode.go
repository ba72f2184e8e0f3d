package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/bfsnd"
	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/blockcache"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/internal/wavio"
	"github.com/arloliu/bfsnd/player"
)

// playerOptions maps the shared playback flags to scheduler options.
func (a *app) playerOptions(pair int, cache string) ([]player.Option, error) {
	opts := []player.Option{
		player.WithLogger(a.logger),
		player.WithChannelPair(pair),
	}
	if cache == "off" {
		return opts, nil
	}

	ct, ok := format.ParseCompressionType(cache)
	if !ok {
		return nil, fmt.Errorf("unknown cache codec %q", cache)
	}
	bc, err := blockcache.New(blockcache.WithCompression(ct))
	if err != nil {
		return nil, err
	}

	return append(opts, player.WithBlockCache(bc)), nil
}

func newDecodeCmd(a *app) *cobra.Command {
	var (
		output string
		loops  int
		pair   int
		cache  string
	)

	cmd := &cobra.Command{
		Use:   "decode [stream_file]",
		Short: "Decode a stream to a WAV file",
		Long: `Decode a BFSTM stream to a 16-bit WAV file.

The stream is played through the scheduler without a device, so loops
and channel pairs behave exactly as they do during playback. A looping
stream plays its loop body --loops more times after the first pass.

Example:
  bfsnd decode bgm.bfstm -o bgm.wav --loops 1 --channel 0`,
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

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			channels, err := bfsnd.Render(ctx, s, loops, opts...)
			if err != nil {
				return fmt.Errorf("failed to decode stream: %w", err)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			audio := &wavio.Audio{SampleRate: int(s.Info.SampleRate), Channels: channels}
			if err := wavio.Encode(f, audio); err != nil {
				return fmt.Errorf("failed to write wav: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			a.logger.Info("decoded stream", "input", args[0], "output", output, "frames", audio.Frames())
			fmt.Fprintf(a.out, "Wrote %d frames x %d channels to %s\n", audio.Frames(), len(channels), output)

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output WAV file")
	cmd.Flags().IntVar(&loops, "loops", 0, "extra passes through the loop body")
	cmd.Flags().IntVarP(&pair, "channel", "c", 0, "channel pair to decode")
	cmd.Flags().StringVar(&cache, "cache", "off", "decoded block cache codec: off, none, lz4, s2 or zstd")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/bfsnd"
	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/endian"
	"github.com/arloliu/bfsnd/format"
	"github.com/arloliu/bfsnd/internal/wavio"
)

func newEncodeCmd(a *app) *cobra.Command {
	var (
		output    string
		loopStart uint32
		loopEnd   uint32
		pcm16     bool
		bigEndian bool
		blockSize int
	)

	cmd := &cobra.Command{
		Use:   "encode [wav_file]",
		Short: "Encode a WAV file into a stream",
		Long: `Encode a 16-bit WAV file into a BFSTM stream container.

Samples are encoded as DSP-ADPCM unless --pcm16 is given. Setting
--loop-start makes the stream loop; the loop start is aligned down to a
DSP-ADPCM frame.

Example:
  bfsnd encode bgm.wav -o bgm.bfstm --loop-start 44800`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			audio, err := wavio.Decode(in)
			if err != nil {
				return fmt.Errorf("failed to read wav: %w", err)
			}

			var opts []bfstm.EncodeOption
			if cmd.Flags().Changed("loop-start") || cmd.Flags().Changed("loop-end") {
				opts = append(opts, bfstm.WithLoop(loopStart, loopEnd))
			}
			if pcm16 {
				opts = append(opts, bfstm.WithEncoding(format.PCM16))
			}
			if bigEndian {
				opts = append(opts, bfstm.WithEngine(endian.GetBigEndianEngine()))
			}
			if blockSize > 0 {
				opts = append(opts, bfstm.WithBlockSize(blockSize))
			}

			data, err := bfsnd.EncodeStream(audio.Channels, uint32(audio.SampleRate), opts...) //nolint:gosec
			if err != nil {
				return fmt.Errorf("failed to encode stream: %w", err)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil { //nolint:gosec
				return err
			}

			a.logger.Info("encoded stream", "input", args[0], "output", output, "bytes", len(data))
			fmt.Fprintf(a.out, "Wrote %d bytes to %s\n", len(data), output)

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output stream file")
	cmd.Flags().Uint32Var(&loopStart, "loop-start", 0, "loop start sample")
	cmd.Flags().Uint32Var(&loopEnd, "loop-end", 0, "loop end sample, 0 for the end of the input")
	cmd.Flags().BoolVar(&pcm16, "pcm16", false, "store PCM16 instead of DSP-ADPCM")
	cmd.Flags().BoolVar(&bigEndian, "big-endian", false, "write a big-endian container")
	cmd.Flags().IntVar(&blockSize, "block-size", 0, "block size in bytes, a multiple of 0x20")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

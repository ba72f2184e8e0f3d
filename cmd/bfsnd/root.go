package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// app carries the state shared by every command.
type app struct {
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger

	verbose   bool
	logFormat string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, logger: slog.New(slog.DiscardHandler)}

	root := &cobra.Command{
		Use:   "bfsnd",
		Short: "Tools for Nintendo BFSTM streams and BFSAR sound archives",
		Long: `bfsnd - inspect, convert and play Nintendo binary sound containers.

Currently supports:
  - BFSTM stream containers (PCM8, PCM16 and DSP-ADPCM)
  - BFSAR sound archives (name lookup and item listing)

Examples:
  bfsnd info bgm.bfstm
  bfsnd play bgm.bfstm
  bfsnd decode bgm.bfstm -o bgm.wav --loops 1
  bfsnd encode bgm.wav -o bgm.bfstm --loop-start 44800
  bfsnd sar ls sound.bfsar
  bfsnd sar find sound.bfsar STRM_BGM_TITLE`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogger()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newInfoCmd(a),
		newPlayCmd(a),
		newDecodeCmd(a),
		newEncodeCmd(a),
		newSarCmd(a),
	)

	return root
}

func (a *app) setupLogger() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(a.logFormat) {
	case "text":
		a.logger = slog.New(slog.NewTextHandler(a.errOut, opts))
	case "json":
		a.logger = slog.New(slog.NewJSONHandler(a.errOut, opts))
	default:
		return fmt.Errorf("unknown log format %q", a.logFormat)
	}

	return nil
}

// printReport writes v as YAML or through the text printer.
func (a *app) printReport(output string, v any, text func(io.Writer)) error {
	switch output {
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}

		return enc.Close()
	case "text", "":
		text(a.out)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arloliu/bfsnd"
	"github.com/arloliu/bfsnd/bfstm"
	"github.com/arloliu/bfsnd/endian"
)

type streamReport struct {
	File       string         `yaml:"file"`
	Version    string         `yaml:"version"`
	ByteOrder  string         `yaml:"byte_order"`
	Encoding   string         `yaml:"encoding"`
	SampleRate uint32         `yaml:"sample_rate"`
	Channels   int            `yaml:"channels"`
	Samples    uint32         `yaml:"samples"`
	Duration   string         `yaml:"duration"`
	Loop       *loopReport    `yaml:"loop,omitempty"`
	Blocks     blockReport    `yaml:"blocks"`
	Tracks     []trackReport  `yaml:"tracks,omitempty"`
	Regions    []regionReport `yaml:"regions,omitempty"`
	Warnings   []string       `yaml:"warnings,omitempty"`
}

type loopReport struct {
	Start          uint32 `yaml:"start"`
	End            uint32 `yaml:"end"`
	StartUnaligned uint32 `yaml:"start_unaligned"`
	EndUnaligned   uint32 `yaml:"end_unaligned"`
}

type blockReport struct {
	Count       uint32 `yaml:"count"`
	SizeBytes   uint32 `yaml:"size_bytes"`
	SizeSamples uint32 `yaml:"size_samples"`
	LastSamples uint32 `yaml:"last_samples"`
	SeekEntries int    `yaml:"seek_entries"`
}

type trackReport struct {
	Volume   uint8 `yaml:"volume"`
	Pan      uint8 `yaml:"pan"`
	Channels []int `yaml:"channels,flow"`
}

type regionReport struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

func newStreamReport(path string, s *bfstm.Stream) streamReport {
	info := s.Info
	r := streamReport{
		File:       path,
		Version:    s.Version.String(),
		ByteOrder:  endian.Name(s.Engine),
		Encoding:   info.Encoding.String(),
		SampleRate: info.SampleRate,
		Channels:   s.ChannelCount(),
		Samples:    info.SampleCount,
		Duration:   s.Duration().String(),
		Blocks: blockReport{
			Count:       info.BlockCount,
			SizeBytes:   info.BlockSizeBytes,
			SizeSamples: info.BlockSizeSamples,
			LastSamples: info.LastBlockSizeSamples,
			SeekEntries: len(s.SeekTable),
		},
	}
	if info.Loop {
		r.Loop = &loopReport{
			Start:          info.LoopStart,
			End:            info.SampleCount,
			StartUnaligned: info.LoopStartUnaligned,
			EndUnaligned:   info.LoopEndUnaligned,
		}
	}
	for _, t := range s.Tracks {
		tr := trackReport{Volume: t.Volume, Pan: t.Pan}
		for _, ch := range t.Channels {
			tr.Channels = append(tr.Channels, int(ch))
		}
		r.Tracks = append(r.Tracks, tr)
	}
	for _, reg := range s.Regions {
		r.Regions = append(r.Regions, regionReport{Start: reg.Start, End: reg.End})
	}
	for _, w := range s.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}

	return r
}

func (r *streamReport) printText(w io.Writer) {
	fmt.Fprintf(w, "File:        %s\n", r.File)
	fmt.Fprintf(w, "Version:     %s (%s endian)\n", r.Version, r.ByteOrder)
	fmt.Fprintf(w, "Encoding:    %s\n", r.Encoding)
	fmt.Fprintf(w, "Channels:    %d @ %d Hz\n", r.Channels, r.SampleRate)
	fmt.Fprintf(w, "Samples:     %d (%s)\n", r.Samples, r.Duration)
	if r.Loop != nil {
		fmt.Fprintf(w, "Loop:        %d - %d\n", r.Loop.Start, r.Loop.End)
	} else {
		fmt.Fprintln(w, "Loop:        none")
	}
	fmt.Fprintf(w, "Blocks:      %d x %d samples (last %d)\n",
		r.Blocks.Count, r.Blocks.SizeSamples, r.Blocks.LastSamples)
	for i, t := range r.Tracks {
		fmt.Fprintf(w, "Track %d:     channels %v volume %d pan %d\n", i, t.Channels, t.Volume, t.Pan)
	}
	for i, reg := range r.Regions {
		fmt.Fprintf(w, "Region %d:    %d - %d\n", i, reg.Start, reg.End)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "Warning:     %s\n", warn)
	}
}

func newInfoCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "info [stream_file]",
		Short: "Show the header, loop, tracks and regions of a stream",
		Long: `Show the parameters of a BFSTM stream container.

Output formats:
  text    human readable summary (default)
  yaml    structured report

Example:
  bfsnd info bgm.bfstm --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := bfsnd.OpenStream(args[0], bfstm.WithLogger(a.logger))
			if err != nil {
				return fmt.Errorf("failed to open stream: %w", err)
			}
			report := newStreamReport(args[0], s)

			return a.printReport(output, &report, report.printText)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "O", "text", "output format: text or yaml")

	return cmd
}

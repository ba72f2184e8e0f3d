package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arloliu/bfsnd"
	"github.com/arloliu/bfsnd/bfsar"
)

type archiveReport struct {
	File     string       `yaml:"file"`
	Version  string       `yaml:"version"`
	Counts   countReport  `yaml:"counts"`
	Items    []itemReport `yaml:"items"`
	Warnings []string     `yaml:"warnings,omitempty"`
}

type countReport struct {
	Sounds       int `yaml:"sounds"`
	SoundGroups  int `yaml:"sound_groups"`
	Banks        int `yaml:"banks"`
	WaveArchives int `yaml:"wave_archives"`
	Groups       int `yaml:"groups"`
	Players      int `yaml:"players"`
	Files        int `yaml:"files"`
}

type itemReport struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

func newArchiveReport(path string, arc *bfsar.Archive) archiveReport {
	r := archiveReport{
		File:    path,
		Version: arc.Version.String(),
		Counts: countReport{
			Sounds:       len(arc.Sounds),
			SoundGroups:  len(arc.SoundGroups),
			Banks:        len(arc.Banks),
			WaveArchives: len(arc.WaveArchives),
			Groups:       len(arc.Groups),
			Players:      len(arc.Players),
			Files:        len(arc.Files),
		},
	}
	for _, item := range arc.Items() {
		r.Items = append(r.Items, itemReport{
			ID:   fmt.Sprintf("0x%08x", uint32(item.ID)),
			Type: item.ID.Type().String(),
			Name: item.Name,
		})
	}
	for _, w := range arc.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}

	return r
}

func (r *archiveReport) printText(w io.Writer) {
	c := r.Counts
	fmt.Fprintf(w, "File:    %s (version %s)\n", r.File, r.Version)
	fmt.Fprintf(w, "Items:   %d sounds, %d sound groups, %d banks, %d wave archives, %d groups, %d players\n",
		c.Sounds, c.SoundGroups, c.Banks, c.WaveArchives, c.Groups, c.Players)
	fmt.Fprintf(w, "Files:   %d\n", c.Files)
	for _, item := range r.Items {
		fmt.Fprintf(w, "%s  %-12s %s\n", item.ID, item.Type, item.Name)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
}

func newSarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sar",
		Short: "Inspect BFSAR sound archives",
		Long: `Inspect BFSAR sound archives.

Commands:
  ls      List every named item
  find    Resolve a name to its item ID

Examples:
  bfsnd sar ls sound.bfsar --output yaml
  bfsnd sar find sound.bfsar SE_JUMP`,
	}

	var output string
	ls := &cobra.Command{
		Use:   "ls [archive_file]",
		Short: "List the named items of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := bfsnd.OpenArchive(args[0], bfsar.WithLogger(a.logger))
			if err != nil {
				return fmt.Errorf("failed to open archive: %w", err)
			}
			report := newArchiveReport(args[0], arc)

			return a.printReport(output, &report, report.printText)
		},
	}
	ls.Flags().StringVarP(&output, "output", "O", "text", "output format: text or yaml")

	find := &cobra.Command{
		Use:   "find [archive_file] [name]",
		Short: "Resolve an item name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			arc, err := bfsnd.OpenArchive(args[0], bfsar.WithLogger(a.logger))
			if err != nil {
				return fmt.Errorf("failed to open archive: %w", err)
			}
			id, err := arc.Lookup(args[1])
			if err != nil {
				return fmt.Errorf("failed to find %q: %w", args[1], err)
			}
			fmt.Fprintf(a.out, "%s 0x%08x %s\n", args[1], uint32(id), id)

			return nil
		},
	}

	cmd.AddCommand(ls, find)

	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askorpi/rivi/internal/export"
)

var (
	exportOut   string
	exportLoops int
	exportBPM   float64
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a song as a standard MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default: song name with .mid)")
	exportCmd.Flags().IntVar(&exportLoops, "loops", 1, "pattern repetitions")
	exportCmd.Flags().Float64Var(&exportBPM, "bpm", 0, "override the song tempo")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	song, err := loadSongFile(args[0])
	if err != nil {
		return err
	}
	out := exportOut
	if out == "" {
		out = strings.TrimSuffix(args[0], ".json") + ".mid"
	}
	if exportLoops < 1 {
		exportLoops = 1
	}
	opts := export.Options{BPM: exportBPM, Loops: exportLoops}
	if err := export.WriteFile(out, song, opts); err != nil {
		return fmt.Errorf("export %s: %w", out, err)
	}
	fmt.Printf("wrote %s: %d channels, %d loops\n",
		out, song.Pattern.NumChannels(), opts.Loops)
	return nil
}

// Command rivi is the tracker's command line: scaffold song files, play
// them headless, bounce them to WAV, export MIDI, and edit in the
// terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askorpi/rivi"
	"github.com/askorpi/rivi/internal/debug"
	"github.com/askorpi/rivi/internal/preset"
)

var debugLogPath string

var rootCmd = &cobra.Command{
	Use:   "rivi",
	Short: "A grid tracker with a tiny tone synth",
	Long: `rivi is a step sequencer: a fixed grid of note cells played column by
column, with per-channel monophonic voices, note cuts, detune and release
effects, and instrument profiles loaded from YAML presets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugLogPath == "" {
			return nil
		}
		if err := debug.Enable(debugLogPath); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		debug.Logf("cli", "%s %v", cmd.Name(), args)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		debug.Disable()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&debugLogPath, "debug-log", "", "append a session trace to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSongFile reads a song, mapping a missing file to a clearer message.
func loadSongFile(path string) (*rivi.Song, error) {
	song, err := rivi.LoadSong(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return song, nil
}

// sessionInstruments resolves the instrument table for playback: every
// loadable preset, falling back to the built-in defaults.
func sessionInstruments() []rivi.Instrument {
	if insts := preset.Instruments(preset.Load()); len(insts) > 0 {
		return insts
	}
	return rivi.DefaultInstruments()
}

package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/askorpi/rivi"
	"github.com/askorpi/rivi/internal/debug"
	"github.com/askorpi/rivi/internal/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit <file>",
	Short: "Edit a song in the terminal",
	Long: `Open the grid editor. A missing file is created on the first save.

Playback runs live while editing; release edits retrigger the notes they
affect so the new tail is heard immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	path := args[0]
	song, err := rivi.LoadSong(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("open %s: %w", path, err)
		}
		song = rivi.NewSong(rivi.DefaultRows, rivi.DefaultChannels)
	}

	session := rivi.NewSession(song,
		rivi.WithAudioBackend(rivi.BackendOto),
		rivi.WithInstruments(sessionInstruments()),
		rivi.WithLogger(debug.Logger("synth")),
	)
	defer session.Close()

	debug.Logf("edit", "%s rows=%d channels=%d", path, session.NumRows(), session.NumChannels())

	p := tea.NewProgram(tui.New(session, path), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

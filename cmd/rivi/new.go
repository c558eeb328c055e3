package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askorpi/rivi"
)

var (
	newRows     int
	newChannels int
	newBPM      float64
	newTitle    string
	newForce    bool
)

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create an empty song file",
	Args:  cobra.ExactArgs(1),
	RunE:  runNew,
}

func init() {
	newCmd.Flags().IntVar(&newRows, "rows", rivi.DefaultRows, "pattern rows")
	newCmd.Flags().IntVar(&newChannels, "channels", rivi.DefaultChannels, "pattern channels")
	newCmd.Flags().Float64Var(&newBPM, "bpm", 120, "tempo in beats per minute")
	newCmd.Flags().StringVar(&newTitle, "title", "", "song title")
	newCmd.Flags().BoolVarP(&newForce, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !newForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	song := rivi.NewSong(newRows, newChannels)
	song.Meta.Title = newTitle
	song.Meta.BPM = newBPM
	if err := rivi.SaveSong(path, song); err != nil {
		return err
	}
	fmt.Printf("created %s: %dx%d at %.0f BPM\n",
		path, song.Pattern.NumRows(), song.Pattern.NumChannels(), newBPM)
	return nil
}

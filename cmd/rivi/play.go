package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/askorpi/rivi"
	"github.com/askorpi/rivi/internal/debug"
	"github.com/askorpi/rivi/internal/sequencer"
)

var (
	playLoops      int
	playSampleRate int
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a song through the system audio output",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().IntVar(&playLoops, "loops", 0, "pattern repetitions, 0 loops forever")
	playCmd.Flags().IntVar(&playSampleRate, "rate", sequencer.DefaultSampleRate, "sample rate in Hz")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	song, err := loadSongFile(args[0])
	if err != nil {
		return err
	}
	session := rivi.NewSession(song,
		rivi.WithAudioBackend(rivi.BackendOto),
		rivi.WithSampleRate(playSampleRate),
		rivi.WithInstruments(sessionInstruments()),
		rivi.WithLogger(debug.Logger("synth")),
	)
	defer session.Close()

	debug.Logf("play", "%s bpm=%.0f loops=%d rate=%d", args[0], session.BPM(), playLoops, playSampleRate)

	var deadline <-chan time.Time
	if playLoops > 0 {
		stepSec := sequencer.StepSeconds(session.BPM())
		total := float64(playLoops*session.NumRows()) * stepSec
		deadline = time.After(time.Duration(total * float64(time.Second)))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("playing %s at %.0f BPM (ctrl-c stops)\n", args[0], session.BPM())
	session.Play()

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	last := time.Now()
	lastRow := -1
	for {
		select {
		case now := <-ticker.C:
			session.Update(now.Sub(last).Seconds())
			last = now
			if row := session.ActiveRow(); row != lastRow {
				lastRow = row
				fmt.Printf("\rrow %02d", row)
			}
		case <-deadline:
			session.Stop()
			fmt.Println()
			return nil
		case <-sig:
			session.Stop()
			fmt.Println()
			return nil
		}
	}
}

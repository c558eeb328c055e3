package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askorpi/rivi/internal/preset"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the available instrument presets",
	Args:  cobra.NoArgs,
	RunE:  runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func runPresets(cmd *cobra.Command, args []string) error {
	presets := preset.Load()
	if len(presets) == 0 {
		fmt.Println("no presets found")
		return nil
	}
	if dir, err := preset.UserDir(); err == nil {
		fmt.Printf("user presets live in %s\n\n", dir)
	}
	for i, p := range presets {
		origin := "built-in"
		if p.User {
			origin = "user"
		}
		inst := p.Instrument
		fmt.Printf("%2d  %-16s %-9s %-8s adsr %.3f/%.3f/%.2f/%.2f  amp %.2f\n",
			i, p.Name, origin, inst.Wave,
			inst.Attack, inst.Decay, inst.Sustain, inst.Release, inst.Amplitude)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/internal/preset"
	"github.com/motionlab/kinema/internal/session"
	"github.com/motionlab/kinema/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal client",
	Long: `tui runs the simulation engine in-process with no server or storage:
type a prompt, watch the motion render as a character plot. Useful for
demos on machines with nothing else installed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		presets, err := preset.Load(config.GetString("presets.path"))
		if err != nil {
			return fmt.Errorf("failed to load presets: %w", err)
		}

		// No publisher: trails live in session memory only.
		sessions := session.NewManager(nil, logger)
		defer sessions.StopAll()

		return tui.Run(newClassifier(), sessions, presets)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

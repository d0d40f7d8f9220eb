package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/internal/preset"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the available simulation presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := preset.Load(config.GetString("presets.path"))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMODULE\tDESCRIPTION")
		for _, p := range lib.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Module, p.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

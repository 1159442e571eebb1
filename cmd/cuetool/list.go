package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/milk9111/cuedispatch/registry"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cues a listing resolves to",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := registry.Load(cfg.Listing, registry.WithLogger(logger))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tMODE\tPRIORITY\tBUS\tCLIPS\tLOOP\tBINDINGS")
	for _, def := range reg.Definitions() {
		loop := "-"
		switch {
		case def.SelfTerminating():
			loop = def.LoopDuration.String()
		case def.Loop:
			loop = "manual"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\t%s\t%d\n",
			def.Name, def.ID, def.Mode, def.Priority(), def.Bus(), len(def.Clips), loop, len(def.Bindings))
	}
	return w.Flush()
}

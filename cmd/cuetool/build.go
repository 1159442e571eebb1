package main

import (
	"fmt"

	"github.com/milk9111/cuedispatch/registry"
	"github.com/spf13/cobra"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build <dir>",
	Short: "Assign cue ids and write the listing for a directory of cue files",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildOut, "out", "", "listing path (default <dir>/listing.yaml)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	res, err := registry.Build(args[0], registry.BuildOptions{Listing: buildOut, Logger: logger})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, path := range res.Regenerated {
		fmt.Fprintf(out, "new id: %s\n", path)
	}
	for _, path := range res.Skipped {
		fmt.Fprintf(out, "skipped: %s\n", path)
	}
	state := "unchanged"
	if res.Written {
		state = "written"
	}
	fmt.Fprintf(out, "%s: %d cues, %s\n", res.Listing, res.Cues, state)
	return nil
}

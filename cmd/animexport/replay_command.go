package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/animexport/idgen"
)

func newReplayCommand(ctx *commandContext) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "replay <run-id>",
		Short: "Rerun a journaled capture without a browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idgen.Parse(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				ctx.config.Export.Output = out
			}
			report, err := ctx.reconstructor(cmd).Replay(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := writeReport(cmd, ctx.config, report); err != nil {
				return err
			}
			if !report.Matches() {
				return fmt.Errorf("replay %s: output %s differs from journaled %s",
					id, report.Output.SHA256, report.Reference)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file, "-" for stdout`)
	return cmd
}

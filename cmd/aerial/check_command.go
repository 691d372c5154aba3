package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aerial/internal/api"
	"aerial/internal/logging"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Probe a single stream URL",
		Long:  "Probe a single stream URL the same way a scan run would, including deep validation when ffprobe is available.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result, err := api.CheckStream(cmd.Context(), api.CheckStreamRequest{
				Config: cfg,
				URL:    args[0],
				Logger: logging.NewNop(),
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, result)
			}

			printCheckResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the probe result as JSON")
	return cmd
}

func printCheckResult(cmd *cobra.Command, result api.CheckStreamResult) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	verdict := statusError
	label := "Dead"
	if result.Alive {
		verdict = statusOK
		label = "Alive"
	}
	fmt.Fprintln(out, renderStatusLine("Verdict", verdict, label, colorize))
	fmt.Fprintln(out, renderStatusLine("Host", statusInfo, result.Host, colorize))
	fmt.Fprintln(out, renderStatusLine("Kind", statusInfo, result.Kind, colorize))
	if result.Latency > 0 {
		fmt.Fprintln(out, renderStatusLine("Latency", statusInfo, result.Latency.String(), colorize))
	}
	if result.Reason != "" {
		kind := statusInfo
		if !result.Alive {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Reason", kind, result.Reason, colorize))
	}
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"aerial/internal/api"
	"aerial/internal/preflight"
	"aerial/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, system, and run status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			client := ctx.onlineClient(cmd.Context())

			printSection(stdout, "Daemon", colorize)
			var daemonStatus *api.DaemonStatus
			if client != nil {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				daemonStatus = &status
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK,
					fmt.Sprintf("Running (pid %d, api %s)", status.PID, ctx.apiAddr()), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn,
					"Not running (start with `aerial daemon`)", colorize))
			}
			fmt.Fprintln(stdout)

			printSection(stdout, "System Checks", colorize)
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				fmt.Fprintln(stdout, renderStatusLine(result.Name, statusKindFromPassed(result.Passed), result.Detail, colorize))
			}
			fmt.Fprintln(stdout, preflightStatusLine(preflight.CheckNotificationsFromConfig(cfg), colorize))
			fmt.Fprintln(stdout, preflightStatusLine(preflight.CheckEPGFromConfig(cfg), colorize))
			fmt.Fprintln(stdout)

			printSection(stdout, "Validators", colorize)
			for _, line := range dependencyLines(ctx, daemonStatus, cmd, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			if cfg != nil {
				printSection(stdout, "Outputs", colorize)
				fmt.Fprintln(stdout, renderStatusLine("Playlist", statusInfo, cfg.PlaylistPath(), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Report", statusInfo, cfg.ReportPath(), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, cfg.DatabasePath(), colorize))
				fmt.Fprintln(stdout)
			}

			printSection(stdout, "Run Status", colorize)
			stats, err := loadRunStats(cmd, ctx, daemonStatus)
			if err != nil {
				return err
			}
			rows := buildRunStatusRows(stats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No runs recorded")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func printSection(w io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(w, line)
	}
}

func preflightStatusLine(result preflight.Result, colorize bool) string {
	kind := statusOK
	if !result.Passed {
		kind = statusWarn
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}

// dependencyLines prefers the daemon's view of validator binaries so status
// reflects the environment the daemon actually probes from.
func dependencyLines(ctx *commandContext, daemonStatus *api.DaemonStatus, cmd *cobra.Command, colorize bool) []string {
	if daemonStatus != nil {
		lines := make([]string, 0, len(daemonStatus.Dependencies))
		for _, dep := range daemonStatus.Dependencies {
			lines = append(lines, dependencyLine(dep.Name, dep.Command, dep.Available, dep.Detail, colorize))
		}
		return lines
	}

	statuses := preflight.CheckSystemDeps(cmd.Context(), ctx.configValue())
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		lines = append(lines, dependencyLine(dep.Name, dep.Command, dep.Available, dep.Detail, colorize))
	}
	return lines
}

func dependencyLine(name, command string, available bool, detail string, colorize bool) string {
	if available {
		message := "Ready"
		if command != "" {
			message = fmt.Sprintf("Ready (command: %s)", command)
		}
		return renderStatusLine(name, statusOK, message, colorize)
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = "not available"
	}
	return renderStatusLine(name, statusWarn, detail, colorize)
}

func loadRunStats(cmd *cobra.Command, ctx *commandContext, daemonStatus *api.DaemonStatus) (api.RunStats, error) {
	if daemonStatus != nil {
		return daemonStatus.Workflow.RunStats, nil
	}

	var stats api.RunStats
	err := ctx.withStore(func(store *queue.Store) error {
		summary, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		stats = api.FromHealthSummary(summary)
		return nil
	})
	return stats, err
}

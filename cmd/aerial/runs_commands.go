package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"aerial/internal/api"
	"aerial/internal/queue"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage scan runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))
	runsCmd.AddCommand(newRunsRetryCommand(ctx))
	runsCmd.AddCommand(newRunsResetCommand(ctx))
	runsCmd.AddCommand(newRunsHealthCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var listLimit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuns(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var runs []api.Run
				if client != nil {
					var err error
					runs, err = client.Runs(cmd.Context(), listStatuses...)
					if err != nil {
						return err
					}
				} else {
					statuses, err := parseStatuses(listStatuses)
					if err != nil {
						return err
					}
					records, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					runs = api.FromRuns(records)
				}

				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := buildRunListRows(runs)
				if listLimit > 0 && len(rows) > listLimit {
					rows = rows[:listLimit]
				}
				table := renderTable(
					[]string{"ID", "Origin", "Status", "Progress", "Created", "Channels"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by run status (repeatable)")
	cmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Show at most this many runs (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <runID>",
		Short: "Show one scan run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			return ctx.withRuns(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var run *api.Run
				if client != nil {
					run, err = client.Describe(cmd.Context(), id)
					if err != nil {
						return err
					}
				} else {
					record, err := store.GetByID(cmd.Context(), id)
					if err != nil {
						return err
					}
					if record != nil {
						dto := api.FromRun(record)
						run = &dto
					}
				}
				if run == nil {
					return fmt.Errorf("run %d not found", id)
				}
				if asJSON {
					return writeJSON(cmd, run)
				}
				printRunDetail(cmd, *run)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the run as JSON")
	return cmd
}

func printRunDetail(cmd *cobra.Command, run api.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %d (%s)\n", run.ID, run.Origin)
	fmt.Fprintf(out, "  Status:    %s\n", formatStatusLabel(run.Status))
	if progress := formatProgress(run.Progress); progress != "-" {
		fmt.Fprintf(out, "  Progress:  %s", progress)
		if run.Progress.Message != "" {
			fmt.Fprintf(out, " (%s)", run.Progress.Message)
		}
		fmt.Fprintln(out)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:     %s\n", run.ErrorMessage)
	}
	fmt.Fprintf(out, "  Created:   %s\n", formatDisplayTime(run.CreatedAt))
	fmt.Fprintf(out, "  Updated:   %s\n", formatDisplayTime(run.UpdatedAt))
	fmt.Fprintf(out, "  Sources:   %d loaded, %d raw entries\n", run.SourcesLoaded, run.RawEntries)
	fmt.Fprintf(out, "  Channels:  %d with %d endpoints (%d alive)\n", run.Channels, run.Endpoints, run.AliveEndpoints)
	fmt.Fprintf(out, "  Selected:  %d channels\n", run.SelectedChannels)
	if run.PlaylistPath != "" {
		fmt.Fprintf(out, "  Playlist:  %s\n", run.PlaylistPath)
	}
	if run.ReportPath != "" {
		fmt.Fprintf(out, "  Report:    %s\n", run.ReportPath)
	}
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished scan runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withRuns(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				var removed int64
				var err error

				switch {
				case clearCompleted:
					if client != nil {
						removed, err = client.Clear(cmd.Context(), "completed")
					} else {
						removed, err = store.ClearCompleted(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed runs\n", removed)
				case clearFailed:
					if client != nil {
						removed, err = client.Clear(cmd.Context(), "failed")
					} else {
						removed, err = store.ClearFailed(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed runs\n", removed)
				default:
					if client != nil {
						removed, err = client.Clear(cmd.Context(), "")
					} else {
						removed, err = store.Clear(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d runs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed runs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed runs")
	return cmd
}

func newRunsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [runID...]",
		Short: "Retry failed scan runs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid run id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withRuns(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					updated, err = client.Retry(cmd.Context(), ids...)
				} else {
					updated, err = store.RetryFailed(cmd.Context(), ids...)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed runs\n", updated)
				return nil
			})
		},
	}
}

func newRunsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight runs to the start of their stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuns(cmd.Context(), func(client *api.Client, store *queue.Store) error {
				var updated int64
				var err error
				if client != nil {
					updated, err = client.ResetStuck(cmd.Context())
				} else {
					updated, err = store.ResetStuckProcessing(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d runs\n", updated)
				return nil
			})
		},
	}
}

func newRunsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show run database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "  Exists:     %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "  Readable:   %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "  Schema:     %s\n", health.SchemaVersion)
				fmt.Fprintf(out, "  Integrity:  %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "  Total runs: %d\n", health.TotalRuns)
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "  Missing columns: %v\n", health.MissingColumns)
				}
				if health.Error != "" {
					fmt.Fprintf(out, "  Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

func parseStatuses(raw []string) ([]queue.Status, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	statuses := make([]queue.Status, 0, len(raw))
	for _, value := range raw {
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

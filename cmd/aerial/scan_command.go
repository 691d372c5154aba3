package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"aerial/internal/daemonrun"
	"aerial/internal/logging"
	"aerial/internal/notifications"
	"aerial/internal/queue"
	"aerial/internal/workflow"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Trigger a playlist scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runNow {
				return runScanInProcess(cmd, ctx)
			}

			out := cmd.OutOrStdout()
			if client := ctx.onlineClient(cmd.Context()); client != nil {
				resp, err := client.Scan(cmd.Context())
				if err != nil {
					return err
				}
				if resp.Created {
					fmt.Fprintf(out, "Scan enqueued (run %d)\n", resp.Run.ID)
				} else {
					fmt.Fprintf(out, "Scan already in progress (run %d, %s)\n",
						resp.Run.ID, formatStatusLabel(resp.Run.Status))
				}
				return nil
			}

			return ctx.withStore(func(store *queue.Store) error {
				existing, err := store.NextForStatuses(cmd.Context(), queue.ActiveStatuses()...)
				if err != nil {
					return err
				}
				if existing != nil {
					fmt.Fprintf(out, "Scan already queued (run %d, %s)\n",
						existing.ID, formatStatusLabel(string(existing.Status)))
					return nil
				}
				run, err := store.NewRun(cmd.Context(), queue.OriginCLI)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Scan enqueued (run %d); start the daemon to process it, or rerun with --now\n", run.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&runNow, "now", false, "Run the scan in this process instead of the daemon")
	return cmd
}

// runScanInProcess drives a full scan synchronously: enqueue (or adopt the
// queued run), then advance it stage by stage until it is terminal.
func runScanInProcess(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	logger, err := logging.New(logging.Options{Level: "warn", Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	return ctx.withStore(func(store *queue.Store) error {
		run, err := store.NextForStatuses(cmd.Context(), queue.ActiveStatuses()...)
		if err != nil {
			return err
		}
		if run == nil {
			run, err = store.NewRun(cmd.Context(), queue.OriginCLI)
			if err != nil {
				return err
			}
		}

		notifier := notifications.NewService(cfg)
		mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
		mgr.ConfigureStages(daemonrun.Stages(cfg, store, notifier, logger))

		fmt.Fprintf(out, "Scanning (run %d)...\n", run.ID)
		if err := mgr.RunOnce(cmd.Context(), run.ID); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		final, err := store.GetByID(cmd.Context(), run.ID)
		if err != nil {
			return err
		}
		if final == nil {
			return fmt.Errorf("run %d disappeared", run.ID)
		}
		fmt.Fprintf(out, "Scan completed: %d channels published (%d of %d endpoints alive)\n",
			final.SelectedChannels, final.AliveEndpoints, final.Endpoints)
		if final.PlaylistPath != "" {
			fmt.Fprintf(out, "Playlist: %s\n", final.PlaylistPath)
		}
		if final.ReportPath != "" {
			fmt.Fprintf(out, "Report:   %s\n", final.ReportPath)
		}
		return nil
	})
}

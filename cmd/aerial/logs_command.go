package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aerial/internal/api"
	"aerial/internal/logs"
)

// followWait is how long each follow poll blocks for new lines. It stays
// under the API client timeout so long polls do not error out.
const followWait = 5 * time.Second

// logFetcher reads a batch of log lines starting at offset.
type logFetcher func(offset int64, limit int, wait time.Duration) (api.LogTailResponse, error)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		Long:  "Show the tail of the daemon log. Reads through the daemon API when the daemon is running and falls back to the log file on disk otherwise.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var fetch logFetcher
			if client := ctx.onlineClient(cmd.Context()); client != nil {
				fetch = func(offset int64, limit int, wait time.Duration) (api.LogTailResponse, error) {
					return client.LogTail(cmd.Context(), offset, limit, wait)
				}
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				path := logs.CurrentPath(cfg)
				fetch = func(offset int64, limit int, wait time.Duration) (api.LogTailResponse, error) {
					result, err := logs.Tail(cmd.Context(), path, logs.Options{Offset: offset, Lines: limit, Wait: wait})
					if err != nil {
						return api.LogTailResponse{}, err
					}
					return api.LogTailResponse{Lines: result.Lines, Offset: result.Offset}, nil
				}
			}
			return streamLogs(cmd, fetch, lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log lines")
	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of trailing lines to show")
	return cmd
}

// streamLogs prints one tail batch, then keeps polling from the returned
// offset while follow is set.
func streamLogs(cmd *cobra.Command, fetch logFetcher, limit int, follow bool) error {
	offset := int64(-1)
	wait := time.Duration(0)
	printed := false
	for {
		resp, err := fetch(offset, limit, wait)
		if err != nil {
			// Interrupting a follow loop is a normal exit, not a failure.
			if follow && errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = resp.Offset
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		wait = followWait
		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
	}
}

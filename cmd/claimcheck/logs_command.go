package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"claimcheck/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var followFlag bool
	var claimID string
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log, optionally narrowed to one claim or run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logs.DaemonLog(cfg.Paths.LogDir)
			var match []string
			for _, term := range []string{claimID, runID} {
				if term = strings.TrimSpace(term); term != "" {
					match = append(match, term)
				}
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			out := cmd.OutOrStdout()
			res, err := logs.Tail(runCtx, path, logs.TailOptions{Offset: -1, Limit: lines, Match: match})
			if err != nil {
				return err
			}
			for _, line := range res.Lines {
				fmt.Fprintln(out, line)
			}
			if !followFlag {
				return nil
			}
			offset := res.Offset
			for {
				res, err := logs.Tail(runCtx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: time.Minute, Match: match})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}
				for _, line := range res.Lines {
					fmt.Fprintln(out, line)
				}
				offset = res.Offset
			}
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&followFlag, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&claimID, "claim", "", "Only show lines mentioning this claim id")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines mentioning this run id")
	return cmd
}

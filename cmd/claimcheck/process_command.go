package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"claimcheck/internal/api"
	"claimcheck/internal/daemonrun"
	"claimcheck/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <document> <photo> [photo...]",
		Short: "Process one claim submission from local files and wait for the outcome",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := loadSubmission(args[0], args[1:])
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(runCtx context.Context, rt *daemonrun.Runtime) error {
				res, runErr := rt.Pipeline.Run(runCtx, sub)
				if res.RunID == "" {
					return runErr
				}
				// Suggestions are scheduled after commit and must finish before services close.
				_ = rt.Runner.Wait(runCtx)
				view := api.FromRunResult(res)
				if err := ctx.emit(cmd, view, func() string { return renderRunResult(view) }); err != nil {
					return err
				}
				return runErr
			})
		},
	}
}

func loadSubmission(document string, photos []string) (pipeline.Submission, error) {
	doc, err := readLocalFile(document)
	if err != nil {
		return pipeline.Submission{}, err
	}
	sub := pipeline.Submission{Document: doc, Photos: make([]pipeline.File, 0, len(photos))}
	for _, path := range photos {
		photo, err := readLocalFile(path)
		if err != nil {
			return pipeline.Submission{}, err
		}
		sub.Photos = append(sub.Photos, photo)
	}
	return sub, nil
}

func readLocalFile(path string) (pipeline.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return pipeline.File{Name: filepath.Base(path), Data: data}, nil
}

func renderRunResult(res api.RunResult) string {
	summary := keyValues(
		[2]string{"Run", res.RunID},
		[2]string{"Claim", dash(res.ClaimID)},
		[2]string{"State", res.State},
		[2]string{"Last state", res.LastState},
		[2]string{"AI status", dash(res.AIStatus)},
		[2]string{"Claim date", dash(res.ClaimDate)},
		[2]string{"Covered item", dash(res.CoveredItem)},
		[2]string{"Document", dash(res.DocumentURL)},
		[2]string{"Duration", fmt.Sprintf("%dms", res.DurationMS)},
	)
	if res.Error != "" {
		summary += "\n" + keyValues(
			[2]string{"Failure", dash(res.FailureKind)},
			[2]string{"Error", res.Error},
		)
	}
	if len(res.Photos) == 0 {
		return summary
	}
	rows := make([][]string, 0, len(res.Photos))
	for _, p := range res.Photos {
		outcome := dash(p.Classification)
		if p.Dropped {
			outcome = "dropped"
		}
		score := "-"
		if p.Score != nil {
			score = strconv.Itoa(*p.Score)
		}
		detail := p.Reason
		if p.Error != "" {
			detail = p.Error
		}
		rows = append(rows, []string{p.FileName, dash(p.CaptureDate), p.Validation, outcome, score, dash(detail)})
	}
	photos := renderTable(
		[]string{"Photo", "Captured", "Validation", "Outcome", "Score", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
	return summary + "\n" + photos
}

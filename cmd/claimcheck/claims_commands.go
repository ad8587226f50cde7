package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"claimcheck/internal/api"
	"claimcheck/internal/daemonrun"
)

func newClaimsCommand(ctx *commandContext) *cobra.Command {
	claimsCmd := &cobra.Command{
		Use:   "claims",
		Short: "Inspect and manage stored claims",
	}
	claimsCmd.AddCommand(newClaimsListCommand(ctx))
	claimsCmd.AddCommand(newClaimsIDsCommand(ctx))
	claimsCmd.AddCommand(newClaimsShowCommand(ctx))
	claimsCmd.AddCommand(newClaimsStatusCommand(ctx))
	claimsCmd.AddCommand(newClaimsDeleteCommand(ctx))
	return claimsCmd
}

func withClaimService(ctx *commandContext, cmd *cobra.Command, fn func(context.Context, *api.ClaimService) error) error {
	return ctx.withRuntime(cmd, func(runCtx context.Context, rt *daemonrun.Runtime) error {
		return fn(runCtx, api.NewClaimService(rt.Repository, rt.Evidence))
	})
}

func newClaimsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List claims with their document and photo URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClaimService(ctx, cmd, func(runCtx context.Context, svc *api.ClaimService) error {
				rows, err := svc.ListClaims(runCtx)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, rows, func() string {
					table := make([][]string, 0, len(rows))
					for _, r := range rows {
						table = append(table, []string{r.ID, deref(r.PDFURL), deref(r.ImageURL)})
					}
					return renderTable([]string{"Claim", "Document", "Photo"}, table, nil)
				})
			})
		},
	}
}

func newClaimsIDsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ids",
		Short: "List claim identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClaimService(ctx, cmd, func(runCtx context.Context, svc *api.ClaimService) error {
				ids, err := svc.ClaimIDs(runCtx)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, ids, func() string { return strings.Join(ids, "\n") })
			})
		},
	}
}

func newClaimsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <claim-id>",
		Short: "Show one claim with its photos and suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClaimService(ctx, cmd, func(runCtx context.Context, svc *api.ClaimService) error {
				view, err := svc.Claim(runCtx, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, view, func() string { return renderClaim(view) })
			})
		},
	}
}

func newClaimsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <claim-id> <Approved|Rejected|Pending>",
		Short: "Set the adjuster status of a claim",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClaimService(ctx, cmd, func(runCtx context.Context, svc *api.ClaimService) error {
				view, err := svc.UpdateStatus(runCtx, args[0], args[1])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, view, func() string {
					return fmt.Sprintf("Claim %s status set to %s", view.ID, deref(view.Status))
				})
			})
		},
	}
}

func newClaimsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <claim-id>",
		Short: "Delete a claim, its records, and its stored evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClaimService(ctx, cmd, func(runCtx context.Context, svc *api.ClaimService) error {
				result, err := svc.DeleteClaim(runCtx, args[0])
				if err != nil {
					return err
				}
				return ctx.emit(cmd, result, func() string {
					return fmt.Sprintf("Deleted claim %s (%d rows, %d objects)", result.ClaimID, result.RowsRemoved, result.ObjectsRemoved)
				})
			})
		},
	}
}

func renderClaim(view api.ClaimView) string {
	pairs := [][2]string{
		{"Claim", view.ID},
		{"Status", deref(view.Status)},
		{"AI status", dash(view.AIStatus)},
		{"Reported", dash(view.ReportedDate)},
		{"Covered item", dash(view.CoveredItem)},
		{"Created", dash(view.CreatedAt)},
	}
	if view.Document != nil {
		pairs = append(pairs, [2]string{"Document", view.Document.URL}, [2]string{"Role", view.Document.Role})
	}
	if view.Suggestion != nil {
		pairs = append(pairs,
			[2]string{"Suggestion", view.Suggestion.Recommendation},
			[2]string{"Rationale", dash(view.Suggestion.Rationale)},
		)
	}
	out := keyValues(pairs...)
	if len(view.Photos) == 0 {
		return out
	}
	rows := make([][]string, 0, len(view.Photos))
	for _, p := range view.Photos {
		score := "-"
		if p.Score != nil {
			score = strconv.Itoa(*p.Score)
		}
		rows = append(rows, []string{p.FileName, p.Status, p.Validation, score, dash(p.CaptureDate)})
	}
	return out + "\n" + renderTable(
		[]string{"Photo", "Status", "Validation", "Score", "Captured"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

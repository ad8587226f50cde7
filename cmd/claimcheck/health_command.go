package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"claimcheck/internal/daemonrun"
	"claimcheck/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var deep bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check database, storage, and oracle readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRuntime(cmd, func(runCtx context.Context, rt *daemonrun.Runtime) error {
				d, err := rt.NewDaemon()
				if err != nil {
					return err
				}
				health := d.Health(runCtx)
				if deep {
					probe := preflight.CheckOracle(runCtx, rt.Config)
					health.Components = append(health.Components, probe)
					health.Ready = health.Ready && probe.Ready
				}
				err = ctx.emit(cmd, health, func() string {
					rows := make([][]string, 0, len(health.Components))
					for _, c := range health.Components {
						ready := "yes"
						if !c.Ready {
							ready = "no"
						}
						rows = append(rows, []string{c.Name, ready, dash(c.Detail)})
					}
					return renderTable([]string{"Component", "Ready", "Detail"}, rows, nil)
				})
				if err != nil {
					return err
				}
				if !health.Ready {
					return errors.New("one or more components are not ready")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&deep, "deep", false, "Also send a probe request to the oracle")
	return cmd
}

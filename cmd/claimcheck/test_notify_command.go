package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"claimcheck/internal/daemonrun"
	"claimcheck/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test event through every configured notifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRuntime(cmd, func(runCtx context.Context, rt *daemonrun.Runtime) error {
				if !notifications.Enabled(rt.Config) {
					fmt.Fprintln(cmd.OutOrStdout(), "No notification targets configured")
					return nil
				}
				if err := rt.Notifier.TestNotification(runCtx); err != nil {
					return fmt.Errorf("send test notification: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}
}

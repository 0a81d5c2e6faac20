package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nassav/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and worker status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon:     running (pid %d)\n", resp.PID)
				if resp.Orchestrator.CurrentTaskID != "" {
					fmt.Fprintf(out, "Current:    %s\n", resp.Orchestrator.CurrentTaskID)
				} else {
					fmt.Fprintln(out, "Current:    idle")
				}
				fmt.Fprintf(out, "Queued:     %d\n", resp.Orchestrator.QueueLength)
				fmt.Fprintf(out, "State file: %s\n", resp.StateFilePath)
				fmt.Fprintf(out, "Lock file:  %s\n", resp.LockFilePath)
				return nil
			})
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nassav/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running download and clear the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Result.WasRunning {
					fmt.Fprintf(out, "Stopped running task %s\n", resp.Result.StoppedTaskID)
					if resp.Result.DirRemoved {
						fmt.Fprintln(out, "Working directory removed")
					}
				} else {
					fmt.Fprintln(out, "Nothing was running")
				}
				fmt.Fprintf(out, "Cleared %d queued task(s)\n", resp.Result.Cleared)
				return nil
			})
		},
	}
}

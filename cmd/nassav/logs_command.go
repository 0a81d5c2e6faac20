package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nassav/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs TASK_ID",
		Short: "Print a task's retained output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				var lastSeq int64
				for {
					resp, err := client.TaskLogs(id, lastSeq)
					if err != nil {
						return err
					}
					for _, entry := range resp.Entries {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", entry.At.Format("15:04:05"), entry.Line)
						lastSeq = entry.Seq
					}
					if !follow {
						return nil
					}
					describe, err := client.TaskDescribe(id)
					if err != nil {
						return err
					}
					if describe.Task.Terminal() {
						// One final fetch catches lines flushed at exit.
						final, err := client.TaskLogs(id, lastSeq)
						if err != nil {
							return err
						}
						for _, entry := range final.Entries {
							fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", entry.At.Format("15:04:05"), entry.Line)
						}
						return nil
					}
					time.Sleep(500 * time.Millisecond)
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until the task finishes")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nassav/internal/ipc"
	"nassav/internal/task"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [TASK_ID]",
		Short: "List tasks, or show one task in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if len(args) == 1 {
					return showTask(cmd, client, args[0])
				}
				return showTaskList(cmd, client)
			})
		},
	}
}

func showTaskList(cmd *cobra.Command, client *ipc.Client) error {
	resp, err := client.TaskList()
	if err != nil {
		return err
	}
	if len(resp.Tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
		return nil
	}

	headers := []string{"ID", "KEY", "STATUS", "%", "MESSAGE"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, len(resp.Tasks))
	for _, rec := range resp.Tasks {
		rows = append(rows, []string{
			rec.ID,
			rec.Key,
			string(rec.Status),
			strconv.Itoa(rec.Percent),
			rec.Message,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
	return nil
}

func showTask(cmd *cobra.Command, client *ipc.Client, id string) error {
	resp, err := client.TaskDescribe(id)
	if err != nil {
		return err
	}
	rec := resp.Task
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", rec.ID)
	fmt.Fprintf(out, "Key:      %s\n", rec.Key)
	if rec.BatchID != "" {
		fmt.Fprintf(out, "Batch:    %s\n", rec.BatchID)
	}
	fmt.Fprintf(out, "Status:   %s\n", rec.Status)
	fmt.Fprintf(out, "Percent:  %d\n", rec.Percent)
	fmt.Fprintf(out, "Message:  %s\n", rec.Message)
	if rec.PID != 0 && rec.Status == task.StatusRunning {
		fmt.Fprintf(out, "PID:      %d\n", rec.PID)
	}
	if rec.ArtifactPath != "" {
		fmt.Fprintf(out, "Artifact: %s\n", rec.ArtifactPath)
	}
	fmt.Fprintf(out, "Created:  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated:  %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

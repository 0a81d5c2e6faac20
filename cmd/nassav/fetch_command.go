package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nassav/internal/ipc"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var fromFile string

	cmd := &cobra.Command{
		Use:   "fetch [KEY...]",
		Short: "Queue one or more asset downloads",
		Long: "Queue downloads for the given asset keys. Keys may also be read from a\n" +
			"file (one per line) with --file. Duplicates are dropped, order is kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := strings.Join(args, "\n")
			if fromFile != "" {
				data, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("read key file: %w", err)
				}
				keys = strings.Join([]string{keys, string(data)}, "\n")
			}
			if strings.TrimSpace(keys) == "" {
				return fmt.Errorf("no asset keys supplied; pass keys as arguments or via --file")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Fetch(keys)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %d task(s), batch %s\n", resp.Result.Count, resp.Result.BatchID)
				for _, id := range resp.Result.TaskIDs {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read newline-separated keys from a file")
	return cmd
}

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"notedump/internal/journal"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var failuresOf string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show export run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			if failuresOf != "" {
				return printRunFailures(cmd, store, failuresOf)
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				scope := run.Notebook
				if run.Section != "" {
					scope += " / " + run.Section
				}
				finished := "running"
				if run.FinishedAt != nil {
					finished = run.FinishedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					run.ID,
					scope,
					run.StartedAt.Local().Format(time.DateTime),
					finished,
					strconv.Itoa(run.Total),
					successText(strconv.Itoa(run.Succeeded)),
					failureText(strconv.Itoa(run.Failed)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Scope", "Started", "Finished", "Pages", "Succeeded", "Failed"},
				rows, 4, 5, 6))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&failuresOf, "failures", "", "Show failed pages of the given run id")
	return cmd
}

func printRunFailures(cmd *cobra.Command, store *journal.Store, runID string) error {
	records, err := store.FailedPages(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No failed pages recorded for run %s\n", runID)
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.PageID, rec.Title, rec.Error})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Page", "Title", "Cause"}, rows))
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notedump/internal/auth"
	"notedump/internal/graph"
	"notedump/internal/logging"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [notebook]",
		Short: "List notebooks, or the sections of one notebook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := graph.NewClient(cfg, auth.NewManager(cfg, logging.NewNop()), logging.NewNop())

			if len(args) == 0 {
				notebooks, err := client.Notebooks(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(notebooks))
				for _, notebook := range notebooks {
					rows = append(rows, []string{notebook.DisplayName, notebook.ID})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Notebook", "ID"}, rows))
				return nil
			}

			notebooks, err := client.Notebooks(cmd.Context())
			if err != nil {
				return err
			}
			for _, notebook := range notebooks {
				if notebook.DisplayName != args[0] {
					continue
				}
				sections, err := client.Sections(cmd.Context(), notebook.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(sections))
				for _, section := range sections {
					rows = append(rows, []string{section.DisplayName, section.ID})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Section", "ID"}, rows))
				return nil
			}
			return fmt.Errorf("no notebook named %q", args[0])
		},
	}
}

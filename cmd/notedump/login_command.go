package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notedump/internal/auth"
	"notedump/internal/logging"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to the Microsoft account and cache tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			manager := auth.NewManager(cfg, logger)
			err = manager.Login(cmd.Context(), func(authURL string) {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Open this URL in a browser and sign in:")
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  %s\n", authURL)
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Waiting for the redirect...")
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Login complete. Tokens cached at %s\n", cfg.Paths.TokenPath)
			return nil
		},
	}
}

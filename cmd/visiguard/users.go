package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/romariotrain/visiguard/internal/auth"
	"github.com/romariotrain/visiguard/internal/config"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the demo accounts that can log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"ID", "Email", "Name", "Role", "Org"})
			for _, u := range auth.DemoUsers {
				tw.AppendRow(table.Row{u.ID, u.Email, u.Name, u.Role, u.OrgID})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			return err
		},
	}
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <email>",
		Short: "Issue a bearer token for a demo account",
		Long:  "Issue a bearer token for a demo account. Requires VISIGUARD_JWT_SECRET to match the running server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			authn, err := auth.New(auth.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})
			if err != nil {
				return err
			}
			token, _, err := authn.Login(args[0])
			if err != nil {
				return fmt.Errorf("login %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

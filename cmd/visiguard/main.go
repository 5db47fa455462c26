package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "visiguard: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visiguard",
		Short: "Video sensitivity screening service",
		Long: `VisiGuard accepts video uploads, screens each one for sensitive content
and serves an organization-scoped library with role-based visibility.

Configuration is read from VISIGUARD_* environment variables and an optional .env file.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newUsersCmd(),
		newTokenCmd(),
	)
	return cmd
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "site-auth",
	Short: "Authentication service for the site",
	Long:  `Authentication and session-authorization service: cookie sessions, route gating, account administration, and password reset for the web site.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

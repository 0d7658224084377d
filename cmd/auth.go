package cmd

import (
	"github.com/spf13/cobra"
)

// Auth-wide flags
var (
	authVerbose bool
)

// authCmd groups the token and flow management subcommands.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authorization flows and cached tokens",
	Long: `Manage OAuth2 authorization flows and the token cache.

Examples:
  postern auth login "list widgets"    # Run the request's OAuth2 flow
  postern auth status                  # Show token status per request
  postern auth refresh "list widgets"  # Redeem the cached refresh token
  postern auth clear --all             # Drop every cached token`,
}

func init() {
	authCmd.PersistentFlags().BoolVarP(&authVerbose, "verbose", "v", false, "Enable debug logging")

	authCmd.AddCommand(newAuthLoginCmd())
	authCmd.AddCommand(newAuthStatusCmd())
	authCmd.AddCommand(newAuthRefreshCmd())
	authCmd.AddCommand(newAuthClearCmd())
	authCmd.AddCommand(newAuthTestCmd())
}

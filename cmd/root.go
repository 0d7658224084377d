package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"postern/internal/auth"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but no valid token is cached.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates an authorization flow failed.
	ExitCodeAuthFailed = 3
)

// configDir is the workspace directory, settable with --config-dir.
var configDir string

// rootCmd represents the base command for the postern application.
var rootCmd = &cobra.Command{
	Use:   "postern",
	Short: "Send authenticated API requests from the command line",
	Long: `postern is an API testing client. It stores requests in collections,
resolves {{variable}} placeholders from environments, runs OAuth2
authorization flows, and decorates outgoing requests with the
configured credentials.`,
	// SilenceUsage keeps error output clean; usage is printed only for
	// actual usage mistakes.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main
// with the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI and exits with a semantic exit code on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "postern version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps the auth error taxonomy to exit codes for scripting.
func getExitCode(err error) int {
	if errors.Is(err, auth.ErrTokenRequired) {
		return ExitCodeAuthRequired
	}

	var providerErr *auth.ProviderError
	var exchangeErr *auth.TokenExchangeError
	if errors.Is(err, auth.ErrProviderBlocked) ||
		errors.Is(err, auth.ErrUserCancelled) ||
		errors.As(err, &providerErr) ||
		errors.As(err, &exchangeErr) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"workspace directory (default is $HOME/.config/postern)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newConsoleCmd())
	rootCmd.AddCommand(newEnvCmd())
	rootCmd.AddCommand(authCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Clear-specific flags
var (
	clearAll bool
)

func newAuthClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [request]",
		Short: "Drop cached tokens",
		Long: `Drop the cached token for a request, or every cached token with --all.

Examples:
  postern auth clear "list widgets"
  postern auth clear --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAuthClear,
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Drop every cached token")
	return cmd
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	initLogging(authVerbose)

	if !clearAll && len(args) == 0 {
		return fmt.Errorf("specify a request or use --all")
	}

	a, err := newApp(rootCmd.Version)
	if err != nil {
		return err
	}
	defer a.Close()

	if clearAll {
		a.service.ClearAll()
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared all cached tokens")
		return nil
	}

	req, err := a.collections.Request(args[0])
	if err != nil {
		return err
	}
	a.service.ClearTokens(req.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared cached token for %q\n", req.Name)
	return nil
}

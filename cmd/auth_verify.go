package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newAuthTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <request>",
		Short: "Verify a request's auth configuration",
		Long: `Verify the auth configuration that applies to a request.

Client credentials and password configs are exercised against the live
token endpoint without touching the token cache. Other schemes are
validated structurally.

Examples:
  postern auth test "list widgets"`,
		Args: cobra.ExactArgs(1),
		RunE: runAuthTest,
	}
}

func runAuthTest(cmd *cobra.Command, args []string) error {
	initLogging(authVerbose)

	a, err := newApp(rootCmd.Version)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := a.collections.Request(args[0])
	if err != nil {
		return err
	}

	result := a.service.TestConfig(cmd.Context(), req.ID)
	if !result.Success {
		fmt.Fprintln(cmd.OutOrStdout(), text.FgRed.Sprint("FAIL"), result.Message)
		return fmt.Errorf("auth config test failed for %q", req.Name)
	}

	fmt.Fprintln(cmd.OutOrStdout(), text.FgGreen.Sprint("OK"), result.Message)
	return nil
}

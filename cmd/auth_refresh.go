package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newAuthRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <request>",
		Short: "Redeem a request's cached refresh token",
		Long: `Redeem the refresh token cached for a request for a new access token.

Refresh never happens automatically; an expired token stays expired
until this command (or a new login) replaces it.

Examples:
  postern auth refresh "list widgets"`,
		Args: cobra.ExactArgs(1),
		RunE: runAuthRefresh,
	}
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	initLogging(authVerbose)

	a, err := newApp(rootCmd.Version)
	if err != nil {
		return err
	}
	defer a.Close()

	return refreshRequest(cmd.Context(), a, cmd.OutOrStdout(), args[0])
}

// refreshRequest redeems a request's cached refresh token. Shared
// between the one-shot auth refresh command and the console session.
func refreshRequest(ctx context.Context, a *app, w io.Writer, name string) error {
	req, err := a.collections.Request(name)
	if err != nil {
		return err
	}

	token, err := a.service.RefreshToken(ctx, req.ID)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, text.FgGreen.Sprint("Token refreshed"))
	if !token.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "New token expires at %s\n", token.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

package cmd

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"postern/internal/auth"
)

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show auth configuration and token status per request",
		Long: `Show each request's effective auth type and the state of its cached
token.

Examples:
  postern auth status`,
		RunE: runAuthStatus,
	}
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	initLogging(authVerbose)

	a, err := newApp(rootCmd.Version)
	if err != nil {
		return err
	}
	defer a.Close()

	return renderAuthStatus(a, cmd.OutOrStdout())
}

// renderAuthStatus prints the per-request auth and token table. Shared
// between the one-shot auth status command and the console session.
func renderAuthStatus(a *app, w io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("REQUEST"),
		text.FgHiCyan.Sprint("AUTH"),
		text.FgHiCyan.Sprint("TOKEN"),
		text.FgHiCyan.Sprint("EXPIRES"),
	})

	for _, req := range a.collections.Requests() {
		cfg, err := a.collections.EffectiveAuth(req.ID)
		if err != nil {
			return err
		}

		authType := "none"
		if cfg != nil {
			authType = string(cfg.Type)
		}

		tokenCell, expiresCell := tokenStatus(a, req.ID, cfg)
		t.AppendRow(table.Row{req.Name, authType, tokenCell, expiresCell})
	}

	t.Render()
	return nil
}

// tokenStatus renders the token cell pair for one request.
func tokenStatus(a *app, requestID string, cfg *auth.Config) (string, string) {
	if cfg == nil || !cfg.Type.IsOAuth2() {
		return text.FgHiBlack.Sprint("n/a"), ""
	}

	token := a.service.GetCachedToken(requestID)
	if token == nil {
		return text.FgYellow.Sprint("none"), ""
	}

	expires := ""
	if !token.ExpiresAt.IsZero() {
		expires = token.ExpiresAt.Format(time.RFC3339)
	}

	switch {
	case token.IsExpired(0):
		return text.FgRed.Sprint("expired"), expires
	case a.service.TokenExpiringSoon(requestID):
		return text.FgYellow.Sprint("expiring soon"), expires
	default:
		return text.FgGreen.Sprint("valid"), expires
	}
}

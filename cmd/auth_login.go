package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"postern/internal/auth"
	"postern/pkg/oauth"
)

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <request>",
		Short: "Run the authorization flow for a request",
		Long: `Run the OAuth2 authorization flow configured on a request and cache
the resulting token.

For the authorization code and implicit grants this opens the provider's
authorization page in the browser and waits for the redirect. For the
client credentials and password grants the token endpoint is called
directly.

Examples:
  postern auth login "list widgets"`,
		Args: cobra.ExactArgs(1),
		RunE: runAuthLogin,
	}
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	initLogging(authVerbose)

	a, err := newApp(rootCmd.Version)
	if err != nil {
		return err
	}
	defer a.Close()

	return loginRequest(cmd.Context(), a, cmd.OutOrStdout(), args[0])
}

// loginRequest runs the OAuth2 flow for a request and caches the token.
// Shared between the one-shot auth login command and the console
// session.
func loginRequest(ctx context.Context, a *app, w io.Writer, name string) error {
	req, err := a.collections.Request(name)
	if err != nil {
		return err
	}

	cfg, err := a.collections.EffectiveAuth(req.ID)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Type.IsOAuth2() {
		return fmt.Errorf("request %q has no OAuth2 auth configured", req.Name)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for authorization..."
	s.Start()

	var token *oauth.Token
	switch cfg.Type {
	case auth.TypeOAuth2AuthorizationCode:
		token, err = a.service.InitiateAuthorizationCodeFlow(ctx, req.ID)
	case auth.TypeOAuth2Implicit:
		token, err = a.service.InitiateImplicitFlow(ctx, req.ID)
	default:
		// Non-interactive grants run through the same path decoration
		// uses; a throwaway decorate triggers the exchange.
		_, err = a.service.ResolveAndDecorate(ctx, req.ID, auth.RequestDescriptor{
			Method: "GET", URL: req.URL, Header: map[string][]string{}})
		if err == nil {
			token = a.service.GetCachedToken(req.ID)
		}
	}

	s.Stop()
	if err != nil {
		fmt.Fprintln(w, text.FgRed.Sprint("Authorization failed"))
		return err
	}

	fmt.Fprintln(w, text.FgGreen.Sprint("Authorization complete"))
	if token != nil && !token.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Token expires at %s\n", token.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

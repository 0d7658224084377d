package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"postern/internal/auth"
	"postern/internal/collection"
)

// Send-specific flags
var (
	sendVerbose     bool
	sendShowHeaders bool
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <request>",
		Short: "Send a request from the collection",
		Long: `Send a saved request by name or ID.

The request's effective auth config (its own, or the one inherited from
its folder chain) is resolved, environment variables are interpolated,
and the request is decorated before sending.

Examples:
  postern send "list widgets"
  postern send 4fa0c4d2-8a07-4f3e-9a1b-c1d2e3f4a5b6 --headers`,
		Args: cobra.ExactArgs(1),
		RunE: runSend,
	}

	cmd.Flags().BoolVarP(&sendVerbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&sendShowHeaders, "headers", false, "Print response headers")
	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	initLogging(sendVerbose)

	a, err := newApp(rootCmd.Version)
	if err != nil {
		return err
	}
	defer a.Close()

	return sendRequest(cmd.Context(), a, cmd.OutOrStdout(), args[0], sendShowHeaders)
}

// sendRequest resolves, decorates, and sends one stored request. Shared
// between the one-shot send command and the console session.
func sendRequest(ctx context.Context, a *app, w io.Writer, name string, showHeaders bool) error {
	req, err := a.collections.Request(name)
	if err != nil {
		return err
	}

	desc, err := buildDescriptor(a, req)
	if err != nil {
		return err
	}

	decorated, err := a.service.ResolveAndDecorate(ctx, req.ID, desc)
	if err != nil {
		return err
	}

	resp, err := a.client.Send(ctx, decorated)
	if err != nil {
		return err
	}

	printResponse(w, resp.Status, resp.Header, resp.Body, resp.Duration.String(), showHeaders)
	return nil
}

// buildDescriptor turns a stored request into a transport descriptor,
// resolving environment variables in the URL, headers and body.
func buildDescriptor(a *app, req *collection.Request) (auth.RequestDescriptor, error) {
	url, err := a.envs.Resolve(req.URL)
	if err != nil {
		return auth.RequestDescriptor{}, err
	}
	body, err := a.envs.Resolve(req.Body)
	if err != nil {
		return auth.RequestDescriptor{}, err
	}

	header := http.Header{}
	for _, h := range req.Headers {
		if !h.Enabled {
			continue
		}
		value, err := a.envs.Resolve(h.Value)
		if err != nil {
			return auth.RequestDescriptor{}, err
		}
		header.Add(h.Name, value)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	return auth.RequestDescriptor{
		Method: strings.ToUpper(method),
		URL:    url,
		Header: header,
		Body:   []byte(body),
	}, nil
}

func printResponse(out io.Writer, status int, header http.Header, body []byte, elapsed string, showHeaders bool) {
	statusLine := fmt.Sprintf("HTTP %d (%s)", status, elapsed)
	switch {
	case status >= 200 && status < 300:
		fmt.Fprintln(out, text.FgGreen.Sprint(statusLine))
	case status >= 400:
		fmt.Fprintln(out, text.FgRed.Sprint(statusLine))
	default:
		fmt.Fprintln(out, text.FgYellow.Sprint(statusLine))
	}

	if showHeaders {
		names := make([]string, 0, len(header))
		for name := range header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%s: %s\n", name, strings.Join(header[name], ", "))
		}
		fmt.Fprintln(out)
	}

	if len(body) > 0 {
		fmt.Fprintln(out, string(body))
	}
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"postern/internal/environment"
	"postern/pkg/logging"
)

const consolePrompt = "postern » "

const consoleHelp = `Commands:
  send <request>      Send a stored request
  login <request>     Run the request's OAuth2 flow
  status              Show auth and token status per request
  refresh <request>   Redeem the request's cached refresh token
  clear [request]     Drop a cached token (no argument: drop all)
  env                 List environments
  use <environment>   Switch the active environment
  help                Show this help
  exit                Leave the console`

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start an interactive session",
		Long: `Start an interactive session. Logins, sends, and status checks share
one process and one token cache, so a token obtained through a redirect
flow stays available to every later command. The environments file is
watched and reloaded when it changes on disk.

Examples:
  postern console`,
		RunE: runConsole,
	}
}

// console is one interactive session over a shared app.
type console struct {
	a   *app
	out io.Writer
}

func runConsole(cmd *cobra.Command, args []string) error {
	// Log entries go through the console channel so they can be printed
	// without tearing the readline prompt mid-edit.
	entries := logging.InitConsole()
	printerDone := make(chan struct{})
	go printLogEntries(cmd.ErrOrStderr(), entries, printerDone)
	defer func() {
		logging.CloseConsole()
		<-printerDone
	}()

	a, err := newApp(rootCmd.Version)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := environment.Watch(a.envs, a.cfg.Paths.Environments)
	if err != nil {
		logging.Warn("Console", "Environment watch unavailable: %v", err)
	} else {
		defer watcher.Stop()
	}

	c := &console{a: a}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            consolePrompt,
		HistoryFile:       filepath.Join(os.TempDir(), ".postern_history"),
		AutoComplete:      c.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	c.out = rl.Stdout()

	fmt.Fprintln(c.out, "postern console. Type 'help' for commands, Ctrl+D to leave.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		quit, err := c.execute(cmd.Context(), input)
		if err != nil {
			fmt.Fprintln(c.out, text.FgRed.Sprint("Error:"), err)
		}
		if quit {
			return nil
		}
	}
}

// execute runs one console command line. The first word selects the
// command; the rest of the line is the argument, so request names with
// spaces need no quoting.
func (c *console) execute(ctx context.Context, input string) (quit bool, err error) {
	name, arg, _ := strings.Cut(input, " ")
	name = strings.ToLower(name)
	arg = strings.Trim(strings.TrimSpace(arg), `"`)

	switch name {
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return false, nil

	case "exit", "quit":
		return true, nil

	case "send":
		if arg == "" {
			return false, fmt.Errorf("usage: send <request>")
		}
		return false, sendRequest(ctx, c.a, c.out, arg, false)

	case "login":
		if arg == "" {
			return false, fmt.Errorf("usage: login <request>")
		}
		return false, loginRequest(ctx, c.a, c.out, arg)

	case "status":
		return false, renderAuthStatus(c.a, c.out)

	case "refresh":
		if arg == "" {
			return false, fmt.Errorf("usage: refresh <request>")
		}
		return false, refreshRequest(ctx, c.a, c.out, arg)

	case "clear":
		if arg == "" || arg == "all" {
			c.a.service.ClearAll()
			fmt.Fprintln(c.out, "Cleared all cached tokens")
			return false, nil
		}
		req, err := c.a.collections.Request(arg)
		if err != nil {
			return false, err
		}
		c.a.service.ClearTokens(req.ID)
		fmt.Fprintf(c.out, "Cleared cached token for %q\n", req.Name)
		return false, nil

	case "env":
		renderEnvList(c.a, c.out)
		return false, nil

	case "use":
		if arg == "" {
			return false, fmt.Errorf("usage: use <environment>")
		}
		if err := c.a.envs.SetActive(arg); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "Active environment: %s\n", arg)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q, type 'help' for available commands", name)
	}
}

func (c *console) completer() *readline.PrefixCompleter {
	requests := readline.PcItemDynamic(c.requestNames)
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("send", requests),
		readline.PcItem("login", requests),
		readline.PcItem("status"),
		readline.PcItem("refresh", requests),
		readline.PcItem("clear", requests),
		readline.PcItem("env"),
		readline.PcItem("use", readline.PcItemDynamic(c.envNames)),
		readline.PcItem("exit"),
	)
}

func (c *console) requestNames(string) []string {
	reqs := c.a.collections.Requests()
	names := make([]string, 0, len(reqs))
	for _, r := range reqs {
		names = append(names, r.Name)
	}
	return names
}

func (c *console) envNames(string) []string {
	return c.a.envs.Names()
}

// printLogEntries drains the console log channel until it closes.
func printLogEntries(w io.Writer, entries <-chan logging.Entry, done chan<- struct{}) {
	defer close(done)
	for e := range entries {
		msg := e.Message
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		fmt.Fprintf(w, "%s %s [%s] %s\n",
			e.Timestamp.Format("15:04:05"), e.Level, e.Subsystem, msg)
	}
}

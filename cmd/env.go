package cmd

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect environments",
	}
	cmd.AddCommand(newEnvListCmd())
	return cmd
}

func newEnvListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List environments, marking the active one",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging(false)

			a, err := newApp(rootCmd.Version)
			if err != nil {
				return err
			}
			defer a.Close()

			renderEnvList(a, cmd.OutOrStdout())
			return nil
		},
	}
}

// renderEnvList prints the environment table, marking the active one.
// Shared between the one-shot env list command and the console session.
func renderEnvList(a *app, w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("ACTIVE"),
	})

	active := a.envs.Active()
	for _, name := range a.envs.Names() {
		marker := ""
		if name == active {
			marker = text.FgGreen.Sprint("*")
		}
		t.AppendRow(table.Row{name, marker})
	}
	t.Render()
}

package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true).Underline(true)
)

func (a *app) doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Show the effective configuration and check the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := a.streams.Out
			cfg := a.cfg

			fmt.Fprintln(out, headStyle.Render("Configuration"))
			fmt.Fprintf(out, "  api_url:       %s\n", cfg.APIURL)
			fmt.Fprintf(out, "  timeout:       %s\n", cfg.Timeout)
			fmt.Fprintf(out, "  config file:   %s\n", orNone(cfg.ConfigFile))
			fmt.Fprintf(out, "  env file:      %s\n", orNone(cfg.EnvFile))
			if cfg.Ephemeral {
				fmt.Fprintf(out, "  session store: memory\n")
			} else {
				fmt.Fprintf(out, "  session store: %s\n", cfg.DBPath)
			}
			fmt.Fprintf(out, "  export dir:    %s\n", orNone(cfg.ExportDir))
			fmt.Fprintf(out, "  export format: %s\n", cfg.ExportFormat)
			fmt.Fprintf(out, "  log file:      %s\n", cfg.LogFile)
			fmt.Fprintf(out, "  glamour style: %s\n", cfg.GlamourStyle)
			fmt.Fprintln(out)

			fmt.Fprintln(out, headStyle.Render("Session"))
			if s := a.sessions.Current(); s.LoggedIn() {
				fmt.Fprintf(out, "  logged in as %s, expires %s\n", s.Identity.Email, describeExpiry(s, time.Now()))
			} else {
				fmt.Fprintln(out, "  not logged in")
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, headStyle.Render("Backend"))
			if err := a.client.Health(a.requestContext(cmd.Context())); err != nil {
				fmt.Fprintf(out, "  %s %s: %v\n", failStyle.Render("unreachable"), cfg.APIURL, err)
				return errSilent
			}
			fmt.Fprintf(out, "  %s %s\n", okStyle.Render("ok"), cfg.APIURL)
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

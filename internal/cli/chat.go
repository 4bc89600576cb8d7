package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jobchat/internal/export"
	"jobchat/internal/ui"
)

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runChat,
	}
}

func (a *app) runChat(cmd *cobra.Command, _ []string) error {
	exports, err := export.NewWriter(a.cfg.ExportDir)
	if err != nil {
		return err
	}
	exporter, err := export.NewExporter(a.cfg.ExportFormat)
	if err != nil {
		return err
	}
	m := ui.NewApp(ui.Options{
		Sessions:     a.sessions,
		Auth:         a.client,
		Executor:     a.client,
		Exports:      exports,
		Exporter:     exporter,
		GlamourStyle: a.cfg.GlamourStyle,
		Logger:       a.log,
	})
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
		tea.WithInput(a.streams.In),
		tea.WithOutput(a.streams.Out),
	)
	_, err = p.Run()
	return err
}

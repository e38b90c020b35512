package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/entrhq/pagekeeper/pkg/options"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

func newOptionsCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Edit the feature toggles interactively",
		Long: `Open the options editor. Every change is saved immediately and a running
agent reloads its page to apply it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.openStore("")
			if err != nil {
				return err
			}
			if _, err := settings.InstallDefaults(store); err != nil {
				return err
			}

			model, err := options.New(store)
			if err != nil {
				return err
			}
			program := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("options editor failed: %w", err)
			}
			return nil
		},
	}
}

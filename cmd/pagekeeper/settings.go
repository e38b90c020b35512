package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/pagekeeper/pkg/settings"
)

func newSettingsCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change the feature toggles",
		Long: `Show and change the feature toggles from scripts.

Examples:
  pagekeeper settings show
  pagekeeper settings set autoPackEnabled=true upsPhoneNumber=555-0100
  pagekeeper settings reset`,
	}
	cmd.AddCommand(
		newSettingsShowCmd(global),
		newSettingsSetCmd(global),
		newSettingsResetCmd(global),
	)
	return cmd
}

func newSettingsShowCmd(global *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.openStore("")
			if err != nil {
				return err
			}
			return showSettings(cmd.OutOrStdout(), store, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")
	return cmd
}

// showSettings prints the snapshot the agent would use, plus the editor's
// own keys.
func showSettings(w io.Writer, store settings.Store, format string) error {
	stored, err := store.Get(settings.AreaSync)
	if err != nil {
		return err
	}
	data := settings.FromData(stored).Data()
	if dark, ok := stored[settings.KeyDarkMode].(bool); ok {
		data[settings.KeyDarkMode] = dark
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(data)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format %q (must be yaml or json)", format)
	}
}

func newSettingsSetCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value...",
		Short: "Change one or more settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.openStore("")
			if err != nil {
				return err
			}
			return setSettings(store, args)
		},
	}
}

// setSettings applies all assignments in one write. Nothing is written if
// any assignment is invalid.
func setSettings(store settings.Store, assignments []string) error {
	values := make(map[string]any, len(assignments))
	for _, a := range assignments {
		key, value, err := settings.ParseAssignment(a)
		if err != nil {
			return err
		}
		values[key] = value
	}
	if err := store.Set(settings.AreaSync, values); err != nil {
		return err
	}
	return store.Save()
}

func newSettingsResetCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.openStore("")
			if err != nil {
				return err
			}
			if err := settings.Reset(store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
			return nil
		},
	}
}

func newInstallCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Write the default settings if none exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.openStore("")
			if err != nil {
				return err
			}
			installed, err := settings.InstallDefaults(store)
			if err != nil {
				return err
			}
			if installed {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", store.Path())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Settings already present in %s\n", store.Path())
			}
			return nil
		},
	}
}

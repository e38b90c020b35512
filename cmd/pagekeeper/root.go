package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/entrhq/pagekeeper/pkg/logging"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

type globalOptions struct {
	settingsPath string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "pagekeeper",
		Short: "Keep page patches applied to the shipping application",
		Long: `pagekeeper opens the shipping application in a browser and keeps a fixed
set of page patches applied while the single-page app re-renders:
dangerous goods rows are highlighted, the Notes box is moved and framed,
Pack all is made prominent, and the UPS phone number is filled in.

Each patch can be switched on and off with 'pagekeeper options' or
'pagekeeper settings set'. A running agent reloads its page whenever the
settings change.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logging.SetMinLevel(logging.LevelDebug)
			}
		},
	}
	root.SetVersionTemplate(`{{printf "pagekeeper version %s\n" .Version}}`)

	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "Settings file (default is $HOME/.pagekeeper/settings.json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newOptionsCmd(opts),
		newSettingsCmd(opts),
		newInstallCmd(opts),
	)
	return root
}

// openStore opens the settings store, preferring the flag over path.
func (o *globalOptions) openStore(path string) (*settings.FileStore, error) {
	if o.settingsPath != "" {
		path = o.settingsPath
	}
	return settings.NewFileStore(path)
}

// openStoreOrDefaults is openStore for commands that only read the
// settings. A corrupt file is reported to warn and the store starts empty,
// which reads as the defaults.
func (o *globalOptions) openStoreOrDefaults(path string, warn func(format string, v ...interface{})) (*settings.FileStore, error) {
	store, err := o.openStore(path)
	if err != nil {
		if store != nil && errors.Is(err, settings.ErrCorrupt) {
			warn("using default settings: %v", err)
			return store, nil
		}
		return nil, err
	}
	return store, nil
}

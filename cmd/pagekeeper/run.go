package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/entrhq/pagekeeper/pkg/agent"
	"github.com/entrhq/pagekeeper/pkg/browser"
	"github.com/entrhq/pagekeeper/pkg/config"
	"github.com/entrhq/pagekeeper/pkg/logging"
	"github.com/entrhq/pagekeeper/pkg/metrics"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

const shutdownTimeout = 10 * time.Second

type runOptions struct {
	*globalOptions

	configFile  string
	url         string
	headless    bool
	metricsAddr string
	saveState   string
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the application and keep the page patched",
		Long: `Open the configured URL in a browser and keep the enabled patches applied
until the browser page is closed or the process is interrupted.

Examples:
  pagekeeper run --url https://acme.piyovi.io/shipments
  pagekeeper run --config pagekeeper.yaml --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file (YAML)")
	cmd.Flags().StringVar(&opts.url, "url", "", "Page to open (overrides the config file)")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Run the browser without a window")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.saveState, "save-state", "", "Write the browser storage state to this file on exit")
	return cmd
}

func (o *runOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		loaded, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.url != "" {
		cfg.URL = o.url
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if o.metricsAddr != "" {
		cfg.MetricsAddr = o.metricsAddr
	}
	if o.verbose {
		cfg.Logging.Verbosity = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func verbosityLevel(verbosity string) logging.Level {
	switch verbosity {
	case "quiet":
		return logging.LevelWarn
	case "debug":
		return logging.LevelDebug
	default:
		return logging.LevelInfo
	}
}

//nolint:gocyclo
func runAgent(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.SetMinLevel(verbosityLevel(cfg.Logging.Verbosity))

	logger, err := logging.NewLogger("pagekeeper")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "Logging to %s\n", logger.LogPath())

	matcher, err := cfg.Matcher()
	if err != nil {
		return err
	}

	corrupt := false
	store, err := opts.openStoreOrDefaults(cfg.SettingsPath, func(format string, v ...interface{}) {
		corrupt = true
		logger.Warnf(format, v...)
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", v...)
	})
	if err != nil {
		return err
	}
	// A corrupt file is left for the user to fix rather than overwritten.
	if !corrupt {
		installed, err := settings.InstallDefaults(store)
		if err != nil {
			return err
		}
		if installed {
			logger.Infof("wrote default settings to %s", store.Path())
		}
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	settingsLogger := logger.Named("settings")
	go func() {
		err := store.Watch(ctx, func(err error) {
			settingsLogger.Warnf("%v", err)
		})
		if err != nil {
			settingsLogger.Errorf("settings watcher stopped: %v", err)
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("metrics server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		logger.Infof("serving metrics on %s", cfg.MetricsAddr)
	}

	manager := browser.NewSessionManager()
	if err := manager.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warnf("browser shutdown: %v", err)
		}
	}()

	session, err := manager.StartSession("main", browser.SessionOptions{
		Headless: cfg.Browser.Headless,
		Viewport: &browser.Viewport{
			Width:  cfg.Browser.Viewport.Width,
			Height: cfg.Browser.Viewport.Height,
		},
		Timeout:      float64(cfg.Browser.Timeout.Milliseconds()),
		StorageState: cfg.Browser.StorageState,
	})
	if err != nil {
		return err
	}

	page, err := browser.Attach(session.Page, logger.Named("browser"))
	if err != nil {
		return err
	}

	// Close the run when the user closes the page.
	session.Page.OnClose(func(playwright.Page) {
		logger.Infof("page closed")
		cancel()
	})

	if err := session.Navigate(cfg.URL, browser.NavigateOptions{WaitUntil: "load"}); err != nil {
		return err
	}

	a := agent.New(page, store,
		agent.WithLogger(logger.Named("agent")),
		agent.WithMetrics(m),
		agent.WithURLMatcher(matcher.Matches),
	)
	if err := a.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (settings: %s)\n", cfg.URL, store.Path())

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := a.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("agent shutdown: %v", err)
	}

	if opts.saveState != "" {
		if err := session.SaveStorageState(opts.saveState); err != nil {
			logger.Warnf("%v", err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Saved storage state to %s\n", opts.saveState)
		}
	}
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Package cli implements the devicecfg command line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-devicecfg/internal/config"
	"github.com/goliatone/go-devicecfg/pkg/persistence"
	"github.com/goliatone/go-devicecfg/pkg/renderers/tui"
	"github.com/goliatone/go-devicecfg/pkg/transport"
)

// App carries what every command shares. Config is loaded from the
// environment before the command line is parsed and flags override it.
type App struct {
	Config config.Config
	// Driver replaces the interactive prompt driver of the tui renderer.
	Driver tui.PromptDriver

	logger *slog.Logger
}

// NewRootCmd creates the top-level "devicecfg" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "devicecfg",
		Short:         "Validate, render and deliver device settings described by a schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Config.Validate(); err != nil {
				return err
			}
			logger, err := app.Config.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			app.logger = logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.Config.Store, "store", app.Config.Store, "settings store: memory, file, sqlite or redis")
	flags.StringVar(&app.Config.StorePath, "store-path", app.Config.StorePath, "file or database path for the file and sqlite stores")
	flags.StringVar(&app.Config.AppID, "app-id", app.Config.AppID, "application id scoping stored settings")
	flags.StringVar(&app.Config.RedisAddr, "redis-addr", app.Config.RedisAddr, "redis address for the redis store and transport")
	flags.StringVar(&app.Config.Transport, "transport", app.Config.Transport, "payload transport: stdout, http or redis")
	flags.StringVar(&app.Config.TransportURL, "transport-url", app.Config.TransportURL, "endpoint for the http transport")
	flags.StringVar(&app.Config.Mode, "mode", app.Config.Mode, "out-of-range policy: clamp or strict")
	flags.StringVar(&app.Config.LogLevel, "log-level", app.Config.LogLevel, "log level: debug, info, warn or error")

	root.AddCommand(
		newLintCmd(app),
		newDefaultsCmd(app),
		newRenderCmd(app),
		newSubmitCmd(app),
		newServeCmd(app),
		newContractCmd(app),
	)
	return root
}

func (app *App) log() *slog.Logger {
	if app.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return app.logger
}

// resources opens the configured store and transport. The returned func
// closes both.
func (app *App) resources(cmd *cobra.Command) (persistence.Store, transport.Transport, func(), error) {
	store, closeStore, err := app.Config.OpenStore()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	tr, closeTransport, err := app.Config.OpenTransport(cmd.OutOrStdout())
	if err != nil {
		_ = closeStore()
		return nil, nil, nil, fmt.Errorf("open transport: %w", err)
	}
	return store, tr, func() {
		if err := closeTransport(); err != nil {
			app.log().Warn("closing transport", "error", err)
		}
		if err := closeStore(); err != nil {
			app.log().Warn("closing store", "error", err)
		}
	}, nil
}

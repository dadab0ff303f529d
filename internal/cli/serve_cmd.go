package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-devicecfg/pkg/renderers/html"
	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/server"
	"github.com/goliatone/go-devicecfg/pkg/session"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr     string
		title    string
		returnTo []string
	)
	cmd := &cobra.Command{
		Use:   "serve SCHEMA",
		Short: "Serve the settings page over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			mode, err := app.Config.ValidationMode()
			if err != nil {
				return err
			}
			store, tr, closeAll, err := app.resources(cmd)
			if err != nil {
				return err
			}
			defer closeAll()

			sess, err := session.New(s,
				session.WithStore(store),
				session.WithTransport(tr),
				session.WithMode(mode),
				session.WithLogger(app.log()),
				session.WithObserver(func(t session.Transition) {
					app.log().Debug("session", "from", t.From.String(), "to", t.To.String(), "submission", t.Submission.String())
				}),
			)
			if err != nil {
				return err
			}
			page, err := html.New(html.WithTitle(title))
			if err != nil {
				return err
			}
			handler, err := server.New(sess, page,
				server.WithLogger(app.log()),
				server.WithReturnTo(returnTo...),
			)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), app, addr, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&title, "title", "Settings", "page title")
	cmd.Flags().StringSliceVar(&returnTo, "return-to", nil, "allowed return URL prefixes; the first is the default")
	return cmd
}

func serve(ctx context.Context, app *App, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.log().Info("serving settings page", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	app.log().Info("server stopped")
	return nil
}

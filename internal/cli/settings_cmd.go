package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-devicecfg/pkg/contract"
	"github.com/goliatone/go-devicecfg/pkg/defaults"
	"github.com/goliatone/go-devicecfg/pkg/render"
	"github.com/goliatone/go-devicecfg/pkg/renderers/html"
	"github.com/goliatone/go-devicecfg/pkg/renderers/tui"
	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/session"
)

func newDefaultsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "defaults SCHEMA",
		Short: "Print the values a settings page would open with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			store, closeStore, err := app.Config.OpenStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore()

			previous, err := store.Load(cmd.Context())
			if err != nil {
				app.log().Warn("loading saved values failed, using defaults", "error", err)
			}
			report := defaults.ResolveReport(s, previous)
			if len(report.Reset) > 0 {
				app.log().Warn("saved values reset to defaults", "keys", report.Reset)
			}
			if len(report.Dropped) > 0 {
				app.log().Info("saved keys unknown to schema", "keys", report.Dropped)
			}
			return writeJSON(cmd, report.Values)
		},
	}
}

func newContractCmd(_ *App) *cobra.Command {
	var title, version string
	cmd := &cobra.Command{
		Use:   "contract SCHEMA",
		Short: "Print the OpenAPI contract of the payload a schema produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			c := contract.Build(s, contract.WithInfo(title, version))
			if err := c.Validate(cmd.Context()); err != nil {
				return err
			}
			return writeJSON(cmd, c)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title")
	cmd.Flags().StringVar(&version, "version", "", "document version")
	return cmd
}

func newRenderCmd(app *App) *cobra.Command {
	var (
		rendererName string
		outPath      string
		format       string
		returnTo     string
	)
	cmd := &cobra.Command{
		Use:   "render SCHEMA",
		Short: "Render a settings page (html) or prompt for values in the terminal (tui)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			registry, err := app.renderers(format)
			if err != nil {
				return err
			}
			renderer, err := registry.Resolve(rendererName)
			if err != nil {
				return err
			}

			store, closeStore, err := app.Config.OpenStore()
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore()
			previous, err := store.Load(cmd.Context())
			if err != nil {
				app.log().Warn("loading saved values failed, using defaults", "error", err)
			}

			opts := render.RenderOptions{Values: defaults.Resolve(s, previous)}
			if returnTo != "" {
				opts.Hidden = render.MergeHiddenFields(nil, render.ReturnTo(returnTo))
			}
			out, err := renderer.Render(cmd.Context(), s, opts)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return fmt.Errorf("render: write %s: %w", outPath, err)
			}
			app.log().Info("rendered", "renderer", renderer.Name(), "file", outPath, "bytes", len(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&rendererName, "renderer", html.Name, "renderer: html or tui")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write output to a file instead of stdout")
	cmd.Flags().StringVar(&format, "format", string(tui.OutputFormatJSON), "tui output format: json, form or pretty")
	cmd.Flags().StringVar(&returnTo, "return-to", "", "return URL prefix embedded in the html form")
	return cmd
}

func (app *App) renderers(format string) (*render.Registry, error) {
	mode, err := app.Config.ValidationMode()
	if err != nil {
		return nil, err
	}
	page, err := html.New()
	if err != nil {
		return nil, err
	}
	prompts, err := tui.New(
		tui.WithPromptDriver(app.Driver),
		tui.WithOutputFormat(tui.OutputFormat(format)),
		tui.WithMode(mode),
	)
	if err != nil {
		return nil, err
	}
	registry := render.NewRegistry()
	registry.MustRegister(page)
	registry.MustRegister(prompts)
	return registry, nil
}

func newSubmitCmd(app *App) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "submit SCHEMA",
		Short: "Validate, encode and send one set of values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadFile(args[0])
			if err != nil {
				return err
			}
			raw, err := parseSets(sets)
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
			)
			if err != nil {
				return err
			}
			if _, err := sess.Open(cmd.Context()); err != nil {
				return err
			}
			result, err := sess.Submit(cmd.Context(), raw)
			if errors.Is(err, session.ErrInvalid) {
				keys := make([]string, 0, len(result.FieldErrors))
				for key := range result.FieldErrors {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", key, result.FieldErrors[key].Message)
				}
			}
			if err != nil {
				return err
			}
			app.log().Info("submitted", "submission", result.ID.String())
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "KEY=VALUE to submit (repeatable)")
	return cmd
}

func parseSets(sets []string) (map[string]any, error) {
	raw := make(map[string]any, len(sets))
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("submit: --set %q: expected KEY=VALUE", kv)
		}
		raw[key] = strings.TrimSpace(value)
	}
	return raw, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-devicecfg/pkg/schema"
)

// ErrLint is returned when at least one schema failed to load.
var ErrLint = errors.New("lint: schema errors found")

func newLintCmd(app *App) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "lint SCHEMA...",
		Short: "Report every configuration error in one or more schemas",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := lintFiles(cmd.OutOrStdout(), args)
			if !watch {
				if failed {
					return ErrLint
				}
				return nil
			}
			return watchFiles(cmd.Context(), app, args, func() {
				lintFiles(cmd.OutOrStdout(), args)
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-lint whenever a schema file changes")
	return cmd
}

// lintFiles prints one line per issue and reports whether any file failed.
func lintFiles(out io.Writer, paths []string) bool {
	failed := false
	for _, path := range paths {
		s, err := schema.LoadFile(path)
		if err == nil {
			fmt.Fprintf(out, "%s: ok (%d fields)\n", path, s.Len())
			continue
		}
		failed = true
		issues := schema.Issues(err)
		if len(issues) == 0 {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}
		for _, issue := range issues {
			location := issue.Path
			if location == "" {
				location = "-"
			}
			fmt.Fprintf(out, "%s: %s [%s] %s\n", path, location, issue.Code, issue.Message)
		}
	}
	return failed
}

// watchFiles calls onChange after any write to one of paths until ctx ends.
// Directories are watched rather than files so editors that replace files
// on save keep triggering events.
func watchFiles(ctx context.Context, app *App, paths []string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("lint: watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	targets := make([]string, 0, len(paths))
	var dirs []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("lint: %s: %w", path, err)
		}
		targets = append(targets, abs)
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("lint: watch %s: %w", dir, err)
		}
	}
	app.log().Info("watching schemas", "files", len(targets))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !slices.Contains(targets, name) {
				continue
			}
			app.log().Debug("schema changed", "file", name, "op", ev.Op.String())
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			app.log().Warn("watch error", "error", err)
		}
	}
}

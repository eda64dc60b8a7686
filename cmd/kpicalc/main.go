// Package main provides the CLI entrypoint for kpicalc.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kpicalc/internal/app"
	"github.com/verte-zerg/kpicalc/internal/config"
	"github.com/verte-zerg/kpicalc/internal/logging"
	"github.com/verte-zerg/kpicalc/internal/store"
	"github.com/verte-zerg/kpicalc/internal/tui"
)

const defaultExportDir = "."

type globalFlags struct {
	db        string
	logLevel  string
	logFormat string
}

// env is everything a command needs once flags and config are resolved.
type env struct {
	ctx       context.Context
	app       *app.App
	store     *store.Store
	exportDir string
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		ctxlog.From(e.ctx).Error("failed to close db", slog.Any("error", err))
	}
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "kpicalc",
		Short:         "Daily KPI calculator",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.db, "db", config.DefaultDBPath(), "path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "auto", "log format (console, json, auto)")

	rootCmd.AddCommand(newStatusCmd(flags))
	rootCmd.AddCommand(newStepCmd(flags, "inc", "Increment a category", 1))
	rootCmd.AddCommand(newStepCmd(flags, "dec", "Decrement a category", -1))
	rootCmd.AddCommand(newSetCmd(flags))
	rootCmd.AddCommand(newNewDayCmd(flags))
	rootCmd.AddCommand(newSaveCmd(flags))
	rootCmd.AddCommand(newHistoryCmd(flags))
	rootCmd.AddCommand(newExportCmd(flags))
	rootCmd.AddCommand(newImportCmd(flags))
	rootCmd.AddCommand(newArchiveCmd(flags))
	rootCmd.AddCommand(newDumpCmd(flags))
	rootCmd.AddCommand(newNightModeCmd(flags))
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// openEnv resolves config over flags, builds the logger writing to logW and
// opens the store.
func openEnv(cmd *cobra.Command, flags *globalFlags, logW io.Writer) (*env, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load config")
	}
	applyStringConfig(cmd, "db", &flags.db, fileCfg.Storage.DB)
	applyStringConfig(cmd, "log-level", &flags.logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &flags.logFormat, fileCfg.Log.Format)
	exportDir := defaultExportDir
	if fileCfg.Export.Dir != nil {
		exportDir = *fileCfg.Export.Dir
	}

	level, err := logging.ParseLevel(flags.logLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(flags.logFormat)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ctxlog.With(ctx, logging.New(level, logW, format))

	st, err := store.Open(flags.db)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open db")
	}
	a, err := app.New(ctx, st)
	if err != nil {
		if cerr := st.Close(); cerr != nil {
			ctxlog.From(ctx).Error("failed to close db", slog.Any("error", cerr))
		}
		return nil, err
	}
	ctxlog.From(ctx).Debug("state loaded", slog.String("db", flags.db))
	return &env{ctx: ctx, app: a, store: st, exportDir: exportDir}, nil
}

// withEnv runs fn against an env that logs to stderr.
func withEnv(flags *globalFlags, fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, flags, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, e, args)
	}
}

func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	logPath := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create log directory", goerr.V("path", logPath))
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return goerr.Wrap(err, "failed to open log file", goerr.V("path", logPath))
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()

	e, err := openEnv(cmd, flags, logFile)
	if err != nil {
		return err
	}
	defer e.Close()

	program := tea.NewProgram(
		tui.NewModel(e.ctx, e.app, e.exportDir),
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(e.ctx),
	)
	if _, err := program.Run(); err != nil {
		return goerr.Wrap(err, "failed to run TUI")
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

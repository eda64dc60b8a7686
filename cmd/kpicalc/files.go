package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/kpicalc/internal/config"
	"github.com/verte-zerg/kpicalc/internal/csvio"
	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
	"github.com/verte-zerg/kpicalc/internal/stats"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	var out, date string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the history (or one date) as CSV",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			write := e.app.Export
			name := csvio.DefaultFileName
			if date != "" {
				if _, err := e.app.FindEntry(date); err != nil {
					return err
				}
				write = func(w io.Writer) error { return e.app.ExportDate(w, date) }
				name = csvio.ReportFileName(date)
			}
			if out == "-" {
				return write(cmd.OutOrStdout())
			}
			path := out
			if path == "" {
				path = filepath.Join(e.exportDir, name)
			}
			if err := writeFile(path, write); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", path)
			return err
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path, - for stdout (default: <export dir>/history.csv)")
	cmd.Flags().StringVar(&date, "date", "", "export only the entry for DD/MM/YYYY")
	return cmd
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a previously exported history CSV",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return goerr.Wrap(err, "failed to open import file", goerr.V("path", args[0]))
			}
			defer func() {
				if cerr := f.Close(); cerr != nil {
					logErrf("failed to close import file: %v\n", cerr)
				}
			}()
			res, err := e.app.Import(e.ctx, f)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "History imported: %d added, %d duplicate dates dropped, %d rows skipped.\n",
				res.Added, res.Dropped, res.Skipped)
			return err
		}),
	}
}

func newArchiveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Show the Salv(TM) count archived at each new day",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			return stats.RenderArchive(cmd.OutOrStdout(), e.app.State().Archive)
		}),
	}
}

type dumpEntry struct {
	Date    string         `yaml:"date"`
	Points  map[string]int `yaml:"points"`
	Total   int            `yaml:"totalKPI"`
	Percent string         `yaml:"percentKPIDone"`
}

type dumpRecord struct {
	Date  string `yaml:"date"`
	Value int    `yaml:"value"`
}

type dumpDoc struct {
	Counters          map[string]int `yaml:"counters"`
	KPIValue          int            `yaml:"kpiValue"`
	KPINeeded         int            `yaml:"kpiNeeded"`
	NightMode         bool           `yaml:"nightMode"`
	CalculatorVisible bool           `yaml:"isCalculatorVisible"`
	History           []dumpEntry    `yaml:"history"`
	SalvTMHistory     []dumpRecord   `yaml:"salvTMHistory"`
}

func newDumpDoc(state model.State) dumpDoc {
	doc := dumpDoc{
		Counters:          make(map[string]int, len(model.Catalog)),
		KPIValue:          state.Tally.Value,
		KPINeeded:         state.Tally.Needed,
		NightMode:         state.Settings.NightMode,
		CalculatorVisible: state.Settings.CalculatorVisible,
		History:           make([]dumpEntry, 0, len(state.History)),
		SalvTMHistory:     make([]dumpRecord, 0, len(state.Archive)),
	}
	for _, info := range model.Catalog {
		doc.Counters[string(info.Key)] = state.Tally.Counters[info.Key]
	}
	for _, e := range state.History {
		points := make(map[string]int, len(model.Catalog))
		for _, info := range model.Catalog {
			points[string(info.Key)] = e.Point(info.Key)
		}
		doc.History = append(doc.History, dumpEntry{
			Date:    e.Date,
			Points:  points,
			Total:   ledger.Total(e),
			Percent: ledger.FormatPercent(e),
		})
	}
	for _, rec := range state.Archive {
		doc.SalvTMHistory = append(doc.SalvTMHistory, dumpRecord(rec))
	}
	return doc
}

func newDumpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the whole persisted state as YAML",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(newDumpDoc(e.app.State())); err != nil {
				return goerr.Wrap(err, "failed to encode state")
			}
			if err := enc.Close(); err != nil {
				return goerr.Wrap(err, "failed to flush state")
			}
			return nil
		}),
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return goerr.New("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return goerr.Wrap(err, "failed to open editor", goerr.V("editor", editor))
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create config directory", goerr.V("path", path))
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return goerr.Wrap(err, "failed to stat config", goerr.V("path", path))
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return goerr.Wrap(err, "failed to write config", goerr.V("path", path))
		}
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# kpicalc configuration
# Uncomment a value to enable it. CLI flags override config values.

[storage]
# db = %q

[log]
# level = "info"      # debug, info, warn, error
# format = "auto"     # console, json, auto

[export]
# dir = %q             # Directory for exported CSV files
`,
		config.DefaultDBPath(),
		defaultExportDir,
	)
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(err, "failed to create export directory", goerr.V("dir", dir))
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create file", goerr.V("path", path))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = goerr.Wrap(cerr, "failed to close file", goerr.V("path", path))
		}
	}()
	return fn(f)
}

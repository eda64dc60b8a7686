package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/kpicalc/internal/config"
	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
)

type harness struct {
	t     *testing.T
	db    string
	stdin string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	return &harness{t: t, db: filepath.Join(t.TempDir(), "kpicalc.db")}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(h.stdin))
	root.SetArgs(append([]string{"--db", h.db, "--log-format", "json", "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	gt.NoError(h.t, err)
	return out
}

func TestIncDecAndStatus(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("inc", "sarRepo", "2")
	gt.True(t, strings.Contains(out, "SAR repo: 2"))
	gt.True(t, strings.Contains(out, "KPI needed: 210"))

	out = h.mustRun("dec", "sarRepo", "5")
	gt.True(t, strings.Contains(out, "SAR repo: 0"))
	gt.True(t, strings.Contains(out, "KPI value: 0"))

	h.mustRun("set", "jiraClosed", "21")
	out = h.mustRun("status")
	gt.True(t, strings.Contains(out, "Exceeded by: 21"))
	gt.True(t, strings.Contains(out, "100.00%"))
}

func TestRejectsBadArguments(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("inc", "bogus")
	gt.True(t, errors.Is(err, model.ErrUnknownCategory))

	_, err = h.run("inc", "seon", "0")
	gt.Error(t, err)

	_, err = h.run("set", "seon", "many")
	gt.Error(t, err)

	_, err = h.run("set", "sarRepo", "100000000000000000")
	gt.True(t, errors.Is(err, model.ErrCountTooLarge))

	_, err = h.run("inc", "sarRepo", "100000000000000000")
	gt.Error(t, err)

	out := h.mustRun("status")
	gt.True(t, strings.Contains(out, "KPI value: 0"))
	gt.True(t, strings.Contains(out, "KPI needed: 420"))
}

func TestSaveConflict(t *testing.T) {
	h := newHarness(t)
	h.mustRun("inc", "seon")
	h.mustRun("save")

	_, err := h.run("save")
	gt.True(t, errors.Is(err, ledger.ErrDateExists))

	h.mustRun("save", "--new")
	out := h.mustRun("dump")
	var doc dumpDoc
	gt.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	gt.A(t, doc.History).Length(2)

	h.mustRun("save", "--override")
	out = h.mustRun("dump")
	doc = dumpDoc{}
	gt.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	gt.A(t, doc.History).Length(1)
	gt.Equal(t, doc.History[0].Points["seon"], 7)

	_, err = h.run("save", "--override", "--new")
	gt.Error(t, err)
}

func TestHistoryRemoveAndClear(t *testing.T) {
	h := newHarness(t)
	h.mustRun("save")
	h.mustRun("save", "--new")

	out := h.mustRun("history", "remove", "7")
	gt.True(t, strings.Contains(out, "nothing removed"))

	out = h.mustRun("history", "remove", "0")
	gt.True(t, strings.Contains(out, "Removed entry"))

	h.stdin = "n\n"
	out = h.mustRun("history", "clear")
	gt.True(t, strings.Contains(out, "Aborted."))

	h.stdin = "y\n"
	h.mustRun("history", "clear")
	out = h.mustRun("history")
	gt.True(t, strings.Contains(out, "No history saved."))
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.mustRun("inc", "rfiRepo", "3")
	h.mustRun("save")

	path := filepath.Join(t.TempDir(), "out.csv")
	h.mustRun("export", "--out", path)
	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.True(t, strings.HasPrefix(string(data), "Date;Salv(TM);"))

	other := newHarness(t)
	out := other.mustRun("import", path)
	gt.True(t, strings.Contains(out, "1 added"))
	out = other.mustRun("import", path)
	gt.True(t, strings.Contains(out, "0 added, 1 duplicate dates dropped"))

	bad := filepath.Join(t.TempDir(), "bad.csv")
	gt.NoError(t, os.WriteFile(bad, []byte("foo,bar\n1,2\n"), 0o644))
	_, err = other.run("import", bad)
	gt.Error(t, err)
}

func TestExportMissingDate(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("export", "--date", "01/01/2000", "--out", "-")
	gt.Error(t, err)
}

func TestNewDayAndArchive(t *testing.T) {
	h := newHarness(t)
	h.mustRun("inc", "salvTM", "4")
	out := h.mustRun("newday")
	gt.True(t, strings.Contains(out, "Archived Salv(TM) 4"))

	out = h.mustRun("archive")
	gt.True(t, strings.Contains(out, "Salv(TM)"))
	gt.True(t, strings.Contains(out, "Trend:"))

	out = h.mustRun("status")
	gt.True(t, strings.Contains(out, "KPI needed: 420"))
}

func TestNightModeToggle(t *testing.T) {
	h := newHarness(t)
	gt.True(t, strings.Contains(h.mustRun("nightmode"), "Night mode: on"))
	gt.True(t, strings.Contains(h.mustRun("nightmode"), "Night mode: off"))
}

func TestConfigExportDir(t *testing.T) {
	h := newHarness(t)
	exportDir := t.TempDir()
	cfgPath := config.DefaultConfigPath()
	gt.NoError(t, ensureConfigFile(cfgPath))
	gt.NoError(t, os.WriteFile(cfgPath, []byte("[export]\ndir = \""+exportDir+"\"\n"), 0o644))

	h.mustRun("export")
	_, err := os.Stat(filepath.Join(exportDir, "history.csv"))
	gt.NoError(t, err)
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	newHarness(t)
	path := config.DefaultConfigPath()
	gt.NoError(t, ensureConfigFile(path))
	cfg, err := config.LoadConfig(path)
	gt.NoError(t, err)
	gt.Nil(t, cfg.Storage.DB)
	gt.Nil(t, cfg.Export.Dir)
}

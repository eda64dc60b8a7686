package statsui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/kpicalc/internal/app"
	"github.com/verte-zerg/kpicalc/internal/model"
	"github.com/verte-zerg/kpicalc/internal/store"
)

func newTestModel(t *testing.T) (*Model, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemory()
	err := repo.SaveHistory(ctx, []model.HistoryEntry{
		{Date: "14/10/2026", Points: map[model.Category]int{model.SarRepo: 105}},
		{Date: "02/10/2026", Points: map[model.Category]int{model.Seon: 14}},
		{Date: "20/09/2026", Points: map[model.Category]int{model.JiraClosed: 420}},
	})
	if err != nil {
		t.Fatalf("seed history: %v", err)
	}
	now := func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	a, err := app.New(ctx, repo, app.WithClock(now))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	m := NewModel(ctx, a, t.TempDir())
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 30})
	return m, repo
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func rowDates(m *Model) []string {
	out := make([]string, 0, len(m.table.Rows()))
	for _, row := range m.table.Rows() {
		out = append(out, row[1])
	}
	return out
}

func TestRefreshListsEntries(t *testing.T) {
	m, _ := newTestModel(t)
	if got := len(m.table.Rows()); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}
	if !strings.Contains(m.View(), "14/10/2026") {
		t.Fatalf("view missing first entry")
	}
}

func TestSortDateTogglesDirection(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(key("s"))
	got := strings.Join(rowDates(m), ",")
	if got != "02/10/2026,14/10/2026,20/09/2026" {
		t.Fatalf("unexpected ascending order: %s", got)
	}
	m.Update(key("s"))
	got = strings.Join(rowDates(m), ",")
	if got != "20/09/2026,14/10/2026,02/10/2026" {
		t.Fatalf("unexpected descending order: %s", got)
	}
}

func TestSortByNextColumn(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(key("right"))
	if m.sortIndex != 1 {
		t.Fatalf("expected sort index 1, got %d", m.sortIndex)
	}
	m.Update(key("enter"))
	if col := m.app.Sorter().Column(); col != string(model.SalvTM) {
		t.Fatalf("expected salvTM sort, got %q", col)
	}
}

func TestRemoveNeedsConfirmation(t *testing.T) {
	m, repo := newTestModel(t)
	m.Update(key("x"))
	if m.mode != modeConfirmRemove {
		t.Fatalf("expected confirm mode")
	}
	m.Update(key("n"))
	if len(m.table.Rows()) != 3 {
		t.Fatalf("declined remove changed rows")
	}

	m.Update(key("x"))
	m.Update(key("y"))
	if got := strings.Join(rowDates(m), ","); got != "02/10/2026,20/09/2026" {
		t.Fatalf("unexpected rows after remove: %s", got)
	}
	state, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state.History) != 2 {
		t.Fatalf("remove not persisted, have %d entries", len(state.History))
	}
}

func TestClearNeedsConfirmation(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(key("C"))
	m.Update(key("y"))
	if len(m.table.Rows()) != 0 {
		t.Fatalf("expected empty table")
	}
	if !strings.Contains(m.View(), "No history saved.") {
		t.Fatalf("expected empty notice")
	}
}

func TestViewMissingDate(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(key("v"))
	m.dateInput.SetValue("01/01/2000")
	m.Update(key("enter"))
	if m.mode != modeBrowse {
		t.Fatalf("expected browse mode")
	}
	if m.errMsg != "No data found for the selected date." {
		t.Fatalf("unexpected error message %q", m.errMsg)
	}
}

func TestViewAndExportEntry(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(key("v"))
	if m.dateInput.Value() != "14/10/2026" {
		t.Fatalf("expected selected date prefilled, got %q", m.dateInput.Value())
	}
	m.Update(key("enter"))
	if m.mode != modeEntry {
		t.Fatalf("expected entry mode, err %q", m.errMsg)
	}
	if !strings.Contains(m.View(), "Results for 14/10/2026") {
		t.Fatalf("entry view missing title")
	}

	m.Update(key("e"))
	data, err := os.ReadFile(filepath.Join(m.exportDir, "history_14-10-2026.csv"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "14/10/2026;") {
		t.Fatalf("unexpected report row %q", lines[1])
	}
}

func TestBackEmitsMessage(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(key("esc"))
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	if _, ok := cmd().(BackMsg); !ok {
		t.Fatalf("expected BackMsg")
	}
}

package ledger_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
)

func entry(date string, points map[model.Category]int) model.HistoryEntry {
	return model.HistoryEntry{Date: date, Points: points}
}

func dates(l *ledger.Ledger) []string {
	var out []string
	for _, e := range l.Entries() {
		out = append(out, e.Date)
	}
	return out
}

func TestSaveCreateNewProducesDuplicate(t *testing.T) {
	l := ledger.New(nil)
	gt.NoError(t, l.Save(entry("14/10/2026", map[model.Category]int{model.Seon: 7}), ledger.PolicyAsk))
	gt.NoError(t, l.Save(entry("14/10/2026", map[model.Category]int{model.Seon: 14}), ledger.PolicyCreateNew))

	gt.Equal(t, l.Len(), 2)
	gt.Equal(t, dates(l), []string{"14/10/2026", "14/10/2026"})
}

func TestSaveOverrideReplacesDate(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{
		entry("13/10/2026", map[model.Category]int{model.Seon: 7}),
		entry("14/10/2026", map[model.Category]int{model.Seon: 7}),
		entry("15/10/2026", nil),
	})
	gt.NoError(t, l.Save(entry("14/10/2026", map[model.Category]int{model.SarRepo: 105}), ledger.PolicyOverride))

	gt.Equal(t, dates(l), []string{"13/10/2026", "15/10/2026", "14/10/2026"})
	got, ok := l.Find("14/10/2026")
	gt.True(t, ok)
	gt.Equal(t, got.Point(model.SarRepo), 105)
	gt.Equal(t, got.Point(model.Seon), 0)
}

func TestSaveAskReportsConflict(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{entry("14/10/2026", nil)})
	err := l.Save(entry("14/10/2026", nil), ledger.PolicyAsk)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ledger.ErrDateExists))
	gt.Equal(t, l.Len(), 1)
}

func TestRemoveOutOfRangeIsNoop(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{entry("a", nil), entry("b", nil)})

	_, ok := l.Remove(2)
	gt.False(t, ok)
	_, ok = l.Remove(-1)
	gt.False(t, ok)
	gt.Equal(t, l.Len(), 2)

	removed, ok := l.Remove(0)
	gt.True(t, ok)
	gt.Equal(t, removed.Date, "a")
	gt.Equal(t, dates(l), []string{"b"})
}

func TestClear(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{entry("a", nil)})
	l.Clear()
	gt.Equal(t, l.Len(), 0)
}

func TestTotalAndPercent(t *testing.T) {
	zero := entry("01/01/2026", nil)
	gt.Equal(t, ledger.Total(zero), 0)
	gt.Equal(t, ledger.FormatPercent(zero), "0.00%")

	e := entry("01/01/2026", map[model.Category]int{
		model.SarRepo:  105,
		model.SalvTM:   28,
		model.Downtime: 3,
	})
	gt.Equal(t, ledger.Total(e), 136)
	gt.Equal(t, ledger.FormatPercent(e), "32.38%")
}

func TestSortDateIsLexical(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{entry("25/01/2024", nil), entry("01/12/2024", nil)})
	var s ledger.Sorter
	gt.NoError(t, l.SortBy(&s, ledger.ColumnDate))
	gt.Equal(t, dates(l), []string{"01/12/2024", "25/01/2024"})
}

func TestSorterToggles(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{
		entry("a", map[model.Category]int{model.Seon: 14}),
		entry("b", map[model.Category]int{model.Seon: 7, model.SarRepo: 105}),
		entry("c", nil),
	})
	var s ledger.Sorter

	gt.NoError(t, l.SortBy(&s, "seon"))
	gt.Equal(t, dates(l), []string{"c", "b", "a"})
	gt.True(t, s.Ascending())

	gt.NoError(t, l.SortBy(&s, "seon"))
	gt.Equal(t, dates(l), []string{"a", "b", "c"})
	gt.False(t, s.Ascending())

	gt.NoError(t, l.SortBy(&s, ledger.ColumnTotal))
	gt.Equal(t, s.Column(), ledger.ColumnTotal)
	gt.True(t, s.Ascending())
	gt.Equal(t, dates(l), []string{"c", "a", "b"})

	gt.NoError(t, l.SortBy(&s, ledger.ColumnPercent))
	gt.Equal(t, dates(l), []string{"c", "a", "b"})
	gt.NoError(t, l.SortBy(&s, ledger.ColumnPercent))
	gt.Equal(t, dates(l), []string{"b", "a", "c"})
}

func TestSortUnknownColumn(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{entry("a", nil)})
	var s ledger.Sorter
	err := l.SortBy(&s, "bogus")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ledger.ErrUnknownColumn))
	gt.Equal(t, s.Column(), "")
}

func TestEntriesAreCopies(t *testing.T) {
	l := ledger.New([]model.HistoryEntry{entry("a", map[model.Category]int{model.Seon: 7})})
	got := l.Entries()
	got[0].Points[model.Seon] = 99
	again, _ := l.Find("a")
	gt.Equal(t, again.Point(model.Seon), 7)
}

func TestColumns(t *testing.T) {
	cols := ledger.Columns()
	gt.A(t, cols).Length(14)
	gt.Equal(t, cols[0], ledger.ColumnDate)
	gt.Equal(t, cols[13], ledger.ColumnPercent)
}

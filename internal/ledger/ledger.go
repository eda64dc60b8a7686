// Package ledger holds the ordered history of saved days.
package ledger

import (
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/verte-zerg/kpicalc/internal/model"
)

var (
	// ErrDateExists is returned by Save with PolicyAsk when the date is already recorded.
	ErrDateExists = goerr.New("entry for date already exists")
	// ErrUnknownColumn is returned for sort columns that are neither derived nor a category.
	ErrUnknownColumn = goerr.New("unknown sort column")
)

// Policy decides what Save does when the entry's date already exists.
type Policy int

const (
	// PolicyAsk refuses to save a conflicting date so the caller can prompt.
	PolicyAsk Policy = iota
	// PolicyOverride drops every entry with the date and appends the new one.
	PolicyOverride
	// PolicyCreateNew appends regardless, producing a duplicate date.
	PolicyCreateNew
)

// Derived sort columns.
const (
	ColumnDate    = "date"
	ColumnTotal   = "totalKPI"
	ColumnPercent = "percentKPIDone"
)

// Ledger is an ordered sequence of history entries.
type Ledger struct {
	entries []model.HistoryEntry
}

// New wraps entries; the slice is copied.
func New(entries []model.HistoryEntry) *Ledger {
	l := &Ledger{entries: make([]model.HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		l.entries = append(l.entries, e.Clone())
	}
	return l
}

// Entries returns a copy of the entries in ledger order.
func (l *Ledger) Entries() []model.HistoryEntry {
	out := make([]model.HistoryEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// HasDate reports whether any entry carries date.
func (l *Ledger) HasDate(date string) bool {
	_, ok := l.Find(date)
	return ok
}

// Find returns the first entry with date.
func (l *Ledger) Find(date string) (model.HistoryEntry, bool) {
	for _, e := range l.entries {
		if e.Date == date {
			return e.Clone(), true
		}
	}
	return model.HistoryEntry{}, false
}

// Save records entry according to policy.
func (l *Ledger) Save(entry model.HistoryEntry, policy Policy) error {
	if l.HasDate(entry.Date) {
		switch policy {
		case PolicyAsk:
			return goerr.Wrap(ErrDateExists, "failed to save entry", goerr.V("date", entry.Date))
		case PolicyOverride:
			kept := l.entries[:0]
			for _, e := range l.entries {
				if e.Date != entry.Date {
					kept = append(kept, e)
				}
			}
			l.entries = kept
		case PolicyCreateNew:
		default:
			return goerr.New("unknown save policy", goerr.V("policy", int(policy)))
		}
	}
	l.entries = append(l.entries, entry.Clone())
	return nil
}

// Append adds entries without any conflict check.
func (l *Ledger) Append(entries ...model.HistoryEntry) {
	for _, e := range entries {
		l.entries = append(l.entries, e.Clone())
	}
}

// Remove deletes the entry at index. Out-of-range indexes are ignored.
func (l *Ledger) Remove(index int) (model.HistoryEntry, bool) {
	if index < 0 || index >= len(l.entries) {
		return model.HistoryEntry{}, false
	}
	removed := l.entries[index]
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	return removed, true
}

// Clear removes every entry.
func (l *Ledger) Clear() {
	l.entries = nil
}

// Sort orders entries by column. Dates compare as display strings, so
// "01/12/2024" sorts before "25/01/2024".
func (l *Ledger) Sort(column string, ascending bool) error {
	key, err := sortKey(column)
	if err != nil {
		return err
	}
	sort.SliceStable(l.entries, func(i, j int) bool {
		a, b := l.entries[i], l.entries[j]
		if ascending {
			return key(a, b) < 0
		}
		return key(a, b) > 0
	})
	return nil
}

func sortKey(column string) (func(a, b model.HistoryEntry) int, error) {
	switch column {
	case ColumnDate:
		return func(a, b model.HistoryEntry) int {
			return compare(a.Date, b.Date)
		}, nil
	case ColumnTotal:
		return func(a, b model.HistoryEntry) int {
			return compare(Total(a), Total(b))
		}, nil
	case ColumnPercent:
		return func(a, b model.HistoryEntry) int {
			return compare(Percent(a), Percent(b))
		}, nil
	}
	c := model.Category(column)
	if _, ok := model.Lookup(c); !ok {
		return nil, goerr.Wrap(ErrUnknownColumn, "failed to sort history", goerr.V("column", column))
	}
	return func(a, b model.HistoryEntry) int {
		return compare(a.Point(c), b.Point(c))
	}, nil
}

func compare[T int | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Total sums the already-weighted points of e.
func Total(e model.HistoryEntry) int {
	total := 0
	for _, info := range model.Catalog {
		total += e.Point(info.Key)
	}
	return total
}

// Percent returns Total as a percentage of the daily target.
func Percent(e model.HistoryEntry) float64 {
	return float64(Total(e)) / float64(model.TargetPoints) * 100
}

// FormatPercent renders Percent with two decimals and a percent sign.
func FormatPercent(e model.HistoryEntry) string {
	return fmt.Sprintf("%.2f%%", Percent(e))
}

// Columns returns every sortable column in display order.
func Columns() []string {
	cols := make([]string, 0, len(model.Catalog)+3)
	cols = append(cols, ColumnDate)
	for _, info := range model.Catalog {
		cols = append(cols, string(info.Key))
	}
	return append(cols, ColumnTotal, ColumnPercent)
}

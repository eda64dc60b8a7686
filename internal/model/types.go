// Package model defines shared data structures.
package model

import "time"

// DateLayout is the display format of history and archive dates (DD/MM/YYYY).
const DateLayout = "02/01/2006"

// TargetPoints is the daily KPI target.
const TargetPoints = 420

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Counters holds the raw count per category for the current day.
type Counters map[Category]int

// Clone returns a copy of c.
func (c Counters) Clone() Counters {
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Tally is the current day's state: raw counts plus the two KPI aggregates.
// Value and Needed are stored independently; Needed clamps at 0 while Value
// keeps climbing past the target.
type Tally struct {
	Counters Counters
	Value    int
	Needed   int
}

// NewTally returns a zeroed tally with Needed at the target.
func NewTally() Tally {
	return Tally{
		Counters: DefaultCounters(),
		Value:    0,
		Needed:   TargetPoints,
	}
}

// Clone returns a deep copy of t.
func (t Tally) Clone() Tally {
	return Tally{
		Counters: t.Counters.Clone(),
		Value:    t.Value,
		Needed:   t.Needed,
	}
}

// HistoryEntry is a saved day. Points are already weight-multiplied.
type HistoryEntry struct {
	Date   string
	Points map[Category]int
}

// Point returns the points for c, 0 when absent.
func (e HistoryEntry) Point(c Category) int {
	return e.Points[c]
}

// Clone returns a deep copy of e.
func (e HistoryEntry) Clone() HistoryEntry {
	points := make(map[Category]int, len(e.Points))
	for k, v := range e.Points {
		points[k] = v
	}
	return HistoryEntry{Date: e.Date, Points: points}
}

// ArchiveRecord is one salvTM rollover record.
type ArchiveRecord struct {
	Date  string
	Value int
}

// Settings are persisted UI flags.
type Settings struct {
	NightMode         bool
	CalculatorVisible bool
}

// DefaultSettings returns the settings used when nothing is persisted.
func DefaultSettings() Settings {
	return Settings{NightMode: false, CalculatorVisible: true}
}

// State is the whole persisted application state.
type State struct {
	Tally    Tally
	History  []HistoryEntry
	Archive  []ArchiveRecord
	Settings Settings
}

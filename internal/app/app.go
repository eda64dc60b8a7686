// Package app owns the calculator state and runs every operation against it.
// Each mutation is applied to a copy, persisted, and only then committed, so
// a failed write leaves the previous state in place.
package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/verte-zerg/kpicalc/internal/csvio"
	"github.com/verte-zerg/kpicalc/internal/kpi"
	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
)

// ErrEntryNotFound is returned when no history entry carries the requested date.
var ErrEntryNotFound = goerr.New("no data found for the selected date")

// Repository is the persistence boundary.
type Repository interface {
	Load(ctx context.Context) (model.State, error)
	SaveTally(ctx context.Context, t model.Tally) error
	Rollover(ctx context.Context, rec model.ArchiveRecord, t model.Tally) error
	SaveHistory(ctx context.Context, entries []model.HistoryEntry) error
	SaveSettings(ctx context.Context, settings model.Settings) error
}

// App is the single owner of the application state.
type App struct {
	repo   Repository
	now    func() time.Time
	state  model.State
	sorter ledger.Sorter
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the time source used for dates.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New loads the persisted state from repo.
func New(ctx context.Context, repo Repository, opts ...Option) (*App, error) {
	a := &App{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.Reload(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload replaces the in-memory state with what is persisted.
func (a *App) Reload(ctx context.Context) error {
	state, err := a.repo.Load(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to load state")
	}
	a.state = state
	return nil
}

// State returns a copy of the current state.
func (a *App) State() model.State {
	return model.State{
		Tally:    a.state.Tally.Clone(),
		History:  ledger.New(a.state.History).Entries(),
		Archive:  append([]model.ArchiveRecord(nil), a.state.Archive...),
		Settings: a.state.Settings,
	}
}

// Tally returns a copy of the current tally.
func (a *App) Tally() model.Tally {
	return a.state.Tally.Clone()
}

// Status returns the derived progress display.
func (a *App) Status() kpi.Status {
	return kpi.Progress(a.state.Tally)
}

// Today returns the current date in display format.
func (a *App) Today() string {
	return model.FormatDate(a.now())
}

// Step moves category c by delta.
func (a *App) Step(ctx context.Context, c model.Category, delta int) error {
	next := a.state.Tally.Clone()
	changed, err := kpi.Step(&next, c, delta)
	if err != nil {
		return err
	}
	return a.commitTally(ctx, next, changed)
}

// Set edits category c to count directly.
func (a *App) Set(ctx context.Context, c model.Category, count int) error {
	next := a.state.Tally.Clone()
	changed, err := kpi.Apply(&next, c, count)
	if err != nil {
		return err
	}
	return a.commitTally(ctx, next, changed)
}

func (a *App) commitTally(ctx context.Context, next model.Tally, changed bool) error {
	if !changed {
		return nil
	}
	if err := a.repo.SaveTally(ctx, next); err != nil {
		return goerr.Wrap(err, "failed to persist counters")
	}
	a.state.Tally = next
	ctxlog.From(ctx).Debug("tally updated",
		slog.Int("value", next.Value),
		slog.Int("needed", next.Needed))
	return nil
}

// NewDay archives today's salvTM count and resets the tally. The history
// ledger is not touched.
func (a *App) NewDay(ctx context.Context) (model.ArchiveRecord, error) {
	rec := model.ArchiveRecord{
		Date:  a.Today(),
		Value: a.state.Tally.Counters[model.SalvTM],
	}
	next := a.state.Tally.Clone()
	kpi.Reset(&next)
	if err := a.repo.Rollover(ctx, rec, next); err != nil {
		return model.ArchiveRecord{}, goerr.Wrap(err, "failed to persist new day")
	}
	a.state.Tally = next
	a.state.Archive = append(a.state.Archive, rec)
	ctxlog.From(ctx).Info("new day started", slog.String("date", rec.Date), slog.Int("salvTM", rec.Value))
	return rec, nil
}

// HasEntryToday reports whether saving now would conflict.
func (a *App) HasEntryToday() bool {
	return ledger.New(a.state.History).HasDate(a.Today())
}

// Save stores today's points in the ledger. With ledger.PolicyAsk a
// conflicting date returns ledger.ErrDateExists and nothing changes.
func (a *App) Save(ctx context.Context, policy ledger.Policy) (model.HistoryEntry, error) {
	entry := model.HistoryEntry{
		Date:   a.Today(),
		Points: kpi.Points(a.state.Tally.Counters),
	}
	l := ledger.New(a.state.History)
	if err := l.Save(entry, policy); err != nil {
		return model.HistoryEntry{}, err
	}
	if err := a.commitHistory(ctx, l); err != nil {
		return model.HistoryEntry{}, err
	}
	ctxlog.From(ctx).Info("values saved to history",
		slog.String("date", entry.Date),
		slog.Int("total", ledger.Total(entry)))
	return entry, nil
}

// Remove deletes the history entry at index. Out-of-range indexes are
// ignored and reported as false.
func (a *App) Remove(ctx context.Context, index int) (model.HistoryEntry, bool, error) {
	l := ledger.New(a.state.History)
	removed, ok := l.Remove(index)
	if !ok {
		ctxlog.From(ctx).Debug("remove ignored, index out of range", slog.Int("index", index))
		return model.HistoryEntry{}, false, nil
	}
	if err := a.commitHistory(ctx, l); err != nil {
		return model.HistoryEntry{}, false, err
	}
	return removed, true, nil
}

// ClearHistory removes every history entry.
func (a *App) ClearHistory(ctx context.Context) error {
	l := ledger.New(a.state.History)
	l.Clear()
	return a.commitHistory(ctx, l)
}

// SortHistory sorts by column, flipping direction when the column repeats.
func (a *App) SortHistory(ctx context.Context, column string) error {
	l := ledger.New(a.state.History)
	sorter := a.sorter
	if err := l.SortBy(&sorter, column); err != nil {
		return err
	}
	if err := a.commitHistory(ctx, l); err != nil {
		return err
	}
	a.sorter = sorter
	return nil
}

// SortHistoryDirection sorts by column in an explicit direction.
func (a *App) SortHistoryDirection(ctx context.Context, column string, ascending bool) error {
	l := ledger.New(a.state.History)
	if err := l.Sort(column, ascending); err != nil {
		return err
	}
	return a.commitHistory(ctx, l)
}

// Sorter returns the active sort column and direction.
func (a *App) Sorter() ledger.Sorter {
	return a.sorter
}

// FindEntry returns the first entry saved for date.
func (a *App) FindEntry(date string) (model.HistoryEntry, error) {
	e, ok := ledger.New(a.state.History).Find(date)
	if !ok {
		return model.HistoryEntry{}, goerr.Wrap(ErrEntryNotFound, "failed to find entry", goerr.V("date", date))
	}
	return e, nil
}

func (a *App) commitHistory(ctx context.Context, l *ledger.Ledger) error {
	entries := l.Entries()
	if err := a.repo.SaveHistory(ctx, entries); err != nil {
		return goerr.Wrap(err, "failed to persist history")
	}
	a.state.History = entries
	return nil
}

// Export writes the whole ledger as CSV.
func (a *App) Export(w io.Writer) error {
	return csvio.Encode(w, a.state.History)
}

// ExportDate writes a single-entry report for date.
func (a *App) ExportDate(w io.Writer, date string) error {
	e, err := a.FindEntry(date)
	if err != nil {
		return err
	}
	return csvio.Encode(w, []model.HistoryEntry{e})
}

// ImportResult reports what an import did.
type ImportResult struct {
	Added   int
	Dropped int
	Skipped int
}

// Import merges an exported CSV into the ledger. A rejected file leaves the
// ledger unchanged.
func (a *App) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	decoded, err := csvio.Decode(r)
	if err != nil {
		return ImportResult{}, err
	}
	l := ledger.New(a.state.History)
	added, dropped := csvio.Merge(l, decoded.Entries)
	res := ImportResult{Added: added, Dropped: dropped, Skipped: decoded.Skipped}
	if added > 0 {
		if err := a.commitHistory(ctx, l); err != nil {
			return ImportResult{}, err
		}
	}
	ctxlog.From(ctx).Info("history imported",
		slog.Int("added", res.Added),
		slog.Int("dropped", res.Dropped),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

// ToggleNightMode flips night mode and returns the new value.
func (a *App) ToggleNightMode(ctx context.Context) (bool, error) {
	next := a.state.Settings
	next.NightMode = !next.NightMode
	if err := a.commitSettings(ctx, next); err != nil {
		return a.state.Settings.NightMode, err
	}
	return next.NightMode, nil
}

// SetCalculatorVisible shows or hides the calculator panel.
func (a *App) SetCalculatorVisible(ctx context.Context, visible bool) error {
	next := a.state.Settings
	next.CalculatorVisible = visible
	return a.commitSettings(ctx, next)
}

func (a *App) commitSettings(ctx context.Context, next model.Settings) error {
	if next == a.state.Settings {
		return nil
	}
	if err := a.repo.SaveSettings(ctx, next); err != nil {
		return goerr.Wrap(err, "failed to persist settings")
	}
	a.state.Settings = next
	return nil
}

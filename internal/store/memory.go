package store

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/verte-zerg/kpicalc/internal/model"
)

// Memory keeps the state in process. It mirrors Store for tests and can be
// told to fail writes.
type Memory struct {
	mu    sync.Mutex
	state model.State

	// FailWrites makes every write return an error.
	FailWrites bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		state: model.State{
			Tally:    model.NewTally(),
			Settings: model.DefaultSettings(),
		},
	}
}

// Load returns a copy of the stored state.
func (m *Memory) Load(_ context.Context) (model.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state), nil
}

// SaveTally replaces the tally.
func (m *Memory) SaveTally(_ context.Context, t model.Tally) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return goerr.New("memory store write failed")
	}
	m.state.Tally = t.Clone()
	return nil
}

// Rollover appends rec and replaces the tally.
func (m *Memory) Rollover(_ context.Context, rec model.ArchiveRecord, t model.Tally) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return goerr.New("memory store write failed")
	}
	m.state.Archive = append(m.state.Archive, rec)
	m.state.Tally = t.Clone()
	return nil
}

// SaveHistory replaces the ledger.
func (m *Memory) SaveHistory(_ context.Context, entries []model.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return goerr.New("memory store write failed")
	}
	m.state.History = cloneEntries(entries)
	return nil
}

// SaveSettings replaces the UI flags.
func (m *Memory) SaveSettings(_ context.Context, settings model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return goerr.New("memory store write failed")
	}
	m.state.Settings = settings
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func cloneState(s model.State) model.State {
	return model.State{
		Tally:    s.Tally.Clone(),
		History:  cloneEntries(s.History),
		Archive:  append([]model.ArchiveRecord(nil), s.Archive...),
		Settings: s.Settings,
	}
}

func cloneEntries(entries []model.HistoryEntry) []model.HistoryEntry {
	if entries == nil {
		return nil
	}
	out := make([]model.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

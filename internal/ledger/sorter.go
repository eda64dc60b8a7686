package ledger

// Sorter remembers the active sort column. Selecting the same column again
// flips direction; a new column starts ascending.
type Sorter struct {
	column    string
	ascending bool
}

// Toggle selects column and returns the direction to apply.
func (s *Sorter) Toggle(column string) bool {
	if s.column == column {
		s.ascending = !s.ascending
	} else {
		s.column = column
		s.ascending = true
	}
	return s.ascending
}

// Column returns the active column, empty when nothing was sorted yet.
func (s Sorter) Column() string {
	return s.column
}

// Ascending reports the active direction.
func (s Sorter) Ascending() bool {
	return s.ascending
}

// SortBy toggles the sorter and applies the resulting order to l.
func (l *Ledger) SortBy(s *Sorter, column string) error {
	if _, err := sortKey(column); err != nil {
		return err
	}
	return l.Sort(column, s.Toggle(column))
}

// Package csvio reads and writes the semicolon-delimited history format.
package csvio

import (
	"io"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
)

const (
	separator = ";"
	// DefaultFileName is the whole-ledger export name.
	DefaultFileName = "history.csv"
)

var (
	// ErrEmptyImport is returned when the input has no data rows.
	ErrEmptyImport = goerr.New("the CSV file is empty or invalid")
	// ErrInvalidHeader is returned when the first line is not the export header.
	ErrInvalidHeader = goerr.New("invalid CSV format, expected a history.csv generated by kpicalc")
)

// Header returns the export header fields, derived from the catalog.
func Header() []string {
	fields := make([]string, 0, len(model.Catalog)+3)
	fields = append(fields, "Date")
	for _, info := range model.Catalog {
		fields = append(fields, info.Label)
	}
	return append(fields, "Total KPI", "% of Total KPI Done")
}

// HeaderLine returns the header as written to the file.
func HeaderLine() string {
	return strings.Join(Header(), separator)
}

// Encode writes the header followed by one row per entry, in order.
func Encode(w io.Writer, entries []model.HistoryEntry) error {
	var b strings.Builder
	b.WriteString(HeaderLine())
	b.WriteByte('\n')
	for _, e := range entries {
		b.WriteString(row(e))
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return goerr.Wrap(err, "failed to write history csv")
	}
	return nil
}

// ReportFileName returns the per-date report name. Slashes are not legal in
// file names, so DD/MM/YYYY becomes DD-MM-YYYY.
func ReportFileName(date string) string {
	return "history_" + strings.ReplaceAll(date, "/", "-") + ".csv"
}

func row(e model.HistoryEntry) string {
	fields := make([]string, 0, len(model.Catalog)+3)
	fields = append(fields, e.Date)
	for _, info := range model.Catalog {
		fields = append(fields, strconv.Itoa(e.Point(info.Key)))
	}
	fields = append(fields, strconv.Itoa(ledger.Total(e)), ledger.FormatPercent(e))
	return strings.Join(fields, separator)
}

// Result summarizes a decode.
type Result struct {
	Entries []model.HistoryEntry
	Skipped int
}

// Decode parses exported text. The whole input is rejected when it has no
// data rows or the header differs; rows with too few fields are skipped.
// Total and percent columns are ignored.
func Decode(r io.Reader) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, goerr.Wrap(err, "failed to read history csv")
	}

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) <= 1 {
		return Result{}, goerr.Wrap(ErrEmptyImport, "failed to decode history csv", goerr.V("lines", len(lines)))
	}

	expected := Header()
	header := strings.Split(lines[0], separator)
	if len(header) != len(expected) {
		return Result{}, goerr.Wrap(ErrInvalidHeader, "failed to decode history csv", goerr.V("header", lines[0]))
	}
	for i, field := range header {
		if field != expected[i] {
			return Result{}, goerr.Wrap(ErrInvalidHeader, "failed to decode history csv",
				goerr.V("column", i),
				goerr.V("got", field),
				goerr.V("want", expected[i]))
		}
	}

	var res Result
	for _, line := range lines[1:] {
		cols := strings.Split(line, separator)
		if len(cols) < len(expected) {
			res.Skipped++
			continue
		}
		e := model.HistoryEntry{
			Date:   cols[0],
			Points: make(map[model.Category]int, len(model.Catalog)),
		}
		for i, info := range model.Catalog {
			e.Points[info.Key] = max(0, LeadingInt(cols[i+1]))
		}
		res.Entries = append(res.Entries, e)
	}
	return res, nil
}

// Merge appends decoded entries whose date is not yet in l. Existing dates
// win; duplicates inside the import itself are all kept. It returns the
// number of appended and dropped entries.
func Merge(l *ledger.Ledger, entries []model.HistoryEntry) (added, dropped int) {
	existing := map[string]struct{}{}
	for _, e := range l.Entries() {
		existing[e.Date] = struct{}{}
	}
	for _, e := range entries {
		if _, ok := existing[e.Date]; ok {
			dropped++
			continue
		}
		l.Append(e)
		added++
	}
	return added, dropped
}

// LeadingInt reads an optional sign and the leading digits of s,
// returning 0 when there are none. The magnitude is clamped to
// model.MaxCount.
func LeadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	negative := s[0] == '-'
	n, err := strconv.Atoi(s[digitsStart:end])
	if err != nil || n > model.MaxCount {
		n = model.MaxCount
	}
	if negative {
		return -n
	}
	return n
}

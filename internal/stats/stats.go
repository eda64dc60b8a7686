// Package stats renders tallies, history and archive summaries as text.
package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/kpicalc/internal/kpi"
	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[max(0, min(idx, len(sparkChars)-1))])
	}
	return b.String()
}

// Summary aggregates the history ledger.
type Summary struct {
	Days       int
	AvgTotal   float64
	BestDate   string
	BestTotal  int
	DaysMetKPI int
}

// Summarize computes a Summary; the first entry wins ties for best day.
func Summarize(entries []model.HistoryEntry) Summary {
	s := Summary{Days: len(entries)}
	if len(entries) == 0 {
		return s
	}
	sum := 0
	for i, e := range entries {
		total := ledger.Total(e)
		sum += total
		if i == 0 || total > s.BestTotal {
			s.BestTotal = total
			s.BestDate = e.Date
		}
		if total >= model.TargetPoints {
			s.DaysMetKPI++
		}
	}
	s.AvgTotal = float64(sum) / float64(len(entries))
	return s
}

// RenderStatus prints the current tally: counts, points and progress.
func RenderStatus(w io.Writer, tally model.Tally) error {
	headers := []string{"Category", "Count", "Weight", "Points"}
	rows := make([][]string, 0, len(model.Catalog))
	points := kpi.Points(tally.Counters)
	for _, info := range model.Catalog {
		rows = append(rows, []string{
			fmt.Sprintf("%s (%s)", info.Label, info.Key),
			strconv.Itoa(tally.Counters[info.Key]),
			strconv.Itoa(info.Weight),
			strconv.Itoa(points[info.Key]),
		})
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true})); err != nil {
		return err
	}

	status := kpi.Progress(tally)
	if _, err := fmt.Fprintf(w, "\nKPI value: %d\n", status.Value); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, status.Label()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Progress: %s %.2f%%\n", ProgressBar(status.Percent, 30), status.Percent)
	return err
}

// FilledCells returns how many of width cells a bar at percent fills.
func FilledCells(percent float64, width int) int {
	if width <= 0 {
		return 0
	}
	filled := int(math.Round(percent / 100 * float64(width)))
	return max(0, min(filled, width))
}

// ProgressBar renders an ASCII bar width cells wide.
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := FilledCells(percent, width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// HistoryHeaders returns the history table header, matching the CSV labels.
func HistoryHeaders() []string {
	headers := []string{"#", "Date"}
	for _, info := range model.Catalog {
		headers = append(headers, info.Label)
	}
	return append(headers, "Total KPI", "% of Total KPI Done")
}

// HistoryRow returns the cells of one history table row.
func HistoryRow(index int, e model.HistoryEntry) []string {
	row := []string{strconv.Itoa(index), e.Date}
	for _, info := range model.Catalog {
		row = append(row, strconv.Itoa(e.Point(info.Key)))
	}
	return append(row, strconv.Itoa(ledger.Total(e)), ledger.FormatPercent(e))
}

// RenderHistory prints the ledger in its current order.
func RenderHistory(w io.Writer, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No history saved.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, HistoryRow(i, e))
	}
	rightAlign := map[int]bool{0: true}
	for i := 2; i < len(HistoryHeaders()); i++ {
		rightAlign[i] = true
	}
	if err := writeLines(w, formatTable(HistoryHeaders(), rows, rightAlign)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return RenderSummary(w, entries)
}

// RenderSummary prints aggregate figures and a trend of daily totals.
func RenderSummary(w io.Writer, entries []model.HistoryEntry) error {
	s := Summarize(entries)
	if s.Days == 0 {
		return nil
	}
	totals := make([]float64, len(entries))
	for i, e := range entries {
		totals[i] = float64(ledger.Total(e))
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Days: %d", s.Days),
		fmt.Sprintf("Avg Total KPI: %.2f", s.AvgTotal),
		fmt.Sprintf("Best day: %s (%d)", s.BestDate, s.BestTotal),
		fmt.Sprintf("Days at target: %d", s.DaysMetKPI),
		fmt.Sprintf("Trend: %s", Sparkline(MovingAverage(totals, 3))),
	}
	if top := TopCategories(entries, 3); len(top) > 0 {
		labels := make([]string, len(top))
		for i, c := range top {
			info, _ := model.Lookup(c)
			labels[i] = info.Label
		}
		lines = append(lines, "Top categories: "+strings.Join(labels, ", "))
	}
	return writeLines(w, lines)
}

// RenderEntry prints a single saved day.
func RenderEntry(w io.Writer, e model.HistoryEntry) error {
	if _, err := fmt.Fprintf(w, "Results for %s\n", e.Date); err != nil {
		return err
	}
	headers := []string{"Category", "Points"}
	rows := make([][]string, 0, len(model.Catalog)+2)
	for _, info := range model.Catalog {
		rows = append(rows, []string{info.Label, strconv.Itoa(e.Point(info.Key))})
	}
	rows = append(rows,
		[]string{"Total KPI", strconv.Itoa(ledger.Total(e))},
		[]string{"% of Total KPI Done", ledger.FormatPercent(e)},
	)
	return writeLines(w, formatTable(headers, rows, map[int]bool{1: true}))
}

// RenderArchive prints the salvTM rollover archive.
func RenderArchive(w io.Writer, records []model.ArchiveRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No salvTM archive yet.")
		return err
	}
	rows := make([][]string, 0, len(records))
	values := make([]float64, len(records))
	for i, rec := range records {
		rows = append(rows, []string{rec.Date, strconv.Itoa(rec.Value)})
		values[i] = float64(rec.Value)
	}
	if err := writeLines(w, formatTable([]string{"Date", "Salv(TM)"}, rows, map[int]bool{1: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTrend: %s\n", Sparkline(values))
	return err
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Package statsui provides the Bubble Tea history screen.
package statsui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/verte-zerg/kpicalc/internal/app"
	"github.com/verte-zerg/kpicalc/internal/csvio"
	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
	"github.com/verte-zerg/kpicalc/internal/stats"
)

// BackMsg asks the parent to return to the calculator.
type BackMsg struct{}

type mode int

const (
	modeBrowse mode = iota
	modeConfirmRemove
	modeConfirmClear
	modeDateInput
	modeEntry
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	modalStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the history screen.
type Model struct {
	ctx       context.Context
	app       *app.App
	exportDir string

	width  int
	height int

	mode      mode
	table     table.Model
	sortIndex int

	dateInput textinput.Model
	entry     model.HistoryEntry
	entryView viewport.Model

	notice string
	errMsg string
}

// NewModel constructs the history screen. Exported reports are written to
// exportDir.
func NewModel(ctx context.Context, a *app.App, exportDir string) *Model {
	m := &Model{
		ctx:       ctx,
		app:       a,
		exportDir: exportDir,
		entryView: viewport.New(0, 0),
	}
	m.dateInput = newInput("Date (DD/MM/YYYY): ")
	m.table = table.New(
		table.WithColumns(historyColumns("", true)),
		table.WithFocused(true),
	)
	m.table.SetStyles(historyTableStyles())
	m.Refresh()
	return m
}

// Refresh rebuilds the table from the application state.
func (m *Model) Refresh() {
	sorter := m.app.Sorter()
	m.table.SetColumns(historyColumns(sorter.Column(), sorter.Ascending()))
	entries := m.app.State().History
	rows := make([]table.Row, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, table.Row(stats.HistoryRow(i, e)))
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
	m.updateLayout()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeConfirmRemove, modeConfirmClear:
			return m.updateConfirm(msg)
		case modeDateInput:
			return m.updateDateInput(msg)
		case modeEntry:
			return m.updateEntry(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	m.errMsg = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "tab":
		return m, func() tea.Msg { return BackMsg{} }
	case "left", "h":
		m.moveSort(-1)
		return m, nil
	case "right", "l":
		m.moveSort(1)
		return m, nil
	case "s", "enter":
		m.applySort()
		return m, nil
	case "x", "delete":
		if len(m.table.Rows()) == 0 {
			return m, nil
		}
		m.mode = modeConfirmRemove
		return m, nil
	case "C":
		if len(m.table.Rows()) == 0 {
			return m, nil
		}
		m.mode = modeConfirmClear
		return m, nil
	case "v", "/":
		m.mode = modeDateInput
		m.dateInput.SetValue(m.selectedDate())
		return m, m.dateInput.Focus()
	case "E":
		m.exportAll()
		return m, nil
	case "g", "home":
		m.table.GotoTop()
		return m, nil
	case "G", "end":
		m.table.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if m.mode == modeConfirmRemove {
			m.removeSelected()
		} else {
			m.clearAll()
		}
		m.mode = modeBrowse
	case "n", "N", "esc":
		m.mode = modeBrowse
	}
	return m, nil
}

func (m *Model) updateDateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.dateInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.dateInput.Blur()
		m.viewDate(strings.TrimSpace(m.dateInput.Value()))
		return m, nil
	}
	var cmd tea.Cmd
	m.dateInput, cmd = m.dateInput.Update(msg)
	return m, cmd
}

func (m *Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "v":
		m.mode = modeBrowse
		return m, nil
	case "e":
		m.exportEntry()
		return m, nil
	}
	var cmd tea.Cmd
	m.entryView, cmd = m.entryView.Update(msg)
	return m, cmd
}

func (m *Model) moveSort(delta int) {
	count := len(ledger.Columns())
	m.sortIndex = (m.sortIndex + delta + count) % count
}

func (m *Model) applySort() {
	column := ledger.Columns()[m.sortIndex]
	if err := m.app.SortHistory(m.ctx, column); err != nil {
		m.fail("failed to sort history", err)
		return
	}
	m.Refresh()
}

func (m *Model) removeSelected() {
	idx := m.table.Cursor()
	removed, ok, err := m.app.Remove(m.ctx, idx)
	if err != nil {
		m.fail("failed to remove entry", err)
		return
	}
	if !ok {
		return
	}
	m.notice = fmt.Sprintf("Removed %s", removed.Date)
	m.Refresh()
}

func (m *Model) clearAll() {
	if err := m.app.ClearHistory(m.ctx); err != nil {
		m.fail("failed to clear history", err)
		return
	}
	m.notice = "History cleared"
	m.Refresh()
}

func (m *Model) viewDate(date string) {
	e, err := m.app.FindEntry(date)
	if err != nil {
		m.mode = modeBrowse
		if errors.Is(err, app.ErrEntryNotFound) {
			m.errMsg = "No data found for the selected date."
			return
		}
		m.fail("failed to find entry", err)
		return
	}
	var buf bytes.Buffer
	if err := stats.RenderEntry(&buf, e); err != nil {
		m.mode = modeBrowse
		m.fail("failed to render entry", err)
		return
	}
	m.entry = e
	m.entryView.SetContent(strings.TrimRight(buf.String(), "\n"))
	m.entryView.GotoTop()
	m.mode = modeEntry
}

func (m *Model) exportEntry() {
	path := filepath.Join(m.exportDir, csvio.ReportFileName(m.entry.Date))
	err := writeFile(path, func(w io.Writer) error {
		return m.app.ExportDate(w, m.entry.Date)
	})
	if err != nil {
		m.fail("failed to export report", err)
		return
	}
	m.notice = "Exported " + path
	ctxlog.From(m.ctx).Info("report exported", slog.String("path", path))
}

func (m *Model) exportAll() {
	path := filepath.Join(m.exportDir, csvio.DefaultFileName)
	if err := writeFile(path, m.app.Export); err != nil {
		m.fail("failed to export history", err)
		return
	}
	m.notice = "Exported " + path
	ctxlog.From(m.ctx).Info("history exported", slog.String("path", path))
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "failed to create file", goerr.V("path", path))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = goerr.Wrap(cerr, "failed to close file", goerr.V("path", path))
		}
	}()
	return fn(f)
}

func (m *Model) fail(msg string, err error) {
	m.errMsg = err.Error()
	ctxlog.From(m.ctx).Error(msg, slog.Any("error", err))
}

func (m *Model) selectedDate() string {
	row := m.table.SelectedRow()
	if len(row) < 2 {
		return ""
	}
	return row[1]
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	switch m.mode {
	case modeConfirmRemove:
		return m.renderModal("Remove entry", fmt.Sprintf("Delete the entry for %s? (y/n)", m.selectedDate()))
	case modeConfirmClear:
		return m.renderModal("Clear history", "Are you sure you want to clear all history? (y/n)")
	case modeDateInput:
		return m.renderModal("View date", m.dateInput.View()+"\n"+headerStyle.Render("Enter to view / Esc to cancel"))
	}

	header := fitLines(m.renderHeader(), m.width, 2)
	footer := fitLines(m.renderFooter(), m.width, 2)
	bodyHeight := maxInt(1, m.height-4)
	var body string
	switch {
	case m.mode == modeEntry:
		body = m.entryView.View()
	case len(m.table.Rows()) == 0:
		body = "No history saved."
	default:
		body = tableMutedStyle.Render(m.table.View())
	}
	return strings.Join([]string{header, fitLines(body, m.width, bodyHeight), footer}, "\n")
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("History")
	if m.mode == modeEntry {
		title = titleStyle.Render("Results for " + m.entry.Date)
	}
	sorter := m.app.Sorter()
	sorted := "unsorted"
	if sorter.Column() != "" {
		sorted = sorter.Column() + " " + directionLabel(sorter.Ascending())
	}
	next := activeStyle.Render(ledger.Columns()[m.sortIndex])
	return title + "\n" + headerStyle.Render("Sorted: "+sorted+"  Sort column: ") + next
}

func (m *Model) renderFooter() string {
	help := "Sort: left/right + s  Remove: x  Clear: C  View: v  Export: E  Back: esc  Quit: q"
	if m.mode == modeEntry {
		help = "Export report: e  Back: esc  Quit: q"
	}
	lines := []string{headerStyle.Render(truncateLine(help, m.width))}
	switch {
	case m.errMsg != "":
		lines = append(lines, errorStyle.Render(m.errMsg))
	case m.notice != "":
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderModal(title, body string) string {
	content := titleStyle.Render(title) + "\n\n" + body
	box := modalStyle.Width(modalWidth(m.width)).Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	bodyHeight := maxInt(1, m.height-4)
	m.table.SetWidth(m.width)
	m.table.SetHeight(bodyHeight)
	m.entryView.Width = m.width
	m.entryView.Height = bodyHeight
	m.dateInput.Width = maxInt(10, modalWidth(m.width)-6-lipgloss.Width(m.dateInput.Prompt))
}

func historyColumns(sortColumn string, ascending bool) []table.Column {
	headers := stats.HistoryHeaders()
	keys := append([]string{""}, ledger.Columns()...)
	cols := make([]table.Column, len(headers))
	for i, title := range headers {
		if keys[i] != "" && keys[i] == sortColumn {
			title += " " + directionLabel(ascending)
		}
		width := maxInt(lipgloss.Width(title), 6)
		if i == 1 {
			width = maxInt(width, len(model.DateLayout))
		}
		cols[i] = table.Column{Title: title, Width: width}
	}
	return cols
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func directionLabel(ascending bool) string {
	if ascending {
		return "asc"
	}
	return "desc"
}

func newInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = len(model.DateLayout)
	input.Placeholder = "DD/MM/YYYY"
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 72))
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

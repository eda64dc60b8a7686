// Package tui provides the Bubble Tea calculator interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/m-mizutani/ctxlog"

	"github.com/verte-zerg/kpicalc/internal/app"
	"github.com/verte-zerg/kpicalc/internal/csvio"
	"github.com/verte-zerg/kpicalc/internal/kpi"
	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
	"github.com/verte-zerg/kpicalc/internal/stats"
	"github.com/verte-zerg/kpicalc/internal/statsui"
)

type screen int

const (
	screenCalculator screen = iota
	screenHistory
)

const progressWidth = 30

// Model implements the Bubble Tea calculator UI.
type Model struct {
	ctx     context.Context
	app     *app.App
	history *statsui.Model
	screen  screen

	width  int
	height int

	cursor     int
	editing    bool
	input      textinput.Model
	savePrompt bool

	notice string
	errMsg string
}

// NewModel constructs the calculator UI. The history screen exports
// reports to exportDir.
func NewModel(ctx context.Context, a *app.App, exportDir string) *Model {
	input := textinput.New()
	input.Prompt = "New count: "
	input.CharLimit = 9
	input.Cursor.SetMode(cursor.CursorBlink)
	return &Model{
		ctx:     ctx,
		app:     a,
		history: statsui.NewModel(ctx, a, exportDir),
		input:   input,
	}
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
		m.history.Update(msg)
		return m, nil
	case tea.FocusMsg:
		m.reload()
		return m, nil
	case statsui.BackMsg:
		m.screen = screenCalculator
		return m, tea.ClearScreen
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.screen == screenHistory {
			_, cmd := m.history.Update(msg)
			return m, cmd
		}
		switch {
		case m.editing:
			return m.updateEdit(msg)
		case m.savePrompt:
			return m.updateSavePrompt(msg)
		case !m.app.State().Settings.CalculatorVisible:
			return m.updateHidden(msg)
		}
		return m.updateCalculator(msg)
	}
	if m.screen == screenHistory {
		_, cmd := m.history.Update(msg)
		return m, cmd
	}
	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateCalculator(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	m.errMsg = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "right", "l", "+", "=":
		m.step(1)
	case "left", "h", "-":
		m.step(-1)
	case "enter", "e":
		m.editing = true
		m.input.SetValue(strconv.Itoa(m.app.Tally().Counters[m.selected()]))
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "n":
		m.newDay()
	case "s":
		if m.app.HasEntryToday() {
			m.savePrompt = true
			return m, nil
		}
		m.save(ledger.PolicyAsk)
	case "t":
		if _, err := m.app.ToggleNightMode(m.ctx); err != nil {
			m.fail("failed to toggle night mode", err)
		}
	case " ", "space":
		m.setVisible(false)
	case "tab":
		m.screen = screenHistory
		m.history.Refresh()
		return m, tea.ClearScreen
	}
	return m, nil
}

func (m *Model) updateHidden(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case " ", "space", "enter":
		m.setVisible(true)
	}
	return m, nil
}

func (m *Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		count := csvio.LeadingInt(m.input.Value())
		if err := m.app.Set(m.ctx, m.selected(), count); err != nil {
			m.fail("failed to set count", err)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateSavePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "o", "O":
		m.savePrompt = false
		m.save(ledger.PolicyOverride)
	case "c", "C":
		m.savePrompt = false
		m.save(ledger.PolicyCreateNew)
	case "esc", "q":
		m.savePrompt = false
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	count := len(model.Catalog)
	m.cursor = (m.cursor + delta + count) % count
}

func (m *Model) selected() model.Category {
	return model.Catalog[m.cursor].Key
}

func (m *Model) step(delta int) {
	if err := m.app.Step(m.ctx, m.selected(), delta); err != nil {
		m.fail("failed to update count", err)
	}
}

func (m *Model) newDay() {
	rec, err := m.app.NewDay(m.ctx)
	if err != nil {
		m.fail("failed to start new day", err)
		return
	}
	m.notice = fmt.Sprintf("New day started, archived Salv(TM) %d for %s", rec.Value, rec.Date)
}

func (m *Model) save(policy ledger.Policy) {
	entry, err := m.app.Save(m.ctx, policy)
	if err != nil {
		if errors.Is(err, ledger.ErrDateExists) {
			m.savePrompt = true
			return
		}
		m.fail("failed to save history", err)
		return
	}
	m.notice = "Values saved to history for " + entry.Date
}

func (m *Model) setVisible(visible bool) {
	if err := m.app.SetCalculatorVisible(m.ctx, visible); err != nil {
		m.fail("failed to change visibility", err)
	}
}

func (m *Model) reload() {
	if err := m.app.Reload(m.ctx); err != nil {
		m.fail("failed to reload state", err)
		return
	}
	m.history.Refresh()
	ctxlog.From(m.ctx).Debug("state reloaded on focus")
}

func (m *Model) fail(msg string, err error) {
	m.errMsg = err.Error()
	ctxlog.From(m.ctx).Error(msg, slog.Any("error", err))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.screen == screenHistory {
		return m.history.View()
	}
	p := paletteFor(m.app.State().Settings.NightMode)
	var content string
	switch {
	case !m.app.State().Settings.CalculatorVisible:
		content = p.muted.Render("KPI calculator hidden. Press space to show.")
	case m.savePrompt:
		content = m.renderSavePrompt(p)
	default:
		content = m.renderCalculator(p)
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter(p)
	bodyHeight := m.height - lipgloss.Height(footer)
	if bodyHeight < 1 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content, p.whitespace()...)
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content, p.whitespace()...)
	footerLines := lipgloss.Place(m.width, lipgloss.Height(footer), lipgloss.Center, lipgloss.Bottom, footer, p.whitespace()...)
	return body + "\n" + footerLines
}

func (m *Model) renderCalculator(p palette) string {
	tally := m.app.Tally()
	points := kpi.Points(tally.Counters)
	labelWidth := 0
	for _, info := range model.Catalog {
		labelWidth = max(labelWidth, lipgloss.Width(info.Label))
	}

	lines := []string{p.title.Render("KPI Calculator  " + m.app.Today()), ""}
	for i, info := range model.Catalog {
		line := fmt.Sprintf("%-*s %5d  %5d pts", labelWidth, info.Label, tally.Counters[info.Key], points[info.Key])
		if i == m.cursor {
			lines = append(lines, p.selected.Render("> "+line))
			continue
		}
		lines = append(lines, p.text.Render("  "+line))
	}
	lines = append(lines, "")
	if m.editing {
		lines = append(lines, m.input.View(), "")
	}
	lines = append(lines, renderStatus(p, m.app.Status()))
	return strings.Join(lines, "\n")
}

func renderStatus(p palette, status kpi.Status) string {
	lines := []string{
		p.text.Render(fmt.Sprintf("KPI value: %d", status.Value)),
		p.text.Render(status.Label()),
		progressBar(p, status) + p.text.Render(fmt.Sprintf(" %.2f%%", status.Percent)),
	}
	return strings.Join(lines, "\n")
}

func progressBar(p palette, status kpi.Status) string {
	filled := stats.FilledCells(status.Percent, progressWidth)
	r, g, b := status.RGB()
	fill := lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, b)))
	return fill.Render(strings.Repeat("█", filled)) + p.muted.Render(strings.Repeat("░", progressWidth-filled))
}

func (m *Model) renderSavePrompt(p palette) string {
	body := strings.Join([]string{
		p.title.Render("Entry already exists"),
		"",
		p.text.Render("An entry for " + m.app.Today() + " is already saved."),
		p.text.Render("o: Override  c: Create New  esc: Cancel"),
	}, "\n")
	return p.modal.Render(body)
}

func (m *Model) renderFooter(p palette) string {
	help := "Select: up/down  +/-: left/right  Edit: enter  New day: n  Save: s  Night: t  Hide: space  History: tab  Quit: q"
	if !m.app.State().Settings.CalculatorVisible {
		help = "Show: space  Quit: q"
	}
	segments := []string{p.muted.Render(help)}
	switch {
	case m.errMsg != "":
		segments = append(segments, p.err.Render(m.errMsg))
	case m.notice != "":
		segments = append(segments, p.notice.Render(m.notice))
	}
	return strings.Join(segments, "\n")
}

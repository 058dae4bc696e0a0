package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/paging"
)

const descriptionWidth = 48

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D9A441"))
	labelStyle  = lipgloss.NewStyle().Width(9).Foreground(lipgloss.Color("245"))
	focusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D9A441")).Bold(true)
	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("240"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#A23B2A")).Padding(0, 1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C5A"))

	columns = []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Shape", Width: 12},
		{Title: "Culture", Width: 12},
		{Title: "Tags", Width: 22},
		{Title: "Description", Width: descriptionWidth},
	}
)

// View implements tea.Model
func (m Model) View() string {
	state := m.catalog.State()

	sections := []string{
		titleStyle.Render("Archaeological catalog"),
		m.renderInputs(),
		m.renderItems(state),
		m.renderFooter(state),
	}
	for _, a := range m.catalog.Alerts() {
		sections = append(sections, alertStyle.Render(a))
	}
	if m.status != "" {
		sections = append(sections, errorStyle.Render(m.status))
	}
	sections = append(sections, dimStyle.Render("tab field • ↑/↓ choose shape/culture • pgup/pgdn page • ctrl+home/ctrl+end first/last • ctrl+r refresh • esc quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) renderInputs() string {
	opts := m.catalog.Options()
	rows := make([]string, 0, len(fields))
	for i, field := range fields {
		label := labelStyle.Render(string(field))
		if i == m.focus {
			label = focusStyle.Width(9).Render(string(field))
		}
		row := label + m.inputs[i].View()
		if (field == catalog.FieldShape || field == catalog.FieldCulture) && opts.Loading {
			row += dimStyle.Render("  loading options…")
		}
		rows = append(rows, row)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderItems(state paging.State[catalog.Artifact]) string {
	if state.Loading {
		return m.spinner.View() + dimStyle.Render(" Loading…")
	}
	if len(state.Items) == 0 {
		return dimStyle.Render("No artifacts match these filters.")
	}

	rows := make([]table.Row, 0, len(state.Items))
	for _, a := range state.Items {
		rows = append(rows, table.Row{
			fmt.Sprint(a.ID),
			a.Attributes.Shape.Value,
			a.Attributes.Culture.Value,
			strings.Join(a.TagValues(), ", "),
			a.Summary(descriptionWidth),
		})
	}

	styles := table.DefaultStyles()
	styles.Header = headerStyle
	// The table only displays; nothing is selected
	styles.Selected = lipgloss.NewStyle()

	t := table.New(
		table.WithColumns(columns),
		table.WithStyles(styles),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+lipgloss.Height(headerStyle.Render(""))),
	)
	return t.View()
}

func (m Model) renderFooter(state paging.State[catalog.Artifact]) string {
	p := state.Pagination
	position := fmt.Sprintf("page %d", p.CurrentPage)
	if p.Known() {
		position = fmt.Sprintf("page %d of %d (%d total)", p.CurrentPage, p.TotalPages, p.Total)
	}
	if state.Phase == paging.PhaseDebouncing || state.Phase == paging.PhaseInFlight {
		position += " " + m.spinner.View() + " updating"
	}

	query := m.catalog.ShareableQuery()
	if query != "" {
		query = "?" + query
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, position, dimStyle.Render("  "+query))
}

// Package tui implements the interactive catalog browser on top of a view.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/filtering"
	"github.com/stacklok/catalog-browser/internal/metadata"
	"github.com/stacklok/catalog-browser/internal/paging"
	"github.com/stacklok/catalog-browser/internal/querystring"
)

// Catalog is the part of a mounted view the browser drives
type Catalog interface {
	Update(field catalog.Field, value any) error
	SetPage(page int) error
	NextPage() error
	PreviousPage() error
	Refresh() error
	State() paging.State[catalog.Artifact]
	Criteria() catalog.Criteria
	Options() metadata.Options
	Alerts() []string
	ShareableQuery() string
	Subscribe(fn func())
}

// changedMsg tells the model the catalog state moved under it
type changedMsg struct{}

var fields = []catalog.Field{
	catalog.FieldQuery,
	catalog.FieldShape,
	catalog.FieldCulture,
	catalog.FieldTags,
}

var placeholders = map[catalog.Field]string{
	catalog.FieldQuery:   "description or id",
	catalog.FieldShape:   "any shape",
	catalog.FieldCulture: "any culture",
	catalog.FieldTags:    "comma-separated",
}

// Model is the bubbletea model of the browser
type Model struct {
	catalog Catalog
	focus   int
	inputs  []textinput.Model
	spinner spinner.Model
	status  string
	width   int
}

// NewModel creates a browser over a mounted catalog view, with the inputs
// filled from its current criteria
func NewModel(c Catalog) Model {
	criteria := c.Criteria()
	values := map[catalog.Field]string{
		catalog.FieldQuery:   criteria.Query,
		catalog.FieldShape:   criteria.Shape,
		catalog.FieldCulture: criteria.Culture,
		catalog.FieldTags:    querystring.JoinTags(criteria.Tags),
	}

	inputs := make([]textinput.Model, len(fields))
	for i, field := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = placeholders[field]
		in.CharLimit = 200
		in.TextStyle = inputStyle
		in.PlaceholderStyle = dimStyle
		in.SetValue(values[field])
		in.CursorEnd()
		inputs[i] = in
	}
	inputs[0].Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = dimStyle

	return Model{catalog: c, inputs: inputs, spinner: s}
}

// Run shows the browser until the user quits or ctx is done
func Run(ctx context.Context, c Catalog) error {
	p := tea.NewProgram(NewModel(c), tea.WithAltScreen(), tea.WithContext(ctx))
	c.Subscribe(func() { p.Send(changedMsg{}) })
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The inputs are updated in place; earlier copies of the model keep theirs
	m.inputs = slices.Clone(m.inputs)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case changedMsg:
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and other input messages
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// Focused returns the field being edited
func (m Model) Focused() catalog.Field {
	return fields[m.focus]
}

// Input returns the text typed into field
func (m Model) Input(field catalog.Field) string {
	i := slices.Index(fields, field)
	if i < 0 {
		return ""
	}
	return m.inputs[i].Value()
}

// Status returns the last error shown in the status line
func (m Model) Status() string {
	return m.status
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab:
		return m.moveFocus(1)
	case tea.KeyShiftTab:
		return m.moveFocus(-1)
	case tea.KeyPgUp:
		return m.report(m.catalog.PreviousPage()), nil
	case tea.KeyPgDown:
		return m.report(m.catalog.NextPage()), nil
	case tea.KeyCtrlHome:
		return m.report(m.catalog.SetPage(catalog.FirstPage)), nil
	case tea.KeyCtrlEnd:
		if p := m.catalog.State().Pagination; p.Known() {
			return m.report(m.catalog.SetPage(p.TotalPages)), nil
		}
		return m, nil
	case tea.KeyCtrlR:
		return m.report(m.catalog.Refresh()), nil
	case tea.KeyUp:
		return m.cycleOption(-1), nil
	case tea.KeyDown:
		return m.cycleOption(1), nil
	}

	// Everything else edits the focused input. Every change is an update;
	// the fetcher's debounce coalesces them.
	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		m = m.push(after)
	}
	return m, cmd
}

func (m Model) moveFocus(step int) (tea.Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + step + len(fields)) % len(fields)
	return m, m.inputs[m.focus].Focus()
}

// push sends the focused input's text to the filter
func (m Model) push(text string) Model {
	field := m.Focused()
	var value any = text
	if field == catalog.FieldTags {
		value = splitTagInput(text)
	}
	return m.report(m.catalog.Update(field, value))
}

// cycleOption steps the shape or culture input through the loaded options,
// with the empty value meaning "any"
func (m Model) cycleOption(step int) Model {
	opts := m.catalog.Options()
	var choices []string
	switch m.Focused() {
	case catalog.FieldShape:
		choices = opts.Shapes
	case catalog.FieldCulture:
		choices = opts.Cultures
	default:
		return m
	}
	if opts.Disabled() || len(choices) == 0 {
		return m
	}

	choices = append([]string{""}, choices...)
	current := slices.IndexFunc(choices, func(c string) bool {
		return strings.EqualFold(c, m.inputs[m.focus].Value())
	})
	if current < 0 {
		current = 0
	}
	next := choices[(current+step+len(choices))%len(choices)]
	m.inputs[m.focus].SetValue(next)
	m.inputs[m.focus].CursorEnd()
	return m.push(next)
}

func (m Model) report(err error) Model {
	if err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
	return m
}

// splitTagInput turns comma-separated input into distinct tags
func splitTagInput(text string) []string {
	return filtering.DedupeTags(strings.Split(text, querystring.TagSeparator))
}

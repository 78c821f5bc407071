// Copyright 2026 The Handforge Authors
// SPDX-License-Identifier: Apache-2.0

// Package tuneui is the interactive parameter tuner: a two-pane
// terminal UI with the parameter roster on the left and a live preview
// of the assembled program text on the right. Edits are validated
// against the parameter schema as they are committed, and the preview
// reassembles on every change so the user sees exactly what a value
// does to the emitted source.
package tuneui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/handforge-project/handforge/lib/assemble"
	"github.com/handforge-project/handforge/lib/params"
)

// keyMap binds the tuner's actions.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Edit   key.Binding
	Toggle key.Binding
	Reset  key.Binding
	Build  key.Binding
	Quit   key.Binding
}

var defaultKeys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Edit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit value")),
	Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle boolean")),
	Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset to default")),
	Build:  key.NewBinding(key.WithKeys("ctrl+d", "b"), key.WithHelp("b", "build and exit")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit without building")),
}

// Model is the tuner's bubbletea model. Construct with New.
type Model struct {
	set    *params.Set
	target assemble.Target
	opts   assemble.Options

	cursor  int
	editing bool
	input   textinput.Model
	status  string

	accepted bool
	width    int
	height   int

	keys   keyMap
	styles styles
}

// styles holds the lipgloss chrome, built once.
type styles struct {
	title    lipgloss.Style
	selected lipgloss.Style
	normal   lipgloss.Style
	faint    lipgloss.Style
	errText  lipgloss.Style
	preview  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		selected: lipgloss.NewStyle().Background(lipgloss.Color("237")).Foreground(lipgloss.Color("255")),
		normal:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		faint:    lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		preview:  lipgloss.NewStyle().Foreground(lipgloss.Color("108")),
	}
}

// New builds a tuner over the given starting values. The set is
// modified in place as edits are committed, so the caller reads the
// final values from the same set after the program exits.
func New(set *params.Set, target assemble.Target, opts assemble.Options) Model {
	input := textinput.New()
	input.CharLimit = 64
	input.Prompt = "> "
	return Model{
		set:    set,
		target: target,
		opts:   opts,
		input:  input,
		keys:   defaultKeys,
		styles: newStyles(),
		width:  100,
		height: 30,
	}
}

// Accepted reports whether the user chose to build on exit.
func (m Model) Accepted() bool { return m.accepted }

// Set returns the edited parameter set.
func (m Model) Set() *params.Set { return m.set }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	field := params.Schema[m.cursor]
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(params.Schema)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if field.Kind == params.KindBool {
			current := m.set.Resolve(field.Name)
			m.set.Put(field.Name, params.BoolValue(!current.Bool))
			m.status = ""
		}
	case key.Matches(msg, m.keys.Reset):
		m.set.Put(field.Name, field.Default)
		m.status = ""
	case key.Matches(msg, m.keys.Edit):
		if field.Kind == params.KindBool {
			current := m.set.Resolve(field.Name)
			m.set.Put(field.Name, params.BoolValue(!current.Bool))
			return m, nil
		}
		m.editing = true
		m.input.SetValue(valueText(m.set.Resolve(field.Name)))
		m.input.CursorEnd()
		m.input.Focus()
		m.status = ""
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Build):
		m.accepted = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		field := params.Schema[m.cursor]
		value, err := parseValue(field, m.input.Value())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.set.Put(field.Name, value)
		m.editing = false
		m.input.Blur()
		m.status = ""
		return m, nil
	case "esc":
		m.editing = false
		m.input.Blur()
		m.status = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// parseValue converts edited text to a schema value.
func parseValue(field params.Field, raw string) (params.Value, error) {
	raw = strings.TrimSpace(raw)
	switch field.Kind {
	case params.KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params.Value{}, fmt.Errorf("%s wants a number", field.Name)
		}
		return params.NumberValue(f), nil
	case params.KindText:
		if len([]rune(raw)) > params.MaxTextLen {
			return params.Value{}, fmt.Errorf("%s is limited to %d characters", field.Name, params.MaxTextLen)
		}
		return params.TextValue(raw), nil
	default:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return params.Value{}, fmt.Errorf("%s wants true or false", field.Name)
		}
		return params.BoolValue(b), nil
	}
}

// valueText renders a value for display and editing.
func valueText(v params.Value) string {
	switch v.Kind {
	case params.KindBool:
		return strconv.FormatBool(v.Bool)
	case params.KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	default:
		return v.Text
	}
}

// View implements tea.Model.
func (m Model) View() string {
	listWidth := m.width * 2 / 5
	if listWidth < 32 {
		listWidth = 32
	}
	previewWidth := m.width - listWidth - 3
	if previewWidth < 20 {
		previewWidth = 20
	}

	var list strings.Builder
	list.WriteString(m.styles.title.Render("parameters ("+m.target.String()+")") + "\n")
	for i, field := range params.Schema {
		value := valueText(m.set.Resolve(field.Name))
		modified := " "
		if current, ok := m.set.Get(field.Name); ok && current != field.Default {
			modified = "*"
		}
		row := fmt.Sprintf("%s %-18s %s", modified, field.Name, value)
		if i == m.cursor && m.editing {
			row = fmt.Sprintf("%s %-18s %s", modified, field.Name, m.input.View())
		}
		row = ansi.Truncate(row, listWidth, "…")
		if i == m.cursor {
			row = m.styles.selected.Render(row)
		} else {
			row = m.styles.normal.Render(row)
		}
		list.WriteString(row + "\n")
	}
	list.WriteString("\n" + m.styles.faint.Render(params.Schema[m.cursor].Doc))
	if m.status != "" {
		list.WriteString("\n" + m.styles.errText.Render(m.status))
	}

	preview := m.renderPreview(previewWidth)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Render(list.String()),
		"   ",
		preview,
	)

	help := m.styles.faint.Render("enter edit · space toggle · r reset · b build · q quit")
	return body + "\n" + help + "\n"
}

// renderPreview assembles the program text for the current values and
// clips it to the preview pane.
func (m Model) renderPreview(width int) string {
	text := assemble.Assemble(m.set, m.target, m.opts)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	maxLines := m.height - 4
	if maxLines < 5 {
		maxLines = 5
	}
	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "…")
	}
	return m.styles.preview.Render(strings.Join(lines, "\n"))
}

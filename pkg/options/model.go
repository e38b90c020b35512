// Package options is the interactive terminal editor of the feature
// toggles. Every change is written to the settings store as soon as it is
// made; a running agent picks it up and reloads its page.
package options

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/pagekeeper/pkg/settings"
)

type itemKind int

const (
	kindToggle itemKind = iota
	kindText
)

type item struct {
	key         string
	title       string
	description string
	kind        itemKind
	section     string
}

const (
	sectionFeatures   = "Features"
	sectionAppearance = "Appearance"
)

// items lists every editable key in display order.
func items() []item {
	var out []item
	for _, f := range settings.Flags {
		out = append(out, item{
			key:         f.Key,
			title:       f.Title,
			description: f.Description,
			kind:        kindToggle,
			section:     sectionFeatures,
		})
		if f.Key == settings.KeyUPSPhone {
			out = append(out, item{
				key:         settings.KeyUPSPhoneNumber,
				title:       "UPS phone number",
				description: "The number written into the phone field.",
				kind:        kindText,
				section:     sectionFeatures,
			})
		}
	}
	out = append(out, item{
		key:         settings.KeyDarkMode,
		title:       "Dark mode",
		description: "Use the dark color theme in this editor.",
		kind:        kindToggle,
		section:     sectionAppearance,
	})
	return out
}

// Model is the bubbletea model of the options editor.
type Model struct {
	store  settings.Store
	items  []item
	values map[string]any
	cursor int

	editing bool
	input   textinput.Model

	status string
	err    error

	width  int
	height int
}

// New loads the current settings from store.
func New(store settings.Store) (*Model, error) {
	stored, err := store.Get(settings.AreaSync)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	values := settings.FromData(stored).Data()
	dark, _ := stored[settings.KeyDarkMode].(bool)
	values[settings.KeyDarkMode] = dark

	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 32
	input.Placeholder = settings.DefaultUPSPhoneValue

	return &Model{
		store:  store,
		items:  items(),
		values: values,
		input:  input,
	}, nil
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
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.handleEditKey(msg)
		}
		return m.handleKeyPress(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ", "enter":
		return m, m.activate()
	}
	return m, nil
}

func (m *Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.stopEditing()
		m.status = "Edit canceled"
		return m, nil
	case "enter":
		key := m.items[m.cursor].key
		value, err := settings.ParseValue(key, m.input.Value())
		m.stopEditing()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.set(key, value)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// activate toggles the focused flag or starts editing the focused text.
func (m *Model) activate() tea.Cmd {
	it := m.items[m.cursor]
	switch it.kind {
	case kindToggle:
		on, _ := m.values[it.key].(bool)
		m.set(it.key, !on)
		return nil
	case kindText:
		current, _ := m.values[it.key].(string)
		m.editing = true
		m.err = nil
		m.input.SetValue(current)
		m.input.CursorEnd()
		return m.input.Focus()
	}
	return nil
}

func (m *Model) stopEditing() {
	m.editing = false
	m.input.Blur()
	m.input.Reset()
}

// set writes one value through to the store.
func (m *Model) set(key string, value any) {
	m.err = nil
	if err := m.store.Set(settings.AreaSync, map[string]any{key: value}); err != nil {
		m.err = err
		return
	}
	if err := m.store.Save(); err != nil {
		m.err = err
		return
	}
	m.values[key] = value
	m.status = fmt.Sprintf("Saved %s", key)
}

func (m *Model) darkMode() bool {
	on, _ := m.values[settings.KeyDarkMode].(bool)
	return on
}

// View implements tea.Model.
func (m *Model) View() string {
	p := lightPalette
	if m.darkMode() {
		p = darkPalette
	}
	st := newStyles(p)

	var b strings.Builder
	b.WriteString(st.title.Render("pagekeeper options"))
	b.WriteString("\n")
	b.WriteString(st.help.Render(m.helpText()))
	b.WriteString("\n")

	section := ""
	for i, it := range m.items {
		if it.section != section {
			section = it.section
			b.WriteString("\n")
			b.WriteString(st.section.Render("▸ " + section))
			b.WriteString("\n")
		}
		b.WriteString(m.renderItem(st, it, i == m.cursor))
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(st.err.Render("✗ " + m.err.Error()))
	case m.status != "":
		b.WriteString(st.status.Render("✓ " + m.status))
	}

	return st.container.Render(b.String())
}

func (m *Model) helpText() string {
	if m.editing {
		return "Enter: Save • Esc: Cancel"
	}
	return strings.Join([]string{"↑↓/jk: Navigate", "Space/Enter: Toggle or edit", "Esc/q: Quit"}, " • ")
}

func (m *Model) renderItem(st styles, it item, focused bool) string {
	prefix := "  "
	label := st.label
	if focused {
		prefix = "➜ "
		label = st.focused
	}

	var line string
	switch it.kind {
	case kindToggle:
		check := "[ ]"
		if on, _ := m.values[it.key].(bool); on {
			check = st.check.Render("[x]")
		}
		line = fmt.Sprintf("%s%s %s", prefix, check, label.Render(it.title))
	case kindText:
		value, _ := m.values[it.key].(string)
		if focused && m.editing {
			line = fmt.Sprintf("%s%s: %s", prefix, label.Render(it.title), m.input.View())
		} else {
			line = fmt.Sprintf("%s%s: %s", prefix, label.Render(it.title), value)
		}
	}

	if focused {
		line += "\n    " + st.description.Render(it.description)
	}
	return line + "\n"
}

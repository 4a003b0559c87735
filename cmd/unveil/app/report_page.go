package app

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"unveil/internal/report"
	"unveil/internal/types"
)

// submitIdx is the focus index of the submit button, after every field.
var submitIdx = len(report.Fields)

var placeholders = map[report.Field]string{
	report.FieldName:          "John Smith",
	report.FieldEmail:         "scammer@example.com",
	report.FieldPhone:         "(555) 123-4567",
	report.FieldCompany:       "Fake Company Inc.",
	report.FieldReporterEmail: "you@example.com",
	report.FieldReporterName:  "Your full name",
}

func (m *Model) initReportInputs() {
	m.fields = make(map[report.Field]*textinput.Model)
	for _, f := range report.Fields {
		if f == report.FieldActions || f == report.FieldDescription {
			continue
		}
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[f]
		ti.CharLimit = 254
		m.fields[f] = &ti
	}

	m.description = textarea.New()
	m.description.Placeholder = "Describe what happened (at least 20 characters)"
	m.description.CharLimit = m.cfg.Validation.DescriptionMaxLength
	m.description.ShowLineNumbers = false
	m.description.SetHeight(5)
	m.description.SetWidth(60)
}

func (m *Model) currentField() (report.Field, bool) {
	if m.fieldIdx < 0 || m.fieldIdx >= len(report.Fields) {
		return "", false
	}
	return report.Fields[m.fieldIdx], true
}

// focusField moves the form cursor to index i (wrapping) and focuses its input.
func (m *Model) focusField(i int) tea.Cmd {
	n := len(report.Fields) + 1
	m.fieldIdx = ((i % n) + n) % n

	for _, ti := range m.fields {
		ti.Blur()
	}
	m.description.Blur()

	f, ok := m.currentField()
	if !ok {
		return nil
	}
	if ti, isText := m.fields[f]; isText {
		return ti.Focus()
	}
	if f == report.FieldDescription {
		return m.description.Focus()
	}
	return nil
}

func (m *Model) handleReportKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.goHome()
		return nil
	case "ctrl+s":
		return m.submitReport()
	case "tab":
		return m.focusField(m.fieldIdx + 1)
	case "shift+tab":
		return m.focusField(m.fieldIdx - 1)
	}

	f, ok := m.currentField()
	if !ok {
		switch msg.String() {
		case "enter":
			return m.submitReport()
		case "up":
			return m.focusField(m.fieldIdx - 1)
		case "down":
			return m.focusField(m.fieldIdx + 1)
		}
		return nil
	}

	switch f {
	case report.FieldDescription:
		var cmd tea.Cmd
		m.description, cmd = m.description.Update(msg)
		m.form.UpdateField(f, m.description.Value())
		return cmd

	case report.FieldActions:
		switch msg.String() {
		case "left", "h":
			m.cycleAction(-1)
		case "right", "l", " ":
			m.cycleAction(1)
		case "up":
			return m.focusField(m.fieldIdx - 1)
		case "down", "enter":
			return m.focusField(m.fieldIdx + 1)
		}
		return nil
	}

	switch msg.String() {
	case "up":
		return m.focusField(m.fieldIdx - 1)
	case "down", "enter":
		return m.focusField(m.fieldIdx + 1)
	}
	ti := m.fields[f]
	updated, cmd := ti.Update(msg)
	*ti = updated
	m.form.UpdateField(f, ti.Value())
	return cmd
}

func (m *Model) cycleAction(delta int) {
	n := len(types.ScamTypes)
	if m.actionIdx < 0 {
		if delta > 0 {
			m.actionIdx = 0
		} else {
			m.actionIdx = n - 1
		}
	} else {
		m.actionIdx = ((m.actionIdx+delta)%n + n) % n
	}
	m.form.UpdateField(report.FieldActions, types.ScamTypes[m.actionIdx])
}

// updateReportInput forwards non-key messages to the focused input.
func (m *Model) updateReportInput(msg tea.Msg) tea.Cmd {
	f, ok := m.currentField()
	if !ok {
		return nil
	}
	if f == report.FieldDescription {
		var cmd tea.Cmd
		m.description, cmd = m.description.Update(msg)
		return cmd
	}
	if ti, isText := m.fields[f]; isText {
		updated, cmd := ti.Update(msg)
		*ti = updated
		return cmd
	}
	return nil
}

func (m *Model) resetReportInputs() {
	for _, ti := range m.fields {
		ti.SetValue("")
	}
	m.description.Reset()
	m.actionIdx = -1
	m.focusField(0)
}

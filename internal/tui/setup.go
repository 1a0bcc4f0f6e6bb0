// ABOUTME: Interactive TUI wizard for connecting the AI provider behind weekly summaries.
// ABOUTME: Walks a table of provider fields, then checks the connection before saving.
package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/diary/internal/summary"
)

// DefaultBaseURL is the default OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Phase is where the wizard is in its lifecycle.
type Phase int

const (
	PhaseEditing Phase = iota
	PhaseChecking
	PhaseConnected
	PhaseFailed
)

// Field indexes into the wizard's inputs.
const (
	FieldEndpoint = iota
	FieldModel
	FieldKey
	fieldCount
)

// ValidateFn checks that a provider accepts the given credentials.
type ValidateFn func(ctx context.Context, baseURL, apiKey, model string) error

type checkResultMsg struct {
	err error
}

// field describes one wizard question.
type field struct {
	title  string
	hint   string
	secret bool
	// settle normalizes the typed value; ok=false keeps the cursor on the field.
	settle func(m SetupModel, v string) (string, bool)
}

var fields = [fieldCount]field{
	FieldEndpoint: {
		title: "Endpoint",
		hint:  "Any OpenAI-compatible API. Enter keeps " + DefaultBaseURL,
		settle: func(_ SetupModel, v string) (string, bool) {
			if v == "" {
				return DefaultBaseURL, true
			}
			return strings.TrimRight(v, "/"), true
		},
	},
	FieldModel: {
		title: "Model",
		hint:  "Writes your weekly summary. Enter keeps " + summary.DefaultModel,
		settle: func(_ SetupModel, v string) (string, bool) {
			if v == "" {
				return summary.DefaultModel, true
			}
			return v, true
		},
	},
	FieldKey: {
		title:  "API Key",
		hint:   "Stored in your diary config with 0600 permissions. Local servers may leave it blank.",
		secret: true,
		settle: func(m SetupModel, v string) (string, bool) {
			return v, v != "" || isLocalEndpoint(m.inputs[FieldEndpoint].Value())
		},
	},
}

// isLocalEndpoint reports whether raw points at this machine, where
// self-hosted model servers usually run without a key.
func isLocalEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// checkCancel lets value-receiver copies of SetupModel share the cancel
// func of the running connection check.
type checkCancel struct {
	cancel context.CancelFunc
}

// SetupModel is the bubbletea model for the summary provider wizard.
type SetupModel struct {
	phase    Phase
	cur      int
	inputs   [fieldCount]textinput.Model
	spinner  spinner.Model
	validate ValidateFn
	check    *checkCancel
	checkErr error
	quitting bool
}

var (
	brandStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// NewSetupModel creates the wizard, pre-filled with any saved provider settings.
func NewSetupModel(baseURL, model, apiKey string) SetupModel {
	values := [fieldCount]string{baseURL, model, apiKey}
	placeholders := [fieldCount]string{DefaultBaseURL, summary.DefaultModel, "sk-..."}

	var inputs [fieldCount]textinput.Model
	for i := range inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.Width = 50
		if fields[i].secret {
			in.EchoMode = textinput.EchoPassword
		}
		in.SetValue(values[i])
		inputs[i] = in
	}
	inputs[FieldEndpoint].Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return SetupModel{
		inputs:   inputs,
		spinner:  s,
		validate: ValidateConnection,
		check:    &checkCancel{},
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEscape {
			m.quitting = true
			if m.check.cancel != nil {
				m.check.cancel()
			}
			return m, tea.Quit
		}
		switch m.phase {
		case PhaseEditing:
			return m.updateEditing(msg)
		case PhaseFailed:
			return m.updateFailed(msg)
		}

	case checkResultMsg:
		m.check.cancel = nil
		if msg.err == nil {
			m.phase = PhaseConnected
			return m, tea.Quit
		}
		m.checkErr = msg.err
		m.phase = PhaseFailed
		return m, nil

	case spinner.TickMsg:
		if m.phase == PhaseChecking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m SetupModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		v, ok := fields[m.cur].settle(m, strings.TrimSpace(m.inputs[m.cur].Value()))
		if !ok {
			return m, nil
		}
		m.inputs[m.cur].SetValue(v)
		if m.cur == fieldCount-1 {
			m.inputs[m.cur].Blur()
			return m.startCheck()
		}
		return m.moveTo(m.cur + 1)

	case tea.KeyShiftTab, tea.KeyUp:
		if m.cur > 0 {
			return m.moveTo(m.cur - 1)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.cur], cmd = m.inputs[m.cur].Update(msg)
	return m, cmd
}

func (m SetupModel) moveTo(i int) (tea.Model, tea.Cmd) {
	m.inputs[m.cur].Blur()
	m.cur = i
	m.inputs[m.cur].Focus()
	return m, textinput.Blink
}

func (m SetupModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return m, nil
	}
	switch msg.Runes[0] {
	case 'r':
		m.checkErr = nil
		return m.startCheck()
	case 'e':
		m.checkErr = nil
		m.phase = PhaseEditing
		return m.moveTo(FieldEndpoint)
	case 's':
		m.phase = PhaseConnected
		return m, tea.Quit
	case 'q':
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m SetupModel) startCheck() (tea.Model, tea.Cmd) {
	m.phase = PhaseChecking
	ctx, cancel := context.WithCancel(context.Background())
	m.check.cancel = cancel
	baseURL, model, apiKey := m.Result()
	fn := m.validate
	run := func() tea.Msg {
		return checkResultMsg{err: fn(ctx, baseURL, apiKey, model)}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   DIARY"))
	b.WriteString(titleStyle.Render(" - Weekly Summary Provider"))
	b.WriteString("\n\n")
	b.WriteString("Weekly summaries read the last 7 days of entries and are kept for a week.\n\n")

	switch m.phase {
	case PhaseEditing:
		m.writeAnswers(&b, m.cur)
		f := fields[m.cur]
		fmt.Fprintf(&b, "%s\n", titleStyle.Render(fmt.Sprintf("%d/%d  %s", m.cur+1, fieldCount, f.title)))
		fmt.Fprintf(&b, "%s\n", hintStyle.Render(f.hint))
		b.WriteString(m.inputs[m.cur].View())
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("enter next  shift+tab back  esc cancel"))
		b.WriteString("\n")

	case PhaseChecking:
		m.writeAnswers(&b, fieldCount)
		b.WriteString(m.spinner.View())
		b.WriteString(" Checking the provider...\n")

	case PhaseConnected:
		b.WriteString(doneStyle.Render("✓ Provider ready. Run `diary summary` to summarize your week."))
		b.WriteString("\n")

	case PhaseFailed:
		reason := "unknown error"
		if m.checkErr != nil {
			reason = m.checkErr.Error()
		}
		m.writeAnswers(&b, fieldCount)
		b.WriteString(failStyle.Render("✗ Provider check failed: " + reason))
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("[r]etry  [e]dit  [s]ave anyway  [q]uit"))
		b.WriteString("\n")
	}
	return b.String()
}

// writeAnswers lists the fields answered before index upto.
func (m SetupModel) writeAnswers(b *strings.Builder, upto int) {
	for i := 0; i < upto; i++ {
		v := m.inputs[i].Value()
		if fields[i].secret {
			if v == "" {
				v = "(none)"
			} else {
				v = strings.Repeat("*", len(v))
			}
		}
		fmt.Fprintf(b, "  %-9s %s\n", fields[i].title+":", answerStyle.Render(v))
	}
	if upto > 0 {
		b.WriteString("\n")
	}
}

// Result returns the endpoint, model, and API key as entered.
func (m SetupModel) Result() (baseURL, model, apiKey string) {
	return m.inputs[FieldEndpoint].Value(), m.inputs[FieldModel].Value(), m.inputs[FieldKey].Value()
}

// ShouldSave reports whether the wizard finished with a provider to save,
// either checked or kept with "save anyway".
func (m SetupModel) ShouldSave() bool {
	return m.phase == PhaseConnected && !m.quitting
}

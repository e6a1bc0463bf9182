// Package wizard implements the interactive `covprep init` flow.
package wizard

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/covprep/internal/application"
)

type (
	wizardState int

	initWizardModel struct {
		state     wizardState
		cfg       application.Config
		cursor    int
		confirmed bool
		aborted   bool
	}
)

const (
	stateIntro wizardState = iota
	stateEdit
	stateConfirm
)

const (
	rowNoDelete = iota
	rowHistory
	rowCount
)

// Run walks the user through the settings and returns the confirmed config.
// The second return value is false when the user cancelled.
func Run(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	model := &initWizardModel{state: stateIntro, cfg: cfg}
	program := tea.NewProgram(model, tea.WithInput(stdin), tea.WithOutput(stdout))
	res, err := program.Run()
	if err != nil {
		return cfg, false, err
	}
	finalModel, ok := res.(*initWizardModel)
	if !ok {
		return cfg, false, fmt.Errorf("unexpected wizard state")
	}
	if finalModel.aborted || !finalModel.confirmed {
		return cfg, false, nil
	}
	return finalModel.cfg, true, nil
}

func (m *initWizardModel) Init() tea.Cmd {
	return nil
}

func (m *initWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			switch m.state {
			case stateIntro:
				m.state = stateEdit
			case stateEdit:
				m.state = stateConfirm
			case stateConfirm:
				m.confirmed = true
				return m, tea.Quit
			}
		case "esc":
			if m.state == stateConfirm {
				m.state = stateEdit
			}
		case "up":
			if m.state == stateEdit && m.cursor > 0 {
				m.cursor--
			}
		case "down":
			if m.state == stateEdit && m.cursor < rowCount-1 {
				m.cursor++
			}
		case " ":
			if m.state == stateEdit {
				m.toggle()
			}
		}
	}
	return m, nil
}

func (m *initWizardModel) toggle() {
	switch m.cursor {
	case rowNoDelete:
		m.cfg.NoDelete = !m.cfg.NoDelete
	case rowHistory:
		m.cfg.History.Enabled = !m.cfg.History.Enabled
	}
}

func (m *initWizardModel) View() string {
	var b strings.Builder
	switch m.state {
	case stateIntro:
		b.WriteString("covprep init\n\n")
		b.WriteString("This wizard writes a .covprep.yaml with your defaults.\n")
		b.WriteString("The implicit ignore patterns (\\.cargo/registry, library/std)\n")
		b.WriteString("always apply; add more with --ignore-filename-regex or the\n")
		b.WriteString("`ignore:` list in the config file.\n\n")
		b.WriteString("Press enter to continue, q to cancel.\n")
	case stateEdit:
		b.WriteString("Settings (space toggles, enter continues):\n\n")
		b.WriteString(m.row(rowNoDelete, fmt.Sprintf("[%s] keep .profraw and .profdata files after a run", check(m.cfg.NoDelete))))
		b.WriteString(m.row(rowHistory, fmt.Sprintf("[%s] record aggregate coverage to %s", check(m.cfg.History.Enabled), m.cfg.History.Path)))
		b.WriteString(fmt.Sprintf("\nTrace directory: %s\n", m.cfg.TraceDir))
		if len(m.cfg.Ignore) > 0 {
			b.WriteString(fmt.Sprintf("Extra ignore patterns: %s\n", strings.Join(m.cfg.Ignore, ", ")))
		}
	case stateConfirm:
		b.WriteString("Write this configuration? (enter confirms, esc goes back)\n\n")
		b.WriteString(fmt.Sprintf("  trace_dir: %s\n", m.cfg.TraceDir))
		b.WriteString(fmt.Sprintf("  no_delete: %v\n", m.cfg.NoDelete))
		b.WriteString(fmt.Sprintf("  history:   %v (%s)\n", m.cfg.History.Enabled, m.cfg.History.Path))
	}
	return b.String()
}

func (m *initWizardModel) row(index int, text string) string {
	marker := "  "
	if m.cursor == index {
		marker = "> "
	}
	return marker + text + "\n"
}

func check(on bool) string {
	if on {
		return "x"
	}
	return " "
}

package prompt

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

type selectModel struct {
	message string
	choices []types.Choice
	cursor  int
	done    bool
	aborted bool
}

func newSelectModel(message string, choices []types.Choice) selectModel {
	return selectModel{message: message, choices: choices}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	case "up", "k":
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(m.choices) - 1
		}
	case "down", "j":
		m.cursor++
		if m.cursor >= len(m.choices) {
			m.cursor = 0
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m selectModel) View() string {
	var b strings.Builder
	b.WriteString(questionStyle.Render("? " + m.message))

	if m.done {
		b.WriteString(" " + answerStyle.Render(m.choices[m.cursor].Label) + "\n")
		return b.String()
	}
	if m.aborted {
		return b.String() + "\n"
	}

	b.WriteString(" " + hintStyle.Render("(use arrow keys)") + "\n")
	for i, c := range m.choices {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> "+c.Label) + "\n")
			continue
		}
		b.WriteString("  " + c.Label + "\n")
	}
	return b.String()
}

package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

const (
	fieldIdentity = iota
	fieldSecret
)

type credentialsModel struct {
	inputs  []textinput.Model
	focus   int
	done    bool
	aborted bool
}

func newCredentialsModel() credentialsModel {
	identity := textinput.New()
	identity.Prompt = "Phone or email: "
	identity.CharLimit = 128
	identity.Focus()

	secret := textinput.New()
	secret.Prompt = "Password: "
	secret.CharLimit = 128
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '*'

	return credentialsModel{inputs: []textinput.Model{identity, secret}}
}

func (m credentialsModel) credentials() types.Credentials {
	return types.Credentials{
		Identity: strings.TrimSpace(m.inputs[fieldIdentity].Value()),
		Secret:   m.inputs[fieldSecret].Value(),
	}
}

func (m credentialsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m credentialsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter", "tab":
			if m.inputs[m.focus].Value() == "" {
				return m, nil
			}
			if m.focus == fieldSecret {
				if key.String() == "enter" {
					m.done = true
					return m, tea.Quit
				}
				return m, nil
			}
			m.inputs[m.focus].Blur()
			m.focus++
			return m, m.inputs[m.focus].Focus()
		case "shift+tab":
			if m.focus > fieldIdentity {
				m.inputs[m.focus].Blur()
				m.focus--
				return m, m.inputs[m.focus].Focus()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m credentialsModel) View() string {
	var b strings.Builder
	b.WriteString(questionStyle.Render("? Log in to iconfont.cn") + "\n")
	if m.done || m.aborted {
		return b.String()
	}
	for _, in := range m.inputs[:m.focus+1] {
		b.WriteString(in.View() + "\n")
	}
	b.WriteString(hintStyle.Render("enter to continue, esc to cancel") + "\n")
	return b.String()
}

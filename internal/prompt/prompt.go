// Package prompt implements the interactive terminal prompts of the login
// and project selection stages with bubbletea.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// ErrAborted is returned when the operator cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	hintStyle     = lipgloss.NewStyle().Faint(true)
)

// Terminal prompts on a terminal. The zero value uses stdin and stderr.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// Credentials asks for the login identity and secret.
func (t *Terminal) Credentials(ctx context.Context) (types.Credentials, error) {
	final, err := t.run(ctx, newCredentialsModel())
	if err != nil {
		return types.Credentials{}, err
	}
	m := final.(credentialsModel)
	if m.aborted {
		return types.Credentials{}, ErrAborted
	}
	return m.credentials(), nil
}

// Select asks the operator to pick one of choices and returns its value.
func (t *Terminal) Select(ctx context.Context, message string, choices []types.Choice) (string, error) {
	if len(choices) == 0 {
		return "", errors.New("nothing to select")
	}
	final, err := t.run(ctx, newSelectModel(message, choices))
	if err != nil {
		return "", err
	}
	m := final.(selectModel)
	if m.aborted {
		return "", ErrAborted
	}
	return m.choices[m.cursor].Value, nil
}

func (t *Terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	in, out := t.In, t.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("running prompt: %w", err)
	}
	return final, nil
}

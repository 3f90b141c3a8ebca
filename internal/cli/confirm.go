package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// confirmForm builds the quick-reply picker shown while an action waits for
// consent. value starts on the first option.
func confirmForm(opts []string, value *string) *huh.Form {
	if len(opts) > 0 && *value == "" {
		*value = opts[0]
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Go ahead?").
				Options(huh.NewOptions(opts...)...).
				Value(value),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(false)
}

// pickConfirmation runs the picker on in/out. Esc or Ctrl-C returns
// huh.ErrUserAborted so the caller can fall back to typed input.
func pickConfirmation(ctx context.Context, opts []string, in io.Reader, out io.Writer) (string, error) {
	var choice string
	keys := huh.NewDefaultKeyMap()
	keys.Quit = key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "type instead"))

	form := confirmForm(opts, &choice).
		WithKeyMap(keys).
		WithProgramOptions(tea.WithInput(in), tea.WithOutput(out))
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return choice, nil
}

// Package ui provides small interactive terminal prompts.
// Items are rendered as plain text; nothing is passed to a shell.
package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("selection cancelled")

// Interactive reports whether stdin and stderr are terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

var (
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type keymap struct {
	up, down, confirm, quit key.Binding
}

var keys = keymap{
	up: key.NewBinding(
		key.WithKeys("up", "k", "ctrl+p"),
		key.WithHelp("↑/k", "up"),
	),
	down: key.NewBinding(
		key.WithKeys("down", "j", "ctrl+n"),
		key.WithHelp("↓/j", "down"),
	),
	confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "cancel"),
	),
}

// picker is a single-choice list.
type picker struct {
	prompt    string
	items     []string
	cursor    int
	chosen    int
	cancelled bool
}

func newPicker(prompt string, items []string) picker {
	return picker{prompt: prompt, items: items, chosen: -1}
}

func (p picker) Init() tea.Cmd { return nil }

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	switch {
	case key.Matches(km, keys.quit):
		p.cancelled = true
		return p, tea.Quit
	case key.Matches(km, keys.up):
		p.cursor--
		if p.cursor < 0 {
			p.cursor = len(p.items) - 1
		}
	case key.Matches(km, keys.down):
		p.cursor = (p.cursor + 1) % len(p.items)
	case key.Matches(km, keys.confirm):
		p.chosen = p.cursor
		return p, tea.Quit
	}
	return p, nil
}

func (p picker) View() string {
	var b strings.Builder
	b.WriteString(promptStyle.Render(p.prompt))
	b.WriteString("\n\n")
	for i, item := range p.items {
		if i == p.cursor {
			b.WriteString(cursorStyle.Render("> "))
			b.WriteString(selectedStyle.Render(item))
		} else {
			b.WriteString("  " + item)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%s • %s • %s",
		keys.up.Help().Key+"/"+keys.down.Help().Key+" move",
		keys.confirm.Help().Key+" "+keys.confirm.Help().Desc,
		keys.quit.Help().Key+" "+keys.quit.Help().Desc)))
	b.WriteString("\n")
	return b.String()
}

func (p picker) result() (int, error) {
	if p.cancelled || p.chosen < 0 {
		return -1, ErrCancelled
	}
	if p.chosen >= len(p.items) {
		return -1, fmt.Errorf("selection index %d out of range", p.chosen)
	}
	return p.chosen, nil
}

// Select presents items and returns the chosen index.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	final, err := tea.NewProgram(newPicker(prompt, items), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}
	p, ok := final.(picker)
	if !ok {
		return -1, fmt.Errorf("unexpected picker model %T", final)
	}
	return p.result()
}

// Confirm asks a yes/no question.
func Confirm(prompt string) (bool, error) {
	idx, err := Select(prompt, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

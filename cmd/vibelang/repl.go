package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ycharfi09/vibelang/vibe"
)

var (
	accentColor  = lipgloss.Color("#3B82F6")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	warnColor    = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(successColor)

	errStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)
)

type replKeyMap struct {
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	CtrlK key.Binding
}

var replKeys = replKeyMap{
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add line / run on blank")),
	CtrlC: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	CtrlD: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "quit")),
	CtrlL: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear output")),
	CtrlK: key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "toggle help")),
}

type replModel struct {
	textInput textinput.Model
	cfg       vibe.Config

	buffer   []string
	output   []string
	showHelp bool
	quitting bool
	width    int
	height   int
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	level, timeoutMS, indent := configFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := buildConfig(*level, *timeoutMS, *indent)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newREPLModel(cfg))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	return nil
}

func newREPLModel(cfg vibe.Config) replModel {
	ti := textinput.New()
	ti.Placeholder = "type a declaration, blank line to run..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 72
	ti.PromptStyle = promptStyle
	ti.Prompt = "vbl> "

	return replModel{textInput: ti, cfg: cfg}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, replKeys.CtrlC), key.Matches(msg, replKeys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, replKeys.CtrlL):
			m.output = nil
			return m, nil

		case key.Matches(msg, replKeys.CtrlK):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, replKeys.Enter):
			line := m.textInput.Value()
			m.textInput.SetValue("")
			if strings.HasPrefix(strings.TrimSpace(line), ":") {
				return m.handleCommand(strings.TrimSpace(line)), nil
			}
			if strings.TrimSpace(line) == "" {
				if len(m.buffer) > 0 {
					m = m.runPipeline(strings.Join(m.buffer, "\n") + "\n")
					m.buffer = nil
					m.textInput.Prompt = "vbl> "
				}
				return m, nil
			}
			m.buffer = append(m.buffer, line)
			m.textInput.Prompt = "...> "
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) replModel {
	parts := strings.Fields(input)
	switch parts[0] {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.output = nil
		m.buffer = nil
		m.textInput.Prompt = "vbl> "
	case ":load", ":l":
		if len(parts) != 2 {
			m.output = append(m.output, errStyle.Render("usage: :load <file.vbl>"))
			return m
		}
		data, err := os.ReadFile(parts[1])
		if err != nil {
			m.output = append(m.output, errStyle.Render(err.Error()))
			return m
		}
		m = m.runPipeline(string(data))
	case ":level":
		if len(parts) != 2 {
			m.output = append(m.output, errStyle.Render("usage: :level none|runtime|hybrid|full"))
			return m
		}
		level, err := vibe.ParseLevel(parts[1])
		if err != nil {
			m.output = append(m.output, errStyle.Render(err.Error()))
			return m
		}
		m.cfg.Level = level
		m.output = append(m.output, mutedStyle.Render("verification level: "+string(level)))
	default:
		m.output = append(m.output, errStyle.Render("unknown command "+parts[0]))
	}
	return m
}

func (m replModel) runPipeline(source string) replModel {
	result := vibe.Run(source, m.cfg)

	for _, d := range result.Diagnostics {
		style := errStyle
		if d.Severity != vibe.SeverityError {
			style = warnStyle
		}
		m.output = append(m.output, style.Render(d.String()))
	}
	if result.HasErrors() {
		return m
	}

	if result.Report != nil {
		proven, runtime, violated := result.Report.Counts()
		m.output = append(m.output, okStyle.Render(
			fmt.Sprintf("verified: %d proven, %d runtime, %d violated", proven, runtime, violated)))
	}
	m.output = append(m.output, mutedStyle.Render(
		fmt.Sprintf("%d rewrite(s) applied", result.Rewrites)))
	for _, line := range strings.Split(strings.TrimRight(result.Output, "\n"), "\n") {
		m.output = append(m.output, line)
	}
	return m
}

func (m replModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("VibeLang"))
	b.WriteString("\n\n")

	visible := m.output
	if max := m.height - len(m.buffer) - 8; max > 0 && len(visible) > max {
		visible = visible[len(visible)-max:]
	}
	for _, line := range visible {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(visible) > 0 {
		b.WriteString("\n")
	}

	for _, line := range m.buffer {
		b.WriteString(mutedStyle.Render("...> " + line))
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View())
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(
			":load <file>  :level <l>  :clear  ctrl+l clear  ctrl+k help  ctrl+c quit"))
		b.WriteString("\n")
	}

	return b.String()
}

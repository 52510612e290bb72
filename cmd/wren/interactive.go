package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wren-runtime/engine"
	"github.com/wippyai/wren-runtime/vm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLimit = 200

// replEntry is one evaluated line and whatever it printed.
type replEntry struct {
	input  string
	output string
	failed bool
}

type replModel struct {
	filename string
	eng      *engine.Engine
	vm       *vm.VM
	input    textinput.Model
	history  []replEntry
	pending  strings.Builder // output of the line being evaluated
	err      error
	seq      int // distinct module name per line that failed to compile
}

func newReplModel(filename string) *replModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render("wren> ")
	ti.Placeholder = `System.print("hello")`
	ti.Width = 72
	ti.Focus()

	return &replModel{filename: filename, input: ti}
}

type bootedMsg struct {
	err error
	eng *engine.Engine
	vm  *vm.VM
}

type evaluatedMsg struct {
	entry replEntry
}

func (m *replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.boot)
}

func (m *replModel) boot() tea.Msg {
	ctx := context.Background()

	wasmBytes, err := os.ReadFile(m.filename)
	if err != nil {
		return bootedMsg{err: fmt.Errorf("read VM binary: %w", err)}
	}

	eng := engine.New(nil)
	mod, err := eng.LoadVM(wasmBytes)
	if err != nil {
		eng.Close(ctx)
		return bootedMsg{err: err}
	}

	v, err := vm.New(ctx, mod, &vm.Config{
		Write: func(text string) { m.pending.WriteString(text) },
		Error: func(kind vm.ErrorKind, module string, line int, message string) {
			switch kind {
			case vm.ErrorCompile:
				fmt.Fprintf(&m.pending, "[line %d] %s\n", line, message)
			case vm.ErrorRuntime:
				fmt.Fprintf(&m.pending, "%s\n", message)
			case vm.ErrorStackTrace:
				fmt.Fprintf(&m.pending, "[%s line %d] in %s\n", module, line, message)
			}
		},
		LoadModule: func(name string) (string, bool) {
			return loadModuleFile(".", name)
		},
	})
	if err != nil {
		eng.Close(ctx)
		return bootedMsg{err: err}
	}

	return bootedMsg{eng: eng, vm: v}
}

func (m *replModel) evaluate(line string) tea.Cmd {
	return func() tea.Msg {
		m.pending.Reset()
		// Each line gets its own module: interpreting the same module
		// twice redefines it, and a failed line must not poison the next.
		m.seq++
		err := m.vm.Interpret(context.Background(), fmt.Sprintf("repl-%d", m.seq), line)

		return evaluatedMsg{entry: replEntry{
			input:  line,
			output: strings.TrimRight(m.pending.String(), "\n"),
			failed: err != nil,
		}}
	}
}

func (m *replModel) shutdown() {
	ctx := context.Background()
	if m.vm != nil {
		m.vm.Close(ctx)
	}
	if m.eng != nil {
		m.eng.Close(ctx)
	}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			m.shutdown()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if m.vm == nil {
				return m, nil
			}
			m.input.Reset()
			return m, m.evaluate(line)
		}

	case bootedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.eng = msg.eng
		m.vm = msg.vm

	case evaluatedMsg:
		m.history = append(m.history, msg.entry)
		if len(m.history) > historyLimit {
			m.history = m.history[len(m.history)-historyLimit:]
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *replModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" +
			helpStyle.Render("ctrl+c quit")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Wren"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.vm == nil {
		b.WriteString("Loading VM...\n")
		return b.String()
	}

	for _, e := range m.history {
		b.WriteString(promptStyle.Render("wren> "))
		b.WriteString(e.input)
		b.WriteString("\n")
		if e.output != "" {
			style := outputStyle
			if e.failed {
				style = errorStyle
			}
			b.WriteString(style.Render(e.output))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter evaluate • ctrl+c quit"))
	return b.String()
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newReplModel(filename))
	_, err := p.Run()
	return err
}

// Package tui implements the Bubble Tea front end for the record server.
// It forwards each submitted line to the command loop and shows its output.
package tui

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// maxLines bounds the retained output history.
const maxLines = 1000

// outputMsg carries text written by the command loop.
type outputMsg string

// doneMsg reports that the command loop has returned.
type doneMsg struct {
	err error
}

// lineSentMsg confirms a line reached the command loop.
type lineSentMsg struct{}

// Model is the root TUI model.
type Model struct {
	input   textinput.Model
	lines   []string
	partial string
	sink    io.WriteCloser
	closing bool
	err     error

	width  int
	height int
}

// New creates a model that writes submitted lines to sink.
func New(sink io.WriteCloser) Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 60

	return Model{input: ti, sink: sink}
}

// Err returns the command loop error, if any, after the program exits.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 10)
		return m, nil

	case outputMsg:
		m.appendOutput(string(msg))
		return m, nil

	case lineSentMsg:
		return m, nil

	case doneMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m.close()
		}
		if key.Matches(msg, zstyle.KeyEnter) {
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit echoes the line after the pending prompt and sends it to the loop.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.closing {
		return m, nil
	}
	line := m.input.Value()
	m.input.SetValue("")
	m.appendOutput(line + "\n")

	sink := m.sink
	return m, func() tea.Msg {
		if _, err := io.WriteString(sink, line+"\n"); err != nil {
			return doneMsg{err: err}
		}
		return lineSentMsg{}
	}
}

// close ends the input stream; the loop saves and reports done.
func (m Model) close() (tea.Model, tea.Cmd) {
	if m.closing {
		return m, nil
	}
	m.closing = true
	sink := m.sink
	return m, func() tea.Msg {
		_ = sink.Close()
		return nil
	}
}

func (m *Model) appendOutput(s string) {
	parts := strings.Split(m.partial+s, "\n")
	m.partial = parts[len(parts)-1]
	m.lines = append(m.lines, parts[:len(parts)-1]...)
	if over := len(m.lines) - maxLines; over > 0 {
		m.lines = m.lines[over:]
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("  " + zstyle.Title.Render("zrecord") + " " +
		zstyle.MutedText.Render("ctrl+c save and quit") + "\n\n")

	lines := m.lines
	if m.height > 4 {
		if keep := m.height - 4; len(lines) > keep {
			lines = lines[len(lines)-keep:]
		}
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}

	b.WriteString(zstyle.Highlight.Render(m.partial) + m.input.View() + "\n")
	return b.String()
}

// programWriter forwards writes to a running program as output messages.
type programWriter struct {
	send func(tea.Msg)
}

func (w programWriter) Write(p []byte) (int, error) {
	w.send(outputMsg(string(p)))
	return len(p), nil
}

// Loop is the command loop driven by the TUI: it reads commands from in and
// writes its output to out.
type Loop func(ctx context.Context, in io.Reader, out io.Writer) error

// Run starts the TUI and runs loop until it returns. The loop always runs to
// completion, so its final save happens before Run returns.
func Run(ctx context.Context, loop Loop) error {
	pr, pw := io.Pipe()
	p := tea.NewProgram(New(pw))

	errc := make(chan error, 1)
	go func() {
		err := loop(ctx, pr, programWriter{send: p.Send})
		_ = pr.Close()
		errc <- err
		p.Send(doneMsg{err: err})
	}()

	_, runErr := p.Run()
	_ = pw.Close()
	loopErr := <-errc

	if runErr != nil {
		return runErr
	}
	return loopErr
}

// Package waitview renders a register_and_wait call as an interactive
// terminal view: a spinner and a progress bar advanced by heartbeats,
// replaced by the delivered message or the timeout summary.
package waitview

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/waitroom/internal/tools"
	"github.com/Iron-Ham/waitroom/internal/tui/styles"
)

const barWidth = 40

// HeartbeatMsg reports one heartbeat of the running wait.
type HeartbeatMsg struct {
	Progress float64
	Label    string
}

// ResultMsg ends the wait.
type ResultMsg struct {
	Result tools.WaitResult
	Err    error
}

// Model is the Bubbletea model for one wait.
type Model struct {
	agent      string
	cancel     context.CancelFunc
	spinner    spinner.Model
	progress   progress.Model
	label      string
	heartbeats int
	canceling  bool
	done       bool
	result     tools.WaitResult
	err        error
}

// New creates a model for agent. cancel, if non-nil, is called when the
// user interrupts the wait.
func New(agent string, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Primary

	return Model{
		agent:    agent,
		cancel:   cancel,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		label:    "waiting for work",
	}
}

// Result returns the outcome once the model has received a ResultMsg.
func (m Model) Result() (tools.WaitResult, error) {
	return m.result, m.err
}

// Done reports whether the wait has finished.
func (m Model) Done() bool {
	return m.done
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			// The wait returns a canceled result; quit when it arrives.
			if !m.canceling && m.cancel != nil {
				m.canceling = true
				m.cancel()
			}
			if m.cancel == nil {
				return m, tea.Quit
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.progress.Width = min(barWidth, max(msg.Width-8, 10))
		return m, nil

	case HeartbeatMsg:
		m.heartbeats++
		m.label = msg.Label
		return m, m.progress.SetPercent(msg.Progress)

	case ResultMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("waitroom: " + m.agent))
	b.WriteString("\n")

	if m.done {
		b.WriteString(m.renderResult())
		b.WriteString("\n")
		return b.String()
	}

	status := m.label
	if m.canceling {
		status = "canceling..."
	}
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), styles.Muted.Render(status))
	b.WriteString(m.progress.View())
	b.WriteString("\n")
	b.WriteString(styles.HelpBar.Render(styles.HelpKey.Render("q") + " cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderResult() string {
	return RenderResult(m.result, m.err)
}

// RenderResult formats a finished wait for display.
func RenderResult(r tools.WaitResult, err error) string {
	var b strings.Builder
	switch {
	case err != nil && !r.NoWork:
		b.WriteString(styles.Badge(styles.StatusNameError))
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render(err.Error()))
		return b.String()
	case err != nil:
		b.WriteString(styles.Badge(styles.StatusNameCanceled))
	case r.NoWork:
		b.WriteString(styles.Badge(styles.StatusNameTimeout))
	default:
		b.WriteString(styles.Badge(styles.StatusNameDelivered))
	}
	b.WriteString("\n")

	field := func(label, value string) {
		b.WriteString(styles.Label.Render(label))
		b.WriteString(styles.Text.Render(value))
		b.WriteString("\n")
	}
	field("waited", fmt.Sprintf("%ds", r.WaitedSeconds))
	field("heartbeats", fmt.Sprintf("%d", r.HeartbeatsSent))

	if msg := r.Message; msg != nil {
		field("mode", string(msg.Mode))
		if msg.Origin != "" {
			field("from", msg.Origin)
		}
		b.WriteString(styles.ContentBox.Render(msg.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}

// WaitFunc performs the wait, reporting heartbeats to onProgress.
type WaitFunc func(ctx context.Context, onProgress func(progress float64, label string)) (tools.WaitResult, error)

// Run shows the view while wait runs and returns its outcome.
func Run(ctx context.Context, agent string, wait WaitFunc, opts ...tea.ProgramOption) (tools.WaitResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(agent, cancel), opts...)
	go func() {
		res, err := wait(ctx, func(progress float64, label string) {
			p.Send(HeartbeatMsg{Progress: progress, Label: label})
		})
		p.Send(ResultMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return tools.WaitResult{}, fmt.Errorf("wait view: %w", err)
	}
	m, ok := final.(Model)
	if !ok || !m.Done() {
		return tools.WaitResult{}, context.Canceled
	}
	return m.Result()
}

package waitview

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/waitroom/internal/mailbox"
	"github.com/Iron-Ham/waitroom/internal/tools"
)

func TestModel_Heartbeat(t *testing.T) {
	m := New("reviewer", nil)

	updated, cmd := m.Update(HeartbeatMsg{Progress: 0.25, Label: "Heartbeat #1 - waiting for work (30s/120s)"})
	m = updated.(Model)

	if m.heartbeats != 1 {
		t.Errorf("heartbeats = %d, want 1", m.heartbeats)
	}
	if cmd == nil {
		t.Error("expected a progress animation command")
	}
	if view := m.View(); !strings.Contains(view, "Heartbeat #1") {
		t.Errorf("View() missing heartbeat label:\n%s", view)
	}
	if m.Done() {
		t.Error("model should not be done after a heartbeat")
	}
}

func TestModel_ResultQuits(t *testing.T) {
	m := New("reviewer", nil)
	want := tools.WaitResult{AgentName: "reviewer", WaitedSeconds: 3, Message: &mailbox.Message{Content: "go", Mode: mailbox.ModeInfo}}

	updated, cmd := m.Update(ResultMsg{Result: want})
	m = updated.(Model)

	if !m.Done() {
		t.Fatal("model should be done")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	got, err := m.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if got.WaitedSeconds != 3 || got.Message == nil || got.Message.Content != "go" {
		t.Errorf("Result() = %+v", got)
	}
	if view := m.View(); !strings.Contains(view, "delivered") {
		t.Errorf("View() missing delivered badge:\n%s", view)
	}
}

func TestModel_CancelKey(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{"q", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			m := New("reviewer", func() { calls++ })

			updated, cmd := m.Update(tt.key)
			m = updated.(Model)
			updated, _ = m.Update(tt.key)
			m = updated.(Model)

			if calls != 1 {
				t.Errorf("cancel called %d times, want 1", calls)
			}
			if cmd != nil {
				t.Error("model should wait for the canceled result before quitting")
			}
			if !strings.Contains(m.View(), "canceling") {
				t.Errorf("View() should show canceling:\n%s", m.View())
			}
		})
	}
}

func TestModel_CancelKeyWithoutCancelFunc(t *testing.T) {
	m := New("reviewer", nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_WindowResize(t *testing.T) {
	m := New("reviewer", nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})
	m = updated.(Model)
	if m.progress.Width != 12 {
		t.Errorf("progress width = %d, want 12", m.progress.Width)
	}
}

func TestRenderResult(t *testing.T) {
	delivered := tools.WaitResult{
		AgentName:      "reviewer",
		WaitedSeconds:  75,
		HeartbeatsSent: 2,
		Message:        &mailbox.Message{Content: "Review this code", Mode: mailbox.ModeChallenge, Origin: mailbox.OriginCLI},
	}

	tests := []struct {
		name   string
		result tools.WaitResult
		err    error
		want   []string
	}{
		{
			name:   "delivered",
			result: delivered,
			want:   []string{"delivered", "75s", "challenge", "cli_sender", "Review this code"},
		},
		{
			name:   "timed out",
			result: tools.WaitResult{NoWork: true, AgentName: "reviewer", WaitedSeconds: 65, HeartbeatsSent: 2},
			want:   []string{"timeout", "65s", "2"},
		},
		{
			name:   "canceled",
			result: tools.WaitResult{NoWork: true, WaitedSeconds: 40},
			err:    context.Canceled,
			want:   []string{"canceled", "40s"},
		},
		{
			name: "error",
			err:  errors.New("dial failed"),
			want: []string{"error", "dial failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderResult(tt.result, tt.err)
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("RenderResult() missing %q:\n%s", s, got)
				}
			}
		})
	}
}

func TestRun(t *testing.T) {
	var labels []string
	wait := func(_ context.Context, onProgress func(float64, string)) (tools.WaitResult, error) {
		for i, label := range []string{"Heartbeat #1", "Heartbeat #2"} {
			labels = append(labels, label)
			onProgress(float64(i+1)/4, label)
		}
		return tools.WaitResult{NoWork: true, AgentName: "reviewer", WaitedSeconds: 65, HeartbeatsSent: 2}, nil
	}

	got, err := Run(t.Context(), "reviewer", wait, tea.WithInput(nil), tea.WithOutput(io.Discard))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !got.NoWork || got.HeartbeatsSent != 2 {
		t.Errorf("Run() = %+v", got)
	}
	if len(labels) != 2 {
		t.Errorf("heartbeats sent = %d, want 2", len(labels))
	}
}

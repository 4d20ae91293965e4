package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
	"github.com/Iron-Ham/waitroom/internal/tools"
)

type fakeSender struct {
	sent    []mailbox.Message
	sendErr error
	pending bool
}

func (f *fakeSender) send(_ context.Context, content string, mode mailbox.Mode) (mailbox.Message, error) {
	if f.sendErr != nil {
		return mailbox.Message{}, f.sendErr
	}
	msg := mailbox.Message{Content: content, Mode: mode}
	f.sent = append(f.sent, msg)
	return msg, nil
}

func (f *fakeSender) status(context.Context) (tools.StatusResult, error) {
	return tools.StatusResult{Server: "waitroom", Status: "running", MessagePending: f.pending}, nil
}

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestConsole_Handle(t *testing.T) {
	noColor(t)

	tests := []struct {
		name     string
		lines    []string
		wantMode mailbox.Mode
		wantSent []string
		wantOut  string
		wantQuit bool
	}{
		{
			name:     "plain line uses default mode",
			lines:    []string{"hello"},
			wantMode: mailbox.ModeInfo,
			wantSent: []string{"hello"},
			wantOut:  ">> queued [info] hello",
		},
		{
			name:     "mode change applies to later lines",
			lines:    []string{"/mode challenge", "Review this code"},
			wantMode: mailbox.ModeChallenge,
			wantSent: []string{"Review this code"},
			wantOut:  ">> queued [challenge] Review this code",
		},
		{
			name:     "invalid mode keeps the current one",
			lines:    []string{"/mode shout"},
			wantMode: mailbox.ModeInfo,
			wantOut:  "Valid modes: challenge, agree, collaborate, deduce, info",
		},
		{
			name:     "show mode",
			lines:    []string{"/mode"},
			wantMode: mailbox.ModeInfo,
			wantOut:  "Mode: info",
		},
		{
			name:     "blank lines are ignored",
			lines:    []string{"", "   "},
			wantMode: mailbox.ModeInfo,
		},
		{
			name:     "unknown command",
			lines:    []string{"/nope"},
			wantMode: mailbox.ModeInfo,
			wantOut:  "Unknown command /nope",
		},
		{
			name:     "status",
			lines:    []string{"/status"},
			wantMode: mailbox.ModeInfo,
			wantOut:  "waitroom (running): message pending: no",
		},
		{
			name:     "help",
			lines:    []string{"/help"},
			wantMode: mailbox.ModeInfo,
			wantOut:  "/mode [name]",
		},
		{
			name:     "quit",
			lines:    []string{"/quit"},
			wantMode: mailbox.ModeInfo,
			wantQuit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			s := &fakeSender{}
			c := newConsole(buf, s)

			var quit bool
			for _, line := range tt.lines {
				quit = c.handle(context.Background(), line)
			}

			if quit != tt.wantQuit {
				t.Errorf("quit = %v, want %v", quit, tt.wantQuit)
			}
			if c.mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", c.mode, tt.wantMode)
			}
			if len(s.sent) != len(tt.wantSent) {
				t.Fatalf("sent %d messages, want %d", len(s.sent), len(tt.wantSent))
			}
			for i, want := range tt.wantSent {
				if s.sent[i].Content != want || s.sent[i].Mode != tt.wantMode {
					t.Errorf("sent[%d] = %+v", i, s.sent[i])
				}
			}
			if !strings.Contains(buf.String(), tt.wantOut) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.wantOut)
			}
		})
	}
}

func TestConsole_SendError(t *testing.T) {
	noColor(t)
	buf := new(bytes.Buffer)
	c := newConsole(buf, &fakeSender{sendErr: errors.New("connection refused")})

	if c.handle(context.Background(), "hello") {
		t.Error("a failed send should not quit")
	}
	if !strings.Contains(buf.String(), "Send failed: connection refused") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestConsole_Prompt(t *testing.T) {
	noColor(t)
	c := newConsole(new(bytes.Buffer), &fakeSender{})
	c.handle(context.Background(), "/mode deduce")

	if got := c.prompt(); got != "waitroom [deduce]> " {
		t.Errorf("prompt() = %q", got)
	}
}

func TestConsole_LocalSender(t *testing.T) {
	noColor(t)
	path := setupConfig(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	buf := new(bytes.Buffer)
	c := newConsole(buf, localSender{app: a})
	c.handle(context.Background(), "/mode agree")
	c.handle(context.Background(), "Ship it")
	c.handle(context.Background(), "/status")

	if !strings.Contains(buf.String(), "waitroom (local): message pending: yes") {
		t.Errorf("output = %q", buf.String())
	}

	msg, ok, err := mailbox.NewFileStore(path).Take()
	if err != nil || !ok {
		t.Fatalf("Take() = %v, %v", ok, err)
	}
	if msg.Content != "Ship it" || msg.Mode != mailbox.ModeAgree || msg.Origin != mailbox.OriginCLI {
		t.Errorf("stored message = %+v", msg)
	}
}

func TestConsoleCompleter(t *testing.T) {
	pc := consoleCompleter()

	var names []string
	for _, child := range pc.GetChildren() {
		names = append(names, strings.TrimSpace(string(child.GetName())))
	}
	got := strings.Join(names, ",")
	if got != "/mode,/status,/help,/quit" {
		t.Errorf("top-level completions = %s", got)
	}
	if n := len(pc.GetChildren()[0].GetChildren()); n != len(mailbox.ValidModes()) {
		t.Errorf("/mode completions = %d, want %d", n, len(mailbox.ValidModes()))
	}
}

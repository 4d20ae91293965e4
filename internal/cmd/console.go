package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
	"github.com/Iron-Ham/waitroom/internal/tools"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive prompt for sending messages",
	Long: `Open an interactive prompt. Every line typed is sent as a message in
the current mode, replacing any message not yet picked up.

Commands:
  /mode [name]  show or change the mode (default info)
  /status       show whether a message is pending
  /help         list commands
  /quit         leave the console

With --remote lines go through the running server; otherwise they are
written into the configured store.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

var consoleRemote bool

func init() {
	consoleCmd.Flags().BoolVar(&consoleRemote, "remote", false, "send through the server instead of writing the store")
	rootCmd.AddCommand(consoleCmd)
}

// sender is where console lines end up.
type sender interface {
	send(ctx context.Context, content string, mode mailbox.Mode) (mailbox.Message, error)
	status(ctx context.Context) (tools.StatusResult, error)
}

type remoteSender struct {
	cfg *config.Config
}

func (r remoteSender) send(ctx context.Context, content string, mode mailbox.Mode) (mailbox.Message, error) {
	res, err := newClient(r.cfg).SendMessage(ctx, content, string(mode))
	return res.Message, err
}

func (r remoteSender) status(ctx context.Context) (tools.StatusResult, error) {
	return newClient(r.cfg).CheckStatus(ctx)
}

type localSender struct {
	app *app
}

func (l localSender) send(_ context.Context, content string, mode mailbox.Mode) (mailbox.Message, error) {
	id, err := mailbox.NewMessageID()
	if err != nil {
		return mailbox.Message{}, err
	}
	msg := mailbox.Message{
		ID:        id,
		Content:   content,
		Mode:      mode,
		Timestamp: time.Now(),
		Origin:    mailbox.OriginCLI,
	}
	return msg, l.app.mailbox.Deposit(msg)
}

func (l localSender) status(context.Context) (tools.StatusResult, error) {
	res := l.app.service.CheckStatus()
	res.Status = "local"
	return res, nil
}

// console interprets prompt lines. It holds no terminal state so it can be
// driven directly in tests.
type console struct {
	out    io.Writer
	sender sender
	mode   mailbox.Mode
}

func newConsole(out io.Writer, s sender) *console {
	return &console{out: out, sender: s, mode: mailbox.DefaultMode}
}

func (c *console) prompt() string {
	return color.GreenString("waitroom [%s]> ", c.mode)
}

// handle runs one line and reports whether the console should exit.
func (c *console) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.send(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		c.help()
	case "/mode":
		c.setMode(arg)
	case "/status":
		c.status(ctx)
	default:
		color.New(color.FgRed).Fprintf(c.out, "Unknown command %s. Use /help.\n", name)
	}
	return false
}

func (c *console) send(ctx context.Context, content string) {
	msg, err := c.sender.send(ctx, content, c.mode)
	if err != nil {
		color.New(color.FgRed).Fprintf(c.out, "Send failed: %v\n", err)
		return
	}
	color.New(color.FgGreen).Fprintf(c.out, ">> queued [%s] %s\n", msg.Mode, msg.Preview(echoPreviewLen))
}

func (c *console) setMode(arg string) {
	if arg == "" {
		fmt.Fprintf(c.out, "Mode: %s\n", c.mode)
		return
	}
	m, err := mailbox.ParseMode(arg)
	if err != nil {
		color.New(color.FgRed).Fprintf(c.out, "Valid modes: %s\n", strings.Join(modeNames(), ", "))
		return
	}
	c.mode = m
	color.New(color.FgCyan).Fprintf(c.out, "Mode set to %s\n", m)
}

func (c *console) status(ctx context.Context) {
	res, err := c.sender.status(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(c.out, "Status failed: %v\n", err)
		return
	}
	pending := "no"
	if res.MessagePending {
		pending = "yes"
	}
	fmt.Fprintf(c.out, "%s (%s): message pending: %s\n", res.Server, res.Status, pending)
}

func (c *console) help() {
	color.New(color.FgMagenta).Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  /mode [name]  show or change the mode")
	fmt.Fprintln(c.out, "  /status       show whether a message is pending")
	fmt.Fprintln(c.out, "  /quit         leave the console")
	fmt.Fprintln(c.out, "Anything else is sent as a message.")
}

func consoleCompleter() *readline.PrefixCompleter {
	modes := make([]readline.PrefixCompleterInterface, 0, len(mailbox.ValidModes()))
	for _, m := range mailbox.ValidModes() {
		modes = append(modes, readline.PcItem(string(m)))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("/mode", modes...),
		readline.PcItem("/status"),
		readline.PcItem("/help"),
		readline.PcItem("/quit"),
	)
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var s sender
	if consoleRemote {
		s = remoteSender{cfg: cfg}
	} else {
		if cfg.Store.Backend == mailbox.BackendMemory {
			return fmt.Errorf("the memory store is private to the server process; use --remote")
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()
		s = localSender{app: a}
	}

	c := newConsole(cmd.OutOrStdout(), s)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.prompt(),
		AutoComplete:    consoleCompleter(),
		HistoryFile:     filepath.Join(config.ConfigDir(), "console_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer func() { _ = rl.Close() }()
	c.out = rl.Stdout()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			// io.EOF on Ctrl+D.
			return nil
		}
		if c.handle(cmd.Context(), line) {
			return nil
		}
		rl.SetPrompt(c.prompt())
	}
}

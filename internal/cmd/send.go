package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
	"github.com/Iron-Ham/waitroom/internal/tui/styles"
)

// echoPreviewLen is how much of the content send echoes back.
const echoPreviewLen = 80

var sendCmd = &cobra.Command{
	Use:   "send <content> [mode]",
	Short: "Deposit a message for a waiting agent",
	Long: `Deposit a message for a waiting agent.

Mode is one of challenge, agree, collaborate, deduce or info (default).
A message that has not been picked up yet is replaced.

By default the message is written straight into the configured store, so
a running server picks it up on its next poll. With --remote it is sent
through the server's send_message tool instead.

Examples:
  waitroom send "Review this code for security issues" challenge
  waitroom send --remote "Ship it" agree`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

var sendRemote bool

func init() {
	sendCmd.Flags().BoolVar(&sendRemote, "remote", false, "send through the server instead of writing the store")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	content := args[0]
	mode := string(mailbox.ModeInfo)
	if len(args) > 1 {
		mode = args[1]
	}
	if _, err := mailbox.ParseMode(mode); err != nil {
		return fmt.Errorf("%w\nValid modes: %s", err, strings.Join(modeNames(), ", "))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	p := newPrinter(cmd.OutOrStdout())

	if sendRemote {
		res, err := newClient(cfg).SendMessage(cmd.Context(), content, mode)
		if err != nil {
			return fmt.Errorf("send_message: %w", err)
		}
		printQueued(p, res.Message, "server "+cfg.Server.Addr)
		return nil
	}

	if cfg.Store.Backend == mailbox.BackendMemory {
		return fmt.Errorf("the memory store is private to the server process; use --remote")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	id, err := mailbox.NewMessageID()
	if err != nil {
		return err
	}
	msg := mailbox.Message{
		ID:        id,
		Content:   content,
		Mode:      mailbox.Mode(mode),
		Timestamp: time.Now(),
		Origin:    mailbox.OriginCLI,
	}
	if err := a.mailbox.Deposit(msg); err != nil {
		return err
	}
	printQueued(p, msg, a.mailbox.Store().Location())
	return nil
}

func printQueued(p *printer, msg mailbox.Message, where string) {
	p.println(p.render(styles.SuccessMsg, "Message queued:"))
	p.printf("  Content: %s\n", msg.Preview(echoPreviewLen))
	p.printf("  Mode:    %s\n", msg.Mode)
	p.printf("  Store:   %s\n", where)
}

func modeNames() []string {
	var names []string
	for _, m := range mailbox.ValidModes() {
		names = append(names, string(m))
	}
	return names
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/errors"
	"github.com/Iron-Ham/waitroom/internal/server"
	"github.com/Iron-Ham/waitroom/internal/tools"
	"github.com/Iron-Ham/waitroom/internal/tui/styles"
	"github.com/Iron-Ham/waitroom/internal/tui/waitview"
)

var waitCmd = &cobra.Command{
	Use:   "wait <agent-name>",
	Short: "Register with the server and wait for a message",
	Long: `Register with a running server and block until a message arrives or
the timeout elapses, printing each heartbeat as it is received.

Examples:
  waitroom wait reviewer
  waitroom wait reviewer --timeout 300 --tui
  waitroom wait reviewer --json`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

var (
	waitTimeout int
	waitTUI     bool
	waitJSON    bool
)

func init() {
	waitCmd.Flags().IntVarP(&waitTimeout, "timeout", "t", 0, "seconds to wait (default: the server's default timeout)")
	waitCmd.Flags().BoolVar(&waitTUI, "tui", false, "show an interactive progress view")
	waitCmd.Flags().BoolVar(&waitJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	agent := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var timeout *int
	if cmd.Flags().Changed("timeout") {
		timeout = &waitTimeout
	}

	client := newClient(cfg)
	wait := func(ctx context.Context, onProgress func(float64, string)) (tools.WaitResult, error) {
		return client.RegisterAndWait(ctx, agent, timeout, func(p server.Progress) {
			onProgress(p.Progress, p.Message)
		})
	}

	p := newPrinter(cmd.OutOrStdout())

	var res tools.WaitResult
	if waitTUI {
		res, err = waitview.Run(cmd.Context(), agent, wait)
	} else {
		res, err = wait(cmd.Context(), func(progress float64, label string) {
			if waitJSON {
				return
			}
			p.printf("%s %s %s\n",
				p.render(styles.Muted, time.Now().Format(time.TimeOnly)),
				p.render(styles.Primary, fmt.Sprintf("%3.0f%%", progress*100)),
				label)
		})
	}
	if err != nil && !errors.Is(err, errors.ErrCanceled) && !errors.Is(err, context.Canceled) {
		return err
	}

	if waitJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if !waitTUI {
		printWaitResult(p, res, err)
	}
	return nil
}

func printWaitResult(p *printer, res tools.WaitResult, err error) {
	if p.styled {
		p.println(waitview.RenderResult(res, err))
		return
	}

	switch {
	case err != nil:
		p.printf("canceled after %ds (%d heartbeats)\n", res.WaitedSeconds, res.HeartbeatsSent)
	case res.NoWork:
		p.printf("no work after %ds (%d heartbeats)\n", res.WaitedSeconds, res.HeartbeatsSent)
	default:
		p.printf("message received after %ds (%d heartbeats)\n", res.WaitedSeconds, res.HeartbeatsSent)
		if msg := res.Message; msg != nil {
			p.printf("  mode: %s\n", msg.Mode)
			if msg.Origin != "" {
				p.printf("  from: %s\n", msg.Origin)
			}
			p.println(msg.Content)
		}
	}
}

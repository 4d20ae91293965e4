package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
	"github.com/Iron-Ham/waitroom/internal/server"
	"github.com/Iron-Ham/waitroom/internal/tools"
	"github.com/Iron-Ham/waitroom/internal/tui/styles"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server or store status",
	Long: `Show whether a message is pending along with the wait timings.

By default the configured store is inspected directly. With --remote the
running server's check_status tool is called and its activity counters
are shown as well.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var (
	statusRemote bool
	statusJSON   bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusRemote, "remote", false, "query the running server")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the JSON shape of the status command.
type statusReport struct {
	tools.StatusResult
	Store string                `json:"store,omitempty"`
	Stats *server.StatsSnapshot `json:"stats,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var report statusReport
	if statusRemote {
		client := newClient(cfg)
		report.StatusResult, err = client.CheckStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("check_status: %w", err)
		}
		stats, err := client.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		report.Stats = &stats
		report.Store = "server " + cfg.Server.Addr
	} else {
		if cfg.Store.Backend == mailbox.BackendMemory {
			return fmt.Errorf("the memory store is private to the server process; use --remote")
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()
		report.StatusResult = a.service.CheckStatus()
		report.Status = "local"
		report.Store = fmt.Sprintf("%s (%s)", a.mailbox.Store().Location(), cfg.Store.Backend)
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	p := newPrinter(cmd.OutOrStdout())
	field := func(label string, value any) {
		p.printf("%s %v\n", p.render(styles.Label, fmt.Sprintf("%-18s", label+":")), value)
	}
	field("Server", report.Server)
	field("Status", report.Status)
	field("Store", report.Store)
	pending := "no"
	if report.MessagePending {
		pending = p.render(styles.WarningMsg, "yes")
	}
	field("Message pending", pending)
	field("Heartbeat", fmt.Sprintf("%ds", report.HeartbeatInterval))
	field("Default timeout", fmt.Sprintf("%ds", report.DefaultTimeout))

	if s := report.Stats; s != nil {
		p.println()
		field("Active waits", s.ActiveWaits)
		field("Deposits", fmt.Sprintf("%d (%d replaced unread)", s.Deposits, s.Overwritten))
		field("Delivered", s.Delivered)
		field("Timed out", s.TimedOut)
		field("Canceled", s.Canceled)
		field("Heartbeats", s.Heartbeats)
		field("Store errors", s.StoreErrors)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/server"
	"github.com/Iron-Ham/waitroom/internal/tui/styles"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the waitroom tool server",
	Long: `Start the waitroom tool server.

The server exposes register_and_wait, send_message and check_status over
HTTP (POST /tools/{name}) and websocket (GET /ws). Waits opened over the
websocket receive heartbeat progress notifications.

Stop with Ctrl+C; open waits are canceled on shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}
	return serve(ctx, cfg, l, cmd.OutOrStdout())
}

// serve runs the server on l until ctx is done.
func serve(ctx context.Context, cfg *config.Config, l net.Listener, out io.Writer) error {
	a, err := newApp(cfg)
	if err != nil {
		_ = l.Close()
		return err
	}
	defer a.close()

	if err := a.watch(ctx); err != nil {
		// Polling still finds external writes.
		a.logger.Warn("store watch unavailable", "error", err.Error())
	}

	srv := server.New(a.service,
		server.WithLogger(a.logger),
		server.WithWriteTimeout(cfg.Server.WriteTimeout()),
		server.WithBus(a.bus),
	)

	printBanner(newPrinter(out), cfg, a.mailbox.Store().Location(), l.Addr().String())
	return srv.Serve(ctx, l)
}

func printBanner(p *printer, cfg *config.Config, location, addr string) {
	rule := strings.Repeat("=", 60)
	p.println(p.render(styles.Muted, rule))
	p.println(p.render(styles.Title.UnsetMarginBottom(), "waitroom server"))
	p.println(p.render(styles.Muted, rule))
	p.printf("Listening on:       %s\n", addr)
	p.printf("Heartbeat interval: %ds\n", cfg.Wait.HeartbeatIntervalSeconds)
	p.printf("Default timeout:    %ds\n", cfg.Wait.DefaultTimeoutSeconds)
	p.printf("Store:              %s (%s)\n", location, cfg.Store.Backend)
	p.println()
	p.println("To test:")
	p.println("  1. Wait for work:")
	p.println(p.render(styles.Secondary, "     waitroom wait test-agent --addr "+addr))
	p.println()
	p.println("  2. Send a message (in another terminal):")
	p.println(p.render(styles.Secondary, "     waitroom send --remote --addr "+addr+" 'Hello from test!' info"))
	p.println(p.render(styles.Muted, rule))
	p.println()
}

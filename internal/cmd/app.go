package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/event"
	"github.com/Iron-Ham/waitroom/internal/logging"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
	"github.com/Iron-Ham/waitroom/internal/server"
	"github.com/Iron-Ham/waitroom/internal/tools"
	"github.com/Iron-Ham/waitroom/internal/waiter"
)

// app holds the components built from one configuration.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	bus     *event.Bus
	mailbox *mailbox.Mailbox
	coord   *waiter.Coordinator
	service *tools.Service
}

// newApp wires logger, bus, store, mailbox, coordinator and tool service.
// The caller must call close.
func newApp(cfg *config.Config) (*app, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	store, err := mailbox.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	bus := event.NewBus(logger)
	mb := mailbox.New(store, mailbox.WithBus(bus), mailbox.WithLogger(logger))
	coord := waiter.New(mb, waiterConfig(cfg.Wait), waiter.WithBus(bus), waiter.WithLogger(logger))

	return &app{
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
		mailbox: mb,
		coord:   coord,
		service: tools.NewService(mb, coord, cfg.Server.Name, logger),
	}, nil
}

// watch starts the external-write watcher when configured.
func (a *app) watch(ctx context.Context) error {
	if !a.cfg.Store.Watch {
		return nil
	}
	return a.mailbox.Watch(ctx)
}

func (a *app) close() {
	if err := a.mailbox.Close(); err != nil {
		a.logger.Warn("closing store", "error", err.Error())
	}
	_ = a.logger.Close()
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	if !cfg.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.New(logging.Options{
		Dir:   cfg.Dir,
		Level: cfg.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		},
	})
}

func waiterConfig(cfg config.WaitConfig) waiter.Config {
	return waiter.Config{
		HeartbeatInterval: cfg.HeartbeatInterval(),
		PollInterval:      cfg.PollInterval(),
		DefaultTimeout:    cfg.DefaultTimeout(),
		MaxTimeout:        cfg.MaxTimeout(),
	}
}

func newClient(cfg *config.Config) *server.Client {
	return server.NewClient(cfg.Server.Addr)
}

// printer writes CLI output, styled only when w is a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w}
	if f, ok := w.(*os.File); ok {
		p.styled = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *printer) println(a ...any) {
	_, _ = fmt.Fprintln(p.w, a...)
}

func (p *printer) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(p.w, format, a...)
}

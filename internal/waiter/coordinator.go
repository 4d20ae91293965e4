package waiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/waitroom/internal/errors"
	"github.com/Iron-Ham/waitroom/internal/event"
	"github.com/Iron-Ham/waitroom/internal/logging"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
)

// Default timings.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultTimeout           = 120 * time.Second
	DefaultPollInterval      = time.Second
)

// Mailbox is the part of *mailbox.Mailbox a Coordinator needs.
type Mailbox interface {
	TryTake() (mailbox.Message, bool)
	Notify() <-chan struct{}
}

// ProgressSink receives heartbeats. progress is in [0,1].
type ProgressSink func(progress float64, label string)

// Config holds the wait timings.
type Config struct {
	// HeartbeatInterval is the liveness cadence. Heartbeat N is due at
	// N*HeartbeatInterval from the start of the wait.
	HeartbeatInterval time.Duration

	// PollInterval bounds how long the mailbox goes unchecked.
	PollInterval time.Duration

	// DefaultTimeout is used by callers that omit a timeout.
	DefaultTimeout time.Duration

	// MaxTimeout rejects longer waits. Zero means no cap.
	MaxTimeout time.Duration
}

// DefaultConfig returns the default timings with no timeout cap.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		PollInterval:      DefaultPollInterval,
		DefaultTimeout:    DefaultTimeout,
	}
}

// Result is the terminal outcome of a wait. Exactly one of Delivered or
// !Delivered holds; Canceled additionally marks a timed-out shape that was
// cut short by the caller.
type Result struct {
	SessionID  string
	AgentName  string
	Delivered  bool
	Message    mailbox.Message
	Waited     time.Duration
	Heartbeats int
	Canceled   bool
}

// WaitedSeconds returns Waited truncated to whole seconds.
func (r Result) WaitedSeconds() int {
	return int(r.Waited / time.Second)
}

// Coordinator runs long-poll waits against a mailbox.
type Coordinator struct {
	mailbox Mailbox
	cfg     Config
	clock   Clock
	bus     *event.Bus
	logger  *logging.Logger
}

// New creates a Coordinator. Zero timings in cfg take their defaults.
func New(mb Mailbox, cfg Config, opts ...Option) *Coordinator {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}

	c := &Coordinator{
		mailbox: mb,
		cfg:     cfg,
		clock:   RealClock{},
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("waiter")
	return c
}

// Config returns the effective timings.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// session is the state of one Wait call.
type session struct {
	id         string
	agentName  string
	timeout    time.Duration
	start      time.Time
	heartbeats int
	logger     *logging.Logger
}

// Wait blocks until a message is taken from the mailbox, timeout elapses,
// or ctx is done. sink, if non-nil, is called once per heartbeat.
//
// A non-positive timeout (or one above Config.MaxTimeout) is rejected with
// an error matching errors.ErrInvalidArgument. Cancellation returns the
// timed-out shape with Canceled set and an error matching
// errors.ErrCanceled.
func (c *Coordinator) Wait(ctx context.Context, agentName string, timeout time.Duration, sink ProgressSink) (Result, error) {
	if err := c.validateTimeout(timeout); err != nil {
		return Result{}, err
	}

	s := &session{
		id:        uuid.NewString(),
		agentName: agentName,
		timeout:   timeout,
		start:     c.clock.Now(),
	}
	s.logger = c.logger.WithSession(s.id).WithAgent(agentName)
	s.logger.Info("registered, waiting for work", "timeout_seconds", int(timeout/time.Second))

	for {
		// Taken before TryTake so a deposit landing in between still wakes
		// the sleep below.
		wake := c.mailbox.Notify()

		if msg, ok := c.mailbox.TryTake(); ok {
			return c.finish(s, Result{Delivered: true, Message: msg}), nil
		}

		elapsed := c.clock.Now().Sub(s.start)
		for {
			due := time.Duration(s.heartbeats+1) * c.cfg.HeartbeatInterval
			if due > elapsed || due > timeout {
				break
			}
			s.heartbeats++
			c.heartbeat(s, elapsed, sink)
		}

		if elapsed >= timeout {
			return c.finish(s, Result{}), nil
		}

		if err := c.clock.Sleep(ctx, c.nextSleep(s, elapsed), wake); err != nil {
			res := c.finish(s, Result{Canceled: true})
			return res, fmt.Errorf("%w: %w", errors.ErrCanceled, err)
		}
	}
}

func (c *Coordinator) validateTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return errors.NewValidationError("timeout must be positive").
			WithField("timeout").
			WithValue(timeout.String()).
			WithCause(errors.ErrInvalidArgument)
	}
	if c.cfg.MaxTimeout > 0 && timeout > c.cfg.MaxTimeout {
		return errors.NewValidationError(fmt.Sprintf("timeout exceeds maximum of %s", c.cfg.MaxTimeout)).
			WithField("timeout").
			WithValue(timeout.String()).
			WithCause(errors.ErrInvalidArgument)
	}
	return nil
}

// nextSleep is the time until the earliest of the next poll tick, the next
// heartbeat boundary and the timeout.
func (c *Coordinator) nextSleep(s *session, elapsed time.Duration) time.Duration {
	d := c.cfg.PollInterval
	if next := time.Duration(s.heartbeats+1)*c.cfg.HeartbeatInterval - elapsed; next < d {
		d = next
	}
	if remaining := s.timeout - elapsed; remaining < d {
		d = remaining
	}
	return d
}

func (c *Coordinator) heartbeat(s *session, elapsed time.Duration, sink ProgressSink) {
	progress := Progress(elapsed, s.timeout)
	label := HeartbeatLabel(s.heartbeats, elapsed, s.timeout)

	s.logger.Info("heartbeat",
		"heartbeat", s.heartbeats,
		"elapsed_seconds", int(elapsed/time.Second),
		"progress", progress)

	if sink != nil {
		sink(progress, label)
	}
	if c.bus != nil {
		c.bus.Publish(event.NewHeartbeatEvent(s.id, s.agentName, s.heartbeats, elapsed, progress))
	}
}

func (c *Coordinator) finish(s *session, res Result) Result {
	res.SessionID = s.id
	res.AgentName = s.agentName
	res.Waited = c.clock.Now().Sub(s.start)
	res.Heartbeats = s.heartbeats

	outcome := event.OutcomeTimedOut
	switch {
	case res.Delivered:
		outcome = event.OutcomeDelivered
		s.logger.Info("message delivered",
			"message_id", res.Message.ID,
			"mode", string(res.Message.Mode),
			"waited_seconds", res.WaitedSeconds(),
			"heartbeats", res.Heartbeats)
	case res.Canceled:
		outcome = event.OutcomeCanceled
		s.logger.Info("wait canceled",
			"waited_seconds", res.WaitedSeconds(),
			"heartbeats", res.Heartbeats)
	default:
		s.logger.Info("timeout reached, no work received",
			"waited_seconds", res.WaitedSeconds(),
			"heartbeats", res.Heartbeats)
	}

	if c.bus != nil {
		c.bus.Publish(event.NewWaitCompletedEvent(s.id, s.agentName, outcome, res.Waited, res.Heartbeats))
	}
	return res
}

// Progress returns elapsed/timeout clamped to [0,1].
func Progress(elapsed, timeout time.Duration) float64 {
	if timeout <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(timeout)
	return min(max(p, 0), 1)
}

// HeartbeatLabel formats the progress message for heartbeat n.
func HeartbeatLabel(n int, elapsed, timeout time.Duration) string {
	return fmt.Sprintf("Heartbeat #%d - waiting for work (%ds/%ds)",
		n, int(elapsed/time.Second), int(timeout/time.Second))
}

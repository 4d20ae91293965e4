package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/Iron-Ham/waitroom/internal/errors"
	"github.com/Iron-Ham/waitroom/internal/logging"
	"github.com/Iron-Ham/waitroom/internal/mailbox"
	"github.com/Iron-Ham/waitroom/internal/waiter"
)

// DefaultServerName is reported by check_status when none is configured.
const DefaultServerName = "waitroom"

// Service implements the tools over a mailbox and a wait coordinator,
// independent of any transport.
type Service struct {
	mailbox *mailbox.Mailbox
	coord   *waiter.Coordinator
	name    string
	logger  *logging.Logger
}

// NewService creates a Service. An empty name uses DefaultServerName and a
// nil logger discards output.
func NewService(mb *mailbox.Mailbox, coord *waiter.Coordinator, name string, logger *logging.Logger) *Service {
	if name == "" {
		name = DefaultServerName
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Service{
		mailbox: mb,
		coord:   coord,
		name:    name,
		logger:  logger.WithComponent("tools"),
	}
}

// Name returns the server name reported by check_status.
func (s *Service) Name() string { return s.name }

// RegisterAndWait blocks until a message is delivered or the timeout
// elapses. A nil TimeoutSeconds uses the coordinator's default. Heartbeats
// are forwarded to sink.
func (s *Service) RegisterAndWait(ctx context.Context, p RegisterAndWaitParams, sink waiter.ProgressSink) (WaitResult, error) {
	if strings.TrimSpace(p.AgentName) == "" {
		return WaitResult{}, errors.NewValidationError("agent_name is required").
			WithField("agent_name").
			WithCause(errors.ErrInvalidArgument)
	}

	timeout := s.coord.Config().DefaultTimeout
	if p.TimeoutSeconds != nil {
		d, err := timeoutDuration(*p.TimeoutSeconds)
		if err != nil {
			return WaitResult{}, err
		}
		timeout = d
	}

	res, err := s.coord.Wait(ctx, p.AgentName, timeout, sink)
	if err != nil && !res.Canceled {
		return WaitResult{}, err
	}

	out := WaitResult{
		NoWork:         !res.Delivered,
		AgentName:      p.AgentName,
		WaitedSeconds:  res.WaitedSeconds(),
		HeartbeatsSent: res.Heartbeats,
	}
	if res.Delivered {
		msg := res.Message
		out.Message = &msg
	}
	return out, err
}

// maxTimeoutSeconds is the largest timeout_seconds that fits a
// time.Duration.
const maxTimeoutSeconds = math.MaxInt64 / int64(time.Second)

// timeoutDuration converts timeout_seconds, rejecting values that are not
// positive or would overflow. The configured cap is checked by the
// coordinator.
func timeoutDuration(seconds int) (time.Duration, error) {
	if seconds <= 0 || int64(seconds) > maxTimeoutSeconds {
		return 0, errors.NewValidationError("timeout_seconds out of range").
			WithField("timeout_seconds").
			WithValue(seconds).
			WithCause(errors.ErrInvalidArgument)
	}
	return time.Duration(seconds) * time.Second, nil
}

// SendMessage deposits content for the next waiter. An empty mode means
// info; any other value outside the fixed set is a validation error and
// leaves the mailbox unchanged.
func (s *Service) SendMessage(p SendMessageParams) (SendResult, error) {
	mode, err := mailbox.ParseMode(p.Mode)
	if err != nil {
		return SendResult{}, err
	}

	id, err := mailbox.NewMessageID()
	if err != nil {
		return SendResult{}, err
	}
	msg := mailbox.Message{
		ID:        id,
		Content:   p.Content,
		Mode:      mode,
		Timestamp: time.Now(),
		Origin:    mailbox.OriginTool,
	}
	if err := s.mailbox.Deposit(msg); err != nil {
		return SendResult{}, err
	}
	return SendResult{Status: "queued", Message: msg}, nil
}

// CheckStatus reports a best-effort snapshot of the server state.
func (s *Service) CheckStatus() StatusResult {
	cfg := s.coord.Config()
	return StatusResult{
		Server:            s.name,
		Status:            "running",
		MessagePending:    s.mailbox.IsPending(),
		HeartbeatInterval: int(cfg.HeartbeatInterval / time.Second),
		DefaultTimeout:    int(cfg.DefaultTimeout / time.Second),
	}
}

// Call dispatches a tool by name with JSON-encoded params. sink is only
// used by register_and_wait. The result is one of WaitResult, SendResult
// or StatusResult.
func (s *Service) Call(ctx context.Context, name string, params json.RawMessage, sink waiter.ProgressSink) (any, error) {
	s.logger.Debug("tool call", "tool", name)

	switch name {
	case NameRegisterAndWait:
		var p RegisterAndWaitParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return s.RegisterAndWait(ctx, p, sink)

	case NameSendMessage:
		var p SendMessageParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return s.SendMessage(p)

	case NameCheckStatus:
		return s.CheckStatus(), nil

	default:
		return nil, errors.Wrapf(errors.ErrUnknownTool, "tool %q", name)
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValidationError("malformed params").WithCause(err)
	}
	return nil
}

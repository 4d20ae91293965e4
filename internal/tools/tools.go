package tools

import (
	"github.com/invopop/jsonschema"

	"github.com/Iron-Ham/waitroom/internal/mailbox"
)

// Tool names.
const (
	NameRegisterAndWait = "register_and_wait"
	NameSendMessage     = "send_message"
	NameCheckStatus     = "check_status"
)

// Descriptor describes a callable tool and its JSON input schema.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// RegisterAndWaitParams are the inputs to register_and_wait.
type RegisterAndWaitParams struct {
	AgentName      string `json:"agent_name" jsonschema_description:"Name to register this agent as"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty" jsonschema_description:"How long to wait before returning no_work" jsonschema:"minimum=1,default=120"`
}

// SendMessageParams are the inputs to send_message.
type SendMessageParams struct {
	Content string `json:"content" jsonschema_description:"The message content"`
	Mode    string `json:"mode,omitempty" jsonschema_description:"How the recipient should treat the content" jsonschema:"enum=challenge,enum=agree,enum=collaborate,enum=deduce,enum=info,default=info"`
}

// CheckStatusParams are the (empty) inputs to check_status.
type CheckStatusParams struct{}

// WaitResult is returned by register_and_wait. Message is set only when
// NoWork is false.
type WaitResult struct {
	NoWork         bool             `json:"no_work"`
	AgentName      string           `json:"agent_name"`
	WaitedSeconds  int              `json:"waited_seconds"`
	HeartbeatsSent int              `json:"heartbeats_sent"`
	Message        *mailbox.Message `json:"message,omitempty"`
}

// SendResult is returned by send_message.
type SendResult struct {
	Status  string          `json:"status"`
	Message mailbox.Message `json:"message"`
}

// StatusResult is returned by check_status.
type StatusResult struct {
	Server            string `json:"server"`
	Status            string `json:"status"`
	MessagePending    bool   `json:"message_pending"`
	HeartbeatInterval int    `json:"heartbeat_interval"`
	DefaultTimeout    int    `json:"default_timeout"`
}

// GenerateSchema reflects the JSON schema for T with definitions inlined.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Descriptors lists the exposed tools.
func Descriptors() []Descriptor {
	return []Descriptor{
		{
			Name: NameRegisterAndWait,
			Description: "Register as an agent and wait for work. The call stays open, " +
				"sending heartbeat progress notifications, until a message arrives " +
				"or the timeout is reached (no_work: true).",
			InputSchema: GenerateSchema[RegisterAndWaitParams](),
		},
		{
			Name:        NameSendMessage,
			Description: "Send a message to the next waiting agent. An unconsumed message is replaced.",
			InputSchema: GenerateSchema[SendMessageParams](),
		},
		{
			Name:        NameCheckStatus,
			Description: "Check server status and whether a message is pending.",
			InputSchema: GenerateSchema[CheckStatusParams](),
		},
	}
}

package mailbox

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/waitroom/internal/errors"
)

// Mode tells the recipient how to interpret a message's content.
type Mode string

const (
	// ModeChallenge asks the recipient to push back on the content.
	ModeChallenge Mode = "challenge"

	// ModeAgree asks the recipient to build on the content.
	ModeAgree Mode = "agree"

	// ModeCollaborate asks the recipient to work on the content jointly.
	ModeCollaborate Mode = "collaborate"

	// ModeDeduce asks the recipient to reason from the content to a conclusion.
	ModeDeduce Mode = "deduce"

	// ModeInfo is plain information with no expected reaction.
	ModeInfo Mode = "info"
)

// DefaultMode is used when a depositor does not specify a mode.
const DefaultMode = ModeInfo

// Origin tags for messages deposited by waitroom itself.
const (
	OriginCLI  = "cli_sender"
	OriginTool = "test_sender"
)

var validModes = map[Mode]bool{
	ModeChallenge:   true,
	ModeAgree:       true,
	ModeCollaborate: true,
	ModeDeduce:      true,
	ModeInfo:        true,
}

// ValidModes returns the accepted modes in display order.
func ValidModes() []Mode {
	return []Mode{ModeChallenge, ModeAgree, ModeCollaborate, ModeDeduce, ModeInfo}
}

// Valid reports whether m is one of the fixed modes.
func (m Mode) Valid() bool {
	return validModes[m]
}

// ParseMode converts s to a Mode. An empty string yields DefaultMode.
// Unknown values fail with an error matching errors.ErrInvalidMode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return DefaultMode, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", invalidModeError(m)
	}
	return m, nil
}

func invalidModeError(m Mode) error {
	names := make([]string, 0, len(validModes))
	for _, v := range ValidModes() {
		names = append(names, string(v))
	}
	return errors.NewValidationError(fmt.Sprintf("mode must be one of: %s", strings.Join(names, ", "))).
		WithField("mode").
		WithValue(string(m)).
		WithCause(errors.ErrInvalidMode)
}

// Message is the unit of work handed to a waiter.
//
// The JSON field names (content, mode, timestamp, from) are the format
// external producers write into the file store; id is optional.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Content   string    `json:"content"`
	Mode      Mode      `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"from"`
}

// timestampLayouts are tried in order when decoding. Producers that write
// local ISO-8601 timestamps without a zone are read as local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if layout == time.RFC3339Nano {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as zone-less ISO-8601.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string `json:"id"`
		Content   string `json:"content"`
		Mode      Mode   `json:"mode"`
		Timestamp string `json:"timestamp"`
		Origin    string `json:"from"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}
	*m = Message{
		ID:        raw.ID,
		Content:   raw.Content,
		Mode:      raw.Mode,
		Timestamp: ts,
		Origin:    raw.Origin,
	}
	return nil
}

// Preview returns content cut to n runes with an ellipsis when longer.
func (m Message) Preview(n int) string {
	r := []rune(m.Content)
	if len(r) <= n {
		return m.Content
	}
	return string(r[:n]) + "..."
}

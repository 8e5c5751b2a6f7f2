package protocol

import (
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jordan13p/websocket-test/internal/identity"
)

// Envelope is an outbound message. Every envelope carries a "type" and an
// ISO-8601 UTC "timestamp"; the remaining fields vary per kind.
type Envelope interface {
	// Kind returns the value of the envelope's "type" field.
	Kind() string
}

// Timestamp formats the clock's current time for the wire.
func Timestamp(clock clockwork.Clock) string {
	return clock.Now().UTC().Format(time.RFC3339)
}

// Marshal serializes an envelope to its canonical wire form.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

type Welcome struct {
	Type            string                   `json:"type"`
	Message         string                   `json:"message"`
	Timestamp       string                   `json:"timestamp"`
	ClientIP        string                   `json:"client_ip"`
	ServiceIdentity identity.ServiceIdentity `json:"service_identity"`
}

func (Welcome) Kind() string { return "welcome" }

func NewWelcome(clock clockwork.Clock, id identity.ServiceIdentity, clientIP, message string) Welcome {
	return Welcome{
		Type:            "welcome",
		Message:         message,
		Timestamp:       Timestamp(clock),
		ClientIP:        clientIP,
		ServiceIdentity: id,
	}
}

type Pong struct {
	Type         string         `json:"type"`
	Timestamp    string         `json:"timestamp"`
	OriginalData map[string]any `json:"original_data"`
}

func (Pong) Kind() string { return "pong" }

type EchoResponse struct {
	Type       string         `json:"type"`
	Timestamp  string         `json:"timestamp"`
	EchoedData map[string]any `json:"echoed_data"`
}

func (EchoResponse) Kind() string { return "echo_response" }

// Broadcast is the envelope fanned out to every registered connection.
// Message carries the inbound "message" field as-is, whatever its shape.
type Broadcast struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   any    `json:"message"`
	Sender    string `json:"sender"`
}

func (Broadcast) Kind() string { return "broadcast" }

// BroadcastConfirmation reports registry size at dispatch time, not the
// number of confirmed deliveries.
type BroadcastConfirmation struct {
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	Recipients int    `json:"recipients"`
}

func (BroadcastConfirmation) Kind() string { return "broadcast_confirmation" }

type Error struct {
	Type         string         `json:"type"`
	Timestamp    string         `json:"timestamp"`
	Message      string         `json:"message"`
	ReceivedData map[string]any `json:"received_data"`
}

func (Error) Kind() string { return "error" }

// TextEcho is the reply to any payload that is not a JSON object.
type TextEcho struct {
	Type            string `json:"type"`
	Timestamp       string `json:"timestamp"`
	OriginalMessage string `json:"original_message"`
	MessageLength   int    `json:"message_length"`
}

func (TextEcho) Kind() string { return "text_echo" }

// HTTPEcho is the reply on the HTTP-upgrade path for any parsable JSON
// payload, object or not.
type HTTPEcho struct {
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	EchoedData any    `json:"echoed_data"`
}

func (HTTPEcho) Kind() string { return "http_echo" }

// RawTextEcho is the HTTP-upgrade path's text echo. Unlike TextEcho it
// carries no length field; the two paths deliberately differ.
type RawTextEcho struct {
	Type            string `json:"type"`
	Timestamp       string `json:"timestamp"`
	OriginalMessage string `json:"original_message"`
}

func (RawTextEcho) Kind() string { return "text_echo" }
